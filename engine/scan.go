package engine

import (
	"context"
	"fmt"
	"math"
	"time"

	units "github.com/docker/go-units"
	"github.com/projecteru2/core/log"

	"github.com/tidalwave-it/solidblue/catalog"
	"github.com/tidalwave-it/solidblue/fsys"
	"github.com/tidalwave-it/solidblue/types"
)

// Scan walks folder recursively and fingerprints every file whose basename
// matches pattern. Identity xattrs bind files to catalog rows; renames are
// detected by id, and a digest that disagrees with the previous recorded one
// is reported as corruption. With onlyNew, files already under management are
// skipped.
func (e *Engine) Scan(ctx context.Context, folder, pattern string, onlyNew bool) error {
	e.stats.Reset()
	defer e.summary()

	cat := e.newCatalog()
	if err := cat.Open(ctx); err != nil {
		return err
	}
	defer cat.Close(ctx) //nolint:errcheck

	files, err := e.countFiles(ctx, []string{folder}, pattern)
	if err != nil {
		return err
	}
	pathByID, err := e.loadIDMap(cat)
	if err != nil {
		return err
	}

	if onlyNew {
		e.observer.Message("Scanning only new files")
	}

	timestamp := e.now()
	total := totalSize(files)
	var current int64

	for _, file := range files {
		// Cancellation is honored only between files so the catalog never
		// records a partial digest.
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := e.scanOne(ctx, cat, pathByID, file, timestamp, onlyNew); err != nil {
			return err
		}
		current += file.Size
		e.observer.Progress(current, total)
	}
	return nil
}

// scanOne processes a single file: resolve identity, detect moves, hash,
// append the fingerprint row and refresh the fingerprint xattrs. The catalog
// commits after every write so a crash loses at most one file.
// Per-file I/O failures are recorded and reported, never fatal.
func (e *Engine) scanOne(ctx context.Context, cat *catalog.Catalog, pathByID map[string]string, file types.FileInfo, timestamp time.Time, onlyNew bool) error {
	path := file.Path

	fileID, err := e.fs.GetXattr(path, fsys.XattrID)
	if err != nil {
		e.observer.Error(fmt.Sprintf("Error for %s: %s", path, err))
		return nil
	}
	prevFingerprint, err := e.fs.GetXattr(path, fsys.XattrFingerprint)
	if err != nil {
		e.observer.Error(fmt.Sprintf("Error for %s: %s", path, err))
		return nil
	}

	known := fileID != ""
	if !known {
		// Recovery path: a file that lost its xattr but kept its name.
		fileID, err = cat.FileIDByName(file.Name)
		if err != nil {
			return err // consistency violations abort the workflow
		}
		if fileID != "" {
			known = true
			if err := e.fs.SetXattr(path, fsys.XattrID, fileID); err != nil {
				log.WithFunc("engine.scanOne").Warnf(ctx, "rebind xattr on %s: %v", path, err)
			}
		}
	}

	switch {
	case !known:
		fileID = e.newID()
		if err := e.fs.SetXattr(path, fsys.XattrID, fileID); err != nil {
			e.observer.Error(fmt.Sprintf("Error for %s: %s", path, err))
			return nil
		}
		if err := cat.AddFile(fileID, path, true); err != nil {
			return err
		}
		pathByID[fileID] = path
	case onlyNew:
		e.observer.File(path, false)
		return nil
	default:
		prevPath, ok := pathByID[fileID]
		if !ok {
			// The xattr survived but the catalog row is gone; recreate it.
			if err := cat.AddFile(fileID, path, true); err != nil {
				return err
			}
			pathByID[fileID] = path
		} else if prevPath != path {
			e.observer.FileMoved(prevPath, path)
			if err := cat.UpdateFilePath(fileID, path, true); err != nil {
				return err
			}
			pathByID[fileID] = path
		}
	}

	algorithm, digest := e.hasher.Compute(path)
	if err := cat.AddFingerprint(fileID, file.Name, algorithm, digest, timestamp, true); err != nil {
		return err
	}

	if algorithm == types.AlgorithmError {
		e.observer.Error(fmt.Sprintf("Error for %s: %s", path, digest))
		return nil
	}

	if err := e.fs.SetXattr(path, fsys.XattrFingerprint, digest); err != nil {
		log.WithFunc("engine.scanOne").Warnf(ctx, "fingerprint xattr on %s: %v", path, err)
	}
	if err := e.fs.SetXattr(path, fsys.XattrFingerprintTimestamp, timestamp.Format(types.TimeFormat)); err != nil {
		log.WithFunc("engine.scanOne").Warnf(ctx, "timestamp xattr on %s: %v", path, err)
	}
	e.observer.File(path, prevFingerprint == "")

	if prevFingerprint != "" && digest != prevFingerprint {
		e.observer.Error(fmt.Sprintf("Mismatch for %s: found %s expected %s", path, digest, prevFingerprint))
	}
	return nil
}

// summary emits the end-of-run totals: file count, bytes, wall time,
// throughput and the per-I/O-path breakdown.
func (e *Engine) summary() {
	e.stats.Stop()
	total := e.stats.TotalBytes()
	elapsed := e.stats.Elapsed().Seconds()
	speed := 0.0
	if elapsed > 0 {
		speed = float64(total) / elapsed
	}
	e.observer.Message(fmt.Sprintf("%d files (%s) processed in %d seconds (%s/sec)",
		e.stats.FileCount,
		units.HumanSize(float64(total)),
		int(math.Round(elapsed)),
		units.HumanSize(speed)))
	e.observer.Message(fmt.Sprintf("%s in plain I/O, %s in memory mapped I/O",
		units.HumanSize(float64(e.stats.DirectBytes)),
		units.HumanSize(float64(e.stats.MappedBytes))))
}
