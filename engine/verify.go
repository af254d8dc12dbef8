package engine

import (
	"context"
	"fmt"

	"github.com/projecteru2/core/log"

	"github.com/tidalwave-it/solidblue/types"
)

// VerifyBackup recomputes the digest of every managed file on a registered
// backup volume and compares it against the latest recorded fingerprint.
// Every observation is appended as a new fingerprint row keyed to the backup
// item id, building a per-medium integrity history. Files that cannot be
// resolved to an id are skipped: a backup may carry foreign files.
func (e *Engine) VerifyBackup(ctx context.Context, mountPoint string, ejectAfter bool) error {
	encrypted, actualRoot, err := e.checkEncryptedBackup(ctx, mountPoint)
	if err != nil {
		return err
	}
	defer e.unmountEncryptedBackup(ctx, encrypted, actualRoot)

	timestamp := e.now()

	cat := e.newCatalog()
	if err := cat.Open(ctx); err != nil {
		return err
	}
	defer cat.Close(ctx) //nolint:errcheck

	volumeID, err := e.fs.VolumeUUID(ctx, mountPoint)
	if err != nil {
		return err
	}
	if volumeID == "" {
		return fmt.Errorf("no volume UUID for %s", mountPoint)
	}
	backup, err := cat.BackupByVolumeID(volumeID)
	if err != nil {
		return err
	}
	if backup == nil {
		e.observer.Error(fmt.Sprintf("%s is not a registered backup", mountPoint))
		return nil
	}
	log.WithFunc("engine.VerifyBackup").Infof(ctx, "verifying backup %s (%s)", backup.Label, backup.ID)

	files, err := e.countFiles(ctx, []string{actualRoot}, "")
	if err != nil {
		return err
	}
	checkTimestamp := e.now()
	total := totalSize(files)
	var current int64

	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return err
		}
		relPath := relativeTo(file.Path, actualRoot)
		fileID, err := e.resolveFileID(cat, file.Path)
		if err != nil {
			return err
		}
		if fileID == "" {
			current += file.Size
			e.observer.Progress(current, total)
			continue
		}

		e.observer.File(relPath, false)
		recorded, _, err := cat.LatestFingerprint(fileID)
		if err != nil {
			return err
		}
		algorithm, digest := e.hasher.Compute(file.Path)

		itemID, err := cat.BackupItemID(backup.ID, fileID)
		if err != nil {
			return err
		}
		if itemID == "" {
			e.observer.Error(fmt.Sprintf("File was not registered as part of the backup: %s - registering now", relPath))
			if itemID, err = cat.AddBackupItem(backup.ID, fileID, relPath, false); err != nil {
				return err
			}
		}

		// Keyed to the item id, not the file id: this is the history of the
		// copy on this medium, not of the live file.
		if err := cat.AddFingerprint(itemID, file.Name, algorithm, digest, timestamp, false); err != nil {
			return err
		}

		if algorithm == types.AlgorithmError {
			e.observer.Error(fmt.Sprintf("Error for %s: %s", relPath, digest))
		} else if recorded != digest {
			e.observer.Error(fmt.Sprintf("Mismatch for %s: found %s expected %s", relPath, digest, recorded))
		}

		current += file.Size
		e.observer.Progress(current, total)
	}

	if err := cat.SetLatestCheck(backup.ID, checkTimestamp, false); err != nil {
		return err
	}
	if err := cat.Commit(); err != nil {
		return err
	}

	if ejectAfter {
		if err := e.fs.Eject(ctx, mountPoint); err != nil {
			return err
		}
	}
	return nil
}
