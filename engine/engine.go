package engine

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	units "github.com/docker/go-units"
	"github.com/google/uuid"
	"github.com/projecteru2/core/log"

	"github.com/tidalwave-it/solidblue/catalog"
	"github.com/tidalwave-it/solidblue/config"
	"github.com/tidalwave-it/solidblue/executor"
	"github.com/tidalwave-it/solidblue/fingerprint"
	"github.com/tidalwave-it/solidblue/fsys"
	"github.com/tidalwave-it/solidblue/progress"
	"github.com/tidalwave-it/solidblue/types"
)

// Engine runs the fingerprinting and backup workflows. A workflow executes on
// the caller's goroutine; the observer receives every notification from that
// same goroutine and must not block.
type Engine struct {
	conf     *config.Config
	fs       fsys.FS
	exec     *executor.Executor
	observer progress.Observer
	stats    *fingerprint.Stats
	hasher   *fingerprint.Hasher

	newCatalog func() *catalog.Catalog
	now        func() time.Time
	newID      func() string
}

// Options override the engine's collaborators; zero values select the real
// implementations. Tests inject fakes, a fixed clock and a deterministic id
// generator through here.
type Options struct {
	FS         fsys.FS
	Exec       *executor.Executor
	Observer   progress.Observer
	NewCatalog func() *catalog.Catalog
	Now        func() time.Time
	NewID      func() string
}

// New creates an Engine for the given configuration.
func New(conf *config.Config, opts Options) *Engine {
	e := &Engine{
		conf:       conf,
		fs:         opts.FS,
		exec:       opts.Exec,
		observer:   opts.Observer,
		newCatalog: opts.NewCatalog,
		now:        opts.Now,
		newID:      opts.NewID,
	}
	if e.exec == nil {
		e.exec = executor.New()
	}
	if e.fs == nil {
		e.fs = fsys.New(e.exec)
	}
	if e.observer == nil {
		e.observer = progress.Nop
	}
	if e.newCatalog == nil {
		e.newCatalog = func() *catalog.Catalog { return catalog.New(conf.DatabaseFile()) }
	}
	if e.now == nil {
		e.now = time.Now
	}
	if e.newID == nil {
		e.newID = func() string { return uuid.New().String() }
	}
	e.stats = &fingerprint.Stats{}
	e.hasher = fingerprint.New(e.stats)
	return e
}

// Stats exposes the per-run counters of the latest workflow.
func (e *Engine) Stats() *fingerprint.Stats {
	return e.stats
}

// countFiles enumerates folders, sorts by path for deterministic processing
// and reports the batch to the observer.
func (e *Engine) countFiles(ctx context.Context, folders []string, pattern string) ([]types.FileInfo, error) {
	e.observer.Counting()
	e.observer.Message(fmt.Sprintf("Counting files in %v...", folders))

	files, err := e.fs.Enumerate(folders, pattern)
	if err != nil {
		return nil, err
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })

	e.observer.FileCount(len(files))
	e.observer.Message(fmt.Sprintf("Found %d files (%s)", len(files), units.HumanSize(float64(totalSize(files)))))
	log.WithFunc("engine.countFiles").Debugf(ctx, "enumerated %d files under %v", len(files), folders)
	return files, nil
}

func totalSize(files []types.FileInfo) int64 {
	var total int64
	for _, f := range files {
		total += f.Size
	}
	return total
}

// loadIDMap returns the catalog's id → current path map.
func (e *Engine) loadIDMap(cat *catalog.Catalog) (map[string]string, error) {
	mappings, err := cat.Mappings()
	if err != nil {
		return nil, err
	}
	byID := make(map[string]string, len(mappings))
	for _, m := range mappings {
		byID[m.FileID] = m.Path
	}
	return byID, nil
}

// resolveFileID resolves a path to its file id: identity xattr first, then
// the catalog by basename (the recovery path for copies that lost the xattr).
// Returns "" when the file is not under management.
func (e *Engine) resolveFileID(cat *catalog.Catalog, path string) (string, error) {
	fileID, err := e.fs.GetXattr(path, fsys.XattrID)
	if err != nil {
		return "", err
	}
	if fileID != "" {
		return fileID, nil
	}
	return cat.FileIDByName(baseName(path))
}

func baseName(path string) string {
	if i := strings.LastIndexByte(path, '/'); i >= 0 {
		return path[i+1:]
	}
	return path
}

// relativeTo strips the root prefix from path.
func relativeTo(path, root string) string {
	return strings.TrimPrefix(path, root+"/")
}

// checkEncryptedBackup detects an encrypted backup: a volume whose root holds
// exactly one container file. The container gets mounted under the app state
// directory and its mount point becomes the actual root for the workflow.
func (e *Engine) checkEncryptedBackup(ctx context.Context, mountPoint string) (bool, string, error) {
	files, err := e.fs.Enumerate([]string{mountPoint}, "")
	if err != nil {
		return false, "", err
	}
	if len(files) != 1 || !strings.HasSuffix(files[0].Name, fsys.ContainerSuffix) {
		return false, mountPoint, nil
	}

	mountDir := e.conf.EncryptedMountDir()
	if err := e.fs.MakeDirs(mountDir); err != nil {
		return false, "", err
	}
	label := strings.TrimSuffix(files[0].Name, fsys.ContainerSuffix)
	containerMount := mountDir + "/" + label
	e.observer.Message(fmt.Sprintf("Detected a VeraCrypt backup, mounting image at %q ...", containerMount))
	if err := e.fs.MountEncrypted(ctx, files[0].Path, containerMount, e.conf.KeyFile); err != nil {
		return false, "", err
	}
	return true, containerMount, nil
}

// unmountEncryptedBackup releases the container mounted by
// checkEncryptedBackup; called on every exit path of register/verify.
func (e *Engine) unmountEncryptedBackup(ctx context.Context, encrypted bool, mountPoint string) {
	if !encrypted {
		return
	}
	e.observer.Message(fmt.Sprintf("Unmounting VeraCrypt image at %q ...", mountPoint))
	if err := e.fs.UnmountEncrypted(ctx, mountPoint); err != nil {
		log.WithFunc("engine.unmountEncryptedBackup").Warnf(ctx, "unmount %s: %v", mountPoint, err)
	}
}
