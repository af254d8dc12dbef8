package engine

import (
	"context"
	"fmt"

	"github.com/projecteru2/core/log"

	"github.com/tidalwave-it/solidblue/types"
)

// RegisterBackup indexes an external volume under the given label. An
// encrypted volume (single container file at the root) is mounted first and
// its inner volume is walked instead; the volume UUID is always taken from
// the outer mount point. Duplicate labels and volume UUIDs are rejected
// before anything is written.
func (e *Engine) RegisterBackup(ctx context.Context, label, mountPoint string, ejectAfter bool) error {
	encrypted, actualRoot, err := e.checkEncryptedBackup(ctx, mountPoint)
	if err != nil {
		return err
	}
	defer e.unmountEncryptedBackup(ctx, encrypted, actualRoot)

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
	creationDate, err := e.fs.Ctime(actualRoot)
	if err != nil {
		return err
	}
	e.observer.Message(fmt.Sprintf("Volume UUID %s created on %s", volumeID, creationDate.Format(types.TimeFormat)))

	if existing, err := cat.BackupByVolumeID(volumeID); err != nil {
		return err
	} else if existing != nil {
		e.observer.Error("Backup with the same volume id already registered")
		return nil
	}
	if existing, err := cat.BackupByLabel(label); err != nil {
		return err
	} else if existing != nil {
		e.observer.Error("Backup with the same label already registered")
		return nil
	}

	files, err := e.countFiles(ctx, []string{actualRoot}, "")
	if err != nil {
		return err
	}

	backupID, err := cat.AddBackup(actualRoot, label, volumeID, creationDate, e.now(), encrypted, false)
	if err != nil {
		return err
	}
	log.WithFunc("engine.RegisterBackup").Infof(ctx, "registering backup %s (%s) with %d files", label, backupID, len(files))

	for i, file := range files {
		fileID, err := e.resolveFileID(cat, file.Path)
		if err != nil {
			return err
		}
		if fileID != "" {
			relPath := relativeTo(file.Path, actualRoot)
			if _, err := cat.AddBackupItem(backupID, fileID, relPath, false); err != nil {
				return err
			}
			e.observer.File(relPath, true)
		}
		e.observer.Progress(int64(i+1), int64(len(files)))
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
