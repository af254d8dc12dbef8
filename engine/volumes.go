package engine

import (
	"context"
	"sort"

	"github.com/tidalwave-it/solidblue/types"
)

// MountedBackupVolumes inspects the currently mounted volumes and returns
// those that are registered backups (registered=true) or those that are not
// (registered=false), sorted by mount point.
func (e *Engine) MountedBackupVolumes(ctx context.Context, registered bool) ([]types.MountedVolume, error) {
	cat := e.newCatalog()
	if err := cat.Open(ctx); err != nil {
		return nil, err
	}
	defer cat.Close(ctx) //nolint:errcheck

	mounts, err := e.fs.ListVolumes(e.conf.VolumesDir)
	if err != nil {
		return nil, err
	}

	var result []types.MountedVolume
	for _, mountPoint := range mounts {
		volumeID, err := e.fs.VolumeUUID(ctx, mountPoint)
		if err != nil {
			return nil, err
		}
		var backup *types.Backup
		if volumeID != "" {
			if backup, err = cat.BackupByVolumeID(volumeID); err != nil {
				return nil, err
			}
		}
		switch {
		case backup != nil && registered:
			result = append(result, types.MountedVolume{MountPoint: mountPoint, Label: backup.Label})
		case backup == nil && !registered:
			result = append(result, types.MountedVolume{MountPoint: mountPoint, Label: baseName(mountPoint)})
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].MountPoint < result[j].MountPoint })
	return result, nil
}

// Backups returns all registered backups ordered by label.
func (e *Engine) Backups(ctx context.Context) ([]types.Backup, error) {
	cat := e.newCatalog()
	if err := cat.Open(ctx); err != nil {
		return nil, err
	}
	defer cat.Close(ctx) //nolint:errcheck
	return cat.Backups()
}
