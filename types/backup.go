package types

import "time"

// Backup is a registered external volume carrying copies of managed files.
type Backup struct {
	ID       string `json:"id"`
	BasePath string `json:"base_path"`
	// Label is the human name of the volume, unique across all backups.
	Label string `json:"label"`
	// VolumeID is the filesystem-assigned volume UUID, unique across all backups.
	VolumeID  string `json:"volume_id"`
	Encrypted bool   `json:"encrypted"`
	// CreationDate is the ctime of the volume root.
	CreationDate time.Time `json:"creation_date"`
	// RegistrationDate is when the backup was registered in the catalog.
	RegistrationDate time.Time `json:"registration_date"`
	// LatestCheckDate is set only by a successful verify; nil until then.
	LatestCheckDate *time.Time `json:"latest_check_date,omitempty"`
}

// BackupItem links a file copy inside a backup to its catalog identity.
type BackupItem struct {
	ID       string `json:"id"`
	BackupID string `json:"backup_id"`
	FileID   string `json:"file_id"`
	// Path is relative to the backup's mount point.
	Path string `json:"path"`
}

// MountedVolume is a currently mounted volume, paired with the backup label
// when the volume is registered.
type MountedVolume struct {
	MountPoint string `json:"mount_point"`
	Label      string `json:"label"`
}
