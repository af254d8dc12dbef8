package catalog

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/tidalwave-it/solidblue/types"
)

const backupColumns = `id, base_path, label, volume_id, encrypted, creation_date, registration_date, latest_check_date`

// AddBackup registers a new backup volume and returns its id.
func (c *Catalog) AddBackup(basePath, label, volumeID string, creationDate, registrationDate time.Time, encrypted, commit bool) (string, error) {
	backupID := c.newID()
	encFlag := 0
	if encrypted {
		encFlag = 1
	}
	err := c.exec(
		`INSERT INTO backups(id, base_path, label, volume_id, creation_date, registration_date, encrypted) VALUES(?, ?, ?, ?, ?, ?, ?)`,
		commit,
		backupID, basePath, label, volumeID,
		creationDate.Format(types.TimeFormat), registrationDate.Format(types.TimeFormat), encFlag,
	)
	if err != nil {
		return "", err
	}
	return backupID, nil
}

// Backups returns all registered backups ordered by label.
func (c *Catalog) Backups() ([]types.Backup, error) {
	rows, err := c.tx.Query(`SELECT ` + backupColumns + ` FROM backups ORDER BY label`)
	if err != nil {
		return nil, err
	}
	defer rows.Close() //nolint:errcheck

	var backups []types.Backup
	for rows.Next() {
		backup, err := scanBackup(rows)
		if err != nil {
			return nil, err
		}
		backups = append(backups, backup)
	}
	return backups, rows.Err()
}

// BackupByVolumeID finds the backup registered for a volume UUID, or nil.
func (c *Catalog) BackupByVolumeID(volumeID string) (*types.Backup, error) {
	return c.singleBackup(`SELECT `+backupColumns+` FROM backups WHERE volume_id = ?`, volumeID)
}

// BackupByLabel finds the backup registered under a label, or nil.
func (c *Catalog) BackupByLabel(label string) (*types.Backup, error) {
	return c.singleBackup(`SELECT `+backupColumns+` FROM backups WHERE label = ?`, label)
}

// BackupByMountPoint finds the backup registered at a mount point, or nil.
func (c *Catalog) BackupByMountPoint(mountPoint string) (*types.Backup, error) {
	return c.singleBackup(`SELECT `+backupColumns+` FROM backups WHERE base_path = ?`, mountPoint)
}

// SetLatestCheck records the timestamp of a successful verify.
func (c *Catalog) SetLatestCheck(backupID string, timestamp time.Time, commit bool) error {
	return c.exec(`UPDATE backups SET latest_check_date = ? WHERE id = ?`, commit,
		timestamp.Format(types.TimeFormat), backupID)
}

// AddBackupItem links a file copy inside a backup and returns the item id.
func (c *Catalog) AddBackupItem(backupID, fileID, relativePath string, commit bool) (string, error) {
	itemID := c.newID()
	err := c.exec(`INSERT INTO backup_files(id, backup_id, file_id, path) VALUES(?, ?, ?, ?)`, commit,
		itemID, backupID, fileID, relativePath)
	if err != nil {
		return "", err
	}
	return itemID, nil
}

// BackupItemID finds the item linking (backup, file), or "" when absent.
// More than one row is a consistency error.
func (c *Catalog) BackupItemID(backupID, fileID string) (string, error) {
	rows, err := c.tx.Query(`SELECT id FROM backup_files WHERE backup_id = ? AND file_id = ?`, backupID, fileID)
	if err != nil {
		return "", err
	}
	defer rows.Close() //nolint:errcheck

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return "", err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return "", err
	}
	switch len(ids) {
	case 0:
		return "", nil
	case 1:
		return ids[0], nil
	default:
		return "", fmt.Errorf("%w: %d items for backup %s file %s", ErrInconsistent, len(ids), backupID, fileID)
	}
}

// BackupItems returns all items of a backup ordered by path.
func (c *Catalog) BackupItems(backupID string) ([]types.BackupItem, error) {
	rows, err := c.tx.Query(`SELECT id, backup_id, file_id, path FROM backup_files WHERE backup_id = ? ORDER BY path`, backupID)
	if err != nil {
		return nil, err
	}
	defer rows.Close() //nolint:errcheck

	var items []types.BackupItem
	for rows.Next() {
		var item types.BackupItem
		if err := rows.Scan(&item.ID, &item.BackupID, &item.FileID, &item.Path); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (c *Catalog) singleBackup(query string, arg any) (*types.Backup, error) {
	rows, err := c.tx.Query(query, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close() //nolint:errcheck

	var backups []types.Backup
	for rows.Next() {
		backup, err := scanBackup(rows)
		if err != nil {
			return nil, err
		}
		backups = append(backups, backup)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	switch len(backups) {
	case 0:
		return nil, nil
	case 1:
		return &backups[0], nil
	default:
		return nil, fmt.Errorf("%w: expected 0 or 1 backups, found %d", ErrInconsistent, len(backups))
	}
}

func scanBackup(rows *sql.Rows) (types.Backup, error) {
	var (
		backup    types.Backup
		encrypted int
		creation  string
		regDate   string
		lastCheck sql.NullString
	)
	if err := rows.Scan(&backup.ID, &backup.BasePath, &backup.Label, &backup.VolumeID,
		&encrypted, &creation, &regDate, &lastCheck); err != nil {
		return backup, err
	}
	backup.Encrypted = encrypted != 0

	var err error
	if backup.CreationDate, err = parseTime(creation); err != nil {
		return backup, err
	}
	if backup.RegistrationDate, err = parseTime(regDate); err != nil {
		return backup, err
	}
	if lastCheck.Valid && lastCheck.String != "" {
		t, err := parseTime(lastCheck.String)
		if err != nil {
			return backup, err
		}
		backup.LatestCheckDate = &t
	}
	return backup, nil
}

func parseTime(s string) (time.Time, error) {
	t, err := time.ParseInLocation(types.TimeFormat, s, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	return t, nil
}
