package catalog

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCatalog(t *testing.T) *Catalog {
	t.Helper()
	var counter int
	cat := New(filepath.Join(t.TempDir(), "fingerprints.db")).WithIDGenerator(func() string {
		counter++
		return fmt.Sprintf("id-%04d", counter)
	})
	require.NoError(t, cat.Open(context.Background()))
	t.Cleanup(func() { _ = cat.Close(context.Background()) })
	return cat
}

var testStamp = time.Date(2021, 3, 14, 15, 9, 26, 0, time.Local)

func TestSchemaIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fingerprints.db")
	ctx := context.Background()

	cat := New(path)
	require.NoError(t, cat.Open(ctx))
	require.NoError(t, cat.AddFile("f1", "/data/a", true))
	require.NoError(t, cat.Close(ctx))

	// Reopening must keep existing rows and recreate nothing.
	cat = New(path)
	require.NoError(t, cat.Open(ctx))
	defer cat.Close(ctx) //nolint:errcheck
	mappings, err := cat.Mappings()
	require.NoError(t, err)
	require.Len(t, mappings, 1)
	assert.Equal(t, "/data/a", mappings[0].Path)
}

func TestMappingsOrderedByPath(t *testing.T) {
	cat := newTestCatalog(t)
	require.NoError(t, cat.AddFile("f1", "/data/z", false))
	require.NoError(t, cat.AddFile("f2", "/data/a", false))
	require.NoError(t, cat.AddFile("f3", "/data/m", true))

	mappings, err := cat.Mappings()
	require.NoError(t, err)
	require.Len(t, mappings, 3)
	assert.Equal(t, "/data/a", mappings[0].Path)
	assert.Equal(t, "/data/m", mappings[1].Path)
	assert.Equal(t, "/data/z", mappings[2].Path)
}

func TestUpdateFilePath(t *testing.T) {
	cat := newTestCatalog(t)
	require.NoError(t, cat.AddFile("f1", "/old/x", true))
	require.NoError(t, cat.UpdateFilePath("f1", "/new/x", true))

	mappings, err := cat.Mappings()
	require.NoError(t, err)
	require.Len(t, mappings, 1)
	assert.Equal(t, "/new/x", mappings[0].Path)
}

func TestFileIDByName(t *testing.T) {
	cat := newTestCatalog(t)
	require.NoError(t, cat.AddFile("f1", "/data/unique.bin", false))
	require.NoError(t, cat.AddFile("f2", "/data/a/twin.bin", false))
	require.NoError(t, cat.AddFile("f3", "/data/b/twin.bin", true))

	id, err := cat.FileIDByName("unique.bin")
	require.NoError(t, err)
	assert.Equal(t, "f1", id)

	id, err = cat.FileIDByName("absent.bin")
	require.NoError(t, err)
	assert.Empty(t, id)

	// Two files with the same basename violate the at-most-one contract.
	_, err = cat.FileIDByName("twin.bin")
	require.ErrorIs(t, err, ErrInconsistent)
}

func TestFingerprintHistoryAndLatest(t *testing.T) {
	cat := newTestCatalog(t)
	require.NoError(t, cat.AddFile("f1", "/data/a", false))
	require.NoError(t, cat.AddFingerprint("f1", "a", "md5", "d0", testStamp, false))
	require.NoError(t, cat.AddFingerprint("f1", "a", "md5", "d1", testStamp.Add(time.Hour), true))

	history, err := cat.FingerprintHistory("f1")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "d0", history[0].Value)
	assert.Equal(t, "d1", history[1].Value)

	value, stamp, err := cat.LatestFingerprint("f1")
	require.NoError(t, err)
	assert.Equal(t, "d1", value)
	assert.Equal(t, testStamp.Add(time.Hour).Format("2006-01-02 15:04:05"), stamp)
}

func TestLatestFingerprintOfUnknownFile(t *testing.T) {
	cat := newTestCatalog(t)
	value, stamp, err := cat.LatestFingerprint("ghost")
	require.NoError(t, err)
	assert.Empty(t, value)
	assert.Empty(t, stamp)
}

func TestAddFingerprintRequiresFileID(t *testing.T) {
	cat := newTestCatalog(t)
	require.Error(t, cat.AddFingerprint("", "a", "md5", "d0", testStamp, false))
}

func TestDeleteFingerprint(t *testing.T) {
	cat := newTestCatalog(t)
	require.NoError(t, cat.AddFile("f1", "/data/a", false))
	require.NoError(t, cat.AddFingerprint("f1", "a", "md5", "d0", testStamp, true))

	history, err := cat.FingerprintHistory("f1")
	require.NoError(t, err)
	require.Len(t, history, 1)

	require.NoError(t, cat.DeleteFingerprint(history[0].ID, true))
	history, err = cat.FingerprintHistory("f1")
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestBackupRoundTrip(t *testing.T) {
	cat := newTestCatalog(t)
	created := testStamp.Add(-24 * time.Hour)
	backupID, err := cat.AddBackup("/Volumes/B1", "B1", "UUID-1", created, testStamp, true, true)
	require.NoError(t, err)
	require.NotEmpty(t, backupID)

	backup, err := cat.BackupByVolumeID("UUID-1")
	require.NoError(t, err)
	require.NotNil(t, backup)
	assert.Equal(t, "B1", backup.Label)
	assert.Equal(t, "/Volumes/B1", backup.BasePath)
	assert.True(t, backup.Encrypted)
	assert.Equal(t, created.Format("2006-01-02 15:04:05"), backup.CreationDate.Format("2006-01-02 15:04:05"))
	assert.Nil(t, backup.LatestCheckDate)

	byLabel, err := cat.BackupByLabel("B1")
	require.NoError(t, err)
	require.NotNil(t, byLabel)
	assert.Equal(t, backup.ID, byLabel.ID)

	byMount, err := cat.BackupByMountPoint("/Volumes/B1")
	require.NoError(t, err)
	require.NotNil(t, byMount)

	missing, err := cat.BackupByLabel("nope")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestBackupUniqueness(t *testing.T) {
	cat := newTestCatalog(t)
	_, err := cat.AddBackup("/Volumes/B1", "B1", "UUID-1", testStamp, testStamp, false, true)
	require.NoError(t, err)

	// Same label, different volume.
	_, err = cat.AddBackup("/Volumes/B2", "B1", "UUID-2", testStamp, testStamp, false, true)
	require.Error(t, err)

	// Same volume, different label.
	_, err = cat.AddBackup("/Volumes/B3", "B3", "UUID-1", testStamp, testStamp, false, true)
	require.Error(t, err)
}

func TestSetLatestCheck(t *testing.T) {
	cat := newTestCatalog(t)
	backupID, err := cat.AddBackup("/Volumes/B1", "B1", "UUID-1", testStamp, testStamp, false, true)
	require.NoError(t, err)

	checked := testStamp.Add(48 * time.Hour)
	require.NoError(t, cat.SetLatestCheck(backupID, checked, true))

	backup, err := cat.BackupByVolumeID("UUID-1")
	require.NoError(t, err)
	require.NotNil(t, backup.LatestCheckDate)
	assert.Equal(t, checked.Format("2006-01-02 15:04:05"), backup.LatestCheckDate.Format("2006-01-02 15:04:05"))
}

func TestBackupItems(t *testing.T) {
	cat := newTestCatalog(t)
	backupID, err := cat.AddBackup("/Volumes/B1", "B1", "UUID-1", testStamp, testStamp, false, false)
	require.NoError(t, err)

	itemID, err := cat.AddBackupItem(backupID, "f1", "sub/a.bin", false)
	require.NoError(t, err)
	_, err = cat.AddBackupItem(backupID, "f2", "b.bin", true)
	require.NoError(t, err)

	found, err := cat.BackupItemID(backupID, "f1")
	require.NoError(t, err)
	assert.Equal(t, itemID, found)

	missing, err := cat.BackupItemID(backupID, "ghost")
	require.NoError(t, err)
	assert.Empty(t, missing)

	items, err := cat.BackupItems(backupID)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "b.bin", items[0].Path)
	assert.Equal(t, "sub/a.bin", items[1].Path)
}

func TestBackupsOrderedByLabel(t *testing.T) {
	cat := newTestCatalog(t)
	_, err := cat.AddBackup("/Volumes/Z", "Z", "UUID-Z", testStamp, testStamp, false, false)
	require.NoError(t, err)
	_, err = cat.AddBackup("/Volumes/A", "A", "UUID-A", testStamp, testStamp, false, true)
	require.NoError(t, err)

	backups, err := cat.Backups()
	require.NoError(t, err)
	require.Len(t, backups, 2)
	assert.Equal(t, "A", backups[0].Label)
	assert.Equal(t, "Z", backups[1].Label)
}

func TestUncommittedWritesRollBackOnClose(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fingerprints.db")
	ctx := context.Background()

	cat := New(path)
	require.NoError(t, cat.Open(ctx))
	require.NoError(t, cat.AddFile("f1", "/data/committed", true))
	require.NoError(t, cat.AddFile("f2", "/data/uncommitted", false))
	require.NoError(t, cat.Close(ctx))

	cat = New(path)
	require.NoError(t, cat.Open(ctx))
	defer cat.Close(ctx) //nolint:errcheck
	mappings, err := cat.Mappings()
	require.NoError(t, err)
	require.Len(t, mappings, 1)
	assert.Equal(t, "/data/committed", mappings[0].Path)
}
