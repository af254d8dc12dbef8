package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3" // sqlite driver
	"github.com/projecteru2/core/log"

	"github.com/tidalwave-it/solidblue/lock"
	"github.com/tidalwave-it/solidblue/lock/flock"
	"github.com/tidalwave-it/solidblue/types"
)

// ErrInconsistent reports a query that returned more rows than the schema
// allows (for lookups contracted to yield at most one row).
var ErrInconsistent = errors.New("catalog inconsistency: more rows than expected")

// Catalog is the durable relational store of files, fingerprints, backups and
// backup items. A Catalog is valid for a single workflow: the engine opens it
// at workflow start and closes it at the end, and a process-wide flock keeps
// the single-writer discipline across processes.
type Catalog struct {
	path  string
	newID func() string
	fl    lock.Locker
	db    *sql.DB
	tx    *sql.Tx
}

// New prepares a Catalog for the database at path. Nothing is opened yet.
func New(path string) *Catalog {
	return &Catalog{
		path:  path,
		newID: func() string { return uuid.New().String() },
		fl:    flock.New(path + ".lock"),
	}
}

// WithIDGenerator overrides the row id generator; tests use deterministic ids.
func (c *Catalog) WithIDGenerator(fn func() string) *Catalog {
	c.newID = fn
	return c
}

// Open acquires the writer lock, opens the database, creates the schema
// idempotently and starts the first transaction.
func (c *Catalog) Open(ctx context.Context) error {
	log.WithFunc("catalog.Open").Debugf(ctx, "opening db connection: %s", c.path)
	if err := c.fl.Lock(ctx); err != nil {
		return err
	}
	db, err := sql.Open("sqlite3", "file:"+c.path)
	if err != nil {
		_ = c.fl.Unlock(ctx)
		return fmt.Errorf("open catalog %s: %w", c.path, err)
	}
	// One connection: the catalog is a single-writer store and statements
	// must share the explicit transaction.
	db.SetMaxOpenConns(1)

	if err := createSchema(db); err != nil {
		_ = db.Close()
		_ = c.fl.Unlock(ctx)
		return fmt.Errorf("create schema: %w", err)
	}

	c.db = db
	return c.begin()
}

// Close rolls back any uncommitted statements, closes the database and
// releases the writer lock. Safe to call when not open.
func (c *Catalog) Close(ctx context.Context) error {
	if c.db == nil {
		return nil
	}
	log.WithFunc("catalog.Close").Debugf(ctx, "closing db connection")
	if c.tx != nil {
		_ = c.tx.Rollback()
		c.tx = nil
	}
	err := c.db.Close()
	c.db = nil
	if uerr := c.fl.Unlock(ctx); err == nil {
		err = uerr
	}
	return err
}

// Commit commits the current transaction and starts the next one. Long scans
// call this after every file to bound data loss on crash.
func (c *Catalog) Commit() error {
	if err := c.tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return c.begin()
}

func (c *Catalog) begin() error {
	tx, err := c.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	c.tx = tx
	return nil
}

// exec runs a mutation inside the current transaction, optionally committing.
func (c *Catalog) exec(query string, commit bool, args ...any) error {
	if _, err := c.tx.Exec(query, args...); err != nil {
		return fmt.Errorf("exec %q: %w", query, err)
	}
	if commit {
		return c.Commit()
	}
	return nil
}

func createSchema(db *sql.DB) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS files (
			id TEXT PRIMARY KEY,
			path TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS fingerprints (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			file_id TEXT NOT NULL,
			algorithm TEXT NOT NULL,
			fingerprint TEXT NOT NULL,
			timestamp TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS files__path ON files (path)`,
		`CREATE INDEX IF NOT EXISTS fingerprints__name ON fingerprints (name)`,
		`CREATE INDEX IF NOT EXISTS fingerprints__file_id ON fingerprints (file_id)`,
		`CREATE INDEX IF NOT EXISTS fingerprints__timestamp ON fingerprints (timestamp)`,
		`CREATE TABLE IF NOT EXISTS backups (
			id TEXT PRIMARY KEY,
			base_path TEXT NOT NULL,
			label TEXT NOT NULL UNIQUE,
			volume_id TEXT NOT NULL UNIQUE,
			encrypted INTEGER NOT NULL,
			creation_date TEXT NOT NULL,
			registration_date TEXT NOT NULL,
			latest_check_date TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS backups__volume_id ON backups (volume_id)`,
		`CREATE TABLE IF NOT EXISTS backup_files (
			id TEXT PRIMARY KEY,
			backup_id TEXT NOT NULL,
			file_id TEXT NOT NULL,
			path TEXT NOT NULL
		)`,
	}
	for _, stmt := range statements {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// Mappings returns all (file id, path) rows ordered by path.
func (c *Catalog) Mappings() ([]types.Mapping, error) {
	rows, err := c.tx.Query(`SELECT id, path FROM files ORDER BY path`)
	if err != nil {
		return nil, err
	}
	defer rows.Close() //nolint:errcheck

	var mappings []types.Mapping
	for rows.Next() {
		var m types.Mapping
		if err := rows.Scan(&m.FileID, &m.Path); err != nil {
			return nil, err
		}
		mappings = append(mappings, m)
	}
	return mappings, rows.Err()
}

// AddFile inserts a new (id, path) row.
func (c *Catalog) AddFile(fileID, path string, commit bool) error {
	return c.exec(`INSERT INTO files(id, path) VALUES(?, ?)`, commit, fileID, path)
}

// UpdateFilePath moves a known file to its new path.
func (c *Catalog) UpdateFilePath(fileID, path string, commit bool) error {
	return c.exec(`UPDATE files SET path = ? WHERE id = ?`, commit, path, fileID)
}

// FileIDByName finds the id of the file whose path ends with /name.
// Returns "" when there is no match and ErrInconsistent when there are many.
func (c *Catalog) FileIDByName(name string) (string, error) {
	rows, err := c.tx.Query(`SELECT id FROM files WHERE path LIKE ?`, "%/"+name)
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
		return "", fmt.Errorf("%w: %d files named %q", ErrInconsistent, len(ids), name)
	}
}

// AddFingerprint appends one observation to a file's integrity history.
func (c *Catalog) AddFingerprint(fileID, name, algorithm, value string, timestamp time.Time, commit bool) error {
	if fileID == "" {
		return errors.New("file_id can't be empty")
	}
	return c.exec(
		`INSERT INTO fingerprints(id, file_id, name, algorithm, fingerprint, timestamp) VALUES(?, ?, ?, ?, ?, ?)`,
		commit,
		c.newID(), fileID, name, algorithm, value, timestamp.Format(types.TimeFormat),
	)
}

// DeleteFingerprint removes one row; kept for manual repair tooling, never
// called by the workflows.
func (c *Catalog) DeleteFingerprint(fingerprintID string, commit bool) error {
	return c.exec(`DELETE FROM fingerprints WHERE id = ?`, commit, fingerprintID)
}

// FingerprintHistory returns all observations for a file id ordered by
// timestamp.
func (c *Catalog) FingerprintHistory(fileID string) ([]types.Fingerprint, error) {
	rows, err := c.tx.Query(
		`SELECT id, file_id, name, algorithm, fingerprint, timestamp FROM fingerprints WHERE file_id = ? ORDER BY timestamp`,
		fileID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close() //nolint:errcheck

	var history []types.Fingerprint
	for rows.Next() {
		var f types.Fingerprint
		if err := rows.Scan(&f.ID, &f.FileID, &f.Name, &f.Algorithm, &f.Value, &f.Timestamp); err != nil {
			return nil, err
		}
		history = append(history, f)
	}
	return history, rows.Err()
}

// LatestFingerprint returns the highest-timestamp observation for a file id,
// or ("", "") when none is recorded.
func (c *Catalog) LatestFingerprint(fileID string) (value, timestamp string, err error) {
	history, err := c.FingerprintHistory(fileID)
	if err != nil || len(history) == 0 {
		return "", "", err
	}
	last := history[len(history)-1]
	return last.Value, last.Timestamp, nil
}
