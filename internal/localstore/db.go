package localstore

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hpungsan/narrsvc/internal/config"
	_ "modernc.org/sqlite"
)

// CurrentSchemaVersion is the latest schema version.
// Bump this when adding migrations.
const CurrentSchemaVersion = 1

// DBFile is the database file name inside the base directory.
const DBFile = "narrsvc.db"

// Init initializes the SQLite database at baseDir/narrsvc.db.
// The baseDir parameter allows tests to use t.TempDir() instead of ~/.narrsvc.
func Init(baseDir string) (*sql.DB, error) {
	// Create base directory with restricted permissions
	if err := os.MkdirAll(baseDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}
	_ = os.Chmod(baseDir, 0700)

	// Pragmas in the connection string apply to every pooled connection
	dbPath := filepath.Join(baseDir, DBFile)
	dsn := dbPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := verifyWALMode(db); err != nil {
		db.Close()
		return nil, err
	}

	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}

	_ = os.Chmod(dbPath, 0600)

	return db, nil
}

// ConfigurePool applies connection pool settings from config.
// Only sets limits if explicitly configured (non-zero values).
func ConfigurePool(db *sql.DB, cfg *config.Config) {
	if cfg == nil {
		return
	}
	if cfg.DBMaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.DBMaxOpenConns)
	}
	if cfg.DBMaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.DBMaxIdleConns)
	}
}

// migrate applies schema migrations based on user_version.
func migrate(db *sql.DB) error {
	version, err := GetUserVersion(db)
	if err != nil {
		return err
	}

	// Migration 0 -> 1: Initial schema (v1)
	if version < 1 {
		schema := `
		CREATE TABLE IF NOT EXISTS workspaces (
		  id          INTEGER PRIMARY KEY AUTOINCREMENT,
		  name        TEXT NOT NULL UNIQUE,
		  owner       TEXT NOT NULL,
		  moddate     TEXT NOT NULL,
		  max_objid   INTEGER NOT NULL DEFAULT 0,
		  globalread  TEXT NOT NULL DEFAULT 'n',
		  lockstat    TEXT NOT NULL DEFAULT 'unlocked',
		  meta_json   TEXT
		);

		CREATE INDEX IF NOT EXISTS idx_workspaces_owner ON workspaces(owner);

		CREATE TABLE IF NOT EXISTS permissions (
		  ws_id     INTEGER NOT NULL REFERENCES workspaces(id),
		  username  TEXT NOT NULL,
		  perm      TEXT NOT NULL,
		  PRIMARY KEY (ws_id, username)
		);

		CREATE TABLE IF NOT EXISTS objects (
		  ws_id                    INTEGER NOT NULL REFERENCES workspaces(id),
		  obj_id                   INTEGER NOT NULL,
		  version                  INTEGER NOT NULL,
		  name                     TEXT NOT NULL,
		  type                     TEXT NOT NULL,
		  save_date                TEXT NOT NULL,
		  saved_by                 TEXT NOT NULL,
		  chsum                    TEXT NOT NULL,
		  size                     INTEGER NOT NULL,
		  meta_json                TEXT,
		  copied_from              TEXT,
		  copy_source_inaccessible INTEGER NOT NULL DEFAULT 0,
		  PRIMARY KEY (ws_id, obj_id, version)
		);

		CREATE INDEX IF NOT EXISTS idx_objects_ws_name ON objects(ws_id, name);

		CREATE TABLE IF NOT EXISTS object_refs (
		  from_ref TEXT NOT NULL,
		  to_ref   TEXT NOT NULL,
		  PRIMARY KEY (from_ref, to_ref)
		);

		CREATE INDEX IF NOT EXISTS idx_object_refs_to ON object_refs(to_ref);

		CREATE TABLE IF NOT EXISTS set_items (
		  set_ref   TEXT NOT NULL,
		  position  INTEGER NOT NULL,
		  item_ref  TEXT NOT NULL,
		  PRIMARY KEY (set_ref, position)
		);

		CREATE TABLE IF NOT EXISTS palettes (
		  ws_id        INTEGER PRIMARY KEY REFERENCES workspaces(id),
		  palette_ref  TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS palette_entries (
		  ws_id  INTEGER NOT NULL REFERENCES workspaces(id),
		  ref    TEXT NOT NULL,
		  PRIMARY KEY (ws_id, ref)
		);
		`
		if _, err := db.Exec(schema); err != nil {
			return fmt.Errorf("migration 1 failed: %w", err)
		}
		if err := SetUserVersion(db, 1); err != nil {
			return err
		}
	}

	// Future migrations go here:
	// if version < 2 { ... }

	return nil
}

// verifyWALMode checks that WAL mode is active (set via connection string).
func verifyWALMode(db *sql.DB) error {
	var journalMode string
	if err := db.QueryRow("PRAGMA journal_mode;").Scan(&journalMode); err != nil {
		return fmt.Errorf("failed to verify journal mode: %w", err)
	}
	if journalMode != "wal" {
		return fmt.Errorf("expected WAL mode, got %s", journalMode)
	}
	return nil
}

// GetUserVersion returns the current schema version (user_version pragma).
func GetUserVersion(db *sql.DB) (int, error) {
	var version int
	if err := db.QueryRow("PRAGMA user_version;").Scan(&version); err != nil {
		return 0, fmt.Errorf("failed to get user_version: %w", err)
	}
	return version, nil
}

// SetUserVersion sets the schema version (user_version pragma).
func SetUserVersion(db *sql.DB, version int) error {
	_, err := db.Exec(fmt.Sprintf("PRAGMA user_version=%d", version))
	if err != nil {
		return fmt.Errorf("failed to set user_version: %w", err)
	}
	return nil
}
