// Package state provides the SQLite-backed task backlog.
// It is an alternative to the file-per-task backlog for workspaces that
// want a single database file with optimistic version checks per record.
package state

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/ShayCichocki/rdteam/pkg/models"
)

const (
	// DriverModernc is the pure-Go SQLite driver.
	DriverModernc = "sqlite"
	// DriverCGO is the cgo SQLite driver.
	DriverCGO = "sqlite3"
)

// timeLayout is fixed-width so that lexical order matches time order.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// DB wraps an SQLite database connection holding the backlog.
type DB struct {
	conn      *sql.DB
	path      string
	driver    string
	createdBy string
	logger    *zap.Logger
	now       func() time.Time
	mu        sync.RWMutex
}

// Options configures Open.
type Options struct {
	// Driver is DriverModernc (default) or DriverCGO.
	Driver string
	// CreatedBy is the provenance tag applied to tasks without one.
	CreatedBy string
	// Logger receives warnings about skipped rows.
	Logger *zap.Logger
}

// DBPath returns the database location inside a workspace directory.
func DBPath(workspaceDir string) string {
	return filepath.Join(workspaceDir, "backlog.db")
}

// Open opens an SQLite database at the given path and applies migrations.
// It creates the parent directories if they don't exist.
// WAL mode is enabled for concurrent reads.
func Open(path string, opts Options) (*DB, error) {
	if opts.Driver == "" {
		opts.Driver = DriverModernc
	}
	if opts.Driver != DriverModernc && opts.Driver != DriverCGO {
		return nil, fmt.Errorf("unsupported sqlite driver %q", opts.Driver)
	}
	if opts.CreatedBy == "" {
		opts.CreatedBy = models.DefaultCreatedBy
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	// Ensure parent directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	conn, err := sql.Open(opts.Driver, path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Enable WAL mode for concurrent reads
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	// Wait for other writers instead of failing with SQLITE_BUSY
	if _, err := conn.Exec("PRAGMA busy_timeout=5000"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	db := &DB{
		conn:      conn,
		path:      path,
		driver:    opts.Driver,
		createdBy: opts.CreatedBy,
		logger:    opts.Logger,
		now:       time.Now,
	}

	if err := db.Migrate(); err != nil {
		conn.Close()
		return nil, err
	}

	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.conn.Close()
}

// Path returns the path to the database file.
func (db *DB) Path() string {
	return db.path
}

// Driver returns the name of the SQL driver in use.
func (db *DB) Driver() string {
	return db.driver
}

// Migrate applies all pending schema migrations.
func (db *DB) Migrate() error {
	db.mu.Lock()
	defer db.mu.Unlock()

	// Create schema version table
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("create schema_version table: %w", err)
	}

	// Get current version
	var currentVersion int
	row := db.conn.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_version")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("get schema version: %w", err)
	}

	// Apply migrations
	migrations := []struct {
		version int
		sql     string
	}{
		{1, migrationV1Tasks},
		{2, migrationV2PhaseIndex},
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}

		tx, err := db.conn.Begin()
		if err != nil {
			return fmt.Errorf("begin transaction: %w", err)
		}

		if _, err := tx.Exec(m.sql); err != nil {
			tx.Rollback()
			return fmt.Errorf("apply migration v%d: %w", m.version, err)
		}

		if _, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", m.version); err != nil {
			tx.Rollback()
			return fmt.Errorf("record migration v%d: %w", m.version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration v%d: %w", m.version, err)
		}
	}

	return nil
}

const migrationV1Tasks = `
CREATE TABLE IF NOT EXISTS tasks (
	slug TEXT PRIMARY KEY,
	title TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	phase TEXT NOT NULL,
	status TEXT NOT NULL DEFAULT 'not_started',
	acceptance_criteria TEXT NOT NULL DEFAULT '',
	created_by TEXT NOT NULL DEFAULT '',
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL,
	version INTEGER NOT NULL DEFAULT 1
);

CREATE INDEX IF NOT EXISTS idx_tasks_created_at ON tasks(created_at);
`

const migrationV2PhaseIndex = `
CREATE INDEX IF NOT EXISTS idx_tasks_phase ON tasks(phase COLLATE NOCASE);
`

// formatTime formats a time.Time for SQLite storage.
func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

// parseTime parses a time string from SQLite.
func parseTime(s string) (time.Time, error) {
	return time.Parse(timeLayout, s)
}
