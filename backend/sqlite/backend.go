package sqlite

import (
	"context"
	"database/sql"
	"sync"

	"github.com/mwantia/afs/backend"
	"github.com/tidwall/btree"
	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// SQLiteBackend provides an object store using SQLite with two layers:
//
// Layer 1: In-memory B-tree for fast key → inode lookups (keys map)
// Layer 2: SQLite tables for object records (afs_objects) and contents (afs_contents)
//
// The inode is the INTEGER PRIMARY KEY of afs_objects, so it is assigned by SQLite.
type SQLiteBackend struct {
	mu sync.RWMutex
	db *sql.DB

	// In-memory B-tree for fast key lookups
	keys *btree.Map[string, int64]
}

var _ backend.ObjectStorageBackend = (*SQLiteBackend)(nil)

// NewSQLiteBackend creates a new SQLite-backed object store.
// The dbPath can be ":memory:" for an in-memory database or a file path.
func NewSQLiteBackend(dbPath string) (*SQLiteBackend, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}

	// Every connection of an in-memory database is a separate database
	db.SetMaxOpenConns(1)

	// Enable foreign keys for referential integrity
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, err
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		db.Close()
		return nil, err
	}

	backend := &SQLiteBackend{
		db:   db,
		keys: btree.NewMap[string, int64](0),
	}

	if err := backend.initSchema(); err != nil {
		db.Close()
		return nil, err
	}

	return backend, nil
}

// initSchema creates the database schema.
func (sb *SQLiteBackend) initSchema() error {
	schema := `
	-- Object records
	CREATE TABLE IF NOT EXISTS afs_objects (
		inode INTEGER PRIMARY KEY AUTOINCREMENT,
		key TEXT NOT NULL UNIQUE,
		parent TEXT,
		mode INTEGER NOT NULL,
		uid INTEGER NOT NULL DEFAULT 0,
		gid INTEGER NOT NULL DEFAULT 0,
		size INTEGER NOT NULL DEFAULT 0,
		target TEXT,
		access_time INTEGER NOT NULL,
		modify_time INTEGER NOT NULL,
		change_time INTEGER NOT NULL,
		create_time INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_afs_objects_parent ON afs_objects(parent);

	-- Object contents
	CREATE TABLE IF NOT EXISTS afs_contents (
		inode INTEGER PRIMARY KEY REFERENCES afs_objects(inode) ON DELETE CASCADE,
		content BLOB NOT NULL
	);
	`

	_, err := sb.db.Exec(schema)
	return err
}

// Name returns the identifier name defined for this backend
func (*SQLiteBackend) Name() string {
	return "sqlite"
}

// Open is part of the lifecycle behaviour and gets called before the backend is used.
func (sb *SQLiteBackend) Open(ctx context.Context) error {
	sb.mu.Lock()
	defer sb.mu.Unlock()

	// Verify database connection
	if err := sb.db.PingContext(ctx); err != nil {
		return err
	}

	// Load all keys into memory B-tree
	rows, err := sb.db.QueryContext(ctx, "SELECT key, inode FROM afs_objects")
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var key string
		var inode int64
		if err := rows.Scan(&key, &inode); err != nil {
			return err
		}
		sb.keys.Set(key, inode)
	}

	return rows.Err()
}

// Close is part of the lifecycle behaviour and gets called when the backend is released.
func (sb *SQLiteBackend) Close(ctx context.Context) error {
	sb.mu.Lock()
	defer sb.mu.Unlock()

	sb.keys.Clear()
	return sb.db.Close()
}

// GetCapabilities returns a list of capabilities supported by this backend.
func (sb *SQLiteBackend) GetCapabilities() *backend.Capabilities {
	return backend.NewCapabilities(
		backend.CapabilityObjectStorage,
		backend.CapabilityAtomicRename,
	)
}
