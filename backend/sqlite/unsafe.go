package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/mwantia/afs/data"
)

// This file contains internal "unsafe" methods that perform operations without acquiring locks.
// These methods MUST only be called when the caller already holds the appropriate lock.

// parentOf returns the parent column value; the root has no parent.
func parentOf(key string) sql.NullString {
	if key == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: data.ParentKey(key), Valid: true}
}

// createObjectUnsafe inserts a new object record.
// MUST be called while holding a write lock.
func (sb *SQLiteBackend) createObjectUnsafe(ctx context.Context, key string, stat *data.ObjectStat) (*data.ObjectStat, error) {
	if _, exists := sb.keys.Get(key); exists {
		return nil, data.ErrExist
	}

	stored := stat.Clone()
	stored.Key = key
	stored.Size = 0

	var target sql.NullString
	if stored.Target != "" {
		target = sql.NullString{String: stored.Target, Valid: true}
	}

	result, err := sb.db.ExecContext(ctx, `
		INSERT INTO afs_objects (key, parent, mode, uid, gid, size, target, access_time, modify_time, change_time, create_time)
		VALUES (?, ?, ?, ?, ?, 0, ?, ?, ?, ?, ?)
	`, key, parentOf(key), int64(stored.Mode), stored.UID, stored.GID, target,
		stored.AccessTime.UnixNano(), stored.ModifyTime.UnixNano(),
		stored.ChangeTime.UnixNano(), stored.CreateTime.UnixNano())
	if err != nil {
		return nil, err
	}

	inode, err := result.LastInsertId()
	if err != nil {
		return nil, err
	}

	stored.Inode = inode
	sb.keys.Set(key, inode)
	return stored, nil
}

// headObjectUnsafe reads an object record.
// MUST be called while holding at least a read lock.
func (sb *SQLiteBackend) headObjectUnsafe(ctx context.Context, key string) (*data.ObjectStat, error) {
	inode, exists := sb.keys.Get(key)
	if !exists {
		return nil, data.ErrNotExist
	}

	var stat data.ObjectStat
	var mode int64
	var target sql.NullString
	var accessTime, modifyTime, changeTime, createTime int64

	err := sb.db.QueryRowContext(ctx, `
		SELECT key, inode, mode, uid, gid, size, target, access_time, modify_time, change_time, create_time
		FROM afs_objects WHERE inode = ?
	`, inode).Scan(&stat.Key, &stat.Inode, &mode, &stat.UID, &stat.GID, &stat.Size, &target,
		&accessTime, &modifyTime, &changeTime, &createTime)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, data.ErrNotExist
	}
	if err != nil {
		return nil, err
	}

	stat.Mode = data.FileMode(mode)
	stat.Target = target.String
	stat.AccessTime = time.Unix(0, accessTime)
	stat.ModifyTime = time.Unix(0, modifyTime)
	stat.ChangeTime = time.Unix(0, changeTime)
	stat.CreateTime = time.Unix(0, createTime)

	return &stat, nil
}

// readContentUnsafe returns the content of an object, empty if none was written yet.
// MUST be called while holding at least a read lock.
func (sb *SQLiteBackend) readContentUnsafe(ctx context.Context, inode int64) ([]byte, error) {
	var content []byte
	err := sb.db.QueryRowContext(ctx, "SELECT content FROM afs_contents WHERE inode = ?", inode).Scan(&content)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return content, err
}

// writeContentUnsafe replaces the content of an object and updates size and times.
// MUST be called while holding a write lock.
func (sb *SQLiteBackend) writeContentUnsafe(ctx context.Context, inode int64, content []byte) error {
	tx, err := sb.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if content == nil {
		content = []byte{}
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO afs_contents (inode, content) VALUES (?, ?)
		ON CONFLICT(inode) DO UPDATE SET content = excluded.content
	`, inode, content); err != nil {
		return err
	}

	now := time.Now().UnixNano()
	if _, err := tx.ExecContext(ctx, `
		UPDATE afs_objects SET size = ?, modify_time = ?, change_time = ? WHERE inode = ?
	`, len(content), now, now, inode); err != nil {
		return err
	}

	return tx.Commit()
}

// keysBelowUnsafe returns key and every key nested below it.
// MUST be called while holding at least a read lock.
func (sb *SQLiteBackend) keysBelowUnsafe(key string) []string {
	var keys []string
	if _, exists := sb.keys.Get(key); exists {
		keys = append(keys, key)
	}

	prefix := key + "/"
	sb.keys.Ascend(prefix, func(k string, _ int64) bool {
		if !strings.HasPrefix(k, prefix) {
			return false
		}
		keys = append(keys, k)
		return true
	})

	return keys
}
