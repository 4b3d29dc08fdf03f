package postgres

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/mwantia/afs/data"
)

func (pb *PostgresBackend) CreateObject(ctx context.Context, key string, stat *data.ObjectStat) (*data.ObjectStat, error) {
	pb.mu.Lock()
	defer pb.mu.Unlock()

	if _, exists := pb.keys.Get(key); exists {
		return nil, data.ErrExist
	}

	stored := stat.Clone()
	stored.Key = key
	stored.Size = 0

	err := pb.pool.QueryRow(ctx, `
		INSERT INTO afs_objects (key, parent, mode, uid, gid, size, target, access_time, modify_time, change_time, create_time)
		VALUES ($1, $2, $3, $4, $5, 0, $6, $7, $8, $9, $10)
		RETURNING inode
	`, key, data.ParentKey(key), int64(stored.Mode), stored.UID, stored.GID, stored.Target,
		stored.AccessTime.UnixNano(), stored.ModifyTime.UnixNano(),
		stored.ChangeTime.UnixNano(), stored.CreateTime.UnixNano()).Scan(&stored.Inode)
	if err != nil {
		return nil, fmt.Errorf("failed to insert object: %w", err)
	}

	pb.keys.Set(key, stored.Inode)
	return stored, nil
}

func (pb *PostgresBackend) HeadObject(ctx context.Context, key string) (*data.ObjectStat, error) {
	pb.mu.RLock()
	defer pb.mu.RUnlock()

	return pb.headObjectUnsafe(ctx, key)
}

func (pb *PostgresBackend) ReadObject(ctx context.Context, key string, offset int64, buf []byte) (int, error) {
	pb.mu.RLock()
	defer pb.mu.RUnlock()

	inode, exists := pb.keys.Get(key)
	if !exists {
		return 0, data.ErrNotExist
	}

	// Only fetch the requested window; substring is 1-based
	var chunk []byte
	var size int64
	err := pb.pool.QueryRow(ctx, `
		SELECT substring(content FROM $2::int FOR $3::int), octet_length(content)
		FROM afs_contents WHERE inode = $1
	`, inode, offset+1, len(buf)).Scan(&chunk, &size)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, io.EOF
	}
	if err != nil {
		return 0, fmt.Errorf("failed to query content: %w", err)
	}

	if offset >= size {
		return 0, io.EOF
	}
	return copy(buf, chunk), nil
}

func (pb *PostgresBackend) WriteObject(ctx context.Context, key string, offset int64, buf []byte) (int, error) {
	pb.mu.Lock()
	defer pb.mu.Unlock()

	inode, exists := pb.keys.Get(key)
	if !exists {
		return 0, data.ErrNotExist
	}

	content, err := pb.readContentUnsafe(ctx, inode)
	if err != nil {
		return 0, err
	}

	if end := offset + int64(len(buf)); end > int64(len(content)) {
		grown := make([]byte, end)
		copy(grown, content)
		content = grown
	}
	n := copy(content[offset:], buf)

	if err := pb.writeContentUnsafe(ctx, inode, content); err != nil {
		return 0, err
	}
	return n, nil
}

func (pb *PostgresBackend) TruncateObject(ctx context.Context, key string, size int64) error {
	pb.mu.Lock()
	defer pb.mu.Unlock()

	inode, exists := pb.keys.Get(key)
	if !exists {
		return data.ErrNotExist
	}

	content, err := pb.readContentUnsafe(ctx, inode)
	if err != nil {
		return err
	}

	if size <= int64(len(content)) {
		content = content[:size]
	} else {
		grown := make([]byte, size)
		copy(grown, content)
		content = grown
	}

	return pb.writeContentUnsafe(ctx, inode, content)
}

func (pb *PostgresBackend) UpdateObject(ctx context.Context, key string, update *data.ObjectUpdate) error {
	pb.mu.Lock()
	defer pb.mu.Unlock()

	stat, err := pb.headObjectUnsafe(ctx, key)
	if err != nil {
		return err
	}

	if !update.Apply(stat) {
		return nil
	}

	_, err = pb.pool.Exec(ctx, `
		UPDATE afs_objects
		SET mode = $1, uid = $2, gid = $3, access_time = $4, modify_time = $5, change_time = $6
		WHERE inode = $7
	`, int64(stat.Mode), stat.UID, stat.GID,
		stat.AccessTime.UnixNano(), stat.ModifyTime.UnixNano(), stat.ChangeTime.UnixNano(),
		stat.Inode)

	return err
}

func (pb *PostgresBackend) DeleteObject(ctx context.Context, key string) error {
	pb.mu.Lock()
	defer pb.mu.Unlock()

	inode, exists := pb.keys.Get(key)
	if !exists {
		return data.ErrNotExist
	}

	if _, err := pb.pool.Exec(ctx, "DELETE FROM afs_objects WHERE inode = $1", inode); err != nil {
		return fmt.Errorf("failed to delete object: %w", err)
	}

	pb.keys.Delete(key)
	return nil
}

func (pb *PostgresBackend) ListObjects(ctx context.Context, key string) ([]string, error) {
	pb.mu.RLock()
	defer pb.mu.RUnlock()

	if _, exists := pb.keys.Get(key); !exists {
		return nil, data.ErrNotExist
	}

	rows, err := pb.pool.Query(ctx, "SELECT key FROM afs_objects WHERE parent = $1 AND key <> '' ORDER BY key", key)
	if err != nil {
		return nil, fmt.Errorf("failed to list objects: %w", err)
	}
	defer rows.Close()

	names := make([]string, 0)
	for rows.Next() {
		var child string
		if err := rows.Scan(&child); err != nil {
			return nil, err
		}
		names = append(names, data.BaseName(child))
	}

	return names, rows.Err()
}

func (pb *PostgresBackend) RenameObject(ctx context.Context, oldKey, newKey string) error {
	pb.mu.Lock()
	defer pb.mu.Unlock()

	if _, exists := pb.keys.Get(oldKey); !exists {
		return data.ErrNotExist
	}

	tx, err := pb.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	replaced := pb.keysBelowUnsafe(newKey)
	for _, k := range replaced {
		inode, _ := pb.keys.Get(k)
		if _, err := tx.Exec(ctx, "DELETE FROM afs_objects WHERE inode = $1", inode); err != nil {
			return err
		}
	}

	sources := pb.keysBelowUnsafe(oldKey)
	moved := make(map[string]int64, len(sources))
	now := time.Now().UnixNano()
	for _, k := range sources {
		inode, _ := pb.keys.Get(k)
		target := newKey + k[len(oldKey):]

		if _, err := tx.Exec(ctx, `
			UPDATE afs_objects SET key = $1, parent = $2,
				change_time = CASE WHEN inode = $3 THEN $4 ELSE change_time END
			WHERE inode = $3
		`, target, data.ParentKey(target), inode, now); err != nil {
			return err
		}
		moved[target] = inode
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit rename: %w", err)
	}

	for _, k := range replaced {
		pb.keys.Delete(k)
	}
	for _, k := range sources {
		pb.keys.Delete(k)
	}
	for k, inode := range moved {
		pb.keys.Set(k, inode)
	}

	return nil
}

// headObjectUnsafe MUST be called while holding at least a read lock.
func (pb *PostgresBackend) headObjectUnsafe(ctx context.Context, key string) (*data.ObjectStat, error) {
	inode, exists := pb.keys.Get(key)
	if !exists {
		return nil, data.ErrNotExist
	}

	var stat data.ObjectStat
	var mode int64
	var accessTime, modifyTime, changeTime, createTime int64

	err := pb.pool.QueryRow(ctx, `
		SELECT key, inode, mode, uid, gid, size, target, access_time, modify_time, change_time, create_time
		FROM afs_objects WHERE inode = $1
	`, inode).Scan(&stat.Key, &stat.Inode, &mode, &stat.UID, &stat.GID, &stat.Size, &stat.Target,
		&accessTime, &modifyTime, &changeTime, &createTime)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, data.ErrNotExist
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query object: %w", err)
	}

	stat.Mode = data.FileMode(mode)
	stat.AccessTime = time.Unix(0, accessTime)
	stat.ModifyTime = time.Unix(0, modifyTime)
	stat.ChangeTime = time.Unix(0, changeTime)
	stat.CreateTime = time.Unix(0, createTime)

	return &stat, nil
}

// readContentUnsafe MUST be called while holding at least a read lock.
func (pb *PostgresBackend) readContentUnsafe(ctx context.Context, inode int64) ([]byte, error) {
	var content []byte
	err := pb.pool.QueryRow(ctx, "SELECT content FROM afs_contents WHERE inode = $1", inode).Scan(&content)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query content: %w", err)
	}
	return content, nil
}

// writeContentUnsafe MUST be called while holding a write lock.
func (pb *PostgresBackend) writeContentUnsafe(ctx context.Context, inode int64, content []byte) error {
	tx, err := pb.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if content == nil {
		content = []byte{}
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO afs_contents (inode, content) VALUES ($1, $2)
		ON CONFLICT (inode) DO UPDATE SET content = EXCLUDED.content
	`, inode, content); err != nil {
		return fmt.Errorf("failed to store content: %w", err)
	}

	now := time.Now().UnixNano()
	if _, err := tx.Exec(ctx,
		"UPDATE afs_objects SET size = $1, modify_time = $2, change_time = $2 WHERE inode = $3",
		int64(len(content)), now, inode); err != nil {
		return fmt.Errorf("failed to update size: %w", err)
	}

	return tx.Commit(ctx)
}

// keysBelowUnsafe returns key and every key nested below it.
// MUST be called while holding at least a read lock.
func (pb *PostgresBackend) keysBelowUnsafe(key string) []string {
	var keys []string
	if _, exists := pb.keys.Get(key); exists {
		keys = append(keys, key)
	}

	prefix := key + "/"
	pb.keys.Ascend(prefix, func(k string, _ int64) bool {
		if !strings.HasPrefix(k, prefix) {
			return false
		}
		keys = append(keys, k)
		return true
	})

	return keys
}
