package sqlite

import (
	"context"
	"io"
	"time"

	"github.com/mwantia/afs/data"
)

func (sb *SQLiteBackend) CreateObject(ctx context.Context, key string, stat *data.ObjectStat) (*data.ObjectStat, error) {
	sb.mu.Lock()
	defer sb.mu.Unlock()

	return sb.createObjectUnsafe(ctx, key, stat)
}

func (sb *SQLiteBackend) HeadObject(ctx context.Context, key string) (*data.ObjectStat, error) {
	sb.mu.RLock()
	defer sb.mu.RUnlock()

	return sb.headObjectUnsafe(ctx, key)
}

func (sb *SQLiteBackend) ReadObject(ctx context.Context, key string, offset int64, buf []byte) (int, error) {
	sb.mu.RLock()
	defer sb.mu.RUnlock()

	inode, exists := sb.keys.Get(key)
	if !exists {
		return 0, data.ErrNotExist
	}

	content, err := sb.readContentUnsafe(ctx, inode)
	if err != nil {
		return 0, err
	}

	if offset >= int64(len(content)) {
		return 0, io.EOF
	}
	return copy(buf, content[offset:]), nil
}

func (sb *SQLiteBackend) WriteObject(ctx context.Context, key string, offset int64, buf []byte) (int, error) {
	sb.mu.Lock()
	defer sb.mu.Unlock()

	inode, exists := sb.keys.Get(key)
	if !exists {
		return 0, data.ErrNotExist
	}

	content, err := sb.readContentUnsafe(ctx, inode)
	if err != nil {
		return 0, err
	}

	if end := offset + int64(len(buf)); end > int64(len(content)) {
		grown := make([]byte, end)
		copy(grown, content)
		content = grown
	}
	n := copy(content[offset:], buf)

	if err := sb.writeContentUnsafe(ctx, inode, content); err != nil {
		return 0, err
	}
	return n, nil
}

func (sb *SQLiteBackend) TruncateObject(ctx context.Context, key string, size int64) error {
	sb.mu.Lock()
	defer sb.mu.Unlock()

	inode, exists := sb.keys.Get(key)
	if !exists {
		return data.ErrNotExist
	}

	content, err := sb.readContentUnsafe(ctx, inode)
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

	return sb.writeContentUnsafe(ctx, inode, content)
}

func (sb *SQLiteBackend) UpdateObject(ctx context.Context, key string, update *data.ObjectUpdate) error {
	sb.mu.Lock()
	defer sb.mu.Unlock()

	stat, err := sb.headObjectUnsafe(ctx, key)
	if err != nil {
		return err
	}

	if !update.Apply(stat) {
		return nil
	}

	_, err = sb.db.ExecContext(ctx, `
		UPDATE afs_objects
		SET mode = ?, uid = ?, gid = ?, access_time = ?, modify_time = ?, change_time = ?
		WHERE inode = ?
	`, int64(stat.Mode), stat.UID, stat.GID,
		stat.AccessTime.UnixNano(), stat.ModifyTime.UnixNano(), stat.ChangeTime.UnixNano(),
		stat.Inode)

	return err
}

func (sb *SQLiteBackend) DeleteObject(ctx context.Context, key string) error {
	sb.mu.Lock()
	defer sb.mu.Unlock()

	inode, exists := sb.keys.Get(key)
	if !exists {
		return data.ErrNotExist
	}

	// Contents are removed by the foreign key cascade
	if _, err := sb.db.ExecContext(ctx, "DELETE FROM afs_objects WHERE inode = ?", inode); err != nil {
		return err
	}

	sb.keys.Delete(key)
	return nil
}

func (sb *SQLiteBackend) ListObjects(ctx context.Context, key string) ([]string, error) {
	sb.mu.RLock()
	defer sb.mu.RUnlock()

	if _, exists := sb.keys.Get(key); !exists {
		return nil, data.ErrNotExist
	}

	rows, err := sb.db.QueryContext(ctx, "SELECT key FROM afs_objects WHERE parent = ? ORDER BY key", key)
	if err != nil {
		return nil, err
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

func (sb *SQLiteBackend) RenameObject(ctx context.Context, oldKey, newKey string) error {
	sb.mu.Lock()
	defer sb.mu.Unlock()

	if _, exists := sb.keys.Get(oldKey); !exists {
		return data.ErrNotExist
	}

	tx, err := sb.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	// Drop whatever currently lives at the destination
	replaced := sb.keysBelowUnsafe(newKey)
	for _, k := range replaced {
		inode, _ := sb.keys.Get(k)
		if _, err := tx.ExecContext(ctx, "DELETE FROM afs_objects WHERE inode = ?", inode); err != nil {
			return err
		}
	}

	moved := make(map[string]int64)
	now := time.Now().UnixNano()
	for _, k := range sb.keysBelowUnsafe(oldKey) {
		inode, _ := sb.keys.Get(k)
		target := newKey + k[len(oldKey):]

		if _, err := tx.ExecContext(ctx, `
			UPDATE afs_objects SET key = ?, parent = ?,
				change_time = CASE WHEN inode = ? THEN ? ELSE change_time END
			WHERE inode = ?
		`, target, parentOf(target), inode, now, inode); err != nil {
			return err
		}
		moved[target] = inode
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	// Only touch the B-tree once the transaction is durable
	for _, k := range replaced {
		sb.keys.Delete(k)
	}
	for _, k := range sb.keysBelowUnsafe(oldKey) {
		sb.keys.Delete(k)
	}
	for k, inode := range moved {
		sb.keys.Set(k, inode)
	}

	return nil
}
