package consul

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/hashicorp/consul/api"
	"github.com/mwantia/afs/data"
)

// Consul rejects transactions with more than 64 operations
const maxTxnOps = 64

var errConflict = errors.New("consul: entry was modified concurrently")

// CreateObject creates a new object (file, directory or link)
func (cb *ConsulBackend) CreateObject(ctx context.Context, key string, stat *data.ObjectStat) (*data.ObjectStat, error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	stored := stat.Clone()
	stored.Key = key
	stored.Size = 0

	value, err := cb.encode(&record{Stat: stored})
	if err != nil {
		return nil, err
	}

	// A ModifyIndex of 0 only succeeds if the key does not exist yet
	pair := &api.KVPair{
		Key:   cb.buildKey(key),
		Value: value,
	}
	ok, _, err := cb.kv.CAS(pair, cb.writeOptions(ctx))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, data.ErrExist
	}

	_, rec, err := cb.getUnsafe(ctx, key)
	if err != nil {
		return nil, err
	}
	return rec.Stat, nil
}

// HeadObject returns the stat record of an object
func (cb *ConsulBackend) HeadObject(ctx context.Context, key string) (*data.ObjectStat, error) {
	cb.mu.RLock()
	defer cb.mu.RUnlock()

	_, rec, err := cb.getUnsafe(ctx, key)
	if err != nil {
		return nil, err
	}
	return rec.Stat, nil
}

// ReadObject reads data from an object at a given offset
func (cb *ConsulBackend) ReadObject(ctx context.Context, key string, offset int64, dat []byte) (int, error) {
	cb.mu.RLock()
	defer cb.mu.RUnlock()

	_, rec, err := cb.getUnsafe(ctx, key)
	if err != nil {
		return 0, err
	}

	size := int64(len(rec.Content))
	if offset >= size {
		return 0, io.EOF
	}

	return copy(dat, rec.Content[offset:]), nil
}

// WriteObject writes data to an object at a given offset
func (cb *ConsulBackend) WriteObject(ctx context.Context, key string, offset int64, dat []byte) (int, error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	pair, rec, err := cb.getUnsafe(ctx, key)
	if err != nil {
		return 0, err
	}

	writeEnd := offset + int64(len(dat))
	if writeEnd > cb.GetCapabilities().MaxObjectSize {
		return 0, data.ErrTooLarge
	}

	// Expand buffer if needed
	buffer := rec.Content
	if writeEnd > int64(len(buffer)) {
		grown := make([]byte, writeEnd)
		copy(grown, buffer)
		buffer = grown
	}
	copy(buffer[offset:], dat)

	rec.Content = buffer
	if err := cb.putUnsafe(ctx, pair, rec, true); err != nil {
		return 0, err
	}

	return len(dat), nil
}

// TruncateObject changes the size of an object, padding with zeros when it grows
func (cb *ConsulBackend) TruncateObject(ctx context.Context, key string, size int64) error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	pair, rec, err := cb.getUnsafe(ctx, key)
	if err != nil {
		return err
	}

	if size > cb.GetCapabilities().MaxObjectSize {
		return data.ErrTooLarge
	}

	if size <= int64(len(rec.Content)) {
		rec.Content = rec.Content[:size]
	} else {
		grown := make([]byte, size)
		copy(grown, rec.Content)
		rec.Content = grown
	}

	return cb.putUnsafe(ctx, pair, rec, true)
}

// UpdateObject applies the masked fields of update to the stat record
func (cb *ConsulBackend) UpdateObject(ctx context.Context, key string, update *data.ObjectUpdate) error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	pair, rec, err := cb.getUnsafe(ctx, key)
	if err != nil {
		return err
	}

	if !update.Apply(rec.Stat) {
		return nil
	}

	return cb.putUnsafe(ctx, pair, rec, false)
}

// DeleteObject deletes a single object
func (cb *ConsulBackend) DeleteObject(ctx context.Context, key string) error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	pair, _, err := cb.getUnsafe(ctx, key)
	if err != nil {
		return err
	}

	ok, _, err := cb.kv.DeleteCAS(pair, cb.writeOptions(ctx))
	if err != nil {
		return err
	}
	if !ok {
		return errConflict
	}
	return nil
}

// ListObjects returns the names of all direct children of key
func (cb *ConsulBackend) ListObjects(ctx context.Context, key string) ([]string, error) {
	cb.mu.RLock()
	defer cb.mu.RUnlock()

	if _, _, err := cb.getUnsafe(ctx, key); err != nil {
		return nil, err
	}

	prefix := cb.childPrefix(key)
	keys, _, err := cb.kv.Keys(prefix, "/", cb.queryOptions(ctx))
	if err != nil {
		return nil, err
	}

	// Keys with a separator return both "a" and "a/" for objects with children
	seen := make(map[string]struct{}, len(keys))
	names := make([]string, 0, len(keys))
	for _, k := range keys {
		name := strings.TrimSuffix(strings.TrimPrefix(k, prefix), "/")
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}

	sort.Strings(names)
	return names, nil
}

// RenameObject moves an object and everything below it, replacing the destination
func (cb *ConsulBackend) RenameObject(ctx context.Context, oldKey, newKey string) error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	source, rec, err := cb.getUnsafe(ctx, oldKey)
	if err != nil {
		return err
	}

	ops := api.KVTxnOps{}

	replaced, err := cb.subtreeUnsafe(ctx, newKey)
	if err != nil {
		return err
	}
	for _, pair := range replaced {
		ops = append(ops, &api.KVTxnOp{Verb: api.KVDelete, Key: pair.Key})
	}

	children, _, err := cb.kv.List(cb.childPrefix(oldKey), cb.queryOptions(ctx))
	if err != nil {
		return err
	}

	rec.Stat.ChangeTime = time.Now()
	moves := []struct {
		pair *api.KVPair
		rec  *record
	}{{source, rec}}
	for _, child := range children {
		childRec, err := cb.decode(child)
		if err != nil {
			return err
		}
		moves = append(moves, struct {
			pair *api.KVPair
			rec  *record
		}{child, childRec})
	}

	oldBase := cb.buildKey(oldKey)
	newBase := cb.buildKey(newKey)
	for _, move := range moves {
		target := newBase + strings.TrimPrefix(move.pair.Key, oldBase)
		move.rec.Stat.Key = newKey + strings.TrimPrefix(move.rec.Stat.Key, oldKey)

		value, err := cb.encode(move.rec)
		if err != nil {
			return err
		}
		ops = append(ops,
			&api.KVTxnOp{Verb: api.KVSet, Key: target, Value: value},
			&api.KVTxnOp{Verb: api.KVDelete, Key: move.pair.Key},
		)
	}

	for start := 0; start < len(ops); start += maxTxnOps {
		end := min(start+maxTxnOps, len(ops))
		ok, resp, _, err := cb.kv.Txn(ops[start:end], cb.queryOptions(ctx))
		if err != nil {
			return err
		}
		if !ok {
			if resp != nil && len(resp.Errors) > 0 {
				return fmt.Errorf("rename transaction failed: %s", resp.Errors[0].What)
			}
			return errConflict
		}
	}

	return nil
}

// getUnsafe MUST be called while holding at least a read lock.
func (cb *ConsulBackend) getUnsafe(ctx context.Context, key string) (*api.KVPair, *record, error) {
	pair, _, err := cb.kv.Get(cb.buildKey(key), cb.queryOptions(ctx))
	if err != nil {
		return nil, nil, err
	}
	if pair == nil {
		return nil, nil, data.ErrNotExist
	}

	rec, err := cb.decode(pair)
	if err != nil {
		return nil, nil, err
	}
	return pair, rec, nil
}

// putUnsafe MUST be called while holding a write lock.
// The write only succeeds if the entry was not modified since pair was read.
func (cb *ConsulBackend) putUnsafe(ctx context.Context, pair *api.KVPair, rec *record, modified bool) error {
	if modified {
		now := time.Now()
		rec.Stat.ModifyTime = now
		rec.Stat.ChangeTime = now
	}

	value, err := cb.encode(rec)
	if err != nil {
		return err
	}

	ok, _, err := cb.kv.CAS(&api.KVPair{
		Key:         pair.Key,
		Value:       value,
		ModifyIndex: pair.ModifyIndex,
	}, cb.writeOptions(ctx))
	if err != nil {
		return err
	}
	if !ok {
		return errConflict
	}
	return nil
}

// subtreeUnsafe returns the entry of key and every entry below it.
// MUST be called while holding at least a read lock.
func (cb *ConsulBackend) subtreeUnsafe(ctx context.Context, key string) (api.KVPairs, error) {
	var pairs api.KVPairs

	pair, _, err := cb.kv.Get(cb.buildKey(key), cb.queryOptions(ctx))
	if err != nil {
		return nil, err
	}
	if pair == nil {
		return nil, nil
	}
	pairs = append(pairs, pair)

	children, _, err := cb.kv.List(cb.childPrefix(key), cb.queryOptions(ctx))
	if err != nil {
		return nil, err
	}
	return append(pairs, children...), nil
}

func (cb *ConsulBackend) queryOptions(ctx context.Context) *api.QueryOptions {
	return (&api.QueryOptions{}).WithContext(ctx)
}

func (cb *ConsulBackend) writeOptions(ctx context.Context) *api.WriteOptions {
	return (&api.WriteOptions{}).WithContext(ctx)
}
