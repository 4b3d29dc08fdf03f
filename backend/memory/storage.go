package memory

import (
	"context"
	"io"
	"strings"
	"time"

	"github.com/mwantia/afs/data"
)

func (mb *MemoryBackend) CreateObject(ctx context.Context, key string, stat *data.ObjectStat) (*data.ObjectStat, error) {
	mb.mu.Lock()
	defer mb.mu.Unlock()

	if _, exists := mb.objects.Get(key); exists {
		return nil, data.ErrExist
	}

	mb.nextInode++

	stored := stat.Clone()
	stored.Key = key
	stored.Inode = mb.nextInode
	stored.Size = 0

	mb.objects.Set(key, &memoryObject{stat: stored})
	return stored.Clone(), nil
}

func (mb *MemoryBackend) HeadObject(ctx context.Context, key string) (*data.ObjectStat, error) {
	mb.mu.RLock()
	defer mb.mu.RUnlock()

	obj, exists := mb.objects.Get(key)
	if !exists {
		return nil, data.ErrNotExist
	}

	return obj.stat.Clone(), nil
}

func (mb *MemoryBackend) ReadObject(ctx context.Context, key string, offset int64, buf []byte) (int, error) {
	mb.mu.RLock()
	defer mb.mu.RUnlock()

	obj, exists := mb.objects.Get(key)
	if !exists {
		return 0, data.ErrNotExist
	}

	if offset >= int64(len(obj.content)) {
		return 0, io.EOF
	}

	return copy(buf, obj.content[offset:]), nil
}

func (mb *MemoryBackend) WriteObject(ctx context.Context, key string, offset int64, buf []byte) (int, error) {
	mb.mu.Lock()
	defer mb.mu.Unlock()

	obj, exists := mb.objects.Get(key)
	if !exists {
		return 0, data.ErrNotExist
	}

	end := offset + int64(len(buf))
	if end > int64(len(obj.content)) {
		grown := make([]byte, end)
		copy(grown, obj.content)
		obj.content = grown
	}

	n := copy(obj.content[offset:], buf)

	now := time.Now()
	obj.stat.Size = int64(len(obj.content))
	obj.stat.ModifyTime = now
	obj.stat.ChangeTime = now

	return n, nil
}

func (mb *MemoryBackend) TruncateObject(ctx context.Context, key string, size int64) error {
	mb.mu.Lock()
	defer mb.mu.Unlock()

	obj, exists := mb.objects.Get(key)
	if !exists {
		return data.ErrNotExist
	}

	if size <= int64(len(obj.content)) {
		obj.content = obj.content[:size:size]
	} else {
		grown := make([]byte, size)
		copy(grown, obj.content)
		obj.content = grown
	}

	now := time.Now()
	obj.stat.Size = size
	obj.stat.ModifyTime = now
	obj.stat.ChangeTime = now

	return nil
}

func (mb *MemoryBackend) UpdateObject(ctx context.Context, key string, update *data.ObjectUpdate) error {
	mb.mu.Lock()
	defer mb.mu.Unlock()

	obj, exists := mb.objects.Get(key)
	if !exists {
		return data.ErrNotExist
	}

	update.Apply(obj.stat)
	return nil
}

func (mb *MemoryBackend) DeleteObject(ctx context.Context, key string) error {
	mb.mu.Lock()
	defer mb.mu.Unlock()

	if _, deleted := mb.objects.Delete(key); !deleted {
		return data.ErrNotExist
	}

	return nil
}

func (mb *MemoryBackend) ListObjects(ctx context.Context, key string) ([]string, error) {
	mb.mu.RLock()
	defer mb.mu.RUnlock()

	if _, exists := mb.objects.Get(key); !exists {
		return nil, data.ErrNotExist
	}

	prefix := ""
	if key != "" {
		prefix = key + "/"
	}

	names := make([]string, 0)
	mb.objects.Ascend(prefix, func(k string, _ *memoryObject) bool {
		if !strings.HasPrefix(k, prefix) {
			return false
		}

		rest := k[len(prefix):]
		if rest != "" && !strings.Contains(rest, "/") {
			names = append(names, rest)
		}
		return true
	})

	return names, nil
}

func (mb *MemoryBackend) RenameObject(ctx context.Context, oldKey, newKey string) error {
	mb.mu.Lock()
	defer mb.mu.Unlock()

	if _, exists := mb.objects.Get(oldKey); !exists {
		return data.ErrNotExist
	}

	// Drop whatever currently lives at the destination
	for _, k := range mb.keysBelowUnsafe(newKey) {
		mb.objects.Delete(k)
	}

	now := time.Now()
	for _, k := range mb.keysBelowUnsafe(oldKey) {
		obj, _ := mb.objects.Delete(k)

		moved := newKey + strings.TrimPrefix(k, oldKey)
		obj.stat.Key = moved
		if k == oldKey {
			obj.stat.ChangeTime = now
		}
		mb.objects.Set(moved, obj)
	}

	return nil
}

// keysBelowUnsafe returns key and every key nested below it.
// MUST be called while holding a lock.
func (mb *MemoryBackend) keysBelowUnsafe(key string) []string {
	var keys []string
	if _, exists := mb.objects.Get(key); exists {
		keys = append(keys, key)
	}

	prefix := key + "/"
	if key == "" {
		prefix = ""
	}

	mb.objects.Ascend(prefix, func(k string, _ *memoryObject) bool {
		if !strings.HasPrefix(k, prefix) {
			return false
		}
		if k != key {
			keys = append(keys, k)
		}
		return true
	})

	return keys
}
