package memory

import (
	"context"
	"sync"

	"github.com/mwantia/afs/backend"
	"github.com/mwantia/afs/data"
	"github.com/tidwall/btree"
)

type memoryObject struct {
	stat    *data.ObjectStat
	content []byte
}

// MemoryBackend keeps every object in an ordered in-memory B-tree.
// Keys are sorted, so the children of a directory form one contiguous range.
type MemoryBackend struct {
	mu sync.RWMutex

	objects   *btree.Map[string, *memoryObject]
	nextInode int64
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		objects: btree.NewMap[string, *memoryObject](0),
	}
}

// Name returns the identifier name defined for this backend
func (*MemoryBackend) Name() string {
	return "memory"
}

// Open is part of the lifecycle behaviour and gets called before the backend is used.
func (mb *MemoryBackend) Open(ctx context.Context) error {
	// No initialization needed - backend is ready to use
	return nil
}

// Close is part of the lifecycle behaviour and gets called when the backend is released.
func (mb *MemoryBackend) Close(ctx context.Context) error {
	mb.mu.Lock()
	defer mb.mu.Unlock()

	mb.objects.Clear()
	return nil
}

// GetCapabilities returns a list of capabilities supported by this backend.
func (mb *MemoryBackend) GetCapabilities() *backend.Capabilities {
	return backend.NewCapabilities(
		backend.CapabilityObjectStorage,
		backend.CapabilityAtomicRename,
	)
}
