package afs

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mwantia/afs/backend"
	"github.com/mwantia/afs/data"
	"github.com/mwantia/afs/log"
	"golang.org/x/sync/errgroup"
)

// Registry maps mount ids to mounted filesystems and addresses them
// through URLs of the form "<scheme>://<id>:<path>".
// Every registry carries its own scheme, so URLs of unrelated registries
// in the same process never resolve against each other.
//
// A Registry is safe for concurrent use.
type Registry struct {
	mu sync.RWMutex

	log    *log.Logger
	scheme string
	nextID uint64
	closed bool

	mounts map[uint64]*mountEntry
}

type mountEntry struct {
	fs        backend.FileSystem
	name      string
	mountedAt time.Time
}

// MountInfo describes a mounted filesystem.
type MountInfo struct {
	ID        uint64
	URL       string
	Name      string
	MountedAt time.Time
}

func NewRegistry(opts ...RegistryOption) (*Registry, error) {
	options := newDefaultRegistryOptions()
	for _, opt := range opts {
		if err := opt(options); err != nil {
			return nil, err
		}
	}

	return &Registry{
		log:    options.newLogger(),
		scheme: "afs" + strings.ReplaceAll(uuid.NewString(), "-", ""),
		mounts: make(map[uint64]*mountEntry),
	}, nil
}

// Scheme returns the URL scheme of this registry.
func (r *Registry) Scheme() string {
	return r.scheme
}

// Mount registers fs under the next unused id.
// Filesystems implementing backend.Backend are opened first.
// The mount stays alive until the returned handle is released, the handle
// becomes unreachable, or the registry is closed.
func (r *Registry) Mount(ctx context.Context, fs backend.FileSystem) (*MountHandle, error) {
	if fs == nil {
		return nil, fmt.Errorf("%w: nil filesystem", data.ErrInvalid)
	}

	name := fmt.Sprintf("%T", fs)
	if b, ok := fs.(backend.Backend); ok {
		name = b.Name()
		if err := b.Open(ctx); err != nil {
			return nil, fmt.Errorf("failed to open backend '%s': %w", name, err)
		}
	}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil, errors.Join(fmt.Errorf("registry: %w", data.ErrClosed), r.closeBackend(ctx, fs))
	}

	r.nextID++
	id := r.nextID
	r.mounts[id] = &mountEntry{
		fs:        fs,
		name:      name,
		mountedAt: time.Now(),
	}
	r.mu.Unlock()

	r.log.Info("Mount: '%s' mounted as %d", name, id)

	handle := &MountHandle{
		registry: r,
		id:       id,
	}
	handle.cleanup = runtime.AddCleanup(handle, func(m unmountRequest) {
		m.registry.log.Warn("Mount: handle of %d dropped without release", m.id)
		if err := m.registry.unmount(context.Background(), m.id); err != nil {
			m.registry.log.Error("Mount: failed to unmount %d: %v", m.id, err)
		}
	}, unmountRequest{registry: r, id: id})

	return handle, nil
}

// Resolve returns the filesystem mounted under id.
func (r *Registry) Resolve(id uint64) (backend.FileSystem, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, exists := r.mounts[id]
	if !exists {
		return nil, fmt.Errorf("%w: %d", data.ErrUnknownMount, id)
	}
	return entry.fs, nil
}

// ParseURL splits url into mount id and path.
// URLs with a foreign scheme fail with data.ErrUnknownMount.
func (r *Registry) ParseURL(url string) (uint64, string, error) {
	scheme, id, path, err := splitURL(url)
	if err != nil {
		return 0, "", err
	}
	if scheme != r.scheme {
		return 0, "", fmt.Errorf("%w: foreign scheme '%s'", data.ErrUnknownMount, scheme)
	}
	return id, path, nil
}

// URL returns the address of path on mount id.
func (r *Registry) URL(id uint64, path string) string {
	return buildURL(r.scheme, id, path)
}

// Mounts lists the current mounts ordered by id.
func (r *Registry) Mounts() []MountInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	infos := make([]MountInfo, 0, len(r.mounts))
	for id, entry := range r.mounts {
		infos = append(infos, MountInfo{
			ID:        id,
			URL:       buildURL(r.scheme, id, ""),
			Name:      entry.name,
			MountedAt: entry.mountedAt,
		})
	}

	sort.Slice(infos, func(i, j int) bool {
		return infos[i].ID < infos[j].ID
	})
	return infos
}

// NewDispatcher starts a new single-session dispatcher over this registry.
func (r *Registry) NewDispatcher() *Dispatcher {
	return &Dispatcher{
		registry: r,
		log:      r.log.Named("dispatcher"),
	}
}

// Close unmounts everything still mounted and closes the backends concurrently.
// Handles released afterwards are no-ops.
func (r *Registry) Close(ctx context.Context) error {
	r.mu.Lock()
	entries := r.mounts
	r.mounts = make(map[uint64]*mountEntry)
	r.closed = true
	r.mu.Unlock()

	// One failing backend must not cancel the close of the others
	var g errgroup.Group
	for id, entry := range entries {
		g.Go(func() error {
			r.log.Debug("Close: unmounting %d ('%s')", id, entry.name)
			if b, ok := entry.fs.(backend.Backend); ok {
				if err := b.Close(ctx); err != nil {
					return fmt.Errorf("failed to close backend '%s': %w", entry.name, err)
				}
			}
			return nil
		})
	}

	return g.Wait()
}

// resolveURL resolves url into the mounted filesystem, the mount id and the path.
func (r *Registry) resolveURL(url string) (backend.FileSystem, uint64, string, error) {
	id, path, err := r.ParseURL(url)
	if err != nil {
		return nil, 0, "", err
	}

	fs, err := r.Resolve(id)
	if err != nil {
		return nil, 0, "", err
	}
	return fs, id, path, nil
}

func (r *Registry) unmount(ctx context.Context, id uint64) error {
	r.mu.Lock()
	entry, exists := r.mounts[id]
	if exists {
		delete(r.mounts, id)
	}
	r.mu.Unlock()

	if !exists {
		return nil
	}

	r.log.Info("Unmount: %d ('%s')", id, entry.name)
	return r.closeBackend(ctx, entry.fs)
}

func (r *Registry) closeBackend(ctx context.Context, fs backend.FileSystem) error {
	if b, ok := fs.(backend.Backend); ok {
		if err := b.Close(ctx); err != nil {
			return fmt.Errorf("failed to close backend '%s': %w", b.Name(), err)
		}
	}
	return nil
}

// unmountRequest is the cleanup argument of a MountHandle.
// It must never reference the handle itself.
type unmountRequest struct {
	registry *Registry
	id       uint64
}

// MountHandle keeps a mount alive. Releasing it unmounts exactly once;
// later calls are no-ops. A handle that becomes unreachable without being
// released is unmounted by the garbage collector.
type MountHandle struct {
	registry *Registry
	id       uint64

	once    sync.Once
	cleanup runtime.Cleanup
	err     error
}

// ID returns the mount id.
func (h *MountHandle) ID() uint64 {
	return h.id
}

// URL returns the address of path on this mount.
func (h *MountHandle) URL(path string) string {
	return h.registry.URL(h.id, path)
}

// Release unmounts the filesystem and closes it if it implements backend.Backend.
func (h *MountHandle) Release(ctx context.Context) error {
	h.once.Do(func() {
		h.cleanup.Stop()
		h.err = h.registry.unmount(ctx, h.id)
	})
	return h.err
}

// Close is Release with a background context.
func (h *MountHandle) Close() error {
	return h.Release(context.Background())
}
