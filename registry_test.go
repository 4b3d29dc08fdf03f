package afs_test

import (
	"context"
	"errors"
	"regexp"
	"runtime"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mwantia/afs"
	"github.com/mwantia/afs/data"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_Scheme(t *testing.T) {
	first := newTestRegistry(t)
	second := newTestRegistry(t)

	assert.Regexp(t, regexp.MustCompile(`^afs[0-9a-f]{32}$`), first.Scheme())
	assert.NotEqual(t, first.Scheme(), second.Scheme())
}

func TestRegistry_MountAndRelease(t *testing.T) {
	registry := newTestRegistry(t)
	ctx := t.Context()

	fs := newMemoryFS(t)
	handle, err := registry.Mount(ctx, fs)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), handle.ID())
	assert.Equal(t, int32(1), fs.opens.Load())

	resolved, err := registry.Resolve(handle.ID())
	require.NoError(t, err)
	assert.Same(t, fs, resolved)

	second := mountMemory(t, registry)
	assert.Equal(t, uint64(2), second.ID())

	require.NoError(t, handle.Release(ctx))
	require.NoError(t, handle.Release(ctx))
	require.NoError(t, handle.Close())
	assert.Equal(t, int32(1), fs.closes.Load())

	_, err = registry.Resolve(handle.ID())
	assert.ErrorIs(t, err, data.ErrUnknownMount)

	// Ids are never reused
	third := mountMemory(t, registry)
	assert.Equal(t, uint64(3), third.ID())

	infos := registry.Mounts()
	require.Len(t, infos, 2)
	assert.Equal(t, uint64(2), infos[0].ID)
	assert.Equal(t, uint64(3), infos[1].ID)
	assert.Equal(t, "memory", infos[0].Name)
	assert.Equal(t, second.URL(""), infos[0].URL)
}

func TestRegistry_URL(t *testing.T) {
	registry := newTestRegistry(t)
	handle := mountMemory(t, registry)

	url := handle.URL("/dir/a.txt")
	assert.Equal(t, registry.Scheme()+"://1:/dir/a.txt", url)

	id, path, err := registry.ParseURL(url)
	require.NoError(t, err)
	assert.Equal(t, handle.ID(), id)
	assert.Equal(t, "/dir/a.txt", path)

	id, path, err = registry.ParseURL(handle.URL("/a:b"))
	require.NoError(t, err)
	assert.Equal(t, handle.ID(), id)
	assert.Equal(t, "/a:b", path)

	other := newTestRegistry(t)
	_, _, err = other.ParseURL(url)
	assert.ErrorIs(t, err, data.ErrUnknownMount)

	for _, malformed := range []string{
		"",
		"no-scheme",
		"://1:/a",
		registry.Scheme() + "://1",
		registry.Scheme() + "://abc:/a",
		registry.Scheme() + "://0:/a",
		registry.Scheme() + "://-1:/a",
	} {
		_, _, err := registry.ParseURL(malformed)
		assert.ErrorIs(t, err, data.ErrInvalidURL, malformed)
	}
}

func TestRegistry_Close(t *testing.T) {
	registry := newTestRegistry(t)
	ctx := t.Context()

	first, second := newMemoryFS(t), newMemoryFS(t)
	handle, err := registry.Mount(ctx, first)
	require.NoError(t, err)
	_, err = registry.Mount(ctx, second)
	require.NoError(t, err)

	require.NoError(t, registry.Close(ctx))
	assert.Equal(t, int32(1), first.closes.Load())
	assert.Equal(t, int32(1), second.closes.Load())
	assert.Empty(t, registry.Mounts())

	// Releasing after close does not close the backend again
	require.NoError(t, handle.Release(ctx))
	assert.Equal(t, int32(1), first.closes.Load())

	late := newMemoryFS(t)
	_, err = registry.Mount(ctx, late)
	assert.ErrorIs(t, err, data.ErrClosed)
	assert.Equal(t, int32(1), late.closes.Load())
}

var errCloseFailed = errors.New("close failed")

// failingCloseFS fails its close and signals when it did.
type failingCloseFS struct {
	*trackedFS
	done chan struct{}
}

func (ff *failingCloseFS) Close(ctx context.Context) error {
	ff.trackedFS.Close(ctx)
	close(ff.done)
	return errCloseFailed
}

// ctxObserverFS records whether its close ran with a cancelled context.
type ctxObserverFS struct {
	*trackedFS
	after     <-chan struct{}
	cancelled atomic.Bool
}

func (of *ctxObserverFS) Close(ctx context.Context) error {
	<-of.after
	time.Sleep(20 * time.Millisecond)
	of.cancelled.Store(ctx.Err() != nil)
	return of.trackedFS.Close(ctx)
}

func TestRegistry_CloseFailureKeepsContext(t *testing.T) {
	registry := newTestRegistry(t)
	ctx := t.Context()

	failing := &failingCloseFS{trackedFS: newMemoryFS(t), done: make(chan struct{})}
	observer := &ctxObserverFS{trackedFS: newMemoryFS(t), after: failing.done}

	_, err := registry.Mount(ctx, failing)
	require.NoError(t, err)
	_, err = registry.Mount(ctx, observer)
	require.NoError(t, err)

	err = registry.Close(ctx)
	assert.ErrorIs(t, err, errCloseFailed)
	assert.Equal(t, int32(1), observer.closes.Load())
	assert.False(t, observer.cancelled.Load())
}

func TestRegistry_MountAfterCloseReportsCloseError(t *testing.T) {
	registry := newTestRegistry(t)
	require.NoError(t, registry.Close(t.Context()))

	late := &failingCloseFS{trackedFS: newMemoryFS(t), done: make(chan struct{})}
	_, err := registry.Mount(t.Context(), late)
	assert.ErrorIs(t, err, data.ErrClosed)
	assert.ErrorIs(t, err, errCloseFailed)
}

func TestRegistry_DroppedHandle(t *testing.T) {
	registry := newTestRegistry(t)

	id := func() uint64 {
		handle, err := registry.Mount(t.Context(), newMemoryFS(t))
		require.NoError(t, err)
		return handle.ID()
	}()

	require.Eventually(t, func() bool {
		runtime.GC()
		_, err := registry.Resolve(id)
		return err != nil
	}, 5*time.Second, 10*time.Millisecond)
}

func TestRegistry_InvalidOptions(t *testing.T) {
	_, err := afs.NewRegistry(afs.WithLogger(nil))
	assert.ErrorIs(t, err, data.ErrInvalid)

	_, err = newTestRegistry(t).Mount(context.Background(), nil)
	assert.ErrorIs(t, err, data.ErrInvalid)
}
