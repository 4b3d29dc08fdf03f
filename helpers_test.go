package afs_test

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/mwantia/afs"
	"github.com/mwantia/afs/backend/memory"
	"github.com/mwantia/afs/backend/objectfs"
	"github.com/mwantia/afs/log"
	"github.com/stretchr/testify/require"
)

// trackedFS counts the lifecycle calls the registry makes.
type trackedFS struct {
	*objectfs.FileSystem

	opens  atomic.Int32
	closes atomic.Int32
}

func (tf *trackedFS) Open(ctx context.Context) error {
	tf.opens.Add(1)
	return tf.FileSystem.Open(ctx)
}

func (tf *trackedFS) Close(ctx context.Context) error {
	tf.closes.Add(1)
	return tf.FileSystem.Close(ctx)
}

func newTestLogger(tst *testing.T) *log.Logger {
	return log.NewWriterLogger("test", log.Debug, tst.Output())
}

func newTestRegistry(tst *testing.T) *afs.Registry {
	tst.Helper()

	registry, err := afs.NewRegistry(afs.WithLogger(newTestLogger(tst)))
	require.NoError(tst, err)

	tst.Cleanup(func() {
		registry.Close(context.Background())
	})
	return registry
}

func newMemoryFS(tst *testing.T) *trackedFS {
	tst.Helper()

	fs, err := objectfs.New(memory.NewMemoryBackend(),
		objectfs.WithLogger(newTestLogger(tst).Named("objectfs")))
	require.NoError(tst, err)
	return &trackedFS{FileSystem: fs}
}

// mountMemory mounts a fresh in-memory filesystem and releases it on cleanup.
func mountMemory(tst *testing.T, registry *afs.Registry) *afs.MountHandle {
	tst.Helper()

	handle, err := registry.Mount(tst.Context(), newMemoryFS(tst))
	require.NoError(tst, err)

	tst.Cleanup(func() {
		handle.Close()
	})
	return handle
}

func newTestDispatcher(tst *testing.T, registry *afs.Registry) *afs.Dispatcher {
	tst.Helper()

	d := registry.NewDispatcher()
	tst.Cleanup(func() {
		d.Close()
	})
	return d
}

func writeURL(tst *testing.T, d *afs.Dispatcher, url, content string) {
	tst.Helper()

	_, ok, err := d.StreamOpen(tst.Context(), url, "w", afs.OptionReportErrors)
	require.NoError(tst, err)
	require.True(tst, ok)

	n, err := d.StreamWrite([]byte(content))
	require.NoError(tst, err)
	require.Equal(tst, len(content), n)
	require.NoError(tst, d.StreamClose())
}
