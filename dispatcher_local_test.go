//go:build linux || darwin || freebsd

package afs_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/mwantia/afs"
	"github.com/mwantia/afs/backend/local"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mountLocal(tst *testing.T, registry *afs.Registry) (*afs.MountHandle, string) {
	tst.Helper()

	root := tst.TempDir()
	lb, err := local.NewLocalBackend(root, local.WithLogger(newTestLogger(tst).Named("local")))
	require.NoError(tst, err)

	handle, err := registry.Mount(tst.Context(), lb)
	require.NoError(tst, err)

	tst.Cleanup(func() {
		handle.Close()
	})
	return handle, root
}

func TestDispatcher_LocalWriteThenRead(t *testing.T) {
	registry := newTestRegistry(t)
	handle, root := mountLocal(t, registry)
	d := newTestDispatcher(t, registry)

	writeURL(t, d, handle.URL("/a.txt"), "hello")

	content, err := os.ReadFile(filepath.Join(root, "a.txt"))
	require.NoError(t, err)
	assert.Equal(t, "hello", string(content))

	_, _, err = d.StreamOpen(t.Context(), handle.URL("/a.txt"), "r", afs.OptionReportErrors)
	require.NoError(t, err)

	eof, err := d.StreamEOF()
	require.NoError(t, err)
	assert.False(t, eof)

	read, err := d.StreamRead(16)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(read))

	eof, err = d.StreamEOF()
	require.NoError(t, err)
	assert.True(t, eof)
}

func TestDispatcher_LocalStreamCast(t *testing.T) {
	registry := newTestRegistry(t)
	handle, _ := mountLocal(t, registry)
	d := newTestDispatcher(t, registry)

	_, _, err := d.StreamOpen(t.Context(), handle.URL("/a.txt"), "w", afs.OptionReportErrors)
	require.NoError(t, err)

	fd, err := d.StreamCast(afs.CastAsStream)
	require.NoError(t, err)
	assert.NotZero(t, fd)
}

func TestDispatcher_LocalLockConflict(t *testing.T) {
	registry := newTestRegistry(t)
	handle, _ := mountLocal(t, registry)
	holder := newTestDispatcher(t, registry)
	contender := newTestDispatcher(t, registry)
	ctx := t.Context()

	writeURL(t, holder, handle.URL("/a.txt"), "abc")

	_, _, err := holder.StreamOpen(ctx, handle.URL("/a.txt"), "r+", afs.OptionReportErrors)
	require.NoError(t, err)
	_, _, err = contender.StreamOpen(ctx, handle.URL("/a.txt"), "r+", afs.OptionReportErrors)
	require.NoError(t, err)

	ok, err := holder.StreamLock(afs.LockExclusive | afs.LockNonBlocking)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = contender.StreamLock(afs.LockExclusive | afs.LockNonBlocking)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDispatcher_CrossBackendRename(t *testing.T) {
	registry := newTestRegistry(t)
	disk, _ := mountLocal(t, registry)
	mem := mountMemory(t, registry)
	d := newTestDispatcher(t, registry)

	writeURL(t, d, disk.URL("/a.txt"), "abc")

	_, err := d.Rename(t.Context(), disk.URL("/a.txt"), mem.URL("/a.txt"))
	assert.Error(t, err)

	stat, err := d.URLStat(t.Context(), disk.URL("/a.txt"), 0)
	require.NoError(t, err)
	assert.Equal(t, int64(3), stat["size"])
}
