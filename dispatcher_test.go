package afs_test

import (
	"testing"
	"time"

	"github.com/mwantia/afs"
	"github.com/mwantia/afs/data"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDispatcher_WriteThenRead(t *testing.T) {
	registry := newTestRegistry(t)
	handle := mountMemory(t, registry)
	d := newTestDispatcher(t, registry)

	writeURL(t, d, handle.URL("/a.txt"), "hello")

	opened, ok, err := d.StreamOpen(t.Context(), handle.URL("/a.txt"), "r", afs.OptionReportErrors)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, handle.URL("/a.txt"), opened)

	eof, err := d.StreamEOF()
	require.NoError(t, err)
	assert.False(t, eof)

	content, err := d.StreamRead(16)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(content))

	eof, err = d.StreamEOF()
	require.NoError(t, err)
	assert.True(t, eof)

	content, err = d.StreamRead(16)
	require.NoError(t, err)
	assert.Empty(t, content)

	pos, err := d.StreamTell()
	require.NoError(t, err)
	assert.Equal(t, int64(5), pos)

	stat, err := d.StreamStat()
	require.NoError(t, err)
	assert.Equal(t, int64(5), stat["size"])
	assert.Equal(t, int64(0o100644), stat["mode"])
}

func TestDispatcher_CloseTwice(t *testing.T) {
	registry := newTestRegistry(t)
	handle := mountMemory(t, registry)
	d := newTestDispatcher(t, registry)

	_, ok, err := d.StreamOpen(t.Context(), handle.URL("/a.txt"), "w", 0)
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, d.StreamClose())
	require.NoError(t, d.StreamClose())

	// Closed handles always report, even without OptionReportErrors
	_, err = d.StreamRead(1)
	assert.ErrorIs(t, err, data.ErrClosed)
	_, err = d.StreamWrite([]byte("x"))
	assert.ErrorIs(t, err, data.ErrClosed)
	_, err = d.StreamTell()
	assert.ErrorIs(t, err, data.ErrClosed)
	_, err = d.StreamCast(afs.CastAsStream)
	assert.ErrorIs(t, err, data.ErrClosed)
}

func TestDispatcher_URLStat(t *testing.T) {
	registry := newTestRegistry(t)
	handle := mountMemory(t, registry)
	d := newTestDispatcher(t, registry)
	ctx := t.Context()

	stat, err := d.URLStat(ctx, handle.URL("/missing"), afs.OptionURLStatQuiet)
	require.NoError(t, err)
	assert.Nil(t, stat)

	_, err = d.URLStat(ctx, handle.URL("/missing"), 0)
	assert.ErrorIs(t, err, data.ErrNotExist)

	writeURL(t, d, handle.URL("/a.txt"), "abc")

	stat, err = d.URLStat(ctx, handle.URL("/a.txt"), 0)
	require.NoError(t, err)
	assert.Equal(t, int64(3), stat["size"])
	assert.Len(t, stat.Values(), len(data.FlatMapFields))

	stat, err = d.URLStat(ctx, handle.URL("/"), 0)
	require.NoError(t, err)
	assert.Equal(t, int64(0o40755), stat["mode"])

	_, err = d.URLStat(ctx, registry.URL(99, "/a.txt"), 0)
	assert.ErrorIs(t, err, data.ErrUnknownMount)
}

func TestDispatcher_ErrorPolicy(t *testing.T) {
	registry := newTestRegistry(t)
	handle := mountMemory(t, registry)
	d := newTestDispatcher(t, registry)
	ctx := t.Context()

	_, ok, err := d.StreamOpen(ctx, handle.URL("/missing"), "r", 0)
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = d.StreamOpen(ctx, handle.URL("/missing"), "r", afs.OptionReportErrors)
	assert.ErrorIs(t, err, data.ErrNotExist)
	assert.False(t, ok)

	_, _, err = d.StreamOpen(ctx, handle.URL("/a.txt"), "rw", afs.OptionReportErrors)
	assert.ErrorIs(t, err, data.ErrInvalidMode)

	writeURL(t, d, handle.URL("/a.txt"), "abc")
	_, _, err = d.StreamOpen(ctx, handle.URL("/a.txt"), "x", afs.OptionReportErrors)
	assert.ErrorIs(t, err, data.ErrExist)

	// Include path lookup is rejected regardless of the error policy
	_, ok, err = d.StreamOpen(ctx, handle.URL("/a.txt"), "r", afs.OptionUsePath)
	assert.ErrorIs(t, err, data.ErrUnsupported)
	assert.False(t, ok)
}

func TestDispatcher_Directories(t *testing.T) {
	registry := newTestRegistry(t)
	handle := mountMemory(t, registry)
	d := newTestDispatcher(t, registry)
	ctx := t.Context()

	_, _, err := d.DirRead()
	assert.ErrorIs(t, err, data.ErrClosed)

	ok, err := d.Mkdir(ctx, handle.URL("/a/b"), 0o755, 0)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = d.Mkdir(ctx, handle.URL("/a/b"), 0o755, afs.OptionReportErrors|afs.OptionMkdirRecursive)
	require.NoError(t, err)
	assert.True(t, ok)

	writeURL(t, d, handle.URL("/a/z.txt"), "z")
	writeURL(t, d, handle.URL("/a/m.txt"), "m")

	ok, err = d.DirOpen(ctx, handle.URL("/a"), afs.OptionReportErrors)
	require.NoError(t, err)
	require.True(t, ok)

	readAll := func() []string {
		var names []string
		for {
			name, ok, err := d.DirRead()
			require.NoError(t, err)
			if !ok {
				return names
			}
			names = append(names, name)
		}
	}

	first := readAll()
	assert.Equal(t, []string{"b", "m.txt", "z.txt"}, first)

	ok, err = d.DirRewind()
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, first, readAll())

	ok, err = d.DirClose()
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = d.DirClose()
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = d.Rmdir(ctx, handle.URL("/a"), afs.OptionReportErrors)
	assert.ErrorIs(t, err, data.ErrDirectoryNotEmpty)

	ok, err = d.Rmdir(ctx, handle.URL("/a/b"), afs.OptionReportErrors)
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = d.DirOpen(ctx, handle.URL("/a/m.txt"), afs.OptionReportErrors)
	assert.ErrorIs(t, err, data.ErrNotDirectory)
}

func TestDispatcher_RenameAndUnlink(t *testing.T) {
	registry := newTestRegistry(t)
	handle := mountMemory(t, registry)
	other := mountMemory(t, registry)
	d := newTestDispatcher(t, registry)
	ctx := t.Context()

	writeURL(t, d, handle.URL("/a.txt"), "abc")

	ok, err := d.Rename(ctx, handle.URL("/a.txt"), handle.URL("/b.txt"))
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = d.URLStat(ctx, handle.URL("/a.txt"), 0)
	assert.ErrorIs(t, err, data.ErrNotExist)

	_, err = d.Rename(ctx, handle.URL("/b.txt"), other.URL("/b.txt"))
	assert.ErrorIs(t, err, data.ErrUnsupported)

	// a released target mount is unknown, not a foreign one
	require.NoError(t, other.Release(ctx))
	_, err = d.Rename(ctx, handle.URL("/b.txt"), other.URL("/b.txt"))
	assert.ErrorIs(t, err, data.ErrUnknownMount)
	assert.NotErrorIs(t, err, data.ErrUnsupported)

	ok, err = d.Unlink(ctx, handle.URL("/b.txt"))
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = d.Unlink(ctx, handle.URL("/b.txt"))
	assert.ErrorIs(t, err, data.ErrNotExist)
}

func TestDispatcher_StreamMetadata(t *testing.T) {
	registry := newTestRegistry(t)
	handle := mountMemory(t, registry)
	d := newTestDispatcher(t, registry)
	ctx := t.Context()
	url := handle.URL("/a.txt")

	// Touch creates missing files
	mtime := time.Unix(1700000000, 0)
	ok, err := d.StreamMetadata(ctx, url, afs.MetaTouch, afs.TouchTimes{Modified: mtime})
	require.NoError(t, err)
	assert.True(t, ok)

	stat, err := d.URLStat(ctx, url, 0)
	require.NoError(t, err)
	assert.Equal(t, mtime.Unix(), stat["mtime"])
	assert.Equal(t, mtime.Unix(), stat["atime"])
	assert.Equal(t, int64(0), stat["size"])

	_, err = d.StreamMetadata(ctx, url, afs.MetaTouch, [2]int64{10, 20})
	require.NoError(t, err)
	stat, err = d.URLStat(ctx, url, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(10), stat["mtime"])
	assert.Equal(t, int64(20), stat["atime"])

	_, err = d.StreamMetadata(ctx, url, afs.MetaAccess, 0o600)
	require.NoError(t, err)
	_, err = d.StreamMetadata(ctx, url, afs.MetaOwner, 1001)
	require.NoError(t, err)
	_, err = d.StreamMetadata(ctx, url, afs.MetaGroup, int64(1002))
	require.NoError(t, err)

	stat, err = d.URLStat(ctx, url, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(0o100600), stat["mode"])
	assert.Equal(t, int64(1001), stat["uid"])
	assert.Equal(t, int64(1002), stat["gid"])

	_, err = d.StreamMetadata(ctx, url, afs.MetaOption(99), nil)
	assert.ErrorIs(t, err, data.ErrUnsupported)

	_, err = d.StreamMetadata(ctx, url, afs.MetaOwner, "root")
	assert.ErrorIs(t, err, data.ErrInvalid)

	_, err = d.StreamMetadata(ctx, url, afs.MetaAccess, 0o17777)
	assert.ErrorIs(t, err, data.ErrInvalid)

	_, err = d.StreamMetadata(ctx, url, afs.MetaOwnerName, "afs-no-such-user")
	assert.ErrorIs(t, err, data.ErrNotExist)
}

func TestDispatcher_DecodeLockOperation(t *testing.T) {
	for _, tc := range []struct {
		op          afs.LockOperation
		lock        data.Lock
		nonBlocking bool
	}{
		{afs.LockShared, data.LockShared, false},
		{afs.LockExclusive, data.LockExclusive, false},
		{afs.LockUnlock, data.LockNone, false},
		{afs.LockShared | afs.LockNonBlocking, data.LockShared, true},
		{afs.LockExclusive | afs.LockNonBlocking, data.LockExclusive, true},
		{afs.LockUnlock | afs.LockNonBlocking, data.LockNone, true},
	} {
		lock, nonBlocking, err := afs.DecodeLockOperation(tc.op)
		require.NoError(t, err)
		assert.Equal(t, tc.lock, lock)
		assert.Equal(t, tc.nonBlocking, nonBlocking)
	}

	_, _, err := afs.DecodeLockOperation(0)
	assert.ErrorIs(t, err, data.ErrInvalid)
	_, _, err = afs.DecodeLockOperation(afs.LockNonBlocking)
	assert.ErrorIs(t, err, data.ErrInvalid)
}

func TestDispatcher_StreamLock(t *testing.T) {
	registry := newTestRegistry(t)
	handle := mountMemory(t, registry)
	holder := newTestDispatcher(t, registry)
	contender := newTestDispatcher(t, registry)
	ctx := t.Context()

	writeURL(t, holder, handle.URL("/a.txt"), "abc")

	_, _, err := holder.StreamOpen(ctx, handle.URL("/a.txt"), "r+", afs.OptionReportErrors)
	require.NoError(t, err)
	_, _, err = contender.StreamOpen(ctx, handle.URL("/a.txt"), "r+", afs.OptionReportErrors)
	require.NoError(t, err)

	ok, err := holder.StreamLock(afs.LockExclusive)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = contender.StreamLock(afs.LockExclusive | afs.LockNonBlocking)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = holder.StreamLock(afs.LockUnlock)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = contender.StreamLock(afs.LockShared | afs.LockNonBlocking)
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = contender.StreamLock(afs.LockOperation(8))
	assert.ErrorIs(t, err, data.ErrInvalid)
}

func TestDispatcher_StreamSeekAndTruncate(t *testing.T) {
	registry := newTestRegistry(t)
	handle := mountMemory(t, registry)
	d := newTestDispatcher(t, registry)

	writeURL(t, d, handle.URL("/a.txt"), "hello world")

	_, _, err := d.StreamOpen(t.Context(), handle.URL("/a.txt"), "r+", afs.OptionReportErrors)
	require.NoError(t, err)

	ok, err := d.StreamSeek(-5, 2)
	require.NoError(t, err)
	assert.True(t, ok)

	content, err := d.StreamRead(5)
	require.NoError(t, err)
	assert.Equal(t, "world", string(content))

	_, err = d.StreamSeek(0, 3)
	assert.ErrorIs(t, err, data.ErrInvalid)

	ok, err = d.StreamTruncate(5)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = d.StreamSeek(0, 0)
	require.NoError(t, err)
	assert.True(t, ok)

	content, err = d.StreamRead(64)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(content))
}

func TestDispatcher_StreamSetOption(t *testing.T) {
	registry := newTestRegistry(t)
	handle := mountMemory(t, registry)
	d := newTestDispatcher(t, registry)
	ctx := t.Context()

	_, _, err := d.StreamOpen(ctx, handle.URL("/a.txt"), "w+", afs.OptionReportErrors)
	require.NoError(t, err)

	ok, err := d.StreamSetOption(afs.SetOptionWriteBuffer, afs.BufferFull, 64)
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = d.StreamWrite([]byte("buffered"))
	require.NoError(t, err)

	ok, err = d.StreamFlush()
	require.NoError(t, err)
	assert.True(t, ok)

	stat, err := d.URLStat(ctx, handle.URL("/a.txt"), 0)
	require.NoError(t, err)
	assert.Equal(t, int64(8), stat["size"])

	ok, err = d.StreamSetOption(afs.SetOptionWriteBuffer, afs.BufferNone, 0)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = d.StreamSetOption(afs.SetOptionReadTimeout, 1, 500000)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = d.StreamSetOption(afs.SetOptionBlocking, 0, 0)
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = d.StreamSetOption(afs.SetOptionWriteBuffer, afs.BufferLine, 0)
	assert.ErrorIs(t, err, data.ErrUnsupported)

	_, err = d.StreamSetOption(afs.StreamOption(42), 0, 0)
	assert.ErrorIs(t, err, data.ErrUnsupported)
}

func TestDispatcher_StreamCastUnsupported(t *testing.T) {
	registry := newTestRegistry(t)
	handle := mountMemory(t, registry)
	d := newTestDispatcher(t, registry)

	_, _, err := d.StreamOpen(t.Context(), handle.URL("/a.txt"), "w", 0)
	require.NoError(t, err)

	_, err = d.StreamCast(afs.CastForSelect)
	assert.ErrorIs(t, err, data.ErrUnsupported)

	_, err = d.StreamCast(afs.CastMode(7))
	assert.ErrorIs(t, err, data.ErrInvalid)
}

func TestDispatcher_ReleasedMount(t *testing.T) {
	registry := newTestRegistry(t)
	handle := mountMemory(t, registry)
	d := newTestDispatcher(t, registry)
	url := handle.URL("/a.txt")

	require.NoError(t, handle.Release(t.Context()))

	_, _, err := d.StreamOpen(t.Context(), url, "w", afs.OptionReportErrors)
	assert.ErrorIs(t, err, data.ErrUnknownMount)
}
