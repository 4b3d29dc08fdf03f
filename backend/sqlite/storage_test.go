package sqlite_test

import (
	"io"
	"path/filepath"
	"testing"

	"github.com/mwantia/afs/backend/sqlite"
	"github.com/mwantia/afs/data"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSQLiteBackend_PersistsAcrossReopen(t *testing.T) {
	ctx := t.Context()
	path := filepath.Join(t.TempDir(), "afs.db")

	store, err := sqlite.NewSQLiteBackend(path)
	require.NoError(t, err)
	require.NoError(t, store.Open(ctx))

	_, err = store.CreateObject(ctx, "", data.NewObjectStat("", data.FileTypeDirectory, data.DecodePermissions(0o755)))
	require.NoError(t, err)
	created, err := store.CreateObject(ctx, "a.txt", data.NewObjectStat("a.txt", data.FileTypeFile, data.DecodePermissions(0o644)))
	require.NoError(t, err)
	_, err = store.WriteObject(ctx, "a.txt", 0, []byte("persisted"))
	require.NoError(t, err)
	require.NoError(t, store.Close(ctx))

	store, err = sqlite.NewSQLiteBackend(path)
	require.NoError(t, err)
	require.NoError(t, store.Open(ctx))
	defer store.Close(ctx)

	stat, err := store.HeadObject(ctx, "a.txt")
	require.NoError(t, err)
	assert.Equal(t, created.Inode, stat.Inode)
	assert.Equal(t, int64(9), stat.Size)

	buf := make([]byte, 32)
	n, err := store.ReadObject(ctx, "a.txt", 0, buf)
	require.NoError(t, err)
	assert.Equal(t, "persisted", string(buf[:n]))

	_, err = store.ReadObject(ctx, "a.txt", 9, buf)
	assert.ErrorIs(t, err, io.EOF)

	names, err := store.ListObjects(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"a.txt"}, names)
}

func TestSQLiteBackend_RenameSubtree(t *testing.T) {
	ctx := t.Context()
	store, err := sqlite.NewSQLiteBackend(":memory:")
	require.NoError(t, err)
	require.NoError(t, store.Open(ctx))
	defer store.Close(ctx)

	dir := data.DecodePermissions(0o755)
	file := data.DecodePermissions(0o644)
	for key, ft := range map[string]data.FileType{
		"":          data.FileTypeDirectory,
		"src":       data.FileTypeDirectory,
		"src/a.txt": data.FileTypeFile,
		"dst":       data.FileTypeDirectory,
	} {
		perm := file
		if ft.IsDir() {
			perm = dir
		}
		_, err := store.CreateObject(ctx, key, data.NewObjectStat(key, ft, perm))
		require.NoError(t, err)
	}

	require.NoError(t, store.RenameObject(ctx, "src", "dst"))

	_, err = store.HeadObject(ctx, "src/a.txt")
	assert.ErrorIs(t, err, data.ErrNotExist)

	stat, err := store.HeadObject(ctx, "dst/a.txt")
	require.NoError(t, err)
	assert.Equal(t, "dst/a.txt", stat.Key)

	names, err := store.ListObjects(ctx, "dst")
	require.NoError(t, err)
	assert.Equal(t, []string{"a.txt"}, names)

	assert.ErrorIs(t, store.RenameObject(ctx, "missing", "x"), data.ErrNotExist)
}
