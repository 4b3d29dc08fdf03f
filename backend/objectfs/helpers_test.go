package objectfs_test

import (
	"context"
	"errors"
	"io"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/mwantia/afs/backend"
	"github.com/mwantia/afs/backend/consul"
	"github.com/mwantia/afs/backend/memory"
	"github.com/mwantia/afs/backend/objectfs"
	"github.com/mwantia/afs/backend/postgres"
	"github.com/mwantia/afs/backend/s3"
	"github.com/mwantia/afs/backend/sqlite"
	"github.com/mwantia/afs/data"
	"github.com/mwantia/afs/log"
	"github.com/stretchr/testify/require"
)

type TestStoreFactory func(tst *testing.T) backend.ObjectStorageBackend

// GetTestStoreFactories returns every object store objectfs is tested against.
// Stores requiring an external service are skipped unless their environment is set.
func GetTestStoreFactories() map[string]TestStoreFactory {
	return map[string]TestStoreFactory{
		"memory": func(tst *testing.T) backend.ObjectStorageBackend {
			return memory.NewMemoryBackend()
		},
		"sqlite": func(tst *testing.T) backend.ObjectStorageBackend {
			store, err := sqlite.NewSQLiteBackend(":memory:")
			require.NoError(tst, err)
			return store
		},
		"postgres": func(tst *testing.T) backend.ObjectStorageBackend {
			dsn := os.Getenv("AFS_TEST_POSTGRES_DSN")
			if dsn == "" {
				tst.Skip("AFS_TEST_POSTGRES_DSN not set")
			}

			store, err := postgres.NewPostgresBackend(tst.Context(), dsn)
			require.NoError(tst, err)
			require.NoError(tst, store.Open(tst.Context()))
			purge(tst, store)
			return store
		},
		"consul": func(tst *testing.T) backend.ObjectStorageBackend {
			addr := os.Getenv("AFS_TEST_CONSUL_ADDR")
			if addr == "" {
				tst.Skip("AFS_TEST_CONSUL_ADDR not set")
			}

			store, err := consul.NewConsulBackend(&consul.ConsulBackendConfig{
				Address: addr,
				Token:   os.Getenv("AFS_TEST_CONSUL_TOKEN"),
				Prefix:  "afs-test/" + uuid.NewString(),
			})
			require.NoError(tst, err)
			return store
		},
		"s3": func(tst *testing.T) backend.ObjectStorageBackend {
			endpoint := os.Getenv("AFS_TEST_S3_ENDPOINT")
			if endpoint == "" {
				tst.Skip("AFS_TEST_S3_ENDPOINT not set")
			}

			store, err := s3.NewS3Backend(&s3.S3BackendConfig{
				Endpoint:  endpoint,
				Bucket:    os.Getenv("AFS_TEST_S3_BUCKET"),
				AccessKey: os.Getenv("AFS_TEST_S3_ACCESS_KEY"),
				SecretKey: os.Getenv("AFS_TEST_S3_SECRET_KEY"),
				Prefix:    "afs-test/" + uuid.NewString(),
			})
			require.NoError(tst, err)
			return store
		},
	}
}

// purge removes everything a previous run left in a shared store.
func purge(tst *testing.T, store backend.ObjectStorageBackend) {
	tst.Helper()

	var walk func(key string)
	walk = func(key string) {
		names, err := store.ListObjects(tst.Context(), key)
		if errors.Is(err, data.ErrNotExist) {
			return
		}
		require.NoError(tst, err)

		for _, name := range names {
			child := data.JoinKey(key, name)
			walk(child)
			require.NoError(tst, store.DeleteObject(tst.Context(), child))
		}
	}
	walk("")
}

func newTestFileSystem(tst *testing.T, store backend.ObjectStorageBackend, opts ...objectfs.Option) *objectfs.FileSystem {
	tst.Helper()

	opts = append([]objectfs.Option{
		objectfs.WithLogger(log.NewWriterLogger("test", log.Debug, tst.Output())),
	}, opts...)

	fs, err := objectfs.New(store, opts...)
	require.NoError(tst, err)
	require.NoError(tst, fs.Open(tst.Context()))

	tst.Cleanup(func() {
		fs.Close(context.Background())
	})
	return fs
}

// forEachStore runs fn against a fresh FileSystem for every store.
func forEachStore(t *testing.T, fn func(tst *testing.T, fs *objectfs.FileSystem), opts ...objectfs.Option) {
	for name, factory := range GetTestStoreFactories() {
		t.Run(name, func(tst *testing.T) {
			fn(tst, newTestFileSystem(tst, factory(tst), opts...))
		})
	}
}

func writeFile(tst *testing.T, fs backend.FileSystem, path, content string) {
	tst.Helper()

	f, err := fs.OpenFile(tst.Context(), path, data.MustParseFileOpenMode("w"), backend.OpenOptions{})
	require.NoError(tst, err)
	_, err = f.Write([]byte(content))
	require.NoError(tst, err)
	require.NoError(tst, f.Close())
}

func readFile(tst *testing.T, fs backend.FileSystem, path string) string {
	tst.Helper()

	f, err := fs.OpenFile(tst.Context(), path, data.MustParseFileOpenMode("r"), backend.OpenOptions{})
	require.NoError(tst, err)
	defer f.Close()

	content, err := io.ReadAll(f)
	require.NoError(tst, err)
	return string(content)
}

func listDirectory(tst *testing.T, fs backend.FileSystem, path string) []string {
	tst.Helper()

	it, err := fs.ListDirectory(tst.Context(), path)
	require.NoError(tst, err)
	defer it.Close()

	names := []string{}
	for {
		name, ok, err := it.Next()
		require.NoError(tst, err)
		if !ok {
			return names
		}
		names = append(names, name)
	}
}
