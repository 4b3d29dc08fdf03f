package backend

import (
	"context"

	"github.com/mwantia/afs/data"
)

// ObjectStorageBackend is a flat key/value store of object records and contents.
// Keys are normalized with data.ToObjectKey; "" is the root directory.
// Stores do not check parents or types, that is the job of the FileSystem on top.
type ObjectStorageBackend interface {
	Backend

	// CreateObject stores a new record for key and assigns its inode.
	// Returns data.ErrExist if key is already present.
	CreateObject(ctx context.Context, key string, stat *data.ObjectStat) (*data.ObjectStat, error)

	// HeadObject returns the record for key or data.ErrNotExist.
	HeadObject(ctx context.Context, key string) (*data.ObjectStat, error)

	// ReadObject reads content at offset; it returns io.EOF when offset is at or past the end.
	ReadObject(ctx context.Context, key string, offset int64, buf []byte) (int, error)

	// WriteObject writes content at offset, growing the object as needed.
	WriteObject(ctx context.Context, key string, offset int64, buf []byte) (int, error)

	// TruncateObject resizes the content of key, zero-filling when growing.
	TruncateObject(ctx context.Context, key string, size int64) error

	// UpdateObject applies a partial record update.
	UpdateObject(ctx context.Context, key string, update *data.ObjectUpdate) error

	// DeleteObject removes the record and content of key.
	DeleteObject(ctx context.Context, key string) error

	// ListObjects returns the names of the direct children of key.
	ListObjects(ctx context.Context, key string) ([]string, error)

	// RenameObject moves key and every key below it to newKey.
	// An existing record at newKey is replaced.
	RenameObject(ctx context.Context, oldKey, newKey string) error
}
