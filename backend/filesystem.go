package backend

import (
	"context"
	"time"

	"github.com/mwantia/afs/data"
)

// OpenOptions are the per-call options of FileSystem.OpenFile.
type OpenOptions struct {
	// UseSearchPath asks to resolve relative paths against a search path.
	// No FileSystem in this module keeps such a list, so it is rejected
	// with data.ErrUnsupported.
	UseSearchPath bool

	// ReportErrors signals whether the caller will surface failures.
	// Implementations always return errors; the dispatcher applies the policy.
	ReportErrors bool
}

// FileSystem is the capability set every mountable backend implements.
// Paths are passed through untouched; normalization is up to the implementation.
//
// Each mutating call either succeeds completely or leaves the backend untouched.
type FileSystem interface {
	// ListDirectory returns a restartable iterator over the entry names of path.
	ListDirectory(ctx context.Context, path string) (DirectoryIterator, error)

	// CreateDirectory creates path; with recursive set, missing parents are created too.
	CreateDirectory(ctx context.Context, path string, perm data.Permissions, recursive bool) error

	// RemoveDirectory removes the empty directory at path.
	RemoveDirectory(ctx context.Context, path string) error

	// Rename moves oldPath to newPath, replacing a file at newPath.
	Rename(ctx context.Context, oldPath, newPath string) error

	// Delete removes the non-directory entry at path.
	Delete(ctx context.Context, path string) error

	// OpenFile opens path with the given mode.
	OpenFile(ctx context.Context, path string, mode data.FileOpenMode, opts OpenOptions) (OpenFile, error)

	// SetLastModified sets modification and access time, creating an empty file if path is missing.
	SetLastModified(ctx context.Context, path string, mtime, atime time.Time) error

	// SetOwner changes the owning user.
	SetOwner(ctx context.Context, path string, owner data.Principal) error

	// SetGroup changes the owning group.
	SetGroup(ctx context.Context, path string, group data.Principal) error

	// SetPermissions changes the permission bits.
	SetPermissions(ctx context.Context, path string, perm data.Permissions) error

	// GetAttributes returns a snapshot of the attributes of path.
	// A nil snapshot with a nil error means the backend cannot describe path.
	GetAttributes(ctx context.Context, path string, followSymlinks bool) (*data.FileAttributes, error)
}

// DirectoryIterator walks the entries of a directory.
// It is owned by a single caller and must not be used concurrently.
type DirectoryIterator interface {
	// Next returns the next entry name; ok is false once the directory is exhausted.
	Next() (name string, ok bool, err error)

	// Rewind restarts the iteration at the first entry.
	Rewind() error

	// Close releases the iterator. Closing twice is a no-op.
	Close() error
}
