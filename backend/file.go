package backend

import (
	"io"
	"time"

	"github.com/mwantia/afs/data"
)

// OpenFile is an open stream on a FileSystem entry.
// Once closed, every method except Close fails with data.ErrClosed and Close
// itself becomes a no-op. An OpenFile must not be used concurrently.
type OpenFile interface {
	io.Reader
	io.Writer
	io.Seeker
	io.Closer

	// Truncate changes the size of the file without moving the position.
	Truncate(size int64) error

	// Position returns the current offset.
	Position() (int64, error)

	// AtEnd reports whether the position is at or beyond the end of the file.
	AtEnd() (bool, error)

	// Flush writes out buffered data.
	Flush() error

	// Lock acquires, converts or releases an advisory lock.
	// A non-blocking request that would block returns false without an error.
	Lock(lock data.Lock, nonBlocking bool) (bool, error)

	// SetBlocking toggles blocking reads.
	SetBlocking(blocking bool) error

	// SetReadTimeout bounds the duration of a single read; zero disables the timeout.
	SetReadTimeout(timeout time.Duration) error

	// SetWriteBuffer sets the number of bytes buffered before writing through; zero disables buffering.
	SetWriteBuffer(size int) error

	// Attributes returns a snapshot of the open file, or nil if unsupported.
	Attributes() (*data.FileAttributes, error)
}

// NativeHandle is implemented by open files backed by an operating system descriptor.
type NativeHandle interface {
	Fd() uintptr
}
