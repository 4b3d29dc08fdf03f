package objectfs

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/mwantia/afs/backend"
	"github.com/mwantia/afs/data"
	"github.com/mwantia/afs/log"
)

// File is an open stream on an object of a FileSystem.
type File struct {
	mu  sync.Mutex
	ctx context.Context
	log *log.Logger

	fs     *FileSystem
	key    string
	mode   data.FileOpenMode
	offset int64
	closed bool

	blocking    bool
	readTimeout time.Duration

	// Write buffer; pending holds unwritten bytes starting at pendingOffset
	bufferSize    int
	pending       []byte
	pendingOffset int64

	lock data.Lock
}

var _ backend.OpenFile = (*File)(nil)

func newFile(ctx context.Context, fs *FileSystem, key string, mode data.FileOpenMode) *File {
	return &File{
		ctx:      context.WithoutCancel(ctx),
		log:      fs.log,
		fs:       fs,
		key:      key,
		mode:     mode,
		blocking: true,
	}
}

// Key returns the object key of the file.
func (f *File) Key() string {
	return f.key
}

// Mode returns the mode the file was opened with.
func (f *File) Mode() data.FileOpenMode {
	return f.mode
}

func (f *File) Read(p []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		f.log.Error("Read: attempted to read from closed file %q", f.key)
		return 0, data.ErrClosed
	}
	if !f.mode.Readable() {
		return 0, data.ErrPermission
	}
	if len(p) == 0 {
		return 0, nil
	}

	if err := f.flushUnsafe(); err != nil {
		return 0, err
	}

	ctx, cancel := f.readContext()
	defer cancel()

	f.log.Debug("Read: reading up to %d bytes from %q at offset %d", len(p), f.key, f.offset)
	n, err := f.fs.read(ctx, f.key, f.offset, p)
	if n > 0 {
		f.offset += int64(n)
	}

	if err != nil && err != io.EOF {
		f.log.Error("Read: failed to read from %q - %v", f.key, err)
	}
	return n, err
}

func (f *File) Write(p []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		f.log.Error("Write: attempted to write to closed file %q", f.key)
		return 0, data.ErrClosed
	}
	if !f.mode.Writable() {
		return 0, data.ErrPermission
	}
	if len(p) == 0 {
		return 0, nil
	}

	if f.mode.AppendsWrites() && len(f.pending) == 0 {
		size, err := f.sizeUnsafe()
		if err != nil {
			return 0, err
		}
		f.offset = size
	}

	if f.bufferSize > 0 {
		if len(f.pending) > 0 && f.offset != f.pendingOffset+int64(len(f.pending)) {
			if err := f.flushUnsafe(); err != nil {
				return 0, err
			}
		}
		if len(f.pending) == 0 {
			f.pendingOffset = f.offset
		}

		start := f.offset
		f.pending = append(f.pending, p...)
		f.offset += int64(len(p))

		if len(f.pending) >= f.bufferSize {
			if err := f.writePendingUnsafe(); err != nil {
				n := f.unbufferUnsafe(start, len(p))
				f.offset = start + int64(n)
				return n, err
			}
		}
		return len(p), nil
	}

	f.log.Debug("Write: writing %d bytes to %q at offset %d", len(p), f.key, f.offset)
	n, err := f.fs.write(f.ctx, f.key, f.offset, p)
	if n > 0 {
		f.offset += int64(n)
	}
	if err != nil {
		f.log.Error("Write: failed to write to %q - %v", f.key, err)
	}
	return n, err
}

func (f *File) Seek(offset int64, whence int) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return 0, data.ErrClosed
	}

	w, err := data.DecodeWhence(whence)
	if err != nil {
		return 0, err
	}

	if err := f.flushUnsafe(); err != nil {
		return 0, err
	}

	var next int64
	switch w {
	case data.WhenceStart:
		next = offset
	case data.WhenceCurrent:
		next = f.offset + offset
	case data.WhenceEnd:
		size, err := f.sizeUnsafe()
		if err != nil {
			return 0, err
		}
		next = size + offset
	}

	if next < 0 {
		f.log.Debug("Seek: invalid negative offset %d for %q", next, f.key)
		return 0, data.ErrInvalid
	}

	f.offset = next
	return next, nil
}

func (f *File) Truncate(size int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return data.ErrClosed
	}
	if !f.mode.Writable() {
		return data.ErrPermission
	}
	if size < 0 {
		return data.ErrInvalid
	}

	if err := f.flushUnsafe(); err != nil {
		return err
	}

	f.log.Debug("Truncate: resizing %q to %d bytes", f.key, size)
	return f.fs.truncate(f.ctx, f.key, size)
}

func (f *File) Position() (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return 0, data.ErrClosed
	}
	return f.offset, nil
}

func (f *File) AtEnd() (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return false, data.ErrClosed
	}

	size, err := f.sizeUnsafe()
	if err != nil {
		return false, err
	}
	return f.offset >= size, nil
}

func (f *File) Flush() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return data.ErrClosed
	}
	return f.flushUnsafe()
}

// Close flushes pending writes and releases the lock of the file.
// Closing an already closed file is a no-op.
func (f *File) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return nil
	}

	err := f.flushUnsafe()

	f.fs.locks.release(f.key, f)
	f.lock = data.LockNone
	f.closed = true
	f.pending = nil

	f.log.Debug("Close: closed %q", f.key)
	return err
}

func (f *File) Lock(lock data.Lock, nonBlocking bool) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return false, data.ErrClosed
	}

	switch lock {
	case data.LockNone, data.LockShared, data.LockExclusive:
	default:
		return false, data.ErrInvalid
	}

	f.log.Debug("Lock: requesting %s lock on %q (non-blocking=%v)", lock, f.key, nonBlocking)
	if !f.fs.locks.acquire(f.key, f, lock, nonBlocking) {
		return false, nil
	}

	f.lock = lock
	return true, nil
}

func (f *File) SetBlocking(blocking bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return data.ErrClosed
	}

	// Object reads never wait for data to arrive, so both modes behave the same
	f.blocking = blocking
	return nil
}

func (f *File) SetReadTimeout(timeout time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return data.ErrClosed
	}
	if timeout < 0 {
		return data.ErrInvalid
	}

	f.readTimeout = timeout
	return nil
}

func (f *File) SetWriteBuffer(size int) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return data.ErrClosed
	}
	if size < 0 {
		return data.ErrInvalid
	}

	f.bufferSize = size
	if len(f.pending) >= size {
		return f.flushUnsafe()
	}
	return nil
}

func (f *File) Attributes() (*data.FileAttributes, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return nil, data.ErrClosed
	}

	if err := f.flushUnsafe(); err != nil {
		return nil, err
	}

	return f.fs.GetAttributes(f.ctx, f.key, false)
}

// flushUnsafe writes out the write buffer.
// Bytes the store rejects as too large are discarded.
// MUST be called while holding f.mu.
func (f *File) flushUnsafe() error {
	err := f.writePendingUnsafe()
	if errors.Is(err, data.ErrTooLarge) {
		f.log.Warn("Flush: discarding %d buffered bytes of %q", len(f.pending), f.key)
		f.pending = f.pending[:0]
	}
	return err
}

// writePendingUnsafe writes the write buffer and keeps what was not written.
// MUST be called while holding f.mu.
func (f *File) writePendingUnsafe() error {
	if len(f.pending) == 0 {
		return nil
	}

	f.log.Debug("Flush: writing %d buffered bytes to %q at offset %d", len(f.pending), f.key, f.pendingOffset)
	n, err := f.fs.write(f.ctx, f.key, f.pendingOffset, f.pending)
	if err != nil {
		f.pending = f.pending[n:]
		f.pendingOffset += int64(n)
		f.log.Error("Flush: failed to write to %q - %v", f.key, err)
		return err
	}

	f.pending = f.pending[:0]
	return nil
}

// unbufferUnsafe removes the unwritten part of a write of size bytes at start
// from the buffer and returns how many of its bytes were written out.
// MUST be called while holding f.mu.
func (f *File) unbufferUnsafe(start int64, size int) int {
	written := f.pendingOffset - start
	if written > 0 {
		f.pending = f.pending[:0]
		return int(min(written, int64(size)))
	}

	if keep := -written; keep < int64(len(f.pending)) {
		f.pending = f.pending[:keep]
	}
	return 0
}

// sizeUnsafe returns the current size including buffered writes.
// MUST be called while holding f.mu.
func (f *File) sizeUnsafe() (int64, error) {
	stat, err := f.fs.head(f.ctx, f.key)
	if err != nil {
		if errors.Is(err, data.ErrNotExist) {
			f.log.Warn("Stat: %q was removed while open", f.key)
		}
		return 0, err
	}

	size := stat.Size
	if end := f.pendingOffset + int64(len(f.pending)); len(f.pending) > 0 && end > size {
		size = end
	}
	return size, nil
}

func (f *File) readContext() (context.Context, context.CancelFunc) {
	if f.readTimeout > 0 {
		return context.WithTimeout(f.ctx, f.readTimeout)
	}
	return context.WithCancel(f.ctx)
}
