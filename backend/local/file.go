//go:build linux || darwin || freebsd

package local

import (
	"bufio"
	"errors"
	"io"
	"os"
	"time"

	"github.com/mwantia/afs/backend"
	"github.com/mwantia/afs/data"
	"github.com/mwantia/afs/log"
	"golang.org/x/sys/unix"
)

// File is an open host file.
type File struct {
	log  *log.Logger
	file *os.File
	mode data.FileOpenMode

	closed      bool
	readTimeout time.Duration

	// Set while write buffering is enabled
	writer *bufio.Writer
}

var (
	_ backend.OpenFile     = (*File)(nil)
	_ backend.NativeHandle = (*File)(nil)
)

func newFile(lb *LocalBackend, file *os.File, mode data.FileOpenMode) *File {
	return &File{
		log:  lb.log,
		file: file,
		mode: mode,
	}
}

// Name returns the host path of the file.
func (f *File) Name() string {
	return f.file.Name()
}

// Fd returns the host descriptor of the file.
func (f *File) Fd() uintptr {
	return f.file.Fd()
}

func (f *File) Read(p []byte) (int, error) {
	if f.closed {
		f.log.Error("Read: attempted to read from closed file %s", f.file.Name())
		return 0, data.ErrClosed
	}
	if !f.mode.Readable() {
		return 0, data.ErrPermission
	}

	if err := f.flush(); err != nil {
		return 0, err
	}

	if f.readTimeout > 0 {
		if err := f.file.SetReadDeadline(time.Now().Add(f.readTimeout)); err != nil {
			return 0, mapError(err)
		}
	}

	n, err := f.file.Read(p)
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return n, err
	}
	return n, mapError(err)
}

func (f *File) Write(p []byte) (int, error) {
	if f.closed {
		f.log.Error("Write: attempted to write to closed file %s", f.file.Name())
		return 0, data.ErrClosed
	}
	if !f.mode.Writable() {
		return 0, data.ErrPermission
	}

	if f.writer != nil {
		n, err := f.writer.Write(p)
		return n, mapError(err)
	}

	n, err := f.file.Write(p)
	return n, mapError(err)
}

func (f *File) Seek(offset int64, whence int) (int64, error) {
	if f.closed {
		return 0, data.ErrClosed
	}

	w, err := data.DecodeWhence(whence)
	if err != nil {
		return 0, err
	}

	if err := f.flush(); err != nil {
		return 0, err
	}

	pos, err := f.file.Seek(offset, int(w))
	return pos, mapError(err)
}

func (f *File) Truncate(size int64) error {
	if f.closed {
		return data.ErrClosed
	}
	if !f.mode.Writable() {
		return data.ErrPermission
	}

	if err := f.flush(); err != nil {
		return err
	}

	return mapError(f.file.Truncate(size))
}

func (f *File) Position() (int64, error) {
	if f.closed {
		return 0, data.ErrClosed
	}

	pos, err := f.file.Seek(0, io.SeekCurrent)
	if err != nil {
		return 0, mapError(err)
	}
	if f.writer != nil {
		pos += int64(f.writer.Buffered())
	}
	return pos, nil
}

func (f *File) AtEnd() (bool, error) {
	if f.closed {
		return false, data.ErrClosed
	}

	if err := f.flush(); err != nil {
		return false, err
	}

	pos, err := f.file.Seek(0, io.SeekCurrent)
	if err != nil {
		return false, mapError(err)
	}

	info, err := f.file.Stat()
	if err != nil {
		return false, mapError(err)
	}
	return pos >= info.Size(), nil
}

func (f *File) Flush() error {
	if f.closed {
		return data.ErrClosed
	}
	return f.flush()
}

// Close flushes buffered writes and closes the descriptor, releasing its locks.
// Closing an already closed file is a no-op.
func (f *File) Close() error {
	if f.closed {
		return nil
	}

	flushErr := f.flush()
	f.closed = true
	f.writer = nil

	if err := f.file.Close(); err != nil {
		return mapError(err)
	}
	return flushErr
}

func (f *File) Lock(lock data.Lock, nonBlocking bool) (bool, error) {
	if f.closed {
		return false, data.ErrClosed
	}

	var how int
	switch lock {
	case data.LockNone:
		how = unix.LOCK_UN
	case data.LockShared:
		how = unix.LOCK_SH
	case data.LockExclusive:
		how = unix.LOCK_EX
	default:
		return false, data.ErrInvalid
	}
	if nonBlocking {
		how |= unix.LOCK_NB
	}

	f.log.Debug("Lock: requesting %s lock on %s (non-blocking=%v)", lock, f.file.Name(), nonBlocking)

	var lockErr error
	if err := f.control(func(fd int) {
		lockErr = unix.Flock(fd, how)
	}); err != nil {
		return false, err
	}

	if errors.Is(lockErr, unix.EWOULDBLOCK) {
		return false, nil
	}
	if lockErr != nil {
		return false, mapError(lockErr)
	}
	return true, nil
}

func (f *File) SetBlocking(blocking bool) error {
	if f.closed {
		return data.ErrClosed
	}

	var err error
	if ctrlErr := f.control(func(fd int) {
		err = unix.SetNonblock(fd, !blocking)
	}); ctrlErr != nil {
		return ctrlErr
	}
	return mapError(err)
}

// SetReadTimeout only applies to descriptors supporting deadlines, such as pipes.
// Regular files report data.ErrUnsupported.
func (f *File) SetReadTimeout(timeout time.Duration) error {
	if f.closed {
		return data.ErrClosed
	}
	if timeout < 0 {
		return data.ErrInvalid
	}

	if err := f.file.SetReadDeadline(time.Time{}); err != nil {
		if errors.Is(err, os.ErrNoDeadline) {
			return data.ErrUnsupported
		}
		return mapError(err)
	}

	f.readTimeout = timeout
	return nil
}

func (f *File) SetWriteBuffer(size int) error {
	if f.closed {
		return data.ErrClosed
	}
	if size < 0 {
		return data.ErrInvalid
	}

	if err := f.flush(); err != nil {
		return err
	}

	if size == 0 {
		f.writer = nil
		return nil
	}

	f.writer = bufio.NewWriterSize(f.file, size)
	return nil
}

func (f *File) Attributes() (*data.FileAttributes, error) {
	if f.closed {
		return nil, data.ErrClosed
	}

	if err := f.flush(); err != nil {
		return nil, err
	}

	var st unix.Stat_t
	var statErr error
	if err := f.control(func(fd int) {
		statErr = unix.Fstat(fd, &st)
	}); err != nil {
		return nil, err
	}
	if statErr != nil {
		return nil, mapError(statErr)
	}

	return statToAttributes(&st)
}

func (f *File) flush() error {
	if f.writer == nil {
		return nil
	}
	return mapError(f.writer.Flush())
}

// control runs fn with the raw descriptor without switching it to blocking mode.
func (f *File) control(fn func(fd int)) error {
	conn, err := f.file.SyscallConn()
	if err != nil {
		return mapError(err)
	}

	return mapError(conn.Control(func(fd uintptr) {
		fn(int(fd))
	}))
}
