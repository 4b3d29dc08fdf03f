package afs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/mwantia/afs/backend"
	"github.com/mwantia/afs/data"
)

// StreamOpen opens url with the mode token as the session stream, closing
// the previous one. It returns the URL that was opened.
// OptionUsePath is always rejected with data.ErrUnsupported.
func (d *Dispatcher) StreamOpen(ctx context.Context, url, mode string, flags Flag) (string, bool, error) {
	d.log.Debug("StreamOpen: %s mode=%s", url, mode)

	if flags.Has(OptionUsePath) {
		return "", false, fmt.Errorf("%w: include path lookup", data.ErrUnsupported)
	}

	if err := d.StreamClose(); err != nil {
		return "", false, err
	}

	file, err := d.open(ctx, url, mode, flags)
	if err != nil {
		return "", false, d.report("StreamOpen", flags, err)
	}

	d.stream = file
	d.streamURL = url
	d.streamFlags = flags
	return url, true, nil
}

func (d *Dispatcher) open(ctx context.Context, url, mode string, flags Flag) (backend.OpenFile, error) {
	openMode, err := data.ParseFileOpenMode(mode)
	if err != nil {
		return nil, err
	}

	fs, _, path, err := d.registry.resolveURL(url)
	if err != nil {
		return nil, err
	}

	return fs.OpenFile(ctx, path, openMode, backend.OpenOptions{
		ReportErrors: flags.Has(OptionReportErrors),
	})
}

// streamFile returns the session stream or data.ErrClosed.
func (d *Dispatcher) streamFile() (backend.OpenFile, error) {
	if d.stream == nil {
		return nil, fmt.Errorf("stream: %w", data.ErrClosed)
	}
	return d.stream, nil
}

// StreamRead reads up to n bytes. Fewer bytes are returned at the end of the stream.
func (d *Dispatcher) StreamRead(n int) ([]byte, error) {
	file, err := d.streamFile()
	if err != nil {
		return nil, err
	}
	if n < 0 {
		return nil, d.report("StreamRead", d.streamFlags, fmt.Errorf("%w: read count %d", data.ErrInvalid, n))
	}

	buf := make([]byte, n)
	read, err := file.Read(buf)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, d.report("StreamRead", d.streamFlags, err)
	}
	return buf[:read], nil
}

// StreamWrite writes p and returns the number of bytes written.
func (d *Dispatcher) StreamWrite(p []byte) (int, error) {
	file, err := d.streamFile()
	if err != nil {
		return 0, err
	}

	n, err := file.Write(p)
	if err != nil {
		return n, d.report("StreamWrite", d.streamFlags, err)
	}
	return n, nil
}

// StreamSeek moves the position; whence is 0, 1 or 2 for start, current and end.
func (d *Dispatcher) StreamSeek(offset int64, whence int) (bool, error) {
	file, err := d.streamFile()
	if err != nil {
		return false, err
	}

	w, err := data.DecodeWhence(whence)
	if err == nil {
		_, err = file.Seek(offset, int(w))
	}
	if err != nil {
		return false, d.report("StreamSeek", d.streamFlags, err)
	}
	return true, nil
}

// StreamTell returns the current position.
func (d *Dispatcher) StreamTell() (int64, error) {
	file, err := d.streamFile()
	if err != nil {
		return 0, err
	}

	pos, err := file.Position()
	if err != nil {
		return 0, d.report("StreamTell", d.streamFlags, err)
	}
	return pos, nil
}

// StreamEOF reports whether the position is at the end of the stream.
func (d *Dispatcher) StreamEOF() (bool, error) {
	file, err := d.streamFile()
	if err != nil {
		return false, err
	}

	eof, err := file.AtEnd()
	if err != nil {
		return false, d.report("StreamEOF", d.streamFlags, err)
	}
	return eof, nil
}

func (d *Dispatcher) StreamFlush() (bool, error) {
	file, err := d.streamFile()
	if err != nil {
		return false, err
	}

	if err := file.Flush(); err != nil {
		return false, d.report("StreamFlush", d.streamFlags, err)
	}
	return true, nil
}

// StreamLock acquires, converts or releases an advisory lock.
// A non-blocking request that would block returns false without an error.
func (d *Dispatcher) StreamLock(op LockOperation) (bool, error) {
	file, err := d.streamFile()
	if err != nil {
		return false, err
	}

	lock, nonBlocking, err := DecodeLockOperation(op)
	if err != nil {
		return false, d.report("StreamLock", d.streamFlags, err)
	}

	ok, err := file.Lock(lock, nonBlocking)
	if err != nil {
		return false, d.report("StreamLock", d.streamFlags, err)
	}
	return ok, nil
}

func (d *Dispatcher) StreamTruncate(size int64) (bool, error) {
	file, err := d.streamFile()
	if err != nil {
		return false, err
	}

	if err := file.Truncate(size); err != nil {
		return false, d.report("StreamTruncate", d.streamFlags, err)
	}
	return true, nil
}

// StreamStat returns the flat attribute map of the stream,
// or nil if the backend cannot describe open files.
func (d *Dispatcher) StreamStat() (data.FlatMap, error) {
	file, err := d.streamFile()
	if err != nil {
		return nil, err
	}

	attrs, err := file.Attributes()
	if err != nil {
		return nil, d.report("StreamStat", d.streamFlags, err)
	}
	if attrs == nil {
		return nil, nil
	}
	return attrs.ToFlatMap(), nil
}

// StreamSetOption changes a stream setting.
// Unknown options and buffer modes fail with data.ErrUnsupported.
func (d *Dispatcher) StreamSetOption(option StreamOption, arg1, arg2 int) (bool, error) {
	file, err := d.streamFile()
	if err != nil {
		return false, err
	}

	if err := setOption(file, option, arg1, arg2); err != nil {
		return false, d.report("StreamSetOption", d.streamFlags, err)
	}
	return true, nil
}

func setOption(file backend.OpenFile, option StreamOption, arg1, arg2 int) error {
	switch option {
	case SetOptionBlocking:
		return file.SetBlocking(arg1 != 0)

	case SetOptionReadTimeout:
		if arg1 < 0 || arg2 < 0 {
			return fmt.Errorf("%w: read timeout %d.%06d", data.ErrInvalid, arg1, arg2)
		}
		timeout := time.Duration(arg1)*time.Second + time.Duration(arg2)*time.Microsecond
		return file.SetReadTimeout(timeout)

	case SetOptionWriteBuffer:
		switch arg1 {
		case BufferNone:
			return file.SetWriteBuffer(0)
		case BufferFull:
			if arg2 < 0 {
				return fmt.Errorf("%w: write buffer size %d", data.ErrInvalid, arg2)
			}
			return file.SetWriteBuffer(arg2)
		}
		return fmt.Errorf("%w: write buffer mode %d", data.ErrUnsupported, arg1)
	}

	return fmt.Errorf("%w: stream option %d", data.ErrUnsupported, int(option))
}

// StreamCast returns the native descriptor of the stream.
// Streams without one fail with data.ErrUnsupported regardless of the error policy.
func (d *Dispatcher) StreamCast(castAs CastMode) (uintptr, error) {
	file, err := d.streamFile()
	if err != nil {
		return 0, err
	}

	switch castAs {
	case CastAsStream, CastForSelect:
	default:
		return 0, fmt.Errorf("%w: cast mode %d", data.ErrInvalid, int(castAs))
	}

	native, ok := file.(backend.NativeHandle)
	if !ok {
		return 0, fmt.Errorf("%w: %s has no native handle", data.ErrUnsupported, d.streamURL)
	}
	return native.Fd(), nil
}

// StreamClose closes the session stream. Closing without an open stream is a no-op.
func (d *Dispatcher) StreamClose() error {
	if d.stream == nil {
		return nil
	}

	d.log.Debug("StreamClose: %s", d.streamURL)

	file := d.stream
	d.stream = nil
	d.streamURL = ""

	return d.report("StreamClose", d.streamFlags, file.Close())
}
