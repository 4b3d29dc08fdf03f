//go:build linux || darwin || freebsd

package local

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/mwantia/afs/data"
	"golang.org/x/sys/unix"
)

// mapError translates host errors into the data sentinels.
// Errno values without a sentinel are passed through as data.UnderlyingError.
func mapError(err error) error {
	if err == nil || err == io.EOF {
		return err
	}
	if errors.Is(err, os.ErrClosed) {
		return data.ErrClosed
	}

	var errno unix.Errno
	if !errors.As(err, &errno) {
		return err
	}

	var sentinel error
	switch errno {
	case unix.ENOENT:
		sentinel = data.ErrNotExist
	case unix.EEXIST:
		sentinel = data.ErrExist
	case unix.ENOTDIR:
		sentinel = data.ErrNotDirectory
	case unix.ENOTEMPTY:
		sentinel = data.ErrDirectoryNotEmpty
	case unix.EISDIR:
		sentinel = data.ErrIsDirectory
	case unix.EACCES, unix.EPERM, unix.EROFS:
		sentinel = data.ErrPermission
	case unix.ELOOP:
		sentinel = data.ErrLinkLoop
	case unix.EINVAL:
		sentinel = data.ErrInvalid
	case unix.EFBIG:
		sentinel = data.ErrTooLarge
	case unix.ENOSYS, unix.EOPNOTSUPP:
		sentinel = data.ErrUnsupported
	case unix.EBADF:
		sentinel = data.ErrClosed
	default:
		return data.NewUnderlyingError(int(errno), err)
	}

	return fmt.Errorf("%w: %v", sentinel, err)
}
