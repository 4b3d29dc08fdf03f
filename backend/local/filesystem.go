//go:build linux || darwin || freebsd

package local

import (
	"context"
	"fmt"
	"os"
	"slices"
	"time"

	"github.com/mwantia/afs/backend"
	"github.com/mwantia/afs/data"
	"golang.org/x/sys/unix"
)

func (lb *LocalBackend) ListDirectory(ctx context.Context, path string) (backend.DirectoryIterator, error) {
	fullPath := lb.resolvePath(path)

	info, err := os.Stat(fullPath)
	if err != nil {
		lb.log.Debug("ListDirectory: failed to stat %s - %v", fullPath, err)
		return nil, mapError(err)
	}
	if !info.IsDir() {
		return nil, data.ErrNotDirectory
	}

	return backend.NewLazyIterator(func() ([]string, error) {
		lb.log.Debug("ListDirectory: reading %s", fullPath)

		dir, err := os.Open(fullPath)
		if err != nil {
			return nil, mapError(err)
		}
		defer dir.Close()

		names, err := dir.Readdirnames(-1)
		if err != nil {
			return nil, mapError(err)
		}

		slices.Sort(names)
		return names, nil
	}), nil
}

func (lb *LocalBackend) CreateDirectory(ctx context.Context, path string, perm data.Permissions, recursive bool) error {
	if err := lb.checkWritable(); err != nil {
		return err
	}

	fullPath := lb.resolvePath(path)
	lb.log.Debug("CreateDirectory: creating %s (recursive=%v)", fullPath, recursive)

	if !recursive {
		return mapError(unix.Mkdir(fullPath, toHostMode(perm)))
	}

	if _, err := os.Lstat(fullPath); err == nil {
		return data.ErrExist
	}
	return mapError(os.MkdirAll(fullPath, os.FileMode(toHostMode(perm))&os.ModePerm))
}

func (lb *LocalBackend) RemoveDirectory(ctx context.Context, path string) error {
	if err := lb.checkWritable(); err != nil {
		return err
	}

	fullPath := lb.resolvePath(path)
	if fullPath == lb.root {
		return data.ErrPermission
	}

	lb.log.Debug("RemoveDirectory: removing %s", fullPath)
	err := unix.Rmdir(fullPath)
	if err == unix.EEXIST {
		// Some systems report a non-empty directory as EEXIST
		return data.ErrDirectoryNotEmpty
	}
	return mapError(err)
}

func (lb *LocalBackend) Rename(ctx context.Context, oldPath, newPath string) error {
	if err := lb.checkWritable(); err != nil {
		return err
	}

	oldFull := lb.resolvePath(oldPath)
	newFull := lb.resolvePath(newPath)
	if oldFull == lb.root || newFull == lb.root {
		return data.ErrPermission
	}

	lb.log.Debug("Rename: moving %s to %s", oldFull, newFull)
	return mapError(os.Rename(oldFull, newFull))
}

func (lb *LocalBackend) Delete(ctx context.Context, path string) error {
	if err := lb.checkWritable(); err != nil {
		return err
	}

	fullPath := lb.resolvePath(path)

	info, err := os.Lstat(fullPath)
	if err != nil {
		return mapError(err)
	}
	if info.IsDir() {
		return data.ErrIsDirectory
	}

	lb.log.Debug("Delete: removing %s", fullPath)
	return mapError(unix.Unlink(fullPath))
}

func (lb *LocalBackend) OpenFile(ctx context.Context, path string, mode data.FileOpenMode, opts backend.OpenOptions) (backend.OpenFile, error) {
	if opts.UseSearchPath {
		return nil, fmt.Errorf("%w: search path lookup", data.ErrUnsupported)
	}
	if mode.Writable() {
		if err := lb.checkWritable(); err != nil {
			return nil, err
		}
	}

	fullPath := lb.resolvePath(path)

	file, err := os.OpenFile(fullPath, openFlags(mode), 0o666)
	if err != nil {
		lb.log.Debug("OpenFile: failed to open %s - %v", fullPath, err)
		return nil, mapError(err)
	}

	// Directories can be opened read-only on unix
	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, mapError(err)
	}
	if info.IsDir() {
		file.Close()
		return nil, data.ErrIsDirectory
	}

	lb.log.Debug("OpenFile: opened %s with mode %s", fullPath, mode)
	return newFile(lb, file, mode), nil
}

func (lb *LocalBackend) SetLastModified(ctx context.Context, path string, mtime, atime time.Time) error {
	if err := lb.checkWritable(); err != nil {
		return err
	}

	fullPath := lb.resolvePath(path)

	// Touching a missing file creates it
	file, err := os.OpenFile(fullPath, os.O_WRONLY|os.O_CREATE, 0o666)
	if err != nil {
		if info, statErr := os.Stat(fullPath); statErr != nil || !info.IsDir() {
			return mapError(err)
		}
	} else if err := file.Close(); err != nil {
		return mapError(err)
	}

	return mapError(os.Chtimes(fullPath, atime, mtime))
}

func (lb *LocalBackend) SetOwner(ctx context.Context, path string, owner data.Principal) error {
	if err := lb.checkWritable(); err != nil {
		return err
	}

	uid, err := backend.ResolvePrincipal(owner, lb.options.LookupUser)
	if err != nil {
		return err
	}

	return mapError(os.Chown(lb.resolvePath(path), int(uid), -1))
}

func (lb *LocalBackend) SetGroup(ctx context.Context, path string, group data.Principal) error {
	if err := lb.checkWritable(); err != nil {
		return err
	}

	gid, err := backend.ResolvePrincipal(group, lb.options.LookupGroup)
	if err != nil {
		return err
	}

	return mapError(os.Chown(lb.resolvePath(path), -1, int(gid)))
}

func (lb *LocalBackend) SetPermissions(ctx context.Context, path string, perm data.Permissions) error {
	if err := lb.checkWritable(); err != nil {
		return err
	}

	return mapError(unix.Chmod(lb.resolvePath(path), toHostMode(perm)))
}

func (lb *LocalBackend) GetAttributes(ctx context.Context, path string, followSymlinks bool) (*data.FileAttributes, error) {
	fullPath := lb.resolvePath(path)

	var st unix.Stat_t
	var err error
	if followSymlinks {
		err = unix.Stat(fullPath, &st)
	} else {
		err = unix.Lstat(fullPath, &st)
	}
	if err != nil {
		return nil, mapError(err)
	}

	return statToAttributes(&st)
}

// Symlink creates a symbolic link at path pointing to target.
func (lb *LocalBackend) Symlink(ctx context.Context, target, path string) error {
	if err := lb.checkWritable(); err != nil {
		return err
	}

	return mapError(os.Symlink(target, lb.resolvePath(path)))
}

// ReadLink returns the target of the symbolic link at path.
func (lb *LocalBackend) ReadLink(ctx context.Context, path string) (string, error) {
	target, err := os.Readlink(lb.resolvePath(path))
	if err != nil {
		return "", mapError(err)
	}
	return target, nil
}

// openFlags translates an open mode into host open flags.
func openFlags(mode data.FileOpenMode) int {
	flags := os.O_WRONLY
	switch {
	case mode.Readable() && mode.Writable():
		flags = os.O_RDWR
	case mode.Readable():
		flags = os.O_RDONLY
	}

	if mode.CreatesNew() {
		flags |= os.O_CREATE
	}
	if mode.FailsIfExists() {
		flags |= os.O_EXCL
	}
	if mode.TruncatesExisting() {
		flags |= os.O_TRUNC
	}
	if mode.AppendsWrites() {
		flags |= os.O_APPEND
	}
	return flags
}
