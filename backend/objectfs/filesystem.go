package objectfs

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/mwantia/afs/backend"
	"github.com/mwantia/afs/data"
	"github.com/mwantia/afs/log"
	"golang.org/x/time/rate"
)

// maxLinkDepth bounds symlink resolution.
const maxLinkDepth = 40

// FileSystem implements backend.FileSystem on top of any ObjectStorageBackend.
// Directories are explicit records, parents are checked before every mutation
// and namespace changes are serialized by mu.
type FileSystem struct {
	mu  sync.Mutex
	log *log.Logger

	store   backend.ObjectStorageBackend
	options *Options
	locks   *lockTable

	cache   *lru.Cache[string, *data.ObjectStat]
	limiter *rate.Limiter
}

var (
	_ backend.FileSystem = (*FileSystem)(nil)
	_ backend.Backend    = (*FileSystem)(nil)
)

// New wraps store into a FileSystem. The store is opened by Open.
func New(store backend.ObjectStorageBackend, opts ...Option) (*FileSystem, error) {
	if store == nil {
		return nil, fmt.Errorf("%w: nil object store", data.ErrInvalid)
	}

	options := newDefaultOptions()
	for _, opt := range opts {
		if err := opt(options); err != nil {
			return nil, err
		}
	}

	fs := &FileSystem{
		log:     options.Logger.Named(store.Name()),
		store:   store,
		options: options,
		locks:   newLockTable(),
	}

	if options.CacheSize > 0 {
		cache, err := lru.New[string, *data.ObjectStat](options.CacheSize)
		if err != nil {
			return nil, err
		}
		fs.cache = cache
	}

	if options.RateLimit > 0 {
		fs.limiter = rate.NewLimiter(options.RateLimit, options.RateBurst)
	}

	return fs, nil
}

// Name returns the identifier name of the underlying store.
func (fs *FileSystem) Name() string {
	return fs.store.Name()
}

// Open opens the underlying store and creates the root directory if missing.
func (fs *FileSystem) Open(ctx context.Context) error {
	if err := fs.store.Open(ctx); err != nil {
		fs.log.Error("Open: failed to open store - %v", err)
		return err
	}

	if _, err := fs.head(ctx, ""); err == nil {
		return nil
	} else if !errors.Is(err, data.ErrNotExist) {
		return err
	}

	fs.log.Debug("Open: creating root directory")
	root := data.NewObjectStat("", data.FileTypeDirectory, fs.options.RootPerm)
	root.UID = fs.options.UID
	root.GID = fs.options.GID

	if _, err := fs.create(ctx, root); err != nil && !errors.Is(err, data.ErrExist) {
		return err
	}
	return nil
}

// Close closes the underlying store.
func (fs *FileSystem) Close(ctx context.Context) error {
	if fs.cache != nil {
		fs.cache.Purge()
	}
	return fs.store.Close(ctx)
}

// GetCapabilities extends the store capabilities with the emulated features.
func (fs *FileSystem) GetCapabilities() *backend.Capabilities {
	return fs.store.GetCapabilities().With(
		backend.CapabilityFileSystem,
		backend.CapabilityDirectories,
		backend.CapabilitySymlinks,
		backend.CapabilityLocking,
		backend.CapabilityOwnership,
	)
}

// Store returns the wrapped object store.
func (fs *FileSystem) Store() backend.ObjectStorageBackend {
	return fs.store
}

func (fs *FileSystem) ListDirectory(ctx context.Context, path string) (backend.DirectoryIterator, error) {
	key, stat, err := fs.resolve(ctx, data.ToObjectKey(path), true)
	if err != nil {
		fs.log.Debug("ListDirectory: failed to resolve %s - %v", path, err)
		return nil, err
	}
	if !stat.IsDir() {
		return nil, data.ErrNotDirectory
	}

	// Detach from the caller, entries are loaded on the first read
	ctx = context.WithoutCancel(ctx)
	return backend.NewLazyIterator(func() ([]string, error) {
		fs.log.Debug("ListDirectory: loading entries of %q", key)
		names, err := fs.list(ctx, key)
		if err != nil {
			return nil, err
		}
		slices.Sort(names)
		return names, nil
	}), nil
}

func (fs *FileSystem) CreateDirectory(ctx context.Context, path string, perm data.Permissions, recursive bool) error {
	if fs.options.ReadOnly {
		return data.ErrPermission
	}

	key := data.ToObjectKey(path)
	if key == "" {
		return data.ErrExist
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()

	if _, err := fs.head(ctx, key); err == nil {
		return data.ErrExist
	} else if !errors.Is(err, data.ErrNotExist) {
		return err
	}

	// Collect missing ancestors first, so nothing is created if one of them is a file
	missing := []string{key}
	for parent := data.ParentKey(key); ; parent = data.ParentKey(parent) {
		stat, err := fs.head(ctx, parent)
		if err == nil {
			if !stat.IsDir() {
				return data.ErrNotDirectory
			}
			break
		}
		if !errors.Is(err, data.ErrNotExist) {
			return err
		}
		if !recursive {
			return data.ErrNotExist
		}
		missing = append(missing, parent)
	}

	for i := len(missing) - 1; i >= 0; i-- {
		fs.log.Debug("CreateDirectory: creating %q", missing[i])
		stat := data.NewObjectStat(missing[i], data.FileTypeDirectory, perm)
		stat.UID = fs.options.UID
		stat.GID = fs.options.GID

		if _, err := fs.create(ctx, stat); err != nil {
			fs.log.Error("CreateDirectory: failed to create %q - %v", missing[i], err)
			return errors.Join(err, fs.removeCreated(ctx, missing[i+1:]))
		}
	}

	return nil
}

// removeCreated deletes the directories of a failed CreateDirectory, deepest first.
// MUST be called while holding fs.mu.
func (fs *FileSystem) removeCreated(ctx context.Context, created []string) error {
	ctx = context.WithoutCancel(ctx)

	errs := data.Errors{}
	for _, key := range created {
		fs.log.Debug("CreateDirectory: removing %q", key)
		if err := fs.delete(ctx, key); err != nil {
			fs.log.Error("CreateDirectory: failed to remove %q - %v", key, err)
			errs.Add(err)
		}
	}
	return errs.Errors()
}

func (fs *FileSystem) RemoveDirectory(ctx context.Context, path string) error {
	if fs.options.ReadOnly {
		return data.ErrPermission
	}

	key := data.ToObjectKey(path)
	if key == "" {
		return data.ErrPermission
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()

	stat, err := fs.head(ctx, key)
	if err != nil {
		return err
	}
	if !stat.IsDir() {
		return data.ErrNotDirectory
	}

	children, err := fs.list(ctx, key)
	if err != nil {
		return err
	}
	if len(children) > 0 {
		return data.ErrDirectoryNotEmpty
	}

	fs.log.Debug("RemoveDirectory: removing %q", key)
	return fs.delete(ctx, key)
}

func (fs *FileSystem) Rename(ctx context.Context, oldPath, newPath string) error {
	if fs.options.ReadOnly {
		return data.ErrPermission
	}

	oldKey := data.ToObjectKey(oldPath)
	newKey := data.ToObjectKey(newPath)
	if oldKey == "" || newKey == "" {
		return data.ErrPermission
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()

	source, err := fs.head(ctx, oldKey)
	if err != nil {
		return err
	}
	if oldKey == newKey {
		return nil
	}
	if source.IsDir() && data.HasKeyPrefix(newKey, oldKey) {
		return fmt.Errorf("%w: cannot move %q below itself", data.ErrInvalid, oldKey)
	}

	parent, err := fs.head(ctx, data.ParentKey(newKey))
	if err != nil {
		return err
	}
	if !parent.IsDir() {
		return data.ErrNotDirectory
	}

	target, err := fs.head(ctx, newKey)
	switch {
	case errors.Is(err, data.ErrNotExist):
	case err != nil:
		return err
	case source.IsDir() && !target.IsDir():
		return data.ErrNotDirectory
	case !source.IsDir() && target.IsDir():
		return data.ErrIsDirectory
	case target.IsDir():
		children, err := fs.list(ctx, newKey)
		if err != nil {
			return err
		}
		if len(children) > 0 {
			return data.ErrDirectoryNotEmpty
		}
	}

	fs.log.Debug("Rename: moving %q to %q", oldKey, newKey)
	if err := fs.wait(ctx); err != nil {
		return err
	}
	err = fs.store.RenameObject(ctx, oldKey, newKey)
	// Every key below both paths may have changed
	fs.invalidateAll()
	if err != nil {
		fs.log.Error("Rename: failed to move %q to %q - %v", oldKey, newKey, err)
	}
	return err
}

func (fs *FileSystem) Delete(ctx context.Context, path string) error {
	if fs.options.ReadOnly {
		return data.ErrPermission
	}

	key := data.ToObjectKey(path)

	fs.mu.Lock()
	defer fs.mu.Unlock()

	stat, err := fs.head(ctx, key)
	if err != nil {
		return err
	}
	if stat.IsDir() {
		return data.ErrIsDirectory
	}

	fs.log.Debug("Delete: removing %q", key)
	return fs.delete(ctx, key)
}

func (fs *FileSystem) OpenFile(ctx context.Context, path string, mode data.FileOpenMode, opts backend.OpenOptions) (backend.OpenFile, error) {
	if opts.UseSearchPath {
		return nil, fmt.Errorf("%w: search path lookup", data.ErrUnsupported)
	}
	if fs.options.ReadOnly && mode.Writable() {
		return nil, data.ErrPermission
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()

	key, stat, err := fs.resolve(ctx, data.ToObjectKey(path), true)
	switch {
	case err == nil:
		if mode.FailsIfExists() {
			return nil, data.ErrExist
		}
		if stat.IsDir() {
			return nil, data.ErrIsDirectory
		}
		if mode.TruncatesExisting() && stat.Size > 0 {
			fs.log.Debug("OpenFile: truncating %q", key)
			if err := fs.truncate(ctx, key, 0); err != nil {
				return nil, err
			}
		}

	case errors.Is(err, data.ErrNotExist):
		if mode.RequiresExisting() {
			return nil, err
		}
		if err := fs.checkParent(ctx, key); err != nil {
			return nil, err
		}

		fs.log.Debug("OpenFile: creating %q", key)
		stat = data.NewObjectStat(key, data.FileTypeFile, fs.options.FilePerm)
		stat.UID = fs.options.UID
		stat.GID = fs.options.GID
		if _, err := fs.create(ctx, stat); err != nil {
			return nil, err
		}

	default:
		return nil, err
	}

	fs.log.Debug("OpenFile: opened %q with mode %s", key, mode)
	return newFile(ctx, fs, key, mode), nil
}

func (fs *FileSystem) SetLastModified(ctx context.Context, path string, mtime, atime time.Time) error {
	if fs.options.ReadOnly {
		return data.ErrPermission
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()

	key, _, err := fs.resolve(ctx, data.ToObjectKey(path), true)
	if errors.Is(err, data.ErrNotExist) {
		if err := fs.checkParent(ctx, key); err != nil {
			return err
		}

		stat := data.NewObjectStat(key, data.FileTypeFile, fs.options.FilePerm)
		stat.UID = fs.options.UID
		stat.GID = fs.options.GID
		if _, err := fs.create(ctx, stat); err != nil {
			return err
		}
	} else if err != nil {
		return err
	}

	return fs.update(ctx, key, &data.ObjectUpdate{
		Mask: data.ObjectUpdateModifyTime | data.ObjectUpdateAccessTime,
		Stat: &data.ObjectStat{ModifyTime: mtime, AccessTime: atime},
	})
}

func (fs *FileSystem) SetOwner(ctx context.Context, path string, owner data.Principal) error {
	uid, err := backend.ResolvePrincipal(owner, fs.options.LookupUser)
	if err != nil {
		return err
	}

	return fs.setMetadata(ctx, path, &data.ObjectUpdate{
		Mask: data.ObjectUpdateUID,
		Stat: &data.ObjectStat{UID: uid},
	})
}

func (fs *FileSystem) SetGroup(ctx context.Context, path string, group data.Principal) error {
	gid, err := backend.ResolvePrincipal(group, fs.options.LookupGroup)
	if err != nil {
		return err
	}

	return fs.setMetadata(ctx, path, &data.ObjectUpdate{
		Mask: data.ObjectUpdateGID,
		Stat: &data.ObjectStat{GID: gid},
	})
}

func (fs *FileSystem) SetPermissions(ctx context.Context, path string, perm data.Permissions) error {
	return fs.setMetadata(ctx, path, &data.ObjectUpdate{
		Mask: data.ObjectUpdateMode,
		Stat: &data.ObjectStat{Mode: data.ModeWord(data.FileTypeFile, perm)},
	})
}

func (fs *FileSystem) GetAttributes(ctx context.Context, path string, followSymlinks bool) (*data.FileAttributes, error) {
	_, stat, err := fs.resolve(ctx, data.ToObjectKey(path), followSymlinks)
	if err != nil {
		return nil, err
	}

	attrs := stat.ToAttributes(fs.options.Device)
	if stat.IsDir() {
		attrs.Links = 2
	}
	return attrs, nil
}

// Symlink creates a symbolic link at path pointing to target.
func (fs *FileSystem) Symlink(ctx context.Context, target, path string) error {
	if fs.options.ReadOnly {
		return data.ErrPermission
	}

	key := data.ToObjectKey(path)

	fs.mu.Lock()
	defer fs.mu.Unlock()

	if err := fs.checkParent(ctx, key); err != nil {
		return err
	}

	stat := data.NewObjectStat(key, data.FileTypeSymlink, data.DecodePermissions(0o777))
	stat.UID = fs.options.UID
	stat.GID = fs.options.GID
	stat.Target = target

	_, err := fs.create(ctx, stat)
	return err
}

// ReadLink returns the target of the symbolic link at path.
func (fs *FileSystem) ReadLink(ctx context.Context, path string) (string, error) {
	stat, err := fs.head(ctx, data.ToObjectKey(path))
	if err != nil {
		return "", err
	}
	if stat.Type() != data.FileTypeSymlink {
		return "", fmt.Errorf("%w: not a symbolic link", data.ErrInvalid)
	}
	return stat.Target, nil
}

func (fs *FileSystem) setMetadata(ctx context.Context, path string, update *data.ObjectUpdate) error {
	if fs.options.ReadOnly {
		return data.ErrPermission
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()

	key, _, err := fs.resolve(ctx, data.ToObjectKey(path), true)
	if err != nil {
		return err
	}

	return fs.update(ctx, key, update)
}

// resolve returns the record of key, following symbolic links when requested.
// The returned key is the key of the final record.
func (fs *FileSystem) resolve(ctx context.Context, key string, follow bool) (string, *data.ObjectStat, error) {
	for depth := 0; ; depth++ {
		stat, err := fs.head(ctx, key)
		if err != nil {
			return key, nil, err
		}
		if !follow || stat.Type() != data.FileTypeSymlink {
			return key, stat, nil
		}
		if depth >= maxLinkDepth {
			return key, nil, data.ErrLinkLoop
		}

		target := stat.Target
		if len(target) == 0 || target[0] != '/' {
			target = data.JoinKey(data.ParentKey(key), target)
		}
		key = data.ToObjectKey(target)
	}
}

// checkParent verifies that the parent of key exists and is a directory.
func (fs *FileSystem) checkParent(ctx context.Context, key string) error {
	if key == "" {
		return data.ErrExist
	}

	parent, err := fs.head(ctx, data.ParentKey(key))
	if err != nil {
		return err
	}
	if !parent.IsDir() {
		return data.ErrNotDirectory
	}
	return nil
}

// The helpers below are the only places touching the store.
// They apply the rate limit and keep the stat cache consistent.

func (fs *FileSystem) wait(ctx context.Context) error {
	if fs.limiter == nil {
		return nil
	}
	return fs.limiter.Wait(ctx)
}

func (fs *FileSystem) invalidate(key string) {
	if fs.cache != nil {
		fs.cache.Remove(key)
	}
}

func (fs *FileSystem) invalidateAll() {
	if fs.cache != nil {
		fs.cache.Purge()
	}
}

func (fs *FileSystem) head(ctx context.Context, key string) (*data.ObjectStat, error) {
	if fs.cache != nil {
		if stat, ok := fs.cache.Get(key); ok {
			return stat.Clone(), nil
		}
	}

	if err := fs.wait(ctx); err != nil {
		return nil, err
	}

	stat, err := fs.store.HeadObject(ctx, key)
	if err != nil {
		return nil, err
	}

	if fs.cache != nil {
		fs.cache.Add(key, stat.Clone())
	}
	return stat, nil
}

func (fs *FileSystem) list(ctx context.Context, key string) ([]string, error) {
	if err := fs.wait(ctx); err != nil {
		return nil, err
	}
	return fs.store.ListObjects(ctx, key)
}

func (fs *FileSystem) create(ctx context.Context, stat *data.ObjectStat) (*data.ObjectStat, error) {
	if err := fs.wait(ctx); err != nil {
		return nil, err
	}

	fs.invalidate(stat.Key)
	return fs.store.CreateObject(ctx, stat.Key, stat)
}

func (fs *FileSystem) delete(ctx context.Context, key string) error {
	if err := fs.wait(ctx); err != nil {
		return err
	}

	defer fs.invalidate(key)
	return fs.store.DeleteObject(ctx, key)
}

func (fs *FileSystem) update(ctx context.Context, key string, update *data.ObjectUpdate) error {
	if err := fs.wait(ctx); err != nil {
		return err
	}

	defer fs.invalidate(key)
	return fs.store.UpdateObject(ctx, key, update)
}

func (fs *FileSystem) read(ctx context.Context, key string, offset int64, buf []byte) (int, error) {
	if err := fs.wait(ctx); err != nil {
		return 0, err
	}
	return fs.store.ReadObject(ctx, key, offset, buf)
}

func (fs *FileSystem) write(ctx context.Context, key string, offset int64, buf []byte) (int, error) {
	caps := fs.store.GetCapabilities()
	if end := offset + int64(len(buf)); caps.MaxObjectSize > 0 && end > caps.MaxObjectSize {
		return 0, fmt.Errorf("%w: %d bytes exceeds maximum of %d bytes", data.ErrTooLarge, end, caps.MaxObjectSize)
	}

	if err := fs.wait(ctx); err != nil {
		return 0, err
	}

	defer fs.invalidate(key)
	return fs.store.WriteObject(ctx, key, offset, buf)
}

func (fs *FileSystem) truncate(ctx context.Context, key string, size int64) error {
	caps := fs.store.GetCapabilities()
	if caps.MaxObjectSize > 0 && size > caps.MaxObjectSize {
		return fmt.Errorf("%w: %d bytes exceeds maximum of %d bytes", data.ErrTooLarge, size, caps.MaxObjectSize)
	}

	if err := fs.wait(ctx); err != nil {
		return err
	}

	defer fs.invalidate(key)
	return fs.store.TruncateObject(ctx, key, size)
}
