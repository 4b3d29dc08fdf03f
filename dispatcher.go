package afs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mwantia/afs/backend"
	"github.com/mwantia/afs/data"
	"github.com/mwantia/afs/log"
)

// Dispatcher translates host I/O calls addressed by mount URL into calls on
// the mounted filesystems. It holds at most one open directory iterator and
// one open stream; opening another closes the previous one.
//
// A Dispatcher is a single session and is not safe for concurrent use.
// Callers needing parallel sessions create one dispatcher each.
type Dispatcher struct {
	registry *Registry
	log      *log.Logger

	dir      backend.DirectoryIterator
	dirFlags Flag

	stream      backend.OpenFile
	streamURL   string
	streamFlags Flag
}

// report applies the error policy: failures are returned when flags carries
// OptionReportErrors and dropped otherwise. data.ErrClosed is always returned.
func (d *Dispatcher) report(op string, flags Flag, err error) error {
	if err == nil {
		return nil
	}
	if flags.Has(OptionReportErrors) || errors.Is(err, data.ErrClosed) {
		return err
	}

	d.log.Debug("%s: %v", op, err)
	return nil
}

// Close releases the open stream and directory of this session.
func (d *Dispatcher) Close() error {
	errs := data.Errors{}
	if _, err := d.DirClose(); err != nil {
		errs.Add(err)
	}
	if err := d.StreamClose(); err != nil {
		errs.Add(err)
	}
	return errs.Errors()
}

// Mkdir creates the directory at url with the permission word perm.
func (d *Dispatcher) Mkdir(ctx context.Context, url string, perm uint16, flags Flag) (bool, error) {
	d.log.Debug("Mkdir: %s (%04o)", url, perm)

	fs, _, path, err := d.registry.resolveURL(url)
	if err == nil {
		err = fs.CreateDirectory(ctx, path, data.DecodePermissions(perm), flags.Has(OptionMkdirRecursive))
	}
	if err != nil {
		return false, d.report("Mkdir", flags, err)
	}
	return true, nil
}

// Rmdir removes the empty directory at url.
func (d *Dispatcher) Rmdir(ctx context.Context, url string, flags Flag) (bool, error) {
	d.log.Debug("Rmdir: %s", url)

	fs, _, path, err := d.registry.resolveURL(url)
	if err == nil {
		err = fs.RemoveDirectory(ctx, path)
	}
	if err != nil {
		return false, d.report("Rmdir", flags, err)
	}
	return true, nil
}

// Rename moves from to to. Both URLs must address the same mount.
// Failures are always returned.
func (d *Dispatcher) Rename(ctx context.Context, from, to string) (bool, error) {
	d.log.Debug("Rename: %s -> %s", from, to)

	fs, fromID, fromPath, err := d.registry.resolveURL(from)
	if err != nil {
		return false, err
	}

	_, toID, toPath, err := d.registry.resolveURL(to)
	if err != nil {
		return false, err
	}
	if toID != fromID {
		return false, fmt.Errorf("%w: rename across mounts %d and %d", data.ErrUnsupported, fromID, toID)
	}

	if err := fs.Rename(ctx, fromPath, toPath); err != nil {
		return false, err
	}
	return true, nil
}

// Unlink removes the file at url. Failures are always returned.
func (d *Dispatcher) Unlink(ctx context.Context, url string) (bool, error) {
	d.log.Debug("Unlink: %s", url)

	fs, _, path, err := d.registry.resolveURL(url)
	if err != nil {
		return false, err
	}

	if err := fs.Delete(ctx, path); err != nil {
		return false, err
	}
	return true, nil
}

// URLStat returns the flat attribute map of url, following symlinks unless
// flags carries OptionURLStatLink. With OptionURLStatQuiet a failure yields
// a nil map and no error. A nil map with a nil error also means the backend
// cannot describe the path.
func (d *Dispatcher) URLStat(ctx context.Context, url string, flags Flag) (data.FlatMap, error) {
	d.log.Debug("URLStat: %s", url)

	fs, _, path, err := d.registry.resolveURL(url)
	if err != nil {
		return nil, d.quiet("URLStat", flags, err)
	}

	attrs, err := fs.GetAttributes(ctx, path, !flags.Has(OptionURLStatLink))
	if err != nil {
		return nil, d.quiet("URLStat", flags, err)
	}
	if attrs == nil {
		return nil, nil
	}
	return attrs.ToFlatMap(), nil
}

func (d *Dispatcher) quiet(op string, flags Flag, err error) error {
	if flags.Has(OptionURLStatQuiet) {
		d.log.Debug("%s: %v", op, err)
		return nil
	}
	return err
}

// StreamMetadata changes metadata of url selected by option.
// Unknown options fail with data.ErrUnsupported, values of the wrong type
// with data.ErrInvalid. Failures are always returned.
func (d *Dispatcher) StreamMetadata(ctx context.Context, url string, option MetaOption, value any) (bool, error) {
	d.log.Debug("StreamMetadata: %s option=%d", url, option)

	fs, _, path, err := d.registry.resolveURL(url)
	if err != nil {
		return false, err
	}

	if err := applyMetadata(ctx, fs, path, option, value); err != nil {
		return false, err
	}
	return true, nil
}

func applyMetadata(ctx context.Context, fs backend.FileSystem, path string, option MetaOption, value any) error {
	switch option {
	case MetaTouch:
		var times TouchTimes
		switch v := value.(type) {
		case nil:
		case TouchTimes:
			times = v
		case [2]int64:
			times = TouchTimes{
				Modified: time.Unix(v[0], 0),
				Accessed: time.Unix(v[1], 0),
			}
		default:
			return fmt.Errorf("%w: touch value %T", data.ErrInvalid, value)
		}
		mtime, atime := times.resolve()
		return fs.SetLastModified(ctx, path, mtime, atime)

	case MetaOwner, MetaGroup:
		id, ok := toInt64(value)
		if !ok {
			return fmt.Errorf("%w: principal id %T", data.ErrInvalid, value)
		}
		if option == MetaOwner {
			return fs.SetOwner(ctx, path, data.Principal{ID: id})
		}
		return fs.SetGroup(ctx, path, data.Principal{ID: id})

	case MetaOwnerName, MetaGroupName:
		name, ok := value.(string)
		if !ok || name == "" {
			return fmt.Errorf("%w: principal name %v", data.ErrInvalid, value)
		}
		if option == MetaOwnerName {
			return fs.SetOwner(ctx, path, data.Principal{Name: name})
		}
		return fs.SetGroup(ctx, path, data.Principal{Name: name})

	case MetaAccess:
		if perm, ok := value.(data.Permissions); ok {
			return fs.SetPermissions(ctx, path, perm)
		}
		word, ok := toInt64(value)
		if !ok || word < 0 || word > 0o7777 {
			return fmt.Errorf("%w: permission word %v", data.ErrInvalid, value)
		}
		return fs.SetPermissions(ctx, path, data.DecodePermissions(uint16(word)))
	}

	return fmt.Errorf("%w: metadata option %d", data.ErrUnsupported, int(option))
}
