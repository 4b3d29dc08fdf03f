package afs

import (
	"context"
	"fmt"

	"github.com/mwantia/afs/data"
)

// DirOpen opens the directory at url as the session directory,
// closing the previous one.
func (d *Dispatcher) DirOpen(ctx context.Context, url string, flags Flag) (bool, error) {
	d.log.Debug("DirOpen: %s", url)

	if _, err := d.DirClose(); err != nil {
		return false, err
	}

	fs, _, path, err := d.registry.resolveURL(url)
	if err != nil {
		return false, d.report("DirOpen", flags, err)
	}

	dir, err := fs.ListDirectory(ctx, path)
	if err != nil {
		return false, d.report("DirOpen", flags, err)
	}

	d.dir = dir
	d.dirFlags = flags
	return true, nil
}

// DirRead returns the next entry name; ok is false once the directory is exhausted.
func (d *Dispatcher) DirRead() (string, bool, error) {
	if d.dir == nil {
		return "", false, fmt.Errorf("directory: %w", data.ErrClosed)
	}

	name, ok, err := d.dir.Next()
	if err != nil {
		return "", false, d.report("DirRead", d.dirFlags, err)
	}
	return name, ok, nil
}

// DirRewind restarts the session directory at its first entry.
func (d *Dispatcher) DirRewind() (bool, error) {
	if d.dir == nil {
		return false, fmt.Errorf("directory: %w", data.ErrClosed)
	}

	if err := d.dir.Rewind(); err != nil {
		return false, d.report("DirRewind", d.dirFlags, err)
	}
	return true, nil
}

// DirClose releases the session directory. Closing without an open directory is a no-op.
func (d *Dispatcher) DirClose() (bool, error) {
	if d.dir == nil {
		return true, nil
	}

	dir := d.dir
	d.dir = nil

	if err := dir.Close(); err != nil {
		return false, d.report("DirClose", d.dirFlags, err)
	}
	return true, nil
}
