//go:build !(linux || darwin || freebsd)

package main

import (
	"context"
	"fmt"

	"github.com/mwantia/afs"
	"github.com/mwantia/afs/data"
)

func mountLocal(ctx context.Context, registry *afs.Registry, root string) (*afs.MountHandle, error) {
	return nil, fmt.Errorf("%w: host directory mounts on this platform, use --memory or --sqlite", data.ErrUnsupported)
}
