//go:build linux || darwin || freebsd

package main

import (
	"context"

	"github.com/mwantia/afs"
	"github.com/mwantia/afs/backend/local"
)

func mountLocal(ctx context.Context, registry *afs.Registry, root string) (*afs.MountHandle, error) {
	lb, err := local.NewLocalBackend(root)
	if err != nil {
		return nil, err
	}
	return registry.Mount(ctx, lb)
}
