//go:build linux || darwin || freebsd

package local

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"

	"github.com/mwantia/afs/backend"
	"github.com/mwantia/afs/data"
	"github.com/mwantia/afs/log"
)

// LocalBackend exposes a directory of the host filesystem.
// Paths are confined lexically to the root; symbolic links inside the root
// are followed by the operating system and may point outside of it.
type LocalBackend struct {
	log  *log.Logger
	root string

	options *Options
}

var (
	_ backend.FileSystem = (*LocalBackend)(nil)
	_ backend.Backend    = (*LocalBackend)(nil)
)

type Options struct {
	Logger   *log.Logger
	ReadOnly bool

	LookupUser  backend.PrincipalLookup
	LookupGroup backend.PrincipalLookup
}

type Option func(*Options) error

func newDefaultOptions() *Options {
	return &Options{
		Logger:      log.NewDiscard(),
		LookupUser:  backend.LookupUser,
		LookupGroup: backend.LookupGroup,
	}
}

// WithLogger sets the logger used for operation traces.
func WithLogger(logger *log.Logger) Option {
	return func(o *Options) error {
		if logger == nil {
			return fmt.Errorf("%w: nil logger", data.ErrInvalid)
		}
		o.Logger = logger
		return nil
	}
}

// AsReadOnly rejects every mutating operation with data.ErrPermission.
func AsReadOnly() Option {
	return func(o *Options) error {
		o.ReadOnly = true
		return nil
	}
}

func NewLocalBackend(root string, opts ...Option) (*LocalBackend, error) {
	if root == "" {
		return nil, fmt.Errorf("%w: empty root", data.ErrInvalid)
	}

	options := newDefaultOptions()
	for _, opt := range opts {
		if err := opt(options); err != nil {
			return nil, err
		}
	}

	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}

	return &LocalBackend{
		log:     options.Logger.Named("local"),
		root:    abs,
		options: options,
	}, nil
}

// Returns the identifier name defined for this backend
func (*LocalBackend) Name() string {
	return "local"
}

// Open is part of the lifecycle behaviour and gets called when opening this backend.
func (lb *LocalBackend) Open(ctx context.Context) error {
	// Verify the root directory exists
	info, err := os.Stat(lb.root)
	if err != nil {
		lb.log.Error("Open: failed to stat root %s - %v", lb.root, err)
		return mapError(err)
	}

	// Ensure the root is a directory
	if !info.IsDir() {
		return data.ErrNotDirectory
	}

	return nil
}

// Close is part of the lifecycle behaviour and gets called when closing this backend.
func (lb *LocalBackend) Close(ctx context.Context) error {
	// The underlying filesystem persists independently
	return nil
}

// GetCapabilities returns a list of capabilities supported by this backend.
func (lb *LocalBackend) GetCapabilities() *backend.Capabilities {
	return backend.NewCapabilities(
		backend.CapabilityFileSystem,
		backend.CapabilityDirectories,
		backend.CapabilitySymlinks,
		backend.CapabilityLocking,
		backend.CapabilityNativeHandle,
		backend.CapabilityOwnership,
		backend.CapabilityAtomicRename,
	)
}

// Root returns the absolute host path of the backend root.
func (lb *LocalBackend) Root() string {
	return lb.root
}

// resolvePath maps a slash separated path onto the host path below root.
func (lb *LocalBackend) resolvePath(p string) string {
	return filepath.Join(lb.root, filepath.FromSlash(path.Clean("/"+p)))
}

func (lb *LocalBackend) checkWritable() error {
	if lb.options.ReadOnly {
		return data.ErrPermission
	}
	return nil
}
