package objectfs

import (
	"fmt"

	"github.com/mwantia/afs/backend"
	"github.com/mwantia/afs/data"
	"github.com/mwantia/afs/log"
	"golang.org/x/time/rate"
)

type Options struct {
	Logger *log.Logger

	// Device id reported in attribute snapshots
	Device int64

	// Owner of objects created through this filesystem
	UID int64
	GID int64

	// Permissions of newly created files and of the root directory
	FilePerm data.Permissions
	RootPerm data.Permissions

	// Number of object records kept in the stat cache (0 disables it)
	CacheSize int

	// Store request limit (0 disables it)
	RateLimit rate.Limit
	RateBurst int

	ReadOnly bool

	LookupUser  backend.PrincipalLookup
	LookupGroup backend.PrincipalLookup
}

type Option func(*Options) error

func newDefaultOptions() *Options {
	return &Options{
		Logger:      log.NewDiscard(),
		FilePerm:    data.DecodePermissions(0o644),
		RootPerm:    data.DecodePermissions(0o755),
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

// WithDevice sets the device id reported for every entry.
func WithDevice(device int64) Option {
	return func(o *Options) error {
		o.Device = device
		return nil
	}
}

// WithOwner sets the owner of newly created entries.
func WithOwner(uid, gid int64) Option {
	return func(o *Options) error {
		o.UID = uid
		o.GID = gid
		return nil
	}
}

// WithFilePermissions sets the permissions of newly created files.
func WithFilePermissions(perm data.Permissions) Option {
	return func(o *Options) error {
		o.FilePerm = perm
		return nil
	}
}

// WithStatCache keeps up to size object records in an LRU cache.
func WithStatCache(size int) Option {
	return func(o *Options) error {
		if size < 0 {
			return fmt.Errorf("%w: negative cache size %d", data.ErrInvalid, size)
		}
		o.CacheSize = size
		return nil
	}
}

// WithRateLimit limits store requests to limit per second with the given burst.
func WithRateLimit(limit float64, burst int) Option {
	return func(o *Options) error {
		if limit <= 0 || burst <= 0 {
			return fmt.Errorf("%w: rate limit %v/%d", data.ErrInvalid, limit, burst)
		}
		o.RateLimit = rate.Limit(limit)
		o.RateBurst = burst
		return nil
	}
}

// WithPrincipalLookup replaces the user and group name resolution.
func WithPrincipalLookup(users, groups backend.PrincipalLookup) Option {
	return func(o *Options) error {
		if users != nil {
			o.LookupUser = users
		}
		if groups != nil {
			o.LookupGroup = groups
		}
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
