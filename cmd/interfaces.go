package cmd

import (
	"context"
	"io"

	"github.com/mwantia/afs"
	"github.com/mwantia/afs/data"
)

// API is the part of a dispatcher session commands work with.
// Paths given to commands are turned into mount URLs with URL.
type API interface {
	// URL returns the mount URL of an absolute path on the session mount.
	URL(path string) string

	// DirOpen opens the directory at url as the session directory.
	DirOpen(ctx context.Context, url string, flags afs.Flag) (bool, error)

	// DirRead returns the next entry name; ok is false once the directory is exhausted.
	DirRead() (string, bool, error)

	// DirClose releases the session directory.
	DirClose() (bool, error)

	// Mkdir creates the directory at url.
	Mkdir(ctx context.Context, url string, perm uint16, flags afs.Flag) (bool, error)

	// Rmdir removes the empty directory at url.
	Rmdir(ctx context.Context, url string, flags afs.Flag) (bool, error)

	// Rename moves from to to on the same mount.
	Rename(ctx context.Context, from, to string) (bool, error)

	// Unlink removes the file at url.
	Unlink(ctx context.Context, url string) (bool, error)

	// URLStat returns the flat attribute map of url.
	URLStat(ctx context.Context, url string, flags afs.Flag) (data.FlatMap, error)

	// StreamOpen opens url with a mode token as the session stream.
	StreamOpen(ctx context.Context, url, mode string, flags afs.Flag) (string, bool, error)

	// StreamRead reads up to n bytes from the session stream.
	StreamRead(n int) ([]byte, error)

	// StreamWrite writes p to the session stream.
	StreamWrite(p []byte) (int, error)

	// StreamClose closes the session stream.
	StreamClose() error

	// StreamMetadata changes metadata of url.
	StreamMetadata(ctx context.Context, url string, option afs.MetaOption, value any) (bool, error)
}

var _ API = (*session)(nil)

// Command represents an executable command within a shell session.
type Command interface {
	// Name returns the command identifier
	Name() string

	// Description returns human-readable help text
	Description() string

	// Usage returns a usage string for help (e.g. "ls -al [path]")
	Usage() string

	// Execute runs the command with parsed arguments
	// The writer parameter is where command output should be written
	// Returns exit code (0 = success) and error message
	Execute(ctx context.Context, api API, args *CommandArgs, writer io.Writer) (int, error)

	// GetFlags returns the flag set for this command (this is optional)
	GetFlags() *CommandFlagSet
}
