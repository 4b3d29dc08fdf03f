package builtin_test

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/mwantia/afs"
	"github.com/mwantia/afs/backend/memory"
	"github.com/mwantia/afs/backend/objectfs"
	"github.com/mwantia/afs/cmd"
	"github.com/mwantia/afs/cmd/builtin"
	"github.com/mwantia/afs/data"
	"github.com/mwantia/afs/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestShell(tst *testing.T) *cmd.Shell {
	tst.Helper()

	logger := log.NewWriterLogger("test", log.Debug, tst.Output())
	registry, err := afs.NewRegistry(afs.WithLogger(logger))
	require.NoError(tst, err)

	fs, err := objectfs.New(memory.NewMemoryBackend(), objectfs.WithLogger(logger.Named("objectfs")))
	require.NoError(tst, err)

	handle, err := registry.Mount(tst.Context(), fs)
	require.NoError(tst, err)

	shell := cmd.NewShell(registry, handle, logger.Named("shell"))
	require.NoError(tst, builtin.InitBuiltin(shell))

	tst.Cleanup(func() {
		shell.Close()
		handle.Close()
		registry.Close(context.Background())
	})
	return shell
}

func run(tst *testing.T, shell *cmd.Shell, args ...string) string {
	tst.Helper()

	var out bytes.Buffer
	code, err := shell.Execute(tst.Context(), &out, args...)
	require.NoError(tst, err, args)
	require.Equal(tst, 0, code, args)
	return out.String()
}

func TestBuiltin_Registered(t *testing.T) {
	shell := newTestShell(t)

	var names []string
	for _, command := range shell.Commands() {
		names = append(names, command.Name())
		assert.NotEmpty(t, command.Usage())
		assert.NotEmpty(t, command.Description())
	}
	assert.Equal(t, []string{"cat", "chmod", "chown", "ls", "mkdir", "mv", "rm", "rmdir", "stat", "touch", "write"}, names)

	assert.ErrorIs(t, shell.RegisterCommand(&builtin.LsCommand{}), data.ErrExist)
	assert.True(t, shell.UnregisterCommand("ls"))
	assert.False(t, shell.UnregisterCommand("ls"))

	code, err := shell.Execute(t.Context(), &bytes.Buffer{}, "ls")
	assert.ErrorIs(t, err, cmd.ErrUnknownCommand)
	assert.Equal(t, 127, code)
}

func TestBuiltin_WriteAndCat(t *testing.T) {
	shell := newTestShell(t)

	run(t, shell, "write", "/a.txt", "hello", "world")
	run(t, shell, "write", "-a", "/a.txt", "again")
	assert.Equal(t, "hello world\nagain\n", run(t, shell, "cat", "/a.txt"))

	_, err := shell.Execute(t.Context(), &bytes.Buffer{}, "cat", "/missing.txt")
	assert.ErrorIs(t, err, data.ErrNotExist)
}

func TestBuiltin_Ls(t *testing.T) {
	shell := newTestShell(t)

	run(t, shell, "mkdir", "-p", "/docs/old")
	run(t, shell, "touch", "/docs/b.txt", "/docs/.hidden")
	run(t, shell, "write", "/docs/a.txt", "content")

	assert.Equal(t, "a.txt\nb.txt\nold\n", run(t, shell, "ls", "/docs"))
	assert.Equal(t, ".hidden\na.txt\nb.txt\nold\n", run(t, shell, "ls", "-a", "/docs"))
	assert.Equal(t, "/docs/a.txt\n", run(t, shell, "ls", "/docs/a.txt"))

	long := run(t, shell, "ls", "-l", "/docs")
	assert.Contains(t, long, "-rw-r--r--")
	assert.Contains(t, long, "drwxr-xr-x")
	assert.Contains(t, long, " a.txt\n")

	human := run(t, shell, "ls", "-lh", "/docs")
	assert.Contains(t, human, "8 B")
}

func TestBuiltin_StatAndMetadata(t *testing.T) {
	shell := newTestShell(t)

	run(t, shell, "touch", "-t", "1700000000", "/a.txt")
	run(t, shell, "chmod", "600", "/a.txt")
	run(t, shell, "chown", "1001:1002", "/a.txt")

	out := run(t, shell, "stat", "/a.txt")
	assert.Contains(t, out, "File: /a.txt")
	assert.Contains(t, out, "(0600/-rw-------)")
	assert.Contains(t, out, "Uid: 1001  Gid: 1002")
	assert.Contains(t, out, "Modify: "+time.Unix(1700000000, 0).Format(time.RFC3339))

	code, err := shell.Execute(t.Context(), &bytes.Buffer{}, "chmod", "999", "/a.txt")
	assert.ErrorIs(t, err, cmd.ErrUsage)
	assert.Equal(t, 2, code)

	_, err = shell.Execute(t.Context(), &bytes.Buffer{}, "chown", "afs-no-such-user", "/a.txt")
	assert.ErrorIs(t, err, data.ErrNotExist)
}

func TestBuiltin_Directories(t *testing.T) {
	shell := newTestShell(t)

	run(t, shell, "mkdir", "-m", "700", "/private")
	assert.Contains(t, run(t, shell, "stat", "/private"), "(0700/drwx------)")

	_, err := shell.Execute(t.Context(), &bytes.Buffer{}, "mkdir", "/a/b")
	assert.ErrorIs(t, err, data.ErrNotExist)

	run(t, shell, "touch", "/private/file")
	_, err = shell.Execute(t.Context(), &bytes.Buffer{}, "rmdir", "/private")
	assert.ErrorIs(t, err, data.ErrDirectoryNotEmpty)

	run(t, shell, "rm", "/private/file")
	run(t, shell, "rmdir", "/private")
	run(t, shell, "rm", "-f", "/private/file")

	_, err = shell.Execute(t.Context(), &bytes.Buffer{}, "rm", "/private/file")
	assert.ErrorIs(t, err, data.ErrNotExist)
}

func TestBuiltin_Mv(t *testing.T) {
	shell := newTestShell(t)

	run(t, shell, "write", "/a.txt", "moved")
	run(t, shell, "mkdir", "/dir")

	run(t, shell, "mv", "/a.txt", "/b.txt")
	run(t, shell, "mv", "/b.txt", "/dir")
	assert.Equal(t, "moved\n", run(t, shell, "cat", "/dir/b.txt"))
	assert.Equal(t, "dir\n", run(t, shell, "ls", "/"))

	code, err := shell.Execute(t.Context(), &bytes.Buffer{}, "mv", "/dir/b.txt")
	assert.ErrorIs(t, err, cmd.ErrUsage)
	assert.Equal(t, 2, code)
}
