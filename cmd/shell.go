package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"sort"
	"sync"

	"github.com/mwantia/afs"
	"github.com/mwantia/afs/data"
	"github.com/mwantia/afs/log"
)

// ErrUnknownCommand is returned by Execute for names that are not registered.
var ErrUnknownCommand = errors.New("afs: unknown command")

// session binds a dispatcher to one mount.
type session struct {
	*afs.Dispatcher
	mount *afs.MountHandle
}

func (s *session) URL(p string) string {
	return s.mount.URL(path.Clean("/" + p))
}

// Shell runs commands against a single mount through its own dispatcher session.
// Commands of one shell run one at a time.
type Shell struct {
	mu sync.Mutex

	log     *log.Logger
	session *session
	cmds    map[string]Command
}

func NewShell(registry *afs.Registry, mount *afs.MountHandle, logger *log.Logger) *Shell {
	if logger == nil {
		logger = log.NewDiscard()
	}

	return &Shell{
		log: logger,
		session: &session{
			Dispatcher: registry.NewDispatcher(),
			mount:      mount,
		},
		cmds: make(map[string]Command),
	}
}

// RegisterCommand adds cmd, failing with data.ErrExist if the name is taken.
func (sh *Shell) RegisterCommand(cmd Command) error {
	sh.mu.Lock()
	defer sh.mu.Unlock()

	if _, exists := sh.cmds[cmd.Name()]; exists {
		return fmt.Errorf("command '%s': %w", cmd.Name(), data.ErrExist)
	}

	sh.cmds[cmd.Name()] = cmd
	return nil
}

// UnregisterCommand removes the command name and reports whether it was registered.
func (sh *Shell) UnregisterCommand(name string) bool {
	sh.mu.Lock()
	defer sh.mu.Unlock()

	if _, exists := sh.cmds[name]; !exists {
		return false
	}

	delete(sh.cmds, name)
	return true
}

// Commands returns the registered commands sorted by name.
func (sh *Shell) Commands() []Command {
	sh.mu.Lock()
	defer sh.mu.Unlock()

	cmds := make([]Command, 0, len(sh.cmds))
	for _, cmd := range sh.cmds {
		cmds = append(cmds, cmd)
	}

	sort.Slice(cmds, func(i, j int) bool {
		return cmds[i].Name() < cmds[j].Name()
	})
	return cmds
}

// Execute runs a command with the given arguments, writing output to the provided writer
func (sh *Shell) Execute(ctx context.Context, writer io.Writer, args ...string) (int, error) {
	if len(args) == 0 {
		return 2, fmt.Errorf("%w: missing command", ErrUsage)
	}

	sh.mu.Lock()
	defer sh.mu.Unlock()

	cmd, exists := sh.cmds[args[0]]
	if !exists {
		return 127, fmt.Errorf("%w: %s", ErrUnknownCommand, args[0])
	}

	parsed, err := NewParser(cmd.GetFlags()).Parse(args[1:])
	if err != nil {
		return 2, fmt.Errorf("%s: %w (usage: %s)", cmd.Name(), err, cmd.Usage())
	}

	sh.log.Debug("Execute: %s %v", cmd.Name(), parsed.Args)

	// Leave no stream or directory of a failed command behind
	defer func() {
		if err := sh.session.Close(); err != nil {
			sh.log.Warn("Execute: failed to release session of '%s' - %v", cmd.Name(), err)
		}
	}()

	return cmd.Execute(ctx, sh.session, parsed, writer)
}

// Close releases the session of this shell.
func (sh *Shell) Close() error {
	sh.mu.Lock()
	defer sh.mu.Unlock()

	return sh.session.Close()
}
