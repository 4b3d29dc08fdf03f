package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/mwantia/afs"
	"github.com/mwantia/afs/backend"
	"github.com/mwantia/afs/backend/memory"
	"github.com/mwantia/afs/backend/objectfs"
	"github.com/mwantia/afs/backend/sqlite"
	"github.com/mwantia/afs/cmd"
	"github.com/mwantia/afs/cmd/builtin"
	"github.com/mwantia/afs/log"
)

var flagSet = cmd.NewFlagSet(
	&cmd.CommandFlag{Name: "log-level", Type: "string", Default: "warn", Description: "debug, info, warn or error"},
	&cmd.CommandFlag{Name: "log-file", Type: "string", Description: "write logs to this rotated file instead of the terminal"},
	&cmd.CommandFlag{Name: "memory", Type: "bool", Description: "mount an empty in-memory store"},
	&cmd.CommandFlag{Name: "sqlite", Type: "string", Description: "mount the sqlite object store at this path"},
	&cmd.CommandFlag{Name: "root", Type: "string", Default: ".", Description: "host directory to mount"},
	&cmd.CommandFlag{Name: "command", Short: "c", Type: "string", Description: "run a single command and exit"},
	&cmd.CommandFlag{Name: "help", Short: "h", Type: "bool", Description: "show this help"},
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	code, err := run(ctx, os.Args[1:], os.Stdin, os.Stdout)
	if err != nil {
		fmt.Fprintf(os.Stderr, "afs: %v\n", err)
	}
	os.Exit(code)
}

func run(ctx context.Context, raw []string, in io.Reader, out io.Writer) (int, error) {
	args, err := cmd.NewParser(flagSet).Parse(raw)
	if err != nil {
		return 2, err
	}
	if args.Bool("help") {
		printHelp(out)
		return 0, nil
	}
	if len(args.Args) > 0 {
		return 2, fmt.Errorf("%w: unexpected argument '%s', use -c to run a command", cmd.ErrUsage, args.Args[0])
	}

	level, err := log.ParseLevel(args.String("log-level", "warn"))
	if err != nil {
		return 2, err
	}

	opts := []afs.RegistryOption{afs.WithLogLevel(level)}
	if file := args.String("log-file", ""); file != "" {
		opts = append(opts, afs.WithLogFile(file), afs.WithoutTerminalLog())
	}

	registry, err := afs.NewRegistry(opts...)
	if err != nil {
		return 1, err
	}
	defer registry.Close(context.Background())

	handle, err := mount(ctx, registry, args)
	if err != nil {
		return 1, err
	}
	defer handle.Release(context.Background())

	shell := cmd.NewShell(registry, handle, nil)
	defer shell.Close()

	if err := builtin.InitBuiltin(shell); err != nil {
		return 1, err
	}

	if line := args.String("command", ""); line != "" {
		return shell.Execute(ctx, out, strings.Fields(line)...)
	}
	return repl(ctx, shell, in, out)
}

func mount(ctx context.Context, registry *afs.Registry, args *cmd.CommandArgs) (*afs.MountHandle, error) {
	var store backend.ObjectStorageBackend

	switch {
	case args.Bool("memory"):
		store = memory.NewMemoryBackend()
	case args.String("sqlite", "") != "":
		db, err := sqlite.NewSQLiteBackend(args.String("sqlite", ""))
		if err != nil {
			return nil, err
		}
		store = db
	default:
		return mountLocal(ctx, registry, args.String("root", "."))
	}

	fs, err := objectfs.New(store)
	if err != nil {
		return nil, err
	}
	return registry.Mount(ctx, fs)
}

// repl executes one command per input line until the input ends.
func repl(ctx context.Context, shell *cmd.Shell, in io.Reader, out io.Writer) (int, error) {
	scanner := bufio.NewScanner(in)
	last := 0

	for scanner.Scan() {
		if ctx.Err() != nil {
			return 130, ctx.Err()
		}

		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 || strings.HasPrefix(fields[0], "#") {
			continue
		}

		if fields[0] == "help" {
			for _, command := range shell.Commands() {
				fmt.Fprintf(out, "  %-36s %s\n", command.Usage(), command.Description())
			}
			continue
		}

		code, err := shell.Execute(ctx, out, fields...)
		if err != nil {
			fmt.Fprintf(out, "%v\n", err)
		}
		last = code
	}

	if err := scanner.Err(); err != nil && !errors.Is(err, io.EOF) {
		return 1, err
	}
	return last, nil
}

func printHelp(out io.Writer) {
	fmt.Fprintln(out, "Usage: afs [options] [-c command]")
	fmt.Fprintln(out, "Reads commands from standard input unless -c is given.")
	fmt.Fprintln(out)
	for _, name := range []string{"root", "memory", "sqlite", "command", "log-level", "log-file", "help"} {
		flag := flagSet.Flags[name]
		fmt.Fprintf(out, "  --%-12s %s\n", flag.Name, flag.Description)
	}
}
