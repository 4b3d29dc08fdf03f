package builtin

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/mwantia/afs"
	"github.com/mwantia/afs/cmd"
)

type LsCommand struct {
}

// Name returns the command identifier
func (ls *LsCommand) Name() string {
	return "ls"
}

// Description returns human-readable help text
func (ls *LsCommand) Description() string {
	return "List directory contents"
}

// Usage returns a usage string for help (e.g. "ls -al [path]")
func (ls *LsCommand) Usage() string {
	return "ls [-l] [-a] [-h] [path...]"
}

// Execute runs the command with parsed arguments
// Returns exit code (0 = success) and error message
func (ls *LsCommand) Execute(ctx context.Context, api cmd.API, args *cmd.CommandArgs, writer io.Writer) (int, error) {
	paths := args.Args
	if len(paths) == 0 {
		paths = []string{"/"}
	}

	for i, p := range paths {
		stat, err := statPath(ctx, api, p, true)
		if err != nil {
			return 1, fmt.Errorf("ls: %w", err)
		}

		if !modeOf(stat).IsDir() {
			if err := ls.print(ctx, api, args, writer, p, p); err != nil {
				return 1, err
			}
			continue
		}

		if len(paths) > 1 {
			if i > 0 {
				fmt.Fprintln(writer)
			}
			fmt.Fprintf(writer, "%s:\n", p)
		}

		names, err := ls.readDir(ctx, api, p)
		if err != nil {
			return 1, fmt.Errorf("ls: %w", err)
		}

		for _, name := range names {
			if strings.HasPrefix(name, ".") && !args.Bool("all") {
				continue
			}
			if err := ls.print(ctx, api, args, writer, joinPath(p, name), name); err != nil {
				return 1, err
			}
		}
	}

	return 0, nil
}

func (ls *LsCommand) readDir(ctx context.Context, api cmd.API, p string) ([]string, error) {
	if _, err := api.DirOpen(ctx, api.URL(p), afs.OptionReportErrors); err != nil {
		return nil, err
	}
	defer api.DirClose()

	var names []string
	for {
		name, ok, err := api.DirRead()
		if err != nil {
			return nil, err
		}
		if !ok {
			return names, nil
		}
		names = append(names, name)
	}
}

func (ls *LsCommand) print(ctx context.Context, api cmd.API, args *cmd.CommandArgs, writer io.Writer, p, name string) error {
	if !args.Bool("long") {
		fmt.Fprintln(writer, name)
		return nil
	}

	stat, err := statPath(ctx, api, p, false)
	if err != nil {
		return fmt.Errorf("ls: %w", err)
	}

	size := fmt.Sprintf("%d", stat["size"])
	if args.Bool("human") {
		size = humanize.IBytes(uint64(max(stat["size"], 0)))
	}

	modified := time.Unix(stat["mtime"], 0).Format("Jan _2 15:04")
	fmt.Fprintf(writer, "%s %3d %5d %5d %8s %s %s\n",
		modeOf(stat), stat["nlink"], stat["uid"], stat["gid"], size, modified, name)
	return nil
}

// GetFlags returns the flag set for this command (this is optional)
func (ls *LsCommand) GetFlags() *cmd.CommandFlagSet {
	return cmd.NewFlagSet(
		&cmd.CommandFlag{Name: "long", Short: "l", Type: "bool", Description: "use a long listing format"},
		&cmd.CommandFlag{Name: "all", Short: "a", Type: "bool", Description: "do not ignore entries starting with ."},
		&cmd.CommandFlag{Name: "human", Short: "h", Type: "bool", Description: "print sizes like 1.0 KiB"},
	)
}
