package builtin

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/mwantia/afs"
	"github.com/mwantia/afs/cmd"
	"github.com/mwantia/afs/data"
)

type RmCommand struct {
}

func (*RmCommand) Name() string {
	return "rm"
}

func (*RmCommand) Description() string {
	return "Remove files"
}

func (*RmCommand) Usage() string {
	return "rm [-f] path..."
}

func (rc *RmCommand) Execute(ctx context.Context, api cmd.API, args *cmd.CommandArgs, writer io.Writer) (int, error) {
	if err := requireArgs(rc, args, 1); err != nil {
		return 2, err
	}

	for _, p := range args.Args {
		_, err := api.Unlink(ctx, api.URL(p))
		if errors.Is(err, data.ErrNotExist) && args.Bool("force") {
			continue
		}
		if err != nil {
			return 1, fmt.Errorf("rm: %s: %w", p, err)
		}
	}
	return 0, nil
}

func (*RmCommand) GetFlags() *cmd.CommandFlagSet {
	return cmd.NewFlagSet(
		&cmd.CommandFlag{Name: "force", Short: "f", Type: "bool", Description: "ignore nonexistent files"},
	)
}

type RmdirCommand struct {
}

func (*RmdirCommand) Name() string {
	return "rmdir"
}

func (*RmdirCommand) Description() string {
	return "Remove empty directories"
}

func (*RmdirCommand) Usage() string {
	return "rmdir path..."
}

func (rc *RmdirCommand) Execute(ctx context.Context, api cmd.API, args *cmd.CommandArgs, writer io.Writer) (int, error) {
	if err := requireArgs(rc, args, 1); err != nil {
		return 2, err
	}

	for _, p := range args.Args {
		if _, err := api.Rmdir(ctx, api.URL(p), afs.OptionReportErrors); err != nil {
			return 1, fmt.Errorf("rmdir: %s: %w", p, err)
		}
	}
	return 0, nil
}

func (*RmdirCommand) GetFlags() *cmd.CommandFlagSet {
	return nil
}

type MvCommand struct {
}

func (*MvCommand) Name() string {
	return "mv"
}

func (*MvCommand) Description() string {
	return "Move or rename a file"
}

func (*MvCommand) Usage() string {
	return "mv source target"
}

func (mc *MvCommand) Execute(ctx context.Context, api cmd.API, args *cmd.CommandArgs, writer io.Writer) (int, error) {
	if len(args.Args) != 2 {
		return 2, fmt.Errorf("%w: usage: %s", cmd.ErrUsage, mc.Usage())
	}

	source, target := args.Args[0], args.Args[1]

	// Moving into an existing directory keeps the name
	if stat, err := statPath(ctx, api, target, true); err == nil && modeOf(stat).IsDir() {
		target = joinPath(target, baseName(source))
	}

	if _, err := api.Rename(ctx, api.URL(source), api.URL(target)); err != nil {
		return 1, fmt.Errorf("mv: %s: %w", source, err)
	}
	return 0, nil
}

func (*MvCommand) GetFlags() *cmd.CommandFlagSet {
	return nil
}
