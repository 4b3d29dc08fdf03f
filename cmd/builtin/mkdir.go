package builtin

import (
	"context"
	"fmt"
	"io"

	"github.com/mwantia/afs"
	"github.com/mwantia/afs/cmd"
)

type MkdirCommand struct {
}

func (*MkdirCommand) Name() string {
	return "mkdir"
}

func (*MkdirCommand) Description() string {
	return "Create directories"
}

func (*MkdirCommand) Usage() string {
	return "mkdir [-p] [-m mode] path..."
}

func (mc *MkdirCommand) Execute(ctx context.Context, api cmd.API, args *cmd.CommandArgs, writer io.Writer) (int, error) {
	if err := requireArgs(mc, args, 1); err != nil {
		return 2, err
	}

	perm, err := parsePermissions(args.String("mode", "755"))
	if err != nil {
		return 2, err
	}

	flags := afs.OptionReportErrors
	if args.Bool("parents") {
		flags |= afs.OptionMkdirRecursive
	}

	for _, p := range args.Args {
		if _, err := api.Mkdir(ctx, api.URL(p), perm, flags); err != nil {
			return 1, fmt.Errorf("mkdir: %s: %w", p, err)
		}
	}
	return 0, nil
}

func (*MkdirCommand) GetFlags() *cmd.CommandFlagSet {
	return cmd.NewFlagSet(
		&cmd.CommandFlag{Name: "parents", Short: "p", Type: "bool", Description: "make parent directories as needed"},
		&cmd.CommandFlag{Name: "mode", Short: "m", Type: "string", Description: "permission bits in octal"},
	)
}
