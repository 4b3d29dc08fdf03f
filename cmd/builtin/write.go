package builtin

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/mwantia/afs"
	"github.com/mwantia/afs/cmd"
)

// WriteCommand stores its arguments as a line of text.
type WriteCommand struct {
}

func (*WriteCommand) Name() string {
	return "write"
}

func (*WriteCommand) Description() string {
	return "Write a line of text to a file"
}

func (*WriteCommand) Usage() string {
	return "write [-a] path text..."
}

func (wc *WriteCommand) Execute(ctx context.Context, api cmd.API, args *cmd.CommandArgs, writer io.Writer) (int, error) {
	if err := requireArgs(wc, args, 1); err != nil {
		return 2, err
	}

	mode := "w"
	if args.Bool("append") {
		mode = "a"
	}

	p := args.Args[0]
	if _, _, err := api.StreamOpen(ctx, api.URL(p), mode, afs.OptionReportErrors); err != nil {
		return 1, fmt.Errorf("write: %s: %w", p, err)
	}
	defer api.StreamClose()

	line := strings.Join(args.Args[1:], " ") + "\n"
	if _, err := api.StreamWrite([]byte(line)); err != nil {
		return 1, fmt.Errorf("write: %s: %w", p, err)
	}

	if err := api.StreamClose(); err != nil {
		return 1, fmt.Errorf("write: %s: %w", p, err)
	}
	return 0, nil
}

func (*WriteCommand) GetFlags() *cmd.CommandFlagSet {
	return cmd.NewFlagSet(
		&cmd.CommandFlag{Name: "append", Short: "a", Type: "bool", Description: "append instead of truncating"},
	)
}
