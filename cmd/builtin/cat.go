package builtin

import (
	"context"
	"fmt"
	"io"

	"github.com/mwantia/afs"
	"github.com/mwantia/afs/cmd"
)

const catChunkSize = 32 * 1024

type CatCommand struct {
}

func (*CatCommand) Name() string {
	return "cat"
}

func (*CatCommand) Description() string {
	return "Concatenate files and print on the standard output"
}

func (*CatCommand) Usage() string {
	return "cat path..."
}

func (cc *CatCommand) Execute(ctx context.Context, api cmd.API, args *cmd.CommandArgs, writer io.Writer) (int, error) {
	if err := requireArgs(cc, args, 1); err != nil {
		return 2, err
	}

	for _, p := range args.Args {
		if err := cc.copy(ctx, api, p, writer); err != nil {
			return 1, fmt.Errorf("cat: %s: %w", p, err)
		}
	}
	return 0, nil
}

func (*CatCommand) copy(ctx context.Context, api cmd.API, p string, writer io.Writer) error {
	if _, _, err := api.StreamOpen(ctx, api.URL(p), "rb", afs.OptionReportErrors); err != nil {
		return err
	}
	defer api.StreamClose()

	for {
		chunk, err := api.StreamRead(catChunkSize)
		if err != nil {
			return err
		}
		if len(chunk) == 0 {
			return nil
		}
		if _, err := writer.Write(chunk); err != nil {
			return err
		}
	}
}

func (*CatCommand) GetFlags() *cmd.CommandFlagSet {
	return nil
}
