package builtin

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/mwantia/afs/cmd"
	"github.com/mwantia/afs/data"
)

type StatCommand struct {
}

func (*StatCommand) Name() string {
	return "stat"
}

func (*StatCommand) Description() string {
	return "Display file status"
}

func (*StatCommand) Usage() string {
	return "stat [-L] path..."
}

func (sc *StatCommand) Execute(ctx context.Context, api cmd.API, args *cmd.CommandArgs, writer io.Writer) (int, error) {
	if err := requireArgs(sc, args, 1); err != nil {
		return 2, err
	}

	for _, p := range args.Args {
		stat, err := statPath(ctx, api, p, args.Bool("dereference"))
		if err != nil {
			return 1, fmt.Errorf("stat: %w", err)
		}

		mode := modeOf(stat)
		typeName := "unknown"
		if t, err := mode.Type(); err == nil {
			typeName = t.String()
		}

		fmt.Fprintf(writer, "  File: %s\n", p)
		fmt.Fprintf(writer, "  Size: %-12d Blocks: %-8d IO Block: %-6d %s\n",
			stat["size"], stat["blocks"], stat["blksize"], typeName)
		fmt.Fprintf(writer, "Device: %-11d Inode: %-9d Links: %d\n",
			stat["dev"], stat["ino"], stat["nlink"])
		fmt.Fprintf(writer, "Access: (%04o/%s)  Uid: %d  Gid: %d\n",
			mode&data.PermissionMask, mode, stat["uid"], stat["gid"])

		for _, field := range []struct{ label, name string }{
			{"Access", "atime"},
			{"Modify", "mtime"},
			{"Change", "ctime"},
		} {
			t := time.Unix(stat[field.name], 0)
			fmt.Fprintf(writer, "%s: %s (%s)\n", field.label, t.Format(time.RFC3339), humanize.Time(t))
		}
	}

	return 0, nil
}

func (*StatCommand) GetFlags() *cmd.CommandFlagSet {
	return cmd.NewFlagSet(
		&cmd.CommandFlag{Name: "dereference", Short: "L", Type: "bool", Description: "follow links"},
	)
}
