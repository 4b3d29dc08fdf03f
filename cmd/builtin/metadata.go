package builtin

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/mwantia/afs"
	"github.com/mwantia/afs/cmd"
)

type ChmodCommand struct {
}

func (*ChmodCommand) Name() string {
	return "chmod"
}

func (*ChmodCommand) Description() string {
	return "Change file mode bits"
}

func (*ChmodCommand) Usage() string {
	return "chmod mode path..."
}

func (cc *ChmodCommand) Execute(ctx context.Context, api cmd.API, args *cmd.CommandArgs, writer io.Writer) (int, error) {
	if err := requireArgs(cc, args, 2); err != nil {
		return 2, err
	}

	perm, err := parsePermissions(args.Args[0])
	if err != nil {
		return 2, err
	}

	for _, p := range args.Args[1:] {
		if _, err := api.StreamMetadata(ctx, api.URL(p), afs.MetaAccess, perm); err != nil {
			return 1, fmt.Errorf("chmod: %s: %w", p, err)
		}
	}
	return 0, nil
}

func (*ChmodCommand) GetFlags() *cmd.CommandFlagSet {
	return nil
}

// ChownCommand accepts numeric ids and names for both owner and group.
type ChownCommand struct {
}

func (*ChownCommand) Name() string {
	return "chown"
}

func (*ChownCommand) Description() string {
	return "Change file owner and group"
}

func (*ChownCommand) Usage() string {
	return "chown owner[:group] path..."
}

func (cc *ChownCommand) Execute(ctx context.Context, api cmd.API, args *cmd.CommandArgs, writer io.Writer) (int, error) {
	if err := requireArgs(cc, args, 2); err != nil {
		return 2, err
	}

	owner, group, _ := strings.Cut(args.Args[0], ":")
	for _, p := range args.Args[1:] {
		url := api.URL(p)
		if owner != "" {
			if err := setPrincipal(ctx, api, url, owner, afs.MetaOwner, afs.MetaOwnerName); err != nil {
				return 1, fmt.Errorf("chown: %s: %w", p, err)
			}
		}
		if group != "" {
			if err := setPrincipal(ctx, api, url, group, afs.MetaGroup, afs.MetaGroupName); err != nil {
				return 1, fmt.Errorf("chown: %s: %w", p, err)
			}
		}
	}
	return 0, nil
}

func setPrincipal(ctx context.Context, api cmd.API, url, principal string, byID, byName afs.MetaOption) error {
	if id, err := strconv.ParseInt(principal, 10, 64); err == nil {
		_, err := api.StreamMetadata(ctx, url, byID, id)
		return err
	}
	_, err := api.StreamMetadata(ctx, url, byName, principal)
	return err
}

func (*ChownCommand) GetFlags() *cmd.CommandFlagSet {
	return nil
}

type TouchCommand struct {
}

func (*TouchCommand) Name() string {
	return "touch"
}

func (*TouchCommand) Description() string {
	return "Change file timestamps, creating missing files"
}

func (*TouchCommand) Usage() string {
	return "touch [-t unix-seconds] path..."
}

func (tc *TouchCommand) Execute(ctx context.Context, api cmd.API, args *cmd.CommandArgs, writer io.Writer) (int, error) {
	if err := requireArgs(tc, args, 1); err != nil {
		return 2, err
	}

	var times afs.TouchTimes
	if seconds, ok := args.Flags["time"].(int64); ok {
		times.Modified = time.Unix(seconds, 0)
	}

	for _, p := range args.Args {
		if _, err := api.StreamMetadata(ctx, api.URL(p), afs.MetaTouch, times); err != nil {
			return 1, fmt.Errorf("touch: %s: %w", p, err)
		}
	}
	return 0, nil
}

func (*TouchCommand) GetFlags() *cmd.CommandFlagSet {
	return cmd.NewFlagSet(
		&cmd.CommandFlag{Name: "time", Short: "t", Type: "int", Description: "use this modification time instead of now"},
	)
}
