package builtin

import (
	"context"
	"fmt"
	"path"
	"strconv"

	"github.com/mwantia/afs"
	"github.com/mwantia/afs/cmd"
	"github.com/mwantia/afs/data"
)

// InitBuiltin registers every builtin command on shell.
func InitBuiltin(shell *cmd.Shell) error {
	for _, command := range []cmd.Command{
		&LsCommand{},
		&StatCommand{},
		&CatCommand{},
		&WriteCommand{},
		&MkdirCommand{},
		&RmCommand{},
		&RmdirCommand{},
		&MvCommand{},
		&ChmodCommand{},
		&ChownCommand{},
		&TouchCommand{},
	} {
		if err := shell.RegisterCommand(command); err != nil {
			return err
		}
	}
	return nil
}

func requireArgs(command cmd.Command, args *cmd.CommandArgs, min int) error {
	if len(args.Args) < min {
		return fmt.Errorf("%w: usage: %s", cmd.ErrUsage, command.Usage())
	}
	return nil
}

func statPath(ctx context.Context, api cmd.API, p string, follow bool) (data.FlatMap, error) {
	flags := afs.Flag(0)
	if !follow {
		flags |= afs.OptionURLStatLink
	}

	stat, err := api.URLStat(ctx, api.URL(p), flags)
	if err != nil {
		return nil, err
	}
	if stat == nil {
		return nil, fmt.Errorf("%s: %w", p, data.ErrUnsupported)
	}
	return stat, nil
}

func parsePermissions(mode string) (uint16, error) {
	word, err := strconv.ParseUint(mode, 8, 16)
	if err != nil || word > data.PermissionMask {
		return 0, fmt.Errorf("%w: invalid mode '%s'", cmd.ErrUsage, mode)
	}
	return uint16(word), nil
}

func modeOf(stat data.FlatMap) data.FileMode {
	return data.FileMode(stat["mode"])
}

func joinPath(dir, name string) string {
	return path.Join("/", dir, name)
}

func baseName(p string) string {
	return path.Base(path.Clean("/" + p))
}
