package backend

import (
	"errors"
	"fmt"
	"os/user"
	"strconv"

	"github.com/mwantia/afs/data"
)

// PrincipalLookup resolves a user or group name into its numeric id.
type PrincipalLookup func(name string) (int64, error)

// LookupUser resolves a user name into its uid. Numeric names are taken as ids.
func LookupUser(name string) (int64, error) {
	if id, err := strconv.ParseInt(name, 10, 64); err == nil {
		return id, nil
	}

	u, err := user.Lookup(name)
	if err != nil {
		var unknown user.UnknownUserError
		if errors.As(err, &unknown) {
			return 0, fmt.Errorf("%w: unknown user %q", data.ErrNotExist, name)
		}
		return 0, err
	}

	return strconv.ParseInt(u.Uid, 10, 64)
}

// LookupGroup resolves a group name into its gid. Numeric names are taken as ids.
func LookupGroup(name string) (int64, error) {
	if id, err := strconv.ParseInt(name, 10, 64); err == nil {
		return id, nil
	}

	g, err := user.LookupGroup(name)
	if err != nil {
		var unknown user.UnknownGroupError
		if errors.As(err, &unknown) {
			return 0, fmt.Errorf("%w: unknown group %q", data.ErrNotExist, name)
		}
		return 0, err
	}

	return strconv.ParseInt(g.Gid, 10, 64)
}

// ResolvePrincipal returns the numeric id of p, using lookup for principals given by name.
func ResolvePrincipal(p data.Principal, lookup PrincipalLookup) (int64, error) {
	if !p.ByName() {
		if p.ID < 0 {
			return 0, fmt.Errorf("%w: negative id %d", data.ErrInvalid, p.ID)
		}
		return p.ID, nil
	}
	return lookup(p.Name)
}
