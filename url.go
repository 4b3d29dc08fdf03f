package afs

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/mwantia/afs/data"
)

const schemeSeparator = "://"

// buildURL returns "<scheme>://<id>:<path>".
func buildURL(scheme string, id uint64, path string) string {
	return scheme + schemeSeparator + strconv.FormatUint(id, 10) + ":" + path
}

// splitURL splits a mount URL into its scheme, mount id and path.
// The path is everything after the first colon following the id and may itself contain colons.
func splitURL(url string) (string, uint64, string, error) {
	scheme, rest, ok := strings.Cut(url, schemeSeparator)
	if !ok || scheme == "" {
		return "", 0, "", fmt.Errorf("%w: %q", data.ErrInvalidURL, url)
	}

	rawID, path, ok := strings.Cut(rest, ":")
	if !ok {
		return "", 0, "", fmt.Errorf("%w: missing path in %q", data.ErrInvalidURL, url)
	}

	id, err := strconv.ParseUint(rawID, 10, 64)
	if err != nil || id == 0 {
		return "", 0, "", fmt.Errorf("%w: bad mount id in %q", data.ErrInvalidURL, url)
	}

	return scheme, id, path, nil
}
