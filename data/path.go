package data

import (
	"path"
	"strings"
)

// ToObjectKey normalizes a slash separated path into a store key.
// The root directory maps to the empty key, every other key has no
// leading or trailing slash.
func ToObjectKey(p string) string {
	cleaned := path.Clean("/" + p)
	return strings.TrimPrefix(cleaned, "/")
}

// ParentKey returns the key of the parent directory ("" for the root).
func ParentKey(key string) string {
	if idx := strings.LastIndexByte(key, '/'); idx >= 0 {
		return key[:idx]
	}
	return ""
}

// BaseName returns the last element of key.
func BaseName(key string) string {
	if idx := strings.LastIndexByte(key, '/'); idx >= 0 {
		return key[idx+1:]
	}
	return key
}

// JoinKey appends name to the directory key dir.
func JoinKey(dir, name string) string {
	if dir == "" {
		return name
	}
	return dir + "/" + name
}

// HasKeyPrefix reports whether key equals prefix or lies below it.
func HasKeyPrefix(key, prefix string) bool {
	// Root matches everything
	if prefix == "" {
		return true
	}

	if key == prefix {
		return true
	}

	return strings.HasPrefix(key, prefix+"/")
}
