package data

// FileMode is the combined mode word used in attribute snapshots:
// the file type code in bits 12-15 and the permission word in bits 0-11.
type FileMode uint32

// ModeWord combines a file type and permissions into a mode word.
func ModeWord(t FileType, p Permissions) FileMode {
	return FileMode(uint32(t.Code())<<12 | uint32(p.Encode()))
}

// SplitModeWord decodes a mode word into its file type and permissions.
func SplitModeWord(m FileMode) (FileType, Permissions, error) {
	t, err := m.Type()
	if err != nil {
		return 0, Permissions{}, err
	}
	return t, m.Perm(), nil
}

// Type returns the file type stored in the mode word.
func (m FileMode) Type() (FileType, error) {
	return DecodeFileType(uint8((m >> 12) & 0o17))
}

// Perm returns the permissions stored in the mode word.
func (m FileMode) Perm() Permissions {
	return DecodePermissions(uint16(m & PermissionMask))
}

// IsDir reports whether m describes a directory.
func (m FileMode) IsDir() bool {
	t, err := m.Type()
	return err == nil && t.IsDir()
}

// String returns a textual representation of the mode in Unix ls -l format.
// Example: "drwxr-xr-x" for a directory with 0755 permissions.
func (m FileMode) String() string {
	c := byte('?')
	if t, err := m.Type(); err == nil {
		c = t.Char()
	}
	return string(c) + m.Perm().String()
}
