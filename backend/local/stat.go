//go:build linux || darwin || freebsd

package local

import (
	"github.com/mwantia/afs/data"
	"golang.org/x/sys/unix"
)

// statToAttributes converts a host stat record into an attribute snapshot.
// The host st_mode already uses the mode word layout.
func statToAttributes(st *unix.Stat_t) (*data.FileAttributes, error) {
	t, perm, err := data.SplitModeWord(data.FileMode(st.Mode))
	if err != nil {
		return nil, err
	}

	attrs := data.NewFileAttributes()
	attrs.Device = int64(st.Dev)
	attrs.Inode = int64(st.Ino)
	attrs.Type = t
	attrs.Perm = perm
	attrs.Links = int64(st.Nlink)
	attrs.UID = int64(st.Uid)
	attrs.GID = int64(st.Gid)
	attrs.RDevice = int64(st.Rdev)
	attrs.Size = st.Size
	attrs.AccessTime, _ = st.Atim.Unix()
	attrs.ModifyTime, _ = st.Mtim.Unix()
	attrs.ChangeTime, _ = st.Ctim.Unix()
	attrs.BlockSize = int64(st.Blksize)
	attrs.Blocks = st.Blocks
	return attrs, nil
}

// toHostMode converts permissions into the mode expected by os.Chmod and friends.
func toHostMode(perm data.Permissions) uint32 {
	return uint32(perm.Encode())
}
