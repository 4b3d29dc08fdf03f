package data

import (
	"fmt"
	"time"
)

// FlatMapFields is the fixed field order of a flat attribute map.
var FlatMapFields = [...]string{
	"dev", "ino", "mode", "nlink", "uid", "gid", "rdev",
	"size", "atime", "mtime", "ctime", "blksize", "blocks",
}

// FlatMap is the host-facing form of a FileAttributes snapshot.
type FlatMap map[string]int64

// Values returns the map values in FlatMapFields order.
func (m FlatMap) Values() []int64 {
	values := make([]int64, len(FlatMapFields))
	for i, name := range FlatMapFields {
		values[i] = m[name]
	}
	return values
}

// FileAttributes is a snapshot of the attributes of a path or open file.
// Values are copied when the snapshot is taken and must not be modified
// afterwards. Times are unix seconds.
type FileAttributes struct {
	Device     int64       `json:"dev"`
	Inode      int64       `json:"ino"`
	Type       FileType    `json:"type"`
	Perm       Permissions `json:"perm"`
	Links      int64       `json:"nlink"`
	UID        int64       `json:"uid"`
	GID        int64       `json:"gid"`
	RDevice    int64       `json:"rdev"`
	Size       int64       `json:"size"`
	AccessTime int64       `json:"atime"`
	ModifyTime int64       `json:"mtime"`
	ChangeTime int64       `json:"ctime"`
	BlockSize  int64       `json:"blksize"`
	Blocks     int64       `json:"blocks"`
}

// NewFileAttributes returns a snapshot with every field at its default:
// a regular file with one link and unknown block size and block count.
func NewFileAttributes() *FileAttributes {
	return &FileAttributes{
		Type:      FileTypeFile,
		Links:     1,
		BlockSize: -1,
		Blocks:    -1,
	}
}

// Mode returns the combined mode word.
func (fa *FileAttributes) Mode() FileMode {
	return ModeWord(fa.Type, fa.Perm)
}

func (fa *FileAttributes) Accessed() time.Time {
	return time.Unix(fa.AccessTime, 0)
}

func (fa *FileAttributes) Modified() time.Time {
	return time.Unix(fa.ModifyTime, 0)
}

func (fa *FileAttributes) Changed() time.Time {
	return time.Unix(fa.ChangeTime, 0)
}

// ToFlatMap converts the snapshot into its flat map form.
func (fa *FileAttributes) ToFlatMap() FlatMap {
	return FlatMap{
		"dev":     fa.Device,
		"ino":     fa.Inode,
		"mode":    int64(fa.Mode()),
		"nlink":   fa.Links,
		"uid":     fa.UID,
		"gid":     fa.GID,
		"rdev":    fa.RDevice,
		"size":    fa.Size,
		"atime":   fa.AccessTime,
		"mtime":   fa.ModifyTime,
		"ctime":   fa.ChangeTime,
		"blksize": fa.BlockSize,
		"blocks":  fa.Blocks,
	}
}

// FromFlatMap rebuilds a snapshot from its flat map form.
// Every field of FlatMapFields must be present.
func FromFlatMap(m FlatMap) (*FileAttributes, error) {
	for _, name := range FlatMapFields {
		if _, ok := m[name]; !ok {
			return nil, fmt.Errorf("%w: flat map is missing field %q", ErrInvalid, name)
		}
	}

	mode := m["mode"]
	if mode < 0 || mode > 0xffff {
		return nil, fmt.Errorf("%w: mode word %#o out of range", ErrInvalid, mode)
	}

	t, perm, err := SplitModeWord(FileMode(mode))
	if err != nil {
		return nil, err
	}

	return &FileAttributes{
		Device:     m["dev"],
		Inode:      m["ino"],
		Type:       t,
		Perm:       perm,
		Links:      m["nlink"],
		UID:        m["uid"],
		GID:        m["gid"],
		RDevice:    m["rdev"],
		Size:       m["size"],
		AccessTime: m["atime"],
		ModifyTime: m["mtime"],
		ChangeTime: m["ctime"],
		BlockSize:  m["blksize"],
		Blocks:     m["blocks"],
	}, nil
}
