package data

import (
	"encoding/json"
	"time"
)

// ObjectStat is the record an object store keeps per key.
// It is the persisted counterpart of a FileAttributes snapshot.
type ObjectStat struct {
	// Normalized key within the store ("" is the root directory)
	Key string `json:"key"`

	// Store-assigned identifier, stable for the lifetime of the object
	Inode int64 `json:"inode"`

	// Type and permission bits
	Mode FileMode `json:"mode"`

	UID int64 `json:"uid"`
	GID int64 `json:"gid"`

	// Size in bytes (0 for directories)
	Size int64 `json:"size"`

	// Link target for symbolic links
	Target string `json:"target,omitempty"`

	AccessTime time.Time `json:"access_time"`
	ModifyTime time.Time `json:"modify_time"`
	ChangeTime time.Time `json:"change_time"`
	CreateTime time.Time `json:"create_time"`
}

// NewObjectStat returns a stat for a new object with all times set to now.
func NewObjectStat(key string, t FileType, perm Permissions) *ObjectStat {
	now := time.Now()
	return &ObjectStat{
		Key:        key,
		Mode:       ModeWord(t, perm),
		AccessTime: now,
		ModifyTime: now,
		ChangeTime: now,
		CreateTime: now,
	}
}

// Type returns the file type, defaulting to a regular file for corrupt modes.
func (st *ObjectStat) Type() FileType {
	t, err := st.Mode.Type()
	if err != nil {
		return FileTypeFile
	}
	return t
}

// IsDir reports whether the object is a directory.
func (st *ObjectStat) IsDir() bool {
	return st.Type().IsDir()
}

// Clone returns an independent copy.
func (st *ObjectStat) Clone() *ObjectStat {
	clone := *st
	return &clone
}

// ToAttributes converts the record into an attribute snapshot.
func (st *ObjectStat) ToAttributes(device int64) *FileAttributes {
	attrs := NewFileAttributes()
	attrs.Device = device
	attrs.Inode = st.Inode
	attrs.Type = st.Type()
	attrs.Perm = st.Mode.Perm()
	attrs.UID = st.UID
	attrs.GID = st.GID
	attrs.Size = st.Size
	if attrs.Type.IsSymlink() {
		attrs.Size = int64(len(st.Target))
	}
	attrs.AccessTime = st.AccessTime.Unix()
	attrs.ModifyTime = st.ModifyTime.Unix()
	attrs.ChangeTime = st.ChangeTime.Unix()
	return attrs
}

// Marshal provides JSON serialization for ObjectStat.
func (st *ObjectStat) Marshal() ([]byte, error) {
	return json.Marshal(st)
}

// Unmarshal provides JSON deserialization for ObjectStat.
func (st *ObjectStat) Unmarshal(data []byte) error {
	return json.Unmarshal(data, st)
}
