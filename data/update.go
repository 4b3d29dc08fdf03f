package data

import "time"

// ObjectUpdateMask controls which fields of an ObjectStat are updated.
// This allows partial updates without rewriting the whole record.
type ObjectUpdateMask int

const (
	ObjectUpdateMode       ObjectUpdateMask = 1 << iota // Update permission bits
	ObjectUpdateUID                                     // Update owner
	ObjectUpdateGID                                     // Update group
	ObjectUpdateAccessTime                              // Update access time
	ObjectUpdateModifyTime                              // Update modification time

	ObjectUpdateAll = ^ObjectUpdateMask(0) // Update all fields
)

// ObjectUpdate represents a partial update to an object record.
type ObjectUpdate struct {
	Mask ObjectUpdateMask `json:"mask"`
	Stat *ObjectStat      `json:"stat"`
}

// Apply applies this update to an existing record.
// The change time is refreshed whenever something was modified.
func (ou *ObjectUpdate) Apply(target *ObjectStat) bool {
	modified := false

	if ou.Mask&ObjectUpdateMode != 0 {
		// Only the permission bits may change, never the type
		target.Mode = ModeWord(target.Type(), ou.Stat.Mode.Perm())
		modified = true
	}

	if ou.Mask&ObjectUpdateUID != 0 {
		target.UID = ou.Stat.UID
		modified = true
	}
	if ou.Mask&ObjectUpdateGID != 0 {
		target.GID = ou.Stat.GID
		modified = true
	}

	if ou.Mask&ObjectUpdateAccessTime != 0 {
		target.AccessTime = ou.Stat.AccessTime
		modified = true
	}
	if ou.Mask&ObjectUpdateModifyTime != 0 {
		target.ModifyTime = ou.Stat.ModifyTime
		modified = true
	}

	if modified {
		target.ChangeTime = time.Now()
	}

	return modified
}
