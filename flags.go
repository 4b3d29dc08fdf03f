package afs

import (
	"fmt"
	"time"

	"github.com/mwantia/afs/data"
)

// Flag is the option bit set accepted by dispatcher calls.
type Flag uint32

const (
	// OptionReportErrors returns failures instead of an absent result
	OptionReportErrors Flag = 1 << iota
	// OptionUsePath asks StreamOpen to search an include path; always rejected
	OptionUsePath
	// OptionMkdirRecursive creates missing parent directories
	OptionMkdirRecursive
	// OptionURLStatLink describes a symlink itself instead of its target
	OptionURLStatLink
	// OptionURLStatQuiet returns an absent result for failed stats
	OptionURLStatQuiet
)

func (f Flag) Has(flag Flag) bool {
	return f&flag != 0
}

// LockOperation is a host lock request: one of LockShared, LockExclusive
// or LockUnlock, optionally ORed with LockNonBlocking.
type LockOperation int

const (
	LockShared      LockOperation = 1
	LockExclusive   LockOperation = 2
	LockUnlock      LockOperation = 3
	LockNonBlocking LockOperation = 4
)

// DecodeLockOperation splits op into the requested lock level and the non-blocking bit.
func DecodeLockOperation(op LockOperation) (data.Lock, bool, error) {
	nonBlocking := op&LockNonBlocking != 0

	switch op &^ LockNonBlocking {
	case LockShared:
		return data.LockShared, nonBlocking, nil
	case LockExclusive:
		return data.LockExclusive, nonBlocking, nil
	case LockUnlock:
		return data.LockNone, nonBlocking, nil
	}
	return data.LockNone, false, fmt.Errorf("%w: lock operation %d", data.ErrInvalid, int(op))
}

// MetaOption selects the metadata changed by StreamMetadata.
type MetaOption int

const (
	// MetaTouch takes nil, TouchTimes or [2]int64{mtime, atime} in unix seconds
	MetaTouch MetaOption = iota + 1
	// MetaOwnerName takes a user name
	MetaOwnerName
	// MetaOwner takes a numeric user id
	MetaOwner
	// MetaGroupName takes a group name
	MetaGroupName
	// MetaGroup takes a numeric group id
	MetaGroup
	// MetaAccess takes a 12-bit permission word or data.Permissions
	MetaAccess
)

// TouchTimes is the MetaTouch value. A zero Modified means now,
// a zero Accessed means the same as Modified.
type TouchTimes struct {
	Modified time.Time
	Accessed time.Time
}

func (tt TouchTimes) resolve() (time.Time, time.Time) {
	mtime := tt.Modified
	if mtime.IsZero() {
		mtime = time.Now()
	}
	atime := tt.Accessed
	if atime.IsZero() {
		atime = mtime
	}
	return mtime, atime
}

// StreamOption selects the setting changed by StreamSetOption.
type StreamOption int

const (
	// SetOptionBlocking takes arg1 != 0 for blocking reads
	SetOptionBlocking StreamOption = 1
	// SetOptionWriteBuffer takes a buffer mode in arg1 and the size in arg2
	SetOptionWriteBuffer StreamOption = 3
	// SetOptionReadTimeout takes seconds in arg1 and microseconds in arg2
	SetOptionReadTimeout StreamOption = 4
)

// Write buffer modes of SetOptionWriteBuffer.
const (
	BufferNone = 0
	BufferLine = 1
	BufferFull = 2
)

// CastMode is the purpose a native descriptor is requested for.
type CastMode int

const (
	CastAsStream  CastMode = 0
	CastForSelect CastMode = 3
)

func toInt64(value any) (int64, bool) {
	switch v := value.(type) {
	case int:
		return int64(v), true
	case int32:
		return int64(v), true
	case int64:
		return v, true
	case uint16:
		return int64(v), true
	case uint32:
		return int64(v), true
	}
	return 0, false
}
