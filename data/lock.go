package data

import (
	"fmt"
	"io"
)

// Lock is an advisory lock level on an open file.
type Lock int

const (
	LockNone Lock = iota
	LockShared
	LockExclusive
)

func (l Lock) String() string {
	switch l {
	case LockNone:
		return "none"
	case LockShared:
		return "shared"
	case LockExclusive:
		return "exclusive"
	default:
		return fmt.Sprintf("lock(%d)", int(l))
	}
}

// Whence selects the reference point of a seek.
// The values match io.SeekStart, io.SeekCurrent and io.SeekEnd.
type Whence int

const (
	WhenceStart   Whence = io.SeekStart
	WhenceCurrent Whence = io.SeekCurrent
	WhenceEnd     Whence = io.SeekEnd
)

// DecodeWhence validates a raw whence value.
func DecodeWhence(whence int) (Whence, error) {
	switch w := Whence(whence); w {
	case WhenceStart, WhenceCurrent, WhenceEnd:
		return w, nil
	}
	return 0, fmt.Errorf("%w: whence %d", ErrInvalid, whence)
}

// Principal names an owner or group either by numeric id or by name.
type Principal struct {
	ID   int64
	Name string
}

// ByName reports whether the principal must be resolved by name.
func (p Principal) ByName() bool {
	return p.Name != ""
}

func (p Principal) String() string {
	if p.ByName() {
		return p.Name
	}
	return fmt.Sprintf("%d", p.ID)
}
