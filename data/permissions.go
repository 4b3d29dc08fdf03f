package data

// PermissionMask covers the 12 canonical permission bits.
const PermissionMask = 0o7777

const (
	permSetUID uint16 = 0o4000
	permSetGID uint16 = 0o2000
	permSticky uint16 = 0o1000
)

// PermissionSet is one read/write/execute triad of a permission word.
type PermissionSet struct {
	Read    bool `json:"read"`
	Write   bool `json:"write"`
	Execute bool `json:"execute"`
}

// Permissions is the structured form of a 12-bit permission word.
// Layout (high to low): setuid setgid sticky | owner rwx | group rwx | other rwx.
type Permissions struct {
	SetUID bool `json:"setuid"`
	SetGID bool `json:"setgid"`
	Sticky bool `json:"sticky"`

	Owner PermissionSet `json:"owner"`
	Group PermissionSet `json:"group"`
	Other PermissionSet `json:"other"`
}

func decodeSet(bits uint16) PermissionSet {
	return PermissionSet{
		Read:    bits&0o4 != 0,
		Write:   bits&0o2 != 0,
		Execute: bits&0o1 != 0,
	}
}

func (ps PermissionSet) encode() uint16 {
	var bits uint16
	if ps.Read {
		bits |= 0o4
	}
	if ps.Write {
		bits |= 0o2
	}
	if ps.Execute {
		bits |= 0o1
	}
	return bits
}

// DecodePermissions converts a permission word into its structured form.
// Bits above the 12 canonical ones are ignored.
func DecodePermissions(word uint16) Permissions {
	return Permissions{
		SetUID: word&permSetUID != 0,
		SetGID: word&permSetGID != 0,
		Sticky: word&permSticky != 0,
		Owner:  decodeSet((word >> 6) & 0o7),
		Group:  decodeSet((word >> 3) & 0o7),
		Other:  decodeSet(word & 0o7),
	}
}

// Encode returns the 12-bit permission word.
func (p Permissions) Encode() uint16 {
	word := p.Owner.encode()<<6 | p.Group.encode()<<3 | p.Other.encode()
	if p.SetUID {
		word |= permSetUID
	}
	if p.SetGID {
		word |= permSetGID
	}
	if p.Sticky {
		word |= permSticky
	}
	return word
}

// String renders the permissions in ls format, e.g. "rwsr-xr-t".
func (p Permissions) String() string {
	var buf [9]byte

	render := func(offset int, set PermissionSet, special bool, specialChar byte) {
		buf[offset] = '-'
		if set.Read {
			buf[offset] = 'r'
		}
		buf[offset+1] = '-'
		if set.Write {
			buf[offset+1] = 'w'
		}

		switch {
		case special && set.Execute:
			buf[offset+2] = specialChar
		case special:
			// Upper case marks a special bit without execute permission
			buf[offset+2] = specialChar - ('a' - 'A')
		case set.Execute:
			buf[offset+2] = 'x'
		default:
			buf[offset+2] = '-'
		}
	}

	render(0, p.Owner, p.SetUID, 's')
	render(3, p.Group, p.SetGID, 's')
	render(6, p.Other, p.Sticky, 't')

	return string(buf[:])
}
