package backend

import "slices"

// Capability represents a feature that a backend can provide.
type Capability string

const (
	// Core capabilities
	CapabilityObjectStorage Capability = "object_storage"
	CapabilityFileSystem    Capability = "filesystem"

	// Feature capabilities of a filesystem or object store
	CapabilityDirectories  Capability = "directories"
	CapabilitySymlinks     Capability = "symlinks"
	CapabilityLocking      Capability = "locking"
	CapabilityNativeHandle Capability = "native_handle"
	CapabilityOwnership    Capability = "ownership"
	CapabilityAtomicRename Capability = "atomic_rename"
)

// Capabilities describes what a backend supports.
type Capabilities struct {
	Capabilities  []Capability `json:"capabilities"`
	MinObjectSize int64        `json:"min_object_size"`
	MaxObjectSize int64        `json:"max_object_size"`
}

// NewCapabilities returns a set with the given capabilities and no size limits.
func NewCapabilities(caps ...Capability) *Capabilities {
	return &Capabilities{Capabilities: caps}
}

// Contains checks if a capability is supported.
func (c *Capabilities) Contains(cap Capability) bool {
	if c == nil {
		return false
	}
	return slices.Contains(c.Capabilities, cap)
}

// With returns a copy extended by caps.
func (c *Capabilities) With(caps ...Capability) *Capabilities {
	out := &Capabilities{}
	if c != nil {
		*out = *c
		out.Capabilities = slices.Clone(c.Capabilities)
	}
	for _, cap := range caps {
		if !out.Contains(cap) {
			out.Capabilities = append(out.Capabilities, cap)
		}
	}
	return out
}
