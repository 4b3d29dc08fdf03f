package cmd

// CommandArgs contains parsed command arguments
type CommandArgs struct {
	// Positional arguments (command-specific)
	Args []string

	// Parsed flags
	Flags map[string]any

	// Raw unparsed arguments (for custom parsing)
	Raw []string
}

// Bool returns the boolean flag name, false if it is unset.
func (ca *CommandArgs) Bool(name string) bool {
	v, _ := ca.Flags[name].(bool)
	return v
}

// String returns the string flag name, def if it is unset.
func (ca *CommandArgs) String(name, def string) string {
	if v, ok := ca.Flags[name].(string); ok {
		return v
	}
	return def
}

// Int returns the integer flag name, def if it is unset.
func (ca *CommandArgs) Int(name string, def int64) int64 {
	if v, ok := ca.Flags[name].(int64); ok {
		return v
	}
	return def
}

// CommandFlagSet defines the expected flags for a command
type CommandFlagSet struct {
	Flags map[string]*CommandFlag
}

// NewFlagSet returns a flag set keyed by the long names of flags.
func NewFlagSet(flags ...*CommandFlag) *CommandFlagSet {
	set := &CommandFlagSet{
		Flags: make(map[string]*CommandFlag, len(flags)),
	}
	for _, flag := range flags {
		set.Flags[flag.Name] = flag
	}
	return set
}

// CommandFlag represents a single command-line flag
type CommandFlag struct {
	Name        string `json:"name"`              // e.g., "type" or "t"
	Short       string `json:"short"`             // Single-char shorthand (e.g., "t")
	Type        string `json:"type"`              // "string", "bool", "int"
	Default     any    `json:"default,omitempty"` // Default value
	Required    bool   `json:"required"`          // Must be provided
	Description string `json:"description"`       // Help text
}
