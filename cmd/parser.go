package cmd

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrUsage is returned for arguments that do not match the flag set of a command.
var ErrUsage = errors.New("afs: invalid command usage")

// Parser parses user-defined arguments into flags
type Parser struct {
	flagSet *CommandFlagSet
}

// NewParser returns a parser for flagSet; a nil flag set accepts positional arguments only.
func NewParser(flagSet *CommandFlagSet) *Parser {
	if flagSet == nil {
		flagSet = NewFlagSet()
	}
	return &Parser{
		flagSet: flagSet,
	}
}

func (cp *Parser) Parse(raw []string) (*CommandArgs, error) {
	args := &CommandArgs{
		Flags: make(map[string]any),
		Raw:   raw,
	}

	for flagName, flag := range cp.flagSet.Flags {
		if flag.Default != nil {
			args.Flags[flagName] = flag.Default
		}
	}

	longToName := make(map[string]string)
	shortToName := make(map[string]string)
	for flagName, flag := range cp.flagSet.Flags {
		longToName[flag.Name] = flagName
		if flag.Short != "" {
			shortToName[flag.Short] = flagName
		}
	}

	for i := 0; i < len(raw); i++ {
		arg := raw[i]

		if arg == "--" {
			args.Args = append(args.Args, raw[i+1:]...)
			break
		}

		if strings.HasPrefix(arg, "--") {
			key, value, hasValue := parseLongFlag(arg)
			flagName, exists := longToName[key]
			if !exists {
				return nil, fmt.Errorf("%w: unknown flag --%s", ErrUsage, key)
			}

			flag := cp.flagSet.Flags[flagName]
			switch {
			case flag.Type == "bool" && !hasValue:
				args.Flags[flagName] = true
			case hasValue:
			case i+1 < len(raw) && !strings.HasPrefix(raw[i+1], "-"):
				value = raw[i+1]
				i++
			default:
				return nil, fmt.Errorf("%w: flag --%s requires a value", ErrUsage, key)
			}

			if flag.Type != "bool" || hasValue {
				v, err := coerce(value, flag.Type)
				if err != nil {
					return nil, fmt.Errorf("%w: flag --%s: %v", ErrUsage, key, err)
				}
				args.Flags[flagName] = v
			}
			continue
		}

		if strings.HasPrefix(arg, "-") && len(arg) > 1 {
			shortFlags := arg[1:]

			for j, shortChar := range shortFlags {
				shortStr := string(shortChar)
				flagName, exists := shortToName[shortStr]
				if !exists {
					return nil, fmt.Errorf("%w: unknown flag -%s", ErrUsage, shortStr)
				}

				flag := cp.flagSet.Flags[flagName]
				if flag.Type == "bool" {
					args.Flags[flagName] = true
					continue
				}

				// The remainder of the group or the next argument is the value
				var value string
				if j+1 < len(shortFlags) {
					value = shortFlags[j+1:]
				} else if i+1 < len(raw) && !strings.HasPrefix(raw[i+1], "-") {
					value = raw[i+1]
					i++
				} else {
					return nil, fmt.Errorf("%w: flag -%s requires a value", ErrUsage, shortStr)
				}

				v, err := coerce(value, flag.Type)
				if err != nil {
					return nil, fmt.Errorf("%w: flag -%s: %v", ErrUsage, shortStr, err)
				}
				args.Flags[flagName] = v
				break
			}
			continue
		}

		args.Args = append(args.Args, arg)
	}

	for flagName, flag := range cp.flagSet.Flags {
		if !flag.Required {
			continue
		}
		if _, ok := args.Flags[flagName]; !ok {
			if flag.Short != "" {
				return nil, fmt.Errorf("%w: required flag -%s / --%s", ErrUsage, flag.Short, flag.Name)
			}
			return nil, fmt.Errorf("%w: required flag --%s", ErrUsage, flag.Name)
		}
	}

	return args, nil
}

func parseLongFlag(arg string) (key, value string, hasValue bool) {
	arg = strings.TrimPrefix(arg, "--")
	if idx := strings.Index(arg, "="); idx >= 0 {
		return arg[:idx], arg[idx+1:], true
	}
	return arg, "", false
}

func coerce(value string, typeStr string) (any, error) {
	switch typeStr {
	case "int":
		return strconv.ParseInt(value, 10, 64)
	case "bool":
		return strconv.ParseBool(value)
	default:
		return value, nil
	}
}
