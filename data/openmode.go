package data

import "fmt"

// OpenVerb is the base verb of an open-mode token.
type OpenVerb byte

const (
	OpenReadExisting     OpenVerb = 'r' // no create, read
	OpenCreateOrTruncate OpenVerb = 'w' // create, truncate existing
	OpenCreateOrAppend   OpenVerb = 'a' // create, writes go to the end
	OpenCreateOrKeep     OpenVerb = 'c' // create, keep existing content
	OpenCreateOnly       OpenVerb = 'x' // create, fail if the path exists
)

func (v OpenVerb) valid() bool {
	switch v {
	case OpenReadExisting, OpenCreateOrTruncate, OpenCreateOrAppend, OpenCreateOrKeep, OpenCreateOnly:
		return true
	}
	return false
}

// TextMode is the advisory text/binary modifier of an open-mode token.
// No newline translation is performed for either value.
type TextMode byte

const (
	TextModeNone   TextMode = 0
	TextModeBinary TextMode = 'b'
	TextModeText   TextMode = 't'
)

// FileOpenMode is a parsed open-mode token ([rwaxc][+]?[bt]?).
// The zero value is not valid; use ParseFileOpenMode or NewFileOpenMode.
type FileOpenMode struct {
	verb      OpenVerb
	readWrite bool
	text      TextMode
}

// NewFileOpenMode builds a mode from its parts.
func NewFileOpenMode(verb OpenVerb, readWrite bool, text TextMode) (FileOpenMode, error) {
	if !verb.valid() {
		return FileOpenMode{}, fmt.Errorf("%w: unknown verb %q", ErrInvalidMode, byte(verb))
	}

	switch text {
	case TextModeNone, TextModeBinary, TextModeText:
	default:
		return FileOpenMode{}, fmt.Errorf("%w: unknown modifier %q", ErrInvalidMode, byte(text))
	}

	return FileOpenMode{verb: verb, readWrite: readWrite, text: text}, nil
}

// ParseFileOpenMode parses an open-mode token.
func ParseFileOpenMode(token string) (FileOpenMode, error) {
	if len(token) == 0 || len(token) > 3 {
		return FileOpenMode{}, fmt.Errorf("%w: %q", ErrInvalidMode, token)
	}

	mode := FileOpenMode{verb: OpenVerb(token[0])}
	if !mode.verb.valid() {
		return FileOpenMode{}, fmt.Errorf("%w: %q", ErrInvalidMode, token)
	}

	rest := token[1:]
	if len(rest) > 0 && rest[0] == '+' {
		mode.readWrite = true
		rest = rest[1:]
	}

	if len(rest) > 0 {
		switch TextMode(rest[0]) {
		case TextModeBinary, TextModeText:
			mode.text = TextMode(rest[0])
			rest = rest[1:]
		}
	}

	if len(rest) != 0 {
		return FileOpenMode{}, fmt.Errorf("%w: %q", ErrInvalidMode, token)
	}

	return mode, nil
}

// MustParseFileOpenMode is like ParseFileOpenMode but panics on error.
func MustParseFileOpenMode(token string) FileOpenMode {
	mode, err := ParseFileOpenMode(token)
	if err != nil {
		panic(err)
	}
	return mode
}

// Verb returns the base verb.
func (m FileOpenMode) Verb() OpenVerb {
	return m.verb
}

// TextMode returns the advisory text/binary modifier.
func (m FileOpenMode) TextMode() TextMode {
	return m.text
}

// Readable reports whether the stream may be read.
func (m FileOpenMode) Readable() bool {
	return m.verb == OpenReadExisting || m.readWrite
}

// Writable reports whether the stream may be written.
func (m FileOpenMode) Writable() bool {
	return m.verb != OpenReadExisting || m.readWrite
}

// CreatesNew reports whether a missing path is created.
func (m FileOpenMode) CreatesNew() bool {
	return m.verb != OpenReadExisting
}

// RequiresExisting reports whether the path must already exist.
func (m FileOpenMode) RequiresExisting() bool {
	return m.verb == OpenReadExisting
}

// TruncatesExisting reports whether existing content is discarded on open.
func (m FileOpenMode) TruncatesExisting() bool {
	return m.verb == OpenCreateOrTruncate
}

// AppendsWrites reports whether every write goes to the end of the file.
func (m FileOpenMode) AppendsWrites() bool {
	return m.verb == OpenCreateOrAppend
}

// FailsIfExists reports whether opening an existing path fails.
func (m FileOpenMode) FailsIfExists() bool {
	return m.verb == OpenCreateOnly
}

// String serializes the mode back into a token.
func (m FileOpenMode) String() string {
	buf := make([]byte, 0, 3)
	buf = append(buf, byte(m.verb))
	if m.readWrite {
		buf = append(buf, '+')
	}
	if m.text != TextModeNone {
		buf = append(buf, byte(m.text))
	}
	return string(buf)
}
