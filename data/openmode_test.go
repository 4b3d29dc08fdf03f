package data_test

import (
	"errors"
	"testing"

	"github.com/mwantia/afs/data"
)

func TestParseFileOpenMode_Table(t *testing.T) {
	tests := []struct {
		token            string
		readable         bool
		writable         bool
		createsNew       bool
		requiresExisting bool
		truncates        bool
		appends          bool
		failsIfExists    bool
	}{
		{"r", true, false, false, true, false, false, false},
		{"r+", true, true, false, true, false, false, false},
		{"w", false, true, true, false, true, false, false},
		{"w+", true, true, true, false, true, false, false},
		{"a", false, true, true, false, false, true, false},
		{"a+b", true, true, true, false, false, true, false},
		{"c", false, true, true, false, false, false, false},
		{"ct", false, true, true, false, false, false, false},
		{"x", false, true, true, false, false, false, true},
		{"x+", true, true, true, false, false, false, true},
	}

	for _, tc := range tests {
		t.Run(tc.token, func(t *testing.T) {
			mode, err := data.ParseFileOpenMode(tc.token)
			if err != nil {
				t.Fatalf("Parse failed: %v", err)
			}

			if mode.Readable() != tc.readable {
				t.Errorf("Readable: expected %v", tc.readable)
			}
			if mode.Writable() != tc.writable {
				t.Errorf("Writable: expected %v", tc.writable)
			}
			if mode.CreatesNew() != tc.createsNew {
				t.Errorf("CreatesNew: expected %v", tc.createsNew)
			}
			if mode.RequiresExisting() != tc.requiresExisting {
				t.Errorf("RequiresExisting: expected %v", tc.requiresExisting)
			}
			if mode.TruncatesExisting() != tc.truncates {
				t.Errorf("TruncatesExisting: expected %v", tc.truncates)
			}
			if mode.AppendsWrites() != tc.appends {
				t.Errorf("AppendsWrites: expected %v", tc.appends)
			}
			if mode.FailsIfExists() != tc.failsIfExists {
				t.Errorf("FailsIfExists: expected %v", tc.failsIfExists)
			}
		})
	}
}

func TestParseFileOpenMode_Invalid(t *testing.T) {
	for _, token := range []string{"", "q", "rw", "r++", "+r", "rb+", "r+bt", "wx", "R", "r+z"} {
		if _, err := data.ParseFileOpenMode(token); !errors.Is(err, data.ErrInvalidMode) {
			t.Errorf("Token %q: expected ErrInvalidMode, got %v", token, err)
		}
	}
}

func TestParseFileOpenMode_Idempotent(t *testing.T) {
	for _, verb := range "rwaxc" {
		for _, plus := range []string{"", "+"} {
			for _, text := range []string{"", "b", "t"} {
				token := string(verb) + plus + text

				first, err := data.ParseFileOpenMode(token)
				if err != nil {
					t.Fatalf("Parse %q failed: %v", token, err)
				}
				if first.String() != token {
					t.Errorf("Serialize: expected %q, got %q", token, first.String())
				}

				second, err := data.ParseFileOpenMode(first.String())
				if err != nil {
					t.Fatalf("Reparse %q failed: %v", first.String(), err)
				}
				if second != first {
					t.Errorf("Reparse of %q differs: %+v vs %+v", token, second, first)
				}
			}
		}
	}
}

func TestNewFileOpenMode(t *testing.T) {
	mode, err := data.NewFileOpenMode(data.OpenCreateOrAppend, true, data.TextModeBinary)
	if err != nil {
		t.Fatalf("NewFileOpenMode failed: %v", err)
	}
	if mode.String() != "a+b" {
		t.Errorf("Expected a+b, got %q", mode.String())
	}

	if _, err := data.NewFileOpenMode('z', false, data.TextModeNone); !errors.Is(err, data.ErrInvalidMode) {
		t.Errorf("Expected ErrInvalidMode, got %v", err)
	}
}

func TestDecodeWhence(t *testing.T) {
	for raw, expected := range map[int]data.Whence{0: data.WhenceStart, 1: data.WhenceCurrent, 2: data.WhenceEnd} {
		got, err := data.DecodeWhence(raw)
		if err != nil || got != expected {
			t.Errorf("Whence %d: expected %d, got %d (%v)", raw, expected, got, err)
		}
	}

	if _, err := data.DecodeWhence(3); !errors.Is(err, data.ErrInvalid) {
		t.Errorf("Expected ErrInvalid, got %v", err)
	}
}
