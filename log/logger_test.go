package log

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestLogger_LevelFilter(t *testing.T) {
	var buf bytes.Buffer
	l := NewWriterLogger("registry", Warn, &buf)

	l.Debug("Mount: hidden %d", 1)
	l.Warn("Mount: visible %d", 2)

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("Debug message was written: %q", out)
	}
	if !strings.Contains(out, "Mount: visible 2") || !strings.Contains(out, "[registry]") {
		t.Errorf("Warn message missing: %q", out)
	}
}

func TestLogger_NamedJSON(t *testing.T) {
	var buf bytes.Buffer
	l := NewWriterLogger("afs", Debug, &buf)
	l.JSON = true

	l.Named("dispatcher").Info("StreamOpen: %s", "a.txt")

	var entry logEntry
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry); err != nil {
		t.Fatalf("Invalid JSON output %q: %v", buf.String(), err)
	}
	if entry.Component != "afs/dispatcher" || entry.Level != "INFO" || entry.Message != "StreamOpen: a.txt" {
		t.Errorf("Unexpected entry: %+v", entry)
	}
}

func TestLogger_NilAndDiscard(t *testing.T) {
	var l *Logger
	l.Error("must not panic")
	if l.Named("x") != nil || l.Enabled(Fatal) {
		t.Error("Nil logger should stay disabled")
	}

	NewDiscard().Error("dropped")
}

func TestParseLevel(t *testing.T) {
	for in, expected := range map[string]LogLevel{"debug": Debug, "INFO": Info, " warn ": Warn, "error": Error} {
		got, err := ParseLevel(in)
		if err != nil || got != expected {
			t.Errorf("ParseLevel(%q): expected %s, got %s (%v)", in, expected, got, err)
		}
	}

	if _, err := ParseLevel("verbose"); err == nil {
		t.Error("Expected an error for an unknown level")
	}
}
