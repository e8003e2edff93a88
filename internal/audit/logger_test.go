package audit

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoggerWritesJSONLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.log")
	l := NewLogger(path)
	if err := l.Log(Event{
		Actor:   "alice@example.com",
		Action:  "auth.login",
		Outcome: "success",
	}); err != nil {
		t.Fatalf("Log() error: %v", err)
	}

	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read audit log: %v", err)
	}
	line := strings.TrimSpace(string(b))
	if line == "" {
		t.Fatalf("expected non-empty audit line")
	}
	var e Event
	if err := json.Unmarshal([]byte(line), &e); err != nil {
		t.Fatalf("decode audit line: %v", err)
	}
	if e.Actor != "alice@example.com" || e.Action != "auth.login" || e.Outcome != "success" {
		t.Fatalf("unexpected audit event content: %+v", e)
	}
	if e.At == "" {
		t.Fatalf("expected timestamp to be filled in")
	}
}

func TestNilLoggerIsNoop(t *testing.T) {
	var l *Logger
	if err := l.Log(Event{Action: "auth.login"}); err != nil {
		t.Fatalf("nil logger Log() error: %v", err)
	}
}
