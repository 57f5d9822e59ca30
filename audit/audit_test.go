package audit

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLogDMLWritesAPipeDelimitedLine(t *testing.T) {
	dir := t.TempDir()
	l, err := Open(dir, slog.Default())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	l.LogDML("INSERT", "users", "INSERT INTO users VALUES (1)", "alice", true, "")
	l.Stop(2 * time.Second)

	data, err := os.ReadFile(filepath.Join(dir, "audit.log"))
	if err != nil {
		t.Fatalf("reading audit.log failed: %v", err)
	}
	line := strings.TrimSpace(string(data))
	fields := strings.Split(line, "|")
	if len(fields) != 7 {
		t.Fatalf("expected 7 pipe-delimited fields, got %d: %q", len(fields), line)
	}
	if fields[1] != "INSERT" || fields[2] != "users" || fields[3] != "alice" || fields[4] != "SUCCESS" {
		t.Errorf("unexpected fields: %+v", fields)
	}
}

func TestLogDMLDefaultsUserToSystem(t *testing.T) {
	dir := t.TempDir()
	l, _ := Open(dir, slog.Default())
	l.LogDML("DELETE", "users", "DELETE FROM users", "", false, "constraint violation")
	l.Stop(2 * time.Second)

	data, _ := os.ReadFile(filepath.Join(dir, "audit.log"))
	if !strings.Contains(string(data), "|system|FAILURE|") {
		t.Errorf("expected default user 'system' and FAILURE status, got %q", data)
	}
	if !strings.Contains(string(data), "constraint violation") {
		t.Errorf("expected the error message to be recorded, got %q", data)
	}
}

func TestFormatEntryStripsNewlinesFromSQL(t *testing.T) {
	e := Entry{
		Timestamp: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		Operation: "INSERT",
		Table:     "t",
		User:      "u",
		Success:   true,
		SQL:       "INSERT INTO t\nVALUES (1)",
	}
	line := formatEntry(e)
	if strings.Contains(line, "\n") && !strings.HasSuffix(line, "\n") {
		t.Errorf("expected only the trailing newline, got %q", line)
	}
	if !strings.Contains(line, "INSERT INTO t VALUES (1)") {
		t.Errorf("expected embedded newlines to be replaced with spaces, got %q", line)
	}
}

func TestStopIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	l, _ := Open(dir, slog.Default())
	l.LogDML("INSERT", "t", "INSERT INTO t VALUES (1)", "", true, "")
	l.Stop(2 * time.Second)
	l.Stop(2 * time.Second) // must not panic on double close
}

func TestMultipleEntriesAllPersisted(t *testing.T) {
	dir := t.TempDir()
	l, _ := Open(dir, slog.Default())
	for i := 0; i < 20; i++ {
		l.LogDML("INSERT", "t", "INSERT INTO t VALUES (1)", "", true, "")
	}
	l.Stop(2 * time.Second)

	data, _ := os.ReadFile(filepath.Join(dir, "audit.log"))
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 20 {
		t.Errorf("expected 20 audit lines, got %d", len(lines))
	}
}
