package log

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"go.uber.org/zap/zapcore"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var entries []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]any
		if err := json.Unmarshal([]byte(line), &m); err != nil {
			t.Fatalf("invalid JSON log line %q: %v", line, err)
		}
		entries = append(entries, m)
	}
	return entries
}

func TestLogger_ContextFields(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger("receive").WithOutput(&buf).WithTransfer("t-1")

	l.Info("transfer finished", map[string]any{"name": "a.txt"})

	entries := decodeLines(t, &buf)
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	e := entries[0]
	if e["direction"] != "receive" {
		t.Errorf("direction = %v, want receive", e["direction"])
	}
	if e["transfer_id"] != "t-1" {
		t.Errorf("transfer_id = %v, want t-1", e["transfer_id"])
	}
	if e["level"] != "info" {
		t.Errorf("level = %v, want info", e["level"])
	}
	if e["message"] != "transfer finished" {
		t.Errorf("message = %v", e["message"])
	}
	fields, ok := e["fields"].(map[string]any)
	if !ok || fields["name"] != "a.txt" {
		t.Errorf("fields = %v", e["fields"])
	}
}

func TestLogger_LevelFilters(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger("receive").WithOutput(&buf)

	l.Debug("hidden", nil)
	l.Warn("shown", nil)

	entries := decodeLines(t, &buf)
	if len(entries) != 1 || entries[0]["message"] != "shown" {
		t.Fatalf("entries = %v, want only the warning", entries)
	}

	buf.Reset()
	l.WithLevel(zapcore.DebugLevel).Debug("now shown", nil)
	if len(decodeLines(t, &buf)) != 1 {
		t.Error("debug entry missing after WithLevel(debug)")
	}
}

func TestLogger_WithOutputKeepsTransfer(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger("send").WithTransfer("t-9").WithOutput(&buf)
	l.Error("boom", nil)

	entries := decodeLines(t, &buf)
	if len(entries) != 1 || entries[0]["transfer_id"] != "t-9" {
		t.Errorf("entries = %v, want transfer_id t-9", entries)
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    zapcore.Level
		wantErr bool
	}{
		{"debug", zapcore.DebugLevel, false},
		{"INFO", zapcore.InfoLevel, false},
		{" warn ", zapcore.WarnLevel, false},
		{"error", zapcore.ErrorLevel, false},
		{"chatty", zapcore.InfoLevel, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseLevel(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestNop(t *testing.T) {
	l := Nop()
	l.Info("discarded", nil)
	l.WithTransfer("x").Sugar().Infof("discarded %d", 1)
	l.WithOutput(&bytes.Buffer{}).Info("still discarded", nil)
}
