package logger

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

// TestHandler_Format verifies the timestamp, level tag, message and attributes.
func TestHandler_Format(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(NewHandler(&buf))

	log.Info("node assigned", "owner", "0xabc")

	line := buf.String()
	if !strings.Contains(line, "[INF] node assigned owner=0xabc") {
		t.Errorf("unexpected line: %q", line)
	}
}

// TestHandler_WithAttrs verifies bound attributes precede record attributes.
func TestHandler_WithAttrs(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(NewHandler(&buf)).With("component", "registry")

	log.Warn("rejected", "node", "0x01")

	line := buf.String()
	if !strings.Contains(line, "[WRN] rejected component=registry node=0x01") {
		t.Errorf("unexpected line: %q", line)
	}
}

// TestHandler_LevelThreshold verifies records below the level are dropped.
func TestHandler_LevelThreshold(t *testing.T) {
	SetLevel(slog.LevelWarn)
	defer SetLevel(slog.LevelInfo)

	var buf bytes.Buffer
	log := slog.New(NewHandler(&buf))

	log.Info("hidden")
	log.Error("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Error("info record written above warn threshold")
	}
	if !strings.Contains(out, "[ERR] shown") {
		t.Errorf("error record missing: %q", out)
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		raw  string
		want slog.Level
		ok   bool
	}{
		{"debug", slog.LevelDebug, true},
		{" WARN ", slog.LevelWarn, true},
		{"", slog.LevelInfo, true},
		{"error", slog.LevelError, true},
		{"loud", slog.LevelInfo, false},
	}

	for _, tt := range tests {
		got, ok := ParseLevel(tt.raw)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ParseLevel(%q) = %v, %v; want %v, %v", tt.raw, got, ok, tt.want, tt.ok)
		}
	}
}
