package logger

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

func fixedLogger(level Level, buf *bytes.Buffer) *Logger {
	l := New(level, buf)
	l.now = func() time.Time { return time.Date(2024, 1, 1, 9, 5, 7, 0, time.UTC) }
	return l
}

func TestLogger_Format(t *testing.T) {
	var buf bytes.Buffer
	l := fixedLogger(LevelInfo, &buf)

	l.Info("Pipeline: Stage %d/%d - %s", 1, 7, "extract")

	want := "[09:05:07] INFO: Pipeline: Stage 1/7 - extract\n"
	if got := buf.String(); got != want {
		t.Errorf("output = %q, want %q", got, want)
	}
}

func TestLogger_LevelFilter(t *testing.T) {
	var buf bytes.Buffer
	l := fixedLogger(LevelWarn, &buf)

	l.Debug("hidden")
	l.Info("hidden")
	l.Warn("slow chunk")
	l.Error("boom")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("messages below level leaked: %q", out)
	}
	if !strings.Contains(out, "WARN: slow chunk") || !strings.Contains(out, "ERROR: boom") {
		t.Errorf("expected warn and error lines, got %q", out)
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want Level
	}{
		{"debug", LevelDebug},
		{"INFO", LevelInfo},
		{" warning ", LevelWarn},
		{"error", LevelError},
		{"", LevelInfo},
		{"verbose", LevelInfo},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestDiscard_NilSafe(t *testing.T) {
	Discard().Error("nothing %d", 1)

	var l *Logger
	l.Info("nil logger must not panic")
}
