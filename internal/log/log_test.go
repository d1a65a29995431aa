package log

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

func TestLoggerLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := &Logger{out: &buf, level: LevelWarn, nowFun: func() time.Time { return time.Unix(0, 0) }}

	l.Debug("should not appear")
	l.Info("should not appear either")
	l.Warn("should appear", "k", "v")

	out := buf.String()
	if strings.Contains(out, "should not appear") {
		t.Fatalf("expected filtered output, got %q", out)
	}
	if !strings.Contains(out, "should appear") || !strings.Contains(out, "k=v") {
		t.Fatalf("expected warn record with context, got %q", out)
	}
}

func TestLoggerChildContext(t *testing.T) {
	var buf bytes.Buffer
	l := &Logger{out: &buf, level: LevelInfo, nowFun: func() time.Time { return time.Unix(0, 0) }}
	child := l.New("component", "server")
	child.Info("started", "addr", "127.0.0.1:65432")

	out := buf.String()
	if !strings.Contains(out, "component=server") || !strings.Contains(out, "addr=127.0.0.1:65432") {
		t.Fatalf("expected inherited context in output, got %q", out)
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]Level{
		"info":  LevelInfo,
		"DEBUG": LevelDebug,
		"Warn":  LevelWarn,
		"error": LevelError,
		"crit":  LevelCrit,
	}
	for in, want := range cases {
		got, err := ParseLevel(in)
		if err != nil {
			t.Fatalf("ParseLevel(%q): %v", in, err)
		}
		if got != want {
			t.Fatalf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
	if _, err := ParseLevel("bogus"); err == nil {
		t.Fatal("expected error for unknown level")
	}
}
