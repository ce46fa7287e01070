package logx

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestZeroLoggerIsSafe(t *testing.T) {
	var l Logger
	if !l.IsZero() {
		t.Fatal("zero value should report IsZero")
	}
	l.Info("nothing", String("k", "v"))
	l.With(Int("n", 1)).Error("still nothing")
	if Nop().IsZero() {
		t.Fatal("Nop should not be zero")
	}
}

func TestWithAddsFields(t *testing.T) {
	var buf bytes.Buffer
	l := New(zerolog.New(&buf)).With(String("component", "engine"))
	l.Info("started", Int64("tick", 42), Bool("paused", false))

	out := buf.String()
	for _, want := range []string{`"component":"engine"`, `"tick":42`, `"paused":false`, `"message":"started"`, `"caller":"logging_test.go:`} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %s in %s", want, out)
		}
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]zerolog.Level{
		"debug":   zerolog.DebugLevel,
		" WARN ":  zerolog.WarnLevel,
		"warning": zerolog.WarnLevel,
		"Trace":   zerolog.TraceLevel,
		"bogus":   zerolog.InfoLevel,
		"":        zerolog.InfoLevel,
	}
	for in, want := range cases {
		if got := parseLevel(in, zerolog.InfoLevel); got != want {
			t.Fatalf("parseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestServiceWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.log")
	svc, log := NewService(Config{Level: "info", File: FileConfig{Enabled: true, Path: path}})
	log.Info("hello", String("who", "file"))
	log.Debug("filtered")
	if err := svc.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.Contains(string(b), `"who":"file"`) {
		t.Fatalf("missing field in %s", b)
	}
	if strings.Contains(string(b), "filtered") {
		t.Fatal("debug line should be filtered at info")
	}
}

func TestApplySwapsLevelForHandedOutLoggers(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.log")
	file := FileConfig{Enabled: true, Path: path}
	svc, log := NewService(Config{Level: "info", File: file})
	child := log.With(String("comp", "engine"))

	child.Debug("before")
	svc.Apply(Config{Level: "debug", File: file})
	child.Debug("after")
	if err := svc.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if strings.Contains(string(b), "before") || !strings.Contains(string(b), `"message":"after"`) {
		t.Fatalf("unexpected log contents: %s", b)
	}
}
