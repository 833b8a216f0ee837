package logger

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
)

func TestLoggerInit(t *testing.T) {
	if err := Init(); err != nil {
		t.Fatalf("failed to initialize logger: %v", err)
	}
	defer func() {
		if err := Sync(); err != nil {
			t.Errorf("failed to sync logger: %v", err)
		}
	}()

	if Get() == nil {
		t.Fatal("logger is nil after initialization")
	}
	if Named("test") == nil {
		t.Fatal("named logger is nil")
	}
}

func TestLoggerWritesFields(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, slog.LevelInfo).Named("ladder")

	l.Info(context.Background(), "match recorded", String("winner", "alice"), Int("gain", 21), Error(errors.New("boom")))

	out := buf.String()
	for _, want := range []string{"match recorded", "winner=alice", "gain=21", "component=ladder", "error=boom", "source="} {
		if !bytes.Contains(buf.Bytes(), []byte(want)) {
			t.Errorf("output %q does not contain %q", out, want)
		}
	}
}

func TestLoggerLevelFilter(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, slog.LevelWarn)

	l.Debug(context.Background(), "hidden")
	l.Info(context.Background(), "hidden too")
	if buf.Len() != 0 {
		t.Fatalf("expected no output below warn, got %q", buf.String())
	}
	l.Warn(context.Background(), "shown")
	if !bytes.Contains(buf.Bytes(), []byte("shown")) {
		t.Fatalf("expected warn output, got %q", buf.String())
	}
}

func TestNop(t *testing.T) {
	l := Nop()
	l.Error(context.Background(), "discarded", Bool("ok", false))
	if l.Named("x") == nil {
		t.Fatal("named nop logger is nil")
	}
}

func TestSetLevelString(t *testing.T) {
	for _, lvl := range []string{"debug", "INFO", "", "warning", "error"} {
		if err := SetLevelString(lvl); err != nil {
			t.Errorf("SetLevelString(%q) returned %v", lvl, err)
		}
	}
	if err := SetLevelString("loud"); err == nil {
		t.Error("expected an error for an unknown level")
	}
}

func TestInitWithWriter(t *testing.T) {
	var buf bytes.Buffer
	if err := InitWithWriter(&buf); err != nil {
		t.Fatalf("init with writer: %v", err)
	}
	defer func() { _ = Init() }()

	Get().Info(context.Background(), "replay started", Int("events", 3))
	if !bytes.Contains(buf.Bytes(), []byte("events=3")) {
		t.Errorf("output %q does not contain the event count", buf.String())
	}
	if err := InitWithWriter(nil); err == nil {
		t.Error("expected an error for a nil writer")
	}
}
