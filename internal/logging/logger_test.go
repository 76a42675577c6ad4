package logging

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestConsoleHandlerFormatsLine(t *testing.T) {
	var buf bytes.Buffer
	lvl := new(slog.LevelVar)
	logger := slog.New(newConsoleHandler(&buf, lvl))

	logger.With(String(FieldComponent, "orchestrator")).Info(
		"stage started",
		String(FieldJobID, "abc"),
		Int("cuts", 4),
	)

	out := buf.String()
	if !strings.Contains(out, "INFO orchestrator: stage started") {
		t.Fatalf("unexpected line: %q", out)
	}
	if !strings.Contains(out, "job_id=abc") || !strings.Contains(out, "cuts=4") {
		t.Fatalf("attrs missing: %q", out)
	}
}

func TestConsoleHandlerQuotesValuesWithSpaces(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(newConsoleHandler(&buf, new(slog.LevelVar)))
	logger.Info("msg", String("reason", "media toolchain failed"))
	if !strings.Contains(buf.String(), `reason="media toolchain failed"`) {
		t.Fatalf("value not quoted: %q", buf.String())
	}
}

func TestConsoleHandlerRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	lvl := new(slog.LevelVar)
	lvl.Set(slog.LevelWarn)
	logger := slog.New(newConsoleHandler(&buf, lvl))
	logger.Info("suppressed")
	if buf.Len() != 0 {
		t.Fatalf("info should be suppressed at warn level: %q", buf.String())
	}
	logger.Warn("kept")
	if !strings.Contains(buf.String(), "WARN kept") {
		t.Fatalf("warn line missing: %q", buf.String())
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := New(Options{Format: "yaml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestProgressSampler(t *testing.T) {
	s := NewProgressSampler(5)
	if !s.ShouldLog(0, "decode") {
		t.Fatal("first event should log")
	}
	if s.ShouldLog(2, "decode") {
		t.Fatal("same bucket should be suppressed")
	}
	if !s.ShouldLog(7, "decode") {
		t.Fatal("bucket change should log")
	}
	if !s.ShouldLog(7, "export") {
		t.Fatal("stage change should log")
	}
	if !s.ShouldLog(100, "export") {
		t.Fatal("completion should log")
	}
	s.Reset()
	if !s.ShouldLog(0, "decode") {
		t.Fatal("reset should clear state")
	}
}
