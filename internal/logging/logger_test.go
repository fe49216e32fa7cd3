package logging

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"chatpipe/internal/config"
)

func TestNewJSONHandlerFormatsLevel(t *testing.T) {
	var buf bytes.Buffer
	levelVar := new(slog.LevelVar)
	handler, err := newJSONHandler(&buf, levelVar, false)
	if err != nil {
		t.Fatalf("newJSONHandler: %v", err)
	}
	logger := slog.New(handler)
	logger.Info("started", "step", "M1_parse")

	out := buf.String()
	if !strings.Contains(out, `"level":"info"`) {
		t.Fatalf("expected lowercase level in output: %s", out)
	}
	if !strings.Contains(out, `"step":"M1_parse"`) {
		t.Fatalf("expected step field in output: %s", out)
	}
}

func TestPrettyHandlerFlattensGroups(t *testing.T) {
	var buf bytes.Buffer
	levelVar := new(slog.LevelVar)
	handler := newPrettyHandler(&buf, levelVar, false)
	logger := slog.New(handler)
	logger.Info("resolved", slog.Group("media", slog.String("kind", "voice")))

	out := buf.String()
	if !strings.Contains(out, "media.kind=voice") {
		t.Fatalf("expected flattened group key in output: %s", out)
	}
}

func TestNewStepLoggerWritesUnderRunDir(t *testing.T) {
	dir := t.TempDir()
	cfg := &config.Config{}
	cfg.Logging.Level = "info"
	cfg.Logging.Format = "json"

	logger, closer, err := NewStepLogger(cfg, dir, "M2_media")
	if err != nil {
		t.Fatalf("NewStepLogger: %v", err)
	}
	logger.Info("step started")
	if err := closer(); err != nil {
		t.Fatalf("closer: %v", err)
	}

	path := filepath.Join(dir, "logs", "M2_media.log")
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read step log: %v", err)
	}
	if len(data) == 0 {
		t.Fatalf("expected non-empty log file")
	}
}
