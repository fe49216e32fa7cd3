package orchestrator

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"chatpipe/internal/config"
	"chatpipe/internal/manifest"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Audio.CacheDir = ""
	cfg.ASR.Provider = "stub"
	cfg.Orchestrator.RunsRootDir = filepath.Join(t.TempDir(), "runs")
	cfg.Orchestrator.MaxWorkersAudio = 2
	return &cfg
}

func writeTextArchive(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	chat := "1/15/24, 09:05 - Alice: Hello there\n" +
		"1/15/24, 09:06 - Bob: Hi Alice\n" +
		"1/15/24, 09:07 - Alice: How are you?\n"
	if err := os.WriteFile(filepath.Join(root, "_chat.txt"), []byte(chat), 0o644); err != nil {
		t.Fatalf("write chat export: %v", err)
	}
	return root
}

func TestRunEndToEndTextOnlyArchiveProducesAllOutputs(t *testing.T) {
	cfg := testConfig(t)
	root := writeTextArchive(t)

	result, err := Run(context.Background(), cfg, Options{Root: root}, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.MessagesTotal != 3 {
		t.Fatalf("messages_total = %d, want 3", result.MessagesTotal)
	}

	paths := NewPaths(result.RunDir)
	for _, p := range []string{paths.MessagesM1, paths.MessagesM2, paths.MessagesM3, paths.ChatWithAudio, paths.PreviewTranscripts, paths.Manifest, paths.Metrics} {
		if _, err := os.Stat(p); err != nil {
			t.Fatalf("expected output %s to exist: %v", p, err)
		}
	}

	m, err := manifest.Load(paths.Manifest)
	if err != nil {
		t.Fatalf("load manifest: %v", err)
	}
	for _, step := range manifest.DefaultSteps {
		if m.Steps[step].Status != manifest.StepOK {
			t.Fatalf("step %s: status = %q, want ok", step, m.Steps[step].Status)
		}
	}
	if m.Summary.MessagesTotal != 3 {
		t.Fatalf("manifest summary messages_total = %d, want 3", m.Summary.MessagesTotal)
	}
}

func TestRunResumeSkipsCompletedSteps(t *testing.T) {
	cfg := testConfig(t)
	root := writeTextArchive(t)

	first, err := Run(context.Background(), cfg, Options{Root: root, RunID: "fixed-run"}, nil)
	if err != nil {
		t.Fatalf("first Run: %v", err)
	}

	// Corrupt the chat export so a non-resumed re-parse would fail; a
	// resumed run must never touch it since M1_parse is already ok.
	if err := os.WriteFile(filepath.Join(root, "_chat.txt"), []byte("not a valid export\n"), 0o644); err != nil {
		t.Fatalf("corrupt chat export: %v", err)
	}

	second, err := Run(context.Background(), cfg, Options{Root: root, RunID: "fixed-run", Resume: true}, nil)
	if err != nil {
		t.Fatalf("resumed Run: %v", err)
	}
	if second.RunDir != first.RunDir {
		t.Fatalf("resumed run_dir = %q, want same as first run %q", second.RunDir, first.RunDir)
	}
	if second.MessagesTotal != first.MessagesTotal {
		t.Fatalf("resumed messages_total = %d, want %d (reused M1 output)", second.MessagesTotal, first.MessagesTotal)
	}
}

func TestRunRejectsMissingChatFile(t *testing.T) {
	cfg := testConfig(t)
	root := t.TempDir()
	if _, err := Run(context.Background(), cfg, Options{Root: root}, nil); err == nil {
		t.Fatal("expected error when chat export is missing")
	}
}

func TestMaterializeWritesStandardOutputsWithoutManifestBookkeeping(t *testing.T) {
	cfg := testConfig(t)
	root := writeTextArchive(t)
	runDir := filepath.Join(t.TempDir(), "materialize-run")

	result, err := Materialize(context.Background(), cfg, root, "", runDir, "materialize-run", nil)
	if err != nil {
		t.Fatalf("Materialize: %v", err)
	}
	if result.MessagesTotal != 3 {
		t.Fatalf("messages_total = %d, want 3", result.MessagesTotal)
	}

	paths := NewPaths(runDir)
	for _, p := range []string{paths.MessagesM1, paths.MessagesM2, paths.MessagesM3, paths.ChatWithAudio, paths.PreviewTranscripts, paths.Manifest, paths.Metrics} {
		if _, err := os.Stat(p); err != nil {
			t.Fatalf("expected output %s to exist: %v", p, err)
		}
	}

	m, err := manifest.Load(paths.Manifest)
	if err != nil {
		t.Fatalf("load manifest: %v", err)
	}
	for _, step := range manifest.DefaultSteps {
		if m.Steps[step].Status != manifest.StepOK {
			t.Fatalf("step %s: status = %q, want ok", step, m.Steps[step].Status)
		}
	}
}
