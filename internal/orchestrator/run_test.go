package orchestrator

import (
	"os"
	"path/filepath"
	"testing"

	"chatpipe/internal/config"
)

func TestResolveRunIdentityDefaultsRunIDFromRootBaseName(t *testing.T) {
	cfg := config.Default()
	runsRoot := t.TempDir()
	cfg.Orchestrator.RunsRootDir = runsRoot

	root := filepath.Join(t.TempDir(), "My Export!!")
	if err := os.MkdirAll(root, 0o755); err != nil {
		t.Fatalf("mkdir root: %v", err)
	}

	runID, chatFile, runDir := resolveRunIdentity(&cfg, Options{Root: root})
	if runID != "my-export" {
		t.Fatalf("run_id = %q, want slug of root base name", runID)
	}
	if chatFile != filepath.Join(root, defaultChatFile) {
		t.Fatalf("chat_file = %q, want default under root", chatFile)
	}
	if runDir != filepath.Join(runsRoot, runID) {
		t.Fatalf("run_dir = %q, want runs_root_dir/run_id", runDir)
	}
}

func TestResolveRunIdentityHonorsExplicitOverrides(t *testing.T) {
	cfg := config.Default()
	root := t.TempDir()
	explicitDir := t.TempDir()

	runID, chatFile, runDir := resolveRunIdentity(&cfg, Options{
		Root:     root,
		RunID:    "Custom Run",
		ChatFile: filepath.Join(root, "export.txt"),
		RunDir:   explicitDir,
	})
	if runID != "custom-run" {
		t.Fatalf("run_id = %q, want slugified override", runID)
	}
	if chatFile != filepath.Join(root, "export.txt") {
		t.Fatalf("chat_file override not honored: %q", chatFile)
	}
	if runDir != explicitDir {
		t.Fatalf("run_dir override not honored: %q", runDir)
	}
}

func TestValidateRunInputsRejectsMissingRootOrChatFile(t *testing.T) {
	if err := validateRunInputs("", "whatever"); err == nil {
		t.Fatal("expected error for empty root")
	}
	root := t.TempDir()
	if err := validateRunInputs(root, filepath.Join(root, "nope.txt")); err == nil {
		t.Fatal("expected error for missing chat file")
	}
}
