package manifest

import (
	"path/filepath"
	"testing"
)

func TestInitSeedsAllDefaultStepsPending(t *testing.T) {
	m := Init("run-1", "/archive", "/archive/_chat.txt", "/archive/runs/run-1", true)
	if len(m.Steps) != len(DefaultSteps) {
		t.Fatalf("expected %d steps, got %d", len(DefaultSteps), len(m.Steps))
	}
	for _, name := range DefaultSteps {
		step, ok := m.Steps[name]
		if !ok {
			t.Fatalf("missing step %q", name)
		}
		if step.Status != StepPending {
			t.Fatalf("step %q: expected pending, got %q", name, step.Status)
		}
	}
	if !m.Summary.ResumeEnabled {
		t.Fatal("expected resume_enabled to carry through")
	}
}

func TestUpdateStepTransitionsAndTimestamps(t *testing.T) {
	m := Init("run-1", "/archive", "/archive/_chat.txt", "/archive/runs/run-1", true)
	if err := m.UpdateStep(StepParse, StepRunning, 10, 0, ""); err != nil {
		t.Fatalf("UpdateStep running: %v", err)
	}
	if m.CurrentStep != StepParse {
		t.Fatalf("expected current_step %q, got %q", StepParse, m.CurrentStep)
	}
	if m.Steps[StepParse].StartedAt == "" {
		t.Fatal("expected started_at to be set")
	}

	if err := m.UpdateStep(StepParse, StepOK, 10, 10, ""); err != nil {
		t.Fatalf("UpdateStep ok: %v", err)
	}
	if m.CurrentStep != "" {
		t.Fatalf("expected current_step cleared, got %q", m.CurrentStep)
	}
	if m.Steps[StepParse].EndedAt == "" {
		t.Fatal("expected ended_at to be set")
	}
}

func TestUpdateStepRejectsInvalidStatus(t *testing.T) {
	m := Init("run-1", "/archive", "/archive/_chat.txt", "/archive/runs/run-1", true)
	if err := m.UpdateStep(StepParse, StepStatus("bogus"), 0, 0, ""); err == nil {
		t.Fatal("expected error for invalid step status")
	}
}

func TestUpdateStepCreatesUnknownSteps(t *testing.T) {
	m := Init("run-1", "/archive", "/archive/_chat.txt", "/archive/runs/run-1", true)
	if err := m.UpdateStep("M4_custom", StepOK, 1, 1, ""); err != nil {
		t.Fatalf("UpdateStep: %v", err)
	}
	if _, ok := m.Steps["M4_custom"]; !ok {
		t.Fatal("expected new step to be created")
	}
}

func TestWriteThenLoadRoundTrips(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "run_manifest.json")

	m := Init("run-1", "/archive", "/archive/_chat.txt", dir, true)
	m.SetSummary(42, 7, "")
	m.Finalize()

	if err := Write(m, path); err != nil {
		t.Fatalf("Write: %v", err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.RunID != "run-1" || loaded.Summary.MessagesTotal != 42 || loaded.Summary.VoiceTotal != 7 {
		t.Fatalf("unexpected round-trip: %+v", loaded)
	}
	if loaded.EndTime == "" {
		t.Fatal("expected end_time to round-trip")
	}
}

func TestLoadRejectsUnsupportedMajorVersion(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "run_manifest.json")
	m := Init("run-1", "/archive", "/archive/_chat.txt", dir, true)
	m.SchemaVersion = "2.0.0"
	if err := Write(m, path); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for unsupported major schema_version")
	}
}
