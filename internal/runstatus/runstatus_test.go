package runstatus

import (
	"os"
	"path/filepath"
	"testing"

	"chatpipe/internal/manifest"
	"chatpipe/internal/metrics"
)

func writeRun(t *testing.T, runDir, runID string, steps map[string]manifest.StepStatus, summaryErr string) {
	t.Helper()
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		t.Fatalf("mkdir run dir: %v", err)
	}
	m := manifest.Init(runID, "/archive", "/archive/_chat.txt", runDir, false)
	for name, status := range steps {
		if err := m.UpdateStep(name, status, 1, 1, ""); err != nil {
			t.Fatalf("update step: %v", err)
		}
	}
	m.SetSummary(3, 1, summaryErr)
	if err := manifest.Write(m, filepath.Join(runDir, "run_manifest.json")); err != nil {
		t.Fatalf("write manifest: %v", err)
	}

	snapshot := metrics.Metrics{SchemaVersion: metrics.SchemaVersion, VoiceOK: 1}
	if err := metrics.Write(snapshot, filepath.Join(runDir, "metrics.json")); err != nil {
		t.Fatalf("write metrics: %v", err)
	}
}

func TestLoadFlattensManifestAndMetrics(t *testing.T) {
	runDir := filepath.Join(t.TempDir(), "run1")
	writeRun(t, runDir, "run1", map[string]manifest.StepStatus{
		manifest.StepParse: manifest.StepOK,
		manifest.StepMedia: manifest.StepOK,
		manifest.StepAudio: manifest.StepOK,
		manifest.StepText:  manifest.StepOK,
	}, "")

	summary, err := Load(runDir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if summary.Status != "ok" {
		t.Fatalf("status = %q, want ok", summary.Status)
	}
	if summary.MessagesTotal != 3 || summary.VoiceOK != 1 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if len(summary.Steps) != len(manifest.DefaultSteps) {
		t.Fatalf("expected %d steps, got %d", len(manifest.DefaultSteps), len(summary.Steps))
	}
}

func TestLoadReportsFailedStatusFromStepOrSummaryError(t *testing.T) {
	runDir := filepath.Join(t.TempDir(), "run-failed")
	writeRun(t, runDir, "run-failed", map[string]manifest.StepStatus{
		manifest.StepParse: manifest.StepOK,
		manifest.StepMedia: manifest.StepFailed,
	}, "")
	summary, err := Load(runDir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if summary.Status != "failed" {
		t.Fatalf("status = %q, want failed", summary.Status)
	}
}

func TestLoadReportsRunningStatus(t *testing.T) {
	runDir := filepath.Join(t.TempDir(), "run-running")
	writeRun(t, runDir, "run-running", map[string]manifest.StepStatus{
		manifest.StepParse: manifest.StepOK,
		manifest.StepMedia: manifest.StepRunning,
	}, "")
	summary, err := Load(runDir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if summary.Status != "running" {
		t.Fatalf("status = %q, want running", summary.Status)
	}
}

func TestListFindsRunsUnderRunsSubdirSortedNewestFirst(t *testing.T) {
	root := t.TempDir()
	runsDir := filepath.Join(root, "runs")

	older := filepath.Join(runsDir, "older")
	writeRun(t, older, "older", map[string]manifest.StepStatus{manifest.StepParse: manifest.StepOK}, "")
	newer := filepath.Join(runsDir, "newer")
	writeRun(t, newer, "newer", map[string]manifest.StepStatus{manifest.StepParse: manifest.StepOK}, "")

	// Force a deterministic ordering independent of wall-clock timing.
	bumpStartTime(t, older, "2020-01-01T00:00:00Z")
	bumpStartTime(t, newer, "2030-01-01T00:00:00Z")

	summaries, err := List(root)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(summaries) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(summaries))
	}
	if summaries[0].RunID != "newer" {
		t.Fatalf("expected newer run first, got %q", summaries[0].RunID)
	}
}

func TestListSkipsDirectoriesWithoutManifest(t *testing.T) {
	root := t.TempDir()
	runsDir := filepath.Join(root, "runs")
	if err := os.MkdirAll(filepath.Join(runsDir, "not-a-run"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	writeRun(t, filepath.Join(runsDir, "real-run"), "real-run", map[string]manifest.StepStatus{manifest.StepParse: manifest.StepOK}, "")

	summaries, err := List(root)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(summaries) != 1 {
		t.Fatalf("expected 1 run, got %d", len(summaries))
	}
}

func bumpStartTime(t *testing.T, runDir, startTime string) {
	t.Helper()
	manifestPath := filepath.Join(runDir, "run_manifest.json")
	m, err := manifest.Load(manifestPath)
	if err != nil {
		t.Fatalf("load manifest: %v", err)
	}
	m.StartTime = startTime
	if err := manifest.Write(m, manifestPath); err != nil {
		t.Fatalf("write manifest: %v", err)
	}
}
