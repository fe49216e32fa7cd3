// Package runstatus loads and summarizes completed or in-progress pipeline
// runs from their on-disk manifest/metrics, for the `chatpipe status`
// command and any future inspection tool.
package runstatus

import (
	"os"
	"path/filepath"
	"sort"

	"chatpipe/internal/manifest"
	"chatpipe/internal/metrics"
)

// StepSummary mirrors one manifest.StepProgress entry for display.
type StepSummary struct {
	Name      string
	Status    string
	Total     int
	Done      int
	Error     string
	StartedAt string
	EndedAt   string
}

// Summary is a flattened, display-ready view of one run's manifest and
// (optional) metrics.
type Summary struct {
	RunID             string
	RunDir            string
	Root              string
	ChatFile          string
	Status            string
	StartTime         string
	EndTime           string
	MessagesTotal     int
	VoiceTotal        int
	VoiceOK           int
	VoiceFailed       int
	AudioSecondsTotal float64
	ASRCostTotal      float64
	Error             string
	Steps             []StepSummary
}

// Load reads run_manifest.json (required) and metrics.json (optional, best
// effort) from runDir and flattens them into a Summary.
func Load(runDir string) (Summary, error) {
	m, err := manifest.Load(filepath.Join(runDir, "run_manifest.json"))
	if err != nil {
		return Summary{}, err
	}

	var snapshot metrics.Metrics
	if loaded, err := metrics.Load(filepath.Join(runDir, "metrics.json")); err == nil {
		snapshot = *loaded
	}

	steps := make([]StepSummary, 0, len(manifest.DefaultSteps))
	for _, name := range manifest.DefaultSteps {
		sp, ok := m.Steps[name]
		if !ok {
			steps = append(steps, StepSummary{Name: name, Status: string(manifest.StepPending)})
			continue
		}
		steps = append(steps, StepSummary{
			Name:      sp.Name,
			Status:    string(sp.Status),
			Total:     sp.Total,
			Done:      sp.Done,
			Error:     sp.Error,
			StartedAt: sp.StartedAt,
			EndedAt:   sp.EndedAt,
		})
	}

	return Summary{
		RunID:             m.RunID,
		RunDir:            m.RunDir,
		Root:              m.Root,
		ChatFile:          m.ChatFile,
		Status:            determineStatus(m),
		StartTime:         m.StartTime,
		EndTime:           m.EndTime,
		MessagesTotal:     m.Summary.MessagesTotal,
		VoiceTotal:        m.Summary.VoiceTotal,
		VoiceOK:           snapshot.VoiceOK,
		VoiceFailed:       snapshot.VoiceFailed,
		AudioSecondsTotal: snapshot.AudioSecondsTotal,
		ASRCostTotal:      snapshot.ASRCostTotal,
		Error:             m.Summary.Error,
		Steps:             steps,
	}, nil
}

// determineStatus derives an overall run status from its step statuses:
// any failed step (or a summary-level error) wins, then any running step,
// then all-ok, else pending.
func determineStatus(m *manifest.Manifest) string {
	if m.Summary.Error != "" {
		return "failed"
	}
	sawRunning := false
	allOK := len(m.Steps) > 0
	for _, sp := range m.Steps {
		switch sp.Status {
		case manifest.StepFailed:
			return "failed"
		case manifest.StepRunning:
			sawRunning = true
			allOK = false
		case manifest.StepOK:
		default:
			allOK = false
		}
	}
	if sawRunning {
		return "running"
	}
	if allOK {
		return "ok"
	}
	return "pending"
}

// List finds every run under root, preferring a "runs" subdirectory when
// present (the standard layout root/runs/<run_id>), falling back to
// treating root itself as the runs directory. Invalid or unreadable run
// directories are skipped rather than failing the whole listing. Results
// are sorted by start time, newest first.
func List(root string) ([]Summary, error) {
	runsDir := root
	if info, err := os.Stat(filepath.Join(root, "runs")); err == nil && info.IsDir() {
		runsDir = filepath.Join(root, "runs")
	}

	entries, err := os.ReadDir(runsDir)
	if err != nil {
		return nil, err
	}

	summaries := make([]Summary, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		runDir := filepath.Join(runsDir, entry.Name())
		if _, err := os.Stat(filepath.Join(runDir, "run_manifest.json")); err != nil {
			continue
		}
		summary, err := Load(runDir)
		if err != nil {
			continue
		}
		summaries = append(summaries, summary)
	}

	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].StartTime > summaries[j].StartTime
	})
	return summaries, nil
}
