// Package manifest tracks per-step progress for one pipeline run and
// persists it to run_manifest.json so a resumed or externally-inspected
// run can see exactly what happened without replaying any stage.
package manifest

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"chatpipe/internal/fileutil"
)

// SchemaVersion is the run_manifest.json wire-format version (spec §6
// "Schema versioning" — same semantic-version rules as Message).
const SchemaVersion = "1.0.0"

// Step names for the four pipeline stages, in execution order.
const (
	StepParse       = "M1_parse"
	StepMedia       = "M2_media"
	StepAudio       = "M3_audio"
	StepText        = "M5_render"
)

// DefaultSteps is the step set a freshly initialized manifest carries.
var DefaultSteps = []string{StepParse, StepMedia, StepAudio, StepText}

// StepStatus is the closed set of states a single step can be in.
type StepStatus string

const (
	StepPending StepStatus = "pending"
	StepRunning StepStatus = "running"
	StepOK      StepStatus = "ok"
	StepFailed  StepStatus = "failed"
	StepSkipped StepStatus = "skipped"
)

var validStepStatuses = map[StepStatus]struct{}{
	StepPending: {}, StepRunning: {}, StepOK: {}, StepFailed: {}, StepSkipped: {},
}

// StepProgress is the progress record for a single named step.
type StepProgress struct {
	Name      string     `json:"name"`
	Status    StepStatus `json:"status"`
	Total     int        `json:"total"`
	Done      int        `json:"done"`
	Error     string     `json:"error,omitempty"`
	StartedAt string     `json:"started_at,omitempty"`
	EndedAt   string     `json:"ended_at,omitempty"`
}

// Summary is the manifest's free-form result block — at minimum the
// counts spec §6 requires, plus the inputs/outputs paths a contract-test
// materialization run wants to record.
type Summary struct {
	MessagesTotal int               `json:"messages_total"`
	VoiceTotal    int               `json:"voice_total"`
	Error         string            `json:"error,omitempty"`
	ResumeEnabled bool              `json:"resume_enabled"`
	Inputs        map[string]string `json:"inputs,omitempty"`
	Outputs       map[string]string `json:"outputs,omitempty"`
}

// Manifest is the structured run_manifest.json payload shared between the
// orchestrator, the CLI status command, and any future inspection tool.
type Manifest struct {
	SchemaVersion string                  `json:"schema_version"`
	RunID         string                  `json:"run_id"`
	Root          string                  `json:"root"`
	ChatFile      string                  `json:"chat_file"`
	RunDir        string                  `json:"run_dir"`
	StartTime     string                  `json:"start_time"`
	EndTime       string                  `json:"end_time,omitempty"`
	CurrentStep   string                  `json:"current_step,omitempty"`
	Steps         map[string]*StepProgress `json:"steps"`
	Summary       Summary                 `json:"summary"`
}

// nowISO returns the current UTC instant truncated to the second, in the
// Z-suffixed RFC 3339 form the manifest uses throughout.
func nowISO() string {
	return time.Now().UTC().Truncate(time.Second).Format("2006-01-02T15:04:05Z")
}

// Init creates a manifest with every step in DefaultSteps set to pending.
func Init(runID, root, chatFile, runDir string, resume bool) *Manifest {
	steps := make(map[string]*StepProgress, len(DefaultSteps))
	for _, name := range DefaultSteps {
		steps[name] = &StepProgress{Name: name, Status: StepPending}
	}
	return &Manifest{
		SchemaVersion: SchemaVersion,
		RunID:         runID,
		Root:          root,
		ChatFile:      chatFile,
		RunDir:        runDir,
		StartTime:     nowISO(),
		Steps:         steps,
		Summary:       Summary{ResumeEnabled: resume},
	}
}

// UpdateStep mutates the named step's status and optional total/done/error,
// creating the step entry if it wasn't already present. Rejects a status
// outside the closed enum rather than writing a corrupt manifest.
func (m *Manifest) UpdateStep(name string, status StepStatus, total, done int, stepErr string) error {
	if _, ok := validStepStatuses[status]; !ok {
		return fmt.Errorf("manifest: invalid step status %q", status)
	}
	step, ok := m.Steps[name]
	if !ok {
		step = &StepProgress{Name: name}
		m.Steps[name] = step
	}
	switch status {
	case StepRunning:
		if step.StartedAt == "" {
			step.StartedAt = nowISO()
		}
		m.CurrentStep = name
	case StepOK, StepFailed, StepSkipped:
		step.EndedAt = nowISO()
		if m.CurrentStep == name {
			m.CurrentStep = ""
		}
	}
	step.Status = status
	step.Total = total
	step.Done = done
	step.Error = stepErr
	return nil
}

// Finalize stamps end_time, marking the run as no longer in progress.
func (m *Manifest) Finalize() {
	m.EndTime = nowISO()
}

// SetSummary replaces the messages/voice counts and top-level error in the
// manifest's summary block, leaving Inputs/Outputs untouched.
func (m *Manifest) SetSummary(messagesTotal, voiceTotal int, errMsg string) {
	m.Summary.MessagesTotal = messagesTotal
	m.Summary.VoiceTotal = voiceTotal
	m.Summary.Error = errMsg
}

// Load reads and decodes a manifest from path, rejecting an unknown major
// schema version per spec §6.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse manifest %s: %w", path, err)
	}
	if majorOf(m.SchemaVersion) != majorOf(SchemaVersion) {
		return nil, fmt.Errorf("manifest %s: unsupported schema_version %q", path, m.SchemaVersion)
	}
	return &m, nil
}

func majorOf(version string) string {
	for i, r := range version {
		if r == '.' {
			return version[:i]
		}
	}
	return version
}

// Write persists the manifest atomically (temp file + rename), matching
// the write-temp-then-rename idiom used throughout this module's cache and
// exceptions writers.
func Write(m *Manifest, path string) error {
	if m == nil {
		return errors.New("manifest: nil manifest")
	}
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}
	if err := fileutil.WriteFileAtomic(path, "run_manifest-*.tmp", data); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	return nil
}
