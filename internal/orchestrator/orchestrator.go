// Package orchestrator sequences the pipeline stages (M1 parse, M2 media
// resolution, M3 audio transcription, M5 text rendering), owning resume
// semantics, bounded concurrency over voice messages, and manifest/metrics
// emission. It is the only package that reads and writes the run
// directory's top-level structure; everything else operates on in-memory
// message slices handed to it.
package orchestrator

import (
	"path/filepath"

	"chatpipe/internal/config"
)

// PipelineVersion is stamped into every derived ASR payload and
// participates in the transcription cache key and the M3 per-item resume
// check (spec §4.4 "Resume policy"). Bump it whenever a change to
// normalization, chunking, or result assembly would invalidate previously
// cached transcriptions.
const PipelineVersion = "chatpipe-1"

// Paths collects every file the orchestrator reads or writes under one run
// directory (spec §6 "Run directory").
type Paths struct {
	RunDir              string
	MessagesM1          string
	MessagesM2          string
	MessagesM3          string
	ChatWithAudio       string
	PreviewTranscripts  string
	Manifest            string
	Metrics             string
	ExceptionsCSV       string
	LogDir              string
}

// NewPaths derives the standard run-directory layout from runDir.
func NewPaths(runDir string) Paths {
	return Paths{
		RunDir:             runDir,
		MessagesM1:         filepath.Join(runDir, "messages_m1.jsonl"),
		MessagesM2:         filepath.Join(runDir, "messages_m2.jsonl"),
		MessagesM3:         filepath.Join(runDir, "messages_m3.jsonl"),
		ChatWithAudio:      filepath.Join(runDir, "chat_with_audio.txt"),
		PreviewTranscripts: filepath.Join(runDir, "preview_transcripts.txt"),
		Manifest:           filepath.Join(runDir, "run_manifest.json"),
		Metrics:            filepath.Join(runDir, "metrics.json"),
		ExceptionsCSV:      filepath.Join(runDir, "exceptions.csv"),
		LogDir:             filepath.Join(runDir, "logs"),
	}
}

// Options carries the CLI-level knobs layered on top of the loaded
// *config.Config for a single run (spec §6 "Orchestrator:
// {run_id, run_dir, max_workers_audio, overwrite, resume}").
type Options struct {
	Root        string
	ChatFile    string
	RunID       string
	RunDir      string
	Resume      bool
	Overwrite   bool
	SampleEvery int
	SampleLimit int
}

// Result is what a completed (or failed-but-contained) run reports back to
// the CLI.
type Result struct {
	RunID         string
	RunDir        string
	ManifestPath  string
	MetricsPath   string
	PreviewCount  int
	MessagesTotal int
}

func resolveMaxWorkers(cfg *config.Config) int {
	if cfg == nil || cfg.Orchestrator.MaxWorkersAudio <= 0 {
		return 1
	}
	return cfg.Orchestrator.MaxWorkersAudio
}
