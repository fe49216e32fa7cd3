package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"chatpipe/internal/asr"
	"chatpipe/internal/config"
	"chatpipe/internal/hashcache"
	"chatpipe/internal/manifest"
	"chatpipe/internal/message"
	"chatpipe/internal/metrics"
	"chatpipe/internal/parser"
	"chatpipe/internal/renderer"
	"chatpipe/internal/resolver"
	"chatpipe/internal/transcriber"
)

// Materialize runs the full M1->M2->M3->M5 chain without any step-level or
// item-level resume bookkeeping, writing the same standardized run-
// directory outputs in one pass. It is the `chatpipe materialize`
// entry point: a one-shot contract-test path (supplemented feature,
// grounded on original_source's `materialize_run`/`run_contract_pipeline`),
// distinct from Run's resumable daemon-style bookkeeping.
func Materialize(ctx context.Context, cfg *config.Config, root, chatFile, runDir, runID string, logger *slog.Logger) (*Result, error) {
	if logger == nil {
		logger = nopLogger()
	}
	if chatFile == "" {
		chatFile = filepath.Join(root, defaultChatFile)
	}
	if err := validateRunInputs(root, chatFile); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return nil, fmt.Errorf("materialize: create run dir: %w", err)
	}

	paths := NewPaths(runDir)
	runStart := time.Now()

	messagesM1, err := parser.Parse(root, chatFile)
	if err != nil {
		return nil, fmt.Errorf("materialize: M1: %w", err)
	}
	if err := message.WriteJSONL(paths.MessagesM1, messagesM1); err != nil {
		return nil, fmt.Errorf("materialize: M1: write jsonl: %w", err)
	}

	messagesM2 := cloneAll(messagesM1)
	var hasher resolver.Hasher
	if cfg.Audio.CacheDir != "" {
		if store, err := hashcache.Open(cfg.Audio.CacheDir); err == nil {
			hasher = store.HashFile
			defer store.Close()
		}
	}
	res := resolver.New(root, resolverConfigFrom(cfg), hasher)
	if err := res.Resolve(ctx, messagesM2); err != nil {
		return nil, fmt.Errorf("materialize: M2: %w", err)
	}
	if err := message.WriteJSONL(paths.MessagesM2, messagesM2); err != nil {
		return nil, fmt.Errorf("materialize: M2: write jsonl: %w", err)
	}
	if err := res.WriteExceptionsCSV(paths.ExceptionsCSV); err != nil {
		logger.Warn("failed to write exceptions.csv", slog.Any("error", err))
	}

	messagesM3 := cloneAll(messagesM2)
	client, err := asr.NewClientFromConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("materialize: M3: %w", err)
	}
	tr := transcriber.New(transcriberConfigFrom(cfg), client)
	for _, msg := range messagesM3 {
		if err := tr.Transcribe(ctx, msg); err != nil {
			return nil, fmt.Errorf("materialize: M3: %w", err)
		}
	}
	if err := message.WriteJSONL(paths.MessagesM3, messagesM3); err != nil {
		return nil, fmt.Errorf("materialize: M3: write jsonl: %w", err)
	}

	sorted := append([]*message.Message(nil), messagesM3...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Idx < sorted[j].Idx })
	if _, err := renderer.RenderText(sorted, paths.ChatWithAudio, renderer.Options{}); err != nil {
		return nil, fmt.Errorf("materialize: M5: %w", err)
	}
	previewCount, err := renderer.WriteTranscriptPreview(sorted, paths.PreviewTranscripts, 0)
	if err != nil {
		return nil, fmt.Errorf("materialize: M5: preview: %w", err)
	}

	m := manifest.Init(runID, root, chatFile, runDir, false)
	for _, step := range manifest.DefaultSteps {
		if err := m.UpdateStep(step, manifest.StepOK, len(messagesM3), len(messagesM3), ""); err != nil {
			return nil, err
		}
	}
	snapshot := metrics.Compute(messagesM3, roundSeconds(time.Since(runStart)))
	m.SetSummary(len(messagesM3), snapshot.VoiceTotal, "")
	m.Finalize()
	if err := manifest.Write(m, paths.Manifest); err != nil {
		return nil, err
	}
	if err := metrics.Write(snapshot, paths.Metrics); err != nil {
		return nil, err
	}

	return &Result{
		RunID:         runID,
		RunDir:        runDir,
		ManifestPath:  paths.Manifest,
		MetricsPath:   paths.Metrics,
		PreviewCount:  previewCount,
		MessagesTotal: len(messagesM3),
	}, nil
}
