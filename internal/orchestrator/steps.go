package orchestrator

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"sync"
	"time"

	"chatpipe/internal/asr"
	"chatpipe/internal/config"
	"chatpipe/internal/hashcache"
	"chatpipe/internal/logging"
	"chatpipe/internal/manifest"
	"chatpipe/internal/message"
	"chatpipe/internal/parser"
	"chatpipe/internal/renderer"
	"chatpipe/internal/resolver"
	"chatpipe/internal/transcriber"
)

func nopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// stepLogger opens <run_dir>/logs/<step>.log, falling back to the run
// logger (and a no-op closer) if the file can't be created — a logging
// failure must never abort a pipeline step.
func stepLogger(cfg *config.Config, paths Paths, step string, fallback *slog.Logger) (*slog.Logger, func() error) {
	l, closeFn, err := logging.NewStepLogger(cfg, paths.RunDir, step)
	if err != nil {
		if fallback == nil {
			fallback = nopLogger()
		}
		return fallback, func() error { return nil }
	}
	return l, closeFn
}

func canResume(opts Options, m *manifest.Manifest, step, requiredPath string) bool {
	if !opts.Resume || opts.Overwrite {
		return false
	}
	sp, ok := m.Steps[step]
	if !ok || sp.Status != manifest.StepOK {
		return false
	}
	_, err := os.Stat(requiredPath)
	return err == nil
}

func beginStep(m *manifest.Manifest, paths Paths, step string, total int) error {
	if err := m.UpdateStep(step, manifest.StepRunning, total, 0, ""); err != nil {
		return err
	}
	return manifest.Write(m, paths.Manifest)
}

func completeStep(m *manifest.Manifest, paths Paths, step string, total, done int) error {
	if err := m.UpdateStep(step, manifest.StepOK, total, done, ""); err != nil {
		return err
	}
	return manifest.Write(m, paths.Manifest)
}

func failStep(m *manifest.Manifest, paths Paths, step string, total, done int, stepErr error) {
	_ = m.UpdateStep(step, manifest.StepFailed, total, done, stepErr.Error())
	m.Summary.Error = fmt.Sprintf("%s: %v", step, stepErr)
	_ = manifest.Write(m, paths.Manifest)
}

// runM1 executes the chat-export parse, honoring whole-step resume and
// post-parse sampling (spec §4.4 "Resume policy"; supplemented sampling
// feature in SPEC_FULL.md §C).
func runM1(ctx context.Context, cfg *config.Config, paths Paths, opts Options, m *manifest.Manifest, parentLog *slog.Logger) ([]*message.Message, error) {
	const step = manifest.StepParse
	if canResume(opts, m, step, paths.MessagesM1) {
		msgs, err := message.LoadJSONL(paths.MessagesM1)
		if err != nil {
			return nil, err
		}
		m.Steps[step].Total = len(msgs)
		m.Steps[step].Done = len(msgs)
		return msgs, manifest.Write(m, paths.Manifest)
	}

	logger, closeLog := stepLogger(cfg, paths, step, parentLog)
	defer closeLog()

	if err := beginStep(m, paths, step, 0); err != nil {
		return nil, err
	}
	msgs, err := parser.Parse(opts.Root, opts.ChatFile)
	if err != nil {
		failStep(m, paths, step, 0, 0, err)
		return nil, fmt.Errorf("M1_parse: %w", err)
	}
	msgs = applySampling(msgs, opts.SampleEvery, opts.SampleLimit)
	if err := message.WriteJSONL(paths.MessagesM1, msgs); err != nil {
		failStep(m, paths, step, len(msgs), 0, err)
		return nil, fmt.Errorf("M1_parse: write jsonl: %w", err)
	}
	if err := message.Validate(msgs); err != nil {
		failStep(m, paths, step, len(msgs), 0, err)
		return nil, fmt.Errorf("M1_parse: validate: %w", err)
	}
	logger.Info("parse complete", slog.Int("messages", len(msgs)))
	if err := completeStep(m, paths, step, len(msgs), len(msgs)); err != nil {
		return nil, err
	}
	return msgs, nil
}

func cloneAll(msgs []*message.Message) []*message.Message {
	out := make([]*message.Message, len(msgs))
	for i, m := range msgs {
		out[i] = m.Clone()
	}
	return out
}

func resolverConfigFrom(cfg *config.Config) resolver.Config {
	return resolver.Config{
		Weights: resolver.Weights{
			Hint:  cfg.Resolver.Weights.Hint,
			Ext:   cfg.Resolver.Weights.Ext,
			Seq:   cfg.Resolver.Weights.Seq,
			Mtime: cfg.Resolver.Weights.Mtime,
		},
		Tau:               cfg.Resolver.Tau,
		TieMargin:         cfg.Resolver.TieMargin,
		ClockDriftHours:   cfg.Resolver.ClockDriftHours,
		HintWindow:        cfg.Resolver.HintWindow,
		AllowedExtensions: cfg.Resolver.AllowedExtensions,
		ExtPriority:       cfg.Resolver.ExtPriority,
	}
}

// runM2 resolves media placeholders against the on-disk media tree,
// writing any unresolved/ambiguous rows to exceptions.csv.
func runM2(ctx context.Context, cfg *config.Config, paths Paths, opts Options, m *manifest.Manifest, parentLog *slog.Logger, messagesM1 []*message.Message, hashes *hashcache.Store) ([]*message.Message, error) {
	const step = manifest.StepMedia
	if canResume(opts, m, step, paths.MessagesM2) {
		msgs, err := message.LoadJSONL(paths.MessagesM2)
		if err != nil {
			return nil, err
		}
		m.Steps[step].Total = len(msgs)
		m.Steps[step].Done = len(msgs)
		return msgs, manifest.Write(m, paths.Manifest)
	}

	logger, closeLog := stepLogger(cfg, paths, step, parentLog)
	defer closeLog()

	msgs := cloneAll(messagesM1)
	if err := beginStep(m, paths, step, len(msgs)); err != nil {
		return nil, err
	}

	var hasher resolver.Hasher
	if hashes != nil {
		hasher = hashes.HashFile
	}
	res := resolver.New(opts.Root, resolverConfigFrom(cfg), hasher)
	if err := res.Resolve(ctx, msgs); err != nil {
		failStep(m, paths, step, len(msgs), 0, err)
		return nil, fmt.Errorf("M2_media: %w", err)
	}
	if err := message.WriteJSONL(paths.MessagesM2, msgs); err != nil {
		failStep(m, paths, step, len(msgs), 0, err)
		return nil, fmt.Errorf("M2_media: write jsonl: %w", err)
	}
	if err := message.Validate(msgs); err != nil {
		failStep(m, paths, step, len(msgs), 0, err)
		return nil, fmt.Errorf("M2_media: validate: %w", err)
	}
	if err := res.WriteExceptionsCSV(paths.ExceptionsCSV); err != nil {
		logger.Warn("failed to write exceptions.csv", slog.Any("error", err))
	}
	logger.Info("media resolution complete", slog.Int("exceptions", len(res.Exceptions())))
	if err := completeStep(m, paths, step, len(msgs), len(msgs)); err != nil {
		return nil, err
	}
	return msgs, nil
}

func transcriberConfigFrom(cfg *config.Config) transcriber.Config {
	return transcriber.Config{
		PipelineVersion:     PipelineVersion,
		NormalizerToolPath:  cfg.Audio.NormalizerToolPath,
		SampleRate:          cfg.Audio.SampleRate,
		Channels:            cfg.Audio.Channels,
		ChunkSeconds:        cfg.Audio.ChunkSeconds,
		ChunkOverlapSeconds: cfg.Audio.ChunkOverlapSeconds,
		NormalizeTimeout:    time.Duration(cfg.Audio.NormalizeTimeoutSeconds) * time.Second,
		NormalizeMaxRetries: cfg.Audio.NormalizeMaxRetries,
		VADMinSpeechRatio:   cfg.Audio.VADMinSpeechRatio,
		VADMinSpeechSeconds: cfg.Audio.VADMinSpeechSeconds,
		CacheDir:            cfg.Audio.CacheDir,
		ASRProvider:         cfg.ASR.Provider,
		ASRModel:            cfg.ASR.Model,
		ASRLanguageHint:     cfg.ASR.LanguageHint,
		ASRBillingPlan:      cfg.ASR.BillingPlan,
		ASRMaxRetries:       cfg.ASR.MaxRetries,
		ASRRetryBaseDelay:   time.Second,
		ASRRetryMaxDelay:    30 * time.Second,
	}
}

// reuseVoiceMessage copies a cached M3 result onto msg when it was produced
// by the same pipeline version/provider/model and did not fail outright
// (spec §4.4 "a finer-grained resume applies ... for M3_audio").
func reuseVoiceMessage(msg, cached *message.Message, provider, model, pipelineVersion string) bool {
	if cached == nil || cached.Derived.ASR == nil {
		return false
	}
	payload := cached.Derived.ASR
	if payload.PipelineVersion != pipelineVersion || payload.Provider != provider || payload.Model != model {
		return false
	}
	if cached.Status == message.StatusFailed {
		return false
	}
	*msg = *cached.Clone()
	return true
}

// runM3 transcribes every voice message, reusing cached results from a
// prior M3 output when present and still valid, and dispatching the rest
// across a bounded worker pool (spec §4.4, §5 "bounded parallelism over
// voice items").
func runM3(ctx context.Context, cfg *config.Config, paths Paths, opts Options, m *manifest.Manifest, parentLog *slog.Logger, messagesM2 []*message.Message) ([]*message.Message, error) {
	const step = manifest.StepAudio
	voiceCount := func(msgs []*message.Message) int {
		n := 0
		for _, msg := range msgs {
			if msg.Kind == message.KindVoice {
				n++
			}
		}
		return n
	}

	if canResume(opts, m, step, paths.MessagesM3) {
		msgs, err := message.LoadJSONL(paths.MessagesM3)
		if err != nil {
			return nil, err
		}
		n := voiceCount(msgs)
		m.Steps[step].Total = n
		m.Steps[step].Done = n
		return msgs, manifest.Write(m, paths.Manifest)
	}

	logger, closeLog := stepLogger(cfg, paths, step, parentLog)
	defer closeLog()

	msgs := cloneAll(messagesM2)
	var existingByIdx map[int]*message.Message
	if opts.Resume {
		if existing, err := message.LoadJSONL(paths.MessagesM3); err == nil {
			existingByIdx = make(map[int]*message.Message, len(existing))
			for _, e := range existing {
				existingByIdx[e.Idx] = e
			}
		}
	}

	total := voiceCount(msgs)
	if err := beginStep(m, paths, step, total); err != nil {
		return nil, err
	}

	client, err := asr.NewClientFromConfig(cfg)
	if err != nil {
		failStep(m, paths, step, total, 0, err)
		return nil, fmt.Errorf("M3_audio: %w", err)
	}
	tr := transcriber.New(transcriberConfigFrom(cfg), client)

	var done int
	var toProcess []*message.Message
	for _, msg := range msgs {
		if msg.Kind != message.KindVoice {
			continue
		}
		if reuseVoiceMessage(msg, existingByIdx[msg.Idx], cfg.ASR.Provider, cfg.ASR.Model, PipelineVersion) {
			done++
			continue
		}
		toProcess = append(toProcess, msg)
	}
	if done > 0 {
		m.Steps[step].Done = done
		if err := manifest.Write(m, paths.Manifest); err != nil {
			return nil, err
		}
	}

	progressCh := make(chan struct{}, len(toProcess))
	progressResult := runM3ProgressReporter(m, paths, step, done, progressCh)

	workers := resolveMaxWorkers(cfg)
	transcribeErr := transcribeAll(ctx, tr, toProcess, workers, func() { progressCh <- struct{}{} })
	close(progressCh)
	result := <-progressResult
	done = result.done
	if transcribeErr == nil {
		transcribeErr = result.writeErr
	}
	if transcribeErr != nil {
		failStep(m, paths, step, total, done, transcribeErr)
		return nil, fmt.Errorf("M3_audio: %w", transcribeErr)
	}

	if err := message.WriteJSONL(paths.MessagesM3, msgs); err != nil {
		failStep(m, paths, step, total, done, err)
		return nil, fmt.Errorf("M3_audio: write jsonl: %w", err)
	}
	if err := message.Validate(msgs); err != nil {
		failStep(m, paths, step, total, done, err)
		return nil, fmt.Errorf("M3_audio: validate: %w", err)
	}
	logger.Info("audio transcription complete", slog.Int("voice_total", total))
	if err := completeStep(m, paths, step, total, total); err != nil {
		return nil, err
	}
	return msgs, nil
}

// m3ProgressResult is what runM3ProgressReporter reports back once its
// progress channel is closed and drained: the final done count it observed
// and any error hit while persisting it.
type m3ProgressResult struct {
	done     int
	writeErr error
}

// runM3ProgressReporter is the single goroutine that owns m.Steps[step] and
// every manifest.Write call while M3's worker pool is in flight. Workers
// never touch the manifest themselves; they only signal completion on
// progress, so the done counter only ever advances by one at a time from a
// single writer and the on-disk count can never regress or race (spec §5
// "the manifest is owned by the orchestrator thread; workers report
// progress via thread-safe counters; serialization is performed by the
// orchestrator"). progress must be closed by the caller once every worker
// has exited; the returned channel then yields exactly one result.
func runM3ProgressReporter(m *manifest.Manifest, paths Paths, step string, start int, progress <-chan struct{}) <-chan m3ProgressResult {
	resultCh := make(chan m3ProgressResult, 1)
	go func() {
		done := start
		var lastErr error
		for range progress {
			done++
			m.Steps[step].Done = done
			if err := manifest.Write(m, paths.Manifest); err != nil {
				lastErr = err
			}
		}
		resultCh <- m3ProgressResult{done: done, writeErr: lastErr}
	}()
	return resultCh
}

// transcribeAll runs Transcribe over toProcess with at most workers
// concurrent goroutines, observing ctx cancellation between messages
// (spec §4.4 "Cancellation": workers observe a cancellation signal at
// well-defined points (between chunks, between messages)). A single
// message's transcription error never aborts the run — Transcribe itself
// absorbs per-message failure into status=failed — so the only errors this
// returns are context cancellation and irrecoverable per-message errors.
// onDone is called once per successfully processed message and must never
// block long enough to matter: it only ever signals a buffered channel
// drained by runM3ProgressReporter.
func transcribeAll(ctx context.Context, tr *transcriber.Transcriber, toProcess []*message.Message, workers int, onDone func()) error {
	if len(toProcess) == 0 {
		return nil
	}
	if workers <= 1 {
		for _, msg := range toProcess {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			if err := tr.Transcribe(ctx, msg); err != nil {
				return err
			}
			onDone()
		}
		return nil
	}

	jobs := make(chan *message.Message)
	errCh := make(chan error, workers)
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			for msg := range jobs {
				select {
				case <-ctx.Done():
					errCh <- ctx.Err()
					return
				default:
				}
				if err := tr.Transcribe(ctx, msg); err != nil {
					errCh <- err
					return
				}
				onDone()
			}
		}()
	}

feed:
	for _, msg := range toProcess {
		select {
		case jobs <- msg:
		case <-ctx.Done():
			break feed
		}
	}
	close(jobs)
	wg.Wait()
	close(errCh)

	for err := range errCh {
		if err != nil {
			return err
		}
	}
	return ctx.Err()
}

// runM5 renders the final human-readable transcript and voice preview.
func runM5(ctx context.Context, cfg *config.Config, paths Paths, opts Options, m *manifest.Manifest, parentLog *slog.Logger, messagesM3 []*message.Message) (int, error) {
	const step = manifest.StepText
	if canResume(opts, m, step, paths.ChatWithAudio) {
		total := len(messagesM3)
		m.Steps[step].Total = total
		m.Steps[step].Done = total
		voice := 0
		for _, msg := range messagesM3 {
			if msg.Kind == message.KindVoice {
				voice++
			}
		}
		return voice, manifest.Write(m, paths.Manifest)
	}

	logger, closeLog := stepLogger(cfg, paths, step, parentLog)
	defer closeLog()

	sorted := append([]*message.Message(nil), messagesM3...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Idx < sorted[j].Idx })

	if err := beginStep(m, paths, step, len(sorted)); err != nil {
		return 0, err
	}
	if _, err := renderer.RenderText(sorted, paths.ChatWithAudio, renderer.Options{}); err != nil {
		failStep(m, paths, step, len(sorted), 0, err)
		return 0, fmt.Errorf("M5_render: %w", err)
	}
	previewCount, err := renderer.WriteTranscriptPreview(sorted, paths.PreviewTranscripts, 0)
	if err != nil {
		failStep(m, paths, step, len(sorted), 0, err)
		return 0, fmt.Errorf("M5_render: preview: %w", err)
	}
	logger.Info("render complete", slog.Int("preview_count", previewCount))
	if err := completeStep(m, paths, step, len(sorted), len(sorted)); err != nil {
		return 0, err
	}
	return previewCount, nil
}
