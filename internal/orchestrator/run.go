package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"chatpipe/internal/config"
	"chatpipe/internal/hashcache"
	"chatpipe/internal/manifest"
	"chatpipe/internal/metrics"
	"chatpipe/internal/runid"
	"chatpipe/internal/runlock"
)

const defaultChatFile = "_chat.txt"

// resolveRunIdentity fills in run_id, chat_file, and run_dir the way
// original_source's PipelineConfig.__post_init__ does: run_id defaults to
// a slug of the root directory's base name, chat_file defaults to
// <root>/_chat.txt, and run_dir defaults to <runs_root_dir>/<run_id>.
func resolveRunIdentity(cfg *config.Config, opts Options) (runID, chatFile, runDir string) {
	runID = opts.RunID
	if runID == "" {
		runID = runid.Slugify(filepath.Base(filepath.Clean(opts.Root)))
	} else {
		runID = runid.Slugify(runID)
	}

	chatFile = opts.ChatFile
	if chatFile == "" {
		chatFile = filepath.Join(opts.Root, defaultChatFile)
	}

	runDir = opts.RunDir
	if runDir == "" {
		root := cfg.Orchestrator.RunsRootDir
		if root == "" {
			root = filepath.Join(opts.Root, "runs")
		}
		runDir = filepath.Join(root, runID)
	}
	return runID, chatFile, runDir
}

// ResolveIdentity exposes resolveRunIdentity's defaulting rules to callers
// (the CLI) that need to know a run's directory before Run returns, e.g. to
// poll the manifest file for progress while the run is in flight.
func ResolveIdentity(cfg *config.Config, opts Options) (runID, chatFile, runDir string) {
	return resolveRunIdentity(cfg, opts)
}

func validateRunInputs(root, chatFile string) error {
	if root == "" {
		return errors.New("orchestrator: root directory is required")
	}
	if _, err := os.Stat(root); err != nil {
		return fmt.Errorf("orchestrator: root directory not found: %w", err)
	}
	if _, err := os.Stat(chatFile); err != nil {
		return fmt.Errorf("orchestrator: chat export not found: %w", err)
	}
	return nil
}

// Run executes M1->M2->M3->M5 end to end with step-level and item-level
// resume, bounded M3 concurrency, and manifest/metrics emission (spec
// §4.4). It acquires an exclusive lock on the run directory so two
// invocations never race on the same run.
func Run(ctx context.Context, cfg *config.Config, opts Options, logger *slog.Logger) (*Result, error) {
	if logger == nil {
		logger = nopLogger()
	}
	runID, chatFile, runDir := resolveRunIdentity(cfg, opts)
	opts.RunID = runID
	opts.ChatFile = chatFile
	opts.RunDir = runDir
	if opts.Overwrite {
		opts.Resume = false
	} else {
		opts.Resume = cfg.Orchestrator.Resume || opts.Resume
	}

	if err := validateRunInputs(opts.Root, opts.ChatFile); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return nil, fmt.Errorf("orchestrator: create run dir: %w", err)
	}

	lock := runlock.New(runDir)
	if err := lock.Acquire(); err != nil {
		return nil, err
	}
	defer func() {
		if err := lock.Release(); err != nil {
			logger.Warn("failed to release run lock", slog.Any("error", err))
		}
	}()

	ctx, cancel := withSignalCancel(ctx)
	defer cancel()

	paths := NewPaths(runDir)

	var m *manifest.Manifest
	if opts.Resume {
		if loaded, err := manifest.Load(paths.Manifest); err == nil {
			m = loaded
		}
	}
	if m == nil {
		m = manifest.Init(runID, opts.Root, opts.ChatFile, runDir, opts.Resume)
	}
	if err := manifest.Write(m, paths.Manifest); err != nil {
		return nil, err
	}

	runStart := time.Now()

	var hashes *hashcache.Store
	if cfg.Audio.CacheDir != "" {
		store, err := hashcache.Open(cfg.Audio.CacheDir)
		if err != nil {
			logger.Warn("hash cache unavailable, media hashes will be left empty", slog.Any("error", err))
		} else {
			hashes = store
			defer store.Close()
		}
	}

	messagesM1, err := runM1(ctx, cfg, paths, opts, m, logger)
	if err != nil {
		return nil, err
	}
	messagesM2, err := runM2(ctx, cfg, paths, opts, m, logger, messagesM1, hashes)
	if err != nil {
		return nil, err
	}
	messagesM3, err := runM3(ctx, cfg, paths, opts, m, logger, messagesM2)
	if err != nil {
		return nil, err
	}
	previewCount, err := runM5(ctx, cfg, paths, opts, m, logger, messagesM3)
	if err != nil {
		return nil, err
	}

	snapshot := metrics.Compute(messagesM3, roundSeconds(time.Since(runStart)))
	if err := metrics.Write(snapshot, paths.Metrics); err != nil {
		return nil, fmt.Errorf("orchestrator: write metrics: %w", err)
	}

	m.SetSummary(len(messagesM3), snapshot.VoiceTotal, "")
	m.Finalize()
	if err := manifest.Write(m, paths.Manifest); err != nil {
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

func roundSeconds(d time.Duration) float64 {
	return float64(d) / float64(time.Second)
}
