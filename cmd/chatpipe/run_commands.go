package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"chatpipe/internal/langtag"
	"chatpipe/internal/manifest"
	"chatpipe/internal/orchestrator"
)

type runFlags struct {
	root            string
	chatFile        string
	runID           string
	runDir          string
	maxWorkersAudio int
	asrProvider     string
	asrModel        string
	asrLanguage     string
	noResume        bool
	overwrite       bool
	sampleEvery     int
	sampleLimit     int
}

func addRunFlags(cmd *cobra.Command, f *runFlags) {
	cmd.Flags().StringVar(&f.root, "root", "", "Path to the exported chat archive's root directory")
	cmd.Flags().StringVar(&f.chatFile, "chat-file", "", "Path to the chat export text file (default: <root>/_chat.txt)")
	cmd.Flags().StringVar(&f.runID, "run-id", "", "Run identifier (default: slug of the root directory name)")
	cmd.Flags().StringVar(&f.runDir, "run-dir", "", "Run directory (default: <runs_root_dir>/<run-id>)")
	cmd.Flags().IntVar(&f.maxWorkersAudio, "max-workers-audio", 0, "Bounded worker pool size for M3_audio (default: config value)")
	cmd.Flags().StringVar(&f.asrProvider, "asr-provider", "", "ASR backend provider name (default: config value)")
	cmd.Flags().StringVar(&f.asrModel, "asr-model", "", "ASR model name (default: config value)")
	cmd.Flags().StringVar(&f.asrLanguage, "asr-language", "", "BCP-47 language hint, or \"auto\" (default: config value)")
	cmd.Flags().BoolVar(&f.overwrite, "overwrite", false, "Ignore any existing step/item output and rerun everything")
	cmd.Flags().IntVar(&f.sampleEvery, "sample-every", 0, "Keep every Nth parsed message before media resolution")
	cmd.Flags().IntVar(&f.sampleLimit, "sample-limit", 0, "Cap the sampled message count after --sample-every")
}

func newRunCommand(ctx *commandContext) *cobra.Command {
	var f runFlags

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the pipeline end to end (M1 parse -> M2 media -> M3 audio -> M5 text)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if f.root == "" {
				return fmt.Errorf("--root is required")
			}
			return runPipeline(cmd, ctx, f, !f.noResume)
		},
	}
	addRunFlags(cmd, &f)
	cmd.Flags().BoolVar(&f.noResume, "no-resume", false, "Disable step/item resume and start fresh")

	return cmd
}

func newResumeCommand(ctx *commandContext) *cobra.Command {
	var runDir string

	cmd := &cobra.Command{
		Use:   "resume",
		Short: "Resume a run, reusing any completed steps and cached voice messages",
		RunE: func(cmd *cobra.Command, args []string) error {
			if runDir == "" {
				return fmt.Errorf("--run-dir is required")
			}
			m, err := manifest.Load(manifestPath(runDir))
			if err != nil {
				return fmt.Errorf("load run manifest at %s: %w", runDir, err)
			}
			return runPipeline(cmd, ctx, runFlags{
				root:     m.Root,
				chatFile: m.ChatFile,
				runID:    m.RunID,
				runDir:   runDir,
			}, true)
		},
	}
	cmd.Flags().StringVar(&runDir, "run-dir", "", "Run directory to resume")
	return cmd
}

func manifestPath(runDir string) string {
	return orchestrator.NewPaths(runDir).Manifest
}

func runPipeline(cmd *cobra.Command, ctx *commandContext, f runFlags, resume bool) error {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}
	logger, err := ctx.ensureLogger()
	if err != nil {
		return err
	}

	if f.maxWorkersAudio > 0 {
		cfg.Orchestrator.MaxWorkersAudio = f.maxWorkersAudio
	}
	if f.asrProvider != "" {
		cfg.ASR.Provider = f.asrProvider
	}
	if f.asrModel != "" {
		cfg.ASR.Model = f.asrModel
	}
	if f.asrLanguage != "" {
		normalized, err := langtag.Normalize(f.asrLanguage)
		if err != nil {
			return fmt.Errorf("--asr-language: %w", err)
		}
		cfg.ASR.LanguageHint = normalized
	}

	opts := orchestrator.Options{
		Root:        f.root,
		ChatFile:    f.chatFile,
		RunID:       f.runID,
		RunDir:      f.runDir,
		Resume:      resume,
		Overwrite:   f.overwrite,
		SampleEvery: f.sampleEvery,
		SampleLimit: f.sampleLimit,
	}

	// Resolve the run directory up front so the progress poller below knows
	// where to watch even when --run-dir wasn't given explicitly; Run
	// applies the exact same defaulting rules internally.
	_, _, resolvedRunDir := orchestrator.ResolveIdentity(cfg, opts)
	opts.RunDir = resolvedRunDir

	pctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	done := make(chan struct{})
	var result *orchestrator.Result
	var runErr error
	go func() {
		defer close(done)
		result, runErr = orchestrator.Run(pctx, cfg, opts, logger)
	}()

	if isatty.IsTerminal(os.Stdout.Fd()) {
		watchAudioProgress(opts, done)
	}
	<-done
	if runErr != nil {
		return runErr
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Run %s complete: %d messages, %d voice transcripts previewed\n",
		result.RunID, result.MessagesTotal, result.PreviewCount)
	fmt.Fprintf(out, "Manifest: %s\nMetrics:  %s\n", result.ManifestPath, result.MetricsPath)
	return nil
}

// watchAudioProgress polls the run manifest's M3_audio step while a run is
// in flight and renders an interactive bar over its done/total counters,
// since the orchestrator itself only ever writes the manifest file rather
// than exposing an in-process progress channel.
func watchAudioProgress(opts orchestrator.Options, done <-chan struct{}) {
	ticker := time.NewTicker(300 * time.Millisecond)
	defer ticker.Stop()

	var bar *progressbar.ProgressBar
	runDir := opts.RunDir
	for {
		select {
		case <-done:
			if bar != nil {
				_ = bar.Finish()
			}
			return
		case <-ticker.C:
			if runDir == "" {
				continue
			}
			m, err := manifest.Load(manifestPath(runDir))
			if err != nil {
				continue
			}
			step, ok := m.Steps[manifest.StepAudio]
			if !ok || step.Total == 0 {
				continue
			}
			if bar == nil {
				bar = progressbar.Default(int64(step.Total), "M3_audio")
			}
			_ = bar.Set(step.Done)
		}
	}
}

func newMaterializeCommand(ctx *commandContext) *cobra.Command {
	var root, runDir, runID, chatFile string

	cmd := &cobra.Command{
		Use:   "materialize",
		Short: "Run M1->M2->M3->M5 once without manifest/metrics resume bookkeeping",
		RunE: func(cmd *cobra.Command, args []string) error {
			if root == "" || runDir == "" {
				return fmt.Errorf("--root and --run-dir are required")
			}
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			if runID == "" {
				runID = "materialize"
			}
			result, err := orchestrator.Materialize(cmd.Context(), cfg, root, chatFile, runDir, runID, logger)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			transcriptSize := "unknown"
			if info, statErr := os.Stat(orchestrator.NewPaths(result.RunDir).ChatWithAudio); statErr == nil {
				transcriptSize = humanize.Bytes(uint64(info.Size()))
			}
			fmt.Fprintf(out, "Materialized %s: %s messages, transcript %s, written to %s\n",
				result.RunID, humanize.Comma(int64(result.MessagesTotal)), transcriptSize, result.RunDir)
			return nil
		},
	}
	cmd.Flags().StringVar(&root, "root", "", "Path to the exported chat archive's root directory")
	cmd.Flags().StringVar(&runDir, "run-dir", "", "Destination run directory")
	cmd.Flags().StringVar(&runID, "run-id", "", "Run identifier recorded in the manifest")
	cmd.Flags().StringVar(&chatFile, "chat-file", "", "Path to the chat export text file (default: <root>/_chat.txt)")
	return cmd
}
