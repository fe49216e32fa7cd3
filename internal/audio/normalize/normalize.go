// Package normalize converts arbitrary input media into a normalized WAV
// file (configurable sample rate and channel count) using an external
// ffmpeg-compatible tool, with a bounded retry loop and stderr-tail
// capture for diagnostics.
package normalize

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"chatpipe/internal/services"
)

// Options controls a single normalization call.
type Options struct {
	ToolPath   string
	SampleRate int
	Channels   int
	Timeout    time.Duration
	MaxRetries int
}

// Result carries the outcome of a normalization attempt, including the
// stderr tail even on success so callers can thread it into derived.asr.
type Result struct {
	OutputPath  string
	LogTail     string
}

// Runner abstracts process execution so tests can substitute a fake
// command without touching the filesystem or PATH.
type Runner func(ctx context.Context, name string, args []string) (stderr string, err error)

// execRunner runs the real external tool via os/exec.
func execRunner(ctx context.Context, name string, args []string) (string, error) {
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	var stderr strings.Builder
	cmd.Stderr = &stderr
	err := cmd.Run()
	tail := tailString(stderr.String(), 2048)
	return tail, err
}

// Normalize converts input into a WAV file at outputPath, retrying up to
// opts.MaxRetries additional times on non-timeout failures. A timeout is
// never retried: it surfaces immediately so the transcriber can map it to
// a dedicated status_reason distinct from a generic tool failure.
func Normalize(ctx context.Context, runner Runner, input, outputPath string, opts Options) (Result, error) {
	if runner == nil {
		runner = execRunner
	}
	toolPath := opts.ToolPath
	if toolPath == "" {
		toolPath = "ffmpeg"
	}
	sampleRate := opts.SampleRate
	if sampleRate <= 0 {
		sampleRate = 16000
	}
	channels := opts.Channels
	if channels <= 0 {
		channels = 1
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	attempts := opts.MaxRetries + 1
	if attempts < 1 {
		attempts = 1
	}

	args := []string{
		"-y",
		"-hide_banner",
		"-loglevel", "error",
		"-i", input,
		"-ar", strconv.Itoa(sampleRate),
		"-ac", strconv.Itoa(channels),
		"-f", "wav",
		outputPath,
	}

	var lastTail string
	for attempt := 1; attempt <= attempts; attempt++ {
		attemptCtx, cancel := context.WithTimeout(ctx, timeout)
		tail, err := runner(attemptCtx, toolPath, args)
		cancel()
		lastTail = tail

		if err == nil {
			if _, statErr := os.Stat(outputPath); statErr == nil {
				return Result{OutputPath: outputPath, LogTail: tail}, nil
			}
			err = fmt.Errorf("ffmpeg reported success but %s was not created", outputPath)
		}

		if attemptCtx.Err() == context.DeadlineExceeded {
			return Result{LogTail: tail}, services.Wrap(services.ErrTimeout, "audio_normalize", "ffmpeg", "normalize deadline exceeded", err)
		}
		if attempt == attempts {
			_ = os.Remove(outputPath)
			return Result{LogTail: tail}, services.Wrap(services.ErrExternalTool, "audio_normalize", "ffmpeg", "normalize failed after retries", err)
		}
	}
	return Result{LogTail: lastTail}, services.Wrap(services.ErrExternalTool, "audio_normalize", "ffmpeg", "normalize failed", nil)
}

func tailString(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
