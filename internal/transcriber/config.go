// Package transcriber implements the audio transcription stage (M3): for
// each voice message it normalizes, runs an observational voice-activity
// pass, chunks, transcribes each chunk, assembles the transcript, resolves
// the record's final status, and caches the hydrated result so a retried
// run never redoes the work.
package transcriber

import (
	"time"

	"chatpipe/internal/asr"
	"chatpipe/internal/audio/normalize"
)

// Config mirrors the resolved [audio]/[asr] configuration surface needed to
// drive one transcription. PipelineVersion is stamped into every derived
// ASR payload and participates in the cache key.
type Config struct {
	PipelineVersion     string
	NormalizerToolPath  string
	SampleRate          int
	Channels            int
	ChunkSeconds         float64
	ChunkOverlapSeconds  float64
	NormalizeTimeout     time.Duration
	NormalizeMaxRetries  int
	VADMinSpeechRatio    float64
	VADMinSpeechSeconds  float64
	CacheDir             string
	ASRProvider          string
	ASRModel             string
	ASRLanguageHint      string
	ASRBillingPlan       string
	ASRMaxRetries        int
	ASRRetryBaseDelay    time.Duration
	ASRRetryMaxDelay     time.Duration
}

// Transcriber ties normalization, chunking, VAD, and ASR together for
// voice messages.
type Transcriber struct {
	cfg        Config
	client     asr.Client
	runner     normalize.Runner
	sleeper    func(time.Duration)
}

// Option customizes a Transcriber, primarily for tests.
type Option func(*Transcriber)

// WithRunner overrides the ffmpeg-equivalent process runner.
func WithRunner(runner normalize.Runner) Option {
	return func(t *Transcriber) { t.runner = runner }
}

// WithSleeper overrides how ASR retry backoff sleeps are performed.
func WithSleeper(sleeper func(time.Duration)) Option {
	return func(t *Transcriber) { t.sleeper = sleeper }
}

// New constructs a Transcriber using the given config and ASR client.
func New(cfg Config, client asr.Client, opts ...Option) *Transcriber {
	t := &Transcriber{cfg: cfg, client: client}
	for _, opt := range opts {
		opt(t)
	}
	return t
}
