package config

import (
	"errors"
	"fmt"
	"strings"

	"chatpipe/internal/langtag"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateResolver(); err != nil {
		return err
	}
	if err := c.validateAudio(); err != nil {
		return err
	}
	if err := c.validateASR(); err != nil {
		return err
	}
	if err := c.validateOrchestrator(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateResolver() error {
	w := c.Resolver.Weights
	if w.Hint < 0 || w.Ext < 0 || w.Seq < 0 || w.Mtime < 0 {
		return errors.New("resolver.weights must be non-negative")
	}
	if c.Resolver.Tau <= 0 {
		return errors.New("resolver.tau must be positive")
	}
	if c.Resolver.TieMargin < 0 {
		return errors.New("resolver.tie_margin must be >= 0")
	}
	if c.Resolver.ClockDriftHours <= 0 {
		return errors.New("resolver.clock_drift_hours must be positive")
	}
	if c.Resolver.HintWindow <= 0 {
		return errors.New("resolver.hint_window must be positive")
	}
	if len(c.Resolver.AllowedExtensions) == 0 {
		return errors.New("resolver.allowed_extensions must include at least one extension")
	}
	return nil
}

func (c *Config) validateAudio() error {
	a := c.Audio
	if a.SampleRate <= 0 {
		return errors.New("audio.sample_rate must be positive")
	}
	if a.Channels <= 0 {
		return errors.New("audio.channels must be positive")
	}
	if a.ChunkSeconds <= 0 {
		return errors.New("audio.chunk_seconds must be positive")
	}
	if a.ChunkOverlapSeconds < 0 {
		return errors.New("audio.chunk_overlap_seconds must be >= 0")
	}
	if a.ChunkOverlapSeconds >= a.ChunkSeconds {
		return errors.New("audio.chunk_overlap_seconds must be strictly less than audio.chunk_seconds")
	}
	if a.NormalizeTimeoutSeconds <= 0 {
		return errors.New("audio.normalize_timeout_seconds must be positive")
	}
	if a.NormalizeMaxRetries < 0 {
		return errors.New("audio.normalize_max_retries must be >= 0")
	}
	if a.VADMinSpeechRatio < 0 || a.VADMinSpeechRatio > 1 {
		return errors.New("audio.vad_min_speech_ratio must be between 0 and 1")
	}
	if a.VADMinSpeechSeconds < 0 {
		return errors.New("audio.vad_min_speech_seconds must be >= 0")
	}
	if strings.TrimSpace(a.NormalizerToolPath) == "" {
		return errors.New("audio.normalizer_tool_path must be set")
	}
	return nil
}

func (c *Config) validateASR() error {
	if strings.TrimSpace(c.ASR.Provider) == "" {
		return errors.New("asr.provider must be set")
	}
	if c.ASR.TimeoutSeconds <= 0 {
		return errors.New("asr.timeout_seconds must be positive")
	}
	if c.ASR.MaxRetries < 0 {
		return errors.New("asr.max_retries must be >= 0")
	}
	if !langtag.Valid(c.ASR.LanguageHint) {
		return fmt.Errorf("asr.language_hint %q is not a recognized BCP-47 tag", c.ASR.LanguageHint)
	}
	return nil
}

func (c *Config) validateOrchestrator() error {
	if strings.TrimSpace(c.Orchestrator.RunsRootDir) == "" {
		return errors.New("orchestrator.runs_root_dir must be set")
	}
	if c.Orchestrator.MaxWorkersAudio <= 0 {
		return errors.New("orchestrator.max_workers_audio must be positive")
	}
	if c.Orchestrator.SampleLimit < 0 {
		return errors.New("orchestrator.sample_limit must be >= 0")
	}
	if c.Orchestrator.SampleEvery <= 0 {
		return errors.New("orchestrator.sample_every must be positive")
	}
	return nil
}

func ensurePositive(name string, value int) error {
	if value <= 0 {
		return fmt.Errorf("%s must be positive", name)
	}
	return nil
}
