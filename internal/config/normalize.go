package config

import (
	"fmt"
	"strings"

	"chatpipe/internal/langtag"
)

func (c *Config) normalize() error {
	if err := c.normalizeResolver(); err != nil {
		return err
	}
	if err := c.normalizeAudio(); err != nil {
		return err
	}
	c.normalizeASR()
	if err := c.normalizeOrchestrator(); err != nil {
		return err
	}
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizeResolver() error {
	if c.Resolver.Tau <= 0 {
		c.Resolver.Tau = defaultResolverTau
	}
	if c.Resolver.ClockDriftHours <= 0 {
		c.Resolver.ClockDriftHours = defaultResolverClockDriftHours
	}
	if c.Resolver.HintWindow <= 0 {
		c.Resolver.HintWindow = defaultResolverHintWindow
	}
	if len(c.Resolver.AllowedExtensions) == 0 {
		c.Resolver.AllowedExtensions = append([]string(nil), defaultAllowedExtensions...)
	} else {
		c.Resolver.AllowedExtensions = normalizeExtensions(c.Resolver.AllowedExtensions)
	}
	if len(c.Resolver.ExtPriority) == 0 {
		c.Resolver.ExtPriority = append([]string(nil), defaultExtPriority...)
	} else {
		c.Resolver.ExtPriority = normalizeExtensions(c.Resolver.ExtPriority)
	}
	return nil
}

func normalizeExtensions(values []string) []string {
	out := make([]string, 0, len(values))
	seen := make(map[string]struct{}, len(values))
	for _, ext := range values {
		normalized := strings.ToLower(strings.TrimSpace(ext))
		if normalized == "" {
			continue
		}
		if !strings.HasPrefix(normalized, ".") {
			normalized = "." + normalized
		}
		if _, exists := seen[normalized]; exists {
			continue
		}
		seen[normalized] = struct{}{}
		out = append(out, normalized)
	}
	return out
}

func (c *Config) normalizeAudio() error {
	var err error
	if strings.TrimSpace(c.Audio.CacheDir) == "" {
		c.Audio.CacheDir = defaultAudioCacheDir
	}
	if c.Audio.CacheDir, err = expandPath(c.Audio.CacheDir); err != nil {
		return fmt.Errorf("audio.cache_dir: %w", err)
	}
	c.Audio.NormalizerToolPath = strings.TrimSpace(c.Audio.NormalizerToolPath)
	if c.Audio.NormalizerToolPath == "" {
		c.Audio.NormalizerToolPath = defaultNormalizerToolPath
	}
	if c.Audio.SampleRate <= 0 {
		c.Audio.SampleRate = defaultSampleRate
	}
	if c.Audio.Channels <= 0 {
		c.Audio.Channels = defaultChannels
	}
	if c.Audio.ChunkSeconds <= 0 {
		c.Audio.ChunkSeconds = defaultChunkSeconds
	}
	if c.Audio.NormalizeTimeoutSeconds <= 0 {
		c.Audio.NormalizeTimeoutSeconds = defaultNormalizeTimeoutSeconds
	}
	if c.Audio.NormalizeMaxRetries < 0 {
		c.Audio.NormalizeMaxRetries = defaultNormalizeMaxRetries
	}
	return nil
}

func (c *Config) normalizeASR() {
	c.ASR.Provider = strings.ToLower(strings.TrimSpace(c.ASR.Provider))
	if c.ASR.Provider == "" {
		c.ASR.Provider = "stub"
	}
	c.ASR.Model = strings.TrimSpace(c.ASR.Model)
	if tag, err := langtag.Normalize(c.ASR.LanguageHint); err == nil {
		c.ASR.LanguageHint = tag
	}
	c.ASR.BillingPlan = strings.TrimSpace(c.ASR.BillingPlan)
	if c.ASR.BillingPlan == "" {
		c.ASR.BillingPlan = defaultASRBillingPlan
	}
	if c.ASR.TimeoutSeconds <= 0 {
		c.ASR.TimeoutSeconds = defaultASRTimeoutSeconds
	}
	if c.ASR.MaxRetries < 0 {
		c.ASR.MaxRetries = defaultASRMaxRetries
	}
	c.ASR.CredentialEnvVar = strings.TrimSpace(c.ASR.CredentialEnvVar)
}

func (c *Config) normalizeOrchestrator() error {
	var err error
	if strings.TrimSpace(c.Orchestrator.RunsRootDir) == "" {
		c.Orchestrator.RunsRootDir = defaultRunsRootDir
	}
	if c.Orchestrator.RunsRootDir, err = expandPath(c.Orchestrator.RunsRootDir); err != nil {
		return fmt.Errorf("orchestrator.runs_root_dir: %w", err)
	}
	if c.Orchestrator.MaxWorkersAudio <= 0 {
		c.Orchestrator.MaxWorkersAudio = defaultMaxWorkersAudio
	}
	if c.Orchestrator.SampleEvery <= 0 {
		c.Orchestrator.SampleEvery = 1
	}
	return nil
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console", "json":
	default:
		c.Logging.Format = ""
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
