package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// ResolverWeights holds the scoring ladder weights used to rank candidate
// media files against a voice message's filename hint, extension, sequence
// position, and modification time.
type ResolverWeights struct {
	Hint  float64 `toml:"hint"`
	Ext   float64 `toml:"ext"`
	Seq   float64 `toml:"seq"`
	Mtime float64 `toml:"mtime"`
}

// Resolver contains configuration for the media resolver.
type Resolver struct {
	Weights           ResolverWeights `toml:"weights"`
	Tau               float64         `toml:"tau"`
	TieMargin         float64         `toml:"tie_margin"`
	ClockDriftHours   float64         `toml:"clock_drift_hours"`
	AllowedExtensions []string        `toml:"allowed_extensions"`
	ExtPriority       []string        `toml:"ext_priority"`
	HintWindow        int             `toml:"hint_window"`
}

// Audio contains configuration for normalization, chunking, and the
// observational voice-activity pass.
type Audio struct {
	NormalizerToolPath      string  `toml:"normalizer_tool_path"`
	SampleRate              int     `toml:"sample_rate"`
	Channels                int     `toml:"channels"`
	ChunkSeconds            float64 `toml:"chunk_seconds"`
	ChunkOverlapSeconds     float64 `toml:"chunk_overlap_seconds"`
	NormalizeTimeoutSeconds int     `toml:"normalize_timeout_seconds"`
	NormalizeMaxRetries     int     `toml:"normalize_max_retries"`
	VADMinSpeechRatio       float64 `toml:"vad_min_speech_ratio"`
	VADMinSpeechSeconds     float64 `toml:"vad_min_speech_seconds"`
	CacheDir                string  `toml:"cache_dir"`
}

// ASR contains configuration for the speech-to-text client.
type ASR struct {
	Provider         string `toml:"provider"`
	Model            string `toml:"model"`
	LanguageHint     string `toml:"language_hint"`
	TimeoutSeconds   int    `toml:"timeout_seconds"`
	MaxRetries       int    `toml:"max_retries"`
	BillingPlan      string `toml:"billing_plan"`
	CredentialEnvVar string `toml:"credential_env_var"`
}

// Orchestrator contains configuration for run placement, concurrency, and
// sampling.
type Orchestrator struct {
	RunsRootDir     string `toml:"runs_root_dir"`
	MaxWorkersAudio int    `toml:"max_workers_audio"`
	Overwrite       bool   `toml:"overwrite"`
	Resume          bool   `toml:"resume"`
	SampleEvery     int    `toml:"sample_every"`
	SampleLimit     int    `toml:"sample_limit"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for chatpipe.
//
// Configuration sections by subsystem:
//   - Resolver: scoring ladder weights and decisiveness margin
//   - Audio: ffmpeg-equivalent normalization and chunking parameters
//   - ASR: speech-to-text provider settings
//   - Orchestrator: run directory placement, concurrency, sampling
//   - Logging: log format and level
type Config struct {
	Resolver     Resolver     `toml:"resolver"`
	Audio        Audio        `toml:"audio"`
	ASR          ASR          `toml:"asr"`
	Orchestrator Orchestrator `toml:"orchestrator"`
	Logging      Logging      `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration
// file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/chatpipe/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath("~/.config/chatpipe/config.toml")
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("chatpipe.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates directories the orchestrator needs before a run
// starts.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Orchestrator.RunsRootDir, c.Audio.CacheDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other
// packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified
// location.
func CreateSample(path string) error {
	sample := sampleConfig

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sample), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// CredentialEnv looks up the ASR provider credential using the configured
// environment variable name, falling back to a provider-specific default
// when the config leaves it blank.
func (c *Config) CredentialEnv() (string, bool) {
	name := strings.TrimSpace(c.ASR.CredentialEnvVar)
	if name == "" {
		name = strings.ToUpper(c.ASR.Provider) + "_API_KEY"
	}
	value, ok := os.LookupEnv(name)
	return value, ok
}
