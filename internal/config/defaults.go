package config

const (
	defaultRunsRootDir   = "~/.local/share/chatpipe/runs"
	defaultAudioCacheDir = "~/.local/share/chatpipe/cache/audio"

	defaultResolverTau             = 0.75
	defaultResolverTieMargin       = 0.1
	defaultResolverClockDriftHours = 4.0
	defaultResolverHintWindow      = 2

	defaultSampleRate              = 16000
	defaultChannels                = 1
	defaultChunkSeconds            = 120.0
	defaultChunkOverlapSeconds     = 0.25
	defaultNormalizeTimeoutSeconds = 120
	defaultNormalizeMaxRetries     = 2
	defaultVADMinSpeechRatio       = 0.02
	defaultVADMinSpeechSeconds     = 1.0
	defaultNormalizerToolPath      = "ffmpeg"

	defaultASRTimeoutSeconds = 60
	defaultASRMaxRetries     = 3
	defaultASRBillingPlan    = "standard"

	defaultMaxWorkersAudio = 4

	defaultLogFormat = ""
	defaultLogLevel  = "info"
)

var defaultAllowedExtensions = []string{".opus", ".ogg", ".m4a", ".mp3", ".wav", ".aac", ".amr"}

var defaultExtPriority = []string{".opus", ".m4a", ".ogg", ".wav", ".mp3", ".aac", ".amr"}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Resolver: Resolver{
			Weights: ResolverWeights{
				Hint:  3,
				Ext:   2,
				Seq:   1,
				Mtime: 1,
			},
			Tau:               defaultResolverTau,
			TieMargin:         defaultResolverTieMargin,
			ClockDriftHours:   defaultResolverClockDriftHours,
			HintWindow:        defaultResolverHintWindow,
			AllowedExtensions: append([]string(nil), defaultAllowedExtensions...),
			ExtPriority:       append([]string(nil), defaultExtPriority...),
		},
		Audio: Audio{
			NormalizerToolPath:      defaultNormalizerToolPath,
			SampleRate:              defaultSampleRate,
			Channels:                defaultChannels,
			ChunkSeconds:            defaultChunkSeconds,
			ChunkOverlapSeconds:     defaultChunkOverlapSeconds,
			NormalizeTimeoutSeconds: defaultNormalizeTimeoutSeconds,
			NormalizeMaxRetries:     defaultNormalizeMaxRetries,
			VADMinSpeechRatio:       defaultVADMinSpeechRatio,
			VADMinSpeechSeconds:     defaultVADMinSpeechSeconds,
			CacheDir:                defaultAudioCacheDir,
		},
		ASR: ASR{
			Provider:       "stub",
			TimeoutSeconds: defaultASRTimeoutSeconds,
			MaxRetries:     defaultASRMaxRetries,
			BillingPlan:    defaultASRBillingPlan,
		},
		Orchestrator: Orchestrator{
			RunsRootDir:     defaultRunsRootDir,
			MaxWorkersAudio: defaultMaxWorkersAudio,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
