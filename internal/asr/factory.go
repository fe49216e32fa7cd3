package asr

import (
	"fmt"

	"chatpipe/internal/config"
)

// NewClientFromConfig selects a backend using the resolved ASR
// configuration. The stub provider never requires a credential; any other
// provider name is treated as an HTTP-compatible backend and requires one.
func NewClientFromConfig(cfg *config.Config) (Client, error) {
	if cfg == nil {
		return NewStubClient(""), nil
	}
	if cfg.ASR.Provider == "" || cfg.ASR.Provider == "stub" {
		return NewStubClient(cfg.ASR.Model), nil
	}

	credential, ok := cfg.CredentialEnv()
	if !ok || credential == "" {
		return nil, fmt.Errorf("asr provider %q requires a credential (set %s)", cfg.ASR.Provider, credentialEnvName(cfg))
	}

	return NewHTTPClient(HTTPConfig{
		Provider:       cfg.ASR.Provider,
		Model:          cfg.ASR.Model,
		APIKey:         credential,
		BaseURL:        providerBaseURL(cfg.ASR.Provider),
		TimeoutSeconds: cfg.ASR.TimeoutSeconds,
	}, nil), nil
}

func credentialEnvName(cfg *config.Config) string {
	if cfg.ASR.CredentialEnvVar != "" {
		return cfg.ASR.CredentialEnvVar
	}
	return upper(cfg.ASR.Provider) + "_API_KEY"
}

func upper(s string) string {
	out := []byte(s)
	for i, b := range out {
		if b >= 'a' && b <= 'z' {
			out[i] = b - ('a' - 'A')
		}
	}
	return string(out)
}

// providerBaseURL maps a provider identifier to its transcription
// endpoint. Unknown providers fall back to the OpenAI-compatible path,
// since most hosted Whisper-style APIs mirror that contract.
func providerBaseURL(provider string) string {
	switch provider {
	case "whisperapi":
		return "https://api.openai.com/v1/audio/transcriptions"
	default:
		return "https://api.openai.com/v1/audio/transcriptions"
	}
}
