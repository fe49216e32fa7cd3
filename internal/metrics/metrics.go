// Package metrics aggregates run-level counters from the final message
// set and persists them to metrics.json (spec §6 "Metrics").
package metrics

import (
	"encoding/json"
	"fmt"
	"math"
	"os"

	"chatpipe/internal/fileutil"
	"chatpipe/internal/message"
)

// SchemaVersion is the metrics.json wire-format version.
const SchemaVersion = "1.0.0"

// Metrics is the structured metrics.json payload.
type Metrics struct {
	SchemaVersion     string  `json:"schema_version"`
	MessagesTotal     int     `json:"messages_total"`
	VoiceTotal        int     `json:"voice_total"`
	VoiceOK           int     `json:"voice_ok"`
	VoicePartial      int     `json:"voice_partial"`
	VoiceFailed       int     `json:"voice_failed"`
	MediaResolved     int     `json:"media_resolved"`
	MediaUnresolved   int     `json:"media_unresolved"`
	MediaAmbiguous    int     `json:"media_ambiguous"`
	AudioSecondsTotal float64 `json:"audio_seconds_total"`
	ASRCostTotal      float64 `json:"asr_cost_total"`
	WallClockSeconds  float64 `json:"wall_clock_seconds"`
	ASRProvider       string  `json:"asr_provider,omitempty"`
	ASRModel          string  `json:"asr_model,omitempty"`
	ASRLanguage       string  `json:"asr_language,omitempty"`
}

// Compute derives a fresh Metrics snapshot from the final (M5-stage)
// message set. wallClockSeconds is supplied by the caller since the
// orchestrator, not this package, owns the run's wall clock.
func Compute(msgs []*message.Message, wallClockSeconds float64) Metrics {
	m := Metrics{SchemaVersion: SchemaVersion, MessagesTotal: len(msgs), WallClockSeconds: wallClockSeconds}

	var seconds, cost float64
	for _, msg := range msgs {
		if msg.MediaFilename != "" {
			m.MediaResolved++
		} else {
			switch msg.StatusReason {
			case message.ReasonUnresolvedMedia:
				m.MediaUnresolved++
			case message.ReasonAmbiguousMedia:
				m.MediaAmbiguous++
			}
		}

		if msg.Kind != message.KindVoice {
			continue
		}
		m.VoiceTotal++
		switch msg.Status {
		case message.StatusOK:
			if msg.StatusReason == "" {
				m.VoiceOK++
			}
		case message.StatusPartial:
			m.VoicePartial++
		case message.StatusFailed:
			m.VoiceFailed++
		}

		asr := msg.Derived.ASR
		if asr == nil {
			continue
		}
		seconds += asr.TotalDurationSeconds
		cost += asr.Cost
		if m.ASRProvider == "" && asr.Provider != "" {
			m.ASRProvider = asr.Provider
		}
		if m.ASRModel == "" && asr.Model != "" {
			m.ASRModel = asr.Model
		}
		if m.ASRLanguage == "" && asr.LanguageHint != "" {
			m.ASRLanguage = asr.LanguageHint
		}
	}

	m.AudioSecondsTotal = round(seconds, 3)
	m.ASRCostTotal = round(cost, 4)
	return m
}

func round(v float64, places int) float64 {
	mult := math.Pow(10, float64(places))
	return math.Round(v*mult) / mult
}

// Load reads and decodes metrics.json, rejecting an unknown major schema
// version per spec §6.
func Load(path string) (*Metrics, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var m Metrics
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse metrics %s: %w", path, err)
	}
	if majorOf(m.SchemaVersion) != majorOf(SchemaVersion) {
		return nil, fmt.Errorf("metrics %s: unsupported schema_version %q", path, m.SchemaVersion)
	}
	return &m, nil
}

func majorOf(version string) string {
	for i, r := range version {
		if r == '.' {
			return version[:i]
		}
	}
	return version
}

// Write persists metrics atomically (temp file + rename).
func Write(m Metrics, path string) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal metrics: %w", err)
	}
	if err := fileutil.WriteFileAtomic(path, "metrics-*.tmp", data); err != nil {
		return fmt.Errorf("write metrics: %w", err)
	}
	return nil
}
