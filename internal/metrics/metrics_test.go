package metrics

import (
	"path/filepath"
	"testing"

	"chatpipe/internal/message"
)

func voiceMsg(idx int, status message.Status, reason message.StatusReason, mediaFilename string, asr *message.ASRPayload) *message.Message {
	m := message.New(idx, "2024-01-01T00:00:00", "alice", message.KindVoice)
	m.Status = status
	m.StatusReason = reason
	m.MediaFilename = mediaFilename
	m.Derived.ASR = asr
	return m
}

func TestComputeCountsVoiceStatusesAndMediaResolution(t *testing.T) {
	msgs := []*message.Message{
		voiceMsg(0, message.StatusOK, "", "a.opus", &message.ASRPayload{
			TotalDurationSeconds: 10, Cost: 0.01, Provider: "stub", Model: "base", LanguageHint: "en",
		}),
		voiceMsg(1, message.StatusPartial, message.ReasonAsrPartial, "b.opus", &message.ASRPayload{
			TotalDurationSeconds: 5, Cost: 0.005,
		}),
		voiceMsg(2, message.StatusFailed, message.ReasonAsrFailed, "", nil),
		voiceMsg(3, message.StatusOK, message.ReasonUnresolvedMedia, "", nil),
		voiceMsg(4, message.StatusOK, message.ReasonAmbiguousMedia, "", nil),
	}
	text := message.New(5, "2024-01-01T00:00:01", "bob", message.KindText)
	msgs = append(msgs, text)

	m := Compute(msgs, 12.5)

	if m.MessagesTotal != 6 {
		t.Fatalf("messages_total = %d, want 6", m.MessagesTotal)
	}
	if m.VoiceTotal != 5 || m.VoiceOK != 1 || m.VoicePartial != 1 || m.VoiceFailed != 1 {
		t.Fatalf("unexpected voice counts: %+v", m)
	}
	if m.MediaResolved != 2 || m.MediaUnresolved != 1 || m.MediaAmbiguous != 1 {
		t.Fatalf("unexpected media counts: %+v", m)
	}
	if m.AudioSecondsTotal != 15 {
		t.Fatalf("audio_seconds_total = %v, want 15", m.AudioSecondsTotal)
	}
	if m.ASRCostTotal != 0.015 {
		t.Fatalf("asr_cost_total = %v, want 0.015", m.ASRCostTotal)
	}
	if m.ASRProvider != "stub" || m.ASRModel != "base" || m.ASRLanguage != "en" {
		t.Fatalf("unexpected asr identity fields: %+v", m)
	}
	if m.WallClockSeconds != 12.5 {
		t.Fatalf("wall_clock_seconds = %v, want 12.5", m.WallClockSeconds)
	}
}

func TestWriteThenLoadRoundTrips(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "metrics.json")
	m := Compute(nil, 1.0)
	if err := Write(m, path); err != nil {
		t.Fatalf("Write: %v", err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.SchemaVersion != SchemaVersion {
		t.Fatalf("schema_version = %q, want %q", loaded.SchemaVersion, SchemaVersion)
	}
}

func TestLoadRejectsUnsupportedMajorVersion(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "metrics.json")
	m := Compute(nil, 0)
	m.SchemaVersion = "9.0.0"
	if err := Write(m, path); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for unsupported major schema_version")
	}
}
