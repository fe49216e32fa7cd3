package vad

import (
	"os"
	"path/filepath"
	"testing"
)

func TestRunDetectsSilence(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "silent.wav")
	if err := os.WriteFile(path, make([]byte, 16000*2), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	stats := Run(path, Options{SampleRate: 16000, Channels: 1})
	if stats.SpeechRatio != 0 {
		t.Fatalf("expected zero speech ratio for silent audio, got %v", stats.SpeechRatio)
	}
	if !IsMostlySilence(stats, 0.02, 1.0) {
		t.Fatal("expected silent clip to be classified as mostly silence")
	}
}

func TestRunDetectsSpeech(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "speech.wav")
	data := make([]byte, 16000*2)
	data[100] = 42
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	stats := Run(path, Options{SampleRate: 16000, Channels: 1})
	if stats.SpeechRatio != 0.8 {
		t.Fatalf("expected 0.8 speech ratio, got %v", stats.SpeechRatio)
	}
	if IsMostlySilence(stats, 0.02, 0.1) {
		t.Fatal("expected clip with speech to not be classified as mostly silence")
	}
}
