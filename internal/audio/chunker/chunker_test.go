package chunker

import (
	"os"
	"path/filepath"
	"testing"
)

// writeTestWAV creates a mono 16-bit PCM WAV file of the given duration at
// the given sample rate, filled with non-zero sample bytes.
func writeTestWAV(t *testing.T, path string, sampleRate int, seconds float64) {
	t.Helper()
	info := wavInfo{NumChannels: 1, SampleRate: sampleRate, BitsPerSample: 16}
	frameCount := int64(seconds * float64(sampleRate))
	dataSize := frameCount * int64(info.bytesPerFrame())

	file, err := os.Create(path)
	if err != nil {
		t.Fatalf("create wav: %v", err)
	}
	defer file.Close()

	if err := writeWAVHeader(file, info, dataSize); err != nil {
		t.Fatalf("write header: %v", err)
	}
	payload := make([]byte, dataSize)
	for i := range payload {
		payload[i] = byte(i%200 + 1)
	}
	if _, err := file.Write(payload); err != nil {
		t.Fatalf("write payload: %v", err)
	}
}

func TestChunkProducesOverlappingWindows(t *testing.T) {
	dir := t.TempDir()
	wavPath := filepath.Join(dir, "in.wav")
	writeTestWAV(t, wavPath, 16000, 10.0)

	chunks, err := Chunk(wavPath, filepath.Join(dir, "chunks"), Options{WindowSeconds: 4, OverlapSeconds: 1})
	if err != nil {
		t.Fatalf("Chunk: %v", err)
	}
	if len(chunks) < 3 {
		t.Fatalf("expected at least 3 chunks, got %d", len(chunks))
	}
	if chunks[0].StartSec != 0 {
		t.Fatalf("expected first chunk to start at 0, got %v", chunks[0].StartSec)
	}
	for i := 1; i < len(chunks); i++ {
		if chunks[i].StartSec >= chunks[i-1].EndSec {
			t.Fatalf("expected overlap between chunk %d and %d: %+v %+v", i-1, i, chunks[i-1], chunks[i])
		}
	}
	last := chunks[len(chunks)-1]
	if last.EndSec != 10.0 {
		t.Fatalf("expected last chunk to reach end of file, got %v", last.EndSec)
	}
	for _, c := range chunks {
		if _, err := os.Stat(c.WavChunkPath); err != nil {
			t.Fatalf("expected chunk file to exist: %v", err)
		}
	}
}

func TestChunkRejectsZeroLengthAudio(t *testing.T) {
	dir := t.TempDir()
	wavPath := filepath.Join(dir, "empty.wav")
	writeTestWAV(t, wavPath, 16000, 0)

	if _, err := Chunk(wavPath, filepath.Join(dir, "chunks"), Options{WindowSeconds: 4, OverlapSeconds: 1}); err == nil {
		t.Fatal("expected chunking error for zero-length audio")
	}
}

func TestChunkRejectsUnreadableSource(t *testing.T) {
	dir := t.TempDir()
	if _, err := Chunk(filepath.Join(dir, "missing.wav"), filepath.Join(dir, "chunks"), Options{WindowSeconds: 4, OverlapSeconds: 1}); err == nil {
		t.Fatal("expected chunking error for missing source")
	}
}

func TestChunkSingleWindowWhenShorterThanOneWindow(t *testing.T) {
	dir := t.TempDir()
	wavPath := filepath.Join(dir, "short.wav")
	writeTestWAV(t, wavPath, 16000, 2.0)

	chunks, err := Chunk(wavPath, filepath.Join(dir, "chunks"), Options{WindowSeconds: 120, OverlapSeconds: 0.25})
	if err != nil {
		t.Fatalf("Chunk: %v", err)
	}
	if len(chunks) != 1 {
		t.Fatalf("expected exactly one chunk, got %d", len(chunks))
	}
	if chunks[0].EndSec != 2.0 {
		t.Fatalf("expected chunk to end at 2.0, got %v", chunks[0].EndSec)
	}
}
