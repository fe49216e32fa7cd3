// Package chunker splits a normalized WAV file into fixed, overlapping
// windows and writes each window to a deterministically named chunk file.
package chunker

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
)

// ErrChunking marks a failure specific to audio chunking, distinct from a
// generic I/O error, so callers can map it to a dedicated status_reason.
var ErrChunking = errors.New("chunking error")

// ChunkWindow describes one emitted chunk window. Offsets are rounded to 3
// decimal places for stable equality across runs.
type ChunkWindow struct {
	ChunkIndex   int
	StartSec     float64
	EndSec       float64
	DurationSec  float64
	WavChunkPath string
}

// Options controls window size and overlap, both in seconds.
type Options struct {
	WindowSeconds  float64
	OverlapSeconds float64
}

// Chunk splits wavPath into windows of opts.WindowSeconds advancing by
// (window - overlap), writing chunk_{i:04d}.wav files under outDir. The
// last chunk is truncated to end-of-file; zero-or-negative-duration
// windows are never emitted. A 0-length or unreadable source returns a
// wrapped ErrChunking, never an empty chunk list.
func Chunk(wavPath, outDir string, opts Options) ([]ChunkWindow, error) {
	info, err := readWAVInfo(wavPath)
	if err != nil {
		return nil, fmt.Errorf("%w: read wav header: %v", ErrChunking, err)
	}
	totalSeconds := info.durationSeconds()
	if totalSeconds <= 0 {
		return nil, fmt.Errorf("%w: invalid audio duration %.3fs", ErrChunking, totalSeconds)
	}
	if info.SampleRate == 0 || info.bytesPerFrame() == 0 {
		return nil, fmt.Errorf("%w: invalid wav format (sample_rate=%d bits=%d channels=%d)", ErrChunking, info.SampleRate, info.BitsPerSample, info.NumChannels)
	}

	window := opts.WindowSeconds
	if window <= 0 {
		return nil, fmt.Errorf("%w: window_seconds must be positive", ErrChunking)
	}
	overlap := opts.OverlapSeconds
	if overlap > window/2 {
		overlap = window / 2
	}
	if overlap < 0 {
		overlap = 0
	}

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: create chunk dir: %v", ErrChunking, err)
	}

	src, err := os.Open(wavPath)
	if err != nil {
		return nil, fmt.Errorf("%w: open source: %v", ErrChunking, err)
	}
	defer src.Close()

	var chunks []ChunkWindow
	start := 0.0
	prevStart := -1.0

	for start < totalSeconds {
		end := math.Min(start+window, totalSeconds)
		if end <= start {
			break
		}

		startFrame := int64(start * float64(info.SampleRate))
		endFrame := int64(end * float64(info.SampleRate))
		index := len(chunks)
		chunkPath := filepath.Join(outDir, fmt.Sprintf("chunk_%04d.wav", index))

		if err := writeWAVSlice(src, info, startFrame, endFrame, chunkPath); err != nil {
			return nil, fmt.Errorf("%w: write chunk %d: %v", ErrChunking, index, err)
		}

		chunks = append(chunks, ChunkWindow{
			ChunkIndex:   index,
			StartSec:     round3(start),
			EndSec:       round3(math.Min(end, totalSeconds)),
			DurationSec:  round3(math.Min(end, totalSeconds) - start),
			WavChunkPath: chunkPath,
		})

		if end >= totalSeconds {
			break
		}
		nextStart := end - overlap
		if nextStart <= start {
			break
		}
		start = nextStart
		if math.Abs(start-prevStart) < 1e-6 {
			break
		}
		prevStart = start
	}

	if len(chunks) == 0 {
		return nil, fmt.Errorf("%w: no chunks produced for %.3fs of audio", ErrChunking, totalSeconds)
	}
	return chunks, nil
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
