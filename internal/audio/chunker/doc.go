// Package chunker implements the deterministic fixed-window, overlapping
// WAV slicing used by the audio transcriber between normalization and ASR.
package chunker
