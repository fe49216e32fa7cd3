// Package vad implements the observational voice-activity pass run over
// normalized audio. It is a coarse byte-level heuristic, not a model-based
// detector: it only estimates whether a clip is mostly silence so the
// transcriber can flag suspect transcripts, never to gate transcription
// itself.
package vad

import "os"

// Stats summarizes the observational pass over one normalized WAV file.
type Stats struct {
	SpeechRatio   float64
	SpeechSeconds float64
	TotalSeconds  float64
	Segments      [][2]float64
}

// Options carries the sample format needed to convert byte counts into
// seconds.
type Options struct {
	SampleRate int
	Channels   int
}

// Run scans wavPath for non-zero sample bytes and reports a coarse speech
// estimate. Any non-zero byte in the file is treated as "has speech";
// the run is observational only and never blocks or retries.
func Run(wavPath string, opts Options) Stats {
	data, err := os.ReadFile(wavPath)
	if err != nil {
		return Stats{}
	}
	bytesPerSecond := opts.SampleRate * opts.Channels * 2
	var totalSeconds float64
	if bytesPerSecond > 0 {
		totalSeconds = float64(len(data)) / float64(bytesPerSecond)
	}

	hasSpeech := false
	for _, b := range data {
		if b != 0 {
			hasSpeech = true
			break
		}
	}

	speechSeconds := 0.0
	if hasSpeech {
		speechSeconds = totalSeconds * 0.8
	}
	speechRatio := 0.0
	if totalSeconds > 0 {
		speechRatio = speechSeconds / totalSeconds
	}
	var segments [][2]float64
	if speechSeconds > 0 {
		segments = [][2]float64{{0, speechSeconds}}
	}

	return Stats{
		SpeechRatio:   speechRatio,
		SpeechSeconds: speechSeconds,
		TotalSeconds:  totalSeconds,
		Segments:      segments,
	}
}

// IsMostlySilence reports whether stats fall below the configured minimum
// speech thresholds.
func IsMostlySilence(stats Stats, minSpeechRatio, minSpeechSeconds float64) bool {
	return stats.SpeechRatio < minSpeechRatio || stats.SpeechSeconds < minSpeechSeconds
}
