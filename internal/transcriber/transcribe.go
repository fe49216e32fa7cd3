package transcriber

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"strings"

	"chatpipe/internal/asr"
	"chatpipe/internal/audio/chunker"
	"chatpipe/internal/audio/normalize"
	"chatpipe/internal/audio/vad"
	"chatpipe/internal/message"
	"chatpipe/internal/services"
)

// Transcribe drives the full M3 state machine for one message: skip
// non-voice records, resolve from cache when possible, otherwise
// normalize → VAD → chunk → transcribe → assemble, set the final
// status/status_reason, and persist the hydrated result to cache. It
// never returns an error for an absorbable per-item failure; a returned
// error always marks a step/run-level problem (spec §7 propagation
// policy), e.g. a cache directory that cannot be created.
func (t *Transcriber) Transcribe(ctx context.Context, m *message.Message) error {
	if m.Kind != message.KindVoice {
		return nil
	}
	if m.MediaFilename == "" {
		m.MarkFailed(message.ReasonAudioUnsupportedFormat)
		if m.ContentText == "" {
			m.ContentText = "[AUDIO CONVERSION FAILED]"
		}
		return nil
	}

	key, err := t.cacheKey(m.MediaFilename)
	if err != nil {
		// Source can't even be read to hash: treat as an unsupported/
		// unreadable source, same bucket the chunker uses for 0-length or
		// unreadable audio (spec §4.2 "Chunk").
		m.MarkFailed(message.ReasonAudioUnsupportedFormat)
		if m.ContentText == "" {
			m.ContentText = "[AUDIO CONVERSION FAILED]"
		}
		return nil
	}

	if cached, ok := loadCache(t.cfg.CacheDir, key); ok {
		applyCache(m, cached)
		return nil
	}

	payload := &message.ASRPayload{
		PipelineVersion: t.cfg.PipelineVersion,
		Provider:        t.client.Provider(),
		Model:           t.client.Model(),
		LanguageHint:    t.cfg.ASRLanguageHint,
		ConfigSnapshot:  t.configSnapshot(),
	}
	m.Derived.ASR = payload

	workDir := filepath.Join(t.cfg.CacheDir, "work", key)
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return services.Wrap(services.ErrInfra, "audio_transcribe", "mkdir", "create work dir", err)
	}

	wavPath := filepath.Join(workDir, "normalized.wav")
	normResult, err := normalize.Normalize(ctx, t.runner, m.MediaFilename, wavPath, normalize.Options{
		ToolPath:   t.cfg.NormalizerToolPath,
		SampleRate: t.cfg.SampleRate,
		Channels:   t.cfg.Channels,
		Timeout:    t.cfg.NormalizeTimeout,
		MaxRetries: t.cfg.NormalizeMaxRetries,
	})
	payload.FfmpegLogTail = normResult.LogTail
	if err != nil {
		m.MarkFailed(services.ClassifyFfmpeg(err))
		if m.ContentText == "" {
			m.ContentText = "[AUDIO CONVERSION FAILED]"
		}
		return t.writeResultCache(key, m)
	}

	vadStats := vad.Run(wavPath, vad.Options{SampleRate: t.cfg.SampleRate, Channels: t.cfg.Channels})
	payload.TotalDurationSeconds = round3(vadStats.TotalSeconds)
	payload.VAD = &message.VADStats{
		SpeechRatio:     vadStats.SpeechRatio,
		SpeechSeconds:   vadStats.SpeechSeconds,
		TotalSeconds:    vadStats.TotalSeconds,
		Segments:        vadStats.Segments,
		IsMostlySilence: vad.IsMostlySilence(vadStats, t.cfg.VADMinSpeechRatio, t.cfg.VADMinSpeechSeconds),
	}

	chunks, err := chunker.Chunk(wavPath, filepath.Join(workDir, "chunks"), chunker.Options{
		WindowSeconds:  t.cfg.ChunkSeconds,
		OverlapSeconds: t.cfg.ChunkOverlapSeconds,
	})
	if err != nil {
		m.MarkFailed(message.ReasonAudioUnsupportedFormat)
		if m.ContentText == "" {
			m.ContentText = "[AUDIO CONVERSION FAILED]"
		}
		payload.ErrorSummary.LastErrorKind = "chunking"
		payload.ErrorSummary.LastErrorMessage = err.Error()
		return t.writeResultCache(key, m)
	}

	var assembled strings.Builder
	chunkResults := make([]message.ChunkResult, 0, len(chunks))
	okCount, errCount := 0, 0
	var lastErrKind asr.ErrorKind
	var lastErrMsg string

	for _, c := range chunks {
		req := asr.Request{
			WavPath:      c.WavChunkPath,
			StartSec:     c.StartSec,
			EndSec:       c.EndSec,
			LanguageHint: t.cfg.ASRLanguageHint,
			Model:        t.cfg.ASRModel,
		}
		resp, chunkErr := asr.TranscribeWithRetry(ctx, t.client, req, asr.RetryOptions{
			MaxRetries: t.cfg.ASRMaxRetries,
			BaseDelay:  t.cfg.ASRRetryBaseDelay,
			MaxDelay:   t.cfg.ASRRetryMaxDelay,
			Sleeper:    t.sleeper,
		})

		cr := message.ChunkResult{
			ChunkIndex:   c.ChunkIndex,
			StartSec:     c.StartSec,
			EndSec:       c.EndSec,
			DurationSec:  c.DurationSec,
			WavChunkPath: c.WavChunkPath,
		}
		if chunkErr != nil {
			errCount++
			lastErrKind = asr.KindOf(chunkErr)
			lastErrMsg = chunkErr.Error()
			cr.Status = "error"
			cr.Error = chunkErr.Error()
		} else {
			okCount++
			cr.Status = "ok"
			cr.Text = resp.Text
			cr.Language = resp.Language
			text := strings.TrimSpace(resp.Text)
			if text != "" {
				if assembled.Len() > 0 {
					assembled.WriteString("\n")
				}
				assembled.WriteString(text)
			}
		}
		chunkResults = append(chunkResults, cr)
	}

	payload.Chunks = chunkResults
	payload.ErrorSummary = message.ErrorSummary{
		ChunksOK:         okCount,
		ChunksError:      errCount,
		LastErrorKind:    string(lastErrKind),
		LastErrorMessage: lastErrMsg,
	}
	payload.Cost = asr.EstimateCost(payload.TotalDurationSeconds, t.client.Provider(), t.client.Model(), t.cfg.ASRBillingPlan)

	switch {
	case errCount == 0:
		m.ContentText = mergeAssembledText(m.ContentText, assembled.String())
		m.MarkOK()
	case okCount == 0:
		m.MarkFailed(services.ClassifyASR(string(lastErrKind)))
		if m.ContentText == "" {
			m.ContentText = "[TRANSCRIPTION FAILED]"
		}
	default:
		m.ContentText = mergeAssembledText(m.ContentText, assembled.String())
		m.MarkPartial(message.ReasonAsrPartial)
	}

	return t.writeResultCache(key, m)
}

// mergeAssembledText appends a newly assembled chunk transcript onto any
// pre-existing content_text with a "\n" separator, leaving existing text
// untouched when this pass produced nothing to add.
func mergeAssembledText(existing, transcript string) string {
	if transcript == "" {
		return existing
	}
	if existing == "" {
		return transcript
	}
	return existing + "\n" + transcript
}

func (t *Transcriber) writeResultCache(key string, m *message.Message) error {
	payload := cachedPayload{
		ContentText:  m.ContentText,
		Status:       m.Status,
		Partial:      m.Partial,
		StatusReason: m.StatusReason,
		ASR:          m.Derived.ASR,
	}
	if err := writeCache(t.cfg.CacheDir, key, payload); err != nil {
		return services.Wrap(services.ErrInfra, "audio_transcribe", "write_cache", "persist cache entry", err)
	}
	return nil
}

func (t *Transcriber) configSnapshot() map[string]any {
	return map[string]any{
		"sample_rate":             t.cfg.SampleRate,
		"channels":                t.cfg.Channels,
		"chunk_seconds":           t.cfg.ChunkSeconds,
		"chunk_overlap_seconds":   t.cfg.ChunkOverlapSeconds,
		"vad_min_speech_ratio":    t.cfg.VADMinSpeechRatio,
		"vad_min_speech_seconds":  t.cfg.VADMinSpeechSeconds,
		"asr_provider":            t.cfg.ASRProvider,
		"asr_model":               t.cfg.ASRModel,
		"asr_billing_plan":        t.cfg.ASRBillingPlan,
	}
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
