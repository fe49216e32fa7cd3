package transcriber

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"chatpipe/internal/fileutil"
	"chatpipe/internal/hashcache"
	"chatpipe/internal/message"
)

// cachedPayload is the full hydrated state stored at
// <cache_dir>/<key>.json: everything the transcriber would otherwise have
// to recompute (spec §3 "Cache Entry").
type cachedPayload struct {
	ContentText  string               `json:"content_text"`
	Status       message.Status       `json:"status"`
	Partial      bool                 `json:"partial"`
	StatusReason message.StatusReason `json:"status_reason,omitempty"`
	ASR          *message.ASRPayload  `json:"derived_asr"`
}

func cachePath(cacheDir, key string) string {
	return filepath.Join(cacheDir, key+".json")
}

// cacheKey digests the media content together with every knob that could
// alter the transcript, so a config change invalidates stale entries
// instead of silently reusing them.
func (t *Transcriber) cacheKey(mediaPath string) (string, error) {
	extra := fmt.Sprintf("%s|%s|%s|%s|%s|%s|%d|%d|%s|%s",
		t.cfg.ASRProvider, t.cfg.ASRModel,
		strconv.FormatFloat(t.cfg.ChunkSeconds, 'f', -1, 64),
		strconv.FormatFloat(t.cfg.ChunkOverlapSeconds, 'f', -1, 64),
		t.cfg.PipelineVersion,
		t.cfg.ASRLanguageHint,
		t.cfg.SampleRate, t.cfg.Channels,
		strconv.FormatFloat(t.cfg.VADMinSpeechRatio, 'f', -1, 64),
		strconv.FormatFloat(t.cfg.VADMinSpeechSeconds, 'f', -1, 64),
	)
	return hashcache.HashFileWithExtra(mediaPath, extra)
}

func loadCache(cacheDir, key string) (*cachedPayload, bool) {
	data, err := os.ReadFile(cachePath(cacheDir, key))
	if err != nil {
		return nil, false
	}
	var payload cachedPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, false
	}
	return &payload, true
}

func writeCache(cacheDir, key string, payload cachedPayload) error {
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return fmt.Errorf("encode cache payload: %w", err)
	}
	if err := fileutil.WriteFileAtomic(cachePath(cacheDir, key), "cache-*.tmp", data); err != nil {
		return fmt.Errorf("write cache entry: %w", err)
	}
	return nil
}

func applyCache(m *message.Message, payload *cachedPayload) {
	m.ContentText = payload.ContentText
	m.Status = payload.Status
	m.Partial = payload.Partial
	m.StatusReason = payload.StatusReason
	m.Derived.ASR = payload.ASR
}
