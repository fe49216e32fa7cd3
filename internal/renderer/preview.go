package renderer

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"chatpipe/internal/message"
)

const defaultPreviewMaxChars = 120

// FormatPreviewLine renders a single-line preview for a voice message,
// used by preview_transcripts.txt and the CLI's status table. Panics if
// called on a non-voice message — callers are expected to filter first,
// mirroring the source contract's hard requirement.
func FormatPreviewLine(m *message.Message, maxChars int) string {
	if m.Kind != message.KindVoice {
		panic("renderer: FormatPreviewLine only supports voice messages")
	}
	if maxChars <= 0 {
		maxChars = defaultPreviewMaxChars
	}

	statusPart := string(m.Status)
	if m.StatusReason != "" {
		statusPart = fmt.Sprintf("%s/%s", m.Status, m.StatusReason)
	}

	provider := "-"
	if m.Derived.ASR != nil && m.Derived.ASR.Provider != "" {
		provider = m.Derived.ASR.Provider
	}

	var text string
	switch {
	case m.ContentText != "":
		text = m.ContentText
	case m.Status == message.StatusFailed:
		text = "[AUDIO TRANSCRIPTION FAILED]"
	default:
		text = "[UNTRANSCRIBED VOICE NOTE]"
	}

	text = strings.Join(strings.Fields(strings.ReplaceAll(strings.ReplaceAll(text, "\r", " "), "\n", " ")), " ")
	if len([]rune(text)) > maxChars {
		text = string([]rune(text)[:maxChars]) + "…"
	}
	text = strings.ReplaceAll(text, `"`, `\"`)

	sender := strings.ReplaceAll(m.Sender, "|", " ")

	return fmt.Sprintf(`%s | idx=%d | sender=%s | status=%s | provider=%s | text="%s"`,
		tsHuman(m.TS), m.Idx, sender, statusPart, provider, text)
}

// WriteTranscriptPreview writes preview_transcripts.txt: one
// FormatPreviewLine per voice message, sorted by idx. Returns the number
// of voice messages written.
func WriteTranscriptPreview(msgs []*message.Message, outPath string, maxChars int) (int, error) {
	voice := make([]*message.Message, 0, len(msgs))
	for _, m := range msgs {
		if m.Kind == message.KindVoice {
			voice = append(voice, m)
		}
	}
	sort.Slice(voice, func(i, j int) bool { return voice[i].Idx < voice[j].Idx })

	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return 0, fmt.Errorf("renderer: create preview dir: %w", err)
	}
	f, err := os.Create(outPath)
	if err != nil {
		return 0, fmt.Errorf("renderer: create %s: %w", outPath, err)
	}
	defer f.Close()

	for _, m := range voice {
		if _, err := fmt.Fprintln(f, FormatPreviewLine(m, maxChars)); err != nil {
			return 0, fmt.Errorf("renderer: write preview line: %w", err)
		}
	}
	return len(voice), nil
}
