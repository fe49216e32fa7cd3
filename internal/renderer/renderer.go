// Package renderer writes the human-readable transcript artifacts (M5):
// chat_with_audio.txt and the optional preview_transcripts.txt. It sits
// outside this module's core contract (spec.md §1 treats the writers as
// an external collaborator beyond their input contract), so this is a
// direct, un-embellished rendering of the canonical Message stream.
package renderer

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"chatpipe/internal/message"
)

// RTLMode selects how Arabic-containing lines are wrapped for bidi
// display.
type RTLMode string

const (
	RTLNone      RTLMode = "none"
	RTLBidiMarks RTLMode = "bidi_marks"
)

const (
	rle = "‫" // Right-to-Left Embedding
	pdf = "‬" // Pop Directional Formatting
)

// Options controls chat_with_audio.txt rendering.
type Options struct {
	HideSystem       bool
	ShowStatus       bool
	FlattenMultiline bool
	RTLMode          RTLMode
}

// Summary tallies what RenderText wrote, by message category.
type Summary struct {
	Total  int
	Text   int
	Voice  int
	Media  int
	System int
}

var arabicRe = regexp.MustCompile(`[\x{0600}-\x{06FF}]`)

func hasArabic(s string) bool {
	return arabicRe.MatchString(s)
}

func wrapRTL(s string, mode RTLMode) string {
	if mode == RTLBidiMarks && hasArabic(s) {
		return rle + s + pdf
	}
	return s
}

func tsHuman(tsISO string) string {
	t, err := time.Parse("2006-01-02T15:04:05", tsISO)
	if err != nil {
		return tsISO
	}
	return t.Format("2006-01-02 15:04:05")
}

func statusSuffix(m *message.Message, opts Options) string {
	if !opts.ShowStatus {
		return ""
	}
	if m.StatusReason != "" {
		return fmt.Sprintf("[status=%s, reason=%s]", m.Status, m.StatusReason)
	}
	return fmt.Sprintf("[status=%s]", m.Status)
}

// selectBody chooses the rendered body text for a message, following the
// per-kind fallback ladder: explicit content_text/caption first, then a
// kind-specific placeholder for anything still empty.
func selectBody(m *message.Message) string {
	if m.Kind == message.KindSystem {
		if m.ContentText != "" {
			return m.ContentText
		}
		if m.RawBlock != "" {
			return m.RawBlock
		}
		return "[SYSTEM MESSAGE]"
	}

	if m.Status == message.StatusSkipped && m.StatusReason == message.ReasonMergedIntoPreviousMedia {
		return ""
	}

	if m.ContentText != "" {
		return m.ContentText
	}
	if m.Caption != "" {
		return m.Caption
	}

	switch m.Kind {
	case message.KindVoice:
		if m.Status == message.StatusFailed {
			return "[AUDIO TRANSCRIPTION FAILED]"
		}
		return "[UNTRANSCRIBED VOICE NOTE]"
	case message.KindImage:
		return fmt.Sprintf("[IMAGE: %s]", hintOr(m.MediaHint, "unknown"))
	case message.KindVideo:
		return fmt.Sprintf("[VIDEO: %s]", hintOr(m.MediaHint, "unknown"))
	case message.KindDocument:
		return fmt.Sprintf("[DOCUMENT: %s]", hintOr(m.MediaHint, "unknown"))
	case message.KindSticker:
		return "[STICKER]"
	case message.KindUnknown:
		return "[UNKNOWN MESSAGE]"
	}

	if m.Status == message.StatusSkipped {
		reason := string(m.StatusReason)
		if reason == "" {
			reason = "reason_unknown"
		}
		return fmt.Sprintf("[SKIPPED: %s]", reason)
	}

	return m.ContentText
}

func hintOr(hint, fallback string) string {
	if hint == "" {
		return fallback
	}
	return hint
}

// RenderText writes chat_with_audio.txt: one human-readable line per
// message (continuation lines indented), sorted by idx, skipping
// caption-merged placeholders and optionally system lines.
func RenderText(msgs []*message.Message, outPath string, opts Options) (Summary, error) {
	sorted := append([]*message.Message(nil), msgs...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Idx < sorted[j].Idx })

	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return Summary{}, fmt.Errorf("renderer: create output dir: %w", err)
	}
	f, err := os.Create(outPath)
	if err != nil {
		return Summary{}, fmt.Errorf("renderer: create %s: %w", outPath, err)
	}
	defer f.Close()

	var summary Summary
	for _, m := range sorted {
		if m.Kind == message.KindSystem {
			if opts.HideSystem {
				continue
			}
			body := wrapRTL(selectBody(m), opts.RTLMode)
			fmt.Fprintf(f, "%s - SYSTEM: %s%s\n", tsHuman(m.TS), body, statusSuffix(m, opts))
			summary.System++
			summary.Total++
			continue
		}

		if m.Status == message.StatusSkipped && m.StatusReason == message.ReasonMergedIntoPreviousMedia {
			continue
		}

		body := wrapRTL(selectBody(m), opts.RTLMode)
		lines := strings.Split(body, "\n")
		if len(lines) == 0 {
			lines = []string{""}
		}
		first := lines[0]
		if opts.FlattenMultiline {
			first = strings.TrimSpace(first)
		}
		fmt.Fprintf(f, "%s - %s: %s%s\n", tsHuman(m.TS), m.Sender, first, statusSuffix(m, opts))
		if !opts.FlattenMultiline {
			for _, cont := range lines[1:] {
				fmt.Fprintf(f, "    %s\n", cont)
			}
		}

		summary.Total++
		switch m.Kind {
		case message.KindVoice:
			summary.Voice++
		case message.KindImage, message.KindVideo, message.KindDocument:
			summary.Media++
		default:
			summary.Text++
		}
	}

	return summary, nil
}
