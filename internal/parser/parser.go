// Package parser turns a WhatsApp chat export's plain-text transcript
// into the canonical Message records every other stage consumes. It sits
// outside this module's core contract (spec's hard parts are the
// resolver/transcriber/orchestrator); this implementation covers the
// transcript's output contract — stable idx, header splitting, basic kind
// classification, and caption merge — without the full scored-detection
// nuance a production WhatsApp parser eventually grows.
package parser

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"chatpipe/internal/message"
)

const defaultChatFile = "_chat.txt"

// block is one aggregated message before classification: a header line
// (ts/sender) plus any continuation lines folded in underneath it.
type block struct {
	ts        string
	sender    string
	hasHeader bool
	rawLine   string
	rawBlock  string
	body      string
}

// Parse reads a chat export rooted at root (or chatFile, when set) and
// returns the canonical Message slice with dense idx, detected
// timestamps, kind classification, and caption merge applied.
func Parse(root, chatFile string) ([]*message.Message, error) {
	path := chatFile
	if path == "" {
		path = filepath.Join(root, defaultChatFile)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("parser: read chat file: %w", err)
	}

	lines := strings.Split(string(data), "\n")
	format, layout, err := detectFormat(lines)
	if err != nil {
		return nil, err
	}

	blocks := toBlocks(lines, format)

	msgs := make([]*message.Message, 0, len(blocks))
	for _, b := range blocks {
		if !b.hasHeader {
			continue
		}
		ts, err := parseTS(b.ts, layout)
		if err != nil {
			continue
		}
		kind, mediaHint, content := classify(b.body)
		m := message.New(len(msgs), ts, b.sender, kind)
		m.ContentText = content
		m.RawLine = b.rawLine
		m.RawBlock = b.rawBlock
		m.MediaHint = mediaHint
		msgs = append(msgs, m)
	}

	return mergeCaptions(msgs), nil
}

// toBlocks aggregates lines into header+continuation blocks. A new block
// starts only on a detected header line; anything else folds into the
// current block's raw_block/body, newline-preserved.
func toBlocks(lines []string, format tsFormat) []block {
	blocks := make([]block, 0, len(lines))
	var current *block

	for _, line := range lines {
		clean := strings.TrimRight(line, "\r")
		clean = strings.TrimPrefix(clean, "\ufeff")

		ts, sender, body, ok := splitHeader(clean, format)
		if ok {
			blocks = append(blocks, block{
				ts: ts, sender: sender, hasHeader: true,
				rawLine: clean, rawBlock: clean, body: body,
			})
			current = &blocks[len(blocks)-1]
			continue
		}

		if current == nil {
			blocks = append(blocks, block{rawLine: clean, rawBlock: clean, body: clean})
			current = &blocks[len(blocks)-1]
			continue
		}
		current.rawBlock = current.rawBlock + "\n" + clean
		current.body = current.body + "\n" + clean
	}

	return blocks
}

// splitHeader attempts to split line into (ts, sender, body). ok is false
// when line doesn't open with a recognized timestamp header, meaning it's
// a continuation of whatever block precedes it.
func splitHeader(line string, format tsFormat) (ts, sender, body string, ok bool) {
	loc := format.regex.FindStringSubmatchIndex(line)
	if loc == nil || loc[0] != 0 {
		return "", "", "", false
	}
	ts = strings.TrimSpace(line[loc[2]:loc[3]])
	remainder := line[loc[1]:]
	remainder = strings.TrimPrefix(remainder, " -")
	if !strings.HasPrefix(remainder, " ") {
		return "", "", "", false
	}
	remainder = strings.TrimPrefix(remainder, " ")

	if idx := strings.Index(remainder, ": "); idx >= 0 {
		sender = strings.TrimSpace(remainder[:idx])
		body = strings.TrimSpace(remainder[idx+2:])
	} else {
		sender = strings.TrimSpace(remainder)
		body = ""
	}
	if sender == "" {
		return "", "", "", false
	}
	return ts, sender, body, true
}

var (
	attachedFileRe = regexp.MustCompile(`(?i)^((?:IMG|VID|PTT|AUD|DOC)-\d{8}-WA\d+\.[A-Za-z0-9]+) \(file attached\)$`)
	voiceNoteRe    = regexp.MustCompile(`(?i)^voice message \((\d+):(\d{2})\)$`)
)

var attachedPrefixKind = map[string]message.Kind{
	"PTT": message.KindVoice,
	"AUD": message.KindVoice,
	"IMG": message.KindImage,
	"VID": message.KindVideo,
	"DOC": message.KindDocument,
}

var omittedPlaceholders = map[string]struct {
	kind message.Kind
	hint string
}{
	"<image omitted>":    {message.KindImage, "image_omitted"},
	"<video omitted>":    {message.KindVideo, "video_omitted"},
	"<document omitted>": {message.KindDocument, "document_omitted"},
	"<media omitted>":    {message.KindUnknown, "media_omitted"},
}

var systemLinePatterns = []string{
	"messages and calls are end-to-end encrypted",
	"you created group",
	"you were added",
	"added",
	"removed",
	"changed this group's icon",
	"changed the subject from",
}

// classify inspects a block's body and returns its kind, optional media
// hint, and the content_text that survives classification (media
// placeholders and attachment lines carry no residual text).
func classify(body string) (message.Kind, string, string) {
	body = strings.TrimSpace(body)

	if m := attachedFileRe.FindStringSubmatch(body); m != nil {
		fname := m[1]
		prefix := strings.ToUpper(fname[:3])
		kind, ok := attachedPrefixKind[prefix]
		if !ok {
			kind = message.KindDocument
		}
		return kind, fname, ""
	}

	lower := strings.ToLower(body)
	if placeholder, ok := omittedPlaceholders[lower]; ok {
		return placeholder.kind, placeholder.hint, ""
	}

	for _, pat := range systemLinePatterns {
		if strings.Contains(lower, pat) {
			return message.KindSystem, "", body
		}
	}

	if m := voiceNoteRe.FindStringSubmatch(body); m != nil {
		minutes, _ := strconv.Atoi(m[1])
		return message.KindVoice, fmt.Sprintf("%02d:%s", minutes, m[2]), ""
	}

	if lower == "audio omitted" {
		return message.KindVoice, "audio_omitted", ""
	}

	return message.KindText, "", body
}

// mergeCaptions folds an immediately-following same-sender/same-ts text
// message into the preceding media message's caption, marking the merged
// record skipped per spec §3's merged_into_previous_media contract.
func mergeCaptions(msgs []*message.Message) []*message.Message {
	mediaKinds := map[message.Kind]struct{}{
		message.KindImage: {}, message.KindVideo: {}, message.KindVoice: {},
		message.KindDocument: {}, message.KindSticker: {}, message.KindUnknown: {},
	}

	for i := 0; i < len(msgs)-1; i++ {
		m := msgs[i]
		if _, ok := mediaKinds[m.Kind]; !ok {
			continue
		}
		next := msgs[i+1]
		if next.Kind != message.KindText {
			continue
		}
		if m.Sender == next.Sender && m.TS == next.TS {
			m.Caption = next.ContentText
			next.MarkSkipped(message.ReasonMergedIntoPreviousMedia)
		}
	}
	return msgs
}
