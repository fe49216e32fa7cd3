package resolver

import (
	"regexp"
	"strconv"
	"strings"

	"chatpipe/internal/mediaindex"
	"chatpipe/internal/message"
)

var (
	waFilenameTokenRe = regexp.MustCompile(`(?i)(?:img|vid|ptt|aud|doc)-\d{8}-wa\d+`)
	waBareTokenRe     = regexp.MustCompile(`(?i)wa[-_]?\d+`)
	waSeqDigitsRe     = regexp.MustCompile(`(?i)wa[-_]?(\d+)`)
	compoundTokenRe   = regexp.MustCompile(`[a-z0-9]+(?:[-_][a-z0-9]+)+`)
)

// tokenizeHintText extracts filename-ish hint tokens from free text:
// WhatsApp-style filename fragments, bare WA#### references, and any other
// hyphen/underscore compound word (spec §4.1 "Hint extraction").
func tokenizeHintText(text string) map[string]struct{} {
	lower := strings.ToLower(text)
	tokens := make(map[string]struct{})
	for _, m := range waFilenameTokenRe.FindAllString(lower, -1) {
		tokens[m] = struct{}{}
	}
	for _, m := range waBareTokenRe.FindAllString(lower, -1) {
		tokens[m] = struct{}{}
	}
	for _, m := range compoundTokenRe.FindAllString(lower, -1) {
		tokens[m] = struct{}{}
	}
	return tokens
}

// extractHints gathers hint tokens from the target message and its
// ±window neighbors, preferring same-sender messages and falling back to
// every neighbor when the sender never mentions a hint.
func extractHints(msgs []*message.Message, i, window int) map[string]struct{} {
	target := msgs[i]
	sameSender := make(map[string]struct{})
	global := make(map[string]struct{})

	addTokens := func(dst map[string]struct{}, text string) {
		if text == "" {
			return
		}
		for tok := range tokenizeHintText(text) {
			dst[tok] = struct{}{}
		}
	}

	addTokens(sameSender, target.ContentText)
	addTokens(sameSender, target.Caption)

	start := i - window
	if start < 0 {
		start = 0
	}
	end := i + window + 1
	if end > len(msgs) {
		end = len(msgs)
	}
	for idx := start; idx < end; idx++ {
		if idx == i {
			continue
		}
		m := msgs[idx]
		for _, text := range []string{m.ContentText, m.Caption} {
			if text == "" {
				continue
			}
			tokens := tokenizeHintText(text)
			if m.Sender == target.Sender {
				for tok := range tokens {
					sameSender[tok] = struct{}{}
				}
			}
			for tok := range tokens {
				global[tok] = struct{}{}
			}
		}
	}

	if len(sameSender) > 0 {
		return sameSender
	}
	return global
}

// hintsIntersect reports whether any of the candidate's name tokens also
// appears among the hint tokens.
func hintsIntersect(hints map[string]struct{}, nameTokens []string) bool {
	for _, tok := range nameTokens {
		if _, ok := hints[tok]; ok {
			return true
		}
	}
	return false
}

// extractSeqTarget derives the WA sequence number the message is most
// likely referring to, preferring an explicit media_hint filename over any
// hint token pulled from surrounding text.
func extractSeqTarget(msg *message.Message, hints map[string]struct{}) *int {
	if msg.MediaHint != "" {
		if seq := mediaindex.ParseFilename(msg.MediaHint).SeqNum; seq != nil {
			return seq
		}
		if seq := seqFromToken(msg.MediaHint); seq != nil {
			return seq
		}
	}
	for tok := range hints {
		if seq := seqFromToken(tok); seq != nil {
			return seq
		}
	}
	return nil
}

func seqFromToken(token string) *int {
	match := waSeqDigitsRe.FindStringSubmatch(token)
	if match == nil {
		return nil
	}
	n, err := strconv.Atoi(match[1])
	if err != nil {
		return nil
	}
	return &n
}
