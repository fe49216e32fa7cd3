package mediaindex

import (
	"regexp"
	"strconv"
	"strings"
)

// copySuffixRe strips the " (1)"/"-copy" suffixes a phone's media picker
// appends when a file is saved more than once.
var copySuffixRe = regexp.MustCompile(`(?i)( \(\d+\)|-copy)$`)

// waPattern matches the WhatsApp media naming convention:
// IMG/VID/PTT/AUD/DOC-YYYYMMDD-WA####.
var waPattern = regexp.MustCompile(`(?i)^(IMG|VID|PTT|AUD|DOC)-(\d{8})-WA(\d+)`)

var prefixKind = map[string]string{
	"IMG": "image",
	"VID": "video",
	"PTT": "voice",
	"AUD": "voice",
	"DOC": "document",
}

// ParsedFilename is the structured form of a WhatsApp-style media filename.
type ParsedFilename struct {
	Prefix string
	Date   string
	SeqNum *int
	Kind   string
	Stem   string
}

// NormalizeStem strips whitespace and copy suffixes from a filename stem.
func NormalizeStem(stem string) string {
	stem = strings.TrimSpace(stem)
	return copySuffixRe.ReplaceAllString(stem, "")
}

// ParseFilename decomposes a media filename into its WhatsApp naming
// components, if it follows that convention; otherwise it returns a
// ParsedFilename with only Stem set (lowercased, copy-suffix stripped).
func ParseFilename(name string) ParsedFilename {
	stem := name
	if i := strings.IndexByte(stem, '.'); i >= 0 {
		stem = stem[:i]
	}
	cleaned := NormalizeStem(stem)

	match := waPattern.FindStringSubmatch(cleaned)
	if match == nil {
		return ParsedFilename{Stem: strings.ToLower(cleaned)}
	}

	prefix := strings.ToUpper(match[1])
	seq, err := strconv.Atoi(match[3])
	var seqPtr *int
	if err == nil {
		seqPtr = &seq
	}
	kind, ok := prefixKind[prefix]
	if !ok {
		kind = "other"
	}
	return ParsedFilename{
		Prefix: prefix,
		Date:   match[2],
		SeqNum: seqPtr,
		Kind:   kind,
		Stem:   strings.ToLower(cleaned),
	}
}

// tokenizeRe splits a normalized stem into alphanumeric tokens for hint
// matching.
var tokenizeRe = regexp.MustCompile(`[^\w]+`)

// TokenizeName splits name's stem into lowercase alphanumeric tokens, used
// to intersect against surrounding-message hint tokens.
func TokenizeName(name string) []string {
	parsed := ParseFilename(name)
	parts := tokenizeRe.Split(parsed.Stem, -1)
	tokens := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			tokens = append(tokens, p)
		}
	}
	return tokens
}
