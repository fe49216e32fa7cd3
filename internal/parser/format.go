package parser

import (
	"errors"
	"regexp"
	"strings"
	"time"
)

// tsFormat is a candidate WhatsApp export timestamp layout: a regex that
// extracts the timestamp fragment from a header line, and the Go time
// layouts (several, to tolerate 2-digit/4-digit years and optional
// seconds) tried in order against that fragment.
type tsFormat struct {
	name    string
	regex   *regexp.Regexp
	layouts []string
}

// candidateFormats mirrors the month-first/day-first, 12h/24h split a
// WhatsApp export can use, in the same priority order as the original
// detector (12h variants checked before 24h, since a 24h regex without a
// trailing AM/PM would otherwise also match a 12h line's numeric prefix).
var candidateFormats = []tsFormat{
	{
		name:    "12h_MDY",
		regex:   regexp.MustCompile(`^\[?(\d{1,2}/\d{1,2}/\d{2,4}, \d{1,2}:\d{2}(?::\d{2})? [AP]M)\]?`),
		layouts: []string{"1/2/06, 3:04 PM", "1/2/2006, 3:04 PM", "1/2/06, 3:04:05 PM", "1/2/2006, 3:04:05 PM"},
	},
	{
		name:    "12h_DMY",
		regex:   regexp.MustCompile(`^\[?(\d{1,2}/\d{1,2}/\d{2,4}, \d{1,2}:\d{2}(?::\d{2})? [AP]M)\]?`),
		layouts: []string{"2/1/06, 3:04 PM", "2/1/2006, 3:04 PM", "2/1/06, 3:04:05 PM", "2/1/2006, 3:04:05 PM"},
	},
	{
		name:    "24h_MDY",
		regex:   regexp.MustCompile(`^\[?(\d{1,2}/\d{1,2}/\d{2,4}, \d{1,2}:\d{2}(?::\d{2})?)\]?(?: [AP]M)?`),
		layouts: []string{"1/2/06, 15:04", "1/2/2006, 15:04", "1/2/06, 15:04:05", "1/2/2006, 15:04:05"},
	},
	{
		name:    "24h_DMY",
		regex:   regexp.MustCompile(`^\[?(\d{1,2}/\d{1,2}/\d{2,4}, \d{1,2}:\d{2}(?::\d{2})?)\]?(?: [AP]M)?`),
		layouts: []string{"2/1/06, 15:04", "2/1/2006, 15:04", "2/1/06, 15:04:05", "2/1/2006, 15:04:05"},
	},
}

// wsReplacer normalizes the unicode whitespace/RTL-mark variants a
// WhatsApp export is observed to use around the timestamp.
var wsReplacer = strings.NewReplacer(
	"\u202f", " ", // narrow no-break space
	"\u00a0", " ", // non-breaking space
	"\u200f", "", // RTL mark
)

func normalizeWhitespace(s string) string {
	return wsReplacer.Replace(s)
}

// detectFormat scores every candidate over up to the first 200 non-empty
// lines, weighting hits in the first 50 lines double, and returns the
// highest-scoring candidate plus the Go layout that won the most hits
// within it. Ties break toward the earlier, higher-priority candidate.
func detectFormat(lines []string) (tsFormat, string, error) {
	sample := make([]string, 0, 200)
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		sample = append(sample, normalizeWhitespace(trimmed))
		if len(sample) == 200 {
			break
		}
	}
	if len(sample) == 0 {
		return tsFormat{}, "", errors.New("parser: no non-empty lines to detect timestamp format from")
	}

	type hit struct {
		score      float64
		layoutHits map[string]float64
	}
	scores := make(map[string]*hit, len(candidateFormats))

	for _, cand := range candidateFormats {
		h := &hit{layoutHits: map[string]float64{}}
		for i, line := range sample {
			m := cand.regex.FindStringSubmatch(line)
			if m == nil {
				continue
			}
			fragment := strings.TrimSpace(m[1])
			layout := matchLayout(fragment, cand.layouts)
			if layout == "" {
				continue
			}
			weight := 1.0
			if i < 50 {
				weight = 2.0
			}
			h.score += weight
			h.layoutHits[layout] += weight
		}
		scores[cand.name] = h
	}

	var winner tsFormat
	var winnerScore float64 = -1
	var winnerLayout string
	for _, cand := range candidateFormats {
		h := scores[cand.name]
		if h.score > winnerScore {
			winnerScore = h.score
			winner = cand
			winnerLayout = bestLayout(h.layoutHits, cand.layouts[0])
		}
	}
	if winnerScore <= 0 {
		return tsFormat{}, "", errors.New("parser: no timestamp format matched any sample line")
	}
	return winner, winnerLayout, nil
}

func matchLayout(fragment string, layouts []string) string {
	for _, layout := range layouts {
		if _, err := time.Parse(layout, fragment); err == nil {
			return layout
		}
	}
	return ""
}

func bestLayout(hits map[string]float64, fallback string) string {
	best := fallback
	bestScore := -1.0
	for layout, score := range hits {
		if score > bestScore {
			bestScore = score
			best = layout
		}
	}
	return best
}

// parseTS parses a timestamp fragment with the detected format, returning
// the canonical naive ISO-8601 layout ("2006-01-02T15:04:05") this module
// uses for Message.TS everywhere.
func parseTS(fragment string, layout string) (string, error) {
	t, err := time.Parse(layout, normalizeWhitespace(strings.TrimSpace(fragment)))
	if err != nil {
		return "", err
	}
	return t.Format("2006-01-02T15:04:05"), nil
}
