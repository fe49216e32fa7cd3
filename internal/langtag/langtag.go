// Package langtag normalizes the free-form language hints accepted at the
// config and CLI boundary ("auto", "en", "en-US", "eng", "chinese", ...)
// into canonical BCP-47 tags, or the sentinel "auto" for provider
// auto-detection.
package langtag

import (
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// Auto is the sentinel meaning "let the ASR provider auto-detect".
const Auto = "auto"

// aliases covers the handful of non-BCP-47 spellings a chat export or an
// operator is likely to type that language.Parse does not accept outright.
var aliases = map[string]string{
	"chinese":    "zh",
	"mandarin":   "zh",
	"cantonese":  "yue",
	"english":    "en",
	"spanish":    "es",
	"french":     "fr",
	"german":     "de",
	"italian":    "it",
	"portuguese": "pt",
	"japanese":   "ja",
	"korean":     "ko",
	"russian":    "ru",
	"arabic":     "ar",
	"hindi":      "hi",
	"dutch":      "nl",
	"polish":     "pl",
	"swedish":    "sv",
	"danish":     "da",
	"norwegian":  "no",
	"finnish":    "fi",
}

// Normalize canonicalizes a language hint to a BCP-47 tag string, or to
// Auto when the hint is empty or explicitly "auto". It returns an error
// when the hint is non-empty, not the auto sentinel, and not parseable as
// a BCP-47 tag or a known alias — the config/CLI boundary is the only
// place this should ever surface to an operator.
func Normalize(hint string) (string, error) {
	trimmed := strings.ToLower(strings.TrimSpace(hint))
	if trimmed == "" || trimmed == Auto {
		return Auto, nil
	}
	if alias, ok := aliases[trimmed]; ok {
		trimmed = alias
	}
	tag, err := language.Parse(trimmed)
	if err != nil {
		return "", err
	}
	return tag.String(), nil
}

// Valid reports whether hint normalizes cleanly, without returning the
// normalized form.
func Valid(hint string) bool {
	_, err := Normalize(hint)
	return err == nil
}

// DisplayName returns a human-readable name for a normalized BCP-47 tag,
// in English, falling back to the tag itself when it can't be resolved.
func DisplayName(tag string) string {
	if tag == "" || tag == Auto {
		return "Auto-detect"
	}
	parsed, err := language.Parse(tag)
	if err != nil {
		return tag
	}
	name := display.English.Tags().Name(parsed)
	if name == "" {
		return tag
	}
	return name
}
