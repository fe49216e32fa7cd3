// Package runid derives and generates the filesystem-safe identifiers a
// run directory is keyed by, plus the ephemeral request IDs threaded
// through per-item logging.
package runid

import (
	"regexp"
	"strings"

	"github.com/google/uuid"
)

var nonAlnumRun = regexp.MustCompile(`[^a-zA-Z0-9]+`)

// Slugify normalizes an arbitrary string (an archive root's directory
// name, an operator-supplied --run-id) into a deterministic,
// filesystem-safe slug: runs of non-alphanumeric characters collapse to a
// single hyphen, leading/trailing hyphens are trimmed, and the result is
// lowercased. Falls back to "run" when the input has no alphanumeric
// content.
func Slugify(value string) string {
	slug := nonAlnumRun.ReplaceAllString(strings.TrimSpace(value), "-")
	slug = strings.Trim(slug, "-")
	slug = strings.ToLower(slug)
	if slug == "" {
		return "run"
	}
	return slug
}

// New returns a fresh, unique request ID for scoping one log/context
// lifetime (an ASR call, a chunk job) — never persisted, never used as a
// run directory name.
func New() string {
	return uuid.NewString()
}
