// Package scoring implements the pure scoring-ladder components the media
// resolver combines into a weighted total for each candidate file: a
// filename/extension priority score, a WA-sequence-number proximity score,
// and a modification-time proximity score. Every function here is pure
// arithmetic with no I/O, so the ladder itself stays trivially testable in
// isolation from scanning and ranking.
package scoring

import "math"

// Ext scores ext against a configured priority order (most-preferred
// first). An extension earlier in the list scores higher; an extension
// absent from the list scores 0.
func Ext(ext string, priority []string) float64 {
	for i, candidate := range priority {
		if candidate == ext {
			return float64(len(priority) - i)
		}
	}
	return 0
}

// Seq scores the proximity between a target WA sequence number (extracted
// from a filename hint or surrounding message tokens) and a candidate
// file's own sequence number. Closer sequence numbers score higher; having
// any sequence number at all outranks having none when no target is known.
func Seq(target, candidate *int) float64 {
	if target == nil && candidate == nil {
		return 0
	}
	if target == nil {
		return 0.1
	}
	if candidate == nil {
		return 0
	}
	return 1.0 / (1.0 + math.Abs(float64(*target-*candidate)))
}

// Mtime scores proximity by absolute time delta in seconds; an exact match
// scores 1.0, decaying toward 0 as the delta grows.
func Mtime(deltaSeconds float64) float64 {
	if deltaSeconds < 0 {
		deltaSeconds = -deltaSeconds
	}
	return 1.0 / (1.0 + deltaSeconds)
}
