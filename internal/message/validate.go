package message

import "fmt"

// ValidateSequence checks the invariant that every stage output, sorted by
// idx, is a strictly increasing contiguous sequence from 0 (spec §3, §8).
// Callers must sort by Idx before calling this (stage writers already do,
// per the orchestrator's sort-before-write contract).
func ValidateSequence(messages []*Message) error {
	for i, m := range messages {
		if m.Idx != i {
			return fmt.Errorf("message: idx sequence break at position %d: got idx=%d, want %d", i, m.Idx, i)
		}
	}
	return nil
}

// ValidateEnums fails fast on any record whose kind/status/status_reason
// falls outside the closed enums, and on the partial<->status=partial
// invariant (spec §3, §8).
func ValidateEnums(m *Message) error {
	if !ValidKind(m.Kind) {
		return &EnumError{Field: "kind", Value: string(m.Kind)}
	}
	if !ValidStatus(m.Status) {
		return &EnumError{Field: "status", Value: string(m.Status)}
	}
	if m.StatusReason != "" && !ValidStatusReason(m.StatusReason) {
		return &EnumError{Field: "status_reason", Value: string(m.StatusReason)}
	}
	if m.Partial != (m.Status == StatusPartial) {
		return fmt.Errorf("message: idx=%d partial=%v inconsistent with status=%s", m.Idx, m.Partial, m.Status)
	}
	return nil
}

// Validate runs ValidateEnums over every record then ValidateSequence over
// the whole slice; messages must already be sorted by Idx.
func Validate(messages []*Message) error {
	for _, m := range messages {
		if err := ValidateEnums(m); err != nil {
			return err
		}
	}
	return ValidateSequence(messages)
}
