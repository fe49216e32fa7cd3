package message

import "encoding/json"

// SchemaVersion is the Message wire-format version (semantic-version
// rules per spec §6 "Schema versioning": major bumps on removal/enum
// narrowing, minor on additive optional fields/enum values, patch on
// documentation-only changes).
const SchemaVersion = "1.0.0"

// Message is the canonical record shared by every pipeline stage. Field
// ownership: the parser (M1) creates it and never touches ts again; the
// resolver (M2) owns media_filename and media-related status/status_reason;
// the transcriber (M3) owns content_text for voice records, derived.asr,
// and voice status/status_reason. Stage outputs are immutable once written.
type Message struct {
	SchemaVersion string       `json:"schema_version"`
	Idx           int          `json:"idx"`
	TS            string       `json:"ts"`
	Sender        string       `json:"sender"`
	Kind          Kind         `json:"kind"`
	ContentText   string       `json:"content_text"`
	RawLine       string       `json:"raw_line"`
	RawBlock      string       `json:"raw_block"`
	MediaHint     string       `json:"media_hint,omitempty"`
	MediaFilename string       `json:"media_filename,omitempty"`
	Caption       string       `json:"caption,omitempty"`
	Derived       Derived      `json:"derived"`
	Status        Status       `json:"status"`
	Partial       bool         `json:"partial"`
	StatusReason  StatusReason `json:"status_reason,omitempty"`
	Errors        []string     `json:"errors"`
}

// New builds a Message with the required fields and status defaulted to ok,
// matching the source schema's field defaults.
func New(idx int, ts, sender string, kind Kind) *Message {
	return &Message{
		SchemaVersion: SchemaVersion,
		Idx:           idx,
		TS:            ts,
		Sender:        sender,
		Kind:          kind,
		Status:        StatusOK,
		Errors:        []string{},
	}
}

// MarkOK clears any non-ok state.
func (m *Message) MarkOK() {
	m.Status = StatusOK
	m.Partial = false
	m.StatusReason = ""
}

// MarkPartial marks the record partial with the given reason code. partial
// is kept true iff status==partial, per the record invariant.
func (m *Message) MarkPartial(reason StatusReason) {
	m.Status = StatusPartial
	m.Partial = true
	m.StatusReason = reason
}

// MarkFailed marks the record failed with the given reason code.
func (m *Message) MarkFailed(reason StatusReason) {
	m.Status = StatusFailed
	m.Partial = false
	m.StatusReason = reason
}

// MarkSkipped marks the record skipped with the given reason code.
func (m *Message) MarkSkipped(reason StatusReason) {
	m.Status = StatusSkipped
	m.Partial = false
	m.StatusReason = reason
}

// MarkResolverOK records a resolver outcome that is still status=ok but
// carries an explanatory reason (ambiguous_media/unresolved_media are
// "non-errors" per spec §7).
func (m *Message) MarkResolverOK(reason StatusReason) {
	m.Status = StatusOK
	m.Partial = false
	m.StatusReason = reason
}

// AddError appends a short error string to the accumulated errors list.
func (m *Message) AddError(err string) {
	m.Errors = append(m.Errors, err)
}

// Clone deep-copies a Message so stage transforms never mutate a caller's
// slice in place (mirrors the source's model_copy(deep=True) use at each
// stage boundary).
func (m *Message) Clone() *Message {
	clone := *m
	clone.Errors = append([]string(nil), m.Errors...)
	if m.Derived.Extra != nil {
		clone.Derived.Extra = make(map[string]json.RawMessage, len(m.Derived.Extra))
		for k, v := range m.Derived.Extra {
			clone.Derived.Extra[k] = v
		}
	}
	if m.Derived.ASR != nil {
		asr := *m.Derived.ASR
		asr.Chunks = append([]ChunkResult(nil), m.Derived.ASR.Chunks...)
		if m.Derived.ASR.VAD != nil {
			vad := *m.Derived.ASR.VAD
			vad.Segments = append([][2]float64(nil), m.Derived.ASR.VAD.Segments...)
			asr.VAD = &vad
		}
		clone.Derived.ASR = &asr
	}
	if m.Derived.Disambiguation != nil {
		dis := *m.Derived.Disambiguation
		dis.Candidates = append([]DisambiguationCandidate(nil), m.Derived.Disambiguation.Candidates...)
		clone.Derived.Disambiguation = &dis
	}
	return &clone
}
