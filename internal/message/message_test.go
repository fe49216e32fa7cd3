package message

import (
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"
)

func TestMarkPartialSetsFlag(t *testing.T) {
	m := New(0, "2025-07-08T10:00:00", "alice", KindVoice)
	m.MarkPartial(ReasonAsrPartial)
	if !m.Partial {
		t.Fatalf("expected partial=true")
	}
	if m.Status != StatusPartial {
		t.Fatalf("expected status=partial, got %s", m.Status)
	}
	if err := ValidateEnums(m); err != nil {
		t.Fatalf("unexpected validation error: %v", err)
	}
}

func TestValidateEnumsRejectsOutOfSetKind(t *testing.T) {
	m := New(0, "2025-07-08T10:00:00", "alice", Kind("bogus"))
	if err := ValidateEnums(m); err == nil {
		t.Fatalf("expected error for out-of-set kind")
	}
}

func TestValidateEnumsRejectsPartialMismatch(t *testing.T) {
	m := New(0, "2025-07-08T10:00:00", "alice", KindText)
	m.Partial = true
	if err := ValidateEnums(m); err == nil {
		t.Fatalf("expected error for partial/status mismatch")
	}
}

func TestValidateSequenceDetectsGap(t *testing.T) {
	msgs := []*Message{
		New(0, "t", "a", KindText),
		New(2, "t", "a", KindText),
	}
	if err := ValidateSequence(msgs); err == nil {
		t.Fatalf("expected sequence break error")
	}
}

func TestJSONLRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "messages.M1.jsonl")

	msgs := []*Message{
		New(0, "2025-07-08T10:00:00", "alice", KindText),
		New(1, "2025-07-08T10:01:00", "bob", KindVoice),
	}
	msgs[1].MediaHint = "PTT-20250708-WA0028.opus"
	msgs[1].Derived.ASR = &ASRPayload{
		PipelineVersion: "m3.1",
		Provider:        "whisper_stub",
		Model:           "whisper-1",
		LanguageHint:    "auto",
		Chunks: []ChunkResult{
			{ChunkIndex: 0, StartSec: 0, EndSec: 1.5, DurationSec: 1.5, Status: "ok", Text: "hi"},
		},
	}

	if err := WriteJSONL(path, msgs); err != nil {
		t.Fatalf("WriteJSONL: %v", err)
	}

	loaded, err := LoadJSONL(path)
	if err != nil {
		t.Fatalf("LoadJSONL: %v", err)
	}
	if len(loaded) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(loaded))
	}
	if loaded[1].Derived.ASR == nil || loaded[1].Derived.ASR.Provider != "whisper_stub" {
		t.Fatalf("expected asr payload to round-trip, got %+v", loaded[1].Derived.ASR)
	}
	if err := Validate(loaded); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestDerivedRoundTripsUnknownKeys(t *testing.T) {
	raw := `{"idx":0,"ts":"t","sender":"a","kind":"text","content_text":"","raw_line":"","raw_block":"","derived":{"future_field":{"x":1}},"status":"ok","partial":false,"errors":[]}`
	var m Message
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(m.Derived.Extra) != 1 {
		t.Fatalf("expected unknown key preserved, got %+v", m.Derived.Extra)
	}
	out, err := json.Marshal(&m)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(out), "future_field") {
		t.Fatalf("expected round-tripped unknown key in output: %s", out)
	}
}

func TestSchemaVersionCompatibility(t *testing.T) {
	if err := CheckSchemaVersion(SchemaVersion); err != nil {
		t.Fatalf("current version must be compatible with itself: %v", err)
	}
	if err := CheckSchemaVersion("2.0.0"); err == nil {
		t.Fatalf("expected major-version mismatch to be rejected")
	}
	if err := CheckSchemaVersion("1.0.0"); err != nil {
		t.Fatalf("same major and minor version should be accepted: %v", err)
	}
}
