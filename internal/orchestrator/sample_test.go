package orchestrator

import (
	"testing"

	"chatpipe/internal/message"
)

func textMessages(n int) []*message.Message {
	msgs := make([]*message.Message, n)
	for i := 0; i < n; i++ {
		msgs[i] = message.New(i, "2024-01-15T09:00:00", "Alice", message.KindText)
	}
	return msgs
}

func TestApplySamplingReindexesMessages(t *testing.T) {
	msgs := textMessages(10)
	sampled := applySampling(msgs, 3, 0)
	if len(sampled) != 4 {
		t.Fatalf("expected 4 messages (every 3rd of 10), got %d", len(sampled))
	}
	for i, m := range sampled {
		if m.Idx != i {
			t.Fatalf("message %d: idx = %d, want dense reindex", i, m.Idx)
		}
	}
}

func TestApplySamplingLimitTruncatesAfterStride(t *testing.T) {
	msgs := textMessages(20)
	sampled := applySampling(msgs, 2, 3)
	if len(sampled) != 3 {
		t.Fatalf("expected sample_limit=3 to win, got %d", len(sampled))
	}
	if sampled[0].Idx != 0 || sampled[2].Idx != 2 {
		t.Fatalf("expected dense reindex 0..2, got %d..%d", sampled[0].Idx, sampled[2].Idx)
	}
}

func TestApplySamplingNoOpWhenUnset(t *testing.T) {
	msgs := textMessages(5)
	sampled := applySampling(msgs, 0, 0)
	if len(sampled) != 5 {
		t.Fatalf("expected no-op sampling to keep all 5 messages, got %d", len(sampled))
	}
}
