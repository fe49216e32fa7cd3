package orchestrator

import "chatpipe/internal/message"

// applySampling reduces a parsed message set to a subset before M2, for
// smoke-testing large archives (supplemented feature, grounded on
// original_source's `_apply_sampling`): sampleEvery keeps every Nth message,
// sampleLimit then caps the result length. Either value of zero is a no-op.
// The kept subset is always re-indexed to a dense 0-based idx, since every
// downstream stage assumes that invariant.
func applySampling(msgs []*message.Message, sampleEvery, sampleLimit int) []*message.Message {
	sampled := msgs
	if sampleEvery > 1 {
		reduced := make([]*message.Message, 0, (len(msgs)+sampleEvery-1)/sampleEvery)
		for i := 0; i < len(msgs); i += sampleEvery {
			reduced = append(reduced, msgs[i])
		}
		sampled = reduced
	}
	if sampleLimit > 0 && len(sampled) > sampleLimit {
		sampled = sampled[:sampleLimit]
	}
	for i, m := range sampled {
		m.Idx = i
	}
	return sampled
}
