// Package resolver implements the media resolver (M2): for each
// image/video/voice/document message it locates the on-disk file the chat
// export's placeholder line refers to, using a filename fast path first and
// a weighted scoring ladder otherwise, over same-type candidates from the
// message's chat day or within the clock-drift window around it.
// Close scores are left for operator review rather than guessed at.
package resolver

// Weights are the scoring ladder's per-component weights (spec §4.1
// "Candidate ranking").
type Weights struct {
	Hint  float64
	Ext   float64
	Seq   float64
	Mtime float64
}

// Config mirrors the resolved [resolver] configuration surface.
type Config struct {
	Weights           Weights
	Tau               float64
	TieMargin         float64
	ClockDriftHours   float64
	HintWindow        int
	AllowedExtensions []string
	ExtPriority       []string
}
