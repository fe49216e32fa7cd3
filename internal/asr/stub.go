package asr

import (
	"context"
	"fmt"
)

// StubClient is a deterministic offline backend used for development runs
// and tests where no live ASR credential is configured. It never fails and
// returns placeholder text derived from the chunk's time range, so
// downstream assembly and cache-key logic can be exercised without network
// access.
type StubClient struct {
	model string
}

// NewStubClient constructs a stub backend for the given model label.
func NewStubClient(model string) *StubClient {
	if model == "" {
		model = "stub-1"
	}
	return &StubClient{model: model}
}

func (c *StubClient) Provider() string { return "stub" }
func (c *StubClient) Model() string    { return c.model }

// TranscribeChunk returns a placeholder transcript in place of a network
// call.
func (c *StubClient) TranscribeChunk(_ context.Context, req Request) (Response, error) {
	lang := req.LanguageHint
	if lang == "" {
		lang = "und"
	}
	return Response{
		Text:     fmt.Sprintf("[stub transcript %.3f-%.3f]", req.StartSec, req.EndSec),
		Language: lang,
		Meta:     map[string]any{"backend": "stub"},
	}, nil
}
