package asr

import (
	"context"
	"errors"
	"testing"
	"time"
)

type fakeClient struct {
	calls   int
	results []Response
	errs    []error
}

func (f *fakeClient) Provider() string { return "fake" }
func (f *fakeClient) Model() string    { return "fake-model" }

func (f *fakeClient) TranscribeChunk(_ context.Context, _ Request) (Response, error) {
	i := f.calls
	f.calls++
	if i < len(f.errs) && f.errs[i] != nil {
		return Response{}, f.errs[i]
	}
	return f.results[i], nil
}

func TestTranscribeWithRetryRetriesOnTimeoutThenSucceeds(t *testing.T) {
	client := &fakeClient{
		errs:    []error{NewError(ErrorKindTimeout, "transcribe_chunk", errors.New("deadline"))},
		results: []Response{{}, {Text: "hello"}},
	}
	var slept []time.Duration
	opts := RetryOptions{MaxRetries: 2, Sleeper: func(d time.Duration) { slept = append(slept, d) }}

	resp, err := TranscribeWithRetry(context.Background(), client, Request{}, opts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Text != "hello" {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if len(slept) != 1 {
		t.Fatalf("expected one retry sleep, got %d", len(slept))
	}
}

func TestTranscribeWithRetryDoesNotRetryAuthErrors(t *testing.T) {
	client := &fakeClient{
		errs:    []error{NewError(ErrorKindAuth, "transcribe_chunk", errors.New("bad key"))},
		results: []Response{{}},
	}
	_, err := TranscribeWithRetry(context.Background(), client, Request{}, RetryOptions{MaxRetries: 3})
	if err == nil {
		t.Fatal("expected error")
	}
	if client.calls != 1 {
		t.Fatalf("expected no retries for auth error, got %d calls", client.calls)
	}
}

func TestClassifyErrorHeuristics(t *testing.T) {
	cases := map[string]ErrorKind{
		"request timed out":        ErrorKindTimeout,
		"401 unauthorized":         ErrorKindAuth,
		"429 rate limit exceeded":  ErrorKindQuota,
		"400 bad request":         ErrorKindClient,
		"500 internal server error": ErrorKindServer,
		"something unexpected":    ErrorKindUnknown,
	}
	for msg, want := range cases {
		if got := ClassifyError(errors.New(msg)); got != want {
			t.Fatalf("ClassifyError(%q) = %q, want %q", msg, got, want)
		}
	}
}

func TestEstimateCostRoundsUpToIncrement(t *testing.T) {
	cost := EstimateCost(61, "whisperapi", "default", "per_minute")
	// 61s rounds up to 120s billed (2 increments of 60s) at 0.006/min.
	want := 0.012
	if cost != want {
		t.Fatalf("EstimateCost = %v, want %v", cost, want)
	}
}

func TestEstimateCostUnknownProviderFallsBackToDefaultRate(t *testing.T) {
	cost := EstimateCost(60, "unknown-provider", "", "")
	if cost != 0.006 {
		t.Fatalf("EstimateCost = %v, want 0.006", cost)
	}
}
