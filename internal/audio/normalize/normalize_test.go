package normalize

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"chatpipe/internal/services"
)

func TestNormalizeSucceedsOnFirstAttempt(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "out.wav")
	calls := 0
	runner := func(_ context.Context, _ string, _ []string) (string, error) {
		calls++
		return "", os.WriteFile(out, []byte("wav-bytes"), 0o644)
	}

	result, err := Normalize(context.Background(), runner, "in.ogg", out, Options{MaxRetries: 2})
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if result.OutputPath != out {
		t.Fatalf("unexpected output path: %q", result.OutputPath)
	}
	if calls != 1 {
		t.Fatalf("expected a single attempt, got %d", calls)
	}
}

func TestNormalizeRetriesThenSucceeds(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "out.wav")
	calls := 0
	runner := func(_ context.Context, _ string, _ []string) (string, error) {
		calls++
		if calls == 1 {
			return "bad codec", errors.New("exit status 1")
		}
		return "", os.WriteFile(out, []byte("wav-bytes"), 0o644)
	}

	_, err := Normalize(context.Background(), runner, "in.ogg", out, Options{MaxRetries: 2})
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected two attempts, got %d", calls)
	}
}

func TestNormalizeFailsAfterExhaustingRetries(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "out.wav")
	runner := func(_ context.Context, _ string, _ []string) (string, error) {
		return "permission denied", errors.New("exit status 1")
	}

	_, err := Normalize(context.Background(), runner, "in.ogg", out, Options{MaxRetries: 1})
	if err == nil {
		t.Fatal("expected error after exhausting retries")
	}
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected ErrExternalTool marker, got %v", err)
	}
}

func TestNormalizeClassifiesTimeoutDistinctly(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "out.wav")
	runner := func(ctx context.Context, _ string, _ []string) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	}

	_, err := Normalize(context.Background(), runner, "in.ogg", out, Options{MaxRetries: 2, Timeout: 10 * time.Millisecond})
	if err == nil {
		t.Fatal("expected timeout error")
	}
	if !errors.Is(err, services.ErrTimeout) {
		t.Fatalf("expected ErrTimeout marker, got %v", err)
	}
}
