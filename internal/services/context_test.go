package services_test

import (
	"context"
	"testing"

	"chatpipe/internal/services"
)

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithRunID(ctx, "2025-08-03-chat")
	ctx = services.WithStep(ctx, "M3_audio")
	ctx = services.WithMessageIdx(ctx, 42)

	if id, ok := services.RunIDFromContext(ctx); !ok || id != "2025-08-03-chat" {
		t.Fatalf("unexpected run id: %v %v", id, ok)
	}
	if step, ok := services.StepFromContext(ctx); !ok || step != "M3_audio" {
		t.Fatalf("unexpected step: %v %v", step, ok)
	}
	if idx, ok := services.MessageIdxFromContext(ctx); !ok || idx != 42 {
		t.Fatalf("unexpected idx: %v %v", idx, ok)
	}
}

func TestStepBlankPreservesContext(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithStep(ctx, "")
	if _, ok := services.StepFromContext(ctx); ok {
		t.Fatal("expected no step value")
	}
}
