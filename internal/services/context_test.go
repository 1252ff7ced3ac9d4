package services_test

import (
	"context"
	"testing"

	"miosub/internal/services"
)

func TestContextRoundTrips(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithRunID(ctx, "run-1")
	ctx = services.WithChunk(ctx, 4)
	ctx = services.WithStage(ctx, "transcribe")

	if id, ok := services.RunIDFromContext(ctx); !ok || id != "run-1" {
		t.Fatalf("run id = %q, ok=%v", id, ok)
	}
	if idx, ok := services.ChunkFromContext(ctx); !ok || idx != 4 {
		t.Fatalf("chunk = %d, ok=%v", idx, ok)
	}
	if stage, ok := services.StageFromContext(ctx); !ok || stage != "transcribe" {
		t.Fatalf("stage = %q, ok=%v", stage, ok)
	}
}

func TestContextMissingValues(t *testing.T) {
	ctx := context.Background()
	if _, ok := services.RunIDFromContext(ctx); ok {
		t.Fatal("unexpected run id")
	}
	if _, ok := services.ChunkFromContext(ctx); ok {
		t.Fatal("unexpected chunk")
	}
	if _, ok := services.StageFromContext(ctx); ok {
		t.Fatal("unexpected stage")
	}
}
