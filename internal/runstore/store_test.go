package runstore

import (
	"context"
	"errors"
	"testing"

	"miosub/internal/config"
	"miosub/internal/glossary"
	"miosub/internal/pipeline"
	"miosub/internal/subtitle"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	cfg := config.Default()
	dir := t.TempDir()
	cfg.Paths.WorkDir = dir
	cfg.Paths.LogDir = dir
	cfg.Paths.CacheDir = dir

	store, err := Open(&cfg)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestRunRoundTrip(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	if err := store.RecordStart(ctx, "run-1", "/media/episode.mkv", 4); err != nil {
		t.Fatalf("RecordStart failed: %v", err)
	}
	if err := store.RecordStatus(ctx, "run-1", pipeline.StatusProcessing, 2, 4, "processing chunks"); err != nil {
		t.Fatalf("RecordStatus failed: %v", err)
	}

	result := &pipeline.Result{
		RunID:           "run-1",
		Status:          pipeline.StatusCompleted,
		ChunksTotal:     4,
		ChunksCompleted: 4,
		Segments: []subtitle.Segment{
			{ID: 1, Start: 1, End: 3, Original: "hello", Translated: "bonjour"},
		},
		Glossary: []glossary.Item{{Term: "Mio", Translation: "Mio"}},
	}
	if err := store.RecordResult(ctx, "run-1", result); err != nil {
		t.Fatalf("RecordResult failed: %v", err)
	}

	run, err := store.Get(ctx, "run-1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if run.Status != pipeline.StatusCompleted {
		t.Fatalf("expected completed, got %s", run.Status)
	}
	if run.ChunksCompleted != 4 || run.ChunksTotal != 4 {
		t.Fatalf("chunk counters wrong: %d/%d", run.ChunksCompleted, run.ChunksTotal)
	}
	if len(run.Segments) != 1 || run.Segments[0].Translated != "bonjour" {
		t.Fatalf("segments did not round-trip: %+v", run.Segments)
	}
	if len(run.Glossary) != 1 || run.Glossary[0].Term != "Mio" {
		t.Fatalf("glossary did not round-trip: %+v", run.Glossary)
	}
	if run.MediaPath != "/media/episode.mkv" {
		t.Fatalf("media path wrong: %s", run.MediaPath)
	}
}

func TestGetMissingRun(t *testing.T) {
	store := testStore(t)
	if _, err := store.Get(context.Background(), "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListNewestFirst(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	for _, id := range []string{"run-a", "run-b", "run-c"} {
		if err := store.RecordStart(ctx, id, "/media/x.mkv", 1); err != nil {
			t.Fatalf("RecordStart(%s) failed: %v", id, err)
		}
	}

	runs, err := store.List(ctx, 2)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(runs))
	}

	all, err := store.List(ctx, 0)
	if err != nil {
		t.Fatalf("List all failed: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 runs, got %d", len(all))
	}
}

func TestCancelledRunKeepsPartialSegments(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	if err := store.RecordStart(ctx, "run-1", "/media/episode.mkv", 5); err != nil {
		t.Fatal(err)
	}
	result := &pipeline.Result{
		RunID:           "run-1",
		Status:          pipeline.StatusCancelled,
		ChunksTotal:     5,
		ChunksCompleted: 3,
		Segments: []subtitle.Segment{
			{ID: 1, Start: 1, End: 2, Original: "partial"},
		},
	}
	if err := store.RecordResult(ctx, "run-1", result); err != nil {
		t.Fatal(err)
	}

	run, err := store.Get(ctx, "run-1")
	if err != nil {
		t.Fatal(err)
	}
	if run.Status != pipeline.StatusCancelled {
		t.Fatalf("expected cancelled, got %s", run.Status)
	}
	if len(run.Segments) != 1 {
		t.Fatal("partial segments were not persisted")
	}
}

func TestClear(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	for _, id := range []string{"run-a", "run-b"} {
		if err := store.RecordStart(ctx, id, "/media/x.mkv", 1); err != nil {
			t.Fatal(err)
		}
	}
	removed, err := store.Clear(ctx)
	if err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	if removed != 2 {
		t.Fatalf("expected 2 removed, got %d", removed)
	}
}
