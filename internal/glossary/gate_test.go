package glossary

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func sampleMetadata() ExtractionMetadata {
	return NewMetadata([]ChunkResult{
		{ChunkIndex: 0, Terms: []Item{{Term: "Kessoku Band", Translation: "結束バンド"}}},
		{ChunkIndex: 1, Terms: []Item{{Term: "STARRY", Translation: "STARRY"}}},
	})
}

func TestResolveImmediateWhenNothingToConfirm(t *testing.T) {
	gate := NewGate(false, nil)
	active := []Item{{Term: "existing", Translation: "既存"}}

	got, err := gate.Resolve(context.Background(), active, NewMetadata(nil))
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(got) != 1 || got[0].Term != "existing" {
		t.Fatalf("expected active glossary back, got %+v", got)
	}
	if gate.Waiting() {
		t.Fatal("gate must not be waiting")
	}
}

func TestResolveAutoConfirmMerges(t *testing.T) {
	gate := NewGate(true, nil)
	active := []Item{{Term: "existing", Translation: "既存"}}

	got, err := gate.Resolve(context.Background(), active, sampleMetadata())
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected merged glossary of 3, got %+v", got)
	}
}

func TestResolveAutoConfirmBlockedByFailures(t *testing.T) {
	meta := NewMetadata([]ChunkResult{
		{ChunkIndex: 0, Terms: []Item{{Term: "a", Translation: "b"}}},
		{ChunkIndex: 1, Error: "model timeout"},
	})
	if !meta.HasFailures {
		t.Fatal("expected failures")
	}

	gate := NewGate(true, nil)
	done := make(chan struct{})
	var got []Item
	var resolveErr error
	go func() {
		got, resolveErr = gate.Resolve(context.Background(), nil, meta)
		close(done)
	}()

	waitForWaiting(t, gate)
	confirmed := []Item{{Term: "a", Translation: "fixed"}}
	if err := gate.Confirm(confirmed); err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	<-done
	if resolveErr != nil {
		t.Fatalf("Resolve: %v", resolveErr)
	}
	if len(got) != 1 || got[0].Translation != "fixed" {
		t.Fatalf("expected confirmed list verbatim, got %+v", got)
	}
}

func TestResolveManualConfirmation(t *testing.T) {
	var mu sync.Mutex
	var waitEvents []*ExtractionMetadata
	gate := NewGate(false, func(meta *ExtractionMetadata) {
		mu.Lock()
		waitEvents = append(waitEvents, meta)
		mu.Unlock()
	})

	done := make(chan struct{})
	var got []Item
	go func() {
		got, _ = gate.Resolve(context.Background(), nil, sampleMetadata())
		close(done)
	}()

	waitForWaiting(t, gate)
	if err := gate.Confirm([]Item{{Term: "only", Translation: "唯一"}}); err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	<-done

	if len(got) != 1 || got[0].Term != "only" {
		t.Fatalf("unexpected glossary: %+v", got)
	}
	mu.Lock()
	defer mu.Unlock()
	if len(waitEvents) != 2 || waitEvents[0] == nil || waitEvents[1] != nil {
		t.Fatalf("expected wait begin/end events, got %v", waitEvents)
	}
	if gate.Waiting() {
		t.Fatal("waiting state must be cleared")
	}
}

func TestResolveCancellationUnwindsWaitingState(t *testing.T) {
	cleared := make(chan struct{})
	gate := NewGate(false, func(meta *ExtractionMetadata) {
		if meta == nil {
			close(cleared)
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := gate.Resolve(ctx, nil, sampleMetadata())
		done <- err
	}()

	waitForWaiting(t, gate)
	cancel()

	err := <-done
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	select {
	case <-cleared:
	case <-time.After(2 * time.Second):
		t.Fatal("waiting state never cleared after cancellation")
	}
	if gate.Waiting() {
		t.Fatal("gate still waiting after cancellation")
	}
}

func TestResolveConsumedExactlyOnce(t *testing.T) {
	gate := NewGate(true, nil)
	if _, err := gate.Resolve(context.Background(), nil, NewMetadata(nil)); err != nil {
		t.Fatalf("first Resolve: %v", err)
	}
	if _, err := gate.Resolve(context.Background(), nil, NewMetadata(nil)); !errors.Is(err, ErrAlreadyResolved) {
		t.Fatalf("expected ErrAlreadyResolved, got %v", err)
	}
}

func TestConfirmWithoutWaiter(t *testing.T) {
	gate := NewGate(false, nil)
	if err := gate.Confirm(nil); err == nil {
		t.Fatal("expected error when nothing is waiting")
	}
}

func waitForWaiting(t *testing.T, gate *Gate) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if gate.Waiting() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("gate never entered waiting state")
}
