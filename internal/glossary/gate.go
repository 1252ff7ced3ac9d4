package glossary

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrAlreadyResolved is returned when a gate is resolved a second time.
// Extraction metadata is consumed exactly once per run.
var ErrAlreadyResolved = errors.New("glossary gate already resolved")

// WaitFunc is invoked when the gate suspends waiting for confirmation, and
// again with nil metadata when the wait ends on any path. UI layers use it to
// show and deterministically clear a "waiting for confirmation" state.
type WaitFunc func(meta *ExtractionMetadata)

// Gate is the blocking rendezvous between the pipeline and whoever approves
// extracted terminology. Exactly one of three paths resolves it:
//
//   - nothing to confirm: zero terms and no failures resolve immediately;
//   - auto-confirm: clean extractions merge without blocking;
//   - manual: Resolve suspends until Confirm supplies a term list or the
//     run's context is cancelled.
type Gate struct {
	autoConfirm bool
	onWait      WaitFunc

	mu        sync.Mutex
	waiting   bool
	resolved  bool
	confirmCh chan []Item
}

// NewGate builds a gate. onWait may be nil.
func NewGate(autoConfirm bool, onWait WaitFunc) *Gate {
	return &Gate{autoConfirm: autoConfirm, onWait: onWait}
}

// Waiting reports whether the gate is suspended on manual confirmation.
func (g *Gate) Waiting() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.waiting
}

// Resolve consumes the extraction metadata and returns the glossary all
// subsequent stages use. On cancellation while suspended it clears the
// waiting state before returning ctx.Err(); no waiter is ever left dangling.
func (g *Gate) Resolve(ctx context.Context, active []Item, meta ExtractionMetadata) ([]Item, error) {
	g.mu.Lock()
	if g.resolved {
		g.mu.Unlock()
		return nil, ErrAlreadyResolved
	}
	g.resolved = true

	// Nothing to confirm: keep the existing glossary.
	if meta.TotalTerms == 0 && !meta.HasFailures {
		g.mu.Unlock()
		return active, nil
	}

	if g.autoConfirm && !meta.HasFailures {
		g.mu.Unlock()
		return MergeItems(active, meta.Terms()), nil
	}

	confirmCh := make(chan []Item, 1)
	g.confirmCh = confirmCh
	g.waiting = true
	g.mu.Unlock()

	if g.onWait != nil {
		g.onWait(&meta)
	}

	defer func() {
		g.mu.Lock()
		g.waiting = false
		g.confirmCh = nil
		g.mu.Unlock()
		if g.onWait != nil {
			g.onWait(nil)
		}
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case confirmed := <-confirmCh:
		return confirmed, nil
	}
}

// Confirm delivers the approved term list to a suspended Resolve call. The
// resolved array becomes the run's glossary verbatim.
func (g *Gate) Confirm(items []Item) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.waiting || g.confirmCh == nil {
		return fmt.Errorf("glossary gate is not waiting for confirmation")
	}
	g.confirmCh <- items
	g.waiting = false
	g.confirmCh = nil
	return nil
}
