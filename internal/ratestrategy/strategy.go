// Package ratestrategy implements the dispatch-rate policies consulted
// by the scheduler's loop to decide when (and, for some variants,
// whether) the next request may be dispatched. Adding a strategy means
// adding one file plus one switch arm in factory.go.
package ratestrategy

import (
	"sync"

	"github.com/guidellm/guidellm-go/internal/record"
)

// Decision is the result of consulting a Strategy for the next dispatch
// opportunity.
type Decision struct {
	// Immediate means dispatch now, no wait needed.
	Immediate bool
	// Blocked means no slot is available; the scheduler must wait for a
	// completion signal (see Strategy.CompletionSignal) before asking
	// again.
	Blocked bool
	// At is the scheduled monotonic-ns dispatch time, valid only when
	// neither Immediate nor Blocked is set. It may already be in the
	// past; the scheduler then dispatches at once, one ticket per loop
	// iteration, keeping At as the targeted dispatch time.
	At int64
}

// Strategy is the capability every rate strategy implements. Next and
// OnCompletion drive dispatch decisions; the scheduler-only Confirm hook
// advances dispatch-count-driven state (constant/poisson/concurrent)
// exactly once per actual dispatch, so repeated Next polls while the
// scheduler waits on pool capacity never perturb the schedule.
type Strategy interface {
	Name() string

	// Next is consulted once per dispatch-loop iteration. It must not
	// have observable side effects beyond strategy-private bookkeeping
	// that is safe to repeat if the scheduler polls again before
	// actually dispatching (concurrency-bounded strategies keep no such
	// bookkeeping in Next; only Confirm mutates their dispatch count).
	Next(now int64) Decision

	// Confirm is called by the scheduler exactly once, immediately after
	// a ticket built from this decision is actually handed to the worker
	// pool.
	Confirm(dispatchTime int64)

	// OnCompletion is called by a worker when a request this strategy
	// dispatched reaches a terminal outcome. Strategies that bound
	// concurrency (synchronous, concurrent) use it to release a slot.
	OnCompletion(r *record.Record)

	// CompletionSignal returns a channel the scheduler can select on
	// while Blocked; it is closed (and replaced) each time OnCompletion
	// releases a slot. Strategies that never block return nil.
	CompletionSignal() <-chan struct{}
}

// slotBudget is the shared concurrency-gating primitive for synchronous
// (N=1) and concurrent(N): available permits, decremented by Confirm,
// incremented by OnCompletion, with a wake channel the scheduler selects
// on while blocked. Next/Confirm are only ever called from the
// scheduler's single dispatch-loop goroutine, but OnCompletion runs on
// worker goroutines, so every access to the permit count takes the mutex.
type slotBudget struct {
	n int

	mu        sync.Mutex
	available int
	wake      chan struct{}
}

func newSlotBudget(n int) *slotBudget {
	return &slotBudget{n: n, available: n, wake: make(chan struct{})}
}

func (b *slotBudget) next(now int64) Decision {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.available > 0 {
		return Decision{Immediate: true}
	}
	return Decision{Blocked: true}
}

func (b *slotBudget) confirm() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.available > 0 {
		b.available--
	}
}

func (b *slotBudget) onCompletion() {
	b.mu.Lock()
	defer b.mu.Unlock()
	// A worker can finish before the scheduler's Confirm for the same
	// dispatch runs, so available may briefly exceed n; the pending
	// Confirm brings it back. Clamping here would lose the release.
	b.available++
	close(b.wake)
	b.wake = make(chan struct{})
}

func (b *slotBudget) completionSignal() <-chan struct{} {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.wake
}
