package ratestrategy

import "github.com/guidellm/guidellm-go/internal/record"

// Synchronous permits exactly one in-flight request at a time; the next
// dispatch is released by OnCompletion. Measures best-case per-request
// latency.
type Synchronous struct {
	budget *slotBudget
}

func NewSynchronous() *Synchronous {
	return &Synchronous{budget: newSlotBudget(1)}
}

func (s *Synchronous) Name() string { return "synchronous" }

func (s *Synchronous) Next(now int64) Decision { return s.budget.next(now) }

func (s *Synchronous) Confirm(dispatchTime int64) { s.budget.confirm() }

func (s *Synchronous) OnCompletion(r *record.Record) { s.budget.onCompletion() }

func (s *Synchronous) CompletionSignal() <-chan struct{} { return s.budget.completionSignal() }
