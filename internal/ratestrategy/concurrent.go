package ratestrategy

import "github.com/guidellm/guidellm-go/internal/record"

// Concurrent keeps exactly N requests in-flight: on each completion it
// releases exactly one slot.
type Concurrent struct {
	n      int
	budget *slotBudget
}

func NewConcurrent(n int) *Concurrent {
	return &Concurrent{n: n, budget: newSlotBudget(n)}
}

func (c *Concurrent) Name() string { return "concurrent" }

func (c *Concurrent) N() int { return c.n }

func (c *Concurrent) Next(now int64) Decision { return c.budget.next(now) }

func (c *Concurrent) Confirm(dispatchTime int64) { c.budget.confirm() }

func (c *Concurrent) OnCompletion(r *record.Record) { c.budget.onCompletion() }

func (c *Concurrent) CompletionSignal() <-chan struct{} { return c.budget.completionSignal() }
