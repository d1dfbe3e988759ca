package ratestrategy

import "github.com/guidellm/guidellm-go/internal/record"

// Constant schedules dispatch k at t0 + k/r. It does not
// adjust for overrun: if the loop falls behind, successive calls to Next
// report Immediate back-to-back until the schedule is caught up, exactly
// as the spec requires — the scheduler, not this strategy, decides how
// many of those immediate slots the worker pool can actually accept.
type Constant struct {
	rate float64 // requests per second

	started bool
	t0      int64
	k       int64
}

func NewConstant(rate float64) *Constant {
	return &Constant{rate: rate}
}

func (c *Constant) Name() string { return "constant" }

func (c *Constant) Next(now int64) Decision {
	if !c.started {
		c.started = true
		c.t0 = now
	}
	// Always report the scheduled time, even when it is already past:
	// the scheduler dispatches overdue slots immediately but records the
	// schedule, not the delay, as targeted_dispatch.
	return Decision{At: c.t0 + int64(float64(c.k)/c.rate*1e9)}
}

func (c *Constant) Confirm(dispatchTime int64) {
	c.k++
}

func (c *Constant) OnCompletion(r *record.Record) {}

func (c *Constant) CompletionSignal() <-chan struct{} { return nil }
