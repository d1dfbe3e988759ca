package scheduler

import (
	"context"
	"time"

	"github.com/guidellm/guidellm-go/internal/backend"
	"github.com/guidellm/guidellm-go/internal/clock"
	"github.com/guidellm/guidellm-go/internal/logging"
	"github.com/guidellm/guidellm-go/internal/ratestrategy"
	"github.com/guidellm/guidellm-go/internal/record"
	"github.com/guidellm/guidellm-go/internal/source"
	"github.com/guidellm/guidellm-go/internal/workerpool"
)

// Sink consumes completed records. The aggregator is the production
// implementation. The scheduler delivers worker completions from one
// consumer goroutine; a record the pool never accepted is handed over
// directly by the dispatch loop, so Add must be safe for concurrent use.
type Sink interface {
	Add(r *record.Record)
}

// Unlimited disables the request-count cap. A MaxRequests of zero is a
// real cap: the run stops before dispatching anything and produces an
// empty report.
const Unlimited = -1

// Limits bounds one run: request/duration caps, warmup and cooldown
// windows (both wall-time and request-count bounds may be set; a
// zero-valued duration bound is never binding), and the drain deadline.
type Limits struct {
	// MaxRequests caps dispatches across all phases; Unlimited (or any
	// negative value) removes the cap.
	MaxRequests      int
	MaxDuration      time.Duration
	WarmupDuration   time.Duration
	WarmupRequests   int
	CooldownDuration time.Duration
	CooldownRequests int
	DrainTimeout     time.Duration
}

// StopReason records which termination condition ended the dispatch
// loop.
type StopReason string

const (
	StopMaxRequests     StopReason = "max_requests"
	StopMaxDuration     StopReason = "max_duration"
	StopSourceExhausted StopReason = "source_exhausted"
	StopCancelled       StopReason = "cancelled"
)

// Scheduler owns the dispatch loop for one run: the rate strategy, the
// worker pool, the in-flight accounting, and phase tagging. Construct a
// fresh Scheduler per run.
type Scheduler struct {
	clk      clock.Clock
	src      source.Source
	strategy ratestrategy.Strategy
	limits   Limits
	sink     Sink
	log      *logging.Logger

	poolCap        int
	adapter        backend.Adapter
	requestTimeout time.Duration

	state *State
}

// New builds a Scheduler. poolCap is the worker-pool parallelism cap,
// requestTimeout the per-request deadline (0 disables it).
func New(clk clock.Clock, src source.Source, strategy ratestrategy.Strategy, adapter backend.Adapter, sink Sink, limits Limits, poolCap int, requestTimeout time.Duration, log *logging.Logger) *Scheduler {
	return &Scheduler{
		clk:            clk,
		src:            src,
		strategy:       strategy,
		limits:         limits,
		sink:           sink,
		log:            log,
		poolCap:        poolCap,
		adapter:        adapter,
		requestTimeout: requestTimeout,
	}
}

// Snapshot exposes the run's live counters for progress reporting. Valid
// only while or after Run executes.
func (s *Scheduler) Snapshot() Snapshot {
	if s.state == nil {
		return Snapshot{CompletedByOutcome: map[record.Outcome]int{}}
	}
	return s.state.Snapshot()
}

// Run executes the dispatch loop until a termination condition is met,
// then drains. It returns the reason dispatch stopped. Every dispatched
// record reaches the sink with a terminal outcome before Run returns.
func (s *Scheduler) Run(ctx context.Context) (StopReason, error) {
	start := s.clk.Now()
	s.state = newState(start)

	// Workers get their own cancellable context so the drain deadline can
	// cut them off without racing the dispatch loop's ctx.
	workerCtx, cancelWorkers := context.WithCancel(context.Background())
	defer cancelWorkers()

	pool := workerpool.New(workerCtx, s.poolCap, s.adapter, s.clk, s.strategy, s.requestTimeout.Nanoseconds())

	consumerDone := make(chan struct{})
	go func() {
		defer close(consumerDone)
		for rec := range pool.Completions() {
			s.state.recordCompletion(rec.Phase, rec.Outcome)
			s.sink.Add(rec)
		}
	}()

	reason := s.dispatchLoop(ctx, start, pool)

	// Run-level cancellation propagates to every in-flight worker at
	// once; other stop reasons let outstanding requests finish within the
	// drain window.
	if reason == StopCancelled {
		cancelWorkers()
	}
	s.drain(cancelWorkers)
	pool.Close()
	<-consumerDone

	if reason == StopCancelled {
		return reason, ctx.Err()
	}
	return reason, nil
}

func (s *Scheduler) dispatchLoop(ctx context.Context, start int64, pool *workerpool.Pool) StopReason {
	deadline := int64(0)
	if s.limits.MaxDuration > 0 {
		deadline = start + s.limits.MaxDuration.Nanoseconds()
	}

	seq := 0
	for {
		if ctx.Err() != nil {
			return StopCancelled
		}
		if s.limits.MaxRequests >= 0 && seq >= s.limits.MaxRequests {
			return StopMaxRequests
		}
		now := s.clk.Now()
		if deadline > 0 && now >= deadline {
			return StopMaxDuration
		}

		d := s.strategy.Next(now)
		switch {
		case d.Blocked:
			if reason, ok := s.waitForSlot(ctx, deadline); !ok {
				return reason
			}
			continue
		case d.Immediate:
		default:
			if d.At > now {
				wakeAt := d.At
				if deadline > 0 && deadline < wakeAt {
					wakeAt = deadline
				}
				if err := s.clk.SleepUntil(ctx, wakeAt); err != nil {
					return StopCancelled
				}
				continue
			}
			// Past-due scheduled time: dispatch immediately, one ticket per
			// loop iteration, never batched, keeping At as the target.
		}

		payload, ok := s.src.Next()
		if !ok {
			return StopSourceExhausted
		}

		dispatchTime := s.clk.Now()
		targeted := dispatchTime
		if !d.Immediate {
			targeted = d.At
		}

		ticket := record.Ticket{
			Payload:              payload,
			TargetedDispatchTime: targeted,
			SequenceIndex:        seq,
			Phase:                s.phase(dispatchTime-start, seq, deadline-start),
		}
		rec := record.NewRecord(ticket)

		s.state.recordDispatch(ticket.Phase, dispatchTime)
		if !pool.Submit(ctx, workerpool.Job{Ticket: ticket, Rec: rec}) {
			// Never handed to a worker; the scheduler still owes the sink a
			// terminal record.
			rec.Times.ActualDispatch = s.clk.Now()
			rec.Times.Completion = rec.Times.ActualDispatch
			rec.Outcome = record.OutcomeCancelled
			rec.Error = &record.ErrorDetail{Kind: record.ErrorCancelled, Message: "run cancelled before dispatch"}
			s.state.recordCompletion(rec.Phase, rec.Outcome)
			s.sink.Add(rec)
			return StopCancelled
		}
		s.strategy.Confirm(dispatchTime)
		seq++
	}
}

// waitForSlot blocks until the strategy releases a slot, the duration
// deadline passes, or ctx is cancelled. ok=false means the loop should
// stop with the returned reason.
func (s *Scheduler) waitForSlot(ctx context.Context, deadline int64) (StopReason, bool) {
	signal := s.strategy.CompletionSignal()
	if signal == nil {
		return "", true
	}
	// Re-check after capturing the signal channel: a completion landing
	// between the Blocked decision and the capture has already closed and
	// replaced the previous channel, and no further completion may ever
	// arrive to close this one.
	if d := s.strategy.Next(s.clk.Now()); !d.Blocked {
		return "", true
	}

	var timeout <-chan time.Time
	if deadline > 0 {
		remaining := time.Duration(deadline - s.clk.Now())
		if remaining <= 0 {
			return StopMaxDuration, false
		}
		t := time.NewTimer(remaining)
		defer t.Stop()
		timeout = t.C
	}

	select {
	case <-ctx.Done():
		return StopCancelled, false
	case <-timeout:
		return StopMaxDuration, false
	case <-signal:
		return "", true
	}
}

// phase tags a ticket as warmup, cooldown, or measured. elapsed is time
// since run start, seq the ticket's sequence index, and totalDuration the
// run's duration budget (negative when unlimited).
func (s *Scheduler) phase(elapsed int64, seq int, totalDuration int64) record.Phase {
	if s.limits.WarmupDuration > 0 && elapsed < s.limits.WarmupDuration.Nanoseconds() {
		return record.PhaseWarmup
	}
	if s.limits.WarmupRequests > 0 && seq < s.limits.WarmupRequests {
		return record.PhaseWarmup
	}
	if s.limits.CooldownDuration > 0 && totalDuration > 0 &&
		elapsed >= totalDuration-s.limits.CooldownDuration.Nanoseconds() {
		return record.PhaseCooldown
	}
	if s.limits.CooldownRequests > 0 && s.limits.MaxRequests > 0 &&
		seq >= s.limits.MaxRequests-s.limits.CooldownRequests {
		return record.PhaseCooldown
	}
	return record.PhaseMeasured
}

// drain waits up to DrainTimeout for in-flight requests to finish, then
// cancels whatever is left. Cancelled stragglers still flow through the
// pool's completion path, so the sink sees a terminal outcome for every
// dispatched record.
func (s *Scheduler) drain(cancelWorkers context.CancelFunc) {
	timeout := s.limits.DrainTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()

	tick := time.NewTicker(5 * time.Millisecond)
	defer tick.Stop()

	for {
		if s.state.inFlightCount() == 0 {
			return
		}
		select {
		case <-deadline.C:
			if s.log != nil {
				s.log.Warn("drain timeout reached with %d requests in flight, cancelling", s.state.inFlightCount())
			}
			cancelWorkers()
			// Cancelled workers still deliver their records; wait for the
			// table to empty.
			for s.state.inFlightCount() > 0 {
				<-tick.C
			}
			return
		case <-tick.C:
		}
	}
}
