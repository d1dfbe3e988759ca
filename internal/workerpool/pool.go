// Package workerpool runs a fixed-parallelism set of executors that
// pull dispatch tickets from the scheduler and drive the backend adapter
// for each, streaming timing events into the ticket's record and
// enforcing the per-request deadline.
package workerpool

import (
	"context"
	"sync"
	"time"

	"github.com/guidellm/guidellm-go/internal/backend"
	"github.com/guidellm/guidellm-go/internal/clock"
	"github.com/guidellm/guidellm-go/internal/ratestrategy"
	"github.com/guidellm/guidellm-go/internal/record"
)

// Job pairs a dispatch ticket with the RequestRecord the Scheduler
// created for it; the worker that accepts a Job owns that Record
// exclusively until it completes.
type Job struct {
	Ticket record.Ticket
	Rec    *record.Record
}

// Pool is a fixed-size set of parallel executors. Submit blocks (the
// engine's only backpressure path) until a worker is free to accept the
// job; exactly capacity workers receive from a single unbuffered
// channel, so a send only proceeds once some worker is idle and
// listening.
type Pool struct {
	capacity       int
	jobs           chan Job
	completions    chan *record.Record
	adapter        backend.Adapter
	clock          clock.Clock
	strategy       ratestrategy.Strategy
	requestTimeout int64 // nanoseconds; 0 means no per-request deadline

	runCtx context.Context

	wg sync.WaitGroup
}

// New builds a Pool of capacity parallel workers driving adapter,
// stamping from clck, releasing rate-strategy slots on every terminal
// event, and enforcing requestTimeout (targeted_dispatch +
// per_request_timeout) as a hard deadline per ticket. requestTimeout of
// 0 disables the deadline. runCtx is the run-level cancellation signal:
// cancelling it cancels every in-flight adapter call.
func New(runCtx context.Context, capacity int, adapter backend.Adapter, clck clock.Clock, strategy ratestrategy.Strategy, requestTimeout int64) *Pool {
	p := &Pool{
		capacity:       capacity,
		jobs:           make(chan Job),
		completions:    make(chan *record.Record, capacity),
		adapter:        adapter,
		clock:          clck,
		strategy:       strategy,
		requestTimeout: requestTimeout,
		runCtx:         runCtx,
	}
	for i := 0; i < capacity; i++ {
		p.wg.Add(1)
		go p.worker()
	}
	return p
}

// Completions is the channel completed records are delivered on, in the
// order workers finish them, not necessarily sequence order.
func (p *Pool) Completions() <-chan *record.Record {
	return p.completions
}

// Submit hands a job to the first free worker, blocking if the pool is
// at capacity. Returns false without submitting if ctx is cancelled
// first.
func (p *Pool) Submit(ctx context.Context, job Job) bool {
	select {
	case p.jobs <- job:
		return true
	case <-ctx.Done():
		return false
	}
}

// Close stops accepting new jobs and waits for in-flight workers to
// drain. Callers must ensure no further Submit calls occur after Close.
func (p *Pool) Close() {
	close(p.jobs)
	p.wg.Wait()
	close(p.completions)
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for job := range p.jobs {
		p.run(job)
	}
}

func (p *Pool) run(job Job) {
	rec := job.Rec
	ctx := p.runCtx

	deadline := int64(0)
	if p.requestTimeout > 0 {
		deadline = job.Ticket.TargetedDispatchTime + p.requestTimeout

		var cancel context.CancelFunc
		if remaining := time.Duration(deadline - p.clock.Now()); remaining > 0 {
			ctx, cancel = context.WithTimeout(ctx, remaining)
			defer cancel()
		}
	}

	rec.Times.ActualDispatch = p.clock.Now()

	events := p.adapter.Execute(ctx, job.Ticket.Payload, deadline)
	for ev := range events {
		p.apply(rec, ev)
	}

	// An adapter that only sees context cancellation cannot tell a
	// per-request deadline from a run-level cancel; the pool can.
	if rec.Outcome == record.OutcomeCancelled && deadline > 0 &&
		p.clock.Now() >= deadline && p.runCtx.Err() == nil {
		rec.Outcome = record.OutcomeTimeout
		if rec.Error != nil {
			rec.Error.Kind = record.ErrorTimeout
		}
	}

	if !rec.IsTerminal() {
		rec.Times.Completion = p.clock.Now()
		if p.runCtx.Err() != nil {
			rec.Error = &record.ErrorDetail{Kind: record.ErrorCancelled, Message: "run cancelled"}
			rec.Outcome = record.OutcomeCancelled
		} else {
			rec.Error = &record.ErrorDetail{Kind: record.ErrorTimeout, Message: "per-request deadline exceeded"}
			rec.Outcome = record.OutcomeTimeout
		}
	}

	p.strategy.OnCompletion(rec)
	p.completions <- rec
}

func (p *Pool) apply(rec *record.Record, ev backend.Event) {
	switch ev.Kind {
	case backend.EventFirstByte:
		if rec.Times.FirstResponseByte == 0 {
			rec.Times.FirstResponseByte = ev.Time
		}
	case backend.EventToken:
		if rec.Times.FirstToken == 0 {
			rec.Times.FirstToken = ev.Time
		}
		rec.Times.LastToken = ev.Time
		rec.TokenArrivals = append(rec.TokenArrivals, ev.Time)
		rec.OutputTokens += ev.TokenCountDelta
	case backend.EventDone:
		rec.Times.Completion = ev.Time
		if ev.PromptTokens > 0 {
			rec.PromptTokens = ev.PromptTokens
		}
		if ev.OutputTokens > 0 {
			rec.OutputTokens = ev.OutputTokens
		}
		rec.Outcome = record.OutcomeCompleted
	case backend.EventError:
		rec.Times.Completion = ev.Time
		rec.Error = &record.ErrorDetail{Kind: ev.ErrorKind, Message: errString(ev.Err)}
		if ev.ErrorKind == record.ErrorTimeout {
			rec.Outcome = record.OutcomeTimeout
		} else if ev.ErrorKind == record.ErrorCancelled {
			rec.Outcome = record.OutcomeCancelled
		} else {
			rec.Outcome = record.OutcomeError
		}
	}
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
