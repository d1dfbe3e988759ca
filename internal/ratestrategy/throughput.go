package ratestrategy

import "github.com/guidellm/guidellm-go/internal/record"

// Throughput dispatches as fast as the source and worker pool allow:
// next_dispatch_time is always immediate; concurrency is bounded only by
// the worker pool's cap, not by this strategy.
type Throughput struct{}

func NewThroughput() *Throughput { return &Throughput{} }

func (t *Throughput) Name() string { return "throughput" }

func (t *Throughput) Next(now int64) Decision { return Decision{Immediate: true} }

func (t *Throughput) Confirm(dispatchTime int64) {}

func (t *Throughput) OnCompletion(r *record.Record) {}

func (t *Throughput) CompletionSignal() <-chan struct{} { return nil }
