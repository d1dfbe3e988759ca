// Package aggregator consumes completed request records and maintains
// running statistics: counts by phase and outcome, streaming min/max/
// mean/stddev, and bounded-memory percentile estimates for latency,
// time-to-first-token, and inter-token latency. Warmup and cooldown
// records are counted but excluded from statistics.
package aggregator

import (
	"sync"

	"github.com/guidellm/guidellm-go/internal/record"
)

// Aggregator is the single consumer of completed records for one run.
// Add is normally called from the scheduler's one consumer goroutine,
// but the dispatch loop also calls it directly for a record the worker
// pool never accepted, and Snapshot may be called concurrently for
// progress reporting, hence the mutex.
type Aggregator struct {
	mu sync.Mutex

	sampleLimit int
	retainAll   bool

	dispatchedByPhase map[record.Phase]int
	measuredByOutcome map[record.Outcome]int
	errorsByKind      map[record.ErrorKind]int
	measuredCompleted int
	totalOutputTokens int64

	latency *estimator
	ttft    *estimator
	itl     *estimator

	// Measured-phase wall window.
	windowStart int64 // earliest measured actual_dispatch
	windowEnd   int64 // latest measured completion

	kept []*record.Record
}

// New builds an Aggregator. sampleLimit caps exact-quantile sample
// retention per metric; retainAll keeps warmup/cooldown records in the
// final report alongside the measured ones.
func New(sampleLimit int, retainAll bool) *Aggregator {
	return &Aggregator{
		sampleLimit:       sampleLimit,
		retainAll:         retainAll,
		dispatchedByPhase: make(map[record.Phase]int),
		measuredByOutcome: make(map[record.Outcome]int),
		errorsByKind:      make(map[record.ErrorKind]int),
		latency:           newEstimator(sampleLimit),
		ttft:              newEstimator(sampleLimit),
		itl:               newEstimator(sampleLimit),
	}
}

// Add ingests one terminal record. Ownership of r transfers to the
// aggregator; callers must not touch it afterwards.
func (a *Aggregator) Add(r *record.Record) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.dispatchedByPhase[r.Phase]++

	if r.Phase == record.PhaseMeasured || a.retainAll {
		a.kept = append(a.kept, r)
	}

	if r.Phase != record.PhaseMeasured {
		return
	}

	a.measuredByOutcome[r.Outcome]++
	if r.Error != nil {
		a.errorsByKind[r.Error.Kind]++
	}

	// dispatchedByPhase already counts r, so a count of 1 marks the first
	// measured record; a dispatch at the epoch (0) still opens the window.
	if a.dispatchedByPhase[record.PhaseMeasured] == 1 || r.Times.ActualDispatch < a.windowStart {
		a.windowStart = r.Times.ActualDispatch
	}
	if r.Times.Completion > a.windowEnd {
		a.windowEnd = r.Times.Completion
	}

	if r.Outcome != record.OutcomeCompleted {
		return
	}

	a.measuredCompleted++
	a.totalOutputTokens += int64(r.OutputTokens)

	a.latency.add(r.Times.Completion - r.Times.ActualDispatch)
	if r.Times.FirstToken > 0 {
		a.ttft.add(r.Times.FirstToken - r.Times.ActualDispatch)
	}
	// ITL is the distribution of per-token inter-arrival gaps, pooled
	// across requests, excluding the dispatch-to-first-token gap.
	for i := 1; i < len(r.TokenArrivals); i++ {
		a.itl.add(r.TokenArrivals[i] - r.TokenArrivals[i-1])
	}
}

// Progress is the running view used for live reporting.
type Progress struct {
	MeasuredCompleted int
	MeasuredByOutcome map[record.Outcome]int
	RequestRate       float64
	OutputTokenRate   float64
}

// Snapshot returns the running counters. Safe to call while the run is
// in progress.
func (a *Aggregator) Snapshot() Progress {
	a.mu.Lock()
	defer a.mu.Unlock()

	p := Progress{
		MeasuredCompleted: a.measuredCompleted,
		MeasuredByOutcome: make(map[record.Outcome]int, len(a.measuredByOutcome)),
	}
	for k, v := range a.measuredByOutcome {
		p.MeasuredByOutcome[k] = v
	}
	if sec := a.windowSecondsLocked(); sec > 0 {
		p.RequestRate = float64(a.measuredCompleted) / sec
		p.OutputTokenRate = float64(a.totalOutputTokens) / sec
	}
	return p
}

func (a *Aggregator) windowSecondsLocked() float64 {
	if a.windowEnd <= a.windowStart {
		return 0
	}
	return float64(a.windowEnd-a.windowStart) / 1e9
}

// Finalize freezes the aggregator into an immutable Report. The
// aggregator must not receive further Add calls afterwards.
func (a *Aggregator) Finalize(run RunInfo) *Report {
	a.mu.Lock()
	defer a.mu.Unlock()

	rep := &Report{
		Run:               run,
		DurationSeconds:   a.windowSecondsLocked(),
		StatisticsDefined: a.measuredCompleted > 0,
		TotalOutputTokens: a.totalOutputTokens,
		Counts: Counts{
			Dispatched: make(map[string]int, len(a.dispatchedByPhase)),
			Outcomes:   make(map[string]int, len(a.measuredByOutcome)),
			Errors:     make(map[string]int, len(a.errorsByKind)),
		},
	}
	for k, v := range a.dispatchedByPhase {
		rep.Counts.Dispatched[string(k)] = v
	}
	for k, v := range a.measuredByOutcome {
		rep.Counts.Outcomes[string(k)] = v
	}
	for k, v := range a.errorsByKind {
		rep.Counts.Errors[string(k)] = v
	}

	if rep.StatisticsDefined {
		rep.Latency = a.latency.stats()
		rep.TTFT = a.ttft.stats()
		rep.ITL = a.itl.stats()
		if sec := a.windowSecondsLocked(); sec > 0 {
			rep.RequestRate = float64(a.measuredCompleted) / sec
			rep.OutputTokenRate = float64(a.totalOutputTokens) / sec
		}
	}

	rep.Records = make([]RecordRow, 0, len(a.kept))
	for _, r := range a.kept {
		rep.Records = append(rep.Records, rowFromRecord(r))
	}
	return rep
}
