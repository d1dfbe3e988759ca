// Package scheduler owns the dispatch loop of a benchmark run: the rate
// strategy, the worker pool, and the in-flight accounting. It assigns
// phases, enforces warmup/cooldown and overall duration/max-request
// limits, and drains outstanding requests at the end of a run.
package scheduler

import (
	"sync"

	"github.com/guidellm/guidellm-go/internal/record"
)

// State is the per-run accumulator the Scheduler owns for the duration
// of one run: start time, received counts by phase, running concurrency,
// and the last dispatch time.
type State struct {
	mu sync.Mutex

	startTime          int64
	dispatchedTotal    int
	dispatchedByPhase  map[record.Phase]int
	completedByPhase   map[record.Phase]int
	completedByOutcome map[record.Outcome]int
	inFlight           int
	lastDispatch       int64
}

func newState(startTime int64) *State {
	return &State{
		startTime:          startTime,
		dispatchedByPhase:  make(map[record.Phase]int),
		completedByPhase:   make(map[record.Phase]int),
		completedByOutcome: make(map[record.Outcome]int),
	}
}

func (s *State) recordDispatch(phase record.Phase, at int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dispatchedTotal++
	s.dispatchedByPhase[phase]++
	s.inFlight++
	s.lastDispatch = at
}

func (s *State) recordCompletion(phase record.Phase, outcome record.Outcome) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inFlight--
	s.completedByPhase[phase]++
	s.completedByOutcome[outcome]++
}

// Snapshot is a point-in-time copy of State for progress reporting:
// in-flight count, completed counts by outcome, and dispatch totals.
type Snapshot struct {
	DispatchedTotal    int
	InFlight           int
	CompletedByOutcome map[record.Outcome]int
	LastDispatch       int64
}

func (s *State) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := Snapshot{
		DispatchedTotal:    s.dispatchedTotal,
		InFlight:           s.inFlight,
		LastDispatch:       s.lastDispatch,
		CompletedByOutcome: make(map[record.Outcome]int, len(s.completedByOutcome)),
	}
	for k, v := range s.completedByOutcome {
		out.CompletedByOutcome[k] = v
	}
	return out
}

func (s *State) inFlightCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inFlight
}
