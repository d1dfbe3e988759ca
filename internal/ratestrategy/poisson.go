package ratestrategy

import (
	"math/rand"

	"github.com/guidellm/guidellm-go/internal/record"
)

// Poisson schedules dispatch k+1 at t_k + Exp(r), sampled from a seeded
// RNG. The seed is part of the benchmark config so the
// targeted-dispatch sequence is reproducible: Confirm advances the RNG
// exactly once per actual dispatch, so repeated Next polls while the
// scheduler waits on worker-pool capacity never perturb the sequence.
type Poisson struct {
	rate float64
	rng  *rand.Rand

	started bool
	next    int64
}

func NewPoisson(rate float64, seed int64) *Poisson {
	return &Poisson{rate: rate, rng: rand.New(rand.NewSource(seed))}
}

func (p *Poisson) Name() string { return "poisson" }

func (p *Poisson) Next(now int64) Decision {
	if !p.started {
		p.started = true
		p.next = now + p.sampleIntervalNanos()
	}
	return Decision{At: p.next}
}

func (p *Poisson) Confirm(dispatchTime int64) {
	p.next += p.sampleIntervalNanos()
}

func (p *Poisson) OnCompletion(r *record.Record) {}

func (p *Poisson) CompletionSignal() <-chan struct{} { return nil }

func (p *Poisson) sampleIntervalNanos() int64 {
	return int64(p.rng.ExpFloat64() / p.rate * 1e9)
}
