package ratestrategy

import "math"

// Step describes one inner strategy of a sweep: sweep is a
// meta-strategy whose steps each run as a wholly separate benchmark,
// so unlike the other strategies in this package it does not implement
// Strategy itself — the Benchmarker expands a Sweep into a sequence of
// runs, one per Step, each constructed via New(Step.Config) in factory.go.
type Step struct {
	Config Config
	Label  string
}

// Sweep holds the ordered list of inner strategies to run.
type Sweep struct {
	Steps []Step
}

// DefaultGeometricSweep builds the default sweep shape: synchronous,
// throughput, then n constant(r) steps geometrically spaced between the
// two runs' observed achieved rates. syncRate and throughputRate are
// the achieved request rates measured by running the synchronous and
// throughput steps first; n is the number of intermediate constant-rate
// steps.
func DefaultGeometricSweep(syncRate, throughputRate float64, n int) *Sweep {
	steps := []Step{
		{Config: Config{Type: TypeSynchronous}, Label: "synchronous"},
		{Config: Config{Type: TypeThroughput}, Label: "throughput"},
	}

	if n > 0 && throughputRate > syncRate && syncRate > 0 {
		ratio := math.Pow(throughputRate/syncRate, 1/float64(n+1))
		rate := syncRate
		for i := 0; i < n; i++ {
			rate *= ratio
			steps = append(steps, Step{
				Config: Config{Type: TypeConstant, Rate: rate},
				Label:  "constant",
			})
		}
	}

	return &Sweep{Steps: steps}
}
