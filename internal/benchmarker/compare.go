package benchmarker

import "github.com/guidellm/guidellm-go/internal/aggregator"

// Comparison diffs two finished runs, typically the same workload
// against two models or two deployments.
type Comparison struct {
	RunA string `json:"run_a" yaml:"run-a"`
	RunB string `json:"run_b" yaml:"run-b"`

	// Winner is "a", "b", or "tie", decided on achieved request rate
	// with mean latency as the tie-break.
	Winner string `json:"winner" yaml:"winner"`

	// Differences holds b-minus-a deltas per metric.
	Differences map[string]float64 `json:"differences" yaml:"differences"`
}

// Compare diffs achieved request rate, mean end-to-end latency, and mean
// TTFT between two reports.
func Compare(a, b *aggregator.Report) *Comparison {
	c := &Comparison{
		RunA: a.Run.RunID,
		RunB: b.Run.RunID,
		Differences: map[string]float64{
			"request_rate":      b.RequestRate - a.RequestRate,
			"output_token_rate": b.OutputTokenRate - a.OutputTokenRate,
			"mean_latency":      b.Latency.Mean - a.Latency.Mean,
			"mean_ttft":         b.TTFT.Mean - a.TTFT.Mean,
		},
	}

	switch {
	case b.RequestRate > a.RequestRate:
		c.Winner = "b"
	case a.RequestRate > b.RequestRate:
		c.Winner = "a"
	case b.Latency.Mean < a.Latency.Mean:
		c.Winner = "b"
	case a.Latency.Mean < b.Latency.Mean:
		c.Winner = "a"
	default:
		c.Winner = "tie"
	}
	return c
}
