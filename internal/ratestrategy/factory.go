package ratestrategy

import "fmt"

// Type is the tagged-variant selector over the rate strategies.
type Type string

const (
	TypeSynchronous Type = "synchronous"
	TypeThroughput  Type = "throughput"
	TypeConcurrent  Type = "concurrent"
	TypeConstant    Type = "constant"
	TypePoisson     Type = "poisson"
)

// Config selects and parameterizes one strategy, mirroring the
// rate_type/rate/random_seed configuration options.
type Config struct {
	Type        Type
	Rate        float64 // constant/poisson: requests per second
	Concurrency int     // concurrent(N)
	Seed        int64   // poisson
}

// New constructs a Strategy from a Config, the single dispatch table the
// Design Notes call for — adding a strategy means adding a file plus one
// case here.
func New(cfg Config) (Strategy, error) {
	switch cfg.Type {
	case TypeSynchronous:
		return NewSynchronous(), nil
	case TypeThroughput:
		return NewThroughput(), nil
	case TypeConcurrent:
		if cfg.Concurrency <= 0 {
			return nil, fmt.Errorf("concurrent strategy requires concurrency > 0, got %d", cfg.Concurrency)
		}
		return NewConcurrent(cfg.Concurrency), nil
	case TypeConstant:
		if cfg.Rate <= 0 {
			return nil, fmt.Errorf("constant strategy requires rate > 0, got %f", cfg.Rate)
		}
		return NewConstant(cfg.Rate), nil
	case TypePoisson:
		if cfg.Rate <= 0 {
			return nil, fmt.Errorf("poisson strategy requires rate > 0, got %f", cfg.Rate)
		}
		return NewPoisson(cfg.Rate, cfg.Seed), nil
	default:
		return nil, fmt.Errorf("unknown rate strategy type %q", cfg.Type)
	}
}
