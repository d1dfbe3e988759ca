// Package config assembles the single immutable configuration value the
// engine runs from. Defaults, an optional YAML config file, environment
// variables, and CLI flags are folded together once, in that order, before
// any component is constructed; nothing downstream re-reads the
// environment.
package config

import (
	"fmt"
	"time"
)

// Config is the full configuration surface for one benchmark invocation.
// It is treated as immutable after Load returns.
type Config struct {
	// Backend.
	Target    string `yaml:"target"`
	APIKey    string `yaml:"api_key"`
	Model     string `yaml:"model"`
	Endpoint  string `yaml:"endpoint"` // "chat" or "text"
	MaxTokens int    `yaml:"max_tokens"`

	// Workload shape.
	RateType string  `yaml:"rate_type"` // synchronous|throughput|concurrent|constant|poisson|sweep
	Rate     float64 `yaml:"rate"`      // constant/poisson req/s; concurrent N

	// Limits. MaxRequests of -1 means no request cap; 0 is honored
	// literally and yields an empty report without dispatching.
	MaxSeconds     float64 `yaml:"max_seconds"`
	MaxRequests    int     `yaml:"max_requests"`
	MaxConcurrency int     `yaml:"max_concurrency"`
	RequestTimeout float64 `yaml:"request_timeout"` // seconds per request
	DrainTimeout   float64 `yaml:"drain_timeout"`   // seconds

	// Phase boundaries. Percent and request-count bounds may both be set;
	// whichever is zero is never binding.
	WarmupPercent    float64 `yaml:"warmup_percent"`
	WarmupRequests   int     `yaml:"warmup_requests"`
	CooldownPercent  float64 `yaml:"cooldown_percent"`
	CooldownRequests int     `yaml:"cooldown_requests"`

	// Reproducibility.
	RandomSeed int64 `yaml:"random_seed"`

	// Request source.
	Prompt   string `yaml:"prompt"`
	NumWords int    `yaml:"num_words"`

	// Sweep shape: number of intermediate constant-rate steps between the
	// synchronous and throughput extremes.
	SweepSteps int `yaml:"sweep_steps"`

	// Aggregation.
	SampleLimit int  `yaml:"sample_limit"` // exact quantiles below this many samples
	RetainAll   bool `yaml:"retain_all"`   // keep warmup/cooldown records in the report

	// Output.
	Format     string `yaml:"format"` // json|yaml|csv|table
	OutputPath string `yaml:"output_path"`

	InsecureSkipTLSVerify bool `yaml:"insecure_skip_tls_verify"`
}

// Default returns the baseline configuration before file/env/flag
// overlays.
func Default() Config {
	return Config{
		Endpoint:       "chat",
		MaxTokens:      512,
		RateType:       "synchronous",
		MaxSeconds:     120,
		MaxRequests:    -1,
		MaxConcurrency: 128,
		RequestTimeout: 120,
		DrainTimeout:   30,
		RandomSeed:     42,
		NumWords:       128,
		SweepSteps:     5,
		SampleLimit:    100000,
		Format:         "table",
	}
}

// Validate rejects configurations the engine cannot run. A non-nil error
// is fatal before any measurement begins.
func (c Config) Validate() error {
	if c.Target == "" {
		return fmt.Errorf("target base URL is required")
	}
	switch c.Endpoint {
	case "chat", "text":
	default:
		return fmt.Errorf("endpoint must be \"chat\" or \"text\", got %q", c.Endpoint)
	}
	switch c.RateType {
	case "synchronous", "throughput", "sweep":
	case "concurrent", "constant", "poisson":
		if c.Rate <= 0 {
			return fmt.Errorf("rate_type %q requires rate > 0, got %v", c.RateType, c.Rate)
		}
	default:
		return fmt.Errorf("unknown rate_type %q", c.RateType)
	}
	if c.MaxSeconds < 0 {
		return fmt.Errorf("max_seconds must be >= 0, got %v", c.MaxSeconds)
	}
	if c.MaxRequests < -1 {
		return fmt.Errorf("max_requests must be >= 0, or -1 for unlimited; got %d", c.MaxRequests)
	}
	if c.MaxSeconds == 0 && c.MaxRequests < 0 && c.NumWords > 0 {
		return fmt.Errorf("an infinite synthetic source needs max_seconds or max_requests to terminate")
	}
	if c.MaxConcurrency <= 0 {
		return fmt.Errorf("max_concurrency must be > 0, got %d", c.MaxConcurrency)
	}
	if c.WarmupPercent < 0 || c.WarmupPercent >= 100 {
		return fmt.Errorf("warmup_percent must be in [0, 100), got %v", c.WarmupPercent)
	}
	if c.CooldownPercent < 0 || c.CooldownPercent >= 100 {
		return fmt.Errorf("cooldown_percent must be in [0, 100), got %v", c.CooldownPercent)
	}
	if c.WarmupPercent+c.CooldownPercent >= 100 {
		return fmt.Errorf("warmup_percent + cooldown_percent must leave a measured window")
	}
	switch c.Format {
	case "json", "yaml", "csv", "table":
	default:
		return fmt.Errorf("format must be one of json, yaml, csv, table; got %q", c.Format)
	}
	return nil
}

// MaxDuration returns the overall duration cap as a time.Duration, zero
// when unlimited.
func (c Config) MaxDuration() time.Duration {
	return time.Duration(c.MaxSeconds * float64(time.Second))
}

// PerRequestTimeout returns the per-request deadline, zero when
// disabled.
func (c Config) PerRequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeout * float64(time.Second))
}

// DrainDeadline returns how long to wait for in-flight requests after
// dispatch stops.
func (c Config) DrainDeadline() time.Duration {
	return time.Duration(c.DrainTimeout * float64(time.Second))
}
