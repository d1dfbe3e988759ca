// Package benchmarker drives one or more benchmark runs against a
// backend: it probes reachability, constructs the per-run scheduler,
// worker pool, and aggregator, executes each run, and assembles the
// final set of reports. A sweep expands into several runs.
package benchmarker

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/guidellm/guidellm-go/internal/aggregator"
	"github.com/guidellm/guidellm-go/internal/backend"
	"github.com/guidellm/guidellm-go/internal/clock"
	"github.com/guidellm/guidellm-go/internal/config"
	"github.com/guidellm/guidellm-go/internal/logging"
	"github.com/guidellm/guidellm-go/internal/ratestrategy"
	"github.com/guidellm/guidellm-go/internal/scheduler"
	"github.com/guidellm/guidellm-go/internal/source"
)

// FatalError aborts the benchmarker before or during a run. Per-request
// failures are never fatal; only configuration, probe, and invariant
// violations are.
type FatalError struct {
	Kind string // config_invalid | backend_unreachable | internal
	Err  error
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *FatalError) Unwrap() error { return e.Err }

// ProgressUpdate is pushed to the progress observer roughly once per
// second while a run executes.
type ProgressUpdate struct {
	RunLabel  string
	RunIndex  int
	TotalRuns int
	Scheduler scheduler.Snapshot
	Aggregate aggregator.Progress
}

// Result bundles every run's report; a non-sweep invocation produces
// exactly one.
type Result struct {
	Reports []*aggregator.Report `json:"reports" yaml:"reports"`
}

// Benchmarker owns the lifecycle of a benchmark invocation.
type Benchmarker struct {
	cfg     config.Config
	adapter backend.Adapter
	src     source.Source
	log     *logging.Logger

	// OnProgress, when set, receives throttled live updates. Called from
	// a polling goroutine; implementations must be safe for that.
	OnProgress func(ProgressUpdate)
}

// New builds a Benchmarker from an already-validated config.
func New(cfg config.Config, adapter backend.Adapter, src source.Source, log *logging.Logger) *Benchmarker {
	return &Benchmarker{cfg: cfg, adapter: adapter, src: src, log: log}
}

// Run probes the backend, expands the configured strategy into a run
// list, and executes every run in order. Cancelling ctx stops the
// current run via its drain path and skips the rest.
func (b *Benchmarker) Run(ctx context.Context) (*Result, error) {
	if err := b.adapter.Probe(ctx); err != nil {
		return nil, &FatalError{Kind: "backend_unreachable", Err: err}
	}

	if b.cfg.RateType == "sweep" {
		return b.runSweep(ctx)
	}

	stratCfg, err := strategyConfig(b.cfg)
	if err != nil {
		return nil, &FatalError{Kind: "config_invalid", Err: err}
	}
	rep, err := b.runOne(ctx, stratCfg, b.cfg.RateType, 0, 1)
	if err != nil {
		return nil, err
	}
	return &Result{Reports: []*aggregator.Report{rep}}, nil
}

// runSweep runs synchronous and throughput first, derives the constant-
// rate steps geometrically from their achieved rates, and runs those.
func (b *Benchmarker) runSweep(ctx context.Context) (*Result, error) {
	total := 2 + b.cfg.SweepSteps

	syncRep, err := b.runOne(ctx, ratestrategy.Config{Type: ratestrategy.TypeSynchronous}, "synchronous", 0, total)
	if err != nil {
		return nil, err
	}
	if ctx.Err() != nil {
		return &Result{Reports: []*aggregator.Report{syncRep}}, nil
	}
	tputRep, err := b.runOne(ctx, ratestrategy.Config{Type: ratestrategy.TypeThroughput}, "throughput", 1, total)
	if err != nil {
		return nil, err
	}

	result := &Result{Reports: []*aggregator.Report{syncRep, tputRep}}

	sweep := ratestrategy.DefaultGeometricSweep(syncRep.RequestRate, tputRep.RequestRate, b.cfg.SweepSteps)
	idx := 2
	for _, step := range sweep.Steps {
		if step.Config.Type != ratestrategy.TypeConstant {
			continue // synchronous and throughput already ran
		}
		if ctx.Err() != nil {
			break
		}
		label := fmt.Sprintf("constant@%.2f", step.Config.Rate)
		rep, err := b.runOne(ctx, step.Config, label, idx, total)
		if err != nil {
			return nil, err
		}
		result.Reports = append(result.Reports, rep)
		idx++
	}
	return result, nil
}

func (b *Benchmarker) runOne(ctx context.Context, stratCfg ratestrategy.Config, label string, runIndex, totalRuns int) (*aggregator.Report, error) {
	b.src.Reset()

	clk := clock.New()
	strategy, err := ratestrategy.New(stratCfg)
	if err != nil {
		return nil, &FatalError{Kind: "config_invalid", Err: err}
	}

	agg := aggregator.New(b.cfg.SampleLimit, b.cfg.RetainAll)
	limits := b.limits()
	sched := scheduler.New(clk, b.src, strategy, b.adapter, agg, limits,
		b.cfg.MaxConcurrency, b.cfg.PerRequestTimeout(), b.log)

	if b.log != nil {
		b.log.InfoWithFields("run starting", map[string]interface{}{
			"strategy":        label,
			"max_requests":    limits.MaxRequests,
			"max_duration":    limits.MaxDuration.String(),
			"max_concurrency": b.cfg.MaxConcurrency,
		})
	}

	stopPolling := b.pollProgress(label, runIndex, totalRuns, sched, agg)
	reason, runErr := sched.Run(ctx)
	stopPolling()

	if runErr != nil && reason != scheduler.StopCancelled {
		return nil, &FatalError{Kind: "internal", Err: runErr}
	}

	info := aggregator.RunInfo{
		RunID:      uuid.New().String(),
		Model:      b.cfg.Model,
		Target:     b.cfg.Target,
		Strategy:   label,
		Rate:       stratCfg.Rate,
		Seed:       b.cfg.RandomSeed,
		StartedAt:  clk.Epoch(),
		StopReason: string(reason),
	}
	rep := agg.Finalize(info)

	if b.log != nil {
		b.log.InfoWithFields("run finished", map[string]interface{}{
			"strategy":     label,
			"stop_reason":  reason,
			"completed":    rep.Counts.Outcomes["completed"],
			"request_rate": rep.RequestRate,
		})
	}

	// Cancellation still yields the partial report; the caller decides
	// whether to surface it.
	return rep, nil
}

// pollProgress starts the 1-second progress ticker and returns its stop
// function.
func (b *Benchmarker) pollProgress(label string, runIndex, totalRuns int, sched *scheduler.Scheduler, agg *aggregator.Aggregator) func() {
	if b.OnProgress == nil {
		return func() {}
	}
	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(1 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				b.OnProgress(ProgressUpdate{
					RunLabel:  label,
					RunIndex:  runIndex,
					TotalRuns: totalRuns,
					Scheduler: sched.Snapshot(),
					Aggregate: agg.Snapshot(),
				})
			}
		}
	}()
	return func() { close(done) }
}

// limits derives the scheduler's phase and termination bounds from the
// config. Percent bounds resolve against whichever overall cap is set;
// explicit request counts are honored alongside them.
func (b *Benchmarker) limits() scheduler.Limits {
	l := scheduler.Limits{
		MaxRequests:      b.cfg.MaxRequests,
		MaxDuration:      b.cfg.MaxDuration(),
		WarmupRequests:   b.cfg.WarmupRequests,
		CooldownRequests: b.cfg.CooldownRequests,
		DrainTimeout:     b.cfg.DrainDeadline(),
	}
	if b.cfg.WarmupPercent > 0 {
		if b.cfg.MaxRequests > 0 && l.WarmupRequests == 0 {
			l.WarmupRequests = int(math.Ceil(b.cfg.WarmupPercent / 100 * float64(b.cfg.MaxRequests)))
		}
		if d := b.cfg.MaxDuration(); d > 0 && l.WarmupDuration == 0 {
			l.WarmupDuration = time.Duration(b.cfg.WarmupPercent / 100 * float64(d))
		}
	}
	if b.cfg.CooldownPercent > 0 {
		if b.cfg.MaxRequests > 0 && l.CooldownRequests == 0 {
			l.CooldownRequests = int(math.Ceil(b.cfg.CooldownPercent / 100 * float64(b.cfg.MaxRequests)))
		}
		if d := b.cfg.MaxDuration(); d > 0 && l.CooldownDuration == 0 {
			l.CooldownDuration = time.Duration(b.cfg.CooldownPercent / 100 * float64(d))
		}
	}
	return l
}

// strategyConfig maps the config surface onto a rate-strategy config.
func strategyConfig(cfg config.Config) (ratestrategy.Config, error) {
	switch cfg.RateType {
	case "synchronous":
		return ratestrategy.Config{Type: ratestrategy.TypeSynchronous}, nil
	case "throughput":
		return ratestrategy.Config{Type: ratestrategy.TypeThroughput}, nil
	case "concurrent":
		return ratestrategy.Config{Type: ratestrategy.TypeConcurrent, Concurrency: int(cfg.Rate)}, nil
	case "constant":
		return ratestrategy.Config{Type: ratestrategy.TypeConstant, Rate: cfg.Rate}, nil
	case "poisson":
		return ratestrategy.Config{Type: ratestrategy.TypePoisson, Rate: cfg.Rate, Seed: cfg.RandomSeed}, nil
	default:
		return ratestrategy.Config{}, fmt.Errorf("unknown rate_type %q", cfg.RateType)
	}
}
