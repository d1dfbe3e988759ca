package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/schollz/progressbar/v3"

	"github.com/guidellm/guidellm-go/internal/backend"
	"github.com/guidellm/guidellm-go/internal/benchmarker"
	"github.com/guidellm/guidellm-go/internal/clock"
	"github.com/guidellm/guidellm-go/internal/config"
	"github.com/guidellm/guidellm-go/internal/logging"
	"github.com/guidellm/guidellm-go/internal/output"
	"github.com/guidellm/guidellm-go/internal/record"
	"github.com/guidellm/guidellm-go/internal/source"
)

func main() {
	log := logging.New()

	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		log.Fatal("configuration error: %v", err)
	}

	if err := run(cfg, log); err != nil {
		log.Fatal("%v", err)
	}
}

func run(cfg config.Config, log *logging.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	clk := clock.New()

	var opts []backend.ClientOption
	if cfg.InsecureSkipTLSVerify {
		fmt.Fprintln(os.Stderr, "\n/!\\ WARNING: Skipping TLS certificate verification. This is insecure and should not be used in production. /!\\")
		opts = append(opts, backend.WithInsecureTLS())
	}
	adapter := backend.NewOpenAIAdapter(cfg.Target, cfg.APIKey, cfg.Model, clk, opts...)

	// Discover a model when none was given, the same way the server's
	// models endpoint does.
	if cfg.Model == "" {
		models, err := adapter.DiscoverModels(ctx)
		if err != nil {
			return fmt.Errorf("discovering models: %w", err)
		}
		if len(models) == 0 {
			return fmt.Errorf("backend lists no models; pass --model explicitly")
		}
		cfg.Model = models[0]
		adapter = backend.NewOpenAIAdapter(cfg.Target, cfg.APIKey, cfg.Model, clk, opts...)
		log.Info("using discovered model %s", cfg.Model)
	}

	b := benchmarker.New(cfg, adapter, buildSource(cfg), log)

	// Live progress goes to stderr so stdout stays clean for the report.
	bar := newProgressBar(cfg)
	b.OnProgress = func(u benchmarker.ProgressUpdate) {
		completed := 0
		for _, n := range u.Scheduler.CompletedByOutcome {
			completed += n
		}
		bar.Describe(fmt.Sprintf("%s (%d in flight, %.1f req/s)",
			u.RunLabel, u.Scheduler.InFlight, u.Aggregate.RequestRate))
		bar.Set(completed)
	}

	result, err := b.Run(ctx)
	bar.Finish()
	bar.Close()
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return err
	}

	return output.Write(cfg.OutputPath, cfg.Format, result)
}

func newProgressBar(cfg config.Config) *progressbar.ProgressBar {
	total := cfg.MaxRequests
	if total <= 0 {
		total = -1 // spinner mode
	}
	return progressbar.NewOptions(total,
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetDescription("starting"),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("req"),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionSetRenderBlankState(true),
	)
}

// buildSource picks between a fixed prompt and synthetic generation.
func buildSource(cfg config.Config) source.Source {
	kind := record.KindChat
	if cfg.Endpoint == "text" {
		kind = record.KindText
	}
	if cfg.Prompt != "" {
		payload := record.Payload{Kind: kind, MaxTokens: cfg.MaxTokens}
		if kind == record.KindChat {
			payload.Messages = []record.Message{{Role: "user", Content: cfg.Prompt}}
		} else {
			payload.Prompt = cfg.Prompt
		}
		return source.NewRepeating(payload)
	}
	return source.NewSynthetic(kind, cfg.NumWords, cfg.MaxTokens, cfg.RandomSeed)
}
