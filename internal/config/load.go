package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

// Load assembles the final Config from, in increasing precedence:
// defaults, an optional YAML config file, GUIDELLM_* environment
// variables, and CLI flags. args is os.Args[1:]; passing a separate
// slice keeps this testable without touching the process flag set.
func Load(args []string) (Config, error) {
	fs := pflag.NewFlagSet("guidellm", pflag.ContinueOnError)

	configPath := fs.String("config", "", "Path to a YAML config file")
	target := fs.StringP("target", "u", "", "Backend base URL (OpenAI-compatible)")
	apiKey := fs.StringP("api-key", "k", "", "API key for authentication")
	model := fs.StringP("model", "m", "", "Model identifier (discovered from the backend when omitted)")
	endpoint := fs.String("endpoint", "", "Endpoint family: chat or text")
	maxTokens := fs.IntP("max-tokens", "t", 0, "Maximum number of tokens to generate per request")
	rateType := fs.StringP("rate-type", "r", "", "Rate strategy: synchronous, throughput, concurrent, constant, poisson, sweep")
	rate := fs.Float64("rate", 0, "Numeric strategy parameter: req/s for constant/poisson, N for concurrent")
	maxSeconds := fs.Float64("max-seconds", 0, "Overall duration cap in seconds (0 = unlimited)")
	maxRequests := fs.Int("max-requests", -1, "Overall request cap (-1 = unlimited; 0 dispatches nothing)")
	maxConcurrency := fs.IntP("max-concurrency", "c", 0, "Worker-pool parallelism cap")
	requestTimeout := fs.Float64("request-timeout", 0, "Per-request deadline in seconds (0 = none)")
	warmupPercent := fs.Float64("warmup-percent", 0, "Leading percent of the run excluded from statistics")
	warmupRequests := fs.Int("warmup-requests", 0, "Leading request count excluded from statistics")
	cooldownPercent := fs.Float64("cooldown-percent", 0, "Trailing percent of the run excluded from statistics")
	cooldownRequests := fs.Int("cooldown-requests", 0, "Trailing request count excluded from statistics")
	randomSeed := fs.Int64("random-seed", 0, "Seed for strategy RNGs (poisson, shuffled sampling)")
	prompt := fs.StringP("prompt", "p", "", "Fixed prompt to send (overrides synthetic generation)")
	numWords := fs.IntP("num-words", "n", 0, "Approximate word count for synthetic prompts")
	sweepSteps := fs.Int("sweep-steps", 0, "Intermediate constant-rate steps in a sweep")
	format := fs.StringP("format", "f", "", "Output format: json, yaml, csv, table")
	outputPath := fs.StringP("output", "o", "", "Write the report to this file instead of stdout")
	retainAll := fs.Bool("retain-all", false, "Retain warmup/cooldown records in the report")
	insecure := fs.Bool("insecure-skip-tls-verify", false, "Skip TLS certificate verification. Use with caution, this is insecure.")
	help := fs.BoolP("help", "h", false, "Show this help message")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	if *help {
		fmt.Printf("Usage of guidellm:\n")
		fs.PrintDefaults()
		os.Exit(0)
	}

	cfg := Default()

	if *configPath != "" {
		if err := loadFile(*configPath, &cfg); err != nil {
			return Config{}, err
		}
	}

	applyEnv(&cfg)

	// Flags win over file and environment; only explicitly-set flags
	// override.
	if fs.Changed("target") {
		cfg.Target = *target
	}
	if fs.Changed("api-key") {
		cfg.APIKey = *apiKey
	}
	if fs.Changed("model") {
		cfg.Model = *model
	}
	if fs.Changed("endpoint") {
		cfg.Endpoint = *endpoint
	}
	if fs.Changed("max-tokens") {
		cfg.MaxTokens = *maxTokens
	}
	if fs.Changed("rate-type") {
		cfg.RateType = *rateType
	}
	if fs.Changed("rate") {
		cfg.Rate = *rate
	}
	if fs.Changed("max-seconds") {
		cfg.MaxSeconds = *maxSeconds
	}
	if fs.Changed("max-requests") {
		cfg.MaxRequests = *maxRequests
	}
	if fs.Changed("max-concurrency") {
		cfg.MaxConcurrency = *maxConcurrency
	}
	if fs.Changed("request-timeout") {
		cfg.RequestTimeout = *requestTimeout
	}
	if fs.Changed("warmup-percent") {
		cfg.WarmupPercent = *warmupPercent
	}
	if fs.Changed("warmup-requests") {
		cfg.WarmupRequests = *warmupRequests
	}
	if fs.Changed("cooldown-percent") {
		cfg.CooldownPercent = *cooldownPercent
	}
	if fs.Changed("cooldown-requests") {
		cfg.CooldownRequests = *cooldownRequests
	}
	if fs.Changed("random-seed") {
		cfg.RandomSeed = *randomSeed
	}
	if fs.Changed("prompt") {
		cfg.Prompt = *prompt
	}
	if fs.Changed("num-words") {
		cfg.NumWords = *numWords
	}
	if fs.Changed("sweep-steps") {
		cfg.SweepSteps = *sweepSteps
	}
	if fs.Changed("format") {
		cfg.Format = *format
	}
	if fs.Changed("output") {
		cfg.OutputPath = *outputPath
	}
	if fs.Changed("retain-all") {
		cfg.RetainAll = *retainAll
	}
	if fs.Changed("insecure-skip-tls-verify") {
		cfg.InsecureSkipTLSVerify = *insecure
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// loadFile overlays a YAML config file onto cfg.
func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parsing config file %s: %w", path, err)
	}
	return nil
}

// applyEnv overlays GUIDELLM_* environment variables onto cfg. This is
// the only place in the repository that reads benchmark settings from
// the environment.
func applyEnv(cfg *Config) {
	if v := os.Getenv("GUIDELLM_TARGET"); v != "" {
		cfg.Target = v
	}
	if v := os.Getenv("GUIDELLM_API_KEY"); v != "" {
		cfg.APIKey = v
	}
	if v := os.Getenv("GUIDELLM_MODEL"); v != "" {
		cfg.Model = v
	}
	if v := os.Getenv("GUIDELLM_RATE_TYPE"); v != "" {
		cfg.RateType = v
	}
	if v := os.Getenv("GUIDELLM_RATE"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Rate = f
		}
	}
	if v := os.Getenv("GUIDELLM_MAX_SECONDS"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.MaxSeconds = f
		}
	}
	if v := os.Getenv("GUIDELLM_MAX_REQUESTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.MaxRequests = n
		}
	}
	if v := os.Getenv("GUIDELLM_MAX_CONCURRENCY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.MaxConcurrency = n
		}
	}
	if v := os.Getenv("GUIDELLM_REQUEST_TIMEOUT"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.RequestTimeout = f
		}
	}
	if v := os.Getenv("GUIDELLM_RANDOM_SEED"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.RandomSeed = n
		}
	}
}
