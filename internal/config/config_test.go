package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load([]string{"--target", "http://localhost:8000/v1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.RateType != "synchronous" {
		t.Errorf("default rate_type: got %q", cfg.RateType)
	}
	if cfg.MaxConcurrency != 128 {
		t.Errorf("default max_concurrency: got %d", cfg.MaxConcurrency)
	}
	if cfg.RandomSeed != 42 {
		t.Errorf("default random_seed: got %d", cfg.RandomSeed)
	}
	if cfg.Format != "table" {
		t.Errorf("default format: got %q", cfg.Format)
	}
	if cfg.MaxRequests != -1 {
		t.Errorf("default max_requests must be unlimited (-1), got %d", cfg.MaxRequests)
	}
}

func TestExplicitZeroMaxRequestsIsValid(t *testing.T) {
	cfg, err := Load([]string{"--target", "http://localhost:8000/v1", "--max-requests", "0"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.MaxRequests != 0 {
		t.Errorf("explicit zero cap must survive loading, got %d", cfg.MaxRequests)
	}
}

func TestFlagsOverrideDefaults(t *testing.T) {
	cfg, err := Load([]string{
		"--target", "http://localhost:8000/v1",
		"--rate-type", "constant",
		"--rate", "20",
		"--max-seconds", "5",
		"--warmup-percent", "10",
		"--format", "json",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.RateType != "constant" || cfg.Rate != 20 {
		t.Errorf("strategy flags not applied: %+v", cfg)
	}
	if cfg.MaxSeconds != 5 || cfg.WarmupPercent != 10 {
		t.Errorf("limit flags not applied: %+v", cfg)
	}
}

func TestEnvOverlay(t *testing.T) {
	t.Setenv("GUIDELLM_TARGET", "http://env-host:9000/v1")
	t.Setenv("GUIDELLM_RATE_TYPE", "throughput")
	t.Setenv("GUIDELLM_MAX_REQUESTS", "50")

	cfg, err := Load(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Target != "http://env-host:9000/v1" {
		t.Errorf("env target not applied: %q", cfg.Target)
	}
	if cfg.RateType != "throughput" || cfg.MaxRequests != 50 {
		t.Errorf("env overlay incomplete: %+v", cfg)
	}
}

func TestFlagsWinOverEnv(t *testing.T) {
	t.Setenv("GUIDELLM_RATE_TYPE", "throughput")

	cfg, err := Load([]string{"--target", "http://localhost:8000/v1", "--rate-type", "poisson", "--rate", "10"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.RateType != "poisson" {
		t.Errorf("flag should win over env, got %q", cfg.RateType)
	}
}

func TestConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bench.yaml")
	body := "target: http://file-host:8000/v1\nrate_type: concurrent\nrate: 8\nmax_requests: 100\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load([]string{"--config", path})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Target != "http://file-host:8000/v1" || cfg.RateType != "concurrent" || cfg.Rate != 8 {
		t.Errorf("config file not applied: %+v", cfg)
	}
}

func TestValidationRejectsBadConfigs(t *testing.T) {
	cases := []struct {
		name string
		mut  func(*Config)
	}{
		{"missing target", func(c *Config) { c.Target = "" }},
		{"bad endpoint", func(c *Config) { c.Endpoint = "grpc" }},
		{"constant without rate", func(c *Config) { c.RateType = "constant"; c.Rate = 0 }},
		{"unknown rate type", func(c *Config) { c.RateType = "bursty" }},
		{"negative max seconds", func(c *Config) { c.MaxSeconds = -1 }},
		{"zero concurrency", func(c *Config) { c.MaxConcurrency = 0 }},
		{"warmup over 100", func(c *Config) { c.WarmupPercent = 120 }},
		{"no measured window", func(c *Config) { c.WarmupPercent = 60; c.CooldownPercent = 50 }},
		{"bad format", func(c *Config) { c.Format = "xml" }},
		{"max_requests below -1", func(c *Config) { c.MaxRequests = -2 }},
		{"infinite run", func(c *Config) { c.MaxSeconds = 0; c.MaxRequests = -1 }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			cfg.Target = "http://localhost:8000/v1"
			cfg.MaxRequests = 10
			tc.mut(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Errorf("expected validation error for %s", tc.name)
			}
		})
	}
}
