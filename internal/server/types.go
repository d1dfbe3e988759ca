package server

import (
	"time"

	"github.com/guidellm/guidellm-go/internal/config"
)

// JobRequest is the POST body for starting a benchmark job. Fields
// mirror the CLI configuration surface; unset fields fall back to the
// same defaults the CLI uses.
type JobRequest struct {
	Target   string `json:"target" binding:"required"`
	APIKey   string `json:"apiKey,omitempty"`
	Model    string `json:"model,omitempty"`
	Endpoint string `json:"endpoint,omitempty"` // "chat" or "text"

	RateType string  `json:"rateType,omitempty"`
	Rate     float64 `json:"rate,omitempty"`

	MaxSeconds float64 `json:"maxSeconds,omitempty"`
	// MaxRequests is a pointer so an explicit 0 ("dispatch nothing,
	// emit an empty report") is distinguishable from the field being
	// omitted.
	MaxRequests    *int    `json:"maxRequests,omitempty"`
	MaxConcurrency int     `json:"maxConcurrency,omitempty"`
	RequestTimeout float64 `json:"requestTimeout,omitempty"`

	WarmupPercent   float64 `json:"warmupPercent,omitempty"`
	CooldownPercent float64 `json:"cooldownPercent,omitempty"`

	RandomSeed int64  `json:"randomSeed,omitempty"`
	Prompt     string `json:"prompt,omitempty"`
	NumWords   int    `json:"numWords,omitempty"`
	MaxTokens  int    `json:"maxTokens,omitempty"`
	SweepSteps int    `json:"sweepSteps,omitempty"`
}

// ToConfig overlays the request onto the default configuration.
func (r JobRequest) ToConfig() config.Config {
	cfg := config.Default()
	cfg.Format = "json"
	cfg.Target = r.Target
	cfg.APIKey = r.APIKey
	cfg.Model = r.Model
	if r.Endpoint != "" {
		cfg.Endpoint = r.Endpoint
	}
	if r.RateType != "" {
		cfg.RateType = r.RateType
	}
	cfg.Rate = r.Rate
	if r.MaxSeconds > 0 {
		cfg.MaxSeconds = r.MaxSeconds
	}
	if r.MaxRequests != nil {
		cfg.MaxRequests = *r.MaxRequests
	}
	if r.MaxConcurrency > 0 {
		cfg.MaxConcurrency = r.MaxConcurrency
	}
	if r.RequestTimeout > 0 {
		cfg.RequestTimeout = r.RequestTimeout
	}
	cfg.WarmupPercent = r.WarmupPercent
	cfg.CooldownPercent = r.CooldownPercent
	if r.RandomSeed != 0 {
		cfg.RandomSeed = r.RandomSeed
	}
	cfg.Prompt = r.Prompt
	if r.NumWords > 0 {
		cfg.NumWords = r.NumWords
	}
	if r.MaxTokens > 0 {
		cfg.MaxTokens = r.MaxTokens
	}
	if r.SweepSteps > 0 {
		cfg.SweepSteps = r.SweepSteps
	}
	return cfg
}

// JobState is the externally-visible job summary.
type JobState struct {
	ID          string     `json:"id"`
	Status      string     `json:"status"` // "running", "completed", "failed", "cancelled"
	Progress    int        `json:"progress"` // 0-100
	Message     string     `json:"message"`
	CreatedAt   time.Time  `json:"createdAt"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

// ErrorResponse represents a standard error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// ModelsResponse represents the response for model discovery
type ModelsResponse struct {
	Models []string `json:"models"`
	Count  int      `json:"count"`
}
