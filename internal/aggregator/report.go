package aggregator

import (
	"time"

	"github.com/guidellm/guidellm-go/internal/record"
)

// Stats is the frozen distribution summary for one latency metric. All
// durations are seconds.
type Stats struct {
	Count  int64   `json:"count" yaml:"count"`
	Mean   float64 `json:"mean" yaml:"mean"`
	StdDev float64 `json:"stddev" yaml:"stddev"`
	Min    float64 `json:"min" yaml:"min"`
	Max    float64 `json:"max" yaml:"max"`
	P50    float64 `json:"p50" yaml:"p50"`
	P75    float64 `json:"p75" yaml:"p75"`
	P90    float64 `json:"p90" yaml:"p90"`
	P95    float64 `json:"p95" yaml:"p95"`
	P99    float64 `json:"p99" yaml:"p99"`
}

// RunInfo identifies the run a report belongs to and snapshots the
// workload configuration that produced it.
type RunInfo struct {
	RunID      string    `json:"run_id" yaml:"run-id"`
	Model      string    `json:"model" yaml:"model"`
	Target     string    `json:"target" yaml:"target"`
	Strategy   string    `json:"strategy" yaml:"strategy"`
	Rate       float64   `json:"rate,omitempty" yaml:"rate,omitempty"`
	Seed       int64     `json:"random_seed" yaml:"random-seed"`
	StartedAt  time.Time `json:"started_at" yaml:"started-at"`
	StopReason string    `json:"stop_reason" yaml:"stop-reason"`
}

// RecordRow is one retained RequestRecord, flattened for serialization.
// Timestamps are monotonic nanoseconds from the run's start epoch.
type RecordRow struct {
	SequenceIndex     int     `json:"sequence_index" yaml:"sequence-index"`
	Phase             string  `json:"phase" yaml:"phase"`
	Outcome           string  `json:"outcome" yaml:"outcome"`
	ErrorKind         string  `json:"error_kind,omitempty" yaml:"error-kind,omitempty"`
	ErrorMessage      string  `json:"error_message,omitempty" yaml:"error-message,omitempty"`
	TargetedDispatch  int64   `json:"targeted_dispatch" yaml:"targeted-dispatch"`
	ActualDispatch    int64   `json:"actual_dispatch" yaml:"actual-dispatch"`
	FirstResponseByte int64   `json:"first_response_byte,omitempty" yaml:"first-response-byte,omitempty"`
	FirstToken        int64   `json:"first_token,omitempty" yaml:"first-token,omitempty"`
	LastToken         int64   `json:"last_token,omitempty" yaml:"last-token,omitempty"`
	Completion        int64   `json:"completion" yaml:"completion"`
	TokenArrivals     []int64 `json:"token_arrivals,omitempty" yaml:"token-arrivals,omitempty"`
	PromptTokens      int     `json:"prompt_tokens" yaml:"prompt-tokens"`
	OutputTokens      int     `json:"output_tokens" yaml:"output-tokens"`
}

// Counts breaks down how many requests each phase and outcome saw.
type Counts struct {
	Dispatched map[string]int `json:"dispatched_by_phase" yaml:"dispatched-by-phase"`
	Outcomes   map[string]int `json:"measured_by_outcome" yaml:"measured-by-outcome"`
	Errors     map[string]int `json:"errors_by_kind" yaml:"errors-by-kind"`
}

// Report is the immutable per-run result: configuration snapshot, kept
// records, and computed statistics. Field names are stable across the
// JSON, YAML, and CSV serializations.
type Report struct {
	Run RunInfo `json:"run" yaml:"run"`

	// DurationSeconds is the measured-phase wall duration: first measured
	// dispatch to last measured completion.
	DurationSeconds float64 `json:"duration_seconds" yaml:"duration-seconds"`

	Counts Counts `json:"counts" yaml:"counts"`

	// StatisticsDefined is false when zero measured-phase requests
	// completed; the Stats blocks below are then all-zero and must not be
	// interpreted.
	StatisticsDefined bool `json:"statistics_defined" yaml:"statistics-defined"`

	Latency Stats `json:"latency" yaml:"latency"`
	TTFT    Stats `json:"ttft" yaml:"ttft"`
	ITL     Stats `json:"itl" yaml:"itl"`

	RequestRate       float64 `json:"request_rate" yaml:"request-rate"`
	OutputTokenRate   float64 `json:"output_token_rate" yaml:"output-token-rate"`
	TotalOutputTokens int64   `json:"total_output_tokens" yaml:"total-output-tokens"`

	Records []RecordRow `json:"records,omitempty" yaml:"records,omitempty"`
}

func rowFromRecord(r *record.Record) RecordRow {
	row := RecordRow{
		SequenceIndex:     r.SequenceIndex,
		Phase:             string(r.Phase),
		Outcome:           string(r.Outcome),
		TargetedDispatch:  r.Times.TargetedDispatch,
		ActualDispatch:    r.Times.ActualDispatch,
		FirstResponseByte: r.Times.FirstResponseByte,
		FirstToken:        r.Times.FirstToken,
		LastToken:         r.Times.LastToken,
		Completion:        r.Times.Completion,
		TokenArrivals:     r.TokenArrivals,
		PromptTokens:      r.PromptTokens,
		OutputTokens:      r.OutputTokens,
	}
	if r.Error != nil {
		row.ErrorKind = string(r.Error.Kind)
		row.ErrorMessage = r.Error.Message
	}
	return row
}
