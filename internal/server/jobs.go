package server

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/guidellm/guidellm-go/internal/backend"
	"github.com/guidellm/guidellm-go/internal/benchmarker"
	"github.com/guidellm/guidellm-go/internal/clock"
	"github.com/guidellm/guidellm-go/internal/config"
	"github.com/guidellm/guidellm-go/internal/logging"
	"github.com/guidellm/guidellm-go/internal/record"
	"github.com/guidellm/guidellm-go/internal/source"
)

// Job is one asynchronous benchmark run with its live status.
type Job struct {
	ID          string              `json:"id"`
	Status      string              `json:"status"`   // "running", "completed", "failed", "cancelled"
	Progress    int                 `json:"progress"` // 0-100
	Message     string              `json:"message"`
	Result      *benchmarker.Result `json:"result,omitempty"`
	Error       string              `json:"error,omitempty"`
	CreatedAt   time.Time           `json:"createdAt"`
	CompletedAt *time.Time          `json:"completedAt,omitempty"`
	Request     JobRequest          `json:"request"`

	cancel context.CancelFunc
}

// ToSSEMessage formats the job as a server-sent event frame.
func (job *Job) ToSSEMessage() string {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Sprintf("data: {\"id\":%q,\"status\":\"error\"}\n\n", job.ID)
	}
	return fmt.Sprintf("data: %s\n\n", data)
}

// JobManager owns every benchmark job the server has accepted: creation,
// execution, cancellation, and fan-out of progress updates to SSE
// listeners and the websocket hub.
type JobManager struct {
	mu        sync.RWMutex
	jobs      map[string]*Job
	listeners map[string][]chan *Job
	hub       *Hub
	log       *logging.Logger
}

// NewJobManager creates a new job manager broadcasting through hub.
func NewJobManager(hub *Hub, log *logging.Logger) *JobManager {
	return &JobManager{
		jobs:      make(map[string]*Job),
		listeners: make(map[string][]chan *Job),
		hub:       hub,
		log:       log,
	}
}

// StartJob validates the request, creates the job, and launches the
// benchmark in the background. The returned job ID is immediately
// streamable.
func (jm *JobManager) StartJob(request JobRequest) (string, error) {
	cfg := request.ToConfig()
	if err := cfg.Validate(); err != nil {
		return "", fmt.Errorf("invalid benchmark request: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	jm.mu.Lock()
	jobID := uuid.New().String()
	job := &Job{
		ID:        jobID,
		Status:    "running",
		Message:   "Starting benchmark...",
		CreatedAt: time.Now(),
		Request:   request,
		cancel:    cancel,
	}
	jm.jobs[jobID] = job
	jm.mu.Unlock()

	jm.log.InfoWithContext(&logging.Context{JobID: jobID, Model: cfg.Model}, "job created")

	go jm.execute(ctx, job, cfg)
	return jobID, nil
}

// GetJob retrieves a job by ID.
func (jm *JobManager) GetJob(jobID string) (*Job, bool) {
	jm.mu.RLock()
	defer jm.mu.RUnlock()
	job, exists := jm.jobs[jobID]
	return job, exists
}

// ListJobs returns every job's summary state, newest first not
// guaranteed; callers sort as needed.
func (jm *JobManager) ListJobs() []JobState {
	jm.mu.RLock()
	defer jm.mu.RUnlock()

	out := make([]JobState, 0, len(jm.jobs))
	for _, job := range jm.jobs {
		out = append(out, JobState{
			ID:          job.ID,
			Status:      job.Status,
			Progress:    job.Progress,
			Message:     job.Message,
			CreatedAt:   job.CreatedAt,
			CompletedAt: job.CompletedAt,
		})
	}
	return out
}

// CancelJob cancels a running job. Returns false if the job does not
// exist or is not running.
func (jm *JobManager) CancelJob(jobID string) bool {
	jm.mu.Lock()
	job, exists := jm.jobs[jobID]
	if !exists || job.Status != "running" {
		jm.mu.Unlock()
		return false
	}
	cancel := job.cancel
	jm.mu.Unlock()

	// The run's drain path marks in-flight requests cancelled and the
	// execute goroutine observes the context error to finalize status.
	cancel()
	jm.log.InfoWithContext(&logging.Context{JobID: jobID}, "cancellation requested")
	return true
}

// RegisterSSEListener registers a channel to receive job updates
func (jm *JobManager) RegisterSSEListener(jobID string, updateChan chan *Job) {
	jm.mu.Lock()
	defer jm.mu.Unlock()
	jm.listeners[jobID] = append(jm.listeners[jobID], updateChan)
}

// UnregisterSSEListener removes a channel from job updates
func (jm *JobManager) UnregisterSSEListener(jobID string, updateChan chan *Job) {
	jm.mu.Lock()
	defer jm.mu.Unlock()

	chans := jm.listeners[jobID]
	for i, ch := range chans {
		if ch == updateChan {
			jm.listeners[jobID] = append(chans[:i], chans[i+1:]...)
			break
		}
	}
}

// CleanupOldJobs removes completed jobs older than maxAge.
func (jm *JobManager) CleanupOldJobs(maxAge time.Duration) {
	jm.mu.Lock()
	defer jm.mu.Unlock()

	cutoff := time.Now().Add(-maxAge)
	for jobID, job := range jm.jobs {
		if job.CompletedAt != nil && job.CompletedAt.Before(cutoff) {
			delete(jm.jobs, jobID)
			jm.log.Debug("cleaned up old job %s", jobID)
		}
	}
}

// execute runs the benchmark and finalizes job state.
func (jm *JobManager) execute(ctx context.Context, job *Job, cfg config.Config) {
	defer func() {
		if r := recover(); r != nil {
			jm.log.ErrorWithContext(&logging.Context{JobID: job.ID}, "job panicked: %v", r)
			jm.finish(job, nil, fmt.Errorf("internal error: %v", r))
		}
	}()

	clk := clock.New()
	adapter := backend.NewOpenAIAdapter(cfg.Target, cfg.APIKey, cfg.Model, clk)
	src := buildSource(cfg)

	b := benchmarker.New(cfg, adapter, src, jm.log)
	b.OnProgress = func(u benchmarker.ProgressUpdate) {
		jm.updateProgress(job, u, cfg)
	}

	result, err := b.Run(ctx)
	if ctx.Err() != nil {
		jm.finishCancelled(job, result)
		return
	}
	jm.finish(job, result, err)
}

// buildSource constructs the job's request source: a fixed single-prompt
// loop when a prompt is given, synthetic generation otherwise.
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

// updateProgress recomputes the job's percent and message from a live
// update and fans it out.
func (jm *JobManager) updateProgress(job *Job, u benchmarker.ProgressUpdate, cfg config.Config) {
	runFraction := 0.0
	if cfg.MaxRequests > 0 {
		runFraction = float64(u.Scheduler.DispatchedTotal) / float64(cfg.MaxRequests)
	}
	if runFraction > 1 {
		runFraction = 1
	}
	percent := 0
	if u.TotalRuns > 0 {
		percent = int((float64(u.RunIndex) + runFraction) / float64(u.TotalRuns) * 100)
	}

	message := fmt.Sprintf("%s: %d dispatched, %d in flight, %.1f req/s",
		u.RunLabel, u.Scheduler.DispatchedTotal, u.Scheduler.InFlight, u.Aggregate.RequestRate)

	jm.mu.Lock()
	job.Progress = percent
	job.Message = message
	jm.mu.Unlock()

	jm.notify(job)
}

func (jm *JobManager) finish(job *Job, result *benchmarker.Result, err error) {
	jm.mu.Lock()
	now := time.Now()
	job.CompletedAt = &now
	if err != nil {
		job.Status = "failed"
		job.Error = err.Error()
		job.Message = "Benchmark failed"
	} else {
		job.Status = "completed"
		job.Progress = 100
		job.Result = result
		job.Message = "Benchmark completed"
	}
	jm.mu.Unlock()

	if err != nil {
		jm.log.ErrorWithContext(&logging.Context{JobID: job.ID}, "job failed: %v", err)
	} else {
		jm.log.InfoWithContext(&logging.Context{JobID: job.ID}, "job completed")
	}
	jm.notify(job)
}

func (jm *JobManager) finishCancelled(job *Job, result *benchmarker.Result) {
	jm.mu.Lock()
	now := time.Now()
	job.CompletedAt = &now
	job.Status = "cancelled"
	job.Message = "Benchmark cancelled"
	// Partial results from the drain are still reported.
	job.Result = result
	jm.mu.Unlock()

	jm.log.InfoWithContext(&logging.Context{JobID: job.ID}, "job cancelled")
	jm.notify(job)
}

// notify pushes the job's current state to SSE listeners and the
// websocket hub.
func (jm *JobManager) notify(job *Job) {
	jm.mu.RLock()
	chans := append([]chan *Job(nil), jm.listeners[job.ID]...)
	jm.mu.RUnlock()

	for _, ch := range chans {
		select {
		case ch <- job:
		default:
			// Slow listener; it will catch up on the next update.
		}
	}

	if jm.hub != nil {
		if data, err := json.Marshal(job); err == nil {
			jm.hub.BroadcastMessage(data)
		}
	}
}
