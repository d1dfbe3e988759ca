package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/guidellm/guidellm-go/internal/backend"
	"github.com/guidellm/guidellm-go/internal/clock"
	"github.com/guidellm/guidellm-go/internal/logging"
)

// Handlers bundles the HTTP endpoints with their dependencies.
type Handlers struct {
	jobs *JobManager
	log  *logging.Logger
}

// NewHandlers creates the handler set.
func NewHandlers(jobs *JobManager, log *logging.Logger) *Handlers {
	return &Handlers{jobs: jobs, log: log}
}

// Health answers liveness probes.
func (h *Handlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// Models lists the models the target backend advertises. The target is
// passed as a query parameter since the server itself is backend-
// agnostic.
func (h *Handlers) Models(c *gin.Context) {
	target := c.Query("target")
	if target == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "Bad Request",
			Message: "target query parameter is required",
			Code:    http.StatusBadRequest,
		})
		return
	}

	adapter := backend.NewOpenAIAdapter(target, c.Query("apiKey"), "", clock.New())
	models, err := adapter.DiscoverModels(c.Request.Context())
	if err != nil {
		h.log.Error("model discovery failed for %s: %v", target, err)
		c.JSON(http.StatusBadGateway, ErrorResponse{
			Error:   "Bad Gateway",
			Message: err.Error(),
			Code:    http.StatusBadGateway,
		})
		return
	}

	c.JSON(http.StatusOK, ModelsResponse{Models: models, Count: len(models)})
}

// StartBenchmark accepts a benchmark request and launches it as an
// asynchronous job.
func (h *Handlers) StartBenchmark(c *gin.Context) {
	var request JobRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "Bad Request",
			Message: err.Error(),
			Code:    http.StatusBadRequest,
		})
		return
	}

	jobID, err := h.jobs.StartJob(request)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "Bad Request",
			Message: err.Error(),
			Code:    http.StatusBadRequest,
		})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"jobId":  jobID,
		"status": "running",
		"stream": "/api/jobs/" + jobID + "/stream",
	})
}

// GetJobStatus returns the full job, including the result once the run
// has finished.
func (h *Handlers) GetJobStatus(c *gin.Context) {
	jobID := c.Param("jobId")
	job, exists := h.jobs.GetJob(jobID)
	if !exists {
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error:   "Not Found",
			Message: "job not found",
			Code:    http.StatusNotFound,
		})
		return
	}
	c.JSON(http.StatusOK, job)
}

// ListJobs returns every known job's summary.
func (h *Handlers) ListJobs(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"jobs": h.jobs.ListJobs()})
}

// CancelJob cancels a running job.
func (h *Handlers) CancelJob(c *gin.Context) {
	jobID := c.Param("jobId")

	h.log.InfoWithContext(&logging.Context{JobID: jobID}, "received cancellation request")

	if h.jobs.CancelJob(jobID) {
		c.JSON(http.StatusOK, gin.H{
			"message": "Benchmark cancelled successfully",
			"jobId":   jobID,
			"status":  "cancelled",
		})
		return
	}
	c.JSON(http.StatusNotFound, gin.H{
		"error":  "Job not found or not cancellable",
		"jobId":  jobID,
		"status": "not_found",
	})
}
