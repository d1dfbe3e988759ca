package server

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/guidellm/guidellm-go/internal/logging"
)

// SSEHandler streams job progress as server-sent events.
type SSEHandler struct {
	jobs *JobManager
	log  *logging.Logger
}

// NewSSEHandler creates a new SSE handler
func NewSSEHandler(jobs *JobManager, log *logging.Logger) *SSEHandler {
	return &SSEHandler{jobs: jobs, log: log}
}

// StreamJobProgress streams one job's progress until the client
// disconnects. Completed jobs get their final state immediately.
func (h *SSEHandler) StreamJobProgress(c *gin.Context) {
	jobID := c.Param("jobId")

	job, exists := h.jobs.GetJob(jobID)
	if !exists {
		c.JSON(404, gin.H{"error": "Job not found"})
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("Access-Control-Allow-Origin", "*")
	c.Header("Access-Control-Allow-Headers", "Cache-Control")
	c.Header("Access-Control-Allow-Methods", "GET, OPTIONS")
	c.Header("Access-Control-Expose-Headers", "Content-Type")

	// Send the current state first so late subscribers catch up.
	c.Writer.WriteString(job.ToSSEMessage())
	c.Writer.Flush()

	if job.Status != "running" {
		return
	}

	updateChan := make(chan *Job, 10)
	h.jobs.RegisterSSEListener(jobID, updateChan)
	defer h.jobs.UnregisterSSEListener(jobID, updateChan)

	ctx := c.Request.Context()
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			h.log.InfoWithContext(&logging.Context{JobID: jobID}, "SSE connection closed")
			return
		case <-ticker.C:
			// Keep-alive ping.
			c.Writer.WriteString(fmt.Sprintf("data: {\"type\":\"ping\",\"timestamp\":%q}\n\n",
				time.Now().Format(time.RFC3339)))
			c.Writer.Flush()
		case updatedJob := <-updateChan:
			c.Writer.WriteString(updatedJob.ToSSEMessage())
			c.Writer.Flush()

			if updatedJob.Status != "running" {
				return
			}
		}
	}
}
