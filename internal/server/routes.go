package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/guidellm/guidellm-go/internal/logging"
)

// SetupRoutes configures all HTTP routes and returns the job manager so
// the caller can schedule cleanup.
func SetupRoutes(router *gin.Engine, log *logging.Logger) *JobManager {
	hub := NewHub(log)
	jobs := NewJobManager(hub, log)
	handlers := NewHandlers(jobs, log)
	sse := NewSSEHandler(jobs, log)

	router.Use(RecoveryMiddleware(log))
	router.Use(CORSMiddleware())
	router.Use(LoggingMiddleware(log))

	api := router.Group("/api")
	{
		api.GET("/health", handlers.Health)
		api.GET("/models", handlers.Models)

		api.POST("/benchmark", handlers.StartBenchmark)

		api.GET("/jobs", handlers.ListJobs)
		api.GET("/jobs/:jobId", handlers.GetJobStatus)
		api.POST("/jobs/:jobId/cancel", handlers.CancelJob)
		api.GET("/jobs/:jobId/stream", sse.StreamJobProgress)
	}

	// Websocket push channel, carrying the same job-update JSON the SSE
	// streams do.
	router.GET("/ws", hub.ServeWS)

	router.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "GuideLLM benchmark API",
			"status":  "ok",
			"endpoints": gin.H{
				"health":    "/api/health",
				"models":    "/api/models",
				"benchmark": "/api/benchmark",
				"jobs":      "/api/jobs",
				"websocket": "/ws",
			},
		})
	})

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error:   "Not Found",
			Message: "The requested endpoint does not exist",
			Code:    http.StatusNotFound,
		})
	})

	return jobs
}
