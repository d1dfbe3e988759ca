package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/guidellm/guidellm-go/internal/logging"
	"github.com/guidellm/guidellm-go/internal/server"
)

func main() {
	log := logging.New()

	if os.Getenv("GIN_MODE") == "" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	jobs := server.SetupRoutes(router, log)

	// Completed jobs are kept for a day so dashboards can re-fetch
	// reports, then reaped.
	go func() {
		ticker := time.NewTicker(1 * time.Hour)
		defer ticker.Stop()
		for range ticker.C {
			jobs.CleanupOldJobs(24 * time.Hour)
		}
	}()

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	srv := &http.Server{
		Addr:           fmt.Sprintf(":%s", port),
		Handler:        router,
		ReadTimeout:    5 * time.Minute,
		WriteTimeout:   0, // disabled for SSE connections
		MaxHeaderBytes: 1 << 20,
	}

	go func() {
		log.Info("server starting on port %s", port)
		log.Info("API endpoints available at http://localhost:%s/api", port)
		log.Info("websocket endpoint available at ws://localhost:%s/ws", port)

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("server forced to shutdown: %v", err)
	}

	log.Info("server exited gracefully")
}
