package server

import (
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/guidellm/guidellm-go/internal/logging"
)

// CORSMiddleware adds CORS headers. Origins come from CORS_ORIGIN
// (comma-separated) and default to allowing all, which suits a
// locally-run benchmark dashboard.
func CORSMiddleware() gin.HandlerFunc {
	allowed := []string{"*"}
	if origins := os.Getenv("CORS_ORIGIN"); origins != "" {
		allowed = strings.Split(origins, ",")
		for i := range allowed {
			allowed[i] = strings.TrimSpace(allowed[i])
		}
	}

	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")

		if len(allowed) == 1 && allowed[0] == "*" {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		} else {
			for _, a := range allowed {
				if a == origin {
					c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
					break
				}
			}
		}
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, Cache-Control")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// RecoveryMiddleware recovers from handler panics with a JSON 500.
func RecoveryMiddleware(log *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				log.Error("handler panic on %s: %v", c.Request.URL.Path, r)
				c.AbortWithStatusJSON(http.StatusInternalServerError, ErrorResponse{
					Error:   "Internal Server Error",
					Message: "unexpected server error",
					Code:    http.StatusInternalServerError,
				})
			}
		}()
		c.Next()
	}
}

// LoggingMiddleware logs one line per request with latency and status.
func LoggingMiddleware(log *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		// SSE streams hold the connection open; skip their noisy exit logs.
		if strings.HasSuffix(c.Request.URL.Path, "/stream") {
			return
		}

		log.InfoWithFields("%s %s", map[string]interface{}{
			"status":  c.Writer.Status(),
			"latency": time.Since(start).String(),
			"client":  c.ClientIP(),
		}, c.Request.Method, c.Request.URL.Path)
	}
}
