package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/guidellm/guidellm-go/internal/logging"
)

func testRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	SetupRoutes(router, logging.Discard())
	return router
}

func TestHealthEndpoint(t *testing.T) {
	router := testRouter()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var body map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("unexpected health body: %v", body)
	}
}

func TestStartBenchmarkRejectsMissingTarget(t *testing.T) {
	router := testRouter()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/benchmark", strings.NewReader(`{"model":"m"}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing target, got %d", w.Code)
	}
}

func TestStartBenchmarkRejectsInvalidConfig(t *testing.T) {
	router := testRouter()

	// constant without a rate fails config validation before any job is
	// created.
	body := `{"target":"http://localhost:8000/v1","rateType":"constant"}`
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/benchmark", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for invalid config, got %d", w.Code)
	}
}

func TestGetUnknownJobReturns404(t *testing.T) {
	router := testRouter()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/jobs/nope", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestCancelUnknownJobReturns404(t *testing.T) {
	router := testRouter()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/jobs/nope/cancel", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestListJobsEmpty(t *testing.T) {
	router := testRouter()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/jobs", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var body struct {
		Jobs []JobState `json:"jobs"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if len(body.Jobs) != 0 {
		t.Errorf("expected empty job list, got %d entries", len(body.Jobs))
	}
}

func TestModelsRequiresTarget(t *testing.T) {
	router := testRouter()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/models", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without target, got %d", w.Code)
	}
}

func TestJobRequestToConfig(t *testing.T) {
	maxRequests := 100
	req := JobRequest{
		Target:         "http://localhost:8000/v1",
		Model:          "m",
		RateType:       "poisson",
		Rate:           25,
		MaxRequests:    &maxRequests,
		MaxConcurrency: 16,
		WarmupPercent:  10,
		RandomSeed:     7,
	}

	cfg := req.ToConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("converted config should validate: %v", err)
	}
	if cfg.RateType != "poisson" || cfg.Rate != 25 {
		t.Errorf("strategy not mapped: %+v", cfg)
	}
	if cfg.MaxRequests != 100 {
		t.Errorf("request cap not mapped: %d", cfg.MaxRequests)
	}
	if cfg.MaxConcurrency != 16 || cfg.RandomSeed != 7 {
		t.Errorf("overrides not mapped: %+v", cfg)
	}
	if cfg.RequestTimeout == 0 {
		t.Error("defaults must survive the overlay")
	}
	if cfg.Format != "json" {
		t.Errorf("server jobs must serialize as JSON, got %q", cfg.Format)
	}
}

func TestJobRequestExplicitZeroMaxRequests(t *testing.T) {
	zero := 0
	req := JobRequest{Target: "http://localhost:8000/v1", MaxRequests: &zero}

	cfg := req.ToConfig()
	if cfg.MaxRequests != 0 {
		t.Errorf("explicit zero cap must map through, got %d", cfg.MaxRequests)
	}

	omitted := JobRequest{Target: "http://localhost:8000/v1"}
	if got := omitted.ToConfig().MaxRequests; got != -1 {
		t.Errorf("omitted cap must keep the unlimited default, got %d", got)
	}
}
