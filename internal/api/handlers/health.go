package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// Pinger is satisfied by *pgxpool.Pool and the postgres executor.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthCheck represents the health status of the server
type HealthCheck struct {
	Status    string                 `json:"status"`
	Version   string                 `json:"version"`
	GitCommit string                 `json:"git_commit"`
	Checks    map[string]CheckResult `json:"checks,omitempty"`
	Timestamp string                 `json:"timestamp"`
}

// CheckResult represents the result of a single health check
type CheckResult struct {
	Status    string `json:"status"`
	Message   string `json:"message,omitempty"`
	LatencyMs int64  `json:"latency_ms"`
}

// HealthChecker serves liveness and readiness. A nil database means the
// server runs on the in-memory store and is always ready.
type HealthChecker struct {
	db        Pinger
	version   string
	gitCommit string
	timeout   time.Duration
	now       func() time.Time
}

func NewHealthChecker(db Pinger, version, gitCommit string) *HealthChecker {
	return &HealthChecker{
		db:        db,
		version:   version,
		gitCommit: gitCommit,
		timeout:   2 * time.Second,
		now:       time.Now,
	}
}

// Healthz reports that the process is serving.
func (h *HealthChecker) Healthz(w http.ResponseWriter, r *http.Request) {
	writeHealth(w, http.StatusOK, HealthCheck{
		Status:    "ok",
		Version:   h.version,
		GitCommit: h.gitCommit,
		Timestamp: h.now().UTC().Format(time.RFC3339),
	})
}

// Readyz pings the database and answers 503 when it cannot be reached or
// the server is shutting down.
func (h *HealthChecker) Readyz(w http.ResponseWriter, r *http.Request) {
	if r.Context().Err() != nil {
		writeHealth(w, http.StatusServiceUnavailable, HealthCheck{Status: "shutting_down"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	check := h.checkDatabase(ctx)
	status, code := "healthy", http.StatusOK
	if check.Status == "fail" {
		status, code = "unhealthy", http.StatusServiceUnavailable
	}

	writeHealth(w, code, HealthCheck{
		Status:    status,
		Version:   h.version,
		GitCommit: h.gitCommit,
		Checks:    map[string]CheckResult{"database": check},
		Timestamp: h.now().UTC().Format(time.RFC3339),
	})
}

func (h *HealthChecker) checkDatabase(ctx context.Context) CheckResult {
	if h.db == nil {
		return CheckResult{Status: "pass", Message: "in-memory store"}
	}

	start := time.Now()
	err := h.db.Ping(ctx)
	latency := time.Since(start).Milliseconds()
	if err != nil {
		return CheckResult{Status: "fail", Message: "database unreachable", LatencyMs: latency}
	}
	return CheckResult{Status: "pass", LatencyMs: latency}
}

func writeHealth(w http.ResponseWriter, status int, body HealthCheck) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
