package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestPerformHealthCheck(t *testing.T) {
	tests := []struct {
		name         string
		statusCode   int
		responseBody interface{}
		expectError  bool
		expectStatus string
	}{
		{
			name:         "liveness ok",
			statusCode:   http.StatusOK,
			responseBody: HealthResponse{Status: "ok"},
			expectStatus: "ok",
		},
		{
			name:       "ready",
			statusCode: http.StatusOK,
			responseBody: HealthResponse{
				Status: "healthy",
				Checks: map[string]CheckResult{"database": {Status: "pass"}},
			},
			expectStatus: "healthy",
		},
		{
			name:         "unhealthy server (503)",
			statusCode:   http.StatusServiceUnavailable,
			responseBody: HealthResponse{Status: "unhealthy"},
			expectError:  true,
		},
		{
			name:         "unexpected status in body",
			statusCode:   http.StatusOK,
			responseBody: HealthResponse{Status: "shutting_down"},
			expectError:  true,
			expectStatus: "shutting_down",
		},
		{
			name:         "invalid response",
			statusCode:   http.StatusOK,
			responseBody: "not json",
			expectError:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.statusCode)
				if str, ok := tt.responseBody.(string); ok {
					fmt.Fprint(w, str)
				} else {
					_ = json.NewEncoder(w).Encode(tt.responseBody)
				}
			}))
			defer server.Close()

			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()

			resp, err := performHealthCheck(ctx, server.URL)
			if tt.expectError && err == nil {
				t.Fatalf("expected error, got none")
			}
			if !tt.expectError && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if resp.Status != tt.expectStatus {
				t.Errorf("status = %q, want %q", resp.Status, tt.expectStatus)
			}
		})
	}
}

func TestPerformHealthCheckUnreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	if _, err := performHealthCheck(context.Background(), url); err == nil {
		t.Fatal("expected error for closed server")
	}
}

func TestDefaultHealthURL(t *testing.T) {
	t.Setenv("SERVER_PORT", "")
	if got := defaultHealthURL(); got != "http://localhost:8080/healthz" {
		t.Errorf("default url = %q", got)
	}
	t.Setenv("SERVER_PORT", "9000")
	if got := defaultHealthURL(); got != "http://localhost:9000/healthz" {
		t.Errorf("url with SERVER_PORT = %q", got)
	}
}

func TestHealthcheckCommand(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/healthz" {
			http.NotFound(w, r)
			return
		}
		_ = json.NewEncoder(w).Encode(HealthResponse{Status: "ok"})
	}))
	defer server.Close()

	output, err := execute(t, "healthcheck", "--url", server.URL+"/healthz")
	if err != nil {
		t.Fatalf("healthcheck: %v", err)
	}
	if output != "Server status: ok\n" {
		t.Errorf("output = %q", output)
	}
}
