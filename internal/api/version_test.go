package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"runtime"
	"testing"
)

func TestVersionHandler(t *testing.T) {
	tests := []struct {
		name string
		info BuildInfo
		want BuildInfo
	}{
		{
			name: "with all values",
			info: BuildInfo{Version: "0.1.0", GitCommit: "abc123def456", BuildDate: "2026-01-28T12:00:00Z"},
			want: BuildInfo{Version: "0.1.0", GitCommit: "abc123def456", BuildDate: "2026-01-28T12:00:00Z"},
		},
		{
			name: "with defaults",
			want: BuildInfo{Version: "dev", GitCommit: "unknown", BuildDate: "unknown"},
		},
		{
			name: "with partial values",
			info: BuildInfo{Version: "1.0.0", BuildDate: "2026-01-28T12:00:00Z"},
			want: BuildInfo{Version: "1.0.0", GitCommit: "unknown", BuildDate: "2026-01-28T12:00:00Z"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			versionHandler(tt.info).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/version", nil))

			if rec.Code != http.StatusOK {
				t.Fatalf("expected 200, got %d", rec.Code)
			}
			var body versionResponse
			if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if body.BuildInfo != tt.want {
				t.Errorf("got %+v, want %+v", body.BuildInfo, tt.want)
			}
			if body.GoVersion != runtime.Version() {
				t.Errorf("expected go version %s, got %s", runtime.Version(), body.GoVersion)
			}
		})
	}
}
