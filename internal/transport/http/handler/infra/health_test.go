package infra

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestHealthCheck(t *testing.T) {
	tests := []struct {
		name       string
		configured bool
	}{
		{"credential configured", true},
		{"credential missing", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := New(time.Now(), tt.configured)
			rec := httptest.NewRecorder()
			h.HealthCheck(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))

			if rec.Code != http.StatusOK {
				t.Fatalf("expected status 200, got %d", rec.Code)
			}
			var body map[string]any
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("invalid JSON: %v", err)
			}
			if body["status"] != "active" {
				t.Errorf("status = %v", body["status"])
			}
			if body["credential"] != tt.configured {
				t.Errorf("credential = %v, want %v", body["credential"], tt.configured)
			}
		})
	}
}

func TestRootStatus(t *testing.T) {
	h := New(time.Now().Add(-time.Minute), true)
	rec := httptest.NewRecorder()
	h.RootStatus(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if body["name"] != "chatrelay" || body["relay"] != "/api/deepseek-chat" {
		t.Errorf("unexpected body: %v", body)
	}
	if body["version"] == "" {
		t.Error("expected version")
	}
}
