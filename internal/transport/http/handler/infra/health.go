package infra

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/mandalnilabja/chatrelay/internal/version"
)

// RootStatus returns JSON status and version information at /.
func (h *Handlers) RootStatus(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"name":    "chatrelay",
		"version": version.Version,
		"status":  "running",
		"uptime":  time.Since(h.StartTime).Round(time.Second).String(),
		"relay":   "/api/deepseek-chat",
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

// HealthCheck reports liveness and whether an upstream credential is set.
// It never reveals the credential.
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"status":     "active",
		"app":        "chatrelay",
		"credential": h.CredentialConfigured,
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}
