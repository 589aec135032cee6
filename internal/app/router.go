package app

import (
	"log/slog"
	"net/http"

	"github.com/mandalnilabja/chatrelay/internal/transport/http/handler"
	"github.com/mandalnilabja/chatrelay/internal/transport/http/middleware"
)

// Relay paths. The first matches the original serverless deployment.
const (
	RelayPath       = "/api/deepseek-chat"
	OpenAIRelayPath = "/v1/chat/completions"
)

// RouterOptions configures the HTTP router behavior.
type RouterOptions struct {
	EnableCORS bool
	Logger     *slog.Logger
}

// NewRouter creates and configures the HTTP router with all application routes.
// Returns an http.Handler with middleware applied.
func NewRouter(repo *handler.Repo, opts *RouterOptions) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/health", repo.Infra.HealthCheck)

	// Relay routes take every method so the relay itself can answer 405.
	mux.Handle(RelayPath, repo.Relay)
	mux.Handle(OpenAIRelayPath, repo.Relay)

	mux.HandleFunc("GET /{$}", repo.Infra.RootStatus)

	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	// Apply middleware chain (order: inner to outer)
	var h http.Handler = mux
	h = middleware.Recover(logger)(h)
	h = middleware.RequestLogger(logger)(h)
	h = middleware.RequestID(h)

	if opts.EnableCORS {
		h = middleware.CORS(h)
	}

	return h
}

// AllowedMethods is what the relay advertises on 405 responses.
func AllowedMethods(enableCORS bool) []string {
	if enableCORS {
		return []string{http.MethodPost, http.MethodOptions}
	}
	return []string{http.MethodPost}
}
