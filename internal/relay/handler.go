// Package relay forwards chat-completion calls from the browser to the
// upstream API with the server-side credential attached.
package relay

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mandalnilabja/chatrelay/internal/storage"
	"github.com/mandalnilabja/chatrelay/internal/transport/http/middleware"
	"github.com/mandalnilabja/chatrelay/internal/types"
	"github.com/mandalnilabja/chatrelay/internal/upstream/deepseek"
)

// DefaultMaxBodyBytes bounds the inbound body when Options leaves it unset.
const DefaultMaxBodyBytes = 1 << 20

// recordTimeout bounds a single history write.
const recordTimeout = 5 * time.Second

// Upstream performs the single outbound call.
type Upstream interface {
	ChatCompletion(ctx context.Context, apiKey string, body []byte) (*deepseek.Response, error)
}

// PromptEstimator estimates prompt tokens from a raw messages array.
type PromptEstimator interface {
	EstimatePrompt(model string, messages []byte) (int, error)
}

// Options configures a Handler. Upstream is required; the rest is optional.
type Options struct {
	// APIKey is the upstream bearer credential. Empty means every request
	// is answered with a configuration error.
	APIKey string

	Defaults     Defaults
	Upstream     Upstream
	MaxBodyBytes int64

	// AllowedMethods is advertised in the Allow header of 405 responses.
	AllowedMethods []string

	Logger    *slog.Logger
	Recorder  storage.Recorder
	Estimator PromptEstimator
}

// Handler is the relay endpoint. It holds no per-request state.
type Handler struct {
	pending sync.WaitGroup

	apiKey       string
	defaults     Defaults
	upstream     Upstream
	maxBodyBytes int64
	allow        string
	logger       *slog.Logger
	recorder     storage.Recorder
	estimator    PromptEstimator
}

// Relayed is an upstream reply ready to be written back to the caller.
type Relayed struct {
	StatusCode  int
	ContentType string
	Body        []byte
}

// New creates a relay Handler.
func New(opts Options) *Handler {
	h := &Handler{
		apiKey:       opts.APIKey,
		defaults:     opts.Defaults,
		upstream:     opts.Upstream,
		maxBodyBytes: opts.MaxBodyBytes,
		logger:       opts.Logger,
		recorder:     opts.Recorder,
		estimator:    opts.Estimator,
	}
	if h.defaults == (Defaults{}) {
		h.defaults = DefaultDefaults
	} else if h.defaults.Model == "" {
		h.defaults.Model = DefaultDefaults.Model
	}
	if h.maxBodyBytes <= 0 {
		h.maxBodyBytes = DefaultMaxBodyBytes
	}
	if h.logger == nil {
		h.logger = slog.New(slog.DiscardHandler)
	}
	allowed := opts.AllowedMethods
	if len(allowed) == 0 {
		allowed = []string{http.MethodPost}
	}
	h.allow = strings.Join(allowed, ", ")
	return h
}

// ServeHTTP relays one request. Every path ends in exactly one complete
// response: the relayed upstream reply or a locally synthesized error.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	requestID := middleware.GetRequestID(r.Context())

	relayed, shaped, err := h.relay(w, r)
	if err != nil {
		h.writeError(w, requestID, err)
	} else {
		writeRelayed(w, relayed)
		if relayed.StatusCode < 200 || relayed.StatusCode >= 300 {
			h.logger.Warn("upstream returned error",
				"request_id", requestID,
				"status", relayed.StatusCode,
				"body", truncate(relayed.Body, 512),
			)
		}
	}

	if h.recorder != nil && r.Method == http.MethodPost {
		entry := newLogEntry(requestID, shaped, relayed, err, time.Since(start))
		h.pending.Add(1)
		go func() {
			defer h.pending.Done()
			h.record(entry, shaped, relayed)
		}()
	}
}

// Wait blocks until every history write started so far has finished. Call it
// after the server has stopped and before the recorder or estimator is closed.
func (h *Handler) Wait() {
	h.pending.Wait()
}

// relay runs validation, body shaping and the outbound call.
func (h *Handler) relay(w http.ResponseWriter, r *http.Request) (*Relayed, *Shaped, error) {
	if r.Method != http.MethodPost {
		return nil, nil, &Error{Kind: KindMethodNotAllowed, Message: "Method not allowed"}
	}

	if h.apiKey == "" {
		return nil, nil, &Error{
			Kind:    KindConfigurationMissing,
			Message: "DEEPSEEK_API_KEY is not set in environment variables",
		}
	}

	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, nil, &Error{Kind: KindMalformedRequest, Message: "Request body too large", Err: err}
		}
		return nil, nil, &Error{Kind: KindMalformedRequest, Message: "Failed to read request body", Err: err}
	}

	body, shaped, err := BuildUpstreamBody(raw, h.defaults)
	if err != nil {
		return nil, nil, err
	}

	resp, err := h.upstream.ChatCompletion(r.Context(), h.apiKey, body)
	if err != nil {
		return nil, shaped, transportFailure(err)
	}

	relayed := &Relayed{StatusCode: resp.StatusCode, Body: resp.Body}
	if json.Valid(resp.Body) {
		relayed.ContentType = "application/json"
	} else {
		relayed.ContentType = "text/plain; charset=utf-8"
	}
	return relayed, shaped, nil
}

// writeError is the single point where relay failures become wire responses.
func (h *Handler) writeError(w http.ResponseWriter, requestID string, err error) {
	var rerr *Error
	if !errors.As(err, &rerr) {
		rerr = transportFailure(err)
	}

	switch rerr.Kind {
	case KindMethodNotAllowed:
		w.Header().Set("Allow", h.allow)
		types.WriteError(w, rerr.Kind.Status(), types.NewError(rerr.Message))
	case KindConfigurationMissing:
		h.logger.Error("relay misconfigured", "request_id", requestID, "error", rerr.Message)
		types.WriteError(w, rerr.Kind.Status(), types.NewError(rerr.Message))
	case KindMalformedRequest:
		types.WriteError(w, rerr.Kind.Status(), types.NewError(rerr.Message))
	default:
		cause := rerr.Message
		if rerr.Err != nil {
			cause = rerr.Err.Error()
		}
		h.logger.Error("proxy error", "request_id", requestID, "error", cause)
		types.WriteError(w, http.StatusInternalServerError, types.NewErrorWithMessage("Proxy error", cause))
	}
}

func writeRelayed(w http.ResponseWriter, relayed *Relayed) {
	w.Header().Set("Content-Type", relayed.ContentType)
	w.WriteHeader(relayed.StatusCode)
	_, _ = w.Write(relayed.Body)
}

func newLogEntry(requestID string, shaped *Shaped, relayed *Relayed, err error, elapsed time.Duration) *storage.RequestLog {
	entry := &storage.RequestLog{
		ID:         uuid.New().String(),
		RequestID:  requestID,
		DurationMs: elapsed.Milliseconds(),
		CreatedAt:  time.Now().UTC(),
	}
	if shaped != nil {
		entry.Model = shaped.Model
		entry.IsStreaming = shaped.Stream
	}

	var rerr *Error
	switch {
	case errors.As(err, &rerr):
		entry.Outcome = rerr.Kind.String()
		entry.StatusCode = rerr.Kind.Status()
		entry.ErrorMessage = rerr.Error()
	case err != nil:
		entry.Outcome = KindTransport.String()
		entry.StatusCode = http.StatusInternalServerError
		entry.ErrorMessage = err.Error()
	case relayed.StatusCode >= 200 && relayed.StatusCode < 300:
		entry.Outcome = OutcomeRelayed
		entry.StatusCode = relayed.StatusCode
	default:
		entry.Outcome = KindUpstream.String()
		entry.StatusCode = relayed.StatusCode
	}
	return entry
}

// record fills token counts and writes the entry. It runs off the response path.
func (h *Handler) record(entry *storage.RequestLog, shaped *Shaped, relayed *Relayed) {
	if relayed != nil {
		if usage := extractUsage(relayed); usage != nil {
			entry.PromptTokens = usage.PromptTokens
			entry.CompletionTokens = usage.CompletionTokens
			entry.TotalTokens = usage.TotalTokens
		}
	}
	if entry.TotalTokens == 0 && shaped != nil && h.estimator != nil {
		n, err := h.estimator.EstimatePrompt(shaped.Model, shaped.Messages)
		if err != nil {
			h.logger.Debug("prompt estimate unavailable", "request_id", entry.RequestID, "error", err)
		} else {
			entry.PromptTokens = n
			entry.TotalTokens = n
			entry.TokensEstimated = true
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
	defer cancel()
	if err := h.recorder.LogRequest(ctx, entry); err != nil {
		h.logger.Warn("failed to record request", "request_id", entry.RequestID, "error", err)
	}
}

func extractUsage(relayed *Relayed) *types.Usage {
	if relayed.ContentType != "application/json" {
		return nil
	}
	var completion types.ChatCompletionResponse
	if err := json.Unmarshal(relayed.Body, &completion); err != nil {
		return nil
	}
	return completion.Usage
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
