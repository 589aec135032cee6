package models

import "time"

// RequestLog is one relayed or rejected request. It never holds the credential.
type RequestLog struct {
	ID               string    `json:"id"`
	RequestID        string    `json:"request_id"`
	Model            string    `json:"model"`
	Outcome          string    `json:"outcome"`
	StatusCode       int       `json:"status_code"`
	IsStreaming      bool      `json:"is_streaming"`
	PromptTokens     int       `json:"prompt_tokens"`
	CompletionTokens int       `json:"completion_tokens"`
	TotalTokens      int       `json:"total_tokens"`
	TokensEstimated  bool      `json:"tokens_estimated"`
	ErrorMessage     string    `json:"error_message,omitempty"`
	DurationMs       int64     `json:"duration_ms"`
	CreatedAt        time.Time `json:"created_at"`
}

// LogFilter contains parameters for filtering request logs
type LogFilter struct {
	Model   string
	Outcome string
	Since   *time.Time
	Limit   int
}
