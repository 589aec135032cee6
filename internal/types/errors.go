package types

import (
	"encoding/json"
	"net/http"
)

// ErrorResponse is the envelope for every locally synthesized error.
// Client errors carry only Error; server errors add Message or Detail.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Detail  any    `json:"detail,omitempty"`
}

// NewError creates an error envelope with just a description.
func NewError(description string) *ErrorResponse {
	return &ErrorResponse{Error: description}
}

// NewErrorWithMessage creates an error envelope carrying a failure message.
func NewErrorWithMessage(description, message string) *ErrorResponse {
	return &ErrorResponse{Error: description, Message: message}
}

// WriteError writes an error envelope to the response writer.
func WriteError(w http.ResponseWriter, statusCode int, err *ErrorResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(err)
}
