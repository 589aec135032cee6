package relay

import (
	"fmt"
	"net/http"
)

// Kind classifies why a request did not end in a clean relay.
type Kind int

const (
	// KindMethodNotAllowed: inbound method is not POST.
	KindMethodNotAllowed Kind = iota + 1
	// KindConfigurationMissing: no upstream credential is configured.
	// Not retryable; needs operator action.
	KindConfigurationMissing
	// KindMalformedRequest: the body could not be parsed or a field has the wrong type.
	KindMalformedRequest
	// KindUpstream: the upstream answered non-2xx. Its reply is relayed as is,
	// so this kind only shows up in logs and request history.
	KindUpstream
	// KindTransport: the outbound call failed or something unexpected broke.
	KindTransport
)

// String returns the snake_case name used in logs and request history.
func (k Kind) String() string {
	switch k {
	case KindMethodNotAllowed:
		return "method_not_allowed"
	case KindConfigurationMissing:
		return "configuration_missing"
	case KindMalformedRequest:
		return "malformed_request"
	case KindUpstream:
		return "upstream_error"
	case KindTransport:
		return "transport_failure"
	default:
		return "unknown"
	}
}

// Status is the HTTP status a locally synthesized response carries.
func (k Kind) Status() int {
	switch k {
	case KindMethodNotAllowed:
		return http.StatusMethodNotAllowed
	case KindMalformedRequest:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// OutcomeRelayed is recorded for requests whose upstream reply was 2xx.
const OutcomeRelayed = "relayed"

// Error is a relay failure tagged with its Kind.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func malformed(message string) *Error {
	return &Error{Kind: KindMalformedRequest, Message: message}
}

func transportFailure(err error) *Error {
	return &Error{Kind: KindTransport, Message: "Proxy error", Err: err}
}
