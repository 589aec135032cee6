package infra

import "time"

// Handlers holds the dependencies for infrastructure HTTP handlers.
type Handlers struct {
	StartTime            time.Time
	CredentialConfigured bool
}

// New creates a new instance of infrastructure handlers.
func New(startTime time.Time, credentialConfigured bool) *Handlers {
	return &Handlers{
		StartTime:            startTime,
		CredentialConfigured: credentialConfigured,
	}
}
