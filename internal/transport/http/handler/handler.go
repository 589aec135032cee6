// Package handler composes the HTTP handlers served by the router.
package handler

import (
	"time"

	"github.com/mandalnilabja/chatrelay/internal/relay"
	"github.com/mandalnilabja/chatrelay/internal/transport/http/handler/infra"
)

// Repo composes all domain-specific handlers.
type Repo struct {
	Relay *relay.Handler
	Infra *infra.Handlers
}

// NewRepo creates a new instance of the composed handler repository.
func NewRepo(relayHandler *relay.Handler, credentialConfigured bool) *Repo {
	return &Repo{
		Relay: relayHandler,
		Infra: infra.New(time.Now(), credentialConfigured),
	}
}
