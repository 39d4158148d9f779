package http

import (
	"context"

	"github.com/nats-io/nats.go"

	"github.com/samirrijal/civic311/internal/core/usecases"
)

// Pinger is implemented by backing stores checked by the readiness probe.
type Pinger interface {
	Ping(ctx context.Context) error
}

// BreakerReporter reports the state of the circuit breaker guarding an
// upstream ("closed", "half-open" or "open").
type BreakerReporter interface {
	State() string
}

// Dependencies holds all services needed by HTTP handlers.
type Dependencies struct {
	Jurisdictions *usecases.JurisdictionService
	Boundaries    *usecases.BoundaryService
	Locator       *usecases.Locator
	Requests      *usecases.ServiceRequestService
	Projects      *usecases.ProjectService
	NATS          *nats.Conn
	DB            Pinger
	Cache         Pinger
	Classifier    BreakerReporter
}
