package api

import (
	"context"

	"github.com/lauto554/arca-soap/internal/wsaa"
	"github.com/lauto554/arca-soap/pkg/models"
)

// Acquirer yields an access ticket for a tenant against one of the
// WSAA environments.
type Acquirer interface {
	Acquire(ctx context.Context, serviceID, tenantID string, env models.Environment) (*wsaa.AcquisitionResult, error)
}

// Pinger reports whether a backing dependency is reachable.
type Pinger interface {
	HealthCheck(ctx context.Context) error
}
