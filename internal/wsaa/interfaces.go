// Package wsaa implements credential acquisition against the ARCA WSAA
// authentication service.
package wsaa

import (
	"context"

	"github.com/lauto554/arca-soap/pkg/models"
)

// MaterialSource provides per-tenant signing material.
type MaterialSource interface {
	// SigningMaterial returns the certificate and private key for a tenant.
	// It returns faults.ErrMaterialNotFound when the tenant has none.
	SigningMaterial(ctx context.Context, tenantID string) (*models.SigningMaterial, error)
}

// TicketCache stores and retrieves previously issued tickets.
type TicketCache interface {
	// CachedTicket returns the stored ticket for a (tenant, environment) key
	// together with the store's freshness judgment. It returns
	// faults.ErrTicketAbsent when no entry exists.
	CachedTicket(ctx context.Context, tenantID string, env models.Environment) (*models.CachedTicket, error)
	// PutTicket persists a ticket for a (tenant, environment) key,
	// superseding any prior entry.
	PutTicket(ctx context.Context, tenantID string, env models.Environment, ticket *models.Ticket) error
}

// CredentialStore is the full store contract the acquisition service consumes.
type CredentialStore interface {
	MaterialSource
	TicketCache
}

// Signer produces a CMS signed envelope over a request document using the
// tenant's signing material. Implementations must not retain the material
// past the call and must remove any temporary artifact on every exit path.
type Signer interface {
	Sign(ctx context.Context, document []byte, material *models.SigningMaterial) ([]byte, error)
}

// Transport submits a signed envelope to the environment-selected WSAA
// endpoint and returns the raw response body. Application-level faults ride
// on transport success; only empty or non-protocol bodies at error status
// are transport failures.
type Transport interface {
	Submit(ctx context.Context, envelope []byte, env models.Environment) ([]byte, error)
}
