package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lauto554/arca-soap/pkg/faults"
	"github.com/lauto554/arca-soap/pkg/models"
)

// CredentialStore implements the credential store contract on PostgreSQL.
// Signing material lives in tenant_credentials; issued tickets are cached in
// access_tickets with one live row per (tenant, environment) key. The store
// computes the freshness flag itself, so callers reuse a ticket on the
// store's judgment rather than their own clock.
type CredentialStore struct {
	db *DB
}

// NewCredentialStore creates a credential store backed by the given pool.
func NewCredentialStore(db *DB) *CredentialStore {
	return &CredentialStore{db: db}
}

// SigningMaterial returns the certificate and private key for a tenant.
func (s *CredentialStore) SigningMaterial(ctx context.Context, tenantID string) (*models.SigningMaterial, error) {
	var pem, key string
	err := s.db.QueryRowContext(ctx,
		`SELECT pem, key FROM tenant_credentials WHERE tenant = $1`,
		tenantID,
	).Scan(&pem, &key)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, faults.ErrMaterialNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get signing material: %w", err)
	}

	return &models.SigningMaterial{
		Certificate: []byte(pem),
		PrivateKey:  []byte(key),
	}, nil
}

// CachedTicket returns the stored ticket for a (tenant, environment) key
// together with the store-computed freshness flag.
func (s *CredentialStore) CachedTicket(ctx context.Context, tenantID string, env models.Environment) (*models.CachedTicket, error) {
	cached := &models.CachedTicket{}
	ticket := &cached.Ticket
	err := s.db.QueryRowContext(ctx,
		`SELECT token, sign, COALESCE(source, ''), COALESCE(destination, ''),
		        COALESCE(unique_id, ''), COALESCE(generation_time, ''), COALESCE(expiration_time, ''),
		        status, obtained_at,
		        (status = 'valid'
		         AND expiration_time <> ''
		         AND expiration_time::timestamptz > NOW()) AS valid
		 FROM access_tickets WHERE tenant = $1 AND environment = $2`,
		tenantID, string(env),
	).Scan(
		&ticket.Token, &ticket.Sign, &ticket.Source, &ticket.Destination,
		&ticket.UniqueID, &ticket.GenerationTime, &ticket.ExpirationTime,
		&cached.Status, &ticket.ObtainedAt, &cached.Valid,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, faults.ErrTicketAbsent
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get cached ticket: %w", err)
	}
	if !cached.Valid {
		cached.Status = "expired"
	}
	return cached, nil
}

// PutTicket persists a ticket for a (tenant, environment) key, superseding
// any prior entry.
func (s *CredentialStore) PutTicket(ctx context.Context, tenantID string, env models.Environment, ticket *models.Ticket) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO access_tickets
		   (tenant, environment, token, sign, source, destination,
		    unique_id, generation_time, expiration_time, status, obtained_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, 'valid', $10)
		 ON CONFLICT (tenant, environment) DO UPDATE SET
		   token = EXCLUDED.token,
		   sign = EXCLUDED.sign,
		   source = EXCLUDED.source,
		   destination = EXCLUDED.destination,
		   unique_id = EXCLUDED.unique_id,
		   generation_time = EXCLUDED.generation_time,
		   expiration_time = EXCLUDED.expiration_time,
		   status = 'valid',
		   obtained_at = EXCLUDED.obtained_at`,
		tenantID, string(env), ticket.Token, ticket.Sign, ticket.Source, ticket.Destination,
		ticket.UniqueID, ticket.GenerationTime, ticket.ExpirationTime, ticket.ObtainedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to put ticket: %w", err)
	}
	return nil
}

// PutSigningMaterial stores or replaces a tenant's certificate and key.
func (s *CredentialStore) PutSigningMaterial(ctx context.Context, tenantID string, material *models.SigningMaterial) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO tenant_credentials (tenant, pem, key)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (tenant) DO UPDATE SET
		   pem = EXCLUDED.pem,
		   key = EXCLUDED.key,
		   updated_at = NOW()`,
		tenantID, string(material.Certificate), string(material.PrivateKey),
	)
	if err != nil {
		return fmt.Errorf("failed to put signing material: %w", err)
	}
	return nil
}
