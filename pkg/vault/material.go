package vault

import (
	"context"
	"errors"
	"fmt"

	"github.com/hashicorp/vault/api"

	"github.com/lauto554/arca-soap/pkg/faults"
	"github.com/lauto554/arca-soap/pkg/models"
)

// MaterialSource reads per-tenant signing material from a Vault KV v2 mount.
// Each tenant's certificate and key live under <mount>/data/tenants/<tenant>
// in the "pem" and "key" fields, mirroring the columns of the database store.
type MaterialSource struct {
	client *Client
	mount  string
}

// NewMaterialSource creates a material source over the given KV v2 mount.
func NewMaterialSource(client *Client, mount string) *MaterialSource {
	if mount == "" {
		mount = "secret"
	}
	return &MaterialSource{client: client, mount: mount}
}

// SigningMaterial returns the certificate and private key for a tenant, or
// faults.ErrMaterialNotFound when the tenant has no secret.
func (s *MaterialSource) SigningMaterial(ctx context.Context, tenantID string) (*models.SigningMaterial, error) {
	path := fmt.Sprintf("tenants/%s", tenantID)

	secret, err := s.client.client.KVv2(s.mount).Get(ctx, path)
	if err != nil {
		if errors.Is(err, api.ErrSecretNotFound) {
			return nil, faults.ErrMaterialNotFound
		}
		return nil, fmt.Errorf("vault: read signing material: %w", err)
	}
	if secret == nil || secret.Data == nil {
		return nil, faults.ErrMaterialNotFound
	}

	pem, _ := secret.Data["pem"].(string)
	key, _ := secret.Data["key"].(string)
	if pem == "" || key == "" {
		return nil, faults.ErrMaterialNotFound
	}

	return &models.SigningMaterial{
		Certificate: []byte(pem),
		PrivateKey:  []byte(key),
	}, nil
}
