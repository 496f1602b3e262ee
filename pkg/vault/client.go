// Package vault provides a HashiCorp Vault signing-material source.
package vault

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hashicorp/vault/api"
)

// Client wraps the HashiCorp Vault API client.
type Client struct {
	client *api.Client
	logger *slog.Logger
}

// Config holds configuration for the Vault client.
type Config struct {
	Address   string
	Token     string
	Namespace string
	TLSConfig *TLSConfig
	Timeout   time.Duration
}

// TLSConfig holds TLS configuration for the Vault connection.
type TLSConfig struct {
	CACert        string
	ClientCert    string
	ClientKey     string
	TLSServerName string
	Insecure      bool
}

// New creates a new Vault client with the given configuration.
func New(cfg *Config, logger *slog.Logger) (*Client, error) {
	if cfg == nil {
		return nil, fmt.Errorf("vault: config is required")
	}
	if cfg.Address == "" {
		return nil, fmt.Errorf("vault: address is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	vaultCfg := api.DefaultConfig()
	vaultCfg.Address = cfg.Address

	if cfg.Timeout > 0 {
		vaultCfg.Timeout = cfg.Timeout
	}

	if cfg.TLSConfig != nil {
		tlsCfg := &api.TLSConfig{
			CACert:        cfg.TLSConfig.CACert,
			ClientCert:    cfg.TLSConfig.ClientCert,
			ClientKey:     cfg.TLSConfig.ClientKey,
			TLSServerName: cfg.TLSConfig.TLSServerName,
			Insecure:      cfg.TLSConfig.Insecure,
		}
		if err := vaultCfg.ConfigureTLS(tlsCfg); err != nil {
			return nil, fmt.Errorf("vault: failed to configure TLS: %w", err)
		}
	}

	client, err := api.NewClient(vaultCfg)
	if err != nil {
		return nil, fmt.Errorf("vault: failed to create client: %w", err)
	}

	if cfg.Token != "" {
		client.SetToken(cfg.Token)
	}
	if cfg.Namespace != "" {
		client.SetNamespace(cfg.Namespace)
	}

	logger.Info("vault client created", "address", cfg.Address)

	return &Client{client: client, logger: logger}, nil
}

// Health checks connectivity and seal status of the Vault server.
func (c *Client) Health(ctx context.Context) error {
	health, err := c.client.Sys().HealthWithContext(ctx)
	if err != nil {
		return fmt.Errorf("vault: health check failed: %w", err)
	}
	if health.Sealed {
		return fmt.Errorf("vault: sealed")
	}
	return nil
}
