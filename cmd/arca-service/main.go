// Package main implements the access ticket service.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lauto554/arca-soap/internal/api"
	"github.com/lauto554/arca-soap/internal/config"
	"github.com/lauto554/arca-soap/internal/wsaa"
	"github.com/lauto554/arca-soap/pkg/metrics"
	"github.com/lauto554/arca-soap/pkg/models"
	"github.com/lauto554/arca-soap/pkg/postgres"
	"github.com/lauto554/arca-soap/pkg/vault"
)

var version = "dev"

// splitStore reads signing material from one source and tickets from
// another. It is used when Vault holds the key material while PostgreSQL
// keeps the ticket cache.
type splitStore struct {
	wsaa.MaterialSource
	wsaa.TicketCache
}

// pingFunc adapts a health function to the api.Pinger interface.
type pingFunc func(context.Context) error

func (f pingFunc) HealthCheck(ctx context.Context) error { return f(ctx) }

func main() {
	cfg, err := config.Load(os.Getenv("ARCA_CONFIG"))
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := newLogger(cfg)
	slog.SetDefault(logger)
	logger.Info("starting arca-service", "version", version)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := postgres.New(&postgres.Config{
		Host:            cfg.Database.Host,
		Port:            cfg.Database.Port,
		User:            cfg.Database.Username,
		Password:        cfg.Database.Password,
		Database:        cfg.Database.Database,
		SSLMode:         cfg.Database.SSLMode,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	})
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()

	if err := db.RunMigrations(ctx); err != nil {
		logger.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	pgStore := postgres.NewCredentialStore(db)
	dependencies := map[string]api.Pinger{
		"database": pingFunc(db.HealthCheck),
	}

	var store wsaa.CredentialStore = pgStore
	if cfg.Vault.Enabled {
		vaultClient, err := vault.New(&vault.Config{
			Address:   cfg.Vault.Address,
			Token:     cfg.Vault.Token,
			Namespace: cfg.Vault.Namespace,
		}, logger)
		if err != nil {
			logger.Error("failed to create vault client", "error", err)
			os.Exit(1)
		}
		store = &splitStore{
			MaterialSource: vault.NewMaterialSource(vaultClient, cfg.Vault.KVMount),
			TicketCache:    pgStore,
		}
		dependencies["vault"] = pingFunc(vaultClient.Health)
		logger.Info("signing material sourced from vault", "mount", cfg.Vault.KVMount)
	}

	acquisitionMetrics := metrics.NewAcquisitionMetrics(version)

	signer := wsaa.NewOpenSSLSigner(logger)
	if cfg.WSAA.OpenSSLBinary != "" {
		signer.Binary = cfg.WSAA.OpenSSLBinary
	}

	var transportOpts []wsaa.TransportOption
	if cfg.WSAA.HomologationEndpoint != "" {
		transportOpts = append(transportOpts, wsaa.WithEndpoint(models.EnvironmentHomologation, cfg.WSAA.HomologationEndpoint))
	}
	if cfg.WSAA.ProductionEndpoint != "" {
		transportOpts = append(transportOpts, wsaa.WithEndpoint(models.EnvironmentProduction, cfg.WSAA.ProductionEndpoint))
	}
	transport := wsaa.NewSOAPTransport(cfg.WSAA.Timeout, logger, transportOpts...)

	service := wsaa.NewService(store, signer, transport, logger, wsaa.WithMetrics(acquisitionMetrics))

	router := api.NewRouter(&api.RouterConfig{
		Logger:         logger,
		Metrics:        acquisitionMetrics,
		DefaultService: cfg.WSAA.DefaultService,
		Version:        version,
		Dependencies:   dependencies,
	}, service)

	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		logger.Info("starting HTTP server", "addr", cfg.Server.Addr())
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			cancel()
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigCh:
	case <-ctx.Done():
	}

	logger.Info("shutting down...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	_ = server.Shutdown(shutdownCtx)
	logger.Info("shutdown complete")
}

func newLogger(cfg *config.Config) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}
	if cfg.LogFormat == "text" {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}
