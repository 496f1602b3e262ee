package postgres

import (
	"context"
	"database/sql"
	"fmt"
)

// Migration represents a database migration.
type Migration struct {
	Version     int
	Description string
	SQL         string
}

// Migrations returns all database migrations in order.
func Migrations() []Migration {
	return []Migration{
		{
			Version:     1,
			Description: "Create tenant_credentials table",
			SQL: `CREATE TABLE IF NOT EXISTS tenant_credentials (
				tenant VARCHAR(64) PRIMARY KEY,
				pem TEXT NOT NULL,
				key TEXT NOT NULL,
				created_at TIMESTAMP NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMP NOT NULL DEFAULT NOW()
			)`,
		},
		{
			Version:     2,
			Description: "Create access_tickets table",
			SQL: `CREATE TABLE IF NOT EXISTS access_tickets (
				tenant VARCHAR(64) NOT NULL,
				environment VARCHAR(16) NOT NULL,
				token TEXT NOT NULL,
				sign TEXT NOT NULL,
				source TEXT,
				destination TEXT,
				unique_id VARCHAR(32),
				generation_time VARCHAR(40),
				expiration_time VARCHAR(40),
				status VARCHAR(16) NOT NULL DEFAULT 'valid',
				obtained_at TIMESTAMP NOT NULL DEFAULT NOW(),
				PRIMARY KEY (tenant, environment)
			)`,
		},
		{
			Version:     3,
			Description: "Index access tickets by status",
			SQL:         `CREATE INDEX IF NOT EXISTS idx_access_tickets_status ON access_tickets(status)`,
		},
	}
}

// RunMigrations executes all pending migrations.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INT PRIMARY KEY,
			applied_at TIMESTAMP NOT NULL DEFAULT NOW()
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create schema_migrations table: %w", err)
	}

	for _, m := range Migrations() {
		var exists bool
		err := db.QueryRowContext(ctx, "SELECT EXISTS(SELECT 1 FROM schema_migrations WHERE version = $1)", m.Version).Scan(&exists)
		if err != nil {
			return fmt.Errorf("failed to check migration status: %w", err)
		}
		if exists {
			continue
		}

		if _, err := db.ExecContext(ctx, m.SQL); err != nil {
			return fmt.Errorf("migration %d (%s) failed: %w", m.Version, m.Description, err)
		}

		if _, err := db.ExecContext(ctx, "INSERT INTO schema_migrations (version) VALUES ($1)", m.Version); err != nil {
			return fmt.Errorf("failed to record migration %d: %w", m.Version, err)
		}
	}

	return nil
}

// CurrentVersion returns the current schema version.
func CurrentVersion(ctx context.Context, db *sql.DB) (int, error) {
	var version int
	err := db.QueryRowContext(ctx, "SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&version)
	if err != nil {
		return 0, fmt.Errorf("failed to get current version: %w", err)
	}
	return version, nil
}
