// Package database maintains the remote backend's schema. Statements
// are embedded in the binary rather than read from disk so a deployed
// server carries everything it needs to bring a fresh database up.
package database

import (
	"context"
	"fmt"
	"log"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Migrator applies schema migrations against the remote database.
type Migrator struct {
	pool *pgxpool.Pool
}

func NewMigrator(pool *pgxpool.Pool) *Migrator {
	return &Migrator{pool: pool}
}

type migration struct {
	name string
	sql  string
}

// Ordered list; never reorder or edit an applied entry, append instead.
var migrations = []migration{
	{
		name: "001_clients",
		sql: `CREATE TABLE IF NOT EXISTS clients (
			id TEXT PRIMARY KEY,
			owner_id TEXT NOT NULL,
			name TEXT NOT NULL,
			phone TEXT NOT NULL DEFAULT '',
			email TEXT,
			address TEXT,
			notes TEXT,
			deleted_at TIMESTAMPTZ,
			created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_clients_owner ON clients(owner_id);`,
	},
	{
		name: "002_service_records",
		sql: `CREATE TABLE IF NOT EXISTS service_records (
			id TEXT PRIMARY KEY,
			owner_id TEXT NOT NULL,
			client_id TEXT NOT NULL,
			service_date TIMESTAMPTZ NOT NULL,
			pickup TEXT,
			dropoff TEXT,
			description TEXT,
			cost DOUBLE PRECISION NOT NULL DEFAULT 0,
			driver_fee DOUBLE PRECISION NOT NULL DEFAULT 0,
			waiting_time DOUBLE PRECISION NOT NULL DEFAULT 0,
			extra_fee DOUBLE PRECISION NOT NULL DEFAULT 0,
			status TEXT,
			deleted_at TIMESTAMPTZ,
			created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_service_records_owner_date ON service_records(owner_id, service_date);
		CREATE INDEX IF NOT EXISTS idx_service_records_client ON service_records(client_id);`,
	},
	{
		name: "003_expenses",
		sql: `CREATE TABLE IF NOT EXISTS expenses (
			id TEXT PRIMARY KEY,
			owner_id TEXT NOT NULL,
			category TEXT NOT NULL,
			description TEXT,
			amount DOUBLE PRECISION NOT NULL DEFAULT 0,
			expense_date TIMESTAMPTZ NOT NULL,
			deleted_at TIMESTAMPTZ,
			created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_expenses_owner_date ON expenses(owner_id, expense_date);`,
	},
	{
		name: "004_users",
		sql: `CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			email TEXT NOT NULL UNIQUE,
			role TEXT NOT NULL DEFAULT 'dispatcher',
			created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
		);`,
	},
	{
		name: "005_service_audit_log",
		sql: `CREATE TABLE IF NOT EXISTS service_audit_log (
			id BIGSERIAL PRIMARY KEY,
			service_id TEXT NOT NULL,
			owner_id TEXT NOT NULL,
			changed_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_service_audit_service ON service_audit_log(service_id);`,
	},
}

// RunMigrations applies every migration not yet recorded in the
// tracking table, in order.
func (m *Migrator) RunMigrations(ctx context.Context) error {
	if err := m.createMigrationsTable(ctx); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	applied, err := m.appliedMigrations(ctx)
	if err != nil {
		return fmt.Errorf("failed to read applied migrations: %w", err)
	}

	for _, mig := range migrations {
		if applied[mig.name] {
			continue
		}
		log.Printf("[Migrator] Applying %s", mig.name)
		if _, err := m.pool.Exec(ctx, mig.sql); err != nil {
			return fmt.Errorf("migration %s failed: %w", mig.name, err)
		}
		if _, err := m.pool.Exec(ctx,
			`INSERT INTO schema_migrations(name) VALUES($1)`, mig.name); err != nil {
			return fmt.Errorf("failed to record migration %s: %w", mig.name, err)
		}
	}
	return nil
}

func (m *Migrator) createMigrationsTable(ctx context.Context) error {
	_, err := m.pool.Exec(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		name TEXT PRIMARY KEY,
		applied_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`)
	return err
}

func (m *Migrator) appliedMigrations(ctx context.Context) (map[string]bool, error) {
	rows, err := m.pool.Query(ctx, `SELECT name FROM schema_migrations`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	applied := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		applied[name] = true
	}
	return applied, rows.Err()
}
