package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"courier-backend/internal/config"
)

// Connect builds the pgx pool for the remote backend. pgxpool connects
// lazily, so this succeeds even while the backend is unreachable; the
// first query surfaces the outage instead.
func Connect(cfg *config.Config) (*pgxpool.Pool, error) {
	dsn := fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s",
		cfg.Remote.Database.User,
		cfg.Remote.Database.Password,
		cfg.Remote.Database.Host,
		cfg.Remote.Database.Port,
		cfg.Remote.Database.Name,
	)

	pool, err := pgxpool.New(context.Background(), dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	return pool, nil
}
