// Package remote defines the contract with the remote backend and its
// interchangeable providers. The rest of the application treats the
// backend as an opaque CRUD API; everything provider-specific (SQL,
// wire field names, auth headers) stays behind the Backend interface.
package remote

import (
	"context"
	"errors"
	"time"

	"courier-backend/internal/models"
)

// ErrNotFound is returned by lookups for ids the backend has never seen.
var ErrNotFound = errors.New("remote: record not found")

// Backend is the remote CRUD contract per entity collection. Save is an
// upsert everywhere; UpdateService exists separately because service
// updates are audit-logged while saves are not. Deletes are logical
// (deleted_at tombstones) for clients and services, physical for
// expenses.
type Backend interface {
	GetClients(ctx context.Context, ownerID string) ([]*models.Client, error)
	SaveClient(ctx context.Context, c *models.Client) error
	DeleteClient(ctx context.Context, id string) error

	GetServices(ctx context.Context, ownerID string, start, end *time.Time) ([]*models.ServiceRecord, error)
	SaveService(ctx context.Context, s *models.ServiceRecord) error
	UpdateService(ctx context.Context, s *models.ServiceRecord) error
	DeleteService(ctx context.Context, id string) error

	GetExpenses(ctx context.Context, ownerID string, start, end *time.Time) ([]*models.ExpenseRecord, error)
	SaveExpense(ctx context.Context, e *models.ExpenseRecord) error
	DeleteExpense(ctx context.Context, id string) error
}
