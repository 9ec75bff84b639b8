// Package localstore is the durable local mirror of the remote backend:
// one SQLite table per entity collection, keyed by entity id and indexed
// by owner. The mirror may be stale relative to the backend but never
// contains a write the application did not request. Domain-level deletes
// are tombstones written through Put; the Delete methods here remove the
// local row physically and are a storage concern only.
package localstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"courier-backend/internal/models"
)

type Store struct {
	db *sql.DB
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS cached_clients (
		id TEXT PRIMARY KEY,
		owner_id TEXT NOT NULL,
		deleted_at INTEGER,
		payload TEXT NOT NULL,
		updated_at INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_cached_clients_owner ON cached_clients(owner_id)`,
	`CREATE TABLE IF NOT EXISTS cached_services (
		id TEXT PRIMARY KEY,
		owner_id TEXT NOT NULL,
		client_id TEXT NOT NULL DEFAULT '',
		deleted_at INTEGER,
		payload TEXT NOT NULL,
		updated_at INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_cached_services_owner ON cached_services(owner_id)`,
	`CREATE INDEX IF NOT EXISTS idx_cached_services_client ON cached_services(client_id)`,
	`CREATE TABLE IF NOT EXISTS cached_expenses (
		id TEXT PRIMARY KEY,
		owner_id TEXT NOT NULL,
		deleted_at INTEGER,
		payload TEXT NOT NULL,
		updated_at INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_cached_expenses_owner ON cached_expenses(owner_id)`,
}

// New creates the cache tables if missing and returns the store.
func New(db *sql.DB) (*Store, error) {
	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			return nil, fmt.Errorf("failed to create cache schema: %w", err)
		}
	}
	return &Store{db: db}, nil
}

func deletedAtMillis(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.UnixMilli()
}

// ---------------------------------------------------------------
// Clients
// ---------------------------------------------------------------

func (s *Store) PutClient(ctx context.Context, c *models.Client) error {
	payload, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to encode client %s: %w", c.ID, err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO cached_clients(id, owner_id, deleted_at, payload, updated_at)
		 VALUES(?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   owner_id=excluded.owner_id,
		   deleted_at=excluded.deleted_at,
		   payload=excluded.payload,
		   updated_at=excluded.updated_at`,
		c.ID, c.OwnerID, deletedAtMillis(c.DeletedAt), string(payload), time.Now().UnixMilli())
	return err
}

func (s *Store) PutClients(ctx context.Context, clients []*models.Client) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, c := range clients {
		if err := putClientTx(ctx, tx, c); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func putClientTx(ctx context.Context, tx *sql.Tx, c *models.Client) error {
	payload, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to encode client %s: %w", c.ID, err)
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO cached_clients(id, owner_id, deleted_at, payload, updated_at)
		 VALUES(?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   owner_id=excluded.owner_id,
		   deleted_at=excluded.deleted_at,
		   payload=excluded.payload,
		   updated_at=excluded.updated_at`,
		c.ID, c.OwnerID, deletedAtMillis(c.DeletedAt), string(payload), time.Now().UnixMilli())
	return err
}

// GetClients returns every cached client for the owner, tombstoned rows
// included. An owner with nothing cached gets an empty slice, not an error.
func (s *Store) GetClients(ctx context.Context, ownerID string) ([]*models.Client, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT payload FROM cached_clients WHERE owner_id=? ORDER BY id`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	clients := []*models.Client{}
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		var c models.Client
		if err := json.Unmarshal([]byte(payload), &c); err != nil {
			return nil, fmt.Errorf("corrupt cached client row: %w", err)
		}
		clients = append(clients, &c)
	}
	return clients, rows.Err()
}

func (s *Store) DeleteClient(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM cached_clients WHERE id=?`, id)
	return err
}

// ---------------------------------------------------------------
// Service records
// ---------------------------------------------------------------

func (s *Store) PutService(ctx context.Context, sr *models.ServiceRecord) error {
	payload, err := json.Marshal(sr)
	if err != nil {
		return fmt.Errorf("failed to encode service %s: %w", sr.ID, err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO cached_services(id, owner_id, client_id, deleted_at, payload, updated_at)
		 VALUES(?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   owner_id=excluded.owner_id,
		   client_id=excluded.client_id,
		   deleted_at=excluded.deleted_at,
		   payload=excluded.payload,
		   updated_at=excluded.updated_at`,
		sr.ID, sr.OwnerID, sr.ClientID, deletedAtMillis(sr.DeletedAt), string(payload), time.Now().UnixMilli())
	return err
}

func (s *Store) PutServices(ctx context.Context, records []*models.ServiceRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, sr := range records {
		if err := putServiceTx(ctx, tx, sr); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func putServiceTx(ctx context.Context, tx *sql.Tx, sr *models.ServiceRecord) error {
	payload, err := json.Marshal(sr)
	if err != nil {
		return fmt.Errorf("failed to encode service %s: %w", sr.ID, err)
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO cached_services(id, owner_id, client_id, deleted_at, payload, updated_at)
		 VALUES(?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   owner_id=excluded.owner_id,
		   client_id=excluded.client_id,
		   deleted_at=excluded.deleted_at,
		   payload=excluded.payload,
		   updated_at=excluded.updated_at`,
		sr.ID, sr.OwnerID, sr.ClientID, deletedAtMillis(sr.DeletedAt), string(payload), time.Now().UnixMilli())
	return err
}

func (s *Store) GetServices(ctx context.Context, ownerID string) ([]*models.ServiceRecord, error) {
	return s.queryServices(ctx,
		`SELECT payload FROM cached_services WHERE owner_id=? ORDER BY id`, ownerID)
}

// GetServicesByClient uses the client_id index directly rather than
// filtering a full owner scan.
func (s *Store) GetServicesByClient(ctx context.Context, ownerID, clientID string) ([]*models.ServiceRecord, error) {
	return s.queryServices(ctx,
		`SELECT payload FROM cached_services WHERE owner_id=? AND client_id=? ORDER BY id`,
		ownerID, clientID)
}

func (s *Store) queryServices(ctx context.Context, query string, args ...interface{}) ([]*models.ServiceRecord, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := []*models.ServiceRecord{}
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		var sr models.ServiceRecord
		if err := json.Unmarshal([]byte(payload), &sr); err != nil {
			return nil, fmt.Errorf("corrupt cached service row: %w", err)
		}
		records = append(records, &sr)
	}
	return records, rows.Err()
}

func (s *Store) DeleteService(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM cached_services WHERE id=?`, id)
	return err
}

// ---------------------------------------------------------------
// Expenses
// ---------------------------------------------------------------

func (s *Store) PutExpense(ctx context.Context, e *models.ExpenseRecord) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to encode expense %s: %w", e.ID, err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO cached_expenses(id, owner_id, deleted_at, payload, updated_at)
		 VALUES(?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   owner_id=excluded.owner_id,
		   deleted_at=excluded.deleted_at,
		   payload=excluded.payload,
		   updated_at=excluded.updated_at`,
		e.ID, e.OwnerID, deletedAtMillis(e.DeletedAt), string(payload), time.Now().UnixMilli())
	return err
}

func (s *Store) PutExpenses(ctx context.Context, expenses []*models.ExpenseRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, e := range expenses {
		if err := putExpenseTx(ctx, tx, e); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func putExpenseTx(ctx context.Context, tx *sql.Tx, e *models.ExpenseRecord) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to encode expense %s: %w", e.ID, err)
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO cached_expenses(id, owner_id, deleted_at, payload, updated_at)
		 VALUES(?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   owner_id=excluded.owner_id,
		   deleted_at=excluded.deleted_at,
		   payload=excluded.payload,
		   updated_at=excluded.updated_at`,
		e.ID, e.OwnerID, deletedAtMillis(e.DeletedAt), string(payload), time.Now().UnixMilli())
	return err
}

func (s *Store) GetExpenses(ctx context.Context, ownerID string) ([]*models.ExpenseRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT payload FROM cached_expenses WHERE owner_id=? ORDER BY id`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	expenses := []*models.ExpenseRecord{}
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		var e models.ExpenseRecord
		if err := json.Unmarshal([]byte(payload), &e); err != nil {
			return nil, fmt.Errorf("corrupt cached expense row: %w", err)
		}
		expenses = append(expenses, &e)
	}
	return expenses, rows.Err()
}

func (s *Store) DeleteExpense(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM cached_expenses WHERE id=?`, id)
	return err
}

// ---------------------------------------------------------------
// Full replace
// ---------------------------------------------------------------

// ReplaceAllForOwner clears everything cached for the owner and inserts
// the given authoritative sets inside one transaction, so a reader never
// observes the cleared-but-not-yet-refilled intermediate state. Only a
// confirmed full sync against the remote backend should call this.
func (s *Store) ReplaceAllForOwner(ctx context.Context, ownerID string, clients []*models.Client, services []*models.ServiceRecord, expenses []*models.ExpenseRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, table := range []string{"cached_clients", "cached_services", "cached_expenses"} {
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE owner_id=?`, ownerID); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}

	for _, c := range clients {
		if err := putClientTx(ctx, tx, c); err != nil {
			return err
		}
	}
	for _, sr := range services {
		if err := putServiceTx(ctx, tx, sr); err != nil {
			return err
		}
	}
	for _, e := range expenses {
		if err := putExpenseTx(ctx, tx, e); err != nil {
			return err
		}
	}
	return tx.Commit()
}
