package remote

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"courier-backend/internal/models"
)

// PostgresBackend talks to the relational backend directly through a
// pgx pool. Schema creation is handled server-side; this adapter only
// assumes the tables exist.
type PostgresBackend struct {
	DB *pgxpool.Pool
}

func NewPostgresBackend(db *pgxpool.Pool) *PostgresBackend {
	return &PostgresBackend{DB: db}
}

// ---------------------------------------------------------------
// Clients
// ---------------------------------------------------------------

func (b *PostgresBackend) GetClients(ctx context.Context, ownerID string) ([]*models.Client, error) {
	rows, err := b.DB.Query(ctx,
		`SELECT id, owner_id, name, phone, COALESCE(email, ''), COALESCE(address, ''), COALESCE(notes, ''),
		        deleted_at, created_at, updated_at
		 FROM clients WHERE owner_id=$1 ORDER BY created_at DESC`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var clients []*models.Client
	for rows.Next() {
		var c models.Client
		err := rows.Scan(&c.ID, &c.OwnerID, &c.Name, &c.Phone, &c.Email, &c.Address, &c.Notes,
			&c.DeletedAt, &c.CreatedAt, &c.UpdatedAt)
		if err != nil {
			return nil, err
		}
		clients = append(clients, &c)
	}
	return clients, rows.Err()
}

func (b *PostgresBackend) SaveClient(ctx context.Context, c *models.Client) error {
	_, err := b.DB.Exec(ctx,
		`INSERT INTO clients(id, owner_id, name, phone, email, address, notes, deleted_at, created_at, updated_at)
		 VALUES($1, $2, $3, $4, $5, $6, $7, $8, COALESCE($9, CURRENT_TIMESTAMP), CURRENT_TIMESTAMP)
		 ON CONFLICT (id) DO UPDATE SET
		   name=EXCLUDED.name, phone=EXCLUDED.phone, email=EXCLUDED.email,
		   address=EXCLUDED.address, notes=EXCLUDED.notes, deleted_at=EXCLUDED.deleted_at,
		   updated_at=CURRENT_TIMESTAMP`,
		c.ID, c.OwnerID, c.Name, c.Phone, c.Email, c.Address, c.Notes, c.DeletedAt, nullableTime(c.CreatedAt))
	return err
}

func (b *PostgresBackend) DeleteClient(ctx context.Context, id string) error {
	tag, err := b.DB.Exec(ctx,
		`UPDATE clients SET deleted_at=CURRENT_TIMESTAMP, updated_at=CURRENT_TIMESTAMP WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ---------------------------------------------------------------
// Service records
// ---------------------------------------------------------------

func (b *PostgresBackend) GetServices(ctx context.Context, ownerID string, start, end *time.Time) ([]*models.ServiceRecord, error) {
	query := `SELECT id, owner_id, client_id, service_date, COALESCE(pickup, ''), COALESCE(dropoff, ''),
	                 COALESCE(description, ''), cost, driver_fee, waiting_time, extra_fee,
	                 COALESCE(status, ''), deleted_at, created_at, updated_at
	          FROM service_records WHERE owner_id=$1`
	args := []interface{}{ownerID}
	if start != nil {
		args = append(args, *start)
		query += ` AND service_date >= $2`
	}
	if end != nil {
		args = append(args, *end)
		if start != nil {
			query += ` AND service_date <= $3`
		} else {
			query += ` AND service_date <= $2`
		}
	}
	query += ` ORDER BY service_date DESC`

	rows, err := b.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*models.ServiceRecord
	for rows.Next() {
		var s models.ServiceRecord
		err := rows.Scan(&s.ID, &s.OwnerID, &s.ClientID, &s.Date, &s.Pickup, &s.Dropoff,
			&s.Description, &s.Cost, &s.DriverFee, &s.WaitingTime, &s.ExtraFee,
			&s.Status, &s.DeletedAt, &s.CreatedAt, &s.UpdatedAt)
		if err != nil {
			return nil, err
		}
		records = append(records, &s)
	}
	return records, rows.Err()
}

func (b *PostgresBackend) SaveService(ctx context.Context, s *models.ServiceRecord) error {
	_, err := b.DB.Exec(ctx,
		`INSERT INTO service_records(id, owner_id, client_id, service_date, pickup, dropoff, description,
		        cost, driver_fee, waiting_time, extra_fee, status, deleted_at, created_at, updated_at)
		 VALUES($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, COALESCE($14, CURRENT_TIMESTAMP), CURRENT_TIMESTAMP)
		 ON CONFLICT (id) DO UPDATE SET
		   client_id=EXCLUDED.client_id, service_date=EXCLUDED.service_date,
		   pickup=EXCLUDED.pickup, dropoff=EXCLUDED.dropoff, description=EXCLUDED.description,
		   cost=EXCLUDED.cost, driver_fee=EXCLUDED.driver_fee, waiting_time=EXCLUDED.waiting_time,
		   extra_fee=EXCLUDED.extra_fee, status=EXCLUDED.status, deleted_at=EXCLUDED.deleted_at,
		   updated_at=CURRENT_TIMESTAMP`,
		s.ID, s.OwnerID, s.ClientID, s.Date, s.Pickup, s.Dropoff, s.Description,
		s.Cost, s.DriverFee, s.WaitingTime, s.ExtraFee, s.Status, s.DeletedAt, nullableTime(s.CreatedAt))
	return err
}

// UpdateService is save plus an audit trail row; the backend keeps edit
// history for service records, which plain saves (imports, replays of
// creates) do not generate.
func (b *PostgresBackend) UpdateService(ctx context.Context, s *models.ServiceRecord) error {
	tx, err := b.DB.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx,
		`UPDATE service_records SET
		   client_id=$1, service_date=$2, pickup=$3, dropoff=$4, description=$5,
		   cost=$6, driver_fee=$7, waiting_time=$8, extra_fee=$9, status=$10,
		   deleted_at=$11, updated_at=CURRENT_TIMESTAMP
		 WHERE id=$12`,
		s.ClientID, s.Date, s.Pickup, s.Dropoff, s.Description,
		s.Cost, s.DriverFee, s.WaitingTime, s.ExtraFee, s.Status, s.DeletedAt, s.ID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		// The record may have been created offline and never replayed; an
		// update replay must still land it.
		return b.SaveService(ctx, s)
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO service_audit_log(service_id, owner_id, changed_at) VALUES($1, $2, CURRENT_TIMESTAMP)`,
		s.ID, s.OwnerID)
	if err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (b *PostgresBackend) DeleteService(ctx context.Context, id string) error {
	tag, err := b.DB.Exec(ctx,
		`UPDATE service_records SET deleted_at=CURRENT_TIMESTAMP, updated_at=CURRENT_TIMESTAMP WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ---------------------------------------------------------------
// Expenses
// ---------------------------------------------------------------

func (b *PostgresBackend) GetExpenses(ctx context.Context, ownerID string, start, end *time.Time) ([]*models.ExpenseRecord, error) {
	query := `SELECT id, owner_id, category, COALESCE(description, ''), amount, expense_date,
	                 deleted_at, created_at, updated_at
	          FROM expenses WHERE owner_id=$1`
	args := []interface{}{ownerID}
	if start != nil {
		args = append(args, *start)
		query += ` AND expense_date >= $2`
	}
	if end != nil {
		args = append(args, *end)
		if start != nil {
			query += ` AND expense_date <= $3`
		} else {
			query += ` AND expense_date <= $2`
		}
	}
	query += ` ORDER BY expense_date DESC`

	rows, err := b.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var expenses []*models.ExpenseRecord
	for rows.Next() {
		var e models.ExpenseRecord
		err := rows.Scan(&e.ID, &e.OwnerID, &e.Category, &e.Description, &e.Amount, &e.Date,
			&e.DeletedAt, &e.CreatedAt, &e.UpdatedAt)
		if err != nil {
			return nil, err
		}
		expenses = append(expenses, &e)
	}
	return expenses, rows.Err()
}

func (b *PostgresBackend) SaveExpense(ctx context.Context, e *models.ExpenseRecord) error {
	_, err := b.DB.Exec(ctx,
		`INSERT INTO expenses(id, owner_id, category, description, amount, expense_date, deleted_at, created_at, updated_at)
		 VALUES($1, $2, $3, $4, $5, $6, $7, COALESCE($8, CURRENT_TIMESTAMP), CURRENT_TIMESTAMP)
		 ON CONFLICT (id) DO UPDATE SET
		   category=EXCLUDED.category, description=EXCLUDED.description, amount=EXCLUDED.amount,
		   expense_date=EXCLUDED.expense_date, deleted_at=EXCLUDED.deleted_at,
		   updated_at=CURRENT_TIMESTAMP`,
		e.ID, e.OwnerID, e.Category, e.Description, e.Amount, e.Date, e.DeletedAt, nullableTime(e.CreatedAt))
	return err
}

// DeleteExpense removes the row physically; expenses keep no tombstones
// on the backend.
func (b *PostgresBackend) DeleteExpense(ctx context.Context, id string) error {
	_, err := b.DB.Exec(ctx, `DELETE FROM expenses WHERE id=$1`, id)
	return err
}

func nullableTime(t time.Time) interface{} {
	if t.IsZero() {
		return nil
	}
	return t
}
