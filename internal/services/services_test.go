package services

import (
	"context"
	"testing"
	"time"

	"courier-backend/internal/connectivity"
	"courier-backend/internal/hybrid"
	"courier-backend/internal/localdb"
	"courier-backend/internal/localstore"
	"courier-backend/internal/models"
	"courier-backend/internal/state"
	"courier-backend/internal/syncqueue"
)

// nopBackend accepts every write and has no data of its own; all reads
// come back empty so the local layers are the only source of truth.
type nopBackend struct{}

func (nopBackend) GetClients(ctx context.Context, ownerID string) ([]*models.Client, error) {
	return nil, nil
}
func (nopBackend) SaveClient(ctx context.Context, c *models.Client) error { return nil }
func (nopBackend) DeleteClient(ctx context.Context, id string) error      { return nil }
func (nopBackend) GetServices(ctx context.Context, ownerID string, start, end *time.Time) ([]*models.ServiceRecord, error) {
	return nil, nil
}
func (nopBackend) SaveService(ctx context.Context, s *models.ServiceRecord) error   { return nil }
func (nopBackend) UpdateService(ctx context.Context, s *models.ServiceRecord) error { return nil }
func (nopBackend) DeleteService(ctx context.Context, id string) error               { return nil }
func (nopBackend) GetExpenses(ctx context.Context, ownerID string, start, end *time.Time) ([]*models.ExpenseRecord, error) {
	return nil, nil
}
func (nopBackend) SaveExpense(ctx context.Context, e *models.ExpenseRecord) error { return nil }
func (nopBackend) DeleteExpense(ctx context.Context, id string) error             { return nil }

type nopProber struct{}

func (nopProber) Probe(ctx context.Context) error { return nil }

func newTestState(t *testing.T) *state.Manager {
	t.Helper()
	db, err := localdb.Open(t.TempDir())
	if err != nil {
		t.Fatalf("open local db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	store, err := localstore.New(db)
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	queue, err := syncqueue.New(db)
	if err != nil {
		t.Fatalf("create queue: %v", err)
	}
	monitor := connectivity.NewMonitor(nopProber{}, time.Hour, time.Second)
	adapter := hybrid.New(store, queue, nopBackend{}, monitor)

	m := state.NewManager(adapter)
	// Force the snapshot into memory so later reads don't refetch
	// the (empty) backend over the top of optimistic writes.
	if err := m.RefreshAll(context.Background(), "owner-1"); err != nil {
		t.Fatal(err)
	}
	return m
}

func TestCreateClientValidatesAndGeneratesID(t *testing.T) {
	svc := NewClientService(newTestState(t))
	ctx := context.Background()

	if _, err := svc.CreateClient(ctx, "owner-1", &models.CreateClientRequest{}); err == nil {
		t.Error("expected error for missing name")
	}

	c, err := svc.CreateClient(ctx, "owner-1", &models.CreateClientRequest{Name: "Acme"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if c.ID == "" {
		t.Error("expected generated id")
	}
	if c.OwnerID != "owner-1" {
		t.Errorf("expected owner stamped on the record, got %q", c.OwnerID)
	}
}

func TestCreateClientKeepsClientSuppliedID(t *testing.T) {
	svc := NewClientService(newTestState(t))
	ctx := context.Background()

	c, err := svc.CreateClient(ctx, "owner-1", &models.CreateClientRequest{ID: "pre-made", Name: "Acme"})
	if err != nil {
		t.Fatal(err)
	}
	if c.ID != "pre-made" {
		t.Errorf("expected the supplied id kept, got %q", c.ID)
	}
}

func TestUpdateClientPreservesCreatedAt(t *testing.T) {
	svc := NewClientService(newTestState(t))
	ctx := context.Background()

	c, err := svc.CreateClient(ctx, "owner-1", &models.CreateClientRequest{Name: "Acme"})
	if err != nil {
		t.Fatal(err)
	}

	updated, err := svc.UpdateClient(ctx, "owner-1", c.ID, &models.UpdateClientRequest{Name: "Acme Ltd"})
	if err != nil {
		t.Fatal(err)
	}
	if updated.Name != "Acme Ltd" {
		t.Errorf("expected name updated, got %q", updated.Name)
	}
	if !updated.CreatedAt.Equal(c.CreatedAt) {
		t.Errorf("update must not rewrite created_at: %v vs %v", updated.CreatedAt, c.CreatedAt)
	}
}

func TestCreateServiceValidation(t *testing.T) {
	svc := NewServiceRecordService(newTestState(t))
	ctx := context.Background()

	if _, err := svc.CreateService(ctx, "owner-1", &models.CreateServiceRequest{Date: "2025-06-01"}); err == nil {
		t.Error("expected error for missing client_id")
	}
	if _, err := svc.CreateService(ctx, "owner-1", &models.CreateServiceRequest{ClientID: "c1"}); err == nil {
		t.Error("expected error for missing date")
	}
	if _, err := svc.CreateService(ctx, "owner-1", &models.CreateServiceRequest{ClientID: "c1", Date: "not a date"}); err == nil {
		t.Error("expected error for malformed date")
	}

	sr, err := svc.CreateService(ctx, "owner-1", &models.CreateServiceRequest{
		ClientID: "c1", Date: "2025-06-01", Cost: 100, DriverFee: 40,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if !sr.Date.Equal(time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("expected parsed date, got %v", sr.Date)
	}
}

func TestCreateExpenseValidation(t *testing.T) {
	svc := NewExpenseService(newTestState(t))
	ctx := context.Background()

	if _, err := svc.CreateExpense(ctx, "owner-1", &models.CreateExpenseRequest{Amount: 10, Date: "2025-06-01"}); err == nil {
		t.Error("expected error for missing category")
	}
	if _, err := svc.CreateExpense(ctx, "owner-1", &models.CreateExpenseRequest{Category: "fuel", Amount: -5, Date: "2025-06-01"}); err == nil {
		t.Error("expected error for negative amount")
	}

	e, err := svc.CreateExpense(ctx, "owner-1", &models.CreateExpenseRequest{Category: "fuel", Amount: 80, Date: "2025-06-01"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if e.Amount != 80 {
		t.Errorf("expected amount 80, got %v", e.Amount)
	}
}

func TestGetSummaryAggregates(t *testing.T) {
	st := newTestState(t)
	clients := NewClientService(st)
	svcRecords := NewServiceRecordService(st)
	expenses := NewExpenseService(st)
	reports := NewReportService(st)
	ctx := context.Background()

	c1, err := clients.CreateClient(ctx, "owner-1", &models.CreateClientRequest{Name: "Acme"})
	if err != nil {
		t.Fatal(err)
	}
	c2, err := clients.CreateClient(ctx, "owner-1", &models.CreateClientRequest{Name: "Bolt"})
	if err != nil {
		t.Fatal(err)
	}

	// Acme: 100 + 10 extra. Bolt: 200 + 20 waiting. Driver fees 40 + 50.
	if _, err := svcRecords.CreateService(ctx, "owner-1", &models.CreateServiceRequest{
		ClientID: c1.ID, Date: "2025-06-05", Cost: 100, ExtraFee: 10, DriverFee: 40,
	}); err != nil {
		t.Fatal(err)
	}
	if _, err := svcRecords.CreateService(ctx, "owner-1", &models.CreateServiceRequest{
		ClientID: c2.ID, Date: "2025-06-10", Cost: 200, WaitingTime: 20, DriverFee: 50,
	}); err != nil {
		t.Fatal(err)
	}
	// Out of range, must not count.
	if _, err := svcRecords.CreateService(ctx, "owner-1", &models.CreateServiceRequest{
		ClientID: c1.ID, Date: "2025-07-01", Cost: 999,
	}); err != nil {
		t.Fatal(err)
	}

	if _, err := expenses.CreateExpense(ctx, "owner-1", &models.CreateExpenseRequest{Category: "fuel", Amount: 60, Date: "2025-06-07"}); err != nil {
		t.Fatal(err)
	}
	if _, err := expenses.CreateExpense(ctx, "owner-1", &models.CreateExpenseRequest{Category: "tolls", Amount: 15, Date: "2025-06-08"}); err != nil {
		t.Fatal(err)
	}

	start := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 6, 30, 23, 59, 59, 0, time.UTC)
	got, err := reports.GetSummary(ctx, "owner-1", start, end)
	if err != nil {
		t.Fatalf("summary: %v", err)
	}

	if got.ServiceCount != 2 {
		t.Errorf("service count = %d, want 2", got.ServiceCount)
	}
	if got.Revenue != 330 {
		t.Errorf("revenue = %v, want 330", got.Revenue)
	}
	if got.DriverFees != 90 {
		t.Errorf("driver fees = %v, want 90", got.DriverFees)
	}
	if got.ExpenseTotal != 75 {
		t.Errorf("expense total = %v, want 75", got.ExpenseTotal)
	}
	if want := 330.0 - 90 - 75; got.Net != want {
		t.Errorf("net = %v, want %v", got.Net, want)
	}
	if got.ByCategory["fuel"] != 60 || got.ByCategory["tolls"] != 15 {
		t.Errorf("category breakdown wrong: %v", got.ByCategory)
	}

	if len(got.TopClients) != 2 {
		t.Fatalf("expected 2 top clients, got %d", len(got.TopClients))
	}
	if got.TopClients[0].Name != "Bolt" || got.TopClients[0].Revenue != 220 {
		t.Errorf("expected Bolt first with 220, got %+v", got.TopClients[0])
	}
}

func TestGetClientHistory(t *testing.T) {
	st := newTestState(t)
	svcRecords := NewServiceRecordService(st)
	reports := NewReportService(st)
	ctx := context.Background()

	for _, day := range []string{"2025-06-01", "2025-06-15"} {
		if _, err := svcRecords.CreateService(ctx, "owner-1", &models.CreateServiceRequest{
			ClientID: "c1", Date: day, Cost: 50,
		}); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := svcRecords.CreateService(ctx, "owner-1", &models.CreateServiceRequest{
		ClientID: "c2", Date: "2025-06-10", Cost: 500,
	}); err != nil {
		t.Fatal(err)
	}

	records, total, err := reports.GetClientHistory(ctx, "owner-1", "c1")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records for c1, got %d", len(records))
	}
	if total != 100 {
		t.Errorf("running total = %v, want 100", total)
	}
	if !records[0].Date.After(records[1].Date) {
		t.Error("expected newest-first order")
	}
}
