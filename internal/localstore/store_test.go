package localstore

import (
	"context"
	"testing"
	"time"

	"courier-backend/internal/localdb"
	"courier-backend/internal/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := localdb.Open(t.TempDir())
	if err != nil {
		t.Fatalf("open local db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	s, err := New(db)
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	return s
}

func testClient(id, owner, name string) *models.Client {
	now := time.Now().UTC().Truncate(time.Second)
	return &models.Client{
		ID:        id,
		OwnerID:   owner,
		Name:      name,
		Phone:     "555-0100",
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func testService(id, owner, clientID string, date time.Time) *models.ServiceRecord {
	now := time.Now().UTC().Truncate(time.Second)
	return &models.ServiceRecord{
		ID:        id,
		OwnerID:   owner,
		ClientID:  clientID,
		Date:      date,
		Cost:      50,
		DriverFee: 20,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func testExpense(id, owner, category string, amount float64) *models.ExpenseRecord {
	now := time.Now().UTC().Truncate(time.Second)
	return &models.ExpenseRecord{
		ID:        id,
		OwnerID:   owner,
		Category:  category,
		Amount:    amount,
		Date:      now,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestPutClientUpserts(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	c := testClient("c1", "owner-1", "Acme Freight")
	if err := s.PutClient(ctx, c); err != nil {
		t.Fatalf("put: %v", err)
	}

	c.Name = "Acme Freight Ltd"
	if err := s.PutClient(ctx, c); err != nil {
		t.Fatalf("re-put: %v", err)
	}

	got, err := s.GetClients(ctx, "owner-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected upsert to keep one row, got %d", len(got))
	}
	if got[0].Name != "Acme Freight Ltd" {
		t.Errorf("expected updated name, got %q", got[0].Name)
	}
}

func TestClientsScopedByOwner(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.PutClients(ctx, []*models.Client{
		testClient("c1", "owner-1", "A"),
		testClient("c2", "owner-2", "B"),
	}); err != nil {
		t.Fatal(err)
	}

	got, err := s.GetClients(ctx, "owner-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].ID != "c1" {
		t.Errorf("expected only owner-1 rows, got %+v", got)
	}
}

func TestTombstonedClientsStayReadable(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	c := testClient("c1", "owner-1", "Gone Inc")
	deleted := time.Now().UTC().Truncate(time.Second)
	c.DeletedAt = &deleted
	if err := s.PutClient(ctx, c); err != nil {
		t.Fatal(err)
	}

	got, err := s.GetClients(ctx, "owner-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 {
		t.Fatalf("tombstoned row must still be stored, got %d rows", len(got))
	}
	if got[0].DeletedAt == nil || !got[0].DeletedAt.Equal(deleted) {
		t.Errorf("expected deleted_at %v, got %v", deleted, got[0].DeletedAt)
	}
}

func TestStoreSurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	db, err := localdb.Open(dir)
	if err != nil {
		t.Fatal(err)
	}
	s, err := New(db)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.PutClient(ctx, testClient("c1", "owner-1", "Persisted")); err != nil {
		t.Fatal(err)
	}
	db.Close()

	db2, err := localdb.Open(dir)
	if err != nil {
		t.Fatal(err)
	}
	defer db2.Close()
	s2, err := New(db2)
	if err != nil {
		t.Fatal(err)
	}

	got, err := s2.GetClients(ctx, "owner-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Name != "Persisted" {
		t.Errorf("expected row to survive reopen, got %+v", got)
	}
}

func TestGetServicesByClient(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	day := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	if err := s.PutServices(ctx, []*models.ServiceRecord{
		testService("s1", "owner-1", "c1", day),
		testService("s2", "owner-1", "c2", day),
		testService("s3", "owner-1", "c1", day.AddDate(0, 0, 1)),
	}); err != nil {
		t.Fatal(err)
	}

	got, err := s.GetServicesByClient(ctx, "owner-1", "c1")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 records for c1, got %d", len(got))
	}
	for _, r := range got {
		if r.ClientID != "c1" {
			t.Errorf("unexpected record %s for client %s", r.ID, r.ClientID)
		}
	}
}

func TestDeleteExpenseRemovesRow(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.PutExpense(ctx, testExpense("e1", "owner-1", "fuel", 80)); err != nil {
		t.Fatal(err)
	}
	if err := s.DeleteExpense(ctx, "e1"); err != nil {
		t.Fatal(err)
	}

	got, err := s.GetExpenses(ctx, "owner-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Errorf("expected physical delete, got %d rows", len(got))
	}
}

func TestReplaceAllForOwner(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	day := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	// Stale local state for owner-1, plus a row of owner-2's that must
	// not be touched.
	if err := s.PutClients(ctx, []*models.Client{
		testClient("c-old", "owner-1", "Stale"),
		testClient("c-other", "owner-2", "Untouched"),
	}); err != nil {
		t.Fatal(err)
	}
	if err := s.PutService(ctx, testService("s-old", "owner-1", "c-old", day)); err != nil {
		t.Fatal(err)
	}

	err := s.ReplaceAllForOwner(ctx, "owner-1",
		[]*models.Client{testClient("c-new", "owner-1", "Fresh")},
		[]*models.ServiceRecord{testService("s-new", "owner-1", "c-new", day)},
		[]*models.ExpenseRecord{testExpense("e-new", "owner-1", "tolls", 12)})
	if err != nil {
		t.Fatalf("replace: %v", err)
	}

	clients, err := s.GetClients(ctx, "owner-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(clients) != 1 || clients[0].ID != "c-new" {
		t.Errorf("expected only the fresh client, got %+v", clients)
	}

	services, err := s.GetServices(ctx, "owner-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(services) != 1 || services[0].ID != "s-new" {
		t.Errorf("expected only the fresh service, got %+v", services)
	}

	other, err := s.GetClients(ctx, "owner-2")
	if err != nil {
		t.Fatal(err)
	}
	if len(other) != 1 || other[0].ID != "c-other" {
		t.Errorf("replace must not cross owners, got %+v", other)
	}
}

func TestReplaceAllForOwnerIsIdempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	snapshot := []*models.Client{testClient("c1", "owner-1", "Repeat")}
	for i := 0; i < 2; i++ {
		if err := s.ReplaceAllForOwner(ctx, "owner-1", snapshot, nil, nil); err != nil {
			t.Fatalf("replace %d: %v", i, err)
		}
	}

	got, err := s.GetClients(ctx, "owner-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 {
		t.Errorf("expected replace to be idempotent, got %d rows", len(got))
	}
}
