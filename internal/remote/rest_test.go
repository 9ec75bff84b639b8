package remote

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"courier-backend/internal/models"
)

func TestGetClientsMapsWireFields(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/clients" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("ownerId"); got != "owner-1" {
			t.Errorf("expected ownerId query param, got %q", got)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer sekrit" {
			t.Errorf("expected bearer auth, got %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{
			"id": "c1",
			"ownerId": "owner-1",
			"name": "Acme Freight",
			"phone": "555-0100",
			"deletedAt": "2025-06-15T10:30:00Z",
			"createdAt": "2025-01-01T00:00:00Z",
			"updatedAt": "2025-06-15T10:30:00Z"
		}]`))
	}))
	defer srv.Close()

	b := NewRESTBackend(srv.URL, "sekrit", 5*time.Second)
	got, err := b.GetClients(context.Background(), "owner-1")
	if err != nil {
		t.Fatalf("get clients: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 client, got %d", len(got))
	}
	c := got[0]
	if c.ID != "c1" || c.OwnerID != "owner-1" || c.Name != "Acme Freight" {
		t.Errorf("wire fields not mapped: %+v", c)
	}
	if c.DeletedAt == nil || c.DeletedAt.UTC() != time.Date(2025, 6, 15, 10, 30, 0, 0, time.UTC) {
		t.Errorf("deletedAt not mapped: %v", c.DeletedAt)
	}
}

func TestSaveServiceSendsCamelCase(t *testing.T) {
	var body map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut || r.URL.Path != "/services/s1" {
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	b := NewRESTBackend(srv.URL, "", 5*time.Second)
	s := &models.ServiceRecord{
		ID:        "s1",
		OwnerID:   "owner-1",
		ClientID:  "c1",
		Date:      time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
		Cost:      120,
		DriverFee: 45,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
	if err := b.SaveService(context.Background(), s); err != nil {
		t.Fatalf("save service: %v", err)
	}

	for _, key := range []string{"ownerId", "clientId", "driverFee", "waitingTime", "extraFee"} {
		if _, ok := body[key]; !ok {
			t.Errorf("expected camelCase key %q in wire body, got %v", key, body)
		}
	}
	if _, ok := body["owner_id"]; ok {
		t.Error("wire body must not leak snake_case field names")
	}
	if body["driverFee"] != 45.0 {
		t.Errorf("expected driverFee 45, got %v", body["driverFee"])
	}
}

func TestUpdateServiceUsesPatch(t *testing.T) {
	var method string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method = r.Method
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	b := NewRESTBackend(srv.URL, "", 5*time.Second)
	err := b.UpdateService(context.Background(), &models.ServiceRecord{ID: "s1", OwnerID: "owner-1"})
	if err != nil {
		t.Fatal(err)
	}
	if method != http.MethodPatch {
		t.Errorf("expected PATCH for service update, got %s", method)
	}
}

func TestNotFoundMapsToErrNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no such record", http.StatusNotFound)
	}))
	defer srv.Close()

	b := NewRESTBackend(srv.URL, "", 5*time.Second)
	if err := b.DeleteClient(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestServerErrorIncludesStatusAndBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "database on fire", http.StatusInternalServerError)
	}))
	defer srv.Close()

	b := NewRESTBackend(srv.URL, "", 5*time.Second)
	err := b.SaveExpense(context.Background(), &models.ExpenseRecord{ID: "e1", OwnerID: "owner-1", Category: "fuel"})
	if err == nil {
		t.Fatal("expected error on 500")
	}
	if errors.Is(err, ErrNotFound) {
		t.Errorf("500 must not map to ErrNotFound: %v", err)
	}
}

func TestRangeQueryBounds(t *testing.T) {
	var query map[string][]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query = r.URL.Query()
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	b := NewRESTBackend(srv.URL, "", 5*time.Second)
	from := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, 6, 30, 23, 59, 59, 0, time.UTC)
	if _, err := b.GetServices(context.Background(), "owner-1", &from, &to); err != nil {
		t.Fatal(err)
	}

	if got := query["from"]; len(got) != 1 || got[0] != "2025-06-01T00:00:00Z" {
		t.Errorf("unexpected from bound: %v", got)
	}
	if got := query["to"]; len(got) != 1 || got[0] != "2025-06-30T23:59:59Z" {
		t.Errorf("unexpected to bound: %v", got)
	}

	// Open bounds omit the params entirely.
	if _, err := b.GetServices(context.Background(), "owner-1", nil, nil); err != nil {
		t.Fatal(err)
	}
	if _, ok := query["from"]; ok {
		t.Error("open lower bound must omit the from param")
	}
}

func TestGetServicesNormalizesStringAmounts(t *testing.T) {
	// Spreadsheet imports upstream occasionally ship amounts as strings
	// with currency symbols or comma decimal marks.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{
			"id": "s1",
			"ownerId": "owner-1",
			"clientId": "c1",
			"date": "2025-06-01T09:00:00Z",
			"cost": "$1,250.00",
			"driverFee": "50,5",
			"waitingTime": 10,
			"extraFee": "garbage",
			"createdAt": "2025-06-01T09:00:00Z",
			"updatedAt": "2025-06-01T09:00:00Z"
		}]`))
	}))
	defer srv.Close()

	b := NewRESTBackend(srv.URL, "sekrit", 5*time.Second)
	got, err := b.GetServices(context.Background(), "owner-1", nil, nil)
	if err != nil {
		t.Fatalf("get services: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 service, got %d", len(got))
	}
	s := got[0]
	if s.Cost != 1250 {
		t.Errorf("expected cost 1250, got %v", s.Cost)
	}
	if s.DriverFee != 50.5 {
		t.Errorf("expected driver fee 50.5, got %v", s.DriverFee)
	}
	if s.WaitingTime != 10 {
		t.Errorf("expected waiting time 10, got %v", s.WaitingTime)
	}
	if s.ExtraFee != 0 {
		t.Errorf("expected unparseable extra fee to read 0, got %v", s.ExtraFee)
	}
}
