// Package hybrid routes every read and write between the remote backend,
// the durable local cache and the mutation queue. Callers above this
// package never see connectivity: writes always succeed locally, reads
// always return the freshest data reachable right now.
package hybrid

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"courier-backend/internal/connectivity"
	"courier-backend/internal/localstore"
	"courier-backend/internal/metrics"
	"courier-backend/internal/models"
	"courier-backend/internal/remote"
	"courier-backend/internal/syncqueue"
)

// ErrOffline is returned by operations that refuse to run without a
// reachable backend, such as ForceSync.
var ErrOffline = errors.New("hybrid: remote backend unreachable")

type Adapter struct {
	store   *localstore.Store
	queue   *syncqueue.Queue
	backend remote.Backend
	monitor *connectivity.Monitor
}

func New(store *localstore.Store, queue *syncqueue.Queue, backend remote.Backend, monitor *connectivity.Monitor) *Adapter {
	a := &Adapter{
		store:   store,
		queue:   queue,
		backend: backend,
		monitor: monitor,
	}
	// Regaining connectivity drains whatever accumulated while offline.
	monitor.Subscribe(func(online bool) {
		if online {
			go func() {
				ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
				defer cancel()
				if _, err := a.Drain(ctx); err != nil {
					log.Printf("[Hybrid] Drain after reconnect failed: %v", err)
				}
			}()
		}
	})
	return a
}

func (a *Adapter) Online() bool { return a.monitor.IsOnline() }

// ---------------------------------------------------------------
// Writes
//
// Every write lands in the local cache first so it survives a crash,
// then goes to the backend directly when online. A backend error is
// never surfaced to the caller: the mutation falls back to the queue
// and the monitor is told the link is down.
// ---------------------------------------------------------------

func (a *Adapter) writeThrough(ctx context.Context, entity models.EntityKind, op models.Operation, payload interface{}, send func(context.Context) error) error {
	if a.monitor.IsOnline() {
		err := send(ctx)
		if err == nil {
			return nil
		}
		log.Printf("[Hybrid] Remote %s %s failed, queueing: %v", op, entity, err)
		a.monitor.ReportOffline()
	}
	if _, err := a.queue.Enqueue(ctx, entity, op, payload); err != nil {
		return fmt.Errorf("failed to queue %s %s: %w", op, entity, err)
	}
	return nil
}

func (a *Adapter) SaveClient(ctx context.Context, c *models.Client) error {
	if err := a.store.PutClient(ctx, c); err != nil {
		return err
	}
	return a.writeThrough(ctx, models.EntityClients, models.OperationCreate, c, func(ctx context.Context) error {
		return a.backend.SaveClient(ctx, c)
	})
}

func (a *Adapter) UpdateClient(ctx context.Context, c *models.Client) error {
	if err := a.store.PutClient(ctx, c); err != nil {
		return err
	}
	return a.writeThrough(ctx, models.EntityClients, models.OperationUpdate, c, func(ctx context.Context) error {
		return a.backend.SaveClient(ctx, c)
	})
}

// DeleteClient tombstones the client. The record stays in the cache and
// on the backend with deleted_at set, so offline peers converge instead
// of resurrecting it. The tombstone is written to a private copy; the
// caller's record may be shared with concurrent readers.
func (a *Adapter) DeleteClient(ctx context.Context, c *models.Client) error {
	cp := *c
	now := time.Now()
	cp.DeletedAt = &now
	if err := a.store.PutClient(ctx, &cp); err != nil {
		return err
	}
	return a.writeThrough(ctx, models.EntityClients, models.OperationDelete, map[string]string{"id": c.ID}, func(ctx context.Context) error {
		return a.backend.DeleteClient(ctx, c.ID)
	})
}

func (a *Adapter) SaveService(ctx context.Context, s *models.ServiceRecord) error {
	if err := a.store.PutService(ctx, s); err != nil {
		return err
	}
	return a.writeThrough(ctx, models.EntityServices, models.OperationCreate, s, func(ctx context.Context) error {
		return a.backend.SaveService(ctx, s)
	})
}

func (a *Adapter) UpdateService(ctx context.Context, s *models.ServiceRecord) error {
	if err := a.store.PutService(ctx, s); err != nil {
		return err
	}
	return a.writeThrough(ctx, models.EntityServices, models.OperationUpdate, s, func(ctx context.Context) error {
		return a.backend.UpdateService(ctx, s)
	})
}

func (a *Adapter) DeleteService(ctx context.Context, s *models.ServiceRecord) error {
	cp := *s
	now := time.Now()
	cp.DeletedAt = &now
	if err := a.store.PutService(ctx, &cp); err != nil {
		return err
	}
	return a.writeThrough(ctx, models.EntityServices, models.OperationDelete, map[string]string{"id": s.ID}, func(ctx context.Context) error {
		return a.backend.DeleteService(ctx, s.ID)
	})
}

func (a *Adapter) SaveExpense(ctx context.Context, e *models.ExpenseRecord) error {
	if err := a.store.PutExpense(ctx, e); err != nil {
		return err
	}
	return a.writeThrough(ctx, models.EntityExpenses, models.OperationCreate, e, func(ctx context.Context) error {
		return a.backend.SaveExpense(ctx, e)
	})
}

func (a *Adapter) UpdateExpense(ctx context.Context, e *models.ExpenseRecord) error {
	if err := a.store.PutExpense(ctx, e); err != nil {
		return err
	}
	return a.writeThrough(ctx, models.EntityExpenses, models.OperationUpdate, e, func(ctx context.Context) error {
		return a.backend.SaveExpense(ctx, e)
	})
}

// DeleteExpense removes the expense locally for good; the backend keeps
// no expense tombstones either.
func (a *Adapter) DeleteExpense(ctx context.Context, id string) error {
	if err := a.store.DeleteExpense(ctx, id); err != nil {
		return err
	}
	return a.writeThrough(ctx, models.EntityExpenses, models.OperationDelete, map[string]string{"id": id}, func(ctx context.Context) error {
		return a.backend.DeleteExpense(ctx, id)
	})
}

// ---------------------------------------------------------------
// Reads
//
// Remote first with a write-through into the cache; any remote failure
// degrades to the cache silently. Tombstoned rows are filtered here so
// callers only ever see live records.
// ---------------------------------------------------------------

func (a *Adapter) GetClients(ctx context.Context, ownerID string) ([]*models.Client, error) {
	if a.monitor.IsOnline() {
		clients, err := a.backend.GetClients(ctx, ownerID)
		if err == nil {
			if err := a.store.PutClients(ctx, clients); err != nil {
				log.Printf("[Hybrid] Failed to cache clients: %v", err)
			}
			return liveClients(clients), nil
		}
		log.Printf("[Hybrid] Remote client fetch failed, using cache: %v", err)
		a.monitor.ReportOffline()
	}
	clients, err := a.store.GetClients(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	return liveClients(clients), nil
}

func (a *Adapter) GetServices(ctx context.Context, ownerID string, start, end *time.Time) ([]*models.ServiceRecord, error) {
	if a.monitor.IsOnline() {
		records, err := a.backend.GetServices(ctx, ownerID, start, end)
		if err == nil {
			if err := a.store.PutServices(ctx, records); err != nil {
				log.Printf("[Hybrid] Failed to cache services: %v", err)
			}
			return liveServices(records), nil
		}
		log.Printf("[Hybrid] Remote service fetch failed, using cache: %v", err)
		a.monitor.ReportOffline()
	}
	records, err := a.store.GetServices(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	return FilterServicesByRange(liveServices(records), start, end), nil
}

func (a *Adapter) GetServicesByClient(ctx context.Context, ownerID, clientID string) ([]*models.ServiceRecord, error) {
	if a.monitor.IsOnline() {
		records, err := a.backend.GetServices(ctx, ownerID, nil, nil)
		if err == nil {
			if err := a.store.PutServices(ctx, records); err != nil {
				log.Printf("[Hybrid] Failed to cache services: %v", err)
			}
			return FilterServicesByClient(liveServices(records), clientID), nil
		}
		log.Printf("[Hybrid] Remote service fetch failed, using cache: %v", err)
		a.monitor.ReportOffline()
	}
	records, err := a.store.GetServicesByClient(ctx, ownerID, clientID)
	if err != nil {
		return nil, err
	}
	return liveServices(records), nil
}

func (a *Adapter) GetExpenses(ctx context.Context, ownerID string, start, end *time.Time) ([]*models.ExpenseRecord, error) {
	if a.monitor.IsOnline() {
		expenses, err := a.backend.GetExpenses(ctx, ownerID, start, end)
		if err == nil {
			if err := a.store.PutExpenses(ctx, expenses); err != nil {
				log.Printf("[Hybrid] Failed to cache expenses: %v", err)
			}
			return liveExpenses(expenses), nil
		}
		log.Printf("[Hybrid] Remote expense fetch failed, using cache: %v", err)
		a.monitor.ReportOffline()
	}
	expenses, err := a.store.GetExpenses(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	return FilterExpensesByRange(liveExpenses(expenses), start, end), nil
}

func liveClients(in []*models.Client) []*models.Client {
	out := make([]*models.Client, 0, len(in))
	for _, c := range in {
		if c.DeletedAt == nil {
			out = append(out, c)
		}
	}
	return out
}

func liveServices(in []*models.ServiceRecord) []*models.ServiceRecord {
	out := make([]*models.ServiceRecord, 0, len(in))
	for _, s := range in {
		if s.DeletedAt == nil {
			out = append(out, s)
		}
	}
	return out
}

func liveExpenses(in []*models.ExpenseRecord) []*models.ExpenseRecord {
	out := make([]*models.ExpenseRecord, 0, len(in))
	for _, e := range in {
		if e.DeletedAt == nil {
			out = append(out, e)
		}
	}
	return out
}

// FilterServicesByRange keeps records whose date falls inside the
// half-open-ended range; a nil bound means unbounded on that side.
func FilterServicesByRange(in []*models.ServiceRecord, start, end *time.Time) []*models.ServiceRecord {
	if start == nil && end == nil {
		return in
	}
	out := make([]*models.ServiceRecord, 0, len(in))
	for _, s := range in {
		if start != nil && s.Date.Before(*start) {
			continue
		}
		if end != nil && s.Date.After(*end) {
			continue
		}
		out = append(out, s)
	}
	return out
}

func FilterServicesByClient(in []*models.ServiceRecord, clientID string) []*models.ServiceRecord {
	out := make([]*models.ServiceRecord, 0, len(in))
	for _, s := range in {
		if s.ClientID == clientID {
			out = append(out, s)
		}
	}
	return out
}

func FilterExpensesByRange(in []*models.ExpenseRecord, start, end *time.Time) []*models.ExpenseRecord {
	if start == nil && end == nil {
		return in
	}
	out := make([]*models.ExpenseRecord, 0, len(in))
	for _, e := range in {
		if start != nil && e.Date.Before(*start) {
			continue
		}
		if end != nil && e.Date.After(*end) {
			continue
		}
		out = append(out, e)
	}
	return out
}

// ---------------------------------------------------------------
// Queue replay
// ---------------------------------------------------------------

// Drain replays queued mutations against the backend in enqueue order.
// The queue itself guarantees only one drain runs at a time.
func (a *Adapter) Drain(ctx context.Context) (syncqueue.DrainResult, error) {
	metrics.SyncDrainsTotal.Inc()
	res, err := a.queue.Drain(ctx, a.applyItem)
	metrics.SyncReplayedTotal.Add(float64(res.Processed))
	metrics.SyncFailedTotal.Add(float64(res.Failed))
	if n, cerr := a.queue.PendingCount(ctx); cerr == nil {
		metrics.QueuePendingItems.Set(float64(n))
	}
	return res, err
}

func (a *Adapter) applyItem(ctx context.Context, item *models.QueueItem) error {
	switch item.Entity {
	case models.EntityClients:
		if item.Operation == models.OperationDelete {
			return ignoreNotFound(a.backend.DeleteClient(ctx, payloadID(item.Payload)))
		}
		var c models.Client
		if err := json.Unmarshal(item.Payload, &c); err != nil {
			return fmt.Errorf("corrupt client payload: %w", err)
		}
		return a.backend.SaveClient(ctx, &c)

	case models.EntityServices:
		switch item.Operation {
		case models.OperationDelete:
			return ignoreNotFound(a.backend.DeleteService(ctx, payloadID(item.Payload)))
		case models.OperationUpdate:
			var s models.ServiceRecord
			if err := json.Unmarshal(item.Payload, &s); err != nil {
				return fmt.Errorf("corrupt service payload: %w", err)
			}
			return a.backend.UpdateService(ctx, &s)
		default:
			var s models.ServiceRecord
			if err := json.Unmarshal(item.Payload, &s); err != nil {
				return fmt.Errorf("corrupt service payload: %w", err)
			}
			return a.backend.SaveService(ctx, &s)
		}

	case models.EntityExpenses:
		if item.Operation == models.OperationDelete {
			return ignoreNotFound(a.backend.DeleteExpense(ctx, payloadID(item.Payload)))
		}
		var e models.ExpenseRecord
		if err := json.Unmarshal(item.Payload, &e); err != nil {
			return fmt.Errorf("corrupt expense payload: %w", err)
		}
		return a.backend.SaveExpense(ctx, &e)
	}
	return fmt.Errorf("unknown queue entity %q", item.Entity)
}

// A replayed delete may target a record the backend already dropped;
// that is convergence, not failure.
func ignoreNotFound(err error) error {
	if errors.Is(err, remote.ErrNotFound) {
		return nil
	}
	return err
}

func payloadID(payload json.RawMessage) string {
	var p struct {
		ID string `json:"id"`
	}
	_ = json.Unmarshal(payload, &p)
	return p.ID
}

// ---------------------------------------------------------------
// Force sync
// ---------------------------------------------------------------

// ForceSync pushes every queued mutation, pulls the owner's full data
// set from the backend and replaces the cache with it atomically. It
// refuses to run offline: an empty backend answer must never be able
// to wipe a cache full of real data.
func (a *Adapter) ForceSync(ctx context.Context, ownerID string) error {
	if !a.monitor.CheckNow(ctx) {
		return ErrOffline
	}

	if res, err := a.Drain(ctx); err != nil {
		return fmt.Errorf("drain before full sync failed: %w", err)
	} else if res.Failed > 0 {
		log.Printf("[Hybrid] ForceSync continuing with %d permanently failed items", res.Failed)
	}

	clients, err := a.backend.GetClients(ctx, ownerID)
	if err != nil {
		a.monitor.ReportOffline()
		return fmt.Errorf("full sync client fetch failed: %w", err)
	}
	services, err := a.backend.GetServices(ctx, ownerID, nil, nil)
	if err != nil {
		a.monitor.ReportOffline()
		return fmt.Errorf("full sync service fetch failed: %w", err)
	}
	expenses, err := a.backend.GetExpenses(ctx, ownerID, nil, nil)
	if err != nil {
		a.monitor.ReportOffline()
		return fmt.Errorf("full sync expense fetch failed: %w", err)
	}

	if err := a.store.ReplaceAllForOwner(ctx, ownerID, clients, services, expenses); err != nil {
		return fmt.Errorf("cache replace failed: %w", err)
	}
	log.Printf("[Hybrid] Full sync for owner %s: %d clients, %d services, %d expenses",
		ownerID, len(clients), len(services), len(expenses))
	return nil
}

// ---------------------------------------------------------------
// Status
// ---------------------------------------------------------------

type Status struct {
	Online       bool                `json:"online"`
	LastOnlineAt time.Time           `json:"last_online_at"`
	PendingCount int                 `json:"pending_count"`
	FailedItems  []*models.QueueItem `json:"failed_items"`
}

func (a *Adapter) Status(ctx context.Context) (*Status, error) {
	pending, err := a.queue.PendingCount(ctx)
	if err != nil {
		return nil, err
	}
	failed, err := a.queue.FailedItems(ctx)
	if err != nil {
		return nil, err
	}
	return &Status{
		Online:       a.monitor.IsOnline(),
		LastOnlineAt: a.monitor.LastOnlineAt(),
		PendingCount: pending,
		FailedItems:  failed,
	}, nil
}

// RetryFailed re-arms permanently failed items and, when online,
// immediately drains them.
func (a *Adapter) RetryFailed(ctx context.Context) (int, error) {
	n, err := a.queue.RetryFailed(ctx)
	if err != nil {
		return 0, err
	}
	if n > 0 && a.monitor.IsOnline() {
		if _, err := a.Drain(ctx); err != nil {
			return n, err
		}
	}
	return n, nil
}
