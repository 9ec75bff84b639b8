// Package state keeps the in-memory working set the API serves from.
// Mutations apply here first and are pushed down through the hybrid
// adapter afterwards, so the caller sees the result immediately even
// when the push ends up queued. A failed push reconciles by reloading
// the whole owner snapshot rather than by rolling back individual
// records.
package state

import (
	"context"
	"log"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"courier-backend/internal/hybrid"
	"courier-backend/internal/models"
)

type Manager struct {
	adapter *hybrid.Adapter

	mu     sync.Mutex
	owners map[string]*ownerState

	syncing atomic.Int64
}

type ownerState struct {
	mu       sync.RWMutex
	loaded   bool
	clients  map[string]*models.Client
	services map[string]*models.ServiceRecord
	expenses map[string]*models.ExpenseRecord

	refreshMu   sync.Mutex
	refreshDone chan struct{}
	refreshErr  error
}

func NewManager(adapter *hybrid.Adapter) *Manager {
	return &Manager{
		adapter: adapter,
		owners:  make(map[string]*ownerState),
	}
}

// IsSyncing reports whether any mutation push is currently in flight.
func (m *Manager) IsSyncing() bool {
	return m.syncing.Load() > 0
}

func (m *Manager) owner(ownerID string) *ownerState {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.owners[ownerID]
	if !ok {
		st = &ownerState{
			clients:  make(map[string]*models.Client),
			services: make(map[string]*models.ServiceRecord),
			expenses: make(map[string]*models.ExpenseRecord),
		}
		m.owners[ownerID] = st
	}
	return st
}

func (m *Manager) ensureLoaded(ctx context.Context, ownerID string) (*ownerState, error) {
	st := m.owner(ownerID)
	st.mu.RLock()
	loaded := st.loaded
	st.mu.RUnlock()
	if loaded {
		return st, nil
	}
	if err := m.RefreshAll(ctx, ownerID); err != nil {
		return nil, err
	}
	return st, nil
}

// RefreshAll reloads the owner's snapshot through the adapter. Calls
// that arrive while a reload is already running do not start a second
// one; they wait for the running reload and share its outcome.
func (m *Manager) RefreshAll(ctx context.Context, ownerID string) error {
	st := m.owner(ownerID)

	st.refreshMu.Lock()
	if st.refreshDone != nil {
		done := st.refreshDone
		st.refreshMu.Unlock()
		select {
		case <-done:
		case <-ctx.Done():
			return ctx.Err()
		}
		st.refreshMu.Lock()
		err := st.refreshErr
		st.refreshMu.Unlock()
		return err
	}
	done := make(chan struct{})
	st.refreshDone = done
	st.refreshMu.Unlock()

	err := m.reload(ctx, ownerID, st)

	st.refreshMu.Lock()
	st.refreshErr = err
	st.refreshDone = nil
	st.refreshMu.Unlock()
	close(done)
	return err
}

func (m *Manager) reload(ctx context.Context, ownerID string, st *ownerState) error {
	clients, err := m.adapter.GetClients(ctx, ownerID)
	if err != nil {
		return err
	}
	services, err := m.adapter.GetServices(ctx, ownerID, nil, nil)
	if err != nil {
		return err
	}
	expenses, err := m.adapter.GetExpenses(ctx, ownerID, nil, nil)
	if err != nil {
		return err
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	st.clients = make(map[string]*models.Client, len(clients))
	for _, c := range clients {
		st.clients[c.ID] = c
	}
	st.services = make(map[string]*models.ServiceRecord, len(services))
	for _, s := range services {
		st.services[s.ID] = s
	}
	st.expenses = make(map[string]*models.ExpenseRecord, len(expenses))
	for _, e := range expenses {
		st.expenses[e.ID] = e
	}
	st.loaded = true
	return nil
}

// push runs the adapter call bracketed by the syncing counter. A push
// error leaves memory ahead of storage, so the snapshot is reloaded to
// reconcile before the error is handed back.
func (m *Manager) push(ctx context.Context, ownerID string, fn func(context.Context) error) error {
	m.syncing.Add(1)
	defer m.syncing.Add(-1)

	if err := fn(ctx); err != nil {
		log.Printf("[State] Push failed for owner %s, reloading snapshot: %v", ownerID, err)
		if rerr := m.RefreshAll(ctx, ownerID); rerr != nil {
			log.Printf("[State] Reconcile reload failed: %v", rerr)
		}
		return err
	}
	return nil
}

// ---------------------------------------------------------------
// Clients
// ---------------------------------------------------------------

func (m *Manager) Clients(ctx context.Context, ownerID string) ([]*models.Client, error) {
	st, err := m.ensureLoaded(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	st.mu.RLock()
	defer st.mu.RUnlock()
	out := make([]*models.Client, 0, len(st.clients))
	for _, c := range st.clients {
		if c.DeletedAt == nil {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *Manager) GetClient(ctx context.Context, ownerID, id string) (*models.Client, bool, error) {
	st, err := m.ensureLoaded(ctx, ownerID)
	if err != nil {
		return nil, false, err
	}
	st.mu.RLock()
	defer st.mu.RUnlock()
	c, ok := st.clients[id]
	if !ok || c.DeletedAt != nil {
		return nil, false, nil
	}
	return c, true, nil
}

func (m *Manager) SaveClient(ctx context.Context, c *models.Client) error {
	st, err := m.ensureLoaded(ctx, c.OwnerID)
	if err != nil {
		return err
	}
	st.mu.Lock()
	st.clients[c.ID] = c
	st.mu.Unlock()
	return m.push(ctx, c.OwnerID, func(ctx context.Context) error {
		return m.adapter.SaveClient(ctx, c)
	})
}

func (m *Manager) UpdateClient(ctx context.Context, c *models.Client) error {
	st, err := m.ensureLoaded(ctx, c.OwnerID)
	if err != nil {
		return err
	}
	st.mu.Lock()
	st.clients[c.ID] = c
	st.mu.Unlock()
	return m.push(ctx, c.OwnerID, func(ctx context.Context) error {
		return m.adapter.UpdateClient(ctx, c)
	})
}

func (m *Manager) DeleteClient(ctx context.Context, ownerID, id string) error {
	st, err := m.ensureLoaded(ctx, ownerID)
	if err != nil {
		return err
	}
	st.mu.Lock()
	cur, ok := st.clients[id]
	var c *models.Client
	if ok {
		// Swap in a tombstoned copy rather than mutating in place;
		// pointers handed out by Clients may still be read elsewhere.
		cp := *cur
		now := time.Now()
		cp.DeletedAt = &now
		st.clients[id] = &cp
		c = &cp
	}
	st.mu.Unlock()
	if !ok {
		return nil
	}
	return m.push(ctx, ownerID, func(ctx context.Context) error {
		return m.adapter.DeleteClient(ctx, c)
	})
}

// RestoreClient clears a tombstone, bringing a deleted client back.
func (m *Manager) RestoreClient(ctx context.Context, ownerID, id string) error {
	st, err := m.ensureLoaded(ctx, ownerID)
	if err != nil {
		return err
	}
	st.mu.Lock()
	cur, ok := st.clients[id]
	var c *models.Client
	if ok {
		cp := *cur
		cp.DeletedAt = nil
		cp.UpdatedAt = time.Now()
		st.clients[id] = &cp
		c = &cp
	}
	st.mu.Unlock()
	if !ok {
		return nil
	}
	return m.push(ctx, ownerID, func(ctx context.Context) error {
		return m.adapter.UpdateClient(ctx, c)
	})
}

// ---------------------------------------------------------------
// Service records
// ---------------------------------------------------------------

func (m *Manager) Services(ctx context.Context, ownerID string, start, end *time.Time) ([]*models.ServiceRecord, error) {
	st, err := m.ensureLoaded(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	st.mu.RLock()
	all := make([]*models.ServiceRecord, 0, len(st.services))
	for _, s := range st.services {
		if s.DeletedAt == nil {
			all = append(all, s)
		}
	}
	st.mu.RUnlock()
	out := hybrid.FilterServicesByRange(all, start, end)
	sort.Slice(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	return out, nil
}

func (m *Manager) ServicesByClient(ctx context.Context, ownerID, clientID string) ([]*models.ServiceRecord, error) {
	all, err := m.Services(ctx, ownerID, nil, nil)
	if err != nil {
		return nil, err
	}
	return hybrid.FilterServicesByClient(all, clientID), nil
}

func (m *Manager) SaveService(ctx context.Context, s *models.ServiceRecord) error {
	st, err := m.ensureLoaded(ctx, s.OwnerID)
	if err != nil {
		return err
	}
	st.mu.Lock()
	st.services[s.ID] = s
	st.mu.Unlock()
	return m.push(ctx, s.OwnerID, func(ctx context.Context) error {
		return m.adapter.SaveService(ctx, s)
	})
}

func (m *Manager) UpdateService(ctx context.Context, s *models.ServiceRecord) error {
	st, err := m.ensureLoaded(ctx, s.OwnerID)
	if err != nil {
		return err
	}
	st.mu.Lock()
	st.services[s.ID] = s
	st.mu.Unlock()
	return m.push(ctx, s.OwnerID, func(ctx context.Context) error {
		return m.adapter.UpdateService(ctx, s)
	})
}

func (m *Manager) DeleteService(ctx context.Context, ownerID, id string) error {
	st, err := m.ensureLoaded(ctx, ownerID)
	if err != nil {
		return err
	}
	st.mu.Lock()
	cur, ok := st.services[id]
	var s *models.ServiceRecord
	if ok {
		cp := *cur
		now := time.Now()
		cp.DeletedAt = &now
		st.services[id] = &cp
		s = &cp
	}
	st.mu.Unlock()
	if !ok {
		return nil
	}
	return m.push(ctx, ownerID, func(ctx context.Context) error {
		return m.adapter.DeleteService(ctx, s)
	})
}

func (m *Manager) RestoreService(ctx context.Context, ownerID, id string) error {
	st, err := m.ensureLoaded(ctx, ownerID)
	if err != nil {
		return err
	}
	st.mu.Lock()
	cur, ok := st.services[id]
	var s *models.ServiceRecord
	if ok {
		cp := *cur
		cp.DeletedAt = nil
		cp.UpdatedAt = time.Now()
		st.services[id] = &cp
		s = &cp
	}
	st.mu.Unlock()
	if !ok {
		return nil
	}
	return m.push(ctx, ownerID, func(ctx context.Context) error {
		return m.adapter.UpdateService(ctx, s)
	})
}

// ---------------------------------------------------------------
// Expenses
// ---------------------------------------------------------------

func (m *Manager) Expenses(ctx context.Context, ownerID string, start, end *time.Time) ([]*models.ExpenseRecord, error) {
	st, err := m.ensureLoaded(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	st.mu.RLock()
	all := make([]*models.ExpenseRecord, 0, len(st.expenses))
	for _, e := range st.expenses {
		if e.DeletedAt == nil {
			all = append(all, e)
		}
	}
	st.mu.RUnlock()
	out := hybrid.FilterExpensesByRange(all, start, end)
	sort.Slice(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	return out, nil
}

func (m *Manager) SaveExpense(ctx context.Context, e *models.ExpenseRecord) error {
	st, err := m.ensureLoaded(ctx, e.OwnerID)
	if err != nil {
		return err
	}
	st.mu.Lock()
	st.expenses[e.ID] = e
	st.mu.Unlock()
	return m.push(ctx, e.OwnerID, func(ctx context.Context) error {
		return m.adapter.SaveExpense(ctx, e)
	})
}

func (m *Manager) UpdateExpense(ctx context.Context, e *models.ExpenseRecord) error {
	st, err := m.ensureLoaded(ctx, e.OwnerID)
	if err != nil {
		return err
	}
	st.mu.Lock()
	st.expenses[e.ID] = e
	st.mu.Unlock()
	return m.push(ctx, e.OwnerID, func(ctx context.Context) error {
		return m.adapter.UpdateExpense(ctx, e)
	})
}

// DeleteExpense drops the expense from memory entirely; expenses are
// not tombstoned anywhere, so there is no restore.
func (m *Manager) DeleteExpense(ctx context.Context, ownerID, id string) error {
	st, err := m.ensureLoaded(ctx, ownerID)
	if err != nil {
		return err
	}
	st.mu.Lock()
	_, ok := st.expenses[id]
	delete(st.expenses, id)
	st.mu.Unlock()
	if !ok {
		return nil
	}
	return m.push(ctx, ownerID, func(ctx context.Context) error {
		return m.adapter.DeleteExpense(ctx, id)
	})
}

// ---------------------------------------------------------------
// Sync passthrough
// ---------------------------------------------------------------

// ForceSync drains the queue, pulls the authoritative data set and then
// replaces the in-memory snapshot with it.
func (m *Manager) ForceSync(ctx context.Context, ownerID string) error {
	m.syncing.Add(1)
	defer m.syncing.Add(-1)

	if err := m.adapter.ForceSync(ctx, ownerID); err != nil {
		return err
	}
	return m.RefreshAll(ctx, ownerID)
}
