package hybrid

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"courier-backend/internal/connectivity"
	"courier-backend/internal/localdb"
	"courier-backend/internal/localstore"
	"courier-backend/internal/models"
	"courier-backend/internal/remote"
	"courier-backend/internal/syncqueue"
)

// fakeBackend is an in-memory remote.Backend that can be switched into
// a failing state to simulate an outage.
type fakeBackend struct {
	mu       sync.Mutex
	failing  bool
	clients  map[string]*models.Client
	services map[string]*models.ServiceRecord
	expenses map[string]*models.ExpenseRecord
	applied  []string // ids in the order writes arrived
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		clients:  make(map[string]*models.Client),
		services: make(map[string]*models.ServiceRecord),
		expenses: make(map[string]*models.ExpenseRecord),
	}
}

func (b *fakeBackend) setFailing(failing bool) {
	b.mu.Lock()
	b.failing = failing
	b.mu.Unlock()
}

func (b *fakeBackend) fail() error {
	if b.failing {
		return errors.New("fake backend: connection refused")
	}
	return nil
}

func (b *fakeBackend) GetClients(ctx context.Context, ownerID string) ([]*models.Client, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.fail(); err != nil {
		return nil, err
	}
	var out []*models.Client
	for _, c := range b.clients {
		if c.OwnerID == ownerID {
			cp := *c
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (b *fakeBackend) SaveClient(ctx context.Context, c *models.Client) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.fail(); err != nil {
		return err
	}
	cp := *c
	b.clients[c.ID] = &cp
	b.applied = append(b.applied, c.ID)
	return nil
}

func (b *fakeBackend) DeleteClient(ctx context.Context, id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.fail(); err != nil {
		return err
	}
	c, ok := b.clients[id]
	if !ok {
		return remote.ErrNotFound
	}
	now := time.Now()
	c.DeletedAt = &now
	b.applied = append(b.applied, "del:"+id)
	return nil
}

func (b *fakeBackend) GetServices(ctx context.Context, ownerID string, start, end *time.Time) ([]*models.ServiceRecord, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.fail(); err != nil {
		return nil, err
	}
	var out []*models.ServiceRecord
	for _, s := range b.services {
		if s.OwnerID == ownerID {
			cp := *s
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (b *fakeBackend) SaveService(ctx context.Context, s *models.ServiceRecord) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.fail(); err != nil {
		return err
	}
	cp := *s
	b.services[s.ID] = &cp
	b.applied = append(b.applied, s.ID)
	return nil
}

func (b *fakeBackend) UpdateService(ctx context.Context, s *models.ServiceRecord) error {
	return b.SaveService(ctx, s)
}

func (b *fakeBackend) DeleteService(ctx context.Context, id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.fail(); err != nil {
		return err
	}
	s, ok := b.services[id]
	if !ok {
		return remote.ErrNotFound
	}
	now := time.Now()
	s.DeletedAt = &now
	return nil
}

func (b *fakeBackend) GetExpenses(ctx context.Context, ownerID string, start, end *time.Time) ([]*models.ExpenseRecord, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.fail(); err != nil {
		return nil, err
	}
	var out []*models.ExpenseRecord
	for _, e := range b.expenses {
		if e.OwnerID == ownerID {
			cp := *e
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (b *fakeBackend) SaveExpense(ctx context.Context, e *models.ExpenseRecord) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.fail(); err != nil {
		return err
	}
	cp := *e
	b.expenses[e.ID] = &cp
	b.applied = append(b.applied, e.ID)
	return nil
}

func (b *fakeBackend) DeleteExpense(ctx context.Context, id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.fail(); err != nil {
		return err
	}
	if _, ok := b.expenses[id]; !ok {
		return remote.ErrNotFound
	}
	delete(b.expenses, id)
	return nil
}

type stubProber struct {
	mu  sync.Mutex
	err error
}

func (p *stubProber) Probe(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

func (p *stubProber) setErr(err error) {
	p.mu.Lock()
	p.err = err
	p.mu.Unlock()
}

type testRig struct {
	adapter *Adapter
	store   *localstore.Store
	queue   *syncqueue.Queue
	backend *fakeBackend
	monitor *connectivity.Monitor
	prober  *stubProber
}

func newTestRig(t *testing.T) *testRig {
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

	backend := newFakeBackend()
	prober := &stubProber{}
	monitor := connectivity.NewMonitor(prober, time.Hour, time.Second)

	return &testRig{
		adapter: New(store, queue, backend, monitor),
		store:   store,
		queue:   queue,
		backend: backend,
		monitor: monitor,
		prober:  prober,
	}
}

func (r *testRig) goOffline() {
	r.backend.setFailing(true)
	r.prober.setErr(errors.New("unreachable"))
	r.monitor.ReportOffline()
}

func newClient(id, owner, name string) *models.Client {
	now := time.Now().UTC().Truncate(time.Second)
	return &models.Client{ID: id, OwnerID: owner, Name: name, CreatedAt: now, UpdatedAt: now}
}

func newService(id, owner, clientID string, date time.Time) *models.ServiceRecord {
	now := time.Now().UTC().Truncate(time.Second)
	return &models.ServiceRecord{ID: id, OwnerID: owner, ClientID: clientID, Date: date, Cost: 40, CreatedAt: now, UpdatedAt: now}
}

func TestOnlineWriteReachesBackendWithoutQueueing(t *testing.T) {
	r := newTestRig(t)
	ctx := context.Background()

	if err := r.adapter.SaveClient(ctx, newClient("c1", "owner-1", "Direct")); err != nil {
		t.Fatalf("save: %v", err)
	}

	if _, ok := r.backend.clients["c1"]; !ok {
		t.Error("expected write to reach the backend while online")
	}
	n, _ := r.queue.PendingCount(ctx)
	if n != 0 {
		t.Errorf("expected nothing queued while online, got %d", n)
	}

	local, err := r.store.GetClients(ctx, "owner-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(local) != 1 {
		t.Errorf("expected write to also land in the local cache, got %d rows", len(local))
	}
}

func TestOfflineWriteLandsInCacheAndQueue(t *testing.T) {
	r := newTestRig(t)
	ctx := context.Background()
	r.goOffline()

	if err := r.adapter.SaveClient(ctx, newClient("c1", "owner-1", "Offline")); err != nil {
		t.Fatalf("offline save must succeed against the cache: %v", err)
	}

	local, err := r.store.GetClients(ctx, "owner-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(local) != 1 {
		t.Fatalf("expected cached row, got %d", len(local))
	}

	n, _ := r.queue.PendingCount(ctx)
	if n != 1 {
		t.Errorf("expected 1 queued mutation, got %d", n)
	}
	if len(r.backend.clients) != 0 {
		t.Error("backend must not have received the write")
	}
}

func TestBackendErrorMarksOfflineAndQueues(t *testing.T) {
	r := newTestRig(t)
	ctx := context.Background()

	// Monitor still believes we are online, but the backend has gone away.
	r.backend.setFailing(true)

	if err := r.adapter.SaveClient(ctx, newClient("c1", "owner-1", "Surprise")); err != nil {
		t.Fatalf("save must not surface the remote error: %v", err)
	}

	if r.monitor.IsOnline() {
		t.Error("expected failed remote write to flip the monitor offline")
	}
	n, _ := r.queue.PendingCount(ctx)
	if n != 1 {
		t.Errorf("expected the mutation queued for replay, got %d", n)
	}
}

func TestDrainReplaysQueuedMutationsInOrder(t *testing.T) {
	r := newTestRig(t)
	ctx := context.Background()
	r.goOffline()

	day := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	if err := r.adapter.SaveClient(ctx, newClient("c1", "owner-1", "First")); err != nil {
		t.Fatal(err)
	}
	if err := r.adapter.SaveService(ctx, newService("s1", "owner-1", "c1", day)); err != nil {
		t.Fatal(err)
	}

	r.backend.setFailing(false)
	res, err := r.adapter.Drain(ctx)
	if err != nil {
		t.Fatalf("drain: %v", err)
	}
	if res.Processed != 2 || res.Failed != 0 {
		t.Fatalf("expected 2 replayed, got %+v", res)
	}

	if len(r.backend.applied) != 2 || r.backend.applied[0] != "c1" || r.backend.applied[1] != "s1" {
		t.Errorf("expected FIFO replay [c1 s1], got %v", r.backend.applied)
	}
	n, _ := r.queue.PendingCount(ctx)
	if n != 0 {
		t.Errorf("expected empty queue after drain, got %d", n)
	}
}

func TestReconnectTriggersDrain(t *testing.T) {
	r := newTestRig(t)
	ctx := context.Background()
	r.goOffline()

	if err := r.adapter.SaveClient(ctx, newClient("c1", "owner-1", "Queued")); err != nil {
		t.Fatal(err)
	}

	r.backend.setFailing(false)
	r.prober.setErr(nil)
	r.monitor.ReportOnline()

	deadline := time.Now().Add(2 * time.Second)
	for {
		n, err := r.queue.PendingCount(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if n == 0 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("queue not drained after reconnect, %d pending", n)
		}
		time.Sleep(10 * time.Millisecond)
	}

	r.backend.mu.Lock()
	_, ok := r.backend.clients["c1"]
	r.backend.mu.Unlock()
	if !ok {
		t.Error("expected queued write to reach the backend after reconnect")
	}
}

func TestQueuedDeleteOfUnknownIDConverges(t *testing.T) {
	r := newTestRig(t)
	ctx := context.Background()

	c := newClient("c1", "owner-1", "Ghost")
	if err := r.store.PutClient(ctx, c); err != nil {
		t.Fatal(err)
	}

	r.goOffline()
	if err := r.adapter.DeleteClient(ctx, c); err != nil {
		t.Fatal(err)
	}

	// Backend never saw c1, so the replayed delete hits ErrNotFound.
	r.backend.setFailing(false)
	res, err := r.adapter.Drain(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if res.Processed != 1 || res.Failed != 0 {
		t.Errorf("delete of a missing record is convergence, not failure: %+v", res)
	}
}

func TestOnlineReadWritesThroughToCache(t *testing.T) {
	r := newTestRig(t)
	ctx := context.Background()

	r.backend.clients["c1"] = newClient("c1", "owner-1", "Remote")

	got, err := r.adapter.GetClients(ctx, "owner-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Name != "Remote" {
		t.Fatalf("expected remote row, got %+v", got)
	}

	// Backend goes away; the earlier read must have seeded the cache.
	r.goOffline()
	cached, err := r.adapter.GetClients(ctx, "owner-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(cached) != 1 || cached[0].Name != "Remote" {
		t.Errorf("expected cached copy of the remote row, got %+v", cached)
	}
}

func TestReadFallsBackOnRemoteError(t *testing.T) {
	r := newTestRig(t)
	ctx := context.Background()

	if err := r.store.PutClient(ctx, newClient("c1", "owner-1", "Cached")); err != nil {
		t.Fatal(err)
	}
	// Monitor thinks we are online; the fetch itself fails.
	r.backend.setFailing(true)

	got, err := r.adapter.GetClients(ctx, "owner-1")
	if err != nil {
		t.Fatalf("read must fall back to the cache: %v", err)
	}
	if len(got) != 1 || got[0].Name != "Cached" {
		t.Errorf("expected cached row, got %+v", got)
	}
	if r.monitor.IsOnline() {
		t.Error("expected failed remote read to flip the monitor offline")
	}
}

func TestReadsHideTombstones(t *testing.T) {
	r := newTestRig(t)
	ctx := context.Background()
	r.goOffline()

	live := newClient("c1", "owner-1", "Live")
	dead := newClient("c2", "owner-1", "Dead")
	now := time.Now()
	dead.DeletedAt = &now
	if err := r.store.PutClients(ctx, []*models.Client{live, dead}); err != nil {
		t.Fatal(err)
	}

	got, err := r.adapter.GetClients(ctx, "owner-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].ID != "c1" {
		t.Errorf("expected tombstoned row hidden, got %+v", got)
	}
}

func TestForceSyncFailsOffline(t *testing.T) {
	r := newTestRig(t)
	ctx := context.Background()
	r.goOffline()

	// Seed the cache so we can prove a failed sync leaves it alone.
	if err := r.store.PutClient(ctx, newClient("c1", "owner-1", "Keep")); err != nil {
		t.Fatal(err)
	}

	if err := r.adapter.ForceSync(ctx, "owner-1"); !errors.Is(err, ErrOffline) {
		t.Fatalf("expected ErrOffline, got %v", err)
	}

	got, err := r.store.GetClients(ctx, "owner-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 {
		t.Errorf("failed sync must not touch the cache, got %d rows", len(got))
	}
}

func TestForceSyncReplacesSnapshot(t *testing.T) {
	r := newTestRig(t)
	ctx := context.Background()

	// Stale local row the backend no longer knows about.
	if err := r.store.PutClient(ctx, newClient("c-stale", "owner-1", "Stale")); err != nil {
		t.Fatal(err)
	}
	r.backend.clients["c-fresh"] = newClient("c-fresh", "owner-1", "Fresh")

	if err := r.adapter.ForceSync(ctx, "owner-1"); err != nil {
		t.Fatalf("force sync: %v", err)
	}

	got, err := r.store.GetClients(ctx, "owner-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].ID != "c-fresh" {
		t.Errorf("expected snapshot replaced with backend truth, got %+v", got)
	}
}

func TestStatusReportsQueueAndConnectivity(t *testing.T) {
	r := newTestRig(t)
	ctx := context.Background()
	r.goOffline()

	if err := r.adapter.SaveClient(ctx, newClient("c1", "owner-1", "Pending")); err != nil {
		t.Fatal(err)
	}

	st, err := r.adapter.Status(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if st.Online {
		t.Error("expected offline status")
	}
	if st.PendingCount != 1 {
		t.Errorf("expected 1 pending, got %d", st.PendingCount)
	}
}

func TestFilterServicesByRange(t *testing.T) {
	day := func(d int) time.Time { return time.Date(2025, 6, d, 12, 0, 0, 0, time.UTC) }
	in := []*models.ServiceRecord{
		newService("s1", "o", "c", day(1)),
		newService("s2", "o", "c", day(10)),
		newService("s3", "o", "c", day(20)),
	}

	from := day(5)
	to := day(15)
	got := FilterServicesByRange(in, &from, &to)
	if len(got) != 1 || got[0].ID != "s2" {
		t.Errorf("expected [s2], got %+v", got)
	}

	// Nil bounds are unbounded.
	if got := FilterServicesByRange(in, nil, nil); len(got) != 3 {
		t.Errorf("expected all records with open bounds, got %d", len(got))
	}
	if got := FilterServicesByRange(in, &from, nil); len(got) != 2 {
		t.Errorf("expected [s2 s3] with open upper bound, got %d", len(got))
	}
}

func TestDeleteTombstonesCopyNotCaller(t *testing.T) {
	r := newTestRig(t)
	ctx := context.Background()

	c := newClient("c1", "owner-1", "Shared")
	if err := r.adapter.SaveClient(ctx, c); err != nil {
		t.Fatal(err)
	}
	if err := r.adapter.DeleteClient(ctx, c); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if c.DeletedAt != nil {
		t.Error("delete must not write the tombstone onto the caller's record")
	}

	// The cache still saw the tombstone.
	stored, err := r.store.GetClients(ctx, "owner-1")
	if err != nil {
		t.Fatalf("cache read: %v", err)
	}
	if len(stored) != 1 || stored[0].DeletedAt == nil {
		t.Errorf("expected the cached record tombstoned, got %+v", stored)
	}
}
