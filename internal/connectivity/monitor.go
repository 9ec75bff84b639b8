// Package connectivity tracks whether the remote backend is reachable.
// Link-layer signals alone are not trustworthy (a machine can hold a LAN
// address while the backend is down), so external hints are combined
// with periodic active probes against the backend itself.
package connectivity

import (
	"context"
	"log"
	"sync"
	"time"
)

// Prober performs one reachability check against the remote backend.
// A nil return means reachable; any error is read as offline.
type Prober interface {
	Probe(ctx context.Context) error
}

// Monitor is the single source of truth for online state. It starts
// optimistic (online) and is corrected by the first probe.
type Monitor struct {
	prober   Prober
	interval time.Duration
	timeout  time.Duration

	mu           sync.Mutex
	online       bool
	lastOnlineAt time.Time
	subscribers  []func(online bool)
	running      bool
	cancel       context.CancelFunc
	wg           sync.WaitGroup
}

func NewMonitor(prober Prober, interval, timeout time.Duration) *Monitor {
	return &Monitor{
		prober:       prober,
		interval:     interval,
		timeout:      timeout,
		online:       true,
		lastOnlineAt: time.Now(),
	}
}

// Subscribe registers a callback fired exactly once per state
// transition with the new value. Invocation order across subscribers is
// unspecified.
func (m *Monitor) Subscribe(fn func(online bool)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subscribers = append(m.subscribers, fn)
}

func (m *Monitor) IsOnline() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.online
}

// LastOnlineAt returns when the backend was last known reachable.
func (m *Monitor) LastOnlineAt() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastOnlineAt
}

// ReportOnline feeds an external "link is up" hint (OS network change,
// UI retry button). The next probe still has the final word.
func (m *Monitor) ReportOnline() { m.setOnline(true) }

// ReportOffline feeds an external "link is down" hint.
func (m *Monitor) ReportOffline() { m.setOnline(false) }

// CheckNow runs one probe immediately and returns the resulting state.
func (m *Monitor) CheckNow(ctx context.Context) bool {
	probeCtx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	err := m.prober.Probe(probeCtx)
	m.setOnline(err == nil)
	return err == nil
}

// Start launches the periodic probe loop. Calling Start on a running
// monitor is a no-op.
func (m *Monitor) Start() {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return
	}
	m.running = true
	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	m.mu.Unlock()

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()

		// First probe right away so the optimistic initial state gets
		// corrected before the first tick.
		m.CheckNow(ctx)

		ticker := time.NewTicker(m.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.CheckNow(ctx)
			}
		}
	}()
}

// Stop halts the probe loop and waits for it to exit.
func (m *Monitor) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	m.running = false
	cancel := m.cancel
	m.mu.Unlock()

	cancel()
	m.wg.Wait()
}

func (m *Monitor) setOnline(online bool) {
	m.mu.Lock()
	if online {
		m.lastOnlineAt = time.Now()
	}
	if m.online == online {
		m.mu.Unlock()
		return
	}
	m.online = online
	subs := make([]func(bool), len(m.subscribers))
	copy(subs, m.subscribers)
	m.mu.Unlock()

	if online {
		log.Printf("[Connectivity] Backend reachable")
	} else {
		log.Printf("[Connectivity] Backend unreachable, entering offline mode")
	}
	for _, fn := range subs {
		fn(online)
	}
}
