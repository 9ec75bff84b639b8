// Package monitoring pushes live sync status to connected dashboards
// over WebSocket, so the UI can show the offline banner and the queue
// depth without polling.
package monitoring

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"

	"courier-backend/internal/connectivity"
	"courier-backend/internal/state"
	"courier-backend/internal/syncqueue"
)

type StatusBroadcaster struct {
	queue   *syncqueue.Queue
	monitor *connectivity.Monitor
	state   *state.Manager

	clients    map[*websocket.Conn]bool
	clientsMux sync.Mutex
	broadcast  chan StatusFrame

	stop chan struct{}
}

// StatusFrame is one update pushed to every connected dashboard.
type StatusFrame struct {
	Online        bool      `json:"online"`
	LastOnlineAt  time.Time `json:"last_online_at"`
	PendingCount  int       `json:"pending_count"`
	IsSyncing     bool      `json:"is_syncing"`
	CPUPercent    float64   `json:"cpu_percent"`
	MemoryPercent float64   `json:"memory_percent"`
	MemoryUsed    string    `json:"memory_used"`
	DiskPercent   float64   `json:"disk_percent"`
	Timestamp     time.Time `json:"timestamp"`
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

func NewStatusBroadcaster(queue *syncqueue.Queue, monitor *connectivity.Monitor, st *state.Manager) *StatusBroadcaster {
	sb := &StatusBroadcaster{
		queue:     queue,
		monitor:   monitor,
		state:     st,
		clients:   make(map[*websocket.Conn]bool),
		broadcast: make(chan StatusFrame, 8),
		stop:      make(chan struct{}),
	}
	// Every queue change and connectivity transition produces a frame;
	// the ticker fills the gaps so stale dashboards recover.
	queue.OnChange(func() { sb.push() })
	monitor.Subscribe(func(bool) { sb.push() })
	return sb
}

func (sb *StatusBroadcaster) Start() {
	go sb.handleBroadcast()
	go func() {
		ticker := time.NewTicker(15 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				sb.push()
			case <-sb.stop:
				return
			}
		}
	}()
}

func (sb *StatusBroadcaster) Stop() {
	close(sb.stop)
}

func (sb *StatusBroadcaster) push() {
	frame := sb.collect()
	select {
	case sb.broadcast <- frame:
	default:
		// A full channel means a newer frame is already queued.
	}
}

func (sb *StatusBroadcaster) collect() StatusFrame {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	pending, err := sb.queue.PendingCount(ctx)
	if err != nil {
		log.Printf("[Monitoring] Failed to read queue depth: %v", err)
	}

	cpuPercents, _ := cpu.Percent(0, false)
	cpuPercent := 0.0
	if len(cpuPercents) > 0 {
		cpuPercent = cpuPercents[0]
	}

	memStats, _ := mem.VirtualMemory()
	diskStats, _ := disk.Usage("/")

	frame := StatusFrame{
		Online:       sb.monitor.IsOnline(),
		LastOnlineAt: sb.monitor.LastOnlineAt(),
		PendingCount: pending,
		IsSyncing:    sb.state.IsSyncing(),
		CPUPercent:   cpuPercent,
		Timestamp:    time.Now(),
	}
	if memStats != nil {
		frame.MemoryPercent = memStats.UsedPercent
		frame.MemoryUsed = formatBytes(memStats.Used)
	}
	if diskStats != nil {
		frame.DiskPercent = diskStats.UsedPercent
	}
	return frame
}

func formatBytes(bytes uint64) string {
	gb := float64(bytes) / (1024 * 1024 * 1024)
	if gb < 1 {
		mb := float64(bytes) / (1024 * 1024)
		return fmt.Sprintf("%.1f MB", mb)
	}
	return fmt.Sprintf("%.1f GB", gb)
}

// HandleWebSocket upgrades the connection, sends a frame immediately
// and keeps the client registered until it disconnects.
func (sb *StatusBroadcaster) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Println("WebSocket upgrade error:", err)
		return
	}
	defer conn.Close()

	if err := conn.WriteJSON(sb.collect()); err != nil {
		return
	}

	sb.clientsMux.Lock()
	sb.clients[conn] = true
	sb.clientsMux.Unlock()

	for {
		_, _, err := conn.ReadMessage()
		if err != nil {
			sb.clientsMux.Lock()
			delete(sb.clients, conn)
			sb.clientsMux.Unlock()
			break
		}
	}
}

// GetStatus serves the same frame over plain HTTP for clients without
// a socket.
func (sb *StatusBroadcaster) GetStatus(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(sb.collect())
}

func (sb *StatusBroadcaster) handleBroadcast() {
	for {
		select {
		case frame := <-sb.broadcast:
			sb.clientsMux.Lock()
			for client := range sb.clients {
				err := client.WriteJSON(frame)
				if err != nil {
					client.Close()
					delete(sb.clients, client)
				}
			}
			sb.clientsMux.Unlock()
		case <-sb.stop:
			return
		}
	}
}
