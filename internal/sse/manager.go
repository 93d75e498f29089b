package sse

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/aresapp/ares-server/internal/id"
)

const (
	queueSize      = 1000
	clientBuffer   = 100
	heartbeatEvery = 30 * time.Second
)

// Client is one connected event stream.
type Client struct {
	ID string
	// TaskID limits delivery to events of one task. Empty means all events.
	TaskID      string
	ConnectedAt time.Time

	// Events and Done are closed together when the client is removed.
	Events chan Event
	Done   chan struct{}
}

// wants reports whether ev should reach c. Heartbeats reach everyone.
func (c *Client) wants(ev Event) bool {
	return c.TaskID == "" || ev.Type == EventHeartbeat || ev.TaskID == c.TaskID
}

// Manager fans events out to connected clients. Emit never blocks: a full
// queue or a slow client loses the event.
type Manager struct {
	mu      sync.RWMutex
	clients map[string]*Client

	queue    chan Event
	quit     chan struct{}
	quitOnce sync.Once
	running  sync.WaitGroup

	heartbeat time.Duration
	logger    *slog.Logger
}

// NewManager creates a manager. Call Start to begin delivering events.
func NewManager(logger *slog.Logger) *Manager {
	return &Manager{
		clients:   make(map[string]*Client),
		queue:     make(chan Event, queueSize),
		quit:      make(chan struct{}),
		heartbeat: heartbeatEvery,
		logger:    logger,
	}
}

// Start delivers queued events and heartbeats until ctx is done or Shutdown
// is called.
func (m *Manager) Start(ctx context.Context) {
	m.running.Add(1)
	defer m.running.Done()

	tick := time.NewTicker(m.heartbeat)
	defer tick.Stop()

	m.logger.Info("SSE manager starting")
	for {
		select {
		case ev := <-m.queue:
			m.broadcast(ev)
		case <-tick.C:
			m.broadcast(NewHeartbeatEvent())
		case <-ctx.Done():
			m.drain()
			m.closeAll()
			return
		case <-m.quit:
			m.drain()
			return
		}
	}
}

// Shutdown stops the delivery loop, flushes queued events and closes every
// client. Events emitted afterwards are dropped. Safe to call more than once.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.quitOnce.Do(func() { close(m.quit) })

	stopped := make(chan struct{})
	go func() {
		m.running.Wait()
		close(stopped)
	}()

	select {
	case <-stopped:
	case <-ctx.Done():
		m.logger.Warn("SSE manager did not stop in time, queued events may be lost")
	}

	m.drain()
	m.closeAll()
	m.logger.Info("SSE manager stopped")
	return nil
}

// Emit queues an event for delivery.
func (m *Manager) Emit(ev Event) {
	select {
	case <-m.quit:
		return
	default:
	}

	select {
	case m.queue <- ev:
	default:
		m.logger.Error("SSE queue full, dropping event", slog.String("event_type", string(ev.Type)))
	}
}

// drain delivers whatever is still queued without waiting for more.
func (m *Manager) drain() {
	for {
		select {
		case ev := <-m.queue:
			m.broadcast(ev)
		default:
			return
		}
	}
}

func (m *Manager) broadcast(ev Event) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var sent, dropped int
	for _, c := range m.clients {
		if !c.wants(ev) {
			continue
		}
		select {
		case c.Events <- ev:
			sent++
		default:
			dropped++
		}
	}

	if ev.Type == EventHeartbeat {
		return
	}
	if dropped > 0 {
		m.logger.Warn("dropped event for slow clients",
			slog.String("event_type", string(ev.Type)),
			slog.Int("dropped", dropped))
	}
	m.logger.Debug("event broadcast", slog.String("event_type", string(ev.Type)), slog.Int("sent", sent))
}

// Connect registers a client. A non-empty taskID restricts it to that
// task's events.
func (m *Manager) Connect(taskID string) (*Client, error) {
	clientID, err := id.Generate(id.PrefixClient)
	if err != nil {
		return nil, err
	}

	c := &Client{
		ID:          clientID,
		TaskID:      taskID,
		ConnectedAt: time.Now(),
		Events:      make(chan Event, clientBuffer),
		Done:        make(chan struct{}),
	}

	m.mu.Lock()
	m.clients[c.ID] = c
	n := len(m.clients)
	m.mu.Unlock()

	m.logger.Info("SSE client connected",
		slog.String("client_id", c.ID),
		slog.String("task_id", taskID),
		slog.Int("clients", n))
	return c, nil
}

// Disconnect removes a client. Unknown ids are ignored.
func (m *Manager) Disconnect(clientID string) {
	m.mu.Lock()
	c, ok := m.clients[clientID]
	delete(m.clients, clientID)
	n := len(m.clients)
	m.mu.Unlock()

	if !ok {
		return
	}
	c.close()
	m.logger.Info("SSE client disconnected",
		slog.String("client_id", clientID),
		slog.Duration("connected_for", time.Since(c.ConnectedAt)),
		slog.Int("clients", n))
}

// ClientCount returns the number of connected clients.
func (m *Manager) ClientCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.clients)
}

func (m *Manager) closeAll() {
	m.mu.Lock()
	clients := m.clients
	m.clients = make(map[string]*Client)
	m.mu.Unlock()

	for _, c := range clients {
		c.close()
	}
}

func (c *Client) close() {
	close(c.Done)
	close(c.Events)
}
