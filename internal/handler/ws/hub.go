package ws

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	applogger "ProScalper/pkg/logger"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	TypeConnection = "connection"
	TypeSummary    = "summary"
)

// Message is the frame pushed to subscribers.
type Message struct {
	Type      string      `json:"type"`
	Data      interface{} `json:"data"`
	Timestamp time.Time   `json:"timestamp"`
}

// Hub keeps the set of live clients and fans messages out to them. Clients
// whose send buffer is full are dropped.
type Hub struct {
	clients    map[*Client]struct{}
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	mu         sync.RWMutex
	l          *applogger.Logger
	dropLog    *applogger.Logger
	gauge      prometheus.Gauge
	dropped    prometheus.Counter
}

// NewHub creates a hub. reg may be nil to skip metrics.
func NewHub(l *applogger.Logger, reg prometheus.Registerer) *Hub {
	if l == nil {
		l = applogger.Nop()
	}
	h := &Hub{
		clients:    make(map[*Client]struct{}),
		broadcast:  make(chan []byte, 64),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		l:          l,
		dropLog:    l.Sampled(10),
	}
	if reg != nil {
		f := promauto.With(reg)
		h.gauge = f.NewGauge(prometheus.GaugeOpts{
			Name: "proscalper_ws_clients",
			Help: "Connected websocket clients",
		})
		h.dropped = f.NewCounter(prometheus.CounterOpts{
			Name: "proscalper_ws_dropped_total",
			Help: "Messages or clients dropped because a buffer was full",
		})
	}
	return h
}

// Run serves register, unregister and broadcast until ctx is done, then
// disconnects every client. Run must be called once.
func (h *Hub) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			close(h.done)
			h.mu.Lock()
			for c := range h.clients {
				delete(h.clients, c)
				close(c.send)
			}
			h.mu.Unlock()
			h.setGauge(0)
			h.l.Info("ws.hub stopped")
			return nil

		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = struct{}{}
			n := len(h.clients)
			h.mu.Unlock()
			h.setGauge(n)
			h.l.Debug("ws.client registered", applogger.String("remote", c.remote), applogger.Int("clients", n))

		case c := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}
			n := len(h.clients)
			h.mu.Unlock()
			h.setGauge(n)
			h.l.Debug("ws.client unregistered", applogger.String("remote", c.remote), applogger.Int("clients", n))

		case msg := <-h.broadcast:
			h.mu.Lock()
			for c := range h.clients {
				select {
				case c.send <- msg:
				default:
					delete(h.clients, c)
					close(c.send)
					h.incDropped()
					h.dropLog.Warn("ws.client dropped slow consumer", applogger.String("remote", c.remote))
				}
			}
			n := len(h.clients)
			h.mu.Unlock()
			h.setGauge(n)
		}
	}
}

// Broadcast sends v as a summary frame to every client. It never blocks: when
// the hub is backed up the frame is dropped.
func (h *Hub) Broadcast(v interface{}) {
	b, err := json.Marshal(Message{Type: TypeSummary, Data: v, Timestamp: time.Now().UTC()})
	if err != nil {
		h.l.Error("ws.broadcast marshal failed", applogger.Error(err))
		return
	}
	select {
	case h.broadcast <- b:
	default:
		h.incDropped()
	}
}

// Register adds c to the hub. It returns false once the hub has stopped.
func (h *Hub) Register(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) leave(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) setGauge(n int) {
	if h.gauge != nil {
		h.gauge.Set(float64(n))
	}
}

func (h *Hub) incDropped() {
	if h.dropped != nil {
		h.dropped.Inc()
	}
}
