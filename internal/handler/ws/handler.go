package ws

import (
	"encoding/json"
	"net/http"
	"time"

	"ProScalper/internal/domain/models"
	applogger "ProScalper/pkg/logger"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

// SnapshotSource provides the reports sent to a client right after it connects.
type SnapshotSource interface {
	Snapshots() []models.SignalReport
}

// Handler upgrades GET /ws/summaries and attaches the connection to the hub.
type Handler struct {
	hub      *Hub
	snaps    SnapshotSource
	upgrader websocket.Upgrader
	l        *applogger.Logger
}

func NewHandler(hub *Hub, snaps SnapshotSource, l *applogger.Logger) *Handler {
	if l == nil {
		l = applogger.Nop()
	}
	return &Handler{
		hub:   hub,
		snaps: snaps,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		l: l,
	}
}

func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.GET("/ws/summaries", h.Serve)
}

func (h *Handler) Serve(c echo.Context) error {
	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		h.l.Warn("ws.upgrade failed", applogger.String("remote", c.RealIP()), applogger.Error(err))
		return nil
	}

	client := newClient(h.hub, conn, c.RealIP())
	h.greet(client)
	if !h.hub.Register(client) {
		_ = conn.Close()
		return nil
	}

	go client.writePump()
	go client.readPump()
	return nil
}

// greet queues the connection frame and the current snapshots. Frames that
// do not fit the send buffer are skipped.
func (h *Handler) greet(c *Client) {
	frames := []Message{{
		Type:      TypeConnection,
		Data:      map[string]string{"status": "connected"},
		Timestamp: time.Now().UTC(),
	}}
	if h.snaps != nil {
		for _, r := range h.snaps.Snapshots() {
			frames = append(frames, Message{Type: TypeSummary, Data: r, Timestamp: r.GeneratedAt})
		}
	}
	for _, f := range frames {
		b, err := json.Marshal(f)
		if err != nil {
			continue
		}
		select {
		case c.send <- b:
		default:
			return
		}
	}
}
