// Package broadcast fans graph updates and errors out to every connected
// viewer over websockets and relays viewer namespace changes back.
package broadcast

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/kubeadapt/kubeviz/internal/observability"
	"github.com/kubeadapt/kubeviz/internal/store"
	"github.com/kubeadapt/kubeviz/pkg/model"
)

// NamespaceSetter receives namespace selections from viewers.
type NamespaceSetter interface {
	Set(ns string) bool
}

// Options tunes per-viewer connection handling.
type Options struct {
	SendQueue       int           // buffered outbound messages per viewer
	PingInterval    time.Duration // keep-alive ping period
	PongWait        time.Duration // read deadline, extended on every pong
	WriteTimeout    time.Duration
	MaxMessageBytes int64 // inbound frame limit
}

// DefaultOptions returns the options used by NewHub.
func DefaultOptions() Options {
	return Options{
		SendQueue:       16,
		PingInterval:    30 * time.Second,
		PongWait:        60 * time.Second,
		WriteTimeout:    10 * time.Second,
		MaxMessageBytes: 4096,
	}
}

// Hub tracks connected viewers. It is an http.Handler for the websocket
// endpoint.
type Hub struct {
	viewers    *store.TypedStore[*viewer]
	namespaces NamespaceSetter
	metrics    *observability.Metrics
	opts       Options
	upgrader   websocket.Upgrader
	onConnect  atomic.Pointer[func()]
}

// NewHub creates a Hub that forwards namespace changes to namespaces.
// metrics may be nil.
func NewHub(namespaces NamespaceSetter, metrics *observability.Metrics, opts Options) *Hub {
	return &Hub{
		viewers:    store.NewTypedStore[*viewer](),
		namespaces: namespaces,
		metrics:    metrics,
		opts:       opts,
		upgrader: websocket.Upgrader{
			// Viewers may be served from another origin.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// OnConnect registers fn to run after each viewer connects. fn must not block.
func (h *Hub) OnConnect(fn func()) {
	h.onConnect.Store(&fn)
}

// Count returns the number of connected viewers.
func (h *Hub) Count() int {
	return h.viewers.Len()
}

// ServeHTTP upgrades the request and serves the viewer until it disconnects.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote an HTTP error response.
		slog.Debug("websocket upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}

	v := newViewer(uuid.NewString(), conn, h.opts.SendQueue)
	h.viewers.Set(v.id, v)
	if h.metrics != nil {
		h.metrics.ViewersConnected.Inc()
	}
	slog.Info("viewer connected", "viewer", v.id, "remote", r.RemoteAddr)

	go v.writePump(h.opts)

	if fn := h.onConnect.Load(); fn != nil {
		(*fn)()
	}

	h.readPump(v)
	h.remove(v)
}

// Broadcast encodes evt once and queues it for every viewer. Viewers whose
// queue is full miss the message.
func (h *Hub) Broadcast(evt model.Event) error {
	msg, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("encoding %s event: %w", evt.Event, err)
	}

	for _, v := range h.viewers.Values() {
		if !v.enqueue(msg) {
			slog.Debug("viewer queue full, dropping message", "viewer", v.id, "event", evt.Event)
			if h.metrics != nil {
				h.metrics.BroadcastDropped.Inc()
			}
		}
	}
	if h.metrics != nil {
		h.metrics.BroadcastTotal.WithLabelValues(string(evt.Event)).Inc()
	}
	return nil
}

// BroadcastUpdate sends snap as an update event.
func (h *Hub) BroadcastUpdate(snap *model.GraphSnapshot) error {
	evt, err := model.NewEvent(model.EventUpdate, snap)
	if err != nil {
		return fmt.Errorf("encoding graph snapshot: %w", err)
	}
	return h.Broadcast(evt)
}

// BroadcastError sends msg as an error event.
func (h *Hub) BroadcastError(msg string) error {
	evt, err := model.NewEvent(model.EventError, msg)
	if err != nil {
		return fmt.Errorf("encoding error message: %w", err)
	}
	return h.Broadcast(evt)
}

// Close disconnects every viewer.
func (h *Hub) Close() {
	for _, v := range h.viewers.Drain() {
		if h.metrics != nil {
			h.metrics.ViewersConnected.Dec()
		}
		v.close()
	}
}

func (h *Hub) remove(v *viewer) {
	if h.viewers.Delete(v.id) && h.metrics != nil {
		h.metrics.ViewersConnected.Dec()
	}
	v.close()
	slog.Info("viewer disconnected", "viewer", v.id, "connected_for", time.Since(v.connectedAt).Round(time.Second))
}

// readPump handles inbound frames until the connection fails.
func (h *Hub) readPump(v *viewer) {
	v.conn.SetReadLimit(h.opts.MaxMessageBytes)
	_ = v.conn.SetReadDeadline(time.Now().Add(h.opts.PongWait))
	v.conn.SetPongHandler(func(string) error {
		return v.conn.SetReadDeadline(time.Now().Add(h.opts.PongWait))
	})

	for {
		_, data, err := v.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Debug("viewer read failed", "viewer", v.id, "error", err)
			}
			return
		}
		h.handleInbound(v, data)
	}
}

func (h *Hub) handleInbound(v *viewer, data []byte) {
	var evt model.Event
	if err := json.Unmarshal(data, &evt); err != nil {
		slog.Warn("ignoring malformed viewer message", "viewer", v.id, "error", err)
		return
	}

	switch evt.Event {
	case model.EventChangeNamespace:
		ns, err := evt.StringData()
		if err != nil {
			slog.Warn("ignoring changeNamespace without a string payload", "viewer", v.id, "error", err)
			return
		}
		if h.namespaces.Set(ns) && h.metrics != nil {
			h.metrics.NamespaceChangesTotal.Inc()
		}
	default:
		slog.Debug("ignoring viewer event", "viewer", v.id, "event", evt.Event)
	}
}
