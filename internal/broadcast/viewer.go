package broadcast

import (
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// viewer is one websocket connection. Only writePump writes to conn.
type viewer struct {
	id          string
	conn        *websocket.Conn
	send        chan []byte
	done        chan struct{}
	closeOnce   sync.Once
	connectedAt time.Time
}

func newViewer(id string, conn *websocket.Conn, queue int) *viewer {
	return &viewer{
		id:          id,
		conn:        conn,
		send:        make(chan []byte, queue),
		done:        make(chan struct{}),
		connectedAt: time.Now(),
	}
}

// enqueue queues msg without blocking. It returns false when the queue is
// full or the viewer is closed.
func (v *viewer) enqueue(msg []byte) bool {
	select {
	case <-v.done:
		return false
	default:
	}
	select {
	case v.send <- msg:
		return true
	default:
		return false
	}
}

func (v *viewer) close() {
	v.closeOnce.Do(func() {
		close(v.done)
		if v.conn != nil {
			v.conn.Close()
		}
	})
}

func (v *viewer) writePump(opts Options) {
	ticker := time.NewTicker(opts.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case msg := <-v.send:
			_ = v.conn.SetWriteDeadline(time.Now().Add(opts.WriteTimeout))
			if err := v.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				slog.Debug("viewer write failed", "viewer", v.id, "error", err)
				v.close()
				return
			}
		case <-ticker.C:
			if err := v.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(opts.WriteTimeout)); err != nil {
				slog.Debug("viewer ping failed", "viewer", v.id, "error", err)
				v.close()
				return
			}
		case <-v.done:
			_ = v.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, ""),
				time.Now().Add(time.Second))
			return
		}
	}
}
