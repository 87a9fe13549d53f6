package metrics

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"crossbot/src/datamodels"
	"crossbot/src/utils/errors"
)

const (
	wsWriteTimeout = 5 * time.Second
	wsSendBuffer   = 16
)

var ErrClientGone = errors.Sentinel("websocket client gone")

type wsClient struct {
	conn     *websocket.Conn
	send     chan any
	done     chan struct{}
	stopOnce sync.Once
}

func (c *wsClient) stop() {
	c.stopOnce.Do(func() {
		close(c.done)
		c.conn.Close()
	})
}

// WebsocketStateWriter pushes every snapshot to all connected clients as JSON.
// Each client has its own send queue drained by its own goroutine, so a slow
// client never holds up the caller of Write. Snapshots that do not fit in a
// full queue are dropped for that client. A client whose write fails is removed.
type WebsocketStateWriter struct {
	clients map[*websocket.Conn]*wsClient
	mu      sync.Mutex
}

func NewWebsocketStateWriter() *WebsocketStateWriter {
	return &WebsocketStateWriter{
		clients: make(map[*websocket.Conn]*wsClient),
	}
}

func (w *WebsocketStateWriter) AddClient(conn *websocket.Conn) {
	client := &wsClient{
		conn: conn,
		send: make(chan any, wsSendBuffer),
		done: make(chan struct{}),
	}
	w.mu.Lock()
	w.clients[conn] = client
	w.mu.Unlock()
	go w.pump(client)
}

func (w *WebsocketStateWriter) pump(client *wsClient) {
	for {
		select {
		case <-client.done:
			return
		case payload := <-client.send:
			client.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := client.conn.WriteJSON(payload); err != nil {
				slog.Warn("Dropping websocket client", "remote", client.conn.RemoteAddr().String(), "error", err)
				w.RemoveClient(client.conn)
				return
			}
		}
	}
}

func (w *WebsocketStateWriter) RemoveClient(conn *websocket.Conn) {
	w.mu.Lock()
	client, ok := w.clients[conn]
	delete(w.clients, conn)
	w.mu.Unlock()
	if ok {
		client.stop()
	}
}

func (w *WebsocketStateWriter) ClientCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.clients)
}

// SendTo writes payload as JSON to a single client. For a registered client the
// payload is queued behind pending broadcasts so writes never interleave, and
// the call waits for queue space. Unregistered connections are written directly.
func (w *WebsocketStateWriter) SendTo(conn *websocket.Conn, payload any) error {
	w.mu.Lock()
	client, ok := w.clients[conn]
	w.mu.Unlock()
	if !ok {
		conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
		return conn.WriteJSON(payload)
	}
	select {
	case client.send <- payload:
		return nil
	case <-client.done:
		return ErrClientGone
	}
}

func (w *WebsocketStateWriter) Write(ctx context.Context, snapshot datamodels.StateSnapshot) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	for conn, client := range w.clients {
		select {
		case client.send <- snapshot:
		default:
			slog.Debug("Websocket client queue full, dropping snapshot", "remote", conn.RemoteAddr().String())
		}
	}
	return nil
}

func (w *WebsocketStateWriter) Close() error {
	w.mu.Lock()
	clients := w.clients
	w.clients = make(map[*websocket.Conn]*wsClient)
	w.mu.Unlock()
	for _, client := range clients {
		client.stop()
	}
	return nil
}
