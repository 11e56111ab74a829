package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/kurohana/kurohana/internal/api"
	"github.com/kurohana/kurohana/internal/health"
	"github.com/kurohana/kurohana/pkg/bus"
)

const (
	// writeTimeout bounds each frame written to a client.
	writeTimeout = 10 * time.Second

	// pongWait is the read deadline extended by every pong.
	pongWait = 60 * time.Second

	// pingPeriod is the keepalive interval; it stays below pongWait.
	pingPeriod = (pongWait * 9) / 10

	// sendBufSize is how many messages may queue for a slow client before
	// it is dropped.
	sendBufSize = 64
)

// Event names carried in Message.Event.
const (
	EventLogs   = "logs"   // full window, newest first; sent on connect
	EventLog    = "log"    // one new entry
	EventStatus = "status" // status payload; on connect, on change and every interval
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// Allow all origins; apply CORS at the reverse-proxy level.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Message is the JSON envelope sent to clients.
type Message struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

// Hub manages WebSocket client connections. It streams every bus entry as it
// is published and pushes the status payload on change and on a fixed interval.
// Clients may see an entry both in the initial window and as a log event;
// entry IDs are unique so they can drop the repeat.
type Hub struct {
	status   api.StatusSource
	logs     api.LogSource
	counters api.CounterSource
	apiBase  string
	interval time.Duration
	onCount  func(int)

	mu      sync.RWMutex
	clients map[*client]struct{}
}

// client is one stream subscriber.
type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Option customises a Hub.
type Option func(*Hub)

// WithCounters includes metric totals in status messages.
func WithCounters(c api.CounterSource) Option {
	return func(h *Hub) { h.counters = c }
}

// WithClientCounter installs a hook called with the client count whenever it changes.
func WithClientCounter(fn func(int)) Option {
	return func(h *Hub) {
		if fn != nil {
			h.onCount = fn
		}
	}
}

// New creates a Hub reading status from st and the log window from logs,
// broadcasting status every interval.
func New(st api.StatusSource, logs api.LogSource, apiBase string, interval time.Duration, opts ...Option) *Hub {
	h := &Hub{
		status:   st,
		logs:     logs,
		apiBase:  apiBase,
		interval: interval,
		onCount:  func(int) {},
		clients:  make(map[*client]struct{}),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Attach streams every entry published on b until the returned func is called.
func (h *Hub) Attach(b *bus.Bus) (detach func()) {
	return b.Subscribe(func(e bus.Entry) {
		h.send(Message{Event: EventLog, Data: api.ToLogEntry(e)})
	})
}

// NotifyStatus pushes the current status to every client. Its signature
// matches health.Poller.OnChange.
func (h *Hub) NotifyStatus(health.Snapshot) {
	h.send(h.statusMessage())
}

// Run starts the status broadcast ticker loop. Run blocks until ctx is
// cancelled, then closes all active connections.
func (h *Hub) Run(ctx context.Context) {
	t := time.NewTicker(h.interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return
		case <-t.C:
			h.send(h.statusMessage())
		}
	}
}

// ServeHTTP upgrades the request and streams to the client until it leaves.
// The log window and the current status are queued before the client starts
// receiving broadcasts. Blocks until the connection closes.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade replied with the HTTP error.
		return
	}

	c := &client{
		conn: conn,
		send: make(chan []byte, sendBufSize),
	}
	h.register(c)
	defer h.unregister(c)

	go c.writePump()
	c.readPump()
}

// Count reports connected clients.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// --- clients ----------------------------------------------------------------

// register reads the window and joins c under h.mu, so an entry published
// meanwhile is either in the window or streamed to c afterwards. The log
// source must be subscribed to the bus before the hub.
func (h *Hub) register(c *client) {
	h.mu.Lock()
	for _, m := range []Message{
		{Event: EventLogs, Data: api.BuildLogs(h.logs.Entries())},
		h.statusMessage(),
	} {
		if data, err := json.Marshal(m); err == nil {
			c.send <- data // fresh buffer, cannot block
		}
	}
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()
	h.onCount(n)
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	_, ok := h.clients[c]
	if ok {
		delete(h.clients, c)
		close(c.send)
	}
	n := len(h.clients)
	h.mu.Unlock()
	if ok {
		h.onCount(n)
	}
}

func (h *Hub) statusMessage() Message {
	return Message{Event: EventStatus, Data: api.BuildStatus(h.status, h.apiBase, h.counters)}
}

func (h *Hub) send(m Message) {
	data, err := json.Marshal(m)
	if err != nil {
		slog.Warn("ws: encode message failed", "event", m.Event, "err", err)
		return
	}

	h.mu.RLock()
	targets := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	for _, c := range targets {
		h.deliver(c, data)
	}
}

// deliver queues data for c, disconnecting it when its buffer is full.
// The send happens under the read lock so it cannot race with close.
func (h *Hub) deliver(c *client, data []byte) {
	h.mu.RLock()
	if _, ok := h.clients[c]; !ok {
		h.mu.RUnlock()
		return
	}
	select {
	case c.send <- data:
		h.mu.RUnlock()
	default:
		h.mu.RUnlock()
		// Client's outgoing buffer is full; disconnect it.
		h.unregister(c)
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	for c := range h.clients {
		close(c.send)
		delete(h.clients, c)
	}
	h.mu.Unlock()
	h.onCount(0)
}

// writePump is the only writer on c.conn: queued messages and keepalive pings.
// It exits when the queue is closed or a write fails.
func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if !ok {
				// Unregistered or hub stopped.
				c.conn.WriteMessage(websocket.CloseMessage, []byte{}) //nolint:errcheck
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump discards client frames; reading is needed for pong and close
// handling. It returns once the peer is gone or stops answering pings.
func (c *client) readPump() {
	defer c.conn.Close()
	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			break
		}
	}
}
