package ws_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/kurohana/kurohana/internal/health"
	"github.com/kurohana/kurohana/internal/logpanel"
	wsHub "github.com/kurohana/kurohana/internal/ws"
	"github.com/kurohana/kurohana/pkg/bus"
)

const testInterval = 20 * time.Millisecond

// --- helpers ----------------------------------------------------------------

// mutableStatus is a StatusSource whose value tests can change.
type mutableStatus struct {
	mu sync.Mutex
	st health.Status
}

func (m *mutableStatus) Status() health.Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st
}

func (m *mutableStatus) set(s health.Snapshot) {
	m.mu.Lock()
	m.st.Snapshot = s
	m.st.Polls++
	m.mu.Unlock()
}

type fixture struct {
	wsURL  string
	hub    *wsHub.Hub
	bus    *bus.Bus
	status *mutableStatus
}

// startHub starts a test HTTP server with the hub as its handler, attached
// to a fresh bus and log panel. interval controls the status ticker.
func startHub(t *testing.T, interval time.Duration, opts ...wsHub.Option) *fixture {
	t.Helper()

	b := bus.New()
	panel := logpanel.New(40)
	panel.Mount(b)
	st := &mutableStatus{st: health.Status{Snapshot: health.InitialSnapshot()}}

	hub := wsHub.New(st, panel, "http://models.test:8000", interval, opts...)
	hub.Attach(b)
	ctx, cancel := context.WithCancel(context.Background())

	srv := httptest.NewServer(http.HandlerFunc(hub.ServeHTTP))
	go hub.Run(ctx)

	t.Cleanup(func() {
		cancel()
		srv.Close()
	})

	return &fixture{
		wsURL:  "ws" + strings.TrimPrefix(srv.URL, "http"),
		hub:    hub,
		bus:    b,
		status: st,
	}
}

// dial connects a WebSocket client to wsURL and returns the connection.
func dial(t *testing.T, wsURL string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", wsURL, err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

type envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// readEnvelope reads one text message from conn with a short deadline.
func readEnvelope(t *testing.T, conn *websocket.Conn) envelope {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage: %v", err)
	}
	var env envelope
	if err := json.Unmarshal(msg, &env); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	return env
}

// readUntil reads messages until one with the given event arrives.
func readUntil(t *testing.T, conn *websocket.Conn, event string) envelope {
	t.Helper()
	for i := 0; i < 50; i++ {
		if env := readEnvelope(t, conn); env.Event == event {
			return env
		}
	}
	t.Fatalf("no %q message within 50 reads", event)
	return envelope{}
}

func waitForCount(t *testing.T, hub *wsHub.Hub, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for hub.Count() != want {
		if time.Now().After(deadline) {
			t.Fatalf("Count: got %d, want %d", hub.Count(), want)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

// --- tests ------------------------------------------------------------------

func TestHub_Connect_ReceivesLogsThenStatus(t *testing.T) {
	f := startHub(t, time.Hour)
	f.bus.Info("first")
	f.bus.Error("second")

	conn := dial(t, f.wsURL)

	env := readEnvelope(t, conn)
	if env.Event != wsHub.EventLogs {
		t.Fatalf("first event: got %q, want logs", env.Event)
	}
	var logs []map[string]interface{}
	if err := json.Unmarshal(env.Data, &logs); err != nil {
		t.Fatalf("logs data: %v", err)
	}
	if len(logs) != 2 || logs[0]["text"] != "second" || logs[0]["level"] != "error" {
		t.Errorf("logs: got %v", logs)
	}

	env = readEnvelope(t, conn)
	if env.Event != wsHub.EventStatus {
		t.Fatalf("second event: got %q, want status", env.Event)
	}
	var status map[string]interface{}
	json.Unmarshal(env.Data, &status) //nolint:errcheck
	snap, ok := status["snapshot"].(map[string]interface{})
	if !ok || snap["api"] != "checking" {
		t.Errorf("status snapshot: got %v", status["snapshot"])
	}
	if status["api_base"] != "http://models.test:8000" {
		t.Errorf("api_base: got %v", status["api_base"])
	}
}

func TestHub_StreamsBusEntries(t *testing.T) {
	f := startHub(t, time.Hour)
	conn := dial(t, f.wsURL)
	readEnvelope(t, conn) // logs
	readEnvelope(t, conn) // status
	waitForCount(t, f.hub, 1)

	f.bus.Error("[network] GET /health failed: connection refused")

	env := readUntil(t, conn, wsHub.EventLog)
	var entry map[string]interface{}
	json.Unmarshal(env.Data, &entry) //nolint:errcheck
	if entry["text"] != "[network] GET /health failed: connection refused" {
		t.Errorf("text: got %v", entry["text"])
	}
	if entry["id"] == "" || entry["time"] == "" {
		t.Errorf("entry missing id/time: %v", entry)
	}
}

func TestHub_NotifyStatus(t *testing.T) {
	f := startHub(t, time.Hour)
	conn := dial(t, f.wsURL)
	readEnvelope(t, conn)
	readEnvelope(t, conn)
	waitForCount(t, f.hub, 1)

	next := health.Snapshot{API: health.StateOnline, Engine: health.StateOnline, Naval: health.StateOffline}
	f.status.set(next)
	f.hub.NotifyStatus(next)

	env := readUntil(t, conn, wsHub.EventStatus)
	var status struct {
		Snapshot health.Snapshot `json:"snapshot"`
	}
	json.Unmarshal(env.Data, &status) //nolint:errcheck
	if status.Snapshot != next {
		t.Errorf("snapshot: got %+v, want %+v", status.Snapshot, next)
	}
}

func TestHub_ReceivesStatusOnTick(t *testing.T) {
	f := startHub(t, testInterval)
	conn := dial(t, f.wsURL)
	readEnvelope(t, conn) // logs
	readEnvelope(t, conn) // status

	// Without any change or bus traffic, the ticker still pushes status.
	if env := readEnvelope(t, conn); env.Event != wsHub.EventStatus {
		t.Errorf("tick event: got %q, want status", env.Event)
	}
}

func TestHub_CountClients(t *testing.T) {
	var mu sync.Mutex
	var counts []int
	f := startHub(t, time.Hour, wsHub.WithClientCounter(func(n int) {
		mu.Lock()
		counts = append(counts, n)
		mu.Unlock()
	}))

	conns := make([]*websocket.Conn, 3)
	for i := range conns {
		conns[i] = dial(t, f.wsURL)
		readEnvelope(t, conns[i])
	}
	waitForCount(t, f.hub, 3)

	conns[0].Close()
	waitForCount(t, f.hub, 2)

	mu.Lock()
	defer mu.Unlock()
	if len(counts) == 0 || counts[len(counts)-1] != 2 {
		t.Errorf("client counter calls: got %v, want last 2", counts)
	}
}

func TestHub_AttachDetach(t *testing.T) {
	b := bus.New()
	hub := wsHub.New(&mutableStatus{}, logpanel.New(1), "", time.Hour)
	detach := hub.Attach(b)
	if b.Len() != 1 {
		t.Fatalf("subscribers: got %d, want 1", b.Len())
	}
	detach()
	if b.Len() != 0 {
		t.Errorf("subscribers after detach: got %d, want 0", b.Len())
	}
}

// racingLogs publishes an entry from another goroutine while the hub reads
// the window, and gives that publish time to finish before returning.
type racingLogs struct {
	bus  *bus.Bus
	once sync.Once
}

func (r *racingLogs) Entries() []bus.Entry {
	r.once.Do(func() {
		done := make(chan struct{})
		go func() {
			r.bus.Info("published during connect")
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(50 * time.Millisecond):
		}
	})
	return nil
}

func TestHub_EntryPublishedDuringConnectIsStreamed(t *testing.T) {
	b := bus.New()
	logs := &racingLogs{bus: b}
	hub := wsHub.New(&mutableStatus{}, logs, "", time.Hour)
	hub.Attach(b)

	srv := httptest.NewServer(hub)
	t.Cleanup(srv.Close)
	conn := dial(t, "ws"+strings.TrimPrefix(srv.URL, "http"))

	if env := readEnvelope(t, conn); env.Event != wsHub.EventLogs {
		t.Fatalf("first event: got %q, want logs", env.Event)
	}
	env := readUntil(t, conn, wsHub.EventLog)
	var entry map[string]interface{}
	json.Unmarshal(env.Data, &entry) //nolint:errcheck
	if entry["text"] != "published during connect" {
		t.Errorf("text: got %v", entry["text"])
	}
}
