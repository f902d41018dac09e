package feed

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/airflowfield/dashboard/internal/backend"
)

type fakeConn struct {
	frames    chan Frame
	closed    chan struct{}
	closeOnce sync.Once

	mu     sync.Mutex
	writes []Frame
}

func newFakeConn() *fakeConn {
	return &fakeConn{frames: make(chan Frame, 8), closed: make(chan struct{})}
}

func (c *fakeConn) WriteJSON(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.writes = append(c.writes, v.(Frame))
	return nil
}

func (c *fakeConn) ReadJSON(v any) error {
	select {
	case f, ok := <-c.frames:
		if !ok {
			return io.EOF
		}
		*v.(*Frame) = f
		return nil
	case <-c.closed:
		return net.ErrClosed
	}
}

func (c *fakeConn) Close() error {
	c.closeOnce.Do(func() { close(c.closed) })
	return nil
}

func (c *fakeConn) isClosed() bool {
	select {
	case <-c.closed:
		return true
	default:
		return false
	}
}

func (c *fakeConn) written() []Frame {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Frame(nil), c.writes...)
}

// fakeDialer hands out the queued connections in order, then fails.
type fakeDialer struct {
	mu    sync.Mutex
	conns []*fakeConn
	dials atomic.Int32
}

func (d *fakeDialer) Dial(ctx context.Context) (Conn, error) {
	d.dials.Add(1)
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.conns) == 0 {
		return nil, errors.New("connection refused")
	}
	c := d.conns[0]
	d.conns = d.conns[1:]
	return c, nil
}

func alertFrame(id int) Frame {
	data, _ := json.Marshal(map[string]any{"alert_id": id, "alert_title": "t", "alert_message": "m"})
	return Frame{Event: EventNewAlert, Data: data}
}

func waitDone(t *testing.T, sub *Subscription) {
	t.Helper()
	select {
	case <-sub.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("subscription did not stop")
	}
}

func TestSubscribeWithoutIdentityNeverDials(t *testing.T) {
	dialer := &fakeDialer{}
	for _, identity := range []string{"", "   "} {
		_, err := Subscribe(context.Background(), dialer, identity, func(json.RawMessage) {}, Policy{}, zerolog.Nop())
		if !errors.Is(err, ErrNoIdentity) {
			t.Fatalf("expected ErrNoIdentity, got %v", err)
		}
	}
	if dialer.dials.Load() != 0 {
		t.Fatalf("expected no dial, got %d", dialer.dials.Load())
	}
}

func TestSubscribeRegistersOnceAndDeliversEachEvent(t *testing.T) {
	conn := newFakeConn()
	dialer := &fakeDialer{conns: []*fakeConn{conn}}
	got := make(chan json.RawMessage, 8)

	sub, err := Subscribe(context.Background(), dialer, "a@b.com", func(p json.RawMessage) { got <- p }, Policy{}, zerolog.Nop())
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	conn.frames <- alertFrame(1)
	conn.frames <- Frame{Event: "typing", Data: json.RawMessage(`{}`)}
	conn.frames <- alertFrame(2)

	for _, want := range []string{`"alert_id":1`, `"alert_id":2`} {
		select {
		case p := <-got:
			if !strings.Contains(string(p), want) {
				t.Fatalf("expected payload with %s, got %s", want, p)
			}
		case <-time.After(2 * time.Second):
			t.Fatal("alert not delivered")
		}
	}

	sub.Close()
	if !conn.isClosed() {
		t.Fatal("close must terminate the connection")
	}
	select {
	case p := <-got:
		t.Fatalf("unexpected extra callback %s", p)
	default:
	}

	writes := conn.written()
	if len(writes) != 1 || writes[0].Event != EventRegister || string(writes[0].Data) != `"a@b.com"` {
		t.Fatalf("expected exactly one register frame, got %+v", writes)
	}
	if dialer.dials.Load() != 1 {
		t.Fatalf("expected one dial, got %d", dialer.dials.Load())
	}
}

func TestReconnectGivesUpAfterMaxAttempts(t *testing.T) {
	dialer := &fakeDialer{}
	sub, err := Subscribe(context.Background(), dialer, "w@b.com", func(json.RawMessage) {}, Policy{Backoff: time.Millisecond, MaxAttempts: 2}, zerolog.Nop())
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	waitDone(t, sub)

	if dialer.dials.Load() != 3 {
		t.Fatalf("expected initial dial plus 2 retries, got %d", dialer.dials.Load())
	}
	if sub.Err() == nil {
		t.Fatal("expected terminal error")
	}
}

func TestNoReconnectWhenDisabled(t *testing.T) {
	conn := newFakeConn()
	close(conn.frames)
	dialer := &fakeDialer{conns: []*fakeConn{conn, newFakeConn()}}

	sub, _ := Subscribe(context.Background(), dialer, "w@b.com", func(json.RawMessage) {}, Policy{}, zerolog.Nop())
	waitDone(t, sub)

	if dialer.dials.Load() != 1 {
		t.Fatalf("expected a single dial, got %d", dialer.dials.Load())
	}
}

func TestReconnectAfterDropRegistersAgain(t *testing.T) {
	first := newFakeConn()
	close(first.frames)
	second := newFakeConn()
	dialer := &fakeDialer{conns: []*fakeConn{first, second}}
	got := make(chan json.RawMessage, 1)

	sub, _ := Subscribe(context.Background(), dialer, "w@b.com", func(p json.RawMessage) { got <- p }, Policy{Backoff: time.Millisecond, MaxAttempts: 1}, zerolog.Nop())
	defer sub.Close()

	second.frames <- alertFrame(9)
	select {
	case <-got:
	case <-time.After(2 * time.Second):
		t.Fatal("alert not delivered after reconnect")
	}
	if w := second.written(); len(w) != 1 || w[0].Event != EventRegister {
		t.Fatalf("reconnected session must register, got %+v", w)
	}
}

type recordingSink struct {
	mu     sync.Mutex
	pushed []backend.Alert
}

func (s *recordingSink) Push(ctx context.Context, identity string, a backend.Alert) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pushed = append(s.pushed, a)
	return nil
}

func TestManagerSharesSubscriptionPerIdentity(t *testing.T) {
	conn := newFakeConn()
	dialer := &fakeDialer{conns: []*fakeConn{conn}}
	sink := &recordingSink{}
	m := NewManager(dialer, Policy{}, sink, zerolog.Nop())
	defer m.Close()

	a, err := m.Acquire("w@b.com")
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	b, err := m.Acquire("w@b.com")
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if m.Listeners("w@b.com") != 2 {
		t.Fatalf("expected 2 listeners, got %d", m.Listeners("w@b.com"))
	}

	conn.frames <- alertFrame(3)
	for _, l := range []*Listener{a, b} {
		select {
		case alert := <-l.C:
			if alert.ID != "3" {
				t.Fatalf("unexpected alert %+v", alert)
			}
		case <-time.After(2 * time.Second):
			t.Fatal("listener did not receive alert")
		}
	}

	a.Release()
	a.Release()
	if conn.isClosed() {
		t.Fatal("subscription must survive while a listener remains")
	}
	b.Release()
	if !conn.isClosed() {
		t.Fatal("last release must close the connection")
	}
	if _, open := <-b.C; open {
		t.Fatal("listener channel should be closed")
	}
	if dialer.dials.Load() != 1 {
		t.Fatalf("expected a single shared dial, got %d", dialer.dials.Load())
	}
	sink.mu.Lock()
	defer sink.mu.Unlock()
	if len(sink.pushed) != 1 {
		t.Fatalf("expected one stored alert, got %d", len(sink.pushed))
	}
}

func TestManagerRedialsAfterSubscriptionGivesUp(t *testing.T) {
	dialer := &fakeDialer{}
	m := NewManager(dialer, Policy{Backoff: time.Millisecond, MaxAttempts: 1}, nil, zerolog.Nop())
	defer m.Close()

	first, err := m.Acquire("w@b.com")
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	select {
	case _, open := <-first.C:
		if open {
			t.Fatal("unexpected alert on a failing subscription")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("listener channel not closed after the subscription gave up")
	}
	if n := m.Listeners("w@b.com"); n != 0 {
		t.Fatalf("dead subscription still holds %d listeners", n)
	}
	failed := dialer.dials.Load()

	// upstream is back
	conn := newFakeConn()
	dialer.mu.Lock()
	dialer.conns = append(dialer.conns, conn)
	dialer.mu.Unlock()

	second, err := m.Acquire("w@b.com")
	if err != nil {
		t.Fatalf("acquire after recovery: %v", err)
	}
	conn.frames <- alertFrame(5)
	select {
	case alert := <-second.C:
		if alert.ID != "5" {
			t.Fatalf("unexpected alert %+v", alert)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("new listener did not receive alert")
	}
	if got := dialer.dials.Load(); got != failed+1 {
		t.Fatalf("expected one redial, got %d dials after %d", got, failed)
	}

	first.Release()
	if m.Listeners("w@b.com") != 1 {
		t.Fatal("releasing a retired listener must not touch the new subscription")
	}
	second.Release()
	if !conn.isClosed() {
		t.Fatal("last release must close the connection")
	}
}

func TestManagerRejectsBlankIdentity(t *testing.T) {
	dialer := &fakeDialer{}
	m := NewManager(dialer, Policy{}, nil, zerolog.Nop())
	defer m.Close()
	if _, err := m.Acquire(""); !errors.Is(err, ErrNoIdentity) {
		t.Fatalf("expected ErrNoIdentity, got %v", err)
	}
	if dialer.dials.Load() != 0 {
		t.Fatal("blank identity must not dial")
	}
}

// socketServer speaks the server side of Engine.IO v4 over a websocket.
func socketServer(t *testing.T, session func(conn *websocket.Conn)) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/socket.io/" || r.URL.Query().Get("EIO") != "4" || r.URL.Query().Get("transport") != "websocket" {
			http.Error(w, "bad transport", http.StatusBadRequest)
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`0{"sid":"s1","upgrades":[],"pingInterval":25000,"pingTimeout":20000,"maxPayload":1000000}`))
		session(conn)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func readText(conn *websocket.Conn) string {
	_, msg, err := conn.ReadMessage()
	if err != nil {
		return ""
	}
	return string(msg)
}

func TestSocketDialerEndToEnd(t *testing.T) {
	seen := make(chan string, 4)
	srv := socketServer(t, func(conn *websocket.Conn) {
		seen <- readText(conn)
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`40{"sid":"n1"}`))
		seen <- readText(conn)
		_ = conn.WriteMessage(websocket.TextMessage, []byte("2"))
		seen <- readText(conn)
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`42["new-alert",{"alert_id":11,"alert_title":"t","alert_message":"m"}]`))
		_, _, _ = conn.ReadMessage()
	})

	dialer, err := NewSocketDialer(srv.URL, time.Second)
	if err != nil {
		t.Fatalf("dialer: %v", err)
	}
	got := make(chan json.RawMessage, 1)
	sub, err := Subscribe(context.Background(), dialer, "a@b.com", func(p json.RawMessage) { got <- p }, Policy{}, zerolog.Nop())
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer sub.Close()

	for _, want := range []string{"40", `42["register","a@b.com"]`, "3"} {
		select {
		case packet := <-seen:
			if packet != want {
				t.Fatalf("expected packet %q, got %q", want, packet)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("server never saw %q", want)
		}
	}
	select {
	case p := <-got:
		if !strings.Contains(string(p), `"alert_id":11`) {
			t.Fatalf("unexpected payload %s", p)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("alert not delivered")
	}
}

func TestSocketDialerConnectRefused(t *testing.T) {
	srv := socketServer(t, func(conn *websocket.Conn) {
		readText(conn)
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`44{"message":"unauthorized"}`))
		_, _, _ = conn.ReadMessage()
	})
	dialer, err := NewSocketDialer(srv.URL, time.Second)
	if err != nil {
		t.Fatalf("dialer: %v", err)
	}
	if _, err := dialer.Dial(context.Background()); !errors.Is(err, ErrConnectRefused) {
		t.Fatalf("expected ErrConnectRefused, got %v", err)
	}
}

func TestSocketURL(t *testing.T) {
	cases := map[string]string{
		"http://localhost:4001":           "ws://localhost:4001/socket.io/?EIO=4&transport=websocket",
		"https://api.example.com/":        "wss://api.example.com/socket.io/?EIO=4&transport=websocket",
		"ws://x.io/rt/?transport=polling": "ws://x.io/rt/?EIO=4&transport=websocket",
	}
	for in, want := range cases {
		got, err := SocketURL(in)
		if err != nil || got != want {
			t.Errorf("SocketURL(%q) = %q, %v; want %q", in, got, err, want)
		}
	}
	for _, bad := range []string{"ftp://x", "ws://", "localhost:4001"} {
		if _, err := SocketURL(bad); err == nil {
			t.Errorf("SocketURL(%q) should fail", bad)
		}
	}
}

func TestDecodeEvent(t *testing.T) {
	cases := map[string]string{
		`["new-alert",{"alert_id":1}]`:         `{"alert_id":1}`,
		`/alerts,["new-alert",{"alert_id":1}]`: `{"alert_id":1}`,
		`12["new-alert",{"alert_id":1}]`:       `{"alert_id":1}`,
		`["new-alert"]`:                        ``,
	}
	for in, want := range cases {
		event, data, err := decodeEvent([]byte(in))
		if err != nil || event != EventNewAlert || string(data) != want {
			t.Errorf("decodeEvent(%s) = %q, %s, %v", in, event, data, err)
		}
	}
	if _, _, err := decodeEvent([]byte(`{}`)); err == nil {
		t.Error("expected error for a non-array body")
	}
}
