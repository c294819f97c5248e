package client

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/mkc909/cryptointel-data-system-sub000/internal/ws"
)

// --- helpers ----------------------------------------------------------------

var testUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// startHub runs a real hub behind a test HTTP server.
func startHub(t *testing.T) (*ws.Hub, string) {
	t.Helper()
	hub := ws.NewHub(16)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := testUpgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		hub.Accept(conn)
	}))
	t.Cleanup(func() {
		hub.Shutdown()
		srv.Close()
	})
	return hub, "ws" + strings.TrimPrefix(srv.URL, "http")
}

// startRejectingServer refuses every upgrade and counts the attempts.
func startRejectingServer(t *testing.T) (*atomic.Int32, string) {
	t.Helper()
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		http.Error(w, "no", http.StatusServiceUnavailable)
	}))
	t.Cleanup(srv.Close)
	return &attempts, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func waitFor(t *testing.T, cond func() bool, what string) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not reached: %s", what)
}

// --- tests ------------------------------------------------------------------

func TestClient_ConnectSubscribeReceive(t *testing.T) {
	hub, wsURL := startHub(t)

	c := New(Options{URL: wsURL, ReconnectInterval: 20 * time.Millisecond})
	got := make(chan ws.Message, 1)
	c.On(ws.TypePriceUpdate, func(msg ws.Message) {
		select {
		case got <- msg:
		default:
		}
	})
	if err := c.Connect(); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	t.Cleanup(c.Disconnect)

	if c.State() != StateOpen {
		t.Fatalf("state: got %s, want open", c.State())
	}

	c.Subscribe("price:BTC")
	waitFor(t, func() bool { return hub.SubscriberCount("price:BTC") == 1 }, "server-side subscription")

	hub.Publish("price:BTC", ws.NewMessage(ws.TypePriceUpdate, map[string]any{"symbol": "BTC", "price": 42000.0}))

	select {
	case msg := <-got:
		if msg.Data["price"] != 42000.0 {
			t.Errorf("price: got %v, want 42000", msg.Data["price"])
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no price_update delivered")
	}
}

func TestClient_AuthTokenSentOnConnect(t *testing.T) {
	hub, wsURL := startHub(t)

	c := New(Options{URL: wsURL, Token: "ops-token"})
	if err := c.Connect(); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	t.Cleanup(c.Disconnect)

	waitFor(t, func() bool {
		for _, s := range hub.SessionSummaries() {
			if s.Authenticated {
				return true
			}
		}
		return false
	}, "server marks session authenticated")
}

func TestClient_HeartbeatReceivesPongs(t *testing.T) {
	_, wsURL := startHub(t)

	c := New(Options{URL: wsURL, HeartbeatInterval: 25 * time.Millisecond})
	if err := c.Connect(); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	t.Cleanup(c.Disconnect)

	waitFor(t, func() bool { return !c.LastPing().IsZero() }, "heartbeat sent")
	waitFor(t, func() bool { return !c.LastPong().IsZero() }, "pong observed")
}

func TestClient_ReconnectBackoffSequenceAndTerminalFailure(t *testing.T) {
	attempts, wsURL := startRejectingServer(t)

	c := New(Options{
		URL:                  wsURL,
		ReconnectInterval:    50 * time.Millisecond,
		MaxReconnectAttempts: 3,
	})
	failed := make(chan struct{})
	c.OnReconnectFailed(func() { close(failed) })

	start := time.Now()
	if err := c.Connect(); err == nil {
		t.Fatal("Connect should fail against a rejecting server")
	}

	select {
	case <-failed:
	case <-time.After(5 * time.Second):
		t.Fatal("reconnect_failed never fired")
	}
	elapsed := time.Since(start)

	// Initial dial plus exactly maxReconnectAttempts backoff attempts.
	if got := attempts.Load(); got != 4 {
		t.Errorf("dial attempts: got %d, want 4", got)
	}
	// Backoff sum is 50+100+200 = 350ms; anything meaningfully below that
	// means the schedule was not honored.
	if elapsed < 340*time.Millisecond {
		t.Errorf("terminal failure after %v, want >= ~350ms of backoff", elapsed)
	}
	if c.State() != StateClosed {
		t.Errorf("state: got %s, want closed", c.State())
	}

	// Terminal means terminal: no further attempts fire.
	time.Sleep(300 * time.Millisecond)
	if got := attempts.Load(); got != 4 {
		t.Errorf("dial attempts after terminal failure: got %d, want 4", got)
	}
}

func TestClient_SubscriptionReplayAfterReconnect(t *testing.T) {
	hub, wsURL := startHub(t)

	c := New(Options{URL: wsURL, ReconnectInterval: 20 * time.Millisecond, MaxReconnectAttempts: 10})
	if err := c.Connect(); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	t.Cleanup(c.Disconnect)

	c.Subscribe("signals:all", "price:ETH")
	waitFor(t, func() bool {
		return hub.SubscriberCount("signals:all") == 1 && hub.SubscriberCount("price:ETH") == 1
	}, "both subscriptions active")

	// Kill the session server-side (abnormal close from the client's view).
	for _, s := range hub.SessionSummaries() {
		hub.Close(s.ID, "test drop")
	}
	waitFor(t, func() bool { return c.State() != StateOpen }, "client noticed the drop")

	// Mutating intent while disconnected only touches the local set.
	c.Unsubscribe("price:ETH")

	// After reconnect the server-side set equals local intent exactly.
	waitFor(t, func() bool {
		summaries := hub.SessionSummaries()
		if len(summaries) != 1 {
			return false
		}
		chans := hub.SessionChannels(summaries[0].ID)
		return len(chans) == 1 && chans[0] == "signals:all"
	}, "server set equals {signals:all}")

	if got := hub.SubscriberCount("price:ETH"); got != 0 {
		t.Errorf("price:ETH subscribers after reconnect: got %d, want 0", got)
	}
	if c.State() != StateOpen {
		t.Errorf("state: got %s, want open", c.State())
	}
}

func TestClient_DisconnectCancelsPendingReconnect(t *testing.T) {
	attempts, wsURL := startRejectingServer(t)

	c := New(Options{
		URL:                  wsURL,
		ReconnectInterval:    100 * time.Millisecond,
		MaxReconnectAttempts: 10,
	})
	if err := c.Connect(); err == nil {
		t.Fatal("Connect should fail against a rejecting server")
	}
	if c.State() != StateReconnecting {
		t.Fatalf("state: got %s, want reconnecting", c.State())
	}

	c.Disconnect()
	if c.State() != StateClosed {
		t.Errorf("state: got %s, want closed", c.State())
	}

	before := attempts.Load()
	time.Sleep(300 * time.Millisecond)
	if got := attempts.Load(); got != before {
		t.Errorf("reconnect fired after Disconnect: %d -> %d attempts", before, got)
	}
}

func TestClient_NoAutoReconnectClosesOnFailure(t *testing.T) {
	_, wsURL := startRejectingServer(t)

	c := New(Options{URL: wsURL, DisableAutoReconnect: true})
	if err := c.Connect(); err == nil {
		t.Fatal("Connect should fail against a rejecting server")
	}
	if c.State() != StateClosed {
		t.Errorf("state: got %s, want closed", c.State())
	}
}

func TestClient_ConnectAfterDisconnectRefused(t *testing.T) {
	_, wsURL := startHub(t)

	c := New(Options{URL: wsURL})
	c.Disconnect()
	if err := c.Connect(); err == nil {
		t.Error("Connect on a destroyed client must fail")
	}
}

func TestState_String(t *testing.T) {
	states := map[State]string{
		StateIdle:         "idle",
		StateConnecting:   "connecting",
		StateOpen:         "open",
		StateClosing:      "closing",
		StateClosed:       "closed",
		StateReconnecting: "reconnecting",
	}
	for s, want := range states {
		if got := s.String(); got != want {
			t.Errorf("State(%d).String(): got %q, want %q", s, got, want)
		}
	}
}
