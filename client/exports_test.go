package client_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/mkc909/cryptointel-data-system-sub000/client"
	"github.com/mkc909/cryptointel-data-system-sub000/internal/ws"
)

var exportUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// An embedding application sees only the client package: the handler
// signature and the message-type constants it registers against must be
// nameable without importing anything internal.
func TestClient_HandlerAPIIsSelfContained(t *testing.T) {
	hub := ws.NewHub(16)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := exportUpgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		hub.Accept(conn)
	}))
	t.Cleanup(func() {
		hub.Shutdown()
		srv.Close()
	})
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")

	c := client.New(client.Options{URL: wsURL, DisableAutoReconnect: true})
	got := make(chan client.Message, 1)
	c.On(client.TypePriceUpdate, func(msg client.Message) {
		select {
		case got <- msg:
		default:
		}
	})
	if err := c.Connect(); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	t.Cleanup(c.Disconnect)

	c.Subscribe("price:BTC")
	deadline := time.Now().Add(3 * time.Second)
	for hub.SubscriberCount("price:BTC") != 1 {
		if time.Now().After(deadline) {
			t.Fatal("subscription never reached the server")
		}
		time.Sleep(5 * time.Millisecond)
	}

	hub.Publish("price:BTC", ws.NewMessage(ws.TypePriceUpdate, map[string]any{"symbol": "BTC", "price": 101.5}))

	select {
	case msg := <-got:
		if msg.Type != client.TypePriceUpdate {
			t.Errorf("type: got %q, want %q", msg.Type, client.TypePriceUpdate)
		}
		if msg.Data["price"] != 101.5 {
			t.Errorf("price: got %v, want 101.5", msg.Data["price"])
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no price_update delivered")
	}
}
