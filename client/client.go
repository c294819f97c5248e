// Package client implements the consumer-side counterpart of the broadcast
// hub: a websocket connection state machine with heartbeats, exponential
// backoff reconnection, and subscription replay after reconnect.
package client

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/mkc909/cryptointel-data-system-sub000/internal/ws"
)

// State is the connection lifecycle state.
type State int

const (
	StateIdle State = iota
	StateConnecting
	StateOpen
	StateClosing
	StateClosed
	StateReconnecting
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	case StateReconnecting:
		return "reconnecting"
	default:
		return "unknown"
	}
}

// Handler receives messages of one registered type.
type Handler func(msg Message)

// Options configures a Client. Zero values get sensible defaults; the zero
// Options value auto-reconnects.
type Options struct {
	URL                  string
	Token                string        // sent in an auth message on every (re)connect when non-empty
	HeartbeatInterval    time.Duration // default 30s
	ReconnectInterval    time.Duration // base backoff delay, default 1s
	MaxReconnectAttempts int           // default 5
	DisableAutoReconnect bool
	Dialer               *websocket.Dialer
}

// Client is one logical connection to the hub. The subscription set tracks
// caller intent independently of the underlying socket: it survives
// disconnects and is replayed wholesale on every reconnect.
type Client struct {
	url               string
	token             string
	heartbeatInterval time.Duration
	reconnectInterval time.Duration
	maxAttempts       int
	autoReconnect     bool
	dialer            *websocket.Dialer

	mu                sync.Mutex
	state             State
	conn              *websocket.Conn
	subscriptions     map[string]struct{}
	reconnectAttempts int
	lastPing          time.Time
	lastPong          time.Time
	destroyed         bool
	reconnectTimer    *time.Timer
	heartbeatStop     chan struct{}

	writeMu sync.Mutex // serializes writes to conn

	handlersMu      sync.RWMutex
	handlers        map[string][]Handler
	reconnectFailed []func()
}

// New creates a Client in the Idle state.
func New(opts Options) *Client {
	if opts.HeartbeatInterval <= 0 {
		opts.HeartbeatInterval = 30 * time.Second
	}
	if opts.ReconnectInterval <= 0 {
		opts.ReconnectInterval = time.Second
	}
	if opts.MaxReconnectAttempts <= 0 {
		opts.MaxReconnectAttempts = 5
	}
	if opts.Dialer == nil {
		opts.Dialer = websocket.DefaultDialer
	}
	return &Client{
		url:               opts.URL,
		token:             opts.Token,
		heartbeatInterval: opts.HeartbeatInterval,
		reconnectInterval: opts.ReconnectInterval,
		maxAttempts:       opts.MaxReconnectAttempts,
		autoReconnect:     !opts.DisableAutoReconnect,
		dialer:            opts.Dialer,
		state:             StateIdle,
		subscriptions:     make(map[string]struct{}),
		handlers:          make(map[string][]Handler),
	}
}

// On registers a handler for one message type. Multiple handlers per type are
// invoked in registration order.
func (c *Client) On(msgType string, h Handler) {
	c.handlersMu.Lock()
	c.handlers[msgType] = append(c.handlers[msgType], h)
	c.handlersMu.Unlock()
}

// OnReconnectFailed registers a callback fired once reconnect attempts are
// exhausted. This is the only failure escalated to the embedding application;
// transient failures are retried automatically.
func (c *Client) OnReconnectFailed(f func()) {
	c.handlersMu.Lock()
	c.reconnectFailed = append(c.reconnectFailed, f)
	c.handlersMu.Unlock()
}

// Connect dials the hub. On dial failure with auto-reconnect enabled the
// first backoff attempt is scheduled and the dial error is still returned.
func (c *Client) Connect() error {
	c.mu.Lock()
	if c.destroyed {
		c.mu.Unlock()
		return fmt.Errorf("client is destroyed")
	}
	c.state = StateConnecting
	c.mu.Unlock()

	conn, _, err := c.dialer.Dial(c.url, nil)
	if err != nil {
		c.mu.Lock()
		if !c.destroyed {
			if c.autoReconnect {
				c.state = StateReconnecting
				c.scheduleReconnectLocked()
			} else {
				c.state = StateClosed
			}
		}
		c.mu.Unlock()
		return fmt.Errorf("dial %s: %w", c.url, err)
	}

	c.onOpen(conn)
	return nil
}

// Subscribe adds channels to the desired subscription set and, when the
// connection is open, requests them from the server. While disconnected the
// call only mutates local intent; the set is applied on the next reconnect.
func (c *Client) Subscribe(channels ...string) {
	c.mu.Lock()
	for _, ch := range channels {
		c.subscriptions[ch] = struct{}{}
	}
	conn := c.connIfOpen()
	c.mu.Unlock()

	if conn != nil {
		c.write(conn, ws.Message{Type: ws.TypeSubscribe, Channels: channels})
	}
}

// Unsubscribe removes channels from the desired set, symmetric to Subscribe.
func (c *Client) Unsubscribe(channels ...string) {
	c.mu.Lock()
	for _, ch := range channels {
		delete(c.subscriptions, ch)
	}
	conn := c.connIfOpen()
	c.mu.Unlock()

	if conn != nil {
		c.write(conn, ws.Message{Type: ws.TypeUnsubscribe, Channels: channels})
	}
}

// Disconnect permanently tears the client down: any pending reconnect timer
// is cancelled, the socket is closed with a normal close code, and no further
// automatic reconnection will run.
func (c *Client) Disconnect() {
	c.mu.Lock()
	c.destroyed = true
	c.state = StateClosing
	if c.reconnectTimer != nil {
		c.reconnectTimer.Stop()
		c.reconnectTimer = nil
	}
	c.stopHeartbeatLocked()
	conn := c.conn
	c.conn = nil
	c.state = StateClosed
	c.mu.Unlock()

	if conn != nil {
		c.writeMu.Lock()
		conn.SetWriteDeadline(time.Now().Add(time.Second))
		conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		c.writeMu.Unlock()
		conn.Close()
	}
}

// State returns the current lifecycle state.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Subscriptions returns a copy of the desired subscription set.
func (c *Client) Subscriptions() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.subscriptions))
	for ch := range c.subscriptions {
		out = append(out, ch)
	}
	return out
}

// LastPing returns when the last heartbeat was sent.
func (c *Client) LastPing() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastPing
}

// LastPong returns when the last pong was observed.
func (c *Client) LastPong() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastPong
}

// connIfOpen must be called with c.mu held.
func (c *Client) connIfOpen() *websocket.Conn {
	if c.state == StateOpen {
		return c.conn
	}
	return nil
}

// onOpen transitions to Open: reset the attempt counter, authenticate, replay
// the full subscription set, and start the read loop and heartbeat.
func (c *Client) onOpen(conn *websocket.Conn) {
	c.mu.Lock()
	if c.destroyed {
		c.mu.Unlock()
		conn.Close()
		return
	}
	c.conn = conn
	c.state = StateOpen
	c.reconnectAttempts = 0
	c.stopHeartbeatLocked()
	stop := make(chan struct{})
	c.heartbeatStop = stop
	replay := make([]string, 0, len(c.subscriptions))
	for ch := range c.subscriptions {
		replay = append(replay, ch)
	}
	c.mu.Unlock()

	log.Debug().Str("url", c.url).Int("subscriptions", len(replay)).Msg("Connection open")

	if c.token != "" {
		c.write(conn, ws.Message{Type: ws.TypeAuth, Token: c.token})
	}
	if len(replay) > 0 {
		c.write(conn, ws.Message{Type: ws.TypeSubscribe, Channels: replay})
	}

	go c.readLoop(conn)
	go c.heartbeat(conn, stop)
}

func (c *Client) readLoop(conn *websocket.Conn) {
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			c.onConnectionLost(conn, err)
			return
		}
		var msg ws.Message
		if err := json.Unmarshal(raw, &msg); err != nil {
			log.Debug().Err(err).Msg("Discarding malformed server message")
			continue
		}
		if msg.Type == ws.TypePong {
			c.mu.Lock()
			c.lastPong = time.Now()
			c.mu.Unlock()
		}
		c.dispatch(msg)
	}
}

func (c *Client) dispatch(msg ws.Message) {
	c.handlersMu.RLock()
	hs := c.handlers[msg.Type]
	c.handlersMu.RUnlock()
	for _, h := range hs {
		h(msg)
	}
}

// heartbeat sends an application-level ping every interval. A failed ping is
// not itself a reconnect trigger; if the transport is truly gone the read
// loop will notice.
func (c *Client) heartbeat(conn *websocket.Conn, stop chan struct{}) {
	ticker := time.NewTicker(c.heartbeatInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			c.mu.Lock()
			c.lastPing = time.Now()
			c.mu.Unlock()
			c.write(conn, ws.Message{Type: ws.TypePing})
		}
	}
}

// onConnectionLost handles an abnormal transport close on the current
// connection. Stale connections from a previous epoch are ignored.
func (c *Client) onConnectionLost(conn *websocket.Conn, err error) {
	conn.Close()

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.destroyed || c.conn != conn {
		return
	}
	c.conn = nil
	c.stopHeartbeatLocked()
	if !c.autoReconnect {
		c.state = StateClosed
		return
	}
	log.Debug().Err(err).Msg("Connection lost, scheduling reconnect")
	c.state = StateReconnecting
	c.scheduleReconnectLocked()
}

// scheduleReconnectLocked arms the backoff timer for the next attempt, or
// gives up once the attempt cap is exceeded. Caller holds c.mu.
func (c *Client) scheduleReconnectLocked() {
	c.reconnectAttempts++
	if c.reconnectAttempts > c.maxAttempts {
		c.state = StateClosed
		log.Warn().Int("attempts", c.maxAttempts).Msg("Reconnect attempts exhausted")
		go c.fireReconnectFailed()
		return
	}
	delay := c.reconnectInterval << (c.reconnectAttempts - 1)
	log.Debug().Int("attempt", c.reconnectAttempts).Dur("delay", delay).Msg("Reconnect scheduled")
	c.reconnectTimer = time.AfterFunc(delay, c.attemptReconnect)
}

func (c *Client) attemptReconnect() {
	c.mu.Lock()
	if c.destroyed {
		c.mu.Unlock()
		return
	}
	c.state = StateConnecting
	c.mu.Unlock()

	conn, _, err := c.dialer.Dial(c.url, nil)
	if err != nil {
		c.mu.Lock()
		if !c.destroyed {
			c.state = StateReconnecting
			c.scheduleReconnectLocked()
		}
		c.mu.Unlock()
		return
	}
	c.onOpen(conn)
}

func (c *Client) fireReconnectFailed() {
	c.handlersMu.RLock()
	fs := append([]func(){}, c.reconnectFailed...)
	c.handlersMu.RUnlock()
	for _, f := range fs {
		f()
	}
}

// stopHeartbeatLocked stops the current heartbeat goroutine. Caller holds c.mu.
func (c *Client) stopHeartbeatLocked() {
	if c.heartbeatStop != nil {
		close(c.heartbeatStop)
		c.heartbeatStop = nil
	}
}

func (c *Client) write(conn *websocket.Conn, msg ws.Message) {
	payload, err := json.Marshal(msg)
	if err != nil {
		return
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		log.Debug().Err(err).Msg("Client write failed")
	}
}
