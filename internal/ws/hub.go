package ws

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/mkc909/cryptointel-data-system-sub000/internal/auth"
	"github.com/mkc909/cryptointel-data-system-sub000/internal/models"
)

// Hub owns the session table and the channel registry. It accepts
// connections, routes inbound control messages, and fans published events out
// to channel subscribers. All shared state is guarded by a single
// reader-writer lock so that broadcasts always observe consistent subscriber
// snapshots.
type Hub struct {
	sendBufferLen int

	mu       sync.RWMutex
	sessions map[string]*Session
	registry *registry
}

// NewHub creates a new Hub. sendBufferLen is the per-session outbound queue
// depth; a session that falls that far behind is treated as dead.
func NewHub(sendBufferLen int) *Hub {
	if sendBufferLen <= 0 {
		sendBufferLen = 64
	}
	return &Hub{
		sendBufferLen: sendBufferLen,
		sessions:      make(map[string]*Session),
		registry:      newRegistry(),
	}
}

// Accept registers a freshly upgraded connection as a new unauthenticated
// session, greets it, and starts its read/write pumps. Never blocks on the
// client.
func (h *Hub) Accept(conn *websocket.Conn) *Session {
	now := time.Now()
	s := &Session{
		ID:            uuid.New().String(),
		ConnectedAt:   now,
		hub:           h,
		conn:          conn,
		send:          make(chan outbound, h.sendBufferLen),
		subscriptions: make(map[string]struct{}),
		lastActivity:  now,
	}

	h.mu.Lock()
	h.sessions[s.ID] = s
	total := len(h.sessions)
	h.mu.Unlock()

	log.Info().Str("session_id", s.ID).Int("total_sessions", total).Msg("Client connected")

	s.sendMessage(NewMessage(TypeSystemStatus, map[string]any{
		"status":    "connected",
		"sessionId": s.ID,
	}))

	go s.writePump()
	go s.readPump()
	return s
}

// HandleInbound decodes one raw client message and dispatches it by type.
// Malformed input is reported back to the session; the connection stays open.
func (h *Hub) HandleInbound(sessionID string, raw []byte) {
	h.mu.Lock()
	s, ok := h.sessions[sessionID]
	if ok {
		s.lastActivity = time.Now()
	}
	h.mu.Unlock()
	if !ok {
		return
	}

	var msg Message
	if err := json.Unmarshal(raw, &msg); err != nil {
		log.Debug().Err(err).Str("session_id", s.ID).Msg("Error decoding websocket message")
		s.sendMessage(NewErrorMessage("malformed message"))
		return
	}

	switch msg.Type {
	case TypeSubscribe:
		h.handleSubscribe(s, msg.Channels)
	case TypeUnsubscribe:
		h.handleUnsubscribe(s, msg.Channels)
	case TypePing:
		s.sendMessage(NewMessage(TypePong, nil))
	case TypeAuth:
		h.handleAuth(s, msg.Token)
	default:
		s.sendMessage(NewErrorMessage("unknown message type: " + msg.Type))
	}
}

func (h *Hub) handleSubscribe(s *Session, channels []string) {
	var accepted []string
	var invalid []string
	var replays [][]byte

	h.mu.Lock()
	for _, ch := range channels {
		if !ValidChannel(ch) {
			invalid = append(invalid, ch)
			continue
		}
		h.registry.subscribe(ch, s)
		s.subscriptions[ch] = struct{}{}
		accepted = append(accepted, ch)
		if sym, ok := priceSymbol(ch); ok {
			if raw, ok := h.registry.lastPrice(sym); ok {
				replays = append(replays, raw)
			}
		}
	}
	// Ack every batch, even an empty one, so the subscribe call always
	// gets exactly one success reply.
	reply := NewMessage(TypeSubscriptionSuccess, nil)
	reply.Channels = accepted
	s.sendMessage(reply)
	// Late subscribers to price channels get the most recent known value.
	// Enqueued before the lock is released: a concurrent Publish to the
	// same channel cannot slip a fresher value in ahead of the replay.
	for _, raw := range replays {
		s.trySend(outbound{frameType: websocket.TextMessage, payload: raw})
	}
	h.mu.Unlock()

	for _, ch := range invalid {
		reply := NewMessage(TypeSubscriptionError, map[string]any{"message": "invalid channel"})
		reply.Channel = ch
		s.sendMessage(reply)
	}
}

func (h *Hub) handleUnsubscribe(s *Session, channels []string) {
	h.mu.Lock()
	for _, ch := range channels {
		h.registry.unsubscribe(ch, s.ID)
		delete(s.subscriptions, ch)
	}
	h.mu.Unlock()

	reply := NewMessage(TypeUnsubscriptionSuccess, nil)
	reply.Channels = channels
	s.sendMessage(reply)
}

func (h *Hub) handleAuth(s *Session, token string) {
	if token == "" {
		s.sendMessage(NewMessage(TypeAuthError, map[string]any{"message": "missing token"}))
		return
	}
	principal := auth.Principal(token)

	h.mu.Lock()
	s.authenticated = true
	s.principal = principal
	h.mu.Unlock()

	s.sendMessage(NewMessage(TypeAuthSuccess, map[string]any{"principal": principal}))
}

// Publish delivers an event to every current subscriber of channel. It is
// fire-and-forget: send failures close the offending session and are never
// surfaced to the caller. Events published to unknown channel names are
// dropped.
func (h *Hub) Publish(channel string, msg Message) {
	if !ValidChannel(channel) {
		log.Warn().Str("channel", channel).Msg("Publish to invalid channel dropped")
		return
	}
	msg.Channel = channel
	if msg.Timestamp == 0 {
		msg.Timestamp = time.Now().UnixMilli()
	}
	raw := msg.encode()

	h.mu.Lock()
	if sym, ok := priceSymbol(channel); ok {
		h.registry.recordLastPrice(sym, raw)
	}
	targets := h.registry.snapshot(channel)
	h.mu.Unlock()

	h.dispatch(channel, raw, targets)
}

// dispatch attempts the send to each subscriber in turn. A failure on one
// session never delays or drops delivery to the rest; failed sessions are
// closed after the sweep.
func (h *Hub) dispatch(channel string, raw []byte, targets []*Session) {
	var failed []string
	for _, s := range targets {
		if !s.trySend(outbound{frameType: websocket.TextMessage, payload: raw}) {
			failed = append(failed, s.ID)
		}
	}
	for _, id := range failed {
		log.Warn().Str("session_id", id).Str("channel", channel).Msg("Send failed during broadcast, closing session")
		h.Close(id, "send failed")
	}
}

// PublishSignal fans a signal out per the channel-selection rule: every
// signal goes to signals:all and signals:type:<type>; high-confidence signals
// additionally go to signals:high.
func (h *Hub) PublishSignal(sig models.Signal) {
	h.mu.Lock()
	h.registry.recordSignalType(sig.Type)
	h.mu.Unlock()

	data := map[string]any{
		"id":         sig.ID,
		"symbol":     sig.Symbol,
		"signalType": sig.Type,
		"confidence": sig.Confidence,
		"message":    sig.Message,
	}
	h.Publish(ChannelSignalsAll, NewMessage(TypeSignalAlert, data))
	if sig.High() {
		h.Publish(ChannelSignalsHigh, NewMessage(TypeSignalAlert, data))
	}
	h.Publish(SignalTypeChannel(sig.Type), NewMessage(TypeSignalAlert, data))
}

// touch refreshes a session's activity clock (transport-level pongs).
func (h *Hub) touch(sessionID string) {
	h.mu.Lock()
	if s, ok := h.sessions[sessionID]; ok {
		s.lastActivity = time.Now()
	}
	h.mu.Unlock()
}

// Close removes a session from the session table and from every channel's
// subscriber set, then tears down its connection. Idempotent: calling it
// again for the same id is a no-op. Once Close returns, no broadcast started
// afterwards can reach the session.
func (h *Hub) Close(sessionID, reason string) {
	h.mu.Lock()
	s, ok := h.sessions[sessionID]
	if ok {
		delete(h.sessions, sessionID)
		h.registry.removeSession(s)
	}
	total := len(h.sessions)
	h.mu.Unlock()
	if !ok {
		return
	}

	s.shutdown()
	log.Info().Str("session_id", sessionID).Str("reason", reason).Int("total_sessions", total).Msg("Client disconnected")
}

// Shutdown closes every open session. The hub remains usable afterwards but
// is expected to be discarded.
func (h *Hub) Shutdown() {
	h.mu.Lock()
	all := make([]string, 0, len(h.sessions))
	for id := range h.sessions {
		all = append(all, id)
	}
	h.mu.Unlock()
	for _, id := range all {
		h.Close(id, "server shutdown")
	}
}
