package ws

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const (
	// writeTimeout is the deadline for a single write to a client.
	writeTimeout = 10 * time.Second

	// pongWait bounds how long the read side waits between frames before the
	// transport is treated as dead. The supervisor pings well inside this.
	pongWait = 90 * time.Second

	// maxMessageSize bounds inbound control messages.
	maxMessageSize = 4096
)

// outbound is one queued write: either a data frame or a ping frame.
type outbound struct {
	frameType int // websocket.TextMessage or websocket.PingMessage
	payload   []byte
}

// Session is one accepted client connection. The Hub owns it for its whole
// lifetime; the registry only references it.
type Session struct {
	ID          string
	ConnectedAt time.Time

	hub  *Hub
	conn *websocket.Conn
	send chan outbound

	// Guarded by the hub lock.
	authenticated bool
	principal     string
	subscriptions map[string]struct{}
	lastActivity  time.Time

	closeMu sync.Mutex
	closed  bool
}

// trySend queues a frame without blocking. It returns false when the session
// is closed or its outbound buffer is full; callers treat false as a transport
// failure.
func (s *Session) trySend(o outbound) bool {
	s.closeMu.Lock()
	defer s.closeMu.Unlock()
	if s.closed {
		return false
	}
	select {
	case s.send <- o:
		return true
	default:
		return false
	}
}

func (s *Session) sendMessage(m Message) bool {
	return s.trySend(outbound{frameType: websocket.TextMessage, payload: m.encode()})
}

// shutdown closes the outbound queue and the underlying connection. Safe to
// call more than once; after the first call no further frame is ever queued.
func (s *Session) shutdown() {
	s.closeMu.Lock()
	if s.closed {
		s.closeMu.Unlock()
		return
	}
	s.closed = true
	close(s.send)
	s.closeMu.Unlock()
	if s.conn != nil {
		s.conn.Close()
	}
}

// writePump drains the outbound queue onto the connection. One per session.
func (s *Session) writePump() {
	defer s.conn.Close()
	for o := range s.send {
		s.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := s.conn.WriteMessage(o.frameType, o.payload); err != nil {
			log.Debug().Err(err).Str("session_id", s.ID).Msg("Session write failed")
			return
		}
	}
	// Queue closed: the hub removed the session, say goodbye if we still can.
	s.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	s.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

// readPump reads inbound control messages and hands them to the hub. It
// blocks until the connection dies, then closes the session. One per session.
func (s *Session) readPump() {
	defer s.hub.Close(s.ID, "connection closed")
	s.conn.SetReadLimit(maxMessageSize)
	s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		s.conn.SetReadDeadline(time.Now().Add(pongWait))
		s.hub.touch(s.ID)
		return nil
	})
	for {
		_, raw, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Debug().Err(err).Str("session_id", s.ID).Msg("Session read failed")
			}
			return
		}
		s.conn.SetReadDeadline(time.Now().Add(pongWait))
		s.hub.HandleInbound(s.ID, raw)
	}
}
