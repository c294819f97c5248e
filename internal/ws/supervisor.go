package ws

import (
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// Supervisor periodically pings every open session and evicts sessions that
// have been silent past the inactivity threshold. Sockets can hang without a
// transport-level close event; this sweep is what finally reaps them.
type Supervisor struct {
	hub          *Hub
	pingInterval time.Duration
	idleTimeout  time.Duration
	ticker       *time.Ticker
	done         chan bool
}

// NewSupervisor creates a liveness supervisor for hub.
func NewSupervisor(hub *Hub, pingInterval, idleTimeout time.Duration) *Supervisor {
	return &Supervisor{
		hub:          hub,
		pingInterval: pingInterval,
		idleTimeout:  idleTimeout,
		done:         make(chan bool),
	}
}

// Run starts the sweep loop. Call it in its own goroutine.
func (sv *Supervisor) Run() {
	log.Info().Dur("ping_interval", sv.pingInterval).Dur("idle_timeout", sv.idleTimeout).Msg("Starting liveness supervisor...")
	sv.ticker = time.NewTicker(sv.pingInterval)
	defer sv.ticker.Stop()

	for {
		select {
		case <-sv.done:
			log.Info().Msg("Stopping liveness supervisor.")
			return
		case <-sv.ticker.C:
			sv.sweep()
		}
	}
}

// Stop halts the sweep loop.
func (sv *Supervisor) Stop() {
	sv.done <- true
}

// sweep evicts idle sessions and pings the rest. Pings are not gated on
// activity: they keep intermediary proxies and NATs from dropping idle TCP
// connections, and their pongs refresh lastActivity.
func (sv *Supervisor) sweep() {
	now := time.Now()

	sv.hub.mu.RLock()
	type target struct {
		id   string
		idle bool
	}
	targets := make([]target, 0, len(sv.hub.sessions))
	for id, s := range sv.hub.sessions {
		targets = append(targets, target{id: id, idle: now.Sub(s.lastActivity) > sv.idleTimeout})
	}
	sv.hub.mu.RUnlock()

	for _, t := range targets {
		if t.idle {
			log.Info().Str("session_id", t.id).Msg("Evicting idle session")
			sv.hub.Close(t.id, "idle_timeout")
			continue
		}
		sv.hub.mu.RLock()
		s, ok := sv.hub.sessions[t.id]
		sv.hub.mu.RUnlock()
		if !ok {
			continue
		}
		// A ping that cannot even be queued gets the same treatment as a
		// broadcast failure.
		if !s.trySend(outbound{frameType: websocket.PingMessage}) {
			sv.hub.Close(t.id, "ping failed")
		}
	}
}
