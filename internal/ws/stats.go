package ws

import "time"

// Stats is the hub-level introspection snapshot served to operational
// tooling.
type Stats struct {
	Sessions           int            `json:"sessions"`
	Channels           map[string]int `json:"channels"` // channel -> subscriber count
	TrackedSymbols     int            `json:"trackedSymbols"`
	TrackedSignalTypes int            `json:"trackedSignalTypes"`
}

// SessionSummary describes one session without exposing channel payloads.
type SessionSummary struct {
	ID            string    `json:"id"`
	Authenticated bool      `json:"authenticated"`
	ConnectedAt   time.Time `json:"connectedAt"`
	LastActivity  time.Time `json:"lastActivity"`
	Subscriptions int       `json:"subscriptions"`
}

// Stats returns a point-in-time view of the hub.
func (h *Hub) Stats() Stats {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return Stats{
		Sessions:           len(h.sessions),
		Channels:           h.registry.subscriberCounts(),
		TrackedSymbols:     len(h.registry.lastPrices),
		TrackedSignalTypes: len(h.registry.sigTypes),
	}
}

// SessionSummaries returns a summary row per open session.
func (h *Hub) SessionSummaries() []SessionSummary {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]SessionSummary, 0, len(h.sessions))
	for _, s := range h.sessions {
		out = append(out, SessionSummary{
			ID:            s.ID,
			Authenticated: s.authenticated,
			ConnectedAt:   s.ConnectedAt,
			LastActivity:  s.lastActivity,
			Subscriptions: len(s.subscriptions),
		})
	}
	return out
}

// SubscriberCount returns the current subscriber count for one channel.
func (h *Hub) SubscriberCount(channel string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.registry.channels[channel])
}

// SessionChannels returns the subscription set of one session, or nil if the
// session is unknown.
func (h *Hub) SessionChannels(sessionID string) []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	s, ok := h.sessions[sessionID]
	if !ok {
		return nil
	}
	out := make([]string, 0, len(s.subscriptions))
	for ch := range s.subscriptions {
		out = append(out, ch)
	}
	return out
}
