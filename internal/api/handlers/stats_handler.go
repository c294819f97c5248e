package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/mkc909/cryptointel-data-system-sub000/internal/ws"
)

// StatsHandler serves hub introspection for operational tooling.
type StatsHandler struct {
	hub *ws.Hub
}

// NewStatsHandler creates a new StatsHandler.
func NewStatsHandler(hub *ws.Hub) *StatsHandler {
	return &StatsHandler{hub: hub}
}

// Get returns hub-level counters: sessions, per-channel subscribers, tracked
// symbols and signal types.
func (h *StatsHandler) Get(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(h.hub.Stats())
}

// GetSessions returns a summary per open session. Summaries carry no channel
// payloads, so stats cannot leak channel data.
func (h *StatsHandler) GetSessions(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(h.hub.SessionSummaries())
}
