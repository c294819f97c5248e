package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/rs/zerolog/log"

	"github.com/mkc909/cryptointel-data-system-sub000/internal/services"
)

// SignalHandler handles HTTP requests for derived signals.
type SignalHandler struct {
	service services.SignalServiceProvider
}

// NewSignalHandler creates a new SignalHandler.
func NewSignalHandler(service services.SignalServiceProvider) *SignalHandler {
	return &SignalHandler{service: service}
}

// GetRecent returns the most recent signals.
func (h *SignalHandler) GetRecent(w http.ResponseWriter, r *http.Request) {
	limitStr := r.URL.Query().Get("limit")
	limit, err := strconv.Atoi(limitStr)
	if err != nil || limit <= 0 {
		limit = 20 // Default limit
	}

	signals, err := h.service.RecentSignals(limit)
	if err != nil {
		log.Error().Err(err).Msg("Failed to retrieve signals")
		http.Error(w, "Failed to retrieve signals: "+err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(signals)
}
