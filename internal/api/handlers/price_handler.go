package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/mkc909/cryptointel-data-system-sub000/internal/services"
)

// PriceHandler handles HTTP requests for collected price data.
type PriceHandler struct {
	service services.PriceServiceProvider
}

// NewPriceHandler creates a new PriceHandler.
func NewPriceHandler(service services.PriceServiceProvider) *PriceHandler {
	return &PriceHandler{service: service}
}

// GetLatest returns the most recent observation for a symbol.
func (h *PriceHandler) GetLatest(w http.ResponseWriter, r *http.Request) {
	symbol := chi.URLParam(r, "symbol")
	price, err := h.service.LatestPrice(symbol)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(price)
}

// GetHistory returns recent observations for a symbol, newest first.
func (h *PriceHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	symbol := chi.URLParam(r, "symbol")
	limitStr := r.URL.Query().Get("limit")
	limit, err := strconv.Atoi(limitStr)
	if err != nil || limit <= 0 {
		limit = 100 // Default limit
	}

	prices, err := h.service.PriceHistory(symbol, limit)
	if err != nil {
		log.Error().Err(err).Str("symbol", symbol).Msg("Failed to retrieve price history")
		http.Error(w, "Failed to retrieve price history: "+err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(prices)
}

// GetSummary returns the aggregate market view.
func (h *PriceHandler) GetSummary(w http.ResponseWriter, r *http.Request) {
	sum, err := h.service.MarketSummary()
	if err != nil {
		log.Error().Err(err).Msg("Failed to build market summary")
		http.Error(w, "Failed to build market summary: "+err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(sum)
}
