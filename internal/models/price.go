package models

import "time"

// Price is one collected market-price observation for a symbol.
type Price struct {
	ID        string    `json:"id"`
	Symbol    string    `json:"symbol"`
	Price     float64   `json:"price"`
	Volume    float64   `json:"volume"`
	Change24h float64   `json:"change24h"` // percent
	Source    string    `json:"source"`    // e.g. "binance"
	CreatedAt time.Time `json:"createdAt"`
}

// MarketSummary is an aggregate view across all tracked symbols.
type MarketSummary struct {
	Symbols     int       `json:"symbols"`
	TotalVolume float64   `json:"totalVolume"`
	AvgChange   float64   `json:"avgChange"` // mean 24h change, percent
	Gainers     int       `json:"gainers"`
	Losers      int       `json:"losers"`
	GeneratedAt time.Time `json:"generatedAt"`
}
