package services

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mkc909/cryptointel-data-system-sub000/internal/models"
)

// PriceServiceProvider defines the interface for price data services.
type PriceServiceProvider interface {
	RecordPrice(symbol string, price, volume, change24h float64, source string) (models.Price, error)
	LatestPrice(symbol string) (models.Price, error)
	PriceHistory(symbol string, limit int) ([]models.Price, error)
	AveragePrice(symbol string, window time.Duration) (float64, error)
	MarketSummary() (models.MarketSummary, error)
}

// PriceService provides business logic for collected price data.
type PriceService struct {
	db *sql.DB
}

// NewPriceService creates a new PriceService.
func NewPriceService(db *sql.DB) *PriceService {
	return &PriceService{db: db}
}

// RecordPrice inserts one price observation.
func (s *PriceService) RecordPrice(symbol string, price, volume, change24h float64, source string) (models.Price, error) {
	p := models.Price{
		ID:        uuid.New().String(),
		Symbol:    symbol,
		Price:     price,
		Volume:    volume,
		Change24h: change24h,
		Source:    source,
		CreatedAt: time.Now().UTC(),
	}

	stmt, err := s.db.Prepare("INSERT INTO prices (id, symbol, price, volume, change_24h, source, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)")
	if err != nil {
		return models.Price{}, err
	}
	defer stmt.Close()

	_, err = stmt.Exec(p.ID, p.Symbol, p.Price, p.Volume, p.Change24h, p.Source, p.CreatedAt)
	return p, err
}

// LatestPrice retrieves the most recent observation for a symbol.
func (s *PriceService) LatestPrice(symbol string) (models.Price, error) {
	var p models.Price
	row := s.db.QueryRow(
		"SELECT id, symbol, price, volume, change_24h, source, created_at FROM prices WHERE symbol = ? ORDER BY created_at DESC LIMIT 1",
		symbol)
	err := row.Scan(&p.ID, &p.Symbol, &p.Price, &p.Volume, &p.Change24h, &p.Source, &p.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return models.Price{}, fmt.Errorf("no price data for symbol %s", symbol)
		}
		return models.Price{}, err
	}
	return p, nil
}

// PriceHistory retrieves the most recent observations for a symbol, newest first.
func (s *PriceService) PriceHistory(symbol string, limit int) ([]models.Price, error) {
	rows, err := s.db.Query(
		"SELECT id, symbol, price, volume, change_24h, source, created_at FROM prices WHERE symbol = ? ORDER BY created_at DESC LIMIT ?",
		symbol, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var prices []models.Price
	for rows.Next() {
		var p models.Price
		if err := rows.Scan(&p.ID, &p.Symbol, &p.Price, &p.Volume, &p.Change24h, &p.Source, &p.CreatedAt); err != nil {
			return nil, err
		}
		prices = append(prices, p)
	}
	return prices, rows.Err()
}

// AveragePrice computes the mean price of a symbol over a trailing window.
func (s *PriceService) AveragePrice(symbol string, window time.Duration) (float64, error) {
	since := time.Now().UTC().Add(-window)
	var avg sql.NullFloat64
	row := s.db.QueryRow("SELECT AVG(price) FROM prices WHERE symbol = ? AND created_at >= ?", symbol, since)
	if err := row.Scan(&avg); err != nil {
		return 0, err
	}
	if !avg.Valid {
		return 0, fmt.Errorf("no price data for symbol %s in window", symbol)
	}
	return avg.Float64, nil
}

// MarketSummary aggregates the latest observation of every tracked symbol.
func (s *PriceService) MarketSummary() (models.MarketSummary, error) {
	rows, err := s.db.Query(`
		SELECT p.symbol, p.volume, p.change_24h
		FROM prices p
		JOIN (SELECT symbol, MAX(created_at) AS latest FROM prices GROUP BY symbol) m
		ON p.symbol = m.symbol AND p.created_at = m.latest`)
	if err != nil {
		return models.MarketSummary{}, err
	}
	defer rows.Close()

	sum := models.MarketSummary{GeneratedAt: time.Now().UTC()}
	var changeTotal float64
	for rows.Next() {
		var symbol string
		var volume, change float64
		if err := rows.Scan(&symbol, &volume, &change); err != nil {
			return models.MarketSummary{}, err
		}
		sum.Symbols++
		sum.TotalVolume += volume
		changeTotal += change
		if change > 0 {
			sum.Gainers++
		} else if change < 0 {
			sum.Losers++
		}
	}
	if sum.Symbols > 0 {
		sum.AvgChange = changeTotal / float64(sum.Symbols)
	}
	return sum, rows.Err()
}
