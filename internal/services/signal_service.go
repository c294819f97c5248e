package services

import (
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/mkc909/cryptointel-data-system-sub000/internal/models"
)

// SignalServiceProvider defines the interface for signal services.
type SignalServiceProvider interface {
	RecordSignal(symbol, signalType string, confidence float64, message string) (models.Signal, error)
	RecentSignals(limit int) ([]models.Signal, error)
	CountsByType(window time.Duration) (map[string]int, error)
}

// SignalService provides business logic for derived trading signals.
type SignalService struct {
	db *sql.DB
}

// NewSignalService creates a new SignalService.
func NewSignalService(db *sql.DB) *SignalService {
	return &SignalService{db: db}
}

// RecordSignal inserts one detected signal.
func (s *SignalService) RecordSignal(symbol, signalType string, confidence float64, message string) (models.Signal, error) {
	sig := models.Signal{
		ID:         uuid.New().String(),
		Symbol:     symbol,
		Type:       signalType,
		Confidence: confidence,
		Message:    message,
		CreatedAt:  time.Now().UTC(),
	}

	stmt, err := s.db.Prepare("INSERT INTO signals (id, symbol, type, confidence, message, created_at) VALUES (?, ?, ?, ?, ?, ?)")
	if err != nil {
		return models.Signal{}, err
	}
	defer stmt.Close()

	_, err = stmt.Exec(sig.ID, sig.Symbol, sig.Type, sig.Confidence, sig.Message, sig.CreatedAt)
	return sig, err
}

// RecentSignals retrieves the most recent signals, newest first.
func (s *SignalService) RecentSignals(limit int) ([]models.Signal, error) {
	rows, err := s.db.Query(
		"SELECT id, symbol, type, confidence, message, created_at FROM signals ORDER BY created_at DESC LIMIT ?",
		limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var signals []models.Signal
	for rows.Next() {
		var sig models.Signal
		if err := rows.Scan(&sig.ID, &sig.Symbol, &sig.Type, &sig.Confidence, &sig.Message, &sig.CreatedAt); err != nil {
			return nil, err
		}
		signals = append(signals, sig)
	}
	return signals, rows.Err()
}

// CountsByType returns signal counts per type over a trailing window.
func (s *SignalService) CountsByType(window time.Duration) (map[string]int, error) {
	since := time.Now().UTC().Add(-window)
	rows, err := s.db.Query("SELECT type, COUNT(*) FROM signals WHERE created_at >= ? GROUP BY type", since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var typ string
		var n int
		if err := rows.Scan(&typ, &n); err != nil {
			return nil, err
		}
		counts[typ] = n
	}
	return counts, rows.Err()
}
