package models

import "time"

// Signal severity is derived from confidence; HighConfidence is the threshold
// above which a signal is also fanned out on the signals:high channel.
const HighConfidence = 0.8

// Signal is a threshold-based trading signal derived from collected data.
type Signal struct {
	ID         string    `json:"id"`
	Symbol     string    `json:"symbol"`
	Type       string    `json:"type"` // e.g. "price_spike", "price_drop", "volume_surge"
	Confidence float64   `json:"confidence"`
	Message    string    `json:"message"`
	CreatedAt  time.Time `json:"createdAt"`
}

// High reports whether the signal clears the high-severity threshold.
func (s Signal) High() bool {
	return s.Confidence >= HighConfidence
}
