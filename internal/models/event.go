package models

import "time"

// Event represents a loggable action or alert in the system.
type Event struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`  // e.g. "collector.fetch.fail", "signal.detected"
	Level     string    `json:"level"` // e.g. "info", "warn", "error"
	Message   string    `json:"message"`
	Symbol    *string   `json:"symbol,omitempty"` // nil for system-wide events
	CreatedAt time.Time `json:"createdAt"`
}
