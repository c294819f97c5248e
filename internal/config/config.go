package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds the application configuration.
type Config struct {
	ServerPort   int
	DatabasePath string
	LogLevel     string
	CORSOrigin   string

	// WebSocket hub tuning.
	PingInterval  time.Duration // how often the liveness supervisor pings sessions
	IdleTimeout   time.Duration // inbound silence after which a session is evicted
	SendBufferLen int           // per-session outbound queue depth

	// Market data collection.
	Symbols          []string
	TickerBaseURL    string
	CollectorCron    string
	DetectorInterval time.Duration
	SummaryInterval  time.Duration
	StatusInterval   time.Duration
}

// Load loads configuration from environment variables or sets defaults.
func Load() (*Config, error) {
	portStr := getEnv("PORT", "8080")
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, err
	}

	pingInterval, err := time.ParseDuration(getEnv("WS_PING_INTERVAL", "30s"))
	if err != nil {
		return nil, err
	}
	idleTimeout, err := time.ParseDuration(getEnv("WS_IDLE_TIMEOUT", "5m"))
	if err != nil {
		return nil, err
	}
	detectorInterval, err := time.ParseDuration(getEnv("DETECTOR_INTERVAL", "1m"))
	if err != nil {
		return nil, err
	}
	summaryInterval, err := time.ParseDuration(getEnv("SUMMARY_INTERVAL", "1m"))
	if err != nil {
		return nil, err
	}
	statusInterval, err := time.ParseDuration(getEnv("STATUS_INTERVAL", "30s"))
	if err != nil {
		return nil, err
	}
	sendBufferLen, err := strconv.Atoi(getEnv("WS_SEND_BUFFER", "64"))
	if err != nil {
		return nil, err
	}

	return &Config{
		ServerPort:       port,
		DatabasePath:     getEnv("DATABASE_PATH", "./cryptointel.db"),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		CORSOrigin:       getEnv("CORS_ORIGIN", "http://localhost:3000"),
		PingInterval:     pingInterval,
		IdleTimeout:      idleTimeout,
		SendBufferLen:    sendBufferLen,
		Symbols:          splitList(getEnv("SYMBOLS", "BTC,ETH,SOL")),
		TickerBaseURL:    getEnv("TICKER_BASE_URL", "https://api.binance.com"),
		CollectorCron:    getEnv("COLLECTOR_CRON", "* * * * *"),
		DetectorInterval: detectorInterval,
		SummaryInterval:  summaryInterval,
		StatusInterval:   statusInterval,
	}, nil
}

// Helper to get an environment variable with a default value.
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
