// Package collector polls external market-data feeds and turns responses
// into stored rows and published events. Collectors are producers only: they
// interact with the broadcast layer exclusively through Hub.Publish.
package collector

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"github.com/mkc909/cryptointel-data-system-sub000/internal/services"
	"github.com/mkc909/cryptointel-data-system-sub000/internal/ws"
)

// Publisher is the producer-facing slice of the hub the collector needs.
type Publisher interface {
	Publish(channel string, msg ws.Message)
}

// tickerResponse mirrors the exchange's 24hr ticker payload. Numeric fields
// arrive as strings.
type tickerResponse struct {
	Symbol             string `json:"symbol"`
	LastPrice          string `json:"lastPrice"`
	Volume             string `json:"volume"`
	PriceChangePercent string `json:"priceChangePercent"`
}

// PriceCollector fetches ticker data for a set of symbols on a cron
// schedule, persists each observation, and publishes price_update events.
type PriceCollector struct {
	baseURL  string
	symbols  []string
	priceSvc services.PriceServiceProvider
	eventSvc services.EventServiceProvider
	pub      Publisher
	client   *http.Client
	cron     *cron.Cron
}

// NewPriceCollector creates a collector for the given symbols. baseURL points
// at the exchange REST API and is overridable for tests.
func NewPriceCollector(baseURL string, symbols []string, priceSvc services.PriceServiceProvider, eventSvc services.EventServiceProvider, pub Publisher) *PriceCollector {
	return &PriceCollector{
		baseURL:  baseURL,
		symbols:  symbols,
		priceSvc: priceSvc,
		eventSvc: eventSvc,
		pub:      pub,
		client:   &http.Client{Timeout: 10 * time.Second},
	}
}

// Start schedules collection with the given cron expression and runs one
// collection immediately.
func (c *PriceCollector) Start(cronExpr string) error {
	c.cron = cron.New()
	if _, err := c.cron.AddFunc(cronExpr, c.CollectAll); err != nil {
		return fmt.Errorf("invalid collector cron expression %q: %w", cronExpr, err)
	}
	c.cron.Start()
	go c.CollectAll()
	log.Info().Str("cron", cronExpr).Strs("symbols", c.symbols).Msg("Starting price collector...")
	return nil
}

// Stop halts the collection schedule.
func (c *PriceCollector) Stop() {
	if c.cron != nil {
		c.cron.Stop()
		log.Info().Msg("Stopping price collector.")
	}
}

// CollectAll fetches every configured symbol. Symbols are fetched
// sequentially to stay friendly to upstream rate limits.
func (c *PriceCollector) CollectAll() {
	for _, symbol := range c.symbols {
		if err := c.collect(symbol); err != nil {
			log.Warn().Err(err).Str("symbol", symbol).Msg("Collector: fetch failed")
			sym := symbol
			c.eventSvc.CreateEvent("collector.fetch.fail", "warn", err.Error(), &sym)
		}
	}
}

func (c *PriceCollector) collect(symbol string) error {
	url := fmt.Sprintf("%s/api/v3/ticker/24hr?symbol=%sUSDT", c.baseURL, symbol)
	resp, err := c.client.Get(url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("ticker request for %s returned status %d", symbol, resp.StatusCode)
	}

	var ticker tickerResponse
	if err := json.NewDecoder(resp.Body).Decode(&ticker); err != nil {
		return fmt.Errorf("decoding ticker for %s: %w", symbol, err)
	}

	price, err := strconv.ParseFloat(ticker.LastPrice, 64)
	if err != nil {
		return fmt.Errorf("parsing price %q for %s: %w", ticker.LastPrice, symbol, err)
	}
	volume, _ := strconv.ParseFloat(ticker.Volume, 64)
	change, _ := strconv.ParseFloat(ticker.PriceChangePercent, 64)

	p, err := c.priceSvc.RecordPrice(symbol, price, volume, change, "binance")
	if err != nil {
		return fmt.Errorf("storing price for %s: %w", symbol, err)
	}

	c.pub.Publish(ws.PriceChannel(symbol), ws.NewMessage(ws.TypePriceUpdate, map[string]any{
		"symbol":    p.Symbol,
		"price":     p.Price,
		"volume":    p.Volume,
		"change24h": p.Change24h,
		"source":    p.Source,
	}))
	return nil
}
