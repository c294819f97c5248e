package monitoring

import (
	"time"

	"github.com/rs/zerolog/log"

	"github.com/mkc909/cryptointel-data-system-sub000/internal/services"
	"github.com/mkc909/cryptointel-data-system-sub000/internal/ws"
)

// SummaryPublisher periodically publishes aggregate market views on the
// market:summary, market:volume and market:sentiment channels.
type SummaryPublisher struct {
	hub       *ws.Hub
	priceSvc  services.PriceServiceProvider
	signalSvc services.SignalServiceProvider
	ticker    *time.Ticker
	interval  time.Duration
	done      chan bool
}

// NewSummaryPublisher creates a new SummaryPublisher.
func NewSummaryPublisher(hub *ws.Hub, priceSvc services.PriceServiceProvider, signalSvc services.SignalServiceProvider, interval time.Duration) *SummaryPublisher {
	return &SummaryPublisher{
		hub:       hub,
		priceSvc:  priceSvc,
		signalSvc: signalSvc,
		interval:  interval,
		done:      make(chan bool),
	}
}

// Run starts the publishing loop. Call it in its own goroutine.
func (sp *SummaryPublisher) Run() {
	log.Info().Dur("interval", sp.interval).Msg("Starting market summary publisher...")
	sp.ticker = time.NewTicker(sp.interval)
	defer sp.ticker.Stop()

	for {
		select {
		case <-sp.done:
			log.Info().Msg("Stopping market summary publisher.")
			return
		case <-sp.ticker.C:
			sp.publish()
		}
	}
}

// Stop halts the publishing loop.
func (sp *SummaryPublisher) Stop() {
	sp.done <- true
}

func (sp *SummaryPublisher) publish() {
	sum, err := sp.priceSvc.MarketSummary()
	if err != nil {
		log.Warn().Err(err).Msg("SummaryPublisher: failed to build market summary")
		return
	}

	sp.hub.Publish(ws.ChannelMarketSummary, ws.NewMessage(ws.TypeMarketData, map[string]any{
		"symbols":   sum.Symbols,
		"avgChange": sum.AvgChange,
		"gainers":   sum.Gainers,
		"losers":    sum.Losers,
	}))
	sp.hub.Publish(ws.ChannelMarketVolume, ws.NewMessage(ws.TypeMarketData, map[string]any{
		"totalVolume": sum.TotalVolume,
		"symbols":     sum.Symbols,
	}))

	// Sentiment: the balance of bullish vs bearish signals over the last day.
	counts, err := sp.signalSvc.CountsByType(24 * time.Hour)
	if err != nil {
		log.Warn().Err(err).Msg("SummaryPublisher: failed to count signals")
		return
	}
	bullish := counts["price_spike"] + counts["volume_surge"]
	bearish := counts["price_drop"]
	sentiment := "neutral"
	if bullish > bearish {
		sentiment = "bullish"
	} else if bearish > bullish {
		sentiment = "bearish"
	}
	sp.hub.Publish(ws.ChannelMarketSentiment, ws.NewMessage(ws.TypeMarketData, map[string]any{
		"sentiment": sentiment,
		"bullish":   bullish,
		"bearish":   bearish,
	}))
}
