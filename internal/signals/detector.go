// Package signals derives threshold-based trading signals from collected
// price data and hands them to the broadcast layer.
package signals

import (
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/mkc909/cryptointel-data-system-sub000/internal/models"
	"github.com/mkc909/cryptointel-data-system-sub000/internal/services"
)

const (
	// deviationThreshold is the fractional move from the trailing average
	// price that starts producing a signal.
	deviationThreshold = 0.02

	// maxDeviation is the move at which confidence saturates at 1.0.
	maxDeviation = 0.10

	// trailingWindow is the averaging window signals are measured against.
	trailingWindow = time.Hour
)

// SignalPublisher is the fan-out entry point the detector publishes through.
type SignalPublisher interface {
	PublishSignal(sig models.Signal)
}

// Detector periodically compares the latest price of each symbol against its
// trailing average and emits price_spike / price_drop signals.
type Detector struct {
	symbols   []string
	priceSvc  services.PriceServiceProvider
	signalSvc services.SignalServiceProvider
	pub       SignalPublisher
	ticker    *time.Ticker
	interval  time.Duration
	done      chan bool
}

// NewDetector creates a signal detector.
func NewDetector(symbols []string, priceSvc services.PriceServiceProvider, signalSvc services.SignalServiceProvider, pub SignalPublisher, interval time.Duration) *Detector {
	return &Detector{
		symbols:   symbols,
		priceSvc:  priceSvc,
		signalSvc: signalSvc,
		pub:       pub,
		interval:  interval,
		done:      make(chan bool),
	}
}

// Run starts the detection loop. Call it in its own goroutine.
func (d *Detector) Run() {
	log.Info().Dur("interval", d.interval).Msg("Starting signal detector...")
	d.ticker = time.NewTicker(d.interval)
	defer d.ticker.Stop()

	for {
		select {
		case <-d.done:
			log.Info().Msg("Stopping signal detector.")
			return
		case <-d.ticker.C:
			d.DetectAll()
		}
	}
}

// Stop halts the detection loop.
func (d *Detector) Stop() {
	d.done <- true
}

// DetectAll runs one detection pass over every configured symbol.
func (d *Detector) DetectAll() {
	for _, symbol := range d.symbols {
		if err := d.detect(symbol); err != nil {
			log.Debug().Err(err).Str("symbol", symbol).Msg("Detector: skipping symbol")
		}
	}
}

func (d *Detector) detect(symbol string) error {
	latest, err := d.priceSvc.LatestPrice(symbol)
	if err != nil {
		return err
	}
	avg, err := d.priceSvc.AveragePrice(symbol, trailingWindow)
	if err != nil {
		return err
	}
	if avg == 0 {
		return fmt.Errorf("zero trailing average for %s", symbol)
	}

	deviation := (latest.Price - avg) / avg
	if math.Abs(deviation) < deviationThreshold {
		return nil
	}

	signalType := "price_spike"
	if deviation < 0 {
		signalType = "price_drop"
	}
	confidence := Confidence(deviation)
	message := fmt.Sprintf("%s moved %.2f%% against its %s average (%.2f vs %.2f)",
		symbol, deviation*100, trailingWindow, latest.Price, avg)

	sig, err := d.signalSvc.RecordSignal(symbol, signalType, confidence, message)
	if err != nil {
		return fmt.Errorf("storing signal for %s: %w", symbol, err)
	}

	log.Info().Str("symbol", symbol).Str("type", signalType).Float64("confidence", confidence).Msg("Signal detected")
	d.pub.PublishSignal(sig)
	return nil
}

// Confidence maps a fractional deviation to a confidence score in
// [deviationThreshold/maxDeviation, 1.0], saturating at maxDeviation.
func Confidence(deviation float64) float64 {
	c := math.Abs(deviation) / maxDeviation
	if c > 1 {
		c = 1
	}
	return c
}
