// Package monitoring runs the background publishers: host status snapshots
// and periodic market aggregates.
package monitoring

import (
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/mkc909/cryptointel-data-system-sub000/internal/ws"
)

// StatusReporter periodically samples host metrics and publishes a
// system_status event on the market:summary channel.
type StatusReporter struct {
	hub      *ws.Hub
	ticker   *time.Ticker
	interval time.Duration
	done     chan bool
}

// NewStatusReporter creates a new StatusReporter.
func NewStatusReporter(hub *ws.Hub, interval time.Duration) *StatusReporter {
	return &StatusReporter{
		hub:      hub,
		interval: interval,
		done:     make(chan bool),
	}
}

// Run starts the reporting loop. Call it in its own goroutine.
func (sr *StatusReporter) Run() {
	log.Info().Dur("interval", sr.interval).Msg("Starting status reporter...")
	sr.ticker = time.NewTicker(sr.interval)
	defer sr.ticker.Stop()

	sr.report()

	for {
		select {
		case <-sr.done:
			log.Info().Msg("Stopping status reporter.")
			return
		case <-sr.ticker.C:
			sr.report()
		}
	}
}

// Stop halts the reporting loop.
func (sr *StatusReporter) Stop() {
	sr.done <- true
}

func (sr *StatusReporter) report() {
	data := map[string]any{"status": "ok"}

	if percents, err := cpu.Percent(0, false); err == nil && len(percents) > 0 {
		data["cpuPercent"] = percents[0]
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		data["memPercent"] = vm.UsedPercent
	}
	if uptime, err := host.Uptime(); err == nil {
		data["hostUptimeSec"] = uptime
	}

	stats := sr.hub.Stats()
	data["sessions"] = stats.Sessions
	data["trackedSymbols"] = stats.TrackedSymbols

	sr.hub.Publish(ws.ChannelMarketSummary, ws.NewMessage(ws.TypeSystemStatus, data))
}
