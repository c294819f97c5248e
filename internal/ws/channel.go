package ws

import "strings"

// Channel name grammar. Unknown names are rejected at subscribe time, never
// silently created.
const (
	ChannelSignalsAll      = "signals:all"
	ChannelSignalsHigh     = "signals:high"
	ChannelMarketSummary   = "market:summary"
	ChannelMarketVolume    = "market:volume"
	ChannelMarketSentiment = "market:sentiment"

	pricePrefix       = "price:"
	signalsTypePrefix = "signals:type:"
)

// PriceChannel returns the channel name carrying updates for a symbol.
func PriceChannel(symbol string) string {
	return pricePrefix + symbol
}

// SignalTypeChannel returns the channel name carrying one signal type.
func SignalTypeChannel(signalType string) string {
	return signalsTypePrefix + signalType
}

// ValidChannel reports whether name matches the closed channel grammar:
// price:<symbol>, signals:all, signals:high, signals:type:<type>,
// market:summary, market:volume, market:sentiment.
func ValidChannel(name string) bool {
	switch name {
	case ChannelSignalsAll, ChannelSignalsHigh,
		ChannelMarketSummary, ChannelMarketVolume, ChannelMarketSentiment:
		return true
	}
	if sym, ok := strings.CutPrefix(name, pricePrefix); ok {
		return sym != "" && !strings.Contains(sym, ":")
	}
	if typ, ok := strings.CutPrefix(name, signalsTypePrefix); ok {
		return typ != ""
	}
	return false
}

// priceSymbol extracts the symbol from a price channel name, if it is one.
func priceSymbol(channel string) (string, bool) {
	sym, ok := strings.CutPrefix(channel, pricePrefix)
	if !ok || sym == "" {
		return "", false
	}
	return sym, true
}

// registry maps channel name -> subscribed sessions and keeps the per-symbol
// last-value cache for price channels. It is not safe for concurrent use on
// its own: the owning Hub serializes access under its lock.
type registry struct {
	channels   map[string]map[string]*Session
	lastPrices map[string][]byte // symbol -> serialized most-recent price_update
	sigTypes   map[string]struct{}
}

func newRegistry() *registry {
	return &registry{
		channels:   make(map[string]map[string]*Session),
		lastPrices: make(map[string][]byte),
		sigTypes:   make(map[string]struct{}),
	}
}

func (r *registry) subscribe(channel string, s *Session) {
	if r.channels[channel] == nil {
		r.channels[channel] = make(map[string]*Session)
	}
	r.channels[channel][s.ID] = s
}

func (r *registry) unsubscribe(channel, sessionID string) {
	subs, ok := r.channels[channel]
	if !ok {
		return
	}
	delete(subs, sessionID)
	// A channel with no subscribers is forgotten entirely.
	if len(subs) == 0 {
		delete(r.channels, channel)
	}
}

// removeSession drops the session from every channel it appears in.
func (r *registry) removeSession(s *Session) {
	for channel := range s.subscriptions {
		r.unsubscribe(channel, s.ID)
	}
}

// snapshot returns a point-in-time copy of a channel's subscriber set, safe to
// iterate after the hub lock is released.
func (r *registry) snapshot(channel string) []*Session {
	subs, ok := r.channels[channel]
	if !ok {
		return nil
	}
	out := make([]*Session, 0, len(subs))
	for _, s := range subs {
		out = append(out, s)
	}
	return out
}

func (r *registry) subscriberCounts() map[string]int {
	out := make(map[string]int, len(r.channels))
	for name, subs := range r.channels {
		out[name] = len(subs)
	}
	return out
}

func (r *registry) recordLastPrice(symbol string, raw []byte) {
	r.lastPrices[symbol] = raw
}

func (r *registry) lastPrice(symbol string) ([]byte, bool) {
	raw, ok := r.lastPrices[symbol]
	return raw, ok
}

func (r *registry) recordSignalType(signalType string) {
	r.sigTypes[signalType] = struct{}{}
}
