package collector

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/mkc909/cryptointel-data-system-sub000/internal/models"
	"github.com/mkc909/cryptointel-data-system-sub000/internal/ws"
)

type fakePriceSvc struct {
	recorded []models.Price
}

func (f *fakePriceSvc) RecordPrice(symbol string, price, volume, change24h float64, source string) (models.Price, error) {
	p := models.Price{ID: "p1", Symbol: symbol, Price: price, Volume: volume, Change24h: change24h, Source: source}
	f.recorded = append(f.recorded, p)
	return p, nil
}
func (f *fakePriceSvc) LatestPrice(string) (models.Price, error) {
	return models.Price{}, fmt.Errorf("not implemented")
}
func (f *fakePriceSvc) PriceHistory(string, int) ([]models.Price, error) { return nil, nil }
func (f *fakePriceSvc) AveragePrice(string, time.Duration) (float64, error) {
	return 0, fmt.Errorf("not implemented")
}
func (f *fakePriceSvc) MarketSummary() (models.MarketSummary, error) {
	return models.MarketSummary{}, nil
}

type fakeEventSvc struct {
	created []string
}

func (f *fakeEventSvc) CreateEvent(eventType, level, message string, symbol *string) error {
	f.created = append(f.created, eventType)
	return nil
}
func (f *fakeEventSvc) GetRecentEvents(int) ([]models.Event, error) { return nil, nil }

type capturePublisher struct {
	published []ws.Message
}

func (c *capturePublisher) Publish(channel string, msg ws.Message) {
	msg.Channel = channel
	c.published = append(c.published, msg)
}

func TestPriceCollector_CollectPublishesAndStores(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("symbol"); got != "BTCUSDT" {
			t.Errorf("symbol query: got %q, want BTCUSDT", got)
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"symbol":"BTCUSDT","lastPrice":"50000.25","volume":"1234.5","priceChangePercent":"2.75"}`)
	}))
	t.Cleanup(srv.Close)

	priceSvc := &fakePriceSvc{}
	eventSvc := &fakeEventSvc{}
	pub := &capturePublisher{}
	c := NewPriceCollector(srv.URL, []string{"BTC"}, priceSvc, eventSvc, pub)

	c.CollectAll()

	if len(priceSvc.recorded) != 1 {
		t.Fatalf("recorded prices: got %d, want 1", len(priceSvc.recorded))
	}
	p := priceSvc.recorded[0]
	if p.Symbol != "BTC" || p.Price != 50000.25 || p.Volume != 1234.5 || p.Change24h != 2.75 {
		t.Errorf("recorded price: got %+v", p)
	}

	if len(pub.published) != 1 {
		t.Fatalf("published events: got %d, want 1", len(pub.published))
	}
	msg := pub.published[0]
	if msg.Channel != "price:BTC" {
		t.Errorf("channel: got %q, want price:BTC", msg.Channel)
	}
	if msg.Type != ws.TypePriceUpdate {
		t.Errorf("type: got %q, want %q", msg.Type, ws.TypePriceUpdate)
	}
	if msg.Data["price"] != 50000.25 {
		t.Errorf("price: got %v, want 50000.25", msg.Data["price"])
	}
	if len(eventSvc.created) != 0 {
		t.Errorf("failure events: got %v, want none", eventSvc.created)
	}
}

func TestPriceCollector_UpstreamFailureRecordsEvent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	t.Cleanup(srv.Close)

	priceSvc := &fakePriceSvc{}
	eventSvc := &fakeEventSvc{}
	pub := &capturePublisher{}
	c := NewPriceCollector(srv.URL, []string{"BTC"}, priceSvc, eventSvc, pub)

	c.CollectAll()

	if len(priceSvc.recorded) != 0 {
		t.Errorf("recorded prices: got %d, want 0", len(priceSvc.recorded))
	}
	if len(pub.published) != 0 {
		t.Errorf("published events: got %d, want 0", len(pub.published))
	}
	if len(eventSvc.created) != 1 || eventSvc.created[0] != "collector.fetch.fail" {
		t.Errorf("failure events: got %v, want [collector.fetch.fail]", eventSvc.created)
	}
}

func TestPriceCollector_MalformedPriceRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"symbol":"BTCUSDT","lastPrice":"not-a-number"}`)
	}))
	t.Cleanup(srv.Close)

	priceSvc := &fakePriceSvc{}
	eventSvc := &fakeEventSvc{}
	c := NewPriceCollector(srv.URL, []string{"BTC"}, priceSvc, eventSvc, &capturePublisher{})

	c.CollectAll()

	if len(priceSvc.recorded) != 0 {
		t.Errorf("recorded prices: got %d, want 0", len(priceSvc.recorded))
	}
	if len(eventSvc.created) != 1 {
		t.Errorf("failure events: got %d, want 1", len(eventSvc.created))
	}
}

func TestPriceCollector_InvalidCronRejected(t *testing.T) {
	c := NewPriceCollector("http://localhost", nil, &fakePriceSvc{}, &fakeEventSvc{}, &capturePublisher{})
	if err := c.Start("not a cron expr"); err == nil {
		t.Error("Start with an invalid cron expression should fail")
	}
}
