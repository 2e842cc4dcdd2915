package backendsim

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"github.com/nfrund/tradedesk/internal/bridge"
	"github.com/nfrund/tradedesk/internal/events"
)

// DemoEvent is one envelope produced by the demo feed.
type DemoEvent struct {
	Event string
	Data  any
}

// Demo generates a plausible stream of backend events: quotes on every tick, a strategy
// log line every third tick and a watchlist update every fifth.
type Demo struct {
	symbols []string
	prices  map[string]float64
	rng     *rand.Rand
	tick    int
	now     func() time.Time
}

// NewDemo creates a demo feed. The same seed yields the same sequence of prices.
func NewDemo(seed uint64, symbols ...string) *Demo {
	if len(symbols) == 0 {
		symbols = []string{"AAPL", "MSFT", "NVDA"}
	}
	d := &Demo{
		symbols: symbols,
		prices:  make(map[string]float64, len(symbols)),
		rng:     rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		now:     time.Now,
	}
	for i, symbol := range symbols {
		d.prices[symbol] = 100 + float64(i)*50
	}
	return d
}

// Next advances the feed by one tick and returns the envelopes for it.
func (d *Demo) Next() []DemoEvent {
	d.tick++
	now := d.now().UTC()

	pushes := make([]DemoEvent, 0, len(d.symbols)+2)
	for _, symbol := range d.symbols {
		last := d.step(symbol)
		pushes = append(pushes, DemoEvent{Event: events.QuoteUpdate.Name(), Data: events.Quote{
			Symbol:    symbol,
			Bid:       round(last - 0.01),
			Ask:       round(last + 0.01),
			Last:      last,
			Volume:    int64(100 * (1 + d.rng.IntN(50))),
			Timestamp: now,
		}})
	}

	if d.tick%3 == 0 {
		pushes = append(pushes, DemoEvent{Event: events.StrategyLogs.Name(), Data: events.StrategyLog{
			StrategyID: "mean-reversion",
			Level:      events.LevelInfo,
			Message:    fmt.Sprintf("tick %d evaluated %d symbols", d.tick, len(d.symbols)),
			Timestamp:  now,
		}})
	}

	if d.tick%5 == 0 {
		pushes = append(pushes, DemoEvent{Event: bridge.TopicUpdateData, Data: bridge.UpdateData{
			Type:      events.WatchlistUpdate.Kind(),
			Operation: events.OpSet,
			Data:      events.Watchlist{Name: "main", Symbols: d.symbols},
		}})
	}
	return pushes
}

// step moves a symbol's price by up to half a percent.
func (d *Demo) step(symbol string) float64 {
	price := d.prices[symbol] * (1 + (d.rng.Float64()-0.5)/100)
	price = round(price)
	d.prices[symbol] = price
	return price
}

func round(v float64) float64 {
	return math.Round(v*100) / 100
}

// RunDemo pushes the demo feed every interval until ctx is cancelled.
func (s *Simulator) RunDemo(ctx context.Context, demo *Demo, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, p := range demo.Next() {
				if _, err := s.Push(p.Event, p.Data); err != nil {
					s.logger.Error("Demo push failed", "event", p.Event, "error", err)
				}
			}
		}
	}
}
