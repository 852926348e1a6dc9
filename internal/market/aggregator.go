// Package market owns the per-symbol candle series. The 1-minute series
// is authoritative; the 5m and 15m series are rebuilt from it on every
// push so the three views can never drift apart.
package market

import (
	"sync"

	"PulseTrade/internal/domain/models"
	domrepo "PulseTrade/internal/domain/repository"
)

// DefaultCapacity bounds each per-symbol, per-timeframe series.
const DefaultCapacity = 1000

type series struct {
	m1  []models.Candle
	m5  []models.Candle
	m15 []models.Candle
}

// Aggregator maintains bounded OHLC history per symbol and derives the
// higher timeframes by bucket aggregation. Input candles are not
// validated; ordering and dedup are the feed pipeline's responsibility.
type Aggregator struct {
	mu       sync.RWMutex
	capacity int
	symbols  map[string]*series
}

// NewAggregator creates an aggregator with the given per-series capacity
// (DefaultCapacity when n <= 0).
func NewAggregator(capacity int) *Aggregator {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Aggregator{capacity: capacity, symbols: make(map[string]*series)}
}

// Push appends a completed 1-minute candle to the symbol's series,
// evicting the oldest candle beyond capacity, then rebuilds the 5m and
// 15m series from the full 1-minute buffer. O(len(m1)) per call.
func (a *Aggregator) Push(symbol string, c models.Candle) {
	a.mu.Lock()
	defer a.mu.Unlock()

	s, ok := a.symbols[symbol]
	if !ok {
		s = &series{}
		a.symbols[symbol] = s
	}
	s.m1 = append(s.m1, c)
	if len(s.m1) > a.capacity {
		s.m1 = s.m1[len(s.m1)-a.capacity:]
	}
	s.m5 = aggregate(s.m1, 5, a.capacity)
	s.m15 = aggregate(s.m1, 15, a.capacity)
}

// Series returns a copy of the symbol's candles for tf, oldest first.
func (a *Aggregator) Series(symbol string, tf domrepo.Timeframe) []models.Candle {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return append([]models.Candle(nil), a.view(symbol, tf)...)
}

// Len returns the number of candles held for (symbol, tf).
func (a *Aggregator) Len(symbol string, tf domrepo.Timeframe) int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.view(symbol, tf))
}

// LastClose returns the most recent 1-minute close for symbol, or false
// if the symbol has no history.
func (a *Aggregator) LastClose(symbol string) (float64, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	s, ok := a.symbols[symbol]
	if !ok || len(s.m1) == 0 {
		return 0, false
	}
	return s.m1[len(s.m1)-1].Close, true
}

// view must be called with the lock held.
func (a *Aggregator) view(symbol string, tf domrepo.Timeframe) []models.Candle {
	s, ok := a.symbols[symbol]
	if !ok {
		return nil
	}
	switch tf {
	case domrepo.TF5m:
		return s.m5
	case domrepo.TF15m:
		return s.m15
	default:
		return s.m1
	}
}

// aggregate buckets src into minutes-wide candles. A candle's bucket index
// is (epoch/60) - (epoch/60 mod minutes); candles sharing a bucket merge
// as open=first, close=last, high=max, low=min, epoch=last.
func aggregate(src []models.Candle, minutes int64, capacity int) []models.Candle {
	if len(src) == 0 {
		return nil
	}
	out := make([]models.Candle, 0, int64(len(src))/minutes+1)
	var cur models.Candle
	curBucket := int64(-1)
	for _, c := range src {
		minute := c.Epoch / 60
		bucket := minute - minute%minutes
		if bucket != curBucket {
			if curBucket >= 0 {
				out = append(out, cur)
			}
			curBucket = bucket
			cur = c
			continue
		}
		if c.High > cur.High {
			cur.High = c.High
		}
		if c.Low < cur.Low {
			cur.Low = c.Low
		}
		cur.Close = c.Close
		cur.Epoch = c.Epoch
	}
	out = append(out, cur)
	if len(out) > capacity {
		out = out[len(out)-capacity:]
	}
	return out
}
