// Package engine owns the trade ledger: exposure caps, trade ids, open
// and finalize, and the running session balance. Check-then-open is a
// single critical section so two symbols evaluating concurrently can
// never both pass the caps and both open.
package engine

import (
	"sort"
	"sync"
	"time"

	"PulseTrade/internal/domain/models"
	"PulseTrade/internal/risk"
)

const (
	// DefaultMaxOpenTotal caps open trades across all symbols.
	DefaultMaxOpenTotal = 8
	// DefaultMaxOpenPerSymbol caps open trades on one symbol.
	DefaultMaxOpenPerSymbol = 2
)

// Engine is the shared trade ledger.
type Engine struct {
	mu sync.Mutex

	maxOpenTotal     int
	maxOpenPerSymbol int

	risk *risk.Manager

	nextID         int64
	trades         map[int64]*models.Trade
	balance        float64
	initialBalance float64

	now func() time.Time
}

// New creates an engine with the given caps (defaults on non-positive
// values) backed by the shared risk manager.
func New(maxOpenTotal, maxOpenPerSymbol int, riskMgr *risk.Manager) *Engine {
	if maxOpenTotal <= 0 {
		maxOpenTotal = DefaultMaxOpenTotal
	}
	if maxOpenPerSymbol <= 0 {
		maxOpenPerSymbol = DefaultMaxOpenPerSymbol
	}
	return &Engine{
		maxOpenTotal:     maxOpenTotal,
		maxOpenPerSymbol: maxOpenPerSymbol,
		risk:             riskMgr,
		trades:           make(map[int64]*models.Trade),
		now:              time.Now,
	}
}

// WithClock overrides the clock; used by tests.
func (e *Engine) WithClock(now func() time.Time) *Engine {
	e.now = now
	return e
}

// SetBalance records the broker-reported balance. The first call seeds
// the session's initial balance and the risk manager's day start.
func (e *Engine) SetBalance(balance float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.initialBalance == 0 {
		e.initialBalance = balance
		e.risk.SetDayStart(balance)
	}
	e.balance = balance
}

// Balance returns the current session balance.
func (e *Engine) Balance() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.balance
}

// CanOpen reports whether the exposure caps permit a new trade on symbol.
func (e *Engine) CanOpen(symbol string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.canOpenLocked(symbol)
}

func (e *Engine) canOpenLocked(symbol string) bool {
	total, perSymbol := 0, 0
	for _, t := range e.trades {
		if t.Status != models.TradeOpen {
			continue
		}
		total++
		if t.Symbol == symbol {
			perSymbol++
		}
	}
	return total < e.maxOpenTotal && perSymbol < e.maxOpenPerSymbol
}

// TryOpen atomically re-checks the caps and opens a trade. It returns the
// new trade and true, or the zero trade and false when a cap rejects the
// open; no state is mutated on rejection.
func (e *Engine) TryOpen(symbol string, direction models.Direction, stake, score, entryPrice float64, duration time.Duration) (models.Trade, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.canOpenLocked(symbol) {
		return models.Trade{}, false
	}
	e.nextID++
	t := &models.Trade{
		ID:         e.nextID,
		Symbol:     symbol,
		Direction:  direction,
		Stake:      stake,
		Score:      score,
		EntryPrice: entryPrice,
		OpenedAt:   e.now(),
		Duration:   duration,
		Status:     models.TradeOpen,
	}
	e.trades[t.ID] = t
	return *t, true
}

// Finalize closes the trade with its realized profit, updates the running
// balance, and forwards the result to the risk manager. An unknown or
// already-closed id is a benign no-op: close timers may race shutdown.
func (e *Engine) Finalize(id int64, profit float64) (models.Trade, bool) {
	e.mu.Lock()
	t, ok := e.trades[id]
	if !ok || t.Status != models.TradeOpen {
		e.mu.Unlock()
		return models.Trade{}, false
	}
	t.Status = models.TradeClosed
	t.Profit = profit
	t.Elapsed = e.now().Sub(t.OpenedAt)
	e.balance += profit
	out := *t
	e.mu.Unlock()

	e.risk.OnTradeResult(profit)
	return out, true
}

// Lookup returns a copy of the trade with the given id.
func (e *Engine) Lookup(id int64) (models.Trade, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	t, ok := e.trades[id]
	if !ok {
		return models.Trade{}, false
	}
	return *t, true
}

// OpenSymbols lists symbols that currently hold at least one open trade.
func (e *Engine) OpenSymbols() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	seen := make(map[string]struct{})
	var out []string
	for _, t := range e.trades {
		if t.Status != models.TradeOpen {
			continue
		}
		if _, ok := seen[t.Symbol]; !ok {
			seen[t.Symbol] = struct{}{}
			out = append(out, t.Symbol)
		}
	}
	sort.Strings(out)
	return out
}

// Trades returns a session snapshot ordered by id.
func (e *Engine) Trades() []models.Trade {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]models.Trade, 0, len(e.trades))
	for _, t := range e.trades {
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
