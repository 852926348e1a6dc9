// Package backtest replays historical candles through the same decision
// path the live loop uses and reports aggregate performance.
package backtest

import (
	"math"
	"sort"
	"time"

	"PulseTrade/internal/correlation"
	"PulseTrade/internal/domain/models"
	"PulseTrade/internal/engine"
	"PulseTrade/internal/features"
	"PulseTrade/internal/market"
	"PulseTrade/internal/risk"
	"PulseTrade/internal/strategy"
)

// Config tunes a backtest run.
type Config struct {
	InitialBalance float64
	Threshold      float64
	TradeDuration  time.Duration
	Payout         float64 // payout ratio on a winning stake
	Slippage       float64 // adverse relative move applied to the entry price
	Commission     float64 // flat cost charged per trade
}

func DefaultConfig() Config {
	return Config{
		InitialBalance: 1000,
		Threshold:      strategy.DefaultThreshold,
		TradeDuration:  5 * time.Minute,
		Payout:         0.9,
		Slippage:       0.0001,
		Commission:     0,
	}
}

// pending is an open simulated position awaiting expiry.
type pending struct {
	trade    models.Trade
	expiryAt int64 // epoch seconds
}

// Backtester replays candles through aggregation, features, scoring,
// risk and correlation gating, settling each position at expiry against
// the symbol's latest close.
type Backtester struct {
	cfg      Config
	agg      *market.Aggregator
	features *features.Engine
	strategy *strategy.Strategy
	guard    *correlation.Guard
	risk     *risk.Manager
	engine   *engine.Engine

	pending []pending
	equity  []float64
	returns []float64
}

func New(cfg Config) *Backtester {
	if cfg.InitialBalance <= 0 {
		cfg.InitialBalance = 1000
	}
	if cfg.Threshold <= 0 {
		cfg.Threshold = strategy.DefaultThreshold
	}
	if cfg.TradeDuration <= 0 {
		cfg.TradeDuration = 5 * time.Minute
	}
	if cfg.Payout <= 0 {
		cfg.Payout = 0.9
	}

	agg := market.NewAggregator(market.DefaultCapacity)
	riskMgr := risk.NewManager(risk.DefaultConfig())
	eng := engine.New(engine.DefaultMaxOpenTotal, engine.DefaultMaxOpenPerSymbol, riskMgr)
	eng.SetBalance(cfg.InitialBalance)

	return &Backtester{
		cfg:      cfg,
		agg:      agg,
		features: features.NewEngine(agg),
		strategy: strategy.New(),
		guard:    correlation.NewGuard(0, 0),
		risk:     riskMgr,
		engine:   eng,
		equity:   []float64{cfg.InitialBalance},
	}
}

// Run replays events in chronological order and returns the result.
// Events may interleave symbols; they are sorted by epoch first.
func (b *Backtester) Run(events []models.CandleEvent) Result {
	sorted := make([]models.CandleEvent, len(events))
	copy(sorted, events)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Candle.Epoch < sorted[j].Candle.Epoch
	})

	for i := range sorted {
		ev := &sorted[i]
		b.settleExpired(ev.Candle.Epoch)
		b.step(ev)
	}
	// settle whatever is still open at the end of the data
	b.settleExpired(math.MaxInt64)

	return b.result()
}

func (b *Backtester) step(ev *models.CandleEvent) {
	b.agg.Push(ev.Symbol, ev.Candle)
	b.guard.UpdatePrice(ev.Symbol, ev.Candle.Close)

	feats := b.features.Compute(ev.Symbol)
	if !feats.Complete() {
		return
	}
	result := b.strategy.Score(feats)
	if result.Score < b.cfg.Threshold {
		return
	}
	if !b.risk.CanTradeNow(b.engine.Balance()) || b.risk.DayStopped() {
		return
	}
	if !b.guard.CanOpen(ev.Symbol, b.engine.OpenSymbols()) {
		return
	}
	stake := b.risk.ComputeStake(b.engine.Balance())
	if stake <= 0 {
		return
	}

	entry := slip(ev.Candle.Close, result.Direction, b.cfg.Slippage)
	trade, ok := b.engine.TryOpen(ev.Symbol, result.Direction, stake, result.Score, entry, b.cfg.TradeDuration)
	if !ok {
		return
	}
	b.pending = append(b.pending, pending{
		trade:    trade,
		expiryAt: ev.Candle.Epoch + int64(b.cfg.TradeDuration/time.Second),
	})
}

// settleExpired closes every pending position whose expiry has passed.
func (b *Backtester) settleExpired(now int64) {
	var keep []pending
	for _, p := range b.pending {
		if p.expiryAt > now {
			keep = append(keep, p)
			continue
		}
		b.settle(p)
	}
	b.pending = keep
}

func (b *Backtester) settle(p pending) {
	last, ok := b.agg.LastClose(p.trade.Symbol)
	if !ok {
		last = p.trade.EntryPrice
	}
	won := false
	switch p.trade.Direction {
	case models.DirectionUp:
		won = last > p.trade.EntryPrice
	case models.DirectionDown:
		won = last < p.trade.EntryPrice
	}
	profit := -p.trade.Stake
	if won {
		profit = p.trade.Stake * b.cfg.Payout
	}
	profit -= b.cfg.Commission

	before := b.engine.Balance()
	b.engine.Finalize(p.trade.ID, profit)
	after := b.engine.Balance()

	b.equity = append(b.equity, after)
	if before != 0 {
		b.returns = append(b.returns, (after-before)/before)
	}
}

// slip moves the entry price against the position.
func slip(price float64, dir models.Direction, slippage float64) float64 {
	if dir == models.DirectionDown {
		return price * (1 - slippage)
	}
	return price * (1 + slippage)
}

func (b *Backtester) result() Result {
	trades := b.engine.Trades()
	r := Result{
		InitialBalance: b.cfg.InitialBalance,
		FinalBalance:   b.engine.Balance(),
		Trades:         trades,
	}
	var grossWin, grossLoss float64
	for _, t := range trades {
		if t.Status != models.TradeClosed {
			continue
		}
		r.Closed++
		if t.Profit > 0 {
			r.Wins++
			grossWin += t.Profit
		} else {
			r.Losses++
			grossLoss += -t.Profit
		}
		r.NetProfit += t.Profit
	}
	if r.Closed > 0 {
		r.WinRate = float64(r.Wins) / float64(r.Closed)
	}
	if grossLoss > 0 {
		r.ProfitFactor = grossWin / grossLoss
	} else if grossWin > 0 {
		r.ProfitFactor = math.Inf(1)
	}
	r.MaxDrawdown = maxDrawdown(b.equity)
	r.Sharpe = sharpe(b.returns)
	return r
}

// Result summarizes a completed run.
type Result struct {
	InitialBalance float64
	FinalBalance   float64
	NetProfit      float64
	Closed         int
	Wins           int
	Losses         int
	WinRate        float64
	ProfitFactor   float64
	MaxDrawdown    float64
	Sharpe         float64
	Trades         []models.Trade
}

// maxDrawdown returns the largest relative peak-to-trough fall of the
// equity curve.
func maxDrawdown(equity []float64) float64 {
	var peak, maxDD float64
	for _, v := range equity {
		if v > peak {
			peak = v
		}
		if peak > 0 {
			dd := (peak - v) / peak
			if dd > maxDD {
				maxDD = dd
			}
		}
	}
	return maxDD
}

// sharpe returns the per-trade Sharpe ratio with a zero risk-free rate.
func sharpe(returns []float64) float64 {
	if len(returns) < 2 {
		return 0
	}
	var sum float64
	for _, r := range returns {
		sum += r
	}
	mean := sum / float64(len(returns))
	var varSum float64
	for _, r := range returns {
		d := r - mean
		varSum += d * d
	}
	std := math.Sqrt(varSum / float64(len(returns)-1))
	if std == 0 {
		return 0
	}
	return mean / std
}
