package usecase

import (
	"context"
	"errors"
	"math"
	"sync"
	"time"

	"PulseTrade/internal/correlation"
	"PulseTrade/internal/domain/models"
	domrepo "PulseTrade/internal/domain/repository"
	domservice "PulseTrade/internal/domain/service"
	"PulseTrade/internal/engine"
	"PulseTrade/internal/features"
	"PulseTrade/internal/market"
	"PulseTrade/internal/risk"
	"PulseTrade/internal/strategy"
	"PulseTrade/pkg/logger"
)

// Skip reasons reported via metrics when an evaluation does not open a
// trade.
const (
	SkipWarmup      = "warmup"
	SkipScore       = "score"
	SkipRiskPause   = "risk_pause"
	SkipDailyLimit  = "daily_limit"
	SkipCorrelation = "correlation"
	SkipCaps        = "caps"
	SkipStake       = "stake"
)

const defaultMailboxSize = 64

// ErrMailboxFull reports that a symbol's mailbox had no room for the
// candle. The caller decides whether to buffer and retry or drop.
var ErrMailboxFull = errors.New("evaluator: mailbox full")

// EvaluatorConfig carries the tunables of the decision loop.
type EvaluatorConfig struct {
	Threshold     float64       // minimum nudged score to act
	AdvisorWeight float64       // how far the advisor can move the score
	TradeDuration time.Duration // holding period before settlement
}

// Evaluator runs the whole decision path for one candle: aggregate,
// compute features, score, gate, size and open. Each symbol is served by
// its own mailbox goroutine so symbols never block each other while all
// events for one symbol stay strictly ordered.
type Evaluator struct {
	cfg EvaluatorConfig

	agg      *market.Aggregator
	features *features.Engine
	strategy *strategy.Strategy
	guard    *correlation.Guard
	risk     *risk.Manager
	engine   *engine.Engine
	advisor  domservice.Advisor
	settler  domservice.Settler
	journal  domrepo.Journal
	metrics  domrepo.Metrics
	log      *logger.Logger

	mu        sync.Mutex
	mailboxes map[string]chan *models.CandleEvent
	snapshots map[string]models.Snapshot
	wg        sync.WaitGroup
	closed    bool

	// openMu serializes the veto gates with the open across symbols.
	// Without it two workers could both read an open set missing the
	// other symbol and both pass the correlation veto.
	openMu sync.Mutex

	// settlement timer hook; replaced in tests and by the backtester
	after func(d time.Duration, f func()) *time.Timer
}

func NewEvaluator(
	cfg EvaluatorConfig,
	agg *market.Aggregator,
	featEngine *features.Engine,
	strat *strategy.Strategy,
	guard *correlation.Guard,
	riskMgr *risk.Manager,
	eng *engine.Engine,
	adv domservice.Advisor,
	settler domservice.Settler,
	journal domrepo.Journal,
	m domrepo.Metrics,
	log *logger.Logger,
) *Evaluator {
	if cfg.Threshold <= 0 {
		cfg.Threshold = strategy.DefaultThreshold
	}
	if cfg.TradeDuration <= 0 {
		cfg.TradeDuration = 5 * time.Minute
	}
	return &Evaluator{
		cfg:       cfg,
		agg:       agg,
		features:  featEngine,
		strategy:  strat,
		guard:     guard,
		risk:      riskMgr,
		engine:    eng,
		advisor:   adv,
		settler:   settler,
		journal:   journal,
		metrics:   m,
		log:       log,
		mailboxes: make(map[string]chan *models.CandleEvent),
		snapshots: make(map[string]models.Snapshot),
		after:     time.AfterFunc,
	}
}

// Process enqueues the candle to its symbol's mailbox, starting the
// worker on first sight of the symbol. A full mailbox returns
// ErrMailboxFull instead of blocking so the feed reader never stalls.
func (e *Evaluator) Process(ctx context.Context, ev *models.CandleEvent) error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	box, ok := e.mailboxes[ev.Symbol]
	if !ok {
		box = make(chan *models.CandleEvent, defaultMailboxSize)
		e.mailboxes[ev.Symbol] = box
		e.wg.Add(1)
		go e.worker(ctx, ev.Symbol, box)
	}
	e.mu.Unlock()

	select {
	case box <- ev:
	default:
		e.metrics.RecordError("evaluator_mailbox_full")
		return ErrMailboxFull
	}
	return nil
}

// OnBalance feeds broker balance updates into the ledger and checks the
// daily stop conditions.
func (e *Evaluator) OnBalance(balance float64) {
	e.engine.SetBalance(balance)
	e.metrics.RecordBalance(balance)
	if hit := e.risk.CheckDailyLimits(balance); hit != risk.LimitNone {
		e.log.Warn("daily limit reached, trading stopped for the day",
			logger.String("limit", hit.String()),
			logger.Float64("balance", balance))
	}
}

// Stop closes all mailboxes and waits for in-flight evaluations.
func (e *Evaluator) Stop() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.closed = true
	for _, box := range e.mailboxes {
		close(box)
	}
	e.mu.Unlock()
	e.wg.Wait()
}

func (e *Evaluator) worker(ctx context.Context, symbol string, box <-chan *models.CandleEvent) {
	defer e.wg.Done()
	for ev := range box {
		e.evaluate(ctx, symbol, ev.Candle)
	}
}

// evaluate is the single-candle decision path. It always updates market
// state first so gated evaluations still advance the series.
func (e *Evaluator) evaluate(ctx context.Context, symbol string, c models.Candle) {
	start := time.Now()
	defer func() {
		e.metrics.RecordLatency("evaluate", time.Since(start).Seconds())
	}()

	e.agg.Push(symbol, c)
	e.guard.UpdatePrice(symbol, c.Close)
	e.metrics.RecordEvaluation(symbol)

	feats := e.features.Compute(symbol)
	if !feats.Complete() {
		e.metrics.RecordSkip(symbol, SkipWarmup)
		return
	}

	result := e.strategy.Score(feats)
	prob := e.advisor.Advise(ctx, symbol, feats.Vector())
	score := nudge(result.Score, prob, e.cfg.AdvisorWeight)
	e.metrics.RecordScore(symbol, score)

	snap := models.Snapshot{
		Symbol:      symbol,
		Score:       score,
		Direction:   result.Direction,
		Signals:     result.Signals,
		AdvisorProb: prob,
		EvaluatedAt: time.Now(),
	}

	acted := e.maybeOpen(ctx, symbol, c, score, result)
	snap.Acted = acted
	e.setSnapshot(snap)
}

// maybeOpen walks the gate chain and opens the trade when every gate
// passes. Gates are ordered cheapest first.
func (e *Evaluator) maybeOpen(ctx context.Context, symbol string, c models.Candle, score float64, result models.ScoreResult) bool {
	if score < e.cfg.Threshold {
		e.metrics.RecordSkip(symbol, SkipScore)
		return false
	}

	trade, skip := e.gateAndOpen(symbol, c, score, result)
	if skip != "" {
		e.metrics.RecordSkip(symbol, skip)
		if skip == SkipCorrelation {
			e.log.Debug("correlation gate rejected open", logger.String("symbol", symbol))
		}
		return false
	}

	e.metrics.RecordTradeOpened(symbol, string(trade.Direction))
	e.log.Info("trade opened",
		logger.Int64("id", trade.ID),
		logger.String("symbol", symbol),
		logger.String("direction", string(trade.Direction)),
		logger.Float64("stake", trade.Stake),
		logger.Float64("score", score))

	if err := e.journal.RecordOpen(ctx, models.TradeOpened{
		ID:        trade.ID,
		Symbol:    trade.Symbol,
		Direction: trade.Direction,
		Stake:     trade.Stake,
		Score:     trade.Score,
		OpenedAt:  trade.OpenedAt,
	}); err != nil {
		e.metrics.RecordError("journal_open")
		e.log.Error("journal open failed", logger.Int64("id", trade.ID), logger.Error(err))
	}

	e.scheduleSettlement(trade)
	return true
}

// gateAndOpen runs the veto gates and the open as one critical section,
// so the correlation check and the resulting open are atomic across
// symbols. Returns the opened trade, or the skip reason that stopped it.
func (e *Evaluator) gateAndOpen(symbol string, c models.Candle, score float64, result models.ScoreResult) (models.Trade, string) {
	e.openMu.Lock()
	defer e.openMu.Unlock()

	if !e.risk.CanTradeNow(e.engine.Balance()) {
		return models.Trade{}, SkipRiskPause
	}
	if e.risk.DayStopped() {
		return models.Trade{}, SkipDailyLimit
	}
	if !e.guard.CanOpen(symbol, e.engine.OpenSymbols()) {
		return models.Trade{}, SkipCorrelation
	}

	stake := e.risk.ComputeStake(e.engine.Balance())
	if stake <= 0 {
		return models.Trade{}, SkipStake
	}

	trade, ok := e.engine.TryOpen(symbol, result.Direction, stake, score, c.Close, e.cfg.TradeDuration)
	if !ok {
		return models.Trade{}, SkipCaps
	}
	return trade, ""
}

func (e *Evaluator) scheduleSettlement(trade models.Trade) {
	e.after(trade.Duration, func() {
		e.settle(trade.ID)
	})
}

// settle resolves an expired trade. A missing or already-closed trade is
// a no-op: the timer may fire after shutdown already drained the ledger.
func (e *Evaluator) settle(id int64) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	trade, ok := e.engine.Lookup(id)
	if !ok || trade.Status != models.TradeOpen {
		return
	}

	profit, err := e.settler.Settle(ctx, trade)
	if err != nil {
		e.metrics.RecordError("settle")
		e.log.Error("settlement failed, retiring stake",
			logger.Int64("id", id), logger.Error(err))
		profit = -trade.Stake
	}

	closed, ok := e.engine.Finalize(id, profit)
	if !ok {
		return
	}

	result := "loss"
	if profit > 0 {
		result = "win"
	} else if profit == 0 {
		result = "flat"
	}
	e.metrics.RecordTradeClosed(result)
	e.metrics.RecordBalance(e.engine.Balance())
	e.log.Info("trade settled",
		logger.Int64("id", id),
		logger.String("symbol", closed.Symbol),
		logger.Float64("profit", profit),
		logger.Float64("balance", e.engine.Balance()))

	if err := e.journal.RecordClose(ctx, models.TradeSettled{
		ID:       closed.ID,
		Symbol:   closed.Symbol,
		Profit:   closed.Profit,
		ClosedAt: closed.OpenedAt.Add(closed.Elapsed),
	}); err != nil {
		e.metrics.RecordError("journal_close")
		e.log.Error("journal close failed", logger.Int64("id", id), logger.Error(err))
	}

	if hit := e.risk.CheckDailyLimits(e.engine.Balance()); hit != risk.LimitNone {
		e.log.Warn("daily limit reached, trading stopped for the day",
			logger.String("limit", hit.String()))
	}
}

func (e *Evaluator) setSnapshot(snap models.Snapshot) {
	e.mu.Lock()
	e.snapshots[snap.Symbol] = snap
	e.mu.Unlock()
}

// Snapshot returns the last evaluation for symbol.
func (e *Evaluator) Snapshot(symbol string) (models.Snapshot, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	snap, ok := e.snapshots[symbol]
	return snap, ok
}

// Snapshots returns the last evaluation of every symbol seen so far.
func (e *Evaluator) Snapshots() []models.Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]models.Snapshot, 0, len(e.snapshots))
	for _, snap := range e.snapshots {
		out = append(out, snap)
	}
	return out
}

// nudge moves the rule score toward the advisor's conviction: a neutral
// probability leaves the score untouched, full conviction moves it by at
// most weight. The result stays in [0, 1].
func nudge(score, prob, weight float64) float64 {
	adjusted := score + weight*(prob-0.5)
	return math.Max(0, math.Min(1, adjusted))
}
