package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"PulseTrade/internal/correlation"
	"PulseTrade/internal/domain/models"
	"PulseTrade/internal/engine"
	"PulseTrade/internal/features"
	"PulseTrade/internal/market"
	"PulseTrade/internal/repository"
	"PulseTrade/internal/risk"
	"PulseTrade/internal/strategy"
	"PulseTrade/pkg/logger"
	"PulseTrade/pkg/metrics"
)

type stubSettler struct {
	profit float64
	err    error
}

func (s stubSettler) Settle(context.Context, models.Trade) (float64, error) {
	return s.profit, s.err
}

type stubAdvisor struct{ prob float64 }

func (s stubAdvisor) Advise(context.Context, string, map[string]float64) float64 {
	return s.prob
}

type evalHarness struct {
	eval   *Evaluator
	agg    *market.Aggregator
	guard  *correlation.Guard
	risk   *risk.Manager
	engine *engine.Engine
	timers []func()
}

func newHarness(t *testing.T, cfg EvaluatorConfig, settler stubSettler) *evalHarness {
	t.Helper()
	agg := market.NewAggregator(0)
	guard := correlation.NewGuard(0, 0)
	riskMgr := risk.NewManager(risk.DefaultConfig())
	eng := engine.New(0, 0, riskMgr)

	h := &evalHarness{agg: agg, guard: guard, risk: riskMgr, engine: eng}
	h.eval = NewEvaluator(cfg, agg, features.NewEngine(agg), strategy.New(), guard,
		riskMgr, eng, stubAdvisor{prob: 0.5}, settler, repository.NopJournal{},
		metrics.Nop{}, logger.Nop())
	h.eval.after = func(_ time.Duration, f func()) *time.Timer {
		h.timers = append(h.timers, f)
		return nil
	}
	return h
}

func candleAt(epoch int64, close float64) models.Candle {
	return models.Candle{Open: close, High: close + 0.5, Low: close - 0.5, Close: close, Epoch: epoch}
}

func TestNudge(t *testing.T) {
	assert.Equal(t, 0.8, nudge(0.8, 0.5, 0.1), "neutral probability leaves the score")
	assert.InDelta(t, 0.85, nudge(0.8, 1.0, 0.1), 1e-9)
	assert.InDelta(t, 0.75, nudge(0.8, 0.0, 0.1), 1e-9)
	assert.Equal(t, 1.0, nudge(0.99, 1.0, 0.5), "clamped above")
	assert.Equal(t, 0.0, nudge(0.01, 0.0, 0.5), "clamped below")
}

func TestProcess_WarmupAdvancesSeriesWithoutSnapshot(t *testing.T) {
	h := newHarness(t, EvaluatorConfig{}, stubSettler{})
	require.NoError(t, h.eval.Process(context.Background(), &models.CandleEvent{
		Symbol: "R_10", Candle: candleAt(60, 100),
	}))
	h.eval.Stop()

	assert.Equal(t, 1, h.agg.Len("R_10", "1m"))
	_, ok := h.eval.Snapshot("R_10")
	assert.False(t, ok, "no snapshot until features are complete")
}

func TestProcess_PublishesSnapshotOnceWarm(t *testing.T) {
	h := newHarness(t, EvaluatorConfig{Threshold: 0.99}, stubSettler{})
	// pre-warm all three timeframes, then run one candle through the loop
	for i := int64(1); i <= 15*features.MinHistory; i++ {
		h.agg.Push("R_10", candleAt(i*60, 100))
	}
	last := int64(15*features.MinHistory+1) * 60
	require.NoError(t, h.eval.Process(context.Background(), &models.CandleEvent{
		Symbol: "R_10", Candle: candleAt(last, 100),
	}))
	h.eval.Stop()

	snap, ok := h.eval.Snapshot("R_10")
	require.True(t, ok)
	assert.Equal(t, "R_10", snap.Symbol)
	assert.False(t, snap.Acted, "threshold 0.99 keeps the evaluation flat")
	assert.NotEmpty(t, snap.Signals)
	assert.Len(t, h.eval.Snapshots(), 1)
}

// blockingAdvisor parks the first Advise call until released, keeping the
// symbol's worker busy so the mailbox can fill up behind it.
type blockingAdvisor struct {
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func (b *blockingAdvisor) Advise(context.Context, string, map[string]float64) float64 {
	b.once.Do(func() {
		close(b.entered)
		<-b.release
	})
	return 0.5
}

func TestProcess_FullMailboxReturnsError(t *testing.T) {
	adv := &blockingAdvisor{entered: make(chan struct{}), release: make(chan struct{})}
	agg := market.NewAggregator(0)
	guard := correlation.NewGuard(0, 0)
	riskMgr := risk.NewManager(risk.DefaultConfig())
	eng := engine.New(0, 0, riskMgr)
	eval := NewEvaluator(EvaluatorConfig{Threshold: 0.99}, agg, features.NewEngine(agg),
		strategy.New(), guard, riskMgr, eng, adv, stubSettler{}, repository.NopJournal{},
		metrics.Nop{}, logger.Nop())

	for i := int64(1); i <= 15*features.MinHistory; i++ {
		agg.Push("R_10", candleAt(i*60, 100))
	}
	ctx := context.Background()
	base := int64(15*features.MinHistory) * 60

	// the first event parks the worker mid-evaluation
	require.NoError(t, eval.Process(ctx, &models.CandleEvent{
		Symbol: "R_10", Candle: candleAt(base+60, 100),
	}))
	<-adv.entered

	for i := int64(0); i < defaultMailboxSize; i++ {
		require.NoError(t, eval.Process(ctx, &models.CandleEvent{
			Symbol: "R_10", Candle: candleAt(base+120+i*60, 100),
		}))
	}
	err := eval.Process(ctx, &models.CandleEvent{
		Symbol: "R_10", Candle: candleAt(base+120+int64(defaultMailboxSize)*60, 100),
	})
	assert.ErrorIs(t, err, ErrMailboxFull)

	close(adv.release)
	eval.Stop()
}

func TestProcess_AfterStopIsNoop(t *testing.T) {
	h := newHarness(t, EvaluatorConfig{}, stubSettler{})
	h.eval.Stop()
	require.NoError(t, h.eval.Process(context.Background(), &models.CandleEvent{
		Symbol: "R_10", Candle: candleAt(60, 100),
	}))
	assert.Zero(t, h.agg.Len("R_10", "1m"))
}

func TestOnBalance_SeedsEngineAndDayStart(t *testing.T) {
	h := newHarness(t, EvaluatorConfig{}, stubSettler{})
	h.eval.OnBalance(1000)
	assert.Equal(t, 1000.0, h.engine.Balance())
	assert.Equal(t, 1000.0, h.risk.State().DayStartBalance)
}

func upScore(score float64) models.ScoreResult {
	return models.ScoreResult{Score: score, Direction: models.DirectionUp, Signals: []string{"MACD+"}}
}

func TestMaybeOpen_OpensAndSchedulesSettlement(t *testing.T) {
	h := newHarness(t, EvaluatorConfig{Threshold: 0.78}, stubSettler{profit: 9})
	h.eval.OnBalance(10000)

	acted := h.eval.maybeOpen(context.Background(), "R_10", candleAt(60, 100), 0.85, upScore(0.85))
	require.True(t, acted)

	trades := h.engine.Trades()
	require.Len(t, trades, 1)
	assert.Equal(t, models.TradeOpen, trades[0].Status)
	assert.Equal(t, 30.0, trades[0].Stake)
	assert.Equal(t, 100.0, trades[0].EntryPrice)
	require.Len(t, h.timers, 1)

	// the settlement timer fires
	h.timers[0]()
	closed, ok := h.engine.Lookup(trades[0].ID)
	require.True(t, ok)
	assert.Equal(t, models.TradeClosed, closed.Status)
	assert.Equal(t, 9.0, closed.Profit)
	assert.Equal(t, 10009.0, h.engine.Balance())
}

func TestMaybeOpen_ScoreBelowThreshold(t *testing.T) {
	h := newHarness(t, EvaluatorConfig{Threshold: 0.78}, stubSettler{})
	h.eval.OnBalance(10000)

	acted := h.eval.maybeOpen(context.Background(), "R_10", candleAt(60, 100), 0.5, upScore(0.5))
	assert.False(t, acted)
	assert.Empty(t, h.engine.Trades())
}

func TestMaybeOpen_DayStoppedGate(t *testing.T) {
	h := newHarness(t, EvaluatorConfig{Threshold: 0.78}, stubSettler{})
	h.eval.OnBalance(1000)
	h.risk.CheckDailyLimits(1101) // crosses the daily take-profit

	acted := h.eval.maybeOpen(context.Background(), "R_10", candleAt(60, 100), 0.9, upScore(0.9))
	assert.False(t, acted)
	assert.Empty(t, h.engine.Trades())
}

func TestMaybeOpen_CorrelationGate(t *testing.T) {
	h := newHarness(t, EvaluatorConfig{Threshold: 0.78}, stubSettler{})
	h.eval.OnBalance(10000)
	for i := 0; i < 20; i++ {
		h.guard.UpdatePrice("R_10", 100+float64(i))
		h.guard.UpdatePrice("R_25", 200+2*float64(i))
	}
	require.True(t, h.eval.maybeOpen(context.Background(), "R_10", candleAt(60, 100), 0.9, upScore(0.9)))

	acted := h.eval.maybeOpen(context.Background(), "R_25", candleAt(60, 200), 0.9, upScore(0.9))
	assert.False(t, acted)
	assert.Equal(t, []string{"R_10"}, h.engine.OpenSymbols())
}

func TestMaybeOpen_ConcurrentCorrelatedOpensAdmitOne(t *testing.T) {
	h := newHarness(t, EvaluatorConfig{Threshold: 0.78}, stubSettler{})
	h.eval.OnBalance(10000)
	// perfectly correlated pair: both series are linear in i
	for i := 0; i < 20; i++ {
		h.guard.UpdatePrice("R_10", 100+float64(i))
		h.guard.UpdatePrice("R_25", 200+2*float64(i))
	}

	var wg sync.WaitGroup
	for _, symbol := range []string{"R_10", "R_25"} {
		wg.Add(1)
		go func(sym string) {
			defer wg.Done()
			h.eval.maybeOpen(context.Background(), sym, candleAt(60, 100), 0.9, upScore(0.9))
		}(symbol)
	}
	wg.Wait()

	open := h.engine.OpenSymbols()
	require.Len(t, open, 1, "the correlation veto must admit only one of the pair")
}

func TestSettle_ErrorRetiresStake(t *testing.T) {
	h := newHarness(t, EvaluatorConfig{Threshold: 0.78}, stubSettler{err: errors.New("no price")})
	h.eval.OnBalance(10000)

	require.True(t, h.eval.maybeOpen(context.Background(), "R_10", candleAt(60, 100), 0.9, upScore(0.9)))
	require.Len(t, h.timers, 1)
	h.timers[0]()

	closed, ok := h.engine.Lookup(1)
	require.True(t, ok)
	assert.Equal(t, models.TradeClosed, closed.Status)
	assert.Equal(t, -30.0, closed.Profit)
}

func TestSettle_MissingTradeIsNoop(t *testing.T) {
	h := newHarness(t, EvaluatorConfig{}, stubSettler{})
	h.eval.OnBalance(1000)
	h.eval.settle(42)
	assert.Equal(t, 1000.0, h.engine.Balance())
}

func TestStop_Idempotent(t *testing.T) {
	h := newHarness(t, EvaluatorConfig{}, stubSettler{})
	require.NoError(t, h.eval.Process(context.Background(), &models.CandleEvent{
		Symbol: "R_10", Candle: candleAt(60, 100),
	}))
	h.eval.Stop()
	h.eval.Stop()
}
