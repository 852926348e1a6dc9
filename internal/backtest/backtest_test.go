package backtest

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"PulseTrade/internal/domain/models"
)

func flatEvents(symbol string, n int) []models.CandleEvent {
	out := make([]models.CandleEvent, n)
	for i := range out {
		out[i] = models.CandleEvent{
			Symbol: symbol,
			Candle: models.Candle{Open: 100, High: 100.5, Low: 99.5, Close: 100, Epoch: int64(i+1) * 60},
		}
	}
	return out
}

func TestRun_FlatMarketOpensNothing(t *testing.T) {
	b := New(DefaultConfig())
	res := b.Run(flatEvents("R_10", 600))

	assert.Zero(t, res.Closed)
	assert.Equal(t, res.InitialBalance, res.FinalBalance)
	assert.Zero(t, res.MaxDrawdown)
}

func TestRun_InsufficientHistoryOpensNothing(t *testing.T) {
	b := New(DefaultConfig())
	res := b.Run(flatEvents("R_10", 10))
	assert.Zero(t, res.Closed)
}

func TestRun_SortsEventsByEpoch(t *testing.T) {
	events := flatEvents("R_10", 50)
	events[0], events[49] = events[49], events[0]
	b := New(DefaultConfig())
	res := b.Run(events)
	assert.Equal(t, res.InitialBalance, res.FinalBalance)
}

func TestSlip(t *testing.T) {
	assert.InDelta(t, 100.01, slip(100, models.DirectionUp, 0.0001), 1e-9)
	assert.InDelta(t, 99.99, slip(100, models.DirectionDown, 0.0001), 1e-9)
}

func TestSettle_WinLossAccounting(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Commission = 0.1
	b := New(cfg)

	// seed a price so settlement can mark against it
	b.agg.Push("R_10", models.Candle{Open: 100, High: 101, Low: 99, Close: 101, Epoch: 60})

	trade, ok := b.engine.TryOpen("R_10", models.DirectionUp, 10, 0.9, 100, cfg.TradeDuration)
	require.True(t, ok)
	b.settle(pending{trade: trade, expiryAt: 360})

	// win pays stake*payout minus commission
	assert.InDelta(t, cfg.InitialBalance+10*cfg.Payout-0.1, b.engine.Balance(), 1e-9)

	trade2, ok := b.engine.TryOpen("R_10", models.DirectionDown, 10, 0.9, 100, cfg.TradeDuration)
	require.True(t, ok)
	b.settle(pending{trade: trade2, expiryAt: 720})

	// price above entry loses the stake for a Down position
	assert.InDelta(t, cfg.InitialBalance+10*cfg.Payout-0.1-10.1, b.engine.Balance(), 1e-9)
}

func TestResult_Metrics(t *testing.T) {
	b := New(DefaultConfig())
	b.agg.Push("R_10", models.Candle{Open: 100, High: 101, Low: 99, Close: 101, Epoch: 60})

	win, _ := b.engine.TryOpen("R_10", models.DirectionUp, 10, 0.9, 100, b.cfg.TradeDuration)
	b.settle(pending{trade: win, expiryAt: 360})
	loss, _ := b.engine.TryOpen("R_10", models.DirectionDown, 10, 0.9, 100, b.cfg.TradeDuration)
	b.settle(pending{trade: loss, expiryAt: 720})

	res := b.result()
	assert.Equal(t, 2, res.Closed)
	assert.Equal(t, 1, res.Wins)
	assert.Equal(t, 1, res.Losses)
	assert.InDelta(t, 0.5, res.WinRate, 1e-9)
	assert.InDelta(t, 0.9, res.ProfitFactor, 1e-9)
	assert.InDelta(t, 9.0-10.0, res.NetProfit, 1e-9)
}

func TestResult_InfiniteProfitFactorWithoutLosses(t *testing.T) {
	b := New(DefaultConfig())
	b.agg.Push("R_10", models.Candle{Open: 100, High: 101, Low: 99, Close: 101, Epoch: 60})
	win, _ := b.engine.TryOpen("R_10", models.DirectionUp, 10, 0.9, 100, b.cfg.TradeDuration)
	b.settle(pending{trade: win, expiryAt: 360})

	res := b.result()
	assert.True(t, math.IsInf(res.ProfitFactor, 1))
}

func TestMaxDrawdown(t *testing.T) {
	assert.Zero(t, maxDrawdown(nil))
	assert.Zero(t, maxDrawdown([]float64{100, 110, 120}))
	assert.InDelta(t, 0.25, maxDrawdown([]float64{100, 120, 90, 110}), 1e-9)
	assert.InDelta(t, 0.5, maxDrawdown([]float64{100, 50, 80}), 1e-9)
}

func TestSharpe(t *testing.T) {
	assert.Zero(t, sharpe(nil))
	assert.Zero(t, sharpe([]float64{0.1}))
	assert.Zero(t, sharpe([]float64{0.1, 0.1, 0.1}), "zero variance")

	got := sharpe([]float64{0.1, -0.1})
	assert.InDelta(t, 0.0, got, 1e-9)

	assert.Positive(t, sharpe([]float64{0.2, 0.1, 0.15}))
}
