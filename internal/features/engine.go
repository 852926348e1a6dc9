// Package features builds the per-symbol, three-timeframe indicator
// snapshot the strategy scores. It is a pure read of aggregator state.
package features

import (
	"PulseTrade/internal/domain/models"
	domrepo "PulseTrade/internal/domain/repository"
	"PulseTrade/internal/indicators"
	"PulseTrade/internal/market"
)

// MinHistory is the candle depth a timeframe needs before its FeatureSet
// is defined: RSI(14), MACD(12,26,9) and divergence(lookback 25) all have
// sufficient history at 35.
const MinHistory = 35

const (
	rsiPeriod  = 14
	macdFast   = 12
	macdSlow   = 26
	macdSignal = 9
	atrPeriod  = 14

	divLookback = 25

	srWindowMax = 200
	srMinHits   = 3
	srTolerance = 0.0005
)

// Engine computes MTFFeatures from the aggregator's candle series.
type Engine struct {
	agg *market.Aggregator
}

// NewEngine creates a feature engine reading from agg.
func NewEngine(agg *market.Aggregator) *Engine {
	return &Engine{agg: agg}
}

// Compute returns the three-timeframe feature snapshot for symbol. A
// timeframe with fewer than MinHistory candles is left nil; a FeatureSet
// is never partially filled.
func (e *Engine) Compute(symbol string) models.MTFFeatures {
	return models.MTFFeatures{
		Symbol: symbol,
		M1:     e.timeframe(symbol, domrepo.TF1m),
		M5:     e.timeframe(symbol, domrepo.TF5m),
		M15:    e.timeframe(symbol, domrepo.TF15m),
	}
}

func (e *Engine) timeframe(symbol string, tf domrepo.Timeframe) *models.FeatureSet {
	candles := e.agg.Series(symbol, tf)
	if len(candles) < MinHistory {
		return nil
	}

	closes := make([]float64, len(candles))
	highs := make([]float64, len(candles))
	lows := make([]float64, len(candles))
	for i, c := range candles {
		closes[i] = c.Close
		highs[i] = c.High
		lows[i] = c.Low
	}

	rsi := indicators.RSI(closes, rsiPeriod)
	macd, sig, hist := indicators.MACD(closes, macdFast, macdSlow, macdSignal)
	atr := indicators.ATR(candles, atrPeriod)

	srWindow := len(closes)
	if srWindow > srWindowMax {
		srWindow = srWindowMax
	}

	return &models.FeatureSet{
		Closes:   closes,
		Highs:    highs,
		Lows:     lows,
		RSI:      rsi,
		MACD:     macd,
		Signal:   sig,
		Hist:     hist,
		ATR:      atr,
		DivRSI:   indicators.Divergence(closes, rsi, divLookback),
		DivMACD:  indicators.Divergence(closes, hist, divLookback),
		SRLevels: indicators.SRLevels(closes, srWindow, srMinHits, srTolerance),
	}
}
