// Package strategy converts a three-timeframe feature snapshot into a
// weighted confidence score, a direction, and a signal trace. Scoring is
// fully deterministic given its inputs.
package strategy

import (
	"fmt"
	"math"

	"PulseTrade/internal/domain/models"
	"PulseTrade/internal/indicators"
)

// Weights are the fixed sub-score weights; they sum to 1.0.
type Weights struct {
	RSI  float64
	MACD float64
	ATR  float64
	MTF  float64
	Div  float64
	SR   float64
}

// DefaultWeights is the production weighting.
var DefaultWeights = Weights{RSI: 0.30, MACD: 0.25, ATR: 0.15, MTF: 0.20, Div: 0.07, SR: 0.03}

// DefaultThreshold is the minimum confidence score required to act.
const DefaultThreshold = 0.78

const (
	// srProximity is the relative distance to the nearest S/R level below
	// which the score takes the reversal-risk penalty.
	srProximity = 0.0006
	srPenalty   = 0.3

	atrSMAPeriod = 14
)

// Strategy scores MTFFeatures.
type Strategy struct {
	weights Weights
}

// New creates a strategy with the default weights.
func New() *Strategy { return &Strategy{weights: DefaultWeights} }

// Score evaluates f. When any timeframe is absent the result is zero with
// no direction and no signals.
func (s *Strategy) Score(f models.MTFFeatures) models.ScoreResult {
	if !f.Complete() {
		return models.ScoreResult{}
	}
	m1 := f.M1
	signals := make([]string, 0, 6)

	// RSI: trending or extreme readings carry more information than the
	// middle of the band.
	rsiVal := last(m1.RSI)
	rsiScore := 0.4
	if rsiVal < 40 || rsiVal > 60 {
		rsiScore = 1.0
	}
	signals = append(signals, fmt.Sprintf("RSI=%.1f", rsiVal))

	hist := last(m1.Hist)
	macdScore := 0.0
	if hist >= 0 {
		macdScore = 1.0
		signals = append(signals, "MACD+")
	} else {
		signals = append(signals, "MACD-")
	}

	// ATR above its own SMA reads as rising volatility.
	atrNow := last(m1.ATR)
	atrSMA := last(indicators.SMA(m1.ATR, atrSMAPeriod))
	atrScore := 0.0
	if atrNow > atrSMA && atrSMA > 0 {
		atrScore = 1.0
		signals = append(signals, "ATR+")
	} else {
		signals = append(signals, "ATR-")
	}

	mtfBias := TrendAgreement(f.M1, f.M5, f.M15)
	mtfScore := 0.0
	if mtfBias != 0 {
		mtfScore = 1.0
		signals = append(signals, "MTF+")
	} else {
		signals = append(signals, "MTF-")
	}

	divScore := 0.0
	switch {
	case m1.DivRSI.Bull || m1.DivMACD.Bull:
		divScore = 1.0
		signals = append(signals, "DivBull")
	case m1.DivRSI.Bear || m1.DivMACD.Bear:
		divScore = 1.0
		signals = append(signals, "DivBear")
	default:
		signals = append(signals, "Div-")
	}

	srScore := 1.0
	price := last(m1.Closes)
	if nearest, ok := nearestLevel(m1.SRLevels, price); ok &&
		math.Abs(nearest-price)/math.Max(1e-9, price) < srProximity {
		srScore = 1.0 - srPenalty
		signals = append(signals, "SRnear")
	} else {
		signals = append(signals, "SRok")
	}

	w := s.weights
	score := w.RSI*rsiScore + w.MACD*macdScore + w.ATR*atrScore +
		w.MTF*mtfScore + w.Div*divScore + w.SR*srScore

	direction := models.DirectionDown
	if mtfBias >= 0 && hist >= 0 {
		direction = models.DirectionUp
	}
	return models.ScoreResult{Score: score, Direction: direction, Signals: signals}
}

// TrendAgreement computes the cross-timeframe bias: +1 when all three
// timeframes lean bullish (hist>0, RSI>=50), -1 when all lean bearish
// (hist<0, RSI<=50), 0 on any disagreement.
func TrendAgreement(m1, m5, m15 *models.FeatureSet) int {
	b1, b5, b15 := bias(m1), bias(m5), bias(m15)
	if b1 == 1 && b5 == 1 && b15 == 1 {
		return 1
	}
	if b1 == -1 && b5 == -1 && b15 == -1 {
		return -1
	}
	return 0
}

func bias(f *models.FeatureSet) int {
	if f == nil {
		return 0
	}
	hist := last(f.Hist)
	rsi := last(f.RSI)
	switch {
	case hist > 0 && rsi >= 50:
		return 1
	case hist < 0 && rsi <= 50:
		return -1
	default:
		return 0
	}
}

func nearestLevel(levels []float64, price float64) (float64, bool) {
	if len(levels) == 0 {
		return 0, false
	}
	best := levels[0]
	for _, lv := range levels[1:] {
		if math.Abs(lv-price) < math.Abs(best-price) {
			best = lv
		}
	}
	return best, true
}

func last(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	return xs[len(xs)-1]
}
