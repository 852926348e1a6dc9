package strategy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"PulseTrade/internal/domain/models"
)

func fs(rsi, hist float64, atr []float64) *models.FeatureSet {
	return &models.FeatureSet{
		Closes: []float64{100},
		RSI:    []float64{rsi},
		Hist:   []float64{hist},
		ATR:    atr,
	}
}

func mtf(m1, m5, m15 *models.FeatureSet) models.MTFFeatures {
	return models.MTFFeatures{Symbol: "R_10", M1: m1, M5: m5, M15: m15}
}

func TestScore_ZeroWhenIncomplete(t *testing.T) {
	s := New()
	res := s.Score(mtf(fs(50, 0, []float64{1}), nil, fs(50, 0, []float64{1})))
	assert.Zero(t, res.Score)
	assert.Empty(t, res.Signals)
}

func TestScore_Deterministic(t *testing.T) {
	s := New()
	f := mtf(fs(70, 1, []float64{1, 1, 2}), fs(65, 0.5, []float64{1}), fs(60, 0.2, []float64{1}))
	a := s.Score(f)
	b := s.Score(f)
	assert.Equal(t, a, b)
}

func TestScore_FullBullishAlignment(t *testing.T) {
	s := New()
	// RSI extreme, positive histogram, rising ATR, all timeframes bullish,
	// no divergence, no nearby level.
	f := mtf(fs(70, 1, []float64{1, 1, 2}), fs(65, 0.5, []float64{1}), fs(60, 0.2, []float64{1}))
	res := s.Score(f)

	assert.InDelta(t, 0.93, res.Score, 1e-9)
	assert.Equal(t, models.DirectionUp, res.Direction)
	assert.Contains(t, res.Signals, "MACD+")
	assert.Contains(t, res.Signals, "ATR+")
	assert.Contains(t, res.Signals, "MTF+")
	assert.Contains(t, res.Signals, "Div-")
	assert.Contains(t, res.Signals, "SRok")
}

func TestScore_BearishDirection(t *testing.T) {
	s := New()
	f := mtf(fs(30, -1, []float64{1}), fs(35, -0.5, []float64{1}), fs(40, -0.2, []float64{1}))
	res := s.Score(f)
	assert.Equal(t, models.DirectionDown, res.Direction)
	assert.Contains(t, res.Signals, "MACD-")
}

func TestScore_MiddleBandRSIPartialCredit(t *testing.T) {
	s := New()
	high := s.Score(mtf(fs(70, 1, []float64{1}), fs(65, 1, []float64{1}), fs(60, 1, []float64{1})))
	mid := s.Score(mtf(fs(50, 1, []float64{1}), fs(65, 1, []float64{1}), fs(60, 1, []float64{1})))
	// RSI sub-score drops from 1.0 to 0.4 inside the 40..60 band.
	assert.InDelta(t, 0.30*0.6, high.Score-mid.Score, 1e-9)
}

func TestScore_SRPenaltyNearLevel(t *testing.T) {
	s := New()
	base := mtf(fs(70, 1, []float64{1}), fs(65, 1, []float64{1}), fs(60, 1, []float64{1}))
	away := s.Score(base)

	near := base
	nearM1 := *base.M1
	nearM1.SRLevels = []float64{100.001}
	near.M1 = &nearM1
	res := s.Score(near)

	assert.InDelta(t, 0.03*0.3, away.Score-res.Score, 1e-9)
	assert.Contains(t, res.Signals, "SRnear")
}

func TestScore_DivergenceBonus(t *testing.T) {
	s := New()
	base := mtf(fs(70, 1, []float64{1}), fs(65, 1, []float64{1}), fs(60, 1, []float64{1}))
	plain := s.Score(base)

	div := base
	divM1 := *base.M1
	divM1.DivRSI = models.Divergence{Bull: true}
	div.M1 = &divM1
	res := s.Score(div)

	assert.InDelta(t, 0.07, res.Score-plain.Score, 1e-9)
	assert.Contains(t, res.Signals, "DivBull")
}

func TestTrendAgreement(t *testing.T) {
	bull := fs(60, 1, []float64{1})
	bear := fs(40, -1, []float64{1})
	flat := fs(50, 0, []float64{1})

	assert.Equal(t, 1, TrendAgreement(bull, bull, bull))
	assert.Equal(t, -1, TrendAgreement(bear, bear, bear))
	assert.Equal(t, 0, TrendAgreement(bull, bull, bear))
	assert.Equal(t, 0, TrendAgreement(bull, flat, bull))
	assert.Equal(t, 0, TrendAgreement(nil, bull, bull))
}

func TestDefaultWeightsSumToOne(t *testing.T) {
	w := DefaultWeights
	require.InDelta(t, 1.0, w.RSI+w.MACD+w.ATR+w.MTF+w.Div+w.SR, 1e-9)
}
