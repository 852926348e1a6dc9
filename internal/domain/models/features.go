package models

// Divergence flags disagreement between price and an oscillator inside a
// trailing window.
type Divergence struct {
	Bull bool
	Bear bool
}

// FeatureSet is the indicator snapshot for one symbol on one timeframe.
// All indicator slices are aligned 1:1 with Closes.
type FeatureSet struct {
	Closes []float64
	Highs  []float64
	Lows   []float64

	RSI    []float64
	MACD   []float64
	Signal []float64
	Hist   []float64
	ATR    []float64

	DivRSI  Divergence
	DivMACD Divergence

	SRLevels []float64
}

// MTFFeatures bundles the three timeframe snapshots for a symbol.
// A nil pointer means the backing series had insufficient history;
// a FeatureSet is never partially filled.
type MTFFeatures struct {
	Symbol string
	M1     *FeatureSet
	M5     *FeatureSet
	M15    *FeatureSet
}

// Complete reports whether all three timeframes are present.
func (f MTFFeatures) Complete() bool {
	return f.M1 != nil && f.M5 != nil && f.M15 != nil
}

// Vector flattens the most recent m1 indicator values into the feature
// map consumed by the statistical advisor.
func (f MTFFeatures) Vector() map[string]float64 {
	if f.M1 == nil {
		return nil
	}
	last := func(xs []float64) float64 {
		if len(xs) == 0 {
			return 0
		}
		return xs[len(xs)-1]
	}
	return map[string]float64{
		"close": last(f.M1.Closes),
		"rsi":   last(f.M1.RSI),
		"macd":  last(f.M1.MACD),
		"hist":  last(f.M1.Hist),
		"atr":   last(f.M1.ATR),
	}
}
