// Package indicators implements the technical indicators consumed by the
// feature engine. All functions are pure and allocation-light: they read
// a numeric series and return a derived series or flags, with documented
// degenerate outputs below their minimum history instead of errors.
package indicators

import (
	"math"
	"sort"

	"PulseTrade/internal/domain/models"
)

// rsiNeutral pads RSI points that predate the first full window.
const rsiNeutral = 50.0

// SMA returns the simple moving average of xs with window n, using a
// growing window for the first n-1 points.
func SMA(xs []float64, n int) []float64 {
	if len(xs) == 0 {
		return nil
	}
	if n < 1 {
		n = 1
	}
	out := make([]float64, len(xs))
	sum := 0.0
	for i, x := range xs {
		sum += x
		width := i + 1
		if i >= n {
			sum -= xs[i-n]
			width = n
		}
		out[i] = sum / float64(width)
	}
	return out
}

// EMA returns the exponential moving average of xs with smoothing
// k = 2/(n+1), seeded with the first value.
func EMA(xs []float64, n int) []float64 {
	if len(xs) == 0 {
		return nil
	}
	k := 2.0 / (float64(n) + 1.0)
	out := make([]float64, len(xs))
	out[0] = xs[0]
	for i := 1; i < len(xs); i++ {
		out[i] = out[i-1]*(1-k) + xs[i]*k
	}
	return out
}

// RSI computes a Wilder-style RSI over closes using the simple average of
// gains and losses in the trailing window. Points before the first full
// window are backfilled with the neutral 50. A window with no losses
// yields 100. Fewer than period+1 closes yields nil.
func RSI(closes []float64, period int) []float64 {
	if len(closes) < period+1 {
		return nil
	}
	gains := make([]float64, len(closes)-1)
	losses := make([]float64, len(closes)-1)
	for i := 1; i < len(closes); i++ {
		d := closes[i] - closes[i-1]
		if d > 0 {
			gains[i-1] = d
		} else {
			losses[i-1] = -d
		}
	}

	out := make([]float64, 0, len(closes))
	for i := 0; i < period; i++ {
		out = append(out, rsiNeutral)
	}
	for i := period; i < len(closes); i++ {
		var g, l float64
		for j := i - period; j < i; j++ {
			g += gains[j]
			l += losses[j]
		}
		g /= float64(period)
		l /= float64(period)
		if l == 0 {
			out = append(out, 100.0)
			continue
		}
		rs := g / l
		out = append(out, 100.0-100.0/(1.0+rs))
	}
	return out
}

// MACD computes the MACD line, signal line, and histogram over closes.
// With fewer than slow+signal closes all three outputs are zero-filled at
// input length: an explicit degenerate case, not an error.
func MACD(closes []float64, fast, slow, signal int) (macd, sig, hist []float64) {
	if len(closes) < slow+signal {
		zeros := make([]float64, len(closes))
		return zeros, append([]float64(nil), zeros...), append([]float64(nil), zeros...)
	}
	eFast := EMA(closes, fast)
	eSlow := EMA(closes, slow)
	macd = make([]float64, len(closes))
	for i := range macd {
		macd[i] = eFast[i] - eSlow[i]
	}
	sig = EMA(macd, signal)
	hist = make([]float64, len(closes))
	for i := range hist {
		hist[i] = macd[i] - sig[i]
	}
	return macd, sig, hist
}

// ATR computes the average true range of candles: true range per candle is
// max(high-low, |high-prevClose|, |low-prevClose|) with the first candle's
// TR fixed at 0, smoothed by SMA(period). Fewer than period+1 candles
// yields a zero-filled series.
func ATR(candles []models.Candle, period int) []float64 {
	if len(candles) < period+1 {
		return make([]float64, len(candles))
	}
	trs := make([]float64, len(candles))
	for i := 1; i < len(candles); i++ {
		h, l := candles[i].High, candles[i].Low
		pc := candles[i-1].Close
		tr := h - l
		if v := math.Abs(h - pc); v > tr {
			tr = v
		}
		if v := math.Abs(l - pc); v > tr {
			tr = v
		}
		trs[i] = tr
	}
	return SMA(trs, period)
}

// Divergence compares price extrema against oscillator extrema inside the
// trailing lookback window. Bullish: the price's later low sits below its
// earlier low while the oscillator's later low sits above its earlier low.
// Bearish is the symmetric test at the highs. Requires
// len(prices) >= lookback+5 and equal-length series; otherwise both flags
// are false.
func Divergence(prices, osc []float64, lookback int) models.Divergence {
	if len(prices) < lookback+5 || len(prices) != len(osc) {
		return models.Divergence{}
	}
	p := prices[len(prices)-lookback:]
	o := osc[len(osc)-lookback:]

	pMin1 := argMin(p)
	oMin1 := argMin(o)
	pMin2 := argMinExcluding(p, pMin1)
	oMin2 := argMinExcluding(o, oMin1)

	pMax1 := argMax(p)
	oMax1 := argMax(o)
	pMax2 := argMaxExcluding(p, pMax1)
	oMax2 := argMaxExcluding(o, oMax1)

	// A divergence compares the later extremum of each series against the
	// earlier one, so the two lows and the two highs are ordered by time.
	pLoEarly, pLoLate := ordered(pMin1, pMin2)
	oLoEarly, oLoLate := ordered(oMin1, oMin2)
	pHiEarly, pHiLate := ordered(pMax1, pMax2)
	oHiEarly, oHiLate := ordered(oMax1, oMax2)

	return models.Divergence{
		Bull: p[pLoLate] < p[pLoEarly] && o[oLoLate] > o[oLoEarly],
		Bear: p[pHiLate] > p[pHiEarly] && o[oHiLate] < o[oHiEarly],
	}
}

func ordered(i, j int) (early, late int) {
	if i <= j {
		return i, j
	}
	return j, i
}

// SRLevels clusters the trailing window of closes into support/resistance
// price levels. Sorted closes are greedily grouped while each value stays
// within tolerance*mean of the running cluster mean; a cluster is reported
// only once it holds at least minHits members. Fewer than window closes
// yields no levels.
func SRLevels(closes []float64, window, minHits int, tolerance float64) []float64 {
	if len(closes) < window {
		return nil
	}
	region := append([]float64(nil), closes[len(closes)-window:]...)
	sort.Float64s(region)

	var levels []float64
	sum := region[0]
	count := 1
	for _, x := range region[1:] {
		mean := sum / float64(count)
		if math.Abs(x-mean) <= tolerance*mean {
			sum += x
			count++
			continue
		}
		if count >= minHits {
			levels = append(levels, sum/float64(count))
		}
		sum = x
		count = 1
	}
	if count >= minHits {
		levels = append(levels, sum/float64(count))
	}
	return levels
}

func argMin(xs []float64) int {
	best := 0
	for i, x := range xs {
		if x < xs[best] {
			best = i
		}
	}
	return best
}

func argMax(xs []float64) int {
	best := 0
	for i, x := range xs {
		if x > xs[best] {
			best = i
		}
	}
	return best
}

func argMinExcluding(xs []float64, skip int) int {
	best := -1
	for i, x := range xs {
		if i == skip {
			continue
		}
		if best < 0 || x < xs[best] {
			best = i
		}
	}
	return best
}

func argMaxExcluding(xs []float64, skip int) int {
	best := -1
	for i, x := range xs {
		if i == skip {
			continue
		}
		if best < 0 || x > xs[best] {
			best = i
		}
	}
	return best
}
