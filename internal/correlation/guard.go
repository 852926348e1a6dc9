// Package correlation tracks rolling price co-movement between symbols
// and vetoes new exposure that would concentrate the book in correlated
// instruments.
package correlation

import (
	"math"
	"sync"
)

const (
	// DefaultCapacity bounds each symbol's rolling price history.
	DefaultCapacity = 1000
	// DefaultThreshold is the |Pearson| above which a pair blocks opens.
	DefaultThreshold = 0.8
	// minAlignedPoints is the smallest common window a pair needs before
	// its correlation is trusted; shorter pairs count as uncorrelated.
	minAlignedPoints = 10
)

// Pair is an unordered symbol pair key.
type Pair struct {
	A, B string
}

// CorrelatedPair reports one pair above the threshold.
type CorrelatedPair struct {
	A, B string
	Corr float64
}

// Guard holds bounded per-symbol price history and recomputes the
// pairwise correlation matrix on demand. Between computations the
// matrix may lag the latest prices.
type Guard struct {
	mu        sync.Mutex
	capacity  int
	threshold float64
	prices    map[string][]float64
	matrix    map[Pair]float64
}

// NewGuard creates a guard. Non-positive capacity falls back to
// DefaultCapacity; a threshold outside (0,1] falls back to DefaultThreshold.
func NewGuard(capacity int, threshold float64) *Guard {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if threshold <= 0 || threshold > 1 {
		threshold = DefaultThreshold
	}
	return &Guard{
		capacity:  capacity,
		threshold: threshold,
		prices:    make(map[string][]float64),
		matrix:    make(map[Pair]float64),
	}
}

// UpdatePrice appends the latest price for symbol, evicting beyond
// capacity.
func (g *Guard) UpdatePrice(symbol string, price float64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	h := append(g.prices[symbol], price)
	if len(h) > g.capacity {
		h = h[len(h)-g.capacity:]
	}
	g.prices[symbol] = h
}

// CanOpen reports whether opening symbol would keep |correlation| with
// every already-open symbol at or below the threshold. The matrix is
// recomputed first; pairs without enough aligned history pass.
func (g *Guard) CanOpen(symbol string, openSymbols []string) bool {
	if len(openSymbols) == 0 {
		return true
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.compute()

	for _, other := range openSymbols {
		if other == symbol {
			continue
		}
		corr, ok := g.lookup(symbol, other)
		if ok && math.Abs(corr) > g.threshold {
			return false
		}
	}
	return true
}

// Matrix recomputes and returns a copy of the pairwise correlations.
func (g *Guard) Matrix() map[Pair]float64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.compute()
	out := make(map[Pair]float64, len(g.matrix))
	for k, v := range g.matrix {
		out[k] = v
	}
	return out
}

// HighPairs recomputes the matrix and returns the pairs above threshold.
func (g *Guard) HighPairs() []CorrelatedPair {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.compute()
	var out []CorrelatedPair
	for p, c := range g.matrix {
		if math.Abs(c) > g.threshold {
			out = append(out, CorrelatedPair{A: p.A, B: p.B, Corr: c})
		}
	}
	return out
}

// compute rebuilds the matrix over the shortest common aligned window.
// Must be called with the lock held.
func (g *Guard) compute() {
	g.matrix = make(map[Pair]float64)
	symbols := make([]string, 0, len(g.prices))
	minLen := math.MaxInt
	for s, h := range g.prices {
		symbols = append(symbols, s)
		if len(h) < minLen {
			minLen = len(h)
		}
	}
	if len(symbols) < 2 || minLen < minAlignedPoints {
		return
	}

	aligned := make(map[string][]float64, len(symbols))
	for _, s := range symbols {
		h := g.prices[s]
		aligned[s] = h[len(h)-minLen:]
	}
	for i, a := range symbols {
		for _, b := range symbols[i+1:] {
			g.matrix[Pair{A: a, B: b}] = pearson(aligned[a], aligned[b])
		}
	}
}

// lookup checks both orderings of the pair key.
func (g *Guard) lookup(a, b string) (float64, bool) {
	if c, ok := g.matrix[Pair{A: a, B: b}]; ok {
		return c, true
	}
	c, ok := g.matrix[Pair{A: b, B: a}]
	return c, ok
}

// pearson computes the Pearson correlation coefficient of equal-length
// series. Zero-variance series yield 0.
func pearson(xs, ys []float64) float64 {
	n := float64(len(xs))
	if n == 0 {
		return 0
	}
	var sumX, sumY float64
	for i := range xs {
		sumX += xs[i]
		sumY += ys[i]
	}
	meanX, meanY := sumX/n, sumY/n

	var cov, varX, varY float64
	for i := range xs {
		dx := xs[i] - meanX
		dy := ys[i] - meanY
		cov += dx * dy
		varX += dx * dx
		varY += dy * dy
	}
	if varX == 0 || varY == 0 {
		return 0
	}
	return cov / math.Sqrt(varX*varY)
}
