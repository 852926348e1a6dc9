package service

import "context"

// Advisor returns the probability, in [0,1], that the next move for
// symbol is up, given the flattened feature vector. It is an auxiliary
// nudge on the rule-based score and never the sole gate; on any failure
// implementations must degrade to the neutral 0.5.
type Advisor interface {
	Advise(ctx context.Context, symbol string, features map[string]float64) float64
}

// NeutralProb is the advisor output that leaves the rule score untouched.
const NeutralProb = 0.5
