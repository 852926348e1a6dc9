package models

import "time"

// Direction is the side of a signal or trade.
type Direction string

const (
	DirectionUp   Direction = "UP"
	DirectionDown Direction = "DOWN"
)

// ScoreResult is the output of one strategy evaluation. It is derived
// fresh per evaluation and never mutated.
type ScoreResult struct {
	Score     float64 // confidence in [0,1]
	Direction Direction
	Signals   []string // one short tag per sub-score, in fixed order
}

// Snapshot is the immutable per-evaluation view published for the status
// API. Each evaluation produces a fresh value; readers only ever see
// complete snapshots, never half-updated shared state.
type Snapshot struct {
	Symbol      string    `json:"symbol"`
	Score       float64   `json:"score"`
	Direction   Direction `json:"direction"`
	Signals     []string  `json:"signals"`
	AdvisorProb float64   `json:"advisor_prob"`
	Acted       bool      `json:"acted"`
	EvaluatedAt time.Time `json:"evaluated_at"`
}
