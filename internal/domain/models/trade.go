package models

import "time"

// TradeStatus is the lifecycle state of a trade.
type TradeStatus string

const (
	TradeOpen   TradeStatus = "open"
	TradeClosed TradeStatus = "closed"
)

// Trade is a ledger record. Created on open, mutated exactly once on
// finalize, retained for the session for reporting.
type Trade struct {
	ID        int64         `json:"id"`
	Symbol    string        `json:"symbol"`
	Direction Direction     `json:"direction"`
	Stake     float64       `json:"stake"`
	Score     float64       `json:"score"`
	OpenedAt  time.Time     `json:"opened_at"`
	Duration  time.Duration `json:"duration"`
	Status    TradeStatus   `json:"status"`
	Profit    float64       `json:"profit"`
	Elapsed   time.Duration `json:"elapsed"`

	// EntryPrice is the mark price at open, used by settlement.
	EntryPrice float64 `json:"entry_price"`
}

// TradeOpened is the journal event emitted when a trade opens.
type TradeOpened struct {
	ID        int64     `json:"id"`
	Symbol    string    `json:"symbol"`
	Direction Direction `json:"direction"`
	Stake     float64   `json:"stake"`
	Score     float64   `json:"score"`
	OpenedAt  time.Time `json:"opened_at"`
}

// TradeSettled is the journal event emitted when a trade finalizes.
type TradeSettled struct {
	ID       int64     `json:"id"`
	Symbol   string    `json:"symbol"`
	Profit   float64   `json:"profit"`
	ClosedAt time.Time `json:"closed_at"`
}
