package models

// Candle is a single OHLC bar. Epoch is unix seconds aligned to the start
// of the candle's bucket. Candles are immutable once appended to a series.
type Candle struct {
	Open  float64 `json:"open"`
	High  float64 `json:"high"`
	Low   float64 `json:"low"`
	Close float64 `json:"close"`
	Epoch int64   `json:"epoch"`
}

// CandleEvent is the unit the market feed delivers: one completed
// 1-minute candle for one symbol.
type CandleEvent struct {
	Symbol string
	Candle Candle
}

// BalanceEvent reports the account balance pushed by the broker.
type BalanceEvent struct {
	Balance float64
}
