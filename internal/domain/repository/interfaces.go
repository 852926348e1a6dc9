package repository

import (
	"context"

	"PulseTrade/internal/domain/models"
)

// MarketFeed delivers completed 1-minute candles and balance updates from
// the broker. Implementations own the wire protocol, authentication, and
// any tick-to-candle bucketing.
type MarketFeed interface {
	Connect(ctx context.Context) error
	Subscribe(ctx context.Context) error
	Read(ctx context.Context) (<-chan *models.CandleEvent, <-chan *models.BalanceEvent, <-chan error)
	Reconnect(ctx context.Context) error
	Close() error
	IsConnected() bool
}

// Journal records trade lifecycle events to a durable backend. The core
// never depends on the log format; backends own serialization.
type Journal interface {
	RecordOpen(ctx context.Context, ev models.TradeOpened) error
	RecordClose(ctx context.Context, ev models.TradeSettled) error
	Close() error
}

// Metrics is the operational telemetry surface used across the pipeline.
type Metrics interface {
	RecordCandle(symbol string)
	RecordStaleDrop(symbol string)
	RecordEvaluation(symbol string)
	RecordSkip(symbol, reason string)
	RecordScore(symbol string, score float64)
	RecordTradeOpened(symbol string, direction string)
	RecordTradeClosed(result string)
	RecordBalance(balance float64)
	RecordError(kind string)
	RecordLatency(op string, seconds float64)
}
