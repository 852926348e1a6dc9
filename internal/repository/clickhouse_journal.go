package repository

import (
	"context"
	"fmt"

	"PulseTrade/internal/domain/models"
	"PulseTrade/internal/domain/repository"
	"PulseTrade/pkg/clickhouse"
)

var tradeSchema = []string{
	`CREATE TABLE IF NOT EXISTS trade_opens (
		id         Int64,
		symbol     LowCardinality(String),
		direction  LowCardinality(String),
		stake      Float64,
		score      Float64,
		opened_at  DateTime64(3)
	) ENGINE = MergeTree()
	ORDER BY (symbol, opened_at)`,
	`CREATE TABLE IF NOT EXISTS trade_closes (
		id         Int64,
		symbol     LowCardinality(String),
		profit     Float64,
		closed_at  DateTime64(3)
	) ENGINE = MergeTree()
	ORDER BY (symbol, closed_at)`,
}

// ClickHouseJournal persists trade lifecycle events for offline
// analysis. Tables are created on startup if missing.
type ClickHouseJournal struct {
	client *clickhouse.Client
}

var _ repository.Journal = (*ClickHouseJournal)(nil)

func NewClickHouseJournal(ctx context.Context, client *clickhouse.Client) (*ClickHouseJournal, error) {
	if err := client.InitSchema(ctx, tradeSchema); err != nil {
		return nil, fmt.Errorf("trade journal schema: %w", err)
	}
	return &ClickHouseJournal{client: client}, nil
}

func (j *ClickHouseJournal) RecordOpen(ctx context.Context, ev models.TradeOpened) error {
	const q = `INSERT INTO trade_opens (id, symbol, direction, stake, score, opened_at)
		VALUES (?, ?, ?, ?, ?, ?)`
	if _, err := j.client.DB().ExecContext(ctx, q,
		ev.ID, ev.Symbol, string(ev.Direction), ev.Stake, ev.Score, ev.OpenedAt); err != nil {
		return fmt.Errorf("journal open trade %d: %w", ev.ID, err)
	}
	return nil
}

func (j *ClickHouseJournal) RecordClose(ctx context.Context, ev models.TradeSettled) error {
	const q = `INSERT INTO trade_closes (id, symbol, profit, closed_at)
		VALUES (?, ?, ?, ?)`
	if _, err := j.client.DB().ExecContext(ctx, q,
		ev.ID, ev.Symbol, ev.Profit, ev.ClosedAt); err != nil {
		return fmt.Errorf("journal close trade %d: %w", ev.ID, err)
	}
	return nil
}

func (j *ClickHouseJournal) Close() error {
	return j.client.Close()
}
