package service

import (
	"context"

	"PulseTrade/internal/domain/models"
)

// Settler resolves an expired trade to a realized profit. The evaluation
// path schedules settlement when a trade's duration elapses; the core
// never assumes any particular settlement rule.
type Settler interface {
	Settle(ctx context.Context, trade models.Trade) (profit float64, err error)
}
