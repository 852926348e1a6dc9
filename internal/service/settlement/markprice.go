// Package settlement resolves expired trades against observed market
// prices rather than an external close feed.
package settlement

import (
	"context"
	"fmt"

	"PulseTrade/internal/domain/models"
	"PulseTrade/internal/domain/service"
	"PulseTrade/internal/market"
)

// DefaultPayout is the payout ratio applied to a winning stake.
const DefaultPayout = 0.9

// MarkPrice settles a trade by comparing its entry price to the latest
// aggregated close for the symbol. A winning trade pays stake*payout,
// a losing or flat trade loses the stake.
type MarkPrice struct {
	agg    *market.Aggregator
	payout float64
}

var _ service.Settler = (*MarkPrice)(nil)

func NewMarkPrice(agg *market.Aggregator, payout float64) *MarkPrice {
	if payout <= 0 {
		payout = DefaultPayout
	}
	return &MarkPrice{agg: agg, payout: payout}
}

func (m *MarkPrice) Settle(_ context.Context, trade models.Trade) (float64, error) {
	last, ok := m.agg.LastClose(trade.Symbol)
	if !ok {
		return 0, fmt.Errorf("settle trade %d: no price for symbol %s", trade.ID, trade.Symbol)
	}
	won := false
	switch trade.Direction {
	case models.DirectionUp:
		won = last > trade.EntryPrice
	case models.DirectionDown:
		won = last < trade.EntryPrice
	}
	if won {
		return trade.Stake * m.payout, nil
	}
	return -trade.Stake, nil
}
