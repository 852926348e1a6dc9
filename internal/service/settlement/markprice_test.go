package settlement

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"PulseTrade/internal/domain/models"
	"PulseTrade/internal/market"
)

func aggWithClose(symbol string, close float64) *market.Aggregator {
	agg := market.NewAggregator(0)
	agg.Push(symbol, models.Candle{Open: close, High: close, Low: close, Close: close, Epoch: 60})
	return agg
}

func trade(direction models.Direction, entry float64) models.Trade {
	return models.Trade{ID: 1, Symbol: "R_10", Direction: direction, Stake: 10, EntryPrice: entry}
}

func TestSettle_UpWinsWhenPriceRises(t *testing.T) {
	s := NewMarkPrice(aggWithClose("R_10", 101), 0.9)
	profit, err := s.Settle(context.Background(), trade(models.DirectionUp, 100))
	require.NoError(t, err)
	assert.Equal(t, 9.0, profit)
}

func TestSettle_UpLosesWhenPriceFalls(t *testing.T) {
	s := NewMarkPrice(aggWithClose("R_10", 99), 0.9)
	profit, err := s.Settle(context.Background(), trade(models.DirectionUp, 100))
	require.NoError(t, err)
	assert.Equal(t, -10.0, profit)
}

func TestSettle_DownWinsWhenPriceFalls(t *testing.T) {
	s := NewMarkPrice(aggWithClose("R_10", 99), 0.9)
	profit, err := s.Settle(context.Background(), trade(models.DirectionDown, 100))
	require.NoError(t, err)
	assert.Equal(t, 9.0, profit)
}

func TestSettle_FlatLosesTheStake(t *testing.T) {
	s := NewMarkPrice(aggWithClose("R_10", 100), 0.9)
	profit, err := s.Settle(context.Background(), trade(models.DirectionUp, 100))
	require.NoError(t, err)
	assert.Equal(t, -10.0, profit)
}

func TestSettle_NoPriceForSymbol(t *testing.T) {
	s := NewMarkPrice(market.NewAggregator(0), 0.9)
	_, err := s.Settle(context.Background(), trade(models.DirectionUp, 100))
	assert.Error(t, err)
}

func TestNewMarkPrice_DefaultPayout(t *testing.T) {
	s := NewMarkPrice(aggWithClose("R_10", 101), 0)
	profit, err := s.Settle(context.Background(), trade(models.DirectionUp, 100))
	require.NoError(t, err)
	assert.Equal(t, 10*DefaultPayout, profit)
}
