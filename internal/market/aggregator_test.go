package market

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"PulseTrade/internal/domain/models"
	domrepo "PulseTrade/internal/domain/repository"
)

func minuteCandle(epoch int64, open, high, low, close float64) models.Candle {
	return models.Candle{Open: open, High: high, Low: low, Close: close, Epoch: epoch}
}

func TestAggregator_PushAndSeries(t *testing.T) {
	agg := NewAggregator(0)
	agg.Push("R_10", minuteCandle(60, 1, 2, 0.5, 1.5))
	agg.Push("R_10", minuteCandle(120, 1.5, 3, 1, 2))

	m1 := agg.Series("R_10", domrepo.TF1m)
	require.Len(t, m1, 2)
	assert.Equal(t, int64(60), m1[0].Epoch)
	assert.Equal(t, int64(120), m1[1].Epoch)

	assert.Nil(t, agg.Series("R_25", domrepo.TF1m))
}

func TestAggregator_FiveMinuteBuckets(t *testing.T) {
	agg := NewAggregator(0)
	// first 5m bucket: epochs 0..240
	agg.Push("R_10", minuteCandle(0, 10, 12, 9, 11))
	agg.Push("R_10", minuteCandle(60, 11, 15, 10, 14))
	agg.Push("R_10", minuteCandle(120, 14, 14.5, 8, 9))
	agg.Push("R_10", minuteCandle(180, 9, 10, 8.5, 9.5))
	agg.Push("R_10", minuteCandle(240, 9.5, 11, 9, 10))
	// second bucket starts at epoch 300
	agg.Push("R_10", minuteCandle(300, 10, 13, 10, 12))

	m5 := agg.Series("R_10", domrepo.TF5m)
	require.Len(t, m5, 2)

	first := m5[0]
	assert.Equal(t, 10.0, first.Open, "open is the bucket's first open")
	assert.Equal(t, 10.0, first.Close, "close is the bucket's last close")
	assert.Equal(t, 15.0, first.High)
	assert.Equal(t, 8.0, first.Low)
	assert.Equal(t, int64(240), first.Epoch)

	second := m5[1]
	assert.Equal(t, 10.0, second.Open)
	assert.Equal(t, 12.0, second.Close)
}

func TestAggregator_FifteenMinuteBuckets(t *testing.T) {
	agg := NewAggregator(0)
	for i := int64(0); i < 30; i++ {
		agg.Push("R_10", minuteCandle(i*60, 1, 2, 0.5, 1.5))
	}
	assert.Equal(t, 30, agg.Len("R_10", domrepo.TF1m))
	assert.Equal(t, 6, agg.Len("R_10", domrepo.TF5m))
	assert.Equal(t, 2, agg.Len("R_10", domrepo.TF15m))
}

func TestAggregator_EvictsOldestBeyondCapacity(t *testing.T) {
	agg := NewAggregator(3)
	for i := int64(0); i < 5; i++ {
		agg.Push("R_10", minuteCandle(i*60, float64(i), float64(i), float64(i), float64(i)))
	}
	m1 := agg.Series("R_10", domrepo.TF1m)
	require.Len(t, m1, 3)
	assert.Equal(t, int64(120), m1[0].Epoch)
	assert.Equal(t, int64(240), m1[2].Epoch)
}

func TestAggregator_LastClose(t *testing.T) {
	agg := NewAggregator(0)
	_, ok := agg.LastClose("R_10")
	assert.False(t, ok)

	agg.Push("R_10", minuteCandle(60, 1, 2, 0.5, 1.5))
	agg.Push("R_10", minuteCandle(120, 1.5, 3, 1, 2.25))
	last, ok := agg.LastClose("R_10")
	require.True(t, ok)
	assert.Equal(t, 2.25, last)
}

func TestAggregator_SeriesReturnsCopy(t *testing.T) {
	agg := NewAggregator(0)
	agg.Push("R_10", minuteCandle(60, 1, 2, 0.5, 1.5))
	got := agg.Series("R_10", domrepo.TF1m)
	got[0].Close = 999
	again := agg.Series("R_10", domrepo.TF1m)
	assert.Equal(t, 1.5, again[0].Close)
}
