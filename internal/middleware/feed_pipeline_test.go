package middleware

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"PulseTrade/internal/domain/models"
	"PulseTrade/pkg/metrics"
)

type recordingProc struct {
	mu     sync.Mutex
	events []*models.CandleEvent
	err    error
}

func (r *recordingProc) Process(_ context.Context, ev *models.CandleEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.events = append(r.events, ev)
	return nil
}

func (r *recordingProc) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

func event(symbol string, epoch int64) *models.CandleEvent {
	return &models.CandleEvent{
		Symbol: symbol,
		Candle: models.Candle{Open: 100, High: 101, Low: 99, Close: 100.5, Epoch: epoch},
	}
}

func TestProcess_ForwardsValidCandle(t *testing.T) {
	proc := &recordingProc{}
	p := NewFeedPipeline(proc, metrics.Nop{})

	require.NoError(t, p.Process(context.Background(), event("R_10", 60)))
	assert.Equal(t, 1, proc.count())
}

func TestProcess_RejectsInvalidCandles(t *testing.T) {
	proc := &recordingProc{}
	p := NewFeedPipeline(proc, metrics.Nop{})
	ctx := context.Background()

	assert.Error(t, p.Process(ctx, nil))
	assert.Error(t, p.Process(ctx, &models.CandleEvent{Candle: models.Candle{Open: 1, High: 1, Low: 1, Close: 1, Epoch: 60}}))
	assert.Error(t, p.Process(ctx, event("R_10", 0)))

	bad := event("R_10", 60)
	bad.Candle.Low = -1
	assert.Error(t, p.Process(ctx, bad))

	inverted := event("R_10", 60)
	inverted.Candle.High, inverted.Candle.Low = 99.0, 101.0
	assert.Error(t, p.Process(ctx, inverted))

	assert.Zero(t, proc.count())
}

func TestProcess_DropsStaleAndDuplicateEpochs(t *testing.T) {
	proc := &recordingProc{}
	p := NewFeedPipeline(proc, metrics.Nop{})
	ctx := context.Background()

	require.NoError(t, p.Process(ctx, event("R_10", 120)))
	require.NoError(t, p.Process(ctx, event("R_10", 120)), "duplicate epoch dropped without error")
	require.NoError(t, p.Process(ctx, event("R_10", 60)), "replayed older epoch dropped")
	require.NoError(t, p.Process(ctx, event("R_10", 180)))

	assert.Equal(t, 2, proc.count())
}

func TestProcess_EpochsTrackedPerSymbol(t *testing.T) {
	proc := &recordingProc{}
	p := NewFeedPipeline(proc, metrics.Nop{})
	ctx := context.Background()

	require.NoError(t, p.Process(ctx, event("R_10", 120)))
	require.NoError(t, p.Process(ctx, event("R_25", 120)))
	assert.Equal(t, 2, proc.count())
}

func TestProcess_ThrottlesBurst(t *testing.T) {
	proc := &recordingProc{}
	p := NewFeedPipeline(proc, metrics.Nop{}, WithMaxRPS(2))
	ctx := context.Background()

	for i := int64(1); i <= 5; i++ {
		require.NoError(t, p.Process(ctx, event("R_10", i*60)))
	}
	// a fresh bucket holds two tokens; the rest of the burst is shed
	assert.Equal(t, 2, proc.count())
}

func TestProcess_BuffersOnDownstreamError(t *testing.T) {
	proc := &recordingProc{err: errors.New("downstream down")}
	p := NewFeedPipeline(proc, metrics.Nop{}, WithBufferSize(4))
	ctx := context.Background()

	require.NoError(t, p.Process(ctx, event("R_10", 60)))
	assert.Zero(t, proc.count())
	assert.Len(t, p.bufCh, 1)
}

// flakyProc fails the first n calls, then records deliveries on a channel.
type flakyProc struct {
	mu        sync.Mutex
	failures  int
	delivered chan *models.CandleEvent
}

func (f *flakyProc) Process(_ context.Context, ev *models.CandleEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failures > 0 {
		f.failures--
		return errors.New("downstream down")
	}
	f.delivered <- ev
	return nil
}

func TestStart_RetriesBufferedCandleWhileStillNewest(t *testing.T) {
	proc := &flakyProc{failures: 1, delivered: make(chan *models.CandleEvent, 1)}
	p := NewFeedPipeline(proc, metrics.Nop{}, WithBufferSize(4))
	ctx := context.Background()

	require.NoError(t, p.Process(ctx, event("R_10", 60)))
	p.Start(ctx)
	defer p.Stop()

	select {
	case ev := <-proc.delivered:
		assert.Equal(t, int64(60), ev.Candle.Epoch)
	case <-time.After(2 * time.Second):
		t.Fatal("buffered candle was never retried")
	}
}

func TestStart_DropsBufferedCandleSupersededByNewerEpoch(t *testing.T) {
	proc := &flakyProc{failures: 1, delivered: make(chan *models.CandleEvent, 2)}
	p := NewFeedPipeline(proc, metrics.Nop{}, WithBufferSize(4))
	ctx := context.Background()

	require.NoError(t, p.Process(ctx, event("R_10", 60)))  // buffered on failure
	require.NoError(t, p.Process(ctx, event("R_10", 120))) // accepted directly

	ev := <-proc.delivered
	require.Equal(t, int64(120), ev.Candle.Epoch)

	p.Start(ctx)
	defer p.Stop()

	select {
	case ev := <-proc.delivered:
		t.Fatalf("superseded candle re-delivered with epoch %d", ev.Candle.Epoch)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestStartStop_Idempotent(t *testing.T) {
	p := NewFeedPipeline(&recordingProc{}, metrics.Nop{})
	p.Start(context.Background())
	p.Start(context.Background())
	p.Stop()
	p.Stop()
}
