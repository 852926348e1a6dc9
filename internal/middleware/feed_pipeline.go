package middleware

import (
	"context"
	"fmt"
	"sync"
	"time"

	"PulseTrade/internal/domain/models"
	domrepo "PulseTrade/internal/domain/repository"
	"PulseTrade/internal/service/ratelimit"
)

// Proc is the minimal downstream interface the pipeline needs.
type Proc interface {
	Process(ctx context.Context, ev *models.CandleEvent) error
}

// FeedPipeline sits between the market feed and the evaluator. It
// validates candles, drops stale or duplicate epochs, throttles bursty
// symbols, and buffers when downstream is temporarily failing.
type FeedPipeline struct {
	proc    Proc
	metrics domrepo.Metrics
	limiter *ratelimit.Limiter
	maxRPS  float64
	bufSize int
	bufCh   chan *models.CandleEvent
	stopCh  chan struct{}
	started bool
	mu      sync.Mutex
	// per-symbol newest accepted epoch; anything at or below is stale
	lastEpoch map[string]int64
}

type PipelineOption func(*FeedPipeline)

// WithMaxRPS sets the max candles per second per symbol.
func WithMaxRPS(n float64) PipelineOption {
	return func(p *FeedPipeline) {
		if n > 0 {
			p.maxRPS = n
		}
	}
}

// WithBufferSize sets the temporary buffer size when downstream is unavailable.
func WithBufferSize(n int) PipelineOption {
	return func(p *FeedPipeline) {
		if n > 0 {
			p.bufSize = n
		}
	}
}

// NewFeedPipeline creates a new pipeline in front of proc.
func NewFeedPipeline(proc Proc, metrics domrepo.Metrics, opts ...PipelineOption) *FeedPipeline {
	p := &FeedPipeline{
		proc:      proc,
		metrics:   metrics,
		limiter:   ratelimit.New(),
		maxRPS:    5,
		bufSize:   1000,
		stopCh:    make(chan struct{}),
		lastEpoch: make(map[string]int64),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.bufCh = make(chan *models.CandleEvent, p.bufSize)
	return p
}

// Start launches background flushing of buffered candles.
func (p *FeedPipeline) Start(ctx context.Context) {
	p.mu.Lock()
	if p.started {
		p.mu.Unlock()
		return
	}
	p.started = true
	p.mu.Unlock()

	go func() {
		backoff := 50 * time.Millisecond
		for {
			select {
			case <-p.stopCh:
				return
			case ev := <-p.bufCh:
				if ev == nil {
					continue
				}
				// A newer candle for the symbol may have been accepted
				// while this one sat in the buffer; re-delivering it
				// would rewind the series downstream.
				if !p.stillNewest(ev) {
					p.metrics.RecordStaleDrop(ev.Symbol)
					continue
				}
				if err := p.proc.Process(ctx, ev); err != nil {
					if backoff < 2*time.Second {
						backoff *= 2
					}
					p.metrics.RecordError("pipeline_flush")
					time.Sleep(backoff)
					select {
					case p.bufCh <- ev:
					default:
						p.metrics.RecordError("pipeline_buffer_drop")
					}
				} else {
					backoff = 50 * time.Millisecond
				}
			}
		}
	}()
}

// Stop stops the background flushing.
func (p *FeedPipeline) Stop() {
	p.mu.Lock()
	if !p.started {
		p.mu.Unlock()
		return
	}
	p.started = false
	p.mu.Unlock()
	close(p.stopCh)
}

// Process validates, deduplicates, and forwards the candle downstream,
// buffering on downstream errors. Stale and throttled candles are
// dropped without error so a reconnect replay cannot rewind state.
func (p *FeedPipeline) Process(ctx context.Context, ev *models.CandleEvent) error {
	if err := validateCandle(ev); err != nil {
		p.metrics.RecordError("pipeline_validate")
		return err
	}
	if !p.accept(ev) {
		p.metrics.RecordStaleDrop(ev.Symbol)
		return nil
	}
	if !p.limiter.Allow(ev.Symbol, p.maxRPS, p.maxRPS) {
		p.metrics.RecordError("pipeline_throttle")
		return nil
	}

	p.metrics.RecordCandle(ev.Symbol)
	if err := p.proc.Process(ctx, ev); err != nil {
		select {
		case p.bufCh <- ev:
			p.metrics.RecordError("pipeline_downstream")
		default:
			p.metrics.RecordError("pipeline_buffer_drop")
		}
	}
	return nil
}

// stillNewest reports whether ev is still the most recent accepted
// candle for its symbol, i.e. nothing newer arrived since it was
// buffered.
func (p *FeedPipeline) stillNewest(ev *models.CandleEvent) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastEpoch[ev.Symbol] == ev.Candle.Epoch
}

// accept records the epoch and reports whether it advances the symbol's
// series.
func (p *FeedPipeline) accept(ev *models.CandleEvent) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	last, ok := p.lastEpoch[ev.Symbol]
	if ok && ev.Candle.Epoch <= last {
		return false
	}
	p.lastEpoch[ev.Symbol] = ev.Candle.Epoch
	return true
}

func validateCandle(ev *models.CandleEvent) error {
	switch {
	case ev == nil:
		return fmt.Errorf("nil candle event")
	case ev.Symbol == "":
		return fmt.Errorf("candle event missing symbol")
	case ev.Candle.Epoch <= 0:
		return fmt.Errorf("candle for %s has invalid epoch %d", ev.Symbol, ev.Candle.Epoch)
	case ev.Candle.Open <= 0 || ev.Candle.High <= 0 || ev.Candle.Low <= 0 || ev.Candle.Close <= 0:
		return fmt.Errorf("candle for %s has non-positive price", ev.Symbol)
	case ev.Candle.High < ev.Candle.Low:
		return fmt.Errorf("candle for %s has high below low", ev.Symbol)
	}
	return nil
}
