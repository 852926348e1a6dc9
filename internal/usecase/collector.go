package usecase

import (
	"context"

	"PulseTrade/internal/domain/models"
	drepo "PulseTrade/internal/domain/repository"
	mid "PulseTrade/internal/middleware"
	"PulseTrade/pkg/logger"
)

// FeedCollector owns the market feed connection: it connects,
// subscribes, fans candle events into the pipeline and balance events
// into the evaluator, and reconnects on stream errors.
type FeedCollector struct {
	feed      drepo.MarketFeed
	pipe      *mid.FeedPipeline
	evaluator *Evaluator
	metrics   drepo.Metrics
	log       *logger.Logger
}

func NewFeedCollector(feed drepo.MarketFeed, pipe *mid.FeedPipeline, ev *Evaluator, metrics drepo.Metrics, log *logger.Logger) *FeedCollector {
	return &FeedCollector{feed: feed, pipe: pipe, evaluator: ev, metrics: metrics, log: log}
}

// IsConnected reports the feed connection state.
func (c *FeedCollector) IsConnected() bool {
	return c.feed.IsConnected()
}

func (c *FeedCollector) Start(ctx context.Context) error {
	if err := c.feed.Connect(ctx); err != nil {
		return err
	}
	if err := c.feed.Subscribe(ctx); err != nil {
		return err
	}
	c.pipe.Start(ctx)
	candles, balances, errs := c.feed.Read(ctx)
	go c.consume(ctx, candles, balances, errs)
	return nil
}

func (c *FeedCollector) consume(ctx context.Context, candles <-chan *models.CandleEvent, balances <-chan *models.BalanceEvent, errs <-chan error) {
	for {
		select {
		case <-ctx.Done():
			return
		case err := <-errs:
			if err == nil {
				continue
			}
			c.metrics.RecordError("feed")
			c.log.Warn("feed error, reconnecting", logger.Error(err))
			if rerr := c.feed.Reconnect(ctx); rerr != nil {
				c.log.Error("reconnect failed", logger.Error(rerr))
				if ctx.Err() != nil {
					return
				}
				continue
			}
			// a reconnect invalidates the old channels
			candles, balances, errs = c.feed.Read(ctx)
		case ev := <-balances:
			if ev == nil {
				continue
			}
			c.evaluator.OnBalance(ev.Balance)
		case ev := <-candles:
			if ev == nil {
				continue
			}
			if err := c.pipe.Process(ctx, ev); err != nil {
				c.metrics.RecordError("pipeline")
				c.log.Warn("candle rejected", logger.String("symbol", ev.Symbol), logger.Error(err))
			}
		}
	}
}

// Shutdown stops the pipeline, drains the evaluator, and closes the feed.
func (c *FeedCollector) Shutdown(context.Context) error {
	c.pipe.Stop()
	c.evaluator.Stop()
	return c.feed.Close()
}
