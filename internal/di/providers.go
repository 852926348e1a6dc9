package di

import (
	"context"
	"fmt"
	"time"

	"PulseTrade/internal/advisor"
	"PulseTrade/internal/correlation"
	"PulseTrade/internal/domain/repository"
	domservice "PulseTrade/internal/domain/service"
	"PulseTrade/internal/engine"
	"PulseTrade/internal/features"
	"PulseTrade/internal/handler/api"
	"PulseTrade/internal/market"
	mid "PulseTrade/internal/middleware"
	internalrepo "PulseTrade/internal/repository"
	"PulseTrade/internal/risk"
	icache "PulseTrade/internal/service/cache"
	"PulseTrade/internal/service/deriv"
	"PulseTrade/internal/service/settlement"
	"PulseTrade/internal/strategy"
	"PulseTrade/internal/usecase"
	pkgch "PulseTrade/pkg/clickhouse"
	"PulseTrade/pkg/config"
	xhttp "PulseTrade/pkg/http"
	pkgkafka "PulseTrade/pkg/kafka"
	"PulseTrade/pkg/logger"
	"PulseTrade/pkg/metrics"
	"PulseTrade/pkg/server"
)

// ProvideLogger creates the application logger from config.
func ProvideLogger(cfg *config.Config) (*logger.Logger, error) {
	return logger.New(&logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideAggregator creates the shared candle aggregator.
func ProvideAggregator() *market.Aggregator {
	return market.NewAggregator(market.DefaultCapacity)
}

// ProvideFeatureEngine creates the feature engine on the aggregator.
func ProvideFeatureEngine(agg *market.Aggregator) *features.Engine {
	return features.NewEngine(agg)
}

// ProvideStrategy creates the scoring strategy.
func ProvideStrategy() *strategy.Strategy {
	return strategy.New()
}

// ProvideGuard creates the correlation guard.
func ProvideGuard(cfg *config.Config) *correlation.Guard {
	return correlation.NewGuard(cfg.Correlation.Capacity, cfg.Correlation.Threshold)
}

// ProvideRiskManager creates the risk manager, overlaying configured
// values on the defaults.
func ProvideRiskManager(cfg *config.Config) *risk.Manager {
	rc := risk.DefaultConfig()
	if cfg.Risk.RiskPerTrade > 0 {
		rc.RiskPerTrade = cfg.Risk.RiskPerTrade
	}
	if cfg.Risk.BaseStake > 0 {
		rc.BaseAmount = cfg.Risk.BaseStake
	}
	if cfg.Risk.MaxStakePct > 0 {
		rc.MaxStakePct = cfg.Risk.MaxStakePct
	}
	if cfg.Risk.MinStake > 0 {
		rc.MinStake = cfg.Risk.MinStake
	}
	if cfg.Risk.WinStreakTrigger > 0 {
		rc.WinStreakTrigger = cfg.Risk.WinStreakTrigger
	}
	if cfg.Risk.LossStreakPause > 0 {
		rc.LossStreakPause = cfg.Risk.LossStreakPause
	}
	if cfg.Risk.PauseDuration > 0 {
		rc.PauseDuration = cfg.Risk.PauseDuration
	}
	if cfg.Risk.DailyTakeProfit > 0 {
		rc.DailyTakeProfit = cfg.Risk.DailyTakeProfit
	}
	if cfg.Risk.DailyDrawdown > 0 {
		rc.DailyDrawdown = cfg.Risk.DailyDrawdown
	}
	return risk.NewManager(rc)
}

// ProvideEngine creates the trade ledger.
func ProvideEngine(cfg *config.Config, riskMgr *risk.Manager) *engine.Engine {
	return engine.New(cfg.Engine.MaxOpenTotal, cfg.Engine.MaxOpenPerSymbol, riskMgr)
}

// ProvideJournal selects and builds the journal backend from config.
func ProvideJournal(cfg *config.Config) (repository.Journal, error) {
	switch cfg.Journal.Type {
	case "kafka":
		producer, err := pkgkafka.NewProducer(
			pkgkafka.WithBrokers(cfg.Journal.Kafka.Brokers),
			pkgkafka.WithCompression(cfg.Journal.Kafka.Compression),
			pkgkafka.WithRequiredAcks(cfg.Journal.Kafka.RequiredAcks),
			pkgkafka.WithHashByKey(true),
		)
		if err != nil {
			return nil, fmt.Errorf("kafka producer: %w", err)
		}
		return internalrepo.NewKafkaJournal(producer, cfg.Journal.Kafka.OpenTopic, cfg.Journal.Kafka.CloseTopic), nil
	case "clickhouse":
		client, err := pkgch.NewClient(
			pkgch.WithHost(cfg.Journal.ClickHouse.Host),
			pkgch.WithPort(cfg.Journal.ClickHouse.Port),
			pkgch.WithDatabase(cfg.Journal.ClickHouse.Database),
			pkgch.WithCredentials(cfg.Journal.ClickHouse.User, cfg.Journal.ClickHouse.Password),
			pkgch.WithHTTP(cfg.Journal.ClickHouse.UseHTTP),
			pkgch.WithTimeouts(cfg.Journal.ClickHouse.DialTimeout, cfg.Journal.ClickHouse.ReadTimeout, cfg.Journal.ClickHouse.WriteTimeout),
		)
		if err != nil {
			return nil, fmt.Errorf("clickhouse client: %w", err)
		}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		journal, err := internalrepo.NewClickHouseJournal(ctx, client)
		if err != nil {
			_ = client.Close()
			return nil, err
		}
		return journal, nil
	case "redis":
		rc := icache.NewRedisCache(icache.RedisConfig{
			Addr:     cfg.Journal.Redis.Addr,
			Password: cfg.Journal.Redis.Password,
			DB:       cfg.Journal.Redis.DB,
		})
		return internalrepo.NewRedisJournal(rc.Client(), cfg.Journal.Redis.Stream), nil
	default:
		return internalrepo.NopJournal{}, nil
	}
}

// ProvideAdvisor builds the advisor, falling back to a neutral one when
// no URL is configured.
func ProvideAdvisor(cfg *config.Config, log *logger.Logger) domservice.Advisor {
	if cfg.Advisor.URL == "" {
		return advisor.Neutral{}
	}
	opts := []advisor.Option{}
	if cfg.Advisor.CacheTTL > 0 {
		opts = append(opts, advisor.WithTTL(cfg.Advisor.CacheTTL))
	}
	if cfg.Advisor.Redis.Enabled {
		opts = append(opts, advisor.WithCache(icache.NewRedisCache(icache.RedisConfig{
			Addr:     cfg.Advisor.Redis.Addr,
			Password: cfg.Advisor.Redis.Password,
			DB:       cfg.Advisor.Redis.DB,
		})))
	}
	return advisor.NewHTTPAdvisor(cfg.Advisor.URL, log, opts...)
}

// ProvideSettler creates the mark-price settler.
func ProvideSettler(agg *market.Aggregator) domservice.Settler {
	return settlement.NewMarkPrice(agg, settlement.DefaultPayout)
}

// ProvideEvaluator assembles the decision loop.
func ProvideEvaluator(
	cfg *config.Config,
	agg *market.Aggregator,
	featEngine *features.Engine,
	strat *strategy.Strategy,
	guard *correlation.Guard,
	riskMgr *risk.Manager,
	eng *engine.Engine,
	adv domservice.Advisor,
	settler domservice.Settler,
	journal repository.Journal,
	m repository.Metrics,
	log *logger.Logger,
) *usecase.Evaluator {
	return usecase.NewEvaluator(
		usecase.EvaluatorConfig{
			Threshold:     cfg.Strategy.Threshold,
			AdvisorWeight: cfg.Advisor.Weight,
			TradeDuration: cfg.Strategy.TradeDuration,
		},
		agg, featEngine, strat, guard, riskMgr, eng, adv, settler, journal, m, log,
	)
}

// ProvideFeed creates the Deriv market feed.
func ProvideFeed(cfg *config.Config, log *logger.Logger) repository.MarketFeed {
	return deriv.New(
		cfg.Deriv.AppID,
		cfg.Deriv.Token,
		cfg.Deriv.WebSocketURL,
		cfg.Deriv.Symbols,
		cfg.Deriv.ReconnectDelay,
		cfg.Deriv.PingInterval,
		log,
	)
}

// ProvideCollector builds the pipeline in front of the evaluator and the
// collector in front of the feed.
func ProvideCollector(
	cfg *config.Config,
	feed repository.MarketFeed,
	ev *usecase.Evaluator,
	m repository.Metrics,
	log *logger.Logger,
) *usecase.FeedCollector {
	pipeOpts := []mid.PipelineOption{}
	if cfg.Pipeline.MaxRPS > 0 {
		pipeOpts = append(pipeOpts, mid.WithMaxRPS(cfg.Pipeline.MaxRPS))
	}
	if cfg.Pipeline.BufferSize > 0 {
		pipeOpts = append(pipeOpts, mid.WithBufferSize(cfg.Pipeline.BufferSize))
	}
	pipe := mid.NewFeedPipeline(ev, m, pipeOpts...)
	return usecase.NewFeedCollector(feed, pipe, ev, m, log)
}

// ProvideStatusHandler builds the HTTP status handler.
func ProvideStatusHandler(
	log *logger.Logger,
	ev *usecase.Evaluator,
	eng *engine.Engine,
	riskMgr *risk.Manager,
	guard *correlation.Guard,
	feed repository.MarketFeed,
	agg *market.Aggregator,
) xhttp.Handler {
	return api.NewStatusHandler(log, ev, eng, riskMgr, guard, feed, agg)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	log *logger.Logger,
	collector *usecase.FeedCollector,
	ev *usecase.Evaluator,
	journal repository.Journal,
	handler xhttp.Handler,
) *server.App {
	return server.New(cfg, log, collector, ev, journal, handler)
}
