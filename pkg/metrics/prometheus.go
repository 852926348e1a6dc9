package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	candlesTotal     *prometheus.CounterVec
	staleDropsTotal  *prometheus.CounterVec
	evaluationsTotal *prometheus.CounterVec
	skipsTotal       *prometheus.CounterVec
	lastScore        *prometheus.GaugeVec
	tradesOpened     *prometheus.CounterVec
	tradesClosed     *prometheus.CounterVec
	balance          prometheus.Gauge
	errorsTotal      *prometheus.CounterVec
	latency          *prometheus.HistogramVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		candlesTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pulsetrade_candles_total",
				Help: "Total number of 1-minute candles accepted per symbol",
			},
			[]string{"symbol"},
		),
		staleDropsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pulsetrade_stale_drops_total",
				Help: "Total number of stale or duplicate candles dropped",
			},
			[]string{"symbol"},
		),
		evaluationsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pulsetrade_evaluations_total",
				Help: "Total number of strategy evaluations per symbol",
			},
			[]string{"symbol"},
		),
		skipsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pulsetrade_skips_total",
				Help: "Evaluations that did not open a trade, by reason",
			},
			[]string{"symbol", "reason"},
		),
		lastScore: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "pulsetrade_last_score",
				Help: "Last confidence score per symbol",
			},
			[]string{"symbol"},
		),
		tradesOpened: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pulsetrade_trades_opened_total",
				Help: "Total number of trades opened",
			},
			[]string{"symbol", "direction"},
		),
		tradesClosed: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pulsetrade_trades_closed_total",
				Help: "Total number of trades settled, by result",
			},
			[]string{"result"},
		),
		balance: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "pulsetrade_balance",
				Help: "Last known account balance",
			},
		),
		errorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pulsetrade_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		latency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "pulsetrade_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

func (r *Recorder) RecordCandle(symbol string) {
	r.candlesTotal.WithLabelValues(symbol).Inc()
}

func (r *Recorder) RecordStaleDrop(symbol string) {
	r.staleDropsTotal.WithLabelValues(symbol).Inc()
}

func (r *Recorder) RecordEvaluation(symbol string) {
	r.evaluationsTotal.WithLabelValues(symbol).Inc()
}

func (r *Recorder) RecordSkip(symbol, reason string) {
	r.skipsTotal.WithLabelValues(symbol, reason).Inc()
}

func (r *Recorder) RecordScore(symbol string, score float64) {
	r.lastScore.WithLabelValues(symbol).Set(score)
}

func (r *Recorder) RecordTradeOpened(symbol, direction string) {
	r.tradesOpened.WithLabelValues(symbol, direction).Inc()
}

func (r *Recorder) RecordTradeClosed(result string) {
	r.tradesClosed.WithLabelValues(result).Inc()
}

func (r *Recorder) RecordBalance(balance float64) {
	r.balance.Set(balance)
}

func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}
