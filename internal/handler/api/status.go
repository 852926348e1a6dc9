package api

import (
	"time"

	"github.com/labstack/echo/v4"

	"PulseTrade/internal/correlation"
	"PulseTrade/internal/domain/models"
	domrepo "PulseTrade/internal/domain/repository"
	"PulseTrade/internal/engine"
	"PulseTrade/internal/market"
	"PulseTrade/internal/risk"
	"PulseTrade/internal/usecase"
	xhttp "PulseTrade/pkg/http"
	xlogger "PulseTrade/pkg/logger"
)

// StatusHandler exposes the live decision state over HTTP: last
// evaluations, the trade ledger, risk state, and the correlation matrix.
type StatusHandler struct {
	logger    *xlogger.Logger
	evaluator *usecase.Evaluator
	engine    *engine.Engine
	risk      *risk.Manager
	guard     *correlation.Guard
	feed      domrepo.MarketFeed
	agg       *market.Aggregator
}

func NewStatusHandler(
	logger *xlogger.Logger,
	evaluator *usecase.Evaluator,
	eng *engine.Engine,
	riskMgr *risk.Manager,
	guard *correlation.Guard,
	feed domrepo.MarketFeed,
	agg *market.Aggregator,
) *StatusHandler {
	return &StatusHandler{
		logger:    logger,
		evaluator: evaluator,
		engine:    eng,
		risk:      riskMgr,
		guard:     guard,
		feed:      feed,
		agg:       agg,
	}
}

func (h *StatusHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", h.Health)
	g := e.Group("/api")
	g.GET("/signals", h.Signals)
	g.GET("/signals/:symbol", h.Signal)
	g.GET("/trades", h.Trades)
	g.GET("/risk", h.Risk)
	g.GET("/correlations", h.Correlations)
	g.GET("/candles/:symbol", h.Candles)
}

type healthResponse struct {
	Status    string  `json:"status"`
	Connected bool    `json:"connected"`
	Balance   float64 `json:"balance"`
}

func (h *StatusHandler) Health(c echo.Context) error {
	connected := h.feed != nil && h.feed.IsConnected()
	status := "ok"
	if !connected {
		status = "degraded"
	}
	return xhttp.SuccessResponse(c, healthResponse{
		Status:    status,
		Connected: connected,
		Balance:   h.engine.Balance(),
	})
}

func (h *StatusHandler) Signals(c echo.Context) error {
	return xhttp.SuccessResponse(c, h.evaluator.Snapshots())
}

func (h *StatusHandler) Signal(c echo.Context) error {
	symbol := c.Param("symbol")
	snap, ok := h.evaluator.Snapshot(symbol)
	if !ok {
		return xhttp.AppErrorResponse(c, xhttp.NotFoundErrorf("no signal for symbol %q", symbol))
	}
	return xhttp.SuccessResponse(c, snap)
}

// TradesRequest filters the ledger listing. From accepts RFC3339 or
// unix seconds.
type TradesRequest struct {
	Status string `query:"status" validate:"omitempty,oneof=open closed"`
	From   string `query:"from"`
	Limit  int    `query:"limit" default:"100" validate:"gte=0,lte=1000"`
}

func (h *StatusHandler) Trades(c echo.Context) error {
	req := &TradesRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	from := xhttp.ParseTimeDefault(req.From, time.Time{})

	all := h.engine.Trades()
	total := int64(len(all))
	filtered := make([]models.Trade, 0, len(all))
	for _, t := range all {
		if req.Status != "" && string(t.Status) != req.Status {
			continue
		}
		if !from.IsZero() && t.OpenedAt.Before(from) {
			continue
		}
		filtered = append(filtered, t)
	}
	if req.Limit > 0 && len(filtered) > req.Limit {
		filtered = filtered[len(filtered)-req.Limit:]
	}
	return xhttp.ListResponse(c, filtered, total)
}

func (h *StatusHandler) Risk(c echo.Context) error {
	return xhttp.SuccessResponse(c, h.risk.State())
}

type correlationsResponse struct {
	Matrix    map[string]float64 `json:"matrix"`
	HighPairs []string           `json:"high_pairs"`
}

// CandlesRequest selects the timeframe and depth of the series view.
type CandlesRequest struct {
	TF    string `query:"tf"`
	Count int    `query:"count" default:"100" validate:"gte=1,lte=1000"`
}

func (h *StatusHandler) Candles(c echo.Context) error {
	req := &CandlesRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	symbol := c.Param("symbol")
	tf := domrepo.NormalizeTimeframe(req.TF)

	series := h.agg.Series(symbol, tf)
	if len(series) == 0 {
		return xhttp.AppErrorResponse(c, xhttp.NotFoundErrorf("no candles for symbol %q", symbol))
	}
	if len(series) > req.Count {
		series = series[len(series)-req.Count:]
	}
	return xhttp.ListResponse(c, series, int64(len(series)))
}

func (h *StatusHandler) Correlations(c echo.Context) error {
	matrix := make(map[string]float64)
	for pair, r := range h.guard.Matrix() {
		matrix[pair.A+"/"+pair.B] = r
	}
	high := make([]string, 0)
	for _, pair := range h.guard.HighPairs() {
		high = append(high, pair.A+"/"+pair.B)
	}
	return xhttp.SuccessResponse(c, correlationsResponse{Matrix: matrix, HighPairs: high})
}
