package advisor

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"PulseTrade/internal/domain/service"
	"PulseTrade/pkg/logger"
)

func adviseServer(t *testing.T, prob float64, calls *atomic.Int64) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		var req adviseRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "R_10", req.Symbol)
		_ = json.NewEncoder(w).Encode(adviseResponse{Probability: prob})
	}))
}

func TestAdvise_ReturnsServiceProbability(t *testing.T) {
	var calls atomic.Int64
	srv := adviseServer(t, 0.72, &calls)
	defer srv.Close()

	a := NewHTTPAdvisor(srv.URL, logger.Nop())
	p := a.Advise(context.Background(), "R_10", map[string]float64{"rsi": 61})
	assert.Equal(t, 0.72, p)
}

func TestAdvise_CachesPerSymbol(t *testing.T) {
	var calls atomic.Int64
	srv := adviseServer(t, 0.72, &calls)
	defer srv.Close()

	a := NewHTTPAdvisor(srv.URL, logger.Nop(), WithTTL(time.Minute))
	ctx := context.Background()
	a.Advise(ctx, "R_10", nil)
	a.Advise(ctx, "R_10", nil)
	assert.Equal(t, int64(1), calls.Load())
}

func TestAdvise_NeutralOnUnreachableService(t *testing.T) {
	a := NewHTTPAdvisor("http://127.0.0.1:1", logger.Nop())
	p := a.Advise(context.Background(), "R_10", nil)
	assert.Equal(t, service.NeutralProb, p)
}

func TestAdvise_NeutralOnOutOfRangeProbability(t *testing.T) {
	var calls atomic.Int64
	srv := adviseServer(t, 1.7, &calls)
	defer srv.Close()

	a := NewHTTPAdvisor(srv.URL, logger.Nop())
	p := a.Advise(context.Background(), "R_10", nil)
	assert.Equal(t, service.NeutralProb, p)
}

func TestAdvise_OutOfRangeNotCached(t *testing.T) {
	var calls atomic.Int64
	srv := adviseServer(t, -0.2, &calls)
	defer srv.Close()

	a := NewHTTPAdvisor(srv.URL, logger.Nop(), WithTTL(time.Minute))
	ctx := context.Background()
	a.Advise(ctx, "R_10", nil)
	a.Advise(ctx, "R_10", nil)
	assert.Equal(t, int64(2), calls.Load())
}

func TestNeutral(t *testing.T) {
	assert.Equal(t, service.NeutralProb, Neutral{}.Advise(context.Background(), "R_10", nil))
}
