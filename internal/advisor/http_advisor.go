// Package advisor queries an external model service for a win
// probability used to nudge the rule-based score. The advisor is
// strictly best-effort: any failure degrades to a neutral probability
// so the decision path never blocks on it.
package advisor

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	httpclient "PulseTrade/pkg/http"
	"PulseTrade/pkg/logger"

	"PulseTrade/internal/domain/service"
	"PulseTrade/internal/service/cache"
)

const (
	// DefaultTTL bounds how long a probability is reused per symbol.
	DefaultTTL = 20 * time.Second

	defaultTimeout = 2 * time.Second
)

type adviseRequest struct {
	Symbol   string             `json:"symbol"`
	Features map[string]float64 `json:"features"`
}

type adviseResponse struct {
	Probability float64 `json:"probability"`
}

// HTTPAdvisor asks a remote service to score a feature vector.
type HTTPAdvisor struct {
	url    string
	client *httpclient.Client
	cache  cache.BytesCache
	ttl    time.Duration
	log    *logger.Logger
}

var _ service.Advisor = (*HTTPAdvisor)(nil)

type Option func(*HTTPAdvisor)

func WithTTL(ttl time.Duration) Option {
	return func(a *HTTPAdvisor) { a.ttl = ttl }
}

func WithCache(c cache.BytesCache) Option {
	return func(a *HTTPAdvisor) { a.cache = c }
}

func NewHTTPAdvisor(url string, log *logger.Logger, opts ...Option) *HTTPAdvisor {
	a := &HTTPAdvisor{
		url:    url,
		client: httpclient.NewClient(httpclient.WithTimeout(defaultTimeout)),
		cache:  cache.NewTTLCache(),
		ttl:    DefaultTTL,
		log:    log,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Advise returns the model's win probability for the symbol, or
// service.NeutralProb when the service is unreachable, slow, or returns
// an out-of-range value.
func (a *HTTPAdvisor) Advise(ctx context.Context, symbol string, features map[string]float64) float64 {
	key := cacheKey(symbol)
	if b, ok, err := a.cache.GetBytes(ctx, key); err == nil && ok {
		var resp adviseResponse
		if json.Unmarshal(b, &resp) == nil && valid(resp.Probability) {
			return resp.Probability
		}
	}

	var resp adviseResponse
	err := a.client.SendAndParse(ctx, &httpclient.RequestOptions{
		Method: httpclient.MethodPost,
		URL:    a.url,
		Body:   adviseRequest{Symbol: symbol, Features: features},
	}, &resp)
	if err != nil {
		a.log.Warn("advisor unavailable, using neutral probability",
			logger.String("symbol", symbol), logger.Error(err))
		return service.NeutralProb
	}
	if !valid(resp.Probability) {
		a.log.Warn("advisor returned out-of-range probability",
			logger.String("symbol", symbol), logger.Float64("probability", resp.Probability))
		return service.NeutralProb
	}

	if b, err := json.Marshal(resp); err == nil {
		_ = a.cache.SetBytes(ctx, key, b, a.ttl)
	}
	return resp.Probability
}

func valid(p float64) bool {
	return p >= 0 && p <= 1
}

func cacheKey(symbol string) string {
	return fmt.Sprintf("advisor:prob:%s", symbol)
}

// Neutral always answers service.NeutralProb. It is wired when no
// advisor URL is configured.
type Neutral struct{}

var _ service.Advisor = Neutral{}

func (Neutral) Advise(context.Context, string, map[string]float64) float64 {
	return service.NeutralProb
}
