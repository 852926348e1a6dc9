// Package deriv implements the MarketFeed against the Deriv WebSocket
// API: authorize, balance subscription, and one streaming 1-minute OHLC
// subscription per symbol with historical backfill.
package deriv

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"PulseTrade/internal/domain/models"
	drepo "PulseTrade/internal/domain/repository"
	"PulseTrade/pkg/logger"
)

const (
	// granularity of the candle subscription, in seconds.
	granularity = 60
	// historyCount is how many candles to backfill on subscribe.
	historyCount = 500
)

// Client implements a MarketFeed backed by the Deriv WebSocket API.
type Client struct {
	appID          string
	token          string
	websocketURL   string
	symbols        []string
	reconnectDelay time.Duration
	pingInterval   time.Duration
	log            *logger.Logger

	mu        sync.Mutex
	conn      *websocket.Conn
	connected bool
}

// New creates a new Deriv MarketFeed.
func New(appID, token, websocketURL string, symbols []string, reconnectDelay, pingInterval time.Duration, log *logger.Logger) drepo.MarketFeed {
	return &Client{
		appID:          appID,
		token:          token,
		websocketURL:   websocketURL,
		symbols:        symbols,
		reconnectDelay: reconnectDelay,
		pingInterval:   pingInterval,
		log:            log,
	}
}

// Connect establishes the WebSocket connection and authorizes.
func (c *Client) Connect(ctx context.Context) error {
	u := fmt.Sprintf("%s?app_id=%s", c.websocketURL, c.appID)
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u, nil)
	if err != nil {
		return fmt.Errorf("deriv connect: %w", err)
	}
	c.mu.Lock()
	c.conn = conn
	c.connected = true
	c.mu.Unlock()

	if err := c.writeJSON(map[string]any{"authorize": c.token}); err != nil {
		return fmt.Errorf("deriv authorize: %w", err)
	}
	c.log.Info("deriv: connected")
	return nil
}

// Subscribe requests balance updates and a streaming candle subscription
// with backfill for every configured symbol. The actual subscription
// confirmations arrive on the read loop.
func (c *Client) Subscribe(ctx context.Context) error {
	if !c.IsConnected() {
		return fmt.Errorf("deriv not connected")
	}
	if err := c.writeJSON(map[string]any{"balance": 1, "subscribe": 1}); err != nil {
		return fmt.Errorf("subscribe balance: %w", err)
	}
	for _, s := range c.symbols {
		req := map[string]any{
			"ticks_history":     s,
			"adjust_start_time": 1,
			"count":             historyCount,
			"end":               "latest",
			"granularity":       granularity,
			"style":             "candles",
			"subscribe":         1,
		}
		if err := c.writeJSON(req); err != nil {
			return fmt.Errorf("subscribe %s: %w", s, err)
		}
		c.log.Info("deriv: subscribed", logger.String("symbol", s))
	}
	return nil
}

type wireCandle struct {
	Open  float64 `json:"open"`
	High  float64 `json:"high"`
	Low   float64 `json:"low"`
	Close float64 `json:"close"`
	Epoch int64   `json:"epoch"`
}

type wireOHLC struct {
	Symbol string  `json:"symbol"`
	Open   float64 `json:"open,string"`
	High   float64 `json:"high,string"`
	Low    float64 `json:"low,string"`
	Close  float64 `json:"close,string"`
	Epoch  int64   `json:"epoch"`
}

type wireMessage struct {
	MsgType string       `json:"msg_type"`
	Candles []wireCandle `json:"candles"`
	OHLC    *wireOHLC    `json:"ohlc"`
	Balance *struct {
		Balance float64 `json:"balance"`
	} `json:"balance"`
	EchoReq struct {
		TicksHistory string `json:"ticks_history"`
	} `json:"echo_req"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Read streams candle and balance events plus errors. Backfilled history
// is replayed in order before the live stream for the symbol.
func (c *Client) Read(ctx context.Context) (<-chan *models.CandleEvent, <-chan *models.BalanceEvent, <-chan error) {
	candles := make(chan *models.CandleEvent, 1024)
	balances := make(chan *models.BalanceEvent, 16)
	errs := make(chan error, 1)

	// ping loop
	go func() {
		ticker := time.NewTicker(c.pingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				c.mu.Lock()
				conn := c.conn
				c.mu.Unlock()
				if conn != nil {
					_ = conn.WriteMessage(websocket.PingMessage, nil)
				}
			}
		}
	}()

	// read loop
	go func() {
		defer close(candles)
		defer close(balances)
		defer close(errs)
		for {
			select {
			case <-ctx.Done():
				return
			default:
				c.mu.Lock()
				conn := c.conn
				c.mu.Unlock()
				if conn == nil {
					errs <- fmt.Errorf("deriv conn nil")
					return
				}
				_, b, err := conn.ReadMessage()
				if err != nil {
					errs <- fmt.Errorf("deriv read: %w", err)
					return
				}
				var m wireMessage
				if err := json.Unmarshal(b, &m); err != nil {
					continue
				}
				c.dispatch(&m, candles, balances)
			}
		}
	}()

	return candles, balances, errs
}

func (c *Client) dispatch(m *wireMessage, candles chan<- *models.CandleEvent, balances chan<- *models.BalanceEvent) {
	// errors ride on the echo of the failed request, whatever its type
	if m.Error != nil {
		c.log.Warn("deriv: api error",
			logger.String("code", m.Error.Code),
			logger.String("message", m.Error.Message))
		return
	}
	switch m.MsgType {
	case "authorize":
		c.log.Info("deriv: authorized")
	case "balance":
		if m.Balance != nil {
			select {
			case balances <- &models.BalanceEvent{Balance: m.Balance.Balance}:
			default:
			}
		}
	case "candles":
		symbol := m.EchoReq.TicksHistory
		if symbol == "" {
			return
		}
		for _, wc := range m.Candles {
			send(candles, &models.CandleEvent{
				Symbol: symbol,
				Candle: models.Candle{
					Open: wc.Open, High: wc.High, Low: wc.Low, Close: wc.Close,
					Epoch: wc.Epoch,
				},
			})
		}
	case "ohlc":
		if m.OHLC == nil || m.OHLC.Symbol == "" || m.OHLC.Epoch == 0 {
			return
		}
		send(candles, &models.CandleEvent{
			Symbol: m.OHLC.Symbol,
			Candle: models.Candle{
				Open: m.OHLC.Open, High: m.OHLC.High, Low: m.OHLC.Low, Close: m.OHLC.Close,
				Epoch: m.OHLC.Epoch,
			},
		})
	}
}

// send drops on backpressure; the pipeline dedupes epochs so a dropped
// intermediate update is recovered by the next one.
func send(ch chan<- *models.CandleEvent, ev *models.CandleEvent) {
	select {
	case ch <- ev:
	default:
	}
}

func (c *Client) writeJSON(payload any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return fmt.Errorf("deriv conn nil")
	}
	return c.conn.WriteJSON(payload)
}

// Reconnect closes, waits, and re-establishes connection plus subscriptions.
func (c *Client) Reconnect(ctx context.Context) error {
	_ = c.Close()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(c.reconnectDelay):
	}
	if err := c.Connect(ctx); err != nil {
		return err
	}
	return c.Subscribe(ctx)
}

// Close closes the WS connection.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connected = false
	if c.conn != nil {
		err := c.conn.Close()
		c.conn = nil
		return err
	}
	return nil
}

// IsConnected indicates status.
func (c *Client) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}
