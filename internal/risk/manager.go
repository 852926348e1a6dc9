// Package risk sizes positions and enforces the session safety stops:
// streak-aware stake adjustment, loss-streak pause windows, and latched
// daily take-profit/drawdown limits.
package risk

import (
	"math"
	"sync"
	"time"
)

// LimitHit identifies which daily limit a balance check crossed.
type LimitHit int

const (
	LimitNone LimitHit = iota
	LimitTakeProfit
	LimitDrawdown
)

func (l LimitHit) String() string {
	switch l {
	case LimitTakeProfit:
		return "take-profit reached"
	case LimitDrawdown:
		return "drawdown reached"
	default:
		return ""
	}
}

// Config holds the risk parameters. Validated at startup by pkg/config;
// the manager assumes sane values.
type Config struct {
	RiskPerTrade     float64       // fraction of balance per trade
	BaseAmount       float64       // floor before the max-stake cap
	MaxStakePct      float64       // cap as fraction of balance
	MinStake         float64       // absolute stake floor
	WinStreakTrigger int           // wins needed for the boost
	WinStreakBoost   float64       // stake multiplier on a win streak
	LossReduction    float64       // stake multiplier on any loss streak
	LossStreakPause  int           // losses that trigger a timed pause
	PauseDuration    time.Duration // length of the pause
	DailyTakeProfit  float64       // fraction of day-start balance
	DailyDrawdown    float64       // fraction of day-start balance
}

// DefaultConfig mirrors the production tuning.
func DefaultConfig() Config {
	return Config{
		RiskPerTrade:     0.003,
		BaseAmount:       10.0,
		MaxStakePct:      0.01,
		MinStake:         0.35,
		WinStreakTrigger: 2,
		WinStreakBoost:   1.25,
		LossReduction:    0.75,
		LossStreakPause:  24,
		PauseDuration:    120 * time.Second,
		DailyTakeProfit:  0.10,
		DailyDrawdown:    0.12,
	}
}

// State is a read-only snapshot of the manager for the status API.
type State struct {
	DayStartBalance float64   `json:"day_start_balance"`
	WinStreak       int       `json:"win_streak"`
	LossStreak      int       `json:"loss_streak"`
	PausedUntil     time.Time `json:"paused_until,omitempty"`
	DayStopped      bool      `json:"day_stopped"`
}

// Manager is the shared risk state machine. All methods are safe for
// concurrent use; the clock is injectable for tests.
type Manager struct {
	mu  sync.Mutex
	cfg Config
	now func() time.Time

	dayStartBalance float64
	winStreak       int
	lossStreak      int
	pauseUntil      time.Time
	dayStopped      bool
}

// NewManager creates a manager with cfg and the wall clock.
func NewManager(cfg Config) *Manager {
	return &Manager{cfg: cfg, now: time.Now}
}

// WithClock overrides the clock; used by tests.
func (m *Manager) WithClock(now func() time.Time) *Manager {
	m.now = now
	return m
}

// ComputeStake sizes the next trade: max(balance*riskPerTrade, baseAmount)
// capped at balance*maxStakePct, boosted on a win streak, reduced on any
// loss streak, floored at MinStake, rounded to cents.
func (m *Manager) ComputeStake(balance float64) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	stake := math.Max(balance*m.cfg.RiskPerTrade, m.cfg.BaseAmount)
	stake = math.Min(stake, balance*m.cfg.MaxStakePct)
	if m.winStreak >= m.cfg.WinStreakTrigger {
		stake *= m.cfg.WinStreakBoost
	}
	if m.lossStreak >= 1 {
		stake *= m.cfg.LossReduction
	}
	stake = math.Round(stake*100) / 100
	return math.Max(m.cfg.MinStake, stake)
}

// OnTradeResult folds a realized profit into the streak state. A zero
// profit resets the win streak without counting as a loss. Reaching the
// loss-streak threshold starts a timed pause and resets the counter.
func (m *Manager) OnTradeResult(profit float64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch {
	case profit > 0:
		m.winStreak++
		m.lossStreak = 0
	case profit < 0:
		m.lossStreak++
		m.winStreak = 0
	default:
		m.winStreak = 0
	}

	if m.cfg.LossStreakPause > 0 && m.lossStreak >= m.cfg.LossStreakPause {
		m.pauseUntil = m.now().Add(m.cfg.PauseDuration)
		m.lossStreak = 0
	}
}

// CanTradeNow reports whether opening is allowed: not paused, balance at
// least the minimum stake, and the day not stopped.
func (m *Manager) CanTradeNow(balance float64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.now().Before(m.pauseUntil) {
		return false
	}
	return balance >= m.cfg.MinStake && !m.dayStopped
}

// SetDayStart begins a fresh trading day with the opening balance,
// clearing the daily stop latch.
func (m *Manager) SetDayStart(balance float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dayStartBalance = balance
	m.dayStopped = false
}

// CheckDailyLimits compares the day's cumulative P&L against the opening
// balance. Crossing either limit latches the day stopped and reports the
// transition exactly once; further calls return LimitNone until a new
// SetDayStart.
func (m *Manager) CheckDailyLimits(currentBalance float64) LimitHit {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.dayStopped {
		return LimitNone
	}
	pnl := currentBalance - m.dayStartBalance
	if pnl >= m.dayStartBalance*m.cfg.DailyTakeProfit {
		m.dayStopped = true
		return LimitTakeProfit
	}
	if pnl <= -m.dayStartBalance*m.cfg.DailyDrawdown {
		m.dayStopped = true
		return LimitDrawdown
	}
	return LimitNone
}

// DayStopped reports the daily stop latch.
func (m *Manager) DayStopped() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.dayStopped
}

// State returns a snapshot for the status API.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return State{
		DayStartBalance: m.dayStartBalance,
		WinStreak:       m.winStreak,
		LossStreak:      m.lossStreak,
		PausedUntil:     m.pauseUntil,
		DayStopped:      m.dayStopped,
	}
}
