package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `yaml:"environment"`
	Logging     struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
		Output string `yaml:"output"`
	} `yaml:"logging"`
	Server struct {
		Port            int           `yaml:"port"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	} `yaml:"server"`
	Deriv struct {
		AppID          string        `yaml:"app_id"`
		Token          string        `yaml:"token"`
		WebSocketURL   string        `yaml:"websocket_url"`
		Symbols        []string      `yaml:"symbols"`
		ReconnectDelay time.Duration `yaml:"reconnect_delay"`
		PingInterval   time.Duration `yaml:"ping_interval"`
	} `yaml:"deriv"`
	Pipeline struct {
		MaxRPS     float64 `yaml:"max_rps"`
		BufferSize int     `yaml:"buffer_size"`
	} `yaml:"pipeline"`
	Strategy struct {
		Threshold     float64       `yaml:"threshold"`
		TradeDuration time.Duration `yaml:"trade_duration"`
	} `yaml:"strategy"`
	Risk struct {
		RiskPerTrade     float64       `yaml:"risk_per_trade"`
		BaseStake        float64       `yaml:"base_stake"`
		MaxStakePct      float64       `yaml:"max_stake_pct"`
		MinStake         float64       `yaml:"min_stake"`
		WinStreakTrigger int           `yaml:"win_streak_trigger"`
		LossStreakPause  int           `yaml:"loss_streak_pause"`
		PauseDuration    time.Duration `yaml:"pause_duration"`
		DailyTakeProfit  float64       `yaml:"daily_take_profit"`
		DailyDrawdown    float64       `yaml:"daily_drawdown"`
	} `yaml:"risk"`
	Engine struct {
		MaxOpenTotal     int `yaml:"max_open_total"`
		MaxOpenPerSymbol int `yaml:"max_open_per_symbol"`
	} `yaml:"engine"`
	Correlation struct {
		Capacity  int     `yaml:"capacity"`
		Threshold float64 `yaml:"threshold"`
	} `yaml:"correlation"`
	Journal struct {
		Type  string `yaml:"type"` // kafka, clickhouse, redis, none
		Kafka struct {
			Brokers      []string `yaml:"brokers"`
			OpenTopic    string   `yaml:"open_topic"`
			CloseTopic   string   `yaml:"close_topic"`
			RequiredAcks int      `yaml:"required_acks"`
			Compression  string   `yaml:"compression"`
		} `yaml:"kafka"`
		ClickHouse struct {
			Host         string        `yaml:"host"`
			Port         int           `yaml:"port"`
			Database     string        `yaml:"database"`
			User         string        `yaml:"user"`
			Password     string        `yaml:"password"`
			UseHTTP      bool          `yaml:"use_http"`
			DialTimeout  time.Duration `yaml:"dial_timeout"`
			ReadTimeout  time.Duration `yaml:"read_timeout"`
			WriteTimeout time.Duration `yaml:"write_timeout"`
		} `yaml:"clickhouse"`
		Redis struct {
			Addr     string `yaml:"addr"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
			Stream   string `yaml:"stream"`
		} `yaml:"redis"`
	} `yaml:"journal"`
	Advisor struct {
		URL      string        `yaml:"url"`
		Weight   float64       `yaml:"weight"`
		CacheTTL time.Duration `yaml:"cache_ttl"`
		Redis    struct {
			Enabled  bool   `yaml:"enabled"`
			Addr     string `yaml:"addr"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
		} `yaml:"redis"`
	} `yaml:"advisor"`
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	c.applyDefaults()
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("DERIV_APP_ID"); v != "" {
		c.Deriv.AppID = v
	}
	if v := os.Getenv("DERIV_TOKEN"); v != "" {
		c.Deriv.Token = v
	}
	if v := os.Getenv("SYMBOLS"); v != "" {
		c.Deriv.Symbols = strings.Split(v, ",")
	}
	if v := os.Getenv("JOURNAL"); v != "" {
		c.Journal.Type = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Journal.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("ADVISOR_URL"); v != "" {
		c.Advisor.URL = v
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

func (c *Config) applyDefaults() {
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "console"
	}
	if c.Logging.Output == "" {
		c.Logging.Output = "stdout"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Deriv.WebSocketURL == "" {
		c.Deriv.WebSocketURL = "wss://ws.derivws.com/websockets/v3"
	}
	if c.Deriv.ReconnectDelay == 0 {
		c.Deriv.ReconnectDelay = 3 * time.Second
	}
	if c.Deriv.PingInterval == 0 {
		c.Deriv.PingInterval = 20 * time.Second
	}
	if c.Journal.Type == "" {
		c.Journal.Type = "none"
	}
	if c.Advisor.Weight == 0 {
		c.Advisor.Weight = 0.1
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if len(c.Deriv.Symbols) == 0 {
		return fmt.Errorf("deriv.symbols cannot be empty")
	}
	if c.Deriv.AppID == "" {
		return fmt.Errorf("deriv.app_id is required")
	}
	if c.Deriv.Token == "" {
		return fmt.Errorf("deriv.token is required")
	}
	switch c.Journal.Type {
	case "kafka":
		if len(c.Journal.Kafka.Brokers) == 0 {
			return fmt.Errorf("journal.kafka.brokers cannot be empty")
		}
	case "clickhouse":
		if c.Journal.ClickHouse.Host == "" {
			return fmt.Errorf("journal.clickhouse.host is required")
		}
	case "redis":
		if c.Journal.Redis.Addr == "" {
			return fmt.Errorf("journal.redis.addr is required")
		}
	case "none":
	default:
		return fmt.Errorf("journal.type must be 'kafka', 'clickhouse', 'redis' or 'none', got '%s'", c.Journal.Type)
	}
	if c.Strategy.Threshold < 0 || c.Strategy.Threshold > 1 {
		return fmt.Errorf("strategy.threshold must be in [0,1]")
	}
	// Zero risk values mean "use the default"; negative or out-of-range
	// ones refuse to start rather than trade with broken stake bounds.
	if c.Risk.RiskPerTrade < 0 || c.Risk.RiskPerTrade > 1 {
		return fmt.Errorf("risk.risk_per_trade must be in [0,1]")
	}
	if c.Risk.BaseStake < 0 {
		return fmt.Errorf("risk.base_stake cannot be negative")
	}
	if c.Risk.MaxStakePct < 0 || c.Risk.MaxStakePct > 1 {
		return fmt.Errorf("risk.max_stake_pct must be in [0,1]")
	}
	if c.Risk.MinStake < 0 {
		return fmt.Errorf("risk.min_stake cannot be negative")
	}
	if c.Risk.DailyTakeProfit < 0 || c.Risk.DailyTakeProfit > 1 {
		return fmt.Errorf("risk.daily_take_profit must be in [0,1]")
	}
	if c.Risk.DailyDrawdown < 0 || c.Risk.DailyDrawdown > 1 {
		return fmt.Errorf("risk.daily_drawdown must be in [0,1]")
	}
	if c.Advisor.Weight < 0 || c.Advisor.Weight > 1 {
		return fmt.Errorf("advisor.weight must be in [0,1]")
	}
	return nil
}
