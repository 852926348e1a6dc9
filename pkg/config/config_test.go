package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validYAML = `
environment: test
deriv:
  app_id: "1089"
  token: "secret"
  symbols: ["R_10", "R_25"]
strategy:
  threshold: 0.78
  trade_duration: 60s
risk:
  daily_drawdown: 0.12
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	c, err := Load(writeConfig(t, validYAML))
	require.NoError(t, err)

	assert.Equal(t, "test", c.Environment)
	assert.Equal(t, []string{"R_10", "R_25"}, c.Deriv.Symbols)
	assert.Equal(t, 0.78, c.Strategy.Threshold)
	assert.Equal(t, time.Minute, c.Strategy.TradeDuration)
}

func TestLoad_AppliesDefaults(t *testing.T) {
	c, err := Load(writeConfig(t, validYAML))
	require.NoError(t, err)

	assert.Equal(t, 8080, c.Server.Port)
	assert.Equal(t, "info", c.Logging.Level)
	assert.Equal(t, "wss://ws.derivws.com/websockets/v3", c.Deriv.WebSocketURL)
	assert.Equal(t, 3*time.Second, c.Deriv.ReconnectDelay)
	assert.Equal(t, "none", c.Journal.Type)
	assert.Equal(t, 0.1, c.Advisor.Weight)
}

func TestLoad_FileMissing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoad_InvalidYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "environment: [unterminated"))
	assert.Error(t, err)
}

func TestValidate_Failures(t *testing.T) {
	cases := []struct {
		name string
		yaml string
	}{
		{"missing environment", `
deriv: {app_id: "1089", token: "t", symbols: ["R_10"]}
`},
		{"missing symbols", `
environment: test
deriv: {app_id: "1089", token: "t"}
`},
		{"missing token", `
environment: test
deriv: {app_id: "1089", symbols: ["R_10"]}
`},
		{"bad journal type", `
environment: test
deriv: {app_id: "1089", token: "t", symbols: ["R_10"]}
journal: {type: mongodb}
`},
		{"kafka without brokers", `
environment: test
deriv: {app_id: "1089", token: "t", symbols: ["R_10"]}
journal: {type: kafka}
`},
		{"clickhouse without host", `
environment: test
deriv: {app_id: "1089", token: "t", symbols: ["R_10"]}
journal: {type: clickhouse}
`},
		{"threshold out of range", `
environment: test
deriv: {app_id: "1089", token: "t", symbols: ["R_10"]}
strategy: {threshold: 1.5}
`},
		{"advisor weight out of range", `
environment: test
deriv: {app_id: "1089", token: "t", symbols: ["R_10"]}
advisor: {weight: 2}
`},
		{"negative min stake", `
environment: test
deriv: {app_id: "1089", token: "t", symbols: ["R_10"]}
risk: {min_stake: -1}
`},
		{"negative base stake", `
environment: test
deriv: {app_id: "1089", token: "t", symbols: ["R_10"]}
risk: {base_stake: -10}
`},
		{"risk per trade out of range", `
environment: test
deriv: {app_id: "1089", token: "t", symbols: ["R_10"]}
risk: {risk_per_trade: -0.5}
`},
		{"max stake pct out of range", `
environment: test
deriv: {app_id: "1089", token: "t", symbols: ["R_10"]}
risk: {max_stake_pct: 1.5}
`},
		{"daily take profit out of range", `
environment: test
deriv: {app_id: "1089", token: "t", symbols: ["R_10"]}
risk: {daily_take_profit: 7}
`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tc.yaml))
			assert.Error(t, err)
		})
	}
}

func TestLoadWithEnv_Overrides(t *testing.T) {
	t.Setenv("DERIV_TOKEN", "env-token")
	t.Setenv("SYMBOLS", "R_50,R_75")
	t.Setenv("JOURNAL", "redis")

	_, err := LoadWithEnv(writeConfig(t, validYAML))
	assert.Error(t, err, "redis journal without addr fails re-validation")

	t.Setenv("JOURNAL", "none")
	c, err := LoadWithEnv(writeConfig(t, validYAML))
	require.NoError(t, err)
	assert.Equal(t, "env-token", c.Deriv.Token)
	assert.Equal(t, []string{"R_50", "R_75"}, c.Deriv.Symbols)
}
