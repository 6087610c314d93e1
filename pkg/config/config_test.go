package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FinSignal/internal/services/scoring"
)

const minimal = `
environment: test
symbols: [BTCUSDT, ETHUSDT]
kafka:
  brokers: [localhost:9092]
`

func TestParse_AppliesDefaults(t *testing.T) {
	c, err := Parse([]byte(minimal))
	require.NoError(t, err)

	assert.Equal(t, CurrentVersion, c.Version)
	assert.Equal(t, []string{"kafka"}, c.Sinks)
	assert.Equal(t, 8080, c.Server.Port)
	assert.False(t, c.Server.DisableCORS)
	assert.Equal(t, 10, c.Redis.PoolSize)
	assert.Equal(t, 100, c.Kafka.BatchSize)
	assert.Equal(t, time.Minute, c.Cache.CleanupEvery)
	assert.Equal(t, 168*time.Hour, c.Backtest.Expiry)
	assert.Equal(t, 0.70, c.Scoring.MinConfidence)
	assert.Equal(t, 3.0, c.Scoring.MinRiskReward)
	assert.Equal(t, 10, c.Scoring.TopK)
	assert.InDelta(t, 0.35, c.Scoring.Weights[scoring.FactorTechnical], 1e-12)
	assert.Equal(t, 0.5, c.Scoring.PatternMultiplier["SIDEWAYS"])
	assert.Equal(t, 24*time.Hour, c.Dedup.Window)
	assert.Equal(t, "conservative", c.Backtest.TieBreak)
}

func TestParse_Rejections(t *testing.T) {
	cases := map[string]string{
		"future version": minimal + "version: 2\n",
		"no symbols":     "environment: test\nkafka:\n  brokers: [k:9092]\n",
		"unknown weight": minimal + `
scoring:
  weights: {technical: 0.35, sentiment: 0.25, news: 0.15, volume: 0.15, pattern: 0.10, momentum: 0.0}
`,
		"weights sum": minimal + `
scoring:
  weights: {technical: 0.5, sentiment: 0.25, news: 0.15, volume: 0.15, pattern: 0.10}
`,
		"macd periods":     minimal + "indicators:\n  macd_fast: 30\n",
		"vol thresholds":   minimal + "regime:\n  vol_lower: 0.9\n",
		"sink without dsn": minimal + "sinks: [postgres]\n",
		"bad mode":         minimal + "backtest:\n  mode: martingale\n",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(doc))
			assert.Error(t, err)
		})
	}
}

func TestLoadWithEnv_Overrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(minimal), 0o600))

	t.Setenv("SYMBOLS", "SOLUSDT, ADAUSDT")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("POSTGRES_DSN", "postgres://u@h/db")

	c, err := LoadWithEnv(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"SOLUSDT", "ADAUSDT"}, c.Symbols)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, c.Kafka.Brokers)
	assert.Equal(t, "debug", c.Logging.Level)
	assert.Equal(t, "postgres://u@h/db", c.Postgres.DSN)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
