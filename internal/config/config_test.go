package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DATABASE_TYPE", "")
	t.Setenv("SCHEDULER_INTERVAL", "")
	t.Setenv("REDIS_ADDR", "")

	cfg := Load()

	assert.Equal(t, "postgres", cfg.DBType)
	assert.Equal(t, time.Hour, cfg.Scheduler.Interval)
	assert.Equal(t, 1, cfg.Scheduler.CloseDay)
	assert.False(t, cfg.Redis.Enabled())
	assert.False(t, cfg.IsProduction())
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("DATABASE_TYPE", "SQLITE")
	t.Setenv("ENVIRONMENT", "Production")
	t.Setenv("REDIS_ADDR", " localhost:6379 ")
	t.Setenv("RATE_LIMIT_ENABLED", "yes")
	t.Setenv("RATE_LIMIT_SETTLEMENT_RATE", "2.5")
	t.Setenv("SCHEDULER_ENABLED", "off")
	t.Setenv("SCHEDULER_INTERVAL", "15m")
	t.Setenv("SCHEDULER_CLOSE_DAY", "3")
	t.Setenv("SNOWFLAKE_NODE", "7")

	cfg := Load()

	assert.Equal(t, "sqlite", cfg.DBType)
	assert.True(t, cfg.IsProduction())
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.True(t, cfg.Redis.Enabled())
	assert.True(t, cfg.RateLimit.Enabled)
	assert.Equal(t, 2.5, cfg.RateLimit.SettlementRate)
	assert.False(t, cfg.Scheduler.Enabled)
	assert.Equal(t, 15*time.Minute, cfg.Scheduler.Interval)
	assert.Equal(t, 3, cfg.Scheduler.CloseDay)
	assert.Equal(t, int64(7), cfg.SnowflakeNode)
}

func TestLoadIgnoresMalformedValues(t *testing.T) {
	t.Setenv("SCHEDULER_INTERVAL", "-1s")
	t.Setenv("SCHEDULER_CLOSE_DAY", "first")
	t.Setenv("RATE_LIMIT_ENABLED", "maybe")

	cfg := Load()

	assert.Equal(t, time.Hour, cfg.Scheduler.Interval)
	assert.Equal(t, 1, cfg.Scheduler.CloseDay)
	assert.False(t, cfg.RateLimit.Enabled)
}
