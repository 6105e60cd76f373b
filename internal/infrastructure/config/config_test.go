package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setCollaborators(t *testing.T) {
	t.Setenv("GATEWAY_BASE_URL", "http://gateway.local")
	t.Setenv("ORACLE_BASE_URL", "http://oracle.local")
	t.Setenv("ALLOCATION_BASE_URL", "http://allocation.local")
}

func TestLoad_Defaults(t *testing.T) {
	setCollaborators(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "0 * * * *", cfg.Scheduler.Schedule)
	assert.Equal(t, 3, cfg.Scheduler.MaxConcurrentFunds)
	assert.Equal(t, 10, cfg.Execution.PollAttempts)
	assert.Equal(t, 5, cfg.Execution.PollIntervalSeconds)
	assert.Equal(t, 1, cfg.Execution.SubmitRetries)
	assert.InDelta(t, 1.0, cfg.Execution.SlippagePercent, 1e-9)
	assert.InDelta(t, 0.001, cfg.Execution.MinTradeValue, 1e-12)
	assert.Equal(t, "http://gateway.local", cfg.Gateway.BaseURL)
	assert.Contains(t, cfg.Database.URL, "fund_service")
	assert.False(t, cfg.Redis.Enabled)
}

func TestLoad_EnvOverrides(t *testing.T) {
	setCollaborators(t)
	t.Setenv("DATABASE_URL", "postgres://u:p@db:5432/funds?sslmode=require")
	t.Setenv("REDIS_URL", "redis://cache:6379/1")
	t.Setenv("GATEWAY_API_KEY", "gw-key")
	t.Setenv("SCHEDULER_MAX_CONCURRENT_FUNDS", "5")
	t.Setenv("PORT", "9090")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres://u:p@db:5432/funds?sslmode=require", cfg.Database.URL)
	assert.True(t, cfg.Redis.Enabled)
	assert.Equal(t, "redis://cache:6379/1", cfg.Redis.URL)
	assert.Equal(t, "gw-key", cfg.Gateway.APIKey)
	assert.Equal(t, 5, cfg.Scheduler.MaxConcurrentFunds)
	assert.Equal(t, 9090, cfg.Server.Port)
}

func TestLoad_RequiresCollaboratorURLs(t *testing.T) {
	t.Setenv("GATEWAY_BASE_URL", "http://gateway.local")
	t.Setenv("ORACLE_BASE_URL", "")
	t.Setenv("ALLOCATION_BASE_URL", "http://allocation.local")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "oracle base url")
}
