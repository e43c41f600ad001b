package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyDefaults(t *testing.T) {
	cfg := &Config{}
	applyDefaults(cfg)

	assert.Equal(t, "fullsync", cfg.App.Name)
	assert.Equal(t, "development", cfg.App.Env)
	assert.Equal(t, "8080", cfg.App.Port)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, "disable", cfg.Database.SSLMode)
	assert.Equal(t, 6379, cfg.Redis.Port)
	assert.Equal(t, "info", cfg.Log.Level)

	assert.Equal(t, "https://api.mercadolibre.com", cfg.Marketplace.APIBaseURL)
	assert.Equal(t, 20, cfg.Marketplace.BatchSize)
	assert.Equal(t, 2*time.Second, cfg.Marketplace.BatchDelay)
	assert.Equal(t, 3, cfg.Marketplace.MaxRetries)

	assert.Equal(t, 1*time.Minute, cfg.Pipeline.StageDelay)
	assert.Equal(t, 2*time.Hour, cfg.Pipeline.LeaseTTL)
	assert.Equal(t, 3, cfg.Pipeline.MaxConsecutiveFailures)
	assert.Equal(t, 30, cfg.Pipeline.OrderLookbackDays)
	assert.Equal(t, 90, cfg.Pipeline.SalesWindowDays)
	assert.Equal(t, 1*time.Hour, cfg.Pipeline.StockCacheTTL)

	assert.Equal(t, 14, cfg.Replenish.LeadTimeDays)
	assert.InDelta(t, 1.65, cfg.Replenish.ServiceLevel, 1e-9)
	assert.Equal(t, 30, cfg.Replenish.EvalWindowDays)
	assert.Equal(t, "days_with_sales", cfg.Replenish.DemandPolicy)
}

func TestApplyDefaults_CapsBatchSize(t *testing.T) {
	cfg := &Config{}
	cfg.Marketplace.BatchSize = 50
	applyDefaults(cfg)
	assert.Equal(t, 20, cfg.Marketplace.BatchSize, "marketplace API caps batches at 20 ids")
}

func TestValidate(t *testing.T) {
	valid := &Config{}
	applyDefaults(valid)
	require.NoError(t, valid.validate())

	badPolicy := &Config{}
	applyDefaults(badPolicy)
	badPolicy.Replenish.DemandPolicy = "guesswork"
	assert.Error(t, badPolicy.validate())

	badFailures := &Config{}
	applyDefaults(badFailures)
	badFailures.Pipeline.MaxConsecutiveFailures = -1
	assert.Error(t, badFailures.validate())
}

func TestDatabaseConfig_DSN(t *testing.T) {
	d := &DatabaseConfig{
		Host:     "db.internal",
		Port:     5433,
		User:     "sync",
		Password: "secret",
		DBName:   "fullsync",
		SSLMode:  "require",
	}
	assert.Equal(t,
		"host=db.internal port=5433 user=sync password=secret dbname=fullsync sslmode=require",
		d.DSN())
}

func TestRedisConfig_Addr(t *testing.T) {
	r := &RedisConfig{Host: "cache.internal", Port: 6380}
	assert.Equal(t, "cache.internal:6380", r.Addr())
}
