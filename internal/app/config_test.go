package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("UPSTREAM_BASE_URL", " https://dms.example.test/api/ ")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "https://dms.example.test/api", cfg.UpstreamBaseURL)
	assert.Equal(t, ":8080", cfg.AppAddr)
	assert.Equal(t, 24*time.Hour, cfg.ReceiptTTL)
	assert.Equal(t, 4, cfg.AllocationConcurrency)
	assert.Equal(t, 7*24*time.Hour, cfg.IdempotencyRetention)
	assert.False(t, cfg.ReceiptAsync)
	assert.False(t, cfg.IsProduction())
}

func TestLoadConfigRequiresUpstream(t *testing.T) {
	t.Setenv("UPSTREAM_BASE_URL", "")

	_, err := LoadConfig()
	assert.Error(t, err)
}

func TestLoadConfigRejectsZeroConcurrency(t *testing.T) {
	t.Setenv("UPSTREAM_BASE_URL", "http://upstream")
	t.Setenv("ALLOCATION_CONCURRENCY", "0")

	_, err := LoadConfig()
	assert.Error(t, err)
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("UPSTREAM_BASE_URL", "http://upstream")
	t.Setenv("APP_ENV", "production")
	t.Setenv("RECEIPT_ASYNC", "true")
	t.Setenv("RATE_LIMIT_PER_MINUTE", "30")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.True(t, cfg.IsProduction())
	assert.True(t, cfg.ReceiptAsync)
	assert.Equal(t, 30, cfg.RateLimitPerMinute)
}
