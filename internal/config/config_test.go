package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trinityinblue/kia-live/internal/config"
)

func TestFromEnvRequiresUpstreamBaseURL(t *testing.T) {
	t.Setenv("KIA_BMTC_API_URL", "")
	_, err := config.FromEnv()
	assert.Error(t, err)
}

func TestFromEnvAppliesDefaults(t *testing.T) {
	t.Setenv("KIA_BMTC_API_URL", "https://example.test/WebAPI")
	t.Setenv("KIA_QUERY_INTERVAL", "")
	t.Setenv("KIA_QUERY_AMOUNT", "")

	cfg, err := config.FromEnv()
	require.NoError(t, err)

	assert.Equal(t, "https://example.test/WebAPI", cfg.UpstreamBaseURL)
	assert.Equal(t, config.DefaultQueryInterval, cfg.QueryInterval)
	assert.Equal(t, config.DefaultQueryAmount, cfg.QueryAmount)
}

func TestFromEnvParsesOverrides(t *testing.T) {
	t.Setenv("KIA_BMTC_API_URL", "https://example.test/WebAPI")
	t.Setenv("KIA_QUERY_INTERVAL", "10")
	t.Setenv("KIA_QUERY_AMOUNT", "3")

	cfg, err := config.FromEnv()
	require.NoError(t, err)

	assert.Equal(t, 10*time.Minute, cfg.QueryInterval)
	assert.Equal(t, 3, cfg.QueryAmount)
}

func TestFromEnvRejectsUnparseableQueryInterval(t *testing.T) {
	t.Setenv("KIA_BMTC_API_URL", "https://example.test/WebAPI")
	t.Setenv("KIA_QUERY_INTERVAL", "not-a-number")

	_, err := config.FromEnv()
	assert.Error(t, err)
}

func TestFromEnvRejectsUnparseableQueryAmount(t *testing.T) {
	t.Setenv("KIA_BMTC_API_URL", "https://example.test/WebAPI")
	t.Setenv("KIA_QUERY_AMOUNT", "not-a-number")

	_, err := config.FromEnv()
	assert.Error(t, err)
}
