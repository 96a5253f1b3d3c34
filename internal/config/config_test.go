package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestLoadConfigDefaults verifies sensible defaults when no env vars are set.
func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 6470, cfg.Server.Port)
	assert.Equal(t, "memory", cfg.Storage.StorageEngine)
	assert.Equal(t, "de-CH", cfg.Locale.DefaultLocale)
	assert.InDelta(t, 0.077, cfg.Business.VATRate, 1e-9)
	assert.InDelta(t, 10.00, cfg.Business.MinimumOrderCHF, 1e-9)
	assert.Equal(t, 10, cfg.Business.OpenHour)
	assert.Equal(t, 22, cfg.Business.CloseHour)
	assert.Equal(t, 5*time.Minute, cfg.Dispatch.CacheTTL)
	assert.Equal(t, 5*time.Minute, cfg.Dispatch.TransactionTTL)
	assert.Equal(t, time.Hour, cfg.Classifier.ContextTTL)
	assert.InDelta(t, 0.6, cfg.Classifier.MinConfidence, 1e-9)
	assert.InDelta(t, 0.7, cfg.Classifier.PredictionFloor, 1e-9)
}

// TestLoadConfigEnvOverrides verifies environment variables take precedence.
func TestLoadConfigEnvOverrides(t *testing.T) {
	t.Setenv("ORDERVOX_PORT", "7000")
	t.Setenv("ORDERVOX_DEFAULT_LOCALE", "fr-CH")
	t.Setenv("ORDERVOX_CACHE_TTL", "90s")
	t.Setenv("ORDERVOX_MIN_CONFIDENCE", "0.75")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 7000, cfg.Server.Port)
	assert.Equal(t, "fr-CH", cfg.Locale.DefaultLocale)
	assert.Equal(t, 90*time.Second, cfg.Dispatch.CacheTTL)
	assert.InDelta(t, 0.75, cfg.Classifier.MinConfidence, 1e-9)
}

// TestLoadConfigIgnoresMalformedValues verifies unparseable env values fall
// back to defaults instead of failing startup.
func TestLoadConfigIgnoresMalformedValues(t *testing.T) {
	t.Setenv("ORDERVOX_PORT", "not-a-number")
	t.Setenv("ORDERVOX_VAT_RATE", "eight percent")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 6470, cfg.Server.Port)
	assert.InDelta(t, 0.077, cfg.Business.VATRate, 1e-9)
}

// TestValidateRejectsBadHours verifies range checks on business hours.
func TestValidateRejectsBadHours(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)

	cfg.Business.OpenHour = 25
	assert.Error(t, cfg.Validate())

	cfg.Business.OpenHour = 10
	cfg.Dispatch.QueueSize = 0
	assert.Error(t, cfg.Validate())
}
