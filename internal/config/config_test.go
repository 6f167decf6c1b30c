package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("DATABASE_URL", "postgres://localhost/fraud_test")
	t.Setenv("API_KEY_SALT", "unit-test-salt")
}

func TestLoadDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 3000, cfg.Port)
	assert.Equal(t, 100, cfg.RateLimitPerMinute)
	assert.Equal(t, 50*time.Millisecond, cfg.VelocityTimeout)
	assert.Equal(t, 60*time.Second, cfg.CacheVelocityTTL)
	assert.Equal(t, 0.30, cfg.FraudScoreLow)
	assert.Equal(t, 0.50, cfg.FraudScoreMedium)
	assert.Equal(t, 0.80, cfg.FraudScoreHigh)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("PORT", "9090")
	t.Setenv("RATE_LIMIT_PER_MINUTE", "250")
	t.Setenv("CACHE_VELOCITY_TTL", "120")
	t.Setenv("FRAUD_SCORE_LOW_THRESHOLD", "0.25")

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("port: 4000\nrate_limit_per_minute: 42\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Port, "environment beats file")
	assert.Equal(t, 250, cfg.RateLimitPerMinute)
	assert.Equal(t, 120*time.Second, cfg.CacheVelocityTTL)
	assert.Equal(t, 0.25, cfg.FraudScoreLow)
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	setRequiredEnv(t)

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("port: 4000\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 4000, cfg.Port)
}

func TestLoadMissingFileFails(t *testing.T) {
	setRequiredEnv(t)

	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		cfg := Default()
		cfg.DatabaseURL = "postgres://localhost/fraud"
		cfg.APIKeySalt = "salt"
		return cfg
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		wantOK bool
	}{
		{"valid", func(*Config) {}, true},
		{"missing database url", func(c *Config) { c.DatabaseURL = "" }, false},
		{"empty salt", func(c *Config) { c.APIKeySalt = "" }, false},
		{"port zero", func(c *Config) { c.Port = 0 }, false},
		{"port too large", func(c *Config) { c.Port = 70000 }, false},
		{"rate limit zero", func(c *Config) { c.RateLimitPerMinute = 0 }, false},
		{"rate limit too large", func(c *Config) { c.RateLimitPerMinute = 20000 }, false},
		{"thresholds not increasing", func(c *Config) { c.FraudScoreMedium = 0.30 }, false},
		{"thresholds inverted", func(c *Config) { c.FraudScoreLow = 0.90 }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantOK {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}
