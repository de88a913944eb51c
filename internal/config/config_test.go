package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("SITE_ORIGIN", "")
	t.Setenv("FETCH_STRATEGY", "")
	t.Setenv("DOMEGGOOK_ID", "")
	t.Setenv("DOMEGGOOK_PW", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://domeggook.com", cfg.Site.Origin)
	assert.Equal(t, "https://domeggook.com/login", cfg.Site.LoginURL)
	assert.Equal(t, "#user_id", cfg.Site.UserSelector)
	assert.Equal(t, "#user_pw", cfg.Site.PasswordSelector)
	assert.Equal(t, "http", cfg.Fetch.Strategy)
	assert.Equal(t, 10*time.Second, cfg.Fetch.PageTimeout)
	assert.Equal(t, 5*time.Second, cfg.Fetch.ImageTimeout)
	assert.Equal(t, 2*time.Second, cfg.Fetch.Settle)
	assert.Equal(t, "Asia/Seoul", cfg.Browser.TimezoneID)
	assert.False(t, cfg.HasCredentials())
	assert.NoError(t, cfg.Validate())
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("SITE_ORIGIN", "https://mirror.example.com/")
	t.Setenv("FETCH_STRATEGY", "session")
	t.Setenv("FETCH_PAGE_TIMEOUT", "3s")
	t.Setenv("DOMEGGOOK_ID", "buyer")
	t.Setenv("DOMEGGOOK_PW", "secret")
	t.Setenv("DB_PORT", "6543")
	t.Setenv("BROWSER_HEADLESS", "false")
	t.Setenv("SERVER_ALLOWED_ORIGINS", "https://a.example.com,https://b.example.com")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://mirror.example.com", cfg.Site.Origin)
	assert.Equal(t, "https://mirror.example.com/login", cfg.Site.LoginURL)
	assert.Equal(t, "session", cfg.Fetch.Strategy)
	assert.Equal(t, 3*time.Second, cfg.Fetch.PageTimeout)
	assert.Equal(t, 6543, cfg.Database.Port)
	assert.False(t, cfg.Browser.Headless)
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.Server.AllowedOrigins)
	assert.True(t, cfg.HasCredentials())
}

func TestInvalidValuesFallBack(t *testing.T) {
	t.Setenv("DB_PORT", "not-a-port")
	t.Setenv("FETCH_IMAGE_TIMEOUT", "soon")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, 5*time.Second, cfg.Fetch.ImageTimeout)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"unknown strategy", func(c *Config) { c.Fetch.Strategy = "selenium" }, "FETCH_STRATEGY"},
		{"zero page timeout", func(c *Config) { c.Fetch.PageTimeout = 0 }, "FETCH_PAGE_TIMEOUT"},
		{"zero image timeout", func(c *Config) { c.Fetch.ImageTimeout = 0 }, "FETCH_IMAGE_TIMEOUT"},
		{"relative origin", func(c *Config) { c.Site.Origin = "domeggook.com" }, "SITE_ORIGIN"},
		{"zero poll interval", func(c *Config) { c.Worker.PollInterval = 0 }, "WORKER_POLL_INTERVAL"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("FETCH_STRATEGY", "")
			cfg, err := Load()
			require.NoError(t, err)

			tt.mutate(cfg)
			err = cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
