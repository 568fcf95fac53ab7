package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("DISCORD_TOKEN", "discord-token")
	t.Setenv("PROJECT_SECRET", "mail-secret")
	t.Setenv("HTML_CONVERTER_API_KEY", "user:key")
	t.Setenv("DATABASE_CONN", "postgres://bot@localhost/tickets")
}

func TestLoadConfig(t *testing.T) {
	t.Run("reads required secrets from the environment", func(t *testing.T) {
		setRequiredEnv(t)

		cfg, err := LoadConfig("")
		require.NoError(t, err)

		assert.Equal(t, "discord-token", cfg.Discord.Token)
		assert.Equal(t, "mail-secret", cfg.Mail.ProjectSecret)
		assert.Equal(t, "user:key", cfg.Render.APIKey)
		assert.Equal(t, "postgres://bot@localhost/tickets", cfg.Database.DSN)
	})

	t.Run("applies defaults", func(t *testing.T) {
		setRequiredEnv(t)

		cfg, err := LoadConfig("")
		require.NoError(t, err)

		assert.Equal(t, "https://hcti.io", cfg.Render.BaseURL)
		assert.Equal(t, 1600, cfg.Render.ViewportWidth)
		assert.Equal(t, 400, cfg.Render.ViewportHeight)
		assert.Equal(t, "2701", cfg.Event.TicketPrefix)
		assert.Equal(t, time.Minute, cfg.WorkerPool.EventTimeout)
		assert.False(t, cfg.Redis.Enabled)
		assert.False(t, cfg.Kafka.Enabled())
		assert.Zero(t, cfg.RateLimit.SubmissionsPerWindow)
	})

	t.Run("fails naming every missing secret", func(t *testing.T) {
		t.Setenv("DISCORD_TOKEN", "discord-token")
		t.Setenv("PROJECT_SECRET", "")
		t.Setenv("HTML_CONVERTER_API_KEY", "")
		t.Setenv("DATABASE_CONN", "")

		cfg, err := LoadConfig("")
		require.Error(t, err)
		assert.Nil(t, cfg)
		assert.True(t, errors.Is(err, ErrMissingConfig))
		assert.Contains(t, err.Error(), "PROJECT_SECRET")
		assert.Contains(t, err.Error(), "HTML_CONVERTER_API_KEY")
		assert.Contains(t, err.Error(), "DATABASE_CONN")
		assert.NotContains(t, err.Error(), "DISCORD_TOKEN")
	})

	t.Run("treats whitespace as missing", func(t *testing.T) {
		setRequiredEnv(t)
		t.Setenv("DISCORD_TOKEN", "   ")

		_, err := LoadConfig("")
		require.ErrorIs(t, err, ErrMissingConfig)
		assert.Contains(t, err.Error(), "DISCORD_TOKEN")
	})

	t.Run("reads optional settings from a config file", func(t *testing.T) {
		setRequiredEnv(t)
		path := filepath.Join(t.TempDir(), "config.toml")
		content := `
[redis]
enabled = true
port = 6380

[kafka]
brokers = ["127.0.0.1:9092"]
topic = "tickets"

[event]
ticket_prefix = "0101"

[ratelimit]
submissions_per_window = 3
window = "30s"
`
		require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

		cfg, err := LoadConfig(path)
		require.NoError(t, err)

		assert.True(t, cfg.Redis.Enabled)
		assert.Equal(t, 6380, cfg.Redis.Port)
		assert.True(t, cfg.Kafka.Enabled())
		assert.Equal(t, []string{"127.0.0.1:9092"}, cfg.Kafka.Brokers)
		assert.Equal(t, "0101", cfg.Event.TicketPrefix)
		assert.Equal(t, 3, cfg.RateLimit.SubmissionsPerWindow)
		assert.Equal(t, 30*time.Second, cfg.RateLimit.Window)
	})

	t.Run("prefixed environment overrides defaults", func(t *testing.T) {
		setRequiredEnv(t)
		t.Setenv("EXPRESS_BOT_ADMIN_ADDR", ":9100")
		t.Setenv("EXPRESS_BOT_LOGGING_LEVEL", "debug")

		cfg, err := LoadConfig("")
		require.NoError(t, err)
		assert.Equal(t, ":9100", cfg.Admin.Addr)
		assert.Equal(t, "debug", cfg.Logging.Level)
	})

	t.Run("missing config file is an error", func(t *testing.T) {
		setRequiredEnv(t)

		_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.toml"))
		assert.Error(t, err)
	})

	t.Run("rejects an inverted event window", func(t *testing.T) {
		setRequiredEnv(t)
		t.Setenv("EXPRESS_BOT_EVENT_ENDS_AT", "2024-01-27T11:00:00")

		_, err := LoadConfig("")
		assert.Error(t, err)
	})
}

func TestEventConfig_Window(t *testing.T) {
	e := EventConfig{
		StartsAt: "2024-01-27T12:00:00",
		EndsAt:   "2024-01-27T14:00:00",
		TimeZone: "Africa/Lagos",
	}

	start, end, err := e.Window()
	require.NoError(t, err)

	assert.Equal(t, time.Date(2024, time.January, 27, 11, 0, 0, 0, time.UTC), start.UTC())
	assert.Equal(t, 2*time.Hour, end.Sub(start))

	e.TimeZone = "Nowhere/Special"
	_, _, err = e.Window()
	assert.Error(t, err)
}
