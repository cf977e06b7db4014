package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9090
  host: "127.0.0.1"

slack:
  bot_token: "xoxb-test"
  app_token: "xapp-test"
  send_timeout_seconds: 5

database:
  url: "postgres://localhost/pulse?sslmode=disable"

reminder:
  check_interval_minutes: 30

logging:
  level: "debug"
  redact_answers: true
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9090", cfg.Server.Addr())
	assert.Equal(t, "xoxb-test", cfg.Slack.BotToken)
	assert.Equal(t, 5*time.Second, cfg.Slack.SendTimeout())
	assert.Equal(t, 30*time.Minute, cfg.Reminder.CheckInterval())
	assert.True(t, cfg.Logging.RedactAnswers)
}

func TestLoadDefaults(t *testing.T) {
	path := writeConfig(t, `
slack:
  bot_token: "xoxb-test"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 10*time.Second, cfg.Slack.SendTimeout())
	assert.Equal(t, 15*time.Minute, cfg.Reminder.CheckInterval())
	assert.Equal(t, 6*time.Hour, cfg.Roster.RefreshInterval())
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadFromEnvOverrides(t *testing.T) {
	path := writeConfig(t, `
slack:
  bot_token: "xoxb-from-file"
database:
  url: "postgres://file"
`)

	t.Setenv("SLACK_BOT_TOKEN", "xoxb-from-env")
	t.Setenv("DATABASE_URL", "postgres://env")
	t.Setenv("LOG_LEVEL", "warn")

	cfg, err := LoadFromEnv(path)
	require.NoError(t, err)

	assert.Equal(t, "xoxb-from-env", cfg.Slack.BotToken)
	assert.Equal(t, "postgres://env", cfg.Database.URL)
	assert.Equal(t, "warn", cfg.Logging.Level)
}

func TestValidate(t *testing.T) {
	cfg := &Config{}
	assert.Error(t, cfg.Validate())

	cfg.Slack.BotToken = "xoxb"
	cfg.Slack.AppToken = "xapp"
	assert.Error(t, cfg.Validate(), "database url still missing")

	cfg.Database.URL = "postgres://localhost/pulse"
	assert.NoError(t, cfg.Validate())
}
