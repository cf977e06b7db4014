// Package config loads the application configuration from a YAML file
// with environment variable overrides, so secrets stay out of the file.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Slack    SlackConfig    `yaml:"slack"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Reminder ReminderConfig `yaml:"reminder"`
	Roster   RosterConfig   `yaml:"roster"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// ServerConfig holds the ops HTTP server configuration.
type ServerConfig struct {
	Port int    `yaml:"port"`
	Host string `yaml:"host"`
}

// Addr returns the listen address for the ops API.
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// SlackConfig holds Slack credentials and send behavior.
type SlackConfig struct {
	BotToken           string `yaml:"bot_token"`
	AppToken           string `yaml:"app_token"`
	BootstrapAdminID   string `yaml:"bootstrap_admin_id"`
	SendTimeoutSeconds int    `yaml:"send_timeout_seconds"`
	MaxRetries         int    `yaml:"max_retries"`
}

// SendTimeout returns the per-message Slack call timeout as a duration.
func (c SlackConfig) SendTimeout() time.Duration {
	return time.Duration(c.SendTimeoutSeconds) * time.Second
}

// DatabaseConfig holds the PostgreSQL connection settings.
type DatabaseConfig struct {
	URL          string `yaml:"url"`
	MaxOpenConns int    `yaml:"max_open_conns"`
	MaxIdleConns int    `yaml:"max_idle_conns"`
}

// RedisConfig holds the optional Redis settings used for distributed
// locking. Leaving Addr empty falls back to Postgres advisory locks.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// ReminderConfig holds the reminder engine settings.
type ReminderConfig struct {
	CheckIntervalMinutes int `yaml:"check_interval_minutes"`
}

// CheckInterval returns how often the engine scans for due surveys.
func (c ReminderConfig) CheckInterval() time.Duration {
	return time.Duration(c.CheckIntervalMinutes) * time.Minute
}

// RosterConfig holds the workspace roster refresh settings.
type RosterConfig struct {
	RefreshIntervalHours int `yaml:"refresh_interval_hours"`
}

// RefreshInterval returns how often the roster is mirrored from Slack.
func (c RosterConfig) RefreshInterval() time.Duration {
	return time.Duration(c.RefreshIntervalHours) * time.Hour
}

// LoggingConfig holds log output settings.
type LoggingConfig struct {
	Level         string `yaml:"level"`
	RedactAnswers bool   `yaml:"redact_answers"`
}

// Load reads and parses the configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	// Defaults
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Slack.SendTimeoutSeconds == 0 {
		cfg.Slack.SendTimeoutSeconds = 10
	}
	if cfg.Slack.MaxRetries == 0 {
		cfg.Slack.MaxRetries = 3
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 10
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Reminder.CheckIntervalMinutes == 0 {
		cfg.Reminder.CheckIntervalMinutes = 15
	}
	if cfg.Roster.RefreshIntervalHours == 0 {
		cfg.Roster.RefreshIntervalHours = 6
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}

	return &cfg, nil
}

// LoadFromEnv loads configuration with environment variable overrides.
// It loads a .env file first (if present) so secrets can live in .env
// locally and in real env vars in deployment.
func LoadFromEnv(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("SLACK_BOT_TOKEN"); v != "" {
		cfg.Slack.BotToken = v
	}
	if v := os.Getenv("SLACK_APP_TOKEN"); v != "" {
		cfg.Slack.AppToken = v
	}
	if v := os.Getenv("BOOTSTRAP_ADMIN_SLACK_ID"); v != "" {
		cfg.Slack.BootstrapAdminID = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Database.URL = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}

	return cfg, nil
}

// Validate checks that the settings required to run the bot are present.
func (c *Config) Validate() error {
	if c.Slack.BotToken == "" {
		return fmt.Errorf("slack bot token is required (SLACK_BOT_TOKEN)")
	}
	if c.Slack.AppToken == "" {
		return fmt.Errorf("slack app token is required (SLACK_APP_TOKEN)")
	}
	if c.Database.URL == "" {
		return fmt.Errorf("database url is required (DATABASE_URL)")
	}
	return nil
}
