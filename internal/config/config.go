package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/adhocore/gronx"
	"gopkg.in/yaml.v3"
)

const (
	defaultBaseURL  = "https://slack.com/api"
	defaultTimeout  = 30 * time.Second
	defaultCron     = "0 7 * * 1" // Mondays at 07:00
	defaultTimezone = "Local"
	defaultLevel    = "info"
	defaultFormat   = "text"
)

// Environment variable names. The two secrets keep their historical names.
const (
	EnvToken      = "SlackApiToken"
	EnvWebhookURL = "SlackWebhookUrl"

	envLogLevel  = "SLACKQUOTE_LOG_LEVEL"
	envLogFormat = "SLACKQUOTE_LOG_FORMAT"
	envCron      = "SLACKQUOTE_CRON"
	envTimezone  = "SLACKQUOTE_TIMEZONE"
	envListen    = "SLACKQUOTE_LISTEN"
	envBaseURL   = "SLACKQUOTE_SLACK_BASE_URL"
)

var (
	ErrMissingToken      = errors.New(EnvToken + " is not set")
	ErrMissingWebhookURL = errors.New(EnvWebhookURL + " is not set")
)

// Default returns a Config populated with built-in defaults
func Default() *Config {
	return &Config{
		Slack: SlackConfig{
			BaseURL: defaultBaseURL,
			Timeout: Duration(defaultTimeout),
		},
		Schedule: ScheduleConfig{
			Cron:     defaultCron,
			Timezone: defaultTimezone,
		},
		Logging: LoggingConfig{
			Level:  defaultLevel,
			Format: defaultFormat,
		},
	}
}

// Load builds the effective config: defaults, then the YAML file at path
// if one is given, then environment overrides. The result is validated.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return nil, err
		}
	}
	cfg.applyEnv(os.Getenv)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) mergeFile(path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("config file not found: %s", path)
		}
		return err
	}
	if err := yaml.Unmarshal(b, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv(getenv func(string) string) {
	set := func(dst *string, key string) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			*dst = v
		}
	}
	set(&c.Token, EnvToken)
	set(&c.WebhookURL, EnvWebhookURL)
	set(&c.Logging.Level, envLogLevel)
	set(&c.Logging.Format, envLogFormat)
	set(&c.Schedule.Cron, envCron)
	set(&c.Schedule.Timezone, envTimezone)
	set(&c.Server.Address, envListen)
	set(&c.Slack.BaseURL, envBaseURL)
}

// Validate checks secrets, cron, timezone and logging settings
func (c *Config) Validate() error {
	if c.Token == "" {
		return ErrMissingToken
	}
	if c.WebhookURL == "" {
		return ErrMissingWebhookURL
	}

	if u, err := url.Parse(c.Slack.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid slack.base_url: %q", c.Slack.BaseURL)
	}
	if c.Slack.Timeout.Duration() <= 0 {
		return fmt.Errorf("slack.timeout must be positive, got %s", c.Slack.Timeout.Duration())
	}

	if !gronx.IsValid(c.Schedule.Cron) {
		return fmt.Errorf("invalid schedule.cron expression: %q", c.Schedule.Cron)
	}
	if _, err := c.Location(); err != nil {
		return err
	}

	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("invalid logging.level: %q", c.Logging.Level)
	}
	switch strings.ToLower(c.Logging.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("invalid logging.format: %q", c.Logging.Format)
	}
	return nil
}

// Location resolves schedule.timezone; "Local" and "" mean the host zone
func (c *Config) Location() (*time.Location, error) {
	tz := c.Schedule.Timezone
	if tz == "" || tz == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("invalid schedule.timezone %q: %w", tz, err)
	}
	return loc, nil
}
