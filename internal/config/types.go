package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the full process configuration. Secrets are never read from
// the YAML file, only from the environment.
type Config struct {
	Slack    SlackConfig    `yaml:"slack"`
	Schedule ScheduleConfig `yaml:"schedule"`
	Logging  LoggingConfig  `yaml:"logging"`
	Server   ServerConfig   `yaml:"server"`

	Token      string `yaml:"-"`
	WebhookURL string `yaml:"-"`
}

// SlackConfig holds Web API client settings.
type SlackConfig struct {
	BaseURL  string   `yaml:"base_url"`
	ProxyURL string   `yaml:"proxy_url"`
	Timeout  Duration `yaml:"timeout"`
}

// ScheduleConfig controls when the quote job fires.
type ScheduleConfig struct {
	Cron       string `yaml:"cron"`
	Timezone   string `yaml:"timezone"`
	RunOnStart bool   `yaml:"run_on_start"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug|info|warn|error
	Format string `yaml:"format"` // text|json
}

// ServerConfig configures the ops endpoint; an empty address disables it.
type ServerConfig struct {
	Address string `yaml:"address"`
}

// Duration accepts "30s" style strings or plain numbers of seconds.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	if node == nil {
		*d = Duration(0)
		return nil
	}
	raw := strings.TrimSpace(node.Value)
	if raw == "" {
		*d = Duration(0)
		return nil
	}
	if td, err := time.ParseDuration(raw); err == nil {
		*d = Duration(td)
		return nil
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		*d = Duration(time.Duration(f * float64(time.Second)))
		return nil
	}
	return fmt.Errorf("invalid duration value: %q", node.Value)
}

func (d Duration) Duration() time.Duration { return time.Duration(d) }
