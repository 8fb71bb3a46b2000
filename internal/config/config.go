package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/quantframe/sessions/internal/broker/adapters"
	"github.com/quantframe/sessions/internal/executor"
	"github.com/quantframe/sessions/internal/risk"
	"github.com/quantframe/sessions/internal/session"
)

// BotConfig is the complete configuration for the session bot.
type BotConfig struct {
	// Session configuration
	Session session.Config `json:"session"`

	// Broker selection and settings
	Broker adapters.Config `json:"broker"`

	// Signal source settings
	Signals SignalsConfig `json:"signals"`

	// Notification configuration (optional)
	Notifications *NotificationConfig `json:"notifications,omitempty"`

	// Monitoring endpoints (optional)
	Monitoring MonitoringConfig `json:"monitoring"`

	// Output locations
	Paths PathsConfig `json:"paths"`
}

// SignalsConfig selects where trading signals come from.
type SignalsConfig struct {
	// Kind is "replay" for now. The replay source reads date-keyed
	// signals from a JSON-lines file.
	Kind string `json:"kind"`
	File string `json:"file,omitempty"`
}

// NotificationConfig holds notification settings
type NotificationConfig struct {
	Enabled       bool   `json:"enabled"`
	TelegramToken string `json:"telegram_token,omitempty"`
	TelegramChat  string `json:"telegram_chat,omitempty"`
}

// MonitoringConfig holds the HTTP listen address for metrics and health.
type MonitoringConfig struct {
	Enabled bool   `json:"enabled"`
	Listen  string `json:"listen,omitempty"`
}

// PathsConfig holds the directories the bot writes into.
type PathsConfig struct {
	StateDir  string `json:"state_dir,omitempty"`
	LogDir    string `json:"log_dir,omitempty"`
	ReportDir string `json:"report_dir,omitempty"`
}

// Load reads a bot configuration from file. Bare names resolve under
// configs/ and get a .json extension.
func Load(configFile string) (*BotConfig, error) {
	if !strings.ContainsAny(configFile, "/\\") {
		configFile = filepath.Join("configs", configFile)
	}
	if !strings.HasSuffix(configFile, ".json") {
		configFile += ".json"
	}

	data, err := os.ReadFile(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
	}

	var config BotConfig
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	config.setDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &config, nil
}

// setDefaults fills in missing values.
func (c *BotConfig) setDefaults() {
	if c.Session.Thresholds == (risk.Thresholds{}) {
		c.Session.Thresholds = risk.DefaultThresholds()
	}
	if c.Session.Executor == (executor.Config{}) {
		c.Session.Executor = executor.DefaultConfig()
	}
	if c.Broker.Kind == "" {
		c.Broker.Kind = "sim"
	}
	if c.Broker.Kind == "sim" && c.Broker.SimCash == 0 {
		c.Broker.SimCash = c.Session.InitialCapital
	}
	if c.Signals.Kind == "" {
		c.Signals.Kind = "replay"
	}
	if c.Paths.StateDir == "" {
		c.Paths.StateDir = "state"
	}
	if c.Paths.LogDir == "" {
		c.Paths.LogDir = "logs"
	}
	if c.Paths.ReportDir == "" {
		c.Paths.ReportDir = filepath.Join("results", c.Session.SessionID)
	}
	if c.Monitoring.Enabled && c.Monitoring.Listen == "" {
		c.Monitoring.Listen = ":9090"
	}
}

// Validate checks the configuration before the bot starts.
func (c *BotConfig) Validate() error {
	if err := c.Session.Validate(); err != nil {
		return err
	}
	if c.Signals.Kind == "replay" && c.Signals.File == "" {
		return fmt.Errorf("signals.file is required for the replay source")
	}
	if c.Notifications != nil && c.Notifications.Enabled {
		if c.Notifications.TelegramToken == "" || c.Notifications.TelegramChat == "" {
			return fmt.Errorf("telegram token and chat id are required when notifications are enabled")
		}
	}
	return nil
}

// ApplyEnv overlays credentials from environment variables so secrets
// stay out of config files.
func (c *BotConfig) ApplyEnv() {
	if key := os.Getenv("BYBIT_API_KEY"); key != "" {
		c.Broker.BybitAPIKey = key
	}
	if secret := os.Getenv("BYBIT_API_SECRET"); secret != "" {
		c.Broker.BybitAPISecret = secret
	}
	if token := os.Getenv("TELEGRAM_BOT_TOKEN"); token != "" {
		if c.Notifications == nil {
			c.Notifications = &NotificationConfig{Enabled: true}
		}
		c.Notifications.TelegramToken = token
	}
	if chat := os.Getenv("TELEGRAM_CHAT_ID"); chat != "" {
		if c.Notifications == nil {
			c.Notifications = &NotificationConfig{Enabled: true}
		}
		c.Notifications.TelegramChat = chat
	}
}
