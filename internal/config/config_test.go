package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "bot.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad_AppliesDefaults(t *testing.T) {
	path := writeConfig(t, `{
		"session": {
			"session_id": "sess-1",
			"start_date": "2024-03-01",
			"initial_capital": 100000,
			"symbols": ["AAA"]
		},
		"signals": {"file": "signals.jsonl"}
	}`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "sim", cfg.Broker.Kind)
	assert.InDelta(t, 100000, cfg.Broker.SimCash, 1e-9)
	assert.Equal(t, "replay", cfg.Signals.Kind)
	assert.Greater(t, cfg.Session.Thresholds.MaxPositionPct, 0.0)
	assert.Greater(t, cfg.Session.Executor.DefaultOrderPct, 0.0)
	assert.Equal(t, "state", cfg.Paths.StateDir)
	assert.Equal(t, "logs", cfg.Paths.LogDir)
	assert.Equal(t, filepath.Join("results", "sess-1"), cfg.Paths.ReportDir)
}

func TestLoad_ShippedDemoConfig(t *testing.T) {
	cfg, err := Load(filepath.Join("..", "..", "configs", "demo_session.json"))
	require.NoError(t, err)

	// The demo must be runnable as shipped: every traded symbol needs a
	// sim price and the signal file has to exist.
	for _, symbol := range cfg.Session.Symbols {
		assert.Contains(t, cfg.Broker.SimPrices, symbol)
	}
	_, err = os.Stat(filepath.Join("..", "..", cfg.Signals.File))
	assert.NoError(t, err)
}

func TestLoad_RejectsMissingSignalsFile(t *testing.T) {
	path := writeConfig(t, `{
		"session": {
			"session_id": "sess-1",
			"initial_capital": 100000,
			"symbols": ["AAA"]
		}
	}`)

	_, err := Load(path)
	assert.ErrorContains(t, err, "signals.file")
}

func TestLoad_RejectsInvalidSession(t *testing.T) {
	path := writeConfig(t, `{
		"session": {
			"session_id": "sess-1",
			"initial_capital": -1,
			"symbols": ["AAA"]
		},
		"signals": {"file": "signals.jsonl"}
	}`)

	_, err := Load(path)
	assert.ErrorContains(t, err, "initial capital")
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	assert.Error(t, err)
}

func TestApplyEnv_OverlaysCredentials(t *testing.T) {
	t.Setenv("BYBIT_API_KEY", "key-from-env")
	t.Setenv("BYBIT_API_SECRET", "secret-from-env")
	t.Setenv("TELEGRAM_BOT_TOKEN", "tok")
	t.Setenv("TELEGRAM_CHAT_ID", "chat")

	cfg := &BotConfig{}
	cfg.ApplyEnv()

	assert.Equal(t, "key-from-env", cfg.Broker.BybitAPIKey)
	assert.Equal(t, "secret-from-env", cfg.Broker.BybitAPISecret)
	require.NotNil(t, cfg.Notifications)
	assert.Equal(t, "tok", cfg.Notifications.TelegramToken)
	assert.Equal(t, "chat", cfg.Notifications.TelegramChat)
}
