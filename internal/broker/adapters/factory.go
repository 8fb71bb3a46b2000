// Package adapters constructs the configured broker implementation.
// Selection happens here, by name from configuration, so the rest of the
// core only ever sees the broker.Adapter interface.
package adapters

import (
	"fmt"
	"strings"

	"github.com/quantframe/sessions/internal/broker"
	"github.com/quantframe/sessions/internal/broker/bybit"
	"github.com/quantframe/sessions/internal/broker/sim"
)

// Config selects and configures a broker implementation.
type Config struct {
	// Kind is "sim" or "bybit".
	Kind string `json:"kind"`

	// Sim settings, used when Kind == "sim".
	SimCash           float64            `json:"sim_cash,omitempty"`
	SimCommissionRate float64            `json:"sim_commission_rate,omitempty"`
	SimPrices         map[string]float64 `json:"sim_prices,omitempty"`

	// Bybit settings, used when Kind == "bybit". Credentials normally
	// come from the environment, not the config file.
	BybitAPIKey    string `json:"bybit_api_key,omitempty"`
	BybitAPISecret string `json:"bybit_api_secret,omitempty"`
	BybitCategory  string `json:"bybit_category,omitempty"`
	BybitTestnet   bool   `json:"bybit_testnet,omitempty"`
	BybitDemo      bool   `json:"bybit_demo,omitempty"`
}

// New builds the broker named by cfg.Kind.
func New(cfg Config) (broker.Adapter, error) {
	switch strings.ToLower(cfg.Kind) {
	case "", "sim":
		return sim.New(
			sim.WithCash(cfg.SimCash),
			sim.WithCommissionRate(cfg.SimCommissionRate),
			sim.WithPrices(cfg.SimPrices),
		), nil
	case "bybit":
		return bybit.New(bybit.Config{
			APIKey:    cfg.BybitAPIKey,
			APISecret: cfg.BybitAPISecret,
			Category:  cfg.BybitCategory,
			Testnet:   cfg.BybitTestnet,
			Demo:      cfg.BybitDemo,
		})
	default:
		return nil, fmt.Errorf("unknown broker kind %q (want sim or bybit)", cfg.Kind)
	}
}
