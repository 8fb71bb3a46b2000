// Package bybit implements the broker adapter against the Bybit v5
// unified trading API. All requests go through the official client; the
// adapter's job is mapping the session core's order model onto UTA
// params and classifying API failures as transient or permanent.
package bybit

import (
	"context"
	"fmt"
	"sync"

	bybit_api "github.com/bybit-exchange/bybit.go.api"
)

// Config holds the Bybit connection settings.
type Config struct {
	APIKey    string
	APISecret string
	Category  string // "spot", "linear", "inverse"
	Testnet   bool
	Demo      bool // demo trading environment (paper)
}

// Adapter is the live broker backed by Bybit.
type Adapter struct {
	client   *bybit_api.Client
	category string
	demo     bool
	testnet  bool

	mu        sync.Mutex
	connected bool
}

// New creates a Bybit adapter. Credentials are validated lazily on
// Connect, not here.
func New(cfg Config) (*Adapter, error) {
	if cfg.APIKey == "" || cfg.APISecret == "" {
		return nil, fmt.Errorf("bybit: api key and secret are required")
	}

	var baseURL string
	switch {
	case cfg.Demo:
		baseURL = "https://api-demo.bybit.com"
	case cfg.Testnet:
		baseURL = bybit_api.TESTNET
	default:
		baseURL = bybit_api.MAINNET
	}

	category := cfg.Category
	if category == "" {
		category = "spot"
	}

	client := bybit_api.NewBybitHttpClient(
		cfg.APIKey,
		cfg.APISecret,
		bybit_api.WithBaseURL(baseURL),
	)

	return &Adapter{
		client:   client,
		category: category,
		demo:     cfg.Demo,
		testnet:  cfg.Testnet,
	}, nil
}

func (a *Adapter) Name() string {
	switch {
	case a.demo:
		return "bybit-demo"
	case a.testnet:
		return "bybit-testnet"
	default:
		return "bybit"
	}
}

// Connect verifies credentials with a wallet-balance call.
func (a *Adapter) Connect(ctx context.Context) error {
	if _, err := a.GetAccountInfo(ctx); err != nil {
		return fmt.Errorf("bybit connect failed: %w", err)
	}

	a.mu.Lock()
	a.connected = true
	a.mu.Unlock()
	return nil
}

func (a *Adapter) Disconnect() error {
	a.mu.Lock()
	a.connected = false
	a.mu.Unlock()
	return nil
}

func (a *Adapter) IsConnected() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.connected
}
