package ledger

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/quantframe/sessions/pkg/types"
)

var (
	// ErrInvalidCapital is returned by Open when the initial capital is
	// zero or negative.
	ErrInvalidCapital = errors.New("initial capital must be greater than 0")

	// ErrInsufficientFunds is returned by ApplyTrade when a buy would
	// drive cash below zero. The ledger is left unchanged.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrInsufficientPosition is returned by ApplyTrade when a sell
	// exceeds the held quantity. The ledger is left unchanged.
	ErrInsufficientPosition = errors.New("insufficient position")

	// ErrInvalidTrade is returned for trades with non-positive quantity
	// or price, or an unknown side.
	ErrInvalidTrade = errors.New("invalid trade")
)

// Position tracks one symbol's holding. Quantity never goes negative;
// shorting is not supported.
type Position struct {
	Symbol    string  `json:"symbol"`
	Quantity  float64 `json:"quantity"`
	AvgCost   float64 `json:"avg_cost"`
	LastPrice float64 `json:"last_price"`
}

// MarketValue returns the position's value at its last known price.
func (p Position) MarketValue() float64 {
	return p.Quantity * p.LastPrice
}

// UnrealizedPnL returns the open profit or loss against average cost.
func (p Position) UnrealizedPnL() float64 {
	return (p.LastPrice - p.AvgCost) * p.Quantity
}

// Portfolio is a point-in-time snapshot of cash and positions. Snapshots
// are copies; mutating one never touches the ledger.
type Portfolio struct {
	Cash      float64             `json:"cash"`
	Positions map[string]Position `json:"positions"`
}

// TotalValue returns cash plus the mark-to-market value of all positions.
func (p Portfolio) TotalValue() float64 {
	total := p.Cash
	for _, pos := range p.Positions {
		total += pos.MarketValue()
	}
	return total
}

// Quantity returns the held quantity for symbol, zero if none.
func (p Portfolio) Quantity(symbol string) float64 {
	return p.Positions[symbol].Quantity
}

// Ledger is the authoritative record of cash and positions for one
// session. Every mutation happens in a single critical section and is
// all-or-nothing: a failed validation leaves cash and positions exactly
// as they were.
type Ledger struct {
	mu        sync.RWMutex
	cash      float64
	positions map[string]*Position
	trades    []types.Trade
	history   []types.ValuePoint
	warnFn    func(format string, args ...interface{})
}

// Open creates a ledger funded with initialCapital.
func Open(initialCapital float64) (*Ledger, error) {
	if initialCapital <= 0 {
		return nil, fmt.Errorf("%w: got %.2f", ErrInvalidCapital, initialCapital)
	}

	return &Ledger{
		cash:      initialCapital,
		positions: make(map[string]*Position),
		trades:    make([]types.Trade, 0, 64),
		history:   make([]types.ValuePoint, 0, 256),
	}, nil
}

// SetWarnFunc installs a callback for non-fatal conditions such as a
// missing price during mark-to-market. Nil disables warnings.
func (l *Ledger) SetWarnFunc(fn func(format string, args ...interface{})) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.warnFn = fn
}

// ApplyTrade validates and applies one fill. For a buy, cash must cover
// quantity*price plus commission; for a sell, the held quantity must
// cover the trade quantity. On any validation failure no state changes.
func (l *Ledger) ApplyTrade(trade types.Trade) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if trade.Quantity <= 0 || trade.Price <= 0 {
		return fmt.Errorf("%w: quantity %.4f price %.4f", ErrInvalidTrade, trade.Quantity, trade.Price)
	}

	switch trade.Side {
	case types.TradeSideBuy:
		cost := trade.Quantity*trade.Price + trade.Commission
		if cost > l.cash {
			return fmt.Errorf("%w: need %.2f, have %.2f", ErrInsufficientFunds, cost, l.cash)
		}
		l.applyBuy(trade)
	case types.TradeSideSell:
		pos, ok := l.positions[trade.Symbol]
		if !ok || pos.Quantity < trade.Quantity {
			held := 0.0
			if ok {
				held = pos.Quantity
			}
			return fmt.Errorf("%w: selling %.4f %s, hold %.4f", ErrInsufficientPosition, trade.Quantity, trade.Symbol, held)
		}
		l.applySell(trade)
	default:
		return fmt.Errorf("%w: unknown side %q", ErrInvalidTrade, trade.Side)
	}

	l.trades = append(l.trades, trade)
	return nil
}

func (l *Ledger) applyBuy(trade types.Trade) {
	l.cash -= trade.Quantity*trade.Price + trade.Commission

	pos, ok := l.positions[trade.Symbol]
	if !ok {
		l.positions[trade.Symbol] = &Position{
			Symbol:    trade.Symbol,
			Quantity:  trade.Quantity,
			AvgCost:   trade.Price,
			LastPrice: trade.Price,
		}
		return
	}

	// Volume-weighted average entry across fills.
	totalCost := pos.AvgCost*pos.Quantity + trade.Price*trade.Quantity
	pos.Quantity += trade.Quantity
	pos.AvgCost = totalCost / pos.Quantity
	pos.LastPrice = trade.Price
}

func (l *Ledger) applySell(trade types.Trade) {
	l.cash += trade.Quantity*trade.Price - trade.Commission

	pos := l.positions[trade.Symbol]
	pos.Quantity -= trade.Quantity
	pos.LastPrice = trade.Price

	if pos.Quantity <= 1e-9 {
		delete(l.positions, trade.Symbol)
	}
}

// MarkToMarket refreshes each position's last price from the supplied
// price map and records a value-history point. Symbols missing from the
// map keep their last known price. Never fails.
func (l *Ledger) MarkToMarket(prices map[string]float64, at time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for symbol, pos := range l.positions {
		price, ok := prices[symbol]
		if !ok || price <= 0 {
			if l.warnFn != nil {
				l.warnFn("no price for %s, keeping last known %.4f", symbol, pos.LastPrice)
			}
			continue
		}
		pos.LastPrice = price
	}

	l.history = append(l.history, types.ValuePoint{
		Timestamp: at,
		Value:     l.totalValueLocked(),
	})
}

func (l *Ledger) totalValueLocked() float64 {
	total := l.cash
	for _, pos := range l.positions {
		total += pos.MarketValue()
	}
	return total
}

// Snapshot returns a deep copy of the current portfolio state. Callers
// may hand the copy to the risk gate without further locking.
func (l *Ledger) Snapshot() Portfolio {
	l.mu.RLock()
	defer l.mu.RUnlock()

	positions := make(map[string]Position, len(l.positions))
	for symbol, pos := range l.positions {
		positions[symbol] = *pos
	}
	return Portfolio{Cash: l.cash, Positions: positions}
}

// Cash returns the current cash balance.
func (l *Ledger) Cash() float64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.cash
}

// TotalValue returns cash plus the current value of all positions.
func (l *Ledger) TotalValue() float64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.totalValueLocked()
}

// TradeHistory returns a copy of the append-only trade log.
func (l *Ledger) TradeHistory() []types.Trade {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]types.Trade, len(l.trades))
	copy(out, l.trades)
	return out
}

// ValueHistory returns a copy of the recorded value-history points.
func (l *Ledger) ValueHistory() []types.ValuePoint {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]types.ValuePoint, len(l.history))
	copy(out, l.history)
	return out
}

// Restore replaces the ledger's state with previously persisted data.
// Used when resuming a session from its last committed tick boundary.
func (l *Ledger) Restore(portfolio Portfolio, trades []types.Trade, history []types.ValuePoint) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.cash = portfolio.Cash
	l.positions = make(map[string]*Position, len(portfolio.Positions))
	for symbol, pos := range portfolio.Positions {
		p := pos
		l.positions[symbol] = &p
	}
	l.trades = append(l.trades[:0], trades...)
	l.history = append(l.history[:0], history...)
}
