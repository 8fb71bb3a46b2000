// Package sim provides an in-process broker used for simulated sessions
// and tests. Orders fill immediately at the configured price table, with
// optional partial fills and injected failures to exercise the
// executor's retry and reconciliation paths.
package sim

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/quantframe/sessions/internal/broker"
	"github.com/quantframe/sessions/pkg/types"
)

// Broker is a deterministic simulated broker.
type Broker struct {
	mu             sync.Mutex
	connected      bool
	prices         map[string]float64
	commissionRate float64
	fillRatio      float64 // fraction of requested quantity that fills, 1.0 == full
	pendingErrs    []error // consumed one per PlaceOrder call
	deferFills     int     // orders that fill but ack with zero executed
	restingOrders  int     // orders that ack and never fill
	orders         map[string]*broker.OrderStatus
	positions      map[string]*broker.Position
	cash           float64
	placeCalls     int
}

// Option configures the simulated broker.
type Option func(*Broker)

// WithCommissionRate charges commission as a fraction of notional.
func WithCommissionRate(rate float64) Option {
	return func(b *Broker) { b.commissionRate = rate }
}

// WithCash seeds the simulated account balance.
func WithCash(cash float64) Option {
	return func(b *Broker) { b.cash = cash }
}

// WithPrices seeds the price table.
func WithPrices(prices map[string]float64) Option {
	return func(b *Broker) {
		for symbol, price := range prices {
			b.prices[symbol] = price
		}
	}
}

// New creates a simulated broker with an empty price table.
func New(opts ...Option) *Broker {
	b := &Broker{
		prices:    make(map[string]float64),
		fillRatio: 1.0,
		orders:    make(map[string]*broker.OrderStatus),
		positions: make(map[string]*broker.Position),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *Broker) Name() string { return "sim" }

func (b *Broker) Connect(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.connected = true
	return nil
}

func (b *Broker) Disconnect() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.connected = false
	return nil
}

func (b *Broker) IsConnected() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.connected
}

// SetPrice sets the fill/mark price for a symbol.
func (b *Broker) SetPrice(symbol string, price float64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.prices[symbol] = price
}

// SetFillRatio makes subsequent orders fill only this fraction of the
// requested quantity, simulating partial fills.
func (b *Broker) SetFillRatio(ratio float64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.fillRatio = ratio
}

// DeferNextFills makes the next n orders fill normally but acknowledge
// with zero executed quantity, so the fill is only visible through a
// GetOrderStatus poll. Mimics an exchange that acks before settlement.
func (b *Broker) DeferNextFills(n int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.deferFills = n
}

// RestNextOrders makes the next n orders rest unfilled: the ack and
// every subsequent status poll report an in-flight order with nothing
// executed.
func (b *Broker) RestNextOrders(n int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.restingOrders = n
}

// FailNext queues errors returned by the next PlaceOrder calls, one per
// call, before any fill happens.
func (b *Broker) FailNext(errs ...error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pendingErrs = append(b.pendingErrs, errs...)
}

// PlaceOrderCalls reports how many PlaceOrder attempts reached the
// broker, including ones that failed with injected errors.
func (b *Broker) PlaceOrderCalls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.placeCalls
}

// PlaceOrder fills the order at the table price (or the limit price for
// limit orders). Unknown symbols are rejected permanently.
func (b *Broker) PlaceOrder(ctx context.Context, req broker.OrderRequest) (*broker.OrderResult, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.placeCalls++

	if len(b.pendingErrs) > 0 {
		err := b.pendingErrs[0]
		b.pendingErrs = b.pendingErrs[1:]
		return nil, err
	}

	if !b.connected {
		return nil, broker.NewTransientError("place_order", fmt.Errorf("not connected"))
	}
	if req.Quantity <= 0 {
		return nil, broker.NewPermanentError("place_order", "quantity must be positive", nil)
	}

	price, ok := b.prices[req.Symbol]
	if !ok {
		return nil, broker.NewPermanentError("place_order", fmt.Sprintf("unknown symbol %s", req.Symbol), nil)
	}
	if req.OrderType == broker.OrderTypeLimit && req.LimitPrice > 0 {
		price = req.LimitPrice
	}

	if b.restingOrders > 0 {
		b.restingOrders--
		orderID := uuid.NewString()
		b.orders[orderID] = &broker.OrderStatus{
			OrderID:   orderID,
			State:     broker.OrderStatePartiallyFilled,
			UpdatedAt: time.Now(),
		}
		return &broker.OrderResult{
			OrderID:     orderID,
			State:       broker.OrderStatePartiallyFilled,
			SubmittedAt: time.Now(),
		}, nil
	}

	filled := req.Quantity * b.fillRatio
	state := broker.OrderStateFilled
	if filled < req.Quantity {
		state = broker.OrderStatePartiallyFilled
	}

	commission := filled * price * b.commissionRate
	orderID := uuid.NewString()

	b.applyFill(req.Symbol, req.Side, filled, price, commission)
	b.orders[orderID] = &broker.OrderStatus{
		OrderID:        orderID,
		State:          state,
		FilledQuantity: filled,
		AvgFillPrice:   price,
		UpdatedAt:      time.Now(),
	}

	if b.deferFills > 0 {
		b.deferFills--
		return &broker.OrderResult{
			OrderID:     orderID,
			State:       broker.OrderStatePartiallyFilled,
			SubmittedAt: time.Now(),
		}, nil
	}

	return &broker.OrderResult{
		OrderID:        orderID,
		State:          state,
		FilledQuantity: filled,
		AvgFillPrice:   price,
		Commission:     commission,
		SubmittedAt:    time.Now(),
	}, nil
}

func (b *Broker) applyFill(symbol string, side types.TradeSide, qty, price, commission float64) {
	pos, ok := b.positions[symbol]
	if !ok {
		pos = &broker.Position{Symbol: symbol}
		b.positions[symbol] = pos
	}

	if side == types.TradeSideBuy {
		total := pos.AvgPrice*pos.Quantity + price*qty
		pos.Quantity += qty
		pos.AvgPrice = total / pos.Quantity
		b.cash -= qty*price + commission
	} else {
		pos.Quantity -= qty
		b.cash += qty*price - commission
		if pos.Quantity <= 1e-9 {
			delete(b.positions, symbol)
		}
	}
}

func (b *Broker) CancelOrder(ctx context.Context, orderID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	status, ok := b.orders[orderID]
	if !ok {
		return broker.NewPermanentError("cancel_order", fmt.Sprintf("order %s not found", orderID), nil)
	}
	if status.State == broker.OrderStateFilled {
		return broker.NewPermanentError("cancel_order", "order already filled", nil)
	}
	status.State = broker.OrderStateCancelled
	status.UpdatedAt = time.Now()
	return nil
}

func (b *Broker) GetOrderStatus(ctx context.Context, orderID string) (*broker.OrderStatus, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	status, ok := b.orders[orderID]
	if !ok {
		return nil, broker.NewPermanentError("get_order_status", fmt.Sprintf("order %s not found", orderID), nil)
	}
	out := *status
	return &out, nil
}

func (b *Broker) GetAccountInfo(ctx context.Context) (*broker.AccountInfo, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	equity := b.cash
	for _, pos := range b.positions {
		if price, ok := b.prices[pos.Symbol]; ok {
			equity += pos.Quantity * price
		}
	}
	return &broker.AccountInfo{Cash: b.cash, Equity: equity, BuyingPower: b.cash}, nil
}

func (b *Broker) GetPositions(ctx context.Context) ([]broker.Position, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]broker.Position, 0, len(b.positions))
	for _, pos := range b.positions {
		out = append(out, *pos)
	}
	return out, nil
}

// GetPrices implements broker.PriceFeed from the price table. Symbols
// without a price are omitted; the ledger keeps their last known price.
func (b *Broker) GetPrices(ctx context.Context, symbols []string) (map[string]float64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make(map[string]float64, len(symbols))
	for _, symbol := range symbols {
		if price, ok := b.prices[symbol]; ok {
			out[symbol] = price
		}
	}
	return out, nil
}
