// Package executor turns one trading signal into at most one broker
// order and one ledger mutation. The risk gate runs before any broker
// call, transient broker failures are retried with backoff, and a fill
// that the ledger refuses is treated as a bug, never retried.
package executor

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/quantframe/sessions/internal/broker"
	"github.com/quantframe/sessions/internal/ledger"
	"github.com/quantframe/sessions/internal/logger"
	"github.com/quantframe/sessions/internal/risk"
	"github.com/quantframe/sessions/pkg/types"
)

// Status is the outcome class of one execution.
type Status string

const (
	StatusFilled   Status = "filled"
	StatusPartial  Status = "partial"
	StatusRejected Status = "rejected"
)

// Rejection reasons surfaced in Result.Reason.
const (
	ReasonHold              = "hold"
	ReasonNoPrice           = "no_price"
	ReasonNoQuantity        = "no_quantity"
	ReasonRiskViolation     = "risk_violation"
	ReasonBrokerUnavailable = "broker_unavailable"
	ReasonBrokerRejected    = "broker_rejected"
	ReasonReconciliation    = "ledger_reconciliation"
	ReasonUnreconciled      = "unreconciled_order"
)

// Result reports what happened to one signal.
type Result struct {
	TradeID    string           `json:"trade_id,omitempty"`
	OrderID    string           `json:"order_id,omitempty"`
	Symbol     string           `json:"symbol"`
	Side       types.TradeSide  `json:"side,omitempty"`
	Status     Status           `json:"status"`
	Reason     string           `json:"reason,omitempty"`
	Detail     string           `json:"detail,omitempty"`
	Quantity   float64          `json:"quantity"`
	Price      float64          `json:"price"`
	Commission float64          `json:"commission"`
	Violations []risk.Violation `json:"violations,omitempty"`
	Warnings   []string         `json:"warnings,omitempty"`
}

// Executed reports whether any quantity reached the ledger.
func (r Result) Executed() bool {
	return r.Status == StatusFilled || r.Status == StatusPartial
}

// RetryConfig bounds the retry loop for transient broker failures.
type RetryConfig struct {
	MaxRetries    int           `json:"max_retries"`
	InitialDelay  time.Duration `json:"initial_delay"`
	BackoffFactor float64       `json:"backoff_factor"`
	MaxDelay      time.Duration `json:"max_delay"`
}

// DefaultRetryConfig retries three times at 0.5s, 1s, 2s.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:    3,
		InitialDelay:  500 * time.Millisecond,
		BackoffFactor: 2.0,
		MaxDelay:      time.Minute,
	}
}

func (rc RetryConfig) delay(attempt int) time.Duration {
	delay := rc.InitialDelay
	if attempt > 0 {
		delay = time.Duration(float64(rc.InitialDelay) * math.Pow(rc.BackoffFactor, float64(attempt)))
	}
	if rc.MaxDelay > 0 && delay > rc.MaxDelay {
		delay = rc.MaxDelay
	}
	return delay
}

// Config tunes sizing and broker interaction.
type Config struct {
	// DefaultOrderPct sizes buys without an explicit target weight, as a
	// fraction of total portfolio value.
	DefaultOrderPct float64 `json:"default_order_pct"`

	// CommissionRate estimates commission for proposed trades so the
	// pre-flight cash check sees the full cost.
	CommissionRate float64 `json:"commission_rate"`

	// OrderTimeout bounds each individual broker call.
	OrderTimeout time.Duration `json:"order_timeout"`

	Retry RetryConfig `json:"retry"`
}

// DefaultConfig sizes unweighted buys at 10% of the portfolio with a 10s
// order timeout.
func DefaultConfig() Config {
	return Config{
		DefaultOrderPct: 0.10,
		CommissionRate:  0.0,
		OrderTimeout:    10 * time.Second,
		Retry:           DefaultRetryConfig(),
	}
}

// Executor runs signals against one session's ledger.
type Executor struct {
	broker broker.Adapter
	gate   *risk.Gate
	log    *logger.Logger
	cfg    Config
}

// New creates an executor. A nil logger discards output.
func New(b broker.Adapter, gate *risk.Gate, log *logger.Logger, cfg Config) *Executor {
	if log == nil {
		log = logger.NewDiscard()
	}
	return &Executor{broker: b, gate: gate, log: log, cfg: cfg}
}

// Execute processes one signal: size, risk-check, place, reconcile.
// prices carries the tick's marks; sectors feeds the sector rule.
func (e *Executor) Execute(ctx context.Context, led *ledger.Ledger, sig types.Signal, prices map[string]float64, sectors map[string]string, th risk.Thresholds) Result {
	if sig.Action == types.ActionHold {
		return Result{Symbol: sig.Symbol, Status: StatusRejected, Reason: ReasonHold}
	}

	portfolio := led.Snapshot()

	price, ok := prices[sig.Symbol]
	if !ok || price <= 0 {
		if pos, held := portfolio.Positions[sig.Symbol]; held {
			price = pos.LastPrice
		}
	}
	if price <= 0 {
		return Result{Symbol: sig.Symbol, Status: StatusRejected, Reason: ReasonNoPrice}
	}

	side, quantity := e.size(portfolio, sig, price)
	if quantity <= 0 {
		return Result{Symbol: sig.Symbol, Status: StatusRejected, Reason: ReasonNoQuantity}
	}

	proposed := types.Trade{
		Symbol:     sig.Symbol,
		Side:       side,
		Quantity:   quantity,
		Price:      price,
		Commission: quantity * price * e.cfg.CommissionRate,
	}

	check := e.gate.CheckPreTrade(portfolio, proposed, sectors, th)
	for _, warning := range check.Warnings {
		e.log.Warning("risk warning for %s: %s", sig.Symbol, warning)
	}
	if !check.Passed {
		e.log.Info("trade blocked by risk gate: %s %s qty=%.4f (%d violations)",
			side, sig.Symbol, quantity, len(check.Violations))
		return Result{
			Symbol:     sig.Symbol,
			Side:       side,
			Status:     StatusRejected,
			Reason:     ReasonRiskViolation,
			Quantity:   quantity,
			Price:      price,
			Violations: check.Violations,
			Warnings:   check.Warnings,
		}
	}

	orderResult, err := e.placeWithRetry(ctx, broker.OrderRequest{
		ClientOrderID: uuid.NewString(),
		Symbol:        sig.Symbol,
		Side:          side,
		Quantity:      quantity,
		OrderType:     broker.OrderTypeMarket,
	})
	if err != nil {
		reason := ReasonBrokerRejected
		if broker.IsTransient(err) {
			reason = ReasonBrokerUnavailable
		}
		e.log.LogError(fmt.Sprintf("order failed for %s %s", side, sig.Symbol), err)
		return Result{
			Symbol:   sig.Symbol,
			Side:     side,
			Status:   StatusRejected,
			Reason:   reason,
			Detail:   err.Error(),
			Quantity: quantity,
			Price:    price,
		}
	}

	// An acknowledged order with no reported fill may still be live at
	// the broker. Re-poll before classifying anything.
	if orderResult.FilledQuantity <= 0 && orderResult.State == broker.OrderStatePartiallyFilled {
		orderResult = e.confirmFill(ctx, orderResult)
	}

	if orderResult.State == broker.OrderStateRejected ||
		(orderResult.State == broker.OrderStateCancelled && orderResult.FilledQuantity <= 0) {
		return Result{
			Symbol:  sig.Symbol,
			Side:    side,
			OrderID: orderResult.OrderID,
			Status:  StatusRejected,
			Reason:  ReasonBrokerRejected,
			Detail:  fmt.Sprintf("broker state %s with %.4f filled", orderResult.State, orderResult.FilledQuantity),
		}
	}

	if orderResult.FilledQuantity <= 0 {
		// The order was accepted and may yet fill; writing it off as
		// rejected would silently diverge the ledger from the account.
		e.log.Error("order %s for %s acknowledged but unconfirmed, manual reconciliation required",
			orderResult.OrderID, sig.Symbol)
		return Result{
			Symbol:   sig.Symbol,
			Side:     side,
			OrderID:  orderResult.OrderID,
			Status:   StatusRejected,
			Reason:   ReasonUnreconciled,
			Detail:   fmt.Sprintf("order acknowledged in state %s with no confirmed fill", orderResult.State),
			Quantity: quantity,
			Price:    price,
		}
	}

	// Reconcile the filled portion immediately. A partial fill is a
	// real position; the remainder is reported, not waited on.
	trade := types.Trade{
		TradeID:    uuid.NewString(),
		Timestamp:  time.Now(),
		Symbol:     sig.Symbol,
		Side:       side,
		Quantity:   orderResult.FilledQuantity,
		Price:      orderResult.AvgFillPrice,
		Commission: orderResult.Commission,
	}
	if err := led.ApplyTrade(trade); err != nil {
		// The pre-flight check passed but the ledger refused the fill:
		// a pricing or sizing bug, not something to retry silently.
		e.log.LogError("ledger rejected reconciled fill, manual review required", err)
		return Result{
			Symbol:  sig.Symbol,
			Side:    side,
			OrderID: orderResult.OrderID,
			Status:  StatusRejected,
			Reason:  ReasonReconciliation,
			Detail:  err.Error(),
		}
	}

	status := StatusFilled
	if orderResult.State == broker.OrderStatePartiallyFilled {
		status = StatusPartial
	}
	e.log.LogTradeExecution(string(side), sig.Symbol, orderResult.OrderID,
		trade.Quantity, trade.Price, trade.Commission)

	return Result{
		TradeID:    trade.TradeID,
		OrderID:    orderResult.OrderID,
		Symbol:     sig.Symbol,
		Side:       side,
		Status:     status,
		Quantity:   trade.Quantity,
		Price:      trade.Price,
		Commission: trade.Commission,
		Warnings:   check.Warnings,
	}
}

// size resolves the signal into a side and quantity. A target weight
// overrides the signal's action when the delta points the other way:
// weight sizing is authoritative about the desired end state.
func (e *Executor) size(portfolio ledger.Portfolio, sig types.Signal, price float64) (types.TradeSide, float64) {
	held := portfolio.Quantity(sig.Symbol)

	if sig.HasTargetWeight() {
		targetQty := math.Floor(*sig.TargetWeight * portfolio.TotalValue() / price)
		delta := targetQty - held
		switch {
		case delta > 0:
			return types.TradeSideBuy, delta
		case delta < 0:
			return types.TradeSideSell, math.Min(-delta, held)
		default:
			return types.TradeSideBuy, 0
		}
	}

	if sig.Action == types.ActionSell {
		// Without an explicit weight a sell closes the position.
		return types.TradeSideSell, held
	}

	qty := math.Floor(e.cfg.DefaultOrderPct * portfolio.TotalValue() / price)
	return types.TradeSideBuy, qty
}

// confirmFill re-polls the broker for an order that was acknowledged
// without a reported fill. Live brokers ack placement before execution
// settles, so a zero-fill result here usually means the fill is still
// in flight. Polling is bounded by the retry config; the last status
// seen wins.
func (e *Executor) confirmFill(ctx context.Context, result *broker.OrderResult) *broker.OrderResult {
	for attempt := 0; attempt <= e.cfg.Retry.MaxRetries; attempt++ {
		select {
		case <-ctx.Done():
			return result
		case <-time.After(e.cfg.Retry.delay(attempt)):
		}

		status, err := e.broker.GetOrderStatus(ctx, result.OrderID)
		if err != nil {
			e.log.Warning("status poll %d for order %s failed: %v", attempt+1, result.OrderID, err)
			continue
		}
		result = &broker.OrderResult{
			OrderID:        status.OrderID,
			State:          status.State,
			FilledQuantity: status.FilledQuantity,
			AvgFillPrice:   status.AvgFillPrice,
			Commission:     result.Commission,
			SubmittedAt:    result.SubmittedAt,
		}
		if result.FilledQuantity > 0 ||
			result.State == broker.OrderStateRejected || result.State == broker.OrderStateCancelled {
			return result
		}
	}
	return result
}

// placeWithRetry submits the order, retrying transient failures with
// exponential backoff. Permanent failures return immediately.
func (e *Executor) placeWithRetry(ctx context.Context, req broker.OrderRequest) (*broker.OrderResult, error) {
	var lastErr error

	for attempt := 0; attempt <= e.cfg.Retry.MaxRetries; attempt++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		callCtx := ctx
		var cancel context.CancelFunc
		if e.cfg.OrderTimeout > 0 {
			callCtx, cancel = context.WithTimeout(ctx, e.cfg.OrderTimeout)
		}
		result, err := e.broker.PlaceOrder(callCtx, req)
		if cancel != nil {
			cancel()
		}
		if err == nil {
			return result, nil
		}

		lastErr = err
		if !broker.IsTransient(err) || attempt == e.cfg.Retry.MaxRetries {
			break
		}

		delay := e.cfg.Retry.delay(attempt)
		e.log.Warning("transient broker failure for %s (attempt %d/%d), retrying in %s: %v",
			req.Symbol, attempt+1, e.cfg.Retry.MaxRetries, delay, err)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}

	return nil, lastErr
}
