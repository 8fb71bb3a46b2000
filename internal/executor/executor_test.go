package executor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantframe/sessions/internal/broker"
	"github.com/quantframe/sessions/internal/broker/sim"
	"github.com/quantframe/sessions/internal/ledger"
	"github.com/quantframe/sessions/internal/risk"
	"github.com/quantframe/sessions/pkg/types"
)

func fastConfig() Config {
	cfg := DefaultConfig()
	cfg.Retry.InitialDelay = time.Millisecond
	cfg.Retry.MaxDelay = 2 * time.Millisecond
	return cfg
}

func newFixture(t *testing.T, capital float64) (*Executor, *ledger.Ledger, *sim.Broker) {
	t.Helper()

	led, err := ledger.Open(capital)
	require.NoError(t, err)

	simBroker := sim.New()
	require.NoError(t, simBroker.Connect(context.Background()))

	return New(simBroker, risk.NewGate(), nil, fastConfig()), led, simBroker
}

func weight(w float64) *float64 { return &w }

func TestExecute_HoldIsRejectedImmediately(t *testing.T) {
	exec, led, simBroker := newFixture(t, 100000)

	result := exec.Execute(context.Background(), led,
		types.Signal{Symbol: "AAA", Action: types.ActionHold},
		nil, nil, risk.DefaultThresholds())

	assert.Equal(t, StatusRejected, result.Status)
	assert.Equal(t, ReasonHold, result.Reason)
	assert.Zero(t, simBroker.PlaceOrderCalls())
}

func TestExecute_TargetWeightSizing(t *testing.T) {
	exec, led, simBroker := newFixture(t, 100000)
	simBroker.SetPrice("AAA", 100)

	// 10% of a 100,000 portfolio at price 100 is exactly 100 shares.
	result := exec.Execute(context.Background(), led,
		types.Signal{Symbol: "AAA", Action: types.ActionBuy, Score: 0.9, TargetWeight: weight(0.10)},
		map[string]float64{"AAA": 100}, nil, risk.DefaultThresholds())

	require.Equal(t, StatusFilled, result.Status)
	assert.InDelta(t, 100, result.Quantity, 1e-9)
	assert.InDelta(t, 90000, led.Cash(), 1e-9)
	assert.InDelta(t, 100000, led.TotalValue(), 1e-9)
}

func TestExecute_TargetWeightBelowHoldingSells(t *testing.T) {
	exec, led, simBroker := newFixture(t, 100000)
	simBroker.SetPrice("AAA", 100)
	prices := map[string]float64{"AAA": 100}

	buy := exec.Execute(context.Background(), led,
		types.Signal{Symbol: "AAA", Action: types.ActionBuy, TargetWeight: weight(0.20)},
		prices, nil, risk.DefaultThresholds())
	require.Equal(t, StatusFilled, buy.Status)
	require.InDelta(t, 200, buy.Quantity, 1e-9)

	// Reducing the target to 5% sells the 150-share difference.
	sell := exec.Execute(context.Background(), led,
		types.Signal{Symbol: "AAA", Action: types.ActionBuy, TargetWeight: weight(0.05)},
		prices, nil, risk.DefaultThresholds())
	require.Equal(t, StatusFilled, sell.Status)
	assert.Equal(t, types.TradeSideSell, sell.Side)
	assert.InDelta(t, 150, sell.Quantity, 1e-9)
}

func TestExecute_RiskViolationSkipsBroker(t *testing.T) {
	exec, led, simBroker := newFixture(t, 100000)
	simBroker.SetPrice("AAA", 100)

	th := risk.DefaultThresholds()
	th.MaxPositionPct = 0.25

	result := exec.Execute(context.Background(), led,
		types.Signal{Symbol: "AAA", Action: types.ActionBuy, TargetWeight: weight(0.30)},
		map[string]float64{"AAA": 100}, nil, th)

	assert.Equal(t, StatusRejected, result.Status)
	assert.Equal(t, ReasonRiskViolation, result.Reason)
	assert.NotEmpty(t, result.Violations)
	assert.Zero(t, simBroker.PlaceOrderCalls(), "risk-rejected trade must not reach the broker")
	assert.InDelta(t, 100000, led.Cash(), 1e-9)
}

func TestExecute_TransientFailureRetriesThenSucceeds(t *testing.T) {
	exec, led, simBroker := newFixture(t, 100000)
	simBroker.SetPrice("AAA", 100)
	simBroker.FailNext(
		broker.NewTransientError("place_order", errors.New("connection reset")),
		broker.NewTransientError("place_order", errors.New("timeout")),
	)

	result := exec.Execute(context.Background(), led,
		types.Signal{Symbol: "AAA", Action: types.ActionBuy, TargetWeight: weight(0.10)},
		map[string]float64{"AAA": 100}, nil, risk.DefaultThresholds())

	assert.Equal(t, StatusFilled, result.Status)
	assert.Equal(t, 3, simBroker.PlaceOrderCalls())
}

func TestExecute_TransientFailureExhaustsRetries(t *testing.T) {
	exec, led, simBroker := newFixture(t, 100000)
	simBroker.SetPrice("AAA", 100)

	transient := broker.NewTransientError("place_order", errors.New("timeout"))
	simBroker.FailNext(transient, transient, transient, transient)

	result := exec.Execute(context.Background(), led,
		types.Signal{Symbol: "AAA", Action: types.ActionBuy, TargetWeight: weight(0.10)},
		map[string]float64{"AAA": 100}, nil, risk.DefaultThresholds())

	assert.Equal(t, StatusRejected, result.Status)
	assert.Equal(t, ReasonBrokerUnavailable, result.Reason)
	assert.Equal(t, 4, simBroker.PlaceOrderCalls(), "initial attempt plus three retries")
	assert.InDelta(t, 100000, led.Cash(), 1e-9)
}

func TestExecute_PermanentFailureNoRetry(t *testing.T) {
	exec, led, simBroker := newFixture(t, 100000)
	simBroker.SetPrice("AAA", 100)
	simBroker.FailNext(broker.NewPermanentError("place_order", "invalid symbol", nil))

	result := exec.Execute(context.Background(), led,
		types.Signal{Symbol: "AAA", Action: types.ActionBuy, TargetWeight: weight(0.10)},
		map[string]float64{"AAA": 100}, nil, risk.DefaultThresholds())

	assert.Equal(t, StatusRejected, result.Status)
	assert.Equal(t, ReasonBrokerRejected, result.Reason)
	assert.Equal(t, 1, simBroker.PlaceOrderCalls())
}

func TestExecute_PartialFillReconcilesFilledPortion(t *testing.T) {
	exec, led, simBroker := newFixture(t, 100000)
	simBroker.SetPrice("AAA", 100)
	simBroker.SetFillRatio(0.5)

	result := exec.Execute(context.Background(), led,
		types.Signal{Symbol: "AAA", Action: types.ActionBuy, TargetWeight: weight(0.10)},
		map[string]float64{"AAA": 100}, nil, risk.DefaultThresholds())

	require.Equal(t, StatusPartial, result.Status)
	assert.InDelta(t, 50, result.Quantity, 1e-9)
	assert.InDelta(t, 50, led.Snapshot().Positions["AAA"].Quantity, 1e-9)
	assert.InDelta(t, 95000, led.Cash(), 1e-9)
}

func TestExecute_DeferredFillConfirmedByStatusPoll(t *testing.T) {
	exec, led, simBroker := newFixture(t, 100000)
	simBroker.SetPrice("AAA", 100)
	simBroker.DeferNextFills(1)

	// The ack reports nothing executed; the fill only shows up on a
	// status poll afterwards.
	result := exec.Execute(context.Background(), led,
		types.Signal{Symbol: "AAA", Action: types.ActionBuy, TargetWeight: weight(0.10)},
		map[string]float64{"AAA": 100}, nil, risk.DefaultThresholds())

	require.Equal(t, StatusFilled, result.Status)
	assert.InDelta(t, 100, result.Quantity, 1e-9)
	assert.InDelta(t, 90000, led.Cash(), 1e-9)
	assert.InDelta(t, 100, led.Snapshot().Positions["AAA"].Quantity, 1e-9)
}

func TestExecute_RestingOrderFlaggedUnreconciled(t *testing.T) {
	exec, led, simBroker := newFixture(t, 100000)
	simBroker.SetPrice("AAA", 100)
	simBroker.RestNextOrders(1)

	result := exec.Execute(context.Background(), led,
		types.Signal{Symbol: "AAA", Action: types.ActionBuy, TargetWeight: weight(0.10)},
		map[string]float64{"AAA": 100}, nil, risk.DefaultThresholds())

	// A live order that never confirms is not a rejection: it is
	// surfaced for manual reconciliation and leaves the ledger alone.
	assert.Equal(t, StatusRejected, result.Status)
	assert.Equal(t, ReasonUnreconciled, result.Reason)
	assert.NotEmpty(t, result.OrderID)
	assert.InDelta(t, 100000, led.Cash(), 1e-9)
	assert.Empty(t, led.Snapshot().Positions)
}

func TestExecute_DefaultSizingWithoutTargetWeight(t *testing.T) {
	exec, led, simBroker := newFixture(t, 100000)
	simBroker.SetPrice("AAA", 250)

	// Default rule is 10% of total value: 10,000 / 250 = 40 shares.
	result := exec.Execute(context.Background(), led,
		types.Signal{Symbol: "AAA", Action: types.ActionBuy, Score: 0.5},
		map[string]float64{"AAA": 250}, nil, risk.DefaultThresholds())

	require.Equal(t, StatusFilled, result.Status)
	assert.InDelta(t, 40, result.Quantity, 1e-9)
}

func TestExecute_SellWithoutPositionRejected(t *testing.T) {
	exec, led, simBroker := newFixture(t, 100000)
	simBroker.SetPrice("AAA", 100)

	result := exec.Execute(context.Background(), led,
		types.Signal{Symbol: "AAA", Action: types.ActionSell},
		map[string]float64{"AAA": 100}, nil, risk.DefaultThresholds())

	assert.Equal(t, StatusRejected, result.Status)
	assert.Equal(t, ReasonNoQuantity, result.Reason)
	assert.Zero(t, simBroker.PlaceOrderCalls())
}

func TestExecute_NoPriceRejected(t *testing.T) {
	exec, led, simBroker := newFixture(t, 100000)
	_ = simBroker

	result := exec.Execute(context.Background(), led,
		types.Signal{Symbol: "ZZZ", Action: types.ActionBuy},
		nil, nil, risk.DefaultThresholds())

	assert.Equal(t, StatusRejected, result.Status)
	assert.Equal(t, ReasonNoPrice, result.Reason)
}
