package risk

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantframe/sessions/internal/ledger"
	"github.com/quantframe/sessions/pkg/types"
)

func portfolioWithCash(cash float64, positions ...ledger.Position) ledger.Portfolio {
	p := ledger.Portfolio{Cash: cash, Positions: make(map[string]ledger.Position)}
	for _, pos := range positions {
		p.Positions[pos.Symbol] = pos
	}
	return p
}

func proposedBuy(symbol string, qty, price float64) types.Trade {
	return types.Trade{Symbol: symbol, Side: types.TradeSideBuy, Quantity: qty, Price: price}
}

func TestCheckPreTrade_PositionConcentrationViolation(t *testing.T) {
	gate := NewGate()
	th := DefaultThresholds()
	th.MaxPositionPct = 0.25

	// Portfolio worth 100,000; a buy sizing the position to 30,000 must
	// be rejected, one to 20,000 must pass.
	portfolio := portfolioWithCash(100000)

	result := gate.CheckPreTrade(portfolio, proposedBuy("AAA", 300, 100), nil, th)
	assert.False(t, result.Passed)
	require.Len(t, result.Violations, 1)
	assert.Equal(t, "position_concentration", result.Violations[0].Rule)
	assert.InDelta(t, 0.30, result.Violations[0].CurrentValue, 1e-9)
	assert.NotEmpty(t, result.SuggestedAdjustments)

	result = gate.CheckPreTrade(portfolio, proposedBuy("AAA", 200, 100), nil, th)
	assert.True(t, result.Passed)
	assert.Empty(t, result.Violations)
}

func TestCheckPreTrade_WarningInsideBandDoesNotBlock(t *testing.T) {
	gate := NewGate()
	th := DefaultThresholds()
	th.MaxPositionPct = 0.25

	// 24% weight: inside the 90-100% band of the 25% limit.
	result := gate.CheckPreTrade(portfolioWithCash(100000), proposedBuy("AAA", 240, 100), nil, th)
	assert.True(t, result.Passed)
	assert.NotEmpty(t, result.Warnings)
	assert.Greater(t, result.RiskScore, 0.9)
}

func TestCheckPreTrade_SectorConcentration(t *testing.T) {
	gate := NewGate()
	th := DefaultThresholds()
	th.MaxSectorPct = 0.40
	sectors := map[string]string{"AAA": "tech", "BBB": "tech", "CCC": "energy"}

	portfolio := portfolioWithCash(65000,
		ledger.Position{Symbol: "AAA", Quantity: 300, AvgCost: 100, LastPrice: 100}, // 30,000 tech
		ledger.Position{Symbol: "CCC", Quantity: 50, AvgCost: 100, LastPrice: 100},  // 5,000 energy
	)

	// Adding 15,000 of BBB pushes tech to 45% of the 100,000 portfolio.
	result := gate.CheckPreTrade(portfolio, proposedBuy("BBB", 150, 100), sectors, th)
	assert.False(t, result.Passed)
	require.Len(t, result.Violations, 1)
	assert.Equal(t, "sector_concentration", result.Violations[0].Rule)

	// An unclassified symbol skips the sector rule entirely.
	result = gate.CheckPreTrade(portfolio, proposedBuy("ZZZ", 150, 100), sectors, th)
	assert.True(t, result.Passed)
}

func TestCheckPreTrade_ProjectedCashViolation(t *testing.T) {
	gate := NewGate()
	th := Thresholds{MaxPositionPct: 1.0, MaxSectorPct: 1.0, MaxDrawdownPct: 0.15, MaxDailyLossPct: 0.05}

	portfolio := portfolioWithCash(1000,
		ledger.Position{Symbol: "AAA", Quantity: 100, AvgCost: 100, LastPrice: 100})

	result := gate.CheckPreTrade(portfolio, proposedBuy("BBB", 50, 100), nil, th)
	assert.False(t, result.Passed)
	require.Len(t, result.Violations, 1)
	assert.Equal(t, "cash", result.Violations[0].Rule)

	// Sells never trip the cash rule.
	sell := types.Trade{Symbol: "AAA", Side: types.TradeSideSell, Quantity: 50, Price: 100}
	result = gate.CheckPreTrade(portfolio, sell, nil, th)
	assert.True(t, result.Passed)
}

func TestCheckPreTrade_CollectsAllViolations(t *testing.T) {
	gate := NewGate()
	th := Thresholds{MaxPositionPct: 0.10, MaxSectorPct: 0.10, MaxDrawdownPct: 0.15, MaxDailyLossPct: 0.05}
	sectors := map[string]string{"AAA": "tech"}

	// Oversized and unaffordable: position, sector and cash rules all trip.
	result := gate.CheckPreTrade(portfolioWithCash(10000), proposedBuy("AAA", 100, 150), sectors, th)
	assert.False(t, result.Passed)
	assert.Len(t, result.Violations, 3)
}

func TestThresholds_Validate(t *testing.T) {
	assert.NoError(t, DefaultThresholds().Validate())

	bad := DefaultThresholds()
	bad.MaxPositionPct = 0
	assert.Error(t, bad.Validate())

	bad = DefaultThresholds()
	bad.MaxDrawdownPct = 1.5
	assert.Error(t, bad.Validate())
}

func history(base time.Time, values ...float64) []types.ValuePoint {
	points := make([]types.ValuePoint, len(values))
	for i, v := range values {
		points[i] = types.ValuePoint{Timestamp: base.Add(time.Duration(i) * time.Hour), Value: v}
	}
	return points
}

func TestPeriodicCheck_CriticalDrawdown(t *testing.T) {
	gate := NewGate()
	th := DefaultThresholds()
	th.MaxDrawdownPct = 0.15

	base := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	portfolio := portfolioWithCash(84000)

	// Value fell from 100,000 to 84,000: 16% drawdown against a 15% limit.
	alert := gate.PeriodicCheck(portfolio, history(base, 100000, 95000, 84000), th)
	require.NotNil(t, alert)
	assert.Equal(t, SeverityCritical, alert.Severity)
	assert.Equal(t, "drawdown", alert.AlertType)
	assert.True(t, alert.IsCritical())
	assert.InDelta(t, 0.16, alert.CurrentValue, 1e-9)
}

func TestPeriodicCheck_WarningAt80Percent(t *testing.T) {
	gate := NewGate()
	th := DefaultThresholds()
	th.MaxDrawdownPct = 0.15
	th.MaxDailyLossPct = 0.50 // keep the daily-loss rule quiet

	base := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

	// 13% drawdown: above 80% of the 15% limit, below the limit itself.
	alert := gate.PeriodicCheck(portfolioWithCash(87000), history(base, 100000, 87000), th)
	require.NotNil(t, alert)
	assert.Equal(t, SeverityWarning, alert.Severity)
	assert.False(t, alert.IsCritical())
}

func TestPeriodicCheck_DailyLoss(t *testing.T) {
	gate := NewGate()
	th := DefaultThresholds()
	th.MaxDrawdownPct = 0.90 // keep the drawdown rule quiet
	th.MaxDailyLossPct = 0.05

	day := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)
	points := []types.ValuePoint{
		{Timestamp: day.Add(-15 * time.Hour), Value: 120000}, // previous day
		{Timestamp: day.Add(9 * time.Hour), Value: 100000},   // today's open
		{Timestamp: day.Add(16 * time.Hour), Value: 94000},   // 6% down today
	}

	alert := gate.PeriodicCheck(portfolioWithCash(94000), points, th)
	require.NotNil(t, alert)
	assert.Equal(t, SeverityCritical, alert.Severity)
	assert.Equal(t, "daily_loss", alert.AlertType)
}

func TestPeriodicCheck_QuietInsideLimits(t *testing.T) {
	gate := NewGate()
	base := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

	alert := gate.PeriodicCheck(portfolioWithCash(101000), history(base, 100000, 101000), DefaultThresholds())
	assert.Nil(t, alert)

	alert = gate.PeriodicCheck(portfolioWithCash(0), nil, DefaultThresholds())
	assert.Nil(t, alert)
}
