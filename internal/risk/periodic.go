package risk

import (
	"fmt"
	"sort"
	"time"

	"github.com/quantframe/sessions/internal/ledger"
	"github.com/quantframe/sessions/pkg/types"
)

// earlyWarnBand raises a warning alert at 80% of a periodic threshold.
const earlyWarnBand = 0.80

// PeriodicCheck computes current drawdown (peak-to-trough over the value
// history) and the running loss for the latest recorded day, then grades
// them against the thresholds. Returns nil when both are comfortably
// inside their limits, a warning alert at 80% of either limit, and a
// critical alert at or beyond a limit. Critical beats warning when both
// measures trip.
func (g *Gate) PeriodicCheck(portfolio ledger.Portfolio, history []types.ValuePoint, th Thresholds) *Alert {
	if len(history) == 0 {
		return nil
	}

	drawdown := currentDrawdown(history)
	dailyLoss := dailyLoss(history)

	affected := affectedSymbols(portfolio)

	if drawdown >= th.MaxDrawdownPct {
		return &Alert{
			Severity:  SeverityCritical,
			AlertType: "drawdown",
			Message: fmt.Sprintf("drawdown %.1f%% breached the %.1f%% limit",
				drawdown*100, th.MaxDrawdownPct*100),
			CurrentValue:      drawdown,
			ThresholdValue:    th.MaxDrawdownPct,
			AffectedPositions: affected,
			RecommendedActions: []string{
				"session paused automatically",
				"review open positions before resuming",
			},
		}
	}

	if dailyLoss >= th.MaxDailyLossPct {
		return &Alert{
			Severity:  SeverityCritical,
			AlertType: "daily_loss",
			Message: fmt.Sprintf("daily loss %.1f%% breached the %.1f%% limit",
				dailyLoss*100, th.MaxDailyLossPct*100),
			CurrentValue:      dailyLoss,
			ThresholdValue:    th.MaxDailyLossPct,
			AffectedPositions: affected,
			RecommendedActions: []string{
				"session paused automatically",
				"wait for the next trading day or reduce exposure",
			},
		}
	}

	if drawdown >= th.MaxDrawdownPct*earlyWarnBand {
		return &Alert{
			Severity:  SeverityWarning,
			AlertType: "drawdown",
			Message: fmt.Sprintf("drawdown %.1f%% is at %.0f%% of the %.1f%% limit",
				drawdown*100, drawdown/th.MaxDrawdownPct*100, th.MaxDrawdownPct*100),
			CurrentValue:       drawdown,
			ThresholdValue:     th.MaxDrawdownPct,
			AffectedPositions:  affected,
			RecommendedActions: []string{"consider trimming losing positions"},
		}
	}

	if dailyLoss >= th.MaxDailyLossPct*earlyWarnBand {
		return &Alert{
			Severity:  SeverityWarning,
			AlertType: "daily_loss",
			Message: fmt.Sprintf("daily loss %.1f%% is at %.0f%% of the %.1f%% limit",
				dailyLoss*100, dailyLoss/th.MaxDailyLossPct*100, th.MaxDailyLossPct*100),
			CurrentValue:       dailyLoss,
			ThresholdValue:     th.MaxDailyLossPct,
			AffectedPositions:  affected,
			RecommendedActions: []string{"slow down new entries for the rest of the day"},
		}
	}

	return nil
}

// currentDrawdown is the decline from the historical peak to the latest
// value, as a fraction of the peak.
func currentDrawdown(history []types.ValuePoint) float64 {
	peak := history[0].Value
	for _, point := range history {
		if point.Value > peak {
			peak = point.Value
		}
	}
	if peak <= 0 {
		return 0
	}

	latest := history[len(history)-1].Value
	dd := (peak - latest) / peak
	if dd < 0 {
		return 0
	}
	return dd
}

// dailyLoss is the fractional loss from the first observation of the
// latest recorded calendar day to the latest observation. Gains clamp to
// zero.
func dailyLoss(history []types.ValuePoint) float64 {
	latest := history[len(history)-1]
	day := latest.Timestamp.Truncate(24 * time.Hour)

	baseline := latest.Value
	for _, point := range history {
		if !point.Timestamp.Before(day) {
			baseline = point.Value
			break
		}
	}
	if baseline <= 0 {
		return 0
	}

	loss := (baseline - latest.Value) / baseline
	if loss < 0 {
		return 0
	}
	return loss
}

func affectedSymbols(portfolio ledger.Portfolio) []string {
	symbols := make([]string, 0, len(portfolio.Positions))
	for symbol := range portfolio.Positions {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)
	return symbols
}
