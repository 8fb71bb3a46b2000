package risk

import (
	"fmt"
	"math"

	"github.com/quantframe/sessions/internal/ledger"
	"github.com/quantframe/sessions/pkg/types"
)

// warnBand starts warnings once utilization of a limit crosses 90%.
const warnBand = 0.90

// Gate evaluates risk rules against explicit snapshots. It holds no
// state: every call receives the portfolio, the proposal, and the
// thresholds, so checks are reproducible and trivially testable.
type Gate struct{}

// NewGate returns a stateless risk gate.
func NewGate() *Gate {
	return &Gate{}
}

// CheckPreTrade evaluates the proposed trade against position, sector and
// cash rules. Rules never short-circuit; every violation is collected.
// Any violation fails the check. Warnings alone do not block.
//
// sectors maps symbol to sector name; symbols missing from the map are
// treated as unclassified and skip the sector rule.
func (g *Gate) CheckPreTrade(portfolio ledger.Portfolio, proposed types.Trade, sectors map[string]string, th Thresholds) CheckResult {
	result := CheckResult{Passed: true}

	totalValue := portfolio.TotalValue()
	if totalValue <= 0 {
		result.Passed = false
		result.RiskScore = 1.0
		result.Violations = append(result.Violations, Violation{
			Rule:    "portfolio",
			Message: "portfolio has no value, nothing can be traded",
		})
		return result
	}

	projected := projectedPositionValue(portfolio, proposed)

	// Rule 1: position concentration.
	weight := projected / totalValue
	g.applyWeightRule(&result, "position_concentration", proposed.Symbol, weight, th.MaxPositionPct)

	// Rule 2: sector concentration, only for classified symbols.
	if sector, ok := sectors[proposed.Symbol]; ok && sector != "" {
		sectorValue := projected
		for symbol, pos := range portfolio.Positions {
			if symbol != proposed.Symbol && sectors[symbol] == sector {
				sectorValue += pos.MarketValue()
			}
		}
		g.applyWeightRule(&result, "sector_concentration", sector, sectorValue/totalValue, th.MaxSectorPct)
	}

	// Rule 3: projected cash. Mirrors the ledger check, evaluated
	// pre-flight so a doomed order never reaches the broker.
	if proposed.Side == types.TradeSideBuy {
		projectedCash := portfolio.Cash - proposed.Value() - proposed.Commission
		if projectedCash < 0 {
			result.Passed = false
			result.Violations = append(result.Violations, Violation{
				Rule: "cash",
				Message: fmt.Sprintf("buy of %.4f %s costs %.2f but only %.2f cash is available",
					proposed.Quantity, proposed.Symbol, proposed.Value()+proposed.Commission, portfolio.Cash),
				CurrentValue: projectedCash,
				Limit:        0,
			})
			result.SuggestedAdjustments = append(result.SuggestedAdjustments,
				fmt.Sprintf("reduce quantity to at most %.4f", math.Floor(portfolio.Cash/proposed.Price)))
			result.RiskScore = 1.0
		}
	}

	return result
}

// applyWeightRule records a violation above the limit, a warning inside
// the 90-100%% band, and folds utilization into the risk score.
func (g *Gate) applyWeightRule(result *CheckResult, rule, subject string, weight, limit float64) {
	if limit <= 0 {
		return
	}

	utilization := weight / limit
	if utilization > result.RiskScore {
		result.RiskScore = math.Min(utilization, 1.0)
	}

	switch {
	case weight > limit:
		result.Passed = false
		result.Violations = append(result.Violations, Violation{
			Rule: rule,
			Message: fmt.Sprintf("%s weight for %s would be %.1f%%, limit is %.1f%%",
				ruleNoun(rule), subject, weight*100, limit*100),
			CurrentValue: weight,
			Limit:        limit,
		})
		result.SuggestedAdjustments = append(result.SuggestedAdjustments,
			fmt.Sprintf("scale %s exposure down by %.1f%%", subject, (1-limit/weight)*100))
	case utilization >= warnBand:
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("%s weight for %s at %.1f%% of its %.1f%% limit",
				ruleNoun(rule), subject, utilization*100, limit*100))
	}
}

func ruleNoun(rule string) string {
	switch rule {
	case "sector_concentration":
		return "sector"
	default:
		return "position"
	}
}

// projectedPositionValue is the symbol's market value after the proposed
// trade fills at its stated price.
func projectedPositionValue(portfolio ledger.Portfolio, proposed types.Trade) float64 {
	held := portfolio.Quantity(proposed.Symbol)

	var projectedQty float64
	if proposed.Side == types.TradeSideSell {
		projectedQty = held - proposed.Quantity
		if projectedQty < 0 {
			projectedQty = 0
		}
	} else {
		projectedQty = held + proposed.Quantity
	}
	return projectedQty * proposed.Price
}
