package risk

import "fmt"

// Thresholds are the immutable risk limits for one session. Validated at
// construction so a malformed limit fails fast instead of at first use.
// Limits are fractions: a MaxPositionPct of 0.25 caps any one position
// at 25% of total value, MaxSectorPct caps a sector's combined weight,
// and MaxDrawdownPct bounds the peak-to-trough fall in portfolio value.
type Thresholds struct {
	MaxPositionPct  float64 `json:"max_position_pct"`
	MaxSectorPct    float64 `json:"max_sector_pct"`
	MaxDrawdownPct  float64 `json:"max_drawdown_pct"`
	MaxDailyLossPct float64 `json:"max_daily_loss_pct"`
	MinSharpe       float64 `json:"min_sharpe"`
}

// DefaultThresholds returns conservative limits suitable for simulation.
func DefaultThresholds() Thresholds {
	return Thresholds{
		MaxPositionPct:  0.25,
		MaxSectorPct:    0.40,
		MaxDrawdownPct:  0.15,
		MaxDailyLossPct: 0.05,
		MinSharpe:       0.0,
	}
}

// Validate checks that every limit is a usable fraction.
func (t Thresholds) Validate() error {
	checkPct := func(name string, v float64) error {
		if v <= 0 || v > 1.0 {
			return fmt.Errorf("invalid %s: %.4f (must be 0 < x <= 1.0)", name, v)
		}
		return nil
	}

	if err := checkPct("max_position_pct", t.MaxPositionPct); err != nil {
		return err
	}
	if err := checkPct("max_sector_pct", t.MaxSectorPct); err != nil {
		return err
	}
	if err := checkPct("max_drawdown_pct", t.MaxDrawdownPct); err != nil {
		return err
	}
	return checkPct("max_daily_loss_pct", t.MaxDailyLossPct)
}

// Violation is one hard rule breach found during a pre-trade check.
type Violation struct {
	Rule         string  `json:"rule"` // "position_concentration", "sector_concentration", "cash"
	Message      string  `json:"message"`
	CurrentValue float64 `json:"current_value"`
	Limit        float64 `json:"limit"`
}

// CheckResult is the outcome of a pre-trade evaluation. All rules run;
// violations are collected rather than short-circuited so the caller sees
// the complete picture.
type CheckResult struct {
	Passed               bool        `json:"passed"`
	RiskScore            float64     `json:"risk_score"` // 0.0 (calm) .. 1.0 (at limits)
	Warnings             []string    `json:"warnings"`
	Violations           []Violation `json:"violations"`
	SuggestedAdjustments []string    `json:"suggested_adjustments"`
}

// AlertSeverity grades a periodic risk alert.
type AlertSeverity string

const (
	SeverityInfo     AlertSeverity = "info"
	SeverityWarning  AlertSeverity = "warning"
	SeverityCritical AlertSeverity = "critical"
)

// Alert is raised by the periodic check when drawdown or daily loss
// approaches or breaches its threshold. Critical alerts pause the session.
type Alert struct {
	Severity           AlertSeverity `json:"severity"`
	AlertType          string        `json:"alert_type"` // "drawdown", "daily_loss"
	Message            string        `json:"message"`
	CurrentValue       float64       `json:"current_value"`
	ThresholdValue     float64       `json:"threshold_value"`
	AffectedPositions  []string      `json:"affected_positions"`
	RecommendedActions []string      `json:"recommended_actions"`
}

// IsCritical reports whether the alert must pause the session.
func (a *Alert) IsCritical() bool {
	return a != nil && a.Severity == SeverityCritical
}
