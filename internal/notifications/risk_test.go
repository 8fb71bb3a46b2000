package notifications

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/quantframe/sessions/internal/risk"
)

func TestFormatRiskAlert(t *testing.T) {
	alert := &risk.Alert{
		Severity:           risk.SeverityCritical,
		AlertType:          "drawdown",
		Message:            "drawdown limit breached",
		CurrentValue:       0.18,
		ThresholdValue:     0.15,
		AffectedPositions:  []string{"BTCUSDT", "ETHUSDT"},
		RecommendedActions: []string{"reduce exposure"},
	}

	level, message := FormatRiskAlert("sess-1", alert)

	assert.Equal(t, "critical", level)
	assert.Contains(t, message, "sess-1")
	assert.Contains(t, message, "drawdown limit breached")
	assert.Contains(t, message, "18.00%")
	assert.Contains(t, message, "15.00%")
	assert.Contains(t, message, "BTCUSDT, ETHUSDT")
	assert.Contains(t, message, "reduce exposure")
}

func TestFormatRiskAlert_Warning(t *testing.T) {
	alert := &risk.Alert{
		Severity:       risk.SeverityWarning,
		AlertType:      "daily_loss",
		Message:        "daily loss approaching limit",
		CurrentValue:   0.042,
		ThresholdValue: 0.05,
	}

	level, message := FormatRiskAlert("sess-2", alert)
	assert.Equal(t, "warning", level)
	assert.Contains(t, message, "daily_loss")
	assert.NotContains(t, message, "Positions:")
}
