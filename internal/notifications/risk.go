package notifications

import (
	"fmt"
	"strings"

	"github.com/quantframe/sessions/internal/risk"
)

// FormatRiskAlert renders a risk alert as a notification message.
func FormatRiskAlert(sessionID string, alert *risk.Alert) (level, message string) {
	level = string(alert.Severity)

	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s\n%s\n", sessionID, alert.AlertType, alert.Message)
	fmt.Fprintf(&b, "Current: %.2f%% | Limit: %.2f%%", alert.CurrentValue*100, alert.ThresholdValue*100)
	if len(alert.AffectedPositions) > 0 {
		fmt.Fprintf(&b, "\nPositions: %s", strings.Join(alert.AffectedPositions, ", "))
	}
	for _, action := range alert.RecommendedActions {
		fmt.Fprintf(&b, "\n- %s", action)
	}
	return level, b.String()
}
