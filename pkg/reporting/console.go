package reporting

import (
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/quantframe/sessions/internal/session"
)

// DefaultConsoleReporter implements console output functionality
type DefaultConsoleReporter struct{}

// NewDefaultConsoleReporter creates a new console reporter
func NewDefaultConsoleReporter() *DefaultConsoleReporter {
	return &DefaultConsoleReporter{}
}

// OutputSummary prints the final session summary as a table.
func (r *DefaultConsoleReporter) OutputSummary(summary *session.Summary) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetTitle("SESSION SUMMARY")
	t.SetStyle(table.StyleRounded)

	t.AppendRows([]table.Row{
		{"📋 Session", summary.SessionID},
		{"📅 Period", fmt.Sprintf("%s → %s", summary.StartDate, summary.EndDate)},
	})

	t.AppendSeparator()

	t.AppendRows([]table.Row{
		{"💰 Initial Capital", fmt.Sprintf("$%.2f", summary.InitialCapital)},
		{"💰 Final Value", fmt.Sprintf("$%.2f", summary.FinalValue)},
		{"💵 Final Cash", fmt.Sprintf("$%.2f", summary.FinalCash)},
		{"📈 Total Return", fmt.Sprintf("%.2f%%", summary.TotalReturn*100)},
		{"📉 Max Drawdown", fmt.Sprintf("%.2f%%", summary.MaxDrawdown*100)},
	})

	t.AppendSeparator()

	t.AppendRows([]table.Row{
		{"🔄 Total Trades", summary.TotalTrades},
		{"✅ Winning Trades", summary.WinningTrades},
		{"❌ Losing Trades", summary.LosingTrades},
		{"🎯 Win Rate", fmt.Sprintf("%.1f%%", summary.WinRate*100)},
		{"💸 Commission Paid", fmt.Sprintf("$%.2f", summary.TotalCommission)},
		{"📊 Open Positions", summary.OpenPositions},
	})

	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, WidthMin: 20, WidthMax: 20, Align: text.AlignLeft},
		{Number: 2, WidthMin: 25, WidthMax: 40, Align: text.AlignLeft},
	})

	t.Render()
	fmt.Println()

	if len(summary.ErrorCounts) > 0 {
		et := table.NewWriter()
		et.SetOutputMirror(os.Stdout)
		et.SetTitle("ERRORS")
		et.SetStyle(table.StyleRounded)
		for category, count := range summary.ErrorCounts {
			et.AppendRow(table.Row{category, count})
		}
		et.Render()
		fmt.Println()
	}
}

// OutputTickReport prints one tick's executions and rejections.
func (r *DefaultConsoleReporter) OutputTickReport(report *session.TickReport) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetTitle(fmt.Sprintf("TICK %s", report.Date))
	t.SetStyle(table.StyleRounded)

	t.AppendHeader(table.Row{"Symbol", "Side", "Status", "Qty", "Price", "Reason"})
	for _, res := range report.Results {
		t.AppendRow(table.Row{
			res.Symbol,
			string(res.Side),
			string(res.Status),
			fmt.Sprintf("%.4f", res.Quantity),
			fmt.Sprintf("%.4f", res.Price),
			res.Reason,
		})
	}

	t.AppendFooter(table.Row{
		"", "", "",
		fmt.Sprintf("cash $%.2f", report.Cash),
		fmt.Sprintf("total $%.2f", report.TotalValue),
		fmt.Sprintf("%d filled / %d rejected", report.Executed, report.Rejected),
	})

	t.Render()

	if report.Alert != nil {
		icon := "⚠️"
		if report.Alert.IsCritical() {
			icon = "🚨"
		}
		fmt.Printf("%s %s alert: %s\n", icon, report.Alert.AlertType, report.Alert.Message)
	}
	fmt.Println()
}

// Package-level convenience function
func OutputConsole(summary *session.Summary) {
	reporter := NewDefaultConsoleReporter()
	reporter.OutputSummary(summary)
}
