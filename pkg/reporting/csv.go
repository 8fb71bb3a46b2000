package reporting

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/quantframe/sessions/internal/session"
)

// DefaultCSVReporter implements CSV output functionality
type DefaultCSVReporter struct{}

// NewDefaultCSVReporter creates a new CSV reporter
func NewDefaultCSVReporter() *DefaultCSVReporter {
	return &DefaultCSVReporter{}
}

// WriteTradesCSV writes the trade history to a CSV file with a trailing
// summary row.
func (r *DefaultCSVReporter) WriteTradesCSV(summary *session.Summary, log TradeLog, path string) error {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}

	// An Excel extension gets the Excel writer.
	if strings.HasSuffix(strings.ToLower(path), ".xlsx") {
		return WriteSessionXLSX(summary, log, path)
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	if err := w.Write([]string{
		"Trade_ID",
		"Timestamp",
		"Symbol",
		"Side",
		"Quantity",
		"Price",
		"Value",
		"Commission",
	}); err != nil {
		return err
	}

	var totalValue, totalCommission float64
	for _, t := range log.Trades {
		totalValue += t.Value()
		totalCommission += t.Commission

		row := []string{
			t.TradeID,
			t.Timestamp.Format("2006-01-02 15:04:05"),
			t.Symbol,
			string(t.Side),
			fmt.Sprintf("%.8f", t.Quantity),
			fmt.Sprintf("%.8f", t.Price),
			fmt.Sprintf("$%.2f", t.Value()),
			fmt.Sprintf("$%.4f", t.Commission),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}

	line := fmt.Sprintf("SUMMARY: trades=%d; traded_value=$%.2f; commission=$%.4f; return=%.2f%%; win_rate=%.1f%%",
		len(log.Trades), totalValue, totalCommission, summary.TotalReturn*100, summary.WinRate*100)

	summaryRow := make([]string, 8)
	summaryRow[7] = line
	return w.Write(summaryRow)
}

// Package-level convenience function
func WriteTradesCSV(summary *session.Summary, log TradeLog, path string) error {
	reporter := NewDefaultCSVReporter()
	return reporter.WriteTradesCSV(summary, log, path)
}
