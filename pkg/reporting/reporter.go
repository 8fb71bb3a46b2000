package reporting

import (
	"github.com/quantframe/sessions/internal/session"
)

// DefaultReporter implements the complete Reporter interface
type DefaultReporter struct {
	console *DefaultConsoleReporter
	csv     *DefaultCSVReporter
	excel   *DefaultExcelReporter
	json    *DefaultJSONReporter
	paths   *DefaultPathManager
}

// NewDefaultReporter creates a new default reporter with all functionality
func NewDefaultReporter() *DefaultReporter {
	return &DefaultReporter{
		console: NewDefaultConsoleReporter(),
		csv:     NewDefaultCSVReporter(),
		excel:   NewDefaultExcelReporter(),
		json:    NewDefaultJSONReporter(),
		paths:   NewDefaultPathManager(),
	}
}

// Console output methods
func (r *DefaultReporter) OutputSummary(summary *session.Summary) {
	r.console.OutputSummary(summary)
}

func (r *DefaultReporter) OutputTickReport(report *session.TickReport) {
	r.console.OutputTickReport(report)
}

// File output methods
func (r *DefaultReporter) WriteTradesCSV(summary *session.Summary, trades TradeLog, path string) error {
	return r.csv.WriteTradesCSV(summary, trades, path)
}

func (r *DefaultReporter) WriteSessionXLSX(summary *session.Summary, trades TradeLog, path string) error {
	return r.excel.WriteSessionXLSX(summary, trades, path)
}

func (r *DefaultReporter) WriteSummaryJSON(summary *session.Summary, path string) error {
	return r.json.WriteSummaryJSON(summary, path)
}

// Path methods
func (r *DefaultReporter) GetDefaultOutputDir(sessionID string) string {
	return r.paths.GetDefaultOutputDir(sessionID)
}

func (r *DefaultReporter) EnsureDirectoryExists(path string) error {
	return r.paths.EnsureDirectoryExists(path)
}

// WriteAll writes every enabled file format into the output directory.
func (r *DefaultReporter) WriteAll(cfg ReportingConfig, summary *session.Summary, trades TradeLog) error {
	dir := cfg.OutputDirectory
	if dir == "" {
		dir = r.GetDefaultOutputDir(summary.SessionID)
	}

	if cfg.EnableConsole {
		r.OutputSummary(summary)
	}
	if cfg.JSONEnabled {
		if err := r.WriteSummaryJSON(summary, dir+"/summary.json"); err != nil {
			return err
		}
	}
	if cfg.CSVEnabled {
		if err := r.WriteTradesCSV(summary, trades, dir+"/trades.csv"); err != nil {
			return err
		}
	}
	if cfg.ExcelEnabled {
		if err := r.WriteSessionXLSX(summary, trades, dir+"/session.xlsx"); err != nil {
			return err
		}
	}
	return nil
}
