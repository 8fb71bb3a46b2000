package reporting

// Package reporting renders session results to console and files.

import (
	"github.com/quantframe/sessions/internal/session"
	"github.com/quantframe/sessions/pkg/types"
)

// TradeLog carries the raw history a file report is built from.
type TradeLog struct {
	Trades       []types.Trade      `json:"trades"`
	ValueHistory []types.ValuePoint `json:"value_history"`
}

// ConsoleReporter defines interface for console output
type ConsoleReporter interface {
	OutputSummary(summary *session.Summary)
	OutputTickReport(report *session.TickReport)
}

// FileReporter defines interface for file output
type FileReporter interface {
	WriteTradesCSV(summary *session.Summary, trades TradeLog, path string) error
	WriteSessionXLSX(summary *session.Summary, trades TradeLog, path string) error
	WriteSummaryJSON(summary *session.Summary, path string) error
}

// PathManager defines interface for output path management
type PathManager interface {
	GetDefaultOutputDir(sessionID string) string
	EnsureDirectoryExists(path string) error
}

// Reporter combines all reporting interfaces
type Reporter interface {
	ConsoleReporter
	FileReporter
	PathManager
}

// ExcelStyles holds Excel formatting styles
type ExcelStyles struct {
	HeaderStyle   int
	CurrencyStyle int
	PercentStyle  int
	BaseStyle     int
	BuyStyle      int
	SellStyle     int
	SummaryStyle  int
}

// ReportingConfig holds configuration for reporting
type ReportingConfig struct {
	EnableConsole   bool
	OutputDirectory string
	ExcelEnabled    bool
	CSVEnabled      bool
	JSONEnabled     bool
}
