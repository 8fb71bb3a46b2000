package reporting

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"github.com/quantframe/sessions/internal/session"
	"github.com/quantframe/sessions/pkg/types"
)

// DefaultExcelReporter implements Excel output functionality
type DefaultExcelReporter struct{}

// NewDefaultExcelReporter creates a new Excel reporter
func NewDefaultExcelReporter() *DefaultExcelReporter {
	return &DefaultExcelReporter{}
}

// WriteSessionXLSX writes a workbook with summary, trade and equity
// sheets.
func (r *DefaultExcelReporter) WriteSessionXLSX(summary *session.Summary, log TradeLog, path string) error {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	fx := excelize.NewFile()
	defer fx.Close()

	const summarySheet = "Summary"
	const tradesSheet = "Trades"
	const equitySheet = "Equity"

	fx.SetSheetName(fx.GetSheetName(0), summarySheet)
	fx.NewSheet(tradesSheet)
	fx.NewSheet(equitySheet)

	styles, err := r.createExcelStyles(fx)
	if err != nil {
		return err
	}

	if err := r.writeSummarySheet(fx, summarySheet, summary, styles); err != nil {
		return err
	}
	if err := r.writeTradesSheet(fx, tradesSheet, log.Trades, styles); err != nil {
		return err
	}
	if err := r.writeEquitySheet(fx, equitySheet, log.ValueHistory, styles); err != nil {
		return err
	}

	return fx.SaveAs(path)
}

// createExcelStyles creates the shared cell styles.
func (r *DefaultExcelReporter) createExcelStyles(fx *excelize.File) (ExcelStyles, error) {
	var styles ExcelStyles
	var err error

	styles.HeaderStyle, err = fx.NewStyle(&excelize.Style{
		Font: &excelize.Font{
			Bold:   true,
			Size:   11,
			Color:  "FFFFFF",
			Family: "Calibri",
		},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"2F4F4F"},
			Pattern: 1,
		},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
	})
	if err != nil {
		return styles, err
	}

	styles.CurrencyStyle, err = fx.NewStyle(&excelize.Style{
		NumFmt: 177, // $#,##0.00
		Alignment: &excelize.Alignment{
			Horizontal: "right",
		},
	})
	if err != nil {
		return styles, err
	}

	styles.PercentStyle, err = fx.NewStyle(&excelize.Style{
		NumFmt: 10, // 0.00%
		Alignment: &excelize.Alignment{
			Horizontal: "right",
		},
	})
	if err != nil {
		return styles, err
	}

	styles.BuyStyle, err = fx.NewStyle(&excelize.Style{
		Font: &excelize.Font{Color: "006100"},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"C6EFCE"},
			Pattern: 1,
		},
	})
	if err != nil {
		return styles, err
	}

	styles.SellStyle, err = fx.NewStyle(&excelize.Style{
		Font: &excelize.Font{Color: "9C0006"},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"FFC7CE"},
			Pattern: 1,
		},
	})
	return styles, err
}

func (r *DefaultExcelReporter) writeSummarySheet(fx *excelize.File, sheet string, summary *session.Summary, styles ExcelStyles) error {
	rows := []struct {
		label string
		value interface{}
		style int
	}{
		{"Session", summary.SessionID, 0},
		{"Start Date", summary.StartDate, 0},
		{"End Date", summary.EndDate, 0},
		{"Initial Capital", summary.InitialCapital, styles.CurrencyStyle},
		{"Final Value", summary.FinalValue, styles.CurrencyStyle},
		{"Final Cash", summary.FinalCash, styles.CurrencyStyle},
		{"Total Return", summary.TotalReturn, styles.PercentStyle},
		{"Max Drawdown", summary.MaxDrawdown, styles.PercentStyle},
		{"Total Trades", summary.TotalTrades, 0},
		{"Winning Trades", summary.WinningTrades, 0},
		{"Losing Trades", summary.LosingTrades, 0},
		{"Win Rate", summary.WinRate, styles.PercentStyle},
		{"Commission Paid", summary.TotalCommission, styles.CurrencyStyle},
		{"Open Positions", summary.OpenPositions, 0},
	}

	for i, row := range rows {
		labelCell := fmt.Sprintf("A%d", i+1)
		valueCell := fmt.Sprintf("B%d", i+1)
		if err := fx.SetCellValue(sheet, labelCell, row.label); err != nil {
			return err
		}
		if err := fx.SetCellValue(sheet, valueCell, row.value); err != nil {
			return err
		}
		if row.style != 0 {
			if err := fx.SetCellStyle(sheet, valueCell, valueCell, row.style); err != nil {
				return err
			}
		}
	}
	return fx.SetColWidth(sheet, "A", "B", 20)
}

func (r *DefaultExcelReporter) writeTradesSheet(fx *excelize.File, sheet string, trades []types.Trade, styles ExcelStyles) error {
	headers := []string{"Trade ID", "Timestamp", "Symbol", "Side", "Quantity", "Price", "Value", "Commission"}
	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := fx.SetCellValue(sheet, cell, header); err != nil {
			return err
		}
	}
	if err := fx.SetCellStyle(sheet, "A1", "H1", styles.HeaderStyle); err != nil {
		return err
	}

	for i, t := range trades {
		row := i + 2
		values := []interface{}{
			t.TradeID,
			t.Timestamp.Format("2006-01-02 15:04:05"),
			t.Symbol,
			string(t.Side),
			t.Quantity,
			t.Price,
			t.Value(),
			t.Commission,
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			if err := fx.SetCellValue(sheet, cell, v); err != nil {
				return err
			}
		}

		sideCell := fmt.Sprintf("D%d", row)
		style := styles.BuyStyle
		if t.Side == types.TradeSideSell {
			style = styles.SellStyle
		}
		if err := fx.SetCellStyle(sheet, sideCell, sideCell, style); err != nil {
			return err
		}
	}
	return fx.SetColWidth(sheet, "A", "H", 18)
}

func (r *DefaultExcelReporter) writeEquitySheet(fx *excelize.File, sheet string, history []types.ValuePoint, styles ExcelStyles) error {
	if err := fx.SetCellValue(sheet, "A1", "Timestamp"); err != nil {
		return err
	}
	if err := fx.SetCellValue(sheet, "B1", "Total Value"); err != nil {
		return err
	}
	if err := fx.SetCellStyle(sheet, "A1", "B1", styles.HeaderStyle); err != nil {
		return err
	}

	for i, point := range history {
		row := i + 2
		if err := fx.SetCellValue(sheet, fmt.Sprintf("A%d", row), point.Timestamp.Format("2006-01-02 15:04:05")); err != nil {
			return err
		}
		if err := fx.SetCellValue(sheet, fmt.Sprintf("B%d", row), point.Value); err != nil {
			return err
		}
		valueCell := fmt.Sprintf("B%d", row)
		if err := fx.SetCellStyle(sheet, valueCell, valueCell, styles.CurrencyStyle); err != nil {
			return err
		}
	}
	return fx.SetColWidth(sheet, "A", "B", 22)
}

// Package-level convenience function
func WriteSessionXLSX(summary *session.Summary, log TradeLog, path string) error {
	reporter := NewDefaultExcelReporter()
	return reporter.WriteSessionXLSX(summary, log, path)
}
