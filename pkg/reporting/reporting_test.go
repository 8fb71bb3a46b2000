package reporting

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantframe/sessions/internal/session"
	"github.com/quantframe/sessions/pkg/types"
)

func sampleSummary() *session.Summary {
	return &session.Summary{
		SessionID:      "sess-report",
		StartDate:      "2024-03-01",
		EndDate:        "2024-03-05",
		InitialCapital: 100000,
		FinalValue:     101000,
		FinalCash:      101000,
		TotalReturn:    0.01,
		TotalTrades:    2,
		WinningTrades:  1,
		WinRate:        1.0,
	}
}

func sampleTradeLog() TradeLog {
	at := time.Date(2024, 3, 1, 15, 30, 0, 0, time.UTC)
	return TradeLog{
		Trades: []types.Trade{
			{TradeID: "t1", Timestamp: at, Symbol: "AAA", Side: types.TradeSideBuy, Quantity: 100, Price: 100, Commission: 1},
			{TradeID: "t2", Timestamp: at.Add(time.Hour), Symbol: "AAA", Side: types.TradeSideSell, Quantity: 100, Price: 110, Commission: 1.1},
		},
		ValueHistory: []types.ValuePoint{
			{Timestamp: at, Value: 100000},
			{Timestamp: at.Add(time.Hour), Value: 101000},
		},
	}
}

func TestWriteSummaryJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "summary.json")
	require.NoError(t, WriteSummaryJSON(sampleSummary(), path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var decoded session.Summary
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "sess-report", decoded.SessionID)
	assert.InDelta(t, 0.01, decoded.TotalReturn, 1e-9)
}

func TestWriteTradesCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trades.csv")
	require.NoError(t, WriteTradesCSV(sampleSummary(), sampleTradeLog(), path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	content := string(data)

	lines := strings.Split(strings.TrimSpace(content), "\n")
	require.Len(t, lines, 4) // header + 2 trades + summary
	assert.Contains(t, lines[0], "Trade_ID")
	assert.Contains(t, lines[1], "buy")
	assert.Contains(t, lines[2], "sell")
	assert.Contains(t, lines[3], "SUMMARY")
}

func TestWriteTradesCSV_DelegatesExcelExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trades.xlsx")
	require.NoError(t, WriteTradesCSV(sampleSummary(), sampleTradeLog(), path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))
}

func TestWriteSessionXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.xlsx")
	require.NoError(t, WriteSessionXLSX(sampleSummary(), sampleTradeLog(), path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))
}

func TestDefaultOutputDir(t *testing.T) {
	assert.Equal(t, filepath.Join("results", "sess-1"), DefaultOutputDir("sess-1"))
	assert.Equal(t, filepath.Join("results", "unknown"), DefaultOutputDir("  "))
}
