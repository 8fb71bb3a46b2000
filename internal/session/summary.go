package session

import (
	"context"
	"sort"
	"time"

	sessionerrors "github.com/quantframe/sessions/internal/errors"
	"github.com/quantframe/sessions/internal/executor"
	"github.com/quantframe/sessions/pkg/types"
)

// Summary is the final report produced when a session stops.
type Summary struct {
	SessionID       string            `json:"session_id"`
	StartDate       string            `json:"start_date"`
	EndDate         string            `json:"end_date"`
	InitialCapital  float64           `json:"initial_capital"`
	FinalValue      float64           `json:"final_value"`
	FinalCash       float64           `json:"final_cash"`
	TotalReturn     float64           `json:"total_return"` // fractional
	MaxDrawdown     float64           `json:"max_drawdown"` // fractional
	TotalTrades     int               `json:"total_trades"`
	WinningTrades   int               `json:"winning_trades"`
	LosingTrades    int               `json:"losing_trades"`
	WinRate         float64           `json:"win_rate"` // fractional over closed trades
	TotalCommission float64           `json:"total_commission"`
	OpenPositions   int               `json:"open_positions"`
	ErrorCounts     map[string]int    `json:"error_counts,omitempty"`
	Liquidation     []executor.Result `json:"liquidation,omitempty"`
	StoppedAt       time.Time         `json:"stopped_at"`
}

// Stop terminates the session from any non-terminal state. With
// liquidate set it sells every open position at current prices first.
// The summary is computed from the ledger and the session becomes
// unusable afterwards.
func (c *Controller) Stop(ctx context.Context, liquidate bool) (*Summary, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.status == StatusStopped {
		return nil, ErrSessionTerminated
	}
	if c.status == StatusCreated {
		// Never started: no ledger, no broker connection, nothing to
		// liquidate. The capital was never committed.
		c.status = StatusStopped
		c.log.Status("Session %s stopped before starting", c.cfg.SessionID)
		_ = c.log.Close()
		return &Summary{
			SessionID:      c.cfg.SessionID,
			StartDate:      c.cfg.StartDate,
			InitialCapital: c.cfg.InitialCapital,
			FinalValue:     c.cfg.InitialCapital,
			FinalCash:      c.cfg.InitialCapital,
			StoppedAt:      time.Now(),
		}, nil
	}

	var liquidation []executor.Result
	if liquidate {
		liquidation = c.liquidateLocked(ctx)
	}

	c.status = StatusStopped
	c.persistLocked()

	snapshot := c.led.Snapshot()
	returns := c.led.ComputeReturns(0)
	trades := c.led.TradeHistory()
	wins, losses := closedTradeOutcomes(trades)

	summary := &Summary{
		SessionID:      c.cfg.SessionID,
		StartDate:      c.cfg.StartDate,
		EndDate:        c.lastDate,
		InitialCapital: c.cfg.InitialCapital,
		FinalValue:     snapshot.TotalValue(),
		FinalCash:      snapshot.Cash,
		MaxDrawdown:    returns.MaxDrawdown,
		TotalTrades:    len(trades),
		WinningTrades:  wins,
		LosingTrades:   losses,
		OpenPositions:  len(snapshot.Positions),
		ErrorCounts:    errorCounts(c.errStats),
		Liquidation:    liquidation,
		StoppedAt:      time.Now(),
	}
	if c.cfg.InitialCapital > 0 {
		summary.TotalReturn = (summary.FinalValue - c.cfg.InitialCapital) / c.cfg.InitialCapital
	}
	if wins+losses > 0 {
		summary.WinRate = float64(wins) / float64(wins+losses)
	}
	for _, trade := range trades {
		summary.TotalCommission += trade.Commission
	}

	if err := c.brk.Disconnect(); err != nil {
		c.log.Warning("Broker disconnect failed: %v", err)
	}
	if c.health != nil {
		c.health.SetConnected(false)
	}

	c.log.Status("Session %s stopped: value=%.2f return=%.2f%% trades=%d win_rate=%.1f%%",
		c.cfg.SessionID, summary.FinalValue, summary.TotalReturn*100,
		summary.TotalTrades, summary.WinRate*100)
	_ = c.log.Close()
	return summary, nil
}

// liquidateLocked closes every open position with market sells. Sell
// results are reported back in the summary, failures included.
func (c *Controller) liquidateLocked(ctx context.Context) []executor.Result {
	prices, err := c.fetchPrices(ctx)
	if err != nil {
		c.recordError(sessionerrors.Wrap(err, sessionerrors.CategoryBrokerTransient, "session", "liquidate"))
		prices = map[string]float64{}
	}

	snapshot := c.led.Snapshot()
	symbols := make([]string, 0, len(snapshot.Positions))
	for sym := range snapshot.Positions {
		symbols = append(symbols, sym)
	}
	sort.Strings(symbols)

	results := make([]executor.Result, 0, len(symbols))
	for _, sym := range symbols {
		res := c.exec.Execute(ctx, c.led, types.Signal{
			Symbol: sym,
			Action: types.ActionSell,
		}, prices, c.cfg.Sectors, c.cfg.Thresholds)
		results = append(results, res)
		c.recordResult(res)
		if !res.Executed() {
			c.log.Warning("Liquidation of %s failed: %s %s", sym, res.Reason, res.Detail)
		}
	}
	return results
}

func errorCounts(stats *sessionerrors.Stats) map[string]int {
	if stats == nil || stats.Total == 0 {
		return nil
	}
	counts := make(map[string]int, len(stats.ByCategory))
	for category, n := range stats.ByCategory {
		counts[string(category)] = n
	}
	return counts
}

// closedTradeOutcomes walks the trade history tracking a running
// average cost per symbol. Each sell counts as a win when its price
// beats the average cost at that point.
func closedTradeOutcomes(trades []types.Trade) (wins, losses int) {
	type book struct {
		quantity float64
		avgCost  float64
	}
	books := make(map[string]*book)

	for _, trade := range trades {
		b := books[trade.Symbol]
		if b == nil {
			b = &book{}
			books[trade.Symbol] = b
		}
		switch trade.Side {
		case types.TradeSideBuy:
			total := b.quantity + trade.Quantity
			if total > 0 {
				b.avgCost = (b.avgCost*b.quantity + trade.Price*trade.Quantity) / total
			}
			b.quantity = total
		case types.TradeSideSell:
			if trade.Price > b.avgCost {
				wins++
			} else {
				losses++
			}
			b.quantity -= trade.Quantity
			if b.quantity <= 0 {
				b.quantity = 0
				b.avgCost = 0
			}
		}
	}
	return wins, losses
}
