package types

import "time"

// TradeSide is the direction of an executed fill.
type TradeSide string

const (
	TradeSideBuy  TradeSide = "buy"
	TradeSideSell TradeSide = "sell"
)

// Trade is an immutable record of one executed fill. The session's trade
// history is append-only; a Trade is never mutated after it is applied to
// the ledger.
type Trade struct {
	TradeID    string    `json:"trade_id"`
	Timestamp  time.Time `json:"timestamp"`
	Symbol     string    `json:"symbol"`
	Side       TradeSide `json:"side"`
	Quantity   float64   `json:"quantity"`
	Price      float64   `json:"price"`
	Commission float64   `json:"commission"`
}

// Value returns the gross notional of the fill, excluding commission.
func (t Trade) Value() float64 {
	return t.Quantity * t.Price
}

// ValuePoint is one observation of total portfolio value, recorded once
// per mark-to-market. The risk gate's drawdown and daily-loss checks walk
// this history.
type ValuePoint struct {
	Timestamp time.Time `json:"timestamp"`
	Value     float64   `json:"value"`
}
