package broker

import (
	"context"
	"time"

	"github.com/quantframe/sessions/pkg/types"
)

// Adapter is the narrow surface the session core needs from a broker.
// Implementations exist for simulated and live trading and are selected
// by configuration, never by runtime type inspection.
type Adapter interface {
	Name() string
	Connect(ctx context.Context) error
	Disconnect() error
	IsConnected() bool

	PlaceOrder(ctx context.Context, req OrderRequest) (*OrderResult, error)
	CancelOrder(ctx context.Context, orderID string) error
	GetOrderStatus(ctx context.Context, orderID string) (*OrderStatus, error)
	GetAccountInfo(ctx context.Context) (*AccountInfo, error)
	GetPositions(ctx context.Context) ([]Position, error)
}

// PriceFeed supplies the per-tick prices used for mark-to-market. The
// simulated broker implements it directly; a live setup can back it with
// the exchange's market data endpoints.
type PriceFeed interface {
	GetPrices(ctx context.Context, symbols []string) (map[string]float64, error)
}

// OrderType distinguishes market from limit orders.
type OrderType string

const (
	OrderTypeMarket OrderType = "market"
	OrderTypeLimit  OrderType = "limit"
)

// OrderRequest describes one order to submit.
type OrderRequest struct {
	ClientOrderID string          `json:"client_order_id"`
	Symbol        string          `json:"symbol"`
	Side          types.TradeSide `json:"side"`
	Quantity      float64         `json:"quantity"`
	OrderType     OrderType       `json:"order_type"`
	LimitPrice    float64         `json:"limit_price,omitempty"`
}

// OrderState is the broker-side lifecycle state of an order.
type OrderState string

const (
	OrderStateFilled          OrderState = "filled"
	OrderStatePartiallyFilled OrderState = "partially_filled"
	OrderStateRejected        OrderState = "rejected"
	OrderStateCancelled       OrderState = "cancelled"
)

// OrderResult reports the outcome of a submitted order. FilledQuantity
// and AvgFillPrice reflect what actually executed, which for a partial
// fill is less than the request.
type OrderResult struct {
	OrderID        string     `json:"order_id"`
	State          OrderState `json:"state"`
	FilledQuantity float64    `json:"filled_quantity"`
	AvgFillPrice   float64    `json:"avg_fill_price"`
	Commission     float64    `json:"commission"`
	SubmittedAt    time.Time  `json:"submitted_at"`
}

// OrderStatus is a point-in-time view of an order's progress.
type OrderStatus struct {
	OrderID        string     `json:"order_id"`
	State          OrderState `json:"state"`
	FilledQuantity float64    `json:"filled_quantity"`
	AvgFillPrice   float64    `json:"avg_fill_price"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// AccountInfo summarizes the broker-side account.
type AccountInfo struct {
	Cash        float64 `json:"cash"`
	Equity      float64 `json:"equity"`
	BuyingPower float64 `json:"buying_power"`
}

// Position is a broker-side holding, used for reconciliation against the
// session's own ledger.
type Position struct {
	Symbol   string  `json:"symbol"`
	Quantity float64 `json:"quantity"`
	AvgPrice float64 `json:"avg_price"`
}
