package bybit

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	bybit_api "github.com/bybit-exchange/bybit.go.api"

	"github.com/quantframe/sessions/internal/broker"
	"github.com/quantframe/sessions/pkg/types"
)

// PlaceOrder submits a market or limit order and maps the response onto
// the core's OrderResult. Bybit acknowledges orders asynchronously: when
// the follow-up poll cannot confirm a fill the order is reported in
// flight with zero filled, and the caller keeps polling GetOrderStatus
// until it settles.
func (a *Adapter) PlaceOrder(ctx context.Context, req broker.OrderRequest) (*broker.OrderResult, error) {
	if req.Quantity <= 0 {
		return nil, broker.NewPermanentError("place_order", "quantity must be positive", nil)
	}

	params := map[string]interface{}{
		"category":  a.category,
		"symbol":    req.Symbol,
		"side":      sideParam(req.Side),
		"orderType": orderTypeParam(req.OrderType),
		"qty":       formatQty(req.Quantity),
	}
	if req.OrderType == broker.OrderTypeLimit {
		if req.LimitPrice <= 0 {
			return nil, broker.NewPermanentError("place_order", "limit order requires a price", nil)
		}
		params["price"] = strconv.FormatFloat(req.LimitPrice, 'f', -1, 64)
		params["timeInForce"] = "GTC"
	}
	if req.ClientOrderID != "" {
		params["orderLinkId"] = req.ClientOrderID
	}

	result, err := a.client.NewUtaBybitServiceWithParams(params).PlaceOrder(ctx)
	if err != nil {
		return nil, classifyError("place_order", err)
	}

	var placed struct {
		OrderID     string `json:"orderId"`
		OrderLinkID string `json:"orderLinkId"`
	}
	if err := decodeResult("place_order", result, &placed); err != nil {
		return nil, err
	}

	// The placement ack carries no fill data; poll once for the settled
	// state so market orders report their actual execution.
	status, err := a.GetOrderStatus(ctx, placed.OrderID)
	if err != nil {
		return &broker.OrderResult{
			OrderID:        placed.OrderID,
			State:          broker.OrderStatePartiallyFilled,
			FilledQuantity: 0,
			SubmittedAt:    time.Now(),
		}, nil
	}

	return &broker.OrderResult{
		OrderID:        status.OrderID,
		State:          status.State,
		FilledQuantity: status.FilledQuantity,
		AvgFillPrice:   status.AvgFillPrice,
		SubmittedAt:    time.Now(),
	}, nil
}

// CancelOrder cancels an open order.
func (a *Adapter) CancelOrder(ctx context.Context, orderID string) error {
	params := map[string]interface{}{
		"category": a.category,
		"orderId":  orderID,
	}

	if _, err := a.client.NewUtaBybitServiceWithParams(params).CancelOrder(ctx); err != nil {
		return classifyError("cancel_order", err)
	}
	return nil
}

// GetOrderStatus looks the order up in the realtime open/recent order
// list.
func (a *Adapter) GetOrderStatus(ctx context.Context, orderID string) (*broker.OrderStatus, error) {
	params := map[string]interface{}{
		"category": a.category,
		"orderId":  orderID,
	}

	result, err := a.client.NewUtaBybitServiceWithParams(params).GetOpenOrders(ctx)
	if err != nil {
		return nil, classifyError("get_order_status", err)
	}

	var orders struct {
		List []struct {
			OrderID     string `json:"orderId"`
			OrderStatus string `json:"orderStatus"`
			CumExecQty  string `json:"cumExecQty"`
			AvgPrice    string `json:"avgPrice"`
			UpdatedTime string `json:"updatedTime"`
		} `json:"list"`
	}
	if err := decodeResult("get_order_status", result, &orders); err != nil {
		return nil, err
	}

	for _, order := range orders.List {
		if order.OrderID != orderID {
			continue
		}
		return &broker.OrderStatus{
			OrderID:        order.OrderID,
			State:          mapOrderState(order.OrderStatus),
			FilledQuantity: parseFloat(order.CumExecQty),
			AvgFillPrice:   parseFloat(order.AvgPrice),
			UpdatedAt:      parseMillis(order.UpdatedTime),
		}, nil
	}

	return nil, broker.NewPermanentError("get_order_status", fmt.Sprintf("order %s not found", orderID), nil)
}

func sideParam(side types.TradeSide) string {
	if side == types.TradeSideSell {
		return "Sell"
	}
	return "Buy"
}

func orderTypeParam(t broker.OrderType) string {
	if t == broker.OrderTypeLimit {
		return "Limit"
	}
	return "Market"
}

func formatQty(qty float64) string {
	return strconv.FormatFloat(qty, 'f', -1, 64)
}

func mapOrderState(status string) broker.OrderState {
	switch status {
	case "Filled":
		return broker.OrderStateFilled
	case "PartiallyFilled":
		return broker.OrderStatePartiallyFilled
	case "Cancelled", "Deactivated":
		return broker.OrderStateCancelled
	case "Rejected":
		return broker.OrderStateRejected
	default:
		// New / Untriggered orders are in-flight; treat as partial with
		// zero filled so the caller keeps polling.
		return broker.OrderStatePartiallyFilled
	}
}

// decodeResult unwraps a ServerResponse and unmarshals its Result field.
func decodeResult(op string, response interface{}, out interface{}) error {
	serverResp, ok := response.(*bybit_api.ServerResponse)
	if !ok {
		return broker.NewPermanentError(op, "unexpected response type", nil)
	}
	if serverResp.RetCode != 0 {
		return classifyRetCode(op, serverResp.RetCode, serverResp.RetMsg)
	}

	raw, err := json.Marshal(serverResp.Result)
	if err != nil {
		return broker.NewPermanentError(op, "cannot re-marshal result", err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return broker.NewPermanentError(op, "cannot parse result", err)
	}
	return nil
}

func parseFloat(s string) float64 {
	v, _ := strconv.ParseFloat(s, 64)
	return v
}

func parseMillis(s string) time.Time {
	ms, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return time.Time{}
	}
	return time.UnixMilli(ms)
}
