package bybit

import (
	"fmt"

	"github.com/quantframe/sessions/internal/broker"
)

// Bybit v5 return codes the adapter cares about.
const (
	retCodeInvalidAPIKey       = 10003
	retCodeInvalidSignature    = 10004
	retCodeInvalidTimestamp    = 10005
	retCodeRateLimitExceeded   = 10006
	retCodeOrderNotFound       = 110001
	retCodeInvalidOrderType    = 110004
	retCodeInsufficientBalance = 110007
	retCodeSymbolNotFound      = 110009
	retCodeInvalidQuantity     = 110020
	retCodeInvalidPrice        = 110021
	retCodeMarketClosed        = 110043
)

// classifyRetCode maps an API return code to the core's transient or
// permanent broker error.
func classifyRetCode(op string, code int, msg string) error {
	err := fmt.Errorf("bybit ret code %d: %s", code, msg)

	switch code {
	case retCodeRateLimitExceeded, 500, 502, 503, 504:
		return broker.NewTransientError(op, err)
	case retCodeInsufficientBalance:
		return broker.NewPermanentError(op, "insufficient balance", err)
	case retCodeSymbolNotFound:
		return broker.NewPermanentError(op, "unknown symbol", err)
	case retCodeOrderNotFound:
		return broker.NewPermanentError(op, "order not found", err)
	case retCodeInvalidOrderType, retCodeInvalidQuantity, retCodeInvalidPrice:
		return broker.NewPermanentError(op, "order rejected", err)
	case retCodeInvalidAPIKey, retCodeInvalidSignature, retCodeInvalidTimestamp:
		return broker.NewPermanentError(op, "authentication failed", err)
	case retCodeMarketClosed:
		return broker.NewTransientError(op, err)
	default:
		return broker.NewPermanentError(op, "api error", err)
	}
}

// classifyError wraps a transport-level failure. Network problems are
// transient; everything else already classified passes through.
func classifyError(op string, err error) error {
	if broker.IsTransient(err) {
		return broker.NewTransientError(op, err)
	}
	return broker.NewPermanentError(op, "request failed", err)
}
