// Package signal defines the boundary to the external model that
// produces trading signals. The core treats generation as a pure
// function of the tick date and the current portfolio; a failure here
// pauses the session, because trading blind is worse than not trading.
package signal

import (
	"context"

	"github.com/quantframe/sessions/internal/ledger"
	"github.com/quantframe/sessions/pkg/types"
)

// Source produces the ordered signal list for one tick.
type Source interface {
	Generate(ctx context.Context, date string, portfolio ledger.Portfolio) ([]types.Signal, error)
}

// Func adapts a plain function to the Source interface.
type Func func(ctx context.Context, date string, portfolio ledger.Portfolio) ([]types.Signal, error)

func (f Func) Generate(ctx context.Context, date string, portfolio ledger.Portfolio) ([]types.Signal, error) {
	return f(ctx, date, portfolio)
}
