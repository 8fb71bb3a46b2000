package errors

import (
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionError_WrapAndUnwrap(t *testing.T) {
	cause := stderrors.New("connection reset")
	err := Wrap(cause, CategoryBrokerTransient, "broker", "place_order").
		WithContext("symbol", "BTCUSDT")

	assert.Contains(t, err.Error(), "BROKER_TRANSIENT")
	assert.Contains(t, err.Error(), "place_order")
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "BTCUSDT", err.Context["symbol"])
}

func TestSessionError_Retryable(t *testing.T) {
	assert.True(t, New(CategoryBrokerTransient, "b", "op", "m").IsRetryable())
	assert.True(t, New(CategoryPersistence, "s", "op", "m").IsRetryable())
	assert.False(t, New(CategoryBrokerPermanent, "b", "op", "m").IsRetryable())
	assert.False(t, New(CategoryRisk, "r", "op", "m").IsRetryable())
}

func TestSessionError_Fatal(t *testing.T) {
	assert.True(t, New(CategoryValidation, "s", "op", "m").IsFatal())
	assert.False(t, New(CategoryBrokerTransient, "b", "op", "m").IsFatal())
}

func TestStats(t *testing.T) {
	stats := NewStats()
	stats.Record(CategoryBrokerTransient)
	stats.Record(CategoryBrokerTransient)
	stats.Record(CategoryRisk)

	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, 2, stats.Count(CategoryBrokerTransient))
	assert.Equal(t, 1, stats.Count(CategoryRisk))
	assert.Equal(t, 0, stats.Count(CategoryLedger))
	require.NotNil(t, stats.ByCategory)
}
