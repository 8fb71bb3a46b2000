package broker

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"transient wrapper", NewTransientError("place", errors.New("reset")), true},
		{"permanent wrapper", NewPermanentError("place", "bad symbol", nil), false},
		{"wrapped transient", fmt.Errorf("outer: %w", NewTransientError("place", errors.New("x"))), true},
		{"deadline exceeded", context.DeadlineExceeded, true},
		{"timeout string", errors.New("request timeout talking to host"), true},
		{"connection refused string", errors.New("dial tcp: connection refused"), true},
		{"plain error", errors.New("validation failed"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsTransient(tt.err))
		})
	}
}

func TestPermanentErrorBeatsTransientMarkers(t *testing.T) {
	// A permanent rejection whose reason happens to mention a timeout is
	// still permanent.
	err := NewPermanentError("place", "order rejected after timeout", nil)
	assert.False(t, IsTransient(err))
}
