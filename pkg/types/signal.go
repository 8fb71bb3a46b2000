package types

// SignalAction is the recommendation carried by a trading signal.
type SignalAction string

const (
	ActionBuy  SignalAction = "buy"
	ActionSell SignalAction = "sell"
	ActionHold SignalAction = "hold"
)

// Signal is one model-generated trading recommendation for a tick.
// Signals are consumed once per tick and are not persisted beyond the
// trades they cause.
type Signal struct {
	Symbol     string       `json:"symbol"`
	Action     SignalAction `json:"action"`
	Score      float64      `json:"score"`
	Confidence float64      `json:"confidence"`

	// TargetWeight, when set, sizes the position to this fraction of the
	// portfolio's total value. Nil means the executor's default sizing
	// rule applies.
	TargetWeight *float64 `json:"target_weight,omitempty"`
}

// HasTargetWeight reports whether the signal carries an explicit sizing.
func (s Signal) HasTargetWeight() bool {
	return s.TargetWeight != nil
}
