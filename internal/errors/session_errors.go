// Package errors carries the session core's error taxonomy. Per-trade
// failures stay local to the trade that caused them; only critical risk
// alerts and fatal configuration problems escalate beyond one tick.
package errors

import (
	"fmt"
)

// Category classifies an error for recovery purposes.
type Category string

const (
	// Fatal to session startup; the session is never created.
	CategoryValidation Category = "VALIDATION"

	// Local to one apply_trade/execute call; the ledger stays intact.
	CategoryLedger Category = "LEDGER"

	// A pre-trade rule blocked the trade. Does not pause the session.
	CategoryRisk Category = "RISK"

	// Broker failures, split by whether retrying can help.
	CategoryBrokerTransient Category = "BROKER_TRANSIENT"
	CategoryBrokerPermanent Category = "BROKER_PERMANENT"

	// State-save failures; logged, retried on the next tick, never
	// abort the trading loop.
	CategoryPersistence Category = "PERSISTENCE"

	// Operation attempted in the wrong session state.
	CategoryState Category = "STATE"

	// Signal source failed; the session pauses rather than trade blind.
	CategorySignal Category = "SIGNAL"
)

// SessionError is a categorized error with enough context to log and
// recover without string matching.
type SessionError struct {
	Category   Category
	Component  string
	Operation  string
	Message    string
	Underlying error
	Context    map[string]interface{}
	Retryable  bool
}

func (e *SessionError) Error() string {
	if e.Underlying != nil {
		return fmt.Sprintf("[%s:%s] %s: %s: %v", e.Category, e.Component, e.Operation, e.Message, e.Underlying)
	}
	return fmt.Sprintf("[%s:%s] %s: %s", e.Category, e.Component, e.Operation, e.Message)
}

func (e *SessionError) Unwrap() error {
	return e.Underlying
}

// IsRetryable reports whether this error can be retried.
func (e *SessionError) IsRetryable() bool {
	return e.Retryable
}

// IsFatal reports whether the error should prevent the session from
// starting or continuing at all.
func (e *SessionError) IsFatal() bool {
	return e.Category == CategoryValidation
}

// New creates a categorized session error.
func New(category Category, component, operation, message string) *SessionError {
	return &SessionError{
		Category:  category,
		Component: component,
		Operation: operation,
		Message:   message,
		Context:   make(map[string]interface{}),
		Retryable: category == CategoryBrokerTransient || category == CategoryPersistence,
	}
}

// Wrap attaches category and context to an existing error.
func Wrap(err error, category Category, component, operation string) *SessionError {
	if err == nil {
		return nil
	}
	return &SessionError{
		Category:   category,
		Component:  component,
		Operation:  operation,
		Message:    "operation failed",
		Underlying: err,
		Context:    make(map[string]interface{}),
		Retryable:  category == CategoryBrokerTransient || category == CategoryPersistence,
	}
}

// WithContext adds a key/value pair for logging.
func (e *SessionError) WithContext(key string, value interface{}) *SessionError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// Stats tracks error counts per category for the session summary.
type Stats struct {
	Total      int              `json:"total"`
	ByCategory map[Category]int `json:"by_category"`
}

// NewStats creates an empty error counter.
func NewStats() *Stats {
	return &Stats{ByCategory: make(map[Category]int)}
}

// Record counts one error.
func (s *Stats) Record(category Category) {
	s.Total++
	s.ByCategory[category]++
}

// Count returns the number of errors recorded for a category.
func (s *Stats) Count(category Category) int {
	return s.ByCategory[category]
}
