package reporting

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/quantframe/sessions/internal/session"
)

// DefaultJSONReporter implements JSON output functionality
type DefaultJSONReporter struct{}

// NewDefaultJSONReporter creates a new JSON reporter
func NewDefaultJSONReporter() *DefaultJSONReporter {
	return &DefaultJSONReporter{}
}

// FormatSummary renders a summary as indented JSON bytes.
func (r *DefaultJSONReporter) FormatSummary(summary *session.Summary) ([]byte, error) {
	return json.MarshalIndent(summary, "", "  ")
}

// WriteSummaryJSON writes the session summary to a JSON file.
func (r *DefaultJSONReporter) WriteSummaryJSON(summary *session.Summary, path string) error {
	data, err := r.FormatSummary(summary)
	if err != nil {
		return err
	}

	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, append(data, '\n'), 0644)
}

// Package-level convenience function
func WriteSummaryJSON(summary *session.Summary, path string) error {
	reporter := NewDefaultJSONReporter()
	return reporter.WriteSummaryJSON(summary, path)
}
