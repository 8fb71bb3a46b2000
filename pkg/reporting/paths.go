package reporting

import (
	"os"
	"path/filepath"
	"strings"
)

// DefaultPathManager implements path management functionality
type DefaultPathManager struct{}

// NewDefaultPathManager creates a new path manager
func NewDefaultPathManager() *DefaultPathManager {
	return &DefaultPathManager{}
}

// GetDefaultOutputDir returns the per-session report directory.
func (p *DefaultPathManager) GetDefaultOutputDir(sessionID string) string {
	id := strings.TrimSpace(sessionID)
	if id == "" {
		id = "unknown"
	}
	return filepath.Join("results", id)
}

// EnsureDirectoryExists creates directory if it doesn't exist
func (p *DefaultPathManager) EnsureDirectoryExists(path string) error {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		return os.MkdirAll(dir, 0755)
	}
	return nil
}

// Package-level convenience function
func DefaultOutputDir(sessionID string) string {
	manager := NewDefaultPathManager()
	return manager.GetDefaultOutputDir(sessionID)
}
