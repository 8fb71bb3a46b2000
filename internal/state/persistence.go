// Package state persists a session to a JSON file after every tick and
// every status transition, so a restarted process resumes exactly at the
// last committed tick boundary. Writes go through a temp file and an
// atomic rename, with a backup of the previous state kept alongside.
package state

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/quantframe/sessions/internal/ledger"
	"github.com/quantframe/sessions/pkg/types"
)

// SessionState is the persisted wire format of one session.
type SessionState struct {
	Version        string             `json:"version"`
	SessionID      string             `json:"session_id"`
	Status         string             `json:"status"`
	StartDate      string             `json:"start_date"`
	InitialCapital float64            `json:"initial_capital"`
	Portfolio      PortfolioState     `json:"portfolio"`
	TradeHistory   []types.Trade      `json:"trade_history"`
	ValueHistory   []types.ValuePoint `json:"value_history"`
	Config         json.RawMessage    `json:"config,omitempty"`
	LastUpdated    time.Time          `json:"last_updated"`
}

// PortfolioState flattens the ledger snapshot for persistence.
type PortfolioState struct {
	Cash      float64           `json:"cash"`
	Positions []ledger.Position `json:"positions"`
}

// FromSnapshot converts a ledger snapshot into its persisted form, with
// positions sorted for stable output.
func FromSnapshot(snapshot ledger.Portfolio) PortfolioState {
	positions := make([]ledger.Position, 0, len(snapshot.Positions))
	for _, pos := range snapshot.Positions {
		positions = append(positions, pos)
	}
	sort.Slice(positions, func(i, j int) bool { return positions[i].Symbol < positions[j].Symbol })
	return PortfolioState{Cash: snapshot.Cash, Positions: positions}
}

// ToSnapshot rebuilds the ledger snapshot from persisted form.
func (p PortfolioState) ToSnapshot() ledger.Portfolio {
	positions := make(map[string]ledger.Position, len(p.Positions))
	for _, pos := range p.Positions {
		positions[pos.Symbol] = pos
	}
	return ledger.Portfolio{Cash: p.Cash, Positions: positions}
}

const stateVersion = "1.0.0"

// maxStateAge guards against resuming from a long-dead session file.
const maxStateAge = 7 * 24 * time.Hour

// Store reads and writes session state files under one directory.
type Store struct {
	dir string
}

// NewStore creates the state directory if needed.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create state directory: %w", err)
	}
	return &Store{dir: dir}, nil
}

func (s *Store) statePath(sessionID string) string {
	return filepath.Join(s.dir, fmt.Sprintf("%s_state.json", sessionID))
}

func (s *Store) backupPath(sessionID string) string {
	return filepath.Join(s.dir, fmt.Sprintf("%s_state_backup.json", sessionID))
}

// Save writes the state atomically, keeping the previous file as a
// backup.
func (s *Store) Save(state *SessionState) error {
	state.Version = stateVersion
	state.LastUpdated = time.Now()

	path := s.statePath(state.SessionID)

	if _, err := os.Stat(path); err == nil {
		if data, err := os.ReadFile(path); err == nil {
			_ = os.WriteFile(s.backupPath(state.SessionID), data, 0644)
		}
	}

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal session state: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write temp state file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to move state file into place: %w", err)
	}
	return nil
}

// Load reads and validates a session's persisted state. A missing file
// returns os.ErrNotExist wrapped with context.
func (s *Store) Load(sessionID string) (*SessionState, error) {
	path := s.statePath(sessionID)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read state file %s: %w", path, err)
	}

	var state SessionState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("failed to parse state file %s: %w", path, err)
	}
	if err := validate(&state, sessionID); err != nil {
		return nil, fmt.Errorf("state file %s failed validation: %w", path, err)
	}
	return &state, nil
}

// Exists reports whether a state file is present for the session.
func (s *Store) Exists(sessionID string) bool {
	_, err := os.Stat(s.statePath(sessionID))
	return err == nil
}

// Remove deletes the state and backup files for a session.
func (s *Store) Remove(sessionID string) error {
	if err := os.Remove(s.statePath(sessionID)); err != nil && !os.IsNotExist(err) {
		return err
	}
	if err := os.Remove(s.backupPath(sessionID)); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func validate(state *SessionState, sessionID string) error {
	if state.SessionID != sessionID {
		return fmt.Errorf("session id mismatch: expected %s, got %s", sessionID, state.SessionID)
	}
	if state.Version == "" {
		return fmt.Errorf("state version is empty")
	}
	if state.InitialCapital <= 0 {
		return fmt.Errorf("invalid initial capital %.2f", state.InitialCapital)
	}
	if state.Portfolio.Cash < 0 {
		return fmt.Errorf("negative cash %.2f", state.Portfolio.Cash)
	}
	for _, pos := range state.Portfolio.Positions {
		if pos.Quantity < 0 {
			return fmt.Errorf("negative quantity for %s", pos.Symbol)
		}
	}
	if !state.LastUpdated.IsZero() && time.Since(state.LastUpdated) > maxStateAge {
		return fmt.Errorf("state is too old: %v", state.LastUpdated)
	}
	return nil
}
