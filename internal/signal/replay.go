package signal

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/quantframe/sessions/internal/ledger"
	"github.com/quantframe/sessions/pkg/types"
)

// replayLine is one record of a JSON-lines signal file: a date plus the
// signal for that date. Multiple lines may share a date.
type replayLine struct {
	Date string `json:"date"`
	types.Signal
}

// ReplaySource serves pre-generated signals from a JSON-lines file,
// keyed by tick date. Dates with no recorded signals yield an empty
// list, not an error.
type ReplaySource struct {
	byDate map[string][]types.Signal
}

// LoadReplay reads a JSON-lines signal file into memory.
func LoadReplay(path string) (*ReplaySource, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open signal file: %w", err)
	}
	defer file.Close()

	source := &ReplaySource{byDate: make(map[string][]types.Signal)}

	scanner := bufio.NewScanner(file)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}
		var line replayLine
		if err := json.Unmarshal(raw, &line); err != nil {
			return nil, fmt.Errorf("bad signal at line %d: %w", lineNo, err)
		}
		if line.Date == "" || line.Symbol == "" {
			return nil, fmt.Errorf("signal at line %d missing date or symbol", lineNo)
		}
		source.byDate[line.Date] = append(source.byDate[line.Date], line.Signal)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read signal file: %w", err)
	}
	return source, nil
}

// Generate returns the signals recorded for date.
func (r *ReplaySource) Generate(ctx context.Context, date string, portfolio ledger.Portfolio) ([]types.Signal, error) {
	signals := r.byDate[date]
	out := make([]types.Signal, len(signals))
	copy(out, signals)
	return out, nil
}

// Dates returns the distinct tick dates the source covers, sorted.
func (r *ReplaySource) Dates() []string {
	dates := make([]string, 0, len(r.byDate))
	for date := range r.byDate {
		dates = append(dates, date)
	}
	sort.Strings(dates)
	return dates
}
