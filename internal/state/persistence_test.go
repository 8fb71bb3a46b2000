package state

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantframe/sessions/internal/ledger"
	"github.com/quantframe/sessions/pkg/types"
)

func sampleState(sessionID string) *SessionState {
	return &SessionState{
		SessionID:      sessionID,
		Status:         "active",
		StartDate:      "2024-03-01",
		InitialCapital: 100000,
		Portfolio: PortfolioState{
			Cash: 90000,
			Positions: []ledger.Position{
				{Symbol: "AAA", Quantity: 100, AvgCost: 100, LastPrice: 105},
			},
		},
		TradeHistory: []types.Trade{
			{TradeID: "t1", Symbol: "AAA", Side: types.TradeSideBuy, Quantity: 100, Price: 100},
		},
		ValueHistory: []types.ValuePoint{
			{Timestamp: time.Now().UTC().Truncate(time.Second), Value: 100500},
		},
	}
}

func TestStore_SaveLoadRoundTrip(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	saved := sampleState("sess-1")
	require.NoError(t, store.Save(saved))

	loaded, err := store.Load("sess-1")
	require.NoError(t, err)

	assert.Equal(t, saved.SessionID, loaded.SessionID)
	assert.Equal(t, saved.Status, loaded.Status)
	assert.Equal(t, saved.InitialCapital, loaded.InitialCapital)
	assert.Equal(t, saved.Portfolio, loaded.Portfolio)
	assert.Equal(t, saved.TradeHistory, loaded.TradeHistory)
	require.Len(t, loaded.ValueHistory, 1)
	assert.InDelta(t, 100500, loaded.ValueHistory[0].Value, 1e-9)
}

func TestStore_SaveKeepsBackup(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir)
	require.NoError(t, err)

	first := sampleState("sess-2")
	require.NoError(t, store.Save(first))

	second := sampleState("sess-2")
	second.Portfolio.Cash = 80000
	require.NoError(t, store.Save(second))

	backup, err := os.ReadFile(store.backupPath("sess-2"))
	require.NoError(t, err)
	assert.Contains(t, string(backup), "90000")

	loaded, err := store.Load("sess-2")
	require.NoError(t, err)
	assert.InDelta(t, 80000, loaded.Portfolio.Cash, 1e-9)
}

func TestStore_LoadMissingFileFails(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	_, err = store.Load("nope")
	assert.Error(t, err)
	assert.False(t, store.Exists("nope"))
}

func TestStore_LoadRejectsMismatchedSession(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	saved := sampleState("sess-3")
	require.NoError(t, store.Save(saved))

	// Copy the file under a different session id.
	data, err := os.ReadFile(store.statePath("sess-3"))
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(store.statePath("other"), data, 0644))

	_, err = store.Load("other")
	assert.ErrorContains(t, err, "session id mismatch")
}

func TestStore_LoadRejectsCorruptState(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(store.statePath("bad"), []byte("{not json"), 0644))
	_, err = store.Load("bad")
	assert.Error(t, err)
}

func TestPortfolioState_SnapshotRoundTrip(t *testing.T) {
	snapshot := ledger.Portfolio{
		Cash: 12345,
		Positions: map[string]ledger.Position{
			"BBB": {Symbol: "BBB", Quantity: 5, AvgCost: 10, LastPrice: 11},
			"AAA": {Symbol: "AAA", Quantity: 3, AvgCost: 20, LastPrice: 19},
		},
	}

	persisted := FromSnapshot(snapshot)
	require.Len(t, persisted.Positions, 2)
	assert.Equal(t, "AAA", persisted.Positions[0].Symbol, "positions are sorted for stable files")

	restored := persisted.ToSnapshot()
	assert.Equal(t, snapshot, restored)
}
