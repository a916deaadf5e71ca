package state

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/farmaciaslf/medisync/pkg/catalog"
	"github.com/farmaciaslf/medisync/pkg/errors"
	"github.com/farmaciaslf/medisync/pkg/planner"
)

func sampleState() *SyncState {
	return &SyncState{
		Timestamp:    time.Date(2025, 8, 1, 12, 0, 0, 0, time.UTC),
		Mode:         "apply",
		MedivenCount: 2,
		ShopifyCount: 3,
		Plan: planner.Plan{
			ToCreate: []planner.CreateOp{
				{SKU: "A1", Title: "Paracetamol 500 mg", Price: 1800, Stock: 100},
			},
			ToUpdate: []planner.UpdateOp{
				{SKU: "B2", Title: "Ibuprofeno 400 mg", CurrentPrice: 700, NewPrice: 900,
					VariantID: "20", ProductID: "2", PriceDirty: true},
			},
			ToArchive: []planner.ArchiveOp{
				{SKU: "G1", ProductID: "3", Title: "Gone", Reason: planner.ReasonNotInSource,
					Status: catalog.StatusActive},
			},
		},
	}
}

func TestStoreRoundtrip(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "data", "sync_state.json"))

	require.NoError(t, store.Save(sampleState()))

	loaded, err := store.Load()
	require.NoError(t, err)

	want := sampleState()
	assert.True(t, loaded.Timestamp.Equal(want.Timestamp))
	assert.Equal(t, want.Mode, loaded.Mode)
	assert.Equal(t, want.MedivenCount, loaded.MedivenCount)
	assert.Equal(t, want.ShopifyCount, loaded.ShopifyCount)
	assert.Equal(t, want.Plan, loaded.Plan)
}

func TestStoreSchemaKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sync_state.json")
	store := NewStore(path)
	require.NoError(t, store.Save(sampleState()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var raw map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &raw))
	for _, key := range []string{"timestamp", "mode", "mediven_count", "shopify_count", "crear", "actualizar", "archivar"} {
		assert.Contains(t, raw, key)
	}
}

func TestStoreSaveReplacesPrior(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "sync_state.json"))

	first := sampleState()
	require.NoError(t, store.Save(first))

	second := sampleState()
	second.Mode = "simulate"
	second.ToCreate = nil
	require.NoError(t, store.Save(second))

	loaded, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, "simulate", loaded.Mode)
	assert.Empty(t, loaded.ToCreate)
}

func TestStoreLoadMissingSnapshot(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "absent.json"))

	_, err := store.Load()
	require.Error(t, err)
	assert.True(t, errors.IsNoState(err))
}

func TestStoreLoadCorruptSnapshot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sync_state.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, err := NewStore(path).Load()
	require.Error(t, err)
	assert.False(t, errors.IsNoState(err))
}

func TestLockExclusivity(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sync.lock")
	first := NewLock(path)
	second := NewLock(path)

	require.NoError(t, first.Acquire())
	assert.True(t, first.Held())

	err := second.Acquire()
	require.Error(t, err)
	assert.True(t, errors.IsLocked(err))

	require.NoError(t, first.Release())
	require.NoError(t, second.Acquire())
	require.NoError(t, second.Release())
}

func TestLockReleaseIdempotent(t *testing.T) {
	lock := NewLock(filepath.Join(t.TempDir(), "sync.lock"))
	require.NoError(t, lock.Release())

	require.NoError(t, lock.Acquire())
	require.NoError(t, lock.Release())
	require.NoError(t, lock.Release())
}

func TestLockForceClear(t *testing.T) {
	lock := NewLock(filepath.Join(t.TempDir(), "sync.lock"))

	cleared, err := lock.ForceClear()
	require.NoError(t, err)
	assert.False(t, cleared, "nothing to clear")

	require.NoError(t, lock.Acquire())
	cleared, err = lock.ForceClear()
	require.NoError(t, err)
	assert.True(t, cleared)
	assert.False(t, lock.Held())
}

func TestLockErrorCarriesTimestamp(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sync.lock")
	lock := NewLock(path)
	require.NoError(t, lock.Acquire())

	err := NewLock(path).Acquire()
	require.Error(t, err)

	var lockErr *errors.LockError
	require.True(t, errors.As(err, &lockErr))
	assert.WithinDuration(t, time.Now(), lockErr.Since, 5*time.Second)
}
