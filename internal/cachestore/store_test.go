package cachestore

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sacherjj/casper-harvester/internal/model"
)

func newTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	dir := t.TempDir()
	store, err := New(dir, zap.NewNop())
	require.NoError(t, err)
	return store, dir
}

func TestStoreRoundTrip(t *testing.T) {
	store, _ := newTestStore(t)

	saved := []model.Block{
		{Hash: "aa", Header: model.BlockHeader{Height: 0, EraID: 0, ParentHash: model.GenesisParentHash}},
		{Hash: "bb", Header: model.BlockHeader{Height: 1, EraID: 0, ParentHash: "aa", DeployHashes: []string{"d1"}}},
	}
	require.NoError(t, store.Save("blocks", saved))

	var loaded []model.Block
	require.NoError(t, store.Load("blocks", &loaded))
	require.Equal(t, saved, loaded)
}

func TestStoreLoadMissing(t *testing.T) {
	store, _ := newTestStore(t)

	var loaded []model.Block
	err := store.Load("blocks", &loaded)
	require.ErrorIs(t, err, ErrNotFound)
	require.NotErrorIs(t, err, ErrCorrupted)
}

func TestStoreLoadCorrupted(t *testing.T) {
	store, dir := newTestStore(t)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "blocks.json"), []byte("not json{"), 0o644))

	var loaded []model.Block
	err := store.Load("blocks", &loaded)
	require.ErrorIs(t, err, ErrCorrupted)
	require.NotErrorIs(t, err, ErrNotFound)
}

func TestStoreLoadVersionMismatch(t *testing.T) {
	store, dir := newTestStore(t)

	payload := []byte(`{"version":99,"saved_at":"2021-01-01T00:00:00Z","data":[]}`)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "blocks.json"), payload, 0o644))

	var loaded []model.Block
	require.ErrorIs(t, store.Load("blocks", &loaded), ErrCorrupted)
}

func TestStoreSaveOverwrites(t *testing.T) {
	store, dir := newTestStore(t)

	require.NoError(t, store.Save("eras", []model.EraRecord{{EraID: 1}}))
	require.NoError(t, store.Save("eras", []model.EraRecord{{EraID: 1}, {EraID: 2}}))

	var loaded []model.EraRecord
	require.NoError(t, store.Load("eras", &loaded))
	require.Len(t, loaded, 2)

	// No temp files left behind after successful writes.
	leftovers, err := filepath.Glob(filepath.Join(dir, "*.tmp"))
	require.NoError(t, err)
	require.Empty(t, leftovers)
}

func TestStoreKeysAreIndependent(t *testing.T) {
	store, _ := newTestStore(t)

	require.NoError(t, store.Save("deploys", model.DeployMap{"d1": []byte(`{"a":1}`)}))

	var blocks []model.Block
	require.True(t, errors.Is(store.Load("blocks", &blocks), ErrNotFound))

	deploys := model.DeployMap{}
	require.NoError(t, store.Load("deploys", &deploys))
	require.Contains(t, deploys, "d1")
}
