package snapshot

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/synerthink/dotlanth/pkg/mvcc"
)

func newTestStore(t *testing.T) *mvcc.Store {
	t.Helper()
	dir := t.TempDir()
	s, err := mvcc.NewStore(mvcc.Config{NodeID: "node1", DataDir: dir, BindAddr: "127.0.0.1:0"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Shutdown() })
	return s
}

func TestSnapshotRestoreRoundTrip(t *testing.T) {
	store := newTestStore(t)
	_, err := store.Transaction([]mvcc.Op{{Key: "k1", Value: []byte("v1")}, {Key: "k2", Value: []byte("v2")}})
	require.NoError(t, err)

	mgr, err := NewManager(t.TempDir(), store)
	require.NoError(t, err)

	snap, err := mgr.Create("initial")
	require.NoError(t, err)

	_, err = store.Transaction([]mvcc.Op{{Key: "k3", Value: []byte("v3")}, {Key: "k1", Delete: true}})
	require.NoError(t, err)

	state := store.GetStateAtVersion(store.CurrentVersion())
	require.Contains(t, state, "k3")
	require.NotContains(t, state, "k1")

	newVersion, err := mgr.Restore(snap.ID)
	require.NoError(t, err)
	require.Greater(t, newVersion, snap.Version)

	restored := store.GetStateAtVersion(newVersion)
	require.Equal(t, []byte("v1"), restored["k1"])
	require.Equal(t, []byte("v2"), restored["k2"])
	require.NotContains(t, restored, "k3")
}

func TestListToleratesExtraFiles(t *testing.T) {
	store := newTestStore(t)
	dir := t.TempDir()
	mgr, err := NewManager(dir, store)
	require.NoError(t, err)

	_, err = mgr.Create("a")
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "not-a-snapshot.txt"), []byte("garbage"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "corrupt.json"), []byte("{not json"), 0o644))

	list, err := mgr.List()
	require.NoError(t, err)
	require.Len(t, list, 1)
}

func TestDeleteMissingSnapshot(t *testing.T) {
	store := newTestStore(t)
	mgr, err := NewManager(t.TempDir(), store)
	require.NoError(t, err)
	err = mgr.Delete("nonexistent")
	require.ErrorIs(t, err, ErrSnapshotNotFound)
}
