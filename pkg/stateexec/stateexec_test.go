package stateexec

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/synerthink/dotlanth/pkg/mvcc"
	"github.com/synerthink/dotlanth/pkg/snapshot"
)

func newTestExecutor(t *testing.T) *Executor {
	t.Helper()
	dir := t.TempDir()
	store, err := mvcc.NewStore(mvcc.Config{NodeID: "node1", DataDir: dir, BindAddr: "127.0.0.1:0"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Shutdown() })

	snaps, err := snapshot.NewManager(t.TempDir(), store)
	require.NoError(t, err)

	exec, err := New(store, snaps)
	require.NoError(t, err)
	return exec
}

func TestStateCommitRoundTrip(t *testing.T) {
	exec := newTestExecutor(t)

	exec.Write("k1", []byte("v1"))
	exec.Write("k2", []byte("v2"))

	root1, err := exec.Commit()
	require.NoError(t, err)
	require.NotEqual(t, [32]byte{}, root1)

	val, ok, err := exec.Read("k1")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("v1"), val)

	exec.Write("k1", []byte("v1-prime"))
	exec.Rollback()

	val, ok, err = exec.Read("k1")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("v1"), val)
}

func TestCommitWithNoPendingReturnsCurrentRoot(t *testing.T) {
	exec := newTestExecutor(t)
	exec.Write("k", []byte("v"))
	root1, err := exec.Commit()
	require.NoError(t, err)

	root2, err := exec.Commit()
	require.NoError(t, err)
	require.Equal(t, root1, root2)
}

func TestGenerateAndVerifyProof(t *testing.T) {
	exec := newTestExecutor(t)
	exec.Write("k", []byte("v"))
	_, err := exec.Commit()
	require.NoError(t, err)

	proof, err := exec.GenerateProof("k")
	require.NoError(t, err)
	require.True(t, exec.VerifyProof(proof))
}

func TestSnapshotIncludesPendingChanges(t *testing.T) {
	exec := newTestExecutor(t)
	exec.Write("k1", []byte("v1"))
	_, err := exec.Commit()
	require.NoError(t, err)

	exec.Write("k2", []byte("v2-pending"))
	snap, err := exec.Snapshot("with pending")
	require.NoError(t, err)
	require.Equal(t, []byte("v1"), snap.State["k1"])
	require.Equal(t, []byte("v2-pending"), snap.State["k2"])
}

func TestRestoreClearsPendingAndUpdatesVersion(t *testing.T) {
	exec := newTestExecutor(t)
	exec.Write("k1", []byte("v1"))
	_, err := exec.Commit()
	require.NoError(t, err)
	snap, err := exec.Snapshot("checkpoint")
	require.NoError(t, err)

	exec.Write("k2", []byte("v2-pending"))
	exec.Write("k1", []byte("v1-changed"))
	_, err = exec.Commit()
	require.NoError(t, err)

	version, err := exec.Restore(snap.ID)
	require.NoError(t, err)
	require.Greater(t, version, snap.Version)

	val, ok, err := exec.Read("k1")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("v1"), val)

	_, ok, err = exec.Read("k2")
	require.NoError(t, err)
	require.False(t, ok)
}
