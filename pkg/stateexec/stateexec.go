// Package stateexec implements the state opcode executor (C9): the bridge
// between bytecode's State* opcodes and the MPT/MVCC/snapshot components
// (C6–C8). Grounded on spec.md §4.9; no analogous original_source file was
// read in full (state_executor.rs was identified but not prioritized over
// the other components' primary sources), so this is built directly from
// the specification's operation contract.
package stateexec

import (
	"fmt"
	"sync"

	"github.com/synerthink/dotlanth/pkg/mpt"
	"github.com/synerthink/dotlanth/pkg/mvcc"
	"github.com/synerthink/dotlanth/pkg/snapshot"
)

type pendingEntry struct {
	value   []byte
	deleted bool
}

// Executor holds a pending-changes map keyed by state key, seen since the
// last commit, on top of an MVCC store, an MPT root reconstruction, and a
// snapshot manager.
type Executor struct {
	mu      sync.Mutex
	store   *mvcc.Store
	snaps   *snapshot.Manager
	pending map[string]pendingEntry

	committedVersion uint64
	trie             *mpt.Trie
}

// New builds a state opcode executor over the given MVCC store and snapshot
// manager, rebuilding the Merkle tree over the store's current state.
func New(store *mvcc.Store, snaps *snapshot.Manager) (*Executor, error) {
	e := &Executor{store: store, snaps: snaps, pending: make(map[string]pendingEntry)}
	if err := e.rebuildTrie(); err != nil {
		return nil, err
	}
	return e, nil
}

func (e *Executor) rebuildTrie() error {
	version := e.store.CurrentVersion()
	state := e.store.GetStateAtVersion(version)
	trie := mpt.New(mpt.NewMemStore())
	for k, v := range state {
		if err := trie.Put([]byte(k), mpt.Value(v)); err != nil {
			return err
		}
	}
	e.trie = trie
	e.committedVersion = version
	return nil
}

// Read returns the pending value for key if one exists, else the
// committed value as of the executor's last-known version.
func (e *Executor) Read(key string) ([]byte, bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if p, ok := e.pending[key]; ok {
		if p.deleted {
			return nil, false, nil
		}
		return p.value, true, nil
	}
	val, ok, err := e.store.Read(key, e.committedVersion)
	if val == nil {
		// mvcc reports a committed tombstone as ok=true with a nil value.
		return nil, false, err
	}
	return val, ok, err
}

// Write records a pending write, not yet visible to other executors until
// Commit.
func (e *Executor) Write(key string, value []byte) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.pending[key] = pendingEntry{value: value}
}

// Delete records a pending tombstone.
func (e *Executor) Delete(key string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.pending[key] = pendingEntry{deleted: true}
}

// RootHash returns the current (last-committed) Merkle root.
func (e *Executor) RootHash() ([32]byte, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	id, ok := e.trie.RootHash()
	return [32]byte(id), ok
}

// Commit submits the pending changes as one MVCC transaction, rebuilds the
// Merkle tree over the new full state, and returns the new root hash. If
// nothing is pending, it returns the current root hash without touching
// the store.
func (e *Executor) Commit() ([32]byte, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if len(e.pending) == 0 {
		id, _ := e.trie.RootHash()
		return [32]byte(id), nil
	}

	ops := make([]mvcc.Op, 0, len(e.pending))
	for k, p := range e.pending {
		ops = append(ops, mvcc.Op{Key: k, Value: p.value, Delete: p.deleted})
	}

	version, err := e.store.Transaction(ops)
	if err != nil {
		return [32]byte{}, fmt.Errorf("stateexec: commit failed: %w", err)
	}

	state := e.store.GetStateAtVersion(version)
	trie := mpt.New(mpt.NewMemStore())
	for k, v := range state {
		if err := trie.Put([]byte(k), mpt.Value(v)); err != nil {
			return [32]byte{}, err
		}
	}
	e.trie = trie
	e.committedVersion = version
	e.pending = make(map[string]pendingEntry)

	id, _ := trie.RootHash()
	return [32]byte(id), nil
}

// Rollback discards all pending changes without touching the store.
func (e *Executor) Rollback() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.pending = make(map[string]pendingEntry)
}

// GenerateProof returns a serializable inclusion/absence proof for key
// against the executor's current committed trie.
func (e *Executor) GenerateProof(key string) (*mpt.Proof, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.trie.GetProof([]byte(key))
}

// VerifyProof verifies a proof against the executor's current root hash.
func (e *Executor) VerifyProof(p *mpt.Proof) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	root, ok := e.trie.RootHash()
	return mpt.VerifyProof(p, root, ok)
}

// Snapshot captures the union of MVCC committed state and pending changes,
// per spec.md §4.9's StateSnapshot contract.
func (e *Executor) Snapshot(description string) (*snapshot.Snapshot, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	state := e.store.GetStateAtVersion(e.committedVersion)
	merged := make(map[string][]byte, len(state)+len(e.pending))
	for k, v := range state {
		merged[k] = v
	}
	for k, p := range e.pending {
		if p.deleted {
			delete(merged, k)
		} else {
			merged[k] = p.value
		}
	}
	return e.snaps.CreateFromState(e.committedVersion, merged, description)
}

// Restore clears pending changes, restores the snapshot via the snapshot
// manager, and updates the executor's view of the committed version.
func (e *Executor) Restore(id string) (uint64, error) {
	e.mu.Lock()
	e.pending = make(map[string]pendingEntry)
	e.mu.Unlock()

	version, err := e.snaps.Restore(id)
	if err != nil {
		return 0, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	state := e.store.GetStateAtVersion(version)
	trie := mpt.New(mpt.NewMemStore())
	for k, v := range state {
		if err := trie.Put([]byte(k), mpt.Value(v)); err != nil {
			return 0, err
		}
	}
	e.trie = trie
	e.committedVersion = version
	return version, nil
}
