// Package mvcc implements the versioned key/value store (C7): per-key
// ascending-version history, snapshot-isolated reads, and atomic multi-key
// transactions committed through a raft log. Grounded on the teacher's
// pkg/manager/fsm.go Command{Op,Data}-applied-to-state-machine pattern,
// generalized from cluster metadata to arbitrary key/value history.
package mvcc

import (
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/hashicorp/raft"
)

// Op is one write within a transaction.
type Op struct {
	Delete bool   `json:"delete,omitempty"`
	Key    string `json:"key"`
	Value  []byte `json:"value,omitempty"`
}

// Command is the raft log entry applied to the FSM. Mirrors the teacher's
// Command{Op string, Data json.RawMessage} shape, specialized to a single
// operation kind ("txn") since every MVCC mutation is a transaction.
type Command struct {
	Op  string          `json:"op"`
	Data json.RawMessage `json:"data"`
}

// txnPayload is the Data payload for a "txn" command.
type txnPayload struct {
	Ops []Op `json:"ops"`
}

// entry is one (version, value) pair in a key's history. Deleted marks a
// tombstone (key deleted at that version).
type entry struct {
	Version uint64
	Value   []byte
	Deleted bool
}

// FSM is the raft finite state machine backing the MVCC store.
type FSM struct {
	mu             sync.RWMutex
	history        map[string][]entry
	currentVersion uint64
}

func newFSM() *FSM {
	return &FSM{history: make(map[string][]entry)}
}

// Apply applies one committed raft log entry, assigning it the next
// version and appending it atomically across all keys it touches.
func (f *FSM) Apply(l *raft.Log) interface{} {
	var cmd Command
	if err := json.Unmarshal(l.Data, &cmd); err != nil {
		return fmt.Errorf("mvcc: decoding command: %w", err)
	}
	switch cmd.Op {
	case "txn":
		var p txnPayload
		if err := json.Unmarshal(cmd.Data, &p); err != nil {
			return fmt.Errorf("mvcc: decoding txn payload: %w", err)
		}
		return f.applyTxn(p.Ops)
	default:
		return fmt.Errorf("mvcc: unknown command op %q", cmd.Op)
	}
}

// applyTxn is the commit protocol from spec.md §4.7: compute V_new, append
// one entry per affected key sharing V_new, publish current_version. The
// FSM.Apply contract already serializes this against all other commits
// (raft applies log entries one at a time), so no additional lock beyond
// f.mu (needed for concurrent readers) is required.
func (f *FSM) applyTxn(ops []Op) uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()

	vNew := f.currentVersion + 1
	for _, op := range ops {
		e := entry{Version: vNew, Deleted: op.Delete}
		if !op.Delete {
			e.Value = op.Value
		}
		f.history[op.Key] = append(f.history[op.Key], e)
	}
	f.currentVersion = vNew
	return vNew
}

func (f *FSM) readAt(key string, at uint64) ([]byte, bool, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	hist := f.history[key]
	var best *entry
	for i := range hist {
		if hist[i].Version <= at {
			best = &hist[i]
		} else {
			break
		}
	}
	if best == nil {
		return nil, false, false
	}
	if best.Deleted {
		return nil, true, true
	}
	return best.Value, true, false
}

func (f *FSM) version() uint64 {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.currentVersion
}

// stateAt returns a full key->value snapshot of the store as of version v.
func (f *FSM) stateAt(v uint64) map[string][]byte {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make(map[string][]byte)
	for k, hist := range f.history {
		var best *entry
		for i := range hist {
			if hist[i].Version <= v {
				best = &hist[i]
			} else {
				break
			}
		}
		if best != nil && !best.Deleted {
			out[k] = append([]byte{}, best.Value...)
		}
	}
	return out
}

// persisted is the wire format for FSM snapshot/restore, grounded on the
// teacher's WarrenSnapshot struct.
type persisted struct {
	History        map[string][]entry `json:"history"`
	CurrentVersion uint64             `json:"current_version"`
}

func (f *FSM) Snapshot() (raft.FSMSnapshot, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	cp := make(map[string][]entry, len(f.history))
	for k, v := range f.history {
		cp[k] = append([]entry{}, v...)
	}
	return &fsmSnapshot{persisted{History: cp, CurrentVersion: f.currentVersion}}, nil
}

func (f *FSM) Restore(rc io.ReadCloser) error {
	defer rc.Close()
	var p persisted
	if err := json.NewDecoder(rc).Decode(&p); err != nil {
		return fmt.Errorf("mvcc: restoring fsm snapshot: %w", err)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if p.History == nil {
		p.History = make(map[string][]entry)
	}
	f.history = p.History
	f.currentVersion = p.CurrentVersion
	return nil
}

type fsmSnapshot struct {
	data persisted
}

func (s *fsmSnapshot) Persist(sink raft.SnapshotSink) error {
	enc, err := json.Marshal(s.data)
	if err != nil {
		sink.Cancel()
		return err
	}
	if _, err := sink.Write(enc); err != nil {
		sink.Cancel()
		return err
	}
	return sink.Close()
}

func (s *fsmSnapshot) Release() {}
