package mvcc

import (
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/hashicorp/raft"
	raftboltdb "github.com/hashicorp/raft-boltdb"

	"github.com/synerthink/dotlanth/internal/metrics"
)

var ErrKeyNotFound = errors.New("mvcc: key not found")

// Config configures a single Store instance. Grounded on the teacher's
// manager.Config{NodeID, BindAddr, DataDir} shape.
type Config struct {
	NodeID   string
	DataDir  string
	BindAddr string // "host:port"; loopback address used for single-node or in-process clusters

	// TLS, when set, secures the raft transport with mutual TLS using a
	// certificate issued by security.CapabilityAuthority.IssueRaftPeerCertificate
	// (see security.PeerTLSConfig). Nil falls back to the plain TCP
	// transport, which is what single-node and in-process test clusters use.
	TLS *tls.Config
}

// Store is the MVCC versioned key/value store (C7), backed by a raft log
// whose FSM (see fsm.go) holds per-key ascending-version history.
type Store struct {
	cfg  Config
	raft *raft.Raft
	fsm  *FSM
}

// NewStore bootstraps (or rejoins) a single-node raft cluster persisting
// its log and stable store to bbolt files under cfg.DataDir, matching the
// teacher's pkg/manager raft wiring (raft-boltdb for log/stable storage,
// a file snapshot store, TCP transport).
func NewStore(cfg Config) (*Store, error) {
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("mvcc: creating data dir: %w", err)
	}

	fsm := newFSM()

	raftCfg := raft.DefaultConfig()
	raftCfg.LocalID = raft.ServerID(cfg.NodeID)

	logStorePath := filepath.Join(cfg.DataDir, "raft-log.db")
	logStore, err := raftboltdb.NewBoltStore(logStorePath)
	if err != nil {
		return nil, fmt.Errorf("mvcc: opening raft log store: %w", err)
	}

	stableStorePath := filepath.Join(cfg.DataDir, "raft-stable.db")
	stableStore, err := raftboltdb.NewBoltStore(stableStorePath)
	if err != nil {
		return nil, fmt.Errorf("mvcc: opening raft stable store: %w", err)
	}

	snapshotDir := filepath.Join(cfg.DataDir, "raft-snapshots")
	snapStore, err := raft.NewFileSnapshotStore(snapshotDir, 2, os.Stderr)
	if err != nil {
		return nil, fmt.Errorf("mvcc: opening raft snapshot store: %w", err)
	}

	// advertise=nil lets the transport report its actual bound address,
	// which matters when BindAddr uses an ephemeral port (":0").
	var transport raft.Transport
	if cfg.TLS != nil {
		layer, err := newTLSStreamLayer(cfg.BindAddr, cfg.TLS)
		if err != nil {
			return nil, fmt.Errorf("mvcc: creating TLS stream layer: %w", err)
		}
		transport = raft.NewNetworkTransport(layer, 3, 10*time.Second, os.Stderr)
	} else {
		tcpTransport, err := raft.NewTCPTransport(cfg.BindAddr, nil, 3, 10*time.Second, os.Stderr)
		if err != nil {
			return nil, fmt.Errorf("mvcc: creating raft transport: %w", err)
		}
		transport = tcpTransport
	}

	hasState, err := raft.HasExistingState(logStore, stableStore, snapStore)
	if err != nil {
		return nil, fmt.Errorf("mvcc: checking raft state: %w", err)
	}

	r, err := raft.NewRaft(raftCfg, fsm, logStore, stableStore, snapStore, transport)
	if err != nil {
		return nil, fmt.Errorf("mvcc: starting raft: %w", err)
	}

	if !hasState {
		bootstrapCfg := raft.Configuration{
			Servers: []raft.Server{{ID: raftCfg.LocalID, Address: transport.LocalAddr()}},
		}
		if err := r.BootstrapCluster(bootstrapCfg).Error(); err != nil {
			return nil, fmt.Errorf("mvcc: bootstrapping raft cluster: %w", err)
		}
	}

	st := &Store{cfg: cfg, raft: r, fsm: fsm}
	if err := st.waitForLeader(10 * time.Second); err != nil {
		return nil, err
	}
	return st, nil
}

// waitForLeader blocks until this node observes itself (or another node)
// elected leader, bounding the time callers may wait before the first
// Transaction call after a fresh single-node bootstrap.
func (s *Store) waitForLeader(timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if addr, _ := s.raft.LeaderWithID(); addr != "" {
			return nil
		}
		time.Sleep(25 * time.Millisecond)
	}
	return fmt.Errorf("mvcc: no raft leader elected within %s", timeout)
}

// Transaction atomically applies every op in ops and returns the new
// version. Implements the commit protocol: all ops share one new version,
// published only once the raft log entry is committed and applied.
func (s *Store) Transaction(ops []Op) (uint64, error) {
	if len(ops) == 0 {
		return s.CurrentVersion(), nil
	}
	data, err := json.Marshal(txnPayload{Ops: ops})
	if err != nil {
		return 0, err
	}
	cmd := Command{Op: "txn", Data: data}
	enc, err := json.Marshal(cmd)
	if err != nil {
		return 0, err
	}
	future := s.raft.Apply(enc, 10*time.Second)
	if err := future.Error(); err != nil {
		return 0, fmt.Errorf("mvcc: applying transaction: %w", err)
	}
	resp := future.Response()
	v, ok := resp.(uint64)
	if !ok {
		if err, ok := resp.(error); ok {
			return 0, err
		}
		return 0, fmt.Errorf("mvcc: unexpected apply response type %T", resp)
	}
	metrics.MVCCCommitTotal.Inc()
	return v, nil
}

// Read returns the value stored for key as of version at, or ok=false if
// the key has no history at or before that version. A key deleted at or
// before at is a valid committed "absent" state, reported as ok=true,
// value=nil via the tombstone flag.
func (s *Store) Read(key string, at uint64) ([]byte, bool, error) {
	val, ok, _ := s.fsm.readAt(key, at)
	return val, ok, nil
}

// CurrentVersion returns the most recently committed version.
func (s *Store) CurrentVersion() uint64 {
	return s.fsm.version()
}

// GetStateAtVersion returns every live key and its value as of version v.
func (s *Store) GetStateAtVersion(v uint64) map[string][]byte {
	return s.fsm.stateAt(v)
}

// Shutdown gracefully stops the raft subsystem.
func (s *Store) Shutdown() error {
	return s.raft.Shutdown().Error()
}
