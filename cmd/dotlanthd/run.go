package main

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/synerthink/dotlanth/internal/config"
	"github.com/synerthink/dotlanth/internal/metrics"
	"github.com/synerthink/dotlanth/internal/obslog"
	"github.com/synerthink/dotlanth/pkg/cancel"
	"github.com/synerthink/dotlanth/pkg/mvcc"
	"github.com/synerthink/dotlanth/pkg/security"
	"github.com/synerthink/dotlanth/pkg/snapshot"
	"github.com/synerthink/dotlanth/pkg/stateexec"
	"github.com/synerthink/dotlanth/pkg/storage"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the dotlanthd daemon: MVCC store, state executor, and security kernel",
	RunE:  runDaemon,
}

var metricsAddr string

func init() {
	runCmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Address to serve Prometheus metrics on, empty disables it")
}

// daemon bundles the long-lived components a running node keeps alive:
// the MVCC store, its snapshot manager, the state opcode executor bound
// to both, a quota meter for dots submitted at this default level, and
// the cancellation reaper. The gRPC gateway that would accept and route
// dot-execution requests into stateExec is out of scope (spec.md's
// Non-goals); dotlanthd's own job is holding these ready and reporting
// their health via metrics.
type daemon struct {
	store        *mvcc.Store
	snaps        *snapshot.Manager
	stateExec    *stateexec.Executor
	defaultMeter *security.Meter
	cancelSystem *cancel.System
}

func runDaemon(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := obslog.WithComponent("dotlanthd")

	var tlsConfig *tls.Config
	if cfg.ClusterTLS {
		tlsConfig, err = bootstrapClusterTLS(cfg, log)
		if err != nil {
			return fmt.Errorf("bootstrapping cluster TLS: %w", err)
		}
	}

	store, err := mvcc.NewStore(mvcc.Config{NodeID: cfg.NodeID, DataDir: cfg.DataDir, BindAddr: cfg.ListenAddr, TLS: tlsConfig})
	if err != nil {
		return fmt.Errorf("opening mvcc store: %w", err)
	}
	defer store.Shutdown()

	snaps, err := snapshot.NewManager(cfg.SnapshotDir, store)
	if err != nil {
		return fmt.Errorf("opening snapshot manager: %w", err)
	}

	stateExec, err := stateexec.New(store, snaps)
	if err != nil {
		return fmt.Errorf("building state executor: %w", err)
	}

	d := &daemon{
		store:        store,
		snaps:        snaps,
		stateExec:    stateExec,
		defaultMeter: security.NewMeter(cfg.DefaultQuota),
		cancelSystem: cancel.NewSystem(),
	}
	defer d.cancelSystem.Shutdown()

	log.Info().Str("node_id", cfg.NodeID).Str("data_dir", cfg.DataDir).Msg("dotlanthd started")

	serveMetrics(metricsAddr)

	ctx, stop := context.WithCancel(cmd.Context())
	defer stop()
	go d.reportLiveness(ctx, log)

	waitForSignal(ctx)

	log.Info().Msg("dotlanthd shutting down")
	return nil
}

// bootstrapClusterTLS loads (or, on first boot, issues and persists) this
// node's raft-peer certificate from a CapabilityAuthority rooted in
// cfg.DataDir, and returns the mutual-TLS config security.PeerTLSConfig
// builds around it. A cached certificate within its rotation window is
// reused as-is; anything else triggers a fresh issuance so the daemon
// never starts with an about-to-expire identity.
func bootstrapClusterTLS(cfg config.Config, log zerolog.Logger) (*tls.Config, error) {
	caDir := filepath.Join(cfg.DataDir, "ca")
	if err := os.MkdirAll(caDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating CA store dir: %w", err)
	}
	caStore, err := storage.NewBoltStore(caDir)
	if err != nil {
		return nil, fmt.Errorf("opening CA store: %w", err)
	}
	defer caStore.Close()

	if err := security.SetClusterEncryptionKey(security.DeriveKeyFromClusterID(cfg.ClusterID)); err != nil {
		return nil, fmt.Errorf("deriving cluster encryption key: %w", err)
	}

	ca := security.NewCapabilityAuthority(caStore)
	if err := ca.LoadFromStore(); err != nil {
		if err := ca.Initialize(); err != nil {
			return nil, fmt.Errorf("initializing CA: %w", err)
		}
		if err := ca.SaveToStore(); err != nil {
			return nil, fmt.Errorf("persisting CA: %w", err)
		}
		log.Info().Msg("initialized new cluster CA")
	}

	certDir, err := security.RaftPeerCertDir(cfg.NodeID)
	if err != nil {
		return nil, fmt.Errorf("resolving raft peer cert dir: %w", err)
	}

	var peerCert *tls.Certificate
	if security.CertExists(certDir) {
		cached, err := security.LoadCertFromFile(certDir)
		if err == nil && !security.CertNeedsRotation(cached.Leaf) && ca.VerifyCertificate(cached.Leaf) == nil {
			peerCert = cached
			log.Debug().Str("cert_dir", certDir).Msg("reusing cached raft peer certificate")
		}
	}

	if peerCert == nil {
		host, _, splitErr := net.SplitHostPort(cfg.ListenAddr)
		if splitErr != nil {
			host = cfg.ListenAddr
		}
		var ips []net.IP
		dnsNames := []string{"localhost"}
		if ip := net.ParseIP(host); ip != nil {
			ips = append(ips, ip)
		} else if host != "" {
			dnsNames = append(dnsNames, host)
		}

		issued, err := ca.IssueRaftPeerCertificate(cfg.NodeID, dnsNames, ips)
		if err != nil {
			return nil, fmt.Errorf("issuing raft peer certificate: %w", err)
		}
		if err := security.SaveCertToFile(issued, certDir); err != nil {
			return nil, fmt.Errorf("caching raft peer certificate: %w", err)
		}
		peerCert = issued
		log.Info().Str("cert_dir", certDir).Msg("issued new raft peer certificate")
	}

	return ca.PeerTLSConfig(peerCert), nil
}

// reportLiveness periodically refreshes the MVCC version gauge and logs
// the cancellation reaper's stats, the two pieces of daemon-scope state
// that change without an explicit local caller driving them (raft can
// advance the commit log via replication from another node; the reaper
// sweeps on its own ticker).
func (d *daemon) reportLiveness(ctx context.Context, log zerolog.Logger) {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			metrics.MVCCVersion.Set(float64(d.store.CurrentVersion()))
			stats := d.cancelSystem.Stats()
			log.Debug().Interface("cancel_stats", stats).Msg("liveness tick")
		}
	}
}
