// Package config loads the daemon's configuration, grounded on the
// teacher's pkg/manager.Config struct-tag style widened to the fuller
// field set cmd/dotlanthd needs, with the same flag > file > default
// precedence as the teacher's main.go flag wiring.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/synerthink/dotlanth/pkg/security"
)

// Config is the daemon's full configuration surface.
type Config struct {
	NodeID       string         `yaml:"node_id"`
	DataDir      string         `yaml:"data_dir"`
	SnapshotDir  string         `yaml:"snapshot_dir"`
	ListenAddr   string         `yaml:"listen_addr"`
	LogLevel     string         `yaml:"log_level"`
	LogJSON      bool           `yaml:"log_json"`
	DefaultQuota security.Quota `yaml:"default_quota"`

	// ClusterTLS enables the CapabilityAuthority-issued mutual TLS raft
	// transport (security.IssueRaftPeerCertificate, security.PeerTLSConfig)
	// in place of the plain TCP transport. Off by default so a single-node
	// deployment never needs a cluster ID or a CA bootstrap step.
	ClusterTLS bool `yaml:"cluster_tls"`
	// ClusterID seeds the cluster encryption key (security.DeriveKeyFromClusterID)
	// that protects the CA's root private key at rest. Required when ClusterTLS
	// is set.
	ClusterID string `yaml:"cluster_id"`
}

// Default returns the configuration a fresh single-node deployment starts
// with before any file or flag overrides are applied.
func Default() Config {
	return Config{
		NodeID:      "node-1",
		DataDir:     "./data",
		SnapshotDir: "./data/snapshots",
		ListenAddr:  "127.0.0.1:7420",
		LogLevel:    "info",
		LogJSON:     false,
		DefaultQuota: security.Quota{
			MaxMemoryBytes:     64 << 20,
			MaxCPUMillis:       0,
			MaxInstructions:    1_000_000,
			MaxFileDescriptors: 0,
			MaxNetworkBytes:    0,
			MaxStackDepth:      1024,
		},
	}
}

// Load reads path as YAML over top of Default(), leaving every field the
// file doesn't mention at its default. A missing path is not an error —
// a daemon with no config file runs on defaults, same as the teacher's
// manager bootstrap when no config is supplied.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("config: reading %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	return cfg, nil
}
