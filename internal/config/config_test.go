package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadEmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadOverridesOnlySpecifiedFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dotlanthd.yaml")
	require.NoError(t, os.WriteFile(path, []byte("node_id: node-7\nlog_json: true\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "node-7", cfg.NodeID)
	assert.True(t, cfg.LogJSON)
	assert.Equal(t, Default().DataDir, cfg.DataDir)
	assert.Equal(t, Default().DefaultQuota, cfg.DefaultQuota)
}

func TestLoadOverridesClusterTLSFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dotlanthd.yaml")
	require.NoError(t, os.WriteFile(path, []byte("cluster_tls: true\ncluster_id: prod-east\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.True(t, cfg.ClusterTLS)
	assert.Equal(t, "prod-east", cfg.ClusterID)
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("not: [valid"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}
