// Command dotlanthd is the Dotlanth daemon entrypoint, grounded on
// cmd/warren/main.go's cobra root command with persistent logging flags
// and cobra.OnInitialize wiring. The gRPC-gateway-dependent subcommands
// present in the teacher's main.go (which import the retrieval-pack-
// absent api/proto) are not carried over; see DESIGN.md's "Dropped
// teacher dependencies".
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/synerthink/dotlanth/internal/config"
	"github.com/synerthink/dotlanth/internal/metrics"
	"github.com/synerthink/dotlanth/internal/obslog"
)

var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

var configPath string

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "dotlanthd",
	Short:   "Dotlanth - sandboxed dot execution engine over a verifiable state store",
	Version: Version,
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"dotlanthd version %s\nCommit: %s\nBuilt: %s\n",
		Version, Commit, BuildTime,
	))

	rootCmd.PersistentFlags().String("log-level", "", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("log-json", false, "Output logs in JSON format")
	rootCmd.PersistentFlags().String("data-dir", "", "Directory for MVCC/raft state")
	rootCmd.PersistentFlags().String("snapshot-dir", "", "Directory for snapshot artifacts")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to a dotlanthd YAML config file")
	rootCmd.PersistentFlags().Bool("cluster-tls", false, "Secure the raft transport with a CA-issued mutual TLS certificate")
	rootCmd.PersistentFlags().String("cluster-id", "", "Cluster identifier the CA's encryption key is derived from")

	cobra.OnInitialize(initLogging)

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(snapshotCmd)
	rootCmd.AddCommand(dotCmd)
	rootCmd.AddCommand(transpileCmd)
}

func initLogging() {
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	obslog.Init(obslog.Config{Level: cfg.LogLevel, JSONOutput: cfg.LogJSON})
}

// loadConfig reads the config file (if --config was given) and applies
// the persistent flags' overrides on top, matching the teacher's flag >
// file > default precedence.
func loadConfig() (config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return cfg, err
	}

	if v, _ := rootCmd.PersistentFlags().GetString("log-level"); v != "" {
		cfg.LogLevel = v
	}
	if rootCmd.PersistentFlags().Changed("log-json") {
		cfg.LogJSON, _ = rootCmd.PersistentFlags().GetBool("log-json")
	}
	if v, _ := rootCmd.PersistentFlags().GetString("data-dir"); v != "" {
		cfg.DataDir = v
	}
	if v, _ := rootCmd.PersistentFlags().GetString("snapshot-dir"); v != "" {
		cfg.SnapshotDir = v
	}
	if rootCmd.PersistentFlags().Changed("cluster-tls") {
		cfg.ClusterTLS, _ = rootCmd.PersistentFlags().GetBool("cluster-tls")
	}
	if v, _ := rootCmd.PersistentFlags().GetString("cluster-id"); v != "" {
		cfg.ClusterID = v
	}
	return cfg, nil
}

func waitForSignal(ctx context.Context) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigCh:
	case <-ctx.Done():
	}
}

func serveMetrics(addr string) {
	if addr == "" {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	go func() {
		if err := http.ListenAndServe(addr, mux); err != nil && err != http.ErrServerClosed {
			obslog.Errorf(err, "metrics server exited")
		}
	}()
}
