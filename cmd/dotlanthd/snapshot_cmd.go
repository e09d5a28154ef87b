package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/synerthink/dotlanth/pkg/mvcc"
	"github.com/synerthink/dotlanth/pkg/snapshot"
)

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Create, list, restore, and delete point-in-time state snapshots",
}

var snapshotCreateCmd = &cobra.Command{
	Use:   "create [description]",
	Short: "Capture the current MVCC state as a new snapshot",
	Args:  cobra.MaximumNArgs(1),
	RunE: withSnapshotManager(func(m *snapshot.Manager, args []string) error {
		description := ""
		if len(args) == 1 {
			description = args[0]
		}
		snap, err := m.Create(description)
		if err != nil {
			return err
		}
		fmt.Printf("created snapshot %s at version %d\n", snap.ID, snap.Version)
		return nil
	}),
}

var snapshotListCmd = &cobra.Command{
	Use:   "list",
	Short: "List snapshots",
	Args:  cobra.NoArgs,
	RunE: withSnapshotManager(func(m *snapshot.Manager, args []string) error {
		snaps, err := m.List()
		if err != nil {
			return err
		}
		for _, s := range snaps {
			fmt.Printf("%s\tversion=%d\t%s\t%s\n", s.ID, s.Version, s.Timestamp.Format("2006-01-02T15:04:05Z07:00"), s.Description)
		}
		return nil
	}),
}

var snapshotRestoreCmd = &cobra.Command{
	Use:   "restore <id>",
	Short: "Restore the MVCC store to a snapshot's state",
	Args:  cobra.ExactArgs(1),
	RunE: withSnapshotManager(func(m *snapshot.Manager, args []string) error {
		version, err := m.Restore(args[0])
		if err != nil {
			return err
		}
		fmt.Printf("restored to version %d\n", version)
		return nil
	}),
}

var snapshotDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a snapshot artifact",
	Args:  cobra.ExactArgs(1),
	RunE: withSnapshotManager(func(m *snapshot.Manager, args []string) error {
		return m.Delete(args[0])
	}),
}

func init() {
	snapshotCmd.AddCommand(snapshotCreateCmd, snapshotListCmd, snapshotRestoreCmd, snapshotDeleteCmd)
}

// withSnapshotManager opens the MVCC store and snapshot manager named by
// the daemon's config/flags, runs fn, and closes the store — every
// snapshot subcommand is a short-lived CLI invocation, not the long-
// running daemon, so it owns the store for the duration of one command.
func withSnapshotManager(fn func(*snapshot.Manager, []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		store, err := mvcc.NewStore(mvcc.Config{NodeID: cfg.NodeID, DataDir: cfg.DataDir, BindAddr: cfg.ListenAddr})
		if err != nil {
			return fmt.Errorf("opening mvcc store: %w", err)
		}
		defer store.Shutdown()

		mgr, err := snapshot.NewManager(cfg.SnapshotDir, store)
		if err != nil {
			return fmt.Errorf("opening snapshot manager: %w", err)
		}
		return fn(mgr, args)
	}
}
