// Command dotlanth-migrate repairs snapshot artifacts written by a version
// of dotlanthd that did not yet compute a Merkle root over their state
// (root_hash left at the zero value), recomputing and rewriting them in
// place. Grounded on cmd/warren-migrate/main.go's flag-based, backup-then-
// migrate CLI with an opt-in, informative --dry-run mode.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/synerthink/dotlanth/pkg/mpt"
)

var (
	snapshotDir = flag.String("snapshot-dir", "./data/snapshots", "Dotlanth snapshot artifact directory")
	dryRun      = flag.Bool("dry-run", false, "Show what would be migrated without making changes")
)

// snapshotFile mirrors pkg/snapshot.Snapshot's JSON shape. It is declared
// independently rather than importing pkg/snapshot so this tool keeps
// working against artifacts from schema versions the current package no
// longer round-trips exactly.
type snapshotFile struct {
	ID          string            `json:"id"`
	Version     uint64            `json:"version"`
	Timestamp   string            `json:"timestamp"`
	RootHash    [32]byte          `json:"root_hash"`
	Description string            `json:"description,omitempty"`
	State       map[string][]byte `json:"state"`
}

func main() {
	flag.Parse()

	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("Dotlanth Snapshot Migration Tool - backfill root_hash")
	log.Println("======================================================")

	if _, err := os.Stat(*snapshotDir); os.IsNotExist(err) {
		log.Fatalf("Snapshot directory not found at %s", *snapshotDir)
	}

	log.Printf("Snapshot directory: %s", *snapshotDir)
	log.Printf("Dry run: %v", *dryRun)

	if err := migrateSnapshots(*snapshotDir, *dryRun); err != nil {
		log.Fatalf("Migration failed: %v", err)
	}

	if *dryRun {
		log.Println("\nDry run completed. No changes made.")
		log.Println("Run without --dry-run to perform the migration.")
	} else {
		log.Println("\n✓ Migration completed successfully!")
	}
}

func migrateSnapshots(dir string, dryRun bool) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("reading snapshot directory: %w", err)
	}

	var candidates, migrated int
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		path := filepath.Join(dir, e.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			log.Printf("⚠ Warning: skipping unreadable file %s: %v", e.Name(), err)
			continue
		}

		var snap snapshotFile
		if err := json.Unmarshal(data, &snap); err != nil {
			log.Printf("⚠ Warning: skipping unparseable file %s: %v", e.Name(), err)
			continue
		}

		if snap.RootHash != ([32]byte{}) || len(snap.State) == 0 {
			continue
		}
		candidates++
		log.Printf("Found legacy snapshot %s (version %d) with zero root_hash", snap.ID, snap.Version)

		if dryRun {
			log.Printf("[DRY RUN] Would recompute root_hash over %d keys and rewrite %s", len(snap.State), e.Name())
			continue
		}

		root, err := recomputeRoot(snap.State)
		if err != nil {
			return fmt.Errorf("recomputing root hash for %s: %w", snap.ID, err)
		}
		snap.RootHash = root

		backupPath := path + ".bak"
		if err := copyFile(path, backupPath); err != nil {
			return fmt.Errorf("backing up %s: %w", e.Name(), err)
		}

		out, err := json.MarshalIndent(snap, "", "  ")
		if err != nil {
			return fmt.Errorf("encoding migrated snapshot %s: %w", snap.ID, err)
		}
		if err := os.WriteFile(path, out, 0o644); err != nil {
			return fmt.Errorf("writing migrated snapshot %s: %w", snap.ID, err)
		}

		migrated++
		log.Printf("✓ Migrated %s (backup at %s)", e.Name(), backupPath)
	}

	log.Printf("\n%d/%d legacy snapshots migrated", migrated, candidates)
	return nil
}

func recomputeRoot(state map[string][]byte) ([32]byte, error) {
	trie := mpt.New(mpt.NewMemStore())
	for k, v := range state {
		if err := trie.Put([]byte(k), mpt.Value(v)); err != nil {
			return [32]byte{}, err
		}
	}
	root, ok := trie.RootHash()
	if !ok {
		return [32]byte{}, nil
	}
	return [32]byte(root), nil
}

func copyFile(src, dst string) error {
	input, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	return os.WriteFile(dst, input, 0o600)
}
