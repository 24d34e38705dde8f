// Copyright (C) 2026 Precursor Authors (dev@precursorhq.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package scaffold

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/precursorhq/precursor/pkg/logging"
)

// BackupManager defines the interface for run-level snapshot operations.
//
// # Description
//
// BackupManager snapshots every managed artifact before a mutating run,
// allowing a wholesale rollback if scaffolding goes wrong. Snapshots are
// append-only: created before writes, pruned by retention, never mutated.
//
// # Thread Safety
//
// Implementations should be safe for concurrent use.
type BackupManager interface {
	// Snapshot copies all currently-present managed artifacts into a new
	// timestamped snapshot directory and returns its identifier.
	Snapshot(paths []string) (snapshotID string, err error)

	// RestoreLatest restores the most recent snapshot wholesale.
	RestoreLatest(paths []string) (*RestoreResult, error)

	// Prune deletes the oldest snapshots beyond the retention limit.
	Prune() error
}

// RestoreResult describes the outcome of a rollback.
type RestoreResult struct {
	// SnapshotID is the snapshot that was restored.
	SnapshotID string

	// Restored lists the artifact paths that were overwritten.
	Restored []string

	// Message is a human-readable summary.
	Message string
}

// SnapshotConfig configures snapshot behavior.
type SnapshotConfig struct {
	// Root is the workspace root managed artifact paths are relative to.
	Root string

	// BackupRoot is the directory snapshots are created under.
	BackupRoot string

	// MaxBackups is the number of snapshots retained.
	// Default: 10
	MaxBackups int

	// Enabled turns snapshotting on. When false, Snapshot is a no-op
	// returning an empty identifier.
	Enabled bool
}

// DefaultSnapshotManager implements BackupManager over a local directory
// tree laid out as <BackupRoot>/<timestamp>/<relative artifact path>.
type DefaultSnapshotManager struct {
	config SnapshotConfig
	log    *logging.Logger
}

// Compile-time interface check
var _ BackupManager = (*DefaultSnapshotManager)(nil)

// NewSnapshotManager creates a snapshot manager.
func NewSnapshotManager(config SnapshotConfig, logger *logging.Logger) *DefaultSnapshotManager {
	if config.MaxBackups <= 0 {
		config.MaxBackups = 10
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &DefaultSnapshotManager{config: config, log: logger}
}

// Snapshot copies every managed artifact that exists on disk into a new
// timestamped snapshot directory.
//
// # Description
//
// Individual artifact copy failures are logged and skipped; the backup
// is a safety net, not a precondition for scaffolding. Failure to
// create the snapshot root itself is fatal (ErrBackupRootCreation):
// the run must not proceed to mutate files after silently losing its
// safety net.
//
// # Inputs
//
//   - paths: Managed artifact paths relative to the workspace root.
//
// # Outputs
//
//   - snapshotID: Name of the snapshot directory. Empty when backups
//     are disabled or nothing existed to snapshot.
func (m *DefaultSnapshotManager) Snapshot(paths []string) (string, error) {
	if !m.config.Enabled {
		return "", nil
	}

	id := time.Now().UTC().Format("2006-01-02T15-04-05.000Z")
	snapDir := filepath.Join(m.config.BackupRoot, id)
	if err := os.MkdirAll(snapDir, 0755); err != nil {
		return "", fmt.Errorf("%w: %v", ErrBackupRootCreation, err)
	}

	copied := 0
	for _, rel := range paths {
		live := filepath.Join(m.config.Root, rel)
		if _, err := os.Stat(live); os.IsNotExist(err) {
			continue
		}
		dst := filepath.Join(snapDir, rel)
		if err := copyPath(live, dst); err != nil {
			m.log.Warn("snapshot copy failed", "path", rel, "error", err)
			continue
		}
		copied++
	}

	if copied == 0 {
		// Keep the empty snapshot: its existence records that the run
		// started from a clean slate, which rollback relies on.
		m.log.Debug("snapshot created with no pre-existing artifacts", "snapshot", id)
	}

	if err := m.Prune(); err != nil {
		m.log.Warn("snapshot retention prune failed", "error", err)
	}

	return id, nil
}

// RestoreLatest restores the newest snapshot.
//
// # Description
//
// For every managed artifact present inside the snapshot the live path
// is overwritten (directories: remove-then-copy, files: copy-overwrite).
// Artifacts absent from the snapshot are left untouched: restore never
// deletes files that were not part of the set at snapshot time.
//
// Returns ErrNoBackupFound when zero snapshots exist, so callers can
// distinguish "nothing to roll back" from a broken rollback mechanism.
func (m *DefaultSnapshotManager) RestoreLatest(paths []string) (*RestoreResult, error) {
	snapshots, err := m.listSnapshots()
	if err != nil {
		return nil, err
	}
	if len(snapshots) == 0 {
		return nil, ErrNoBackupFound
	}

	latest := snapshots[len(snapshots)-1]
	snapDir := filepath.Join(m.config.BackupRoot, latest)

	result := &RestoreResult{SnapshotID: latest}
	for _, rel := range paths {
		src := filepath.Join(snapDir, rel)
		if _, err := os.Stat(src); os.IsNotExist(err) {
			continue
		}
		live := filepath.Join(m.config.Root, rel)
		if err := os.RemoveAll(live); err != nil {
			return nil, fmt.Errorf("clearing %s before restore: %w", rel, err)
		}
		if err := copyPath(src, live); err != nil {
			return nil, fmt.Errorf("restoring %s: %w", rel, err)
		}
		result.Restored = append(result.Restored, rel)
	}

	result.Message = fmt.Sprintf("restored %d artifact(s) from snapshot %s", len(result.Restored), latest)
	return result, nil
}

// Prune removes the oldest snapshots beyond MaxBackups, oldest first.
func (m *DefaultSnapshotManager) Prune() error {
	snapshots, err := m.listSnapshots()
	if err != nil {
		return err
	}
	excess := len(snapshots) - m.config.MaxBackups
	for i := 0; i < excess; i++ {
		if err := os.RemoveAll(filepath.Join(m.config.BackupRoot, snapshots[i])); err != nil {
			m.log.Warn("failed to prune snapshot", "snapshot", snapshots[i], "error", err)
		}
	}
	return nil
}

// listSnapshots returns snapshot directory names sorted oldest first.
// The timestamp naming makes lexical order equal creation order.
func (m *DefaultSnapshotManager) listSnapshots() ([]string, error) {
	entries, err := os.ReadDir(m.config.BackupRoot)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading backup root: %w", err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// copyPath copies a file or directory tree verbatim.
func copyPath(src, dst string) error {
	info, err := os.Stat(src)
	if err != nil {
		return err
	}
	if info.IsDir() {
		return copyDir(src, dst)
	}
	return copyFile(src, dst, info.Mode())
}

func copyDir(src, dst string) error {
	entries, err := os.ReadDir(src)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dst, 0755); err != nil {
		return err
	}
	for _, e := range entries {
		s := filepath.Join(src, e.Name())
		d := filepath.Join(dst, e.Name())
		if e.IsDir() {
			if err := copyDir(s, d); err != nil {
				return err
			}
			continue
		}
		info, err := e.Info()
		if err != nil {
			return err
		}
		if err := copyFile(s, d, info.Mode()); err != nil {
			return err
		}
	}
	return nil
}

func copyFile(src, dst string, mode os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return err
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Close()
}
