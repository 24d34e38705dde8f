// Copyright (C) 2026 Precursor Authors (dev@precursorhq.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package scaffold

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func newTestSnapshotManager(t *testing.T, maxBackups int) (*DefaultSnapshotManager, string) {
	t.Helper()
	root := t.TempDir()
	m := NewSnapshotManager(SnapshotConfig{
		Root:       root,
		BackupRoot: filepath.Join(root, ".precursor", "backups"),
		MaxBackups: maxBackups,
		Enabled:    true,
	}, nil)
	return m, root
}

func TestSnapshotAndRestoreRoundTrip(t *testing.T) {
	m, root := newTestSnapshotManager(t, 10)

	if err := os.WriteFile(filepath.Join(root, ".gitignore"), []byte("node_modules/\n"), 0644); err != nil {
		t.Fatal(err)
	}
	vscode := filepath.Join(root, ".vscode")
	if err := os.MkdirAll(vscode, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(vscode, "settings.json"), []byte(`{"a":1}`), 0644); err != nil {
		t.Fatal(err)
	}

	paths := []string{".gitignore", ".vscode/settings.json"}
	id, err := m.Snapshot(paths)
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if id == "" {
		t.Fatal("expected a snapshot identifier")
	}

	// Clobber both artifacts and add an unrelated file.
	if err := os.WriteFile(filepath.Join(root, ".gitignore"), []byte("clobbered"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(vscode, "settings.json"), []byte("clobbered"), 0644); err != nil {
		t.Fatal(err)
	}
	unrelated := filepath.Join(root, "user-file.txt")
	if err := os.WriteFile(unrelated, []byte("untouched"), 0644); err != nil {
		t.Fatal(err)
	}

	result, err := m.RestoreLatest(paths)
	if err != nil {
		t.Fatalf("RestoreLatest: %v", err)
	}
	if result.SnapshotID != id {
		t.Errorf("restored snapshot = %q, want %q", result.SnapshotID, id)
	}
	if len(result.Restored) != 2 {
		t.Errorf("restored = %v, want both artifacts", result.Restored)
	}

	content, _ := os.ReadFile(filepath.Join(root, ".gitignore"))
	if string(content) != "node_modules/\n" {
		t.Errorf(".gitignore = %q after restore", content)
	}
	content, _ = os.ReadFile(filepath.Join(vscode, "settings.json"))
	if string(content) != `{"a":1}` {
		t.Errorf("settings.json = %q after restore", content)
	}
	content, _ = os.ReadFile(unrelated)
	if string(content) != "untouched" {
		t.Errorf("unrelated file modified by restore: %q", content)
	}
}

func TestRestoreSkipsArtifactsAbsentFromSnapshot(t *testing.T) {
	m, root := newTestSnapshotManager(t, 10)

	if err := os.WriteFile(filepath.Join(root, ".gitignore"), []byte("base\n"), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := m.Snapshot([]string{".gitignore", ".aiignore"}); err != nil {
		t.Fatal(err)
	}

	// .aiignore appears only after the snapshot; restore must not delete it.
	if err := os.WriteFile(filepath.Join(root, ".aiignore"), []byte("post-snapshot\n"), 0644); err != nil {
		t.Fatal(err)
	}

	result, err := m.RestoreLatest([]string{".gitignore", ".aiignore"})
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Restored) != 1 || result.Restored[0] != ".gitignore" {
		t.Errorf("restored = %v, want only .gitignore", result.Restored)
	}
	if _, err := os.Stat(filepath.Join(root, ".aiignore")); err != nil {
		t.Error("restore deleted a file the snapshot never contained")
	}
}

func TestRestoreLatestNoSnapshots(t *testing.T) {
	m, _ := newTestSnapshotManager(t, 10)

	_, err := m.RestoreLatest([]string{".gitignore"})
	if !errors.Is(err, ErrNoBackupFound) {
		t.Errorf("err = %v, want ErrNoBackupFound", err)
	}
}

func TestSnapshotDisabled(t *testing.T) {
	root := t.TempDir()
	m := NewSnapshotManager(SnapshotConfig{
		Root:       root,
		BackupRoot: filepath.Join(root, ".precursor", "backups"),
		Enabled:    false,
	}, nil)

	id, err := m.Snapshot([]string{".gitignore"})
	if err != nil {
		t.Fatal(err)
	}
	if id != "" {
		t.Errorf("disabled snapshot returned id %q", id)
	}
	if _, err := os.Stat(filepath.Join(root, ".precursor")); !os.IsNotExist(err) {
		t.Error("disabled snapshot created the backup root")
	}
}

func TestPruneRetention(t *testing.T) {
	m, root := newTestSnapshotManager(t, 2)

	if err := os.WriteFile(filepath.Join(root, ".gitignore"), []byte("x\n"), 0644); err != nil {
		t.Fatal(err)
	}

	var ids []string
	for i := 0; i < 3; i++ {
		id, err := m.Snapshot([]string{".gitignore"})
		if err != nil {
			t.Fatal(err)
		}
		ids = append(ids, id)
		time.Sleep(2 * time.Millisecond) // distinct timestamped names
	}

	remaining, err := m.listSnapshots()
	if err != nil {
		t.Fatal(err)
	}
	if len(remaining) != 2 {
		t.Fatalf("remaining snapshots = %v, want 2", remaining)
	}
	// The oldest snapshot is the one pruned.
	if remaining[0] != ids[1] || remaining[1] != ids[2] {
		t.Errorf("remaining = %v, ids = %v", remaining, ids)
	}
}
