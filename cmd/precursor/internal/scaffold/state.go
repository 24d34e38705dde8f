// Copyright (C) 2026 Precursor Authors (dev@precursorhq.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package scaffold

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"
)

// StateVersion is the current state file schema version. A state file
// carrying any other version is treated as absent, forcing a full rescan.
const StateVersion = "1"

// StateFileName is the state file name under the precursor directory.
const StateFileName = "state.json"

// State is the hash/stack/tool cache enabling idempotent re-runs.
//
// # Description
//
// A versioned snapshot of tracked-file digests plus the stacks and tool
// states observed by the last successful run. It is read at the start of
// a run to decide whether tracked inputs changed, and overwritten at the
// end of a successful run. Tool entries are cached for reporting only
// and are never trusted as ground truth for the next run's decisions.
type State struct {
	Version    string                `json:"version"`
	LastUpdate time.Time             `json:"lastUpdate"`
	Hashes     map[string]string     `json:"hashes"`
	Stacks     []Stack               `json:"stacks"`
	Tools      map[string]ToolResult `json:"tools"`

	// ContentFingerprint digests the configuration that shaped the
	// generated content. A run only trusts stored hashes to skip work
	// when this fingerprint still matches; states written before the
	// field existed carry "" and never match, forcing a full reconcile.
	ContentFingerprint string `json:"contentFingerprint,omitempty"`
}

// NewState returns an empty state stamped with the current schema version.
func NewState() *State {
	return &State{
		Version: StateVersion,
		Hashes:  make(map[string]string),
		Tools:   make(map[string]ToolResult),
	}
}

// StateStore persists State to a JSON file under the precursor directory.
//
// # Thread Safety
//
// StateStore is not safe for concurrent use by multiple processes; the
// tool assumes single-invocation-at-a-time usage per workspace.
type StateStore struct {
	path string
}

// NewStateStore creates a store rooted at dir (typically ".precursor").
func NewStateStore(dir string) *StateStore {
	return &StateStore{path: filepath.Join(dir, StateFileName)}
}

// Path returns the on-disk location of the state file.
func (s *StateStore) Path() string {
	return s.path
}

// Load reads the persisted state.
//
// # Description
//
// Returns nil (absent) if the file is missing, unparsable, or carries a
// schema version other than StateVersion. Absent state means "full
// rescan"; a stale or corrupt cache is never partially trusted.
//
// # Outputs
//
//   - *State: The persisted state, or nil if absent.
func (s *StateStore) Load() *State {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil
	}

	var st State
	if err := json.Unmarshal(data, &st); err != nil {
		return nil
	}
	if st.Version != StateVersion {
		return nil
	}
	if st.Hashes == nil {
		st.Hashes = make(map[string]string)
	}
	if st.Tools == nil {
		st.Tools = make(map[string]ToolResult)
	}
	return &st
}

// Save persists the state atomically.
//
// # Description
//
// Stamps the schema version and update time, then writes through a
// sibling temp file and rename so a concurrently-starting run never
// observes a half-written state file.
func (s *StateStore) Save(st *State) error {
	if st == nil {
		return fmt.Errorf("state must not be nil")
	}
	st.Version = StateVersion
	st.LastUpdate = time.Now().UTC()

	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling state: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("creating state directory: %w", err)
	}

	return writeFileAtomic(s.path, append(data, '\n'), 0644)
}

// Reset removes the persisted state, forcing a full rescan next run.
func (s *StateStore) Reset() error {
	err := os.Remove(s.path)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing state file: %w", err)
	}
	return nil
}

// HasChanged reports whether a tracked path's content drifted since the
// given state was saved.
//
// # Description
//
// Computes the current digest of rel (resolved against root) and
// compares it to the one stored under rel. A path that no longer exists
// counts as changed iff a digest was previously stored (deletion is a
// change). A path never seen before is always a change.
func (s *StateStore) HasChanged(st *State, root, rel string) bool {
	stored, tracked := "", false
	if st != nil {
		stored, tracked = st.Hashes[rel]
	}

	digest, err := HashFile(filepath.Join(root, rel))
	if err != nil {
		// Missing or unreadable: changed only if we used to track it.
		return tracked
	}
	if !tracked {
		return true
	}
	return digest != stored
}

// ComputeHash returns the hex-encoded SHA-256 digest of content.
//
// SHA-256 rather than a weak checksum: the digest gates whether
// generated content is rewritten, so collisions must be negligible.
func ComputeHash(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

// HashFile computes the SHA-256 digest of a file's content.
func HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
