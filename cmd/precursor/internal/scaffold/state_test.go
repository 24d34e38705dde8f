// Copyright (C) 2026 Precursor Authors (dev@precursorhq.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package scaffold

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStateSaveLoadRoundTrip(t *testing.T) {
	store := NewStateStore(t.TempDir())

	st := NewState()
	st.Hashes[".gitignore"] = "abc123"
	st.Stacks = []Stack{StackPython, StackRust}
	st.Tools["git"] = ToolResult{Found: true, Version: "2.43.0", Critical: true}

	require.NoError(t, store.Save(st))

	loaded := store.Load()
	require.NotNil(t, loaded)
	assert.Equal(t, StateVersion, loaded.Version)
	assert.False(t, loaded.LastUpdate.IsZero())
	assert.Equal(t, "abc123", loaded.Hashes[".gitignore"])
	assert.Equal(t, []Stack{StackPython, StackRust}, loaded.Stacks)
	assert.Equal(t, "2.43.0", loaded.Tools["git"].Version)
}

func TestStateLoadMissingReturnsNil(t *testing.T) {
	store := NewStateStore(t.TempDir())
	assert.Nil(t, store.Load())
}

func TestStateLoadVersionMismatchReturnsNil(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, StateFileName)
	require.NoError(t, os.WriteFile(path, []byte(`{"version":"0","hashes":{}}`), 0644))

	store := NewStateStore(dir)
	assert.Nil(t, store.Load(), "a foreign schema version must read as absent")
}

func TestStateLoadCorruptReturnsNil(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, StateFileName), []byte("{not json"), 0644))

	store := NewStateStore(dir)
	assert.Nil(t, store.Load())
}

func TestStateReset(t *testing.T) {
	store := NewStateStore(t.TempDir())
	require.NoError(t, store.Save(NewState()))
	require.NotNil(t, store.Load())

	require.NoError(t, store.Reset())
	assert.Nil(t, store.Load())

	// Resetting an already-absent state is not an error.
	require.NoError(t, store.Reset())
}

func TestHasChanged(t *testing.T) {
	dir := t.TempDir()
	store := NewStateStore(dir)

	tracked := filepath.Join(dir, "tracked.txt")
	require.NoError(t, os.WriteFile(tracked, []byte("content"), 0644))

	st := NewState()
	digest, err := HashFile(tracked)
	require.NoError(t, err)
	st.Hashes["tracked.txt"] = digest

	assert.False(t, store.HasChanged(st, dir, "tracked.txt"), "unchanged content")

	require.NoError(t, os.WriteFile(tracked, []byte("modified"), 0644))
	assert.True(t, store.HasChanged(st, dir, "tracked.txt"), "modified content")

	require.NoError(t, os.Remove(tracked))
	assert.True(t, store.HasChanged(st, dir, "tracked.txt"), "deleting a tracked file is a change")

	assert.False(t, store.HasChanged(st, dir, "never-existed.txt"), "a missing untracked file is not a change")

	require.NoError(t, os.WriteFile(filepath.Join(dir, "fresh.txt"), []byte("new"), 0644))
	assert.True(t, store.HasChanged(st, dir, "fresh.txt"), "a never-seen file is a change")
}

func TestComputeHash(t *testing.T) {
	assert.Equal(t,
		"2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824",
		ComputeHash([]byte("hello")))
	assert.Equal(t, ComputeHash([]byte("x")), ComputeHash([]byte("x")))
	assert.NotEqual(t, ComputeHash([]byte("x")), ComputeHash([]byte("y")))
}

func TestHashFileMatchesComputeHash(t *testing.T) {
	path := filepath.Join(t.TempDir(), "file.txt")
	require.NoError(t, os.WriteFile(path, []byte("hello"), 0644))

	digest, err := HashFile(path)
	require.NoError(t, err)
	assert.Equal(t, ComputeHash([]byte("hello")), digest)
}
