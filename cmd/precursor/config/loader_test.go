// Copyright (C) 2026 Precursor Authors (dev@precursorhq.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
}

func TestLoadDefaultsWhenNoFile(t *testing.T) {
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "uv", cfg.Python.Runtime)
	assert.Equal(t, "npm", cfg.Web.PackageManager)
	assert.True(t, cfg.Rust.Clippy)
	assert.Equal(t, "auto", cfg.Workspace.Mode)
	assert.True(t, cfg.CI.Enabled)
	assert.Equal(t, "main", cfg.CI.Branch)
	assert.True(t, cfg.Secrets.Enabled)
	assert.True(t, cfg.Secrets.Fatal)
	assert.Equal(t, 10, cfg.Backup.MaxBackups)
}

func TestLoadMergesOverDefaults(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "precursor.json", `{
		"python": {"runtime": "poetry"},
		"backup": {"max_backups": 3}
	}`)

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "poetry", cfg.Python.Runtime)
	assert.Equal(t, 3, cfg.Backup.MaxBackups)
	// Untouched sections keep their defaults.
	assert.Equal(t, "npm", cfg.Web.PackageManager)
	assert.True(t, cfg.Backup.Enabled)
	assert.True(t, cfg.Secrets.Fatal)
}

func TestLoadJSONCCommentsAndTrailingCommas(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "precursor.jsonc", `{
		// personal overrides
		"python": {
			"runtime": "pip", // not uv here
		},
		/* block comment */
		"ci": {
			"branch": "trunk",
		},
	}`)

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "pip", cfg.Python.Runtime)
	assert.Equal(t, "trunk", cfg.CI.Branch)
}

func TestLoadYAML(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "precursor.yaml", `
python:
  runtime: poetry
secrets:
  excludes:
    - "testdata/**"
`)

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "poetry", cfg.Python.Runtime)
	assert.Equal(t, []string{"testdata/**"}, cfg.Secrets.Excludes)
}

func TestLoadCandidateOrder(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "precursor.json", `{"python": {"runtime": "pip"}}`)
	writeConfig(t, dir, "precursor.yaml", "python:\n  runtime: poetry\n")

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "pip", cfg.Python.Runtime, "precursor.json wins over precursor.yaml")
}

func TestLoadPreservesUnknownSections(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "precursor.json", `{
		"python": {"runtime": "uv"},
		"myteam": {"channel": "#infra"}
	}`)

	cfg, err := Load(dir)
	require.NoError(t, err)

	require.Contains(t, cfg.Extra, "myteam")
	section := cfg.Extra["myteam"].(map[string]any)
	assert.Equal(t, "#infra", section["channel"])
}

func TestLoadRejectsInvalidEnum(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "precursor.json", `{"python": {"runtime": "conda"}}`)

	_, err := Load(dir)
	assert.Error(t, err)
}

func TestLoadRejectsInvalidWorkspaceMode(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "precursor.json", `{"workspace": {"mode": "monorepo"}}`)

	_, err := Load(dir)
	assert.Error(t, err)
}

func TestLoadRejectsMalformedDocument(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "precursor.json", `{"python": `)

	_, err := Load(dir)
	assert.Error(t, err)
}

func TestLoadUserArraysReplaceDefaults(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "precursor.json", `{"secrets": {"excludes": ["vendor/**"]}}`)

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, []string{"vendor/**"}, cfg.Secrets.Excludes)
}

func TestCriticalOverrides(t *testing.T) {
	cfg := DefaultConfig()
	assert.Nil(t, cfg.CriticalOverrides())

	cfg.Tools = map[string]ToolCfg{
		"git": {Critical: false},
		"jq":  {Critical: true},
	}
	out := cfg.CriticalOverrides()
	assert.Equal(t, map[string]bool{"git": false, "jq": true}, out)
}

func TestStripJSONC(t *testing.T) {
	in := []byte(`{
		"a": "value // not a comment", // real comment
		"b": [1, 2,], /* gone */
	}`)
	out := stripJSONC(in)

	assert.Contains(t, string(out), "value // not a comment")
	assert.NotContains(t, string(out), "real comment")
	assert.NotContains(t, string(out), "gone")
}
