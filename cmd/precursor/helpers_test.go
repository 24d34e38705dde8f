// Copyright (C) 2026 Precursor Authors (dev@precursorhq.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"strings"
	"testing"

	"github.com/precursorhq/precursor/cmd/precursor/config"
	"github.com/precursorhq/precursor/cmd/precursor/internal/scaffold"
)

func TestBuildOptionsMapsConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Python.Runtime = "poetry"
	cfg.CI.Branch = "develop"
	cfg.Secrets.Excludes = []string{"vendor/**"}
	cfg.Backup.MaxBackups = 4
	cfg.Tools = map[string]config.ToolCfg{"git": {Critical: false}}

	opts := buildOptions("/ws", &cfg, nil)

	if opts.Root != "/ws" {
		t.Errorf("Root = %q", opts.Root)
	}
	if !opts.BackupsEnabled || opts.MaxBackups != 4 {
		t.Errorf("backup opts = %v/%d", opts.BackupsEnabled, opts.MaxBackups)
	}
	if !opts.SecretsEnabled || !opts.SecretsFatal {
		t.Error("secret defaults lost in mapping")
	}
	if len(opts.SecretExcludes) != 1 || opts.SecretExcludes[0] != "vendor/**" {
		t.Errorf("SecretExcludes = %v", opts.SecretExcludes)
	}
	if opts.Content.PythonRuntime != "poetry" || opts.Content.CIBranch != "develop" {
		t.Errorf("content = %+v", opts.Content)
	}
	if !opts.Content.CIEnabled {
		t.Error("CIEnabled lost in mapping")
	}
	if critical, ok := opts.CriticalTools["git"]; !ok || critical {
		t.Errorf("CriticalTools = %v", opts.CriticalTools)
	}
}

func TestBuildOptionsNoBackupFlag(t *testing.T) {
	cfg := config.DefaultConfig()

	noBackup = true
	defer func() { noBackup = false }()

	opts := buildOptions("/ws", &cfg, nil)
	if opts.BackupsEnabled {
		t.Error("--no-backup did not disable snapshots")
	}
}

// The workspace flags double as config-discovery controls, so their
// help text has to say where precursor.json is read from.
func TestWorkspaceFlagHelpNamesConfigDiscovery(t *testing.T) {
	rootFlag := rootCmd.PersistentFlags().Lookup("root")
	if rootFlag == nil {
		t.Fatal("--root flag not registered")
	}
	if !strings.Contains(rootFlag.Usage, "precursor.json") {
		t.Errorf("--root help does not mention config discovery: %q", rootFlag.Usage)
	}

	subFlag := rootCmd.PersistentFlags().Lookup("subproject")
	if subFlag == nil {
		t.Fatal("--subproject flag not registered")
	}
	if !strings.Contains(subFlag.Usage, "config") {
		t.Errorf("--subproject help does not mention config discovery: %q", subFlag.Usage)
	}
}

func TestJoinStacks(t *testing.T) {
	if got := joinStacks(nil); got != "" {
		t.Errorf("joinStacks(nil) = %q", got)
	}
	got := joinStacks([]scaffold.Stack{scaffold.StackPython, scaffold.StackWeb})
	if got != "python, web" {
		t.Errorf("joinStacks = %q", got)
	}
}
