// Copyright (C) 2026 Precursor Authors (dev@precursorhq.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"os"
	"path/filepath"

	"github.com/precursorhq/precursor/cmd/precursor/config"
	"github.com/precursorhq/precursor/cmd/precursor/internal/scaffold"
	"github.com/precursorhq/precursor/pkg/logging"
)

// resolveWorkspace determines the workspace root and effective
// configuration for the current invocation.
//
// # Description
//
// CLI flags take precedence over the config file's workspace section.
// Absent both, the root is the enclosing VCS root when one exists and
// the invocation directory otherwise. The configuration is read from
// the resolved root, so a root-level precursor.json governs every
// subdirectory invocation in "auto" mode.
func resolveWorkspace() (string, *config.Config, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", nil, err
	}

	root := scaffold.ResolveRoot(cwd, rootDir, subproject)
	cfg, err := config.Load(root)
	if err != nil {
		return "", nil, err
	}

	// The config file can still redirect or pin the root when the CLI
	// flags left it to default resolution.
	if rootDir == "" && !subproject {
		if cfg.Workspace.Root != "" {
			root = scaffold.ResolveRoot(cwd, cfg.Workspace.Root, false)
		} else if cfg.Workspace.Mode == "subproject" {
			root = cwd
		}
	}

	return root, cfg, nil
}

// newRunLogger builds the logger for one command invocation. JSON mode
// keeps stderr quiet so stdout stays machine-parseable.
func newRunLogger(root string) *logging.Logger {
	level := logging.LevelInfo
	if os.Getenv("PRECURSOR_DEBUG") != "" {
		level = logging.LevelDebug
	}
	return logging.New(logging.Config{
		Level:  level,
		LogDir: filepath.Join(root, ".precursor", "logs"),
		Quiet:  jsonOutput,
	})
}

// buildOptions maps the loaded configuration and CLI flags onto the
// orchestrator options for a run rooted at root.
func buildOptions(root string, cfg *config.Config, logger *logging.Logger) scaffold.Options {
	return scaffold.Options{
		Root:             root,
		BackupsEnabled:   cfg.Backup.Enabled && !noBackup,
		MaxBackups:       cfg.Backup.MaxBackups,
		SecretsEnabled:   cfg.Secrets.Enabled,
		SecretsFatal:     cfg.Secrets.Fatal,
		SecretExcludes:   cfg.Secrets.Excludes,
		SecretMinEntropy: cfg.Secrets.MinEntropy,
		Content: scaffold.StackContentConfig{
			PythonRuntime: cfg.Python.Runtime,
			CIEnabled:     cfg.CI.Enabled,
			CIBranch:      cfg.CI.Branch,
		},
		CriticalTools: cfg.CriticalOverrides(),
		Strict:        strictMode,
		Offline:       offlineMode,
		Logger:        logger,
	}
}
