// Copyright (C) 2026 Precursor Authors (dev@precursorhq.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"github.com/precursorhq/precursor/pkg/ux"
	"github.com/spf13/cobra"
)

// --- Global Command Variables ---
var (
	strictMode  bool
	offlineMode bool
	jsonOutput  bool
	noColor     bool
	rootDir     string // CLI override for workspace.root
	subproject  bool   // pin the workspace root to the invocation directory
	noBackup    bool

	rootCmd = &cobra.Command{
		Use:   "precursor",
		Short: "A cli that bootstraps and repairs AI-assisted project workspaces",
		Long: `Precursor detects the stacks present in a repository, scaffolds the
				editor, CI, and assistant configuration each stack needs, and keeps
				reruns idempotent through a content-hash state cache.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if noColor || jsonOutput {
				ux.SetNoColor(true)
			}
		},
	}

	setupCmd = &cobra.Command{
		Use:   "setup",
		Short: "Detect stacks and scaffold (or repair) workspace configuration",
		Long: `setup runs the full bootstrap sequence: stack detection, tool
				resolution, backup, per-stack scaffolding, secret scan, and state
				update. Running it twice without intervening changes writes nothing
				the second time.`,
		Run: runSetup, // Defined in cmd_setup.go
	}

	scanCmd = &cobra.Command{
		Use:   "scan [path]",
		Short: "Scan the workspace for committed secrets without writing anything",
		Args:  cobra.MaximumNArgs(1),
		Run:   runScan, // Defined in cmd_scan.go
	}

	rollbackCmd = &cobra.Command{
		Use:   "rollback",
		Short: "Restore managed files from the most recent backup snapshot",
		Run:   runRollback, // Defined in cmd_rollback.go
	}

	resetCmd = &cobra.Command{
		Use:   "reset",
		Short: "Discard the cached state so the next setup treats every file as new",
		Run:   runReset, // Defined in cmd_reset.go
	}
)

func init() {
	rootCmd.PersistentFlags().BoolVar(&strictMode, "strict", false,
		"Treat warnings (missing critical tools, skipped artifacts) as failures")
	rootCmd.PersistentFlags().BoolVar(&offlineMode, "offline", false,
		"Skip external tool probes")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false,
		"Emit machine-readable JSON on stdout")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false,
		"Disable styled terminal output")
	rootCmd.PersistentFlags().StringVar(&rootDir, "root", "",
		"Workspace root; precursor.json is read from here, not the invocation directory (default: the enclosing VCS root, falling back to the current directory)")
	rootCmd.PersistentFlags().BoolVar(&subproject, "subproject", false,
		"Pin the workspace root (and config discovery) to the current directory even inside a larger repository")

	rootCmd.AddCommand(setupCmd)
	setupCmd.Flags().BoolVar(&noBackup, "no-backup", false,
		"Skip the pre-run snapshot for this run")

	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(rollbackCmd)
	rootCmd.AddCommand(resetCmd)
}
