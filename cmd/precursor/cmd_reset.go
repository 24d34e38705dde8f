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

	"github.com/precursorhq/precursor/cmd/precursor/internal/scaffold"
	"github.com/precursorhq/precursor/pkg/ux"
	"github.com/spf13/cobra"
)

// runReset discards the cached state file. The next setup run treats
// every managed file as new; workspace files and backups are kept.
func runReset(cmd *cobra.Command, args []string) {
	root, _, err := resolveWorkspace()
	if err != nil {
		outputError("reset failed", err)
		os.Exit(ExitFailure)
	}

	store := scaffold.NewStateStore(filepath.Join(root, ".precursor"))
	if err := store.Reset(); err != nil {
		outputError("reset failed", err)
		os.Exit(ExitFailure)
	}

	if jsonOutput {
		outputJSON(map[string]any{"success": true, "message": "state cache cleared"})
	} else {
		ux.Success("State cache cleared. The next setup run starts fresh.")
	}
	os.Exit(ExitOK)
}
