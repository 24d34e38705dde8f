// Copyright (C) 2026 Precursor Authors (dev@precursorhq.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/precursorhq/precursor/cmd/precursor/internal/scaffold"
	"github.com/precursorhq/precursor/pkg/ux"
	"github.com/spf13/cobra"
)

// runRollback restores every managed artifact from the most recent
// snapshot. Files the snapshot does not contain are left untouched.
func runRollback(cmd *cobra.Command, args []string) {
	root, cfg, err := resolveWorkspace()
	if err != nil {
		outputError("rollback failed", err)
		os.Exit(ExitFailure)
	}

	logger := newRunLogger(root)
	defer logger.Close()

	orch := scaffold.NewOrchestrator(buildOptions(root, cfg, logger))
	result, err := orch.Backups().RestoreLatest(scaffold.ManagedArtifactPaths())
	if err != nil {
		if errors.Is(err, scaffold.ErrNoBackupFound) {
			outputError("rollback failed", err)
		} else {
			outputError("restoring snapshot", err)
		}
		os.Exit(ExitFailure)
	}

	if jsonOutput {
		outputJSON(map[string]any{
			"success":    true,
			"snapshotId": result.SnapshotID,
			"restored":   result.Restored,
			"message":    result.Message,
		})
	} else {
		for _, path := range result.Restored {
			ux.Muted(fmt.Sprintf("restored %s", path))
		}
		ux.Success(result.Message)
	}
	os.Exit(ExitOK)
}
