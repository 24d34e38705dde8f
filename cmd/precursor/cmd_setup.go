// Copyright (C) 2026 Precursor Authors (dev@precursorhq.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"os"

	"github.com/precursorhq/precursor/cmd/precursor/internal/scaffold"
	"github.com/spf13/cobra"
)

// runSetup executes the full bootstrap sequence for the resolved
// workspace and exits with the run's verdict.
func runSetup(cmd *cobra.Command, args []string) {
	root, cfg, err := resolveWorkspace()
	if err != nil {
		outputError("setup failed", err)
		os.Exit(ExitFailure)
	}

	logger := newRunLogger(root)
	defer logger.Close()
	logger.Info("starting setup", "root", root, "strict", strictMode, "offline", offlineMode)

	orch := scaffold.NewOrchestrator(buildOptions(root, cfg, logger))
	result := orch.Run(cmd.Context())

	renderRunResult(result)
	if !result.Success {
		os.Exit(ExitFailure)
	}
	os.Exit(ExitOK)
}
