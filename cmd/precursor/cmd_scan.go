// Copyright (C) 2026 Precursor Authors (dev@precursorhq.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/precursorhq/precursor/cmd/precursor/internal/scaffold"
	"github.com/precursorhq/precursor/pkg/ux"
	"github.com/spf13/cobra"
)

// runScan performs a standalone secret scan without touching any
// workspace files or cached state.
//
// Exit code 1 means findings (or an error), 0 means a clean tree.
func runScan(cmd *cobra.Command, args []string) {
	root, cfg, err := resolveWorkspace()
	if err != nil {
		outputError("scan failed", err)
		os.Exit(ExitFailure)
	}
	if len(args) == 1 {
		target := args[0]
		if !filepath.IsAbs(target) {
			cwd, err := os.Getwd()
			if err != nil {
				outputError("scan failed", err)
				os.Exit(ExitFailure)
			}
			target = filepath.Join(cwd, target)
		}
		root = filepath.Clean(target)
	}

	scanner := scaffold.NewSecretScanner(scaffold.SecretScanConfig{
		MinEntropy: cfg.Secrets.MinEntropy,
		Excludes:   cfg.Secrets.Excludes,
	})
	findings := scanner.ScanTree(root)

	if jsonOutput {
		outputJSON(map[string]any{
			"success":  len(findings) == 0,
			"root":     root,
			"findings": findings,
		})
	} else {
		for _, f := range findings {
			ux.Warning(fmt.Sprintf("%s:%d %s (%s)", f.File, f.Line, f.Message, f.Pattern))
		}
		if len(findings) == 0 {
			ux.Success("No secrets found.")
		} else {
			ux.Error(fmt.Sprintf("%d potential secret(s) found.", len(findings)))
		}
	}

	if len(findings) > 0 {
		os.Exit(ExitFailure)
	}
	os.Exit(ExitOK)
}
