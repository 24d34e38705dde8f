// Copyright (C) 2026 Precursor Authors (dev@precursorhq.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/precursorhq/precursor/cmd/precursor/internal/scaffold"
	"github.com/precursorhq/precursor/pkg/ux"
)

// Exit codes for CLI commands.
const (
	ExitOK      = 0 // Operation completed successfully
	ExitFailure = 1 // Operation failed or completed with fatal findings
)

// outputJSON writes structured data as indented JSON to stdout.
func outputJSON(data any) {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(data); err != nil {
		fmt.Fprintf(os.Stderr, "encoding output: %v\n", err)
	}
}

// outputError writes an error in the active output format.
func outputError(msg string, err error) {
	if jsonOutput {
		outputJSON(map[string]any{
			"success": false,
			"error":   fmt.Sprintf("%s: %v", msg, err),
		})
		return
	}
	ux.Error(fmt.Sprintf("%s: %v", msg, err))
}

// renderRunResult prints a setup run outcome in the active format.
//
// # Description
//
// In JSON mode the result struct is emitted verbatim so scripting
// consumers get a stable schema. In human mode the phases are
// summarized in order: stacks, tools, backup, writes, findings,
// warnings, errors, and the final verdict.
func renderRunResult(result *scaffold.RunResult) {
	if jsonOutput {
		outputJSON(result)
		return
	}

	if len(result.Stacks) == 0 {
		ux.Info("No stacks detected; only shared workspace files were considered.")
	} else {
		ux.Info(fmt.Sprintf("Detected stacks: %s", joinStacks(result.Stacks)))
	}

	renderTools(result.Tools)

	if result.SnapshotID != "" {
		ux.Muted(fmt.Sprintf("Backup snapshot: %s", result.SnapshotID))
	}
	for _, p := range result.Drifted {
		ux.Info(fmt.Sprintf("Changed since last run: %s", p))
	}
	if result.Skipped > 0 {
		ux.Muted(fmt.Sprintf("Unchanged files skipped: %d", result.Skipped))
	}
	if result.Written == 0 {
		ux.Muted("No files needed changes.")
	} else {
		ux.Info(fmt.Sprintf("Files written: %d", result.Written))
	}

	for _, f := range result.Findings {
		ux.Warning(fmt.Sprintf("%s:%d %s (%s)", f.File, f.Line, f.Message, f.Pattern))
	}
	for _, w := range result.Warnings {
		ux.Warning(w)
	}
	for _, e := range result.Errors {
		ux.Error(e)
	}

	if result.Success {
		ux.Success(result.Message)
	} else {
		ux.Error(result.Message)
	}
}

func renderTools(tools map[string]scaffold.ToolResult) {
	if len(tools) == 0 {
		return
	}
	ids := make([]string, 0, len(tools))
	for id := range tools {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		t := tools[id]
		switch {
		case t.Found && t.Version != "":
			ux.Muted(fmt.Sprintf("tool %-8s %s (%s)", id, t.Version, t.Path))
		case t.Found:
			ux.Muted(fmt.Sprintf("tool %-8s found (%s)", id, t.Path))
		case t.Critical:
			ux.Warning(fmt.Sprintf("tool %-8s missing (critical)", id))
		default:
			ux.Muted(fmt.Sprintf("tool %-8s missing", id))
		}
	}
}

func joinStacks(stacks []scaffold.Stack) string {
	out := ""
	for i, s := range stacks {
		if i > 0 {
			out += ", "
		}
		out += string(s)
	}
	return out
}
