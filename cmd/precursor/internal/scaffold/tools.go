// Copyright (C) 2026 Precursor Authors (dev@precursorhq.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package scaffold

import (
	"context"
	"os/exec"
	"regexp"
	"strings"
	"time"

	"golang.org/x/mod/semver"
	"golang.org/x/sync/errgroup"
)

// ToolSource identifies where a tool resolution came from.
type ToolSource string

const (
	ToolSourceSystem         ToolSource = "system"
	ToolSourcePackageManager ToolSource = "package-manager"
	ToolSourcePortable       ToolSource = "portable"
)

// ToolResult describes the resolution of one external tool.
//
// Recomputed every run; a cached copy in the state file is kept for
// reporting only and never drives the next run's decisions.
type ToolResult struct {
	Found    bool       `json:"found"`
	Version  string     `json:"version,omitempty"`
	Path     string     `json:"path,omitempty"`
	Source   ToolSource `json:"source"`
	Critical bool       `json:"critical"`
	Error    string     `json:"error,omitempty"`
}

// ToolSpec declares one tool a stack depends on.
type ToolSpec struct {
	// ID is the tool identifier, usually the binary name.
	ID string

	// VersionArgs invoke the version probe, e.g. ["--version"].
	VersionArgs []string

	// MinVersion is an optional semver lower bound ("1.70.0").
	MinVersion string

	// Stacks lists the stacks that want this tool. Empty means always.
	Stacks []Stack
}

// defaultCriticalTools are treated as critical unless the configuration
// says otherwise for a specific tool. Explicit per-tool config always
// overrides this list.
var defaultCriticalTools = map[string]bool{
	"git": true, "uv": true, "node": true, "cargo": true,
	"cmake": true, "docker": true,
}

// DefaultToolSpecs returns the probe set for the known stacks.
func DefaultToolSpecs() []ToolSpec {
	return []ToolSpec{
		{ID: "git", VersionArgs: []string{"--version"}},
		{ID: "uv", VersionArgs: []string{"--version"}, Stacks: []Stack{StackPython}},
		{ID: "node", VersionArgs: []string{"--version"}, Stacks: []Stack{StackWeb}},
		{ID: "cargo", VersionArgs: []string{"--version"}, Stacks: []Stack{StackRust}},
		{ID: "cmake", VersionArgs: []string{"--version"}, Stacks: []Stack{StackCpp}},
		{ID: "docker", VersionArgs: []string{"--version"}, Stacks: []Stack{StackDocker}},
	}
}

// probeTimeout bounds a single version probe. A hanging probe reads as
// "not found" rather than stalling the run.
const probeTimeout = 3 * time.Second

// ToolResolver probes external tools on the PATH.
//
// # Description
//
// The resolver covers only the "system" leg of the resolution
// waterfall: LookPath plus a bounded version probe. Package-manager and
// portable installs are resolved elsewhere and consumed through the
// same ToolResult shape.
//
// # Thread Safety
//
// ToolResolver is safe for concurrent use.
type ToolResolver struct {
	// criticalOverride maps tool ID to an explicit critical flag from
	// configuration. Entries here win over defaultCriticalTools.
	criticalOverride map[string]bool
}

// NewToolResolver creates a resolver. overrides may be nil.
func NewToolResolver(overrides map[string]bool) *ToolResolver {
	return &ToolResolver{criticalOverride: overrides}
}

// IsCritical reports whether a missing tool should fail the run.
func (r *ToolResolver) IsCritical(id string) bool {
	if v, ok := r.criticalOverride[id]; ok {
		return v
	}
	return defaultCriticalTools[id]
}

// Resolve probes one tool.
func (r *ToolResolver) Resolve(ctx context.Context, spec ToolSpec) ToolResult {
	result := ToolResult{
		Source:   ToolSourceSystem,
		Critical: r.IsCritical(spec.ID),
	}

	path, err := exec.LookPath(spec.ID)
	if err != nil {
		result.Error = "not found on PATH"
		return result
	}
	result.Found = true
	result.Path = path

	probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	out, err := exec.CommandContext(probeCtx, path, spec.VersionArgs...).Output()
	if err != nil {
		// Timeout or probe failure: the binary exists but its version is
		// unknown, which downgrades to "not found" when a minimum is set.
		result.Error = "version probe failed"
		if spec.MinVersion != "" {
			result.Found = false
		}
		return result
	}

	result.Version = extractVersion(string(out))
	if spec.MinVersion != "" && result.Version != "" {
		if semver.Compare(canonicalSemver(result.Version), canonicalSemver(spec.MinVersion)) < 0 {
			result.Found = false
			result.Error = "version below minimum " + spec.MinVersion
		}
	}
	return result
}

// ResolveAll probes every spec relevant to the detected stacks
// concurrently. Probes are read-only, so fan-out is safe.
func (r *ToolResolver) ResolveAll(ctx context.Context, specs []ToolSpec, stacks map[Stack]bool) map[string]ToolResult {
	relevant := make([]ToolSpec, 0, len(specs))
	for _, spec := range specs {
		if len(spec.Stacks) == 0 {
			relevant = append(relevant, spec)
			continue
		}
		for _, s := range spec.Stacks {
			if stacks[s] {
				relevant = append(relevant, spec)
				break
			}
		}
	}

	results := make([]ToolResult, len(relevant))
	g, gctx := errgroup.WithContext(ctx)
	for i, spec := range relevant {
		g.Go(func() error {
			results[i] = r.Resolve(gctx, spec)
			return nil
		})
	}
	_ = g.Wait()

	out := make(map[string]ToolResult, len(relevant))
	for i, spec := range relevant {
		out[spec.ID] = results[i]
	}
	return out
}

var versionRe = regexp.MustCompile(`\d+\.\d+(\.\d+)?`)

// extractVersion pulls the first dotted version out of probe output
// like "git version 2.43.0" or "v20.11.1".
func extractVersion(out string) string {
	return versionRe.FindString(strings.TrimSpace(out))
}

// canonicalSemver normalizes to the "vMAJOR.MINOR.PATCH" form the
// semver package requires.
func canonicalSemver(v string) string {
	v = strings.TrimPrefix(strings.TrimSpace(v), "v")
	return "v" + v
}
