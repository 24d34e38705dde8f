// Copyright (C) 2026 Precursor Authors (dev@precursorhq.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package scaffold

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	git "github.com/go-git/go-git/v6"
)

// Stack is a detected technology ecosystem.
type Stack string

const (
	StackPython Stack = "python"
	StackWeb    Stack = "web"
	StackRust   Stack = "rust"
	StackCpp    Stack = "cpp"
	StackDocker Stack = "docker"
)

// AllStacks lists every stack the detector knows about, in stable order.
var AllStacks = []Stack{StackPython, StackWeb, StackRust, StackCpp, StackDocker}

// stackMarkers maps each stack to the marker files checked directly
// under the workspace root. Presence of any one marker claims the stack.
var stackMarkers = map[Stack][]string{
	StackPython: {"pyproject.toml", "setup.py", "requirements.txt", "Pipfile", "uv.lock"},
	StackWeb:    {"package.json", "tsconfig.json", "pnpm-lock.yaml", "yarn.lock"},
	StackRust:   {"Cargo.toml"},
	StackCpp:    {"CMakeLists.txt", "Makefile", "conanfile.txt", "vcpkg.json"},
	StackDocker: {"Dockerfile", "docker-compose.yml", "docker-compose.yaml", "compose.yaml"},
}

// webSourceExtensions are checked by the bounded-depth walk when no web
// manifest exists at the root.
var webSourceExtensions = map[string]bool{
	".js": true, ".jsx": true, ".ts": true, ".tsx": true,
	".html": true, ".vue": true, ".svelte": true,
}

// noiseDirs are skipped by the bounded walk: dependency caches, build
// outputs, and version-control internals.
var noiseDirs = map[string]bool{
	".git": true, "node_modules": true, "dist": true, "build": true,
	"target": true, "vendor": true, "__pycache__": true, ".venv": true,
	"venv": true, ".precursor": true,
}

// maxWalkDepth bounds the extension walk relative to the root.
const maxWalkDepth = 2

// Detect classifies which technology stacks are present under root.
//
// # Description
//
// For each candidate stack it checks the marker files directly under
// root. The web stack additionally gets a bounded-depth walk (depth 2)
// for extension-matched source files, since front-end trees without a
// root manifest are common. Filesystem errors are swallowed per
// directory and read as "not found" for that subtree; detection never
// aborts a run.
//
// The result is a set: identical filesystem state yields an identical
// stack set regardless of directory iteration order.
func Detect(root string) map[Stack]bool {
	found := make(map[Stack]bool)

	for stack, markers := range stackMarkers {
		for _, marker := range markers {
			if _, err := os.Stat(filepath.Join(root, marker)); err == nil {
				found[stack] = true
				break
			}
		}
	}

	if !found[StackWeb] && hasWebSources(root, 0) {
		found[StackWeb] = true
	}

	return found
}

// SortedStacks returns the detected set in stable order for reporting.
func SortedStacks(set map[Stack]bool) []Stack {
	var out []Stack
	for s := range set {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func hasWebSources(dir string, depth int) bool {
	if depth > maxWalkDepth {
		return false
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		// Permission or transient I/O failures read as "not found".
		return false
	}

	for _, e := range entries {
		name := e.Name()
		if e.IsDir() {
			if noiseDirs[name] || strings.HasPrefix(name, ".") {
				continue
			}
			if hasWebSources(filepath.Join(dir, name), depth+1) {
				return true
			}
			continue
		}
		if webSourceExtensions[strings.ToLower(filepath.Ext(name))] {
			return true
		}
	}
	return false
}

// ResolveRoot determines the workspace root stacks are detected under.
//
// # Description
//
// Resolution order: an explicit configured root always wins; in
// subproject mode the invocation directory is used as-is; otherwise the
// enclosing version-control root is preferred when discoverable, falling
// back to the invocation directory.
//
// # Inputs
//
//   - cwd: Invocation directory (absolute).
//   - explicit: Configured root override, empty when unset.
//   - subproject: True when the workspace mode pins detection to cwd.
func ResolveRoot(cwd, explicit string, subproject bool) string {
	if explicit != "" {
		if filepath.IsAbs(explicit) {
			return filepath.Clean(explicit)
		}
		return filepath.Join(cwd, explicit)
	}
	if subproject {
		return cwd
	}
	if root := vcsRoot(cwd); root != "" {
		return root
	}
	return cwd
}

// vcsRoot returns the enclosing git worktree root, or "" when cwd is
// not inside a repository.
func vcsRoot(cwd string) string {
	repo, err := git.PlainOpenWithOptions(cwd, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return ""
	}
	wt, err := repo.Worktree()
	if err != nil {
		// Bare repository: no worktree to scaffold into.
		return ""
	}
	return wt.Filesystem.Root()
}
