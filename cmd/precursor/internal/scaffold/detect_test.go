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
	"reflect"
	"testing"
)

func touch(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, nil, 0644); err != nil {
		t.Fatal(err)
	}
}

func TestDetectByMarkers(t *testing.T) {
	root := t.TempDir()
	touch(t, filepath.Join(root, "pyproject.toml"))
	touch(t, filepath.Join(root, "package.json"))

	found := Detect(root)
	want := map[Stack]bool{StackPython: true, StackWeb: true}
	if !reflect.DeepEqual(found, want) {
		t.Errorf("Detect = %v, want %v", found, want)
	}
}

func TestDetectDeterministic(t *testing.T) {
	root := t.TempDir()
	touch(t, filepath.Join(root, "Cargo.toml"))
	touch(t, filepath.Join(root, "Dockerfile"))
	touch(t, filepath.Join(root, "CMakeLists.txt"))

	first := Detect(root)
	for i := 0; i < 5; i++ {
		if got := Detect(root); !reflect.DeepEqual(got, first) {
			t.Fatalf("run %d: Detect = %v, first = %v", i, got, first)
		}
	}
}

func TestDetectWebBySourceWalk(t *testing.T) {
	root := t.TempDir()
	touch(t, filepath.Join(root, "src", "app.tsx"))

	if !Detect(root)[StackWeb] {
		t.Error("expected web stack from a .tsx source at depth 1")
	}
}

func TestDetectWalkRespectsDepthBound(t *testing.T) {
	root := t.TempDir()
	touch(t, filepath.Join(root, "a", "b", "c", "deep.ts"))

	if Detect(root)[StackWeb] {
		t.Error("sources below the depth bound must not claim the web stack")
	}
}

func TestDetectWalkSkipsNoiseDirs(t *testing.T) {
	root := t.TempDir()
	touch(t, filepath.Join(root, "node_modules", "lib", "index.js"))
	touch(t, filepath.Join(root, ".precursor", "cache.js"))

	if Detect(root)[StackWeb] {
		t.Error("noise directories must not claim the web stack")
	}
}

func TestDetectEmptyWorkspace(t *testing.T) {
	if found := Detect(t.TempDir()); len(found) != 0 {
		t.Errorf("Detect(empty) = %v, want empty set", found)
	}
}

func TestSortedStacksStableOrder(t *testing.T) {
	set := map[Stack]bool{StackWeb: true, StackCpp: true, StackDocker: true}
	got := SortedStacks(set)
	want := []Stack{StackCpp, StackDocker, StackWeb}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("SortedStacks = %v, want %v", got, want)
	}
}

func TestResolveRootExplicitOverride(t *testing.T) {
	cwd := t.TempDir()
	abs := t.TempDir()

	if got := ResolveRoot(cwd, abs, false); got != filepath.Clean(abs) {
		t.Errorf("explicit absolute root = %q, want %q", got, abs)
	}
	if got := ResolveRoot(cwd, "sub", false); got != filepath.Join(cwd, "sub") {
		t.Errorf("explicit relative root = %q", got)
	}
}

func TestResolveRootSubprojectPinsCwd(t *testing.T) {
	cwd := t.TempDir()
	if got := ResolveRoot(cwd, "", true); got != cwd {
		t.Errorf("subproject root = %q, want %q", got, cwd)
	}
}

func TestResolveRootFallsBackToCwd(t *testing.T) {
	cwd := t.TempDir() // not inside any repository
	if got := ResolveRoot(cwd, "", false); got != cwd {
		t.Errorf("fallback root = %q, want %q", got, cwd)
	}
}
