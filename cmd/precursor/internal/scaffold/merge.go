// Copyright (C) 2026 Precursor Authors (dev@precursorhq.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package scaffold

import (
	"reflect"
	"strings"
)

// ArrayStrategy controls how the merge engine combines two arrays.
type ArrayStrategy string

const (
	// ArrayAppendUnique appends source elements not already present in the
	// target, preserving the target's order. This is the default.
	ArrayAppendUnique ArrayStrategy = "append-unique"

	// ArrayReplace discards the target array and keeps the source array.
	ArrayReplace ArrayStrategy = "replace"
)

// MergeOptions configures a deep merge.
type MergeOptions struct {
	// Arrays selects the array combination strategy.
	// Default: ArrayAppendUnique
	Arrays ArrayStrategy
}

// DefaultMergeOptions returns the default merge configuration.
func DefaultMergeOptions() MergeOptions {
	return MergeOptions{Arrays: ArrayAppendUnique}
}

// Merge deep-merges source into target and returns a new document.
//
// # Description
//
// Walks source key by key. Nil source values are skipped (a merge can
// never delete or null out a target key). Nested objects recurse with
// the same options. Arrays follow the configured strategy. On any type
// mismatch the source value wins. Keys present only in target always
// survive untouched.
//
// Neither input is mutated; the result shares no mutable structure with
// target or source.
//
// # Inputs
//
//   - target: Existing document (may be nil, treated as empty)
//   - source: Desired fragment to fold in (may be nil)
//   - opts: Merge options
//
// # Outputs
//
//   - map[string]any: The merged document. Never nil.
//
// # Example
//
//	merged := Merge(existing, desired, DefaultMergeOptions())
func Merge(target, source map[string]any, opts MergeOptions) map[string]any {
	if opts.Arrays == "" {
		opts.Arrays = ArrayAppendUnique
	}

	out := make(map[string]any, len(target)+len(source))
	for k, v := range target {
		out[k] = deepCopyValue(v)
	}

	for k, sv := range source {
		if sv == nil {
			continue
		}

		tv, exists := out[k]

		if sArr, ok := toSlice(sv); ok {
			if tArr, ok := toSlice(tv); ok && exists && opts.Arrays == ArrayAppendUnique {
				out[k] = appendUnique(tArr, sArr)
			} else {
				out[k] = deepCopyValue(sArr)
			}
			continue
		}

		if sMap, ok := toMap(sv); ok {
			if tMap, ok := toMap(tv); ok && exists {
				out[k] = Merge(tMap, sMap, opts)
				continue
			}
		}

		out[k] = deepCopyValue(sv)
	}

	return out
}

// appendUnique returns target plus the source elements not already
// present, by deep equality, order preserved. Membership is checked
// against the accumulated output, so a source array carrying internal
// duplicates still contributes each element at most once.
func appendUnique(target, source []any) []any {
	out := make([]any, 0, len(target)+len(source))
	for _, v := range target {
		out = append(out, deepCopyValue(v))
	}
	for _, sv := range source {
		if !containsValue(out, sv) {
			out = append(out, deepCopyValue(sv))
		}
	}
	return out
}

func containsValue(haystack []any, needle any) bool {
	for _, v := range haystack {
		if reflect.DeepEqual(v, needle) {
			return true
		}
	}
	return false
}

// toMap normalizes the object shapes the YAML and JSON decoders produce.
func toMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case map[any]any:
		out := make(map[string]any, len(m))
		for k, val := range m {
			ks, ok := k.(string)
			if !ok {
				return nil, false
			}
			out[ks] = val
		}
		return out, true
	default:
		return nil, false
	}
}

func toSlice(v any) ([]any, bool) {
	s, ok := v.([]any)
	return s, ok
}

func deepCopyValue(v any) any {
	if m, ok := toMap(v); ok {
		out := make(map[string]any, len(m))
		for k, val := range m {
			out[k] = deepCopyValue(val)
		}
		return out
	}
	if s, ok := toSlice(v); ok {
		out := make([]any, len(s))
		for i, val := range s {
			out[i] = deepCopyValue(val)
		}
		return out
	}
	return v
}

// MergeLines merges desired text lines into existing text content.
//
// # Description
//
// Line-based duplicate-suppressed append: every desired line not already
// present in the existing content (after trimming trailing whitespace)
// is appended at the end. Existing lines are never reordered, rewritten,
// or removed. Blank desired lines are never appended; spacing belongs to
// the user's file, not the generated fragment.
//
// This is the merge policy for ignore files and free-form rule text,
// where structural merging would destroy user formatting.
func MergeLines(existing string, desired []string) string {
	seen := make(map[string]bool)
	existingLines := strings.Split(existing, "\n")
	for _, line := range existingLines {
		seen[strings.TrimRight(line, " \t\r")] = true
	}

	out := strings.TrimRight(existing, "\n")
	appended := false
	for _, line := range desired {
		key := strings.TrimRight(line, " \t\r")
		if key == "" || seen[key] {
			continue
		}
		if out == "" {
			out = line
		} else {
			out += "\n" + line
		}
		seen[key] = true
		appended = true
	}

	if !appended {
		return existing
	}
	return out + "\n"
}
