// Copyright (C) 2026 Precursor Authors (dev@precursorhq.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package scaffold

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/precursorhq/precursor/pkg/logging"
)

// Writer commits artifact content to disk through temp-file + rename.
//
// # Description
//
// All writes go to a sibling temporary file in the target's directory
// (so the replace is same-filesystem and effectively atomic), then the
// target is replaced. If the platform refuses the rename (target open or
// read-only), the writer falls back to clear-read-only + copy-overwrite
// and logs a warning. On every failure path the temp file is cleaned up.
//
// When a backup directory is configured, the file being replaced is
// first copied there under a collision-safe timestamped name
// (sub-second precision plus a random suffix), so rapid repeated writes
// within one second never overwrite each other's backups.
//
// # Thread Safety
//
// Writer is safe for concurrent use as long as no two goroutines write
// the same target path; the orchestrator sequences writes per artifact.
type Writer struct {
	backupDir string
	log       *logging.Logger
}

// NewWriter creates a Writer. backupDir may be empty to disable
// pre-replace backup copies. logger may be nil.
func NewWriter(backupDir string, logger *logging.Logger) *Writer {
	if logger == nil {
		logger = logging.Default()
	}
	return &Writer{backupDir: backupDir, log: logger}
}

// WriteOutcome reports what MergeAndWrite did.
type WriteOutcome struct {
	// Written is true if the target file was modified on disk.
	Written bool

	// Warnings collects recoverable issues (malformed existing content,
	// rename fallback) surfaced to the run result.
	Warnings []string
}

// WriteAtomic writes content to path through a temp file and rename.
func (w *Writer) WriteAtomic(path string, content []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating parent directory: %w", err)
	}

	if w.backupDir != "" {
		if err := w.backupExisting(path); err != nil {
			w.log.Warn("pre-replace backup failed", "path", path, "error", err)
		}
	}

	err := writeFileAtomic(path, content, 0644)
	if err == nil {
		return nil
	}
	w.log.Warn("atomic replace failed, falling back to copy-overwrite", "path", path, "error", err)

	// Read-only targets reject rename-over on some platforms. Clear the
	// bit and overwrite in place.
	_ = os.Chmod(path, 0644)
	if writeErr := os.WriteFile(path, content, 0644); writeErr != nil {
		return fmt.Errorf("%w: %v (fallback: %v)", ErrAtomicReplaceFailed, err, writeErr)
	}
	return nil
}

// backupExisting copies the current content of path into the backup
// directory under a collision-safe timestamped name. Missing targets
// are a no-op.
func (w *Writer) backupExisting(path string) error {
	content, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}

	if err := os.MkdirAll(w.backupDir, 0755); err != nil {
		return err
	}

	stamp := time.Now().Format("20060102T150405.000000000")
	suffix := uuid.NewString()[:8]
	name := fmt.Sprintf("%s.%s.%s", filepath.Base(path), stamp, suffix)
	return os.WriteFile(filepath.Join(w.backupDir, name), content, 0644)
}

// MergeAndWrite folds a desired structured fragment into the file at
// path and commits the result atomically.
//
// # Description
//
// Loads the existing document (absent means empty object; malformed
// means back up the broken file, surface a warning, and start from
// empty), deep-merges the desired fragment via Merge, serializes in the
// format implied by the file extension, and writes only if the result
// differs from the on-disk content after line-ending normalization.
// That final equality check is what makes repeated scaffold runs
// produce zero diffs.
func (w *Writer) MergeAndWrite(path string, desired map[string]any, opts MergeOptions) (WriteOutcome, error) {
	var outcome WriteOutcome

	existing := map[string]any{}
	raw, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		raw = nil
	case err != nil:
		return outcome, fmt.Errorf("reading %s: %w", path, err)
	default:
		parsed, perr := decodeStructured(path, raw)
		if perr != nil {
			if berr := w.backupExisting(path); berr != nil {
				w.log.Warn("could not back up malformed file", "path", path, "error", berr)
			}
			outcome.Warnings = append(outcome.Warnings,
				fmt.Sprintf("%s: existing content is malformed (%v); regenerating from defaults", path, perr))
		} else {
			existing = parsed
		}
	}

	merged := Merge(existing, desired, opts)
	out, err := encodeStructured(path, merged)
	if err != nil {
		return outcome, fmt.Errorf("serializing %s: %w", path, err)
	}

	if normalizeNewlines(string(raw)) == normalizeNewlines(string(out)) {
		return outcome, nil
	}

	if err := w.WriteAtomic(path, out); err != nil {
		return outcome, err
	}
	outcome.Written = true
	return outcome, nil
}

// MergeAndWriteText applies the line-append policy to a text artifact
// and commits it atomically, writing only when lines were added.
func (w *Writer) MergeAndWriteText(path string, desired []string) (WriteOutcome, error) {
	var outcome WriteOutcome

	raw, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return outcome, fmt.Errorf("reading %s: %w", path, err)
	}

	existing := normalizeNewlines(string(raw))
	merged := MergeLines(existing, desired)
	if merged == existing {
		return outcome, nil
	}

	if err := w.WriteAtomic(path, []byte(merged)); err != nil {
		return outcome, err
	}
	outcome.Written = true
	return outcome, nil
}

// writeFileAtomic writes data to a sibling temp file and renames it
// over path. The temp file never survives an error.
func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()

	cleanup := true
	defer func() {
		if cleanup {
			os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := tmp.Chmod(perm); err != nil {
		tmp.Close()
		return fmt.Errorf("setting temp file mode: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("replacing %s: %w", path, err)
	}
	cleanup = false
	return nil
}

func normalizeNewlines(s string) string {
	return strings.ReplaceAll(s, "\r\n", "\n")
}

// decodeStructured parses raw as JSON or YAML depending on the file
// extension. Empty content decodes to an empty object.
func decodeStructured(path string, raw []byte) (map[string]any, error) {
	if len(strings.TrimSpace(string(raw))) == 0 {
		return map[string]any{}, nil
	}

	var doc map[string]any
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(raw, &doc); err != nil {
			return nil, err
		}
	default:
		if err := json.Unmarshal(raw, &doc); err != nil {
			return nil, err
		}
	}
	if doc == nil {
		doc = map[string]any{}
	}
	return doc, nil
}

// encodeStructured serializes doc in the format implied by the file
// extension, with a trailing newline.
func encodeStructured(path string, doc map[string]any) ([]byte, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return yaml.Marshal(doc)
	default:
		data, err := json.MarshalIndent(doc, "", "  ")
		if err != nil {
			return nil, err
		}
		return append(data, '\n'), nil
	}
}
