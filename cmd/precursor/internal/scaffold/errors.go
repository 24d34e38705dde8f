// Copyright (C) 2026 Precursor Authors (dev@precursorhq.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package scaffold

import (
	"errors"
	"fmt"
)

// Sentinel errors for the scaffold engine.
var (
	// Backup errors
	ErrNoBackupFound      = errors.New("no backup snapshots found")
	ErrBackupRootCreation = errors.New("failed to create backup snapshot root")

	// Writer errors
	ErrAtomicReplaceFailed = errors.New("atomic replace failed")
)

// ArtifactError represents a failure while scaffolding a specific artifact.
type ArtifactError struct {
	Path string
	Err  error
}

// Error implements the error interface.
func (e *ArtifactError) Error() string {
	return fmt.Sprintf("artifact %s: %v", e.Path, e.Err)
}

// Unwrap returns the underlying error.
func (e *ArtifactError) Unwrap() error {
	return e.Err
}

// BatchError holds multiple errors from per-stack scaffolding.
type BatchError struct {
	Errors []error
}

// Error implements the error interface.
func (e *BatchError) Error() string {
	if len(e.Errors) == 0 {
		return "no errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	return fmt.Sprintf("%d errors occurred; first: %v", len(e.Errors), e.Errors[0])
}

// Add appends an error to the batch.
func (e *BatchError) Add(err error) {
	if err != nil {
		e.Errors = append(e.Errors, err)
	}
}

// HasErrors returns true if there are any errors.
func (e *BatchError) HasErrors() bool {
	return len(e.Errors) > 0
}

// ToError returns nil if no errors, or the BatchError if there are errors.
func (e *BatchError) ToError() error {
	if e.HasErrors() {
		return e
	}
	return nil
}
