// Copyright (C) 2026 Precursor Authors (dev@precursorhq.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

/*
Package scaffold implements the configuration reconciliation engine
behind the precursor CLI.

A run detects which technology stacks are present in a workspace,
snapshots the managed artifacts, folds generated defaults into any
pre-existing configuration files without clobbering user customizations,
scans for hardcoded secrets, and records content hashes that the next
run reads back to decide which artifacts changed.

# Architecture

	Load prior state → Detect → Snapshot → per-stack merge+write →
	secret scan → state update

The hash cache makes repeat runs cheap: tracked artifacts whose digests
still match the prior state skip the merge path entirely, provided the
stacks and content configuration are also unchanged. Artifacts that
drifted, or that the cache cannot vouch for, fall through to the
deep-merge engine (Merge), whose writer equality check keeps even the
slow path idempotent.

# Thread Safety

One Orchestrator owns one run. Two concurrent invocations against the
same workspace are not supported; the state file and backup root have no
cross-process locking.
*/
package scaffold

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/precursorhq/precursor/pkg/logging"
)

// Phase is a state of the orchestrator's run state machine.
type Phase string

const (
	PhaseIdle            Phase = "idle"
	PhaseDetecting       Phase = "detecting"
	PhaseBackingUp       Phase = "backing-up"
	PhasePerStack        Phase = "per-stack-scaffold"
	PhaseScanningSecrets Phase = "scanning-secrets"
	PhaseUpdatingState   Phase = "updating-state"
	PhaseDone            Phase = "done"
	PhaseAborted         Phase = "aborted"
)

// Options configures one orchestrator run.
type Options struct {
	// Root is the resolved workspace root. Must be absolute.
	Root string

	// PrecursorDir holds the state file and backups.
	// Default: <Root>/.precursor
	PrecursorDir string

	// BackupsEnabled turns run-level snapshots on.
	BackupsEnabled bool

	// MaxBackups bounds snapshot retention. Default: 10
	MaxBackups int

	// SecretsEnabled turns the secret scan on.
	SecretsEnabled bool

	// SecretsFatal aborts the run on findings (the default). When
	// false, findings downgrade to warnings.
	SecretsFatal bool

	// SecretExcludes are doublestar globs skipped by the scan.
	SecretExcludes []string

	// SecretMinEntropy is the fallback entropy threshold for generic
	// secret patterns. Zero means the scanner default.
	SecretMinEntropy float64

	// Content shapes generated artifact content.
	Content StackContentConfig

	// CriticalTools overrides the default-critical list per tool ID.
	CriticalTools map[string]bool

	// Strict escalates warnings (including missing critical tools) to
	// run failure.
	Strict bool

	// Offline skips external tool probes.
	Offline bool

	Logger *logging.Logger
}

// RunResult is the structured outcome returned to the CLI.
type RunResult struct {
	Success    bool                  `json:"success"`
	Message    string                `json:"message"`
	Stacks     []Stack               `json:"stacks"`
	Tools      map[string]ToolResult `json:"tools,omitempty"`
	SnapshotID string                `json:"snapshotId,omitempty"`
	Written    int                   `json:"filesWritten"`
	Skipped    int                   `json:"filesSkipped"`
	Drifted    []string              `json:"drifted,omitempty"`
	Findings   []SecretFinding       `json:"secretFindings,omitempty"`
	Errors     []string              `json:"errors,omitempty"`
	Warnings   []string              `json:"warnings,omitempty"`
}

// Orchestrator owns the idempotent bootstrap sequence for one run.
type Orchestrator struct {
	opts     Options
	writer   *Writer
	backups  BackupManager
	store    *StateStore
	scanner  *SecretScanner
	resolver *ToolResolver
	log      *logging.Logger

	mu    sync.Mutex
	phase Phase
}

// NewOrchestrator wires up a run for the given options.
func NewOrchestrator(opts Options) *Orchestrator {
	if opts.PrecursorDir == "" {
		opts.PrecursorDir = filepath.Join(opts.Root, ".precursor")
	}
	if opts.MaxBackups <= 0 {
		opts.MaxBackups = 10
	}
	if opts.Logger == nil {
		opts.Logger = logging.Default()
	}

	backupRoot := filepath.Join(opts.PrecursorDir, "backups")
	return &Orchestrator{
		opts: opts,
		writer: NewWriter(filepath.Join(opts.PrecursorDir, "replaced"), opts.Logger),
		backups: NewSnapshotManager(SnapshotConfig{
			Root:       opts.Root,
			BackupRoot: backupRoot,
			MaxBackups: opts.MaxBackups,
			Enabled:    opts.BackupsEnabled,
		}, opts.Logger),
		store: NewStateStore(opts.PrecursorDir),
		scanner: NewSecretScanner(SecretScanConfig{
			MinEntropy: opts.SecretMinEntropy,
			Excludes:   opts.SecretExcludes,
		}),
		resolver: NewToolResolver(opts.CriticalTools),
		log:      opts.Logger,
		phase:    PhaseIdle,
	}
}

// Phase returns the current state machine phase.
func (o *Orchestrator) Phase() Phase {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.phase
}

func (o *Orchestrator) setPhase(p Phase) {
	o.mu.Lock()
	o.phase = p
	o.mu.Unlock()
	o.log.Debug("phase transition", "phase", string(p))
}

// Backups exposes the backup manager for the rollback command.
func (o *Orchestrator) Backups() BackupManager {
	return o.backups
}

// Store exposes the state store for the reset command.
func (o *Orchestrator) Store() *StateStore {
	return o.store
}

// Run executes the full bootstrap sequence.
//
// # Description
//
// Idle → Detecting → BackingUp → PerStackScaffold → ScanningSecrets →
// UpdatingState → Done, with Aborted reached on any fatal error.
// The prior run's state snapshot is read first: tracked artifacts whose
// digests still match skip the merge path, and artifacts that drifted
// are named in the result and re-reconciled.
// Backup failures (other than losing the snapshot root itself) and
// per-stack artifact failures never stop the remaining stacks; they are
// recorded in the result. Secret findings abort before the state update
// by default, so a secret-laden run is never cached as done.
//
// Running twice with no intervening filesystem changes writes nothing
// on the second run.
func (o *Orchestrator) Run(ctx context.Context) *RunResult {
	result := &RunResult{Tools: make(map[string]ToolResult)}

	prior := o.store.Load()

	// Detecting
	o.setPhase(PhaseDetecting)
	stacks := Detect(o.opts.Root)
	result.Stacks = SortedStacks(stacks)
	o.log.Info("stack detection complete", "stacks", fmt.Sprint(result.Stacks))

	skip := o.unchangedArtifacts(prior, result)

	if !o.opts.Offline {
		for id, tr := range o.resolver.ResolveAll(ctx, DefaultToolSpecs(), stacks) {
			result.Tools[id] = tr
			if !tr.Found && tr.Critical {
				msg := fmt.Sprintf("critical tool %s: %s", id, tr.Error)
				if o.opts.Strict {
					return o.abort(result, msg)
				}
				result.Warnings = append(result.Warnings, msg)
			}
		}
	}

	// BackingUp. Runs even with zero stacks detected: the ignore files
	// are stack-independent and about to be written.
	o.setPhase(PhaseBackingUp)
	snapshotID, err := o.backups.Snapshot(ManagedArtifactPaths())
	if err != nil {
		// Losing the safety net entirely is the one fatal backup error.
		return o.abort(result, fmt.Sprintf("backup snapshot failed: %v", err))
	}
	result.SnapshotID = snapshotID

	// PerStackScaffold
	o.setPhase(PhasePerStack)
	var batch BatchError

	written, skipped, warnings, err := o.scaffoldCommon(stacks, skip)
	result.Written += written
	result.Skipped += skipped
	result.Warnings = append(result.Warnings, warnings...)
	batch.Add(err)

	for _, stack := range result.Stacks {
		written, skipped, warnings, err := o.scaffoldStack(stack, skip)
		result.Written += written
		result.Skipped += skipped
		result.Warnings = append(result.Warnings, warnings...)
		if err != nil {
			// One stack's failure never blocks the next.
			batch.Add(fmt.Errorf("stack %s: %w", stack, err))
		}
	}
	for _, e := range batch.Errors {
		result.Errors = append(result.Errors, e.Error())
	}

	// ScanningSecrets
	if o.opts.SecretsEnabled {
		o.setPhase(PhaseScanningSecrets)
		result.Findings = o.scanner.ScanTree(o.opts.Root)
		if len(result.Findings) > 0 {
			if o.opts.SecretsFatal {
				return o.abort(result, fmt.Sprintf("secret scan found %d finding(s)", len(result.Findings)))
			}
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("secret scan found %d finding(s)", len(result.Findings)))
		}
	}

	// UpdatingState
	o.setPhase(PhaseUpdatingState)
	if err := o.updateState(ctx, result); err != nil {
		return o.abort(result, fmt.Sprintf("state update failed: %v", err))
	}

	o.setPhase(PhaseDone)
	result.Success = !batch.HasErrors() && !(o.opts.Strict && len(result.Warnings) > 0)
	if result.Success {
		result.Message = fmt.Sprintf("scaffolded %d stack(s), wrote %d file(s)", len(result.Stacks), result.Written)
	} else {
		result.Message = "run completed with errors"
	}
	return result
}

func (o *Orchestrator) abort(result *RunResult, msg string) *RunResult {
	o.setPhase(PhaseAborted)
	result.Success = false
	result.Message = msg
	result.Errors = append(result.Errors, msg)
	return result
}

// unchangedArtifacts compares the tracked artifacts against the prior
// state snapshot.
//
// # Description
//
// Every tracked path that drifted since the snapshot is recorded on the
// result. The returned set names the artifacts whose digests still
// match; those are safe to skip this run because re-merging would
// reproduce the file byte for byte. The set is only returned when the
// prior run saw the same stacks and the same content configuration,
// otherwise the desired content itself may have changed and everything
// falls through to the merge path.
func (o *Orchestrator) unchangedArtifacts(prior *State, result *RunResult) map[string]bool {
	if prior == nil {
		return nil
	}

	unchanged := make(map[string]bool, len(prior.Hashes))
	for rel := range prior.Hashes {
		if o.store.HasChanged(prior, o.opts.Root, rel) {
			result.Drifted = append(result.Drifted, rel)
		} else {
			unchanged[rel] = true
		}
	}
	sort.Strings(result.Drifted)
	if len(result.Drifted) > 0 {
		o.log.Info("tracked artifacts drifted since last run",
			"count", len(result.Drifted))
	}

	if prior.ContentFingerprint != contentFingerprint(o.opts.Content) ||
		!slices.Equal(prior.Stacks, result.Stacks) {
		return nil
	}
	return unchanged
}

// contentFingerprint digests the configuration that shapes generated
// content, so a config change defeats the unchanged-artifact skip.
func contentFingerprint(cfg StackContentConfig) string {
	data, _ := json.Marshal(cfg)
	return ComputeHash(data)
}

// reconcileStructured folds one desired structured fragment into its
// artifact unless the prior state proves the file unchanged.
func (o *Orchestrator) reconcileStructured(rel string, desired map[string]any, skip map[string]bool, batch *BatchError) (written, skipped int, warnings []string) {
	if skip[filepath.ToSlash(rel)] {
		return 0, 1, nil
	}
	outcome, err := o.writer.MergeAndWrite(filepath.Join(o.opts.Root, rel), desired, DefaultMergeOptions())
	if err != nil {
		batch.Add(&ArtifactError{Path: rel, Err: err})
	}
	return countWrite(outcome), 0, outcome.Warnings
}

// reconcileText appends missing lines to one text artifact unless the
// prior state proves the file unchanged.
func (o *Orchestrator) reconcileText(rel string, lines []string, skip map[string]bool, batch *BatchError) (written, skipped int, warnings []string) {
	if skip[filepath.ToSlash(rel)] {
		return 0, 1, nil
	}
	outcome, err := o.writer.MergeAndWriteText(filepath.Join(o.opts.Root, rel), lines)
	if err != nil {
		batch.Add(&ArtifactError{Path: rel, Err: err})
	}
	return countWrite(outcome), 0, outcome.Warnings
}

// scaffoldCommon writes the stack-independent artifacts.
func (o *Orchestrator) scaffoldCommon(stacks map[Stack]bool, skip map[string]bool) (int, int, []string, error) {
	var batch BatchError
	var warnings []string
	written, skipped := 0, 0

	ignore := baseIgnorePatterns()
	for _, stack := range SortedStacks(stacks) {
		ignore = append(ignore, stackIgnorePatterns(stack)...)
	}

	w, s, warn := o.reconcileText(ArtifactGitIgnore, ignore, skip, &batch)
	written += w
	skipped += s
	warnings = append(warnings, warn...)

	w, s, warn = o.reconcileText(ArtifactAIIgnore, aiIgnorePatterns(), skip, &batch)
	written += w
	skipped += s
	warnings = append(warnings, warn...)

	w, s, warn = o.reconcileStructured(ArtifactMCPConfig, mcpConfig(), skip, &batch)
	written += w
	skipped += s
	warnings = append(warnings, warn...)

	return written, skipped, warnings, batch.ToError()
}

// scaffoldStack writes one stack's artifacts through the merge engine.
func (o *Orchestrator) scaffoldStack(stack Stack, skip map[string]bool) (int, int, []string, error) {
	var batch BatchError
	var warnings []string
	written, skipped := 0, 0

	structured, text := stackArtifacts(stack, o.opts.Content)
	for _, art := range structured {
		w, s, warn := o.reconcileStructured(art.RelPath, art.Desired, skip, &batch)
		written += w
		skipped += s
		warnings = append(warnings, warn...)
	}
	for _, art := range text {
		w, s, warn := o.reconcileText(art.RelPath, art.Lines, skip, &batch)
		written += w
		skipped += s
		warnings = append(warnings, warn...)
	}

	return written, skipped, warnings, batch.ToError()
}

func countWrite(outcome WriteOutcome) int {
	if outcome.Written {
		return 1
	}
	return 0
}

// updateState hashes every managed artifact file concurrently and
// persists the new state snapshot.
func (o *Orchestrator) updateState(ctx context.Context, result *RunResult) error {
	files := o.trackedFiles()

	st := NewState()
	st.Stacks = result.Stacks
	st.Tools = result.Tools
	st.ContentFingerprint = contentFingerprint(o.opts.Content)

	var mu sync.Mutex
	g, _ := errgroup.WithContext(ctx)
	for _, rel := range files {
		g.Go(func() error {
			digest, err := HashFile(filepath.Join(o.opts.Root, rel))
			if err != nil {
				// File vanished between write and hash; skip tracking it.
				return nil
			}
			mu.Lock()
			st.Hashes[rel] = digest
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	return o.store.Save(st)
}

// trackedFiles expands the managed artifact set into the individual
// files present on disk, relative to the root.
func (o *Orchestrator) trackedFiles() []string {
	var files []string
	for _, rel := range ManagedArtifactPaths() {
		abs := filepath.Join(o.opts.Root, rel)
		info, err := os.Stat(abs)
		if err != nil {
			continue
		}
		if !info.IsDir() {
			files = append(files, rel)
			continue
		}
		filepath.WalkDir(abs, func(path string, d os.DirEntry, err error) error {
			if err != nil || d.IsDir() {
				return nil
			}
			if sub, rerr := filepath.Rel(o.opts.Root, path); rerr == nil {
				files = append(files, filepath.ToSlash(sub))
			}
			return nil
		})
	}
	return files
}
