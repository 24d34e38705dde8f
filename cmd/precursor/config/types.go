// Copyright (C) 2026 Precursor Authors (dev@precursorhq.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package config

// Config is the merged, effective settings object controlling a run.
//
// Composed from an optional on-disk document deep-merged over built-in
// defaults; every top-level section is independently optional. Loaded
// once per invocation and immutable thereafter.
type Config struct {
	Python    PythonConfig       `json:"python" yaml:"python"`
	Web       WebConfig          `json:"web" yaml:"web"`
	Rust      RustConfig         `json:"rust" yaml:"rust"`
	Cpp       CppConfig          `json:"cpp" yaml:"cpp"`
	Docker    DockerConfig       `json:"docker" yaml:"docker"`
	Workspace WorkspaceConfig    `json:"workspace" yaml:"workspace"`
	CI        CIConfig           `json:"ci" yaml:"ci"`
	Secrets   SecretsConfig      `json:"secrets" yaml:"secrets"`
	Backup    BackupConfig       `json:"backup" yaml:"backup"`
	Tools     map[string]ToolCfg `json:"tools" yaml:"tools"`

	// Extra holds unrecognized top-level sections so user extensions
	// round-trip through load/merge untouched.
	Extra map[string]any `json:"-" yaml:"-"`
}

type PythonConfig struct {
	// Runtime is the environment manager referenced in generated
	// content. Default: "uv"
	Runtime string `json:"runtime" yaml:"runtime" validate:"oneof=uv pip poetry"`
}

type WebConfig struct {
	PackageManager string `json:"package_manager" yaml:"package_manager" validate:"oneof=npm pnpm yarn"`
}

type RustConfig struct {
	Clippy bool `json:"clippy" yaml:"clippy"`
}

type CppConfig struct {
	Generator string `json:"generator" yaml:"generator"`
}

type DockerConfig struct {
	PinDigests bool `json:"pin_digests" yaml:"pin_digests"`
}

type WorkspaceConfig struct {
	// Root overrides workspace root resolution entirely.
	Root string `json:"root" yaml:"root"`

	// Mode is "auto" (prefer the VCS root) or "subproject" (pin to the
	// invocation directory).
	Mode string `json:"mode" yaml:"mode" validate:"oneof=auto subproject"`
}

type CIConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Branch  string `json:"branch" yaml:"branch" validate:"required"`
}

type SecretsConfig struct {
	Enabled    bool     `json:"enabled" yaml:"enabled"`
	Fatal      bool     `json:"fatal" yaml:"fatal"`
	MinEntropy float64  `json:"min_entropy" yaml:"min_entropy"`
	Excludes   []string `json:"excludes" yaml:"excludes"`
}

type BackupConfig struct {
	Enabled    bool `json:"enabled" yaml:"enabled"`
	MaxBackups int  `json:"max_backups" yaml:"max_backups" validate:"min=1"`
}

// ToolCfg is an explicit per-tool override. Its presence in the tools
// map always wins over the built-in default-critical list.
type ToolCfg struct {
	Critical bool `json:"critical" yaml:"critical"`
}

// DefaultConfig returns the built-in defaults applied when sections are
// absent from the on-disk document.
func DefaultConfig() Config {
	return Config{
		Python:    PythonConfig{Runtime: "uv"},
		Web:       WebConfig{PackageManager: "npm"},
		Rust:      RustConfig{Clippy: true},
		Cpp:       CppConfig{Generator: "Ninja"},
		Docker:    DockerConfig{PinDigests: true},
		Workspace: WorkspaceConfig{Mode: "auto"},
		CI:        CIConfig{Enabled: true, Branch: "main"},
		Secrets: SecretsConfig{
			Enabled:    true,
			Fatal:      true,
			MinEntropy: 3.5,
		},
		Backup: BackupConfig{
			Enabled:    true,
			MaxBackups: 10,
		},
		Tools: map[string]ToolCfg{},
	}
}

// CriticalOverrides flattens the tools section into the per-tool
// critical map the resolver consumes.
func (c Config) CriticalOverrides() map[string]bool {
	if len(c.Tools) == 0 {
		return nil
	}
	out := make(map[string]bool, len(c.Tools))
	for id, t := range c.Tools {
		out[id] = t.Critical
	}
	return out
}
