// Copyright (C) 2026 Precursor Authors (dev@precursorhq.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package scaffold

import (
	"fmt"
	"path/filepath"
)

// Managed artifact locations, relative to the workspace root. This is
// the fixed set the tool is allowed to create, merge, and back up; a
// normal run never deletes any of them.
const (
	ArtifactEditorSettings   = ".vscode/settings.json"
	ArtifactEditorExtensions = ".vscode/extensions.json"
	ArtifactMCPConfig        = ".mcp.json"
	ArtifactRulesDir         = ".ai/rules"
	ArtifactWorkflowsDir     = ".github/workflows"
	ArtifactGitIgnore        = ".gitignore"
	ArtifactAIIgnore         = ".aiignore"
)

// ManagedArtifactPaths returns every managed path, for snapshotting.
func ManagedArtifactPaths() []string {
	return []string{
		ArtifactEditorSettings,
		ArtifactEditorExtensions,
		ArtifactMCPConfig,
		ArtifactRulesDir,
		ArtifactWorkflowsDir,
		ArtifactGitIgnore,
		ArtifactAIIgnore,
	}
}

// structuredArtifact is a desired structured fragment bound to a path.
type structuredArtifact struct {
	RelPath string
	Desired map[string]any
}

// textArtifact is a desired set of lines bound to a path.
type textArtifact struct {
	RelPath string
	Lines   []string
}

// stackArtifacts composes the desired artifacts for one stack. The
// bodies are deliberately minimal; the merge path is the contract, the
// prose and key/value content is replaceable.
func stackArtifacts(stack Stack, cfg StackContentConfig) (structured []structuredArtifact, text []textArtifact) {
	switch stack {
	case StackPython:
		structured = append(structured, structuredArtifact{
			RelPath: ArtifactEditorSettings,
			Desired: map[string]any{
				"python.terminal.activateEnvironment": true,
				"[python]": map[string]any{
					"editor.formatOnSave": true,
				},
			},
		})
		structured = append(structured, structuredArtifact{
			RelPath: ArtifactEditorExtensions,
			Desired: map[string]any{
				"recommendations": []any{"ms-python.python", "charliermarsh.ruff"},
			},
		})
		text = append(text, ruleFile(StackPython,
			fmt.Sprintf("Use %s for dependency and environment management.", cfg.PythonRuntime)))
	case StackWeb:
		structured = append(structured, structuredArtifact{
			RelPath: ArtifactEditorSettings,
			Desired: map[string]any{
				"editor.codeActionsOnSave": map[string]any{
					"source.fixAll.eslint": "explicit",
				},
			},
		})
		structured = append(structured, structuredArtifact{
			RelPath: ArtifactEditorExtensions,
			Desired: map[string]any{
				"recommendations": []any{"dbaeumer.vscode-eslint", "esbenp.prettier-vscode"},
			},
		})
		text = append(text, ruleFile(StackWeb,
			"Prefer TypeScript; keep runtime dependencies minimal."))
	case StackRust:
		structured = append(structured, structuredArtifact{
			RelPath: ArtifactEditorSettings,
			Desired: map[string]any{
				"rust-analyzer.check.command": "clippy",
			},
		})
		structured = append(structured, structuredArtifact{
			RelPath: ArtifactEditorExtensions,
			Desired: map[string]any{
				"recommendations": []any{"rust-lang.rust-analyzer"},
			},
		})
		text = append(text, ruleFile(StackRust,
			"Run clippy and rustfmt before committing."))
	case StackCpp:
		structured = append(structured, structuredArtifact{
			RelPath: ArtifactEditorSettings,
			Desired: map[string]any{
				"cmake.configureOnOpen": true,
			},
		})
		text = append(text, ruleFile(StackCpp,
			"Build out of tree; keep CMakeLists.txt the single source of truth."))
	case StackDocker:
		text = append(text, ruleFile(StackDocker,
			"Pin base image digests; prefer multi-stage builds."))
	}
	if cfg.CIEnabled {
		structured = append(structured, ciWorkflow(stack, cfg))
	}
	return structured, text
}

// StackContentConfig carries the configuration knobs that shape
// generated content.
type StackContentConfig struct {
	// PythonRuntime is the environment manager named in python rules
	// and CI ("uv" by default).
	PythonRuntime string

	// CIEnabled controls whether workflow artifacts are scaffolded.
	CIEnabled bool

	// CIBranch is the branch CI triggers on ("main" by default).
	CIBranch string
}

// ciWorkflow builds the per-stack CI workflow document. Workflow files
// are YAML and merge structurally like any other structured artifact.
func ciWorkflow(stack Stack, cfg StackContentConfig) structuredArtifact {
	branch := cfg.CIBranch
	if branch == "" {
		branch = "main"
	}

	var steps []any
	switch stack {
	case StackPython:
		steps = []any{
			map[string]any{"uses": "actions/checkout@v4"},
			map[string]any{"run": cfg.PythonRuntime + " sync"},
			map[string]any{"run": cfg.PythonRuntime + " run pytest"},
		}
	case StackWeb:
		steps = []any{
			map[string]any{"uses": "actions/checkout@v4"},
			map[string]any{"run": "npm ci"},
			map[string]any{"run": "npm test"},
		}
	case StackRust:
		steps = []any{
			map[string]any{"uses": "actions/checkout@v4"},
			map[string]any{"run": "cargo build --locked"},
			map[string]any{"run": "cargo test"},
		}
	case StackCpp:
		steps = []any{
			map[string]any{"uses": "actions/checkout@v4"},
			map[string]any{"run": "cmake -B build"},
			map[string]any{"run": "cmake --build build"},
		}
	case StackDocker:
		steps = []any{
			map[string]any{"uses": "actions/checkout@v4"},
			map[string]any{"run": "docker build ."},
		}
	}

	return structuredArtifact{
		RelPath: filepath.Join(ArtifactWorkflowsDir, string(stack)+".yml"),
		Desired: map[string]any{
			"name": string(stack) + " ci",
			"on":   map[string]any{"push": map[string]any{"branches": []any{branch}}},
			"jobs": map[string]any{
				string(stack): map[string]any{
					"runs-on": "ubuntu-latest",
					"steps":   steps,
				},
			},
		},
	}
}

func ruleFile(stack Stack, lines ...string) textArtifact {
	header := []string{fmt.Sprintf("# %s rules", stack)}
	return textArtifact{
		RelPath: filepath.Join(ArtifactRulesDir, string(stack)+".md"),
		Lines:   append(header, lines...),
	}
}

// baseIgnorePatterns are scaffolded into .gitignore regardless of the
// detected stacks.
func baseIgnorePatterns() []string {
	return []string{
		".precursor/",
		".env",
		"*.log",
	}
}

// aiIgnorePatterns keep bulky or sensitive paths out of AI-assistant
// context windows.
func aiIgnorePatterns() []string {
	return []string{
		".precursor/",
		".env",
		"node_modules/",
		"target/",
		"dist/",
		"build/",
		"__pycache__/",
	}
}

// stackIgnorePatterns extends .gitignore per stack.
func stackIgnorePatterns(stack Stack) []string {
	switch stack {
	case StackPython:
		return []string{"__pycache__/", ".venv/", "*.pyc"}
	case StackWeb:
		return []string{"node_modules/", "dist/"}
	case StackRust:
		return []string{"target/"}
	case StackCpp:
		return []string{"build/"}
	case StackDocker:
		return nil
	}
	return nil
}

// mcpConfig is the stack-independent AI-assistant server config
// fragment. Merged, never replaced, so user-registered servers survive.
func mcpConfig() map[string]any {
	return map[string]any{
		"mcpServers": map[string]any{},
	}
}
