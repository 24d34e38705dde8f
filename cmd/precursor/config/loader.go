// Copyright (C) 2026 Precursor Authors (dev@precursorhq.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/precursorhq/precursor/cmd/precursor/internal/scaffold"
)

// candidateNames are tried in order at the invocation directory; the
// first match wins.
var candidateNames = []string{
	"precursor.json",
	"precursor.jsonc",
	"precursor.yaml",
	"precursor.yml",
}

// knownSections are the typed top-level keys; anything else lands in
// the Extra bag.
var knownSections = map[string]bool{
	"python": true, "web": true, "rust": true, "cpp": true,
	"docker": true, "workspace": true, "ci": true, "secrets": true,
	"backup": true, "tools": true,
}

// Load reads the effective configuration for the invocation directory.
//
// # Description
//
// Finds the first candidate config file under dir, parses it (the JSON
// variants tolerate comments and trailing commas), deep-merges the
// document over the built-in defaults, and validates the result. A
// missing file yields pure defaults. Unknown top-level keys are
// preserved in Extra.
func Load(dir string) (*Config, error) {
	raw, path, err := readFirst(dir)
	if err != nil {
		return nil, err
	}

	cfg := DefaultConfig()
	if raw == nil {
		return &cfg, validate(&cfg)
	}

	doc, err := parseDocument(path, raw)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", filepath.Base(path), err)
	}

	defaults, err := toMap(cfg)
	if err != nil {
		return nil, err
	}

	// User lists fully replace default lists; append semantics belong
	// to artifact merging, not configuration.
	merged := scaffold.Merge(defaults, doc, scaffold.MergeOptions{Arrays: scaffold.ArrayReplace})

	var out Config
	if err := fromMap(merged, &out); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", filepath.Base(path), err)
	}

	for k, v := range merged {
		if !knownSections[k] {
			if out.Extra == nil {
				out.Extra = make(map[string]any)
			}
			out.Extra[k] = v
		}
	}

	return &out, validate(&out)
}

func validate(cfg *Config) error {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.Struct(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// readFirst returns the first existing candidate file's content, or
// nil when no config file is present.
func readFirst(dir string) ([]byte, string, error) {
	for _, name := range candidateNames {
		path := filepath.Join(dir, name)
		raw, err := os.ReadFile(path)
		if err == nil {
			return raw, path, nil
		}
		if !os.IsNotExist(err) {
			return nil, "", fmt.Errorf("reading %s: %w", name, err)
		}
	}
	return nil, "", nil
}

func parseDocument(path string, raw []byte) (map[string]any, error) {
	var doc map[string]any
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(raw, &doc); err != nil {
			return nil, err
		}
	default:
		if err := json.Unmarshal(stripJSONC(raw), &doc); err != nil {
			return nil, err
		}
	}
	if doc == nil {
		doc = map[string]any{}
	}
	return doc, nil
}

func toMap(cfg Config) (map[string]any, error) {
	data, err := json.Marshal(cfg)
	if err != nil {
		return nil, err
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func fromMap(doc map[string]any, out *Config) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, out)
}

// stripJSONC removes // line comments, /* */ block comments, and
// trailing commas so the strict JSON decoder accepts JSONC input.
// String literals are left intact. Two passes: comments first, then
// trailing commas, so a comma followed by a comment and a closer is
// still recognized as trailing.
func stripJSONC(raw []byte) []byte {
	return stripTrailingCommas(stripComments(raw))
}

func stripComments(raw []byte) []byte {
	out := make([]byte, 0, len(raw))
	inString := false
	escaped := false
	i := 0

	for i < len(raw) {
		c := raw[i]

		if inString {
			out = append(out, c)
			if escaped {
				escaped = false
			} else if c == '\\' {
				escaped = true
			} else if c == '"' {
				inString = false
			}
			i++
			continue
		}

		switch {
		case c == '"':
			inString = true
			out = append(out, c)
			i++
		case c == '/' && i+1 < len(raw) && raw[i+1] == '/':
			for i < len(raw) && raw[i] != '\n' {
				i++
			}
		case c == '/' && i+1 < len(raw) && raw[i+1] == '*':
			i += 2
			for i+1 < len(raw) && !(raw[i] == '*' && raw[i+1] == '/') {
				i++
			}
			i += 2
		default:
			out = append(out, c)
			i++
		}
	}

	return out
}

func stripTrailingCommas(raw []byte) []byte {
	out := make([]byte, 0, len(raw))
	inString := false
	escaped := false

	for i := 0; i < len(raw); i++ {
		c := raw[i]

		if inString {
			out = append(out, c)
			if escaped {
				escaped = false
			} else if c == '\\' {
				escaped = true
			} else if c == '"' {
				inString = false
			}
			continue
		}

		if c == '"' {
			inString = true
			out = append(out, c)
			continue
		}

		if c == ',' {
			j := i + 1
			for j < len(raw) && (raw[j] == ' ' || raw[j] == '\t' || raw[j] == '\r' || raw[j] == '\n') {
				j++
			}
			if j < len(raw) && (raw[j] == '}' || raw[j] == ']') {
				continue
			}
		}

		out = append(out, c)
	}

	return out
}
