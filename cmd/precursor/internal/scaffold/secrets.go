// Copyright (C) 2026 Precursor Authors (dev@precursorhq.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package scaffold

import (
	"math"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// SecretFinding is one suspected hardcoded secret.
type SecretFinding struct {
	// Pattern is the name of the matching rule.
	Pattern string

	// File is the path relative to the scanned root.
	File string

	// Line is the 1-based line number.
	Line int

	// Message describes what was detected. Never contains the value.
	Message string
}

// SecretPattern is one detection rule.
type SecretPattern struct {
	Name       string
	Pattern    string
	MinEntropy float64
	Message    string
}

// defaultSecretPatterns detect common credential formats. Low-entropy
// matches are discarded to cut false positives on placeholder values.
func defaultSecretPatterns() []SecretPattern {
	return []SecretPattern{
		{
			Name:       "AWS Access Key",
			Pattern:    `AKIA[0-9A-Z]{16}`,
			MinEntropy: 3.0,
			Message:    "AWS Access Key ID detected",
		},
		{
			Name:       "Stripe API Key",
			Pattern:    `sk_live_[0-9a-zA-Z]{24,}`,
			MinEntropy: 4.0,
			Message:    "Stripe live API key detected",
		},
		{
			Name:       "OpenAI API Key",
			Pattern:    `sk-[a-zA-Z0-9]{32,}`,
			MinEntropy: 4.0,
			Message:    "OpenAI API key detected",
		},
		{
			Name:       "GitHub Token",
			Pattern:    `gh[pousr]_[A-Za-z0-9_]{36,}`,
			MinEntropy: 4.0,
			Message:    "GitHub token detected",
		},
		{
			Name:       "Private Key Block",
			Pattern:    `-----BEGIN (RSA|EC|PGP|OPENSSH)? ?PRIVATE KEY( BLOCK)?-----`,
			MinEntropy: -1, // Header match alone is conclusive
			Message:    "Private key material detected",
		},
		{
			Name:       "Generic Secret Assignment",
			Pattern:    `(?i)(api[_-]?key|secret|token|password)\s*[:=]\s*['"][A-Za-z0-9+/_\-]{20,}['"]`,
			MinEntropy: 3.5,
			Message:    "Hardcoded credential assignment detected",
		},
	}
}

// SecretScanner scans workspace files for hardcoded secrets.
//
// # Description
//
// Best-effort pattern matching combined with Shannon-entropy scoring to
// reduce false positives. The per-content scan is a pure function over
// explicit inputs so it can be tested without a filesystem. Findings
// never include the matched value, only its location and rule name.
type SecretScanner struct {
	patterns   []compiledSecretPattern
	minEntropy float64
	excludes   []string
}

type compiledSecretPattern struct {
	SecretPattern
	regex *regexp.Regexp
}

// SecretScanConfig configures the scanner.
type SecretScanConfig struct {
	// MinEntropy is the fallback entropy threshold for patterns that do
	// not set their own. Default: 3.5
	MinEntropy float64

	// Excludes are doublestar globs (relative to the scanned root) whose
	// matches are skipped, e.g. "testdata/**" or "**/*.example".
	Excludes []string
}

// NewSecretScanner creates a scanner with the default rule set.
func NewSecretScanner(config SecretScanConfig) *SecretScanner {
	if config.MinEntropy <= 0 {
		config.MinEntropy = 3.5
	}
	s := &SecretScanner{minEntropy: config.MinEntropy, excludes: config.Excludes}
	for _, p := range defaultSecretPatterns() {
		s.patterns = append(s.patterns, compiledSecretPattern{
			SecretPattern: p,
			regex:         regexp.MustCompile(p.Pattern),
		})
	}
	return s
}

// ScanContent scans one file's content for secrets.
//
// # Inputs
//
//   - content: File content.
//   - relPath: Path relative to the scanned root, used for reporting
//     and exclude matching.
//
// # Outputs
//
//   - []SecretFinding: Findings, nil when clean.
func (s *SecretScanner) ScanContent(content []byte, relPath string) []SecretFinding {
	if s.isExcluded(relPath) {
		return nil
	}

	var findings []SecretFinding
	for lineNum, line := range strings.Split(string(content), "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || isCommentLine(trimmed) {
			continue
		}
		for _, p := range s.patterns {
			for _, match := range p.regex.FindAllString(line, -1) {
				// Negative MinEntropy means the pattern match alone is
				// conclusive (private key headers); zero falls back to
				// the scanner-wide threshold.
				minEntropy := p.MinEntropy
				if minEntropy == 0 {
					minEntropy = s.minEntropy
				}
				if minEntropy > 0 && shannonEntropy(extractSecretValue(match)) < minEntropy {
					continue
				}
				findings = append(findings, SecretFinding{
					Pattern: p.Name,
					File:    relPath,
					Line:    lineNum + 1,
					Message: p.Message,
				})
			}
		}
	}
	return findings
}

// ScanTree walks root and scans every regular file, skipping noise
// directories and binary-looking content. Filesystem errors are
// swallowed per entry; the scan is best-effort.
func (s *SecretScanner) ScanTree(root string) []SecretFinding {
	var findings []SecretFinding
	filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if noiseDirs[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		rel, rerr := filepath.Rel(root, path)
		if rerr != nil {
			return nil
		}
		content, rerr := os.ReadFile(path)
		if rerr != nil || looksBinary(content) {
			return nil
		}
		findings = append(findings, s.ScanContent(content, filepath.ToSlash(rel))...)
		return nil
	})
	return findings
}

func (s *SecretScanner) isExcluded(relPath string) bool {
	for _, glob := range s.excludes {
		if ok, err := doublestar.Match(glob, relPath); err == nil && ok {
			return true
		}
	}
	return false
}

// shannonEntropy scores a string's randomness; real credentials score
// high, placeholders like "xxx" or "changeme" score low.
func shannonEntropy(s string) float64 {
	if len(s) == 0 {
		return 0
	}
	freq := make(map[rune]int)
	for _, r := range s {
		freq[r]++
	}
	var entropy float64
	length := float64(len(s))
	for _, count := range freq {
		p := float64(count) / length
		entropy -= p * math.Log2(p)
	}
	return entropy
}

// extractSecretValue pulls the likely secret value out of a match like
// key="value" or key: value.
func extractSecretValue(match string) string {
	for _, sep := range []string{"=", ":", " "} {
		if idx := strings.Index(match, sep); idx > 0 {
			value := strings.TrimSpace(match[idx+1:])
			return strings.Trim(value, `"'`)
		}
	}
	return match
}

func isCommentLine(line string) bool {
	return strings.HasPrefix(line, "//") ||
		strings.HasPrefix(line, "#") ||
		strings.HasPrefix(line, "/*") ||
		strings.HasPrefix(line, "*")
}

func looksBinary(content []byte) bool {
	limit := len(content)
	if limit > 512 {
		limit = 512
	}
	for _, b := range content[:limit] {
		if b == 0 {
			return true
		}
	}
	return false
}
