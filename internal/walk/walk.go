// Copyright 2026 CodeRef Authors
//
// SPDX-License-Identifier: Apache-2.0

// Package walk discovers source files under a directory for the
// `index` tool: a filesystem walk filtered by exclude glob patterns
// and recognized-language extensions.
package walk

import (
	"os"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/coderef-dev/coderef/internal/parser"
)

// DefaultExcludes are applied in addition to any caller-supplied
// patterns, matching the directories every indexer skips regardless of
// project-specific configuration.
var DefaultExcludes = []string{
	"**/.git/**",
	"**/node_modules/**",
	"**/vendor/**",
	"**/.coderef/**",
}

// File is one discovered source file, already classified by language.
type File struct {
	Path     string
	Language parser.Language
}

// Walk collects every regular file under root whose relative path
// matches a known language extension and clears every exclude pattern
// (DefaultExcludes plus excludePatterns, doublestar glob syntax,
// matched against both the absolute and root-relative path so patterns
// written either way behave as expected). Ordered by path, for
// deterministic batch assignment downstream.
func Walk(root string, excludePatterns []string) ([]File, error) {
	patterns := make([]string, 0, len(DefaultExcludes)+len(excludePatterns))
	patterns = append(patterns, DefaultExcludes...)
	patterns = append(patterns, excludePatterns...)

	var out []File
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			rel = path
		}
		if excluded(patterns, path) || excluded(patterns, rel) {
			return nil
		}
		lang, ok := parser.LanguageForExtension(filepath.Ext(path))
		if !ok {
			return nil
		}
		out = append(out, File{Path: path, Language: lang})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func excluded(patterns []string, path string) bool {
	for _, p := range patterns {
		if matched, err := doublestar.Match(p, path); err == nil && matched {
			return true
		}
	}
	return false
}
