// Copyright 2026 CodeRef Authors
//
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	flag "github.com/spf13/pflag"

	"github.com/coderef-dev/coderef/internal/config"
	"github.com/coderef-dev/coderef/internal/ui"
)

// runInit creates .coderef/project.yaml, prompting interactively
// unless -y is given.
func runInit(args []string) {
	fs := flag.NewFlagSet("init", flag.ExitOnError)
	force := fs.Bool("force", false, "overwrite existing configuration")
	nonInteractive := fs.BoolP("yes", "y", false, "non-interactive mode, use defaults")
	projectID := fs.String("project-id", "", "project identifier (default: directory name)")
	embeddingProvider := fs.String("embedding-provider", "", "embedding provider: ollama, openai, or mock")

	fs.Usage = func() {
		fmt.Fprint(os.Stderr, `Usage: coderef init [options]

Creates .coderef/project.yaml configuration file.

Options:
`)
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	cwd, err := os.Getwd()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: cannot get current directory: %v\n", err)
		os.Exit(1)
	}

	path := ConfigPath(cwd)
	if _, err := os.Stat(path); err == nil && !*force {
		fmt.Fprintf(os.Stderr, "Error: %s already exists. Use --force to overwrite.\n", path)
		os.Exit(1)
	}

	cfg := config.Default()
	cfg.ProjectID = *projectID
	if cfg.ProjectID == "" {
		cfg.ProjectID = filepath.Base(cwd)
	}
	if *embeddingProvider != "" {
		cfg.EmbeddingProvider = *embeddingProvider
	}

	if !*nonInteractive {
		reader := bufio.NewReader(os.Stdin)
		ui.Header("coderef Project Configuration")
		cfg.ProjectID = prompt(reader, "Project ID", cfg.ProjectID)
		fmt.Println()
		fmt.Println("Embedding providers: ollama, openai, mock")
		cfg.EmbeddingProvider = prompt(reader, "Embedding provider", cfg.EmbeddingProvider)
	}

	if err := SaveProjectConfig(cfg, path); err != nil {
		fmt.Fprintf(os.Stderr, "Error: cannot save configuration: %v\n", err)
		os.Exit(1)
	}
	ui.Successf("Created %s", path)
	addToGitignore(cwd)

	fmt.Println()
	fmt.Println("Next steps:")
	fmt.Println("  1. Review and edit .coderef/project.yaml if needed")
	fmt.Println("  2. Run 'coderef index' to index your repository")
	fmt.Println("  3. Run 'coderef status' to verify indexing")
}

// prompt displays label and a bracketed default, returning the typed
// value or defaultValue if the user presses Enter without input.
func prompt(reader *bufio.Reader, label, defaultValue string) string {
	if defaultValue != "" {
		fmt.Printf("%s [%s]: ", label, defaultValue)
	} else {
		fmt.Printf("%s: ", label)
	}
	input, _ := reader.ReadString('\n')
	input = strings.TrimSpace(input)
	if input == "" {
		return defaultValue
	}
	return input
}

// addToGitignore adds .coderef/ to dir's .gitignore if not already
// present. Silently does nothing if .gitignore can't be read or
// written.
func addToGitignore(dir string) {
	gitignorePath := filepath.Join(dir, ".gitignore")
	content, err := os.ReadFile(gitignorePath) //nolint:gosec // G304: path built from repo dir
	if err != nil {
		return
	}
	for _, line := range strings.Split(string(content), "\n") {
		line = strings.TrimSpace(line)
		if line == ".coderef/" || line == ".coderef" || line == "/.coderef/" || line == "/.coderef" {
			return
		}
	}
	f, err := os.OpenFile(gitignorePath, os.O_APPEND|os.O_WRONLY, 0o600) //nolint:gosec // G304: path built from repo dir
	if err != nil {
		return
	}
	defer func() { _ = f.Close() }()
	if len(content) > 0 && content[len(content)-1] != '\n' {
		_, _ = f.WriteString("\n")
	}
	_, _ = f.WriteString("\n# coderef configuration\n.coderef/\n")
	fmt.Println("Added .coderef/ to .gitignore")
}
