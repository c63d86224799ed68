// Copyright 2026 CodeRef Authors
//
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"os"
	"path/filepath"

	flag "github.com/spf13/pflag"

	"github.com/coderef-dev/coderef/internal/config"
	coderrors "github.com/coderef-dev/coderef/internal/errors"
	"github.com/coderef-dev/coderef/internal/ui"
)

// runReset deletes a project's local data directory. Destructive;
// requires --yes.
func runReset(args []string, globals GlobalFlags) {
	fs := flag.NewFlagSet("reset", flag.ExitOnError)
	confirm := fs.Bool("yes", false, "confirm the reset (required)")

	fs.Usage = func() {
		fmt.Fprint(os.Stderr, `Usage: coderef reset --yes

Deletes all local indexed data for the project. Cannot be undone.

Options:
`)
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	if !*confirm {
		fmt.Fprint(os.Stderr, "Error: pass --yes to confirm. This deletes all indexed data for the project.\n")
		os.Exit(1)
	}

	cfg, err := LoadProjectConfig(globals.ConfigPath)
	if err != nil {
		coderrors.FatalError(err, globals.JSON)
	}

	dataDir, err := resolveDataDir(cfg)
	if err != nil {
		coderrors.FatalError(err, globals.JSON)
	}

	if _, err := os.Stat(dataDir); os.IsNotExist(err) {
		fmt.Printf("No local data found for project %s\n", cfg.ProjectID)
		return
	}

	fmt.Printf("Resetting project %s (deleting %s)...\n", cfg.ProjectID, dataDir)
	if err := os.RemoveAll(dataDir); err != nil {
		coderrors.FatalError(coderrors.NewStorageError(coderrors.CodeStorageCorrupt,
			"failed to delete data", err.Error(), "check filesystem permissions", err), globals.JSON)
	}
	ui.Success("Reset complete. All local indexed data has been deleted.")
	fmt.Println("Run 'coderef index' to reindex the project.")
}

func resolveDataDir(cfg config.Config) (string, error) {
	if cfg.DataDir != "" {
		return cfg.DataDir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home dir: %w", err)
	}
	return filepath.Join(home, ".coderef", "data", cfg.ProjectID), nil
}
