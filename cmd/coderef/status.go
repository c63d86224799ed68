// Copyright 2026 CodeRef Authors
//
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	flag "github.com/spf13/pflag"

	"github.com/coderef-dev/coderef/internal/bootstrap"
	coderrors "github.com/coderef-dev/coderef/internal/errors"
	"github.com/coderef-dev/coderef/internal/output"
	"github.com/coderef-dev/coderef/internal/ui"
)

// StatusResult is the project status for --json output.
type StatusResult struct {
	ProjectID     string    `json:"project_id"`
	DataDir       string    `json:"data_dir"`
	Connected     bool      `json:"connected"`
	Files         int       `json:"files"`
	Entities      int       `json:"entities"`
	Relationships int       `json:"relationships"`
	Error         string    `json:"error,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}

// runStatus executes the 'status' command, reporting entity/relationship
// counts from the project's GraphStore.
func runStatus(args []string, globals GlobalFlags) {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprint(os.Stderr, `Usage: coderef status [options]

Shows local project status.

Options:
`)
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	cfg, err := LoadProjectConfig(globals.ConfigPath)
	if err != nil {
		coderrors.FatalError(err, globals.JSON)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	gs, err := bootstrap.OpenProject(bootstrap.ProjectConfig{
		ProjectID: cfg.ProjectID, DataDir: cfg.DataDir, Engine: cfg.Engine,
	}, logger)
	if err != nil {
		result := &StatusResult{ProjectID: cfg.ProjectID, Connected: false, Error: err.Error(), Timestamp: time.Now()}
		if globals.JSON {
			_ = output.JSON(result)
		} else {
			fmt.Printf("Project %q not indexed yet. Run 'coderef index' first.\n", cfg.ProjectID)
		}
		return
	}
	defer func() { _ = gs.Close() }()

	ctx := context.Background()
	entities, _ := gs.AllEntities(ctx)
	relationships, _ := gs.AllRelationships(ctx)
	fileSet := make(map[string]struct{})
	for _, e := range entities {
		fileSet[e.FileID] = struct{}{}
	}

	result := &StatusResult{
		ProjectID:     cfg.ProjectID,
		DataDir:       cfg.DataDir,
		Connected:     true,
		Files:         len(fileSet),
		Entities:      len(entities),
		Relationships: len(relationships),
		Timestamp:     time.Now(),
	}

	if globals.JSON {
		_ = output.JSON(result)
		return
	}
	ui.Header("coderef Project Status")
	fmt.Printf("Project ID:     %s\n", result.ProjectID)
	fmt.Printf("Data Dir:       %s\n", result.DataDir)
	fmt.Println()
	fmt.Println("Entities:")
	fmt.Printf("  Files:          %s\n", ui.CountText(result.Files))
	fmt.Printf("  Entities:       %s\n", ui.CountText(result.Entities))
	fmt.Printf("  Relationships:  %s\n", ui.CountText(result.Relationships))
}
