// Copyright 2026 CodeRef Authors
//
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	flag "github.com/spf13/pflag"

	"github.com/schollz/progressbar/v3"

	"github.com/coderef-dev/coderef/internal/agents"
	"github.com/coderef-dev/coderef/internal/conductor"
	"github.com/coderef-dev/coderef/internal/core"
	coderrors "github.com/coderef-dev/coderef/internal/errors"
	"github.com/coderef-dev/coderef/internal/ui"
	"github.com/coderef-dev/coderef/internal/walk"
)

// runIndex executes the 'index' command: walks the current repository,
// parses and extracts every recognized file, stores the result in the
// project's GraphStore, and embeds affected entities.
func runIndex(args []string, globals GlobalFlags) {
	fs := flag.NewFlagSet("index", flag.ExitOnError)
	debug := fs.Bool("debug", false, "enable debug logging")
	exclude := fs.StringSlice("exclude", nil, "additional glob patterns to exclude")

	fs.Usage = func() {
		fmt.Fprint(os.Stderr, `Usage: coderef index [options]

Indexes the current repository using .coderef/project.yaml.
Data is stored locally under ~/.coderef/data/<project_id>/.

Options:
`)
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	logLevel := slog.LevelInfo
	if *debug {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))

	cfg, err := LoadProjectConfig(globals.ConfigPath)
	if err != nil {
		coderrors.FatalError(err, globals.JSON)
	}

	cwd, err := os.Getwd()
	if err != nil {
		coderrors.FatalError(err, globals.JSON)
	}

	files, err := walk.Walk(cwd, *exclude)
	if err != nil {
		coderrors.FatalError(coderrors.NewInputError(coderrors.CodeInvalidPath,
			"failed to walk "+cwd, err.Error(), "check the path exists and is readable"), globals.JSON)
	}
	ui.Infof("Discovered %d files", len(files))

	rt, err := openRuntime(cfg, logger)
	if err != nil {
		coderrors.FatalError(err, globals.JSON)
	}
	defer rt.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	if err := rt.Start(ctx); err != nil {
		coderrors.FatalError(err, globals.JSON)
	}

	payload := buildParsePayload(files)

	var bar *progressbar.ProgressBar
	if !globals.JSON && len(files) > 0 {
		bar = progressbar.Default(int64(len(files)), "indexing")
	}
	result, err := rt.Conductor.IndexWithProgress(ctx, payload, func(done, total int) {
		if bar != nil {
			_ = bar.Set(done)
		}
	})
	if bar != nil {
		_ = bar.Finish()
	}
	if err != nil {
		coderrors.FatalError(err, globals.JSON)
	}

	printIndexResult(cfg.ProjectID, result)
}

// buildParsePayload maps a walk result into the ParserAgent's batch
// shape, assigning each file a deterministic ID keyed by path.
func buildParsePayload(files []walk.File) agents.ParsePayload {
	payload := agents.ParsePayload{
		FileID: make(map[string]string, len(files)),
		Files:  make([]agents.ParseFile, 0, len(files)),
	}
	for _, f := range files {
		payload.FileID[f.Path] = core.FileID(f.Path)
		payload.Files = append(payload.Files, agents.ParseFile{Path: f.Path, Language: f.Language})
	}
	return payload
}

func printIndexResult(projectID string, result *conductor.IndexResult) {
	fmt.Println()
	ui.Header("Indexing Complete")
	fmt.Printf("Project ID:       %s\n", projectID)
	fmt.Printf("Files Indexed:    %d\n", result.FilesIndexed)
	fmt.Printf("Entities:         %d\n", result.Entities)
	fmt.Printf("Duration:         %dms\n", result.DurationMS)
	if len(result.Errors) > 0 {
		ui.Warningf("%d files reported errors:", len(result.Errors))
		for _, e := range result.Errors {
			fmt.Printf("  %s\n", e)
		}
	}
}
