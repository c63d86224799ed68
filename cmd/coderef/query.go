// Copyright 2026 CodeRef Authors
//
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"text/tabwriter"

	flag "github.com/spf13/pflag"

	"github.com/coderef-dev/coderef/internal/bootstrap"
	coderrors "github.com/coderef-dev/coderef/internal/errors"
	"github.com/coderef-dev/coderef/internal/output"
	cozo "github.com/coderef-dev/coderef/pkg/cozodb"
)

// runQuery executes the 'query' command: a raw, read-only CozoScript
// query against the project's GraphStore, for ad-hoc inspection
// outside the structured query ops the MCP tools expose.
func runQuery(args []string, globals GlobalFlags) {
	fs := flag.NewFlagSet("query", flag.ExitOnError)
	limit := fs.Int("limit", 0, "add :limit to the query (0 = no limit)")

	fs.Usage = func() {
		fmt.Fprint(os.Stderr, `Usage: coderef query [options] <cozoscript>

Executes a read-only CozoScript query against the local coderef database.

Examples:
  coderef query "?[name, language] := *coderef_entity{name, language}" --limit 10
  coderef query "?[count(id)] := *coderef_file{id}"

Options:
`)
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	if fs.NArg() == 0 {
		fmt.Fprint(os.Stderr, "Error: script argument required\n")
		fs.Usage()
		os.Exit(1)
	}

	script := strings.TrimSpace(fs.Arg(0))
	if *limit > 0 && !strings.Contains(strings.ToLower(script), ":limit") {
		script = fmt.Sprintf("%s :limit %d", script, *limit)
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
		coderrors.FatalError(err, globals.JSON)
	}
	defer func() { _ = gs.Close() }()

	result, err := gs.DB().RunReadOnly(script, nil)
	if err != nil {
		coderrors.FatalError(coderrors.NewStorageError(coderrors.CodeStorageCorrupt,
			"query failed", err.Error(), "check the CozoScript syntax and relation names", err), globals.JSON)
	}

	if globals.JSON {
		_ = output.JSON(result)
		return
	}
	printQueryResult(result)
}

func printQueryResult(result cozo.NamedRows) {
	if len(result.Rows) == 0 {
		fmt.Println("No results")
		return
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	for i, h := range result.Headers {
		if i > 0 {
			fmt.Fprint(w, "\t")
		}
		fmt.Fprint(w, strings.ToUpper(h))
	}
	fmt.Fprintln(w)
	for i := range result.Headers {
		if i > 0 {
			fmt.Fprint(w, "\t")
		}
		fmt.Fprint(w, "---")
	}
	fmt.Fprintln(w)
	for _, row := range result.Rows {
		for i, cell := range row {
			if i > 0 {
				fmt.Fprint(w, "\t")
			}
			fmt.Fprint(w, formatCell(cell))
		}
		fmt.Fprintln(w)
	}
	_ = w.Flush()
	fmt.Printf("\n(%d rows)\n", len(result.Rows))
}

func formatCell(v any) string {
	switch val := v.(type) {
	case string:
		if len(val) > 60 {
			return val[:57] + "..."
		}
		return val
	case float64:
		if val == float64(int(val)) {
			return fmt.Sprintf("%d", int(val))
		}
		return fmt.Sprintf("%.2f", val)
	case nil:
		return "<null>"
	default:
		s := fmt.Sprintf("%v", val)
		if len(s) > 60 {
			return s[:57] + "..."
		}
		return s
	}
}
