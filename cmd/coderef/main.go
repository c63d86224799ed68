// Copyright 2026 CodeRef Authors
//
// SPDX-License-Identifier: Apache-2.0

// Command coderef is the operator CLI for coderef: init a project,
// index a repository, inspect status, run a raw CozoScript query, or
// reset local data. For the MCP tool surface LLM agents talk to, see
// cmd/coderefd.
//
// Usage:
//
//	coderef init                       Create .coderef/project.yaml
//	coderef index                      Index the current repository
//	coderef status [--json]            Show project status
//	coderef query <script> [--json]    Execute a raw CozoScript query
//	coderef reset --yes                Delete local project data
package main

import (
	"fmt"
	"os"

	flag "github.com/spf13/pflag"
)

// version is set via -ldflags at build time.
var version = "dev"

// GlobalFlags are flags recognized before the subcommand name.
type GlobalFlags struct {
	JSON       bool
	ConfigPath string
}

func main() {
	fs := flag.NewFlagSet("coderef", flag.ContinueOnError)
	var globals GlobalFlags
	fs.BoolVar(&globals.JSON, "json", false, "output as JSON where supported")
	fs.StringVar(&globals.ConfigPath, "config", "", "path to .coderef/project.yaml")
	showVersion := fs.Bool("version", false, "show version and exit")
	fs.Usage = usage

	args := os.Args[1:]
	splitAt := len(args)
	for i, a := range args {
		if a != "" && a[0] != '-' {
			splitAt = i
			break
		}
	}
	if err := fs.Parse(args[:splitAt]); err != nil {
		os.Exit(1)
	}
	if *showVersion {
		fmt.Printf("coderef version %s\n", version)
		os.Exit(0)
	}

	rest := args[splitAt:]
	if len(rest) == 0 {
		usage()
		os.Exit(1)
	}

	command, cmdArgs := rest[0], rest[1:]
	switch command {
	case "init":
		runInit(cmdArgs)
	case "index":
		runIndex(cmdArgs, globals)
	case "status":
		runStatus(cmdArgs, globals)
	case "query":
		runQuery(cmdArgs, globals)
	case "reset":
		runReset(cmdArgs, globals)
	default:
		fmt.Fprintf(os.Stderr, "coderef: unknown command %q\n", command)
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprint(os.Stderr, `coderef - code intelligence engine CLI

Usage:
  coderef <command> [options]

Commands:
  init      Create .coderef/project.yaml configuration
  index     Index the current repository
  status    Show project status
  query     Execute a raw CozoScript query
  reset     Delete local project data (destructive)

Global Options:
  --config    Path to .coderef/project.yaml
  --json      Output as JSON where supported
  --version   Show version and exit

Data is stored locally under ~/.coderef/data/<project_id>/.
`)
}
