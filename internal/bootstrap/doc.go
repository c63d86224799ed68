// Copyright 2026 CodeRef Authors
//
// SPDX-License-Identifier: Apache-2.0

// Package bootstrap handles coderef project initialization and setup.
//
// It creates the embedded CozoDB database with the coderef schema and
// indexes, and ensures the prerequisites the agent registry and
// conductor depend on are met before a project can be used.
//
// # Initialization workflow
//
//	gs, info, err := bootstrap.InitProject(bootstrap.ProjectConfig{
//	    ProjectID: "myproject",
//	    Engine:    "rocksdb", // optional, defaults to rocksdb
//	}, logger)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer gs.Close()
//	fmt.Printf("project initialized at: %s\n", info.DataDir)
//
//	// later, open the project for queries
//	gs, err := bootstrap.OpenProject(bootstrap.ProjectConfig{ProjectID: "myproject"}, logger)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer gs.Close()
//
// # Idempotency
//
// InitProject is idempotent: calling it again against the same data
// directory opens the existing database rather than recreating it.
//
// # Configuration
//
//   - ProjectID: required, the logical project identifier.
//   - DataDir: optional, defaults to ~/.coderef/data/<project_id>.
//   - Engine: optional, one of "mem", "sqlite", "rocksdb"; defaults to "rocksdb".
//
// # Project discovery
//
//	projects, err := bootstrap.ListProjects()
//	for _, id := range projects {
//	    fmt.Println(id)
//	}
package bootstrap
