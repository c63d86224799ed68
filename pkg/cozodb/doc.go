// Copyright 2026 CodeRef Authors
//
// SPDX-License-Identifier: Apache-2.0

// Package cozodb provides a Go binding for CozoDB v0.7.6+.
//
// CozoDB is a Datalog-based embedded database designed for graph queries
// and complex data relationships. coderef uses it as the single store for
// both the code graph (files, entities, relationships) and the vector
// index (entity embeddings, via CozoDB's native HNSW index) — one
// coherent hybrid graph+vector engine rather than two separate systems.
//
// # Requirements
//
// This package requires CGO and the CozoDB C library (libcozo_c). Build with:
//
//	CGO_ENABLED=1 go build
//
// The CozoDB library must be installed on your system:
//
//	# macOS (Homebrew)
//	brew install cozodb
//
//	# Linux (from source or package manager)
//	# See https://github.com/cozodb/cozo for installation
//
// You may need to set library paths:
//
//	export CGO_LDFLAGS="-L/path/to/libcozo_c"
//	export CGO_CFLAGS="-I/path/to/cozo_c.h"
//
// # Storage Engines
//
// CozoDB supports multiple storage backends:
//   - "mem": in-memory, fast but not persisted (good for testing)
//   - "sqlite": SQLite-backed, single-file persistence
//   - "rocksdb": RocksDB-backed, best performance for production
//
// # Quick Start
//
//	db, err := cozodb.New("rocksdb", "/path/to/data", nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer db.Close()
//
//	result, err := db.Run(`?[x] := x = 1 + 1`, nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Printf("1 + 1 = %v\n", result.Rows[0][0])
//
// # Read-Only Queries
//
//	result, err := db.RunReadOnly(`?[name] := *coderef_entity{name}`, nil)
//
// # Parameterized Queries
//
//	params := map[string]any{"name": "main"}
//	result, err := db.Run(`
//	    ?[qualified_name, file_id] :=
//	        *coderef_entity{name, qualified_name, file_id},
//	        name == $name
//	`, params)
//
// # Backup and Restore
//
//	err := db.Backup("/path/to/backup.db")
//	err := db.Restore("/path/to/backup.db")
//
// # coderef Data Model
//
// coderef uses these relations (see internal/storage for the schema DDL):
//
//	coderef_file              - indexed source files with metadata
//	coderef_entity            - functions, methods, classes, types, ...
//	coderef_entity_code       - entity source text (separate for lazy loading)
//	coderef_entity_modifier   - one row per (entity, modifier) pair
//	coderef_param             - ordered parameter lists
//	coderef_relationship      - directed typed edges between entities
//	coderef_embedding         - dense vectors, HNSW-indexed for semantic search
//
// # Version Compatibility
//
// This binding targets CozoDB v0.7.6+ which includes the immutable_query
// parameter in the C API. Earlier versions may not work correctly with
// RunReadOnly.
package cozodb
