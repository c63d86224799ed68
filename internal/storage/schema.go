// Copyright 2026 CodeRef Authors
//
// SPDX-License-Identifier: Apache-2.0

// Package storage implements GraphStore and VectorStore on top of
// CozoDB: one coherent hybrid graph + vector engine backing both the
// structural code graph and the semantic embedding index.
package storage

import "strings"

// schemaStatements creates the coderef relations if they don't already
// exist. Grounded on kraklabs-cie's EnsureSchema (one :create per
// relation, tolerate "already exists"), extended to the entity/
// relationship/embedding schema SPEC_FULL.md §3 specifies in place of
// the teacher's function/type-specific tables.
var schemaStatements = []string{
	`:create coderef_file { id: String => path: String, language: String, fingerprint: String, size: Int, last_seen: Int }`,
	`:create coderef_entity { id: String => kind: String, name: String, qualified_name: String, language: String, file_id: String, start_line: Int, start_col: Int, start_byte: Int, end_line: Int, end_col: Int, end_byte: Int, parent_id: String default '', return_type: String default '', content_hash: String default '' }`,
	`:create coderef_entity_code { entity_id: String => code_text: String }`,
	`:create coderef_entity_modifier { entity_id: String, modifier: String }`,
	`:create coderef_param { entity_id: String, ordinal: Int => name: String, type_text: String default '', default_text: String default '', variadic: Bool default false }`,
	`:create coderef_relationship { id: String => source_id: String, target_id: String default '', target_name: String, kind: String, file_id: String, start_byte: Int, resolved: Bool default false }`,
	`:create coderef_embedding { entity_id: String => model: String, dim: Int, content_hash: String, vector: <F32; 384> }`,
	`:create coderef_meta { id: Int => schema_version: Int }`,
}

// CurrentSchemaVersion is the schema version this binary writes and
// expects. Bump it whenever schemaStatements changes in a way old code
// can't read, and add a migration path before doing so.
const CurrentSchemaVersion = 1

// hnswStatements builds the HNSW vector index over coderef_embedding.
// Issued separately from schema creation because it must run after the
// relation exists, and re-creating it on an already-indexed store is a
// (tolerated) no-op error.
var hnswStatements = []string{
	`::hnsw create coderef_embedding:hnsw_idx { dim: 384, m: 16, ef_construction: 200, fields: [vector], distance: Cosine }`,
}

// alreadyExists reports whether err is CozoDB's "already exists" style
// error, which EnsureSchema/EnsureIndexes tolerate to stay idempotent.
func alreadyExists(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "already exists") || strings.Contains(msg, "already created")
}
