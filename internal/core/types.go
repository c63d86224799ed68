// Copyright 2026 CodeRef Authors
//
// SPDX-License-Identifier: Apache-2.0

// Package core defines the data model shared by every component of
// coderef: files, entities, relationships and embeddings, plus the
// deterministic ID scheme that ties them together across runs.
package core

// EntityKind enumerates the kinds of named constructs coderef indexes.
type EntityKind string

const (
	KindFunction  EntityKind = "function"
	KindMethod    EntityKind = "method"
	KindClass     EntityKind = "class"
	KindInterface EntityKind = "interface"
	KindType      EntityKind = "type"
	KindVariable  EntityKind = "variable"
	KindConstant  EntityKind = "constant"
	KindImport    EntityKind = "import"
	KindExport    EntityKind = "export"
	KindMacro     EntityKind = "macro"
	KindStruct    EntityKind = "struct"
	KindUnion     EntityKind = "union"
	KindEnum      EntityKind = "enum"
	KindNamespace EntityKind = "namespace"
	KindModule    EntityKind = "module"
	KindField     EntityKind = "field"
)

// RelationshipKind enumerates the directed edge kinds between entities.
type RelationshipKind string

const (
	RelCalls        RelationshipKind = "calls"
	RelImports      RelationshipKind = "imports"
	RelExtends      RelationshipKind = "extends"
	RelImplements   RelationshipKind = "implements"
	RelReferences   RelationshipKind = "references"
	RelContains     RelationshipKind = "contains"
	RelOverrides    RelationshipKind = "overrides"
	RelInstantiates RelationshipKind = "instantiates"
)

// Span locates a range of source text by line, column and byte offset.
// Lines and columns are 1-based; StartByte/EndByte are 0-based, matching the
// tree-sitter convention the parser is built on.
type Span struct {
	StartLine   int
	StartCol    int
	StartByte   int
	EndLine     int
	EndCol      int
	EndByte     int
}

// Parameter is one ordered formal parameter of a callable entity.
type Parameter struct {
	Name       string
	Type       string // empty when the language/AST doesn't expose it trivially
	Default    string // empty when there is no default
	Variadic   bool
	IsArgsKw   bool // true for *args/**kwargs-style catch-alls
}

// File is a single source file tracked by the GraphStore.
type File struct {
	ID          string
	Path        string
	Language    string
	Fingerprint string
	Size        int64
	LastSeen    int64 // unix seconds
}

// Entity is a named construct discovered by the extractor.
type Entity struct {
	ID            string
	Kind          EntityKind
	Name          string
	QualifiedName string
	Language      string
	FileID        string
	Span          Span
	Modifiers     []string // set of lowercase tokens, order not significant
	Parameters    []Parameter
	ReturnType    string // empty when absent
	ParentID      string // empty when top-level

	// ContentHash fingerprints the entity's own source span, used to
	// decide whether its embedding needs to be regenerated.
	ContentHash string
}

// Relationship is a directed, typed edge between two entities.
// TargetID is empty until resolution succeeds; until then TargetName
// carries the unresolved textual reference.
type Relationship struct {
	ID         string
	SourceID   string
	TargetID   string // resolved entity ID, or empty
	TargetName string // textual reference, always set
	Kind       RelationshipKind
	FileID     string
	Span       Span
	Resolved   bool
}

// Embedding is a dense vector associated with one entity.
type Embedding struct {
	EntityID    string
	Vector      []float32
	Dimension   int
	Model       string
	ContentHash string // must match the Entity's ContentHash to stay valid
}
