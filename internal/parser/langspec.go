// Copyright 2026 CodeRef Authors
//
// SPDX-License-Identifier: Apache-2.0

package parser

import "github.com/coderef-dev/coderef/internal/core"

// LanguageSpec is the node-type mapping table that lets one generic
// walker (Extractor.Walk) extract entities from any supported
// grammar: which tree-sitter node types are entities, which field
// holds their name, which are containers that extend the qualified
// name, and which represent calls/imports for relationship edges.
type LanguageSpec struct {
	Language Language

	// EntityKinds maps a tree-sitter node type to the coderef entity
	// kind it produces.
	EntityKinds map[string]core.EntityKind

	// NameField is the default field name holding a node's identifier.
	NameField string
	// NameFieldOverrides replaces NameField for specific node types.
	NameFieldOverrides map[string]string

	// ParamsField is the default field name holding a parameter list.
	ParamsField string
	// ParamsFieldOverrides replaces ParamsField for specific node types.
	ParamsFieldOverrides map[string]string

	// ContainerKinds are node types that extend the qualified-name
	// scope for everything nested inside them (classes, namespaces,
	// modules) without necessarily being emitted as entities.
	ContainerKinds map[string]bool

	// ModifierKinds are child node types collected verbatim (lowercased
	// source text) into Entity.Modifiers, e.g. "public", "static",
	// "async", "export".
	ModifierKinds map[string]bool

	// CallNodeKinds are node types representing a call expression.
	CallNodeKinds map[string]bool
	// CallFunctionField is the field holding the callee expression.
	CallFunctionField string

	// ImportNodeKinds are node types representing an import/include
	// statement.
	ImportNodeKinds map[string]bool
	// ImportSourceField is the field (or, if empty, the string-literal
	// child) holding the imported module path.
	ImportSourceField string

	// ExtendsField names the field on a class-like node holding its
	// superclass/base clause, when the grammar exposes one directly.
	ExtendsField string
	// ImplementsField names the field holding an interface/implements
	// clause.
	ImplementsField string
}

// registry holds one LanguageSpec per supported language, populated by
// each langspec_*.go file's init().
var registry = map[Language]*LanguageSpec{}

func register(spec *LanguageSpec) {
	registry[spec.Language] = spec
}

// SpecFor returns the LanguageSpec for lang, or nil if unregistered.
func SpecFor(lang Language) *LanguageSpec {
	return registry[lang]
}
