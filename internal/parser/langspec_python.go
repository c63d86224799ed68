// Copyright 2026 CodeRef Authors
//
// SPDX-License-Identifier: Apache-2.0

package parser

import "github.com/coderef-dev/coderef/internal/core"

// pythonSpec covers function_definition (top-level and nested; every
// one is tagged KindFunction, and a method differs from a function
// only by the enclosing class_definition in its QualifiedName and
// ParentID), class_definition, and import statements.
func pythonSpec() *LanguageSpec {
	return &LanguageSpec{
		Language: LangPython,
		EntityKinds: map[string]core.EntityKind{
			"function_definition": core.KindFunction,
			"class_definition":    core.KindClass,
		},
		NameField:   "name",
		ParamsField: "parameters",
		ContainerKinds: map[string]bool{
			"class_definition": true,
		},
		ModifierKinds: map[string]bool{
			"decorator": true,
		},
		CallNodeKinds:     map[string]bool{"call": true},
		CallFunctionField: "function",
		ImportNodeKinds:   map[string]bool{"import_statement": true, "import_from_statement": true},
		ExtendsField:      "superclasses",
	}
}

func init() {
	register(pythonSpec())
}
