// Copyright 2026 CodeRef Authors
//
// SPDX-License-Identifier: Apache-2.0

package parser

import "github.com/coderef-dev/coderef/internal/core"

// cFamilySpec builds the one spec shared by the extensible, non-required languages
// spec.md names (C, C++): function_definition, struct/union/enum
// specifiers, and #include/call expressions.
func cFamilySpec(lang Language) *LanguageSpec {
	return &LanguageSpec{
		Language: lang,
		EntityKinds: map[string]core.EntityKind{
			"function_definition": core.KindFunction,
			"struct_specifier":    core.KindStruct,
			"union_specifier":     core.KindUnion,
			"enum_specifier":      core.KindEnum,
			"class_specifier":     core.KindClass,
			"namespace_definition": core.KindNamespace,
		},
		NameField: "declarator",
		NameFieldOverrides: map[string]string{
			"struct_specifier":     "name",
			"union_specifier":      "name",
			"enum_specifier":       "name",
			"class_specifier":      "name",
			"namespace_definition": "name",
		},
		ParamsField: "parameters",
		ContainerKinds: map[string]bool{
			"class_specifier":      true,
			"namespace_definition": true,
		},
		ModifierKinds: map[string]bool{
			"static":   true,
			"virtual":  true,
			"inline":   true,
			"const":    true,
			"explicit": true,
		},
		CallNodeKinds:     map[string]bool{"call_expression": true},
		CallFunctionField: "function",
		ImportNodeKinds:   map[string]bool{"preproc_include": true},
		ExtendsField:      "base_class_clause",
	}
}

func init() {
	register(cFamilySpec(LangC))
	register(cFamilySpec(LangCPP))
}
