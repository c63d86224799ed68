// Copyright 2026 CodeRef Authors
//
// SPDX-License-Identifier: Apache-2.0

package parser

import "github.com/coderef-dev/coderef/internal/core"

// javascriptSpec is grounded on the teacher's walkTSFunctions/
// extractJS* family: function_declaration, arrow/function
// expressions bound to a variable_declarator, method_definition,
// class_declaration, and import/call expressions.
func javascriptSpec() *LanguageSpec {
	return &LanguageSpec{
		Language: LangJavaScript,
		EntityKinds: map[string]core.EntityKind{
			"function_declaration": core.KindFunction,
			"generator_function_declaration": core.KindFunction,
			"method_definition":    core.KindMethod,
			"class_declaration":    core.KindClass,
			"variable_declarator":  core.KindVariable,
		},
		NameField: "name",
		NameFieldOverrides: map[string]string{
			"variable_declarator": "name",
		},
		ParamsField: "parameters",
		ContainerKinds: map[string]bool{
			"class_declaration": true,
		},
		ModifierKinds: map[string]bool{
			"static":  true,
			"async":   true,
			"get":     true,
			"set":     true,
			"*":       true,
		},
		CallNodeKinds:     map[string]bool{"call_expression": true},
		CallFunctionField: "function",
		ImportNodeKinds:   map[string]bool{"import_statement": true},
		ImportSourceField: "source",
		ExtendsField:      "superclass",
	}
}

func init() {
	register(javascriptSpec())

	jsx := javascriptSpec()
	jsx.Language = LangJSX
	register(jsx)
}
