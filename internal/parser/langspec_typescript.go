// Copyright 2026 CodeRef Authors
//
// SPDX-License-Identifier: Apache-2.0

package parser

import "github.com/coderef-dev/coderef/internal/core"

// typescriptSpec extends javascriptSpec with TypeScript's additional
// declaration forms (interfaces, type aliases, ambient signatures),
// grounded on the teacher's walkTSFunctions/extractTSTypes.
func typescriptSpec(lang Language) *LanguageSpec {
	base := javascriptSpec()
	base.Language = lang
	base.EntityKinds["interface_declaration"] = core.KindInterface
	base.EntityKinds["type_alias_declaration"] = core.KindType
	base.EntityKinds["method_signature"] = core.KindMethod
	base.EntityKinds["function_signature"] = core.KindFunction
	base.EntityKinds["enum_declaration"] = core.KindEnum
	base.ContainerKinds["interface_declaration"] = true
	base.ImplementsField = "interfaces" // implements_clause field on class_declaration when present
	return base
}

func init() {
	register(typescriptSpec(LangTypeScript))
	register(typescriptSpec(LangTSX))
}
