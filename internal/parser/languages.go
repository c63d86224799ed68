// Copyright 2026 CodeRef Authors
//
// SPDX-License-Identifier: Apache-2.0

package parser

import "strings"

// extensionLanguages maps a lowercased file extension (with leading
// dot) to the Language it's parsed as.
var extensionLanguages = map[string]Language{
	".js":  LangJavaScript,
	".mjs": LangJavaScript,
	".cjs": LangJavaScript,
	".jsx": LangJSX,
	".ts":  LangTypeScript,
	".mts": LangTypeScript,
	".tsx": LangTSX,
	".py":  LangPython,
	".pyi": LangPython,
	".c":   LangC,
	".h":   LangC,
	".cc":  LangCPP,
	".cpp": LangCPP,
	".cxx": LangCPP,
	".hpp": LangCPP,
	".hxx": LangCPP,
}

// LanguageForExtension resolves ext (as returned by filepath.Ext, i.e.
// including the leading dot) to a supported Language, case-insensitive.
// ok is false for any extension coderef doesn't parse.
func LanguageForExtension(ext string) (lang Language, ok bool) {
	lang, ok = extensionLanguages[strings.ToLower(ext)]
	return lang, ok
}
