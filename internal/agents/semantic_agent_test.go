// Copyright 2026 CodeRef Authors
//
// SPDX-License-Identifier: Apache-2.0

package agents

import (
	"strings"
	"testing"

	"github.com/coderef-dev/coderef/internal/core"
)

func TestDeclarationLine_IncludesSignatureAndModifiers(t *testing.T) {
	e := core.Entity{
		Kind:          core.KindFunction,
		QualifiedName: "pkg.Foo",
		Parameters:    []core.Parameter{{Name: "x", Type: "int"}, {Name: "y"}},
		ReturnType:    "error",
		Modifiers:     []string{"exported"},
	}
	line := declarationLine(e)
	if !strings.Contains(line, "pkg.Foo(x int, y)") {
		t.Fatalf("missing signature in %q", line)
	}
	if !strings.Contains(line, "error") {
		t.Fatalf("missing return type in %q", line)
	}
	if !strings.HasPrefix(line, "exported") {
		t.Fatalf("expected modifiers prefix, got %q", line)
	}
}

func TestDeclarationLine_NoParamsNoReturn(t *testing.T) {
	e := core.Entity{Kind: core.KindType, QualifiedName: "pkg.Bar"}
	line := declarationLine(e)
	if !strings.Contains(line, "pkg.Bar()") {
		t.Fatalf("expected empty parameter list, got %q", line)
	}
}

func TestEmbedStats_ZeroValue(t *testing.T) {
	var s EmbedStats
	if s.Embedded != 0 || s.Skipped != 0 || s.Failed != 0 {
		t.Fatal("zero value EmbedStats should be all zero")
	}
}
