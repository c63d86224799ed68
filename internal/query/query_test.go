// Copyright 2026 CodeRef Authors
//
// SPDX-License-Identifier: Apache-2.0

package query

import (
	"sort"
	"testing"

	"github.com/coderef-dev/coderef/internal/core"
)

func TestIsImpactKind(t *testing.T) {
	for _, k := range []core.RelationshipKind{core.RelCalls, core.RelReferences, core.RelImports} {
		if !isImpactKind(k) {
			t.Fatalf("%s should be an impact kind", k)
		}
	}
	if isImpactKind(core.RelExtends) {
		t.Fatal("extends should not be an impact kind")
	}
}

func TestCosineSimilarity_IdenticalVectorsAreOne(t *testing.T) {
	v := []float32{0.6, 0.8}
	sim := cosineSimilarity(v, v)
	if sim < 0.999 || sim > 1.001 {
		t.Fatalf("want ~1.0, got %f", sim)
	}
}

func TestCosineSimilarity_OrthogonalVectorsAreZero(t *testing.T) {
	sim := cosineSimilarity([]float32{1, 0}, []float32{0, 1})
	if sim < -0.001 || sim > 0.001 {
		t.Fatalf("want ~0.0, got %f", sim)
	}
}

func TestCosineSimilarity_MismatchedLengthIsZero(t *testing.T) {
	if sim := cosineSimilarity([]float32{1, 2}, []float32{1}); sim != 0 {
		t.Fatalf("want 0 for mismatched dimensions, got %f", sim)
	}
}

func TestNormalizeTokens_CollapsesWhitespace(t *testing.T) {
	got := normalizeTokens("func  Foo(x int)\n{\n\treturn x\n}")
	want := "func Foo(x int) { return x }"
	if got != want {
		t.Fatalf("want %q, got %q", want, got)
	}
}

func TestTarjan_SingleCycle(t *testing.T) {
	// a -> b -> a forms one SCC; c is isolated.
	st := &tarjanState{
		index: map[string]int{}, low: map[string]int{}, onStack: map[string]bool{},
		adj: map[string][]string{"a": {"b"}, "b": {"a"}},
	}
	for _, id := range []string{"a", "b", "c"} {
		if _, seen := st.index[id]; !seen {
			st.strongConnect(id)
		}
	}

	var cyclic [][]string
	for _, scc := range st.sccs {
		if len(scc) > 1 {
			sort.Strings(scc)
			cyclic = append(cyclic, scc)
		}
	}
	if len(cyclic) != 1 {
		t.Fatalf("want exactly 1 cycle, got %d: %v", len(cyclic), cyclic)
	}
	if cyclic[0][0] != "a" || cyclic[0][1] != "b" {
		t.Fatalf("want [a b], got %v", cyclic[0])
	}
}

func TestTarjan_NoFalseCycleForDAG(t *testing.T) {
	st := &tarjanState{
		index: map[string]int{}, low: map[string]int{}, onStack: map[string]bool{},
		adj: map[string][]string{"a": {"b"}, "b": {"c"}},
	}
	for _, id := range []string{"a", "b", "c"} {
		if _, seen := st.index[id]; !seen {
			st.strongConnect(id)
		}
	}
	for _, scc := range st.sccs {
		if len(scc) > 1 {
			t.Fatalf("DAG should have no multi-node SCC, found %v", scc)
		}
	}
}
