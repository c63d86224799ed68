// Copyright 2026 CodeRef Authors
//
// SPDX-License-Identifier: Apache-2.0

package content

import "testing"

func TestHasher_Sum_Deterministic(t *testing.T) {
	h := NewHasher("ts-grammar-v1", "extractor-v1")
	a := h.Sum([]byte("function foo() {}"), "javascript")
	b := h.Sum([]byte("function foo() {}"), "javascript")
	if a != b {
		t.Fatalf("Sum must be deterministic: %v != %v", a, b)
	}
}

func TestHasher_Sum_SensitiveToContent(t *testing.T) {
	h := NewHasher("v1", "v1")
	a := h.Sum([]byte("function foo() {}"), "javascript")
	b := h.Sum([]byte("function bar() {}"), "javascript")
	if a == b {
		t.Fatalf("different content must not collide")
	}
}

func TestHasher_Sum_SensitiveToLanguage(t *testing.T) {
	h := NewHasher("v1", "v1")
	a := h.Sum([]byte("x = 1"), "python")
	b := h.Sum([]byte("x = 1"), "javascript")
	if a == b {
		t.Fatalf("different language tags must not collide")
	}
}

func TestHasher_Sum_SensitiveToGrammarVersion(t *testing.T) {
	a := NewHasher("v1", "e1").Sum([]byte("x"), "python")
	b := NewHasher("v2", "e1").Sum([]byte("x"), "python")
	if a == b {
		t.Fatalf("bumping grammar version must invalidate the fingerprint")
	}
}

func TestHasher_Sum_SensitiveToExtractorVersion(t *testing.T) {
	a := NewHasher("v1", "e1").Sum([]byte("x"), "python")
	b := NewHasher("v1", "e2").Sum([]byte("x"), "python")
	if a == b {
		t.Fatalf("bumping extractor version must invalidate the fingerprint")
	}
}

func TestFingerprint_String(t *testing.T) {
	f := Fingerprint(0x1)
	if f.String() != "0000000000000001" {
		t.Fatalf("String() = %q, want 16-char zero-padded hex", f.String())
	}
}
