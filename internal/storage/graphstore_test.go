// Copyright 2026 CodeRef Authors
//
// SPDX-License-Identifier: Apache-2.0

package storage

import (
	"errors"
	"testing"

	"github.com/coderef-dev/coderef/internal/core"
)

func TestEntitiesFromRows(t *testing.T) {
	rows := [][]any{
		{"ent:1", "function", "foo", "pkg.foo", "go", "file:1", int64(1), int64(1), int64(0), int64(3), int64(2), int64(20), "", "", "deadbeef"},
	}
	entities := entitiesFromRows(rows)
	if len(entities) != 1 {
		t.Fatalf("expected 1 entity, got %d", len(entities))
	}
	e := entities[0]
	if e.ID != "ent:1" || e.Kind != core.KindFunction || e.Name != "foo" {
		t.Fatalf("unexpected entity: %+v", e)
	}
	if e.Span.StartLine != 1 || e.Span.EndByte != 20 {
		t.Fatalf("unexpected span: %+v", e.Span)
	}
}

func TestAsStringAsInt64AsBool(t *testing.T) {
	if asString(nil) != "" {
		t.Fatalf("asString(nil) should be empty")
	}
	if asString("x") != "x" {
		t.Fatalf("asString passthrough failed")
	}
	if asInt64(float64(42)) != 42 {
		t.Fatalf("asInt64(float64) failed")
	}
	if asInt64(int64(7)) != 7 {
		t.Fatalf("asInt64(int64) failed")
	}
	if asInt64("nope") != 0 {
		t.Fatalf("asInt64(unsupported) should default to 0")
	}
	if !asBool(true) || asBool(nil) {
		t.Fatalf("asBool failed")
	}
}

func TestAlreadyExists(t *testing.T) {
	if alreadyExists(nil) {
		t.Fatalf("nil error should not be 'already exists'")
	}
	if !alreadyExists(errors.New("relation Already Exists")) {
		t.Fatalf("case-insensitive match expected")
	}
	if alreadyExists(errors.New("syntax error")) {
		t.Fatalf("unrelated error should not match")
	}
}
