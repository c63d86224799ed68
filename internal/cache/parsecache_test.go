// Copyright 2026 CodeRef Authors
//
// SPDX-License-Identifier: Apache-2.0

package cache

import (
	"path/filepath"
	"testing"

	"github.com/coderef-dev/coderef/internal/content"
	"github.com/coderef-dev/coderef/internal/core"
)

func TestParseCache_GetPutHit(t *testing.T) {
	c := New(0)
	fp := content.Fingerprint(42)
	entry := Entry{Fingerprint: fp, Entities: []core.Entity{{ID: "ent:1", Name: "foo"}}}

	c.Put("file:1", entry)
	got, ok := c.Get("file:1", fp)
	if !ok {
		t.Fatalf("expected cache hit")
	}
	if len(got.Entities) != 1 || got.Entities[0].Name != "foo" {
		t.Fatalf("unexpected cached entry: %+v", got)
	}
}

func TestParseCache_FingerprintMismatchIsMiss(t *testing.T) {
	c := New(0)
	c.Put("file:1", Entry{Fingerprint: content.Fingerprint(1)})
	if _, ok := c.Get("file:1", content.Fingerprint(2)); ok {
		t.Fatalf("expected miss on fingerprint mismatch")
	}
}

func TestParseCache_EvictsUnderPressure(t *testing.T) {
	c := New(200) // each entry estimates at 150 bytes: room for one, so the second Put evicts the first
	c.Put("file:1", Entry{Fingerprint: 1, Entities: []core.Entity{{ID: "ent:1", Name: "a"}}})
	c.Put("file:2", Entry{Fingerprint: 2, Entities: []core.Entity{{ID: "ent:2", Name: "b"}}})

	if _, ok := c.Get("file:1", content.Fingerprint(1)); ok {
		t.Fatalf("expected file:1 to have been evicted")
	}
	if _, ok := c.Get("file:2", content.Fingerprint(2)); !ok {
		t.Fatalf("expected file:2 (most recent) to survive")
	}
}

func TestParseCache_Invalidate(t *testing.T) {
	c := New(0)
	c.Put("file:1", Entry{Fingerprint: 1})
	c.Invalidate("file:1")
	if _, ok := c.Get("file:1", content.Fingerprint(1)); ok {
		t.Fatalf("expected entry to be gone after Invalidate")
	}
}

func TestParseCache_SnapshotRestore(t *testing.T) {
	c := New(0)
	c.Put("file:1", Entry{Fingerprint: 1, Entities: []core.Entity{{ID: "ent:1", Name: "a"}}})
	c.Put("file:2", Entry{Fingerprint: 2, Entities: []core.Entity{{ID: "ent:2", Name: "b"}}})

	path := filepath.Join(t.TempDir(), "snap.gob")
	if err := c.Snapshot(path); err != nil {
		t.Fatalf("Snapshot: %v", err)
	}

	restored := New(0)
	if err := restored.Restore(path); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if restored.Len() != 2 {
		t.Fatalf("expected 2 restored entries, got %d", restored.Len())
	}
	got, ok := restored.Get("file:2", content.Fingerprint(2))
	if !ok || got.Entities[0].Name != "b" {
		t.Fatalf("restored entry mismatch: %+v ok=%v", got, ok)
	}
}

func TestParseCache_RestoreMissingFileIsNoop(t *testing.T) {
	c := New(0)
	if err := c.Restore(filepath.Join(t.TempDir(), "absent.gob")); err != nil {
		t.Fatalf("Restore on missing file should be a no-op: %v", err)
	}
}
