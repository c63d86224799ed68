// Copyright 2026 CodeRef Authors
//
// SPDX-License-Identifier: Apache-2.0

// Package cache implements ParseCache: an in-memory, memory-accounted
// LRU of per-file extraction results, keyed by file ID. A hit also
// requires the stored content fingerprint to match, so it only ever
// occurs against the same content and grammar/extractor version (see
// internal/content). Entries are not keyed by fingerprint, so two
// files with identical content do not share an entry.
package cache

import (
	"bytes"
	"container/list"
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/coderef-dev/coderef/internal/content"
	"github.com/coderef-dev/coderef/internal/core"
)

// DefaultCapacityBytes is the default memory budget for cached entries.
const DefaultCapacityBytes = 100 * 1024 * 1024

// Entry is one cached extraction result, stamped with the file's
// content fingerprint at the time it was produced.
type Entry struct {
	Fingerprint   content.Fingerprint
	Entities      []core.Entity
	Relationships []core.Relationship
}

// approxSize estimates the in-memory footprint of an entry for the
// memory-accounted eviction policy. It doesn't need to be exact, only
// monotonic in the entry's actual size.
func (e Entry) approxSize() int64 {
	size := int64(64)
	for _, ent := range e.Entities {
		size += int64(80 + len(ent.ID) + len(ent.Name) + len(ent.QualifiedName) + len(ent.ContentHash))
		for _, p := range ent.Parameters {
			size += int64(32 + len(p.Name) + len(p.Type) + len(p.Default))
		}
	}
	for _, rel := range e.Relationships {
		size += int64(64 + len(rel.ID) + len(rel.SourceID) + len(rel.TargetID) + len(rel.TargetName))
	}
	return size
}

type node struct {
	key   string // fileID
	entry Entry
}

// ParseCache is a doubly-linked-list + map LRU of extraction results,
// evicting the least-recently-used entry until total estimated size
// is back under CapacityBytes.
type ParseCache struct {
	mu            sync.Mutex
	order         *list.List // front = most recently used
	index         map[string]*list.Element
	size          int64
	CapacityBytes int64
}

// New builds an empty ParseCache with the given memory budget. A
// budget of 0 uses DefaultCapacityBytes.
func New(capacityBytes int64) *ParseCache {
	if capacityBytes <= 0 {
		capacityBytes = DefaultCapacityBytes
	}
	return &ParseCache{
		order:         list.New(),
		index:         make(map[string]*list.Element),
		CapacityBytes: capacityBytes,
	}
}

// Get returns the cached entry for fileID if its fingerprint matches
// fp (same content, same grammar/extractor version), and marks it
// most-recently-used. A fingerprint mismatch is treated as a miss,
// not an error — the caller should reparse and Put the fresh result.
func (c *ParseCache) Get(fileID string, fp content.Fingerprint) (Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.index[fileID]
	if !ok {
		return Entry{}, false
	}
	n := el.Value.(*node)
	if n.entry.Fingerprint != fp {
		return Entry{}, false
	}
	c.order.MoveToFront(el)
	return n.entry, true
}

// Put inserts or replaces the cached entry for fileID, then evicts
// least-recently-used entries until the cache is back under its
// memory budget.
func (c *ParseCache) Put(fileID string, entry Entry) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.index[fileID]; ok {
		old := el.Value.(*node)
		c.size -= old.entry.approxSize()
		el.Value = &node{key: fileID, entry: entry}
		c.size += entry.approxSize()
		c.order.MoveToFront(el)
	} else {
		el := c.order.PushFront(&node{key: fileID, entry: entry})
		c.index[fileID] = el
		c.size += entry.approxSize()
	}

	c.evict()
}

// Invalidate drops the cached entry for fileID, if any (used when a
// file is deleted from the tree).
func (c *ParseCache) Invalidate(fileID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.index[fileID]; ok {
		c.size -= el.Value.(*node).entry.approxSize()
		c.order.Remove(el)
		delete(c.index, fileID)
	}
}

// Len returns the number of cached entries.
func (c *ParseCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// SizeBytes returns the current estimated memory footprint.
func (c *ParseCache) SizeBytes() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.size
}

func (c *ParseCache) evict() {
	for c.size > c.CapacityBytes && c.order.Len() > 0 {
		oldest := c.order.Back()
		if oldest == nil {
			return
		}
		n := oldest.Value.(*node)
		c.size -= n.entry.approxSize()
		c.order.Remove(oldest)
		delete(c.index, n.key)
	}
}

// snapshotRecord is the gob-encoded wire shape for one cached entry.
type snapshotRecord struct {
	Key   string
	Entry Entry
}

// Snapshot serializes the full cache (most-recently-used first) to
// path via encoding/gob, written atomically (temp file + rename) so a
// crash mid-write never corrupts the on-disk snapshot, matching the
// checkpoint-write discipline used elsewhere in the ingestion pipeline.
func (c *ParseCache) Snapshot(path string) error {
	c.mu.Lock()
	records := make([]snapshotRecord, 0, c.order.Len())
	for el := c.order.Front(); el != nil; el = el.Next() {
		n := el.Value.(*node)
		records = append(records, snapshotRecord{Key: n.key, Entry: n.entry})
	}
	c.mu.Unlock()

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(records); err != nil {
		return fmt.Errorf("encode parse cache snapshot: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write parse cache snapshot: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("rename parse cache snapshot: %w", err)
	}
	return nil
}

// Restore loads a snapshot written by Snapshot, replacing the cache's
// current contents. A missing file is not an error: the cache simply
// starts cold.
func (c *ParseCache) Restore(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read parse cache snapshot: %w", err)
	}

	var records []snapshotRecord
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&records); err != nil {
		return fmt.Errorf("decode parse cache snapshot: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.order = list.New()
	c.index = make(map[string]*list.Element)
	c.size = 0
	// records are stored most-recently-used first (Snapshot walked
	// Front to Back); PushBack in the same order reconstructs an
	// identical front-to-back ordering, preserving recency.
	for _, rec := range records {
		el := c.order.PushBack(&node{key: rec.Key, entry: rec.Entry})
		c.index[rec.Key] = el
		c.size += rec.Entry.approxSize()
	}
	c.evict()
	return nil
}

// DefaultSnapshotPath builds the conventional snapshot location under
// a project's data directory.
func DefaultSnapshotPath(dataDir string) string {
	return filepath.Join(dataDir, "parsecache.gob")
}
