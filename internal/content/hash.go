// Copyright 2026 CodeRef Authors
//
// SPDX-License-Identifier: Apache-2.0

// Package content computes the fast, non-cryptographic content
// fingerprint used to detect whether a file's parse/extraction result
// (and, downstream, its entities' embeddings) is still valid.
package content

import (
	"encoding/binary"
	"fmt"

	"github.com/cespare/xxhash/v2"
)

// Fingerprint is the 64-bit content hash, formatted as 16 lowercase hex
// characters wherever it crosses a storage or wire boundary.
type Fingerprint uint64

// String renders the fingerprint the way it is persisted and compared:
// fixed-width hex so two fingerprints are byte-for-byte comparable as
// strings too.
func (f Fingerprint) String() string {
	return fmt.Sprintf("%016x", uint64(f))
}

// Hasher computes the content fingerprint over file bytes, the
// language tag, and the current grammar/extractor version stamp. The
// version stamp is threaded in explicitly (not read from a package
// global) so a ParseCache hit can never silently span a grammar
// upgrade: the fingerprint formula is
// xxhash64(bytes ∥ 0x00 ∥ language ∥ 0x00 ∥ grammarVersion ∥ 0x00 ∥ extractorVersion).
type Hasher struct {
	GrammarVersion   string
	ExtractorVersion string
}

// NewHasher builds a Hasher stamped with the given grammar/extractor
// versions. Both should be bumped whenever a node-type table or
// grammar sub-package is upgraded, which invalidates every cached
// parse keyed on the old stamp.
func NewHasher(grammarVersion, extractorVersion string) *Hasher {
	return &Hasher{GrammarVersion: grammarVersion, ExtractorVersion: extractorVersion}
}

// Sum computes the fingerprint for one file's content under one
// language tag.
func (h *Hasher) Sum(content []byte, language string) Fingerprint {
	digest := xxhash.New()
	digest.Write(content)
	digest.Write(sep)
	digest.Write([]byte(language))
	digest.Write(sep)
	digest.Write([]byte(h.GrammarVersion))
	digest.Write(sep)
	digest.Write([]byte(h.ExtractorVersion))
	return Fingerprint(digest.Sum64())
}

// SumEntity fingerprints a single entity's own source span (its slice
// of the file's bytes), used to decide whether the entity's embedding
// needs to be regenerated independently of the rest of the file.
func (h *Hasher) SumEntity(span []byte, language string) Fingerprint {
	return h.Sum(span, language)
}

var sep = []byte{0x00}

// Uint64 exposes the one-shot helper form for callers that already
// have the version stamp concatenated: a plain xxhash64 of b with no
// language tag or separators added.
func Uint64(b []byte) uint64 {
	return xxhash.Sum64(b)
}

// PutUint64 little-endian encodes a fingerprint into the first 8 bytes
// of buf.
func PutUint64(buf []byte, f Fingerprint) {
	binary.LittleEndian.PutUint64(buf, uint64(f))
}
