// Copyright 2026 CodeRef Authors
//
// SPDX-License-Identifier: Apache-2.0

package core

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"strconv"
)

// normalizePath makes a path stable across platforms and invocation
// styles: forward slashes, no leading "./", no leading "/".
func normalizePath(path string) string {
	if len(path) >= 2 && path[0:2] == "./" {
		path = path[2:]
	}
	path = filepath.ToSlash(filepath.Clean(path))
	if len(path) > 0 && path[0] == '/' {
		path = path[1:]
	}
	return path
}

// FileID derives the deterministic file ID from its path alone: two
// indexing runs over the same tree assign the same file ID regardless
// of content (spec invariant: IDs are a function of path, not content).
func FileID(path string) string {
	normalized := normalizePath(path)
	hash := sha256.Sum256([]byte(normalized))
	return "file:" + hex.EncodeToString(hash[:16])
}

// EntityID derives the deterministic entity ID from (file path, kind,
// qualified name, start byte offset), per the data-model invariant that
// two independent indexing runs over identical input produce identical
// entity IDs.
func EntityID(filePath string, kind EntityKind, qualifiedName string, startByte int) string {
	normalized := normalizePath(filePath)
	idStr := normalized + "|" + string(kind) + "|" + qualifiedName + "|" + strconv.Itoa(startByte)
	hash := sha256.Sum256([]byte(idStr))
	return "ent:" + hex.EncodeToString(hash[:])
}

// RelationshipID derives a deterministic relationship ID so that
// re-extracting the same file produces the same edge IDs (required for
// idempotent reindexing: spec property 5).
func RelationshipID(sourceID, targetName string, kind RelationshipKind, fileID string, startByte int) string {
	idStr := fmt.Sprintf("%s|%s|%s|%s|%d", sourceID, targetName, kind, fileID, startByte)
	hash := sha256.Sum256([]byte(idStr))
	return "rel:" + hex.EncodeToString(hash[:16])
}

// AnonymousName synthesizes a stable name for a declaration with no
// declared identifier (e.g. an anonymous function used as an export),
// per the extraction rule in the component design.
func AnonymousName(startByte int) string {
	return "anonymous@" + strconv.Itoa(startByte)
}
