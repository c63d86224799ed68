// Copyright 2026 CodeRef Authors
//
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"testing"

	"github.com/coderef-dev/coderef/internal/parser"
	"github.com/coderef-dev/coderef/internal/walk"
)

func TestBuildParsePayload_AssignsDeterministicFileIDs(t *testing.T) {
	files := []walk.File{
		{Path: "a.py", Language: parser.LangPython},
		{Path: "b.ts", Language: parser.LangTypeScript},
	}

	payload := buildParsePayload(files)
	if len(payload.Files) != 2 {
		t.Fatalf("want 2 files, got %d", len(payload.Files))
	}
	if payload.FileID["a.py"] == "" || payload.FileID["b.ts"] == "" {
		t.Fatalf("want every file assigned an ID, got %+v", payload.FileID)
	}
	if payload.FileID["a.py"] == payload.FileID["b.ts"] {
		t.Fatal("distinct paths should not collide on the same file ID")
	}
}

func TestBuildParsePayload_Empty(t *testing.T) {
	payload := buildParsePayload(nil)
	if len(payload.Files) != 0 || len(payload.FileID) != 0 {
		t.Fatalf("want empty payload, got %+v", payload)
	}
}
