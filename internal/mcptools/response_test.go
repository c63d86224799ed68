// Copyright 2026 CodeRef Authors
//
// SPDX-License-Identifier: Apache-2.0

package mcptools

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/coderef-dev/coderef/internal/core"
	coderrors "github.com/coderef-dev/coderef/internal/errors"
	"github.com/coderef-dev/coderef/internal/query"
)

func textOf(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	if len(res.Content) != 1 {
		t.Fatalf("want one content block, got %d", len(res.Content))
	}
	tc, ok := res.Content[0].(*mcp.TextContent)
	if !ok {
		t.Fatalf("want TextContent, got %T", res.Content[0])
	}
	return tc.Text
}

func TestJSONResponse_WrapsSuccess(t *testing.T) {
	res, err := jsonResponse(map[string]int{"x": 1})
	if err != nil {
		t.Fatal(err)
	}
	if res.IsError {
		t.Fatal("success response must not set IsError")
	}
	var decoded map[string]any
	if err := json.Unmarshal([]byte(textOf(t, res)), &decoded); err != nil {
		t.Fatal(err)
	}
	if decoded["success"] != true {
		t.Fatalf("want success:true, got %+v", decoded)
	}
}

func TestErrorResponse_SurfacesUserErrorCode(t *testing.T) {
	ue := coderrors.NewInputError(coderrors.CodeNotFound, "entity not found", "ent:123", "check the entity ID")
	res, err := errorResponse(ue)
	if err != nil {
		t.Fatal(err)
	}
	if !res.IsError {
		t.Fatal("error response must set IsError per the MCP SDK contract")
	}
	text := textOf(t, res)
	if !strings.Contains(text, `"not_found"`) {
		t.Fatalf("want the stable error code in the response, got %s", text)
	}
	if strings.Contains(text, "ent:123") {
		t.Fatal("Cause must stay server-side, never reach the client JSON")
	}
}

func TestErrorResponse_WrapsPlainErrorAsInternal(t *testing.T) {
	res, err := errorResponse(json.Unmarshal([]byte("{"), &struct{}{}))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(textOf(t, res), `"internal"`) {
		t.Fatalf("want a plain error wrapped as an internal code, got %s", textOf(t, res))
	}
}

func TestQueryOps_CoverTheDocumentedStructuralOps(t *testing.T) {
	for _, op := range []string{"callers", "impacted_by_change", "cycles", "module_dependencies"} {
		if _, ok := queryOps[op]; !ok {
			t.Fatalf("queryOps missing %q", op)
		}
	}
}

func TestFilterClonePairsByEntity_KeepsOnlyMatchingPairs(t *testing.T) {
	pairs := []query.ClonePair{
		{A: core.Entity{ID: "ent:a"}, B: core.Entity{ID: "ent:b"}},
		{A: core.Entity{ID: "ent:c"}, B: core.Entity{ID: "ent:d"}},
	}
	out := filterClonePairsByEntity(pairs, "ent:b")
	got, ok := out.([]query.ClonePair)
	if !ok || len(got) != 1 || got[0].A.ID != "ent:a" {
		t.Fatalf("unexpected filter result: %+v", out)
	}
}
