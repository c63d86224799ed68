// Copyright 2026 CodeRef Authors
//
// SPDX-License-Identifier: Apache-2.0

// Package mcptools exposes the coderef MCP tool surface (spec §6):
// one handler per tool, each decoding its JSON arguments, delegating
// to the Conductor, and returning the {success, error{code,message}}
// envelope every tool result shares.
package mcptools

import (
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	coderrors "github.com/coderef-dev/coderef/internal/errors"
)

// jsonResponse marshals data as the successful tool result:
// {"success": true, "data": data}, matching spec §6's "every tool
// result is a JSON object" contract.
func jsonResponse(data any) (*mcp.CallToolResult, error) {
	envelope := struct {
		Success bool `json:"success"`
		Data    any  `json:"data"`
	}{Success: true, Data: data}

	content, err := json.Marshal(envelope)
	if err != nil {
		return nil, fmt.Errorf("marshal tool response: %w", err)
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(content)}},
	}, nil
}

// errorResponse reports a tool failure inside the result object rather
// than as an MCP protocol-level error, so the calling model can see
// what went wrong and self-correct (per the MCP SDK's IsError contract).
// A *coderrors.UserError surfaces its stable {code, message}; any other
// error is wrapped as an internal error before it reaches the client.
func errorResponse(err error) (*mcp.CallToolResult, error) {
	ue, ok := err.(*coderrors.UserError)
	if !ok {
		ue = coderrors.NewLogicError(err.Error(), "", "", err)
	}

	envelope := struct {
		Success bool            `json:"success"`
		Error   coderrors.JSON  `json:"error"`
	}{Success: false, Error: ue.ToJSON()}

	content, marshalErr := json.Marshal(envelope)
	if marshalErr != nil {
		return nil, fmt.Errorf("marshal tool error: %w", marshalErr)
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(content)}},
		IsError: true,
	}, nil
}
