// Copyright 2026 CodeRef Authors
//
// SPDX-License-Identifier: Apache-2.0

package mcptools

import (
	"context"
	"log/slog"

	"github.com/modelcontextprotocol/go-sdk/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/coderef-dev/coderef/internal/agents"
	"github.com/coderef-dev/coderef/internal/conductor"
	"github.com/coderef-dev/coderef/internal/metrics"
)

// Server wires the §6 MCP tool catalogue onto a Conductor and a
// metrics Registry, serving over stdio the way a coderef MCP client
// expects to launch the process.
type Server struct {
	Conductor *conductor.Conductor
	Agents    *agents.Registry
	Metrics   *metrics.Registry
	Logger    *slog.Logger

	server *mcp.Server
}

// NewServer builds the tool surface. Call Start on the Conductor/agent
// Registry before Run accepts tool calls.
func NewServer(cond *conductor.Conductor, reg *agents.Registry, m *metrics.Registry, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{Conductor: cond, Agents: reg, Metrics: m, Logger: logger}
	s.server = mcp.NewServer(&mcp.Implementation{
		Name:    "coderef",
		Version: "0.1.0",
	}, nil)
	s.registerTools()
	return s
}

// Run serves the tool surface over stdio until ctx is canceled.
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

func strSchema(desc string) *jsonschema.Schema {
	return &jsonschema.Schema{Type: "string", Description: desc}
}

func intSchema(desc string) *jsonschema.Schema {
	return &jsonschema.Schema{Type: "integer", Description: desc}
}

func numSchema(desc string) *jsonschema.Schema {
	return &jsonschema.Schema{Type: "number", Description: desc}
}

func boolSchema(desc string) *jsonschema.Schema {
	return &jsonschema.Schema{Type: "boolean", Description: desc}
}

func (s *Server) registerTools() {
	s.server.AddTool(&mcp.Tool{
		Name:        "index",
		Description: "Parse and index a directory tree, waiting until every file is structurally indexed or has failed to parse. Embedding is not awaited.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"path":            strSchema("root directory to walk and index"),
				"exclude_patterns": {Type: "array", Items: strSchema(""), Description: "additional doublestar glob patterns to exclude"},
			},
			Required: []string{"path"},
		},
	}, s.handleIndex)

	s.server.AddTool(&mcp.Tool{
		Name:        "list_file_entities",
		Description: "List every entity declared in a file, optionally filtered by entity kind.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"path": strSchema("file path, as passed to index"),
				"kind": strSchema("restrict to one entity kind (function, class, ...); omit for all"),
			},
			Required: []string{"path"},
		},
	}, s.handleListFileEntities)

	s.server.AddTool(&mcp.Tool{
		Name:        "list_entity_relationships",
		Description: "Walk outgoing relationships from an entity breadth-first, up to a hop depth.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"entity_id": strSchema("entity to start from"),
				"depth":     intSchema("hop count, default 1"),
				"kind":      strSchema("restrict to one relationship kind; omit for all"),
			},
			Required: []string{"entity_id"},
		},
	}, s.handleListEntityRelationships)

	s.server.AddTool(&mcp.Tool{
		Name:        "query",
		Description: "Run a structural query: callers, impact analysis, import cycles, or module dependencies.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"op":          strSchema("one of: callers, impacted_by_change, cycles, module_dependencies"),
				"entity_id":   strSchema("entity ID, for callers/impacted_by_change"),
				"entity_name": strSchema("entity name, for callers when the ID is unknown"),
				"scope":       strSchema("path prefix scoping cycles, or empty for the whole repository"),
				"module_path": strSchema("module path, for module_dependencies"),
			},
			Required: []string{"op"},
		},
	}, s.handleQuery)

	s.server.AddTool(&mcp.Tool{
		Name:        "get_metrics",
		Description: "Report per-agent throughput counters (completed, failed, in-flight) as a flat metric map.",
		InputSchema: &jsonschema.Schema{Type: "object"},
	}, s.handleGetMetrics)

	s.server.AddTool(&mcp.Tool{
		Name:        "semantic_search",
		Description: "Embed a natural-language query and return the nearest entities by cosine similarity.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"query":    strSchema("natural-language or code-like search text"),
				"k":        intSchema("result count, default 10"),
				"language": strSchema("restrict results to one language; omit for all"),
				"rerank":   boolSchema("re-rank by structural centrality (in-degree) after similarity"),
			},
			Required: []string{"query"},
		},
	}, s.handleSemanticSearch)

	s.server.AddTool(&mcp.Tool{
		Name:        "find_similar_code",
		Description: "Embed a code snippet and return entities whose stored embeddings clear a similarity threshold.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"code":      strSchema("code snippet to match against"),
				"threshold": numSchema("minimum cosine similarity, default 0.8"),
				"k":         intSchema("result count, default 10"),
			},
			Required: []string{"code"},
		},
	}, s.handleFindSimilarCode)

	s.server.AddTool(&mcp.Tool{
		Name:        "analyze_code_impact",
		Description: "Compute the transitive reverse closure of an entity over calls/references/imports: everything that would be affected if it changed.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"entity_id": strSchema("entity to analyze"),
			},
			Required: []string{"entity_id"},
		},
	}, s.handleAnalyzeCodeImpact)

	s.server.AddTool(&mcp.Tool{
		Name:        "detect_code_clones",
		Description: "Find pairs of functions/methods whose token structure and embeddings both clear a similarity bar.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"min_similarity": numSchema("minimum embedding cosine similarity, default 0.9"),
				"scope":          strSchema("path prefix scoping the search, or empty for the whole repository"),
			},
		},
	}, s.handleDetectCodeClones)

	s.server.AddTool(&mcp.Tool{
		Name:        "suggest_refactoring",
		Description: "Advisory: surface an entity's clone partners and hotspot ranking as refactoring candidates. Heuristic, not a code transformation.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"entity_id": strSchema("entity to suggest refactorings for"),
			},
			Required: []string{"entity_id"},
		},
	}, s.handleSuggestRefactoring)

	s.server.AddTool(&mcp.Tool{
		Name:        "cross_language_search",
		Description: "Semantic search restricted to one source language, for polyglot repositories.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"query":    strSchema("search text"),
				"language": strSchema("language to restrict results to"),
				"k":        intSchema("result count, default 10"),
			},
			Required: []string{"query", "language"},
		},
	}, s.handleCrossLanguageSearch)

	s.server.AddTool(&mcp.Tool{
		Name:        "analyze_hotspots",
		Description: "Rank entities by complexity, fan-in, fan-out, or coupling.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"metric": strSchema("one of: complexity, fan-in, fan-out, coupling; default complexity"),
				"k":      intSchema("result count, default 10"),
			},
		},
	}, s.handleAnalyzeHotspots)

	s.server.AddTool(&mcp.Tool{
		Name:        "find_related_concepts",
		Description: "Given an entity, find other entities whose embedded code is semantically related to it.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"entity_id": strSchema("entity to find related concepts for"),
				"k":         intSchema("result count, default 10"),
			},
			Required: []string{"entity_id"},
		},
	}, s.handleFindRelatedConcepts)
}
