// Copyright 2026 CodeRef Authors
//
// SPDX-License-Identifier: Apache-2.0

package mcptools

import (
	"context"
	"encoding/json"
	"os"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/coderef-dev/coderef/internal/agents"
	"github.com/coderef-dev/coderef/internal/contract"
	"github.com/coderef-dev/coderef/internal/core"
	coderrors "github.com/coderef-dev/coderef/internal/errors"
	"github.com/coderef-dev/coderef/internal/query"
	"github.com/coderef-dev/coderef/internal/walk"
)

func decodeArgs(req *mcp.CallToolRequest, dst any) error {
	if err := json.Unmarshal(req.Params.Arguments, dst); err != nil {
		return coderrors.NewInputError(coderrors.CodeInvalidPath,
			"invalid tool arguments", err.Error(), "check the tool's input schema")
	}
	return nil
}

// indexParams is the `index` tool's argument shape.
type indexParams struct {
	Path            string   `json:"path"`
	ExcludePatterns []string `json:"exclude_patterns"`
}

// indexResponse is the `index` tool's §6 result shape.
type indexResponse struct {
	FilesIndexed int      `json:"files_indexed"`
	Entities     int      `json:"entities"`
	DurationMS   int64    `json:"duration_ms"`
	Errors       []string `json:"errors"`
}

func (s *Server) handleIndex(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var p indexParams
	if err := decodeArgs(req, &p); err != nil {
		return errorResponse(err)
	}

	files, err := walk.Walk(p.Path, p.ExcludePatterns)
	if err != nil {
		return errorResponse(coderrors.NewInputError(coderrors.CodeInvalidPath,
			"failed to walk "+p.Path, err.Error(), "check the path exists and is readable"))
	}

	var totalBytes int64
	for _, f := range files {
		if info, statErr := os.Stat(f.Path); statErr == nil {
			totalBytes += info.Size()
		}
	}
	if v := contract.ValidateIndexBatchSize(totalBytes); !v.OK {
		return errorResponse(coderrors.NewResourceError(coderrors.CodeResourceExhausted,
			v.Message, "", "index a smaller subdirectory, or raise CODEREF_INDEX_SOFT_LIMIT_BYTES", nil))
	}

	payload := agents.ParsePayload{
		FileID: make(map[string]string, len(files)),
		Files:  make([]agents.ParseFile, 0, len(files)),
	}
	for _, f := range files {
		payload.FileID[f.Path] = core.FileID(f.Path)
		payload.Files = append(payload.Files, agents.ParseFile{Path: f.Path, Language: f.Language})
	}

	result, err := s.Conductor.Index(ctx, payload)
	if err != nil {
		return errorResponse(err)
	}
	return jsonResponse(indexResponse{
		FilesIndexed: result.FilesIndexed,
		Entities:     result.Entities,
		DurationMS:   result.DurationMS,
		Errors:       result.Errors,
	})
}

type listFileEntitiesParams struct {
	Path string `json:"path"`
	Kind string `json:"kind"`
}

func (s *Server) handleListFileEntities(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var p listFileEntitiesParams
	if err := decodeArgs(req, &p); err != nil {
		return errorResponse(err)
	}
	result, err := s.Conductor.Query(ctx, agents.QueryRequest{
		Op: agents.OpEntitiesInFile, Path: p.Path, EntKind: core.EntityKind(p.Kind),
	})
	if err != nil {
		return errorResponse(err)
	}
	return jsonResponse(result.Value)
}

type listEntityRelationshipsParams struct {
	EntityID string `json:"entity_id"`
	Depth    int    `json:"depth"`
	Kind     string `json:"kind"`
}

func (s *Server) handleListEntityRelationships(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var p listEntityRelationshipsParams
	if err := decodeArgs(req, &p); err != nil {
		return errorResponse(err)
	}
	result, err := s.Conductor.Query(ctx, agents.QueryRequest{
		Op: agents.OpRelationshipsFor, EntityID: p.EntityID, Depth: p.Depth,
		RelKind: core.RelationshipKind(p.Kind),
	})
	if err != nil {
		return errorResponse(err)
	}
	return jsonResponse(result.Value)
}

type queryParams struct {
	Op         string `json:"op"`
	EntityID   string `json:"entity_id"`
	EntityName string `json:"entity_name"`
	Scope      string `json:"scope"`
	ModulePath string `json:"module_path"`
}

var queryOps = map[string]string{
	"callers":             agents.OpCallers,
	"impacted_by_change":  agents.OpImpactedByChange,
	"cycles":              agents.OpCycles,
	"module_dependencies": agents.OpModuleDependencies,
}

func (s *Server) handleQuery(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var p queryParams
	if err := decodeArgs(req, &p); err != nil {
		return errorResponse(err)
	}
	op, ok := queryOps[p.Op]
	if !ok {
		return errorResponse(coderrors.NewInputError(coderrors.CodeInvalidPath,
			"unknown query op "+p.Op, "", "use one of: callers, impacted_by_change, cycles, module_dependencies"))
	}
	result, err := s.Conductor.Query(ctx, agents.QueryRequest{
		Op: op, EntityID: p.EntityID, EntityName: p.EntityName,
		Scope: p.Scope, ModulePath: p.ModulePath,
	})
	if err != nil {
		return errorResponse(err)
	}
	return jsonResponse(result.Value)
}

func (s *Server) handleGetMetrics(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	snap, err := s.Metrics.Snapshot(s.Agents)
	if err != nil {
		return errorResponse(coderrors.NewLogicError("failed to gather metrics", "", "", err))
	}
	return jsonResponse(snap)
}

type semanticSearchParams struct {
	Query    string `json:"query"`
	K        int    `json:"k"`
	Language string `json:"language"`
	Rerank   bool   `json:"rerank"`
}

func (s *Server) handleSemanticSearch(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var p semanticSearchParams
	if err := decodeArgs(req, &p); err != nil {
		return errorResponse(err)
	}
	result, err := s.Conductor.Query(ctx, agents.QueryRequest{
		Op: agents.OpSemanticSearch, QueryText: p.Query, K: p.K,
		Language: p.Language, Rerank: p.Rerank,
	})
	if err != nil {
		return errorResponse(err)
	}
	return jsonResponse(result.Value)
}

type findSimilarCodeParams struct {
	Code      string  `json:"code"`
	Threshold float64 `json:"threshold"`
	K         int     `json:"k"`
}

const defaultCloneThreshold = 0.8

func (s *Server) handleFindSimilarCode(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var p findSimilarCodeParams
	if err := decodeArgs(req, &p); err != nil {
		return errorResponse(err)
	}
	threshold := p.Threshold
	if threshold <= 0 {
		threshold = defaultCloneThreshold
	}
	result, err := s.Conductor.Query(ctx, agents.QueryRequest{
		Op: agents.OpFindSimilar, CodeText: p.Code, Threshold: threshold, K: p.K,
	})
	if err != nil {
		return errorResponse(err)
	}
	return jsonResponse(result.Value)
}

type entityIDParams struct {
	EntityID string `json:"entity_id"`
}

func (s *Server) handleAnalyzeCodeImpact(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var p entityIDParams
	if err := decodeArgs(req, &p); err != nil {
		return errorResponse(err)
	}
	result, err := s.Conductor.Query(ctx, agents.QueryRequest{
		Op: agents.OpImpactedByChange, EntityID: p.EntityID,
	})
	if err != nil {
		return errorResponse(err)
	}
	return jsonResponse(result.Value)
}

type detectCodeClonesParams struct {
	MinSimilarity float64 `json:"min_similarity"`
	Scope         string  `json:"scope"`
}

const defaultCloneSimilarity = 0.9

func (s *Server) handleDetectCodeClones(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var p detectCodeClonesParams
	if err := decodeArgs(req, &p); err != nil {
		return errorResponse(err)
	}
	minSim := p.MinSimilarity
	if minSim <= 0 {
		minSim = defaultCloneSimilarity
	}
	result, err := s.Conductor.Query(ctx, agents.QueryRequest{
		Op: agents.OpClones, MinSimilarity: minSim, Scope: p.Scope,
	})
	if err != nil {
		return errorResponse(err)
	}
	return jsonResponse(result.Value)
}

// suggestRefactoringResponse is advisory only (spec.md notes
// refactoring suggestion as out of CORE scope): it composes an
// entity's clone partners and complexity hotspot rank, it never
// proposes or applies a code transformation.
type suggestRefactoringResponse struct {
	Clones   any `json:"clones"`
	Hotspots any `json:"hotspots"`
}

func (s *Server) handleSuggestRefactoring(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var p entityIDParams
	if err := decodeArgs(req, &p); err != nil {
		return errorResponse(err)
	}

	clones, err := s.Conductor.Query(ctx, agents.QueryRequest{
		Op: agents.OpClones, MinSimilarity: defaultCloneSimilarity, Scope: "",
	})
	if err != nil {
		return errorResponse(err)
	}
	hotspots, err := s.Conductor.Query(ctx, agents.QueryRequest{
		Op: agents.OpHotspots, Metric: "complexity", K: defaultHotspotK,
	})
	if err != nil {
		return errorResponse(err)
	}

	relevantClones := filterClonePairsByEntity(clones.Value, p.EntityID)
	return jsonResponse(suggestRefactoringResponse{Clones: relevantClones, Hotspots: hotspots.Value})
}

func filterClonePairsByEntity(value any, entityID string) any {
	pairs, ok := value.([]query.ClonePair)
	if !ok {
		return value
	}
	out := make([]query.ClonePair, 0, len(pairs))
	for _, p := range pairs {
		if p.A.ID == entityID || p.B.ID == entityID {
			out = append(out, p)
		}
	}
	return out
}

type crossLanguageSearchParams struct {
	Query    string `json:"query"`
	Language string `json:"language"`
	K        int    `json:"k"`
}

func (s *Server) handleCrossLanguageSearch(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var p crossLanguageSearchParams
	if err := decodeArgs(req, &p); err != nil {
		return errorResponse(err)
	}
	if p.Language == "" {
		return errorResponse(coderrors.NewInputError(coderrors.CodeInvalidPath,
			"cross_language_search requires language", "", "pass the language to restrict results to"))
	}
	result, err := s.Conductor.Query(ctx, agents.QueryRequest{
		Op: agents.OpSemanticSearch, QueryText: p.Query, K: p.K, Language: p.Language,
	})
	if err != nil {
		return errorResponse(err)
	}
	return jsonResponse(result.Value)
}

type analyzeHotspotsParams struct {
	Metric string `json:"metric"`
	K      int    `json:"k"`
}

const defaultHotspotK = 10

func (s *Server) handleAnalyzeHotspots(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var p analyzeHotspotsParams
	if err := decodeArgs(req, &p); err != nil {
		return errorResponse(err)
	}
	k := p.K
	if k <= 0 {
		k = defaultHotspotK
	}
	result, err := s.Conductor.Query(ctx, agents.QueryRequest{
		Op: agents.OpHotspots, Metric: p.Metric, K: k,
	})
	if err != nil {
		return errorResponse(err)
	}
	return jsonResponse(result.Value)
}

type findRelatedConceptsParams struct {
	EntityID string `json:"entity_id"`
	K        int    `json:"k"`
}

func (s *Server) handleFindRelatedConcepts(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var p findRelatedConceptsParams
	if err := decodeArgs(req, &p); err != nil {
		return errorResponse(err)
	}

	codeResult, err := s.Conductor.Query(ctx, agents.QueryRequest{
		Op: agents.OpEntityCode, EntityID: p.EntityID,
	})
	if err != nil {
		return errorResponse(err)
	}
	code, _ := codeResult.Value.(string)
	if code == "" {
		return errorResponse(coderrors.NewInputError(coderrors.CodeNotFound,
			"entity not found or has no stored code", p.EntityID, "check the entity ID"))
	}

	result, err := s.Conductor.Query(ctx, agents.QueryRequest{
		Op: agents.OpFindSimilar, CodeText: code, K: p.K,
	})
	if err != nil {
		return errorResponse(err)
	}
	return jsonResponse(result.Value)
}
