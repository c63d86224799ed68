// Copyright 2026 CodeRef Authors
//
// SPDX-License-Identifier: Apache-2.0

package agents

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/coderef-dev/coderef/internal/core"
	coderrors "github.com/coderef-dev/coderef/internal/errors"
	"github.com/coderef-dev/coderef/internal/query"
	"github.com/coderef-dev/coderef/internal/queue"
)

// QueryTaskKind is the queue.Task.Kind a QueryAgent accepts.
const QueryTaskKind = "query"

// Query operation names, one per internal/query.Engine method.
const (
	OpGetEntity          = "get_entity"
	OpEntityCode         = "entity_code"
	OpEntitiesInFile     = "entities_in_file"
	OpRelationshipsFor   = "relationships_for"
	OpCallers            = "callers"
	OpImpactedByChange   = "impacted_by_change"
	OpCycles             = "cycles"
	OpModuleDependencies = "module_dependencies"
	OpClones             = "clones"
	OpSemanticSearch     = "semantic_search"
	OpHotspots           = "hotspots"
	OpFindSimilar        = "find_similar"
)

// QueryRequest is the queue.Task.Payload a QueryAgent expects. Exactly
// the fields relevant to Op are read; the rest are ignored.
type QueryRequest struct {
	Op string

	Path          string
	EntityID      string
	EntityName    string
	Depth         int
	RelKind       core.RelationshipKind
	EntKind       core.EntityKind
	Scope         string
	MinSimilarity float64
	ModulePath    string
	QueryText     string
	CodeText      string
	Threshold     float64
	Language      string
	Rerank        bool
	Metric        string
	K             int
}

// QueryResult boxes whatever internal/query.Engine method Op dispatched
// to returned, so Handle's single `any` return stays uniform across ops.
type QueryResult struct {
	Op    string
	Value any
}

// QueryAgent is the QueryAgent (C13): unlike the bus-driven agents,
// it has no background loop — every query is read-only and answered
// synchronously against the Engine, so Start/Stop only toggle the
// reported running state.
type QueryAgent struct {
	Engine *query.Engine
	Logger *slog.Logger

	running   atomic.Bool
	completed atomic.Int64
	failed    atomic.Int64
	lastErr   atomic.Value
}

var _ Agent = (*QueryAgent)(nil)

func (a *QueryAgent) Kind() Kind { return KindQuery }

func (a *QueryAgent) Accepts(taskKind string) bool { return taskKind == QueryTaskKind }

func (a *QueryAgent) Start(ctx context.Context) error {
	if a.Logger == nil {
		a.Logger = slog.Default()
	}
	a.running.Store(true)
	a.Logger.Info("query.agent.start")
	return nil
}

func (a *QueryAgent) Stop(ctx context.Context) error {
	a.running.Store(false)
	a.Logger.Info("query.agent.stop")
	return nil
}

func (a *QueryAgent) Snapshot() Health {
	var lastErr string
	if v := a.lastErr.Load(); v != nil {
		lastErr = v.(string)
	}
	return Health{
		Kind: KindQuery, Running: a.running.Load(),
		Completed: a.completed.Load(), Failed: a.failed.Load(), LastError: lastErr,
	}
}

// Handle dispatches a QueryRequest to the matching Engine method.
func (a *QueryAgent) Handle(ctx context.Context, task *queue.Task) (any, error) {
	req, ok := task.Payload.(QueryRequest)
	if !ok {
		return nil, coderrors.NewLogicError("QueryAgent received a non-QueryRequest task", "", "", nil)
	}
	value, err := a.dispatch(ctx, req)
	if err != nil {
		a.failed.Add(1)
		a.lastErr.Store(err.Error())
		return nil, err
	}
	a.completed.Add(1)
	return QueryResult{Op: req.Op, Value: value}, nil
}

func (a *QueryAgent) dispatch(ctx context.Context, req QueryRequest) (any, error) {
	switch req.Op {
	case OpGetEntity:
		return a.Engine.Entity(ctx, req.EntityID)
	case OpEntityCode:
		return a.Engine.EntityCode(ctx, req.EntityID)
	case OpEntitiesInFile:
		return a.Engine.EntitiesInFile(ctx, req.Path, req.EntKind)
	case OpRelationshipsFor:
		return a.Engine.RelationshipsFor(ctx, req.EntityID, req.Depth, req.RelKind)
	case OpCallers:
		return a.Engine.Callers(ctx, req.EntityID, req.EntityName)
	case OpImpactedByChange:
		return a.Engine.ImpactedByChange(ctx, req.EntityID)
	case OpCycles:
		return a.Engine.Cycles(ctx, req.Scope)
	case OpModuleDependencies:
		return a.Engine.ModuleDependencies(ctx, req.ModulePath)
	case OpClones:
		return a.Engine.Clones(ctx, req.MinSimilarity, req.Scope)
	case OpSemanticSearch:
		return a.Engine.SemanticSearch(ctx, req.QueryText, req.K, req.Language, req.Rerank)
	case OpHotspots:
		return a.Engine.Hotspots(ctx, req.Metric, req.K)
	case OpFindSimilar:
		return a.Engine.FindSimilar(ctx, req.CodeText, req.Threshold, req.K)
	default:
		return nil, coderrors.NewInputError(coderrors.CodeInvalidPath,
			"unknown query operation "+req.Op, "", "use one of the documented query operations")
	}
}
