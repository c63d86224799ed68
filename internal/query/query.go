// Copyright 2026 CodeRef Authors
//
// SPDX-License-Identifier: Apache-2.0

// Package query implements QueryAgent's (C13) algorithm catalogue:
// structural and semantic traversals over the GraphStore/VectorStore
// that back the MCP query tools. Every method produces a deterministic
// total ordering (documented per method) so a client re-running the
// same query against an unchanged graph always sees the same shape.
package query

import (
	"context"
	"sort"

	"github.com/coderef-dev/coderef/internal/core"
	coderrors "github.com/coderef-dev/coderef/internal/errors"
	"github.com/coderef-dev/coderef/internal/embedding"
	"github.com/coderef-dev/coderef/internal/storage"
)

// Engine is the QueryAgent's read-only algorithm surface. Every method
// only issues reads against GraphStore/VectorStore, so it is safe to
// call concurrently with indexing.
type Engine struct {
	Graph    *storage.GraphStore
	Vectors  *storage.VectorStore
	Embedder embedding.Provider
}

// New builds an Engine over an already-open GraphStore/VectorStore.
// Embedder may be nil if SemanticSearch/FindSimilar are never called.
func New(graph *storage.GraphStore, vectors *storage.VectorStore, embedder embedding.Provider) *Engine {
	return &Engine{Graph: graph, Vectors: vectors, Embedder: embedder}
}

// isImpactKind reports whether k is one of the relationship kinds
// ImpactedByChange follows: calls, references and imports.
func isImpactKind(k core.RelationshipKind) bool {
	return k == core.RelCalls || k == core.RelReferences || k == core.RelImports
}

// Entity looks up a single entity by its deterministic ID, or nil if
// no such entity is stored.
func (e *Engine) Entity(ctx context.Context, entityID string) (*core.Entity, error) {
	return e.Graph.GetEntity(ctx, entityID)
}

// EntityCode returns the source text stored for an entity, used by
// callers that want to re-run FindSimilar seeded from an existing
// entity rather than a fresh snippet.
func (e *Engine) EntityCode(ctx context.Context, entityID string) (string, error) {
	return e.Graph.GetEntityCode(ctx, entityID)
}

// EntitiesInFile lists every entity declared in path, optionally
// restricted to kind (kind == "" means no filter), ordered by (start
// line, start column).
func (e *Engine) EntitiesInFile(ctx context.Context, path string, kind core.EntityKind) ([]core.Entity, error) {
	entities, err := e.Graph.EntitiesInFile(ctx, core.FileID(path))
	if err != nil {
		return nil, err
	}
	out := make([]core.Entity, 0, len(entities))
	for _, ent := range entities {
		if kind != "" && ent.Kind != kind {
			continue
		}
		out = append(out, ent)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Span.StartLine != out[j].Span.StartLine {
			return out[i].Span.StartLine < out[j].Span.StartLine
		}
		return out[i].Span.StartCol < out[j].Span.StartCol
	})
	return out, nil
}

// RelHop is one entity discovered by RelationshipsFor, along with the
// edge that led to it and the hop count at which it was first reached.
type RelHop struct {
	Relationship core.Relationship
	Target       core.Entity
	Hop          int
}

// RelationshipsFor walks outgoing relationships from entityID breadth
// first, up to depth hops (depth <= 0 treated as 1), optionally
// restricted to a single relationship kind. Ordered by (hop, target
// entity ID lexical); an entity already reached at an earlier hop is
// never reported again at a later one.
func (e *Engine) RelationshipsFor(ctx context.Context, entityID string, depth int, kind core.RelationshipKind) ([]RelHop, error) {
	if depth <= 0 {
		depth = 1
	}
	visited := map[string]bool{entityID: true}
	frontier := []string{entityID}
	var out []RelHop

	for hop := 1; hop <= depth && len(frontier) > 0; hop++ {
		var hopHops []RelHop
		seenThisHop := map[string]bool{}
		for _, id := range frontier {
			rels, err := e.Graph.RelationshipsFrom(ctx, id)
			if err != nil {
				return nil, err
			}
			for _, r := range rels {
				if kind != "" && r.Kind != kind {
					continue
				}
				if r.TargetID == "" || visited[r.TargetID] || seenThisHop[r.TargetID] {
					continue
				}
				target, err := e.Graph.GetEntity(ctx, r.TargetID)
				if err != nil {
					return nil, err
				}
				if target == nil {
					continue
				}
				seenThisHop[r.TargetID] = true
				hopHops = append(hopHops, RelHop{Relationship: r, Target: *target, Hop: hop})
			}
		}
		sort.Slice(hopHops, func(i, j int) bool { return hopHops[i].Target.ID < hopHops[j].Target.ID })

		next := make([]string, 0, len(hopHops))
		for _, rh := range hopHops {
			visited[rh.Target.ID] = true
			next = append(next, rh.Target.ID)
		}
		out = append(out, hopHops...)
		frontier = next
	}
	return out, nil
}

// CallerResult is Callers' result: the resolving entities, plus whether
// the lookup name matched more than one entity (per the entityName vs
// entityId Open Question decision — ambiguity is surfaced, never
// silently resolved).
type CallerResult struct {
	Entities  []core.Entity
	Ambiguous bool
}

// Callers finds every entity with a resolved `calls` edge into the
// entity named by entityID (unique lookup) or entityName (all matches,
// Ambiguous set when more than one). Ordered by caller entity ID.
func (e *Engine) Callers(ctx context.Context, entityID, entityName string) (CallerResult, error) {
	var targets []core.Entity
	switch {
	case entityID != "":
		ent, err := e.Graph.GetEntity(ctx, entityID)
		if err != nil {
			return CallerResult{}, err
		}
		if ent == nil {
			return CallerResult{}, coderrors.NewInputError(coderrors.CodeNotFound,
				"entity not found", entityID, "check the entity ID")
		}
		targets = []core.Entity{*ent}
	case entityName != "":
		matches, err := e.Graph.EntitiesByName(ctx, entityName)
		if err != nil {
			return CallerResult{}, err
		}
		if len(matches) == 0 {
			return CallerResult{}, coderrors.NewInputError(coderrors.CodeNotFound,
				"no entity named "+entityName, "", "check the spelling, or pass entityId instead")
		}
		targets = matches
	default:
		return CallerResult{}, coderrors.NewInputError(coderrors.CodeInvalidPath,
			"Callers requires entityId or entityName", "", "pass one of entityId, entityName")
	}

	seen := map[string]bool{}
	var callers []core.Entity
	for _, t := range targets {
		rels, err := e.Graph.RelationshipsTo(ctx, t.ID)
		if err != nil {
			return CallerResult{}, err
		}
		for _, r := range rels {
			if r.Kind != core.RelCalls || !r.Resolved || seen[r.SourceID] {
				continue
			}
			src, err := e.Graph.GetEntity(ctx, r.SourceID)
			if err != nil {
				return CallerResult{}, err
			}
			if src == nil {
				continue
			}
			seen[r.SourceID] = true
			callers = append(callers, *src)
		}
	}
	sort.Slice(callers, func(i, j int) bool { return callers[i].ID < callers[j].ID })
	return CallerResult{Entities: callers, Ambiguous: len(targets) > 1}, nil
}

// ImpactedEntity is one entity ImpactedByChange found transitively
// upstream of the changed entity, and the hop distance it was first
// reached at.
type ImpactedEntity struct {
	Entity core.Entity
	Hop    int
}

// ImpactedByChange computes the transitive reverse closure of entityID
// over calls+references+imports: every entity that would be affected if
// entityID changed. Cycle-safe via a visit set. Ordered by (hop, entity
// ID lexical).
func (e *Engine) ImpactedByChange(ctx context.Context, entityID string) ([]ImpactedEntity, error) {
	root, err := e.Graph.GetEntity(ctx, entityID)
	if err != nil {
		return nil, err
	}
	if root == nil {
		return nil, coderrors.NewInputError(coderrors.CodeNotFound,
			"entity not found", entityID, "check the entity ID")
	}

	visited := map[string]bool{entityID: true}
	frontier := []string{entityID}
	var out []ImpactedEntity

	for hop := 1; len(frontier) > 0; hop++ {
		var hopResults []ImpactedEntity
		seenThisHop := map[string]bool{}
		for _, id := range frontier {
			rels, err := e.Graph.RelationshipsTo(ctx, id)
			if err != nil {
				return nil, err
			}
			for _, r := range rels {
				if !isImpactKind(r.Kind) || !r.Resolved || visited[r.SourceID] || seenThisHop[r.SourceID] {
					continue
				}
				src, err := e.Graph.GetEntity(ctx, r.SourceID)
				if err != nil {
					return nil, err
				}
				if src == nil {
					continue
				}
				seenThisHop[r.SourceID] = true
				hopResults = append(hopResults, ImpactedEntity{Entity: *src, Hop: hop})
			}
		}
		sort.Slice(hopResults, func(i, j int) bool { return hopResults[i].Entity.ID < hopResults[j].Entity.ID })

		next := make([]string, 0, len(hopResults))
		for _, ir := range hopResults {
			visited[ir.Entity.ID] = true
			next = append(next, ir.Entity.ID)
		}
		out = append(out, hopResults...)
		frontier = next
	}
	return out, nil
}
