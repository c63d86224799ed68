// Copyright 2026 CodeRef Authors
//
// SPDX-License-Identifier: Apache-2.0

package query

import (
	"context"
	"path/filepath"
	"sort"
	"strings"

	"github.com/coderef-dev/coderef/internal/core"
)

// Cycle is one strongly connected component of size > 1 over `imports`
// edges: a set of entities each transitively reachable from every
// other, in Tarjan discovery order re-sorted by ID for determinism.
type Cycle struct {
	Entities []core.Entity
}

// Cycles computes the strongly connected components (via Tarjan's
// algorithm) of the `imports` relationship restricted to entities in
// scope, reporting only components with more than one member. scope ==
// "" or "repository" means the whole graph; any other value is matched
// as a path prefix against each entity's file. Ordered by the lexically
// smallest entity ID in each component.
func (e *Engine) Cycles(ctx context.Context, scope string) ([]Cycle, error) {
	entities, err := e.Graph.AllEntities(ctx)
	if err != nil {
		return nil, err
	}
	rels, err := e.Graph.AllRelationships(ctx)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]core.Entity, len(entities))
	for _, ent := range entities {
		byID[ent.ID] = ent
	}

	inScope, err := e.scopeFilter(ctx, entities, scope)
	if err != nil {
		return nil, err
	}

	adj := make(map[string][]string)
	for _, r := range rels {
		if r.Kind != core.RelImports || !r.Resolved {
			continue
		}
		if !inScope[r.SourceID] || !inScope[r.TargetID] {
			continue
		}
		adj[r.SourceID] = append(adj[r.SourceID], r.TargetID)
	}
	for k := range adj {
		sort.Strings(adj[k])
	}

	ids := make([]string, 0, len(inScope))
	for id := range inScope {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	st := &tarjanState{
		index:   map[string]int{},
		low:     map[string]int{},
		onStack: map[string]bool{},
		adj:     adj,
	}
	for _, id := range ids {
		if _, seen := st.index[id]; !seen {
			st.strongConnect(id)
		}
	}

	var cycles []Cycle
	for _, scc := range st.sccs {
		if len(scc) <= 1 {
			continue
		}
		sort.Strings(scc)
		ents := make([]core.Entity, 0, len(scc))
		for _, id := range scc {
			ents = append(ents, byID[id])
		}
		cycles = append(cycles, Cycle{Entities: ents})
	}
	sort.Slice(cycles, func(i, j int) bool {
		return cycles[i].Entities[0].ID < cycles[j].Entities[0].ID
	})
	return cycles, nil
}

// scopeFilter resolves which entities fall within scope, resolving
// each distinct FileID to its path at most once.
func (e *Engine) scopeFilter(ctx context.Context, entities []core.Entity, scope string) (map[string]bool, error) {
	out := make(map[string]bool, len(entities))
	if scope == "" || scope == "repository" {
		for _, ent := range entities {
			out[ent.ID] = true
		}
		return out, nil
	}

	pathCache := map[string]string{}
	for _, ent := range entities {
		path, cached := pathCache[ent.FileID]
		if !cached {
			f, err := e.Graph.GetFile(ctx, ent.FileID)
			if err != nil {
				return nil, err
			}
			if f != nil {
				path = f.Path
			}
			pathCache[ent.FileID] = path
		}
		if strings.HasPrefix(path, scope) {
			out[ent.ID] = true
		}
	}
	return out, nil
}

// tarjanState is one run of Tarjan's strongly-connected-components
// algorithm over an explicit ID adjacency list (recursive — fine at the
// scale a single indexed repository's entity graph reaches).
type tarjanState struct {
	index   map[string]int
	low     map[string]int
	onStack map[string]bool
	stack   []string
	counter int
	sccs    [][]string
	adj     map[string][]string
}

func (s *tarjanState) strongConnect(v string) {
	s.index[v] = s.counter
	s.low[v] = s.counter
	s.counter++
	s.stack = append(s.stack, v)
	s.onStack[v] = true

	for _, w := range s.adj[v] {
		if _, seen := s.index[w]; !seen {
			s.strongConnect(w)
			if s.low[w] < s.low[v] {
				s.low[v] = s.low[w]
			}
		} else if s.onStack[w] {
			if s.index[w] < s.low[v] {
				s.low[v] = s.index[w]
			}
		}
	}

	if s.low[v] == s.index[v] {
		var scc []string
		for {
			n := len(s.stack) - 1
			w := s.stack[n]
			s.stack = s.stack[:n]
			s.onStack[w] = false
			scc = append(scc, w)
			if w == v {
				break
			}
		}
		s.sccs = append(s.sccs, scc)
	}
}

// ModuleDependency is one aggregated `imports` edge coalesced to module
// granularity — a module being the directory containing a file, the
// coarsest grouping the data model supports without a dedicated module
// entity kind.
type ModuleDependency struct {
	Module    string
	DependsOn string
	EdgeCount int
}

// ModuleDependencies aggregates every resolved `imports` edge between
// entities in different modules, optionally restricted to edges whose
// source module is modulePath. Ordered by (Module, DependsOn).
func (e *Engine) ModuleDependencies(ctx context.Context, modulePath string) ([]ModuleDependency, error) {
	entities, err := e.Graph.AllEntities(ctx)
	if err != nil {
		return nil, err
	}
	rels, err := e.Graph.AllRelationships(ctx)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]core.Entity, len(entities))
	for _, ent := range entities {
		byID[ent.ID] = ent
	}

	pathCache := map[string]string{}
	moduleOf := func(fileID string) (string, error) {
		if p, cached := pathCache[fileID]; cached {
			return filepath.Dir(p), nil
		}
		f, err := e.Graph.GetFile(ctx, fileID)
		if err != nil {
			return "", err
		}
		p := ""
		if f != nil {
			p = f.Path
		}
		pathCache[fileID] = p
		return filepath.Dir(p), nil
	}

	type edgeKey struct{ from, to string }
	counts := make(map[edgeKey]int)
	for _, r := range rels {
		if r.Kind != core.RelImports || !r.Resolved {
			continue
		}
		src, ok := byID[r.SourceID]
		if !ok {
			continue
		}
		tgt, ok := byID[r.TargetID]
		if !ok {
			continue
		}
		srcMod, err := moduleOf(src.FileID)
		if err != nil {
			return nil, err
		}
		tgtMod, err := moduleOf(tgt.FileID)
		if err != nil {
			return nil, err
		}
		if srcMod == tgtMod {
			continue
		}
		if modulePath != "" && srcMod != modulePath {
			continue
		}
		counts[edgeKey{srcMod, tgtMod}]++
	}

	out := make([]ModuleDependency, 0, len(counts))
	for k, n := range counts {
		out = append(out, ModuleDependency{Module: k.from, DependsOn: k.to, EdgeCount: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Module != out[j].Module {
			return out[i].Module < out[j].Module
		}
		return out[i].DependsOn < out[j].DependsOn
	})
	return out, nil
}
