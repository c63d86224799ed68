// Copyright 2026 CodeRef Authors
//
// SPDX-License-Identifier: Apache-2.0

package query

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/hbollon/go-edlib"

	"github.com/coderef-dev/coderef/internal/core"
	coderrors "github.com/coderef-dev/coderef/internal/errors"
)

// structuralPrefilterThreshold is the stage-one text-similarity bar a
// pair must clear before Clones spends an embedding comparison on it —
// deliberately looser than minSimilarity, since stage two (cosine over
// embeddings) is the actual confirmation.
const structuralPrefilterThreshold = 0.6

// ClonePair is two entities Clones judged similar enough to report,
// carrying both the structural score (Levenshtein similarity of the
// whitespace-normalized code text) that qualified the pair for stage two and the semantic (embedding cosine) score that
// confirmed it.
type ClonePair struct {
	A, B            core.Entity
	TokenSimilarity float64
	Semantic        float64
}

// Clones finds pairs of function/method entities within scope whose
// whitespace-normalized code texts have a character-level Levenshtein
// similarity of at least structuralPrefilterThreshold (stage one) and whose stored embeddings' cosine similarity is >=
// minSimilarity (stage two, the reported score). Ordered by (A.ID,
// B.ID). O(n^2) over the candidate set; acceptable at the scale of one
// indexed repository's functions, not intended for cross-repository
// corpora.
func (e *Engine) Clones(ctx context.Context, minSimilarity float64, scope string) ([]ClonePair, error) {
	entities, err := e.Graph.AllEntities(ctx)
	if err != nil {
		return nil, err
	}
	inScope, err := e.scopeFilter(ctx, entities, scope)
	if err != nil {
		return nil, err
	}

	var candidates []core.Entity
	for _, ent := range entities {
		if !inScope[ent.ID] {
			continue
		}
		if ent.Kind != core.KindFunction && ent.Kind != core.KindMethod {
			continue
		}
		candidates = append(candidates, ent)
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].ID < candidates[j].ID })

	tokens := make(map[string]string, len(candidates))
	for _, c := range candidates {
		text, err := e.Graph.GetEntityCode(ctx, c.ID)
		if err != nil {
			return nil, err
		}
		tokens[c.ID] = normalizeTokens(text)
	}

	var pairs []ClonePair
	for i := 0; i < len(candidates); i++ {
		a := candidates[i]
		if tokens[a.ID] == "" {
			continue
		}
		for j := i + 1; j < len(candidates); j++ {
			b := candidates[j]
			if tokens[b.ID] == "" {
				continue
			}
			sim, err := edlib.StringsSimilarity(tokens[a.ID], tokens[b.ID], edlib.Levenshtein)
			if err != nil || float64(sim) < structuralPrefilterThreshold {
				continue
			}

			semantic, err := e.cosineBetween(ctx, a.ID, b.ID)
			if err != nil || semantic < minSimilarity {
				continue
			}
			pairs = append(pairs, ClonePair{A: a, B: b, TokenSimilarity: float64(sim), Semantic: semantic})
		}
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].A.ID != pairs[j].A.ID {
			return pairs[i].A.ID < pairs[j].A.ID
		}
		return pairs[i].B.ID < pairs[j].B.ID
	})
	return pairs, nil
}

func normalizeTokens(code string) string {
	return strings.Join(strings.Fields(code), " ")
}

func (e *Engine) cosineBetween(ctx context.Context, idA, idB string) (float64, error) {
	va, err := e.Vectors.Get(ctx, idA)
	if err != nil {
		return 0, err
	}
	vb, err := e.Vectors.Get(ctx, idB)
	if err != nil {
		return 0, err
	}
	if va == nil || vb == nil {
		return 0, nil
	}
	return cosineSimilarity(va.Vector, vb.Vector), nil
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// ScoredEntity is one entity ranked by similarity, returned by
// SemanticSearch and FindSimilar.
type ScoredEntity struct {
	Entity     core.Entity
	Similarity float64
}

// defaultK is used when a caller passes k <= 0.
const defaultK = 10

// SemanticSearch embeds queryText, runs an HNSW k-nearest lookup,
// optionally filters by language, and — when rerankByCentrality is set
// — re-orders the result by incoming-relationship count (structural
// centrality) before similarity, per spec.md's "optionally re-rank by
// structural centrality (in-degree)". Otherwise ordered by descending
// similarity, entity ID tie-break.
func (e *Engine) SemanticSearch(ctx context.Context, queryText string, k int, language string, rerankByCentrality bool) ([]ScoredEntity, error) {
	if e.Embedder == nil {
		return nil, coderrors.NewLogicError("no embedding provider configured", "", "", nil)
	}
	vec, err := e.Embedder.Embed(ctx, queryText)
	if err != nil {
		return nil, err
	}
	if k <= 0 {
		k = defaultK
	}
	neighbors, err := e.Vectors.NearestNeighbors(ctx, vec, k)
	if err != nil {
		return nil, err
	}

	out := make([]ScoredEntity, 0, len(neighbors))
	for _, n := range neighbors {
		ent, err := e.Graph.GetEntity(ctx, n.EntityID)
		if err != nil {
			return nil, err
		}
		if ent == nil {
			continue
		}
		if language != "" && ent.Language != language {
			continue
		}
		out = append(out, ScoredEntity{Entity: *ent, Similarity: 1 - n.Distance})
	}

	if rerankByCentrality {
		indeg := make(map[string]int, len(out))
		for _, s := range out {
			rels, err := e.Graph.RelationshipsTo(ctx, s.Entity.ID)
			if err != nil {
				return nil, err
			}
			indeg[s.Entity.ID] = len(rels)
		}
		sort.SliceStable(out, func(i, j int) bool {
			if indeg[out[i].Entity.ID] != indeg[out[j].Entity.ID] {
				return indeg[out[i].Entity.ID] > indeg[out[j].Entity.ID]
			}
			return out[i].Similarity > out[j].Similarity
		})
	} else {
		sort.SliceStable(out, func(i, j int) bool {
			if out[i].Similarity != out[j].Similarity {
				return out[i].Similarity > out[j].Similarity
			}
			return out[i].Entity.ID < out[j].Entity.ID
		})
	}
	if len(out) > k {
		out = out[:k]
	}
	return out, nil
}

// FindSimilar embeds codeText and returns up to k entities whose
// similarity is >= threshold, ordered by descending similarity (entity
// ID tie-break).
func (e *Engine) FindSimilar(ctx context.Context, codeText string, threshold float64, k int) ([]ScoredEntity, error) {
	if e.Embedder == nil {
		return nil, coderrors.NewLogicError("no embedding provider configured", "", "", nil)
	}
	vec, err := e.Embedder.Embed(ctx, codeText)
	if err != nil {
		return nil, err
	}
	if k <= 0 {
		k = defaultK
	}
	// Overfetch, since some neighbors will fall below threshold.
	neighbors, err := e.Vectors.NearestNeighbors(ctx, vec, k*4)
	if err != nil {
		return nil, err
	}

	out := make([]ScoredEntity, 0, len(neighbors))
	for _, n := range neighbors {
		sim := 1 - n.Distance
		if sim < threshold {
			continue
		}
		ent, err := e.Graph.GetEntity(ctx, n.EntityID)
		if err != nil {
			return nil, err
		}
		if ent == nil {
			continue
		}
		out = append(out, ScoredEntity{Entity: *ent, Similarity: sim})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Similarity != out[j].Similarity {
			return out[i].Similarity > out[j].Similarity
		}
		return out[i].Entity.ID < out[j].Entity.ID
	})
	if len(out) > k {
		out = out[:k]
	}
	return out, nil
}

// Hotspot is one entity ranked by Hotspots.
type Hotspot struct {
	Entity core.Entity
	Score  float64
}

// Hotspots ranks every entity by metric ∈ {complexity, fan-in, fan-out,
// coupling} (empty defaults to complexity), descending, entity ID
// tie-break. `changes` is a documented Non-goal: it depends on external
// VCS history this repository has no access to.
func (e *Engine) Hotspots(ctx context.Context, metric string, k int) ([]Hotspot, error) {
	entities, err := e.Graph.AllEntities(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]Hotspot, 0, len(entities))
	for _, ent := range entities {
		score, err := e.hotspotScore(ctx, ent, metric)
		if err != nil {
			return nil, err
		}
		out = append(out, Hotspot{Entity: ent, Score: score})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Entity.ID < out[j].Entity.ID
	})
	if k > 0 && len(out) > k {
		out = out[:k]
	}
	return out, nil
}

func (e *Engine) hotspotScore(ctx context.Context, ent core.Entity, metric string) (float64, error) {
	switch metric {
	case "", "complexity":
		code, err := e.Graph.GetEntityCode(ctx, ent.ID)
		if err != nil {
			return 0, err
		}
		// AST node count isn't retained past extraction; token count of
		// the entity's own span is the nearest available proxy.
		return float64(len(strings.Fields(code))), nil
	case "fan-in":
		rels, err := e.Graph.RelationshipsTo(ctx, ent.ID)
		if err != nil {
			return 0, err
		}
		return float64(len(rels)), nil
	case "fan-out":
		rels, err := e.Graph.RelationshipsFrom(ctx, ent.ID)
		if err != nil {
			return 0, err
		}
		return float64(len(rels)), nil
	case "coupling":
		in, err := e.Graph.RelationshipsTo(ctx, ent.ID)
		if err != nil {
			return 0, err
		}
		fanOut, err := e.Graph.RelationshipsFrom(ctx, ent.ID)
		if err != nil {
			return 0, err
		}
		return float64(len(in) + len(fanOut)), nil
	case "changes":
		return 0, coderrors.NewInputError(coderrors.CodeUnsupportedMetric,
			`hotspot metric "changes" is not supported`,
			"requires external VCS history this repository does not have access to",
			"use complexity, fan-in, fan-out, or coupling instead")
	default:
		return 0, coderrors.NewInputError(coderrors.CodeUnsupportedMetric,
			fmt.Sprintf("unknown hotspot metric %q", metric), "",
			"use complexity, fan-in, fan-out, or coupling")
	}
}
