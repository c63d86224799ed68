// Copyright 2026 CodeRef Authors
//
// SPDX-License-Identifier: Apache-2.0

package storage

import (
	"context"
	"fmt"

	"github.com/coderef-dev/coderef/internal/core"
	coderrors "github.com/coderef-dev/coderef/internal/errors"
)

// EmbeddingDimension is the vector width declared in the CozoDB schema
// and HNSW index (coderef_embedding.vector: <F32; 384>), matching a
// common small sentence-embedding model's output size.
const EmbeddingDimension = 384

// VectorStore is the embedding side of the same CozoDB database
// GraphStore opened: coderef stores vectors and the code graph in one
// engine, not two, so VectorStore is a thin view over GraphStore's
// handle rather than a separate connection.
type VectorStore struct {
	gs *GraphStore
}

// NewVectorStore wraps an already-open GraphStore.
func NewVectorStore(gs *GraphStore) *VectorStore {
	return &VectorStore{gs: gs}
}

// Upsert stores or replaces one entity's embedding. A vector error
// here (wrong dimension, embedding provider down) must never fail the
// structural indexing path — callers should log and continue rather
// than abort the batch.
func (vs *VectorStore) Upsert(ctx context.Context, emb core.Embedding) error {
	if len(emb.Vector) != EmbeddingDimension {
		return coderrors.NewVectorError("embedding has wrong dimension",
			fmt.Sprintf("got %d floats, want %d", len(emb.Vector), EmbeddingDimension),
			"check the embedding provider's output size matches EmbeddingDimension", nil)
	}

	vs.gs.mu.Lock()
	defer vs.gs.mu.Unlock()
	if err := vs.gs.checkOpen(); err != nil {
		return err
	}
	_, err := vs.gs.db.Run(`
		?[entity_id, model, dim, content_hash, vector] <- [[$entity_id, $model, $dim, $content_hash, $vector]]
		:put coderef_embedding { entity_id => model, dim, content_hash, vector }
	`, map[string]any{
		"entity_id": emb.EntityID, "model": emb.Model, "dim": emb.Dimension,
		"content_hash": emb.ContentHash, "vector": emb.Vector,
	})
	if err != nil {
		return coderrors.NewVectorError("failed to store embedding", err.Error(), "retry", err)
	}
	return nil
}

// Get fetches one entity's embedding, or nil if it has none.
func (vs *VectorStore) Get(ctx context.Context, entityID string) (*core.Embedding, error) {
	vs.gs.mu.RLock()
	defer vs.gs.mu.RUnlock()
	if err := vs.gs.checkOpen(); err != nil {
		return nil, err
	}
	res, err := vs.gs.db.RunReadOnly(`
		?[entity_id, model, dim, content_hash, vector] :=
			*coderef_embedding{entity_id, model, dim, content_hash, vector}, entity_id == $entity_id
	`, map[string]any{"entity_id": entityID})
	if err != nil {
		return nil, coderrors.NewVectorError("failed to read embedding", err.Error(), "retry", err)
	}
	if len(res.Rows) == 0 {
		return nil, nil
	}
	return embeddingFromRow(res.Rows[0]), nil
}

// NearestNeighbors runs an HNSW approximate-nearest-neighbor query
// against the embedding index, returning up to k entity IDs ordered by
// ascending cosine distance.
func (vs *VectorStore) NearestNeighbors(ctx context.Context, query []float32, k int) ([]NeighborResult, error) {
	if len(query) != EmbeddingDimension {
		return nil, coderrors.NewVectorError("query vector has wrong dimension",
			fmt.Sprintf("got %d floats, want %d", len(query), EmbeddingDimension),
			"check the embedding provider's output size matches EmbeddingDimension", nil)
	}

	vs.gs.mu.RLock()
	defer vs.gs.mu.RUnlock()
	if err := vs.gs.checkOpen(); err != nil {
		return nil, err
	}
	res, err := vs.gs.db.RunReadOnly(`
		?[entity_id, dist] := ~coderef_embedding:hnsw_idx{entity_id | query: $query, k: $k, ef: 64, bind_distance: dist}
		:order dist
	`, map[string]any{"query": query, "k": k})
	if err != nil {
		return nil, coderrors.NewVectorError("HNSW query failed", err.Error(), "retry, or check DISABLE_VECTOR_ACCEL is unset", err)
	}

	out := make([]NeighborResult, 0, len(res.Rows))
	for _, row := range res.Rows {
		out = append(out, NeighborResult{EntityID: asString(row[0]), Distance: asFloat64(row[1])})
	}
	return out, nil
}

// NeighborResult is one hit from NearestNeighbors.
type NeighborResult struct {
	EntityID string
	Distance float64
}

// StaleEmbeddings returns every entity whose stored embedding's
// content_hash no longer matches its current entity content hash —
// candidates for SemanticAgent re-embedding.
func (vs *VectorStore) StaleEmbeddings(ctx context.Context) ([]string, error) {
	vs.gs.mu.RLock()
	defer vs.gs.mu.RUnlock()
	if err := vs.gs.checkOpen(); err != nil {
		return nil, err
	}
	res, err := vs.gs.db.RunReadOnly(`
		?[entity_id] :=
			*coderef_entity{id: entity_id, content_hash},
			*coderef_embedding{entity_id, content_hash: embedded_hash},
			content_hash != embedded_hash
	`, nil)
	if err != nil {
		return nil, coderrors.NewVectorError("failed to scan for stale embeddings", err.Error(), "retry", err)
	}
	ids := make([]string, 0, len(res.Rows))
	for _, row := range res.Rows {
		ids = append(ids, asString(row[0]))
	}
	return ids, nil
}

// MissingEmbeddings returns every entity that has no embedding row at
// all yet — candidates for initial embedding on first index.
func (vs *VectorStore) MissingEmbeddings(ctx context.Context) ([]string, error) {
	vs.gs.mu.RLock()
	defer vs.gs.mu.RUnlock()
	if err := vs.gs.checkOpen(); err != nil {
		return nil, err
	}
	res, err := vs.gs.db.RunReadOnly(`
		embedded[entity_id] := *coderef_embedding{entity_id}
		?[id] := *coderef_entity{id}, not embedded[id]
	`, nil)
	if err != nil {
		return nil, coderrors.NewVectorError("failed to scan for missing embeddings", err.Error(), "retry", err)
	}
	ids := make([]string, 0, len(res.Rows))
	for _, row := range res.Rows {
		ids = append(ids, asString(row[0]))
	}
	return ids, nil
}

func embeddingFromRow(row []any) *core.Embedding {
	vec, _ := row[4].([]float32)
	if vec == nil {
		if raw, ok := row[4].([]any); ok {
			vec = make([]float32, len(raw))
			for i, v := range raw {
				vec[i] = float32(asFloat64(v))
			}
		}
	}
	return &core.Embedding{
		EntityID: asString(row[0]), Model: asString(row[1]),
		Dimension: int(asInt64(row[2])), ContentHash: asString(row[3]), Vector: vec,
	}
}

func asFloat64(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int64:
		return float64(n)
	default:
		return 0
	}
}
