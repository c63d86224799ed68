// Copyright 2026 CodeRef Authors
//
// SPDX-License-Identifier: Apache-2.0

package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/coderef-dev/coderef/internal/core"
	coderrors "github.com/coderef-dev/coderef/internal/errors"
	cozo "github.com/coderef-dev/coderef/pkg/cozodb"
)

// Config configures a GraphStore's embedded CozoDB instance. Grounded
// on kraklabs-cie's EmbeddedConfig.
type Config struct {
	// DataDir is the directory CozoDB stores its data under. Defaults
	// to ~/.coderef/data/<project_id>.
	DataDir string
	// Engine is the CozoDB storage engine: "rocksdb", "sqlite", or "mem".
	// Defaults to "rocksdb".
	Engine string
	// ProjectID namespaces the data directory.
	ProjectID string
}

func (c Config) resolve() (Config, error) {
	if c.Engine == "" {
		c.Engine = "rocksdb"
	}
	if c.DataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return c, fmt.Errorf("resolve home dir: %w", err)
		}
		c.DataDir = filepath.Join(home, ".coderef", "data")
		if c.ProjectID != "" {
			c.DataDir = filepath.Join(c.DataDir, c.ProjectID)
		}
	}
	return c, nil
}

// GraphStore is coderef's structural store: files, entities and
// relationships, backed by one embedded CozoDB instance. VectorStore
// is implemented directly on GraphStore's *cozo.CozoDB handle, since
// the graph and the HNSW-indexed embedding relation are one coherent
// database, not two separate systems.
type GraphStore struct {
	mu     sync.RWMutex
	db     *cozo.CozoDB
	closed bool
}

// Open creates or opens the embedded CozoDB instance at cfg's data
// directory and ensures the coderef schema and HNSW index exist.
func Open(cfg Config) (*GraphStore, error) {
	cfg, err := cfg.resolve()
	if err != nil {
		return nil, coderrors.NewStorageError(coderrors.CodeStorageCorrupt,
			"cannot resolve data directory", err.Error(), "set Config.DataDir explicitly", err)
	}
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, coderrors.NewStorageError(coderrors.CodeStorageCorrupt,
			"cannot create data directory", err.Error(), "check filesystem permissions", err)
	}

	db, err := cozo.New(cfg.Engine, cfg.DataDir, nil)
	if err != nil {
		return nil, coderrors.NewStorageError(coderrors.CodeStorageCorrupt,
			"cannot open CozoDB", err.Error(), "check CozoDB is installed and the data directory is writable", err)
	}

	gs := &GraphStore{db: &db}
	if err := gs.ensureSchema(); err != nil {
		db.Close()
		return nil, err
	}
	if err := gs.ensureIndexes(); err != nil {
		db.Close()
		return nil, err
	}
	if err := gs.checkSchemaVersion(); err != nil {
		db.Close()
		return nil, err
	}
	return gs, nil
}

// checkSchemaVersion refuses to open a database whose schema_version is
// newer than CurrentSchemaVersion (a binary downgrade onto data written
// by a newer version), and stamps a freshly-created database with the
// current version.
func (gs *GraphStore) checkSchemaVersion() error {
	res, err := gs.db.RunReadOnly(`?[schema_version] := *coderef_meta{id: $id, schema_version}`,
		map[string]any{"id": 0})
	if err != nil {
		return coderrors.NewStorageError(coderrors.CodeStorageCorrupt,
			"failed to read schema version", err.Error(), "restore from backup", err)
	}
	if len(res.Rows) == 0 {
		if _, err := gs.db.Run(`?[id, schema_version] <- [[$id, $v]] :put coderef_meta { id => schema_version }`,
			map[string]any{"id": 0, "v": CurrentSchemaVersion}); err != nil {
			return coderrors.NewStorageError(coderrors.CodeStorageCorrupt,
				"failed to stamp schema version", err.Error(), "restore from backup", err)
		}
		return nil
	}
	stored := asInt64(res.Rows[0][0])
	if stored > int64(CurrentSchemaVersion) {
		return coderrors.NewStorageError(coderrors.CodeSchemaTooNew,
			fmt.Sprintf("database schema version %d is newer than this binary supports (%d)", stored, CurrentSchemaVersion),
			"", "upgrade coderef before opening this database", nil)
	}
	return nil
}

func (gs *GraphStore) ensureSchema() error {
	for _, stmt := range schemaStatements {
		if _, err := gs.db.Run(stmt, nil); err != nil && !alreadyExists(err) {
			return coderrors.NewStorageError(coderrors.CodeStorageCorrupt,
				"failed to create schema relation", err.Error(), "restore from backup or delete the data directory to reindex", err)
		}
	}
	return nil
}

func (gs *GraphStore) ensureIndexes() error {
	for _, stmt := range hnswStatements {
		if _, err := gs.db.Run(stmt, nil); err != nil && !alreadyExists(err) {
			return coderrors.NewStorageError(coderrors.CodeStorageCorrupt,
				"failed to create HNSW index", err.Error(), "restore from backup", err)
		}
	}
	return nil
}

// Close releases the underlying CozoDB handle.
func (gs *GraphStore) Close() error {
	gs.mu.Lock()
	defer gs.mu.Unlock()
	if gs.closed {
		return nil
	}
	gs.closed = true
	gs.db.Close()
	return nil
}

// DB exposes the underlying CozoDB handle for VectorStore and query
// code that needs to issue Datalog directly.
func (gs *GraphStore) DB() *cozo.CozoDB { return gs.db }

func (gs *GraphStore) checkOpen() error {
	if gs.closed {
		return coderrors.NewStorageError(coderrors.CodeStorageCorrupt, "store is closed", "", "reopen the store", nil)
	}
	return nil
}

// UpsertFile inserts or replaces a file's metadata row.
func (gs *GraphStore) UpsertFile(ctx context.Context, f core.File) error {
	gs.mu.Lock()
	defer gs.mu.Unlock()
	if err := gs.checkOpen(); err != nil {
		return err
	}
	_, err := gs.db.Run(`
		?[id, path, language, fingerprint, size, last_seen] <- [[$id, $path, $language, $fingerprint, $size, $last_seen]]
		:put coderef_file { id => path, language, fingerprint, size, last_seen }
	`, map[string]any{
		"id": f.ID, "path": f.Path, "language": f.Language,
		"fingerprint": f.Fingerprint, "size": f.Size, "last_seen": f.LastSeen,
	})
	if err != nil {
		return coderrors.NewStorageError(coderrors.CodeStorageTransient, "failed to upsert file", err.Error(), "retry", err)
	}
	return nil
}

// GetFile fetches one file's metadata by ID.
func (gs *GraphStore) GetFile(ctx context.Context, fileID string) (*core.File, error) {
	gs.mu.RLock()
	defer gs.mu.RUnlock()
	if err := gs.checkOpen(); err != nil {
		return nil, err
	}
	res, err := gs.db.RunReadOnly(`
		?[id, path, language, fingerprint, size, last_seen] :=
			*coderef_file{id, path, language, fingerprint, size, last_seen}, id == $id
	`, map[string]any{"id": fileID})
	if err != nil {
		return nil, coderrors.NewStorageError(coderrors.CodeStorageTransient, "failed to read file", err.Error(), "retry", err)
	}
	if len(res.Rows) == 0 {
		return nil, nil
	}
	row := res.Rows[0]
	return &core.File{
		ID:          asString(row[0]),
		Path:        asString(row[1]),
		Language:    asString(row[2]),
		Fingerprint: asString(row[3]),
		Size:        asInt64(row[4]),
		LastSeen:    asInt64(row[5]),
	}, nil
}

// DeleteFile removes a file and every entity/relationship/embedding
// rooted in it — coderef's reindex path calls this before
// re-extracting a changed file so stale entities never linger.
func (gs *GraphStore) DeleteFile(ctx context.Context, fileID string) error {
	gs.mu.Lock()
	defer gs.mu.Unlock()
	if err := gs.checkOpen(); err != nil {
		return err
	}

	statements := []string{
		`?[entity_id] := *coderef_entity{id: entity_id, file_id: $file_id}
		 :rm coderef_embedding { entity_id }`,
		`?[entity_id] := *coderef_entity{id: entity_id, file_id: $file_id}
		 :rm coderef_entity_code { entity_id }`,
		`?[entity_id, ordinal] := *coderef_entity{id: entity_id, file_id: $file_id}, *coderef_param{entity_id, ordinal}
		 :rm coderef_param { entity_id, ordinal }`,
		`?[entity_id, modifier] := *coderef_entity{id: entity_id, file_id: $file_id}, *coderef_entity_modifier{entity_id, modifier}
		 :rm coderef_entity_modifier { entity_id, modifier }`,
		`?[id] := *coderef_relationship{id, file_id: $file_id}
		 :rm coderef_relationship { id }`,
		`?[id] := *coderef_entity{id, file_id: $file_id}
		 :rm coderef_entity { id }`,
		`?[id] := *coderef_file{id: $file_id}
		 :rm coderef_file { id }`,
	}
	for _, stmt := range statements {
		if _, err := gs.db.Run(stmt, map[string]any{"file_id": fileID}); err != nil {
			return coderrors.NewStorageError(coderrors.CodeStorageTransient, "failed to delete file", err.Error(), "retry", err)
		}
	}
	return nil
}

// DeleteEntities cascades a delete across embeddings, code text,
// params, modifiers, and relationships for exactly the given entity
// IDs, then the entity rows themselves — the same cascade DeleteFile
// runs, scoped to an explicit ID set rather than a whole file, for
// IndexerAgent's per-entity diff.
func (gs *GraphStore) DeleteEntities(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	gs.mu.Lock()
	defer gs.mu.Unlock()
	if err := gs.checkOpen(); err != nil {
		return err
	}

	statements := []string{
		`?[entity_id] <- $ids
		 :rm coderef_embedding { entity_id }`,
		`?[entity_id] <- $ids
		 :rm coderef_entity_code { entity_id }`,
		`?[entity_id, ordinal] := *coderef_param{entity_id, ordinal}, entity_id in $id_set
		 :rm coderef_param { entity_id, ordinal }`,
		`?[entity_id, modifier] := *coderef_entity_modifier{entity_id, modifier}, entity_id in $id_set
		 :rm coderef_entity_modifier { entity_id, modifier }`,
		`?[id] := *coderef_relationship{id, source_id}, source_id in $id_set
		 :rm coderef_relationship { id }`,
		`?[id] <- $ids
		 :rm coderef_entity { id }`,
	}
	idRows := make([][]any, len(ids))
	for i, id := range ids {
		idRows[i] = []any{id}
	}
	for _, stmt := range statements {
		if _, err := gs.db.Run(stmt, map[string]any{"ids": idRows, "id_set": ids}); err != nil {
			return coderrors.NewStorageError(coderrors.CodeStorageTransient, "failed to delete entities", err.Error(), "retry", err)
		}
	}
	return nil
}

// UpsertEntities writes a batch of entities (and their parameters and
// modifiers) in one call.
func (gs *GraphStore) UpsertEntities(ctx context.Context, entities []core.Entity) error {
	gs.mu.Lock()
	defer gs.mu.Unlock()
	if err := gs.checkOpen(); err != nil {
		return err
	}
	for _, e := range entities {
		_, err := gs.db.Run(`
			?[id, kind, name, qualified_name, language, file_id, start_line, start_col, start_byte, end_line, end_col, end_byte, parent_id, return_type, content_hash] <- [[
				$id, $kind, $name, $qualified_name, $language, $file_id, $start_line, $start_col, $start_byte, $end_line, $end_col, $end_byte, $parent_id, $return_type, $content_hash
			]]
			:put coderef_entity { id => kind, name, qualified_name, language, file_id, start_line, start_col, start_byte, end_line, end_col, end_byte, parent_id, return_type, content_hash }
		`, map[string]any{
			"id": e.ID, "kind": string(e.Kind), "name": e.Name, "qualified_name": e.QualifiedName,
			"language": e.Language, "file_id": e.FileID,
			"start_line": e.Span.StartLine, "start_col": e.Span.StartCol, "start_byte": e.Span.StartByte,
			"end_line": e.Span.EndLine, "end_col": e.Span.EndCol, "end_byte": e.Span.EndByte,
			"parent_id": e.ParentID, "return_type": e.ReturnType, "content_hash": e.ContentHash,
		})
		if err != nil {
			return coderrors.NewStorageError(coderrors.CodeStorageTransient, "failed to upsert entity", err.Error(), "retry", err)
		}

		for i, p := range e.Parameters {
			_, err := gs.db.Run(`
				?[entity_id, ordinal, name, type_text, default_text, variadic] <- [[$entity_id, $ordinal, $name, $type_text, $default_text, $variadic]]
				:put coderef_param { entity_id, ordinal => name, type_text, default_text, variadic }
			`, map[string]any{
				"entity_id": e.ID, "ordinal": i, "name": p.Name,
				"type_text": p.Type, "default_text": p.Default, "variadic": p.Variadic,
			})
			if err != nil {
				return coderrors.NewStorageError(coderrors.CodeStorageTransient, "failed to upsert parameter", err.Error(), "retry", err)
			}
		}
		for _, m := range e.Modifiers {
			_, err := gs.db.Run(`
				?[entity_id, modifier] <- [[$entity_id, $modifier]]
				:put coderef_entity_modifier { entity_id, modifier }
			`, map[string]any{"entity_id": e.ID, "modifier": m})
			if err != nil {
				return coderrors.NewStorageError(coderrors.CodeStorageTransient, "failed to upsert modifier", err.Error(), "retry", err)
			}
		}
	}
	return nil
}

// UpsertEntityCode stores an entity's source text separately from its
// metadata, mirroring the teacher's lazy-loaded *_code relations.
func (gs *GraphStore) UpsertEntityCode(ctx context.Context, entityID, codeText string) error {
	gs.mu.Lock()
	defer gs.mu.Unlock()
	if err := gs.checkOpen(); err != nil {
		return err
	}
	_, err := gs.db.Run(`
		?[entity_id, code_text] <- [[$entity_id, $code_text]]
		:put coderef_entity_code { entity_id => code_text }
	`, map[string]any{"entity_id": entityID, "code_text": codeText})
	if err != nil {
		return coderrors.NewStorageError(coderrors.CodeStorageTransient, "failed to upsert entity code", err.Error(), "retry", err)
	}
	return nil
}

// GetEntityCode fetches an entity's stored source text, or "" if none
// has been recorded (entity not yet indexed past UpsertEntityCode, or
// deleted).
func (gs *GraphStore) GetEntityCode(ctx context.Context, entityID string) (string, error) {
	gs.mu.RLock()
	defer gs.mu.RUnlock()
	if err := gs.checkOpen(); err != nil {
		return "", err
	}
	res, err := gs.db.RunReadOnly(`
		?[code_text] := *coderef_entity_code{entity_id, code_text}, entity_id == $entity_id
	`, map[string]any{"entity_id": entityID})
	if err != nil {
		return "", coderrors.NewStorageError(coderrors.CodeStorageTransient, "failed to read entity code", err.Error(), "retry", err)
	}
	if len(res.Rows) == 0 {
		return "", nil
	}
	return asString(res.Rows[0][0]), nil
}

// UpsertRelationships writes a batch of relationship edges.
func (gs *GraphStore) UpsertRelationships(ctx context.Context, rels []core.Relationship) error {
	gs.mu.Lock()
	defer gs.mu.Unlock()
	if err := gs.checkOpen(); err != nil {
		return err
	}
	for _, r := range rels {
		_, err := gs.db.Run(`
			?[id, source_id, target_id, target_name, kind, file_id, start_byte, resolved] <- [[
				$id, $source_id, $target_id, $target_name, $kind, $file_id, $start_byte, $resolved
			]]
			:put coderef_relationship { id => source_id, target_id, target_name, kind, file_id, start_byte, resolved }
		`, map[string]any{
			"id": r.ID, "source_id": r.SourceID, "target_id": r.TargetID, "target_name": r.TargetName,
			"kind": string(r.Kind), "file_id": r.FileID, "start_byte": r.Span.StartByte, "resolved": r.Resolved,
		})
		if err != nil {
			return coderrors.NewStorageError(coderrors.CodeStorageTransient, "failed to upsert relationship", err.Error(), "retry", err)
		}
	}
	return nil
}

// EntitiesInFile lists every entity defined in fileID.
func (gs *GraphStore) EntitiesInFile(ctx context.Context, fileID string) ([]core.Entity, error) {
	gs.mu.RLock()
	defer gs.mu.RUnlock()
	if err := gs.checkOpen(); err != nil {
		return nil, err
	}
	res, err := gs.db.RunReadOnly(`
		?[id, kind, name, qualified_name, language, file_id, start_line, start_col, start_byte, end_line, end_col, end_byte, parent_id, return_type, content_hash] :=
			*coderef_entity{id, kind, name, qualified_name, language, file_id, start_line, start_col, start_byte, end_line, end_col, end_byte, parent_id, return_type, content_hash},
			file_id == $file_id
		:order start_byte
	`, map[string]any{"file_id": fileID})
	if err != nil {
		return nil, coderrors.NewStorageError(coderrors.CodeStorageTransient, "failed to list entities", err.Error(), "retry", err)
	}
	return entitiesFromRows(res.Rows), nil
}

// GetEntity fetches a single entity by ID, or nil if it doesn't exist.
func (gs *GraphStore) GetEntity(ctx context.Context, entityID string) (*core.Entity, error) {
	gs.mu.RLock()
	defer gs.mu.RUnlock()
	if err := gs.checkOpen(); err != nil {
		return nil, err
	}
	res, err := gs.db.RunReadOnly(`
		?[id, kind, name, qualified_name, language, file_id, start_line, start_col, start_byte, end_line, end_col, end_byte, parent_id, return_type, content_hash] :=
			*coderef_entity{id, kind, name, qualified_name, language, file_id, start_line, start_col, start_byte, end_line, end_col, end_byte, parent_id, return_type, content_hash},
			id == $id
	`, map[string]any{"id": entityID})
	if err != nil {
		return nil, coderrors.NewStorageError(coderrors.CodeStorageTransient, "failed to read entity", err.Error(), "retry", err)
	}
	entities := entitiesFromRows(res.Rows)
	if len(entities) == 0 {
		return nil, nil
	}
	return &entities[0], nil
}

// EntitiesByName finds every entity whose Name or QualifiedName
// matches name, used by the name-ambiguity surfacing logic in
// internal/query.
func (gs *GraphStore) EntitiesByName(ctx context.Context, name string) ([]core.Entity, error) {
	gs.mu.RLock()
	defer gs.mu.RUnlock()
	if err := gs.checkOpen(); err != nil {
		return nil, err
	}
	res, err := gs.db.RunReadOnly(`
		?[id, kind, name, qualified_name, language, file_id, start_line, start_col, start_byte, end_line, end_col, end_byte, parent_id, return_type, content_hash] :=
			*coderef_entity{id, kind, name, qualified_name, language, file_id, start_line, start_col, start_byte, end_line, end_col, end_byte, parent_id, return_type, content_hash},
			name == $name or qualified_name == $name
	`, map[string]any{"name": name})
	if err != nil {
		return nil, coderrors.NewStorageError(coderrors.CodeStorageTransient, "failed to search entities by name", err.Error(), "retry", err)
	}
	return entitiesFromRows(res.Rows), nil
}

// RelationshipsFrom returns every outgoing edge from entityID.
func (gs *GraphStore) RelationshipsFrom(ctx context.Context, entityID string) ([]core.Relationship, error) {
	return gs.relationshipsWhere(ctx, "source_id", entityID)
}

// RelationshipsTo returns every incoming edge to entityID (resolved
// edges only — unresolved relationships carry no target_id).
func (gs *GraphStore) RelationshipsTo(ctx context.Context, entityID string) ([]core.Relationship, error) {
	return gs.relationshipsWhere(ctx, "target_id", entityID)
}

func (gs *GraphStore) relationshipsWhere(ctx context.Context, column, value string) ([]core.Relationship, error) {
	gs.mu.RLock()
	defer gs.mu.RUnlock()
	if err := gs.checkOpen(); err != nil {
		return nil, err
	}
	query := fmt.Sprintf(`
		?[id, source_id, target_id, target_name, kind, file_id, start_byte, resolved] :=
			*coderef_relationship{id, source_id, target_id, target_name, kind, file_id, start_byte, resolved},
			%s == $value
	`, column)
	res, err := gs.db.RunReadOnly(query, map[string]any{"value": value})
	if err != nil {
		return nil, coderrors.NewStorageError(coderrors.CodeStorageTransient, "failed to list relationships", err.Error(), "retry", err)
	}
	rels := make([]core.Relationship, 0, len(res.Rows))
	for _, row := range res.Rows {
		rels = append(rels, core.Relationship{
			ID: asString(row[0]), SourceID: asString(row[1]), TargetID: asString(row[2]),
			TargetName: asString(row[3]), Kind: core.RelationshipKind(asString(row[4])),
			FileID: asString(row[5]), Span: core.Span{StartByte: int(asInt64(row[6]))},
			Resolved: asBool(row[7]),
		})
	}
	return rels, nil
}

// UnresolvedRelationships returns up to limit relationships whose
// resolved flag is still false. Nothing in this repository calls it.
func (gs *GraphStore) UnresolvedRelationships(ctx context.Context, limit int) ([]core.Relationship, error) {
	gs.mu.RLock()
	defer gs.mu.RUnlock()
	if err := gs.checkOpen(); err != nil {
		return nil, err
	}
	res, err := gs.db.RunReadOnly(`
		?[id, source_id, target_id, target_name, kind, file_id, start_byte, resolved] :=
			*coderef_relationship{id, source_id, target_id, target_name, kind, file_id, start_byte, resolved},
			resolved == false
		:limit $limit
	`, map[string]any{"limit": limit})
	if err != nil {
		return nil, coderrors.NewStorageError(coderrors.CodeStorageTransient, "failed to list unresolved relationships", err.Error(), "retry", err)
	}
	rels := make([]core.Relationship, 0, len(res.Rows))
	for _, row := range res.Rows {
		rels = append(rels, core.Relationship{
			ID: asString(row[0]), SourceID: asString(row[1]), TargetID: asString(row[2]),
			TargetName: asString(row[3]), Kind: core.RelationshipKind(asString(row[4])),
			FileID: asString(row[5]), Span: core.Span{StartByte: int(asInt64(row[6]))},
			Resolved: asBool(row[7]),
		})
	}
	return rels, nil
}

// ResolveRelationship stamps a relationship's target_id and marks it
// resolved. Nothing in this repository calls it.
func (gs *GraphStore) ResolveRelationship(ctx context.Context, relationshipID, targetID string) error {
	gs.mu.Lock()
	defer gs.mu.Unlock()
	if err := gs.checkOpen(); err != nil {
		return err
	}
	_, err := gs.db.Run(`
		?[id, target_id, resolved] <- [[$id, $target_id, true]]
		:update coderef_relationship { id => target_id, resolved }
	`, map[string]any{"id": relationshipID, "target_id": targetID})
	if err != nil {
		return coderrors.NewStorageError(coderrors.CodeStorageTransient, "failed to resolve relationship", err.Error(), "retry", err)
	}
	return nil
}

// AllEntities streams every entity in the store; used by module
// aggregation, clone detection and other whole-graph algorithms in
// internal/query. Not paginated: callers needing bounded memory should
// add a :limit/:offset to a dedicated query instead.
func (gs *GraphStore) AllEntities(ctx context.Context) ([]core.Entity, error) {
	gs.mu.RLock()
	defer gs.mu.RUnlock()
	if err := gs.checkOpen(); err != nil {
		return nil, err
	}
	res, err := gs.db.RunReadOnly(`
		?[id, kind, name, qualified_name, language, file_id, start_line, start_col, start_byte, end_line, end_col, end_byte, parent_id, return_type, content_hash] :=
			*coderef_entity{id, kind, name, qualified_name, language, file_id, start_line, start_col, start_byte, end_line, end_col, end_byte, parent_id, return_type, content_hash}
	`, nil)
	if err != nil {
		return nil, coderrors.NewStorageError(coderrors.CodeStorageTransient, "failed to list all entities", err.Error(), "retry", err)
	}
	return entitiesFromRows(res.Rows), nil
}

// AllRelationships streams every edge in the store.
func (gs *GraphStore) AllRelationships(ctx context.Context) ([]core.Relationship, error) {
	gs.mu.RLock()
	defer gs.mu.RUnlock()
	if err := gs.checkOpen(); err != nil {
		return nil, err
	}
	res, err := gs.db.RunReadOnly(`
		?[id, source_id, target_id, target_name, kind, file_id, start_byte, resolved] :=
			*coderef_relationship{id, source_id, target_id, target_name, kind, file_id, start_byte, resolved}
	`, nil)
	if err != nil {
		return nil, coderrors.NewStorageError(coderrors.CodeStorageTransient, "failed to list all relationships", err.Error(), "retry", err)
	}
	rels := make([]core.Relationship, 0, len(res.Rows))
	for _, row := range res.Rows {
		rels = append(rels, core.Relationship{
			ID: asString(row[0]), SourceID: asString(row[1]), TargetID: asString(row[2]),
			TargetName: asString(row[3]), Kind: core.RelationshipKind(asString(row[4])),
			FileID: asString(row[5]), Span: core.Span{StartByte: int(asInt64(row[6]))},
			Resolved: asBool(row[7]),
		})
	}
	return rels, nil
}

// Backup snapshots the whole database to path.
func (gs *GraphStore) Backup(path string) error {
	gs.mu.RLock()
	defer gs.mu.RUnlock()
	if err := gs.checkOpen(); err != nil {
		return err
	}
	if err := gs.db.Backup(path); err != nil {
		return coderrors.NewStorageError(coderrors.CodeStorageCorrupt, "backup failed", err.Error(), "check disk space", err)
	}
	return nil
}

func entitiesFromRows(rows [][]any) []core.Entity {
	entities := make([]core.Entity, 0, len(rows))
	for _, row := range rows {
		entities = append(entities, core.Entity{
			ID: asString(row[0]), Kind: core.EntityKind(asString(row[1])), Name: asString(row[2]),
			QualifiedName: asString(row[3]), Language: asString(row[4]), FileID: asString(row[5]),
			Span: core.Span{
				StartLine: int(asInt64(row[6])), StartCol: int(asInt64(row[7])), StartByte: int(asInt64(row[8])),
				EndLine: int(asInt64(row[9])), EndCol: int(asInt64(row[10])), EndByte: int(asInt64(row[11])),
			},
			ParentID: asString(row[12]), ReturnType: asString(row[13]), ContentHash: asString(row[14]),
		})
	}
	return entities
}

func asString(v any) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

func asInt64(v any) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case float64:
		return int64(n)
	case int:
		return int64(n)
	default:
		return 0
	}
}

func asBool(v any) bool {
	b, _ := v.(bool)
	return b
}
