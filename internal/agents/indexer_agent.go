// Copyright 2026 CodeRef Authors
//
// SPDX-License-Identifier: Apache-2.0

package agents

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/coderef-dev/coderef/internal/bus"
	"github.com/coderef-dev/coderef/internal/core"
	"github.com/coderef-dev/coderef/internal/queue"
	"github.com/coderef-dev/coderef/internal/storage"
)

// IndexTaskKind is the queue.Task.Kind an IndexerAgent accepts for
// direct (non-bus-triggered) invocation, e.g. from the Conductor.
const IndexTaskKind = "index"

// ResolveTaskKind is the queue.Task.Kind enqueued on IndexerAgent's
// Resolver queue after every successful index, one per file, with the
// file ID as payload. No agent dequeues these tasks and nothing marks a
// relationship resolved, so stored relationships keep Resolved false;
// once the queue is full, further enqueues fail and the error is ignored.
const ResolveTaskKind = "resolve"

// IndexComplete is published on bus.TopicIndexComplete.
type IndexComplete struct {
	FileID        string
	AffectedIDs   []string
	RelationshipN int
}

// IndexerAgent is the IndexerAgent (C11): subscribes to
// parse:complete, diffs the new entity set against GraphStore's prior
// one for that file, writes the diff, fully replaces the file's
// outgoing relationships, then publishes index:complete and enqueues a
// resolve task (see ResolveTaskKind).
type IndexerAgent struct {
	Graph     *storage.GraphStore
	Bus       *bus.Bus
	Resolver  *queue.Queue // resolve tasks are enqueued here; nothing dequeues them (see ResolveTaskKind)
	Logger    *slog.Logger

	sub       <-chan bus.Event
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	running   atomic.Bool
	inFlight  atomic.Int64
	completed atomic.Int64
	failed    atomic.Int64
	lastErr   atomic.Value
}

var _ Agent = (*IndexerAgent)(nil)

func (a *IndexerAgent) Kind() Kind { return KindIndexer }

func (a *IndexerAgent) Accepts(taskKind string) bool { return taskKind == IndexTaskKind }

func (a *IndexerAgent) Start(ctx context.Context) error {
	if a.Logger == nil {
		a.Logger = slog.Default()
	}
	a.sub = a.Bus.Subscribe(bus.TopicParseComplete)
	runCtx, cancel := context.WithCancel(ctx)
	a.cancel = cancel
	a.running.Store(true)

	a.wg.Add(1)
	go a.loop(runCtx)
	a.Logger.Info("indexer.agent.start")
	return nil
}

func (a *IndexerAgent) Stop(ctx context.Context) error {
	if a.cancel != nil {
		a.cancel()
	}
	a.running.Store(false)
	a.wg.Wait()
	a.Logger.Info("indexer.agent.stop")
	return nil
}

func (a *IndexerAgent) Snapshot() Health {
	var lastErr string
	if v := a.lastErr.Load(); v != nil {
		lastErr = v.(string)
	}
	return Health{
		Kind: KindIndexer, Running: a.running.Load(),
		InFlight: int(a.inFlight.Load()), Completed: a.completed.Load(),
		Failed: a.failed.Load(), LastError: lastErr,
	}
}

// Handle lets the Conductor drive IndexerAgent synchronously for a
// Simple tool call carrying a pre-built ParseComplete payload.
func (a *IndexerAgent) Handle(ctx context.Context, task *queue.Task) (any, error) {
	evt, ok := task.Payload.(ParseComplete)
	if !ok {
		return nil, nil
	}
	return a.index(ctx, evt), nil
}

func (a *IndexerAgent) loop(ctx context.Context) {
	defer a.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-a.sub:
			if !ok {
				return
			}
			pc, ok := evt.Payload.(ParseComplete)
			if !ok {
				continue
			}
			a.inFlight.Add(1)
			a.index(ctx, pc)
			a.inFlight.Add(-1)
		}
	}
}

// index applies one file's new entity/relationship set: diff against
// the prior stored set (insert-only, update-in-place, delete-missing),
// fully replace outgoing relationships, then publish and enqueue a
// resolve task. Reapplying the same payload leaves the stored entities
// and relationships as they were: the entity diff is empty, and the
// relationship set is cleared and rewritten with the same edges. The
// file row is still rewritten, with a new LastSeen.
func (a *IndexerAgent) index(ctx context.Context, evt ParseComplete) IndexComplete {
	prior, err := a.Graph.EntitiesInFile(ctx, evt.FileID)
	if err != nil {
		a.fail(evt.Path, err)
		return IndexComplete{FileID: evt.FileID}
	}

	priorByID := make(map[string]core.Entity, len(prior))
	for _, e := range prior {
		priorByID[e.ID] = e
	}

	var newEntities []core.Entity
	if evt.Result != nil {
		newEntities = evt.Result.Entities
	}
	newByID := make(map[string]core.Entity, len(newEntities))
	for _, e := range newEntities {
		newByID[e.ID] = e
	}

	var toUpsert []core.Entity
	var toDelete []string
	var affected []string
	for id, e := range newByID {
		old, existed := priorByID[id]
		if !existed || old.ContentHash != e.ContentHash {
			toUpsert = append(toUpsert, e)
			affected = append(affected, id)
		}
	}
	for id := range priorByID {
		if _, stillPresent := newByID[id]; !stillPresent {
			toDelete = append(toDelete, id)
			affected = append(affected, id)
		}
	}

	if err := a.Graph.UpsertFile(ctx, core.File{
		ID: evt.FileID, Path: evt.Path, Fingerprint: evt.Fingerprint, LastSeen: time.Now().Unix(),
	}); err != nil {
		a.fail(evt.Path, err)
		return IndexComplete{FileID: evt.FileID}
	}
	if len(toUpsert) > 0 {
		if err := a.Graph.UpsertEntities(ctx, toUpsert); err != nil {
			a.fail(evt.Path, err)
			return IndexComplete{FileID: evt.FileID}
		}
		a.storeEntityCode(ctx, evt.Path, toUpsert)
	}
	if len(toDelete) > 0 {
		if err := a.Graph.DeleteEntities(ctx, toDelete); err != nil {
			a.fail(evt.Path, err)
			return IndexComplete{FileID: evt.FileID}
		}
	}

	// The file is the origin of all its outgoing relationships, so the
	// prior set is cleared before the new one is written.
	if _, err := a.Graph.DB().Run(`?[id] := *coderef_relationship{id, file_id: $file_id}
		:rm coderef_relationship { id }`, map[string]any{"file_id": evt.FileID}); err != nil {
		a.fail(evt.Path, err)
		return IndexComplete{FileID: evt.FileID}
	}

	var relN int
	if evt.Result != nil && len(evt.Result.Relationships) > 0 {
		if err := a.Graph.UpsertRelationships(ctx, evt.Result.Relationships); err != nil {
			a.fail(evt.Path, err)
			return IndexComplete{FileID: evt.FileID}
		}
		relN = len(evt.Result.Relationships)
	}

	result := IndexComplete{FileID: evt.FileID, AffectedIDs: affected, RelationshipN: relN}
	a.completed.Add(1)
	a.Bus.Publish(bus.Event{Topic: bus.TopicIndexComplete, Key: evt.FileID, Payload: result})

	if a.Resolver != nil {
		_ = a.Resolver.Enqueue(ctx, &queue.Task{
			ID: "resolve:" + evt.FileID, Kind: ResolveTaskKind, Priority: 1, Payload: evt.FileID,
		}, false)
	}
	return result
}

// storeEntityCode re-reads the source file once and slices each
// upserted entity's own span out of it, persisting the result via
// UpsertEntityCode so SemanticAgent can later embed without needing
// disk access itself. A read failure here only loses the cached code
// text, never the structural index, so it's logged and swallowed.
func (a *IndexerAgent) storeEntityCode(ctx context.Context, path string, entities []core.Entity) {
	raw, err := os.ReadFile(path)
	if err != nil {
		a.Logger.Warn("indexer.agent.entity_code.read_error", "path", path, "err", err)
		return
	}
	for _, e := range entities {
		if e.Span.StartByte < 0 || e.Span.EndByte > len(raw) || e.Span.StartByte > e.Span.EndByte {
			continue
		}
		if err := a.Graph.UpsertEntityCode(ctx, e.ID, string(raw[e.Span.StartByte:e.Span.EndByte])); err != nil {
			a.Logger.Warn("indexer.agent.entity_code.write_error", "entity_id", e.ID, "err", err)
		}
	}
}

func (a *IndexerAgent) fail(path string, err error) {
	a.failed.Add(1)
	a.lastErr.Store(err.Error())
	a.Logger.Warn("indexer.agent.index_file.error", "path", path, "err", err)
}
