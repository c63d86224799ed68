// Copyright 2026 CodeRef Authors
//
// SPDX-License-Identifier: Apache-2.0

package agents

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/coderef-dev/coderef/internal/bus"
	"github.com/coderef-dev/coderef/internal/core"
	"github.com/coderef-dev/coderef/internal/embedding"
	"github.com/coderef-dev/coderef/internal/queue"
	"github.com/coderef-dev/coderef/internal/storage"
)

// EmbedTaskKind is the queue.Task.Kind a SemanticAgent accepts for
// direct (non-bus-triggered) invocation, e.g. a bulk re-embed pass.
const EmbedTaskKind = "embed"

// maxSnippetChars bounds the text handed to the embedding provider,
// matching the teacher's 2000-character conservative limit for code
// (tokenizes poorly: operators and special characters cost more than
// one token each).
const maxSnippetChars = 2000

// EmbedStats summarizes one SemanticAgent pass over a set of affected
// entities.
type EmbedStats struct {
	Embedded int
	Skipped  int
	Failed   int
}

// SemanticAgent is the SemanticAgent (C12): subscribes to
// index:complete, decides per entity whether its embedding is missing
// or stale (content hash changed since last embed), and if so forms a
// bounded text snippet and submits it to the embedding Provider.
// Failures retry with exponential backoff up to a bound, then surface
// as embed:failed and are skipped rather than blocking the rest of the
// batch.
type SemanticAgent struct {
	Graph    *storage.GraphStore
	Vectors  *storage.VectorStore
	Bus      *bus.Bus
	Provider embedding.Provider
	Retry    embedding.RetryConfig
	Model    string
	Logger   *slog.Logger

	sub       <-chan bus.Event
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	running   atomic.Bool
	inFlight  atomic.Int64
	completed atomic.Int64
	failed    atomic.Int64
	lastErr   atomic.Value
}

var _ Agent = (*SemanticAgent)(nil)

func (a *SemanticAgent) Kind() Kind { return KindSemantic }

func (a *SemanticAgent) Accepts(taskKind string) bool { return taskKind == EmbedTaskKind }

func (a *SemanticAgent) Start(ctx context.Context) error {
	if a.Logger == nil {
		a.Logger = slog.Default()
	}
	if a.Model == "" {
		a.Model = "coderef-embed-v1"
	}
	a.sub = a.Bus.Subscribe(bus.TopicIndexComplete)
	runCtx, cancel := context.WithCancel(ctx)
	a.cancel = cancel
	a.running.Store(true)

	a.wg.Add(1)
	go a.loop(runCtx)
	a.Logger.Info("semantic.agent.start")
	return nil
}

func (a *SemanticAgent) Stop(ctx context.Context) error {
	if a.cancel != nil {
		a.cancel()
	}
	a.running.Store(false)
	a.wg.Wait()
	a.Logger.Info("semantic.agent.stop")
	return nil
}

func (a *SemanticAgent) Snapshot() Health {
	var lastErr string
	if v := a.lastErr.Load(); v != nil {
		lastErr = v.(string)
	}
	return Health{
		Kind: KindSemantic, Running: a.running.Load(),
		InFlight: int(a.inFlight.Load()), Completed: a.completed.Load(),
		Failed: a.failed.Load(), LastError: lastErr,
	}
}

// Handle lets the Conductor drive SemanticAgent synchronously for a
// Simple tool call carrying a pre-built IndexComplete payload.
func (a *SemanticAgent) Handle(ctx context.Context, task *queue.Task) (any, error) {
	evt, ok := task.Payload.(IndexComplete)
	if !ok {
		return nil, nil
	}
	return a.embedAffected(ctx, evt), nil
}

func (a *SemanticAgent) loop(ctx context.Context) {
	defer a.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-a.sub:
			if !ok {
				return
			}
			ic, ok := evt.Payload.(IndexComplete)
			if !ok {
				continue
			}
			a.inFlight.Add(1)
			a.embedAffected(ctx, ic)
			a.inFlight.Add(-1)
		}
	}
}

// embedAffected walks every entity IndexerAgent reported as changed
// and re-embeds the ones whose vector is missing or stale. One
// entity's failure never aborts the rest of the batch.
func (a *SemanticAgent) embedAffected(ctx context.Context, evt IndexComplete) EmbedStats {
	var stats EmbedStats
	for _, id := range evt.AffectedIDs {
		select {
		case <-ctx.Done():
			return stats
		default:
		}

		entity, err := a.Graph.GetEntity(ctx, id)
		if err != nil || entity == nil {
			// The entity was deleted in the same index pass the caller is
			// still iterating over; nothing to embed.
			stats.Skipped++
			continue
		}

		needed, err := a.needsEmbedding(ctx, *entity)
		if err != nil {
			a.fail(id, err)
			stats.Failed++
			continue
		}
		if !needed {
			stats.Skipped++
			continue
		}

		if err := a.embedOne(ctx, *entity); err != nil {
			a.fail(id, err)
			stats.Failed++
			continue
		}
		a.completed.Add(1)
		stats.Embedded++
	}
	a.Bus.Publish(bus.Event{Topic: bus.TopicEmbeddingDone, Key: evt.FileID, Payload: stats})
	return stats
}

func (a *SemanticAgent) needsEmbedding(ctx context.Context, entity core.Entity) (bool, error) {
	existing, err := a.Vectors.Get(ctx, entity.ID)
	if err != nil {
		return false, err
	}
	if existing == nil {
		return true, nil
	}
	return existing.ContentHash != entity.ContentHash, nil
}

// embedOne forms a bounded text snippet for entity, submits it through
// the retrying Provider, and upserts the resulting vector.
func (a *SemanticAgent) embedOne(ctx context.Context, entity core.Entity) error {
	text, err := a.snippetFor(ctx, entity)
	if err != nil {
		return err
	}

	vec, err := embedding.WithRetry(ctx, a.Retry, func(attempt int, sleep time.Duration, err error) {
		a.Logger.Warn("semantic.agent.embed.retry", "entity_id", entity.ID, "attempt", attempt, "sleep_ms", sleep.Milliseconds(), "err", err)
	}, func() ([]float32, error) {
		return a.Provider.Embed(ctx, text)
	})
	if err != nil {
		return err
	}

	return a.Vectors.Upsert(ctx, core.Embedding{
		EntityID: entity.ID, Model: a.Model, Dimension: len(vec),
		ContentHash: entity.ContentHash, Vector: vec,
	})
}

// snippetFor builds the text handed to the embedding provider: a
// one-line declaration signature, followed by the entity's own source
// text truncated to maxSnippetChars.
func (a *SemanticAgent) snippetFor(ctx context.Context, entity core.Entity) (string, error) {
	code, err := a.Graph.GetEntityCode(ctx, entity.ID)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString(declarationLine(entity))
	b.WriteByte('\n')
	if code != "" {
		b.WriteString(code)
	}

	snippet := b.String()
	if len(snippet) > maxSnippetChars {
		snippet = snippet[:maxSnippetChars]
	}
	return snippet, nil
}

func declarationLine(e core.Entity) string {
	params := make([]string, 0, len(e.Parameters))
	for _, p := range e.Parameters {
		if p.Type != "" {
			params = append(params, p.Name+" "+p.Type)
		} else {
			params = append(params, p.Name)
		}
	}
	sig := fmt.Sprintf("%s %s(%s)", e.Kind, e.QualifiedName, strings.Join(params, ", "))
	if e.ReturnType != "" {
		sig += " " + e.ReturnType
	}
	if len(e.Modifiers) > 0 {
		sig = strings.Join(e.Modifiers, " ") + " " + sig
	}
	return sig
}

func (a *SemanticAgent) fail(entityID string, err error) {
	a.failed.Add(1)
	a.lastErr.Store(err.Error())
	a.Logger.Warn("semantic.agent.embed.failed", "entity_id", entityID, "err", err)
	a.Bus.Publish(bus.Event{Topic: bus.TopicEmbeddingFailed, Key: entityID, Payload: err.Error()})
}
