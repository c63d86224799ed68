// Copyright 2026 CodeRef Authors
//
// SPDX-License-Identifier: Apache-2.0

package agents

import (
	"context"
	"log/slog"
	"os"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/coderef-dev/coderef/internal/bus"
	"github.com/coderef-dev/coderef/internal/cache"
	"github.com/coderef-dev/coderef/internal/content"
	coderrors "github.com/coderef-dev/coderef/internal/errors"
	"github.com/coderef-dev/coderef/internal/parser"
	"github.com/coderef-dev/coderef/internal/queue"
	"github.com/coderef-dev/coderef/internal/resource"
)

// ParseTaskKind is the queue.Task.Kind a ParserAgent accepts.
const ParseTaskKind = "parse"

// ParseFile names one file in a ParsePayload batch.
type ParseFile struct {
	Path     string
	Language parser.Language
}

// ParsePayload is the queue.Task.Payload a ParserAgent expects: a batch
// of files to parse in one chunk, amortising grammar warm-up.
type ParsePayload struct {
	FileID   map[string]string // path -> deterministic file ID
	Files    []ParseFile
	Previous map[string]*parser.Tree // path -> previous tree, for incremental re-parse
}

// ParseComplete is published on bus.TopicParseComplete.
type ParseComplete struct {
	FileID     string
	Path       string
	Fingerprint string
	Result     *parser.ExtractResult
}

// ParseFailed is published on bus.TopicParseFailed.
type ParseFailed struct {
	Path string
	Err  string
}

// defaultBatchSize is not referenced by ParserAgent: processBatch
// handles every file of one ParsePayload in a single pass.
const defaultBatchSize = 8

// ParserAgent is the ParserAgent (C10): dequeues parse tasks, probes
// ParseCache, and on miss parses + extracts through ParserCore and
// Extractor, publishing parse:complete / parse:failed on the bus.
type ParserAgent struct {
	Queue     *queue.Queue
	Bus       *bus.Bus
	Resources *resource.Manager
	Core      *parser.Core
	Extractor *parser.Extractor
	Hasher    *content.Hasher
	Cache     *cache.ParseCache
	Logger    *slog.Logger
	Workers   int

	group     *errgroup.Group
	cancel    context.CancelFunc
	running   atomic.Bool
	inFlight  atomic.Int64
	completed atomic.Int64
	failed    atomic.Int64
	lastErr   atomic.Value
}

var _ Agent = (*ParserAgent)(nil)

func (a *ParserAgent) Kind() Kind { return KindParser }

func (a *ParserAgent) Accepts(taskKind string) bool { return taskKind == ParseTaskKind }

// Start launches Workers worker goroutines (default 1) pulling from
// Queue until ctx is cancelled or Stop is called. The pool is an
// errgroup; every worker returns nil when its loop ends, so the
// workers' shared context is cancelled only through ctx or Stop.
func (a *ParserAgent) Start(ctx context.Context) error {
	if a.Logger == nil {
		a.Logger = slog.Default()
	}
	workers := a.Workers
	if workers <= 0 {
		workers = 1
	}
	runCtx, cancel := context.WithCancel(ctx)
	a.cancel = cancel
	a.running.Store(true)

	g, gctx := errgroup.WithContext(runCtx)
	a.group = g
	for i := 0; i < workers; i++ {
		g.Go(func() error {
			a.loop(gctx)
			return nil
		})
	}
	a.Logger.Info("parser.agent.start", "workers", workers)
	return nil
}

func (a *ParserAgent) Stop(ctx context.Context) error {
	if a.cancel != nil {
		a.cancel()
	}
	a.running.Store(false)
	if a.group != nil {
		_ = a.group.Wait()
	}
	a.Logger.Info("parser.agent.stop")
	return nil
}

func (a *ParserAgent) Snapshot() Health {
	var lastErr string
	if v := a.lastErr.Load(); v != nil {
		lastErr = v.(string)
	}
	return Health{
		Kind: KindParser, Running: a.running.Load(),
		InFlight: int(a.inFlight.Load()), Completed: a.completed.Load(),
		Failed: a.failed.Load(), LastError: lastErr,
	}
}

// Handle lets the Conductor invoke ParserAgent synchronously for a
// Simple-classified tool call, bypassing the queue.
func (a *ParserAgent) Handle(ctx context.Context, task *queue.Task) (any, error) {
	payload, ok := task.Payload.(ParsePayload)
	if !ok {
		return nil, coderrors.NewLogicError("ParserAgent received a non-ParsePayload task", "", "", nil)
	}
	return a.processBatch(ctx, payload), nil
}

func (a *ParserAgent) loop(ctx context.Context) {
	for {
		task, err := a.Queue.Dequeue(ctx)
		if err != nil || task == nil {
			return
		}
		if !a.Accepts(task.Kind) {
			continue
		}
		a.inFlight.Add(1)
		payload, ok := task.Payload.(ParsePayload)
		if ok {
			a.processBatch(task.Context(), payload)
		}
		a.inFlight.Add(-1)
	}
}

// processBatch implements the per-file state machine: New -> Hashing
// -> (Cached | Parsing) -> Extracting -> Published -> Done, with any
// non-terminal error routing to Failed. One file's error never aborts
// the batch.
func (a *ParserAgent) processBatch(ctx context.Context, payload ParsePayload) []ParseComplete {
	results := make([]ParseComplete, 0, len(payload.Files))
	for _, f := range payload.Files {
		select {
		case <-ctx.Done():
			return results
		default:
		}

		fileID := payload.FileID[f.Path]
		raw, err := os.ReadFile(f.Path)
		if err != nil {
			a.fail(f.Path, err)
			continue
		}

		fp := a.Hasher.Sum(raw, string(f.Language))
		if entry, hit := a.Cache.Get(fileID, fp); hit {
			results = append(results, a.publishComplete(fileID, f.Path, fp, &parser.ExtractResult{
				Entities: entry.Entities, Relationships: entry.Relationships,
			}))
			continue
		}

		lease, err := a.Resources.Request(ctx, resource.Request{
			EstimatedMemoryBytes: int64(len(raw)) * 4,
			CPUShare:             0.25,
			IOClass:              resource.IOClassCPU,
		})
		if err != nil {
			a.fail(f.Path, err)
			continue
		}

		prev := payload.Previous[f.Path]
		result, err := a.parseAndExtract(ctx, fileID, f, raw, prev)
		lease.Release()
		if err != nil {
			a.fail(f.Path, err)
			continue
		}

		a.Cache.Put(fileID, cache.Entry{Fingerprint: fp, Entities: result.Entities, Relationships: result.Relationships})
		results = append(results, a.publishComplete(fileID, f.Path, fp, result))
	}
	return results
}

// parseAndExtract parses raw (incrementally against prev when the
// caller supplied a previous tree for this path, per ParsePayload's
// Previous map) and walks the result through the Extractor.
func (a *ParserAgent) parseAndExtract(ctx context.Context, fileID string, f ParseFile, raw []byte, prev *parser.Tree) (*parser.ExtractResult, error) {
	var tree *parser.Tree
	var err error
	if prev != nil {
		tree, err = a.Core.ParseIncremental(ctx, f.Language, raw, prev)
	} else {
		tree, err = a.Core.Parse(ctx, f.Language, raw)
	}
	if err != nil {
		return nil, err
	}
	defer tree.Close()
	return a.Extractor.Walk(tree, fileID, f.Path)
}

func (a *ParserAgent) publishComplete(fileID, path string, fp content.Fingerprint, result *parser.ExtractResult) ParseComplete {
	evt := ParseComplete{FileID: fileID, Path: path, Fingerprint: fp.String(), Result: result}
	a.completed.Add(1)
	a.Bus.Publish(bus.Event{Topic: bus.TopicParseComplete, Key: fileID, Payload: evt})
	return evt
}

func (a *ParserAgent) fail(path string, err error) {
	a.failed.Add(1)
	a.lastErr.Store(err.Error())
	a.Logger.Warn("parser.agent.parse_file.error", "path", path, "err", err)
	a.Bus.Publish(bus.Event{Topic: bus.TopicParseFailed, Key: path, Payload: ParseFailed{Path: path, Err: err.Error()}})
}
