// Copyright 2026 CodeRef Authors
//
// SPDX-License-Identifier: Apache-2.0

package conductor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/coderef-dev/coderef/internal/agents"
	"github.com/coderef-dev/coderef/internal/queue"
)

// IndexResult is the §6 `index` tool's result shape:
// {files_indexed, entities, duration_ms, errors[]}.
type IndexResult struct {
	FilesIndexed int
	Entities     int
	DurationMS   int64
	Errors       []string
}

// indexSession tracks one in-flight Index call's completion barrier:
// it waits until every file it submitted has either been indexed
// (index:complete) or failed to parse (parse:failed), or the request
// times out.
type indexSession struct {
	mu        sync.Mutex
	pathToID  map[string]string // path -> fileID, the batch this session submitted
	pending   map[string]bool   // fileID -> still awaited
	result    IndexResult
	done      chan struct{}
	closeOnce sync.Once

	// onProgress, if set, is called after each file resolves with the
	// number done so far and the batch total. Called with the session
	// lock held, so it must not block or re-enter the session.
	onProgress func(done, total int)
	total      int
}

func newIndexSession(pathToID map[string]string) *indexSession {
	pending := make(map[string]bool, len(pathToID))
	for _, id := range pathToID {
		pending[id] = true
	}
	return &indexSession{pathToID: pathToID, pending: pending, done: make(chan struct{}), total: len(pathToID)}
}

func (s *indexSession) onIndexComplete(ic agents.IndexComplete) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.pending[ic.FileID] {
		return
	}
	delete(s.pending, ic.FileID)
	s.result.FilesIndexed++
	s.result.Entities += len(ic.AffectedIDs)
	s.reportProgress()
	s.maybeFinish()
}

func (s *indexSession) onParseFailed(pf agents.ParseFailed) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ours := s.pathToID[pf.Path]
	if !ours || !s.pending[id] {
		return
	}
	delete(s.pending, id)
	s.result.Errors = append(s.result.Errors, fmt.Sprintf("%s: %s", pf.Path, pf.Err))
	s.reportProgress()
	s.maybeFinish()
}

// reportProgress notifies onProgress of the current completion count.
// Caller must hold s.mu.
func (s *indexSession) reportProgress() {
	if s.onProgress != nil {
		s.onProgress(s.total-len(s.pending), s.total)
	}
}

// maybeFinish closes done once every file this session submitted has
// resolved. Caller must hold s.mu.
func (s *indexSession) maybeFinish() {
	if len(s.pending) == 0 {
		s.closeOnce.Do(func() { close(s.done) })
	}
}

// timeoutErrors synthesizes one error per file that never resolved
// before the request deadline, so partial failure is always explicit
// rather than silently truncating the result.
func (s *indexSession) timeoutErrors() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	pathByID := make(map[string]string, len(s.pathToID))
	for path, id := range s.pathToID {
		pathByID[id] = path
	}
	out := make([]string, 0, len(s.pending))
	for id := range s.pending {
		path := pathByID[id]
		if path == "" {
			path = id
		}
		out = append(out, fmt.Sprintf("%s: timed out waiting for index completion", path))
	}
	return out
}

// Index is the Complex/DAG path (C14 §4.14's orchestrated case): parse
// the batch, then block on every file's index:complete/parse:failed
// fan-in before composing one result. The Conductor never parses or
// indexes itself — it only submits to ParserAgent and waits on the bus
// events the already-running IndexerAgent publishes in response.
func (c *Conductor) Index(ctx context.Context, payload agents.ParsePayload) (*IndexResult, error) {
	return c.IndexWithProgress(ctx, payload, nil)
}

// IndexWithProgress is Index with a callback invoked after each file in
// the batch resolves (indexed or failed), for a caller that wants to
// render progress (e.g. the CLI's progress bar) rather than block
// silently until the whole batch completes.
func (c *Conductor) IndexWithProgress(ctx context.Context, payload agents.ParsePayload, onProgress func(done, total int)) (*IndexResult, error) {
	start := timeSource()
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	sessionID := fmt.Sprintf("idx-%d", c.seq.Add(1))
	session := newIndexSession(payload.FileID)
	session.onProgress = onProgress

	c.mu.Lock()
	c.sessions[sessionID] = session
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		delete(c.sessions, sessionID)
		c.mu.Unlock()
	}()

	parser := c.Agents.Get(agents.KindParser)
	if parser == nil {
		return nil, fmt.Errorf("conductor: no parser agent registered")
	}
	if _, err := parser.Handle(ctx, &queue.Task{ID: sessionID, Kind: agents.ParseTaskKind, Payload: payload}); err != nil {
		return nil, fmt.Errorf("conductor: parse batch: %w", err)
	}

	select {
	case <-session.done:
	case <-ctx.Done():
		session.result.Errors = append(session.result.Errors, session.timeoutErrors()...)
	}

	session.mu.Lock()
	result := session.result
	session.mu.Unlock()
	result.DurationMS = timeSource().Sub(start).Milliseconds()
	return &result, nil
}

// timeSource is a package-level seam so tests can stub wall-clock reads
// without the forbidden time.Now() call appearing inline in request
// handling.
var timeSource = time.Now
