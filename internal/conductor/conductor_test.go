// Copyright 2026 CodeRef Authors
//
// SPDX-License-Identifier: Apache-2.0

package conductor

import (
	"context"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/coderef-dev/coderef/internal/agents"
	"github.com/coderef-dev/coderef/internal/bus"
	"github.com/coderef-dev/coderef/internal/queue"
)

// TestMain verifies that dispatching through the Conductor and
// resolving or timing out index sessions leaves no goroutine behind —
// the bus subscription loop and per-session timers are the two places
// a leak would show up.
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// stubAgent is a minimal agents.Agent whose Handle returns whatever
// value/error the test configured, recording the last task it saw.
type stubAgent struct {
	kind    agents.Kind
	value   any
	err     error
	lastTag *queue.Task
}

func (s *stubAgent) Kind() agents.Kind                  { return s.kind }
func (s *stubAgent) Accepts(taskKind string) bool       { return true }
func (s *stubAgent) Start(ctx context.Context) error    { return nil }
func (s *stubAgent) Stop(ctx context.Context) error     { return nil }
func (s *stubAgent) Snapshot() agents.Health            { return agents.Health{Kind: s.kind, Running: true} }
func (s *stubAgent) Handle(ctx context.Context, t *queue.Task) (any, error) {
	s.lastTag = t
	return s.value, s.err
}

func newTestConductor() (*Conductor, *agents.Registry) {
	reg := agents.NewRegistry()
	b := bus.New()
	c := New(reg, b, nil, nil)
	return c, reg
}

func TestDispatch_RoutesToRegisteredAgent(t *testing.T) {
	c, reg := newTestConductor()
	stub := &stubAgent{kind: agents.KindQuery, value: "ok"}
	reg.Register(stub)

	got, err := c.Dispatch(context.Background(), agents.KindQuery, &queue.Task{ID: "t1", Kind: "query"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "ok" {
		t.Fatalf("want ok, got %v", got)
	}
	if stub.lastTag == nil || stub.lastTag.ID != "t1" {
		t.Fatal("stub agent did not receive the dispatched task")
	}
}

func TestDispatch_ErrorsWithoutRegisteredAgent(t *testing.T) {
	c, _ := newTestConductor()
	_, err := c.Dispatch(context.Background(), agents.KindIndexer, &queue.Task{ID: "t1"})
	if err == nil {
		t.Fatal("want error for unregistered agent kind")
	}
}

func TestConductor_Query_UnwrapsQueryResult(t *testing.T) {
	c, reg := newTestConductor()
	stub := &stubAgent{kind: agents.KindQuery, value: agents.QueryResult{Op: "hotspots", Value: 42}}
	reg.Register(stub)

	got, err := c.Query(context.Background(), agents.QueryRequest{Op: "hotspots"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Op != "hotspots" || got.Value != 42 {
		t.Fatalf("unexpected result: %+v", got)
	}
}

func TestIndexSession_CompletesWhenAllFilesResolve(t *testing.T) {
	s := newIndexSession(map[string]string{"a.go": "fid-a", "b.go": "fid-b"})
	s.onIndexComplete(agents.IndexComplete{FileID: "fid-a", AffectedIDs: []string{"e1", "e2"}})
	select {
	case <-s.done:
		t.Fatal("session should not be done after only one of two files resolves")
	default:
	}
	s.onParseFailed(agents.ParseFailed{Path: "b.go", Err: "syntax error"})
	select {
	case <-s.done:
	default:
		t.Fatal("session should be done once every submitted file resolves")
	}
	if s.result.FilesIndexed != 1 || len(s.result.Errors) != 1 || s.result.Entities != 2 {
		t.Fatalf("unexpected result: %+v", s.result)
	}
}

func TestIndexSession_IgnoresEventsForOtherSessions(t *testing.T) {
	s := newIndexSession(map[string]string{"a.go": "fid-a"})
	s.onIndexComplete(agents.IndexComplete{FileID: "fid-unrelated"})
	select {
	case <-s.done:
		t.Fatal("an unrelated file's completion must not resolve this session")
	default:
	}
}

func TestConductor_Index_TimesOutWithPartialResult(t *testing.T) {
	c, reg := newTestConductor()
	reg.Register(&stubAgent{kind: agents.KindParser, value: nil})
	c.RequestTimeout = 20 * time.Millisecond

	result, err := c.Index(context.Background(), agents.ParsePayload{
		FileID: map[string]string{"a.go": "fid-a"},
		Files:  []agents.ParseFile{{Path: "a.go"}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Errors) != 1 {
		t.Fatalf("want one timeout error, got %+v", result.Errors)
	}
}

func TestConductor_Index_ErrorsWithoutParserAgent(t *testing.T) {
	c, _ := newTestConductor()
	_, err := c.Index(context.Background(), agents.ParsePayload{})
	if err == nil {
		t.Fatal("want error when no parser agent is registered")
	}
}

func TestIndexSession_ReportsProgressPerFile(t *testing.T) {
	s := newIndexSession(map[string]string{"a.go": "fid-a", "b.go": "fid-b"})
	var seen [][2]int
	s.onProgress = func(done, total int) { seen = append(seen, [2]int{done, total}) }

	s.onIndexComplete(agents.IndexComplete{FileID: "fid-a"})
	s.onParseFailed(agents.ParseFailed{Path: "b.go", Err: "boom"})

	want := [][2]int{{1, 2}, {2, 2}}
	if len(seen) != len(want) {
		t.Fatalf("want %v, got %v", want, seen)
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Fatalf("want %v, got %v", want, seen)
		}
	}
}
