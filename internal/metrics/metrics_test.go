// Copyright 2026 CodeRef Authors
//
// SPDX-License-Identifier: Apache-2.0

package metrics

import (
	"context"
	"testing"

	"github.com/coderef-dev/coderef/internal/agents"
	"github.com/coderef-dev/coderef/internal/queue"
)

type stubAgent struct{ kind agents.Kind }

func (s *stubAgent) Kind() agents.Kind               { return s.kind }
func (s *stubAgent) Accepts(taskKind string) bool    { return true }
func (s *stubAgent) Start(ctx context.Context) error { return nil }
func (s *stubAgent) Stop(ctx context.Context) error  { return nil }
func (s *stubAgent) Snapshot() agents.Health {
	return agents.Health{Kind: s.kind, Running: true, Completed: 3, Failed: 1, InFlight: 2}
}
func (s *stubAgent) Handle(ctx context.Context, t *queue.Task) (any, error) { return nil, nil }

func TestSnapshot_ReflectsAgentHealth(t *testing.T) {
	reg := agents.NewRegistry()
	reg.Register(&stubAgent{kind: agents.KindParser})

	m := New()
	snap, err := m.Snapshot(reg)
	if err != nil {
		t.Fatal(err)
	}
	if snap["coderef_agent_completed_total{parser}"] != 3 {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
	if snap["coderef_agent_failed_total{parser}"] != 1 {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
}
