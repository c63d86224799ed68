// Copyright 2026 CodeRef Authors
//
// SPDX-License-Identifier: Apache-2.0

// Package agents defines the common contract every worker (Parser,
// Indexer, Semantic, Query) implements, and a Registry that holds them
// as interface values keyed by kind — no reflection, no global
// singletons beyond the process-wide bus and metrics already carried
// by the caller.
package agents

import (
	"context"

	"github.com/coderef-dev/coderef/internal/queue"
)

// Kind identifies an agent's role.
type Kind string

const (
	KindParser   Kind = "parser"
	KindIndexer  Kind = "indexer"
	KindSemantic Kind = "semantic"
	KindQuery    Kind = "query"
)

// Lifecycle is start/stop control over an agent's worker pool.
type Lifecycle interface {
	// Start launches the agent's worker goroutines and returns once they
	// are ready to accept tasks. ctx cancellation is the agent's own
	// shutdown signal in addition to Stop.
	Start(ctx context.Context) error
	// Stop drains in-flight tasks (best effort) and halts the worker
	// pool. Safe to call once Start has returned.
	Stop(ctx context.Context) error
}

// TaskHandler lets the scheduler ask an agent whether it owns a task
// kind, then hand the task over.
type TaskHandler interface {
	Accepts(taskKind string) bool
	Handle(ctx context.Context, task *queue.Task) (any, error)
}

// Health is a point-in-time status report.
type Health struct {
	Kind        Kind
	Running     bool
	InFlight    int
	Completed   int64
	Failed      int64
	LastError   string
}

// HealthReport lets the scheduler or a status CLI poll an agent's
// current state without coupling to its internals.
type HealthReport interface {
	Snapshot() Health
}

// Agent is the full capability set a worker offers the scheduler.
type Agent interface {
	Lifecycle
	TaskHandler
	HealthReport
	Kind() Kind
}

// Registry holds started agents keyed by kind, so the Conductor can
// route a task without knowing concrete agent types.
type Registry struct {
	agents map[Kind]Agent
}

// NewRegistry builds an empty Registry.
func NewRegistry() *Registry {
	return &Registry{agents: make(map[Kind]Agent)}
}

// Register adds an agent, overwriting any prior registration for the
// same kind.
func (r *Registry) Register(a Agent) {
	r.agents[a.Kind()] = a
}

// Get returns the agent for kind, or nil if none is registered.
func (r *Registry) Get(kind Kind) Agent {
	return r.agents[kind]
}

// All returns every registered agent, in no particular order.
func (r *Registry) All() []Agent {
	out := make([]Agent, 0, len(r.agents))
	for _, a := range r.agents {
		out = append(out, a)
	}
	return out
}

// StartAll starts every registered agent, stopping any already-started
// agent and returning the first error if one fails.
func (r *Registry) StartAll(ctx context.Context) error {
	started := make([]Agent, 0, len(r.agents))
	for _, a := range r.agents {
		if err := a.Start(ctx); err != nil {
			for _, s := range started {
				_ = s.Stop(ctx)
			}
			return err
		}
		started = append(started, a)
	}
	return nil
}

// StopAll stops every registered agent, continuing past individual
// errors and returning the last one seen.
func (r *Registry) StopAll(ctx context.Context) error {
	var lastErr error
	for _, a := range r.agents {
		if err := a.Stop(ctx); err != nil {
			lastErr = err
		}
	}
	return lastErr
}

// HealthSnapshot reports every agent's current health, keyed by kind.
func (r *Registry) HealthSnapshot() map[Kind]Health {
	out := make(map[Kind]Health, len(r.agents))
	for kind, a := range r.agents {
		out[kind] = a.Snapshot()
	}
	return out
}
