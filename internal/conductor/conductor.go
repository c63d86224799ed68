// Copyright 2026 CodeRef Authors
//
// SPDX-License-Identifier: Apache-2.0

// Package conductor implements the Conductor (C14): the pure
// orchestrator that receives external tool calls, classifies them as
// Simple (one agent, one task, synchronous) or Complex (a DAG spanning
// agents, coordinated through bus completion events), and routes them
// to the internal/agents.Registry. It never parses, indexes, or embeds
// itself.
package conductor

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/coderef-dev/coderef/internal/agents"
	"github.com/coderef-dev/coderef/internal/bus"
	coderrors "github.com/coderef-dev/coderef/internal/errors"
	"github.com/coderef-dev/coderef/internal/queue"
	"github.com/coderef-dev/coderef/internal/resource"
)

// DefaultRequestTimeout is the per-request ceiling spec §5 names (60s)
// applied to every Dispatch/Index call that doesn't override it.
const DefaultRequestTimeout = 60 * time.Second

// Conductor routes tool calls to registered agents. The zero value is
// not usable; construct with New and call Start before the first
// Index call (Dispatch needs no background state).
type Conductor struct {
	Agents         *agents.Registry
	Bus            *bus.Bus
	Resources      *resource.Manager
	Logger         *slog.Logger
	RequestTimeout time.Duration

	mu       sync.Mutex
	sessions map[string]*indexSession

	indexSub <-chan bus.Event
	failSub  <-chan bus.Event
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	seq      atomic.Int64
}

// New builds a Conductor over an already-populated agent Registry.
func New(reg *agents.Registry, b *bus.Bus, res *resource.Manager, logger *slog.Logger) *Conductor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Conductor{
		Agents: reg, Bus: b, Resources: res, Logger: logger,
		RequestTimeout: DefaultRequestTimeout,
		sessions:       make(map[string]*indexSession),
	}
}

// Start launches the background dispatcher that fans index:complete
// and parse:failed bus events out to whichever Index calls are
// currently waiting on them. Agents themselves must already be started
// (via Registry.StartAll) before tool calls arrive.
func (c *Conductor) Start(ctx context.Context) {
	runCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.indexSub = c.Bus.Subscribe(bus.TopicIndexComplete)
	c.failSub = c.Bus.Subscribe(bus.TopicParseFailed)
	c.wg.Add(1)
	go c.dispatchEvents(runCtx)
}

// Stop halts the background dispatcher. It does not stop the agent
// Registry; callers own that lifecycle separately.
func (c *Conductor) Stop() {
	if c.cancel != nil {
		c.cancel()
	}
	c.wg.Wait()
}

func (c *Conductor) dispatchEvents(ctx context.Context) {
	defer c.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-c.indexSub:
			if !ok {
				return
			}
			if ic, ok := evt.Payload.(agents.IndexComplete); ok {
				c.broadcastIndexComplete(ic)
			}
		case evt, ok := <-c.failSub:
			if !ok {
				return
			}
			if pf, ok := evt.Payload.(agents.ParseFailed); ok {
				c.broadcastParseFailed(pf)
			}
		}
	}
}

func (c *Conductor) broadcastIndexComplete(ic agents.IndexComplete) {
	for _, s := range c.activeSessions() {
		s.onIndexComplete(ic)
	}
}

func (c *Conductor) broadcastParseFailed(pf agents.ParseFailed) {
	for _, s := range c.activeSessions() {
		s.onParseFailed(pf)
	}
}

func (c *Conductor) activeSessions() []*indexSession {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*indexSession, 0, len(c.sessions))
	for _, s := range c.sessions {
		out = append(out, s)
	}
	return out
}

func (c *Conductor) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	timeout := c.RequestTimeout
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}
	return context.WithTimeout(ctx, timeout)
}

// Dispatch runs a Simple tool call: one agent, one task, synchronous
// response. This is the routing path for every §6 tool except `index`.
func (c *Conductor) Dispatch(ctx context.Context, kind agents.Kind, task *queue.Task) (any, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	agent := c.Agents.Get(kind)
	if agent == nil {
		return nil, coderrors.NewLogicError(
			fmt.Sprintf("no agent registered for kind %q", kind), "", "", nil)
	}
	return agent.Handle(ctx, task)
}

// Query is a typed convenience wrapper over Dispatch for the QueryAgent,
// since every semantic/structural MCP query tool is a Simple call to it.
func (c *Conductor) Query(ctx context.Context, req agents.QueryRequest) (agents.QueryResult, error) {
	value, err := c.Dispatch(ctx, agents.KindQuery, &queue.Task{
		ID: "query:" + req.Op, Kind: agents.QueryTaskKind, Payload: req,
	})
	if err != nil {
		return agents.QueryResult{}, err
	}
	result, ok := value.(agents.QueryResult)
	if !ok {
		return agents.QueryResult{}, coderrors.NewLogicError("QueryAgent returned an unexpected result type", "", "", nil)
	}
	return result, nil
}
