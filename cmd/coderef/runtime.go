// Copyright 2026 CodeRef Authors
//
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/coderef-dev/coderef/internal/agents"
	"github.com/coderef-dev/coderef/internal/bootstrap"
	"github.com/coderef-dev/coderef/internal/bus"
	"github.com/coderef-dev/coderef/internal/cache"
	"github.com/coderef-dev/coderef/internal/conductor"
	"github.com/coderef-dev/coderef/internal/config"
	"github.com/coderef-dev/coderef/internal/content"
	"github.com/coderef-dev/coderef/internal/embedding"
	"github.com/coderef-dev/coderef/internal/parser"
	"github.com/coderef-dev/coderef/internal/query"
	"github.com/coderef-dev/coderef/internal/queue"
	"github.com/coderef-dev/coderef/internal/resource"
	"github.com/coderef-dev/coderef/internal/storage"
)

const extractorVersion = "coderef-extractor-1"

// runtime holds every piece a CLI command needs to drive the agent
// pipeline against one project's GraphStore, the same wiring
// cmd/coderefd assembles for the long-running MCP server.
type runtime struct {
	Graph     *storage.GraphStore
	Engine    *query.Engine
	Agents    *agents.Registry
	Conductor *conductor.Conductor
	Logger    *slog.Logger

	bus       *bus.Bus
	resources *resource.Manager
}

// openRuntime bootstraps cfg's project and wires the full agent
// registry over it, without starting anything. Callers must call
// Close when done.
func openRuntime(cfg config.Config, logger *slog.Logger) (*runtime, error) {
	gs, _, err := bootstrap.InitProject(bootstrap.ProjectConfig{
		ProjectID: cfg.ProjectID,
		DataDir:   cfg.DataDir,
		Engine:    cfg.Engine,
	}, logger)
	if err != nil {
		return nil, err
	}

	vectors := storage.NewVectorStore(gs)
	embedder := embeddingProviderFor(cfg, logger)
	engine := query.New(gs, vectors, embedder)

	hasher := content.NewHasher(parser.GrammarVersion, extractorVersion)
	parseCache := cache.New(int64(cfg.MemoryLimitMB) << 20 / 4)
	knowledgeBus := bus.New()
	resources := resource.New(resource.Config{
		MemoryCeilingBytes: int64(cfg.MemoryLimitMB) << 20,
	}, nil)
	resolveQueue := queue.New(cfg.QueueCapacity)

	reg := agents.NewRegistry()
	reg.Register(&agents.ParserAgent{
		Queue:     queue.New(cfg.QueueCapacity),
		Bus:       knowledgeBus,
		Resources: resources,
		Core:      parser.NewCore(),
		Extractor: parser.NewExtractor(hasher),
		Hasher:    hasher,
		Cache:     parseCache,
		Logger:    logger,
		Workers:   cfg.MaxParserAgents,
	})
	reg.Register(&agents.IndexerAgent{
		Graph:    gs,
		Bus:      knowledgeBus,
		Resolver: resolveQueue,
		Logger:   logger,
	})
	reg.Register(&agents.SemanticAgent{
		Graph:    gs,
		Vectors:  vectors,
		Bus:      knowledgeBus,
		Provider: embedder,
		Retry:    embedding.DefaultRetryConfig,
		Model:    cfg.EmbeddingModel,
		Logger:   logger,
	})
	reg.Register(&agents.QueryAgent{Engine: engine, Logger: logger})

	return &runtime{
		Graph: gs, Engine: engine, Agents: reg, Logger: logger,
		bus: knowledgeBus, resources: resources,
	}, nil
}

// Start launches every agent's worker pool and the Conductor's event
// dispatcher. Call before submitting any tool-call-equivalent work.
func (rt *runtime) Start(ctx context.Context) error {
	if err := rt.Agents.StartAll(ctx); err != nil {
		return err
	}
	rt.Conductor = conductor.New(rt.Agents, rt.bus, rt.resources, rt.Logger)
	rt.Conductor.Start(ctx)
	return nil
}

// Close stops the Conductor, every agent, and the GraphStore, in that
// order. Safe to call even if Start was never called.
func (rt *runtime) Close() {
	if rt.Conductor != nil {
		rt.Conductor.Stop()
	}
	_ = rt.Agents.StopAll(context.Background())
	rt.resources.Close()
	_ = rt.Graph.Close()
}

func embeddingProviderFor(cfg config.Config, logger *slog.Logger) embedding.Provider {
	switch cfg.EmbeddingProvider {
	case "ollama":
		return embedding.NewOllamaProvider(os.Getenv("OLLAMA_HOST"), cfg.EmbeddingModel, logger)
	case "openai":
		return embedding.NewOpenAIProvider(os.Getenv("OPENAI_API_KEY"), os.Getenv("OPENAI_API_BASE"), cfg.EmbeddingModel, logger)
	default:
		return embedding.NewMockProvider(embedding.Dimension)
	}
}
