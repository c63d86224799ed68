// Copyright 2026 CodeRef Authors
//
// SPDX-License-Identifier: Apache-2.0

// Command coderefd is the MCP server: it wires the agent registry, the
// bus, the resource manager, and the Conductor into a
// modelcontextprotocol/go-sdk server exposing the §6 tool surface over
// stdio, the same shape an editor or agent CLI talks to.
//
// Usage:
//
//	coderefd [-config coderef.yaml]
//
// project_id (required) and data_dir are read from the config file.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/coderef-dev/coderef/internal/agents"
	"github.com/coderef-dev/coderef/internal/bootstrap"
	"github.com/coderef-dev/coderef/internal/bus"
	"github.com/coderef-dev/coderef/internal/cache"
	"github.com/coderef-dev/coderef/internal/conductor"
	"github.com/coderef-dev/coderef/internal/config"
	"github.com/coderef-dev/coderef/internal/content"
	"github.com/coderef-dev/coderef/internal/core"
	"github.com/coderef-dev/coderef/internal/embedding"
	"github.com/coderef-dev/coderef/internal/mcptools"
	"github.com/coderef-dev/coderef/internal/metrics"
	"github.com/coderef-dev/coderef/internal/parser"
	"github.com/coderef-dev/coderef/internal/query"
	"github.com/coderef-dev/coderef/internal/queue"
	"github.com/coderef-dev/coderef/internal/resource"
	"github.com/coderef-dev/coderef/internal/storage"
	"github.com/coderef-dev/coderef/internal/walk"
	"github.com/coderef-dev/coderef/internal/watch"
)

// extractorVersion stamps the content fingerprint alongside
// parser.GrammarVersion; bump it whenever extraction logic changes in
// a way that should invalidate ParseCache entries.
const extractorVersion = "coderef-extractor-1"

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "coderefd: %v\n", err)
		os.Exit(1)
	}

	logLevel := slog.LevelInfo
	if cfg.LogLevel == "debug" {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)

	if cfg.ProjectID == "" {
		logger.Error("coderefd.start.error", "err", "project_id is required (set it in the config file)")
		os.Exit(1)
	}

	gs, _, err := bootstrap.InitProject(bootstrap.ProjectConfig{
		ProjectID: cfg.ProjectID,
		DataDir:   cfg.DataDir,
		Engine:    cfg.Engine,
	}, logger)
	if err != nil {
		logger.Error("coderefd.bootstrap.error", "err", err)
		os.Exit(1)
	}
	defer func() { _ = gs.Close() }()

	metricsReg := metrics.New()
	resources := resource.New(resource.Config{
		MemoryCeilingBytes: int64(cfg.MemoryLimitMB) << 20,
	}, metricsReg.Registerer())
	defer resources.Close()
	knowledgeBus := bus.New()
	taskQueue := queue.New(cfg.QueueCapacity)
	resolveQueue := queue.New(cfg.QueueCapacity)

	vectors := storage.NewVectorStore(gs)
	embedder := embeddingProvider(cfg, logger)
	engine := query.New(gs, vectors, embedder)

	hasher := content.NewHasher(parser.GrammarVersion, extractorVersion)
	parseCache := cache.New(int64(cfg.MemoryLimitMB) << 20 / 4)

	reg := agents.NewRegistry()
	reg.Register(&agents.ParserAgent{
		Queue:     taskQueue,
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
	reg.Register(&agents.QueryAgent{
		Engine: engine,
		Logger: logger,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := reg.StartAll(ctx); err != nil {
		logger.Error("coderefd.agents.start.error", "err", err)
		os.Exit(1)
	}
	defer func() { _ = reg.StopAll(context.Background()) }()

	cond := conductor.New(reg, knowledgeBus, resources, logger)
	cond.Start(ctx)
	defer cond.Stop()

	if cfg.WatchEnabled {
		root := cfg.WatchRoot
		if root == "" {
			root = "."
		}
		watcher := &watch.Watcher{
			Root:            root,
			ExcludePatterns: walk.DefaultExcludes,
			Logger:          logger,
			OnBatch:         watchCallback(ctx, cond, gs, logger),
		}
		if err := watcher.Start(ctx); err != nil {
			logger.Error("coderefd.watch.start.error", "err", err)
			os.Exit(1)
		}
		defer watcher.Stop()
		logger.Info("coderefd.watch.start", "root", root)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("coderefd.shutdown.signal", "signal", sig.String())
		cancel()
	}()

	server := mcptools.NewServer(cond, reg, metricsReg, logger)
	logger.Info("coderefd.start", "project_id", cfg.ProjectID, "data_dir", cfg.DataDir)
	if err := server.Run(ctx); err != nil {
		logger.Error("coderefd.serve.error", "err", err)
		os.Exit(1)
	}
}

// watchCallback builds the batch handler a watch.Watcher drives on
// every debounced settle: changed files are reindexed through the
// same Conductor.Index path the `index` tool uses, removed files are
// deleted from the graph directly.
func watchCallback(ctx context.Context, cond *conductor.Conductor, gs *storage.GraphStore, logger *slog.Logger) func(changed, removed []string) {
	return func(changed, removed []string) {
		if len(changed) > 0 {
			payload := agents.ParsePayload{
				FileID: make(map[string]string, len(changed)),
				Files:  make([]agents.ParseFile, 0, len(changed)),
			}
			for _, path := range changed {
				lang, ok := parser.LanguageForExtension(filepath.Ext(path))
				if !ok {
					continue
				}
				payload.FileID[path] = core.FileID(path)
				payload.Files = append(payload.Files, agents.ParseFile{Path: path, Language: lang})
			}
			if len(payload.Files) > 0 {
				if _, err := cond.Index(ctx, payload); err != nil {
					logger.Warn("coderefd.watch.reindex.error", "err", err)
				}
			}
		}
		for _, path := range removed {
			if err := gs.DeleteFile(ctx, core.FileID(path)); err != nil {
				logger.Warn("coderefd.watch.delete.error", "path", path, "err", err)
			}
		}
	}
}

func embeddingProvider(cfg config.Config, logger *slog.Logger) embedding.Provider {
	switch cfg.EmbeddingProvider {
	case "ollama":
		return embedding.NewOllamaProvider(os.Getenv("OLLAMA_HOST"), cfg.EmbeddingModel, logger)
	case "openai":
		return embedding.NewOpenAIProvider(os.Getenv("OPENAI_API_KEY"), os.Getenv("OPENAI_API_BASE"), cfg.EmbeddingModel, logger)
	default:
		return embedding.NewMockProvider(embedding.Dimension)
	}
}
