// Copyright 2026 CodeRef Authors
//
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"log/slog"
	"testing"

	"github.com/coderef-dev/coderef/internal/config"
	"github.com/coderef-dev/coderef/internal/embedding"
)

func TestEmbeddingProvider_DefaultsToMock(t *testing.T) {
	logger := slog.Default()
	p := embeddingProvider(config.Default(), logger)
	if _, ok := p.(*embedding.MockProvider); !ok {
		t.Fatalf("want *embedding.MockProvider for an unset provider, got %T", p)
	}
}

func TestEmbeddingProvider_SelectsOllama(t *testing.T) {
	cfg := config.Default()
	cfg.EmbeddingProvider = "ollama"
	p := embeddingProvider(cfg, slog.Default())
	if _, ok := p.(*embedding.HTTPProvider); !ok {
		t.Fatalf("want *embedding.HTTPProvider for ollama, got %T", p)
	}
}
