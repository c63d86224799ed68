// Copyright 2026 CodeRef Authors
//
// SPDX-License-Identifier: Apache-2.0

// Package embedding provides the Provider interface SemanticAgent uses
// to turn a code snippet into a dense vector, plus the provider roster
// coderef ships: a deterministic mock for tests, and OpenAI- and
// Ollama-compatible HTTP backends for real embedding models.
package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"os"
	"time"

	"log/slog"
)

// Dimension is the vector width every Provider in this package must
// produce, matching storage.EmbeddingDimension and the HNSW index
// built over coderef_embedding.
const Dimension = 384

// Provider generates embeddings for code text.
type Provider interface {
	// Embed returns a normalized vector (L2 norm = 1.0) for text, or an
	// error if the backend is unreachable or rejects the request.
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Create builds a Provider from a provider name, mirroring the
// teacher's CreateEmbeddingProvider roster: "mock", "openai", "ollama",
// and "nomic" as the generic-HTTP fallback.
func Create(providerType string, logger *slog.Logger) (Provider, error) {
	if logger == nil {
		logger = slog.Default()
	}
	switch providerType {
	case "mock", "":
		return NewMockProvider(Dimension), nil

	case "ollama":
		baseURL := os.Getenv("OLLAMA_BASE_URL")
		if baseURL == "" {
			baseURL = "http://localhost:11434"
		}
		model := os.Getenv("OLLAMA_EMBED_MODEL")
		if model == "" {
			model = "nomic-embed-text"
		}
		return NewOllamaProvider(baseURL, model, logger), nil

	case "openai":
		apiKey := os.Getenv("OPENAI_API_KEY")
		if apiKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY is required for the openai embedding provider")
		}
		baseURL := os.Getenv("OPENAI_API_BASE")
		if baseURL == "" {
			baseURL = "https://api.openai.com/v1"
		}
		model := os.Getenv("OPENAI_EMBED_MODEL")
		if model == "" {
			model = "text-embedding-3-small"
		}
		return NewOpenAIProvider(apiKey, baseURL, model, logger), nil

	case "nomic":
		baseURL := os.Getenv("NOMIC_API_BASE")
		if baseURL == "" {
			baseURL = "https://api-atlas.nomic.ai/v1"
		}
		apiKey := os.Getenv("NOMIC_API_KEY")
		if apiKey == "" {
			return nil, fmt.Errorf("NOMIC_API_KEY is required for the nomic embedding provider")
		}
		model := os.Getenv("NOMIC_MODEL")
		if model == "" {
			model = "nomic-embed-text-v1.5"
		}
		return NewHTTPProvider(httpProviderConfig{
			baseURL: baseURL, apiKey: apiKey, model: model,
			path:       "/embedding/text",
			buildBody:  nomicBody,
			parseReply: nomicReply,
			authHeader: true,
		}, logger), nil

	default:
		return nil, fmt.Errorf("unknown embedding provider: %s (supported: mock, openai, ollama, nomic)", providerType)
	}
}

// MockProvider generates deterministic embeddings from a text hash, so
// tests never depend on a real model being reachable.
type MockProvider struct {
	dimension int
}

// NewMockProvider builds a MockProvider producing vectors of the given
// width.
func NewMockProvider(dimension int) *MockProvider {
	return &MockProvider{dimension: dimension}
}

func (m *MockProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	h := djb2(text)
	vec := make([]float32, m.dimension)
	for i := range vec {
		v := float32((h+uint64(i)*7919)%10000) / 10000.0
		vec[i] = v*2.0 - 1.0
	}
	return normalize(vec), nil
}

func djb2(s string) uint64 {
	var h uint64 = 5381
	for _, c := range s {
		h = ((h << 5) + h) + uint64(c)
	}
	return h
}

func normalize(vec []float32) []float32 {
	if len(vec) == 0 {
		return vec
	}
	var sumSq float64
	for _, v := range vec {
		sumSq += float64(v) * float64(v)
	}
	norm := float32(math.Sqrt(sumSq))
	if norm == 0 {
		return vec
	}
	for i := range vec {
		vec[i] /= norm
	}
	return vec
}

// httpProviderConfig parameterizes HTTPProvider over the three
// different JSON shapes OpenAI, Ollama and Nomic each use, so the
// HTTP plumbing (client, timeout, auth header, error handling) is
// written once.
type httpProviderConfig struct {
	baseURL    string
	apiKey     string
	model      string
	path       string
	authHeader bool
	buildBody  func(model, text string) any
	parseReply func(body []byte) ([]float32, error)
}

// HTTPProvider is the shared request/response plumbing behind the
// OpenAI-compatible, Ollama and Nomic providers.
type HTTPProvider struct {
	cfg    httpProviderConfig
	client *http.Client
	logger *slog.Logger
}

// NewHTTPProvider builds an HTTPProvider from cfg.
func NewHTTPProvider(cfg httpProviderConfig, logger *slog.Logger) *HTTPProvider {
	if logger == nil {
		logger = slog.Default()
	}
	return &HTTPProvider{
		cfg:    cfg,
		client: &http.Client{Timeout: 60 * time.Second},
		logger: logger,
	}
}

func (p *HTTPProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	body, err := json.Marshal(p.cfg.buildBody(p.cfg.model, text))
	if err != nil {
		return nil, fmt.Errorf("marshal embed request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.baseURL+p.cfg.path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build embed request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if p.cfg.authHeader {
		req.Header.Set("Authorization", "Bearer "+p.cfg.apiKey)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embed request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read embed response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("embedding provider error (status %d): %s", resp.StatusCode, string(respBody))
	}

	vec, err := p.cfg.parseReply(respBody)
	if err != nil {
		return nil, err
	}
	return normalize(vec), nil
}

// NewOpenAIProvider builds an HTTPProvider speaking the OpenAI
// embeddings wire format, compatible with OpenAI, Azure OpenAI and any
// other provider exposing the same /embeddings endpoint shape.
func NewOpenAIProvider(apiKey, baseURL, model string, logger *slog.Logger) *HTTPProvider {
	return NewHTTPProvider(httpProviderConfig{
		baseURL: baseURL, apiKey: apiKey, model: model,
		path:       "/embeddings",
		buildBody:  openAIBody,
		parseReply: openAIReply,
		authHeader: true,
	}, logger)
}

type openAIRequest struct {
	Input          string `json:"input"`
	Model          string `json:"model"`
	EncodingFormat string `json:"encoding_format,omitempty"`
}

type openAIResponse struct {
	Data []struct {
		Embedding []float64 `json:"embedding"`
	} `json:"data"`
}

func openAIBody(model, text string) any {
	return openAIRequest{Input: text, Model: model, EncodingFormat: "float"}
}

func openAIReply(body []byte) ([]float32, error) {
	var r openAIResponse
	if err := json.Unmarshal(body, &r); err != nil {
		return nil, fmt.Errorf("parse openai embed response: %w", err)
	}
	if len(r.Data) == 0 || len(r.Data[0].Embedding) == 0 {
		return nil, fmt.Errorf("openai returned an empty embedding")
	}
	return toFloat32(r.Data[0].Embedding), nil
}

// NewOllamaProvider builds an HTTPProvider speaking Ollama's local
// /api/embeddings format.
func NewOllamaProvider(baseURL, model string, logger *slog.Logger) *HTTPProvider {
	p := NewHTTPProvider(httpProviderConfig{
		baseURL: baseURL, model: model,
		path:       "/api/embeddings",
		buildBody:  ollamaBody,
		parseReply: ollamaReply,
		authHeader: false,
	}, logger)
	p.client.Timeout = 120 * time.Second // local models run slower
	return p
}

type ollamaRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type ollamaResponse struct {
	Embedding []float64 `json:"embedding"`
}

func ollamaBody(model, text string) any {
	return ollamaRequest{Model: model, Prompt: text}
}

func ollamaReply(body []byte) ([]float32, error) {
	var r ollamaResponse
	if err := json.Unmarshal(body, &r); err != nil {
		return nil, fmt.Errorf("parse ollama embed response: %w", err)
	}
	if len(r.Embedding) == 0 {
		return nil, fmt.Errorf("ollama returned an empty embedding")
	}
	return toFloat32(r.Embedding), nil
}

type nomicRequest struct {
	Texts    []string `json:"texts"`
	Model    string   `json:"model"`
	TaskType string   `json:"task_type,omitempty"`
}

type nomicResponse struct {
	Embeddings [][]float64 `json:"embeddings"`
}

func nomicBody(model, text string) any {
	return nomicRequest{Texts: []string{text}, Model: model, TaskType: "search_document"}
}

func nomicReply(body []byte) ([]float32, error) {
	var r nomicResponse
	if err := json.Unmarshal(body, &r); err != nil {
		return nil, fmt.Errorf("parse nomic embed response: %w", err)
	}
	if len(r.Embeddings) == 0 {
		return nil, fmt.Errorf("nomic returned an empty embedding")
	}
	return toFloat32(r.Embeddings[0]), nil
}

func toFloat32(in []float64) []float32 {
	out := make([]float32, len(in))
	for i, v := range in {
		out[i] = float32(v)
	}
	return out
}
