// Copyright 2026 CodeRef Authors
//
// SPDX-License-Identifier: Apache-2.0

// Package config loads coderef's runtime configuration: a YAML file,
// overridable by environment variables, overridable in turn by CLI
// flags — the same three-layer precedence the teacher's CLI applies
// via pflag, generalized here to a declared Config struct instead of
// one-off flag variables.
package config

import (
	"fmt"
	"os"
	"strconv"

	flag "github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

// Config is coderef's full runtime configuration. Immutable after
// Load returns; a later reconfiguration goes through a dedicated
// interface rather than mutating a shared Config (spec §5).
type Config struct {
	DataDir   string `yaml:"data_dir"`
	Engine    string `yaml:"engine"`
	ProjectID string `yaml:"project_id"`

	MaxParserAgents   int `yaml:"max_parser_agents"`
	MaxIndexerAgents  int `yaml:"max_indexer_agents"`
	MaxSemanticAgents int `yaml:"max_semantic_agents"`
	MaxQueryAgents    int `yaml:"max_query_agents"`

	MemoryLimitMB      int    `yaml:"memory_limit_mb"`
	LogLevel           string `yaml:"log_level"`
	VectorBackend      string `yaml:"vector_backend"`
	DisableVectorAccel bool   `yaml:"disable_vector_accel"`

	EmbeddingProvider string `yaml:"embedding_provider"`
	EmbeddingModel    string `yaml:"embedding_model"`

	QueueCapacity        int `yaml:"queue_capacity"`
	RequestTimeoutSeconds int `yaml:"request_timeout_seconds"`

	WatchEnabled bool   `yaml:"watch_enabled"`
	WatchRoot    string `yaml:"watch_root"`
}

// Default returns the documented defaults, before any file or
// environment override is applied.
func Default() Config {
	return Config{
		Engine:                "rocksdb",
		MaxParserAgents:       4,
		MaxIndexerAgents:      1,
		MaxSemanticAgents:     2,
		MaxQueryAgents:        4,
		MemoryLimitMB:         2048,
		LogLevel:              "info",
		VectorBackend:         "cozodb-hnsw",
		EmbeddingProvider:     "mock",
		EmbeddingModel:        "nomic-embed-text",
		QueueCapacity:         100,
		RequestTimeoutSeconds: 60,
	}
}

// envOverrides are the environment variables that override a YAML
// file's values, each mapped to the Config field it sets.
const (
	EnvMaxParserAgents = "MAX_PARSER_AGENTS"
	EnvMaxQueryAgents  = "MAX_QUERY_AGENTS"
	EnvMemoryLimitMB   = "MEMORY_LIMIT_MB"
	EnvLogLevel        = "LOG_LEVEL"
	EnvVectorBackend   = "VECTOR_BACKEND"
	EnvDisableVectorAccel = "DISABLE_VECTOR_ACCEL"
	EnvWatchEnabled    = "WATCH_ENABLED"
	EnvWatchRoot       = "WATCH_ROOT"
)

// Load reads path (if non-empty and present) as YAML into Default()'s
// base, then applies environment overrides. A missing path is not an
// error — Default()'s values (plus any env override) stand alone.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				return applyEnv(cfg), nil
			}
			return cfg, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	return applyEnv(cfg), nil
}

func applyEnv(cfg Config) Config {
	if v := os.Getenv(EnvMaxParserAgents); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.MaxParserAgents = n
		}
	}
	if v := os.Getenv(EnvMaxQueryAgents); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.MaxQueryAgents = n
		}
	}
	if v := os.Getenv(EnvMemoryLimitMB); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.MemoryLimitMB = n
		}
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv(EnvVectorBackend); v != "" {
		cfg.VectorBackend = v
	}
	if v := os.Getenv(EnvDisableVectorAccel); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.DisableVectorAccel = b
		}
	}
	if v := os.Getenv(EnvWatchEnabled); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.WatchEnabled = b
		}
	}
	if v := os.Getenv(EnvWatchRoot); v != "" {
		cfg.WatchRoot = v
	}
	return cfg
}

// RegisterFlags binds fs's flags over cfg's current values, so the CLI
// layer (outermost precedence) can override whatever the file/env
// layers already set. Call after Load, and re-read cfg's fields only
// after fs.Parse returns.
func RegisterFlags(fs *flag.FlagSet, cfg *Config) {
	fs.StringVar(&cfg.DataDir, "data-dir", cfg.DataDir, "CozoDB data directory")
	fs.StringVar(&cfg.ProjectID, "project-id", cfg.ProjectID, "project identifier, namespaces the data directory")
	fs.IntVar(&cfg.MaxParserAgents, "max-parser-agents", cfg.MaxParserAgents, "parser worker pool size")
	fs.IntVar(&cfg.MaxQueryAgents, "max-query-agents", cfg.MaxQueryAgents, "query worker pool size")
	fs.IntVar(&cfg.MemoryLimitMB, "memory-limit-mb", cfg.MemoryLimitMB, "soft RSS budget enforced by ResourceManager")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "debug, info, warn, or error")
	fs.BoolVar(&cfg.DisableVectorAccel, "disable-vector-accel", cfg.DisableVectorAccel, "fall back to brute-force nearest-neighbor instead of HNSW")
	fs.BoolVar(&cfg.WatchEnabled, "watch", cfg.WatchEnabled, "watch watch-root for changes and reindex incrementally")
	fs.StringVar(&cfg.WatchRoot, "watch-root", cfg.WatchRoot, "directory to watch when --watch is set (defaults to the current directory)")
}
