// Copyright 2026 CodeRef Authors
//
// SPDX-License-Identifier: Apache-2.0

// Package bootstrap initializes and opens a coderef project: the
// directory-and-schema setup a CLI's `init`/`open` commands share
// before the agent registry and conductor can run against it.
package bootstrap

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/coderef-dev/coderef/internal/storage"
)

// ProjectConfig configures InitProject/OpenProject.
type ProjectConfig struct {
	// ProjectID is the logical project identifier.
	ProjectID string

	// DataDir is the directory where CozoDB stores its data.
	// Defaults to ~/.coderef/data/<project_id>.
	DataDir string

	// Engine is the CozoDB storage engine: "rocksdb", "sqlite", or "mem".
	// Defaults to "rocksdb" for persistence.
	Engine string
}

// ProjectInfo describes an initialized project.
type ProjectInfo struct {
	ProjectID string
	DataDir   string
	Engine    string
}

func (c ProjectConfig) toStorageConfig() storage.Config {
	return storage.Config{DataDir: c.DataDir, Engine: c.Engine, ProjectID: c.ProjectID}
}

// InitProject initializes a new coderef project's GraphStore.
// Idempotent: calling it again against the same data directory opens
// the existing store rather than recreating it, since storage.Open
// already ensures schema/indexes exist without dropping data.
//
// After success, cfg's data directory holds an open CozoDB database
// with the coderef schema, indexes, and schema-version stamp in place.
// The caller owns the returned GraphStore and must Close it.
func InitProject(cfg ProjectConfig, logger *slog.Logger) (*storage.GraphStore, *ProjectInfo, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.ProjectID == "" {
		return nil, nil, fmt.Errorf("project_id is required")
	}
	if cfg.Engine == "" {
		cfg.Engine = "rocksdb"
	}
	resolvedDataDir, err := defaultDataDir(cfg)
	if err != nil {
		return nil, nil, err
	}
	cfg.DataDir = resolvedDataDir

	logger.Info("bootstrap.project.init.start",
		"project_id", cfg.ProjectID, "data_dir", cfg.DataDir, "engine", cfg.Engine)

	gs, err := storage.Open(cfg.toStorageConfig())
	if err != nil {
		return nil, nil, fmt.Errorf("open graph store: %w", err)
	}

	logger.Info("bootstrap.project.init.success", "project_id", cfg.ProjectID, "data_dir", cfg.DataDir)
	return gs, &ProjectInfo{ProjectID: cfg.ProjectID, DataDir: cfg.DataDir, Engine: cfg.Engine}, nil
}

// OpenProject opens an already-initialized project's GraphStore. It
// fails fast if the data directory doesn't exist yet, since storage.Open
// would otherwise silently create an empty one.
func OpenProject(cfg ProjectConfig, logger *slog.Logger) (*storage.GraphStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.ProjectID == "" {
		return nil, fmt.Errorf("project_id is required")
	}
	if cfg.Engine == "" {
		cfg.Engine = "rocksdb"
	}
	resolvedDataDir, err := defaultDataDir(cfg)
	if err != nil {
		return nil, err
	}
	cfg.DataDir = resolvedDataDir

	if _, err := os.Stat(cfg.DataDir); os.IsNotExist(err) {
		return nil, fmt.Errorf("project not found: %s (run the init command first)", cfg.DataDir)
	}

	logger.Debug("bootstrap.project.open", "project_id", cfg.ProjectID, "data_dir", cfg.DataDir)
	gs, err := storage.Open(cfg.toStorageConfig())
	if err != nil {
		return nil, fmt.Errorf("open graph store: %w", err)
	}
	return gs, nil
}

// ListProjects returns every project ID found under the default data
// directory (~/.coderef/data), or nil if it doesn't exist yet.
func ListProjects() ([]string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("get home dir: %w", err)
	}
	dataDir := filepath.Join(home, ".coderef", "data")
	entries, err := os.ReadDir(dataDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read data dir: %w", err)
	}

	var projects []string
	for _, entry := range entries {
		if entry.IsDir() {
			projects = append(projects, entry.Name())
		}
	}
	return projects, nil
}

func defaultDataDir(cfg ProjectConfig) (string, error) {
	if cfg.DataDir != "" {
		return cfg.DataDir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home dir: %w", err)
	}
	return filepath.Join(home, ".coderef", "data", cfg.ProjectID), nil
}
