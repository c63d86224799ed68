// Copyright 2026 CodeRef Authors
//
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/coderef-dev/coderef/internal/config"
)

// projectConfigDirName is the directory a project's configuration and
// checkpoints live under, relative to the repository root.
const projectConfigDirName = ".coderef"

// ConfigDir returns the .coderef directory under repoDir.
func ConfigDir(repoDir string) string {
	return filepath.Join(repoDir, projectConfigDirName)
}

// ConfigPath returns the project.yaml path under repoDir's .coderef
// directory.
func ConfigPath(repoDir string) string {
	return filepath.Join(ConfigDir(repoDir), "project.yaml")
}

// resolveConfigPath returns explicitPath if set, else ConfigPath of the
// current working directory.
func resolveConfigPath(explicitPath string) (string, error) {
	if explicitPath != "" {
		return explicitPath, nil
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("get current directory: %w", err)
	}
	return ConfigPath(cwd), nil
}

// LoadProjectConfig loads the effective config.Config for a CLI
// command: explicitPath (or ./.coderef/project.yaml) overlaid with
// config.Load's environment-variable precedence.
func LoadProjectConfig(explicitPath string) (config.Config, error) {
	path, err := resolveConfigPath(explicitPath)
	if err != nil {
		return config.Config{}, err
	}
	return config.Load(path)
}

// SaveProjectConfig writes cfg as YAML to path, creating its parent
// directory if needed.
func SaveProjectConfig(cfg config.Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
