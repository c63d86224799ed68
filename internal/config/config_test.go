// Copyright 2026 CodeRef Authors
//
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_MissingFileFallsBackToDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Engine != "rocksdb" || cfg.MaxParserAgents != 4 {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
}

func TestLoad_YAMLOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "coderef.yaml")
	if err := os.WriteFile(path, []byte("max_parser_agents: 9\nlog_level: debug\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.MaxParserAgents != 9 || cfg.LogLevel != "debug" {
		t.Fatalf("yaml override did not apply: %+v", cfg)
	}
}

func TestLoad_EnvOverridesYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "coderef.yaml")
	if err := os.WriteFile(path, []byte("max_parser_agents: 9\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv(EnvMaxParserAgents, "17")
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.MaxParserAgents != 17 {
		t.Fatalf("env override did not win over yaml: %+v", cfg)
	}
}

func TestLoad_WatchDefaultsToDisabled(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.WatchEnabled || cfg.WatchRoot != "" {
		t.Fatalf("want watch disabled with no root by default, got %+v", cfg)
	}
}

func TestLoad_WatchEnvOverrides(t *testing.T) {
	t.Setenv(EnvWatchEnabled, "true")
	t.Setenv(EnvWatchRoot, "/src/project")
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if !cfg.WatchEnabled || cfg.WatchRoot != "/src/project" {
		t.Fatalf("env overrides did not apply: %+v", cfg)
	}
}
