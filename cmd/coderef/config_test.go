// Copyright 2026 CodeRef Authors
//
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/coderef-dev/coderef/internal/config"
)

func TestConfigPath_JoinsProjectConfigDir(t *testing.T) {
	got := ConfigPath("/repo")
	want := filepath.Join("/repo", ".coderef", "project.yaml")
	if got != want {
		t.Fatalf("want %s, got %s", want, got)
	}
}

func TestSaveAndLoadProjectConfig_RoundTrips(t *testing.T) {
	dir := t.TempDir()
	path := ConfigPath(dir)

	cfg := config.Default()
	cfg.ProjectID = "demo"
	cfg.DataDir = filepath.Join(dir, "data")

	if err := SaveProjectConfig(cfg, path); err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected config file to exist: %v", err)
	}

	loaded, err := LoadProjectConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.ProjectID != "demo" || loaded.DataDir != cfg.DataDir {
		t.Fatalf("unexpected round trip: %+v", loaded)
	}
}

func TestResolveConfigPath_DefaultsToCwdDotCoderef(t *testing.T) {
	got, err := resolveConfigPath("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cwd, _ := os.Getwd()
	want := ConfigPath(cwd)
	if got != want {
		t.Fatalf("want %s, got %s", want, got)
	}
}

func TestResolveConfigPath_HonorsExplicitPath(t *testing.T) {
	got, err := resolveConfigPath("/tmp/somewhere/project.yaml")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "/tmp/somewhere/project.yaml" {
		t.Fatalf("want explicit path honored, got %s", got)
	}
}
