// Copyright 2026 CodeRef Authors
//
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"path/filepath"
	"testing"

	"github.com/coderef-dev/coderef/internal/config"
)

func TestResolveDataDir_PrefersExplicitDataDir(t *testing.T) {
	cfg := config.Config{ProjectID: "demo", DataDir: "/srv/coderef/demo"}
	got, err := resolveDataDir(cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "/srv/coderef/demo" {
		t.Fatalf("want /srv/coderef/demo, got %s", got)
	}
}

func TestResolveDataDir_FallsBackToHomeDataDir(t *testing.T) {
	cfg := config.Config{ProjectID: "demo"}
	got, err := resolveDataDir(cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if filepath.Base(got) != "demo" {
		t.Fatalf("want data dir namespaced by project ID, got %s", got)
	}
}
