// Copyright 2026 CodeRef Authors
//
// SPDX-License-Identifier: Apache-2.0

package bootstrap

import (
	"strings"
	"testing"
)

func TestDefaultDataDir_UsesProvidedPathVerbatim(t *testing.T) {
	got, err := defaultDataDir(ProjectConfig{ProjectID: "p", DataDir: "/tmp/explicit"})
	if err != nil {
		t.Fatal(err)
	}
	if got != "/tmp/explicit" {
		t.Fatalf("want explicit DataDir honored, got %q", got)
	}
}

func TestDefaultDataDir_FallsBackUnderHomeDir(t *testing.T) {
	got, err := defaultDataDir(ProjectConfig{ProjectID: "myproject"})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasSuffix(got, "/.coderef/data/myproject") {
		t.Fatalf("want default data dir under ~/.coderef/data/<project_id>, got %q", got)
	}
}

func TestProjectConfig_ToStorageConfig(t *testing.T) {
	cfg := ProjectConfig{ProjectID: "p", DataDir: "/tmp/p", Engine: "mem"}
	sc := cfg.toStorageConfig()
	if sc.ProjectID != "p" || sc.DataDir != "/tmp/p" || sc.Engine != "mem" {
		t.Fatalf("unexpected storage.Config: %+v", sc)
	}
}

func TestInitProject_RequiresProjectID(t *testing.T) {
	if _, _, err := InitProject(ProjectConfig{}, nil); err == nil {
		t.Fatal("want error for empty project ID")
	}
}

func TestOpenProject_RequiresProjectID(t *testing.T) {
	if _, err := OpenProject(ProjectConfig{}, nil); err == nil {
		t.Fatal("want error for empty project ID")
	}
}
