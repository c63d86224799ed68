// Copyright 2026 CodeRef Authors
//
// SPDX-License-Identifier: Apache-2.0

package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestWatcher_DebouncesWriteIntoOneBatch(t *testing.T) {
	root := t.TempDir()
	target := filepath.Join(root, "main.go")
	writeFile(t, target, "package main")

	var mu sync.Mutex
	var batches [][]string
	w := &Watcher{
		Root:     root,
		Debounce: 50 * time.Millisecond,
		OnBatch: func(changed, removed []string) {
			mu.Lock()
			defer mu.Unlock()
			batches = append(batches, changed)
		},
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer w.Stop()

	for i := 0; i < 3; i++ {
		writeFile(t, target, "package main // edit")
		time.Sleep(10 * time.Millisecond)
	}

	deadline := time.After(2 * time.Second)
	for {
		mu.Lock()
		n := len(batches)
		mu.Unlock()
		if n > 0 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("timed out waiting for a debounced batch")
		case <-time.After(20 * time.Millisecond):
		}
	}

	mu.Lock()
	defer mu.Unlock()
	if len(batches) != 1 {
		t.Fatalf("want exactly one coalesced batch for 3 rapid writes, got %d: %+v", len(batches), batches)
	}
	if len(batches[0]) != 1 || filepath.Base(batches[0][0]) != "main.go" {
		t.Fatalf("want [main.go], got %+v", batches[0])
	}
}

func TestWatcher_ExcludesMatchingPaths(t *testing.T) {
	root := t.TempDir()
	w := &Watcher{Root: root, ExcludePatterns: []string{"**/vendor/**"}}
	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer w.Stop()

	if !w.excluded(filepath.Join(root, "vendor", "lib.go")) {
		t.Fatal("want vendor/lib.go excluded")
	}
	if w.excluded(filepath.Join(root, "main.go")) {
		t.Fatal("want main.go not excluded")
	}
}

func TestWatcher_IgnoresUnrecognizedExtensions(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "README.md"), "# hi")

	var mu sync.Mutex
	var batches int
	w := &Watcher{
		Root:     root,
		Debounce: 30 * time.Millisecond,
		OnBatch: func(changed, removed []string) {
			mu.Lock()
			batches++
			mu.Unlock()
		},
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer w.Stop()

	writeFile(t, filepath.Join(root, "README.md"), "# hi, again")
	time.Sleep(150 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if batches != 0 {
		t.Fatalf("README.md has no recognized language extension and should not trigger a batch, got %d", batches)
	}
}
