// Copyright 2026 CodeRef Authors
//
// SPDX-License-Identifier: Apache-2.0

package queue

import (
	"context"
	"testing"
	"time"
)

func TestQueue_DequeuesHighestPriorityFirst(t *testing.T) {
	q := New(10)
	ctx := context.Background()
	must(t, q.Enqueue(ctx, &Task{ID: "low", Priority: 1}, false))
	must(t, q.Enqueue(ctx, &Task{ID: "high", Priority: 5}, false))
	must(t, q.Enqueue(ctx, &Task{ID: "mid", Priority: 3}, false))

	order := []string{}
	for i := 0; i < 3; i++ {
		task, err := q.Dequeue(ctx)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		order = append(order, task.ID)
	}
	want := []string{"high", "mid", "low"}
	for i, id := range want {
		if order[i] != id {
			t.Fatalf("expected order %v, got %v", want, order)
		}
	}
}

func TestQueue_FIFOTieBreak(t *testing.T) {
	q := New(10)
	ctx := context.Background()
	must(t, q.Enqueue(ctx, &Task{ID: "first", Priority: 1}, false))
	must(t, q.Enqueue(ctx, &Task{ID: "second", Priority: 1}, false))
	must(t, q.Enqueue(ctx, &Task{ID: "third", Priority: 1}, false))

	for _, want := range []string{"first", "second", "third"} {
		task, err := q.Dequeue(ctx)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if task.ID != want {
			t.Fatalf("expected %s, got %s", want, task.ID)
		}
	}
}

func TestQueue_NonBlockingEnqueueRejectsWhenFull(t *testing.T) {
	q := New(1)
	ctx := context.Background()
	must(t, q.Enqueue(ctx, &Task{ID: "a"}, false))
	if err := q.Enqueue(ctx, &Task{ID: "b"}, false); err == nil {
		t.Fatal("expected rejection on a full non-blocking enqueue")
	}
}

func TestQueue_BlockingEnqueueUnblocksOnDequeue(t *testing.T) {
	q := New(1)
	ctx := context.Background()
	must(t, q.Enqueue(ctx, &Task{ID: "a"}, false))

	done := make(chan error, 1)
	go func() {
		done <- q.Enqueue(ctx, &Task{ID: "b"}, true)
	}()

	select {
	case <-done:
		t.Fatal("blocking enqueue should not complete before room frees up")
	case <-time.After(50 * time.Millisecond):
	}

	if _, err := q.Dequeue(ctx); err != nil {
		t.Fatalf("unexpected dequeue error: %v", err)
	}

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("blocking enqueue never unblocked")
	}
}

func TestQueue_DequeueBlocksUntilEnqueue(t *testing.T) {
	q := New(10)
	ctx := context.Background()
	resultCh := make(chan *Task, 1)
	go func() {
		task, err := q.Dequeue(ctx)
		if err != nil {
			t.Errorf("unexpected error: %v", err)
			return
		}
		resultCh <- task
	}()

	time.Sleep(20 * time.Millisecond)
	must(t, q.Enqueue(ctx, &Task{ID: "late"}, false))

	select {
	case task := <-resultCh:
		if task.ID != "late" {
			t.Fatalf("expected 'late', got %s", task.ID)
		}
	case <-time.After(time.Second):
		t.Fatal("dequeue never unblocked")
	}
}

func TestQueue_CloseUnblocksDequeueWithNilTask(t *testing.T) {
	q := New(10)
	ctx := context.Background()
	resultCh := make(chan *Task, 1)
	errCh := make(chan error, 1)
	go func() {
		task, err := q.Dequeue(ctx)
		resultCh <- task
		errCh <- err
	}()

	time.Sleep(20 * time.Millisecond)
	q.Close()

	select {
	case task := <-resultCh:
		if task != nil {
			t.Fatalf("expected nil task after close, got %+v", task)
		}
		if err := <-errCh; err != nil {
			t.Fatalf("expected nil error after close, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("dequeue never unblocked after close")
	}
}

func TestQueue_EnqueueCancelledByContext(t *testing.T) {
	q := New(1)
	must(t, q.Enqueue(context.Background(), &Task{ID: "a"}, false))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	err := q.Enqueue(ctx, &Task{ID: "b"}, true)
	if err == nil {
		t.Fatal("expected context-cancellation error")
	}
}

func must(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
