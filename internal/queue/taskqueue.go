// Copyright 2026 CodeRef Authors
//
// SPDX-License-Identifier: Apache-2.0

// Package queue implements TaskQueue: a bounded, priority-ordered work
// queue shared by every agent pool. Dequeue always returns the
// highest-priority task; equal priorities are served FIFO.
package queue

import (
	"container/heap"
	"context"
	"sync"
	"time"

	coderrors "github.com/coderef-dev/coderef/internal/errors"
)

// DefaultCapacity is the queue's default bound (spec default 100).
const DefaultCapacity = 100

// Task is one unit of work routed to an agent pool.
type Task struct {
	ID       string
	Kind     string
	Priority int
	Payload  any
	Deadline time.Time // zero means no deadline

	ctx    context.Context
	cancel context.CancelFunc
	seq    uint64 // monotonic insertion order, assigned at Enqueue
}

// Context returns the task's cancellation context, valid until Cancel
// is called or the task's deadline (if any) elapses.
func (t *Task) Context() context.Context { return t.ctx }

// Cancel requests cooperative cancellation; an agent handler must check
// t.Context().Done() at its suspension points.
func (t *Task) Cancel() { t.cancel() }

// taskHeap implements container/heap.Interface as a max-heap ordered by
// priority (descending), FIFO tie-break on seq (ascending) — the same
// shape as a priority-queue-backed scheduler generalized from a single
// producer/consumer pair to arbitrary task kinds.
type taskHeap []*Task

func (h taskHeap) Len() int { return len(h) }
func (h taskHeap) Less(i, j int) bool {
	if h[i].Priority != h[j].Priority {
		return h[i].Priority > h[j].Priority
	}
	return h[i].seq < h[j].seq
}
func (h taskHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *taskHeap) Push(x any)   { *h = append(*h, x.(*Task)) }
func (h *taskHeap) Pop() any {
	old := *h
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return t
}

// Queue is the TaskQueue (C9). The zero value is not usable; construct
// with New.
type Queue struct {
	mu       sync.Mutex
	items    taskHeap
	capacity int
	seq      uint64
	notify   chan struct{} // closed and replaced on every state change, broadcasting to all waiters
	closed   bool
}

// New builds a Queue bounded at capacity (DefaultCapacity if <= 0).
func New(capacity int) *Queue {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Queue{capacity: capacity, notify: make(chan struct{})}
}

// Enqueue adds a task. If block is true and the queue is full, Enqueue
// waits for room or for ctx to be cancelled; if block is false, a full
// queue returns a CodeResourceExhausted error immediately.
func (q *Queue) Enqueue(ctx context.Context, t *Task, block bool) error {
	taskCtx, cancel := context.WithCancel(ctx)
	if !t.Deadline.IsZero() {
		taskCtx, cancel = context.WithDeadline(taskCtx, t.Deadline)
	}
	t.ctx, t.cancel = taskCtx, cancel

	for {
		q.mu.Lock()
		if q.closed {
			q.mu.Unlock()
			cancel()
			return coderrors.NewLogicError("task queue is closed", "Enqueue called after Close", "stop submitting new work", nil)
		}
		if len(q.items) < q.capacity {
			t.seq = q.seq
			q.seq++
			heap.Push(&q.items, t)
			q.mu.Unlock()
			q.wake()
			return nil
		}
		waitCh := q.notify
		q.mu.Unlock()

		if !block {
			cancel()
			return coderrors.NewResourceError(coderrors.CodeResourceExhausted,
				"task queue is full", "capacity reached and Enqueue was called non-blocking",
				"retry later or increase the queue capacity", nil)
		}

		select {
		case <-waitCh:
		case <-ctx.Done():
			cancel()
			return ctx.Err()
		}
	}
}

// Dequeue blocks until a task is available, the queue is closed, or ctx
// is cancelled.
func (q *Queue) Dequeue(ctx context.Context) (*Task, error) {
	for {
		q.mu.Lock()
		if len(q.items) > 0 {
			t := heap.Pop(&q.items).(*Task)
			q.mu.Unlock()
			q.wake() // room freed, wake a blocked Enqueue
			return t, nil
		}
		closed := q.closed
		waitCh := q.notify
		q.mu.Unlock()
		if closed {
			return nil, nil
		}

		select {
		case <-waitCh:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// Len reports the number of queued (not yet dequeued) tasks.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Close marks the queue closed; blocked Dequeue calls return (nil,
// nil) once drained, and further Enqueue calls fail.
func (q *Queue) Close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	q.wake()
}

// wake broadcasts a state change to every blocked Enqueue and Dequeue
// call by closing the current notify channel and swapping in a fresh
// one for subsequent waiters.
func (q *Queue) wake() {
	q.mu.Lock()
	close(q.notify)
	q.notify = make(chan struct{})
	q.mu.Unlock()
}
