// Copyright 2026 CodeRef Authors
//
// SPDX-License-Identifier: Apache-2.0

package resource

import (
	"context"
	"testing"
	"time"
)

func TestManager_GrantWithinBudget(t *testing.T) {
	m := New(Config{MemoryCeilingBytes: 1000, CPUCores: 4}, nil)
	defer m.Close()

	lease, err := m.Request(context.Background(), Request{EstimatedMemoryBytes: 100, CPUShare: 0.5})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if lease == nil {
		t.Fatal("expected a lease")
	}
	lease.Release()
}

func TestManager_QueuesThenGrantsOnRelease(t *testing.T) {
	m := New(Config{MemoryCeilingBytes: 1000, MemoryGrantFraction: 1.0, CPUCores: 4}, nil)
	defer m.Close()

	first, err := m.Request(context.Background(), Request{EstimatedMemoryBytes: 900, CPUShare: 0.1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	secondDone := make(chan *Lease, 1)
	go func() {
		lease, err := m.Request(context.Background(), Request{EstimatedMemoryBytes: 900, CPUShare: 0.1})
		if err != nil {
			t.Errorf("unexpected error from queued request: %v", err)
			return
		}
		secondDone <- lease
	}()

	select {
	case <-secondDone:
		t.Fatal("second request should not have been granted before release")
	case <-time.After(100 * time.Millisecond):
	}

	first.Release()

	select {
	case lease := <-secondDone:
		if lease == nil {
			t.Fatal("expected a lease after release")
		}
		lease.Release()
	case <-time.After(2 * time.Second):
		t.Fatal("queued request was never granted after release")
	}
}

func TestManager_RequestCancelledByContext(t *testing.T) {
	m := New(Config{MemoryCeilingBytes: 1000, MemoryGrantFraction: 1.0, CPUCores: 4}, nil)
	defer m.Close()

	held, err := m.Request(context.Background(), Request{EstimatedMemoryBytes: 1000, CPUShare: 0.1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer held.Release()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = m.Request(ctx, Request{EstimatedMemoryBytes: 1000, CPUShare: 0.1})
	if err == nil {
		t.Fatal("expected context cancellation error")
	}
}

func TestManager_EmergencyRefusesLowPriority(t *testing.T) {
	m := New(Config{MemoryCeilingBytes: 1000, CPUCores: 4}, nil)
	defer m.Close()
	m.mu.Lock()
	m.emergencyAt = time.Now().Add(-time.Hour) // force sustained emergency
	m.mu.Unlock()

	_, err := m.Request(context.Background(), Request{EstimatedMemoryBytes: 1, Priority: 0})
	if err == nil {
		t.Fatal("expected emergency refusal for non-essential request")
	}
}

func TestManager_EmergencySurvivesForEssentialWork(t *testing.T) {
	m := New(Config{MemoryCeilingBytes: 1000, CPUCores: 4}, nil)
	defer m.Close()
	m.mu.Lock()
	m.emergencyAt = time.Now().Add(-time.Hour)
	m.mu.Unlock()

	lease, err := m.Request(context.Background(), Request{EstimatedMemoryBytes: 1, Priority: priorityEssential})
	if err != nil {
		t.Fatalf("essential request should still be granted: %v", err)
	}
	lease.Release()
}
