// Copyright 2026 CodeRef Authors
//
// SPDX-License-Identifier: Apache-2.0

package agents

import (
	"context"
	"testing"

	"github.com/coderef-dev/coderef/internal/queue"
)

func TestQueryAgent_HandleRejectsWrongPayloadType(t *testing.T) {
	a := &QueryAgent{}
	if err := a.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	_, err := a.Handle(context.Background(), &queue.Task{Payload: "not-a-query-request"})
	if err == nil {
		t.Fatal("want error for non-QueryRequest payload")
	}
}

func TestQueryAgent_DispatchRejectsUnknownOp(t *testing.T) {
	a := &QueryAgent{}
	_ = a.Start(context.Background())
	_, err := a.dispatch(context.Background(), QueryRequest{Op: "not-a-real-op"})
	if err == nil {
		t.Fatal("want error for unknown op")
	}
}

func TestQueryAgent_SnapshotReflectsRunningState(t *testing.T) {
	a := &QueryAgent{}
	if a.Snapshot().Running {
		t.Fatal("should not be running before Start")
	}
	_ = a.Start(context.Background())
	if !a.Snapshot().Running {
		t.Fatal("should be running after Start")
	}
	_ = a.Stop(context.Background())
	if a.Snapshot().Running {
		t.Fatal("should not be running after Stop")
	}
}
