// Copyright 2026 CodeRef Authors
//
// SPDX-License-Identifier: Apache-2.0

package embedding

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"
)

func TestMockProvider_Deterministic(t *testing.T) {
	p := NewMockProvider(Dimension)
	v1, err := p.Embed(context.Background(), "func Foo() {}")
	if err != nil {
		t.Fatal(err)
	}
	v2, err := p.Embed(context.Background(), "func Foo() {}")
	if err != nil {
		t.Fatal(err)
	}
	if len(v1) != Dimension || len(v2) != Dimension {
		t.Fatalf("want dimension %d, got %d and %d", Dimension, len(v1), len(v2))
	}
	for i := range v1 {
		if v1[i] != v2[i] {
			t.Fatalf("embedding not deterministic at index %d: %v != %v", i, v1[i], v2[i])
		}
	}
}

func TestMockProvider_Normalized(t *testing.T) {
	p := NewMockProvider(Dimension)
	v, err := p.Embed(context.Background(), "type Bar struct{}")
	if err != nil {
		t.Fatal(err)
	}
	var sumSq float64
	for _, x := range v {
		sumSq += float64(x) * float64(x)
	}
	norm := math.Sqrt(sumSq)
	if math.Abs(norm-1.0) > 1e-4 {
		t.Fatalf("want unit norm, got %f", norm)
	}
}

func TestMockProvider_DifferentTextDifferentVector(t *testing.T) {
	p := NewMockProvider(Dimension)
	v1, _ := p.Embed(context.Background(), "func A() {}")
	v2, _ := p.Embed(context.Background(), "func B() {}")
	same := true
	for i := range v1 {
		if v1[i] != v2[i] {
			same = false
			break
		}
	}
	if same {
		t.Fatal("distinct inputs produced identical embeddings")
	}
}

func TestWithRetry_SucceedsAfterTransientFailures(t *testing.T) {
	attempts := 0
	vec, err := WithRetry(context.Background(), RetryConfig{MaxRetries: 3, InitialBackoff: time.Millisecond, MaxBackoff: 5 * time.Millisecond, Multiplier: 2}, nil,
		func() ([]float32, error) {
			attempts++
			if attempts < 3 {
				return nil, errors.New("connection reset")
			}
			return []float32{1, 0}, nil
		})
	if err != nil {
		t.Fatal(err)
	}
	if attempts != 3 {
		t.Fatalf("want 3 attempts, got %d", attempts)
	}
	if len(vec) != 2 {
		t.Fatalf("want embedding back, got %v", vec)
	}
}

func TestWithRetry_NonRetryableFailsImmediately(t *testing.T) {
	attempts := 0
	_, err := WithRetry(context.Background(), RetryConfig{MaxRetries: 5, InitialBackoff: time.Millisecond, MaxBackoff: 5 * time.Millisecond, Multiplier: 2}, nil,
		func() ([]float32, error) {
			attempts++
			return nil, errors.New("invalid api key")
		})
	if err == nil {
		t.Fatal("want error")
	}
	if attempts != 1 {
		t.Fatalf("want 1 attempt for a non-retryable error, got %d", attempts)
	}
}

func TestWithRetry_ExhaustsBound(t *testing.T) {
	attempts := 0
	_, err := WithRetry(context.Background(), RetryConfig{MaxRetries: 2, InitialBackoff: time.Millisecond, MaxBackoff: 5 * time.Millisecond, Multiplier: 2}, nil,
		func() ([]float32, error) {
			attempts++
			return nil, errors.New("timeout")
		})
	if err == nil {
		t.Fatal("want error once retries are exhausted")
	}
	if attempts != 2 {
		t.Fatalf("want exactly MaxRetries attempts, got %d", attempts)
	}
}

func TestCreate_UnknownProviderErrors(t *testing.T) {
	if _, err := Create("not-a-real-provider", nil); err == nil {
		t.Fatal("want error for unknown provider")
	}
}

func TestCreate_MockByDefault(t *testing.T) {
	p, err := Create("mock", nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := p.(*MockProvider); !ok {
		t.Fatalf("want *MockProvider, got %T", p)
	}
}
