// Copyright 2026 CodeRef Authors
//
// SPDX-License-Identifier: Apache-2.0

package embedding

import (
	"context"
	"math/rand"
	"strings"
	"time"
)

// RetryConfig bounds the exponential backoff SemanticAgent applies
// around a flaky Provider.Embed call.
type RetryConfig struct {
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	Multiplier     float64
}

// DefaultRetryConfig matches the teacher's embedding retry defaults.
var DefaultRetryConfig = RetryConfig{
	MaxRetries:     3,
	InitialBackoff: 200 * time.Millisecond,
	MaxBackoff:     2 * time.Second,
	Multiplier:     2.0,
}

func (c RetryConfig) resolve() RetryConfig {
	if c.MaxRetries <= 0 {
		c.MaxRetries = DefaultRetryConfig.MaxRetries
	}
	if c.InitialBackoff <= 0 {
		c.InitialBackoff = DefaultRetryConfig.InitialBackoff
	}
	if c.MaxBackoff <= 0 {
		c.MaxBackoff = DefaultRetryConfig.MaxBackoff
	}
	if c.Multiplier <= 1.0 {
		c.Multiplier = DefaultRetryConfig.Multiplier
	}
	return c
}

// WithRetry calls embed, retrying retryable errors with full-jitter
// exponential backoff up to cfg.MaxRetries attempts. onRetry, if set,
// is called before each sleep (for logging).
func WithRetry(ctx context.Context, cfg RetryConfig, onRetry func(attempt int, sleep time.Duration, err error), embed func() ([]float32, error)) ([]float32, error) {
	cfg = cfg.resolve()
	var vec []float32
	var err error
	base, mult, maxBackoff := cfg.InitialBackoff, cfg.Multiplier, cfg.MaxBackoff
	for attempt := 0; attempt < cfg.MaxRetries; attempt++ {
		vec, err = embed()
		if err == nil {
			return vec, nil
		}
		if !isRetryable(err) || attempt == cfg.MaxRetries-1 {
			return nil, err
		}
		sleep := backoffWithJitter(base, attempt, mult, maxBackoff)
		if onRetry != nil {
			onRetry(attempt+1, sleep, err)
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(sleep):
		}
	}
	return nil, err
}

// isRetryable classifies a Provider error as transient (network,
// timeout, 429/5xx) purely from its text, to avoid coupling this
// package to every provider's internal error types.
func isRetryable(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, s := range []string{"timeout", "temporarily unavailable", "connection refused", "connection reset", "deadline exceeded", "eof", " 429", " 500", " 502", " 503", " 504"} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}

func backoffWithJitter(base time.Duration, attempt int, mult float64, capDur time.Duration) time.Duration {
	exp := float64(base)
	for i := 0; i < attempt; i++ {
		exp *= mult
	}
	d := time.Duration(exp)
	if d > capDur {
		d = capDur
	}
	if d <= 0 {
		return base
	}
	return time.Duration(rand.Int63n(int64(d) + 1))
}
