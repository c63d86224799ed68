// Copyright 2026 CodeRef Authors
//
// SPDX-License-Identifier: Apache-2.0

package contract

import (
	"os"
	"strconv"
)

const (
	// DefaultIndexSoftLimitBytes is the baseline soft limit on the total
	// size of one `index` call's discovered file set.
	DefaultIndexSoftLimitBytes = 256 << 20 // 256 MiB

	// RequestIDMaxBytes is the maximum accepted length of a client-supplied
	// request identifier, should one ever be threaded through the tool layer.
	RequestIDMaxBytes = 128
)

// IndexSoftLimitBytes returns the effective soft limit for one `index`
// call's aggregate file size, controlled via CODEREF_INDEX_SOFT_LIMIT_BYTES.
func IndexSoftLimitBytes() int64 {
	if v := os.Getenv("CODEREF_INDEX_SOFT_LIMIT_BYTES"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			return n
		}
	}
	return DefaultIndexSoftLimitBytes
}

// ValidationResult is the outcome of a soft-limit check.
type ValidationResult struct {
	OK      bool
	Message string
}

// ValidateIndexBatchSize checks totalBytes, the sum of every discovered
// file's size in one `index` call, against IndexSoftLimitBytes.
func ValidateIndexBatchSize(totalBytes int64) *ValidationResult {
	if limit := IndexSoftLimitBytes(); totalBytes > limit {
		return &ValidationResult{OK: false, Message: "index request exceeds the soft size limit"}
	}
	return &ValidationResult{OK: true}
}
