// Copyright 2026 CodeRef Authors
//
// SPDX-License-Identifier: Apache-2.0

// Package contract holds the soft resource limits the MCP tool
// surface enforces before handing a request to the Conductor: the
// aggregate byte budget one `index` call's discovered file set may
// carry, independent of the per-file CodeFileTooLarge cap internal/parser
// already applies to each individual file.
//
// # Configuration via environment
//
// The soft limit can be adjusted via the CODEREF_INDEX_SOFT_LIMIT_BYTES
// environment variable, useful in memory-constrained environments:
//
//	export CODEREF_INDEX_SOFT_LIMIT_BYTES=33554432  // 32 MiB
//
// If unset or invalid, DefaultIndexSoftLimitBytes (256 MiB) applies.
package contract
