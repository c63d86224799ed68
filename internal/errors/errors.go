// Copyright 2026 CodeRef Authors
//
// SPDX-License-Identifier: Apache-2.0

// Package errors provides structured error handling for coderef.
//
// It defines UserError, a type carrying what went wrong, why, and how to
// fix it, plus the exit-code taxonomy from the error-handling design, and
// a set of constructors mapping the component error taxonomy (input,
// parse, resource, storage, vector, logic) onto those codes.
package errors

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
)

// Exit codes. 0 and 2-4 are fixed by the external interface contract;
// the rest are internal refinements used only for CLI diagnostics.
const (
	ExitSuccess       = 0
	ExitStorageFatal  = 2 // unrecoverable storage error at startup
	ExitSchemaTooNew  = 3 // database schema newer than this binary supports
	ExitResourceFatal = 4 // critical resource exhaustion
	ExitConfig        = 11
	ExitInput         = 12
	ExitInternal      = 13
)

// Kind enumerates the error taxonomy from the error-handling design.
type Kind string

const (
	KindInput    Kind = "input"
	KindParse    Kind = "parse"
	KindResource Kind = "resource"
	KindStorage  Kind = "storage"
	KindVector   Kind = "vector"
	KindLogic    Kind = "logic"
)

// Code is a stable, client-visible error code. Codes are part of the MCP
// tool contract (every tool result carries success/error{code,message})
// and must not change meaning once published.
type Code string

const (
	CodeInvalidPath       Code = "invalid_path"
	CodeUnsupportedLang   Code = "unsupported_language"
	CodeFileTooLarge      Code = "file_too_large"
	CodeParseTimeout      Code = "parse_timeout"
	CodeParseFailed       Code = "parse_failed"
	CodeResourceExhausted Code = "resource_exhausted"
	CodeTimeout           Code = "timeout"
	CodeStorageTransient  Code = "storage_transient"
	CodeStorageCorrupt    Code = "storage_corrupt"
	CodeSchemaTooNew      Code = "schema_too_new"
	CodeEmbeddingFailed   Code = "embedding_failed"
	CodeInternal          Code = "internal"
	CodeAmbiguousName     Code = "ambiguous_name"
	CodeNotFound          Code = "not_found"
	CodeUnsupportedMetric Code = "unsupported_metric"
)

// UserError carries structured, client-safe error context: what went
// wrong (Message), why (Cause), how to fix it (Fix), a stable client
// code (Code), the taxonomy Kind, and an exit code for CLI use. Err, if
// set, is logged but never surfaced to callers.
type UserError struct {
	Kind     Kind
	Code     Code
	Message  string
	Cause    string
	Fix      string
	ExitCode int
	Err      error
}

func (e *UserError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *UserError) Unwrap() error { return e.Err }

// Retryable reports whether the propagation policy calls for retrying
// this error's operation (resource errors and transient storage errors).
func (e *UserError) Retryable() bool {
	return e.Kind == KindResource || (e.Kind == KindStorage && e.Code == CodeStorageTransient)
}

func newErr(kind Kind, code Code, exitCode int, msg, cause, fix string, err error) *UserError {
	return &UserError{Kind: kind, Code: code, Message: msg, Cause: cause, Fix: fix, ExitCode: exitCode, Err: err}
}

// NewInputError builds an input-taxonomy error (invalid path, missing
// file, unsupported language): no retry, surfaced verbatim to the caller.
func NewInputError(code Code, msg, cause, fix string) *UserError {
	return newErr(KindInput, code, ExitInput, msg, cause, fix, nil)
}

// NewParseError builds a parse-taxonomy error: the offending file is
// skipped and the batch continues.
func NewParseError(msg, cause, fix string, err error) *UserError {
	return newErr(KindParse, CodeParseFailed, ExitInput, msg, cause, fix, err)
}

// NewResourceError builds a resource-taxonomy error (ResourceExhausted,
// Timeout): retried with backoff up to a bound, then surfaced.
func NewResourceError(code Code, msg, cause, fix string, err error) *UserError {
	return newErr(KindResource, code, ExitResourceFatal, msg, cause, fix, err)
}

// NewStorageError builds a storage-taxonomy error. Transient errors
// (lock conflicts) are retried with jitter; persistent ones (corruption)
// are fatal and stop further writes.
func NewStorageError(code Code, msg, cause, fix string, err error) *UserError {
	exit := ExitStorageFatal
	if code == CodeSchemaTooNew {
		exit = ExitSchemaTooNew
	}
	return newErr(KindStorage, code, exit, msg, cause, fix, err)
}

// NewVectorError builds a vector-taxonomy error: embedding is skipped
// for the affected entity, the structural path is unaffected.
func NewVectorError(msg, cause, fix string, err error) *UserError {
	return newErr(KindVector, CodeEmbeddingFailed, ExitSuccess, msg, cause, fix, err)
}

// NewLogicError builds a logic-taxonomy error: an internal invariant
// violation. The offending task fails; the server keeps running.
func NewLogicError(msg, cause, fix string, err error) *UserError {
	return newErr(KindLogic, CodeInternal, ExitInternal, msg, cause, fix, err)
}

var (
	colorError = color.New(color.FgRed, color.Bold)
	colorCause = color.New(color.FgYellow)
	colorFix   = color.New(color.FgGreen)
)

// Format renders the error for terminal display, matching the style
// used across the CLI: "Error:"/"Cause:"/"Fix:" lines, colorized unless
// noColor is set or NO_COLOR is present in the environment.
func (e *UserError) Format(noColor bool) string {
	originalNoColor := color.NoColor
	defer func() { color.NoColor = originalNoColor }()
	if noColor || os.Getenv("NO_COLOR") != "" {
		color.NoColor = true
	}

	var out strings.Builder
	out.WriteString(colorError.Sprint("Error: "))
	out.WriteString(e.Message)
	out.WriteString("\n")
	if e.Cause != "" {
		out.WriteString(colorCause.Sprint("Cause: "))
		out.WriteString(e.Cause)
		out.WriteString("\n")
	}
	if e.Fix != "" {
		out.WriteString(colorFix.Sprint("Fix:   "))
		out.WriteString(e.Fix)
		out.WriteString("\n")
	}
	return out.String()
}

// JSON is the wire-visible projection of a UserError: {code, message}
// per the MCP tool result contract. Cause/Fix stay server-side.
type JSON struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
}

// ToJSON converts to the client-visible shape.
func (e *UserError) ToJSON() JSON {
	return JSON{Code: e.Code, Message: e.Message}
}

// FatalError prints the error and exits with its exit code. It never
// returns.
func FatalError(err error, jsonOutput bool) {
	if err == nil {
		return
	}
	if ue, ok := err.(*UserError); ok {
		if jsonOutput {
			enc := json.NewEncoder(os.Stderr)
			enc.SetIndent("", "  ")
			_ = enc.Encode(ue.ToJSON())
		} else {
			fmt.Fprint(os.Stderr, ue.Format(false))
		}
		os.Exit(ue.ExitCode)
	}
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(ExitInternal)
}
