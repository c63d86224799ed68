// Copyright 2026 CodeRef Authors
//
// SPDX-License-Identifier: Apache-2.0

package errors

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"testing"
)

func TestUserError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *UserError
		want string
	}{
		{
			name: "with underlying error",
			err:  &UserError{Message: "cannot open database", Err: fmt.Errorf("file locked")},
			want: "cannot open database: file locked",
		},
		{
			name: "without underlying error",
			err:  &UserError{Message: "invalid input"},
			want: "invalid input",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestUserError_Unwrap(t *testing.T) {
	underlying := fmt.Errorf("underlying error")
	wrapped := &UserError{Message: "x", Err: underlying}
	if wrapped.Unwrap() != underlying {
		t.Fatalf("Unwrap() did not return underlying error")
	}
	bare := &UserError{Message: "x"}
	if bare.Unwrap() != nil {
		t.Fatalf("Unwrap() should be nil when no underlying error set")
	}
}

func TestExitCodesDistinct(t *testing.T) {
	codes := map[string]int{
		"ExitSuccess":       ExitSuccess,
		"ExitStorageFatal":  ExitStorageFatal,
		"ExitSchemaTooNew":  ExitSchemaTooNew,
		"ExitResourceFatal": ExitResourceFatal,
		"ExitConfig":        ExitConfig,
		"ExitInput":         ExitInput,
		"ExitInternal":      ExitInternal,
	}
	seen := map[int]string{}
	for name, code := range codes {
		if other, ok := seen[code]; ok {
			t.Errorf("exit code %d shared by %s and %s", code, name, other)
		}
		seen[code] = name
	}
}

func TestConstructorsSetTaxonomyAndExitCode(t *testing.T) {
	underlying := fmt.Errorf("boom")

	input := NewInputError(CodeInvalidPath, "bad path", "path escapes project root", "use a path inside the indexed tree")
	if input.Kind != KindInput || input.ExitCode != ExitInput || input.Retryable() {
		t.Fatalf("input error taxonomy wrong: %+v", input)
	}

	parse := NewParseError("parse failed", "unexpected token", "fix the syntax error", underlying)
	if parse.Kind != KindParse || parse.Code != CodeParseFailed {
		t.Fatalf("parse error taxonomy wrong: %+v", parse)
	}

	res := NewResourceError(CodeResourceExhausted, "no capacity", "memory ceiling reached", "retry later", nil)
	if !res.Retryable() || res.ExitCode != ExitResourceFatal {
		t.Fatalf("resource error should be retryable with resource exit code: %+v", res)
	}

	storTransient := NewStorageError(CodeStorageTransient, "lock conflict", "writer busy", "retry", nil)
	if !storTransient.Retryable() {
		t.Fatalf("transient storage error should be retryable")
	}
	storCorrupt := NewStorageError(CodeStorageCorrupt, "corrupt db", "checksum mismatch", "restore from backup", nil)
	if storCorrupt.Retryable() || storCorrupt.ExitCode != ExitStorageFatal {
		t.Fatalf("corrupt storage error should be fatal, not retryable: %+v", storCorrupt)
	}
	schemaTooNew := NewStorageError(CodeSchemaTooNew, "schema too new", "", "upgrade coderef", nil)
	if schemaTooNew.ExitCode != ExitSchemaTooNew {
		t.Fatalf("schema-too-new error should use ExitSchemaTooNew, got %d", schemaTooNew.ExitCode)
	}

	vec := NewVectorError("embedding failed", "provider timeout", "", underlying)
	if vec.Kind != KindVector || vec.ExitCode != ExitSuccess {
		t.Fatalf("vector errors must not be fatal to the process: %+v", vec)
	}

	logic := NewLogicError("invariant violated", "graph had a dangling edge", "report this as a bug", nil)
	if logic.Kind != KindLogic || logic.ExitCode != ExitInternal {
		t.Fatalf("logic error taxonomy wrong: %+v", logic)
	}
}

func TestErrorChainCompat(t *testing.T) {
	sentinel := fmt.Errorf("sentinel")
	wrapped := fmt.Errorf("wrapped: %w", sentinel)
	ue := NewStorageError(CodeStorageTransient, "storage error", "cause", "fix", wrapped)

	if !errors.Is(ue, sentinel) {
		t.Error("errors.Is should find sentinel through UserError.Unwrap")
	}
	var target *UserError
	if !errors.As(ue, &target) || target != ue {
		t.Error("errors.As should extract the UserError itself")
	}
}

func TestUserError_Format(t *testing.T) {
	err := &UserError{Message: "cannot open database", Cause: "locked by another process", Fix: "close other instances"}
	out := err.Format(true)
	for _, want := range []string{"Error: cannot open database", "Cause: locked by another process", "Fix:   close other instances"} {
		if !strings.Contains(out, want) {
			t.Errorf("Format() missing %q, got: %s", want, out)
		}
	}
}

func TestUserError_Format_NoColorEnv(t *testing.T) {
	old := os.Getenv("NO_COLOR")
	defer os.Setenv("NO_COLOR", old)
	os.Setenv("NO_COLOR", "1")

	err := &UserError{Message: "test"}
	out := err.Format(false)
	if strings.Contains(out, "\x1b[") {
		t.Error("Format() emitted ANSI codes despite NO_COLOR")
	}
}

func TestUserError_ToJSON(t *testing.T) {
	err := NewInputError(CodeNotFound, "entity not found", "no entity with that id", "check the id")
	j := err.ToJSON()
	if j.Code != CodeNotFound || j.Message != "entity not found" {
		t.Errorf("ToJSON() = %+v, want code=%q message=%q", j, CodeNotFound, "entity not found")
	}
}

func TestFatalError_NilIsNoop(t *testing.T) {
	FatalError(nil, false)
}
