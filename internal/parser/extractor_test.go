// Copyright 2026 CodeRef Authors
//
// SPDX-License-Identifier: Apache-2.0

package parser

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coderef-dev/coderef/internal/content"
	"github.com/coderef-dev/coderef/internal/core"
)

func TestCore_Parse_JavaScriptFunction(t *testing.T) {
	c := NewCore()
	src := []byte("function add(a, b) {\n  return a + b;\n}\n")
	tree, err := c.Parse(context.Background(), LangJavaScript, src)
	require.NoError(t, err, "Parse should not error on valid JavaScript code")
	defer tree.Close()

	ex := NewExtractor(content.NewHasher("v1", "v1"))
	res, err := ex.Walk(tree, "file:abc", "add.js")
	require.NoError(t, err, "Walk should not error")
	require.Len(t, res.Entities, 1)

	fn := res.Entities[0]
	assert.Equal(t, "add", fn.Name)
	assert.Equal(t, core.KindFunction, fn.Kind)
	assert.Len(t, fn.Parameters, 2)
}

func TestCore_Parse_PythonClassAndMethod(t *testing.T) {
	c := NewCore()
	src := []byte("class Greeter:\n    def greet(self, name):\n        return name\n")
	tree, err := c.Parse(context.Background(), LangPython, src)
	require.NoError(t, err, "Parse should not error on valid Python code")
	defer tree.Close()

	ex := NewExtractor(content.NewHasher("v1", "v1"))
	res, err := ex.Walk(tree, "file:abc", "greeter.py")
	require.NoError(t, err, "Walk should not error")

	var sawClass, sawMethod bool
	for _, e := range res.Entities {
		if e.Kind == core.KindClass && e.Name == "Greeter" {
			sawClass = true
		}
		if e.Name == "greet" {
			sawMethod = true
			assert.Equal(t, "Greeter.greet", e.QualifiedName)
			assert.NotEmpty(t, e.ParentID, "method should carry parent class ID")
		}
	}
	assert.True(t, sawClass, "should find Greeter class")
	assert.True(t, sawMethod, "should find greet method")
}

func TestCore_Parse_FileTooLarge(t *testing.T) {
	c := NewCore()
	c.MaxFileSize = 4
	_, err := c.Parse(context.Background(), LangJavaScript, []byte("12345"))
	assert.Error(t, err, "expected file-too-large error")
}

func TestCore_Parse_UnsupportedLanguage(t *testing.T) {
	c := NewCore()
	_, err := c.Parse(context.Background(), Language("cobol"), []byte("x"))
	assert.Error(t, err, "expected unsupported-language error")
}

func TestExtractor_CallsAndImports(t *testing.T) {
	c := NewCore()
	src := []byte(`import { helper } from "./helper";
function main() {
  helper();
}
`)
	tree, err := c.Parse(context.Background(), LangJavaScript, src)
	require.NoError(t, err, "Parse should not error")
	defer tree.Close()

	ex := NewExtractor(content.NewHasher("v1", "v1"))
	res, err := ex.Walk(tree, "file:abc", "main.js")
	require.NoError(t, err, "Walk should not error")

	var sawCall, sawImport bool
	for _, r := range res.Relationships {
		if r.Kind == core.RelCalls && r.TargetName == "helper" {
			sawCall = true
		}
		if r.Kind == core.RelImports && r.TargetName == "./helper" {
			sawImport = true
		}
	}
	assert.True(t, sawCall, "expected a calls relationship to helper")
	assert.True(t, sawImport, "expected an imports relationship to ./helper")
}
