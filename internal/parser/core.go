// Copyright 2026 CodeRef Authors
//
// SPDX-License-Identifier: Apache-2.0

// Package parser wraps tree-sitter parsing behind coderef's own
// language registry: lazy grammar loading, timeout/size-cap
// enforcement, and incremental reparse support.
package parser

import (
	"context"
	"sync"
	"time"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/cpp"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/python"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"

	coderrors "github.com/coderef-dev/coderef/internal/errors"
)

// Language is coderef's stable language tag, used in fingerprints,
// storage rows and tool results.
type Language string

const (
	LangJavaScript Language = "javascript"
	LangTypeScript Language = "typescript"
	LangTSX        Language = "tsx"
	LangJSX        Language = "jsx"
	LangPython     Language = "python"
	LangC          Language = "c"
	LangCPP        Language = "cpp"
)

// DefaultMaxFileSize is the byte-size cap enforced before parsing
// (CodeFileTooLarge); configurable via Core.MaxFileSize.
const DefaultMaxFileSize = 5 * 1024 * 1024

// DefaultParseTimeout bounds a single parse call.
const DefaultParseTimeout = 10 * time.Second

// GrammarVersion is the stamp fed into the content fingerprint formula.
// It is bumped whenever a grammar sub-package or node-type table
// changes in a way that could alter extraction results.
const GrammarVersion = "go-tree-sitter-2024-08-27"

func languageFor(lang Language) *sitter.Language {
	switch lang {
	case LangJavaScript, LangJSX:
		return javascript.GetLanguage()
	case LangTypeScript:
		return typescript.GetLanguage()
	case LangTSX:
		return tsx.GetLanguage()
	case LangPython:
		return python.GetLanguage()
	case LangC:
		return cpp.GetLanguage() // cpp grammar parses C as a strict superset for our node-type table
	case LangCPP:
		return cpp.GetLanguage()
	default:
		return nil
	}
}

// Core owns one lazily-created *sitter.Parser per language, keyed in a
// sync.Map so concurrent ParserAgents never race on parser creation.
type Core struct {
	MaxFileSize  int64
	ParseTimeout time.Duration

	parsers sync.Map // Language -> *sitter.Parser
}

// NewCore builds a Core with the default size cap and timeout.
func NewCore() *Core {
	return &Core{MaxFileSize: DefaultMaxFileSize, ParseTimeout: DefaultParseTimeout}
}

func (c *Core) parserFor(lang Language) (*sitter.Parser, error) {
	if v, ok := c.parsers.Load(lang); ok {
		return v.(*sitter.Parser), nil
	}
	sl := languageFor(lang)
	if sl == nil {
		return nil, coderrors.NewInputError(coderrors.CodeUnsupportedLang,
			"unsupported language: "+string(lang),
			"no grammar registered for this language tag",
			"use one of: javascript, typescript, tsx, jsx, python, c, cpp")
	}
	p := sitter.NewParser()
	p.SetLanguage(sl)
	actual, _ := c.parsers.LoadOrStore(lang, p)
	return actual.(*sitter.Parser), nil
}

// Tree wraps a parsed tree-sitter tree together with the content it
// was parsed from, so later incremental reparses and extraction can
// share one value.
type Tree struct {
	Sitter   *sitter.Tree
	Content  []byte
	Language Language
}

// Close releases the underlying tree-sitter tree. Safe to call on a
// nil *Tree.
func (t *Tree) Close() {
	if t != nil && t.Sitter != nil {
		t.Sitter.Close()
	}
}

// Root returns the tree's root node, or nil if the tree is nil.
func (t *Tree) Root() *sitter.Node {
	if t == nil || t.Sitter == nil {
		return nil
	}
	return t.Sitter.RootNode()
}

// Parse parses content from scratch, enforcing the size cap and parse
// timeout. Returns a CodeFileTooLarge input error or a CodeParseTimeout/
// CodeParseFailed parse error on failure.
func (c *Core) Parse(ctx context.Context, lang Language, content []byte) (*Tree, error) {
	return c.parse(ctx, lang, content, nil)
}

// ParseIncremental reparses content against a prior tree using
// tree-sitter's edit-aware incremental algorithm. edits must already
// have been applied to oldTree via Tree.Sitter.Edit before calling
// this, per tree-sitter's API contract.
func (c *Core) ParseIncremental(ctx context.Context, lang Language, content []byte, oldTree *Tree) (*Tree, error) {
	var old *sitter.Tree
	if oldTree != nil {
		old = oldTree.Sitter
	}
	return c.parse(ctx, lang, content, old)
}

func (c *Core) parse(ctx context.Context, lang Language, content []byte, old *sitter.Tree) (*Tree, error) {
	maxSize := c.MaxFileSize
	if maxSize <= 0 {
		maxSize = DefaultMaxFileSize
	}
	if int64(len(content)) > maxSize {
		return nil, coderrors.NewInputError(coderrors.CodeFileTooLarge,
			"file exceeds the parse size cap",
			"content is larger than the configured limit",
			"raise MaxFileSize or exclude this path from indexing")
	}

	p, err := c.parserFor(lang)
	if err != nil {
		return nil, err
	}

	timeout := c.ParseTimeout
	if timeout <= 0 {
		timeout = DefaultParseTimeout
	}
	parseCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	sitterTree, err := p.ParseCtx(parseCtx, old, content)
	if err != nil {
		if parseCtx.Err() == context.DeadlineExceeded {
			timeoutErr := coderrors.NewParseError("parse timed out", "exceeded the configured parse timeout",
				"simplify the file or raise ParseTimeout", err)
			timeoutErr.Code = coderrors.CodeParseTimeout
			return nil, timeoutErr
		}
		return nil, coderrors.NewParseError("parse failed", err.Error(), "the file may have invalid syntax", err)
	}

	return &Tree{Sitter: sitterTree, Content: content, Language: lang}, nil
}

// CountErrors returns the number of ERROR/MISSING nodes under node,
// used to log (not fail) files with recoverable syntax errors:
// tree-sitter parses are error-tolerant by design.
func CountErrors(node *sitter.Node) int {
	if node == nil {
		return 0
	}
	count := 0
	if node.IsError() || node.IsMissing() {
		count++
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		count += CountErrors(node.Child(i))
	}
	return count
}
