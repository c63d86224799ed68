// Copyright 2026 CodeRef Authors
//
// SPDX-License-Identifier: Apache-2.0

package parser

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/coderef-dev/coderef/internal/content"
	"github.com/coderef-dev/coderef/internal/core"
	coderrors "github.com/coderef-dev/coderef/internal/errors"
)

// ExtractResult is everything Extractor.Walk produces from one file.
type ExtractResult struct {
	Entities      []core.Entity
	Relationships []core.Relationship
}

// Extractor runs one LanguageSpec-driven depth-first walk per file:
// the same walker serves every grammar, with behavior parameterized
// entirely by the spec table. This is the "grammar plug-in, node-type
// mapping table" extension seam — adding a language means writing a
// LanguageSpec, never touching Walk itself.
type Extractor struct {
	Hasher *content.Hasher
}

// NewExtractor builds an Extractor stamped with the given hasher,
// whose grammar/extractor version feeds every entity's ContentHash.
func NewExtractor(h *content.Hasher) *Extractor {
	return &Extractor{Hasher: h}
}

type scopeFrame struct {
	name string
	id   string // entity ID of the enclosing named entity, if any
}

// Walk extracts entities and best-effort relationships from tree for
// fileID/filePath, using lang's registered LanguageSpec.
func (e *Extractor) Walk(tree *Tree, fileID, filePath string) (*ExtractResult, error) {
	spec := SpecFor(tree.Language)
	if spec == nil {
		return nil, coderrors.NewInputError(coderrors.CodeUnsupportedLang,
			"no extraction spec for language: "+string(tree.Language),
			"EntityExtractor has no LanguageSpec registered",
			"register a LanguageSpec for this language in internal/parser")
	}

	w := &walker{
		spec:     spec,
		content:  tree.Content,
		filePath: filePath,
		fileID:   fileID,
		lang:     string(tree.Language),
		hasher:   e.Hasher,
		result:   &ExtractResult{},
		anonSeq:  0,
	}
	w.walk(tree.Root(), nil)
	return w.result, nil
}

type walker struct {
	spec     *LanguageSpec
	content  []byte
	filePath string
	fileID   string
	lang     string
	hasher   *content.Hasher
	result   *ExtractResult
	anonSeq  int
}

func (w *walker) text(n *sitter.Node) string {
	if n == nil {
		return ""
	}
	return string(w.content[n.StartByte():n.EndByte()])
}

func (w *walker) span(n *sitter.Node) core.Span {
	sp, ep := n.StartPoint(), n.EndPoint()
	return core.Span{
		StartLine: int(sp.Row) + 1,
		StartCol:  int(sp.Column) + 1,
		StartByte: int(n.StartByte()),
		EndLine:   int(ep.Row) + 1,
		EndCol:    int(ep.Column) + 1,
		EndByte:   int(n.EndByte()),
	}
}

func (w *walker) nameField(nodeType string) string {
	if f, ok := w.spec.NameFieldOverrides[nodeType]; ok {
		return f
	}
	return w.spec.NameField
}

func (w *walker) paramsField(nodeType string) string {
	if f, ok := w.spec.ParamsFieldOverrides[nodeType]; ok {
		return f
	}
	return w.spec.ParamsField
}

func (w *walker) qualify(scope []scopeFrame, name string) string {
	if len(scope) == 0 {
		return name
	}
	var b strings.Builder
	for _, f := range scope {
		b.WriteString(f.name)
		b.WriteByte('.')
	}
	b.WriteString(name)
	return b.String()
}

func (w *walker) parentID(scope []scopeFrame) string {
	if len(scope) == 0 {
		return ""
	}
	return scope[len(scope)-1].id
}

func (w *walker) extractParams(n *sitter.Node, nodeType string) []core.Parameter {
	field := w.paramsField(nodeType)
	if field == "" {
		return nil
	}
	paramsNode := n.ChildByFieldName(field)
	if paramsNode == nil {
		return nil
	}
	var params []core.Parameter
	for i := 0; i < int(paramsNode.ChildCount()); i++ {
		child := paramsNode.Child(i)
		if child == nil || !child.IsNamed() {
			continue
		}
		params = append(params, w.extractOneParam(child))
	}
	return params
}

func (w *walker) extractOneParam(n *sitter.Node) core.Parameter {
	p := core.Parameter{}
	switch n.Type() {
	case "rest_pattern", "rest_parameter":
		p.Variadic = true
		p.Name = strings.TrimLeft(w.text(n), ".")
	default:
		if nameNode := n.ChildByFieldName("name"); nameNode != nil {
			p.Name = w.text(nameNode)
		} else if n.Type() == "identifier" {
			p.Name = w.text(n)
		} else {
			p.Name = w.text(n)
		}
		if typeNode := n.ChildByFieldName("type"); typeNode != nil {
			p.Type = w.text(typeNode)
		}
		if defNode := n.ChildByFieldName("value"); defNode != nil {
			p.Default = w.text(defNode)
		} else if defNode := n.ChildByFieldName("default_value"); defNode != nil {
			p.Default = w.text(defNode)
		}
		if strings.HasPrefix(p.Name, "**") {
			p.IsArgsKw = true
		} else if strings.HasPrefix(p.Name, "*") {
			p.Variadic = true
		}
	}
	return p
}

func (w *walker) collectModifiers(n *sitter.Node) []string {
	var mods []string
	for i := 0; i < int(n.ChildCount()); i++ {
		child := n.Child(i)
		if child == nil {
			continue
		}
		if w.spec.ModifierKinds[child.Type()] {
			mods = append(mods, strings.ToLower(w.text(child)))
		}
	}
	return mods
}

func (w *walker) walk(n *sitter.Node, scope []scopeFrame) {
	if n == nil {
		return
	}
	nodeType := n.Type()

	if kind, isEntity := w.spec.EntityKinds[nodeType]; isEntity {
		w.emitEntity(n, nodeType, kind, scope)
		if w.spec.ContainerKinds[nodeType] {
			name := w.resolveName(n, nodeType)
			entID := core.EntityID(w.filePath, kind, w.qualify(scope, name), int(n.StartByte()))
			newScope := append(append([]scopeFrame{}, scope...), scopeFrame{name: name, id: entID})
			w.walkChildren(n, newScope)
			return
		}
	}

	if w.spec.CallNodeKinds[nodeType] {
		w.emitCall(n, scope)
	}
	if w.spec.ImportNodeKinds[nodeType] {
		w.emitImport(n, scope)
	}

	w.walkChildren(n, scope)
}

func (w *walker) walkChildren(n *sitter.Node, scope []scopeFrame) {
	for i := 0; i < int(n.ChildCount()); i++ {
		w.walk(n.Child(i), scope)
	}
}

func (w *walker) resolveName(n *sitter.Node, nodeType string) string {
	field := w.nameField(nodeType)
	if field != "" {
		if nameNode := n.ChildByFieldName(field); nameNode != nil {
			return w.text(nameNode)
		}
	}
	w.anonSeq++
	return core.AnonymousName(int(n.StartByte()))
}

func (w *walker) emitEntity(n *sitter.Node, nodeType string, kind core.EntityKind, scope []scopeFrame) {
	name := w.resolveName(n, nodeType)
	qualified := w.qualify(scope, name)
	id := core.EntityID(w.filePath, kind, qualified, int(n.StartByte()))
	span := w.span(n)
	src := w.content[span.StartByte:span.EndByte]

	var returnType string
	if retNode := n.ChildByFieldName("return_type"); retNode != nil {
		returnType = w.text(retNode)
	}

	var hash string
	if w.hasher != nil {
		hash = w.hasher.SumEntity(src, w.lang).String()
	}

	entity := core.Entity{
		ID:            id,
		Kind:          kind,
		Name:          name,
		QualifiedName: qualified,
		Language:      w.lang,
		FileID:        w.fileID,
		Span:          span,
		Modifiers:     w.collectModifiers(n),
		Parameters:    w.extractParams(n, nodeType),
		ReturnType:    returnType,
		ParentID:      w.parentID(scope),
		ContentHash:   hash,
	}
	w.result.Entities = append(w.result.Entities, entity)

	if extendsField := w.spec.ExtendsField; extendsField != "" {
		if baseNode := n.ChildByFieldName(extendsField); baseNode != nil {
			w.emitRelationship(id, w.text(baseNode), core.RelExtends, baseNode)
		}
	}
	if implementsField := w.spec.ImplementsField; implementsField != "" {
		if implNode := n.ChildByFieldName(implementsField); implNode != nil {
			for i := 0; i < int(implNode.ChildCount()); i++ {
				child := implNode.Child(i)
				if child != nil && child.IsNamed() {
					w.emitRelationship(id, w.text(child), core.RelImplements, child)
				}
			}
		}
	}
}

// nearestNamedEntity finds the innermost enclosing entity ID for an
// edge's source, falling back to the file itself when a call/import
// occurs outside any named entity (e.g. top-level script code).
func (w *walker) nearestNamedEntity(scope []scopeFrame) string {
	if len(scope) == 0 {
		return w.fileID
	}
	return scope[len(scope)-1].id
}

func (w *walker) emitCall(n *sitter.Node, scope []scopeFrame) {
	field := w.spec.CallFunctionField
	if field == "" {
		field = "function"
	}
	calleeNode := n.ChildByFieldName(field)
	if calleeNode == nil {
		return
	}
	callee := w.text(calleeNode)
	if idx := strings.LastIndexByte(callee, '.'); idx >= 0 {
		callee = callee[idx+1:]
	}
	w.emitRelationship(w.nearestNamedEntity(scope), callee, core.RelCalls, n)
}

func (w *walker) emitImport(n *sitter.Node, scope []scopeFrame) {
	var target string
	if w.spec.ImportSourceField != "" {
		if srcNode := n.ChildByFieldName(w.spec.ImportSourceField); srcNode != nil {
			target = strings.Trim(w.text(srcNode), `"'`)
		}
	}
	if target == "" {
		for i := 0; i < int(n.ChildCount()); i++ {
			child := n.Child(i)
			if child != nil && child.Type() == "string" {
				target = strings.Trim(w.text(child), `"'`)
				break
			}
		}
	}
	if target == "" {
		return
	}
	w.emitRelationship(w.nearestNamedEntity(scope), target, core.RelImports, n)
}

func (w *walker) emitRelationship(sourceID, targetName string, kind core.RelationshipKind, n *sitter.Node) {
	if targetName == "" {
		return
	}
	span := w.span(n)
	id := core.RelationshipID(sourceID, targetName, kind, w.fileID, span.StartByte)
	w.result.Relationships = append(w.result.Relationships, core.Relationship{
		ID:         id,
		SourceID:   sourceID,
		TargetName: targetName,
		Kind:       kind,
		FileID:     w.fileID,
		Span:       span,
	})
}
