package callchain

import (
	"codelens/internal/core/errors"
	"codelens/internal/engine/annotations"
	"codelens/internal/engine/index"
	"codelens/internal/engine/parser"
	"codelens/internal/engine/resolver"
	"codelens/internal/shared/util"
	"fmt"
	"strings"

	"github.com/gobwas/glob"
)

type Tracer struct {
	index           *index.Index
	resolver        *resolver.Resolver
	classifier      *annotations.Classifier
	defaultBoundary []string
}

func NewTracer(r *resolver.Resolver, c *annotations.Classifier, defaultBoundary []string) *Tracer {
	return &Tracer{
		index:           r.Index(),
		resolver:        r,
		classifier:      c,
		defaultBoundary: defaultBoundary,
	}
}

// Trace expands the call sites of className.methodName in source order. The
// method may be given by name or by signature such as save(Order). Callees in
// a package matching a boundary glob become boundary leaves. An empty pattern
// list falls back to the tracer defaults.
func (t *Tracer) Trace(className, methodName string, maxDepth int, boundaryPatterns []string) (*Result, error) {
	cls, err := t.index.ResolveClass(className)
	if err != nil {
		return nil, err
	}
	if len(boundaryPatterns) == 0 {
		boundaryPatterns = t.defaultBoundary
	}
	boundary, err := compileBoundary(boundaryPatterns)
	if err != nil {
		return nil, err
	}
	method, owner, err := t.rootMethod(cls, methodName)
	if err != nil {
		return nil, err
	}
	if maxDepth < 1 {
		maxDepth = 1
	}

	tr := &trace{tracer: t, boundary: boundary, maxDepth: maxDepth}
	root := &CallNode{
		Callee:       method.Name,
		CalleeClass:  owner.QualifiedName,
		CalleeMethod: method.QualifiedName,
		File:         method.File,
		Line:         method.Location.Line,
		Depth:        0,
		Stereotype:   t.classifier.Stereotype(owner),
		Declaration:  method,
	}
	root.Children = tr.expand(method, owner, 0, []string{method.QualifiedName})

	res := &Result{Root: root, MaxDepth: maxDepth, BoundaryPatterns: boundaryPatterns}
	root.Walk(func(n *CallNode) {
		res.Nodes++
		if n.BoundaryHit {
			res.BoundaryHits++
		}
		if n.Unresolved {
			res.Unresolved++
		}
	})
	return res, nil
}

func compileBoundary(patterns []string) ([]glob.Glob, error) {
	out := make([]glob.Glob, 0, len(patterns))
	for _, p := range patterns {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		g, err := glob.Compile(p, '.')
		if err != nil {
			err = errors.Wrap(err, errors.CodeValidationError, fmt.Sprintf("invalid boundary pattern %q", p))
			return nil, errors.AddContext(err, "pattern", p)
		}
		out = append(out, g)
	}
	return out, nil
}

func (t *Tracer) rootMethod(cls *parser.Declaration, methodName string) (*parser.Declaration, *parser.Declaration, error) {
	wanted := parser.NormalizeTypeText(methodName)
	bySignature := strings.Contains(wanted, "(")

	var names []string
	visited := map[string]bool{}
	queue := []*parser.Declaration{cls}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		if visited[current.QualifiedName] {
			continue
		}
		visited[current.QualifiedName] = true
		for _, m := range current.Methods {
			names = append(names, m.Name)
			if bySignature && parser.MethodSignature(m.Name, m.Params) == wanted {
				return m, current, nil
			}
			if !bySignature && m.Name == wanted {
				return m, current, nil
			}
		}
		project, _ := t.index.Supertypes(current)
		queue = append(queue, project...)
	}

	err := errors.New(errors.CodeSymbolNotFound, fmt.Sprintf("method %q not found on %s", methodName, cls.QualifiedName))
	err = errors.AddContext(err, errors.CtxClass, cls.QualifiedName)
	err = errors.AddContext(err, errors.CtxMethod, methodName)
	if suggestions := util.Suggest(wanted, names, 5); len(suggestions) > 0 {
		err = errors.AddContext(err, errors.CtxSuggestions, suggestions)
	}
	return nil, nil, err
}

type trace struct {
	tracer   *Tracer
	boundary []glob.Glob
	maxDepth int
}

// expand builds one child per call site of method. path holds the qualified
// method names from the root down to method.
func (tr *trace) expand(method, cls *parser.Declaration, depth int, path []string) []*CallNode {
	var children []*CallNode
	for _, call := range method.Calls {
		node := &CallNode{
			Caller: method.QualifiedName,
			Callee: call.Name,
			Call:   call.Text,
			File:   method.File,
			Line:   call.Location.Line,
			Depth:  depth + 1,
		}
		tr.resolve(node, call, method, cls, path)
		children = append(children, node)
	}
	return children
}

func (tr *trace) resolve(node *CallNode, call parser.CallSite, method, cls *parser.Declaration, path []string) {
	t := tr.tracer

	if len(call.Receiver) == 0 {
		if owner := t.staticImportOwner(cls, call.Name); owner != "" {
			if decl := t.index.Class(owner); decl != nil {
				tr.dispatch(node, call, staticType{decl: decl}, path)
				return
			}
			tr.external(node, owner)
			return
		}
	}

	recv := t.receiverType(call, method, cls)
	if !recv.known() {
		node.Unresolved = true
		node.Reason = recv.reason
		return
	}
	if recv.decl == nil {
		tr.external(node, recv.external)
		return
	}
	tr.dispatch(node, call, recv, path)
}

// dispatch resolves call against a project receiver type and expands it.
func (tr *trace) dispatch(node *CallNode, call parser.CallSite, recv staticType, path []string) {
	t := tr.tracer
	decl := recv.decl

	found := t.findMethod(decl, call.Name, call.ArgCount)
	// Unqualified calls inside nested classes may target an outer class.
	if found.method == nil && len(call.Receiver) == 0 {
		for outer := t.index.Class(decl.Owner); outer != nil && found.method == nil; outer = t.index.Class(outer.Owner) {
			if m := t.findMethod(outer, call.Name, call.ArgCount); m.method != nil {
				found = m
			}
		}
	}

	if found.method == nil {
		switch {
		case recordAccessor(decl, call.Name, call.ArgCount) != nil:
			node.CalleeClass = decl.QualifiedName
			node.Stereotype = t.classifier.Stereotype(decl)
		case len(found.externals) > 0:
			// Inherited from a type outside the project.
			tr.external(node, found.externals[0])
		case objectMethods[call.Name]:
			tr.external(node, "java.lang.Object")
		case decl.Kind == parser.KindEnum && enumMethods[call.Name]:
			tr.external(node, "java.lang.Enum")
		default:
			node.CalleeClass = decl.QualifiedName
			node.Unresolved = true
			node.Reason = fmt.Sprintf("method %s not found on %s", call.Name, decl.QualifiedName)
		}
		return
	}

	method, owner := found.method, found.owner
	if tr.isBoundary(owner.QualifiedName) {
		node.CalleeClass = owner.QualifiedName
		node.CalleeMethod = method.QualifiedName
		node.Declaration = method
		node.Stereotype = t.classifier.Stereotype(owner)
		node.BoundaryHit = true
		return
	}
	if !method.HasBody || method.Modifiers.Abstract {
		impl, implOwner, ok := tr.implementation(node, decl, owner, call)
		if !ok {
			return
		}
		node.ViaImplementation = owner.QualifiedName
		method, owner = impl, implOwner
	}

	node.CalleeClass = owner.QualifiedName
	node.CalleeMethod = method.QualifiedName
	node.Declaration = method
	node.Stereotype = t.classifier.Stereotype(owner)

	if tr.isBoundary(owner.QualifiedName) {
		node.BoundaryHit = true
		return
	}
	for _, onPath := range path {
		if onPath == method.QualifiedName {
			node.Terminal = TerminalCycle
			return
		}
	}
	if node.Depth >= tr.maxDepth {
		node.Terminal = TerminalDepthExceeded
		return
	}
	next := append(path[:len(path):len(path)], method.QualifiedName)
	node.Children = tr.expand(method, owner, node.Depth, next)
}

// implementation picks the single concrete project implementation of an
// abstract callee. Without exactly one, the node becomes a leaf: a boundary
// hit when the abstract type extends a boundary type (the framework supplies
// the body), otherwise unresolved.
func (tr *trace) implementation(node *CallNode, recv, owner *parser.Declaration, call parser.CallSite) (*parser.Declaration, *parser.Declaration, bool) {
	t := tr.tracer
	var impls []methodMatch
	for _, impl := range t.index.Implementations(recv) {
		if m := t.findMethod(impl, call.Name, call.ArgCount); m.method != nil && m.method.HasBody {
			impls = append(impls, m)
		}
	}
	if len(impls) == 1 {
		return impls[0].method, impls[0].owner, true
	}

	node.CalleeClass = owner.QualifiedName
	node.Stereotype = t.classifier.Stereotype(owner)
	if len(impls) == 0 {
		for _, ext := range t.externalSupertypes(recv) {
			if tr.isBoundary(ext) {
				node.BoundaryHit = true
				node.ViaImplementation = ext
				return nil, nil, false
			}
		}
	}
	node.Unresolved = true
	node.Reason = fmt.Sprintf("abstract method %s has %d project implementations", call.Name, len(impls))
	return nil, nil, false
}

// external marks node as a call into a type outside the project.
func (tr *trace) external(node *CallNode, qualified string) {
	node.CalleeClass = qualified
	if tr.isBoundary(qualified) {
		node.BoundaryHit = true
		return
	}
	if !strings.Contains(qualified, ".") {
		node.Unresolved = true
		node.Reason = fmt.Sprintf("type %s could not be resolved", qualified)
		return
	}
	node.Terminal = TerminalExternal
}

// isBoundary matches the package of a qualified class name, and the name
// itself, against the boundary globs.
func (tr *trace) isBoundary(qualified string) bool {
	pkg := parser.PackageOf(qualified)
	for _, g := range tr.boundary {
		if g.Match(pkg) || g.Match(qualified) {
			return true
		}
	}
	return false
}

// staticImportOwner returns the type that a static import of name comes from.
func (t *Tracer) staticImportOwner(cls *parser.Declaration, name string) string {
	file := t.index.File(cls.File)
	if file == nil {
		return ""
	}
	if len(cls.MethodsNamed(name)) > 0 {
		return ""
	}
	for _, imp := range file.Imports {
		if !imp.Static {
			continue
		}
		if !imp.Wildcard && parser.SimpleName(imp.Path) == name {
			return parser.PackageOf(imp.Path)
		}
	}
	return ""
}
