package typegraph

import (
	"codelens/internal/engine/annotations"
	"codelens/internal/engine/parser"
	"codelens/internal/engine/resolver"
)

type Walker struct {
	resolver   *resolver.Resolver
	classifier *annotations.Classifier
}

func NewWalker(r *resolver.Resolver, c *annotations.Classifier) *Walker {
	return &Walker{resolver: r, classifier: c}
}

// Expand walks the declared instance fields of className depth-first. The
// root sits at depth 1; targets of a node at maxDepth become DepthExceeded
// markers. A type already on the path from the root becomes a Cycle marker,
// types outside the project become External markers.
func (w *Walker) Expand(className string, maxDepth int, includeAnnotations bool) (*Result, error) {
	root, err := w.resolver.Index().ResolveClass(className)
	if err != nil {
		return nil, err
	}
	if maxDepth < 1 {
		maxDepth = 1
	}
	e := &expansion{walker: w, maxDepth: maxDepth, annotations: includeAnnotations}
	res := &Result{MaxDepth: maxDepth}
	res.Root = e.expand(root, 1, nil)
	res.Nodes = e.nodes
	res.Cycles = e.counts[TerminalCycle]
	res.DepthExceeded = e.counts[TerminalDepthExceeded]
	res.External = e.counts[TerminalExternal]
	return res, nil
}

type expansion struct {
	walker      *Walker
	maxDepth    int
	annotations bool
	nodes       int
	counts      map[TerminalKind]int
}

func (e *expansion) expand(decl *parser.Declaration, depth int, path []string) *TypeNode {
	e.nodes++
	// Full slice expression so siblings never share the backing array.
	path = append(path[:len(path):len(path)], decl.QualifiedName)

	node := &TypeNode{
		ClassName:     decl.QualifiedName,
		SimpleName:    decl.Name,
		Kind:          decl.Kind,
		File:          decl.File,
		Line:          decl.Location.Line,
		Depth:         depth,
		Stereotype:    e.walker.classifier.Stereotype(decl),
		EnumConstants: decl.EnumConstants,
		Fields:        []FieldEntry{},
	}
	if e.annotations {
		node.Annotations = e.walker.classifier.Describe(decl.Annotations)
	}

	for _, fe := range e.walker.resolver.InstanceFields(decl) {
		field := fe.Field
		ref := e.walker.resolver.ParseType(field.TypeText, field.File)
		entry := FieldEntry{
			Name:         field.Name,
			TypeText:     field.TypeText,
			ResolvedType: ref.Qualified(),
			Container:    ref.Container,
			Array:        ref.IsArray(),
			Inherited:    fe.Inherited,
			Line:         field.Location.Line,
			Type:         ref,
		}
		if fe.Inherited {
			entry.DeclaredIn = fe.From
		}
		if e.annotations {
			entry.Annotations = e.walker.classifier.Describe(field.Annotations)
		}
		for _, target := range ref.Targets() {
			entry.Children = append(entry.Children, e.child(target, depth, path))
		}
		node.Fields = append(node.Fields, entry)
	}
	return node
}

func (e *expansion) child(target *resolver.TypeReference, depth int, path []string) Child {
	if !target.IsProject() {
		return e.terminal(TerminalExternal, target.QualifiedName)
	}
	qn := target.Declaration.QualifiedName
	for _, onPath := range path {
		if onPath == qn {
			return e.terminal(TerminalCycle, qn)
		}
	}
	if depth >= e.maxDepth {
		return e.terminal(TerminalDepthExceeded, qn)
	}
	return Child{Node: e.expand(target.Declaration, depth+1, path)}
}

func (e *expansion) terminal(kind TerminalKind, className string) Child {
	if e.counts == nil {
		e.counts = make(map[TerminalKind]int)
	}
	e.counts[kind]++
	return Child{Terminal: &Terminal{Kind: kind, ClassName: className}}
}
