package parser

import (
	"codelens/internal/core/errors"
	"fmt"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

type Parser struct {
	pool      *ParserPool
	extractor *JavaExtractor
}

func NewParser() *Parser {
	return &Parser{
		pool:      NewParserPool(JavaLanguage()),
		extractor: NewJavaExtractor(),
	}
}

// Pool exposes the parser pool for callers that walk raw syntax trees.
func (p *Parser) Pool() *ParserPool {
	return p.pool
}

// ParseFile parses one compilation unit. Sources with syntax errors fail with
// CodeParseError and produce no declarations.
func (p *Parser) ParseFile(path string, content []byte) (*File, error) {
	tree := p.pool.Parse(content)
	if tree == nil {
		return nil, errors.New(errors.CodeInternal, "parse failed")
	}
	defer tree.Close()

	root := tree.RootNode()
	if bad := FirstError(root); bad != nil {
		line := int(bad.StartPosition().Row) + 1
		err := errors.New(errors.CodeParseError, fmt.Sprintf("syntax error in %s at line %d", path, line))
		err = errors.AddContext(err, errors.CtxPath, path)
		return nil, errors.AddContext(err, errors.CtxLine, line)
	}

	file, err := p.extractor.Extract(root, content, path)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "extraction failed")
	}
	return file, nil
}

// FirstError returns the first ERROR or MISSING node below node, or nil when
// the tree is clean.
func FirstError(node *sitter.Node) *sitter.Node {
	if node == nil || !node.HasError() {
		return nil
	}
	if node.IsError() || node.IsMissing() {
		return node
	}
	for i := uint(0); i < node.ChildCount(); i++ {
		if found := FirstError(node.Child(i)); found != nil {
			return found
		}
	}
	return node
}

// Declarations flattens every type, member and parameter declared in the file.
func (f *File) Declarations() []*Declaration {
	var out []*Declaration
	var visit func(d *Declaration)
	visit = func(d *Declaration) {
		out = append(out, d)
		out = append(out, d.Fields...)
		for _, m := range d.Methods {
			out = append(out, m)
			out = append(out, m.Params...)
		}
		for _, n := range d.Nested {
			visit(n)
		}
	}
	for _, t := range f.Types {
		visit(t)
	}
	return out
}

// TypeDeclarations returns every type declared in the file, nested types
// included, in source order.
func (f *File) TypeDeclarations() []*Declaration {
	var out []*Declaration
	var visit func(d *Declaration)
	visit = func(d *Declaration) {
		out = append(out, d)
		for _, n := range d.Nested {
			visit(n)
		}
	}
	for _, t := range f.Types {
		visit(t)
	}
	return out
}
