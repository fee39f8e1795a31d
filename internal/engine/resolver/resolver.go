package resolver

import (
	"codelens/internal/core/config"
	"codelens/internal/core/errors"
	"codelens/internal/engine/index"
	"codelens/internal/engine/parser"
	"codelens/internal/shared/util"
	"fmt"
	"strings"
)

// Scope names reported in resolutions and diagnostics.
const (
	ScopeLocal          = "local"
	ScopeParameter      = "parameter"
	ScopeField          = "field"
	ScopeInheritedField = "inherited_field"
	ScopeOuterField     = "outer_field"
	ScopeType           = "type"
)

type DeclarationSite struct {
	File   string `json:"file"`
	Line   int    `json:"line"`
	Column int    `json:"column,omitempty"`
}

type Resolution struct {
	Symbol          string                 `json:"symbol"`
	ResolvedType    string                 `json:"resolvedType"`
	TypeText        string                 `json:"typeText"`
	DeclarationKind parser.DeclarationKind `json:"declarationKind"`
	DeclarationSite DeclarationSite        `json:"declarationSite"`
	IsProjectClass  bool                   `json:"isProjectClass"`
	Scope           string                 `json:"scope"`
	Owner           string                 `json:"owner,omitempty"`
	Type            *TypeReference         `json:"type,omitempty"`
}

type Options struct {
	CollectionTypes []string
	MapTypes        []string
	OptionalTypes   []string
}

func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		CollectionTypes: cfg.Analysis.CollectionTypes,
		MapTypes:        cfg.Analysis.MapTypes,
		OptionalTypes:   cfg.Analysis.OptionalTypes,
	}
}

type Resolver struct {
	index *index.Index
	sets  typeSets
}

func New(ix *index.Index, opts Options) *Resolver {
	return &Resolver{
		index: ix,
		sets:  newTypeSets(opts.CollectionTypes, opts.MapTypes, opts.OptionalTypes),
	}
}

func (r *Resolver) Index() *index.Index { return r.index }

// ParseType resolves type text as written in contextFile.
func (r *Resolver) ParseType(text, contextFile string) *TypeReference {
	raw := strings.TrimSpace(text)
	normalized := parser.NormalizeTypeText(raw)
	ref := &TypeReference{Raw: raw}

	switch {
	case normalized == "?":
		ref.Wildcard = true
		return ref
	case strings.HasPrefix(normalized, "?extends"):
		normalized = strings.TrimPrefix(normalized, "?extends")
		ref.Wildcard = true
	case strings.HasPrefix(normalized, "?super"):
		normalized = strings.TrimPrefix(normalized, "?super")
		ref.Wildcard = true
	}

	name, args, dims := splitTypeText(normalized)
	ref.Name = name
	ref.Dimensions = dims
	for _, arg := range args {
		ref.TypeArgs = append(ref.TypeArgs, r.ParseType(arg, contextFile))
	}
	if name == "" {
		return ref
	}
	if primitives[name] {
		ref.Primitive = true
		ref.QualifiedName = name
		return ref
	}
	if decl := r.index.Lookup(name, contextFile); decl != nil {
		ref.Declaration = decl
		ref.QualifiedName = decl.QualifiedName
		return ref
	}
	ref.QualifiedName = r.index.QualifyExternal(name, contextFile)
	ref.Container = r.sets.classify(name)
	return ref
}

// ResolveSymbol finds the declaration that name refers to inside contextFile.
// With a line the innermost scope enclosing it is searched first: locals,
// then parameters, then fields of the enclosing class and its project
// superclasses, then fields of outer classes, then type names. Without a line
// the class fields of the file are searched in declaration order, then every
// method parameter of the file, then type names.
func (r *Resolver) ResolveSymbol(name, contextFile string, line *int) (*Resolution, error) {
	name = strings.TrimSpace(name)
	file := r.index.File(contextFile)
	if file == nil {
		err := errors.New(errors.CodeNotFound, fmt.Sprintf("file %q is not indexed", contextFile))
		return nil, errors.AddContext(err, errors.CtxPath, contextFile)
	}

	s := &search{resolver: r, name: name}
	var res *Resolution
	if line != nil {
		res = s.atLine(file, *line)
	} else {
		res = s.withoutLine(file)
	}
	if res == nil {
		res = s.typeName(file)
	}
	if res != nil {
		return res, nil
	}

	err := errors.New(errors.CodeSymbolNotFound, fmt.Sprintf("symbol %q not found in %s", name, file.Path))
	err = errors.AddContext(err, errors.CtxSymbol, name)
	err = errors.AddContext(err, errors.CtxPath, file.Path)
	if line != nil {
		err = errors.AddContext(err, errors.CtxLine, *line)
	}
	err = errors.AddContext(err, errors.CtxScopes, s.scopes)
	if suggestions := util.Suggest(name, s.seen, 5); len(suggestions) > 0 {
		err = errors.AddContext(err, errors.CtxSuggestions, suggestions)
	}
	return nil, err
}

type search struct {
	resolver *Resolver
	name     string
	scopes   []string
	seen     []string
}

func (s *search) scope(label string) {
	s.scopes = append(s.scopes, label)
}

func (s *search) atLine(file *parser.File, line int) *Resolution {
	owner := innermostType(file, line)
	if owner == nil {
		return nil
	}
	if method := enclosingMethod(owner, line); method != nil {
		s.scope("locals of " + method.QualifiedName)
		var best *parser.Local
		for i := range method.Locals {
			local := &method.Locals[i]
			s.seen = append(s.seen, local.Name)
			if local.Name != s.name || line < local.Line || line > local.ScopeEnd {
				continue
			}
			if best == nil || local.Line >= best.Line {
				best = local
			}
		}
		if best != nil {
			return s.resolveLocal(method, best)
		}

		s.scope("parameters of " + method.QualifiedName)
		for _, p := range method.Params {
			s.seen = append(s.seen, p.Name)
			if p.Name == s.name {
				return s.resolveDecl(p, ScopeParameter)
			}
		}
	}

	if res := s.fieldsOf(owner, ScopeField); res != nil {
		return res
	}
	for outer := s.resolver.index.Class(owner.Owner); outer != nil; outer = s.resolver.index.Class(outer.Owner) {
		if res := s.fieldsOf(outer, ScopeOuterField); res != nil {
			return res
		}
	}
	return nil
}

// fieldsOf searches decl's own fields and then the fields of its project
// superclasses.
func (s *search) fieldsOf(decl *parser.Declaration, scope string) *Resolution {
	visited := map[string]bool{}
	for current := decl; current != nil && !visited[current.QualifiedName]; current = s.resolver.index.SuperClass(current) {
		visited[current.QualifiedName] = true
		s.scope("fields of " + current.QualifiedName)
		for _, f := range current.Fields {
			s.seen = append(s.seen, f.Name)
			if f.Name != s.name {
				continue
			}
			if current != decl && scope == ScopeField {
				if f.Visibility == "private" {
					continue
				}
				return s.resolveDecl(f, ScopeInheritedField)
			}
			return s.resolveDecl(f, scope)
		}
	}
	return nil
}

func (s *search) withoutLine(file *parser.File) *Resolution {
	types := file.TypeDeclarations()
	for _, t := range types {
		s.scope("fields of " + t.QualifiedName)
		for _, f := range t.Fields {
			s.seen = append(s.seen, f.Name)
			if f.Name == s.name {
				return s.resolveDecl(f, ScopeField)
			}
		}
	}
	s.scope("parameters in " + file.Path)
	for _, t := range types {
		for _, m := range t.Methods {
			for _, p := range m.Params {
				s.seen = append(s.seen, p.Name)
				if p.Name == s.name {
					return s.resolveDecl(p, ScopeParameter)
				}
			}
		}
	}
	return nil
}

func (s *search) typeName(file *parser.File) *Resolution {
	s.scope("types visible from " + file.Path)
	decl := s.resolver.index.Lookup(s.name, file.Path)
	if decl == nil {
		return nil
	}
	ref := &TypeReference{
		Raw:           s.name,
		Name:          s.name,
		QualifiedName: decl.QualifiedName,
		Declaration:   decl,
	}
	return &Resolution{
		Symbol:          s.name,
		ResolvedType:    decl.QualifiedName,
		TypeText:        s.name,
		DeclarationKind: decl.Kind,
		DeclarationSite: siteOf(decl.Location),
		IsProjectClass:  true,
		Scope:           ScopeType,
		Owner:           decl.Owner,
		Type:            ref,
	}
}

func (s *search) resolveDecl(decl *parser.Declaration, scope string) *Resolution {
	ref := s.resolver.ParseType(decl.TypeText, decl.File)
	return &Resolution{
		Symbol:          s.name,
		ResolvedType:    ref.Qualified(),
		TypeText:        decl.TypeText,
		DeclarationKind: decl.Kind,
		DeclarationSite: siteOf(decl.Location),
		IsProjectClass:  ref.IsProject(),
		Scope:           scope,
		Owner:           decl.Owner,
		Type:            ref,
	}
}

func (s *search) resolveLocal(method *parser.Declaration, local *parser.Local) *Resolution {
	ref := s.resolver.ParseType(local.TypeText, method.File)
	return &Resolution{
		Symbol:          s.name,
		ResolvedType:    ref.Qualified(),
		TypeText:        local.TypeText,
		DeclarationKind: parser.KindLocal,
		DeclarationSite: DeclarationSite{File: method.File, Line: local.Line},
		IsProjectClass:  ref.IsProject(),
		Scope:           ScopeLocal,
		Owner:           method.QualifiedName,
		Type:            ref,
	}
}

func siteOf(loc parser.Location) DeclarationSite {
	return DeclarationSite{File: loc.File, Line: loc.Line, Column: loc.Column}
}

// innermostType returns the smallest type declaration whose span contains line.
func innermostType(file *parser.File, line int) *parser.Declaration {
	var best *parser.Declaration
	for _, t := range file.TypeDeclarations() {
		if !t.Span.Contains(line) {
			continue
		}
		if best == nil || t.Span.EndLine-t.Span.StartLine <= best.Span.EndLine-best.Span.StartLine {
			best = t
		}
	}
	return best
}

// enclosingMethod returns the method or constructor of owner whose span
// contains line.
func enclosingMethod(owner *parser.Declaration, line int) *parser.Declaration {
	for _, m := range owner.Methods {
		if m.Span.Contains(line) {
			return m
		}
	}
	return nil
}

// FieldEntry is an instance field reachable from a type, own or inherited.
type FieldEntry struct {
	Field     *parser.Declaration
	Inherited bool
	From      string
}

// InstanceFields returns the non-static fields of decl followed by the
// non-private, non-static fields of its project superclasses.
func (r *Resolver) InstanceFields(decl *parser.Declaration) []FieldEntry {
	var out []FieldEntry
	visited := map[string]bool{}
	for current := decl; current != nil && !visited[current.QualifiedName]; current = r.index.SuperClass(current) {
		visited[current.QualifiedName] = true
		inherited := current != decl
		for _, f := range current.Fields {
			if f.Modifiers.Static {
				continue
			}
			if inherited && f.Visibility == "private" {
				continue
			}
			out = append(out, FieldEntry{Field: f, Inherited: inherited, From: current.QualifiedName})
		}
	}
	return out
}
