package index

import (
	"codelens/internal/core/errors"
	"codelens/internal/engine/parser"
	"codelens/internal/shared/util"
	"fmt"
	"sort"
	"strings"
)

// Types of java.lang are visible without an import.
var javaLangTypes = map[string]bool{
	"Object": true, "String": true, "Integer": true, "Long": true, "Short": true,
	"Byte": true, "Double": true, "Float": true, "Boolean": true, "Character": true,
	"Number": true, "Math": true, "System": true, "Thread": true, "Runnable": true,
	"Exception": true, "RuntimeException": true, "Error": true, "Throwable": true,
	"IllegalArgumentException": true, "IllegalStateException": true,
	"NullPointerException": true, "UnsupportedOperationException": true,
	"Iterable": true, "Comparable": true, "CharSequence": true, "StringBuilder": true,
	"Enum": true, "Record": true, "Void": true, "Class": true, "Override": true,
	"Deprecated": true, "FunctionalInterface": true, "SuppressWarnings": true,
	"AutoCloseable": true, "Cloneable": true,
}

// Lookup resolves a type name as seen from contextFile. Qualified names match
// directly. Simple names go through nested types of the file, single-type
// imports, wildcard imports, the file's package and finally the configured
// namespaces. Dotted names that are not qualified resolve their first segment
// and descend into nested types.
func (ix *Index) Lookup(name, contextFile string) *parser.Declaration {
	name = parser.EraseGenerics(parser.NormalizeTypeText(name))
	name = strings.TrimRight(name, "[].")
	if name == "" {
		return nil
	}

	ix.mu.RLock()
	defer ix.mu.RUnlock()

	if decl, ok := ix.types[name]; ok {
		return decl
	}
	var file *parser.File
	if contextFile != "" {
		if e, ok := ix.files[ix.Key(contextFile)]; ok {
			file = e.file
		}
	}
	if idx := strings.Index(name, "."); idx > 0 {
		outer := ix.lookupSimpleLocked(name[:idx], file)
		if outer == nil {
			return nil
		}
		return ix.types[outer.QualifiedName+name[idx:]]
	}
	return ix.lookupSimpleLocked(name, file)
}

func (ix *Index) lookupSimpleLocked(name string, file *parser.File) *parser.Declaration {
	if file != nil {
		for _, t := range file.TypeDeclarations() {
			if t.Name == name {
				return t
			}
		}
		for _, imp := range file.Imports {
			if imp.Static || imp.Wildcard {
				continue
			}
			if parser.SimpleName(imp.Path) == name {
				// An explicit import of a non-project type shadows project types.
				return ix.types[imp.Path]
			}
		}
		for _, imp := range file.Imports {
			if imp.Static || !imp.Wildcard {
				continue
			}
			if decl, ok := ix.types[imp.Path+"."+name]; ok {
				return decl
			}
		}
		if decl, ok := ix.types[parser.JoinQualified(file.Package, name)]; ok {
			return decl
		}
	}

	records := ix.symbols.Lookup(name)
	if len(records) == 0 {
		return nil
	}
	if len(ix.namespaces) == 0 {
		if file == nil {
			return ix.firstLiveLocked(records, nil)
		}
		return nil
	}
	return ix.firstLiveLocked(records, func(pkg string) bool {
		for _, g := range ix.namespaces {
			if g.Match(pkg) {
				return true
			}
		}
		return false
	})
}

func (ix *Index) firstLiveLocked(records []SymbolRecord, accept func(pkg string) bool) *parser.Declaration {
	for _, rec := range records {
		if accept != nil && !accept(rec.Package) {
			continue
		}
		if decl, ok := ix.types[rec.QualifiedName]; ok && decl.Owner == decl.Package {
			return decl
		}
	}
	return nil
}

// ResolveClass finds a type by qualified or simple name without file context.
// Types inside configured namespaces win; remaining ties go to the first
// qualified name in sort order.
func (ix *Index) ResolveClass(name string) (*parser.Declaration, error) {
	name = strings.TrimSpace(name)
	if decl := ix.Class(name); decl != nil {
		return decl, nil
	}

	ix.mu.RLock()
	var candidates []*parser.Declaration
	simple := parser.SimpleName(name)
	for _, rec := range ix.symbols.Lookup(simple) {
		decl, ok := ix.types[rec.QualifiedName]
		if !ok {
			continue
		}
		if strings.Contains(name, ".") && !strings.HasSuffix(decl.QualifiedName, "."+name) {
			continue
		}
		candidates = append(candidates, decl)
	}
	namespaces := ix.namespaces
	ix.mu.RUnlock()

	if len(candidates) == 0 {
		err := errors.New(errors.CodeClassNotFound, fmt.Sprintf("class %q not found in index", name))
		err = errors.AddContext(err, errors.CtxClass, name)
		if suggestions := util.Suggest(simple, ix.symbols.Names(), 5); len(suggestions) > 0 {
			err = errors.AddContext(err, errors.CtxSuggestions, suggestions)
		}
		return nil, err
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].QualifiedName < candidates[j].QualifiedName
	})
	for _, c := range candidates {
		for _, g := range namespaces {
			if g.Match(c.Package) {
				return c, nil
			}
		}
	}
	return candidates[0], nil
}

// QualifyExternal returns a best-effort qualified name for a type that is
// not part of the project. Unknown names come back unchanged.
func (ix *Index) QualifyExternal(name, contextFile string) string {
	name = parser.EraseGenerics(parser.NormalizeTypeText(name))
	name = strings.TrimRight(name, "[].")
	if name == "" {
		return ""
	}
	head, rest := name, ""
	if idx := strings.Index(name, "."); idx > 0 {
		head, rest = name[:idx], name[idx:]
		if head != "" && head[0] >= 'a' && head[0] <= 'z' {
			return name
		}
	}

	file := ix.File(contextFile)
	if file != nil {
		for _, imp := range file.Imports {
			if !imp.Static && !imp.Wildcard && parser.SimpleName(imp.Path) == head {
				return imp.Path + rest
			}
		}
	}
	if javaLangTypes[head] {
		return "java.lang." + head + rest
	}
	if file != nil {
		var wildcard []string
		for _, imp := range file.Imports {
			if imp.Wildcard && !imp.Static {
				wildcard = append(wildcard, imp.Path)
			}
		}
		if len(wildcard) == 1 {
			return wildcard[0] + "." + head + rest
		}
	}
	return name
}

// Supertypes returns the resolved project superclass and interfaces of decl,
// in declaration order. Types that cannot be found are returned as raw text in
// the external slice.
func (ix *Index) Supertypes(decl *parser.Declaration) (project []*parser.Declaration, external []string) {
	var names []string
	if decl.SuperClass != "" {
		names = append(names, decl.SuperClass)
	}
	names = append(names, decl.Interfaces...)
	for _, n := range names {
		if super := ix.Lookup(n, decl.File); super != nil {
			project = append(project, super)
		} else {
			external = append(external, n)
		}
	}
	return project, external
}

// SuperClass resolves the declared superclass of decl inside the project.
func (ix *Index) SuperClass(decl *parser.Declaration) *parser.Declaration {
	if decl == nil || decl.SuperClass == "" {
		return nil
	}
	return ix.Lookup(decl.SuperClass, decl.File)
}

// Implementations returns the concrete project types that implement or extend
// iface directly or through project supertypes.
func (ix *Index) Implementations(iface *parser.Declaration) []*parser.Declaration {
	var out []*parser.Declaration
	for _, decl := range ix.Classes() {
		if decl == iface || decl.Kind == parser.KindInterface || decl.Modifiers.Abstract {
			continue
		}
		if ix.isSubtype(decl, iface.QualifiedName, map[string]bool{}) {
			out = append(out, decl)
		}
	}
	return out
}

func (ix *Index) isSubtype(decl *parser.Declaration, target string, seen map[string]bool) bool {
	if seen[decl.QualifiedName] {
		return false
	}
	seen[decl.QualifiedName] = true
	supers, _ := ix.Supertypes(decl)
	for _, s := range supers {
		if s.QualifiedName == target || ix.isSubtype(s, target, seen) {
			return true
		}
	}
	return false
}

// FileDeclarations returns every declaration indexed for path.
func (ix *Index) FileDeclarations(path string) []*parser.Declaration {
	file := ix.File(path)
	if file == nil {
		return nil
	}
	return file.Declarations()
}
