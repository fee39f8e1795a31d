package callchain

import (
	"codelens/internal/engine/parser"
	"codelens/internal/engine/resolver"
	"fmt"
	"strings"
	"unicode"
)

// staticType is the declared type of a call receiver: a project declaration,
// a qualified external type name, or unknown with a reason.
type staticType struct {
	decl     *parser.Declaration
	external string
	reason   string
}

func (s staticType) known() bool { return s.decl != nil || s.external != "" }

func unknown(format string, args ...interface{}) staticType {
	return staticType{reason: fmt.Sprintf(format, args...)}
}

func (t *Tracer) fromRef(ref *resolver.TypeReference) staticType {
	switch {
	case ref == nil || ref.Name == "":
		return unknown("receiver type is not declared")
	case ref.Primitive:
		return unknown("primitive %s has no methods", ref.Name)
	case ref.IsArray():
		return staticType{external: "java.lang.Object"}
	case ref.IsProject():
		return staticType{decl: ref.Declaration}
	case ref.Name == "var":
		return unknown("type of var could not be inferred")
	case !strings.Contains(ref.QualifiedName, "."):
		return unknown("type %s could not be resolved", ref.Name)
	}
	return staticType{external: ref.QualifiedName}
}

// receiverType resolves the type a call is dispatched on.
func (t *Tracer) receiverType(call parser.CallSite, method, cls *parser.Declaration) staticType {
	if len(call.Receiver) == 0 {
		return staticType{decl: cls}
	}
	cur, rest := t.head(call.Receiver, call.Location.Line, method, cls)
	for _, part := range rest {
		if !cur.known() {
			return cur
		}
		if cur.decl == nil {
			return unknown("members of external type %s are not indexed", cur.external)
		}
		switch part.Kind {
		case parser.ReceiverField:
			field := t.findField(cur.decl, part.Name)
			if field == nil {
				return unknown("field %s not found on %s", part.Name, cur.decl.QualifiedName)
			}
			cur = t.fromRef(t.resolver.ParseType(field.TypeText, field.File))
		case parser.ReceiverCall:
			found := t.findMethod(cur.decl, part.Name, part.ArgCount)
			if found.method == nil {
				return unknown("method %s not found on %s", part.Name, cur.decl.QualifiedName)
			}
			cur = t.fromRef(t.resolver.ParseType(found.method.TypeText, found.method.File))
		default:
			return unknown("unsupported receiver %s", part.Name)
		}
	}
	return cur
}

func (t *Tracer) head(parts []parser.ReceiverPart, line int, method, cls *parser.Declaration) (staticType, []parser.ReceiverPart) {
	first, rest := parts[0], parts[1:]
	switch first.Kind {
	case parser.ReceiverThis:
		return staticType{decl: cls}, rest
	case parser.ReceiverSuper:
		if super := t.index.SuperClass(cls); super != nil {
			return staticType{decl: super}, rest
		}
		if cls.SuperClass != "" {
			return t.fromRef(t.resolver.ParseType(cls.SuperClass, cls.File)), rest
		}
		return staticType{external: "java.lang.Object"}, rest
	case parser.ReceiverTyped:
		return t.fromRef(t.resolver.ParseType(first.TypeText, cls.File)), rest
	case parser.ReceiverCall:
		found := t.findMethod(cls, first.Name, first.ArgCount)
		if found.method == nil {
			return unknown("method %s not found on %s", first.Name, cls.QualifiedName), rest
		}
		return t.fromRef(t.resolver.ParseType(found.method.TypeText, found.method.File)), rest
	case parser.ReceiverIdent:
		return t.identifier(first.Name, parts, line, method, cls)
	case parser.ReceiverExpr:
		if strings.HasPrefix(first.Name, `"`) {
			return staticType{external: "java.lang.String"}, rest
		}
	}
	return unknown("receiver %q is not statically typed", first.Name), rest
}

func (t *Tracer) identifier(name string, parts []parser.ReceiverPart, line int, method, cls *parser.Declaration) (staticType, []parser.ReceiverPart) {
	rest := parts[1:]
	res, err := t.resolver.ResolveSymbol(name, method.File, &line)
	if err == nil {
		if res.Scope == resolver.ScopeType {
			return staticType{decl: res.Type.Declaration}, rest
		}
		return t.fromRef(res.Type), rest
	}

	if isCapitalized(name) {
		// Unresolved capitalised names are static references to external types.
		qn := t.index.QualifyExternal(name, cls.File)
		if strings.Contains(qn, ".") {
			return staticType{external: qn}, rest
		}
		return unknown("type %s could not be resolved", name), rest
	}

	// A fully qualified static reference such as java.util.Objects.
	segments := []string{name}
	for i, part := range rest {
		if part.Kind != parser.ReceiverField {
			break
		}
		segments = append(segments, part.Name)
		if isCapitalized(part.Name) {
			qn := strings.Join(segments, ".")
			if decl := t.index.Class(qn); decl != nil {
				return staticType{decl: decl}, rest[i+1:]
			}
			return staticType{external: qn}, rest[i+1:]
		}
	}
	return unknown("symbol %s could not be resolved", name), rest
}

// findField looks name up in decl and its project superclasses.
func (t *Tracer) findField(decl *parser.Declaration, name string) *parser.Declaration {
	visited := map[string]bool{}
	for current := decl; current != nil && !visited[current.QualifiedName]; current = t.index.SuperClass(current) {
		visited[current.QualifiedName] = true
		if f := current.Field(name); f != nil {
			return f
		}
	}
	return nil
}

type methodMatch struct {
	method    *parser.Declaration
	owner     *parser.Declaration
	externals []string // qualified external supertypes met on the way
}

// findMethod searches decl and its supertypes breadth-first. A matching arity
// wins over a name-only match anywhere in the hierarchy.
func (t *Tracer) findMethod(decl *parser.Declaration, name string, argc int) methodMatch {
	var match methodMatch
	var byName *parser.Declaration
	var byNameOwner *parser.Declaration

	queue := []*parser.Declaration{decl}
	visited := map[string]bool{}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		if visited[current.QualifiedName] {
			continue
		}
		visited[current.QualifiedName] = true

		for _, m := range current.MethodsNamed(name) {
			if m.Kind == parser.KindConstructor {
				continue
			}
			if arityMatches(m, argc) {
				match.method, match.owner = m, current
				return match
			}
			if byName == nil {
				byName, byNameOwner = m, current
			}
		}

		project, external := t.index.Supertypes(current)
		queue = append(queue, project...)
		for _, ext := range external {
			match.externals = append(match.externals, t.index.QualifyExternal(ext, current.File))
		}
	}
	if byName != nil {
		match.method, match.owner = byName, byNameOwner
	}
	return match
}

// externalSupertypes lists the qualified non-project supertypes reachable
// from decl through project types.
func (t *Tracer) externalSupertypes(decl *parser.Declaration) []string {
	var out []string
	queue := []*parser.Declaration{decl}
	visited := map[string]bool{}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		if visited[current.QualifiedName] {
			continue
		}
		visited[current.QualifiedName] = true
		project, external := t.index.Supertypes(current)
		queue = append(queue, project...)
		for _, ext := range external {
			out = append(out, t.index.QualifyExternal(ext, current.File))
		}
	}
	return out
}

func arityMatches(m *parser.Declaration, argc int) bool {
	n := len(m.Params)
	if n == argc {
		return true
	}
	return n > 0 && argc >= n-1 && strings.HasSuffix(m.Params[n-1].TypeText, "[]")
}

// recordAccessor returns the component field read by an accessor call on a
// record.
func recordAccessor(decl *parser.Declaration, name string, argc int) *parser.Declaration {
	if decl.Kind != parser.KindRecord || argc != 0 {
		return nil
	}
	return decl.Field(name)
}

var objectMethods = map[string]bool{
	"toString": true, "equals": true, "hashCode": true, "getClass": true,
	"notify": true, "notifyAll": true, "wait": true, "clone": true, "finalize": true,
}

var enumMethods = map[string]bool{
	"values": true, "valueOf": true, "name": true, "ordinal": true, "compareTo": true,
}

func isCapitalized(name string) bool {
	for _, r := range name {
		return unicode.IsUpper(r)
	}
	return false
}
