package resolver

import (
	"codelens/internal/engine/parser"
	"strings"
)

type ContainerKind string

const (
	ContainerNone       ContainerKind = ""
	ContainerCollection ContainerKind = "collection"
	ContainerMap        ContainerKind = "map"
	ContainerOptional   ContainerKind = "optional"
)

var primitives = map[string]bool{
	"boolean": true, "byte": true, "char": true, "short": true,
	"int": true, "long": true, "float": true, "double": true, "void": true,
}

// IsPrimitive reports whether a type name is a Java primitive or void.
func IsPrimitive(name string) bool { return primitives[name] }

// TypeReference is a possibly unresolved reference to a type as written in
// source, resolved against the file it appears in.
type TypeReference struct {
	Raw           string              `json:"raw"`
	Name          string              `json:"name"`
	QualifiedName string              `json:"qualifiedName"`
	Declaration   *parser.Declaration `json:"-"`
	Dimensions    int                 `json:"dimensions,omitempty"`
	Primitive     bool                `json:"primitive,omitempty"`
	Wildcard      bool                `json:"wildcard,omitempty"`
	TypeArgs      []*TypeReference    `json:"typeArguments,omitempty"`
	Container     ContainerKind       `json:"container,omitempty"`
}

// IsProject reports whether the reference resolved to an indexed declaration.
func (r *TypeReference) IsProject() bool { return r != nil && r.Declaration != nil }

// IsArray reports whether the reference has array dimensions.
func (r *TypeReference) IsArray() bool { return r != nil && r.Dimensions > 0 }

// Element is the element type of a collection or optional, nil otherwise.
func (r *TypeReference) Element() *TypeReference {
	if r == nil || (r.Container != ContainerCollection && r.Container != ContainerOptional) {
		return nil
	}
	if len(r.TypeArgs) == 0 {
		return nil
	}
	return r.TypeArgs[0]
}

// Key is the key type of a map.
func (r *TypeReference) Key() *TypeReference {
	if r == nil || r.Container != ContainerMap || len(r.TypeArgs) < 1 {
		return nil
	}
	return r.TypeArgs[0]
}

// Value is the value type of a map.
func (r *TypeReference) Value() *TypeReference {
	if r == nil || r.Container != ContainerMap || len(r.TypeArgs) < 2 {
		return nil
	}
	return r.TypeArgs[1]
}

// Targets returns the types a structural walk descends into. Containers are
// replaced by their element, key and value types; primitives and unbounded
// wildcards yield nothing.
func (r *TypeReference) Targets() []*TypeReference {
	if r == nil || r.Primitive || r.Name == "" {
		return nil
	}
	switch r.Container {
	case ContainerCollection, ContainerOptional:
		return r.Element().Targets()
	case ContainerMap:
		return append(r.Key().Targets(), r.Value().Targets()...)
	}
	return []*TypeReference{r}
}

// Qualified renders the reference with qualified names, type arguments and
// array dimensions.
func (r *TypeReference) Qualified() string {
	if r == nil {
		return ""
	}
	if r.Wildcard && r.Name == "" {
		return "?"
	}
	var b strings.Builder
	name := r.QualifiedName
	if name == "" {
		name = r.Name
	}
	b.WriteString(name)
	if len(r.TypeArgs) > 0 {
		b.WriteByte('<')
		for i, arg := range r.TypeArgs {
			if i > 0 {
				b.WriteByte(',')
			}
			b.WriteString(arg.Qualified())
		}
		b.WriteByte('>')
	}
	for i := 0; i < r.Dimensions; i++ {
		b.WriteString("[]")
	}
	return b.String()
}

type typeSets struct {
	collections map[string]bool
	maps        map[string]bool
	optionals   map[string]bool
}

func newTypeSets(collections, maps, optionals []string) typeSets {
	toSet := func(list []string) map[string]bool {
		out := make(map[string]bool, len(list))
		for _, name := range list {
			out[parser.SimpleName(strings.TrimSpace(name))] = true
		}
		return out
	}
	return typeSets{
		collections: toSet(collections),
		maps:        toSet(maps),
		optionals:   toSet(optionals),
	}
}

func (s typeSets) classify(name string) ContainerKind {
	simple := parser.SimpleName(name)
	switch {
	case s.maps[simple]:
		return ContainerMap
	case s.collections[simple]:
		return ContainerCollection
	case s.optionals[simple]:
		return ContainerOptional
	}
	return ContainerNone
}

// splitTypeText breaks normalized type text into its erased name, the raw type
// argument texts and the array dimension count.
func splitTypeText(text string) (name string, args []string, dims int) {
	for strings.HasSuffix(text, "[]") {
		dims++
		text = strings.TrimSuffix(text, "[]")
	}
	if strings.HasSuffix(text, "...") {
		dims++
		text = strings.TrimSuffix(text, "...")
		for strings.HasSuffix(text, "[]") {
			dims++
			text = strings.TrimSuffix(text, "[]")
		}
	}

	open := strings.IndexByte(text, '<')
	if open < 0 {
		return text, nil, dims
	}
	name = text[:open]
	closeIdx := strings.LastIndexByte(text, '>')
	if closeIdx < open {
		return name, nil, dims
	}
	// Qualified inner types after the arguments (Outer<T>.Inner) keep their tail.
	if tail := text[closeIdx+1:]; strings.HasPrefix(tail, ".") {
		name += tail
	}

	inner := text[open+1 : closeIdx]
	depth, start := 0, 0
	for i, r := range inner {
		switch r {
		case '<':
			depth++
		case '>':
			depth--
		case ',':
			if depth == 0 {
				args = append(args, inner[start:i])
				start = i + 1
			}
		}
	}
	if start < len(inner) {
		args = append(args, inner[start:])
	}
	return name, args, dims
}
