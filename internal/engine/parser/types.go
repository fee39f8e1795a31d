package parser

import (
	"time"
)

type File struct {
	Path     string
	Package  string
	Imports  []Import
	Types    []*Declaration // top-level type declarations in source order
	Hash     uint64
	ParsedAt time.Time
}

type Import struct {
	Path     string // com.acme.Order or com.acme for wildcard imports
	Static   bool
	Wildcard bool
	Location Location
}

type DeclarationKind string

const (
	KindClass          DeclarationKind = "class"
	KindInterface      DeclarationKind = "interface"
	KindEnum           DeclarationKind = "enum"
	KindRecord         DeclarationKind = "record"
	KindAnnotationType DeclarationKind = "annotation"
	KindField          DeclarationKind = "field"
	KindMethod         DeclarationKind = "method"
	KindConstructor    DeclarationKind = "constructor"
	KindParameter      DeclarationKind = "parameter"
	KindLocal          DeclarationKind = "local"
)

// IsType reports whether the kind names a type declaration.
func (k DeclarationKind) IsType() bool {
	switch k {
	case KindClass, KindInterface, KindEnum, KindRecord, KindAnnotationType:
		return true
	}
	return false
}

type Location struct {
	File   string
	Line   int
	Column int
}

type Span struct {
	StartLine int
	EndLine   int
}

func (s Span) Contains(line int) bool {
	return line >= s.StartLine && line <= s.EndLine
}

// Annotation is kept as written; interpretation happens at read time.
type Annotation struct {
	Name string // simple name without '@'
	Args string // raw argument text without the parentheses
}

type Modifiers struct {
	Static   bool
	Final    bool
	Abstract bool
	Default  bool
}

// Declaration is a named project entity. Declarations are immutable once the
// index publishes them.
type Declaration struct {
	Kind          DeclarationKind
	Name          string
	QualifiedName string
	Package       string
	File          string
	Span          Span
	Location      Location
	Visibility    string // public, protected, private or package
	Modifiers     Modifiers
	Annotations   []Annotation
	TypeText      string // field/parameter type or method return type
	Owner         string // qualified name of the enclosing declaration

	// Type declarations.
	SuperClass    string
	Interfaces    []string
	Fields        []*Declaration
	Methods       []*Declaration // methods and constructors in source order
	Nested        []*Declaration
	EnumConstants []string

	// Methods and constructors.
	Params  []*Declaration
	Locals  []Local
	Calls   []CallSite
	HasBody bool
}

// HasAnnotation reports whether an annotation with the simple name is present.
func (d *Declaration) HasAnnotation(name string) bool {
	for _, a := range d.Annotations {
		if a.Name == name {
			return true
		}
	}
	return false
}

// Field returns the declared field with the given name, or nil.
func (d *Declaration) Field(name string) *Declaration {
	for _, f := range d.Fields {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// MethodsNamed returns the methods and constructors sharing a simple name.
func (d *Declaration) MethodsNamed(name string) []*Declaration {
	var out []*Declaration
	for _, m := range d.Methods {
		if m.Name == name {
			out = append(out, m)
		}
	}
	return out
}

// Local is a variable declared inside a method body. It is visible from Line
// through ScopeEnd inclusive.
type Local struct {
	Name     string
	TypeText string
	Line     int
	ScopeEnd int
}

type ReceiverKind string

const (
	ReceiverIdent ReceiverKind = "ident"
	ReceiverThis  ReceiverKind = "this"
	ReceiverSuper ReceiverKind = "super"
	ReceiverField ReceiverKind = "field"
	ReceiverCall  ReceiverKind = "call"
	ReceiverTyped ReceiverKind = "typed" // new T(...) or a cast carry their type
	ReceiverExpr  ReceiverKind = "expr"  // anything else, never resolvable
)

type ReceiverPart struct {
	Kind     ReceiverKind
	Name     string
	TypeText string
	ArgCount int
}

// CallSite is a method invocation inside a method body. An empty Receiver
// means an unqualified call on the current instance.
type CallSite struct {
	Name     string
	ArgCount int
	Receiver []ReceiverPart
	Location Location
	Text     string
}
