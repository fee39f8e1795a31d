package typegraph

import (
	"codelens/internal/engine/annotations"
	"codelens/internal/engine/parser"
	"codelens/internal/engine/resolver"
)

type TerminalKind string

const (
	TerminalCycle         TerminalKind = "cycle"
	TerminalDepthExceeded TerminalKind = "depth_exceeded"
	TerminalExternal      TerminalKind = "external"
)

// Terminal stops expansion of one field target.
type Terminal struct {
	Kind      TerminalKind `json:"kind"`
	ClassName string       `json:"className"`
}

// Child is exactly one of a nested node or a terminal marker.
type Child struct {
	Node     *TypeNode `json:"node,omitempty"`
	Terminal *Terminal `json:"terminal,omitempty"`
}

type FieldEntry struct {
	Name         string                  `json:"name"`
	TypeText     string                  `json:"typeText"`
	ResolvedType string                  `json:"resolvedType"`
	Container    resolver.ContainerKind  `json:"container,omitempty"`
	Array        bool                    `json:"array,omitempty"`
	Inherited    bool                    `json:"inherited,omitempty"`
	DeclaredIn   string                  `json:"declaredIn,omitempty"`
	Line         int                     `json:"line"`
	Annotations  []annotations.Info      `json:"annotations,omitempty"`
	Type         *resolver.TypeReference `json:"-"`
	Children     []Child                 `json:"children,omitempty"`
}

// TypeNode is one expanded project type. Trees are built per call and never
// shared.
type TypeNode struct {
	ClassName     string                 `json:"className"`
	SimpleName    string                 `json:"simpleName"`
	Kind          parser.DeclarationKind `json:"kind"`
	File          string                 `json:"file"`
	Line          int                    `json:"line"`
	Depth         int                    `json:"depth"`
	Stereotype    string                 `json:"stereotype,omitempty"`
	Annotations   []annotations.Info     `json:"annotations,omitempty"`
	EnumConstants []string               `json:"enumConstants,omitempty"`
	Fields        []FieldEntry           `json:"fields"`
}

// Result wraps the root with counts over the whole tree.
type Result struct {
	Root          *TypeNode `json:"root"`
	MaxDepth      int       `json:"maxDepth"`
	Nodes         int       `json:"nodes"`
	Cycles        int       `json:"cycles"`
	DepthExceeded int       `json:"depthExceeded"`
	External      int       `json:"external"`
}
