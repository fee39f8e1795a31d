package callchain

import (
	"codelens/internal/engine/parser"
)

type TerminalKind string

const (
	TerminalCycle         TerminalKind = "cycle"
	TerminalDepthExceeded TerminalKind = "depth_exceeded"
	TerminalExternal      TerminalKind = "external"
)

// CallNode is one call site in a traced chain. The root describes the traced
// method itself and has depth 0.
type CallNode struct {
	Caller            string       `json:"caller,omitempty"`
	Callee            string       `json:"callee"`
	CalleeClass       string       `json:"calleeClass,omitempty"`
	CalleeMethod      string       `json:"calleeMethod,omitempty"`
	Call              string       `json:"call,omitempty"`
	File              string       `json:"file,omitempty"`
	Line              int          `json:"line,omitempty"`
	Depth             int          `json:"depth"`
	BoundaryHit       bool         `json:"boundaryHit"`
	Unresolved        bool         `json:"unresolved,omitempty"`
	Reason            string       `json:"reason,omitempty"`
	Terminal          TerminalKind `json:"terminal,omitempty"`
	ViaImplementation string       `json:"viaImplementation,omitempty"`
	Stereotype        string       `json:"stereotype,omitempty"`
	Children          []*CallNode  `json:"children,omitempty"`

	Declaration *parser.Declaration `json:"-"`
}

type Result struct {
	Root             *CallNode `json:"root"`
	MaxDepth         int       `json:"maxDepth"`
	BoundaryPatterns []string  `json:"boundaryPatterns"`
	Nodes            int       `json:"nodes"`
	BoundaryHits     int       `json:"boundaryHits"`
	Unresolved       int       `json:"unresolved"`
}

// Walk visits every node depth-first in source order.
func (n *CallNode) Walk(fn func(*CallNode)) {
	if n == nil {
		return
	}
	fn(n)
	for _, c := range n.Children {
		c.Walk(fn)
	}
}
