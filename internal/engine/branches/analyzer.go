package branches

import (
	"codelens/internal/core/errors"
	"codelens/internal/engine/parser"
	"fmt"
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

type Kind string

const (
	Conditional      Kind = "conditional"
	Loop             Kind = "loop"
	SwitchCase       Kind = "switch_case"
	ExceptionHandler Kind = "exception_handler"
)

type Span struct {
	StartLine int `json:"startLine"`
	EndLine   int `json:"endLine"`
}

// Branch is one decision point of a method body.
type Branch struct {
	Kind         Kind   `json:"kind"`
	Construct    string `json:"construct"`
	Span         Span   `json:"span"`
	PathCount    int    `json:"pathCount"`
	NestingLevel int    `json:"nestingLevel"`
	Condition    string `json:"condition,omitempty"`
}

type Result struct {
	Method               string   `json:"method"`
	Branches             []Branch `json:"branches"`
	CyclomaticComplexity int      `json:"cyclomaticComplexity"`
	MaxNestingDepth      int      `json:"maxNestingDepth"`
	MinimumTests         int      `json:"minimumTests"`
}

const (
	wrapperPrefix = "class __Wrapper__ {\n"
	wrapperSuffix = "\n}\n"
	// Lines added in front of the caller's text by the wrapper.
	wrapperLines = 1
)

// Analyzer computes branch metrics for standalone method source. It does not
// consult the project index.
type Analyzer struct {
	pool *parser.ParserPool
}

func NewAnalyzer(pool *parser.ParserPool) *Analyzer {
	return &Analyzer{pool: pool}
}

// Analyze parses methodSource inside a synthetic class and reports one
// Branch per if/else-if, non-default case label, loop and catch clause in
// source order. Lines are relative to methodSource.
func (a *Analyzer) Analyze(methodSource string) (*Result, error) {
	if strings.TrimSpace(methodSource) == "" {
		return nil, errors.New(errors.CodeUnparsableMethod, "method source is empty")
	}
	src := []byte(wrapperPrefix + methodSource + wrapperSuffix)
	tree := a.pool.Parse(src)
	if tree == nil {
		return nil, errors.New(errors.CodeUnparsableMethod, "method source could not be parsed")
	}
	defer tree.Close()

	root := tree.RootNode()
	if bad := parser.FirstError(root); bad != nil {
		line := int(bad.StartPosition().Row) + 1 - wrapperLines
		if line < 1 {
			line = 1
		}
		err := errors.New(errors.CodeUnparsableMethod, fmt.Sprintf("method source has a syntax error at line %d", line))
		return nil, errors.AddContext(err, errors.CtxLine, line)
	}

	methods := collectMethods(root, nil)
	switch len(methods) {
	case 0:
		return nil, errors.New(errors.CodeUnparsableMethod, "method source contains no method or constructor declaration")
	case 1:
	default:
		err := errors.New(errors.CodeUnparsableMethod, fmt.Sprintf("expected exactly one method, found %d", len(methods)))
		return nil, errors.AddContext(err, errors.CtxLine, int(methods[1].StartPosition().Row)+1-wrapperLines)
	}
	method := methods[0]

	w := &walker{src: src}
	w.walk(method.ChildByFieldName("body"), 0)

	res := &Result{
		Method:   w.text(method.ChildByFieldName("name")),
		Branches: w.branches,
	}
	if res.Branches == nil {
		res.Branches = []Branch{}
	}
	res.CyclomaticComplexity = 1 + len(res.Branches)
	res.MinimumTests = res.CyclomaticComplexity
	for _, b := range res.Branches {
		if b.NestingLevel > res.MaxNestingDepth {
			res.MaxNestingDepth = b.NestingLevel
		}
	}
	return res, nil
}

// collectMethods gathers method and constructor declarations without
// descending into their bodies, so local and anonymous classes do not count.
func collectMethods(node *sitter.Node, out []*sitter.Node) []*sitter.Node {
	if node == nil {
		return out
	}
	switch node.Kind() {
	case "method_declaration", "constructor_declaration", "compact_constructor_declaration":
		return append(out, node)
	}
	for i := uint(0); i < node.NamedChildCount(); i++ {
		out = collectMethods(node.NamedChild(i), out)
	}
	return out
}

var loopConstructs = map[string]string{
	"for_statement":          "for",
	"enhanced_for_statement": "enhanced_for",
	"while_statement":        "while",
	"do_statement":           "do",
}

type walker struct {
	src      []byte
	branches []Branch
}

func (w *walker) text(node *sitter.Node) string {
	if node == nil {
		return ""
	}
	return string(w.src[node.StartByte():node.EndByte()])
}

func (w *walker) span(node *sitter.Node) Span {
	return Span{
		StartLine: int(node.StartPosition().Row) + 1 - wrapperLines,
		EndLine:   int(node.EndPosition().Row) + 1 - wrapperLines,
	}
}

func (w *walker) add(kind Kind, construct string, node *sitter.Node, paths, level int, condition string) {
	w.branches = append(w.branches, Branch{
		Kind:         kind,
		Construct:    construct,
		Span:         w.span(node),
		PathCount:    paths,
		NestingLevel: level,
		Condition:    strings.Join(strings.Fields(condition), " "),
	})
}

func (w *walker) walk(node *sitter.Node, level int) {
	if node == nil {
		return
	}
	switch node.Kind() {
	case "if_statement":
		w.ifChain(node, level, "if")
		return
	case "switch_expression", "switch_statement":
		w.switchBlock(node, level)
		return
	case "catch_clause":
		caught := ""
		if param := parser.ChildOfKind(node, "catch_formal_parameter"); param != nil {
			caught = w.text(parser.ChildOfKind(param, "catch_type"))
		}
		w.add(ExceptionHandler, "catch", node, 2, level, caught)
		w.walk(node.ChildByFieldName("body"), level+1)
		return
	}
	if construct, ok := loopConstructs[node.Kind()]; ok {
		w.add(Loop, construct, node, 2, level, w.loopCondition(node))
		for i := uint(0); i < node.NamedChildCount(); i++ {
			w.walk(node.NamedChild(i), level+1)
		}
		return
	}
	for i := uint(0); i < node.NamedChildCount(); i++ {
		w.walk(node.NamedChild(i), level)
	}
}

// ifChain records an if and its else-if continuations at the same level.
func (w *walker) ifChain(node *sitter.Node, level int, construct string) {
	w.add(Conditional, construct, node, 2, level, trimParens(w.text(node.ChildByFieldName("condition"))))
	w.walk(node.ChildByFieldName("condition"), level+1)
	w.walk(node.ChildByFieldName("consequence"), level+1)

	alt := node.ChildByFieldName("alternative")
	if alt == nil {
		return
	}
	if alt.Kind() == "if_statement" {
		w.ifChain(alt, level, "else_if")
		return
	}
	w.walk(alt, level+1)
}

func (w *walker) switchBlock(node *sitter.Node, level int) {
	w.walk(node.ChildByFieldName("condition"), level)
	body := node.ChildByFieldName("body")
	if body == nil {
		return
	}

	type arm struct {
		label *sitter.Node
		group *sitter.Node
	}
	var arms []arm
	var groups []*sitter.Node
	for i := uint(0); i < body.NamedChildCount(); i++ {
		group := body.NamedChild(i)
		switch group.Kind() {
		case "switch_block_statement_group", "switch_rule":
		default:
			continue
		}
		groups = append(groups, group)
		for _, label := range parser.ChildrenOfKind(group, "switch_label") {
			if !isDefaultLabel(w.text(label)) {
				arms = append(arms, arm{label: label, group: group})
			}
		}
	}

	paths := 1 + len(arms)
	next := 0
	for _, group := range groups {
		for next < len(arms) && arms[next].group == group {
			label := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(w.text(arms[next].label)), "case"))
			w.add(SwitchCase, "case", group, paths, level, label)
			next++
		}
		for i := uint(0); i < group.NamedChildCount(); i++ {
			child := group.NamedChild(i)
			if child.Kind() == "switch_label" {
				continue
			}
			w.walk(child, level+1)
		}
	}
}

func (w *walker) loopCondition(node *sitter.Node) string {
	if node.Kind() == "enhanced_for_statement" {
		return w.text(node.ChildByFieldName("name")) + " : " + w.text(node.ChildByFieldName("value"))
	}
	return trimParens(w.text(node.ChildByFieldName("condition")))
}

func isDefaultLabel(text string) bool {
	return strings.HasPrefix(strings.TrimSpace(text), "default")
}

func trimParens(value string) string {
	value = strings.TrimSpace(value)
	if strings.HasPrefix(value, "(") && strings.HasSuffix(value, ")") {
		value = value[1 : len(value)-1]
	}
	return strings.TrimSpace(value)
}
