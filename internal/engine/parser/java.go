package parser

import (
	"sort"
	"strings"
	"time"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

// JavaExtractor turns a Java syntax tree into the declaration model.
type JavaExtractor struct {
	engine *ExtractorEngine
}

func NewJavaExtractor() *JavaExtractor {
	x := &JavaExtractor{}
	x.engine = NewExtractorEngine(map[string]NodeHandler{
		"package_declaration":         x.handlePackage,
		"import_declaration":          x.handleImport,
		"class_declaration":           x.handleType,
		"interface_declaration":       x.handleType,
		"enum_declaration":            x.handleType,
		"record_declaration":          x.handleType,
		"annotation_type_declaration": x.handleType,
	})
	return x
}

func (x *JavaExtractor) Extract(root *sitter.Node, source []byte, filePath string) (*File, error) {
	file := &File{
		Path:     filePath,
		ParsedAt: time.Now(),
	}
	ctx := &ExtractionContext{Source: source, File: file}
	x.engine.Walk(ctx, root)
	return file, nil
}

func (x *JavaExtractor) handlePackage(ctx *ExtractionContext, node *sitter.Node) bool {
	name := ctx.ChildText(node, "scoped_identifier")
	if name == "" {
		name = ctx.ChildText(node, "identifier")
	}
	ctx.File.Package = NormalizeTypeText(name)
	return true
}

func (x *JavaExtractor) handleImport(ctx *ExtractionContext, node *sitter.Node) bool {
	path := ctx.ChildText(node, "scoped_identifier")
	if path == "" {
		path = ctx.ChildText(node, "identifier")
	}
	if path == "" {
		return true
	}
	ctx.File.Imports = append(ctx.File.Imports, Import{
		Path:     NormalizeTypeText(path),
		Static:   ChildOfKind(node, "static") != nil,
		Wildcard: ChildOfKind(node, "asterisk") != nil,
		Location: ctx.Location(node),
	})
	return true
}

func (x *JavaExtractor) handleType(ctx *ExtractionContext, node *sitter.Node) bool {
	if decl := x.extractType(ctx, node, ctx.File.Package, false); decl != nil {
		ctx.File.Types = append(ctx.File.Types, decl)
	}
	return true
}

var typeKinds = map[string]DeclarationKind{
	"class_declaration":           KindClass,
	"interface_declaration":       KindInterface,
	"enum_declaration":            KindEnum,
	"record_declaration":          KindRecord,
	"annotation_type_declaration": KindAnnotationType,
}

func (x *JavaExtractor) extractType(ctx *ExtractionContext, node *sitter.Node, prefix string, inInterface bool) *Declaration {
	name := ctx.FieldText(node, "name")
	if name == "" {
		return nil
	}
	kind := typeKinds[node.Kind()]
	mods, annotations, keywords := x.modifiers(ctx, ChildOfKind(node, "modifiers"))
	if kind == KindInterface || kind == KindAnnotationType {
		mods.Abstract = true
	}
	decl := &Declaration{
		Kind:          kind,
		Name:          name,
		QualifiedName: JoinQualified(prefix, name),
		Package:       ctx.File.Package,
		File:          ctx.File.Path,
		Span:          ctx.Span(node),
		Location:      ctx.Location(node.ChildByFieldName("name")),
		Visibility:    visibilityOf(keywords, inInterface),
		Modifiers:     mods,
		Annotations:   annotations,
		Owner:         prefix,
	}

	if sc := ChildOfKind(node, "superclass"); sc != nil && sc.NamedChildCount() > 0 {
		decl.SuperClass = NormalizeTypeText(ctx.Text(sc.NamedChild(sc.NamedChildCount() - 1)))
	}
	for _, kindName := range []string{"super_interfaces", "extends_interfaces"} {
		if list := ChildOfKind(ChildOfKind(node, kindName), "type_list"); list != nil {
			for i := uint(0); i < list.NamedChildCount(); i++ {
				decl.Interfaces = append(decl.Interfaces, NormalizeTypeText(ctx.Text(list.NamedChild(i))))
			}
		}
	}

	if kind == KindRecord {
		if params := node.ChildByFieldName("parameters"); params != nil {
			for _, component := range x.parameters(ctx, params, decl.QualifiedName) {
				component.Kind = KindField
				component.Owner = decl.QualifiedName
				component.QualifiedName = decl.QualifiedName + "#" + component.Name
				component.Visibility = "private"
				component.Modifiers.Final = true
				decl.Fields = append(decl.Fields, component)
			}
		}
	}

	if body := node.ChildByFieldName("body"); body != nil {
		x.extractMembers(ctx, body, decl)
	}
	return decl
}

func (x *JavaExtractor) extractMembers(ctx *ExtractionContext, body *sitter.Node, owner *Declaration) {
	isInterface := owner.Kind == KindInterface || owner.Kind == KindAnnotationType
	for i := uint(0); i < body.ChildCount(); i++ {
		child := body.Child(i)
		if child == nil {
			continue
		}
		switch child.Kind() {
		case "field_declaration":
			owner.Fields = append(owner.Fields, x.fields(ctx, child, owner, isInterface)...)
		case "constant_declaration":
			owner.Fields = append(owner.Fields, x.fields(ctx, child, owner, true)...)
		case "method_declaration", "constructor_declaration":
			owner.Methods = append(owner.Methods, x.method(ctx, child, owner, isInterface))
		case "enum_constant":
			owner.EnumConstants = append(owner.EnumConstants, ctx.FieldText(child, "name"))
		case "enum_body_declarations":
			x.extractMembers(ctx, child, owner)
		default:
			if _, ok := typeKinds[child.Kind()]; ok {
				if nested := x.extractType(ctx, child, owner.QualifiedName, isInterface); nested != nil {
					owner.Nested = append(owner.Nested, nested)
				}
			}
		}
	}
}

func (x *JavaExtractor) fields(ctx *ExtractionContext, node *sitter.Node, owner *Declaration, implicitStatic bool) []*Declaration {
	mods, annotations, keywords := x.modifiers(ctx, ChildOfKind(node, "modifiers"))
	if implicitStatic {
		mods.Static = true
		mods.Final = true
	}
	typeText := NormalizeTypeText(ctx.FieldText(node, "type"))

	var out []*Declaration
	for _, declarator := range ChildrenOfKind(node, "variable_declarator") {
		nameNode := declarator.ChildByFieldName("name")
		name := ctx.Text(nameNode)
		if name == "" {
			continue
		}
		fieldType := typeText
		if dims := ChildOfKind(declarator, "dimensions"); dims != nil {
			fieldType += NormalizeTypeText(ctx.Text(dims))
		}
		out = append(out, &Declaration{
			Kind:          KindField,
			Name:          name,
			QualifiedName: owner.QualifiedName + "#" + name,
			Package:       owner.Package,
			File:          ctx.File.Path,
			Span:          ctx.Span(node),
			Location:      ctx.Location(nameNode),
			Visibility:    visibilityOf(keywords, implicitStatic && owner.Kind == KindInterface),
			Modifiers:     mods,
			Annotations:   annotations,
			TypeText:      fieldType,
			Owner:         owner.QualifiedName,
		})
	}
	return out
}

func (x *JavaExtractor) method(ctx *ExtractionContext, node *sitter.Node, owner *Declaration, inInterface bool) *Declaration {
	mods, annotations, keywords := x.modifiers(ctx, ChildOfKind(node, "modifiers"))
	nameNode := node.ChildByFieldName("name")
	decl := &Declaration{
		Kind:        KindMethod,
		Name:        ctx.Text(nameNode),
		Package:     owner.Package,
		File:        ctx.File.Path,
		Span:        ctx.Span(node),
		Location:    ctx.Location(nameNode),
		Visibility:  visibilityOf(keywords, inInterface),
		Modifiers:   mods,
		Annotations: annotations,
		Owner:       owner.QualifiedName,
	}
	if node.Kind() == "constructor_declaration" {
		decl.Kind = KindConstructor
		decl.TypeText = owner.Name
	} else {
		decl.TypeText = NormalizeTypeText(ctx.FieldText(node, "type"))
		if dims := ChildOfKind(node, "dimensions"); dims != nil {
			decl.TypeText += NormalizeTypeText(ctx.Text(dims))
		}
	}

	params := x.parameters(ctx, node.ChildByFieldName("parameters"), "")
	decl.QualifiedName = owner.QualifiedName + "#" + MethodSignature(decl.Name, params)
	for _, p := range params {
		p.Owner = decl.QualifiedName
		p.QualifiedName = decl.QualifiedName + "/" + p.Name
	}
	decl.Params = params

	body := node.ChildByFieldName("body")
	decl.HasBody = body != nil
	if inInterface && !decl.HasBody && !mods.Static {
		decl.Modifiers.Abstract = true
	}
	if body != nil {
		scan := &bodyScan{ctx: ctx}
		scan.walk(body, int(body.EndPosition().Row)+1)
		sort.SliceStable(scan.calls, func(i, j int) bool {
			a, b := scan.calls[i].Location, scan.calls[j].Location
			if a.Line != b.Line {
				return a.Line < b.Line
			}
			return a.Column < b.Column
		})
		decl.Locals = scan.locals
		decl.Calls = scan.calls
	}
	return decl
}

func (x *JavaExtractor) parameters(ctx *ExtractionContext, node *sitter.Node, owner string) []*Declaration {
	if node == nil {
		return nil
	}
	var out []*Declaration
	for i := uint(0); i < node.NamedChildCount(); i++ {
		child := node.NamedChild(i)
		var typeText string
		var nameNode *sitter.Node
		switch child.Kind() {
		case "formal_parameter":
			typeText = NormalizeTypeText(ctx.FieldText(child, "type"))
			nameNode = child.ChildByFieldName("name")
			if dims := ChildOfKind(child, "dimensions"); dims != nil {
				typeText += NormalizeTypeText(ctx.Text(dims))
			}
		case "spread_parameter":
			for j := uint(0); j < child.NamedChildCount(); j++ {
				part := child.NamedChild(j)
				switch part.Kind() {
				case "modifiers":
				case "variable_declarator":
					nameNode = part.ChildByFieldName("name")
				default:
					if typeText == "" {
						typeText = NormalizeTypeText(ctx.Text(part)) + "[]"
					}
				}
			}
		default:
			continue
		}
		if nameNode == nil {
			continue
		}
		mods, annotations, _ := x.modifiers(ctx, ChildOfKind(child, "modifiers"))
		out = append(out, &Declaration{
			Kind:        KindParameter,
			Name:        ctx.Text(nameNode),
			Package:     ctx.File.Package,
			File:        ctx.File.Path,
			Span:        ctx.Span(child),
			Location:    ctx.Location(nameNode),
			Visibility:  "package",
			Modifiers:   mods,
			Annotations: annotations,
			TypeText:    typeText,
			Owner:       owner,
		})
	}
	return out
}

func (x *JavaExtractor) modifiers(ctx *ExtractionContext, node *sitter.Node) (Modifiers, []Annotation, map[string]bool) {
	keywords := make(map[string]bool)
	var annotations []Annotation
	if node == nil {
		return Modifiers{}, nil, keywords
	}
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		switch child.Kind() {
		case "marker_annotation":
			annotations = append(annotations, Annotation{Name: SimpleName(ctx.FieldText(child, "name"))})
		case "annotation":
			annotations = append(annotations, Annotation{
				Name: SimpleName(ctx.FieldText(child, "name")),
				Args: trimParens(ctx.FieldText(child, "arguments")),
			})
		default:
			keywords[child.Kind()] = true
		}
	}
	return Modifiers{
		Static:   keywords["static"],
		Final:    keywords["final"],
		Abstract: keywords["abstract"],
		Default:  keywords["default"],
	}, annotations, keywords
}

// bodyScan collects locals and call sites from a method body.
type bodyScan struct {
	ctx    *ExtractionContext
	locals []Local
	calls  []CallSite
}

var scopeKinds = map[string]bool{
	"block":                        true,
	"constructor_body":             true,
	"for_statement":                true,
	"enhanced_for_statement":       true,
	"switch_block":                 true,
	"catch_clause":                 true,
	"try_with_resources_statement": true,
	"lambda_expression":            true,
}

func (s *bodyScan) walk(node *sitter.Node, scopeEnd int) {
	if node == nil {
		return
	}
	if scopeKinds[node.Kind()] {
		scopeEnd = int(node.EndPosition().Row) + 1
	}

	switch node.Kind() {
	case "local_variable_declaration":
		declared := NormalizeTypeText(s.ctx.FieldText(node, "type"))
		for _, declarator := range ChildrenOfKind(node, "variable_declarator") {
			typeText := declared
			if typeText == "var" {
				typeText = inferredType(s.ctx, declarator.ChildByFieldName("value"))
			}
			s.addLocal(declarator.ChildByFieldName("name"), typeText, scopeEnd)
		}
	case "enhanced_for_statement":
		s.addLocal(node.ChildByFieldName("name"), NormalizeTypeText(s.ctx.FieldText(node, "type")), scopeEnd)
	case "catch_clause":
		if param := ChildOfKind(node, "catch_formal_parameter"); param != nil {
			caught := s.ctx.ChildText(param, "catch_type")
			if idx := strings.Index(caught, "|"); idx >= 0 {
				caught = caught[:idx]
			}
			s.addLocal(param.ChildByFieldName("name"), NormalizeTypeText(caught), scopeEnd)
		}
	case "resource":
		if typeNode := node.ChildByFieldName("type"); typeNode != nil {
			s.addLocal(node.ChildByFieldName("name"), NormalizeTypeText(s.ctx.Text(typeNode)), scopeEnd)
		}
	case "method_invocation":
		s.calls = append(s.calls, s.callSite(node))
	}

	for i := uint(0); i < node.ChildCount(); i++ {
		s.walk(node.Child(i), scopeEnd)
	}
}

func (s *bodyScan) addLocal(nameNode *sitter.Node, typeText string, scopeEnd int) {
	if nameNode == nil {
		return
	}
	s.locals = append(s.locals, Local{
		Name:     s.ctx.Text(nameNode),
		TypeText: typeText,
		Line:     int(nameNode.StartPosition().Row) + 1,
		ScopeEnd: scopeEnd,
	})
}

func (s *bodyScan) callSite(node *sitter.Node) CallSite {
	nameNode := node.ChildByFieldName("name")
	call := CallSite{
		Name:     s.ctx.Text(nameNode),
		ArgCount: argumentCount(node.ChildByFieldName("arguments")),
		Location: s.ctx.Location(nameNode),
		Text:     s.ctx.Text(node),
	}
	if object := node.ChildByFieldName("object"); object != nil {
		call.Receiver = receiverParts(s.ctx, object)
	}
	return call
}

func receiverParts(ctx *ExtractionContext, node *sitter.Node) []ReceiverPart {
	switch node.Kind() {
	case "identifier":
		return []ReceiverPart{{Kind: ReceiverIdent, Name: ctx.Text(node)}}
	case "this":
		return []ReceiverPart{{Kind: ReceiverThis}}
	case "super":
		return []ReceiverPart{{Kind: ReceiverSuper}}
	case "field_access":
		parts := receiverParts(ctx, node.ChildByFieldName("object"))
		return append(parts, ReceiverPart{Kind: ReceiverField, Name: ctx.FieldText(node, "field")})
	case "method_invocation":
		var parts []ReceiverPart
		if object := node.ChildByFieldName("object"); object != nil {
			parts = receiverParts(ctx, object)
		}
		return append(parts, ReceiverPart{
			Kind:     ReceiverCall,
			Name:     ctx.FieldText(node, "name"),
			ArgCount: argumentCount(node.ChildByFieldName("arguments")),
		})
	case "object_creation_expression", "cast_expression":
		return []ReceiverPart{{Kind: ReceiverTyped, TypeText: NormalizeTypeText(ctx.FieldText(node, "type"))}}
	case "parenthesized_expression":
		if node.NamedChildCount() > 0 {
			return receiverParts(ctx, node.NamedChild(0))
		}
	}
	return []ReceiverPart{{Kind: ReceiverExpr, Name: ctx.Text(node)}}
}

func inferredType(ctx *ExtractionContext, value *sitter.Node) string {
	if value == nil {
		return "var"
	}
	switch value.Kind() {
	case "object_creation_expression", "cast_expression":
		return NormalizeTypeText(ctx.FieldText(value, "type"))
	}
	return "var"
}

func argumentCount(args *sitter.Node) int {
	if args == nil {
		return 0
	}
	count := 0
	for i := uint(0); i < args.NamedChildCount(); i++ {
		switch args.NamedChild(i).Kind() {
		case "line_comment", "block_comment":
			continue
		}
		count++
	}
	return count
}
