package openapi

import (
	"codelens/internal/core/ports"
	"codelens/internal/mcp/contracts"

	"github.com/getkin/kin-openapi/openapi3"
)

const maxDepthLimit = 64

type operationSpec struct {
	summary string
	params  func() *openapi3.Schema
}

var operationSpecs = map[string]operationSpec{
	ports.OpResolveSymbol: {
		summary: "Resolve a symbol name to its declared type at a point in a source file.",
		params: func() *openapi3.Schema {
			s := openapi3.NewObjectSchema().
				WithProperty("symbolName", nonEmptyString("Variable, parameter, field or type name.")).
				WithProperty("contextFile", nonEmptyString("Source file the name is used in, absolute or relative to the project root.")).
				WithProperty("line", openapi3.NewIntegerSchema().WithMin(1)).
				WithoutAdditionalProperties()
			s.Required = []string{"symbolName", "contextFile"}
			return s
		},
	},
	ports.OpTypeStructure: {
		summary: "Expand the fields of a class into a type tree.",
		params: func() *openapi3.Schema {
			s := openapi3.NewObjectSchema().
				WithProperty("className", nonEmptyString("Simple or qualified class name.")).
				WithProperty("maxDepth", depth()).
				WithProperty("includeAnnotations", openapi3.NewBoolSchema()).
				WithoutAdditionalProperties()
			s.Required = []string{"className"}
			return s
		},
	},
	ports.OpCallChain: {
		summary: "Trace the calls made by a method down to framework boundaries.",
		params: func() *openapi3.Schema {
			s := openapi3.NewObjectSchema().
				WithProperty("className", nonEmptyString("Simple or qualified class name.")).
				WithProperty("methodName", nonEmptyString("Method name or signature such as save(Order).")).
				WithProperty("maxDepth", depth()).
				WithProperty("boundaryPatterns", openapi3.NewArraySchema().WithItems(nonEmptyString("Package glob."))).
				WithoutAdditionalProperties()
			s.Required = []string{"className", "methodName"}
			return s
		},
	},
	ports.OpAnalyzeBranches: {
		summary: "Count the decision points of a standalone method body.",
		params: func() *openapi3.Schema {
			source := openapi3.NewStringSchema()
			source.Description = "Complete method or constructor source."
			s := openapi3.NewObjectSchema().
				WithProperty("methodSource", source).
				WithoutAdditionalProperties()
			s.Required = []string{"methodSource"}
			return s
		},
	},
	ports.OpIndexStatus: {
		summary: "Report index size and per-file parse failures.",
		params: func() *openapi3.Schema {
			return openapi3.NewObjectSchema().WithoutAdditionalProperties()
		},
	},
	ports.OpReindex: {
		summary: "Re-index the given files, or the whole project when none are given.",
		params: func() *openapi3.Schema {
			return openapi3.NewObjectSchema().
				WithProperty("paths", openapi3.NewArraySchema().WithItems(nonEmptyString("Source file path."))).
				WithoutAdditionalProperties()
		},
	},
}

func nonEmptyString(description string) *openapi3.Schema {
	s := openapi3.NewStringSchema().WithMinLength(1)
	s.Description = description
	return s
}

func depth() *openapi3.Schema {
	return openapi3.NewIntegerSchema().WithMin(1).WithMax(maxDepthLimit)
}

// ParamsSchema returns the params schema of operation, or nil when the
// operation is unknown.
func ParamsSchema(operation string) *openapi3.Schema {
	spec, ok := operationSpecs[operation]
	if !ok {
		return nil
	}
	return spec.params()
}

// Document describes every operation as a POST under /operations.
func Document() *openapi3.T {
	doc := &openapi3.T{
		OpenAPI: "3.0.3",
		Info: &openapi3.Info{
			Title:       "codelens engine",
			Description: "Operations of the " + contracts.ToolNameCodelens + " tool. Each request body is the params object of one protocol line.",
			Version:     contracts.ContractVersion,
		},
		Paths: openapi3.NewPaths(),
	}
	for _, name := range ports.Operations {
		spec := operationSpecs[name]
		op := &openapi3.Operation{
			OperationID: name,
			Summary:     spec.summary,
			RequestBody: &openapi3.RequestBodyRef{
				Value: openapi3.NewRequestBody().WithRequired(true).WithJSONSchema(spec.params()),
			},
			Responses: openapi3.NewResponses(
				openapi3.WithStatus(200, &openapi3.ResponseRef{Value: openapi3.NewResponse().WithDescription("Operation result envelope.")}),
			),
		}
		doc.Paths.Set("/operations/"+name, &openapi3.PathItem{Post: op})
	}
	return doc
}
