package openapi

import (
	"codelens/internal/core/ports"
	"context"
	"encoding/json"
	"reflect"
	"strings"
	"testing"

	"github.com/getkin/kin-openapi/openapi3"
)

func TestDocument_ValidatesAndConverts(t *testing.T) {
	doc := Document()
	if err := doc.Validate(context.Background()); err != nil {
		t.Fatalf("generated document is invalid: %v", err)
	}

	data, err := json.Marshal(doc)
	if err != nil {
		t.Fatal(err)
	}
	spec := mustLoadSpecFromData(t, data)

	ops, err := Convert(spec)
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	if len(ops) != len(ports.Operations) {
		t.Fatalf("expected %d operations, got %d", len(ports.Operations), len(ops))
	}
	for _, op := range ops {
		if op.Summary == "" || op.InputSchema["type"] != "object" {
			t.Fatalf("incomplete descriptor %+v", op)
		}
	}
}

func TestParamsSchema(t *testing.T) {
	cases := []struct {
		operation string
		params    string
		valid     bool
	}{
		{ports.OpResolveSymbol, `{"symbolName":"order","contextFile":"A.java","line":3}`, true},
		{ports.OpResolveSymbol, `{"symbolName":"order"}`, false},
		{ports.OpResolveSymbol, `{"symbolName":"order","contextFile":"A.java","line":0}`, false},
		{ports.OpTypeStructure, `{"className":"Order","maxDepth":3,"includeAnnotations":true}`, true},
		{ports.OpTypeStructure, `{"className":"Order","depth":3}`, false},
		{ports.OpCallChain, `{"className":"A","methodName":"run","boundaryPatterns":["java.**"]}`, true},
		{ports.OpCallChain, `{"className":"A","methodName":"run","boundaryPatterns":"java.**"}`, false},
		{ports.OpAnalyzeBranches, `{"methodSource":""}`, true},
		{ports.OpIndexStatus, `{}`, true},
		{ports.OpReindex, `{"paths":["src/A.java"]}`, true},
	}
	for _, tc := range cases {
		t.Run(tc.operation, func(t *testing.T) {
			var value any
			if err := json.Unmarshal([]byte(tc.params), &value); err != nil {
				t.Fatal(err)
			}
			err := ParamsSchema(tc.operation).VisitJSON(value)
			if tc.valid && err != nil {
				t.Fatalf("expected %s to be valid, got %v", tc.params, err)
			}
			if !tc.valid && err == nil {
				t.Fatalf("expected %s to be rejected", tc.params)
			}
		})
	}
	if ParamsSchema("drop_tables") != nil {
		t.Fatal("expected nil schema for an unknown operation")
	}
}

func TestConvert_InvalidSchema(t *testing.T) {
	spec := mustLoadSpecFromData(t, []byte(`
openapi: 3.0.3
info:
  title: codelens
  version: "1.0"
paths:
  /operations/reindex:
    post:
      operationId: reindex
      requestBody:
        required: true
        content:
          application/json:
            schema:
              type: array
              items:
                type: string
      responses:
        "200":
          description: ok
`))

	_, err := Convert(spec)
	if err == nil || !strings.Contains(err.Error(), "unsupported schema type") {
		t.Fatalf("expected unsupported schema type, got %v", err)
	}
}

func TestConvert_MissingOperationID(t *testing.T) {
	spec := mustLoadSpecFromData(t, []byte(`
openapi: 3.0.3
info:
  title: codelens
  version: "1.0"
paths:
  /operations/index_status:
    get:
      summary: Index status
      responses:
        "200":
          description: ok
`))

	_, err := Convert(spec)
	if err == nil || !strings.Contains(err.Error(), "missing operationId") {
		t.Fatalf("expected missing operationId, got %v", err)
	}
}

func TestApplyAllowlist(t *testing.T) {
	ops := []OperationDescriptor{
		{ID: ports.OpReindex},
		{ID: ports.OpCallChain},
		{ID: ports.OpIndexStatus},
	}

	filtered := ApplyAllowlist(ops, []string{" INDEX_STATUS", "build_call_chain"})
	ids := make([]string, 0, len(filtered))
	for _, op := range filtered {
		ids = append(ids, op.ID)
	}

	expected := []string{ports.OpCallChain, ports.OpIndexStatus}
	if !reflect.DeepEqual(ids, expected) {
		t.Fatalf("expected ids %v, got %v", expected, ids)
	}
	if got := ApplyAllowlist(ops, nil); len(got) != 3 {
		t.Fatalf("expected every operation without an allowlist, got %v", got)
	}
}

func mustLoadSpecFromData(t *testing.T, data []byte) *openapi3.T {
	t.Helper()
	loader := openapi3.NewLoader()
	spec, err := loader.LoadFromData(data)
	if err != nil {
		t.Fatalf("load spec from data: %v", err)
	}
	if err := spec.Validate(loader.Context); err != nil {
		t.Fatalf("validate spec: %v", err)
	}
	return spec
}
