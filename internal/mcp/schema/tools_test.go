package schema

import (
	"codelens/internal/core/ports"
	"reflect"
	"testing"
)

func TestBuildToolDefinitions(t *testing.T) {
	defs, err := BuildToolDefinitions(nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(defs) != 1 || defs[0].Name != "codelens" {
		t.Fatalf("expected the single codelens tool, got %+v", defs)
	}
	if len(defs[0].Operations) != len(ports.Operations) {
		t.Fatalf("expected every operation, got %d", len(defs[0].Operations))
	}

	limited, err := BuildToolDefinitions([]string{ports.OpIndexStatus})
	if err != nil {
		t.Fatal(err)
	}
	enum := limited[0].InputSchema["properties"].(map[string]any)["operation"].(map[string]any)["enum"]
	if !reflect.DeepEqual(enum, []string{ports.OpIndexStatus}) {
		t.Fatalf("expected the allowlist to narrow the enum, got %v", enum)
	}
}
