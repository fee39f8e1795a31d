package registry

import (
	"codelens/internal/mcp/contracts"
	"context"
	"errors"
	"reflect"
	"testing"
)

type echoInput struct{ Value string }

func TestRegistry_BindAndDispatch(t *testing.T) {
	r := New()
	err := Bind(r, "echo", func(_ context.Context, in echoInput) (string, error) {
		return in.Value, nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := r.Register("echo", func(context.Context, any) (any, error) { return nil, nil }); err == nil {
		t.Fatal("expected duplicate registration to fail")
	}

	h, ok := r.HandlerFor("echo")
	if !ok {
		t.Fatal("expected echo handler")
	}
	out, err := h(context.Background(), echoInput{Value: "hi"})
	if err != nil || out != "hi" {
		t.Fatalf("unexpected result %v %v", out, err)
	}

	_, err = h(context.Background(), 42)
	var toolErr contracts.ToolError
	if !errors.As(err, &toolErr) || toolErr.Kind != "VALIDATION_ERROR" {
		t.Fatalf("expected VALIDATION_ERROR for a mistyped input, got %v", err)
	}

	if !reflect.DeepEqual(r.Operations(), []string{"echo"}) {
		t.Fatalf("unexpected operations %v", r.Operations())
	}
}
