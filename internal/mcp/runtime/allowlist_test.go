package runtime

import (
	"codelens/internal/core/errors"
	"codelens/internal/core/ports"
	"reflect"
	"testing"
)

func TestBuildOperationAllowlist_Aliases(t *testing.T) {
	allowlist, err := BuildOperationAllowlist([]string{"resolveSymbol", "call-chain", "index_status", " "})
	if err != nil {
		t.Fatal(err)
	}
	for _, op := range []string{ports.OpResolveSymbol, ports.OpCallChain, ports.OpIndexStatus} {
		if !allowlist.Allows(op) {
			t.Fatalf("expected %s allowed", op)
		}
	}
	if allowlist.Allows(ports.OpReindex) {
		t.Fatalf("did not expect reindex allowed")
	}
	want := []string{ports.OpResolveSymbol, ports.OpCallChain, ports.OpIndexStatus}
	if got := allowlist.Names(); !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestBuildOperationAllowlist_EmptyAllowsAll(t *testing.T) {
	allowlist, err := BuildOperationAllowlist(nil)
	if err != nil {
		t.Fatal(err)
	}
	for _, op := range ports.Operations {
		if !allowlist.Allows(op) {
			t.Fatalf("expected %s allowed", op)
		}
	}
	if allowlist.Names() != nil {
		t.Fatalf("expected no explicit names")
	}
}

func TestBuildOperationAllowlist_UnknownOperation(t *testing.T) {
	_, err := BuildOperationAllowlist([]string{"resolve_symbl"})
	if !errors.IsCode(err, errors.CodeValidationError) {
		t.Fatalf("expected VALIDATION_ERROR, got %v", err)
	}
}
