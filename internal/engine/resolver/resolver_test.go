package resolver

import (
	"codelens/internal/core/config"
	"codelens/internal/core/errors"
	"codelens/internal/engine/index"
	"context"
	"os"
	"path/filepath"
	"testing"
)

const orderService = `package com.acme.order;

import com.acme.billing.PaymentService;
import java.util.List;
import java.util.Map;
import java.util.Optional;

public class OrderService extends BaseService {
    private PaymentService svc;
    private List<Order> orders;

    public void place(Order order, int count) {
        String svc = "shadow";
        if (count > 0) {
            Order draft = order;
        }
        helper(order);
    }

    public void charge() {
        svc.pay();
    }

    public Map<String, Optional<Order>> index(String key) {
        return null;
    }

    static class Inner {
        void run() {
            svc.pay();
        }
    }
}
`

var projectFiles = map[string]string{
	"src/com/acme/order/OrderService.java": orderService,
	"src/com/acme/order/BaseService.java": `package com.acme.order;
public abstract class BaseService {
    protected Audit audit;
    private String secret;
}`,
	"src/com/acme/order/Order.java": `package com.acme.order;
public class Order { String id; }`,
	"src/com/acme/order/Audit.java": `package com.acme.order;
public class Audit {}`,
	"src/com/acme/billing/PaymentService.java": `package com.acme.billing;
public class PaymentService { public void pay() {} }`,
	"src/com/acme/other/svc.java": `package com.acme.other;
public class svc {}`,
}

const servicePath = "src/com/acme/order/OrderService.java"

func newResolver(t *testing.T) *Resolver {
	t.Helper()
	root := t.TempDir()
	for rel, content := range projectFiles {
		path := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	ix, err := index.New(index.Options{Root: root})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = ix.Close() })
	if _, err := ix.IndexProject(context.Background()); err != nil {
		t.Fatal(err)
	}
	return New(ix, OptionsFromConfig(config.DefaultConfig()))
}

func lineOf(n int) *int { return &n }

func TestResolveSymbol_FieldNotConfusedWithSameNamedType(t *testing.T) {
	r := newResolver(t)

	res, err := r.ResolveSymbol("svc", servicePath, lineOf(21))
	if err != nil {
		t.Fatal(err)
	}
	if res.ResolvedType != "com.acme.billing.PaymentService" {
		t.Fatalf("expected field type, got %q", res.ResolvedType)
	}
	if res.Scope != ScopeField || res.DeclarationKind != "field" || !res.IsProjectClass {
		t.Fatalf("unexpected resolution %+v", res)
	}
	if res.DeclarationSite.Line != 9 {
		t.Fatalf("expected declaration on line 9, got %d", res.DeclarationSite.Line)
	}
}

func TestResolveSymbol_ScopesInnermostFirst(t *testing.T) {
	r := newResolver(t)

	res, err := r.ResolveSymbol("svc", servicePath, lineOf(14))
	if err != nil {
		t.Fatal(err)
	}
	if res.Scope != ScopeLocal || res.ResolvedType != "java.lang.String" {
		t.Fatalf("expected local String shadowing the field, got %+v", res)
	}

	res, err = r.ResolveSymbol("order", servicePath, lineOf(18))
	if err != nil {
		t.Fatal(err)
	}
	if res.Scope != ScopeParameter || res.ResolvedType != "com.acme.order.Order" {
		t.Fatalf("expected Order parameter, got %+v", res)
	}

	// draft is out of scope after its block closes.
	if _, err := r.ResolveSymbol("draft", servicePath, lineOf(18)); !errors.IsCode(err, errors.CodeSymbolNotFound) {
		t.Fatalf("expected SYMBOL_NOT_FOUND outside the block, got %v", err)
	}
	if res, err := r.ResolveSymbol("draft", servicePath, lineOf(16)); err != nil || res.Scope != ScopeLocal {
		t.Fatalf("expected local inside the block, got %+v %v", res, err)
	}
}

func TestResolveSymbol_InheritedAndOuterFields(t *testing.T) {
	r := newResolver(t)

	res, err := r.ResolveSymbol("audit", servicePath, lineOf(21))
	if err != nil {
		t.Fatal(err)
	}
	if res.Scope != ScopeInheritedField || res.ResolvedType != "com.acme.order.Audit" {
		t.Fatalf("expected inherited field, got %+v", res)
	}
	if _, err := r.ResolveSymbol("secret", servicePath, lineOf(21)); !errors.IsCode(err, errors.CodeSymbolNotFound) {
		t.Fatalf("expected private superclass field to be invisible, got %v", err)
	}

	res, err = r.ResolveSymbol("svc", servicePath, lineOf(30))
	if err != nil {
		t.Fatal(err)
	}
	if res.Scope != ScopeOuterField {
		t.Fatalf("expected outer class field, got %+v", res)
	}
}

func TestResolveSymbol_WithoutLine(t *testing.T) {
	r := newResolver(t)

	res, err := r.ResolveSymbol("svc", servicePath, nil)
	if err != nil {
		t.Fatal(err)
	}
	if res.Scope != ScopeField {
		t.Fatalf("expected field before locals without a line, got %+v", res)
	}
	res, err = r.ResolveSymbol("key", servicePath, nil)
	if err != nil {
		t.Fatal(err)
	}
	if res.Scope != ScopeParameter || res.TypeText != "String" {
		t.Fatalf("expected parameter key, got %+v", res)
	}
	res, err = r.ResolveSymbol("Order", servicePath, nil)
	if err != nil {
		t.Fatal(err)
	}
	if res.Scope != ScopeType || res.ResolvedType != "com.acme.order.Order" || res.DeclarationKind != "class" {
		t.Fatalf("expected type resolution, got %+v", res)
	}
}

func TestResolveSymbol_NotFoundCarriesDiagnostics(t *testing.T) {
	r := newResolver(t)

	_, err := r.ResolveSymbol("ordr", servicePath, lineOf(18))
	if !errors.IsCode(err, errors.CodeSymbolNotFound) {
		t.Fatalf("expected SYMBOL_NOT_FOUND, got %v", err)
	}
	de, ok := err.(*errors.DomainError)
	if !ok {
		t.Fatalf("expected domain error, got %T", err)
	}
	scopes, _ := de.Context[errors.CtxScopes].([]string)
	if len(scopes) < 4 {
		t.Fatalf("expected locals, parameters, fields and types scopes, got %v", scopes)
	}
	suggestions, _ := de.Context[errors.CtxSuggestions].([]string)
	if len(suggestions) == 0 || suggestions[0] != "order" {
		t.Fatalf("expected suggestion order, got %v", suggestions)
	}

	if _, err := r.ResolveSymbol("x", "Missing.java", nil); !errors.IsCode(err, errors.CodeNotFound) {
		t.Fatalf("expected NOT_FOUND for unindexed file, got %v", err)
	}
}

func TestParseType(t *testing.T) {
	r := newResolver(t)

	ref := r.ParseType("Map<String, Optional<Order>>", servicePath)
	if ref.Container != ContainerMap {
		t.Fatalf("expected map container, got %q", ref.Container)
	}
	if ref.Key().QualifiedName != "java.lang.String" {
		t.Fatalf("unexpected key %+v", ref.Key())
	}
	value := ref.Value()
	if value.Container != ContainerOptional || value.Element().Declaration == nil {
		t.Fatalf("expected Optional<Order> value, got %+v", value)
	}
	targets := ref.Targets()
	if len(targets) != 2 || targets[1].QualifiedName != "com.acme.order.Order" {
		t.Fatalf("unexpected targets %+v", targets)
	}
	if got := ref.Qualified(); got != "java.util.Map<java.lang.String,java.util.Optional<com.acme.order.Order>>" {
		t.Fatalf("unexpected qualified rendering %q", got)
	}

	arr := r.ParseType("Order[][]", servicePath)
	if arr.Dimensions != 2 || !arr.IsProject() {
		t.Fatalf("expected 2-dimensional project array, got %+v", arr)
	}
	if prim := r.ParseType("int", servicePath); !prim.Primitive || len(prim.Targets()) != 0 {
		t.Fatalf("expected primitive without targets, got %+v", prim)
	}
	annotated := r.ParseType("Map<@NotBlank String, List<@Valid Order>>", servicePath)
	if got := annotated.Qualified(); got != "java.util.Map<java.lang.String,java.util.List<com.acme.order.Order>>" {
		t.Fatalf("expected annotations to be dropped from type arguments, got %q", got)
	}
	wild := r.ParseType("List<? extends Order>", servicePath)
	if el := wild.Element(); el == nil || !el.Wildcard || !el.IsProject() {
		t.Fatalf("expected bounded wildcard element, got %+v", el)
	}
}
