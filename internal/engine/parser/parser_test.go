package parser

import (
	"codelens/internal/core/errors"
	"testing"
)

const orderService = `package com.acme.order;

import com.acme.order.repo.OrderRepository;
import com.acme.common.*;
import static java.util.Objects.requireNonNull;
import org.springframework.stereotype.Service;

@Service
public class OrderService extends BaseService implements Auditable, Closeable {
    private static final int LIMIT = 10;
    @Autowired
    private OrderRepository repository;
    private final Map<String, List<Order>> byCustomer = new HashMap<>(), cache[];

    public OrderService(OrderRepository repository) {
        this.repository = repository;
    }

    public Order place(@Valid Order order, String... tags) {
        var draft = new OrderDraft(order);
        Validator validator = this.validator();
        for (Item item : order.getItems()) {
            validator.check(item);
        }
        try {
            repository.save(draft.toOrder());
        } catch (IllegalStateException | IllegalArgumentException ex) {
            log(ex.getMessage());
        }
        return super.finish(order);
    }

    static class Audit {
        String who;
    }
}
`

func TestJavaExtraction_ClassStructure(t *testing.T) {
	p := NewParser()
	file, err := p.ParseFile("src/OrderService.java", []byte(orderService))
	if err != nil {
		t.Fatal(err)
	}

	if file.Package != "com.acme.order" {
		t.Fatalf("expected package com.acme.order, got %q", file.Package)
	}
	if len(file.Imports) != 4 {
		t.Fatalf("expected 4 imports, got %d", len(file.Imports))
	}
	if !file.Imports[1].Wildcard || file.Imports[1].Path != "com.acme.common" {
		t.Errorf("expected wildcard import of com.acme.common, got %+v", file.Imports[1])
	}
	if !file.Imports[2].Static {
		t.Errorf("expected static import, got %+v", file.Imports[2])
	}

	if len(file.Types) != 1 {
		t.Fatalf("expected 1 top-level type, got %d", len(file.Types))
	}
	svc := file.Types[0]
	if svc.QualifiedName != "com.acme.order.OrderService" || svc.Kind != KindClass {
		t.Fatalf("unexpected class %s (%s)", svc.QualifiedName, svc.Kind)
	}
	if svc.SuperClass != "BaseService" {
		t.Errorf("expected superclass BaseService, got %q", svc.SuperClass)
	}
	if len(svc.Interfaces) != 2 || svc.Interfaces[1] != "Closeable" {
		t.Errorf("unexpected interfaces %v", svc.Interfaces)
	}
	if !svc.HasAnnotation("Service") {
		t.Error("expected @Service annotation")
	}

	names := []string{}
	for _, f := range svc.Fields {
		names = append(names, f.Name)
	}
	if len(svc.Fields) != 4 {
		t.Fatalf("expected 4 fields, got %v", names)
	}
	if !svc.Fields[0].Modifiers.Static || svc.Fields[0].Visibility != "private" {
		t.Errorf("expected private static LIMIT, got %+v", svc.Fields[0])
	}
	repo := svc.Field("repository")
	if repo == nil || repo.TypeText != "OrderRepository" || !repo.HasAnnotation("Autowired") {
		t.Errorf("unexpected repository field %+v", repo)
	}
	if repo.QualifiedName != "com.acme.order.OrderService#repository" {
		t.Errorf("unexpected field qualified name %q", repo.QualifiedName)
	}
	if got := svc.Field("byCustomer").TypeText; got != "Map<String,List<Order>>" {
		t.Errorf("unexpected generic type text %q", got)
	}
	if got := svc.Field("cache").TypeText; got != "Map<String,List<Order>>[]" {
		t.Errorf("expected declarator dimensions on cache, got %q", got)
	}

	if len(svc.Nested) != 1 || svc.Nested[0].QualifiedName != "com.acme.order.OrderService.Audit" {
		t.Fatalf("expected nested Audit class, got %+v", svc.Nested)
	}
	if !svc.Nested[0].Modifiers.Static {
		t.Error("expected static nested class")
	}
}

func TestJavaExtraction_MethodBodies(t *testing.T) {
	p := NewParser()
	file, err := p.ParseFile("OrderService.java", []byte(orderService))
	if err != nil {
		t.Fatal(err)
	}
	svc := file.Types[0]

	ctors := svc.MethodsNamed("OrderService")
	if len(ctors) != 1 || ctors[0].Kind != KindConstructor {
		t.Fatalf("expected constructor, got %+v", ctors)
	}

	place := svc.MethodsNamed("place")
	if len(place) != 1 {
		t.Fatalf("expected place method")
	}
	m := place[0]
	if m.QualifiedName != "com.acme.order.OrderService#place(Order,String[])" {
		t.Errorf("unexpected method qualified name %q", m.QualifiedName)
	}
	if m.TypeText != "Order" {
		t.Errorf("expected return type Order, got %q", m.TypeText)
	}
	if len(m.Params) != 2 || !m.Params[0].HasAnnotation("Valid") || m.Params[1].TypeText != "String[]" {
		t.Fatalf("unexpected params %+v", m.Params)
	}

	locals := map[string]Local{}
	for _, l := range m.Locals {
		locals[l.Name] = l
	}
	if locals["draft"].TypeText != "OrderDraft" {
		t.Errorf("expected var draft to infer OrderDraft, got %q", locals["draft"].TypeText)
	}
	if locals["item"].TypeText != "Item" {
		t.Errorf("expected enhanced-for local item, got %+v", locals["item"])
	}
	if locals["ex"].TypeText != "IllegalStateException" {
		t.Errorf("expected first catch type, got %q", locals["ex"].TypeText)
	}
	if locals["item"].ScopeEnd >= locals["validator"].ScopeEnd {
		t.Errorf("expected loop local to have a narrower scope than method local")
	}

	var calls []string
	for _, c := range m.Calls {
		calls = append(calls, c.Name)
	}
	want := []string{"validator", "getItems", "check", "save", "toOrder", "log", "getMessage", "finish"}
	if len(calls) != len(want) {
		t.Fatalf("expected calls %v, got %v", want, calls)
	}
	for i := range want {
		if calls[i] != want[i] {
			t.Fatalf("expected calls %v in source order, got %v", want, calls)
		}
	}

	save := m.Calls[3]
	if len(save.Receiver) != 1 || save.Receiver[0].Kind != ReceiverIdent || save.Receiver[0].Name != "repository" {
		t.Errorf("unexpected save receiver %+v", save.Receiver)
	}
	if save.ArgCount != 1 {
		t.Errorf("expected 1 argument, got %d", save.ArgCount)
	}
	if recv := m.Calls[0].Receiver; len(recv) != 1 || recv[0].Kind != ReceiverThis {
		t.Errorf("expected this receiver, got %+v", recv)
	}
	if recv := m.Calls[4].Receiver; len(recv) != 1 || recv[0].Name != "draft" {
		t.Errorf("expected draft receiver for toOrder, got %+v", recv)
	}
	if len(m.Calls[5].Receiver) != 0 {
		t.Errorf("expected unqualified log call, got %+v", m.Calls[5].Receiver)
	}
	if recv := m.Calls[7].Receiver; len(recv) != 1 || recv[0].Kind != ReceiverSuper {
		t.Errorf("expected super receiver, got %+v", recv)
	}
}

func TestJavaExtraction_InterfaceEnumRecord(t *testing.T) {
	src := `package com.acme;
public interface Repo extends Base<Order> {
    int PAGE = 20;
    Order find(long id);
    default Order first() { return find(1L); }
}
enum Status { OPEN, CLOSED; private String label; }
record Line(String sku, int qty) {}
`
	file, err := NewParser().ParseFile("Repo.java", []byte(src))
	if err != nil {
		t.Fatal(err)
	}
	if len(file.Types) != 3 {
		t.Fatalf("expected 3 types, got %d", len(file.Types))
	}

	repo := file.Types[0]
	if repo.Kind != KindInterface || len(repo.Interfaces) != 1 || repo.Interfaces[0] != "Base<Order>" {
		t.Errorf("unexpected interface %+v", repo)
	}
	if !repo.Fields[0].Modifiers.Static {
		t.Error("interface constants are static")
	}
	if !repo.MethodsNamed("find")[0].Modifiers.Abstract {
		t.Error("expected abstract interface method")
	}
	if repo.MethodsNamed("first")[0].Modifiers.Abstract {
		t.Error("default method must not be abstract")
	}

	status := file.Types[1]
	if status.Kind != KindEnum || len(status.EnumConstants) != 2 || status.Field("label") == nil {
		t.Errorf("unexpected enum %+v", status)
	}

	line := file.Types[2]
	if line.Kind != KindRecord || len(line.Fields) != 2 || line.Fields[1].TypeText != "int" {
		t.Errorf("unexpected record %+v", line)
	}
	if line.Fields[0].Modifiers.Static {
		t.Error("record components are instance fields")
	}
}

func TestParseFile_SyntaxError(t *testing.T) {
	_, err := NewParser().ParseFile("Broken.java", []byte("package a;\nclass Broken { void x( { }\n"))
	if err == nil {
		t.Fatal("expected parse error")
	}
	if !errors.IsCode(err, errors.CodeParseError) {
		t.Fatalf("expected PARSE_ERROR, got %v", err)
	}
}

func TestNormalizeHelpers(t *testing.T) {
	for in, want := range map[string]string{
		" @NonNull  Map< String , Order > ":                       "Map<String,Order>",
		"List<@Valid Item>":                                       "List<Item>",
		"Map<@NotBlank String, @Valid Item>":                      "Map<String,Item>",
		`@Size(min = 1, message = "a (b)") List<@Valid Item>`:     "List<Item>",
		"java.util.@NonNull List<@javax.validation.Valid Item>[]": "java.util.List<Item>[]",
	} {
		if got := NormalizeTypeText(in); got != want {
			t.Errorf("NormalizeTypeText(%q) = %q, want %q", in, got, want)
		}
	}
	if got := EraseGenerics("Map<String,List<Order>>[]"); got != "Map[]" {
		t.Errorf("unexpected erased type %q", got)
	}
	if SimpleName("com.acme.Order") != "Order" || PackageOf("com.acme.Order") != "com.acme" {
		t.Error("unexpected qualified name helpers")
	}
}
