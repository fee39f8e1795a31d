package app

import (
	"codelens/internal/core/config"
	"codelens/internal/core/errors"
	"codelens/internal/core/ports"
	"codelens/internal/engine/index/indextest"
	"context"
	"os"
	"path/filepath"
	"testing"
)

var shopProject = map[string]string{
	"src/com/acme/shop/Order.java": `package com.acme.shop;

import java.util.List;

public class Order {
    private Customer customer;
    private List<Line> lines;

    public static class Line {
        private Order order;
        private int quantity;
    }
}
`,
	"src/com/acme/shop/Customer.java": `package com.acme.shop;

public class Customer {
    private String name;
}
`,
	"src/com/acme/shop/OrderService.java": `package com.acme.shop;

import java.util.Objects;

public class OrderService {
    private final OrderRepository repository;

    public OrderService(OrderRepository repository) {
        this.repository = repository;
    }

    public Order place(Order order) {
        Objects.requireNonNull(order);
        return repository.save(order);
    }
}
`,
	"src/com/acme/shop/OrderRepository.java": `package com.acme.shop;

public class OrderRepository {
    public Order save(Order order) {
        return order;
    }
}
`,
}

func newTestApp(t *testing.T, files map[string]string) (*App, string) {
	t.Helper()
	root := indextest.WriteProject(t, files)
	a, err := New(config.DefaultConfig(), root, nil)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = a.Close(context.Background()) })
	if _, err := a.InitialIndex(context.Background()); err != nil {
		t.Fatal(err)
	}
	return a, root
}

func TestAnalysisService_ResolveSymbol(t *testing.T) {
	a, _ := newTestApp(t, shopProject)
	svc := a.AnalysisService()

	line := 14
	res, err := svc.ResolveSymbol(context.Background(), ports.ResolveSymbolRequest{
		SymbolName:  "repository",
		ContextFile: "src/com/acme/shop/OrderService.java",
		Line:        &line,
	})
	if err != nil {
		t.Fatal(err)
	}
	if res.ResolvedType != "com.acme.shop.OrderRepository" || !res.IsProjectClass {
		t.Fatalf("unexpected resolution %+v", res)
	}

	_, err = svc.ResolveSymbol(context.Background(), ports.ResolveSymbolRequest{
		SymbolName:  "missing",
		ContextFile: "src/com/acme/shop/OrderService.java",
	})
	if !errors.IsCode(err, errors.CodeSymbolNotFound) {
		t.Fatalf("expected SYMBOL_NOT_FOUND, got %v", err)
	}
}

func TestAnalysisService_ResolveSymbolIndexesNewContextFile(t *testing.T) {
	a, root := newTestApp(t, shopProject)
	path := filepath.Join(root, "src", "com", "acme", "shop", "Invoice.java")
	src := `package com.acme.shop;

public class Invoice {
    private Order order;
}
`
	if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
		t.Fatal(err)
	}

	res, err := a.AnalysisService().ResolveSymbol(context.Background(), ports.ResolveSymbolRequest{
		SymbolName:  "order",
		ContextFile: path,
	})
	if err != nil {
		t.Fatal(err)
	}
	if res.ResolvedType != "com.acme.shop.Order" {
		t.Fatalf("expected Order, got %+v", res)
	}
}

func TestAnalysisService_TypeStructureUsesConfiguredDepth(t *testing.T) {
	a, _ := newTestApp(t, shopProject)
	a.Config.Analysis.TypeMaxDepth = 1

	res, err := a.AnalysisService().TypeStructure(context.Background(), ports.TypeStructureRequest{
		ClassName: "com.acme.shop.Order",
	})
	if err != nil {
		t.Fatal(err)
	}
	if res.MaxDepth != 1 || res.DepthExceeded == 0 {
		t.Fatalf("expected the configured depth to bound the walk, got %+v", res)
	}

	_, err = a.AnalysisService().TypeStructure(context.Background(), ports.TypeStructureRequest{ClassName: "Ordr"})
	if !errors.IsCode(err, errors.CodeClassNotFound) {
		t.Fatalf("expected CLASS_NOT_FOUND, got %v", err)
	}
}

func TestAnalysisService_CallChain(t *testing.T) {
	a, _ := newTestApp(t, shopProject)

	res, err := a.AnalysisService().CallChain(context.Background(), ports.CallChainRequest{
		ClassName:  "OrderService",
		MethodName: "place",
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Root.Children) != 2 {
		t.Fatalf("expected two calls, got %+v", res.Root.Children)
	}
	if first := res.Root.Children[0]; !first.BoundaryHit || first.CalleeClass != "java.util.Objects" {
		t.Fatalf("expected Objects.requireNonNull to hit the default boundary, got %+v", first)
	}
	if second := res.Root.Children[1]; second.CalleeMethod != "com.acme.shop.OrderRepository#save(Order)" {
		t.Fatalf("expected repository.save, got %+v", second)
	}

	_, err = a.AnalysisService().CallChain(context.Background(), ports.CallChainRequest{ClassName: "OrderService"})
	if !errors.IsCode(err, errors.CodeValidationError) {
		t.Fatalf("expected VALIDATION_ERROR without a method, got %v", err)
	}
}

func TestAnalysisService_AnalyzeBranches(t *testing.T) {
	a, _ := newTestApp(t, shopProject)
	svc := a.AnalysisService()

	res, err := svc.AnalyzeBranches(context.Background(), ports.AnalyzeBranchesRequest{
		MethodSource: "int sign(int v) { if (v > 0) { return 1; } else if (v < 0) { return -1; } return 0; }",
	})
	if err != nil {
		t.Fatal(err)
	}
	if res.CyclomaticComplexity != 3 || res.MinimumTests != 3 {
		t.Fatalf("unexpected metrics %+v", res)
	}

	_, err = svc.AnalyzeBranches(context.Background(), ports.AnalyzeBranchesRequest{MethodSource: "int ("})
	if !errors.IsCode(err, errors.CodeUnparsableMethod) {
		t.Fatalf("expected UNPARSABLE_METHOD, got %v", err)
	}
}

func TestAnalysisService_IndexStatusAndReindex(t *testing.T) {
	a, root := newTestApp(t, shopProject)
	svc := a.AnalysisService()

	status, err := svc.IndexStatus(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if status.Files != 4 || status.Classes != 5 || len(status.Failures) != 0 || status.Store != "memory" {
		t.Fatalf("unexpected status %+v", status)
	}

	broken := filepath.Join(root, "src", "com", "acme", "shop", "Broken.java")
	if err := os.WriteFile(broken, []byte("package com.acme.shop;\npublic class Broken {"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Remove(filepath.Join(root, "src", "com", "acme", "shop", "Customer.java")); err != nil {
		t.Fatal(err)
	}

	report, err := svc.Reindex(context.Background(), ports.ReindexRequest{Paths: []string{
		broken,
		"src/com/acme/shop/Customer.java",
	}})
	if err != nil {
		t.Fatal(err)
	}
	if report.Removed != 1 || len(report.Failures) != 1 || report.Failures[0].Kind != string(errors.CodeParseError) {
		t.Fatalf("unexpected report %+v", report)
	}

	status, _ = svc.IndexStatus(context.Background())
	if status.Files != 3 || len(status.Failures) != 1 {
		t.Fatalf("expected the failure to be listed, got %+v", status)
	}

	full, err := svc.Reindex(context.Background(), ports.ReindexRequest{})
	if err != nil {
		t.Fatal(err)
	}
	if full.Files != 4 || full.Unchanged != 3 {
		t.Fatalf("expected a full pass that skips unchanged files, got %+v", full)
	}
}

func TestHealthService(t *testing.T) {
	a, _ := newTestApp(t, shopProject)
	status, ok := NewHealthService(a).Healthy(context.Background())
	if !ok {
		t.Fatalf("expected healthy engine, got %+v", status)
	}
	h := status.(HealthStatus)
	if h.Components["symbol_store"] != "memory" || h.Components["watcher"] != "disabled" || h.Components["heap"] == "" || h.Engine != a.ID {
		t.Fatalf("unexpected components %+v", h)
	}
}
