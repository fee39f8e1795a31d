package branches

import (
	"codelens/internal/core/errors"
	"codelens/internal/engine/parser"
	"reflect"
	"testing"
)

func newAnalyzer() *Analyzer {
	return NewAnalyzer(parser.NewParserPool(parser.JavaLanguage()))
}

func TestAnalyze_SequentialIfs(t *testing.T) {
	src := `public void check(int a, int b, int c) {
    if (a > 0) { System.out.println(a); }
    if (b > 0) { System.out.println(b); }
    if (c > 0) { System.out.println(c); }
}`
	res, err := newAnalyzer().Analyze(src)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Branches) != 3 || res.CyclomaticComplexity != 4 || res.MaxNestingDepth != 0 {
		t.Fatalf("expected 3 branches, CC 4, nesting 0; got %+v", res)
	}
	if res.MinimumTests != res.CyclomaticComplexity {
		t.Fatalf("minimumTests %d != CC %d", res.MinimumTests, res.CyclomaticComplexity)
	}
	if res.Method != "check" {
		t.Fatalf("expected method name check, got %q", res.Method)
	}
	for i, b := range res.Branches {
		if b.Kind != Conditional || b.PathCount != 2 || b.Span.StartLine != i+2 {
			t.Fatalf("unexpected branch %d: %+v", i, b)
		}
	}
	if res.Branches[0].Condition != "a > 0" {
		t.Fatalf("expected condition text, got %q", res.Branches[0].Condition)
	}
}

func TestAnalyze_ElseIfChainAndNesting(t *testing.T) {
	src := `public int grade(int score) {
    if (score > 90) {
        return 1;
    } else if (score > 80) {
        for (int i = 0; i < 3; i++) {
            if (i == score) { return i; }
        }
        return 2;
    } else {
        while (score > 0) { score--; }
    }
    return 0;
}`
	res, err := newAnalyzer().Analyze(src)
	if err != nil {
		t.Fatal(err)
	}
	want := []struct {
		construct string
		level     int
		line      int
	}{
		{"if", 0, 2},
		{"else_if", 0, 4},
		{"for", 1, 5},
		{"if", 2, 6},
		{"while", 1, 10},
	}
	if len(res.Branches) != len(want) {
		t.Fatalf("expected %d branches, got %+v", len(want), res.Branches)
	}
	for i, w := range want {
		b := res.Branches[i]
		if b.Construct != w.construct || b.NestingLevel != w.level || b.Span.StartLine != w.line {
			t.Fatalf("branch %d: expected %+v, got %+v", i, w, b)
		}
	}
	if res.CyclomaticComplexity != 6 || res.MaxNestingDepth != 2 {
		t.Fatalf("expected CC 6 and nesting 2, got %+v", res)
	}
}

func TestAnalyze_SwitchCases(t *testing.T) {
	src := `String name(int d) {
    switch (d) {
        case 1: return "one";
        case 2:
        case 3: return "few";
        default: return "many";
    }
}`
	res, err := newAnalyzer().Analyze(src)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Branches) != 3 {
		t.Fatalf("expected one branch per non-default case, got %+v", res.Branches)
	}
	for _, b := range res.Branches {
		if b.Kind != SwitchCase || b.PathCount != 4 || b.NestingLevel != 0 {
			t.Fatalf("unexpected case branch %+v", b)
		}
	}
	if res.Branches[2].Condition != "3" {
		t.Fatalf("expected case label 3, got %q", res.Branches[2].Condition)
	}
	if res.CyclomaticComplexity != 4 {
		t.Fatalf("expected CC 4, got %d", res.CyclomaticComplexity)
	}
}

func TestAnalyze_SwitchRules(t *testing.T) {
	src := `String kind(Shape s) {
    return switch (s.type()) {
        case CIRCLE -> "round";
        case SQUARE, RECT -> {
            if (s.big()) {
                yield "big";
            }
            yield "box";
        }
        default -> "other";
    };
}`
	res, err := newAnalyzer().Analyze(src)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Branches) != 3 {
		t.Fatalf("expected 2 cases and 1 if, got %+v", res.Branches)
	}
	if res.Branches[0].PathCount != 3 || res.Branches[1].PathCount != 3 {
		t.Fatalf("expected 3 paths per case, got %+v", res.Branches)
	}
	if inner := res.Branches[2]; inner.Kind != Conditional || inner.NestingLevel != 1 {
		t.Fatalf("expected nested if inside the case arm, got %+v", inner)
	}
	if res.MaxNestingDepth != 1 {
		t.Fatalf("expected nesting 1, got %d", res.MaxNestingDepth)
	}
}

func TestAnalyze_CatchClausesAndLoops(t *testing.T) {
	src := `void load() {
    try {
        read();
    } catch (IOException e) {
        log(e);
    } catch (RuntimeException e) {
        if (retry) {
            load();
        }
    } finally {
        close();
    }
    do {
        step();
    } while (busy());
    for (String s : names) {
        use(s);
    }
}`
	res, err := newAnalyzer().Analyze(src)
	if err != nil {
		t.Fatal(err)
	}
	kinds := []Kind{ExceptionHandler, ExceptionHandler, Conditional, Loop, Loop}
	if len(res.Branches) != len(kinds) {
		t.Fatalf("expected %d branches, got %+v", len(kinds), res.Branches)
	}
	for i, k := range kinds {
		if res.Branches[i].Kind != k {
			t.Fatalf("branch %d: expected %s, got %+v", i, k, res.Branches[i])
		}
	}
	if res.Branches[0].Condition != "IOException" {
		t.Fatalf("expected caught type, got %q", res.Branches[0].Condition)
	}
	if res.Branches[2].NestingLevel != 1 {
		t.Fatalf("expected if inside catch at level 1, got %+v", res.Branches[2])
	}
	if res.Branches[4].Construct != "enhanced_for" || res.Branches[3].Construct != "do" {
		t.Fatalf("unexpected loop constructs %+v", res.Branches[3:])
	}
	if res.CyclomaticComplexity != 6 {
		t.Fatalf("expected CC 6, got %d", res.CyclomaticComplexity)
	}
}

func TestAnalyze_Idempotent(t *testing.T) {
	src := `public Foo(int a) {
    if (a > 0) { this.a = a; } else if (a < 0) { this.a = -a; }
}`
	a := newAnalyzer()
	first, err := a.Analyze(src)
	if err != nil {
		t.Fatal(err)
	}
	second, err := a.Analyze(src)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("expected identical results:\n%+v\n%+v", first, second)
	}
	if first.Method != "Foo" || len(first.Branches) != 2 {
		t.Fatalf("expected constructor with 2 branches, got %+v", first)
	}
}

func TestAnalyze_NoBranches(t *testing.T) {
	res, err := newAnalyzer().Analyze("int one() { return 1; }")
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Branches) != 0 || res.CyclomaticComplexity != 1 || res.MinimumTests != 1 || res.MaxNestingDepth != 0 {
		t.Fatalf("unexpected result for straight-line method %+v", res)
	}
}

func TestAnalyze_Unparsable(t *testing.T) {
	a := newAnalyzer()
	for _, src := range []string{
		"",
		"void broken( {",
		"int x = 1;",
		"public void m() { if (x > ) {} }",
		"void m() {} void n(int a) { if (a > 0) {} }",
		"Order() {}\nvoid save() {}",
	} {
		if _, err := a.Analyze(src); !errors.IsCode(err, errors.CodeUnparsableMethod) {
			t.Fatalf("expected UNPARSABLE_METHOD for %q, got %v", src, err)
		}
	}
}

func TestAnalyze_NestedClassMethodsDoNotCount(t *testing.T) {
	a := newAnalyzer()
	src := `void run(boolean async) {
    Runnable r = new Runnable() {
        public void run() {}
    };
    if (async) {
        r.run();
    }
}`
	res, err := a.Analyze(src)
	if err != nil {
		t.Fatal(err)
	}
	if res.Method != "run" || res.CyclomaticComplexity != 2 {
		t.Fatalf("unexpected result %+v", res)
	}
}
