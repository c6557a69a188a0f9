package lower

import (
	"strings"
	"testing"

	"github.com/davy-yusuke/ecc/parser"
	"github.com/davy-yusuke/ecc/token"
)

// compile parses src and lowers it, failing the test on any lexer, parser,
// or codegen diagnostic.
func compile(t *testing.T, src string) string {
	t.Helper()
	prog := parser.Parse(src, func(pos token.Position, msg string) {
		t.Fatalf("lexer error at %s: %s", pos, msg)
	}, func(pos token.Position, msg string) {
		t.Fatalf("parser error at %s: %s", pos, msg)
	})

	var codegenErrs []error
	gen := NewGenerator(func(err error) {
		codegenErrs = append(codegenErrs, err)
	})
	m := gen.Lower(prog)
	if len(codegenErrs) > 0 {
		t.Fatalf("codegen errors: %v", codegenErrs)
	}
	if gen.Failed() {
		t.Fatal("generator reports failure with no recorded error")
	}
	return m.String()
}

func TestScenarioReturnConstant(t *testing.T) {
	ir := compile(t, `fn main() i32 { return 0 }`)
	if !strings.Contains(ir, "define i32 @main()") {
		t.Errorf("missing main definition:\n%s", ir)
	}
	if !strings.Contains(ir, "ret i32 0") {
		t.Errorf("missing `ret i32 0`:\n%s", ir)
	}
}

func TestScenarioAddOfConstants(t *testing.T) {
	ir := compile(t, `fn main() i32 { x := 40 + 2; return x }`)
	if !strings.Contains(ir, "add") {
		t.Errorf("expected an add instruction:\n%s", ir)
	}
}

func TestScenarioArrayLiteralAndIndex(t *testing.T) {
	ir := compile(t, `fn main() i32 { a := [10, 20, 30]; return a[1] }`)
	if !strings.Contains(ir, "Array_internal") {
		t.Errorf("expected an Array_internal descriptor:\n%s", ir)
	}
	if !strings.Contains(ir, "icmp") {
		t.Errorf("expected a bounds-check icmp:\n%s", ir)
	}
}

func TestScenarioAppendGrows(t *testing.T) {
	ir := compile(t, `fn main() i32 { a := [10]; append(a, 20); append(a, 30); return a[2] }`)
	if strings.Count(ir, "call i8* @malloc") < 2 {
		t.Errorf("expected at least two malloc calls from growth:\n%s", ir)
	}
}

func TestScenarioStructLiteralAndMemberAccess(t *testing.T) {
	ir := compile(t, `struct P { x i32; y i32 }
fn main() i32 { p := P{1, 2}; return p.x + p.y }`)
	if !strings.Contains(ir, "%P = type { i32, i32 }") {
		t.Errorf("expected named struct type %%P:\n%s", ir)
	}
}

func TestScenarioForInOverInteger(t *testing.T) {
	ir := compile(t, `fn main() i32 { for i in 3 { printf("%d\n", i) }; return 0 }`)
	if !strings.Contains(ir, "forin.cond") {
		t.Errorf("expected a for-in loop header block:\n%s", ir)
	}
	if !strings.Contains(ir, "forin.body") {
		t.Errorf("expected a for-in loop body block:\n%s", ir)
	}
	if !strings.Contains(ir, "forin.post") {
		t.Errorf("expected a for-in loop increment block:\n%s", ir)
	}
	if !strings.Contains(ir, "declare i32 @printf") {
		t.Errorf("expected a printf declaration:\n%s", ir)
	}
}

func TestIfConditionOnNonBooleanComparesAgainstZero(t *testing.T) {
	ir := compile(t, `fn main() i32 { x := 5; if x { return 1 }; return 0 }`)
	if !strings.Contains(ir, "icmp ne") {
		t.Errorf("expected a not-equal-zero comparison for a non-boolean if condition:\n%s", ir)
	}
}

func TestRecursiveStructValueIsCodegenError(t *testing.T) {
	prog := parser.Parse(`struct A { next A }
fn main() i32 { return 0 }`, nil, func(pos token.Position, msg string) {
		t.Fatalf("parser error at %s: %s", pos, msg)
	})
	var errs []error
	gen := NewGenerator(func(err error) { errs = append(errs, err) })
	gen.Lower(prog)
	if !gen.Failed() || len(errs) == 0 {
		t.Fatal("expected a codegen error for a recursive-by-value struct")
	}
}
