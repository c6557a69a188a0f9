package parser

import (
	"testing"

	"github.com/davy-yusuke/ecc/ast"
	"github.com/davy-yusuke/ecc/token"
)

func parseStmt(t *testing.T, src string) ast.Stmt {
	t.Helper()
	prog := Parse("fn f() {\n"+src+"\n}", nil, func(pos token.Position, msg string) {
		t.Fatalf("parse error at %s: %s", pos, msg)
	})
	if len(prog.Decls) != 1 {
		t.Fatalf("expected one decl, got %d", len(prog.Decls))
	}
	fd, ok := prog.Decls[0].(*ast.FuncDecl)
	if !ok {
		t.Fatalf("expected FuncDecl, got %T", prog.Decls[0])
	}
	if len(fd.Body.Stmts) != 1 {
		t.Fatalf("expected one statement, got %d", len(fd.Body.Stmts))
	}
	return fd.Body.Stmts[0]
}

func TestColonEqualsIsVarDeclNoType(t *testing.T) {
	s := parseStmt(t, "x := 1")
	vd, ok := s.(*ast.VarDecl)
	if !ok {
		t.Fatalf("expected VarDecl, got %T", s)
	}
	if vd.Name != "x" || vd.OptionalType != nil {
		t.Errorf("got VarDecl{Name: %q, OptionalType: %v}, want x with no type", vd.Name, vd.OptionalType)
	}
}

func TestColonTypeAssignIsVarDeclWithType(t *testing.T) {
	for _, src := range []string{"x : i32 = 1", "x : i32 := 1"} {
		s := parseStmt(t, src)
		vd, ok := s.(*ast.VarDecl)
		if !ok {
			t.Fatalf("%q: expected VarDecl, got %T", src, s)
		}
		if vd.Name != "x" || vd.OptionalType == nil {
			t.Errorf("%q: got VarDecl{Name: %q, OptionalType: %v}, want x with a type", src, vd.Name, vd.OptionalType)
		}
	}
}

func TestBareAssignIsAssignStmt(t *testing.T) {
	s := parseStmt(t, "x = 1")
	as, ok := s.(*ast.AssignStmt)
	if !ok {
		t.Fatalf("expected AssignStmt, got %T", s)
	}
	if as.Op != token.ASSIGN {
		t.Errorf("Op = %v, want ASSIGN", as.Op)
	}
}

func parseFunc(t *testing.T, src string, wantErr bool) *ast.FuncDecl {
	t.Helper()
	sawErr := false
	prog := Parse(src, nil, func(pos token.Position, msg string) {
		sawErr = true
	})
	if sawErr != wantErr {
		t.Fatalf("saw parse error = %v, want %v", sawErr, wantErr)
	}
	if len(prog.Decls) != 1 {
		t.Fatalf("expected one decl, got %d", len(prog.Decls))
	}
	fd, ok := prog.Decls[0].(*ast.FuncDecl)
	if !ok {
		t.Fatalf("expected FuncDecl, got %T", prog.Decls[0])
	}
	return fd
}

func TestVariadicLastParamOK(t *testing.T) {
	fd := parseFunc(t, "fn f(a i32, b ...i32) {}", false)
	if len(fd.Params) != 2 || !fd.Params[1].Variadic {
		t.Fatalf("params = %+v, want a non-variadic, b variadic", fd.Params)
	}
}

func TestVariadicNotLastReportsErrorButStillYieldsFuncDecl(t *testing.T) {
	fd := parseFunc(t, "fn f(a ...i32, b i32) {}", true)
	if len(fd.Params) != 2 {
		t.Fatalf("expected a FuncDecl with 2 params despite the error, got %+v", fd.Params)
	}
}
