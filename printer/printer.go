// Package printer renders tokens and AST trees as indented text for the
// compiler's debug mode. It is not a code formatter: there is no promise
// that printed output parses back to an equivalent tree.
package printer

import (
	"fmt"
	"io"

	"github.com/davy-yusuke/ecc/ast"
	"github.com/davy-yusuke/ecc/token"
)

// Tokens writes one line per token, in order, to w.
func Tokens(w io.Writer, toks []token.Token) {
	for _, t := range toks {
		fmt.Fprintln(w, t)
	}
}

// Program writes an indented dump of every top-level declaration in prog.
func Program(w io.Writer, prog *ast.Program) {
	p := &dumper{w: w}
	for _, d := range prog.Decls {
		p.decl(0, d)
	}
}

type dumper struct {
	w io.Writer
}

func (p *dumper) line(depth int, format string, a ...interface{}) {
	for i := 0; i < depth; i++ {
		fmt.Fprint(p.w, "  ")
	}
	fmt.Fprintf(p.w, format+"\n", a...)
}

func (p *dumper) decl(depth int, d ast.Decl) {
	switch d := d.(type) {
	case *ast.PackageDecl:
		p.line(depth, "PackageDecl %s", d.Name)
	case *ast.ImportDecl:
		p.line(depth, "ImportDecl %s as %s", d.Path, d.OptionalAlias)
	case *ast.StructDecl:
		p.line(depth, "StructDecl %s pub=%v", d.Name, d.IsPub)
		for _, f := range d.Fields {
			if f.InlineStruct != nil {
				p.line(depth+1, "Field %s (inline)", f.Name)
				p.decl(depth+2, f.InlineStruct)
				continue
			}
			p.line(depth+1, "Field %s %s", f.Name, typeString(f.Type))
		}
	case *ast.FuncDecl:
		recv := ""
		if d.OptionalReceiver != "" {
			recv = d.OptionalReceiver + "."
		}
		p.line(depth, "FuncDecl %s%s pub=%v ret=%s", recv, d.Name, d.IsPub, typeString(d.OptionalRetType))
		for _, prm := range d.Params {
			variadic := ""
			if prm.Variadic {
				variadic = "..."
			}
			p.line(depth+1, "Param %s%s %s", variadic, prm.Name, typeString(prm.Type))
		}
		if d.Body != nil {
			p.stmt(depth+1, d.Body)
		}
	case *ast.StmtDecl:
		p.stmt(depth, d.Stmt)
	default:
		p.line(depth, "Decl %T", d)
	}
}

func (p *dumper) stmt(depth int, s ast.Stmt) {
	switch s := s.(type) {
	case *ast.BlockStmt:
		p.line(depth, "Block")
		for _, inner := range s.Stmts {
			p.stmt(depth+1, inner)
		}
	case *ast.ExprStmt:
		p.line(depth, "ExprStmt")
		p.expr(depth+1, s.X)
	case *ast.ReturnStmt:
		p.line(depth, "Return")
		if s.OptionalExpr != nil {
			p.expr(depth+1, s.OptionalExpr)
		}
	case *ast.VarDecl:
		p.line(depth, "VarDecl %s : %s", s.Name, typeString(s.OptionalType))
		if s.OptionalInit != nil {
			p.expr(depth+1, s.OptionalInit)
		}
	case *ast.AssignStmt:
		p.line(depth, "Assign %s", s.Op)
		p.expr(depth+1, s.Target)
		p.expr(depth+1, s.Value)
	case *ast.IfStmt:
		p.line(depth, "If")
		p.expr(depth+1, s.Cond)
		p.stmt(depth+1, s.Then)
		if s.OptionalElse != nil {
			p.stmt(depth+1, s.OptionalElse)
		}
	case *ast.ForInStmt:
		p.line(depth, "ForIn %s", s.Var)
		p.expr(depth+1, s.Iterable)
		p.stmt(depth+1, s.Body)
	case *ast.ForStmt:
		p.line(depth, "For")
		p.stmt(depth+1, s.Body)
	case *ast.ForCStyleStmt:
		p.line(depth, "ForCStyle")
		if s.Init != nil {
			p.stmt(depth+1, s.Init)
		}
		if s.OptionalCond != nil {
			p.expr(depth+1, s.OptionalCond)
		}
		if s.Post != nil {
			p.stmt(depth+1, s.Post)
		}
		p.stmt(depth+1, s.Body)
	case *ast.BreakStmt:
		p.line(depth, "Break")
	case *ast.ContinueStmt:
		p.line(depth, "Continue")
	default:
		p.line(depth, "Stmt %T", s)
	}
}

func (p *dumper) expr(depth int, e ast.Expr) {
	switch e := e.(type) {
	case *ast.Ident:
		p.line(depth, "Ident %s", e.Name)
	case *ast.Literal:
		p.line(depth, "Literal %s %q", e.TokenKind, e.Raw)
	case *ast.UnaryExpr:
		p.line(depth, "Unary %s", e.Op)
		p.expr(depth+1, e.Rhs)
	case *ast.BinaryExpr:
		p.line(depth, "Binary %s", e.Op)
		p.expr(depth+1, e.Left)
		p.expr(depth+1, e.Right)
	case *ast.CallExpr:
		p.line(depth, "Call")
		p.expr(depth+1, e.Callee)
		for _, a := range e.Args {
			p.expr(depth+1, a)
		}
	case *ast.MemberExpr:
		p.line(depth, "Member .%s", e.Member)
		p.expr(depth+1, e.Object)
	case *ast.IndexExpr:
		p.line(depth, "Index")
		p.expr(depth+1, e.Collection)
		p.expr(depth+1, e.Index)
	case *ast.PostfixExpr:
		p.line(depth, "Postfix %s", e.Op)
		p.expr(depth+1, e.Lhs)
	case *ast.ArrayLiteral:
		p.line(depth, "ArrayLiteral %s", typeString(e.OptionalType))
		for _, el := range e.Elements {
			p.expr(depth+1, el)
		}
	case *ast.ByteArrayLiteral:
		p.line(depth, "ByteArrayLiteral len=%d", len(e.Elements))
	case *ast.StructLiteral:
		p.line(depth, "StructLiteral %s", typeString(e.Type))
		for _, init := range e.Inits {
			p.line(depth+1, "Init %s", init.OptionalName)
			p.expr(depth+2, init.Value)
		}
	default:
		p.line(depth, "Expr %T", e)
	}
}

func typeString(t ast.Type) string {
	switch t := t.(type) {
	case nil:
		return "<none>"
	case *ast.NamedType:
		return t.Name
	case *ast.PointerType:
		return "*" + typeString(t.Base)
	case *ast.ArrayType:
		return "[]" + typeString(t.Elem)
	case *ast.FuncType:
		return "fn(...)"
	default:
		return fmt.Sprintf("%T", t)
	}
}
