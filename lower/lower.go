// Package lower lowers an EC AST to LLVM IR assembly.
package lower

import (
	"strconv"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/types"
	"github.com/pkg/errors"
	"github.com/rickypai/natsort"

	"github.com/davy-yusuke/ecc/ast"
	"github.com/davy-yusuke/ecc/token"
)

// Lower lowers a parsed program to an LLVM IR module. Top-level work
// happens in three passes, each needing the previous one fully done before
// it starts: struct bodies must exist before any type is resolved, function
// signatures must all be registered before any body is lowered (so forward
// calls resolve), and globals are evaluated before bodies run since a
// function may reference a global declared later in the file.
func (gen *Generator) Lower(prog *ast.Program) *ir.Module {
	gen.prepareStructs(prog)
	gen.lowerGlobals(prog)

	var pending []*pendingFuncBody
	for _, d := range prog.Decls {
		fd, ok := d.(*ast.FuncDecl)
		if !ok {
			continue
		}
		if p := gen.declareFuncProto(fd); p != nil {
			pending = append(pending, p)
		}
	}
	for _, p := range pending {
		gen.lowerFuncBody(p)
	}

	gen.emitStructTypeDefs()
	return gen.m
}

// lowerGlobals lowers every top-level VarDecl (reached via StmtDecl, the
// grammar's wrapper for bare top-level statements) into a module-level
// global.
func (gen *Generator) lowerGlobals(prog *ast.Program) {
	for _, d := range prog.Decls {
		sd, ok := d.(*ast.StmtDecl)
		if !ok {
			continue
		}
		vd, ok := sd.Stmt.(*ast.VarDecl)
		if !ok {
			gen.Errorf("%v: only variable declarations are supported at top level", sd.Pos())
			continue
		}
		gen.lowerGlobalVarDecl(vd)
	}
}

func (gen *Generator) lowerGlobalVarDecl(vd *ast.VarDecl) {
	var irType types.Type
	var st SourceType
	if vd.OptionalType != nil {
		irType, st = gen.resolveType(vd.OptionalType)
	}

	if vd.OptionalInit == nil {
		if irType == nil {
			gen.Errorf("%v: global %q needs a type or an initializer", vd.Pos(), vd.Name)
			return
		}
		g := gen.m.NewGlobal(vd.Name, irType)
		gen.globals[vd.Name] = g
		gen.globalTypes[vd.Name] = st
		return
	}

	init, initSt, err := gen.lowerGlobalInitExpr(vd.OptionalInit)
	if err != nil {
		gen.eh(err)
		return
	}
	if irType == nil {
		st = initSt
	}
	g := gen.m.NewGlobalDef(vd.Name, init)
	gen.globals[vd.Name] = g
	gen.globalTypes[vd.Name] = st
}

// lowerGlobalInitExpr lowers a global variable's initializer. Only literals
// have a ready-made constant IR representation, matching what a module-
// level LLVM IR global can hold without a constructor.
func (gen *Generator) lowerGlobalInitExpr(e ast.Expr) (constant.Constant, SourceType, error) {
	lit, ok := e.(*ast.Literal)
	if !ok {
		return nil, SourceType{}, gen.Errorf("%v: unsupported global initializer %T", e.Pos(), e)
	}
	switch lit.TokenKind {
	case token.INT:
		v, err := strconv.ParseInt(lit.Raw, 0, 64)
		if err != nil {
			return nil, SourceType{}, errors.WithStack(err)
		}
		return constant.NewInt(types.I32, v), SourceType{Kind: KindI32}, nil
	case token.FLOAT:
		v, err := strconv.ParseFloat(lit.Raw, 64)
		if err != nil {
			return nil, SourceType{}, errors.WithStack(err)
		}
		return constant.NewFloat(types.Double, v), SourceType{Kind: KindF64}, nil
	case token.STRING:
		return gen.globalCString(unescapeRaw(lit.Raw)), SourceType{Kind: KindString}, nil
	case token.CHAR:
		s := unescapeRaw(lit.Raw)
		var b byte
		if len(s) > 0 {
			b = s[0]
		}
		return constant.NewInt(types.I8, int64(b)), SourceType{Kind: KindByte}, nil
	case token.TRUE:
		return constant.NewInt(types.I1, 1), SourceType{Kind: KindBool}, nil
	case token.FALSE:
		return constant.NewInt(types.I1, 0), SourceType{Kind: KindBool}, nil
	default:
		return nil, SourceType{}, gen.Errorf("%v: unsupported global literal kind %v", lit.Pos(), lit.TokenKind)
	}
}

// emitStructTypeDefs appends every named struct type to the module in
// deterministic natural-sort order, once all field bodies have been set.
func (gen *Generator) emitStructTypeDefs() {
	var names []string
	for name := range gen.structs {
		names = append(names, name)
	}
	natsort.Strings(names)
	for _, name := range names {
		info := gen.structs[name]
		gen.m.NewTypeDef(name, info.irType)
	}
}
