package lower

import (
	"fmt"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"

	"github.com/davy-yusuke/ecc/ast"
)

// funcGen lowers one FuncDecl's body, tracking the current insertion block
// and the scope chain of local bindings.
type funcGen struct {
	gen   *Generator
	f     *ir.Func
	cur   *ir.Block
	scope *scope

	retType   SourceType
	retIRType types.Type

	blockCounter int

	breakTargets    []*ir.Block
	continueTargets []*ir.Block
}

func (fgen *funcGen) blockName(prefix string) string {
	fgen.blockCounter++
	return fmt.Sprintf("%s%d", prefix, fgen.blockCounter)
}

// declLocal allocates a stack slot for name, stores init into it, and
// binds it in the current scope. Every local variable, whether scalar or
// pointer-typed, goes through this same path: reads Load the slot, writes
// Store into it. This folds the spec's "bind pointer parameters directly"
// special case into one uniform scheme, since a plain alloca+load/store
// handles pointer-typed locals (strings, structs, slices) exactly as well
// as scalars and keeps every binding reassignable.
func (fgen *funcGen) declLocal(name string, irType types.Type, st SourceType, init value.Value) {
	slot := fgen.cur.NewAlloca(irType)
	fgen.cur.NewStore(init, slot)
	fgen.scope.bind(name, binding{addr: slot, typ: st})
}

// funcDeclName mirrors the teacher's receiver-name-mangling convention:
// method-form declarations are emitted as "Receiver.method".
func funcDeclName(d *ast.FuncDecl) string {
	if d.OptionalReceiver != "" {
		return d.OptionalReceiver + "." + d.Name
	}
	return d.Name
}

// pendingFuncBody carries the state declareFuncProto computes, for
// lowerFuncBody to pick up after every function's signature has been
// registered -- this is what lets a function call one declared later in
// the same program.
type pendingFuncBody struct {
	decl       *ast.FuncDecl
	f          *ir.Func
	irParams   []*ir.Param
	paramSts   []SourceType
	paramNames []string
	retSt      SourceType
	retIRType  types.Type
}

// declareFuncProto registers a function's signature (and, for methods, its
// mangled name) without lowering its body, so later functions that call it
// can resolve the reference regardless of declaration order.
func (gen *Generator) declareFuncProto(d *ast.FuncDecl) *pendingFuncBody {
	name := funcDeclName(d)
	if _, ok := gen.funcs[name]; ok {
		gen.Errorf("function %q already declared", name)
		return nil
	}

	var irParams []*ir.Param
	var paramSts []SourceType
	var paramNames []string
	if d.OptionalReceiver != "" {
		recvIRType, recvSt := gen.resolveNamed(d.OptionalReceiver)
		irParams = append(irParams, ir.NewParam("self", recvIRType))
		paramSts = append(paramSts, recvSt)
		paramNames = append(paramNames, "self")
	}
	for _, p := range d.Params {
		pt, pst := gen.resolveType(p.Type)
		if p.Variadic {
			pst.ArrayDepth++
			pt = types.NewPointer(gen.arrayInternalType())
		}
		pst.FromParameter = true
		irParams = append(irParams, ir.NewParam(p.Name, pt))
		paramSts = append(paramSts, pst)
		paramNames = append(paramNames, p.Name)
	}

	retIRType := types.Type(types.Void)
	retSt := SourceType{Kind: KindVoid}
	if d.OptionalRetType != nil {
		retIRType, retSt = gen.resolveType(d.OptionalRetType)
	}

	f := gen.m.NewFunc(name, retIRType, irParams...)
	gen.funcs[name] = f
	gen.funcResults[name] = retSt

	return &pendingFuncBody{
		decl: d, f: f, irParams: irParams,
		paramSts: paramSts, paramNames: paramNames,
		retSt: retSt, retIRType: retIRType,
	}
}

// lowerFuncBody lowers one function's body, given its already-registered
// signature.
func (gen *Generator) lowerFuncBody(p *pendingFuncBody) {
	if p.decl.Body == nil {
		return
	}

	fgen := &funcGen{gen: gen, f: p.f, retType: p.retSt, retIRType: p.retIRType}
	fgen.scope = newScope(nil)
	fgen.cur = p.f.NewBlock("entry")

	for i, param := range p.irParams {
		fgen.declLocal(p.paramNames[i], param.Typ, p.paramSts[i], param)
	}

	fgen.lowerBlock(p.decl.Body)

	if fgen.cur.Term == nil {
		if types.Equal(p.retIRType, types.Void) {
			fgen.cur.NewRet(nil)
		} else {
			fgen.cur.NewRet(constant.NewZeroInitializer(p.retIRType))
		}
	}
}
