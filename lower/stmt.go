package lower

import (
	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/enum"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"

	"github.com/davy-yusuke/ecc/ast"
	"github.com/davy-yusuke/ecc/token"
)

// lowerBlock lowers every statement of a block into the current insertion
// block, stopping early (without emitting further IR) once the block has
// been terminated -- the "tolerate unreachable statements" choice for the
// dead-code-after-an-unconditional-branch question: trailing statements
// after break/continue/return are simply never lowered; nothing stops the
// generator from encountering them, they just produce no IR. Each block gets
// its own scope, which is popped when the block ends.
func (fgen *funcGen) lowerBlock(b *ast.BlockStmt) {
	outer := fgen.scope
	fgen.scope = newScope(outer)
	defer func() { fgen.scope = outer }()
	for _, s := range b.Stmts {
		if fgen.cur.Term != nil {
			return
		}
		fgen.lowerStmt(s)
	}
}

func (fgen *funcGen) lowerStmt(s ast.Stmt) {
	switch s := s.(type) {
	case *ast.ExprStmt:
		_, _, err := fgen.lowerExpr(s.X)
		if err != nil {
			fgen.gen.eh(err)
		}
	case *ast.ReturnStmt:
		fgen.lowerReturnStmt(s)
	case *ast.VarDecl:
		fgen.lowerVarDecl(s)
	case *ast.AssignStmt:
		fgen.lowerAssignStmt(s)
	case *ast.BlockStmt:
		fgen.lowerBlock(s)
	case *ast.IfStmt:
		fgen.lowerIfStmt(s)
	case *ast.ForStmt:
		fgen.lowerForStmt(s)
	case *ast.ForCStyleStmt:
		fgen.lowerForCStyleStmt(s)
	case *ast.ForInStmt:
		fgen.lowerForInStmt(s)
	case *ast.BreakStmt:
		fgen.lowerBreakStmt(s)
	case *ast.ContinueStmt:
		fgen.lowerContinueStmt(s)
	default:
		fgen.gen.Errorf("%v: unsupported statement %T", s.Pos(), s)
	}
}

// toCond reduces a condition value to i1: booleans pass through, floats
// compare ordered-not-equal to zero, everything else compares not-equal to
// zero (spec §4.5 IfStmt).
func (fgen *funcGen) toCond(v value.Value, st SourceType) value.Value {
	if st.Kind == KindBool && st.PointerDepth == 0 && st.ArrayDepth == 0 {
		return v
	}
	if isFloatKind(st) {
		return fgen.cur.NewFCmp(enum.FPredONE, v, constant.NewFloat(types.Double, 0))
	}
	zero := constant.NewInt(types.I64, 0)
	if it, ok := v.Type().(*types.IntType); ok {
		zero = constant.NewInt(it, 0)
	}
	return fgen.cur.NewICmp(enum.IPredNE, v, zero)
}

func (fgen *funcGen) lowerReturnStmt(s *ast.ReturnStmt) {
	if s.OptionalExpr == nil {
		fgen.cur.NewRet(nil)
		return
	}
	val, st, err := fgen.lowerExpr(s.OptionalExpr)
	if err != nil {
		fgen.gen.eh(err)
		return
	}
	val = fgen.coerce(val, st, fgen.retIRType, fgen.retType)
	fgen.cur.NewRet(val)
}

// lowerVarDecl allocates a slot sized to the initializer's (or declared
// type's) IR type and binds the name to it.
func (fgen *funcGen) lowerVarDecl(s *ast.VarDecl) {
	var irType types.Type
	var st SourceType

	if s.OptionalType != nil {
		irType, st = fgen.gen.resolveType(s.OptionalType)
	}

	if s.OptionalInit != nil {
		val, valSt, err := fgen.lowerExpr(s.OptionalInit)
		if err != nil {
			fgen.gen.eh(err)
			return
		}
		if s.OptionalType == nil {
			irType, st = val.Type(), valSt
		}
		val = fgen.coerce(val, valSt, irType, st)
		fgen.declLocal(s.Name, irType, st, val)
		return
	}

	// Declared with a type but no initializer: zero value.
	fgen.declLocal(s.Name, irType, st, constant.NewZeroInitializer(irType))
}

func (fgen *funcGen) lowerAssignStmt(s *ast.AssignStmt) {
	addr, elemIRType, elemSt, err := fgen.lvalueAddr(s.Target)
	if err != nil {
		fgen.gen.eh(err)
		return
	}
	rhs, rhsSt, err := fgen.lowerExpr(s.Value)
	if err != nil {
		fgen.gen.eh(err)
		return
	}
	rhs = fgen.coerce(rhs, rhsSt, elemIRType, elemSt)

	if s.Op == token.ASSIGN {
		fgen.cur.NewStore(rhs, addr)
		return
	}
	curVal := fgen.cur.NewLoad(elemIRType, addr)
	result, err := fgen.binOp(compoundBase(s.Op), curVal, rhs, elemSt)
	if err != nil {
		fgen.gen.eh(err)
		return
	}
	fgen.cur.NewStore(result, addr)
}

func (fgen *funcGen) lowerIfStmt(s *ast.IfStmt) {
	condVal, condSt, err := fgen.lowerExpr(s.Cond)
	if err != nil {
		fgen.gen.eh(err)
		return
	}
	cond := fgen.toCond(condVal, condSt)
	thenBlock := fgen.f.NewBlock(fgen.blockName("if.then"))
	mergeBlock := fgen.f.NewBlock(fgen.blockName("if.end"))

	if s.OptionalElse == nil {
		fgen.cur.NewCondBr(cond, thenBlock, mergeBlock)
		fgen.cur = thenBlock
		fgen.lowerBlock(s.Then)
		if fgen.cur.Term == nil {
			fgen.cur.NewBr(mergeBlock)
		}
		fgen.cur = mergeBlock
		return
	}

	elseBlock := fgen.f.NewBlock(fgen.blockName("if.else"))
	fgen.cur.NewCondBr(cond, thenBlock, elseBlock)

	fgen.cur = thenBlock
	fgen.lowerBlock(s.Then)
	if fgen.cur.Term == nil {
		fgen.cur.NewBr(mergeBlock)
	}

	fgen.cur = elseBlock
	fgen.lowerStmt(s.OptionalElse)
	if fgen.cur.Term == nil {
		fgen.cur.NewBr(mergeBlock)
	}

	fgen.cur = mergeBlock
}

func (fgen *funcGen) lowerForStmt(s *ast.ForStmt) {
	loopBlock := fgen.f.NewBlock(fgen.blockName("loop.body"))
	mergeBlock := fgen.f.NewBlock(fgen.blockName("loop.end"))

	fgen.cur.NewBr(loopBlock)
	fgen.cur = loopBlock

	fgen.pushLoop(mergeBlock, loopBlock)
	fgen.lowerBlock(s.Body)
	fgen.popLoop()

	if fgen.cur.Term == nil {
		fgen.cur.NewBr(loopBlock)
	}
	fgen.cur = mergeBlock
}

func (fgen *funcGen) lowerForCStyleStmt(s *ast.ForCStyleStmt) {
	if s.Init != nil {
		fgen.lowerStmt(s.Init)
	}
	condBlock := fgen.f.NewBlock(fgen.blockName("loop.cond"))
	bodyBlock := fgen.f.NewBlock(fgen.blockName("loop.body"))
	postBlock := fgen.f.NewBlock(fgen.blockName("loop.post"))
	mergeBlock := fgen.f.NewBlock(fgen.blockName("loop.end"))

	fgen.cur.NewBr(condBlock)
	fgen.cur = condBlock
	if s.OptionalCond != nil {
		condVal, condSt, err := fgen.lowerExpr(s.OptionalCond)
		if err != nil {
			fgen.gen.eh(err)
			return
		}
		fgen.cur.NewCondBr(fgen.toCond(condVal, condSt), bodyBlock, mergeBlock)
	} else {
		fgen.cur.NewBr(bodyBlock)
	}

	fgen.cur = bodyBlock
	fgen.pushLoop(mergeBlock, postBlock)
	fgen.lowerBlock(s.Body)
	fgen.popLoop()
	if fgen.cur.Term == nil {
		fgen.cur.NewBr(postBlock)
	}

	fgen.cur = postBlock
	if s.Post != nil {
		fgen.lowerStmt(s.Post)
	}
	if fgen.cur.Term == nil {
		fgen.cur.NewBr(condBlock)
	}

	fgen.cur = mergeBlock
}

// lowerForInStmt lowers `for x in iter`. Per spec §4.5, iter picks one of
// three shapes: a pointer/C string walks its i8 bytes until a zero byte,
// binding x as that byte zero-extended to i32; an integer or float (FP
// truncated to int) ranges x over 0..iter; a slice walks its elements --
// the slice case is a superset extension, not a narrowing of either.
func (fgen *funcGen) lowerForInStmt(s *ast.ForInStmt) {
	iterVal, iterSt, err := fgen.lowerExpr(s.Iterable)
	if err != nil {
		fgen.gen.eh(err)
		return
	}
	switch {
	case iterSt.IsSlice():
		fgen.lowerForInSlice(s, iterVal, iterSt)
	case iterSt.IsCString() || iterSt.PointerDepth > 0:
		fgen.lowerForInCString(s, iterVal)
	case isFloatKind(iterSt) || isIntKind(iterSt):
		fgen.lowerForInRange(s, iterVal, iterSt)
	default:
		fgen.gen.Errorf("%v: for-in requires a pointer, number, or slice, got %v", s.Position, iterSt.Kind)
	}
}

func (fgen *funcGen) lowerForInSlice(s *ast.ForInStmt, desc value.Value, iterSt SourceType) {
	elemSt := iterSt.elem()
	elemIRType := fgen.gen.elemIRType(elemSt)

	idxSlot := fgen.cur.NewAlloca(types.I64)
	fgen.cur.NewStore(constant.NewInt(types.I64, 0), idxSlot)

	condBlock := fgen.f.NewBlock(fgen.blockName("forin.cond"))
	bodyBlock := fgen.f.NewBlock(fgen.blockName("forin.body"))
	postBlock := fgen.f.NewBlock(fgen.blockName("forin.post"))
	mergeBlock := fgen.f.NewBlock(fgen.blockName("forin.end"))

	fgen.cur.NewBr(condBlock)
	fgen.cur = condBlock
	idx := fgen.cur.NewLoad(types.I64, idxSlot)
	length := fgen.arrayLen(desc)
	cmp := fgen.cur.NewICmp(enum.IPredSLT, idx, length)
	fgen.cur.NewCondBr(cmp, bodyBlock, mergeBlock)

	fgen.cur = bodyBlock
	elemAddr := fgen.indexAddress(desc, idx, elemSt)
	elemVal := fgen.cur.NewLoad(elemIRType, elemAddr)
	fgen.declLocal(s.Var, elemIRType, elemSt, elemVal)
	fgen.pushLoop(mergeBlock, postBlock)
	fgen.lowerBlock(s.Body)
	fgen.popLoop()
	if fgen.cur.Term == nil {
		fgen.cur.NewBr(postBlock)
	}

	fgen.cur = postBlock
	idx2 := fgen.cur.NewLoad(types.I64, idxSlot)
	inc := fgen.cur.NewAdd(idx2, constant.NewInt(types.I64, 1))
	fgen.cur.NewStore(inc, idxSlot)
	fgen.cur.NewBr(condBlock)

	fgen.cur = mergeBlock
}

// lowerForInCString walks the i8 bytes of a C string until a zero byte,
// binding the loop variable as the current byte zero-extended to i32.
func (fgen *funcGen) lowerForInCString(s *ast.ForInStmt, ptr value.Value) {
	idxSlot := fgen.cur.NewAlloca(types.I64)
	fgen.cur.NewStore(constant.NewInt(types.I64, 0), idxSlot)

	condBlock := fgen.f.NewBlock(fgen.blockName("forin.cond"))
	bodyBlock := fgen.f.NewBlock(fgen.blockName("forin.body"))
	postBlock := fgen.f.NewBlock(fgen.blockName("forin.post"))
	mergeBlock := fgen.f.NewBlock(fgen.blockName("forin.end"))

	fgen.cur.NewBr(condBlock)
	fgen.cur = condBlock
	idx := fgen.cur.NewLoad(types.I64, idxSlot)
	byteAddr := fgen.cur.NewGetElementPtr(types.I8, ptr, idx)
	byteVal := fgen.cur.NewLoad(types.I8, byteAddr)
	notZero := fgen.cur.NewICmp(enum.IPredNE, byteVal, constant.NewInt(types.I8, 0))
	fgen.cur.NewCondBr(notZero, bodyBlock, mergeBlock)

	fgen.cur = bodyBlock
	widened := fgen.cur.NewZExt(byteVal, types.I32)
	fgen.declLocal(s.Var, types.I32, SourceType{Kind: KindI32}, widened)
	fgen.pushLoop(mergeBlock, postBlock)
	fgen.lowerBlock(s.Body)
	fgen.popLoop()
	if fgen.cur.Term == nil {
		fgen.cur.NewBr(postBlock)
	}

	fgen.cur = postBlock
	inc := fgen.cur.NewAdd(fgen.cur.NewLoad(types.I64, idxSlot), constant.NewInt(types.I64, 1))
	fgen.cur.NewStore(inc, idxSlot)
	fgen.cur.NewBr(condBlock)

	fgen.cur = mergeBlock
}

// lowerForInRange ranges the loop variable over 0..n, where n is iter
// truncated to i32 (floats are truncated toward zero first).
func (fgen *funcGen) lowerForInRange(s *ast.ForInStmt, iterVal value.Value, iterSt SourceType) {
	limit := iterVal
	if isFloatKind(iterSt) {
		limit = fgen.cur.NewFPToSI(iterVal, types.I32)
	} else if it, ok := iterVal.Type().(*types.IntType); ok && it.BitSize != 32 {
		if it.BitSize < 32 {
			limit = fgen.cur.NewSExt(iterVal, types.I32)
		} else {
			limit = fgen.cur.NewTrunc(iterVal, types.I32)
		}
	}

	idxSlot := fgen.cur.NewAlloca(types.I32)
	fgen.cur.NewStore(constant.NewInt(types.I32, 0), idxSlot)

	condBlock := fgen.f.NewBlock(fgen.blockName("forin.cond"))
	bodyBlock := fgen.f.NewBlock(fgen.blockName("forin.body"))
	postBlock := fgen.f.NewBlock(fgen.blockName("forin.post"))
	mergeBlock := fgen.f.NewBlock(fgen.blockName("forin.end"))

	fgen.cur.NewBr(condBlock)
	fgen.cur = condBlock
	idx := fgen.cur.NewLoad(types.I32, idxSlot)
	cmp := fgen.cur.NewICmp(enum.IPredSLT, idx, limit)
	fgen.cur.NewCondBr(cmp, bodyBlock, mergeBlock)

	fgen.cur = bodyBlock
	fgen.declLocal(s.Var, types.I32, SourceType{Kind: KindI32}, idx)
	fgen.pushLoop(mergeBlock, postBlock)
	fgen.lowerBlock(s.Body)
	fgen.popLoop()
	if fgen.cur.Term == nil {
		fgen.cur.NewBr(postBlock)
	}

	fgen.cur = postBlock
	inc := fgen.cur.NewAdd(fgen.cur.NewLoad(types.I32, idxSlot), constant.NewInt(types.I32, 1))
	fgen.cur.NewStore(inc, idxSlot)
	fgen.cur.NewBr(condBlock)

	fgen.cur = mergeBlock
}

func (fgen *funcGen) pushLoop(breakTo, continueTo *ir.Block) {
	fgen.breakTargets = append(fgen.breakTargets, breakTo)
	fgen.continueTargets = append(fgen.continueTargets, continueTo)
}

func (fgen *funcGen) popLoop() {
	fgen.breakTargets = fgen.breakTargets[:len(fgen.breakTargets)-1]
	fgen.continueTargets = fgen.continueTargets[:len(fgen.continueTargets)-1]
}

func (fgen *funcGen) lowerBreakStmt(s *ast.BreakStmt) {
	if len(fgen.breakTargets) == 0 {
		fgen.gen.Errorf("%v: break outside of a loop", s.Position)
		return
	}
	fgen.cur.NewBr(fgen.breakTargets[len(fgen.breakTargets)-1])
}

func (fgen *funcGen) lowerContinueStmt(s *ast.ContinueStmt) {
	if len(fgen.continueTargets) == 0 {
		fgen.gen.Errorf("%v: continue outside of a loop", s.Position)
		return
	}
	fgen.cur.NewBr(fgen.continueTargets[len(fgen.continueTargets)-1])
}
