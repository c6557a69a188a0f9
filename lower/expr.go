package lower

import (
	"strconv"
	"strings"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/enum"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"
	"github.com/pkg/errors"

	"github.com/davy-yusuke/ecc/ast"
	"github.com/davy-yusuke/ecc/token"
)

// lowerExpr lowers an expression, returning its IR value and SourceType.
func (fgen *funcGen) lowerExpr(e ast.Expr) (value.Value, SourceType, error) {
	switch e := e.(type) {
	case *ast.Ident:
		return fgen.lowerIdent(e)
	case *ast.Literal:
		return fgen.lowerLiteral(e)
	case *ast.UnaryExpr:
		return fgen.lowerUnaryExpr(e)
	case *ast.BinaryExpr:
		return fgen.lowerBinaryExpr(e)
	case *ast.CallExpr:
		return fgen.lowerCallExpr(e)
	case *ast.MemberExpr:
		return fgen.lowerMemberExpr(e)
	case *ast.IndexExpr:
		return fgen.lowerIndexExpr(e)
	case *ast.PostfixExpr:
		return fgen.lowerPostfixExpr(e)
	case *ast.ArrayLiteral:
		return fgen.lowerArrayLiteral(e)
	case *ast.ByteArrayLiteral:
		return fgen.lowerByteArrayLiteral(e)
	case *ast.StructLiteral:
		return fgen.lowerStructLiteral(e)
	default:
		return nil, SourceType{}, errors.Errorf("%v: unsupported expression %T", e.Pos(), e)
	}
}

func (fgen *funcGen) lowerIdent(e *ast.Ident) (value.Value, SourceType, error) {
	if b, ok := fgen.scope.lookup(e.Name); ok {
		irType := fgen.gen.slotIRType(b.typ)
		return fgen.cur.NewLoad(irType, b.addr), b.typ, nil
	}
	if g, ok := fgen.gen.globals[e.Name]; ok {
		return fgen.cur.NewLoad(g.ContentType, g), fgen.gen.globalTypes[e.Name], nil
	}
	if f, ok := fgen.gen.funcs[e.Name]; ok {
		return f, SourceType{Kind: KindFunc}, nil
	}
	return nil, SourceType{}, errors.Errorf("%v: undefined identifier %q", e.Pos(), e.Name)
}

// slotIRType is the IR type stored at a binding's stack slot: the IR
// representation of its SourceType.
func (gen *Generator) slotIRType(st SourceType) types.Type {
	if st.ArrayDepth > 0 {
		return types.NewPointer(gen.arrayInternalType())
	}
	base := gen.irTypeForKind(st)
	for i := 0; i < st.PointerDepth; i++ {
		base = types.NewPointer(base)
	}
	return base
}

func (fgen *funcGen) lowerLiteral(e *ast.Literal) (value.Value, SourceType, error) {
	switch e.TokenKind {
	case token.INT:
		v, err := strconv.ParseInt(e.Raw, 0, 64)
		if err != nil {
			return nil, SourceType{}, errors.WithStack(err)
		}
		return constant.NewInt(types.I32, v), SourceType{Kind: KindI32}, nil
	case token.FLOAT:
		v, err := strconv.ParseFloat(e.Raw, 64)
		if err != nil {
			return nil, SourceType{}, errors.WithStack(err)
		}
		return constant.NewFloat(types.Double, v), SourceType{Kind: KindF64}, nil
	case token.STRING:
		return fgen.gen.globalCString(unescapeRaw(e.Raw)), SourceType{Kind: KindString}, nil
	case token.CHAR:
		s := unescapeRaw(e.Raw)
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
		return nil, SourceType{}, errors.Errorf("%v: unsupported literal kind %v", e.Pos(), e.TokenKind)
	}
}

// unescapeRaw strips the surrounding quotes a literal's raw lexeme carries
// and resolves backslash escapes with decodeEscapes, which accepts the
// lexer's escapes (\n \t \\ \" \xHH) plus \r, \0 and \'. A backtick raw
// string only has its backticks stripped.
func unescapeRaw(raw string) string {
	if len(raw) >= 2 && raw[0] == '`' {
		return raw[1 : len(raw)-1]
	}
	s := raw
	if len(s) >= 2 && (s[0] == '"' || s[0] == '\'') {
		s = s[1 : len(s)-1]
	}
	return decodeEscapes(s)
}

func decodeEscapes(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] != '\\' || i+1 >= len(s) {
			b.WriteByte(s[i])
			continue
		}
		i++
		switch s[i] {
		case 'n':
			b.WriteByte('\n')
		case 't':
			b.WriteByte('\t')
		case 'r':
			b.WriteByte('\r')
		case '0':
			b.WriteByte(0)
		case '\\':
			b.WriteByte('\\')
		case '"':
			b.WriteByte('"')
		case '\'':
			b.WriteByte('\'')
		case 'x':
			if i+2 < len(s) {
				if v, err := strconv.ParseUint(s[i+1:i+3], 16, 8); err == nil {
					b.WriteByte(byte(v))
					i += 2
					continue
				}
			}
			b.WriteByte('x')
		default:
			b.WriteByte(s[i])
		}
	}
	return b.String()
}

// globalCString interns str as a private nul-terminated global constant
// and returns an i8* pointing at its first byte.
func (gen *Generator) globalCString(str string) constant.Constant {
	gen.strCounter++
	name := ".str." + strconv.Itoa(gen.strCounter)
	data := constant.NewCharArrayFromString(str + "\x00")
	g := gen.m.NewGlobalDef(name, data)
	g.Immutable = true
	zero := constant.NewInt(types.I64, 0)
	return constant.NewGetElementPtr(data.Type(), g, zero, zero)
}

func (fgen *funcGen) lowerUnaryExpr(e *ast.UnaryExpr) (value.Value, SourceType, error) {
	switch e.Op {
	case token.ADDRESS_OF:
		addr, elemIRType, elemSt, err := fgen.lvalueAddr(e.Rhs)
		if err != nil {
			return nil, SourceType{}, err
		}
		_ = elemIRType
		st := elemSt
		st.PointerDepth++
		return addr, st, nil
	case token.DEREF:
		v, st, err := fgen.lowerExpr(e.Rhs)
		if err != nil {
			return nil, SourceType{}, err
		}
		if st.PointerDepth == 0 {
			return nil, SourceType{}, errors.Errorf("%v: cannot dereference non-pointer value", e.Pos())
		}
		deref := st.deref()
		return fgen.cur.NewLoad(fgen.gen.slotIRType(deref), v), deref, nil
	case token.MINUS:
		v, st, err := fgen.lowerExpr(e.Rhs)
		if err != nil {
			return nil, SourceType{}, err
		}
		if isFloatKind(st) {
			return fgen.cur.NewFNeg(v), st, nil
		}
		return fgen.cur.NewSub(constant.NewInt(v.Type().(*types.IntType), 0), v), st, nil
	case token.PLUS:
		return fgen.lowerExpr(e.Rhs)
	case token.BANG:
		v, _, err := fgen.lowerExpr(e.Rhs)
		if err != nil {
			return nil, SourceType{}, err
		}
		isZero := fgen.cur.NewICmp(enum.IPredEQ, v, constant.NewInt(v.Type().(*types.IntType), 0))
		result := fgen.cur.NewZExt(isZero, types.I32)
		return result, SourceType{Kind: KindI32}, nil
	case token.INC, token.DEC:
		addr, elemIRType, elemSt, err := fgen.lvalueAddr(e.Rhs)
		if err != nil {
			return nil, SourceType{}, err
		}
		cur := fgen.cur.NewLoad(elemIRType, addr)
		delta := token.PLUS
		if e.Op == token.DEC {
			delta = token.MINUS
		}
		one, _, _ := fgen.lowerExpr(&ast.Literal{Raw: "1", TokenKind: token.INT})
		next, err := fgen.binOp(delta, cur, one, elemSt)
		if err != nil {
			return nil, SourceType{}, err
		}
		fgen.cur.NewStore(next, addr)
		return next, elemSt, nil
	default:
		return nil, SourceType{}, errors.Errorf("%v: unsupported unary operator %v", e.Pos(), e.Op)
	}
}

func (fgen *funcGen) lowerPostfixExpr(e *ast.PostfixExpr) (value.Value, SourceType, error) {
	addr, elemIRType, elemSt, err := fgen.lvalueAddr(e.Lhs)
	if err != nil {
		return nil, SourceType{}, err
	}
	cur := fgen.cur.NewLoad(elemIRType, addr)
	delta := token.PLUS
	if e.Op == token.DEC {
		delta = token.MINUS
	}
	one, _, _ := fgen.lowerExpr(&ast.Literal{Raw: "1", TokenKind: token.INT})
	next, err := fgen.binOp(delta, cur, one, elemSt)
	if err != nil {
		return nil, SourceType{}, err
	}
	fgen.cur.NewStore(next, addr)
	return cur, elemSt, nil
}

func isFloatKind(st SourceType) bool {
	return st.PointerDepth == 0 && st.ArrayDepth == 0 && (st.Kind == KindF32 || st.Kind == KindF64)
}

func isIntKind(st SourceType) bool {
	return st.PointerDepth == 0 && st.ArrayDepth == 0 &&
		(st.Kind == KindI32 || st.Kind == KindI64 || st.Kind == KindByte || st.Kind == KindBool)
}

// compoundBase strips the "=" off a compound-assignment operator kind,
// returning the plain arithmetic operator it applies.
func compoundBase(op token.Kind) token.Kind {
	switch op {
	case token.PLUS_EQ:
		return token.PLUS
	case token.MINUS_EQ:
		return token.MINUS
	case token.STAR_EQ:
		return token.STAR
	case token.SLASH_EQ:
		return token.SLASH
	case token.PERCENT_EQ:
		return token.PERCENT
	default:
		return op
	}
}

// binOp lowers a binary operator over two already-lowered operands of
// SourceType st (the operands' common type after any coercion the caller
// performed).
func (fgen *funcGen) binOp(op token.Kind, x, y value.Value, st SourceType) (value.Value, error) {
	float := isFloatKind(st)
	switch op {
	case token.PLUS:
		if float {
			return fgen.cur.NewFAdd(x, y), nil
		}
		return fgen.cur.NewAdd(x, y), nil
	case token.MINUS:
		if float {
			return fgen.cur.NewFSub(x, y), nil
		}
		return fgen.cur.NewSub(x, y), nil
	case token.STAR, token.DEREF:
		if float {
			return fgen.cur.NewFMul(x, y), nil
		}
		return fgen.cur.NewMul(x, y), nil
	case token.SLASH:
		zero := fgen.zeroOf(y.Type(), float)
		fgen.guardDivByZero(y, zero, float)
		if float {
			return fgen.cur.NewFDiv(x, y), nil
		}
		return fgen.cur.NewSDiv(x, y), nil
	case token.PERCENT:
		zero := fgen.zeroOf(y.Type(), float)
		fgen.guardDivByZero(y, zero, float)
		if float {
			return fgen.cur.NewFRem(x, y), nil
		}
		return fgen.cur.NewSRem(x, y), nil
	case token.SHL:
		return fgen.cur.NewShl(x, y), nil
	case token.SHR:
		return fgen.cur.NewAShr(x, y), nil
	case token.BIT_AND:
		return fgen.cur.NewAnd(x, y), nil
	case token.PIPE:
		return fgen.cur.NewOr(x, y), nil
	case token.CARET:
		return fgen.cur.NewXor(x, y), nil
	case token.LAND:
		return fgen.cur.NewAnd(x, y), nil
	case token.LOR:
		return fgen.cur.NewOr(x, y), nil
	case token.EQ, token.NEQ, token.LT, token.GT, token.LE, token.GE:
		if float {
			return fgen.cur.NewFCmp(floatPred(op), x, y), nil
		}
		return fgen.cur.NewICmp(intPred(op), x, y), nil
	default:
		return nil, errors.Errorf("unsupported binary operator %v", op)
	}
}

// zeroOf builds the zero constant of t, as either value.Value, matching
// int or float as indicated by float.
func (fgen *funcGen) zeroOf(t types.Type, float bool) value.Value {
	if float {
		return constant.NewFloat(t.(*types.FloatType), 0)
	}
	return constant.NewInt(t.(*types.IntType), 0)
}

// guardDivByZero emits a zero-compare and conditional branch to a trap
// block that exits the process before a division or modulo by divisor,
// matching the bounds-check trap used for slice indexing.
func (fgen *funcGen) guardDivByZero(divisor, zero value.Value, float bool) {
	var nonzero value.Value
	if float {
		nonzero = fgen.cur.NewFCmp(enum.FPredONE, divisor, zero)
	} else {
		nonzero = fgen.cur.NewICmp(enum.IPredNE, divisor, zero)
	}

	okBlock := fgen.f.NewBlock(fgen.blockName("div.ok"))
	trapBlock := fgen.f.NewBlock(fgen.blockName("div.trap"))
	fgen.cur.NewCondBr(nonzero, okBlock, trapBlock)

	fgen.cur = trapBlock
	fgen.cur.NewCall(fgen.gen.declareForeign("exit"), constant.NewInt(types.I32, 1))
	fgen.cur.NewUnreachable()

	fgen.cur = okBlock
}

func intPred(op token.Kind) enum.IPred {
	switch op {
	case token.EQ:
		return enum.IPredEQ
	case token.NEQ:
		return enum.IPredNE
	case token.LT:
		return enum.IPredSLT
	case token.GT:
		return enum.IPredSGT
	case token.LE:
		return enum.IPredSLE
	default:
		return enum.IPredSGE
	}
}

func floatPred(op token.Kind) enum.FPred {
	switch op {
	case token.EQ:
		return enum.FPredOEQ
	case token.NEQ:
		return enum.FPredONE
	case token.LT:
		return enum.FPredOLT
	case token.GT:
		return enum.FPredOGT
	case token.LE:
		return enum.FPredOLE
	default:
		return enum.FPredOGE
	}
}

func (fgen *funcGen) lowerBinaryExpr(e *ast.BinaryExpr) (value.Value, SourceType, error) {
	x, xst, err := fgen.lowerExpr(e.Left)
	if err != nil {
		return nil, SourceType{}, err
	}
	y, yst, err := fgen.lowerExpr(e.Right)
	if err != nil {
		return nil, SourceType{}, err
	}
	st := xst
	if isFloatKind(xst) || isFloatKind(yst) {
		st = SourceType{Kind: KindF64}
		x = fgen.coerce(x, xst, types.Double, st)
		y = fgen.coerce(y, yst, types.Double, st)
	}
	result, err := fgen.binOp(e.Op, x, y, st)
	if err != nil {
		return nil, SourceType{}, errors.Wrapf(err, "%v", e.Position)
	}
	switch e.Op {
	case token.EQ, token.NEQ, token.LT, token.GT, token.LE, token.GE, token.LAND, token.LOR:
		return result, SourceType{Kind: KindBool}, nil
	default:
		return result, st, nil
	}
}

// coerce converts val (of SourceType from) to toIRType/to, widening or
// narrowing integers, converting between integers and floats, and passing
// pointer-like values through unchanged.
func (fgen *funcGen) coerce(val value.Value, from SourceType, toIRType types.Type, to SourceType) value.Value {
	if to.ArrayDepth > 0 || to.PointerDepth > 0 || to.Kind == KindStruct || to.Kind == KindString || to.Kind == KindFunc {
		return val
	}
	fromFloat := isFloatKind(from)
	toFloat := isFloatKind(to)
	switch {
	case fromFloat && toFloat:
		if types.Equal(val.Type(), toIRType) {
			return val
		}
		if types.Equal(toIRType, types.Double) {
			return fgen.cur.NewFPExt(val, types.Double)
		}
		return fgen.cur.NewFPTrunc(val, types.Float)
	case fromFloat && !toFloat:
		return fgen.cur.NewFPToSI(val, toIRType)
	case !fromFloat && toFloat:
		return fgen.cur.NewSIToFP(val, toIRType)
	default:
		fromIT, fromOK := val.Type().(*types.IntType)
		toIT, toOK := toIRType.(*types.IntType)
		if !fromOK || !toOK || fromIT.BitSize == toIT.BitSize {
			return val
		}
		if fromIT.BitSize < toIT.BitSize {
			return fgen.cur.NewSExt(val, toIRType)
		}
		return fgen.cur.NewTrunc(val, toIRType)
	}
}

// lvalueAddr resolves e to an assignable memory address, its element IR
// type, and its element SourceType.
func (fgen *funcGen) lvalueAddr(e ast.Expr) (value.Value, types.Type, SourceType, error) {
	switch e := e.(type) {
	case *ast.Ident:
		if b, ok := fgen.scope.lookup(e.Name); ok {
			return b.addr, fgen.gen.slotIRType(b.typ), b.typ, nil
		}
		if g, ok := fgen.gen.globals[e.Name]; ok {
			return g, g.ContentType, fgen.gen.globalTypes[e.Name], nil
		}
		return nil, nil, SourceType{}, errors.Errorf("%v: undefined identifier %q", e.Pos(), e.Name)
	case *ast.UnaryExpr:
		if e.Op != token.DEREF {
			break
		}
		v, st, err := fgen.lowerExpr(e.Rhs)
		if err != nil {
			return nil, nil, SourceType{}, err
		}
		deref := st.deref()
		return v, fgen.gen.slotIRType(deref), deref, nil
	case *ast.IndexExpr:
		desc, collSt, err := fgen.lowerExpr(e.Collection)
		if err != nil {
			return nil, nil, SourceType{}, err
		}
		idx, _, err := fgen.lowerExpr(e.Index)
		if err != nil {
			return nil, nil, SourceType{}, err
		}
		if collSt.IsCString() {
			addr := fgen.cur.NewGetElementPtr(types.I8, desc, fgen.toI64(idx))
			return addr, types.I8, SourceType{Kind: KindByte}, nil
		}
		elemSt := collSt.elem()
		addr := fgen.indexAddress(desc, fgen.toI64(idx), elemSt)
		return addr, fgen.gen.elemIRType(elemSt), elemSt, nil
	case *ast.MemberExpr:
		return fgen.memberAddr(e)
	}
	return nil, nil, SourceType{}, errors.Errorf("%v: expression is not assignable", e.Pos())
}

// memberAddr resolves Object.Member to a field address using an exact
// name lookup against the struct's declaration (no fuzzy matching).
func (fgen *funcGen) memberAddr(e *ast.MemberExpr) (value.Value, types.Type, SourceType, error) {
	objAddr, _, objSt, err := fgen.lvalueAddr(e.Object)
	if err != nil {
		// The object may itself be a non-addressable expression that
		// nonetheless evaluates to a struct pointer (e.g. a call result).
		v, st, err2 := fgen.lowerExpr(e.Object)
		if err2 != nil {
			return nil, nil, SourceType{}, err
		}
		objAddr, objSt = v, st
	} else {
		objAddr = fgen.cur.NewLoad(fgen.gen.slotIRType(objSt), objAddr)
	}
	if objSt.Kind != KindStruct {
		return nil, nil, SourceType{}, errors.Errorf("%v: member access on non-struct value", e.Pos())
	}
	info := fgen.gen.structs[objSt.StructName]
	if info == nil || info.decl == nil {
		return nil, nil, SourceType{}, errors.Errorf("%v: unknown struct %q", e.Pos(), objSt.StructName)
	}
	idx, ok := fieldIndex(info.decl, e.Member)
	if !ok {
		return nil, nil, SourceType{}, errors.Errorf("%v: struct %q has no field %q", e.Pos(), objSt.StructName, e.Member)
	}
	fieldType, fieldSt := fgen.gen.resolveType(info.decl.Fields[idx].Type)
	addr := fgen.cur.NewGetElementPtr(info.irType, objAddr,
		constant.NewInt(types.I32, 0), constant.NewInt(types.I32, int64(idx)))
	return addr, fieldType, fieldSt, nil
}

func (fgen *funcGen) lowerMemberExpr(e *ast.MemberExpr) (value.Value, SourceType, error) {
	addr, elemIRType, elemSt, err := fgen.memberAddr(e)
	if err != nil {
		return nil, SourceType{}, err
	}
	return fgen.cur.NewLoad(elemIRType, addr), elemSt, nil
}

// lowerIndexExpr lowers a[i]. A byte read (either from a raw C string or a
// []byte slice) is zero-extended to i32 (spec §4.6); elements of any other
// type are loaded at their own IR type.
func (fgen *funcGen) lowerIndexExpr(e *ast.IndexExpr) (value.Value, SourceType, error) {
	addr, elemIRType, elemSt, err := fgen.lvalueAddr(e)
	if err != nil {
		return nil, SourceType{}, err
	}
	val := fgen.cur.NewLoad(elemIRType, addr)
	if elemSt.Kind == KindByte && elemSt.PointerDepth == 0 && elemSt.ArrayDepth == 0 {
		return fgen.cur.NewZExt(val, types.I32), SourceType{Kind: KindI32}, nil
	}
	return val, elemSt, nil
}

// builtinNames is the fixed set of call-position identifiers intercepted
// before normal call lowering (spec §4.4).
var builtinNames = map[string]bool{
	"println": true, "printf": true, "sprintf": true,
	"len": true, "append": true, "cast": true, "new": true,
}

func (fgen *funcGen) lowerCallExpr(e *ast.CallExpr) (value.Value, SourceType, error) {
	if id, ok := e.Callee.(*ast.Ident); ok && builtinNames[id.Name] {
		return fgen.lowerBuiltinCall(id.Name, e)
	}

	callee, calleeSt, err := fgen.callTarget(e.Callee)
	if err != nil {
		return nil, SourceType{}, err
	}
	var args []value.Value
	for _, a := range e.Args {
		v, _, err := fgen.lowerExpr(a)
		if err != nil {
			return nil, SourceType{}, err
		}
		args = append(args, v)
	}
	result := fgen.cur.NewCall(callee, args...)
	if types.Equal(callee.Sig.RetType, types.Void) {
		return result, SourceType{Kind: KindVoid}, nil
	}
	return result, calleeSt, nil
}

// callTarget resolves a call's callee to an *ir.Func and the
// SourceType of its result, handling direct name references and foreign
// runtime symbols declared on demand.
func (fgen *funcGen) callTarget(callee ast.Expr) (*ir.Func, SourceType, error) {
	id, ok := callee.(*ast.Ident)
	if !ok {
		return nil, SourceType{}, errors.Errorf("%v: indirect calls are not supported", callee.Pos())
	}
	if f, ok := fgen.gen.funcs[id.Name]; ok {
		return f, fgen.gen.funcResultType(id.Name), nil
	}
	if isForeign(id.Name) {
		f := fgen.gen.declareForeign(id.Name)
		return f, foreignResultKind(id.Name), nil
	}
	return nil, SourceType{}, errors.Errorf("%v: undefined function %q", id.Pos(), id.Name)
}

func foreignResultKind(name string) SourceType {
	sig := foreignTable[name]
	switch {
	case types.Equal(sig.ret, types.Double), types.Equal(sig.ret, types.Float):
		return SourceType{Kind: KindF64}
	case types.Equal(sig.ret, i8p):
		return SourceType{Kind: KindString}
	case types.Equal(sig.ret, types.Void):
		return SourceType{Kind: KindVoid}
	default:
		return SourceType{Kind: KindI32}
	}
}

func (fgen *funcGen) lowerBuiltinCall(name string, e *ast.CallExpr) (value.Value, SourceType, error) {
	switch name {
	case "println":
		return fgen.lowerPrintln(e)
	case "printf":
		return fgen.lowerPassthroughPrint("printf", e.Args)
	case "sprintf":
		return fgen.lowerSprintf(e)
	case "len":
		return fgen.lowerLen(e)
	case "append":
		return fgen.lowerAppendCall(e)
	case "cast":
		return fgen.lowerCast(e)
	case "new":
		return fgen.lowerNew(e)
	}
	return nil, SourceType{}, errors.Errorf("%v: unhandled builtin %q", e.Pos(), name)
}

func (fgen *funcGen) lowerPrintln(e *ast.CallExpr) (value.Value, SourceType, error) {
	var format strings.Builder
	var args []value.Value
	for i, a := range e.Args {
		v, st, err := fgen.lowerExpr(a)
		if err != nil {
			return nil, SourceType{}, err
		}
		if i > 0 {
			format.WriteByte(' ')
		}
		switch {
		case st.PointerDepth > 0 || st.Kind == KindString || st.Kind == KindStruct:
			format.WriteString("%s")
		case isFloatKind(st):
			format.WriteString("%f")
			v = fgen.coerce(v, st, types.Double, SourceType{Kind: KindF64})
		default:
			format.WriteString("%lld")
			v = fgen.toI64(v)
		}
		args = append(args, v)
	}
	format.WriteByte('\n')
	fmtVal := fgen.gen.globalCString(format.String())
	callArgs := append([]value.Value{fmtVal}, args...)
	result := fgen.cur.NewCall(fgen.gen.declareForeign("printf"), callArgs...)
	return result, SourceType{Kind: KindI32}, nil
}

func (fgen *funcGen) lowerPassthroughPrint(sym string, exprArgs []ast.Expr) (value.Value, SourceType, error) {
	var args []value.Value
	for _, a := range exprArgs {
		v, _, err := fgen.lowerExpr(a)
		if err != nil {
			return nil, SourceType{}, err
		}
		args = append(args, v)
	}
	result := fgen.cur.NewCall(fgen.gen.declareForeign(sym), args...)
	return result, SourceType{Kind: KindI32}, nil
}

func (fgen *funcGen) lowerSprintf(e *ast.CallExpr) (value.Value, SourceType, error) {
	if len(e.Args) < 2 {
		return nil, SourceType{}, errors.Errorf("%v: sprintf requires a destination and a format", e.Pos())
	}
	dst, dstSt, err := fgen.lowerExpr(e.Args[0])
	if err != nil {
		return nil, SourceType{}, err
	}
	dst = fgen.coerce(dst, dstSt, types.NewPointer(types.I8), SourceType{Kind: KindString})
	args := []value.Value{dst}
	for _, a := range e.Args[1:] {
		v, _, err := fgen.lowerExpr(a)
		if err != nil {
			return nil, SourceType{}, err
		}
		args = append(args, v)
	}
	result := fgen.cur.NewCall(fgen.gen.declareForeign("sprintf"), args...)
	return result, SourceType{Kind: KindI32}, nil
}

func (fgen *funcGen) lowerLen(e *ast.CallExpr) (value.Value, SourceType, error) {
	if len(e.Args) != 1 {
		return nil, SourceType{}, errors.Errorf("%v: len takes exactly one argument", e.Pos())
	}
	v, st, err := fgen.lowerExpr(e.Args[0])
	if err != nil {
		return nil, SourceType{}, err
	}
	if st.IsCString() {
		call := fgen.cur.NewCall(fgen.gen.declareForeign("strlen"), v)
		return fgen.cur.NewTrunc(call, types.I32), SourceType{Kind: KindI32}, nil
	}
	length := fgen.arrayLen(v)
	return fgen.cur.NewTrunc(length, types.I32), SourceType{Kind: KindI32}, nil
}

func (fgen *funcGen) lowerAppendCall(e *ast.CallExpr) (value.Value, SourceType, error) {
	if len(e.Args) != 2 {
		return nil, SourceType{}, errors.Errorf("%v: append takes a slice and an element", e.Pos())
	}
	desc, sliceSt, err := fgen.lowerExpr(e.Args[0])
	if err != nil {
		return nil, SourceType{}, err
	}
	elemSt := sliceSt.elem()
	elemVal, elemValSt, err := fgen.lowerExpr(e.Args[1])
	if err != nil {
		return nil, SourceType{}, err
	}
	elemVal = fgen.coerce(elemVal, elemValSt, fgen.gen.elemIRType(elemSt), elemSt)
	result := fgen.appendElement(desc, elemVal, elemSt)
	return result, sliceSt, nil
}

// castTypeName reads a bare type name out of cast/new's first argument,
// which the grammar allows to be an identifier standing for a type.
func castTypeName(e ast.Expr) (string, bool) {
	id, ok := e.(*ast.Ident)
	if !ok {
		return "", false
	}
	return id.Name, true
}

func (fgen *funcGen) lowerCast(e *ast.CallExpr) (value.Value, SourceType, error) {
	if len(e.Args) != 2 {
		return nil, SourceType{}, errors.Errorf("%v: cast takes a type and a value", e.Pos())
	}
	typeName, ok := castTypeName(e.Args[0])
	if !ok {
		return nil, SourceType{}, errors.Errorf("%v: cast's first argument must name a type", e.Pos())
	}
	destIRType, destSt := fgen.gen.resolveNamed(typeName)

	v, srcSt, err := fgen.lowerExpr(e.Args[1])
	if err != nil {
		return nil, SourceType{}, err
	}

	if srcSt.IsCString() && isIntKind(destSt) {
		call := fgen.cur.NewCall(fgen.gen.declareForeign("atoi"), v)
		return fgen.coerce(call, SourceType{Kind: KindI32}, destIRType, destSt), destSt, nil
	}
	if srcSt.IsCString() && isFloatKind(destSt) {
		call := fgen.cur.NewCall(fgen.gen.declareForeign("atof"), v)
		return fgen.coerce(call, SourceType{Kind: KindF64}, destIRType, destSt), destSt, nil
	}
	if (isIntKind(srcSt) || isFloatKind(srcSt)) && destSt.Kind == KindString {
		return nil, SourceType{}, errors.Errorf("%v: numeric-to-string cast is not supported", e.Pos())
	}
	return fgen.coerce(v, srcSt, destIRType, destSt), destSt, nil
}

func (fgen *funcGen) lowerNew(e *ast.CallExpr) (value.Value, SourceType, error) {
	if len(e.Args) != 1 {
		return nil, SourceType{}, errors.Errorf("%v: new takes exactly one type argument", e.Pos())
	}
	typeName, ok := castTypeName(e.Args[0])
	if !ok {
		return nil, SourceType{}, errors.Errorf("%v: new's argument must name a type", e.Pos())
	}
	elemIRType, elemSt := fgen.gen.resolveNamed(typeName)
	elemSize := elemSizeBytes(elemSt)

	descPtrType := types.NewPointer(fgen.gen.arrayInternalType())
	raw := fgen.cur.NewCall(fgen.gen.declareForeign("malloc"), constant.NewInt(types.I64, arrayDescriptorSize))
	desc := fgen.cur.NewBitCast(raw, descPtrType)
	fgen.cur.NewStore(constant.NewNull(types.NewPointer(types.I8)), fgen.cur.NewGetElementPtr(fgen.gen.arrayInternalType(), desc, constant.NewInt(types.I32, 0), constant.NewInt(types.I32, 0)))
	fgen.cur.NewStore(constant.NewInt(types.I64, 0), fgen.arrayLenPtr(desc))
	fgen.cur.NewStore(constant.NewInt(types.I64, 0), fgen.arrayCapPtr(desc))
	fgen.cur.NewStore(constant.NewInt(types.I64, elemSize), fgen.cur.NewGetElementPtr(fgen.gen.arrayInternalType(), desc, constant.NewInt(types.I32, 0), constant.NewInt(types.I32, 3)))

	elemSt.ArrayDepth++
	_ = elemIRType
	return desc, elemSt, nil
}

func (fgen *funcGen) lowerArrayLiteral(e *ast.ArrayLiteral) (value.Value, SourceType, error) {
	var elemSt SourceType
	var elemIRType types.Type
	if e.OptionalType != nil {
		elemIRType, elemSt = fgen.gen.resolveType(e.OptionalType)
	} else if len(e.Elements) > 0 {
		_, firstSt, err := fgen.lowerExpr(e.Elements[0])
		if err != nil {
			return nil, SourceType{}, err
		}
		elemSt = firstSt
		elemIRType = fgen.gen.elemIRType(elemSt)
	} else {
		elemSt = SourceType{Kind: KindI32}
		elemIRType = types.I32
	}
	elemSize := elemSizeBytes(elemSt)

	n := constant.NewInt(types.I64, int64(len(e.Elements)))
	desc := fgen.newArrayDescriptor(n, elemIRType, elemSize)
	data := fgen.arrayDataPtr(desc, elemIRType)
	for i, elemExpr := range e.Elements {
		v, vst, err := fgen.lowerExpr(elemExpr)
		if err != nil {
			return nil, SourceType{}, err
		}
		v = fgen.coerce(v, vst, elemIRType, elemSt)
		slot := fgen.cur.NewGetElementPtr(elemIRType, data, constant.NewInt(types.I64, int64(i)))
		fgen.cur.NewStore(v, slot)
	}
	elemSt.ArrayDepth++
	return desc, elemSt, nil
}

func (fgen *funcGen) lowerByteArrayLiteral(e *ast.ByteArrayLiteral) (value.Value, SourceType, error) {
	data := constant.NewCharArray(append(append([]byte{}, e.Elements...), 0))
	fgen.gen.strCounter++
	name := ".bytes." + strconv.Itoa(fgen.gen.strCounter)
	g := fgen.gen.m.NewGlobalDef(name, data)
	g.Immutable = true
	zero := constant.NewInt(types.I64, 0)
	ptr := constant.NewGetElementPtr(data.Type(), g, zero, zero)
	return ptr, SourceType{Kind: KindString}, nil
}

func (fgen *funcGen) lowerStructLiteral(e *ast.StructLiteral) (value.Value, SourceType, error) {
	named, ok := e.Type.(*ast.NamedType)
	if !ok {
		return nil, SourceType{}, errors.Errorf("%v: struct literal requires a named struct type", e.Pos())
	}
	info := fgen.gen.structOrOpaque(named.Name)
	if info.decl == nil {
		return nil, SourceType{}, errors.Errorf("%v: unknown struct type %q", e.Pos(), named.Name)
	}
	addr := fgen.cur.NewAlloca(info.irType)
	for i, init := range e.Inits {
		idx := i
		if init.OptionalName != "" {
			fieldIdx, ok := fieldIndex(info.decl, init.OptionalName)
			if !ok {
				return nil, SourceType{}, errors.Errorf("%v: struct %q has no field %q", e.Pos(), named.Name, init.OptionalName)
			}
			idx = fieldIdx
		}
		fieldType, fieldSt := fgen.gen.resolveType(info.decl.Fields[idx].Type)
		v, vst, err := fgen.lowerExpr(init.Value)
		if err != nil {
			return nil, SourceType{}, err
		}
		v = fgen.coerce(v, vst, fieldType, fieldSt)
		slot := fgen.cur.NewGetElementPtr(info.irType, addr, constant.NewInt(types.I32, 0), constant.NewInt(types.I32, int64(idx)))
		fgen.cur.NewStore(v, slot)
	}
	return addr, SourceType{Kind: KindStruct, StructName: named.Name}, nil
}
