package lower

import (
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/enum"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"
)

// elemIRType returns the IR type of one element of a slice whose
// SourceType is elemSt (already stepped down one ArrayDepth from the
// slice itself, i.e. as returned by SourceType.elem()).
func (gen *Generator) elemIRType(elemSt SourceType) types.Type {
	base := gen.irTypeForKind(elemSt)
	for i := 0; i < elemSt.PointerDepth; i++ {
		base = types.NewPointer(base)
	}
	if elemSt.ArrayDepth > 0 {
		return types.NewPointer(gen.arrayInternalType())
	}
	return base
}

// arrayDescriptorSize is the fixed byte size of an Array_internal
// descriptor on a 64-bit target: {i8*, i64, i64, i64}.
const arrayDescriptorSize = 32

// elemSizeBytes computes the storage size of one slice element on a
// 64-bit target. Anything indirect (pointers, structs, strings, nested
// slices, function values) is stored by value as a pointer-sized slot;
// there is no separate "pointer slot" representation.
func elemSizeBytes(elemSt SourceType) int64 {
	if elemSt.PointerDepth > 0 || elemSt.ArrayDepth > 0 {
		return 8
	}
	switch elemSt.Kind {
	case KindI32, KindF32:
		return 4
	case KindI64, KindF64, KindString, KindStruct, KindFunc:
		return 8
	case KindBool, KindByte:
		return 1
	default:
		return 8
	}
}

func (gen *Generator) irTypeForKind(st SourceType) types.Type {
	switch st.Kind {
	case KindI32:
		return types.I32
	case KindI64:
		return types.I64
	case KindF32:
		return types.Float
	case KindF64:
		return types.Double
	case KindBool:
		return types.I1
	case KindByte:
		return types.I8
	case KindString:
		return types.NewPointer(types.I8)
	case KindStruct:
		info := gen.structOrOpaque(st.StructName)
		return types.NewPointer(info.irType)
	case KindFunc:
		return types.NewPointer(types.I8)
	default:
		return types.I32
	}
}

// newArrayDescriptor emits the malloc calls that build a fresh
// Array_internal descriptor for n elements of elemType, with elemSize
// bytes each, and returns the descriptor pointer.
func (fgen *funcGen) newArrayDescriptor(n value.Value, elemType types.Type, elemSize int64) value.Value {
	gen := fgen.gen
	descPtrType := types.NewPointer(gen.arrayInternalType())
	descRaw := fgen.cur.NewCall(gen.declareForeign("malloc"), constant.NewInt(types.I64, arrayDescriptorSize))
	desc := fgen.cur.NewBitCast(descRaw, descPtrType)

	elemSizeVal := constant.NewInt(types.I64, elemSize)
	totalBytes := fgen.cur.NewMul(n, elemSizeVal)
	data := fgen.cur.NewCall(gen.declareForeign("malloc"), totalBytes)

	dataField := fgen.cur.NewGetElementPtr(gen.arrayInternalType(), desc, constant.NewInt(types.I32, 0), constant.NewInt(types.I32, 0))
	fgen.cur.NewStore(data, dataField)
	lenField := fgen.cur.NewGetElementPtr(gen.arrayInternalType(), desc, constant.NewInt(types.I32, 0), constant.NewInt(types.I32, 1))
	fgen.cur.NewStore(n, lenField)
	capField := fgen.cur.NewGetElementPtr(gen.arrayInternalType(), desc, constant.NewInt(types.I32, 0), constant.NewInt(types.I32, 2))
	fgen.cur.NewStore(n, capField)
	sizeField := fgen.cur.NewGetElementPtr(gen.arrayInternalType(), desc, constant.NewInt(types.I32, 0), constant.NewInt(types.I32, 3))
	fgen.cur.NewStore(elemSizeVal, sizeField)

	_ = elemType
	return desc
}

// arrayDataFieldPtr returns the address of a descriptor's data field itself
// (an i8**), for stores that replace the buffer rather than read it.
func (fgen *funcGen) arrayDataFieldPtr(desc value.Value) value.Value {
	gen := fgen.gen
	return fgen.cur.NewGetElementPtr(gen.arrayInternalType(), desc, constant.NewInt(types.I32, 0), constant.NewInt(types.I32, 0))
}

// arrayDataPtr loads the raw i8* data pointer out of a descriptor and
// bitcasts it to a pointer of elemType.
func (fgen *funcGen) arrayDataPtr(desc value.Value, elemType types.Type) value.Value {
	raw := fgen.cur.NewLoad(types.NewPointer(types.I8), fgen.arrayDataFieldPtr(desc))
	return fgen.cur.NewBitCast(raw, types.NewPointer(elemType))
}

func (fgen *funcGen) arrayLenPtr(desc value.Value) value.Value {
	gen := fgen.gen
	return fgen.cur.NewGetElementPtr(gen.arrayInternalType(), desc, constant.NewInt(types.I32, 0), constant.NewInt(types.I32, 1))
}

func (fgen *funcGen) arrayCapPtr(desc value.Value) value.Value {
	gen := fgen.gen
	return fgen.cur.NewGetElementPtr(gen.arrayInternalType(), desc, constant.NewInt(types.I32, 0), constant.NewInt(types.I32, 2))
}

// arrayLen loads the current length field of a slice descriptor.
func (fgen *funcGen) arrayLen(desc value.Value) value.Value {
	return fgen.cur.NewLoad(types.I64, fgen.arrayLenPtr(desc))
}

// indexAddress computes the address of collection[index], emitting a
// bounds check that traps (exit(1) + unreachable) on failure. elemSt is the
// SourceType of one element.
func (fgen *funcGen) indexAddress(desc value.Value, index value.Value, elemSt SourceType) value.Value {
	gen := fgen.gen
	elemType := gen.elemIRType(elemSt)

	length := fgen.arrayLen(desc)
	index64 := fgen.toI64(index)

	inBounds := fgen.cur.NewICmp(enum.IPredSLT, index64, length)
	negOK := fgen.cur.NewICmp(enum.IPredSGE, index64, constant.NewInt(types.I64, 0))
	ok := fgen.cur.NewAnd(inBounds, negOK)

	okBlock := fgen.f.NewBlock(fgen.blockName("idx.ok"))
	failBlock := fgen.f.NewBlock(fgen.blockName("idx.fail"))
	fgen.cur.NewCondBr(ok, okBlock, failBlock)

	fgen.cur = failBlock
	fgen.cur.NewCall(gen.declareForeign("exit"), constant.NewInt(types.I32, 1))
	fgen.cur.NewUnreachable()

	fgen.cur = okBlock
	data := fgen.arrayDataPtr(desc, elemType)
	return fgen.cur.NewGetElementPtr(elemType, data, index64)
}

// toI64 widens or narrows an integer value to i64 for use as a slice index
// or length operand.
func (fgen *funcGen) toI64(v value.Value) value.Value {
	it, ok := v.Type().(*types.IntType)
	if !ok {
		return v
	}
	if it.BitSize == 64 {
		return v
	}
	if it.BitSize < 64 {
		return fgen.cur.NewSExt(v, types.I64)
	}
	return fgen.cur.NewTrunc(v, types.I64)
}

// appendElement lowers `append(slice, value)`: when the descriptor is full,
// it mallocs a buffer of double the capacity (1 when the capacity is 0),
// copies the old contents over, and stores the
// new buffer pointer and capacity back into desc's own fields in place (the
// descriptor identity never changes), then stores value at the new length
// slot. Pointer elements are stored by value exactly like any other element
// kind, with elem_size sized to a pointer.
func (fgen *funcGen) appendElement(desc value.Value, elemVal value.Value, elemSt SourceType) value.Value {
	gen := fgen.gen
	elemType := gen.elemIRType(elemSt)
	elemSize := elemSizeBytes(elemSt)

	length := fgen.arrayLen(desc)
	capacity := fgen.cur.NewLoad(types.I64, fgen.arrayCapPtr(desc))
	full := fgen.cur.NewICmp(enum.IPredSGE, length, capacity)

	growBlock := fgen.f.NewBlock(fgen.blockName("append.grow"))
	joinBlock := fgen.f.NewBlock(fgen.blockName("append.join"))
	fgen.cur.NewCondBr(full, growBlock, joinBlock)

	fgen.cur = growBlock
	one := constant.NewInt(types.I64, 1)
	capIsZero := fgen.cur.NewICmp(enum.IPredEQ, capacity, constant.NewInt(types.I64, 0))
	doubled := fgen.cur.NewSelect(capIsZero, one, fgen.cur.NewMul(capacity, constant.NewInt(types.I64, 2)))
	elemSizeVal := constant.NewInt(types.I64, elemSize)
	totalNewBytes := fgen.cur.NewMul(doubled, elemSizeVal)
	newRaw := fgen.cur.NewCall(gen.declareForeign("malloc"), totalNewBytes)
	newData := fgen.cur.NewBitCast(newRaw, types.NewPointer(elemType))
	oldData := fgen.arrayDataPtr(desc, elemType)
	totalOldBytes := fgen.cur.NewMul(length, elemSizeVal)
	fgen.cur.NewCall(gen.declareForeign("memcpy"),
		fgen.cur.NewBitCast(newData, types.NewPointer(types.I8)),
		fgen.cur.NewBitCast(oldData, types.NewPointer(types.I8)),
		totalOldBytes)
	fgen.cur.NewStore(newRaw, fgen.arrayDataFieldPtr(desc))
	fgen.cur.NewStore(doubled, fgen.arrayCapPtr(desc))
	fgen.cur.NewBr(joinBlock)

	fgen.cur = joinBlock
	data := fgen.arrayDataPtr(desc, elemType)
	slot := fgen.cur.NewGetElementPtr(elemType, data, length)
	fgen.cur.NewStore(elemVal, slot)
	newLen := fgen.cur.NewAdd(length, one)
	fgen.cur.NewStore(newLen, fgen.arrayLenPtr(desc))
	return desc
}
