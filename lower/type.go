package lower

import (
	"github.com/llir/llvm/ir/types"

	"github.com/davy-yusuke/ecc/ast"
)

// arrayInternalType lazily creates the Array_internal slice descriptor
// type `{i8*, i64, i64, i64}` ({data, len, cap, elem_size}), caching it on
// the Generator so every module owns exactly one instance.
func (gen *Generator) arrayInternalType() *types.StructType {
	if gen.arrayType != nil {
		return gen.arrayType
	}
	t := types.NewStruct(types.NewPointer(types.I8), types.I64, types.I64, types.I64)
	t.SetName("Array_internal")
	gen.arrayType = t
	gen.m.NewTypeDef("Array_internal", t)
	return t
}

// structOrOpaque looks up a struct by name, creating a fresh opaque named
// struct type (no body yet) the first time the name is seen. This is what
// lets struct types reference each other before their bodies are set.
func (gen *Generator) structOrOpaque(name string) *structInfo {
	if info, ok := gen.structs[name]; ok {
		return info
	}
	t := types.NewStruct()
	t.SetName(name)
	info := &structInfo{irType: t}
	gen.structs[name] = info
	return info
}

// resolveType maps an AST type to its IR representation and SourceType
// record (spec §4.7).
func (gen *Generator) resolveType(t ast.Type) (types.Type, SourceType) {
	switch t := t.(type) {
	case *ast.PointerType:
		base, st := gen.resolveType(t.Base)
		st.PointerDepth++
		return types.NewPointer(base), st
	case *ast.ArrayType:
		_, elemSt := gen.resolveType(t.Elem)
		elemSt.ArrayDepth++
		return types.NewPointer(gen.arrayInternalType()), elemSt
	case *ast.FuncType:
		var params []types.Type
		for _, p := range t.Params {
			pt, _ := gen.resolveType(p)
			params = append(params, pt)
		}
		ret := types.Type(types.Void)
		if t.Ret != nil {
			ret, _ = gen.resolveType(t.Ret)
		}
		return types.NewPointer(types.NewFunc(ret, params...)), SourceType{Kind: KindFunc}
	case *ast.NamedType:
		return gen.resolveNamed(t.Name)
	default:
		gen.Errorf("unsupported type node %T", t)
		return types.I32, SourceType{Kind: KindI32}
	}
}

// resolveNamed implements the reserved-name table of spec §4.7, falling
// back to the struct table (creating a new opaque struct if necessary) for
// any other identifier.
func (gen *Generator) resolveNamed(name string) (types.Type, SourceType) {
	switch name {
	case "i32":
		return types.I32, SourceType{Kind: KindI32}
	case "i64":
		return types.I64, SourceType{Kind: KindI64}
	case "f32", "float":
		return types.Float, SourceType{Kind: KindF32}
	case "f64", "double":
		return types.Double, SourceType{Kind: KindF64}
	case "bool":
		return types.I1, SourceType{Kind: KindBool}
	case "char", "byte":
		return types.I8, SourceType{Kind: KindByte}
	case "size_t":
		return types.I64, SourceType{Kind: KindI64}
	case "void":
		return types.Void, SourceType{Kind: KindVoid}
	case "string":
		return types.NewPointer(types.I8), SourceType{Kind: KindString}
	default:
		info := gen.structOrOpaque(name)
		return types.NewPointer(info.irType), SourceType{Kind: KindStruct, StructName: name}
	}
}

// fieldIndex returns the IR field index of member within decl's field
// list, by exact name match only (spec §9: no fuzzy struct-name/member
// matching).
func fieldIndex(decl *ast.StructDecl, member string) (int, bool) {
	for i, f := range decl.Fields {
		if f.Name == member {
			return i, true
		}
	}
	return 0, false
}

// prepareStructs is the preparation pass (spec §4.3 step 1): declare every
// top-level struct name as an opaque type, then resolve field types and
// set bodies. Declaring every name up front lets field types forward-
// reference structs defined later in the same program.
func (gen *Generator) prepareStructs(prog *ast.Program) {
	var decls []*ast.StructDecl
	var collect func(d *ast.StructDecl)
	collect = func(d *ast.StructDecl) {
		decls = append(decls, d)
		for _, nested := range d.NestedDecls {
			collect(nested)
		}
	}
	for _, d := range prog.Decls {
		if sd, ok := d.(*ast.StructDecl); ok {
			collect(sd)
		}
	}
	for _, d := range decls {
		info := gen.structOrOpaque(d.Name)
		info.decl = d
	}
	for _, d := range decls {
		gen.setStructBody(d)
	}
}

// setStructBody resolves and sets the field types of one struct's IR body.
// An inline struct field is embedded by value as the named struct type the
// parser generates for it (named after the field); inline structs do not
// become anonymous literal struct types.
func (gen *Generator) setStructBody(d *ast.StructDecl) {
	info := gen.structs[d.Name]
	if info == nil {
		return
	}
	var fieldTypes []types.Type
	for _, f := range d.Fields {
		if f.InlineStruct != nil {
			nested := gen.structs[f.InlineStruct.Name]
			fieldTypes = append(fieldTypes, nested.irType)
			continue
		}
		if gen.isRecursiveByValue(d.Name, f.Type) {
			gen.Errorf("struct %q contains field %q recursively by value; use a pointer field instead", d.Name, f.Name)
			fieldTypes = append(fieldTypes, types.I8)
			continue
		}
		ft, _ := gen.resolveType(f.Type)
		fieldTypes = append(fieldTypes, ft)
	}
	info.irType.Fields = fieldTypes
}

// isRecursiveByValue reports whether t is a bare (non-pointer, non-slice)
// reference back to structName, which would make the struct infinitely
// large (spec §9 "avoid recursive struct values").
func (gen *Generator) isRecursiveByValue(structName string, t ast.Type) bool {
	named, ok := t.(*ast.NamedType)
	return ok && named.Name == structName
}
