// Package lower lowers an EC AST to LLVM IR assembly.
package lower

import (
	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"

	"github.com/davy-yusuke/ecc/ast"
)

// SourceKind classifies a source-language type for the cases the IR type
// alone cannot answer (is this i8* a C string or a slice element pointer?
// was this i8* bound to a string-typed parameter?).
type SourceKind int

const (
	KindI32 SourceKind = iota
	KindI64
	KindF32
	KindF64
	KindBool
	KindByte
	KindString
	KindStruct
	KindFunc
	KindVoid
)

// SourceType is carried alongside every IR value a scope binds, replacing
// the encoded-string side channel with a tagged record.
type SourceType struct {
	Kind SourceKind
	// StructName is populated when Kind == KindStruct.
	StructName string
	// ArrayDepth counts enclosing slice wrappers (`[]T` is depth 1 over T).
	ArrayDepth int
	// PointerDepth counts enclosing pointer wrappers.
	PointerDepth int
	// FromParameter is true for bindings introduced as function
	// parameters, the provenance bit that replaces the "_params" suffix.
	FromParameter bool
}

// IsSlice reports whether this binding denotes a slice value (as opposed
// to a bare pointer or C string).
func (t SourceType) IsSlice() bool { return t.ArrayDepth > 0 }

// IsCString reports whether this binding denotes a raw `i8*` string rather
// than a slice descriptor pointer.
func (t SourceType) IsCString() bool {
	return t.Kind == KindString && t.ArrayDepth == 0
}

// elem returns the SourceType one array dimension down (the element type
// of a slice), or itself if ArrayDepth is already zero.
func (t SourceType) elem() SourceType {
	if t.ArrayDepth == 0 {
		return t
	}
	t.ArrayDepth--
	return t
}

// deref returns the SourceType one pointer level down.
func (t SourceType) deref() SourceType {
	if t.PointerDepth == 0 {
		return t
	}
	t.PointerDepth--
	return t
}

// binding is a scope entry: the IR storage location (usually a stack slot
// from NewAlloca, sometimes a global) plus its SourceType.
type binding struct {
	addr value.Value
	typ  SourceType
}

// scope is one block's worth of local bindings.
type scope struct {
	vars   map[string]binding
	parent *scope
}

func newScope(parent *scope) *scope {
	return &scope{vars: make(map[string]binding), parent: parent}
}

func (s *scope) lookup(name string) (binding, bool) {
	for cur := s; cur != nil; cur = cur.parent {
		if b, ok := cur.vars[name]; ok {
			return b, true
		}
	}
	return binding{}, false
}

func (s *scope) bind(name string, b binding) {
	s.vars[name] = b
}

// structInfo records the IR type and originating declaration for a named
// struct, kept in parallel maps so member resolution never needs fuzzy
// name matching.
type structInfo struct {
	irType *types.StructType
	decl   *ast.StructDecl
}

// Generator keeps track of top-level entities while lowering an EC
// Program to an LLVM IR module.
type Generator struct {
	eh func(error)
	m  *ir.Module

	structs     map[string]*structInfo
	funcs       map[string]*ir.Func
	funcResults map[string]SourceType
	globals     map[string]*ir.Global
	globalTypes map[string]SourceType

	// arrayType is the lazily-created Array_internal slice descriptor type.
	arrayType *types.StructType

	// ffiDeclared tracks which foreign runtime symbols have already been
	// predeclared into the module, so each is emitted at most once.
	ffiDeclared map[string]*ir.Func

	// strCounter numbers private global string/byte-array constants.
	strCounter int

	failed bool
}

// NewGenerator returns a Generator that reports errors to eh. Every error
// reported through the Generator marks it as failed.
func NewGenerator(eh func(error)) *Generator {
	if eh == nil {
		eh = func(error) {}
	}
	gen := &Generator{
		m:           ir.NewModule(),
		structs:     make(map[string]*structInfo),
		funcs:       make(map[string]*ir.Func),
		funcResults: make(map[string]SourceType),
		globals:     make(map[string]*ir.Global),
		globalTypes: make(map[string]SourceType),
		ffiDeclared: make(map[string]*ir.Func),
	}
	gen.eh = func(err error) {
		gen.failed = true
		eh(err)
	}
	return gen
}

// Failed reports whether any codegen error has been reported so far.
func (gen *Generator) Failed() bool { return gen.failed }

// funcResultType returns the SourceType a call to name resolves to,
// recorded when the function was declared.
func (gen *Generator) funcResultType(name string) SourceType {
	return gen.funcResults[name]
}
