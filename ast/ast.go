// Package ast defines the tagged-variant tree produced by the parser:
// types, expressions, statements, and declarations.
package ast

import "github.com/davy-yusuke/ecc/token"

// Node is implemented by every AST node and anchors it to a source
// position for diagnostics.
type Node interface {
	Pos() token.Position
}

// === Types ===================================================================

// Type is the tagged union of type-syntax nodes.
type Type interface {
	Node
	typeNode()
}

// NamedType is a bare type identifier: a builtin (i32, string, ...) or a
// struct name.
type NamedType struct {
	Name     string
	Position token.Position
}

func (n *NamedType) Pos() token.Position { return n.Position }
func (*NamedType) typeNode()             {}

// PointerType is a pointer to a base type, one per '*'/'&' prefix.
type PointerType struct {
	Base     Type
	Position token.Position
}

func (n *PointerType) Pos() token.Position { return n.Position }
func (*PointerType) typeNode()             {}

// ArrayType is `[]Elem`. Per spec, only IsSlice==true is ever produced by
// the parser; Size is reserved for a future fixed-size array form.
type ArrayType struct {
	Elem     Type
	IsSlice  bool
	Size     int
	Position token.Position
}

func (n *ArrayType) Pos() token.Position { return n.Position }
func (*ArrayType) typeNode()             {}

// FuncType is a function-pointer type `fn(Params) Ret`.
type FuncType struct {
	Params   []Type
	Ret      Type
	Position token.Position
}

func (n *FuncType) Pos() token.Position { return n.Position }
func (*FuncType) typeNode()             {}

// === Expressions ==============================================================

// Expr is the tagged union of expression nodes.
type Expr interface {
	Node
	exprNode()
}

// Ident is a bare identifier reference.
type Ident struct {
	Name     string
	Position token.Position
}

func (n *Ident) Pos() token.Position { return n.Position }
func (*Ident) exprNode()             {}

// Literal is an INT/FLOAT/STRING/CHAR literal, carrying its raw lexeme and
// the token kind that produced it.
type Literal struct {
	Raw        string
	TokenKind  token.Kind
	Position   token.Position
}

func (n *Literal) Pos() token.Position { return n.Position }
func (*Literal) exprNode()             {}

// UnaryExpr is a prefix unary operator applied to an operand: !, -, +, ++,
// --, DEREF (*), ADDRESS_OF (&).
type UnaryExpr struct {
	Op       token.Kind
	Rhs      Expr
	Position token.Position
}

func (n *UnaryExpr) Pos() token.Position { return n.Position }
func (*UnaryExpr) exprNode()             {}

// BinaryExpr is a binary operator expression.
type BinaryExpr struct {
	Op       token.Kind
	Left     Expr
	Right    Expr
	Position token.Position
}

func (n *BinaryExpr) Pos() token.Position { return n.Position }
func (*BinaryExpr) exprNode()             {}

// CallExpr is a function call `Callee(Args...)`.
type CallExpr struct {
	Callee   Expr
	Args     []Expr
	Position token.Position
}

func (n *CallExpr) Pos() token.Position { return n.Position }
func (*CallExpr) exprNode()             {}

// MemberExpr is `Object.Member`.
type MemberExpr struct {
	Object   Expr
	Member   string
	Position token.Position
}

func (n *MemberExpr) Pos() token.Position { return n.Position }
func (*MemberExpr) exprNode()             {}

// IndexExpr is `Collection[Index]`.
type IndexExpr struct {
	Collection Expr
	Index      Expr
	Position   token.Position
}

func (n *IndexExpr) Pos() token.Position { return n.Position }
func (*IndexExpr) exprNode()             {}

// PostfixExpr is `Lhs++` or `Lhs--`.
type PostfixExpr struct {
	Op       token.Kind
	Lhs      Expr
	Position token.Position
}

func (n *PostfixExpr) Pos() token.Position { return n.Position }
func (*PostfixExpr) exprNode()             {}

// ArrayLiteral is `[e1, e2, ...]` or, when OptionalType is non-nil, the
// typed form `[]T{e1, e2, ...}`.
type ArrayLiteral struct {
	OptionalType Type
	Elements     []Expr
	Position     token.Position
}

func (n *ArrayLiteral) Pos() token.Position { return n.Position }
func (*ArrayLiteral) exprNode()             {}

// ByteArrayLiteral is `byte[...]` or `byte"..."`.
type ByteArrayLiteral struct {
	Elements []byte
	Position token.Position
}

func (n *ByteArrayLiteral) Pos() token.Position { return n.Position }
func (*ByteArrayLiteral) exprNode()             {}

// StructLiteralInit is one initializer inside a StructLiteral: named
// (`Name: Value`) or positional (OptionalName == "").
type StructLiteralInit struct {
	OptionalName string
	Value        Expr
}

// StructLiteral is `Type{inits...}`.
type StructLiteral struct {
	Type     Type
	Inits    []StructLiteralInit
	Position token.Position
}

func (n *StructLiteral) Pos() token.Position { return n.Position }
func (*StructLiteral) exprNode()             {}

// === Statements ===============================================================

// Stmt is the tagged union of statement nodes.
type Stmt interface {
	Node
	stmtNode()
}

// ExprStmt is a bare expression used as a statement.
type ExprStmt struct {
	X        Expr
	Position token.Position
}

func (n *ExprStmt) Pos() token.Position { return n.Position }
func (*ExprStmt) stmtNode()             {}

// ReturnStmt is `return` with an optional expression.
type ReturnStmt struct {
	OptionalExpr Expr
	Position     token.Position
}

func (n *ReturnStmt) Pos() token.Position { return n.Position }
func (*ReturnStmt) stmtNode()             {}

// VarDecl is `name : T = e`, `name : T := e`, or `name := e`.
type VarDecl struct {
	Name         string
	OptionalType Type
	OptionalInit Expr
	Position     token.Position
}

func (n *VarDecl) Pos() token.Position { return n.Position }
func (*VarDecl) stmtNode()             {}

// AssignStmt is `target = value`, or a compound form (`+=`, `-=`, `*=`,
// `/=`, `%=`) recorded via Op so codegen can lower the read-modify-write
// without re-evaluating Target twice.
type AssignStmt struct {
	Op       token.Kind // ASSIGN, PLUS_EQ, MINUS_EQ, STAR_EQ, SLASH_EQ, PERCENT_EQ
	Target   Expr
	Value    Expr
	Position token.Position
}

func (n *AssignStmt) Pos() token.Position { return n.Position }
func (*AssignStmt) stmtNode()             {}

// BlockStmt is `{ stmts... }`.
type BlockStmt struct {
	Stmts    []Stmt
	Position token.Position
}

func (n *BlockStmt) Pos() token.Position { return n.Position }
func (*BlockStmt) stmtNode()             {}

// IfStmt is `if Cond Then (else (If | Block))?`.
type IfStmt struct {
	Cond         Expr
	Then         *BlockStmt
	OptionalElse Stmt // *IfStmt or *BlockStmt, or nil
	Position     token.Position
}

func (n *IfStmt) Pos() token.Position { return n.Position }
func (*IfStmt) stmtNode()             {}

// ForInStmt is `for Var in Iterable Body`.
type ForInStmt struct {
	Var          string
	OptionalType Type
	Iterable     Expr
	Body         *BlockStmt
	Position     token.Position
}

func (n *ForInStmt) Pos() token.Position { return n.Position }
func (*ForInStmt) stmtNode()             {}

// ForStmt is the infinite loop form `for Body`.
type ForStmt struct {
	Body     *BlockStmt
	Position token.Position
}

func (n *ForStmt) Pos() token.Position { return n.Position }
func (*ForStmt) stmtNode()             {}

// ForCStyleStmt is `for (Init; Cond; Post) Body`.
type ForCStyleStmt struct {
	Init         Stmt // may be nil
	OptionalCond Expr // nil means constant true
	Post         Stmt // may be nil
	Body         *BlockStmt
	Position     token.Position
}

func (n *ForCStyleStmt) Pos() token.Position { return n.Position }
func (*ForCStyleStmt) stmtNode()             {}

// BreakStmt is `break`.
type BreakStmt struct {
	Position token.Position
}

func (n *BreakStmt) Pos() token.Position { return n.Position }
func (*BreakStmt) stmtNode()             {}

// ContinueStmt is `continue`.
type ContinueStmt struct {
	Position token.Position
}

func (n *ContinueStmt) Pos() token.Position { return n.Position }
func (*ContinueStmt) stmtNode()             {}

// === Declarations =============================================================

// Decl is the tagged union of top-level declaration nodes.
type Decl interface {
	Node
	declNode()
}

// PackageDecl is `package name`.
type PackageDecl struct {
	Name     string
	Position token.Position
}

func (n *PackageDecl) Pos() token.Position { return n.Position }
func (*PackageDecl) declNode()             {}

// ImportDecl is `import path.parts as alias?`. Parts is always path split
// on '.'.
type ImportDecl struct {
	Path          string
	Parts         []string
	OptionalAlias string
	Position      token.Position
}

func (n *ImportDecl) Pos() token.Position { return n.Position }
func (*ImportDecl) declNode()             {}

// StructField is one field of a StructDecl. Type and InlineStruct are
// mutually exclusive: exactly one is populated.
type StructField struct {
	Name         string
	Type         Type
	InlineStruct *StructDecl
	IsPub        bool
}

// StructDecl is `pub? struct Name { fields... }`, possibly with anonymous
// nested struct declarations for inline fields.
type StructDecl struct {
	Name        string
	Fields      []StructField
	NestedDecls []*StructDecl
	IsPub       bool
	Position    token.Position
}

func (n *StructDecl) Pos() token.Position { return n.Position }
func (*StructDecl) declNode()             {}

// Param is one function parameter. Variadic is true only for the final
// parameter of a FuncDecl.
type Param struct {
	Name     string
	Type     Type
	Variadic bool
}

// FuncDecl is `pub? fn (Receiver.)?name(params) ret? { body }`.
type FuncDecl struct {
	Name            string
	OptionalReceiver string
	Params          []Param
	OptionalRetType  Type
	IsPub            bool
	Body             *BlockStmt
	Position         token.Position
}

func (n *FuncDecl) Pos() token.Position { return n.Position }
func (*FuncDecl) declNode()             {}

// StmtDecl wraps a top-level statement (the grammar permits bare statements
// at top level, e.g. for scripting-style entry code).
type StmtDecl struct {
	Stmt     Stmt
	Position token.Position
}

func (n *StmtDecl) Pos() token.Position { return n.Position }
func (*StmtDecl) declNode()             {}

// Program is the ordered sequence of top-level declarations produced by a
// single parse.
type Program struct {
	Decls []Decl
}
