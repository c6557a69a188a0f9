// Package parser implements a recursive-descent / Pratt-style parser that
// consumes a lexer.Lexer's token stream once and produces an ast.Program.
package parser

import (
	"fmt"

	"github.com/davy-yusuke/ecc/ast"
	"github.com/davy-yusuke/ecc/lexer"
	"github.com/davy-yusuke/ecc/token"
)

// ErrorHandler is invoked with the position and message of every syntax
// diagnostic. The parser never aborts on a diagnostic: it fabricates a
// placeholder AST node and resumes.
type ErrorHandler func(pos token.Position, msg string)

// Parser holds one token of lookahead; further lookahead goes through the
// lexer's own Peek so the parser never needs to rewind its cursor.
type Parser struct {
	lex *lexer.Lexer
	eh  ErrorHandler
	cur token.Token
}

// New returns a Parser reading from lex. Diagnostics are reported to eh,
// which may be nil.
func New(lex *lexer.Lexer, eh ErrorHandler) *Parser {
	if eh == nil {
		eh = func(token.Position, string) {}
	}
	p := &Parser{lex: lex, eh: eh}
	p.cur = p.lex.Next()
	return p
}

func (p *Parser) errorf(format string, args ...interface{}) {
	p.eh(p.cur.Start, fmt.Sprintf(format, args...))
}

// advance shifts the lookahead window forward by one token.
func (p *Parser) advance() {
	p.cur = p.lex.Next()
}

// skipNewlines discards any number of NEWLINE tokens under the lookahead.
func (p *Parser) skipNewlines() {
	for p.cur.Kind == token.NEWLINE {
		p.advance()
	}
}

// skipStmtSeparators discards any number of NEWLINE and ';' tokens between
// statements or struct fields.
func (p *Parser) skipStmtSeparators() {
	for p.cur.Kind == token.NEWLINE || p.cur.Kind == token.SEMICOLON {
		p.advance()
	}
}

func (p *Parser) at(k token.Kind) bool { return p.cur.Kind == k }

// expect consumes the current token if it matches k, otherwise reports a
// diagnostic and leaves the cursor in place (the caller fabricates a
// placeholder and continues).
func (p *Parser) expect(k token.Kind) (token.Token, bool) {
	if p.cur.Kind != k {
		p.errorf("expected %s, got %s %q", k, p.cur.Kind, p.cur.Lexeme)
		return p.cur, false
	}
	tok := p.cur
	p.advance()
	return tok, true
}

// Parse tokenizes and parses the whole program.
func Parse(src string, lexEh lexer.ErrorHandler, parseEh ErrorHandler) *ast.Program {
	lx := lexer.New(src, lexEh)
	p := New(lx, parseEh)
	return p.ParseProgram()
}

// ParseProgram loops until EOF, recognizing package/import decls or general
// top-level decls.
func (p *Parser) ParseProgram() *ast.Program {
	prog := &ast.Program{}
	p.skipNewlines()
	for !p.at(token.EOF) {
		d := p.parseTopLevelDecl()
		if d != nil {
			prog.Decls = append(prog.Decls, d)
		}
		p.skipNewlines()
	}
	return prog
}

func (p *Parser) parseTopLevelDecl() ast.Decl {
	switch p.cur.Kind {
	case token.PACKAGE:
		return p.parsePackageDecl()
	case token.IMPORT:
		return p.parseImportDecl()
	case token.PUB:
		pos := p.cur.Start
		p.advance()
		return p.parsePubbedDecl(pos, true)
	case token.STRUCT:
		return p.parseStructDecl(false)
	case token.FN:
		return p.parseFuncDecl(false)
	default:
		pos := p.cur.Start
		stmt := p.parseStmt()
		return &ast.StmtDecl{Stmt: stmt, Position: pos}
	}
}

func (p *Parser) parsePubbedDecl(pos token.Position, isPub bool) ast.Decl {
	switch p.cur.Kind {
	case token.STRUCT:
		return p.parseStructDecl(isPub)
	case token.FN:
		return p.parseFuncDecl(isPub)
	default:
		p.errorf("expected struct or fn after pub, got %s", p.cur.Kind)
		return &ast.StmtDecl{Stmt: &ast.ExprStmt{Position: pos}, Position: pos}
	}
}

func (p *Parser) parsePackageDecl() ast.Decl {
	pos := p.cur.Start
	p.advance() // 'package'
	name := ""
	if tok, ok := p.expect(token.IDENT); ok {
		name = tok.Lexeme
	}
	return &ast.PackageDecl{Name: name, Position: pos}
}

func (p *Parser) parseImportDecl() ast.Decl {
	pos := p.cur.Start
	p.advance() // 'import'
	path := ""
	if tok, ok := p.expect(token.IDENT); ok {
		path = tok.Lexeme
	}
	for p.at(token.DOT) {
		p.advance()
		if tok, ok := p.expect(token.IDENT); ok {
			path += "." + tok.Lexeme
		}
	}
	alias := ""
	if p.at(token.AS) {
		p.advance()
		if tok, ok := p.expect(token.IDENT); ok {
			alias = tok.Lexeme
		}
	}
	return &ast.ImportDecl{Path: path, Parts: splitDot(path), OptionalAlias: alias, Position: pos}
}

func splitDot(s string) []string {
	var parts []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '.' {
			parts = append(parts, s[start:i])
			start = i + 1
		}
	}
	parts = append(parts, s[start:])
	return parts
}

// parseStructDecl parses `struct Name { field ... }` where each field is
// `name type` or `name struct { inner_fields }`.
func (p *Parser) parseStructDecl(isPub bool) *ast.StructDecl {
	pos := p.cur.Start
	p.advance() // 'struct'
	name := ""
	if tok, ok := p.expect(token.IDENT); ok {
		name = tok.Lexeme
	}
	decl := &ast.StructDecl{Name: name, IsPub: isPub, Position: pos}
	p.skipNewlines()
	p.expect(token.LBRACE)
	p.skipStmtSeparators()
	for !p.at(token.RBRACE) && !p.at(token.EOF) {
		fieldPub := false
		if p.at(token.PUB) {
			fieldPub = true
			p.advance()
		}
		fieldName := ""
		if tok, ok := p.expect(token.IDENT); ok {
			fieldName = tok.Lexeme
		}
		if p.at(token.STRUCT) {
			inline := p.parseStructDecl(false)
			inline.Name = fieldName
			decl.NestedDecls = append(decl.NestedDecls, inline)
			decl.Fields = append(decl.Fields, ast.StructField{Name: fieldName, InlineStruct: inline, IsPub: fieldPub})
		} else {
			typ := p.parseType()
			decl.Fields = append(decl.Fields, ast.StructField{Name: fieldName, Type: typ, IsPub: fieldPub})
		}
		p.skipStmtSeparators()
	}
	p.expect(token.RBRACE)
	return decl
}

// parseFuncDecl parses `fn name(params) ret? { body }` and the method form
// `fn Receiver.method(params) ret? { body }`.
func (p *Parser) parseFuncDecl(isPub bool) *ast.FuncDecl {
	pos := p.cur.Start
	p.advance() // 'fn'
	first := ""
	if tok, ok := p.expect(token.IDENT); ok {
		first = tok.Lexeme
	}
	recv := ""
	name := first
	if p.at(token.DOT) {
		p.advance()
		recv = first
		if tok, ok := p.expect(token.IDENT); ok {
			name = tok.Lexeme
		}
	}
	decl := &ast.FuncDecl{Name: name, OptionalReceiver: recv, Position: pos}
	p.expect(token.LPAREN)
	sawVariadic := false
	for !p.at(token.RPAREN) && !p.at(token.EOF) {
		pname := ""
		if tok, ok := p.expect(token.IDENT); ok {
			pname = tok.Lexeme
		}
		variadic := false
		if p.at(token.ELLIPSIS) {
			variadic = true
			p.advance()
		}
		var ptype ast.Type
		if !p.at(token.COMMA) && !p.at(token.RPAREN) {
			ptype = p.parseType()
		}
		if sawVariadic {
			p.errorf("variadic parameter must be last")
		}
		if variadic {
			sawVariadic = true
		}
		decl.Params = append(decl.Params, ast.Param{Name: pname, Type: ptype, Variadic: variadic})
		if p.at(token.COMMA) {
			p.advance()
		}
	}
	p.expect(token.RPAREN)
	if !p.at(token.LBRACE) && !p.at(token.NEWLINE) {
		decl.OptionalRetType = p.parseType()
	}
	p.skipNewlines()
	decl.Body = p.parseBlockStmt()
	decl.IsPub = isPub
	return decl
}

// parseType parses: optional sequence of '*'/'&' prefixes, then either
// `[] BaseType` (slice) or `BaseType`.
func (p *Parser) parseType() ast.Type {
	pos := p.cur.Start
	if p.cur.Kind == token.DEREF || p.cur.Kind == token.ADDRESS_OF ||
		p.cur.Kind == token.STAR || p.cur.Kind == token.BIT_AND {
		p.advance()
		base := p.parseType()
		return &ast.PointerType{Base: base, Position: pos}
	}
	if p.at(token.LBRACKET) {
		p.advance()
		p.expect(token.RBRACKET)
		elem := p.parseBaseType()
		return &ast.ArrayType{Elem: elem, IsSlice: true, Position: pos}
	}
	return p.parseBaseType()
}

func (p *Parser) parseBaseType() ast.Type {
	pos := p.cur.Start
	if p.at(token.BYTE) {
		p.advance()
		return &ast.NamedType{Name: "byte", Position: pos}
	}
	if tok, ok := p.expect(token.IDENT); ok {
		return &ast.NamedType{Name: tok.Lexeme, Position: pos}
	}
	return &ast.NamedType{Name: "<error>", Position: pos}
}

// parseBlockStmt parses `{ stmts... }`.
func (p *Parser) parseBlockStmt() *ast.BlockStmt {
	pos := p.cur.Start
	p.expect(token.LBRACE)
	p.skipStmtSeparators()
	block := &ast.BlockStmt{Position: pos}
	for !p.at(token.RBRACE) && !p.at(token.EOF) {
		block.Stmts = append(block.Stmts, p.parseStmt())
		p.skipStmtSeparators()
	}
	p.expect(token.RBRACE)
	return block
}

// parseStmt recognizes the keyword-led statement forms first, falling back
// to the LHS-then-disambiguate form for var decl / assignment / expression
// statements.
func (p *Parser) parseStmt() ast.Stmt {
	pos := p.cur.Start
	switch p.cur.Kind {
	case token.BREAK:
		p.advance()
		return &ast.BreakStmt{Position: pos}
	case token.CONTINUE:
		p.advance()
		return &ast.ContinueStmt{Position: pos}
	case token.RETURN:
		p.advance()
		var expr ast.Expr
		if !p.at(token.NEWLINE) && !p.at(token.SEMICOLON) && !p.at(token.RBRACE) && !p.at(token.EOF) {
			expr = p.parseExpr()
		}
		return &ast.ReturnStmt{OptionalExpr: expr, Position: pos}
	case token.IF:
		return p.parseIfStmt()
	case token.FOR:
		return p.parseForStmt()
	case token.LBRACE:
		return p.parseBlockStmt()
	default:
		return p.parseSimpleStmt()
	}
}

func (p *Parser) parseIfStmt() ast.Stmt {
	pos := p.cur.Start
	p.advance() // 'if'
	cond := p.parseExprNoStructLit()
	p.skipNewlines()
	then := p.parseBlockStmt()
	stmt := &ast.IfStmt{Cond: cond, Then: then, Position: pos}
	// A NEWLINE carries no semantic content, so skipping past any that
	// precede a possible `else` is safe whether or not one is there.
	p.skipNewlines()
	if p.at(token.ELSE) {
		p.advance()
		p.skipNewlines()
		if p.at(token.IF) {
			stmt.OptionalElse = p.parseIfStmt()
		} else {
			stmt.OptionalElse = p.parseBlockStmt()
		}
	}
	return stmt
}

func (p *Parser) parseForStmt() ast.Stmt {
	pos := p.cur.Start
	p.advance() // 'for'
	if p.at(token.LBRACE) {
		body := p.parseBlockStmt()
		return &ast.ForStmt{Body: body, Position: pos}
	}
	if p.at(token.LPAREN) {
		return p.parseForCStyle(pos)
	}
	// `for IDENT in expr { ... }` or `for IDENT : T in expr { ... }`: decide
	// by scanning ahead for a following `in` without mutating parser state,
	// since the lexer's own cursor cannot be rewound once advanced.
	if p.at(token.IDENT) && p.forInFollows() {
		name := p.cur.Lexeme
		p.advance()
		var optType ast.Type
		if p.at(token.COLON) {
			p.advance()
			optType = p.parseType()
		}
		p.expect(token.IN)
		iter := p.parseExprNoStructLit()
		p.skipNewlines()
		body := p.parseBlockStmt()
		return &ast.ForInStmt{Var: name, OptionalType: optType, Iterable: iter, Body: body, Position: pos}
	}
	// Fallback: `for cond { body }` is not in the grammar as written;
	// record a diagnostic and still parse a block so recovery can continue.
	p.errorf("unsupported for-loop form")
	body := p.parseBlockStmt()
	return &ast.ForStmt{Body: body, Position: pos}
}

// forInFollows reports whether the current IDENT begins a `for-in` header,
// by scanning ahead (via the lexer's unbounded Peek, never mutating parser
// state) for an `in` token before the loop body's opening brace.
func (p *Parser) forInFollows() bool {
	if p.lex.Peek(0).Kind == token.IN {
		return true
	}
	for i := 0; i < 16; i++ {
		switch p.lex.Peek(i).Kind {
		case token.IN:
			return true
		case token.LBRACE, token.EOF, token.SEMICOLON:
			return false
		}
	}
	return false
}

func (p *Parser) parseForCStyle(pos token.Position) ast.Stmt {
	p.advance() // '('
	var init ast.Stmt
	if !p.at(token.SEMICOLON) {
		init = p.parseSimpleStmt()
	}
	p.expect(token.SEMICOLON)
	var cond ast.Expr
	if !p.at(token.SEMICOLON) {
		cond = p.parseExpr()
	}
	p.expect(token.SEMICOLON)
	var post ast.Stmt
	if !p.at(token.RPAREN) {
		post = p.parseSimpleStmt()
	}
	p.expect(token.RPAREN)
	p.skipNewlines()
	body := p.parseBlockStmt()
	return &ast.ForCStyleStmt{Init: init, OptionalCond: cond, Post: post, Body: body, Position: pos}
}

// parseSimpleStmt implements the spec's LHS-then-disambiguate rule:
//
//	LHS : Type (:=|=) expr  -> typed VarDecl
//	LHS := expr             -> untyped VarDecl (LHS must be an Ident)
//	LHS = expr              -> AssignStmt
//	LHS (+=|-=|*=|/=|%=) expr -> compound AssignStmt
//	otherwise               -> ExprStmt
func (p *Parser) parseSimpleStmt() ast.Stmt {
	pos := p.cur.Start
	lhs := p.parseExpr()

	if p.at(token.COLON) {
		p.advance()
		typ := p.parseType()
		p.expect(token.ASSIGN) // '=' or ':=', both lexed as ASSIGN
		init := p.parseExpr()
		name := identName(lhs)
		if name == "" {
			p.errorf("expected identifier before ':'")
		}
		return &ast.VarDecl{Name: name, OptionalType: typ, OptionalInit: init, Position: pos}
	}

	switch p.cur.Kind {
	case token.ASSIGN:
		isDefine := p.cur.Lexeme == ":="
		p.advance()
		value := p.parseExpr()
		if isDefine {
			name := identName(lhs)
			if name == "" {
				p.errorf("':=' left-hand side must be an identifier")
			}
			return &ast.VarDecl{Name: name, OptionalInit: value, Position: pos}
		}
		return &ast.AssignStmt{Op: token.ASSIGN, Target: lhs, Value: value, Position: pos}
	case token.PLUS_EQ, token.MINUS_EQ, token.STAR_EQ, token.SLASH_EQ, token.PERCENT_EQ:
		op := p.cur.Kind
		p.advance()
		value := p.parseExpr()
		return &ast.AssignStmt{Op: op, Target: lhs, Value: value, Position: pos}
	default:
		return &ast.ExprStmt{X: lhs, Position: pos}
	}
}

func identName(e ast.Expr) string {
	if id, ok := e.(*ast.Ident); ok {
		return id.Name
	}
	return ""
}

// === Expression parsing (Pratt precedence climbing) ==========================

type precLevel int

const (
	precNone precLevel = iota
	precOr
	precAnd
	precBitAnd
	precEquality
	precComparison
	precShift
	precAdditive
	precMultiplicative
)

func binPrec(k token.Kind) precLevel {
	switch k {
	case token.LOR:
		return precOr
	case token.LAND:
		return precAnd
	case token.BIT_AND:
		return precBitAnd
	case token.EQ, token.NEQ:
		return precEquality
	case token.LT, token.GT, token.LE, token.GE:
		return precComparison
	case token.SHL, token.SHR:
		return precShift
	case token.PLUS, token.MINUS:
		return precAdditive
	case token.STAR, token.DEREF, token.SLASH, token.PERCENT:
		return precMultiplicative
	default:
		return precNone
	}
}

// allowStructLit gates whether `Ident {` is parsed as a struct literal;
// disabled while parsing the condition of `if`/`for` so that the opening
// brace of the body is not swallowed as a struct literal.
type exprFlags struct {
	allowStructLit bool
}

func (p *Parser) parseExpr() ast.Expr {
	return p.parseBinary(precNone+1, exprFlags{allowStructLit: true})
}

func (p *Parser) parseExprNoStructLit() ast.Expr {
	return p.parseBinary(precNone+1, exprFlags{allowStructLit: false})
}

func (p *Parser) parseBinary(min precLevel, flags exprFlags) ast.Expr {
	p.skipNewlines()
	left := p.parseUnary(flags)
	for {
		p.skipNewlinesInExpr()
		level := binPrec(p.cur.Kind)
		if level < min || level == precNone {
			break
		}
		op := p.cur.Kind
		pos := p.cur.Start
		p.advance()
		p.skipNewlines()
		right := p.parseBinary(level+1, flags)
		left = &ast.BinaryExpr{Op: op, Left: left, Right: right, Position: pos}
	}
	return left
}

// skipNewlinesInExpr skips newlines that appear mid-expression (e.g. before
// a binary operator continuing onto the next line) without consuming
// newlines that terminate the statement. It uses the lexer's Peek rather
// than advance-then-restore, since the lexer's own cursor cannot be rewound
// once a token has actually been consumed from it.
func (p *Parser) skipNewlinesInExpr() {
	for p.cur.Kind == token.NEWLINE {
		next := p.lex.Peek(0)
		if binPrec(next.Kind) == precNone && next.Kind != token.DOT && next.Kind != token.LBRACKET && next.Kind != token.LPAREN {
			return
		}
		p.advance()
	}
}

func (p *Parser) parseUnary(flags exprFlags) ast.Expr {
	pos := p.cur.Start
	switch p.cur.Kind {
	case token.BANG, token.MINUS, token.PLUS, token.INC, token.DEC, token.DEREF, token.ADDRESS_OF:
		op := p.cur.Kind
		p.advance()
		rhs := p.parseUnary(flags)
		return &ast.UnaryExpr{Op: op, Rhs: rhs, Position: pos}
	default:
		return p.parsePostfix(flags)
	}
}

func (p *Parser) parsePostfix(flags exprFlags) ast.Expr {
	expr := p.parsePrimary(flags)
	for {
		switch p.cur.Kind {
		case token.LBRACKET:
			pos := p.cur.Start
			p.advance()
			idx := p.parseExpr()
			p.expect(token.RBRACKET)
			expr = &ast.IndexExpr{Collection: expr, Index: idx, Position: pos}
		case token.DOT:
			pos := p.cur.Start
			p.advance()
			member := ""
			if tok, ok := p.expect(token.IDENT); ok {
				member = tok.Lexeme
			}
			expr = &ast.MemberExpr{Object: expr, Member: member, Position: pos}
		case token.INC, token.DEC:
			pos := p.cur.Start
			op := p.cur.Kind
			p.advance()
			expr = &ast.PostfixExpr{Op: op, Lhs: expr, Position: pos}
		default:
			return expr
		}
	}
}

// parsePrimary parses literals, identifiers (with call/struct-literal
// disambiguation), parenthesized expressions, array literals (bare, typed,
// and byte-array forms).
func (p *Parser) parsePrimary(flags exprFlags) ast.Expr {
	pos := p.cur.Start
	switch p.cur.Kind {
	case token.INT, token.FLOAT, token.STRING, token.CHAR:
		tok := p.cur
		p.advance()
		return &ast.Literal{Raw: tok.Lexeme, TokenKind: tok.Kind, Position: pos}
	case token.TRUE, token.FALSE:
		tok := p.cur
		p.advance()
		return &ast.Literal{Raw: tok.Lexeme, TokenKind: tok.Kind, Position: pos}
	case token.LPAREN:
		p.advance()
		p.skipNewlines()
		e := p.parseExpr()
		p.skipNewlines()
		p.expect(token.RPAREN)
		return e
	case token.LBRACKET:
		return p.parseArrayLiteral()
	case token.BYTE:
		return p.parseByteArrayLiteral()
	case token.IDENT:
		return p.parseIdentPrimary(flags)
	default:
		p.errorf("unexpected token %s %q in expression", p.cur.Kind, p.cur.Lexeme)
		tok := p.cur
		p.advance()
		return &ast.Literal{Raw: tok.Lexeme, TokenKind: token.ILLEGAL, Position: pos}
	}
}

// parseIdentPrimary disambiguates IDENT '(' (call), IDENT '{' (struct
// literal, only when struct literals are allowed in this context), and a
// bare identifier.
func (p *Parser) parseIdentPrimary(flags exprFlags) ast.Expr {
	pos := p.cur.Start
	name := p.cur.Lexeme
	p.advance()
	switch {
	case p.at(token.LPAREN):
		p.advance()
		var args []ast.Expr
		p.skipNewlines()
		for !p.at(token.RPAREN) && !p.at(token.EOF) {
			args = append(args, p.parseExpr())
			p.skipNewlines()
			if p.at(token.COMMA) {
				p.advance()
				p.skipNewlines()
			}
		}
		p.expect(token.RPAREN)
		return &ast.CallExpr{Callee: &ast.Ident{Name: name, Position: pos}, Args: args, Position: pos}
	case p.at(token.LBRACE) && flags.allowStructLit:
		return p.parseStructLiteralBody(&ast.NamedType{Name: name, Position: pos}, pos)
	default:
		return &ast.Ident{Name: name, Position: pos}
	}
}

// parseStructLiteralBody parses `{ inits... }` given the already-parsed
// type, each init being `IDENT : expr` (named) or bare `expr` (positional).
func (p *Parser) parseStructLiteralBody(typ ast.Type, pos token.Position) ast.Expr {
	p.advance() // '{'
	p.skipNewlines()
	lit := &ast.StructLiteral{Type: typ, Position: pos}
	for !p.at(token.RBRACE) && !p.at(token.EOF) {
		init := p.parseStructLiteralInit()
		lit.Inits = append(lit.Inits, init)
		p.skipNewlines()
		if p.at(token.COMMA) {
			p.advance()
			p.skipNewlines()
		}
	}
	p.expect(token.RBRACE)
	return lit
}

func (p *Parser) parseStructLiteralInit() ast.StructLiteralInit {
	if p.at(token.IDENT) && p.lookaheadIsColonInit() {
		name := p.cur.Lexeme
		p.advance() // ident
		p.advance() // ':'
		value := p.parseExpr()
		return ast.StructLiteralInit{OptionalName: name, Value: value}
	}
	return ast.StructLiteralInit{Value: p.parseExpr()}
}

// lookaheadIsColonInit reports whether the current IDENT is immediately
// followed by ':' (a named struct-literal init), using the lexer's
// unbounded peek rather than mutating parser state.
func (p *Parser) lookaheadIsColonInit() bool {
	return p.lex.Peek(0).Kind == token.COLON
}

// parseArrayLiteral handles both the bare form `[e1, e2, ...]` and the
// typed form `[]T{e1, e2, ...}` (recognized by the four-token lookahead
// `[` `]` IDENT `{`).
func (p *Parser) parseArrayLiteral() ast.Expr {
	pos := p.cur.Start
	p.advance() // '['
	if p.at(token.RBRACKET) {
		// Could be `[]T{...}` (typed array literal).
		after := p.lex.Peek(0) // token following ']': expect IDENT or byte
		if after.Kind == token.IDENT || after.Kind == token.BYTE {
			maybeBrace := p.lex.Peek(1)
			if maybeBrace.Kind == token.LBRACE {
				p.advance() // ']'
				elemType := p.parseBaseType()
				p.advance() // '{'
				return p.parseTypedArrayElements(elemType, pos)
			}
		}
		// Empty bare array literal `[]`.
		p.advance() // ']'
		return &ast.ArrayLiteral{Position: pos}
	}
	lit := &ast.ArrayLiteral{Position: pos}
	for !p.at(token.RBRACKET) && !p.at(token.EOF) {
		lit.Elements = append(lit.Elements, p.parseExpr())
		if p.at(token.COMMA) {
			p.advance()
			p.skipNewlines()
		}
	}
	p.expect(token.RBRACKET)
	return lit
}

// parseTypedArrayElements parses the `{ e1, e2, ... }` tail of a typed
// array literal `[]T{...}`; the caller has already consumed `[`, `]`, `T`
// and the opening `{`.
func (p *Parser) parseTypedArrayElements(elemType ast.Type, pos token.Position) ast.Expr {
	lit := &ast.ArrayLiteral{OptionalType: &ast.ArrayType{Elem: elemType, IsSlice: true, Position: pos}, Position: pos}
	p.skipNewlines()
	for !p.at(token.RBRACE) && !p.at(token.EOF) {
		lit.Elements = append(lit.Elements, p.parseExpr())
		p.skipNewlines()
		if p.at(token.COMMA) {
			p.advance()
			p.skipNewlines()
		}
	}
	p.expect(token.RBRACE)
	return lit
}

// parseByteArrayLiteral parses `byte[...]` (bracketed integer list) or
// `byte"..."` (a string literal decoded to bytes).
func (p *Parser) parseByteArrayLiteral() ast.Expr {
	pos := p.cur.Start
	p.advance() // 'byte'
	if p.at(token.STRING) {
		tok := p.cur
		p.advance()
		decoded := lexer.Unescape(tok.Lexeme)
		return &ast.ByteArrayLiteral{Elements: []byte(decoded), Position: pos}
	}
	p.expect(token.LBRACKET)
	lit := &ast.ByteArrayLiteral{Position: pos}
	for !p.at(token.RBRACKET) && !p.at(token.EOF) {
		if tok, ok := p.expect(token.INT); ok {
			lit.Elements = append(lit.Elements, byte(parseIntLiteral(tok.Lexeme)))
		}
		if p.at(token.COMMA) {
			p.advance()
		}
	}
	p.expect(token.RBRACKET)
	return lit
}

func parseIntLiteral(lexeme string) int64 {
	var v int64
	for i := 0; i < len(lexeme); i++ {
		ch := lexeme[i]
		if ch < '0' || ch > '9' {
			break
		}
		v = v*10 + int64(ch-'0')
	}
	return v
}
