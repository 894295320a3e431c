// Package parser implements a recursive-descent, precedence-climbing
// parser over the token stream produced by the lexer (and expanded by
// the includer), building the tree defined in internal/ast.
package parser

import (
	"cc64/internal/ast"
	"cc64/internal/ccerrors"
	"cc64/internal/token"
	"cc64/internal/types"
)

// Parser holds an index-based cursor over a pre-lexed token slice —
// the includer has already flattened #include directives, so the
// parser never re-enters the lexer mid-stream.
type Parser struct {
	toks []token.Token
	pos  int

	errors []*ccerrors.CompilerError
}

// New creates a Parser over toks. toks must end with a token.EOF
// sentinel, as produced by lexer.Tokenize.
func New(toks []token.Token) *Parser {
	return &Parser{toks: toks}
}

// Errors returns every syntax error accumulated during ParseProgram.
func (p *Parser) Errors() []*ccerrors.CompilerError { return p.errors }

func (p *Parser) cur() token.Token {
	return p.toks[p.pos]
}

func (p *Parser) peek(n int) token.Token {
	idx := p.pos + n
	if idx >= len(p.toks) {
		return p.toks[len(p.toks)-1]
	}
	return p.toks[idx]
}

func (p *Parser) advance() token.Token {
	t := p.cur()
	if t.Kind != token.EOF {
		p.pos++
	}
	return t
}

func (p *Parser) check(k token.Kind) bool {
	return p.cur().Kind == k
}

func (p *Parser) match(k token.Kind) bool {
	if p.check(k) {
		p.advance()
		return true
	}
	return false
}

func (p *Parser) addErrorf(pos token.Position, format string, args ...any) {
	p.errors = append(p.errors, ccerrors.NewSyntax(pos, format, args...))
}

// expect consumes the current token if it matches k, otherwise records
// a syntax error naming the expected and actual kind and returns the
// token unconsumed (callers proceed best-effort after an error).
func (p *Parser) expect(k token.Kind, context string) token.Token {
	if p.check(k) {
		return p.advance()
	}
	tok := p.cur()
	if tok.Kind == token.EOF {
		p.addErrorf(tok.Pos, "%s, found end of file", context)
	} else {
		p.addErrorf(tok.Pos, "%s, found %s", context, tok.Kind)
	}
	return tok
}

func (p *Parser) expectIdent(context string) (string, token.Position) {
	tok := p.expect(token.IDENT, context)
	return tok.Literal, tok.Pos
}

// startsTypeSpecifier reports whether k can begin a declaration's type
// specifier (spec §4.3). A leading `const` also starts one (§7
// supplement, grounded on ferricc): the qualifier is parsed and
// discarded, never affecting the synthesized type.
func startsTypeSpecifier(k token.Kind) bool {
	switch k {
	case token.VOID, token.CHAR_KW, token.INT_KW, token.LONG, token.STRUCT, token.CONST:
		return true
	default:
		return false
	}
}

// ParseProgram parses a full translation unit: zero or more top-level
// declarations until end-of-input.
func ParseProgram(toks []token.Token) (*ast.Program, []*ccerrors.CompilerError) {
	p := New(toks)
	prog := &ast.Program{}
	for !p.check(token.EOF) {
		d := p.parseDeclaration()
		if d == nil {
			// parseDeclaration already recorded an error; skip the
			// offending token to avoid looping forever.
			if !p.check(token.EOF) {
				p.advance()
			}
			continue
		}
		prog.Decls = append(prog.Decls, d)
	}
	return prog, p.errors
}

// ---- Declarations ----

func (p *Parser) parseDeclaration() ast.Decl {
	if !startsTypeSpecifier(p.cur().Kind) {
		p.addErrorf(p.cur().Pos, "expected declaration")
		return nil
	}

	ty := p.parseType()
	name, pos := p.expectIdent("expected identifier")

	if p.check(token.LPAREN) {
		return p.parseFunctionDecl(name, ty, pos)
	}
	return p.parseVariableDecl(name, ty, pos)
}

// parseType parses a base type specifier followed by zero or more
// trailing '*' producing pointer types. A leading `const` qualifier is
// accepted and discarded (§7 supplement): ferricc parses but never
// enforces it, so cc64 does the same rather than adding unenforced
// immutability tracking to the type universe.
func (p *Parser) parseType() types.Type {
	p.match(token.CONST)

	var base types.Type

	switch {
	case p.match(token.VOID):
		base = types.Void{}
	case p.match(token.CHAR_KW):
		base = types.Char{}
	case p.match(token.INT_KW):
		base = types.Int{}
	case p.match(token.LONG):
		base = types.Long{}
	case p.match(token.STRUCT):
		base = p.parseStructType()
	default:
		p.addErrorf(p.cur().Pos, "expected type specifier")
		base = types.Int{}
	}

	for p.match(token.STAR) {
		base = types.Pointer{Elem: base}
	}
	return base
}

func (p *Parser) parseStructType() types.Type {
	name := ""
	if p.check(token.IDENT) {
		name = p.advance().Literal
	}

	var fields []types.Field
	if p.match(token.LBRACE) {
		for !p.check(token.RBRACE) && !p.check(token.EOF) {
			fieldType := p.parseType()
			fieldName, _ := p.expectIdent("expected member name")
			p.expect(token.SEMI, "expected ';' after struct member")
			fields = append(fields, types.Field{Name: fieldName, Type: fieldType})
		}
		p.expect(token.RBRACE, "expected '}' after struct body")
	}

	return types.Struct{Name: name, Fields: fields}
}

func (p *Parser) parseVariableDecl(name string, ty types.Type, pos token.Position) ast.Decl {
	if p.match(token.LBRACKET) {
		var size *int
		if p.check(token.INT) {
			n := int(p.advance().IntValue)
			size = &n
		}
		p.expect(token.RBRACKET, "expected ']' after array size")
		ty = types.Array{Elem: ty, Size: size}
	}

	var init ast.Expr
	if p.match(token.ASSIGN) {
		init = p.parseExpression()
	}

	p.expect(token.SEMI, "expected ';' after variable declaration")

	return &ast.VarDecl{TokPos: pos, Name: name, Type: ty, Init: init}
}

func (p *Parser) parseFunctionDecl(name string, retType types.Type, pos token.Position) ast.Decl {
	p.expect(token.LPAREN, "expected '(' after function name")

	var params []ast.Param
	variadic := false

	if !p.check(token.RPAREN) {
		for {
			if p.match(token.ELLIPSIS) {
				variadic = true
				break
			}
			paramType := p.parseType()
			paramName, ppos := p.expectIdent("expected parameter name")
			_ = ppos
			params = append(params, ast.Param{Name: paramName, Type: paramType})

			if !p.match(token.COMMA) {
				break
			}
		}
	}

	p.expect(token.RPAREN, "expected ')' after parameters")

	decl := &ast.FuncDecl{TokPos: pos, Name: name, ReturnType: retType, Params: params, Variadic: variadic}

	if p.check(token.LBRACE) {
		decl.Body = p.parseBlock()
	} else {
		p.expect(token.SEMI, "expected ';' after function declaration")
	}

	return decl
}

// ---- Statements ----

func (p *Parser) parseBlock() *ast.BlockStmt {
	pos := p.cur().Pos
	p.expect(token.LBRACE, "expected '{'")

	block := &ast.BlockStmt{TokPos: pos}
	for !p.check(token.RBRACE) && !p.check(token.EOF) {
		block.Stmts = append(block.Stmts, p.parseStatement())
	}
	p.expect(token.RBRACE, "expected '}'")
	return block
}

func (p *Parser) parseStatement() ast.Stmt {
	switch p.cur().Kind {
	case token.IF:
		return p.parseIfStmt()
	case token.WHILE:
		return p.parseWhileStmt()
	case token.FOR:
		return p.parseForStmt()
	case token.RETURN:
		return p.parseReturnStmt()
	case token.LBRACE:
		return p.parseBlock()
	case token.SEMI:
		pos := p.advance().Pos
		return &ast.ExprStmt{TokPos: pos, X: &ast.IntLiteral{TokPos: pos, Value: 0}}
	}

	if startsTypeSpecifier(p.cur().Kind) {
		decl := p.parseDeclaration()
		if vd, ok := decl.(*ast.VarDecl); ok {
			return &ast.DeclStmt{D: vd}
		}
		// A function declaration in statement position is not valid C:
		// it is parsed so the cursor moves past it, reported as a syntax
		// error, and replaced by an empty statement.
		p.addErrorf(decl.Pos(), "function declaration not allowed in statement position")
		return &ast.ExprStmt{TokPos: decl.Pos(), X: &ast.IntLiteral{TokPos: decl.Pos(), Value: 0}}
	}

	pos := p.cur().Pos
	expr := p.parseExpression()
	p.expect(token.SEMI, "expected ';' after expression")
	return &ast.ExprStmt{TokPos: pos, X: expr}
}

func (p *Parser) parseIfStmt() ast.Stmt {
	pos := p.advance().Pos // 'if'
	p.expect(token.LPAREN, "expected '(' after 'if'")
	cond := p.parseExpression()
	p.expect(token.RPAREN, "expected ')' after condition")
	then := p.parseStatement()

	var els ast.Stmt
	if p.match(token.ELSE) {
		els = p.parseStatement()
	}
	return &ast.IfStmt{TokPos: pos, Cond: cond, Then: then, Else: els}
}

func (p *Parser) parseWhileStmt() ast.Stmt {
	pos := p.advance().Pos // 'while'
	p.expect(token.LPAREN, "expected '(' after 'while'")
	cond := p.parseExpression()
	p.expect(token.RPAREN, "expected ')' after condition")
	body := p.parseStatement()
	return &ast.WhileStmt{TokPos: pos, Cond: cond, Body: body}
}

func (p *Parser) parseForStmt() ast.Stmt {
	pos := p.advance().Pos // 'for'
	p.expect(token.LPAREN, "expected '(' after 'for'")

	var init ast.Stmt
	if startsTypeSpecifier(p.cur().Kind) {
		// A declaration initializer consumes its own ';'.
		decl := p.parseDeclaration()
		if vd, ok := decl.(*ast.VarDecl); ok {
			init = &ast.DeclStmt{D: vd}
		} else {
			p.addErrorf(decl.Pos(), "expected variable declaration in for initializer")
		}
	} else if !p.match(token.SEMI) {
		spos := p.cur().Pos
		initExpr := p.parseExpression()
		p.expect(token.SEMI, "expected ';' after for initializer")
		init = &ast.ExprStmt{TokPos: spos, X: initExpr}
	}

	var cond ast.Expr
	if !p.match(token.SEMI) {
		cond = p.parseExpression()
		p.expect(token.SEMI, "expected ';' after for condition")
	}

	var post ast.Expr
	if !p.match(token.RPAREN) {
		post = p.parseExpression()
		p.expect(token.RPAREN, "expected ')' after for increment")
	}

	body := p.parseStatement()
	return &ast.ForStmt{TokPos: pos, Init: init, Cond: cond, Post: post, Body: body}
}

func (p *Parser) parseReturnStmt() ast.Stmt {
	pos := p.advance().Pos // 'return'
	if p.match(token.SEMI) {
		return &ast.ReturnStmt{TokPos: pos}
	}
	val := p.parseExpression()
	p.expect(token.SEMI, "expected ';' after return value")
	return &ast.ReturnStmt{TokPos: pos, Value: val}
}

// ---- Expressions ----
//
// Precedence, low to high (spec §4.3): assignment (right-assoc) >
// logical-or > logical-and > equality > relational > additive >
// multiplicative > unary prefix > postfix > primary. `&`, `|`, `^`,
// `<<`, `>>` are not wired into this ladder as binary infix operators
// — see DESIGN.md for why that mirrors the reference implementation
// rather than an oversight.

func (p *Parser) parseExpression() ast.Expr {
	return p.parseAssignment()
}

func (p *Parser) parseAssignment() ast.Expr {
	left := p.parseLogicalOr()

	if p.check(token.ASSIGN) {
		pos := p.advance().Pos
		right := p.parseAssignment()
		return &ast.BinaryExpr{TokPos: pos, Op: "=", Left: left, Right: right}
	}
	return left
}

func (p *Parser) parseLogicalOr() ast.Expr {
	expr := p.parseLogicalAnd()
	for p.check(token.OR_OR) {
		pos := p.advance().Pos
		right := p.parseLogicalAnd()
		expr = &ast.BinaryExpr{TokPos: pos, Op: "||", Left: expr, Right: right}
	}
	return expr
}

func (p *Parser) parseLogicalAnd() ast.Expr {
	expr := p.parseEquality()
	for p.check(token.AND_AND) {
		pos := p.advance().Pos
		right := p.parseEquality()
		expr = &ast.BinaryExpr{TokPos: pos, Op: "&&", Left: expr, Right: right}
	}
	return expr
}

var equalityOps = map[token.Kind]string{token.EQ: "==", token.NEQ: "!="}

func (p *Parser) parseEquality() ast.Expr {
	expr := p.parseRelational()
	for {
		op, ok := equalityOps[p.cur().Kind]
		if !ok {
			return expr
		}
		pos := p.advance().Pos
		right := p.parseRelational()
		expr = &ast.BinaryExpr{TokPos: pos, Op: op, Left: expr, Right: right}
	}
}

var relationalOps = map[token.Kind]string{
	token.LT: "<", token.LE: "<=", token.GT: ">", token.GE: ">=",
}

func (p *Parser) parseRelational() ast.Expr {
	expr := p.parseAdditive()
	for {
		op, ok := relationalOps[p.cur().Kind]
		if !ok {
			return expr
		}
		pos := p.advance().Pos
		right := p.parseAdditive()
		expr = &ast.BinaryExpr{TokPos: pos, Op: op, Left: expr, Right: right}
	}
}

var additiveOps = map[token.Kind]string{token.PLUS: "+", token.MINUS: "-"}

func (p *Parser) parseAdditive() ast.Expr {
	expr := p.parseMultiplicative()
	for {
		op, ok := additiveOps[p.cur().Kind]
		if !ok {
			return expr
		}
		pos := p.advance().Pos
		right := p.parseMultiplicative()
		expr = &ast.BinaryExpr{TokPos: pos, Op: op, Left: expr, Right: right}
	}
}

var multiplicativeOps = map[token.Kind]string{
	token.STAR: "*", token.SLASH: "/", token.PERCENT: "%",
}

func (p *Parser) parseMultiplicative() ast.Expr {
	expr := p.parseUnary()
	for {
		op, ok := multiplicativeOps[p.cur().Kind]
		if !ok {
			return expr
		}
		pos := p.advance().Pos
		right := p.parseUnary()
		expr = &ast.BinaryExpr{TokPos: pos, Op: op, Left: expr, Right: right}
	}
}

var unaryOps = map[token.Kind]string{
	token.MINUS: "-", token.NOT: "!", token.TILDE: "~",
	token.STAR: "*", token.AMP: "&",
}

func (p *Parser) parseUnary() ast.Expr {
	if p.check(token.SIZEOF) {
		return p.parseSizeof()
	}

	if op, ok := unaryOps[p.cur().Kind]; ok {
		pos := p.advance().Pos
		operand := p.parseUnary()
		return &ast.UnaryExpr{TokPos: pos, Op: op, Operand: operand}
	}
	return p.parsePostfix()
}

// parseSizeof handles both sizeof(type-name) and sizeof expr. Per
// SPEC_FULL.md §7, a parenthesized type specifier is recognized by
// peeking for a type-starting token right after '('; otherwise the
// parenthesized (or bare, via parseUnary) form is parsed as a value
// expression.
func (p *Parser) parseSizeof() ast.Expr {
	pos := p.advance().Pos // 'sizeof'

	if p.check(token.LPAREN) && startsTypeSpecifier(p.peek(1).Kind) {
		p.advance() // '('
		ty := p.parseType()
		p.expect(token.RPAREN, "expected ')' after sizeof type")
		return &ast.SizeofExpr{TokPos: pos, TypeArg: ty}
	}

	operand := p.parseUnary()
	return &ast.SizeofExpr{TokPos: pos, ValueArg: operand}
}

func (p *Parser) parsePostfix() ast.Expr {
	expr := p.parsePrimary()

	for {
		switch {
		case p.check(token.LPAREN):
			expr = p.parseCall(expr)
		case p.check(token.LBRACKET):
			expr = p.parseIndex(expr)
		case p.check(token.DOT):
			pos := p.advance().Pos
			p.expect(token.IDENT, "expected member name after '.'")
			p.addErrorf(pos, "struct member access not implemented")
			return expr
		case p.check(token.ARROW):
			pos := p.advance().Pos
			p.expect(token.IDENT, "expected member name after '->'")
			p.addErrorf(pos, "struct pointer member access not implemented")
			return expr
		default:
			return expr
		}
	}
}

func (p *Parser) parseCall(callee ast.Expr) ast.Expr {
	pos := p.advance().Pos // '('

	ident, ok := callee.(*ast.Ident)
	if !ok {
		p.addErrorf(pos, "expected function name before '('")
	}

	var args []ast.Expr
	if !p.check(token.RPAREN) {
		for {
			args = append(args, p.parseExpression())
			if !p.match(token.COMMA) {
				break
			}
		}
	}
	p.expect(token.RPAREN, "expected ')' after arguments")

	name := ""
	if ok {
		name = ident.Name
	}
	return &ast.CallExpr{TokPos: pos, Callee: name, Args: args}
}

// parseIndex desugars e[i] to *(e + i), per spec §4.3.
func (p *Parser) parseIndex(arr ast.Expr) ast.Expr {
	pos := p.advance().Pos // '['
	index := p.parseExpression()
	p.expect(token.RBRACKET, "expected ']' after index")

	sum := &ast.BinaryExpr{TokPos: pos, Op: "+", Left: arr, Right: index}
	return &ast.UnaryExpr{TokPos: pos, Op: "*", Operand: sum}
}

func (p *Parser) parsePrimary() ast.Expr {
	tok := p.cur()

	switch tok.Kind {
	case token.INT:
		p.advance()
		return &ast.IntLiteral{TokPos: tok.Pos, Value: tok.IntValue}
	case token.CHAR:
		p.advance()
		return &ast.CharLiteral{TokPos: tok.Pos, Value: byte(tok.IntValue)}
	case token.STRING:
		p.advance()
		return &ast.StringLiteral{TokPos: tok.Pos, Value: tok.Literal}
	case token.IDENT:
		p.advance()
		return &ast.Ident{TokPos: tok.Pos, Name: tok.Literal}
	case token.LPAREN:
		p.advance()
		expr := p.parseExpression()
		p.expect(token.RPAREN, "expected ')' after expression")
		return expr
	}

	if tok.Kind == token.EOF {
		p.addErrorf(tok.Pos, "unexpected end of file")
	} else {
		p.addErrorf(tok.Pos, "unexpected token: %s", tok.Kind)
	}
	p.advance()
	return &ast.IntLiteral{TokPos: tok.Pos, Value: 0}
}
