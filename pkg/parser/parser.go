package parser

import (
	"fmt"
	"strings"

	"github.com/xplshn/yolc/pkg/ast"
	"github.com/xplshn/yolc/pkg/config"
	"github.com/xplshn/yolc/pkg/diag"
	"github.com/xplshn/yolc/pkg/lexer"
	"github.com/xplshn/yolc/pkg/token"
)

// Parser holds the state for the parsing process
type Parser struct {
	tokens   []token.Token
	pos      int
	current  token.Token
	previous token.Token
	cfg      *config.Config
}

// bailout carries the first error up to Parse.
type bailout struct{ err *diag.Error }

// NewParser creates and initializes a new Parser from a token stream
func NewParser(tokens []token.Token, cfg *config.Config) *Parser {
	if len(tokens) == 0 || tokens[len(tokens)-1].Type != token.EOF && tokens[len(tokens)-1].Type != token.Illegal {
		tokens = append(tokens, token.Token{Type: token.EOF})
	}
	return &Parser{tokens: tokens, current: tokens[0], cfg: cfg}
}

// ParseSource lexes and parses one source file.
func ParseSource(file string, src []byte, cfg *config.Config) (*ast.Program, error) {
	toks := lexer.Tokenize([]rune(string(src)), file, cfg)
	return NewParser(toks, cfg).Parse()
}

// Parse parses a whole program, stopping at the first error.
func (p *Parser) Parse() (prog *ast.Program, err error) {
	defer func() {
		if r := recover(); r != nil {
			b, ok := r.(bailout)
			if !ok {
				panic(r)
			}
			prog, err = nil, b.err
		}
	}()

	p.checkIllegal()

	prog = &ast.Program{}
	for !p.check(token.EOF) {
		switch p.current.Type {
		case token.Import:
			if !p.cfg.IsFeatureEnabled(config.FeatImports) {
				p.fail(p.current, "imports are disabled (use -Fimports)")
			}
			prog.Imports = append(prog.Imports, p.parseImport())
		case token.TypeKeyword:
			p.parseTypeDef(prog)
		case token.Const:
			prog.Constants = append(prog.Constants, p.parseConstant())
		case token.LBracket, token.Def:
			prog.Callables = append(prog.Callables, p.parseCallable())
		case token.Main:
			if prog.Main != nil {
				p.fail(p.current, "main is already defined")
			}
			prog.Main = p.parseMain()
		default:
			p.fail(p.current, "expected a declaration, found '%s'", describe(p.current))
		}
	}

	return prog, nil
}

// Parser helpers
func (p *Parser) advance() {
	if p.pos < len(p.tokens)-1 {
		p.previous = p.current
		p.pos++
		p.current = p.tokens[p.pos]
		p.checkIllegal()
	}
}

func (p *Parser) checkIllegal() {
	if p.current.Type == token.Illegal {
		p.fail(p.current, "%s", p.current.Value)
	}
}

func (p *Parser) check(tokType token.Type) bool {
	return p.current.Type == tokType
}

func (p *Parser) match(tokType token.Type) bool {
	if !p.check(tokType) {
		return false
	}
	p.advance()
	return true
}

func (p *Parser) expect(tokType token.Type, message string) token.Token {
	if p.check(tokType) {
		p.advance()
		return p.previous
	}
	p.fail(p.current, "%s, found '%s'", message, describe(p.current))
	return token.Token{}
}

func (p *Parser) fail(tok token.Token, format string, args ...interface{}) {
	panic(bailout{&diag.Error{Kind: diag.Parse, Tok: tok, Cause: fmt.Sprintf(format, args...)}})
}

func describe(tok token.Token) string {
	if tok.Value != "" {
		return tok.Value
	}
	return tok.Type.String()
}

func (p *Parser) ident(message string) string {
	return p.expect(token.Ident, message).Value
}

// Declarations

func (p *Parser) parseImport() ast.Import {
	tok := p.expect(token.Import, "expected 'import'")
	imp := ast.Import{Tok: tok}
	imp.Path = p.expect(token.String, "expected import path string").Value
	if p.match(token.In) {
		imp.Namespace = p.ident("expected namespace after 'in'")
	}
	p.expect(token.Semi, "expected ';' after import")
	return imp
}

// parseTypeName reads 'name' or 'ns.name', the latter naming a definition imported into ns.
func (p *Parser) parseTypeName() string {
	name := p.ident("expected type name")
	if p.match(token.Dot) {
		name += ":" + p.ident("expected type name after namespace")
	}
	return name
}

func (p *Parser) parseFieldDef() ast.FieldDefinition {
	name := p.ident("expected field name")
	p.expect(token.Colon, "expected ':' after field name")
	return ast.FieldDefinition{Name: name, TypeName: p.parseTypeName()}
}

func (p *Parser) parseTypeDef(prog *ast.Program) {
	p.expect(token.TypeKeyword, "expected 'type'")
	tok := p.current

	switch {
	case p.match(token.Struct):
		def := ast.StructDefinition{Name: p.ident("expected struct name"), Tok: tok}
		p.expect(token.LBrace, "expected '{' after struct name")
		for !p.check(token.RBrace) {
			def.Fields = append(def.Fields, p.parseFieldDef())
			if !p.match(token.Comma) {
				break
			}
		}
		p.expect(token.RBrace, "expected '}' after struct fields")
		p.match(token.Semi)
		prog.Structs = append(prog.Structs, def)

	case p.match(token.Enum):
		p.expect(token.Lt, "expected '<' before enum base type")
		base := p.parseTypeName()
		p.expect(token.Gt, "expected '>' after enum base type")
		def := ast.EnumDefinition{Name: p.ident("expected enum name"), Base: base, Tok: tok}
		p.expect(token.LBrace, "expected '{' after enum name")
		for !p.check(token.RBrace) {
			item := ast.EnumItem{Name: p.ident("expected enum item")}
			if p.match(token.LParen) {
				item.Value = p.parseExpr()
				p.expect(token.RParen, "expected ')' after enum item value")
			}
			def.Items = append(def.Items, item)
			if !p.match(token.Comma) {
				break
			}
		}
		p.expect(token.RBrace, "expected '}' after enum items")
		p.match(token.Semi)
		prog.Enums = append(prog.Enums, def)

	case p.match(token.Range):
		p.expect(token.Lt, "expected '<' before range base type")
		base := p.parseTypeName()
		p.expect(token.Gt, "expected '>' after range base type")
		def := ast.RangeDefinition{Name: p.ident("expected range name"), Base: base, Tok: tok}
		p.expect(token.Arrow, "expected '->' after range name")
		def.Expr = p.parseExpr()
		p.expect(token.Semi, "expected ';' after range")
		prog.Ranges = append(prog.Ranges, def)

	default:
		p.fail(p.current, "expected 'struct', 'enum' or 'range' after 'type'")
	}
}

func (p *Parser) parseConstant() ast.Constant {
	tok := p.expect(token.Const, "expected 'const'")
	c := ast.Constant{Field: p.parseFieldDef(), Tok: tok}
	p.expect(token.Eq, "expected '=' in constant")
	c.Value = p.parseExpr()
	p.expect(token.Semi, "expected ';' after constant")
	return c
}

func (p *Parser) parseCallable() ast.CallableDefinition {
	var attrs []ast.Attribute
	if p.match(token.LBracket) {
		for !p.check(token.RBracket) {
			attr := ast.Attribute{Name: p.ident("expected attribute name")}
			if p.match(token.LParen) {
				attr.Params = p.parseArgs()
			}
			attrs = append(attrs, attr)
			if !p.match(token.Comma) {
				break
			}
		}
		p.expect(token.RBracket, "expected ']' after attributes")
	}

	tok := p.expect(token.Def, "expected 'def'")
	def := ast.CallableDefinition{Attributes: attrs, Tok: tok}

	switch {
	case p.match(token.Macro):
		def.CallType = ast.Macro
	case p.match(token.Proc):
		def.CallType = ast.Proc
	default:
		p.fail(p.current, "expected 'macro' or 'proc' after 'def'")
	}

	def.Name = p.ident("expected callable name")
	p.expect(token.LParen, "expected '(' after callable name")
	for !p.check(token.RParen) {
		param := ast.ParameterDefinition{Copy: p.match(token.Copy)}
		param.Field = p.parseFieldDef()
		def.Params = append(def.Params, param)
		if !p.match(token.Comma) {
			break
		}
	}
	p.expect(token.RParen, "expected ')' after parameters")

	if p.match(token.Arrow) {
		def.ReturnType = p.parseTypeName()
	}

	def.Body = p.parseBlock(false)
	return def
}

func (p *Parser) parseMain() *ast.Main {
	tok := p.expect(token.Main, "expected 'main'")
	return &ast.Main{Stmts: p.parseBlock(true), Tok: tok}
}

// Statements

// parseBlock parses '{ stmt; ... }'. Outer blocks also accept line groups and labels.
func (p *Parser) parseBlock(outer bool) []*ast.Node {
	p.expect(token.LBrace, "expected '{'")
	var stmts []*ast.Node
	for !p.check(token.RBrace) && !p.check(token.EOF) {
		var stmt *ast.Node
		if outer {
			stmt = p.parseOuterStmt()
		} else {
			stmt = p.parseInnerStmt()
		}
		stmts = append(stmts, stmt)

		switch stmt.Type {
		case ast.If, ast.Line, ast.Emit, ast.Label:
			p.match(token.Semi)
		default:
			p.expect(token.Semi, "expected ';' after statement")
		}
	}
	p.expect(token.RBrace, "expected '}'")
	return stmts
}

func (p *Parser) parseOuterStmt() *ast.Node {
	tok := p.current
	switch {
	case p.match(token.Line):
		label := ""
		if p.match(token.LParen) {
			label = p.ident("expected line label")
			p.expect(token.RParen, "expected ')' after line label")
		}
		return ast.NewLine(tok, label, p.parseBlock(false))
	case p.match(token.At):
		return ast.NewLabel(tok, p.ident("expected label name after '@'"))
	}
	return p.parseInnerStmt()
}

func (p *Parser) parseInnerStmt() *ast.Node {
	tok := p.current

	switch {
	case p.match(token.Panic):
		return ast.NewPanicStmt(tok, p.parsePanicMessage())

	case p.match(token.Emit):
		p.expect(token.LBrace, "expected '{' after 'emit'")
		code := p.expect(token.String, "expected target code string").Value
		p.expect(token.RBrace, "expected '}' after emitted code")
		return ast.NewEmit(tok, code)

	case p.match(token.If):
		return p.parseIf(tok)

	case p.match(token.Return):
		return ast.NewReturn(tok, p.parseExpr())

	case p.match(token.Goto):
		return ast.NewGoto(tok, p.ident("expected label after 'goto'"))

	case p.match(token.Var):
		field := p.parseFieldDef()
		p.expect(token.Eq, "expected '=' in declaration")
		return ast.NewDeclareAssign(tok, field, p.parseExpr())

	case p.match(token.Const):
		field := p.parseFieldDef()
		p.expect(token.Eq, "expected '=' in constant declaration")
		return ast.NewDeclareConst(tok, field, p.parseExpr())

	case p.match(token.Colon):
		name := p.ident("expected external field name after ':'")
		target := ast.NewExternal(tok, name)
		return ast.NewExternalAssign(tok, name, p.parseAssignValue(target))

	case p.check(token.Ident):
		path := p.parsePath()
		if p.match(token.LParen) {
			return ast.NewCallStmt(tok, p.qualifiedName(tok, path), p.parseArgs())
		}
		target := ast.NewFieldAccess(tok, path...)
		return ast.NewAssign(tok, path, p.parseAssignValue(target))
	}

	p.fail(tok, "expected a statement, found '%s'", describe(tok))
	return nil
}

// parseAssignValue reads '= e' or 'op= e', desugaring the latter to 'target op e'.
func (p *Parser) parseAssignValue(target *ast.Node) *ast.Node {
	tok := p.current
	if p.match(token.Eq) {
		return p.parseExpr()
	}
	if op, ok := token.CompoundOps[tok.Type]; ok {
		p.advance()
		value := p.parseExpr()
		if value.Type == ast.BinaryOp {
			value = ast.NewBracket(value.Tok, value)
		}
		return ast.NewBinaryOp(tok, op, target, value)
	}
	p.fail(tok, "expected '=' or '(' after '%s', found '%s'", ast.Format(target), describe(tok))
	return nil
}

func (p *Parser) parseIf(tok token.Token) *ast.Node {
	p.expect(token.LParen, "expected '(' after 'if'")
	cond := p.parseExpr()
	p.expect(token.RParen, "expected ')' after condition")
	thenBody := p.parseBlock(false)

	var elseBody []*ast.Node
	if p.match(token.Else) {
		if elseTok := p.current; p.match(token.If) {
			elseBody = []*ast.Node{p.parseIf(elseTok)}
		} else {
			elseBody = p.parseBlock(false)
		}
	}
	return ast.NewIf(tok, cond, thenBody, elseBody)
}

func (p *Parser) parsePanicMessage() string {
	p.expect(token.LParen, "expected '(' after 'panic'")
	msg := p.expect(token.String, "expected panic message").Value
	p.expect(token.RParen, "expected ')' after panic message")
	return msg
}

func (p *Parser) parsePath() []string {
	path := []string{p.ident("expected identifier")}
	for p.match(token.Dot) {
		path = append(path, p.ident("expected member name after '.'"))
	}
	return path
}

// qualifiedName turns 'name' or 'ns.name' into a callable or type name.
func (p *Parser) qualifiedName(tok token.Token, path []string) string {
	if len(path) > 2 {
		p.fail(tok, "'%s' is not a valid name", strings.Join(path, "."))
	}
	return strings.Join(path, ":")
}

func (p *Parser) parseArgs() []*ast.Node {
	var args []*ast.Node
	for !p.check(token.RParen) {
		args = append(args, p.parseExpr())
		if !p.match(token.Comma) {
			break
		}
	}
	p.expect(token.RParen, "expected ')' after arguments")
	return args
}

// Expressions

const isPrecedence = 3

func binaryPrecedence(op token.Type) int {
	switch op {
	case token.OrOr:
		return 1
	case token.AndAnd:
		return 2
	case token.EqEq, token.Neq:
		return 4
	case token.Lt, token.Gt, token.Lte, token.Gte:
		return 5
	case token.Plus, token.Minus:
		return 6
	case token.Star, token.Slash, token.Rem:
		return 7
	case token.Caret:
		return 8
	default:
		return -1
	}
}

func (p *Parser) parseExpr() *ast.Node { return p.parseBinaryExpr(1) }

func (p *Parser) parseBinaryExpr(minPrec int) *ast.Node {
	left := p.parseUnaryExpr()
	for {
		opTok := p.current
		if opTok.Type == token.Is && isPrecedence >= minPrec {
			p.advance()
			left = ast.NewIs(opTok, left, p.parseTypeName())
			continue
		}

		prec := binaryPrecedence(opTok.Type)
		if prec < minPrec {
			return left
		}
		p.advance()

		next := prec + 1
		if opTok.Type == token.Caret {
			next = prec
		}
		left = ast.NewBinaryOp(opTok, opTok.Type, left, p.parseBinaryExpr(next))
	}
}

func (p *Parser) parseUnaryExpr() *ast.Node {
	tok := p.current
	switch {
	case p.match(token.Minus), p.match(token.Not):
		return ast.NewUnaryOp(tok, tok.Type, p.parseUnaryExpr())
	case p.match(token.Inc), p.match(token.Dec):
		return ast.NewIncDec(tok, tok.Type, true, p.parsePath())
	}
	return p.parsePostfixExpr()
}

func (p *Parser) parsePostfixExpr() *ast.Node {
	expr := p.parsePrimaryExpr()
	if expr.Type == ast.FieldAccess && (p.check(token.Inc) || p.check(token.Dec)) {
		tok := p.current
		p.advance()
		return ast.NewIncDec(tok, tok.Type, false, expr.Data.(ast.FieldAccessNode).Path)
	}
	return expr
}

func (p *Parser) parsePrimaryExpr() *ast.Node {
	tok := p.current
	switch {
	case p.match(token.Number):
		return ast.NewNumber(tok, tok.Value)
	case p.match(token.String):
		return ast.NewString(tok, tok.Value)
	case p.match(token.Colon):
		return ast.NewExternal(tok, p.ident("expected external field name after ':'"))
	case p.match(token.LParen):
		expr := p.parseExpr()
		p.expect(token.RParen, "expected ')' after expression")
		return ast.NewBracket(tok, expr)
	case p.match(token.Panic):
		return ast.NewPanic(tok, p.parsePanicMessage())
	case p.check(token.Ident):
		path := p.parsePath()
		switch {
		case p.match(token.LParen):
			return ast.NewCall(tok, p.qualifiedName(tok, path), p.parseArgs())
		case p.check(token.LBrace):
			return p.parseConstructor(tok, p.qualifiedName(tok, path))
		}
		return ast.NewFieldAccess(tok, path...)
	}

	p.fail(tok, "expected an expression, found '%s'", describe(tok))
	return nil
}

func (p *Parser) parseConstructor(tok token.Token, typeName string) *ast.Node {
	p.expect(token.LBrace, "expected '{' in constructor")
	var members []ast.MemberInit
	for !p.check(token.RBrace) {
		mtok := p.current
		name := p.ident("expected member name")
		p.expect(token.Colon, "expected ':' after member name")
		members = append(members, ast.MemberInit{Name: name, Tok: mtok, Value: p.parseExpr()})
		if !p.match(token.Comma) {
			break
		}
	}
	p.expect(token.RBrace, "expected '}' after constructor members")
	return ast.NewConstructor(tok, typeName, members)
}
