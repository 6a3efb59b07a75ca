package lexer

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/xplshn/yolc/pkg/config"
	"github.com/xplshn/yolc/pkg/token"
)

type Lexer struct {
	source []rune
	file   string
	pos    int
	line   int
	column int
	cfg    *config.Config
}

func NewLexer(source []rune, file string, cfg *config.Config) *Lexer {
	return &Lexer{
		source: source, file: file, line: 1, column: 1, cfg: cfg,
	}
}

// Tokenize lexes the whole source. The result always ends with EOF, or stops at
// the first Illegal token, whose Value holds the reason.
func Tokenize(source []rune, file string, cfg *config.Config) []token.Token {
	l := NewLexer(source, file, cfg)
	var toks []token.Token
	for {
		tok := l.Next()
		toks = append(toks, tok)
		if tok.Type == token.EOF || tok.Type == token.Illegal {
			return toks
		}
	}
}

func (l *Lexer) Next() token.Token {
	if tok, ok := l.skipWhitespaceAndComments(); !ok {
		return tok
	}
	startPos, startCol, startLine := l.pos, l.column, l.line

	if l.isAtEnd() {
		return l.makeToken(token.EOF, "", startPos, startCol, startLine)
	}

	ch := l.peek()
	if unicode.IsLetter(ch) || ch == '_' {
		return l.identifierOrKeyword(startPos, startCol, startLine)
	}
	if unicode.IsDigit(ch) {
		return l.numberLiteral(startPos, startCol, startLine)
	}

	l.advance()
	switch ch {
	case '(': return l.makeToken(token.LParen, "", startPos, startCol, startLine)
	case ')': return l.makeToken(token.RParen, "", startPos, startCol, startLine)
	case '{': return l.makeToken(token.LBrace, "", startPos, startCol, startLine)
	case '}': return l.makeToken(token.RBrace, "", startPos, startCol, startLine)
	case '[': return l.makeToken(token.LBracket, "", startPos, startCol, startLine)
	case ']': return l.makeToken(token.RBracket, "", startPos, startCol, startLine)
	case ';': return l.makeToken(token.Semi, "", startPos, startCol, startLine)
	case ',': return l.makeToken(token.Comma, "", startPos, startCol, startLine)
	case ':': return l.makeToken(token.Colon, "", startPos, startCol, startLine)
	case '.': return l.makeToken(token.Dot, "", startPos, startCol, startLine)
	case '@': return l.makeToken(token.At, "", startPos, startCol, startLine)
	case '!': return l.matchThen('=', token.Neq, token.Not, startPos, startCol, startLine)
	case '<': return l.matchThen('=', token.Lte, token.Lt, startPos, startCol, startLine)
	case '>': return l.matchThen('=', token.Gte, token.Gt, startPos, startCol, startLine)
	case '=': return l.matchThen('=', token.EqEq, token.Eq, startPos, startCol, startLine)
	case '*': return l.compound(token.StarEq, token.Star, startPos, startCol, startLine)
	case '/': return l.compound(token.SlashEq, token.Slash, startPos, startCol, startLine)
	case '%': return l.compound(token.RemEq, token.Rem, startPos, startCol, startLine)
	case '^': return l.compound(token.CaretEq, token.Caret, startPos, startCol, startLine)
	case '+':
		if l.match('+') {
			return l.makeToken(token.Inc, "", startPos, startCol, startLine)
		}
		return l.compound(token.PlusEq, token.Plus, startPos, startCol, startLine)
	case '-':
		if l.match('-') {
			return l.makeToken(token.Dec, "", startPos, startCol, startLine)
		}
		if l.match('>') {
			return l.makeToken(token.Arrow, "", startPos, startCol, startLine)
		}
		return l.compound(token.MinusEq, token.Minus, startPos, startCol, startLine)
	case '&':
		if l.match('&') {
			return l.makeToken(token.AndAnd, "", startPos, startCol, startLine)
		}
	case '|':
		if l.match('|') {
			return l.makeToken(token.OrOr, "", startPos, startCol, startLine)
		}
	case '"':
		return l.stringLiteral(startPos, startCol, startLine)
	}

	return l.illegal(startPos, startCol, startLine, "unexpected character: '%c'", ch)
}

func (l *Lexer) peek() rune {
	if l.isAtEnd() {
		return 0
	}
	return l.source[l.pos]
}

func (l *Lexer) peekNext() rune {
	if l.pos+1 >= len(l.source) {
		return 0
	}
	return l.source[l.pos+1]
}

func (l *Lexer) advance() rune {
	if l.isAtEnd() {
		return 0
	}
	ch := l.source[l.pos]
	if ch == '\n' {
		l.line++
		l.column = 1
	} else {
		l.column++
	}
	l.pos++
	return ch
}

func (l *Lexer) match(expected rune) bool {
	if l.isAtEnd() || l.source[l.pos] != expected {
		return false
	}
	l.advance()
	return true
}

func (l *Lexer) isAtEnd() bool { return l.pos >= len(l.source) }

func (l *Lexer) makeToken(tokType token.Type, value string, startPos, startCol, startLine int) token.Token {
	return token.Token{
		Type: tokType, Value: value, File: l.file,
		Line: startLine, Column: startCol, Len: l.pos - startPos,
	}
}

func (l *Lexer) illegal(startPos, startCol, startLine int, format string, args ...interface{}) token.Token {
	return l.makeToken(token.Illegal, fmt.Sprintf(format, args...), startPos, startCol, startLine)
}

// skipWhitespaceAndComments returns false together with an Illegal token
// when a block comment is left open.
func (l *Lexer) skipWhitespaceAndComments() (token.Token, bool) {
	for {
		switch {
		case l.peek() == ' ' || l.peek() == '\t' || l.peek() == '\n' || l.peek() == '\r':
			l.advance()
		case l.peek() == '/' && l.peekNext() == '/' && l.cfg.IsFeatureEnabled(config.FeatCComments):
			for !l.isAtEnd() && l.peek() != '\n' {
				l.advance()
			}
		case l.peek() == '/' && l.peekNext() == '*' && l.cfg.IsFeatureEnabled(config.FeatBlockComments):
			startPos, startCol, startLine := l.pos, l.column, l.line
			l.advance()
			l.advance()
			for !(l.peek() == '*' && l.peekNext() == '/') {
				if l.isAtEnd() {
					return l.illegal(startPos, startCol, startLine, "unterminated block comment"), false
				}
				l.advance()
			}
			l.advance()
			l.advance()
		default:
			return token.Token{}, true
		}
	}
}

func (l *Lexer) identifierOrKeyword(startPos, startCol, startLine int) token.Token {
	for unicode.IsLetter(l.peek()) || unicode.IsDigit(l.peek()) || l.peek() == '_' {
		l.advance()
	}
	value := string(l.source[startPos:l.pos])

	if tokType, isKeyword := token.KeywordMap[value]; isKeyword {
		return l.makeToken(tokType, "", startPos, startCol, startLine)
	}
	return l.makeToken(token.Ident, value, startPos, startCol, startLine)
}

// numberLiteral keeps the literal text. Its value is interpreted by the constant folder.
func (l *Lexer) numberLiteral(startPos, startCol, startLine int) token.Token {
	for unicode.IsDigit(l.peek()) {
		l.advance()
	}
	if l.peek() == '.' && unicode.IsDigit(l.peekNext()) {
		l.advance()
		for unicode.IsDigit(l.peek()) {
			l.advance()
		}
	}
	if unicode.IsLetter(l.peek()) || l.peek() == '_' {
		return l.illegal(startPos, startCol, startLine, "malformed number literal")
	}
	return l.makeToken(token.Number, string(l.source[startPos:l.pos]), startPos, startCol, startLine)
}

func (l *Lexer) stringLiteral(startPos, startCol, startLine int) token.Token {
	var sb strings.Builder
	for !l.isAtEnd() {
		c := l.advance()
		switch c {
		case '"':
			return l.makeToken(token.String, sb.String(), startPos, startCol, startLine)
		case '\n':
			return l.illegal(startPos, startCol, startLine, "newline in string literal")
		case '\\':
			esc := l.advance()
			switch esc {
			case 'n': sb.WriteRune('\n')
			case 't': sb.WriteRune('\t')
			case '"': sb.WriteRune('"')
			case '\\': sb.WriteRune('\\')
			default:
				return l.illegal(startPos, startCol, startLine, "unrecognized escape sequence '\\%c'", esc)
			}
		default:
			sb.WriteRune(c)
		}
	}
	return l.illegal(startPos, startCol, startLine, "unterminated string literal")
}

func (l *Lexer) matchThen(expected rune, thenType, elseType token.Type, sPos, sCol, sLine int) token.Token {
	if l.match(expected) {
		return l.makeToken(thenType, "", sPos, sCol, sLine)
	}
	return l.makeToken(elseType, "", sPos, sCol, sLine)
}

// compound recognizes 'op=' when compound assignment is enabled.
func (l *Lexer) compound(thenType, elseType token.Type, sPos, sCol, sLine int) token.Token {
	if l.cfg.IsFeatureEnabled(config.FeatCompoundAssign) && l.match('=') {
		return l.makeToken(thenType, "", sPos, sCol, sLine)
	}
	return l.makeToken(elseType, "", sPos, sCol, sLine)
}
