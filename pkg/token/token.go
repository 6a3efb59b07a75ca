package token

import "fmt"

type Type int

const (
	EOF Type = iota
	Illegal
	Comment
	Ident
	Number
	String
	Import
	In
	TypeKeyword
	Struct
	Enum
	Range
	Const
	Var
	Def
	Proc
	Macro
	Copy
	Main
	Line
	If
	Else
	Return
	Goto
	Emit
	Panic
	Is
	LParen
	RParen
	LBrace
	RBrace
	LBracket
	RBracket
	Semi
	Comma
	Colon
	Dot
	At
	Arrow
	Eq
	PlusEq
	MinusEq
	StarEq
	SlashEq
	RemEq
	CaretEq
	Plus
	Minus
	Star
	Slash
	Rem
	Caret
	EqEq
	Neq
	Lt
	Gt
	Gte
	Lte
	AndAnd
	OrOr
	Not
	Inc
	Dec
)

var KeywordMap = map[string]Type{
	"import": Import,
	"in":     In,
	"type":   TypeKeyword,
	"struct": Struct,
	"enum":   Enum,
	"range":  Range,
	"const":  Const,
	"var":    Var,
	"def":    Def,
	"proc":   Proc,
	"macro":  Macro,
	"copy":   Copy,
	"main":   Main,
	"line":   Line,
	"if":     If,
	"else":   Else,
	"return": Return,
	"goto":   Goto,
	"emit":   Emit,
	"panic":  Panic,
	"is":     Is,
}

// Reverse mapping from Type to the keyword or punctuation string
var TypeStrings = map[Type]string{
	EOF: "end of file", Illegal: "illegal token", Comment: "comment",
	Ident: "identifier", Number: "number", String: "string",
	LParen: "(", RParen: ")", LBrace: "{", RBrace: "}", LBracket: "[", RBracket: "]",
	Semi: ";", Comma: ",", Colon: ":", Dot: ".", At: "@", Arrow: "->",
	Eq: "=", PlusEq: "+=", MinusEq: "-=", StarEq: "*=", SlashEq: "/=", RemEq: "%=", CaretEq: "^=",
	Plus: "+", Minus: "-", Star: "*", Slash: "/", Rem: "%", Caret: "^",
	EqEq: "==", Neq: "!=", Lt: "<", Gt: ">", Gte: ">=", Lte: "<=",
	AndAnd: "&&", OrOr: "||", Not: "!", Inc: "++", Dec: "--",
}

func init() {
	for str, typ := range KeywordMap {
		TypeStrings[typ] = str
	}
}

func (t Type) String() string {
	if s, ok := TypeStrings[t]; ok {
		return s
	}
	return fmt.Sprintf("token(%d)", int(t))
}

// CompoundOps maps an assignment operator like '+=' to the binary operator it applies.
var CompoundOps = map[Type]Type{
	PlusEq: Plus, MinusEq: Minus, StarEq: Star, SlashEq: Slash, RemEq: Rem, CaretEq: Caret,
}

type Token struct {
	Type   Type
	Value  string
	File   string
	Line   int
	Column int
	Len    int
}

// Pos formats the position as file:line:col.
func (t Token) Pos() string {
	file := t.File
	if file == "" {
		file = "<input>"
	}
	return fmt.Sprintf("%s:%d:%d", file, t.Line, t.Column)
}
