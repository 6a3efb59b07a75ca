// Package ir is the target abstract syntax: YOLOL-shaped lines of statements.
package ir

type Op int

const (
	OpAdd Op = iota
	OpSub
	OpMul
	OpDiv
	OpMod
	OpExp
	OpAnd
	OpOr
	OpEq
	OpNeq
	OpLt
	OpGt
	OpLte
	OpGte

	OpNeg
	OpNot
	OpAbs
	OpSqrt
	OpSin
	OpCos
	OpTan
	OpAsin
	OpAcos
	OpAtan

	OpPreInc
	OpPreDec
	OpPostInc
	OpPostDec
)

var opNames = [...]string{
	OpAdd: "+", OpSub: "-", OpMul: "*", OpDiv: "/", OpMod: "%", OpExp: "^",
	OpAnd: "and", OpOr: "or", OpEq: "==", OpNeq: "!=", OpLt: "<", OpGt: ">", OpLte: "<=", OpGte: ">=",
	OpNeg: "-", OpNot: "not", OpAbs: "abs", OpSqrt: "sqrt",
	OpSin: "sin", OpCos: "cos", OpTan: "tan", OpAsin: "asin", OpAcos: "acos", OpAtan: "atan",
	OpPreInc: "++", OpPreDec: "--", OpPostInc: "++", OpPostDec: "--",
}

func (o Op) String() string {
	if int(o) < len(opNames) {
		return opNames[o]
	}
	return "?"
}

// Identifier names a program-local field or, with External set, a device field.
type Identifier struct {
	Name     string
	External bool
}

func (i Identifier) String() string {
	if i.External {
		return ":" + i.Name
	}
	return i.Name
}

type Expr interface {
	isExpr()
	String() string
}

type Number struct{ Value string }
type String struct{ Value string }
type Variable struct{ Ident Identifier }
type Unary struct{ Op Op; Expr Expr }
type Binary struct{ Op Op; Left, Right Expr }
type Bracket struct{ Expr Expr }
type IncDec struct{ Op Op; Ident Identifier }

func (*Number) isExpr()   {}
func (*String) isExpr()   {}
func (*Variable) isExpr() {}
func (*Unary) isExpr()    {}
func (*Binary) isExpr()   {}
func (*Bracket) isExpr()  {}
func (*IncDec) isExpr()   {}

type Stmt interface {
	isStmt()
	String() string
}

type Assignment struct{ Target Identifier; Value Expr }
type CompoundAssignment struct{ Target Identifier; Op Op; Value Expr }
type ExprStmt struct{ Expr Expr }
type Goto struct{ Target Expr }
type GotoLabel struct{ Label string }
type If struct{ Cond Expr; Then, Else []Stmt }
type Empty struct{}

func (*Assignment) isStmt()         {}
func (*CompoundAssignment) isStmt() {}
func (*ExprStmt) isStmt()           {}
func (*Goto) isStmt()               {}
func (*GotoLabel) isStmt()          {}
func (*If) isStmt()                 {}
func (*Empty) isStmt()              {}

// Line is one block of the lowered program. Atomic lines must land on a single
// physical line when laid out.
type Line struct {
	Label  string
	Atomic bool
	Stmts  []Stmt
}

// Program is the lowered program, ready for a layout stage. The limits are
// carried for that stage and are not enforced here.
type Program struct {
	Lines      []*Line
	LineLength int
	LineCount  int
	Configs    []string
}

// Labels lists line labels in program order.
func (p *Program) Labels() []string {
	var res []string
	for _, l := range p.Lines {
		if l.Label != "" {
			res = append(res, l.Label)
		}
	}
	return res
}

// FindLine returns the line carrying label.
func (p *Program) FindLine(label string) *Line {
	for _, l := range p.Lines {
		if l.Label == label {
			return l
		}
	}
	return nil
}
