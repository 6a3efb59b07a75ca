package ir

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
)

func (n *Number) String() string   { return n.Value }
func (s *String) String() string   { return strconv.Quote(s.Value) }
func (v *Variable) String() string { return v.Ident.String() }
func (b *Bracket) String() string  { return "(" + b.Expr.String() + ")" }

func (u *Unary) String() string {
	if u.Op == OpNeg {
		return "-" + u.Expr.String()
	}
	return u.Op.String() + " " + u.Expr.String()
}

func (b *Binary) String() string {
	return b.Left.String() + " " + b.Op.String() + " " + b.Right.String()
}

func (i *IncDec) String() string {
	if i.Op == OpPostInc || i.Op == OpPostDec {
		return i.Ident.String() + i.Op.String()
	}
	return i.Op.String() + i.Ident.String()
}

func (a *Assignment) String() string { return a.Target.String() + " = " + a.Value.String() }

func (c *CompoundAssignment) String() string {
	return c.Target.String() + " " + c.Op.String() + "= " + c.Value.String()
}

func (e *ExprStmt) String() string  { return e.Expr.String() }
func (g *Goto) String() string      { return "goto " + g.Target.String() }
func (g *GotoLabel) String() string { return "goto @" + g.Label }
func (*Empty) String() string       { return "" }

func (i *If) String() string {
	var b strings.Builder
	b.WriteString("if " + i.Cond.String() + " then ")
	writeStmts(&b, i.Then)
	if len(i.Else) != 0 {
		b.WriteString(" else ")
		writeStmts(&b, i.Else)
	}
	b.WriteString(" end")
	return b.String()
}

func writeStmts(b *strings.Builder, stmts []Stmt) {
	for i, s := range stmts {
		if i > 0 {
			b.WriteString(" ")
		}
		b.WriteString(s.String())
	}
}

func (l *Line) String() string {
	var b strings.Builder
	if l.Label != "" {
		b.WriteString("@" + l.Label + " ")
	}
	if l.Atomic {
		b.WriteString("line ")
	}
	b.WriteString("{ ")
	writeStmts(&b, l.Stmts)
	b.WriteString(" }")
	return b.String()
}

// Dump renders the lowered program one block per line. The output is a
// stable debugging and golden-file format, not YOLOL source.
func (p *Program) Dump() string {
	var b strings.Builder
	fmt.Fprintf(&b, "# line-length %d, line-count %d", p.LineLength, p.LineCount)
	if len(p.Configs) != 0 {
		fmt.Fprintf(&b, ", configs %s", strings.Join(p.Configs, ","))
	}
	b.WriteString("\n")
	for i, l := range p.Lines {
		fmt.Fprintf(&b, "%3d  %s\n", i, l)
	}
	return b.String()
}

// Fingerprint identifies the lowered program. Equal programs have equal fingerprints.
func (p *Program) Fingerprint() uint64 { return xxhash.Sum64String(p.Dump()) }
