package ast

import (
	"strconv"
	"strings"

	"github.com/xplshn/yolc/pkg/token"
)

// Format renders a node back into source syntax, for diagnostics and debug output.
func Format(node *Node) string {
	var b strings.Builder
	format(&b, node)
	return b.String()
}

func format(b *strings.Builder, node *Node) {
	if node == nil {
		b.WriteString("<nil>")
		return
	}

	switch d := node.Data.(type) {
	case NumberNode:
		b.WriteString(d.Value)
	case StringNode:
		b.WriteString(strconv.Quote(d.Value))
	case FieldAccessNode:
		b.WriteString(strings.Join(d.Path, "."))
	case ExternalNode:
		b.WriteString(":" + d.Name)
	case UnaryOpNode:
		b.WriteString(d.Op.String())
		format(b, d.Expr)
	case BinaryOpNode:
		format(b, d.Left)
		b.WriteString(" " + d.Op.String() + " ")
		format(b, d.Right)
	case IsNode:
		format(b, d.Expr)
		b.WriteString(" is " + d.TypeName)
	case BracketNode:
		b.WriteString("(")
		format(b, d.Expr)
		b.WriteString(")")
	case CallNode:
		b.WriteString(d.Name + "(")
		formatList(b, d.Args, ", ")
		b.WriteString(")")
	case IncDecNode:
		op := "++"
		if d.Op == token.Dec {
			op = "--"
		}
		path := strings.Join(d.Path, ".")
		if d.Prefix {
			b.WriteString(op + path)
		} else {
			b.WriteString(path + op)
		}
	case ConstructorNode:
		b.WriteString(d.TypeName + " { ")
		for i, m := range d.Members {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(m.Name + ": ")
			format(b, m.Value)
		}
		b.WriteString(" }")
	case PanicNode:
		b.WriteString("panic(" + strconv.Quote(d.Message) + ")")
	case EmitNode:
		b.WriteString("emit { " + strconv.Quote(d.Code) + " }")
	case IfNode:
		b.WriteString("if (")
		format(b, d.Cond)
		b.WriteString(") { ")
		formatList(b, d.Then, "; ")
		b.WriteString(" } else { ")
		formatList(b, d.Else, "; ")
		b.WriteString(" }")
	case AssignNode:
		b.WriteString(strings.Join(d.Path, ".") + " = ")
		format(b, d.Value)
	case DeclareNode:
		kw := "var "
		if node.Type == DeclareConst {
			kw = "const "
		}
		b.WriteString(kw + d.Field.Name + ": " + d.Field.TypeName + " = ")
		format(b, d.Value)
	case ExternalAssignNode:
		b.WriteString(":" + d.Name + " = ")
		format(b, d.Value)
	case ReturnNode:
		b.WriteString("return ")
		format(b, d.Value)
	case GotoNode:
		b.WriteString("goto " + d.Label)
	case LineNode:
		b.WriteString("line ")
		if d.Label != "" {
			b.WriteString("(" + d.Label + ") ")
		}
		b.WriteString("{ ")
		formatList(b, d.Stmts, "; ")
		b.WriteString(" }")
	case LabelNode:
		b.WriteString("@" + d.Name)
	default:
		b.WriteString("<" + node.Type.String() + ">")
	}
}

func formatList(b *strings.Builder, nodes []*Node, sep string) {
	for i, n := range nodes {
		if i > 0 {
			b.WriteString(sep)
		}
		format(b, n)
	}
}
