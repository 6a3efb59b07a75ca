package codegen

import (
	"fmt"
	"math"
	"strings"

	"github.com/xplshn/yolc/pkg/ast"
	"github.com/xplshn/yolc/pkg/ir"
	"github.com/xplshn/yolc/pkg/token"
)

var unaryOps = map[token.Type]ir.Op{
	token.Minus: ir.OpNeg,
	token.Not:   ir.OpNot,
}

var binaryOps = map[token.Type]ir.Op{
	token.Plus:   ir.OpAdd,
	token.Minus:  ir.OpSub,
	token.Star:   ir.OpMul,
	token.Slash:  ir.OpDiv,
	token.Rem:    ir.OpMod,
	token.Caret:  ir.OpExp,
	token.AndAnd: ir.OpAnd,
	token.OrOr:   ir.OpOr,
	token.EqEq:   ir.OpEq,
	token.Neq:    ir.OpNeq,
	token.Lt:     ir.OpLt,
	token.Gt:     ir.OpGt,
	token.Lte:    ir.OpLte,
	token.Gte:    ir.OpGte,
}

// value is a folded constant: a fixed-point number or a string.
type value struct {
	num   int64
	str   string
	isStr bool
}

func numValue(n int64) value  { return value{num: n} }
func strValue(s string) value { return value{str: s, isStr: true} }

func (v value) expr() ir.Expr {
	if v.isStr {
		return &ir.String{Value: v.str}
	}
	return ir.NewNumber(v.num)
}

func (v value) text() string {
	if v.isStr {
		return v.str
	}
	return ir.FormatNumber(v.num)
}

func (v value) truthy() bool { return !v.isStr && v.num != 0 }

func truth(b bool) int64 {
	if b {
		return ir.NumberScale
	}
	return 0
}

// fold evaluates a constant expression with the target's number semantics.
func (ctx *Context) fold(node *ast.Node) (value, error) {
	switch d := node.Data.(type) {
	case ast.NumberNode:
		n, err := ir.ParseNumber(d.Value)
		if err != nil {
			return value{}, err
		}
		return numValue(n), nil

	case ast.StringNode:
		return strValue(d.Value), nil

	case ast.BracketNode:
		return ctx.fold(d.Expr)

	case ast.FieldAccessNode:
		name := ast.CanonicalName(d.Path)
		if v, ok := ctx.consts[name]; ok {
			return v, nil
		}
		return value{}, fmt.Errorf("`%s` is not a constant", strings.Join(d.Path, "."))

	case ast.IsNode:
		ok, err := ctx.typeTest(d)
		if err != nil {
			return value{}, err
		}
		return numValue(truth(ok)), nil

	case ast.UnaryOpNode:
		x, err := ctx.fold(d.Expr)
		if err != nil {
			return value{}, err
		}
		if d.Op == token.Not {
			return numValue(truth(!x.truthy())), nil
		}
		if x.isStr {
			return value{}, fmt.Errorf("cannot negate a string")
		}
		return numValue(-x.num), nil

	case ast.BinaryOpNode:
		l, err := ctx.fold(d.Left)
		if err != nil {
			return value{}, err
		}
		r, err := ctx.fold(d.Right)
		if err != nil {
			return value{}, err
		}
		return foldBinary(d.Op, l, r)
	}

	return value{}, fmt.Errorf("`%s` is not a constant expression", ast.Format(node))
}

func foldBinary(op token.Type, l, r value) (value, error) {
	switch op {
	case token.AndAnd:
		return numValue(truth(l.truthy() && r.truthy())), nil
	case token.OrOr:
		return numValue(truth(l.truthy() || r.truthy())), nil
	case token.EqEq:
		return numValue(truth(l == r)), nil
	case token.Neq:
		return numValue(truth(l != r)), nil
	}

	if l.isStr || r.isStr {
		return foldString(op, l, r)
	}

	a, b := l.num, r.num
	switch op {
	case token.Plus:
		return numValue(a + b), nil
	case token.Minus:
		return numValue(a - b), nil
	case token.Star:
		return numValue(a * b / ir.NumberScale), nil
	case token.Slash:
		if b == 0 {
			return value{}, fmt.Errorf("division by zero")
		}
		return numValue(a * ir.NumberScale / b), nil
	case token.Rem:
		if b == 0 {
			return value{}, fmt.Errorf("modulus by zero")
		}
		return numValue(a % b), nil
	case token.Caret:
		p := math.Pow(float64(a)/ir.NumberScale, float64(b)/ir.NumberScale)
		if math.IsNaN(p) || math.IsInf(p, 0) {
			return value{}, fmt.Errorf("%s ^ %s is not a number", ir.FormatNumber(a), ir.FormatNumber(b))
		}
		return numValue(int64(p * ir.NumberScale)), nil
	case token.Lt:
		return numValue(truth(a < b)), nil
	case token.Gt:
		return numValue(truth(a > b)), nil
	case token.Lte:
		return numValue(truth(a <= b)), nil
	case token.Gte:
		return numValue(truth(a >= b)), nil
	}

	return value{}, fmt.Errorf("unknown operator %v", op)
}

// foldString handles the string forms: '+' concatenates and '-' removes the
// last occurrence of the right operand.
func foldString(op token.Type, l, r value) (value, error) {
	switch op {
	case token.Plus:
		return strValue(l.text() + r.text()), nil
	case token.Minus:
		s, sub := l.text(), r.text()
		if i := strings.LastIndex(s, sub); i >= 0 {
			s = s[:i] + s[i+len(sub):]
		}
		return strValue(s), nil
	case token.Lt, token.Gt, token.Lte, token.Gte:
		if l.isStr && r.isStr {
			c := strings.Compare(l.str, r.str)
			switch op {
			case token.Lt:
				return numValue(truth(c < 0)), nil
			case token.Gt:
				return numValue(truth(c > 0)), nil
			case token.Lte:
				return numValue(truth(c <= 0)), nil
			default:
				return numValue(truth(c >= 0)), nil
			}
		}
		return value{}, fmt.Errorf("cannot compare a string with a number")
	}

	return value{}, fmt.Errorf("operator %v is not defined on strings", op)
}
