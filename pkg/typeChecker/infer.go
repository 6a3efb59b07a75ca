package typeChecker

import (
	"github.com/xplshn/yolc/pkg/ast"
	"github.com/xplshn/yolc/pkg/diag"
	"github.com/xplshn/yolc/pkg/token"
)

var stringOpCauses = map[token.Type]string{
	token.Star:  "cannot multiply strings",
	token.Slash: "cannot divide strings",
	token.Rem:   "cannot take the modulus of a string",
	token.Caret: "cannot raise strings to a power",
}

// Infer computes the static type of an expression bottom-up.
func Infer(expr *ast.Node, env *Env) (Type, error) {
	switch d := expr.Data.(type) {
	case ast.NumberNode:
		return TypeNum, nil
	case ast.StringNode:
		return TypeStr, nil
	case ast.ExternalNode:
		return TypeAny, nil
	case ast.FieldAccessNode:
		return lookupField(expr.Tok, d.Path, env)
	case ast.BracketNode:
		return Infer(d.Expr, env)
	case ast.ConstructorNode:
		return TypeOther(d.TypeName), nil
	case ast.PanicNode:
		return Type{}, &diag.Error{Kind: diag.ExplicitPanic, Tok: expr.Tok, Cause: d.Message}
	case ast.CallNode:
		return Type{}, diag.NotImplementedf(expr.Tok, "using the result of calling `%s`", d.Name)

	case ast.IsNode:
		if _, err := Infer(d.Expr, env); err != nil {
			return Type{}, err
		}
		return TypeBool, nil

	case ast.IncDecNode:
		t, err := lookupField(expr.Tok, d.Path, env)
		if err != nil {
			return Type{}, err
		}
		switch t.Kind {
		case Num, Bool:
			return TypeNum, nil
		case Str:
			return TypeStr, nil
		}
		return Type{}, inferenceFailed(expr)

	case ast.UnaryOpNode:
		t, err := Infer(d.Expr, env)
		if err != nil {
			return Type{}, err
		}
		if d.Op == token.Not {
			return TypeBool, nil
		}
		switch t.Kind {
		case Num, Bool:
			return TypeNum, nil
		case Str:
			return Type{}, &diag.Error{Kind: diag.StaticTypeError, Tok: expr.Tok, Cause: "cannot negate a string", Expr: ast.Format(expr)}
		}
		return Type{}, inferenceFailed(expr)

	case ast.BinaryOpNode:
		return inferBinary(expr, d, env)
	}

	return Type{}, inferenceFailed(expr)
}

func inferBinary(expr *ast.Node, d ast.BinaryOpNode, env *Env) (Type, error) {
	l, err := Infer(d.Left, env)
	if err != nil {
		return Type{}, err
	}
	r, err := Infer(d.Right, env)
	if err != nil {
		return Type{}, err
	}

	switch d.Op {
	case token.EqEq, token.Neq, token.Lt, token.Gt, token.Lte, token.Gte, token.AndAnd, token.OrOr:
		return TypeBool, nil
	}

	if !arithmetic(l) || !arithmetic(r) {
		return Type{}, inferenceFailed(expr)
	}

	switch d.Op {
	case token.Plus, token.Minus:
		if l.Kind == Str || r.Kind == Str {
			return TypeStr, nil
		}
		return TypeNum, nil
	case token.Star, token.Slash, token.Rem, token.Caret:
		if l.Kind == Str || r.Kind == Str {
			return Type{}, &diag.Error{Kind: diag.StaticTypeError, Tok: expr.Tok, Cause: stringOpCauses[d.Op], Expr: ast.Format(expr)}
		}
		return TypeNum, nil
	}

	return Type{}, diag.Internalf(expr.Tok, "unknown binary operator %v", d.Op)
}

// arithmetic types are the ones operators may combine. Any and Other are opaque.
func arithmetic(t Type) bool { return t.Kind == Num || t.Kind == Bool || t.Kind == Str }

func lookupField(tok token.Token, path []string, env *Env) (Type, error) {
	name := ast.CanonicalName(path)
	if t, ok := env.Lookup(name); ok {
		return t, nil
	}
	return Type{}, &diag.Error{Kind: diag.FieldTypeNotKnown, Tok: tok, Path: path, Suggestion: env.Suggest(name)}
}

func inferenceFailed(expr *ast.Node) error {
	return &diag.Error{Kind: diag.ExpressionTypeInferenceFailed, Tok: expr.Tok, Expr: ast.Format(expr)}
}

// CheckValue checks that value may be stored in a field of type to. Values that
// read external fields are untyped at the boundary and pass unchecked.
func CheckValue(tok token.Token, to Type, value *ast.Node, env *Env) error {
	if ast.ContainsExternal(value) {
		return nil
	}
	from, err := Infer(value, env)
	if err != nil {
		return err
	}
	return CheckAssignment(tok, to, from)
}
