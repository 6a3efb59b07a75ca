package typeChecker

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xplshn/yolc/pkg/ast"
	"github.com/xplshn/yolc/pkg/diag"
	"github.com/xplshn/yolc/pkg/token"
)

const none diag.Kind = -1

var (
	tPoint = TypeOther("Point")
	tColor = TypeOther("Color")
	all    = []Type{TypeNum, TypeStr, TypeBool, TypeAny, tPoint, tColor}
)

func TestCanonicalize(t *testing.T) {
	assert.Equal(t, TypeNum, Canonicalize("number"))
	assert.Equal(t, TypeStr, Canonicalize("string"))
	assert.Equal(t, TypeBool, Canonicalize("bool"))
	assert.Equal(t, TypeAny, Canonicalize("any"))
	assert.Equal(t, tPoint, Canonicalize("Point"))
	assert.Equal(t, TypeOther("Number"), Canonicalize("Number"), "canonicalization is textual")

	for _, typ := range all {
		assert.Equal(t, typ, Canonicalize(typ.String()))
	}
}

func TestCompatible(t *testing.T) {
	allowed := map[[2]Type]bool{
		{TypeNum, TypeNum}:   true,
		{TypeNum, TypeBool}:  true,
		{TypeStr, TypeStr}:   true,
		{TypeBool, TypeBool}: true,
		{tPoint, tPoint}:     true,
		{tColor, tColor}:     true,
	}
	for _, from := range all {
		allowed[[2]Type{TypeAny, from}] = true
	}

	for _, to := range all {
		for _, from := range all {
			t.Run(fmt.Sprintf("%v<-%v", to, from), func(t *testing.T) {
				assert.Equal(t, allowed[[2]Type{to, from}], Compatible(to, from))
			})
		}
	}
}

func TestCheckAssignment(t *testing.T) {
	err := CheckAssignment(token.Token{}, TypeNum, TypeAny)
	require.Error(t, err)

	e, ok := diag.As(err)
	require.True(t, ok)
	assert.Equal(t, diag.TypeCheckFailed, e.Kind)
	assert.Equal(t, "number", e.To)
	assert.Equal(t, "any", e.From)

	assert.NoError(t, CheckAssignment(token.Token{}, TypeAny, TypeStr))
}

func num(v string) *ast.Node      { return ast.NewNumber(token.Token{}, v) }
func str(v string) *ast.Node      { return ast.NewString(token.Token{}, v) }
func field(p ...string) *ast.Node { return ast.NewFieldAccess(token.Token{}, p...) }
func bin(op token.Type, l, r *ast.Node) *ast.Node {
	return ast.NewBinaryOp(token.Token{}, op, l, r)
}

func testEnv(t *testing.T) *Env {
	t.Helper()
	env := NewEnv()
	require.NoError(t, env.Declare(token.Token{}, []string{"n"}, TypeNum, nil))
	require.NoError(t, env.Declare(token.Token{}, []string{"s"}, TypeStr, nil))
	require.NoError(t, env.Declare(token.Token{}, []string{"b"}, TypeBool, nil))
	require.NoError(t, env.Declare(token.Token{}, []string{"a"}, TypeAny, nil))
	return env
}

func TestInferArithmetic(t *testing.T) {
	env := testEnv(t)

	tests := []struct {
		expr *ast.Node
		want Type
		kind diag.Kind
	}{
		{bin(token.Plus, field("n"), field("b")), TypeNum, none},
		{bin(token.Minus, field("b"), field("b")), TypeNum, none},
		{bin(token.Plus, field("s"), field("n")), TypeStr, none},
		{bin(token.Minus, field("n"), str("x")), TypeStr, none},
		{bin(token.Star, field("n"), field("b")), TypeNum, none},
		{bin(token.Star, field("s"), field("n")), Type{}, diag.StaticTypeError},
		{bin(token.Slash, field("n"), field("s")), Type{}, diag.StaticTypeError},
		{bin(token.Star, str("a"), str("b")), Type{}, diag.StaticTypeError},
		{bin(token.Plus, field("a"), num("1")), Type{}, diag.ExpressionTypeInferenceFailed},
		{bin(token.EqEq, field("a"), field("s")), TypeBool, none},
		{bin(token.AndAnd, field("n"), field("s")), TypeBool, none},
		{ast.NewBracket(token.Token{}, field("s")), TypeStr, none},
		{ast.NewUnaryOp(token.Token{}, token.Minus, field("b")), TypeNum, none},
		{ast.NewUnaryOp(token.Token{}, token.Minus, field("s")), Type{}, diag.StaticTypeError},
		{ast.NewUnaryOp(token.Token{}, token.Not, field("s")), TypeBool, none},
		{ast.NewIs(token.Token{}, field("s"), "number"), TypeBool, none},
		{ast.NewExternal(token.Token{}, "dev"), TypeAny, none},
		{field("missing"), Type{}, diag.FieldTypeNotKnown},
		{ast.NewCall(token.Token{}, "f", nil), Type{}, diag.NotImplemented},
		{ast.NewPanic(token.Token{}, "boom"), Type{}, diag.ExplicitPanic},
	}

	for _, tc := range tests {
		t.Run(ast.Format(tc.expr), func(t *testing.T) {
			got, err := Infer(tc.expr, env)
			if tc.kind != none {
				require.Error(t, err)
				assert.True(t, diag.Is(err, tc.kind), "got %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestStringOperatorMessages(t *testing.T) {
	_, err := Infer(bin(token.Star, field("s"), field("s")), testEnv(t))
	require.Error(t, err)
	assert.Equal(t, "cannot multiply strings in `s * s`", err.Error())
}

func TestEnvDeclare(t *testing.T) {
	structs := Structs{
		"Point": {Name: "Point", Fields: []ast.FieldDefinition{{Name: "x", TypeName: "number"}, {Name: "y", TypeName: "number"}}},
		"Line":  {Name: "Line", Fields: []ast.FieldDefinition{{Name: "from", TypeName: "Point"}, {Name: "to", TypeName: "Point"}}},
	}

	env := NewEnv()
	require.NoError(t, env.Declare(token.Token{}, []string{"l"}, TypeOther("Line"), structs))
	assert.Equal(t, []string{"l", "l_from", "l_from_x", "l_from_y", "l_to", "l_to_x", "l_to_y"}, env.Names())

	typ, ok := env.LookupPath([]string{"l", "to", "y"})
	assert.True(t, ok)
	assert.Equal(t, TypeNum, typ)

	err := env.Declare(token.Token{}, []string{"l_to"}, TypeNum, structs)
	assert.True(t, diag.Is(err, diag.DuplicateFieldDeclaration), "canonical names collide")
	assert.EqualError(t, err, "field `l_to` is already declared: `l_to` and `l.to` map to the same field")

	err = env.Declare(token.Token{}, []string{"l"}, TypeOther("Line"), structs)
	assert.EqualError(t, err, "field `l` is already declared")

	_, ok = env.Lookup("l.to")
	assert.False(t, ok, "only canonical names are keys")
}

func TestEnvNext(t *testing.T) {
	structs := Structs{
		"Point": {Name: "Point", Fields: []ast.FieldDefinition{{Name: "x", TypeName: "number"}, {Name: "y", TypeName: "number"}}},
	}

	first := NewEnv()
	require.NoError(t, first.DeclareConst(token.Token{}, "k", TypeNum))
	require.NoError(t, first.Declare(token.Token{}, []string{"p"}, TypeOther("Point"), structs))
	require.NoError(t, first.Declare(token.Token{}, []string{"n"}, TypeNum, nil))

	next := first.Next()
	assert.Equal(t, first.Names(), next.Names())

	_, ok := next.Lookup("n")
	assert.False(t, ok, "not declared in this stage yet")
	assert.False(t, next.IsConst("k"))
	assert.Empty(t, next.Suggest("nn"))

	// the flattened member declarations bring the struct field back
	require.NoError(t, next.Declare(token.Token{}, []string{"p_x"}, TypeNum, nil))
	typ, ok := next.Lookup("p")
	require.True(t, ok)
	assert.Equal(t, TypeOther("Point"), typ)
	_, ok = next.Lookup("p_y")
	assert.False(t, ok)

	require.NoError(t, next.DeclareConst(token.Token{}, "k", TypeNum))
	assert.True(t, next.IsConst("k"))

	require.NoError(t, next.Declare(token.Token{}, []string{"n"}, TypeNum, nil))
	err := next.Declare(token.Token{}, []string{"n"}, TypeNum, nil)
	assert.True(t, diag.Is(err, diag.DuplicateFieldDeclaration))

	assert.Equal(t, []string{"k", "p", "p_x", "p_y", "n"}, next.Names(), "no name is added twice")

	_, ok = first.Lookup("n")
	assert.True(t, ok, "the previous stage's environment is untouched")
}

func TestEnvRecursiveStruct(t *testing.T) {
	structs := Structs{
		"Node": {Name: "Node", Fields: []ast.FieldDefinition{{Name: "next", TypeName: "Node"}}},
	}
	err := NewEnv().Declare(token.Token{}, []string{"n"}, TypeOther("Node"), structs)
	assert.True(t, diag.Is(err, diag.NotImplemented), "got %v", err)
}

func TestEnvConstants(t *testing.T) {
	env := NewEnv()
	require.NoError(t, env.DeclareConstants([]ast.Constant{
		{Field: ast.FieldDefinition{Name: "k", TypeName: "number"}, Value: num("1")},
	}))
	assert.True(t, env.IsConst("k"))

	err := env.DeclareConst(token.Token{}, "k", TypeNum)
	assert.True(t, diag.Is(err, diag.DuplicateFieldDeclaration))
}

func TestSuggest(t *testing.T) {
	env := testEnv(t)
	require.NoError(t, env.Declare(token.Token{}, []string{"counter"}, TypeNum, nil))

	_, err := Infer(field("countr"), env)
	e, ok := diag.As(err)
	require.True(t, ok)
	assert.Equal(t, diag.FieldTypeNotKnown, e.Kind)
	assert.Equal(t, "counter", e.Suggestion)
}

func TestCheckValueExternal(t *testing.T) {
	env := testEnv(t)

	// external reads are untyped at the boundary
	assert.NoError(t, CheckValue(token.Token{}, TypeNum, ast.NewExternal(token.Token{}, "dev"), env))
	assert.NoError(t, CheckValue(token.Token{}, TypeStr, bin(token.Star, ast.NewExternal(token.Token{}, "dev"), field("s")), env))

	err := CheckValue(token.Token{}, TypeNum, field("s"), env)
	assert.True(t, diag.Is(err, diag.TypeCheckFailed))
}
