package flatten

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xplshn/yolc/pkg/ast"
	"github.com/xplshn/yolc/pkg/blocks"
	"github.com/xplshn/yolc/pkg/config"
	"github.com/xplshn/yolc/pkg/diag"
	"github.com/xplshn/yolc/pkg/parser"
	"github.com/xplshn/yolc/pkg/token"
	"github.com/xplshn/yolc/pkg/typeChecker"
)

const types = `
type struct Point { x: number, y: number }
type struct Seg { from: Point, to: Point }
type struct Tag { name: string }
`

func flatten(t *testing.T, body string) ([]string, *typeChecker.Env, error) {
	t.Helper()
	prog, err := parser.ParseSource("test.y", []byte(types+"main {\n"+body+"\n}"), config.NewConfig())
	require.NoError(t, err)
	ex, err := blocks.Extract(context.Background(), prog)
	require.NoError(t, err)

	res, env, err := Flatten(context.Background(), ex, nil)
	if err != nil {
		return nil, nil, err
	}

	var out []string
	for _, s := range res.Blocks[0].Stmts {
		out = append(out, ast.Format(s))
	}
	return out, env, nil
}

func TestFlatten(t *testing.T) {
	tests := []struct {
		name string
		body string
		want []string
	}{
		{
			name: "definition order",
			body: "var p: Point = Point { y: 2, x: 1 };",
			want: []string{"var p_x: number = 1", "var p_y: number = 2"},
		},
		{
			name: "nested",
			body: "var s: Seg = Seg { to: Point { x: 3, y: 4 }, from: Point { x: 1, y: 2 } };",
			want: []string{
				"var s_from_x: number = 1",
				"var s_from_y: number = 2",
				"var s_to_x: number = 3",
				"var s_to_y: number = 4",
			},
		},
		{
			name: "reassign",
			body: "var p: Point = Point { x: 1, y: 2 }; p = Point { x: p.y + 1, y: 0 };",
			want: []string{
				"var p_x: number = 1",
				"var p_y: number = 2",
				"p.x = p.y + 1",
				"p.y = 0",
			},
		},
		{
			name: "copy",
			body: "var p: Point = Point { x: 1, y: 2 }; var q: Point = p; q = p;",
			want: []string{
				"var p_x: number = 1",
				"var p_y: number = 2",
				"var q_x: number = p.x",
				"var q_y: number = p.y",
				"q.x = p.x",
				"q.y = p.y",
			},
		},
		{
			name: "member of nested struct",
			body: "var s: Seg = Seg { from: Point { x: 1, y: 2 }, to: Point { x: 3, y: 4 } }; s.to = s.from;",
			want: []string{
				"var s_from_x: number = 1",
				"var s_from_y: number = 2",
				"var s_to_x: number = 3",
				"var s_to_y: number = 4",
				"s.to.x = s.from.x",
				"s.to.y = s.from.y",
			},
		},
		{
			name: "scalars pass through",
			body: "var n: number = 1; n = 2; :out = n;",
			want: []string{"var n: number = 1", "n = 2", ":out = n"},
		},
		{
			name: "inside if",
			body: "var p: Point = Point { x: 1, y: 2 }; if (p.x) { p = Point { x: 0, y: 0 }; }",
			want: []string{
				"var p_x: number = 1",
				"var p_y: number = 2",
				"if (p.x) { p.x = 0; p.y = 0 } else {  }",
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, _, err := flatten(t, tc.body)
			require.NoError(t, err)
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Errorf("flattened main (-want +got):\n%s", diff)
			}
		})
	}
}

func TestEnv(t *testing.T) {
	_, env, err := flatten(t, "var p: Point = Point { x: 1, y: 2 };")
	require.NoError(t, err)
	assert.Equal(t, []string{"p", "p_x", "p_y"}, env.Names())

	typ, ok := env.Lookup("p")
	require.True(t, ok)
	assert.Equal(t, typeChecker.TypeOther("Point"), typ)
}

func TestTakesOverEnv(t *testing.T) {
	prog, err := parser.ParseSource("test.y", []byte(types+"main { var n: number = 1; var p: Point = Point { x: n, y: 2 }; }"), config.NewConfig())
	require.NoError(t, err)
	ex, err := blocks.Extract(context.Background(), prog)
	require.NoError(t, err)

	prev := typeChecker.NewEnv()
	require.NoError(t, prev.Declare(token.Token{}, []string{"n"}, typeChecker.TypeNum, nil))
	require.NoError(t, prev.Declare(token.Token{}, []string{"p"}, typeChecker.TypeOther("Point"), ex.Structs))

	_, env, err := Flatten(context.Background(), ex, prev)
	require.NoError(t, err)
	assert.NotSame(t, prev, env)
	assert.Equal(t, []string{"n", "p", "p_x", "p_y"}, env.Names())

	typ, ok := env.LookupPath([]string{"p", "y"})
	require.True(t, ok)
	assert.Equal(t, typeChecker.TypeNum, typ)
}

func TestErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
		kind diag.Kind
	}{
		{"missing member", "var p: Point = Point { x: 1 };", diag.MissingConstructorMember},
		{"unknown member", "var p: Point = Point { x: 1, y: 2, z: 3 };", diag.UnknownConstructorMember},
		{"duplicate member", "var p: Point = Point { x: 1, x: 2, y: 3 };", diag.UnknownConstructorMember},
		{"constructor into scalar", "var n: number = Point { x: 1, y: 2 };", diag.FieldConstructorAssignment},
		{"wrong constructor", "var p: Point = Tag { name: \"a\" };", diag.TypeCheckFailed},
		{"member type", "var p: Point = Point { x: \"s\", y: 1 };", diag.TypeCheckFailed},
		{"undeclared target", "r = Point { x: 1, y: 2 };", diag.AssigningUndeclaredField},
		{"struct constant", "const c: Point = Point { x: 1, y: 2 };", diag.NotImplemented},
		{"scalar into struct", "var p: Point = 1;", diag.NotImplemented},
		{"copy of scalar", "var n: number = 1; var p: Point = n;", diag.TypeCheckFailed},
		{"copy of unknown", "var p: Point = q;", diag.FieldTypeNotKnown},
		{"redeclared member", "var p_x: number = 1; var p: Point = Point { x: 1, y: 2 };", diag.DuplicateFieldDeclaration},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := flatten(t, tc.body)
			require.Error(t, err)
			assert.True(t, diag.Is(err, tc.kind), "got %v", err)
		})
	}
}

func TestErrorMessages(t *testing.T) {
	_, _, err := flatten(t, "var p: Point = Point { x: 1 };")
	require.Error(t, err)
	assert.Equal(t, "`Point` constructor is missing member `y`", err.Error())

	_, _, err = flatten(t, "var p: Point = Point { x: 1, x: 2, y: 3 };")
	require.Error(t, err)
	assert.Equal(t, "`Point` constructor: duplicate member `x`", err.Error())

	_, _, err = flatten(t, "var n: number = Point { x: 1, y: 2 };")
	require.Error(t, err)
	assert.Equal(t, "cannot assign `Point` constructor to field `n` of type `number`", err.Error())
}
