package inliner

import (
	"context"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xplshn/yolc/pkg/ast"
	"github.com/xplshn/yolc/pkg/blocks"
	"github.com/xplshn/yolc/pkg/config"
	"github.com/xplshn/yolc/pkg/diag"
	"github.com/xplshn/yolc/pkg/parser"
	"github.com/xplshn/yolc/pkg/typeChecker"
)

const bump = "def macro bump(v: number) { var t: number = v + 1; v = t; }\n"

func inline(t *testing.T, src string) (*blocks.Result, *typeChecker.Env, error) {
	t.Helper()
	prog, err := parser.ParseSource("test.y", []byte(src), config.NewConfig())
	require.NoError(t, err)
	ex, err := blocks.Extract(context.Background(), prog)
	require.NoError(t, err)
	return Inline(context.Background(), ex)
}

func mainOf(t *testing.T, src string) []string {
	t.Helper()
	res, _, err := inline(t, src)
	require.NoError(t, err)
	require.Len(t, res.Blocks, 1)

	var out []string
	for _, s := range res.Blocks[0].Stmts {
		out = append(out, ast.Format(s))
	}
	return out
}

func TestExpand(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want []string
	}{
		{
			name: "each call site gets its own locals",
			src:  bump + "main { var a: number = 0; bump(a); bump(a); }",
			want: []string{
				"var a: number = 0",
				"var _1_bump_t: number = a + 1",
				"a = _1_bump_t",
				"var _2_bump_t: number = a + 1",
				"a = _2_bump_t",
			},
		},
		{
			name: "compound argument is evaluated once",
			src:  bump + "main { var a: number = 0; bump(a * 2); }",
			want: []string{
				"var a: number = 0",
				"var _1_bump_v: number = a * 2",
				"var _1_bump_t: number = _1_bump_v + 1",
				"_1_bump_v = _1_bump_t",
			},
		},
		{
			name: "copy parameter",
			src:  "def macro keep(copy v: number) { :out = v; }\nmain { var a: number = 0; keep(a); }",
			want: []string{
				"var a: number = 0",
				"var _1_keep_v: number = a",
				":out = _1_keep_v",
			},
		},
		{
			name: "any parameter temp takes the argument type",
			src:  "def macro show(v: any) { :out = v; }\nmain { show(\"a\" + \"b\"); }",
			want: []string{
				"var _1_show_v: string = \"a\" + \"b\"",
				":out = _1_show_v",
			},
		},
		{
			name: "external argument is written through",
			src:  "def macro set(d: any) { d = 1; }\nmain { set(:dev); }",
			want: []string{":dev = 1"},
		},
		{
			name: "struct member through parameter",
			src:  "type struct P { x: number }\ndef macro zero(p: P) { p.x = 0; }\nmain { var q: P = P { x: 1 }; zero(q); }",
			want: []string{
				"var q: P = P { x: 1 }",
				"q.x = 0",
			},
		},
		{
			name: "nested macros",
			src:  "def macro inc(v: number) { v = v + 1; }\ndef macro twice(w: number) { inc(w); inc(w); }\nmain { var a: number = 0; twice(a); }",
			want: []string{
				"var a: number = 0",
				"a = a + 1",
				"a = a + 1",
			},
		},
		{
			name: "calls inside if",
			src:  bump + "main { var a: number = 0; if (a) { bump(a); } }",
			want: []string{
				"var a: number = 0",
				"if (a) { var _1_bump_t: number = a + 1; a = _1_bump_t } else {  }",
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if diff := cmp.Diff(tc.want, mainOf(t, tc.src)); diff != "" {
				t.Errorf("inlined main (-want +got):\n%s", diff)
			}
		})
	}
}

func TestLocalsNeverCollide(t *testing.T) {
	src := "def macro m1() { var x: number = 1; }\ndef macro m() { var x: number = 2; }\nmain { m1();" +
		strings.Repeat(" m();", 10) + " }"

	_, env, err := inline(t, src)
	require.NoError(t, err)

	names := env.Names()
	assert.Len(t, names, 11)
	assert.Equal(t, "_1_m1_x", names[0])
	assert.Equal(t, "_11_m_x", names[10])
}

func TestReservedNames(t *testing.T) {
	_, _, err := inline(t, bump+"main { var _1_bump_t: number = 0; var a: number = 0; bump(a); }")
	require.Error(t, err)
	assert.True(t, diag.Is(err, diag.ReservedFieldName), "got %v", err)

	_, _, err = inline(t, "main { const _k: number = 1; }")
	assert.True(t, diag.Is(err, diag.ReservedFieldName), "got %v", err)

	// macro locals may use the prefix, they are renamed anyway
	got := mainOf(t, "def macro u() { var _t: number = 1; }\nmain { u(); }")
	assert.Equal(t, []string{"var _1_u__t: number = 1"}, got)
}

func TestEnv(t *testing.T) {
	_, env, err := inline(t, bump+"const k: number = 1;\nmain { var a: number = 0; bump(a); }")
	require.NoError(t, err)

	assert.Equal(t, []string{"k", "a", "_1_bump_t"}, env.Names())
	assert.True(t, env.IsConst("k"))
}

func TestErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		kind diag.Kind
	}{
		{"unknown callable", bump + "main { var a: number = 0; bmp(a); }", diag.CallableNotFound},
		{"arity", bump + "main { var a: number = 0; bump(a, a); }", diag.IncorrectCallParameterCount},
		{"argument type", bump + "main { bump(\"s\"); }", diag.TypeCheckFailed},
		{"proc", "def proc p() { }\nmain { p(); }", diag.NotImplemented},
		{"return type", "def macro f() -> number { return 1; }\nmain { f(); }", diag.NotImplemented},
		{"attributes", "[inline] def macro g() { }\nmain { g(); }", diag.NotImplemented},
		{"assign to bound number", "def macro set(d: any) { d = 1; }\nmain { set(3); }", diag.AssigningToParameter},
		{"increment bound number", "def macro up(d: number) { :out = d++; }\nmain { up(3); }", diag.AssigningToParameter},
		{"local shadows parameter", "def macro d(v: number) { var v: number = 1; }\nmain { d(1); }", diag.DuplicateFieldDeclaration},
		{"self recursion", "def macro r() { r(); }\nmain { r(); }", diag.RecursiveMacro},
		{"undeclared argument", bump + "main { bump(a); }", diag.FieldTypeNotKnown},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := inline(t, tc.src)
			require.Error(t, err)
			assert.True(t, diag.Is(err, tc.kind), "got %v", err)
		})
	}
}

func TestErrorDetails(t *testing.T) {
	_, _, err := inline(t, bump+"main { var a: number = 0; bmp(a); }")
	e, ok := diag.As(err)
	require.True(t, ok)
	assert.Equal(t, "bump", e.Suggestion)

	_, _, err = inline(t, bump+"main { var a: number = 0; bump(a, a); }")
	e, ok = diag.As(err)
	require.True(t, ok)
	assert.Equal(t, 1, e.Expected)
	assert.Equal(t, 2, e.Actual)

	_, _, err = inline(t, "def macro a() { b(); }\ndef macro b() { a(); }\nmain { a(); }")
	e, ok = diag.As(err)
	require.True(t, ok)
	assert.Equal(t, diag.RecursiveMacro, e.Kind)
	assert.Equal(t, "a -> b -> a", e.Cause)
}
