package compiler

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xplshn/yolc/pkg/config"
	"github.com/xplshn/yolc/pkg/diag"
)

func render(t *testing.T, file string, src []byte) string {
	t.Helper()
	res, err := CompileSource(context.Background(), file, src, config.NewConfig())
	if err != nil {
		e, ok := diag.As(err)
		require.True(t, ok, "not a compiler error: %v", err)
		return fmt.Sprintf("# error %v: %v\n", e.Kind, e)
	}
	return res.Program.Dump()
}

func TestGolden(t *testing.T) {
	files, err := filepath.Glob(filepath.Join("..", "..", "tests", "*.y"))
	require.NoError(t, err)
	require.NotEmpty(t, files)

	for _, file := range files {
		t.Run(filepath.Base(file), func(t *testing.T) {
			src, err := os.ReadFile(file)
			require.NoError(t, err)
			golden, err := os.ReadFile(file + ".golden")
			require.NoError(t, err)

			got := render(t, file, src)
			if diff := cmp.Diff(string(golden), got); diff != "" {
				t.Errorf("output (-golden +got):\n%s", diff)
			}
			assert.Equal(t, got, render(t, file, src), "second run differs")
		})
	}
}

func TestCompileFile(t *testing.T) {
	dir := t.TempDir()
	write := func(name, text string) string {
		p := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(text), 0o644))
		return p
	}

	write("lib/units.y", "const scale: number = 4;\ndef macro grow(v: number) { v = v * scale; }\n")
	main := write("main.y", "import \"lib/units.y\" in u;\nmain { var n: number = 1; u.grow(n); :out = n; }\n")

	res, sources, err := CompileFile(context.Background(), main, config.NewConfig())
	require.NoError(t, err)
	assert.Len(t, sources, 2)
	assert.Equal(t, []string{"u_scale"}, res.ConstNames())

	require.Len(t, res.Program.Lines, 1)
	assert.Equal(t, "{ n = 1 n = n * 4 :out = n }", res.Program.Lines[0].String())
}

func TestCompileFileErrors(t *testing.T) {
	dir := t.TempDir()

	_, _, err := CompileFile(context.Background(), filepath.Join(dir, "missing.y"), config.NewConfig())
	require.Error(t, err)
	assert.True(t, diag.Is(err, diag.IO), "got %v", err)
	assert.True(t, strings.HasPrefix(err.Error(), "load: "), "got %v", err)

	bad := filepath.Join(dir, "bad.y")
	require.NoError(t, os.WriteFile(bad, []byte("main {\n  :a = nope;\n}\n"), 0o644))

	_, sources, err := CompileFile(context.Background(), bad, config.NewConfig())
	require.Error(t, err)
	assert.Contains(t, sources, bad, "sources are returned for reporting")

	e, ok := diag.As(err)
	require.True(t, ok)
	assert.Equal(t, diag.FieldTypeNotKnown, e.Kind)
	assert.Equal(t, 2, e.Tok.Line)
	assert.True(t, strings.HasPrefix(err.Error(), "emit: "), "got %v", err)
}

func TestStageErrors(t *testing.T) {
	tests := []struct {
		src   string
		stage string
		kind  diag.Kind
	}{
		{"def macro m() { }", "extract blocks", diag.NoMainBlock},
		{"main { m(); }", "inline", diag.CallableNotFound},
		{"type struct P { x: number }\nmain { var p: P = P { }; }", "flatten", diag.MissingConstructorMember},
		{"main { goto nowhere; }", "emit", diag.UnknownLabel},
	}

	for _, tc := range tests {
		t.Run(tc.stage, func(t *testing.T) {
			_, err := CompileSource(context.Background(), "s.y", []byte(tc.src), config.NewConfig())
			require.Error(t, err)
			assert.True(t, diag.Is(err, tc.kind), "got %v", err)
			assert.True(t, strings.HasPrefix(err.Error(), tc.stage+": "), "got %v", err)
		})
	}
}

func TestSeparatorCollision(t *testing.T) {
	src := "type struct P { b: number }\nmain { var a_b: number = 1; var a: P = P { b: 2 }; }"

	_, err := CompileSource(context.Background(), "c.y", []byte(src), config.NewConfig())
	require.Error(t, err)

	e, ok := diag.As(err)
	require.True(t, ok)
	assert.Equal(t, diag.DuplicateFieldDeclaration, e.Kind)
	assert.Equal(t, "field `a_b` is already declared: `a.b` and `a_b` map to the same field", e.Error())
}

func TestDeterministic(t *testing.T) {
	src := []byte(`
		type struct V { a: number, b: number, c: number, d: number }
		def macro copyv(from: V, to: V) { to = from; }
		main {
			var x: V = V { d: 4, c: 3, b: 2, a: 1 };
			var y: V = V { a: 0, b: 0, c: 0, d: 0 };
			copyv(x, y);
		}
	`)

	first, err := CompileSource(context.Background(), "d.y", src, config.NewConfig())
	require.NoError(t, err)
	for i := 0; i < 20; i++ {
		again, err := CompileSource(context.Background(), "d.y", src, config.NewConfig())
		require.NoError(t, err)
		require.Equal(t, first.Program.Fingerprint(), again.Program.Fingerprint())
	}

	assert.Equal(t, "{ x_a = 1 x_b = 2 x_c = 3 x_d = 4 y_a = 0 y_b = 0 y_c = 0 y_d = 0 y_a = x_a y_b = x_b y_c = x_c y_d = x_d }",
		first.Program.Lines[0].String())
}
