package loader

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xplshn/yolc/pkg/ast"
	"github.com/xplshn/yolc/pkg/config"
	"github.com/xplshn/yolc/pkg/diag"
)

func newLoader(files map[string]string) *Loader {
	l := New(config.NewConfig())
	l.ReadFile = func(name string) ([]byte, error) {
		src, ok := files[name]
		if !ok {
			return nil, os.ErrNotExist
		}
		return []byte(src), nil
	}
	return l
}

func constNames(prog *ast.Program) []string {
	var names []string
	for _, c := range prog.Constants {
		names = append(names, c.Field.Name)
	}
	return names
}

func TestNamespace(t *testing.T) {
	l := newLoader(map[string]string{
		"main.y": `import "lib.y" in lib; const own: number = 1; main { }`,
		"lib.y":  `type struct Point { x: number } const k: number = 2; def macro helper() { } main { :x = 1; }`,
	})

	prog, err := l.Load(context.Background(), "main.y")
	require.NoError(t, err)

	assert.Empty(t, prog.Imports)
	assert.Equal(t, []string{"own", "lib_k"}, constNames(prog))
	require.Len(t, prog.Structs, 1)
	assert.Equal(t, "lib:Point", prog.Structs[0].Name)
	require.Len(t, prog.Callables, 1)
	assert.Equal(t, "lib:helper", prog.Callables[0].Name)

	require.NotNil(t, prog.Main)
	assert.Empty(t, prog.Main.Stmts, "the root file keeps its own main")
}

func TestMergeOrder(t *testing.T) {
	files := map[string]string{
		"main.y":  `import "a.y"; import "sub/b.y"; const m: number = 0; main { }`,
		"a.y":     `const a: number = 1;`,
		"sub/b.y": `import "c.y"; const b: number = 2;`,
		"sub/c.y": `const c: number = 3;`,
	}

	for i := 0; i < 10; i++ {
		prog, err := newLoader(files).Load(context.Background(), "main.y")
		require.NoError(t, err)
		assert.Equal(t, []string{"m", "a", "b", "c"}, constNames(prog))
	}
}

func TestMainFromImport(t *testing.T) {
	l := newLoader(map[string]string{
		"root.y": `import "prog.y";`,
		"prog.y": `main { :x = 1; }`,
	})

	prog, err := l.Load(context.Background(), "root.y")
	require.NoError(t, err)
	require.NotNil(t, prog.Main)
	assert.Len(t, prog.Main.Stmts, 1)
}

func TestSources(t *testing.T) {
	l := newLoader(map[string]string{
		"main.y": `import "lib.y"; main { }`,
		"lib.y":  `const k: number = 1;`,
	})

	_, err := l.Load(context.Background(), "./main.y")
	require.NoError(t, err)

	src := l.Sources()
	assert.Len(t, src, 2)
	assert.Equal(t, `const k: number = 1;`, string(src["lib.y"]))
}

func TestErrors(t *testing.T) {
	tests := []struct {
		name  string
		files map[string]string
		kind  diag.Kind
	}{
		{
			name:  "missing root",
			files: map[string]string{},
			kind:  diag.IO,
		},
		{
			name:  "missing import",
			files: map[string]string{"main.y": `import "gone.y"; main { }`},
			kind:  diag.IO,
		},
		{
			name:  "parse error in import",
			files: map[string]string{"main.y": `import "lib.y"; main { }`, "lib.y": `const k number = 1;`},
			kind:  diag.Parse,
		},
		{
			name:  "self import",
			files: map[string]string{"main.y": `import "main.y"; main { }`},
			kind:  diag.ImportCycle,
		},
		{
			name:  "cycle",
			files: map[string]string{"main.y": `import "a.y"; main { }`, "a.y": `import "b.y";`, "b.y": `import "a.y";`},
			kind:  diag.ImportCycle,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := newLoader(tc.files).Load(context.Background(), "main.y")
			require.Error(t, err)
			assert.True(t, diag.Is(err, tc.kind), "got %v", err)
		})
	}
}

func TestFirstErrorInImportOrder(t *testing.T) {
	for i := 0; i < 5; i++ {
		l := newLoader(map[string]string{
			"main.y":   `import "slow.y"; import "fast.y"; main { }`,
			"broken.y": `const k number = 1;`,
		})
		read := l.ReadFile
		l.ReadFile = func(name string) ([]byte, error) {
			if name == "slow.y" {
				time.Sleep(20 * time.Millisecond)
			}
			if name == "fast.y" {
				return read("broken.y")
			}
			return read(name)
		}

		_, err := l.Load(context.Background(), "main.y")
		require.Error(t, err)

		e, ok := diag.As(err)
		require.True(t, ok)
		assert.Equal(t, diag.IO, e.Kind, "slow.y fails last but is imported first")
		assert.Contains(t, e.Cause, "slow.y")
	}
}

func TestErrorDetails(t *testing.T) {
	_, err := newLoader(map[string]string{
		"main.y": `import "a.y"; main { }`,
		"a.y":    `import "b.y";`,
		"b.y":    `import "a.y";`,
	}).Load(context.Background(), "main.y")

	e, ok := diag.As(err)
	require.True(t, ok)
	assert.Equal(t, "main.y -> a.y -> b.y -> a.y", e.Cause)
	assert.Equal(t, "b.y", e.Tok.File, "the cycle is reported at the import that closes it")

	_, err = newLoader(map[string]string{
		"main.y": `import "lib.y"; main { }`,
		"lib.y":  `const k number = 1;`,
	}).Load(context.Background(), "main.y")

	e, ok = diag.As(err)
	require.True(t, ok)
	assert.Equal(t, "lib.y", e.Tok.File)
}
