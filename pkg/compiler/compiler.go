package compiler

import (
	"context"
	"os"
	"path/filepath"

	"github.com/xplshn/yolc/pkg/ast"
	"github.com/xplshn/yolc/pkg/blocks"
	"github.com/xplshn/yolc/pkg/codegen"
	"github.com/xplshn/yolc/pkg/config"
	"github.com/xplshn/yolc/pkg/flatten"
	"github.com/xplshn/yolc/pkg/inliner"
	"github.com/xplshn/yolc/pkg/loader"
	"github.com/xplshn/yolc/pkg/util"
	"tlog.app/go/errors"
	"tlog.app/go/tlog"
)

// CompileFile loads name with its imports and lowers it. The sources of every
// loaded file are returned for error reporting, also on failure.
func CompileFile(ctx context.Context, name string, cfg *config.Config) (res *codegen.Result, sources util.Sources, err error) {
	l := loader.New(cfg)

	prog, err := l.Load(ctx, name)
	if err != nil {
		return nil, l.Sources(), errors.Wrap(err, "load")
	}

	res, err = Compile(ctx, prog, cfg)

	return res, l.Sources(), err
}

// CompileSource lowers text as if it were read from name. Imports are still
// read from disk, relative to name.
func CompileSource(ctx context.Context, name string, text []byte, cfg *config.Config) (*codegen.Result, error) {
	l := loader.New(cfg)
	l.ReadFile = func(p string) ([]byte, error) {
		if p == filepath.Clean(name) {
			return text, nil
		}
		return os.ReadFile(p)
	}

	prog, err := l.Load(ctx, name)
	if err != nil {
		return nil, errors.Wrap(err, "load")
	}

	return Compile(ctx, prog, cfg)
}

// Compile runs the lowering pipeline. Every stage consumes the whole output of
// the previous one and takes over its type environment; the first error stops
// the compilation.
func Compile(ctx context.Context, prog *ast.Program, cfg *config.Config) (res *codegen.Result, err error) {
	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "compile")
	defer tr.Finish("err", &err)

	b, err := blocks.Extract(ctx, prog)
	if err != nil {
		return nil, errors.Wrap(err, "extract blocks")
	}

	b, env, err := inliner.Inline(ctx, b)
	if err != nil {
		return nil, errors.Wrap(err, "inline")
	}

	b, env, err = flatten.Flatten(ctx, b, env)
	if err != nil {
		return nil, errors.Wrap(err, "flatten")
	}

	res, err = codegen.NewContext(cfg).GenerateIR(ctx, b, env)
	if err != nil {
		return nil, errors.Wrap(err, "emit")
	}

	return res, nil
}
