// Package loader reads a source file and everything it imports into one program.
package loader

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/xplshn/yolc/pkg/ast"
	"github.com/xplshn/yolc/pkg/config"
	"github.com/xplshn/yolc/pkg/diag"
	"github.com/xplshn/yolc/pkg/parser"
	"github.com/xplshn/yolc/pkg/token"
	"github.com/xplshn/yolc/pkg/util"
	"golang.org/x/sync/errgroup"
	"tlog.app/go/tlog"
)

type Loader struct {
	cfg *config.Config

	// ReadFile defaults to os.ReadFile.
	ReadFile func(name string) ([]byte, error)

	mu      sync.Mutex
	sources util.Sources
}

func New(cfg *config.Config) *Loader {
	return &Loader{
		cfg:      cfg,
		ReadFile: os.ReadFile,
		sources:  make(util.Sources),
	}
}

// Sources returns the text of every file loaded so far.
func (l *Loader) Sources() util.Sources {
	l.mu.Lock()
	defer l.mu.Unlock()

	res := make(util.Sources, len(l.sources))
	for k, v := range l.sources {
		res[k] = v
	}
	return res
}

// Load parses path and its imports. Imports are parsed concurrently and merged
// in declaration order, so the result does not depend on scheduling.
func (l *Loader) Load(ctx context.Context, path string) (prog *ast.Program, err error) {
	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "load", "path", path)
	defer tr.Finish("err", &err)

	prog, err = l.load(ctx, token.Token{}, filepath.Clean(path), nil)
	if err != nil {
		return nil, err
	}

	tr.Printw("loaded", "files", len(l.sources), "callables", len(prog.Callables), "structs", len(prog.Structs), "constants", len(prog.Constants))

	return prog, nil
}

func (l *Loader) load(ctx context.Context, at token.Token, path string, stack []string) (*ast.Program, error) {
	for _, p := range stack {
		if p == path {
			return nil, &diag.Error{Kind: diag.ImportCycle, Tok: at, Cause: strings.Join(append(append([]string(nil), stack...), path), " -> ")}
		}
	}

	src, err := l.ReadFile(path)
	if err != nil {
		return nil, &diag.Error{Kind: diag.IO, Tok: at, Cause: fmt.Sprintf("read %s: %v", path, err)}
	}
	l.record(path, src)

	prog, err := parser.ParseSource(path, src, l.cfg)
	if err != nil {
		return nil, err
	}

	if tr := tlog.SpanFromContext(ctx); tr.If("load") {
		tr.Printw("parsed", "path", path, "imports", len(prog.Imports))
	}

	if len(prog.Imports) == 0 {
		return prog, nil
	}

	next := append(append(make([]string, 0, len(stack)+1), stack...), path)
	dir := filepath.Dir(path)
	imported := make([]*ast.Program, len(prog.Imports))
	errs := make([]error, len(prog.Imports))

	var g errgroup.Group
	for i, imp := range prog.Imports {
		i, imp := i, imp
		g.Go(func() error {
			p := imp.Path
			if !filepath.IsAbs(p) {
				p = filepath.Join(dir, p)
			}
			imported[i], errs[i] = l.load(ctx, imp.Tok, filepath.Clean(p), next)
			return errs[i]
		})
	}

	// report the first failing import in declaration order, not the first to finish
	if g.Wait() != nil {
		for _, err := range errs {
			if err != nil {
				return nil, err
			}
		}
	}

	for i, imp := range prog.Imports {
		prog.Combine(imported[i], imp.Namespace)
	}
	prog.Imports = nil

	return prog, nil
}

func (l *Loader) record(path string, src []byte) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sources[path] = []rune(string(src))
}
