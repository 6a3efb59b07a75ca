package inliner

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/xplshn/yolc/pkg/ast"
	"github.com/xplshn/yolc/pkg/blocks"
	"github.com/xplshn/yolc/pkg/diag"
	"github.com/xplshn/yolc/pkg/typeChecker"
	"tlog.app/go/tlog"
)

type inliner struct {
	callables map[string]*ast.CallableDefinition
	structs   typeChecker.Structs
	env       *typeChecker.Env

	// macros currently being expanded, outermost first
	stack      []string
	expansions int

	tr tlog.Span
}

// Inline replaces every macro call statement with the macro body, specialized
// to the call site. The returned environment holds every field declared on the way.
func Inline(ctx context.Context, src *blocks.Result) (res *blocks.Result, env *typeChecker.Env, err error) {
	tr, _ := tlog.SpawnFromContextAndWrap(ctx, "inline macros")
	defer tr.Finish("err", &err)

	in := &inliner{
		callables: src.Callables,
		structs:   src.Structs,
		env:       typeChecker.NewEnv(),
		tr:        tr,
	}

	if err = in.env.DeclareConstants(src.Constants); err != nil {
		return nil, nil, err
	}

	res = &blocks.Result{
		Constants: src.Constants,
		Callables: src.Callables,
		Structs:   src.Structs,
	}

	for _, b := range src.Blocks {
		stmts, err := in.stmts(b.Stmts)
		if err != nil {
			return nil, nil, err
		}
		res.Blocks = append(res.Blocks, blocks.Block{Kind: b.Kind, Label: b.Label, Stmts: stmts, Tok: b.Tok})
	}

	tr.Printw("inlined", "expansions", in.expansions, "fields", in.env.Len())

	return res, in.env, nil
}

func (in *inliner) stmts(list []*ast.Node) ([]*ast.Node, error) {
	var out []*ast.Node
	for _, s := range list {
		r, err := in.stmt(s)
		if err != nil {
			return nil, err
		}
		out = append(out, r...)
	}
	return out, nil
}

func (in *inliner) stmt(s *ast.Node) ([]*ast.Node, error) {
	switch d := s.Data.(type) {
	case ast.CallNode:
		if s.Type == ast.CallStmt {
			return in.expand(s, d)
		}
	case ast.DeclareNode:
		// generated fields all start with '_'; only expansions may declare them
		if len(in.stack) == 0 && strings.HasPrefix(d.Field.Name, "_") {
			return nil, &diag.Error{Kind: diag.ReservedFieldName, Tok: s.Tok, Field: d.Field.Name}
		}
		t := typeChecker.Canonicalize(d.Field.TypeName)
		var err error
		if s.Type == ast.DeclareConst {
			err = in.env.DeclareConst(s.Tok, d.Field.Name, t)
		} else {
			err = in.env.Declare(s.Tok, []string{d.Field.Name}, t, in.structs)
		}
		if err != nil {
			return nil, err
		}
	case ast.IfNode:
		thenBody, err := in.stmts(d.Then)
		if err != nil {
			return nil, err
		}
		elseBody, err := in.stmts(d.Else)
		if err != nil {
			return nil, err
		}
		return []*ast.Node{ast.NewIf(s.Tok, d.Cond, thenBody, elseBody)}, nil
	}

	return []*ast.Node{s}, nil
}

func (in *inliner) expand(s *ast.Node, call ast.CallNode) ([]*ast.Node, error) {
	def, ok := in.callables[call.Name]
	if !ok {
		return nil, &diag.Error{Kind: diag.CallableNotFound, Tok: s.Tok, Callable: call.Name, Suggestion: diag.Suggest(call.Name, in.callableNames())}
	}

	switch {
	case def.ReturnType != "":
		return nil, diag.NotImplementedf(s.Tok, "calling `%s`, which returns a value", def.Name)
	case len(def.Attributes) != 0:
		return nil, diag.NotImplementedf(s.Tok, "calling `%s`, which has attributes", def.Name)
	case def.CallType != ast.Macro:
		return nil, diag.NotImplementedf(s.Tok, "calling %s `%s`", def.CallType, def.Name)
	}

	if len(call.Args) != len(def.Params) {
		return nil, &diag.Error{Kind: diag.IncorrectCallParameterCount, Tok: s.Tok, Callable: def.Name, Expected: len(def.Params), Actual: len(call.Args)}
	}

	for _, active := range in.stack {
		if active == def.Name {
			chain := strings.Join(append(append([]string(nil), in.stack...), def.Name), " -> ")
			return nil, &diag.Error{Kind: diag.RecursiveMacro, Tok: s.Tok, Callable: def.Name, Cause: chain}
		}
	}

	in.expansions++
	sub := &substitution{
		macro:  def.Name,
		prefix: fmt.Sprintf("_%d_%s_", in.expansions, strings.ReplaceAll(def.Name, ":", "_")),
		params: make(map[string]*ast.Node, len(def.Params)),
		locals: declaredNames(def.Body),
	}

	var pre []*ast.Node
	for i, p := range def.Params {
		arg := call.Args[i]
		pt := typeChecker.Canonicalize(p.Field.TypeName)

		if err := typeChecker.CheckValue(arg.Tok, pt, arg, in.env); err != nil {
			return nil, err
		}
		if sub.locals[p.Field.Name] {
			return nil, &diag.Error{Kind: diag.DuplicateFieldDeclaration, Tok: def.Tok, Field: p.Field.Name}
		}

		if simpleArgument(arg) && !p.Copy {
			sub.params[p.Field.Name] = arg
			continue
		}

		// Evaluate the argument once, into a temporary named after the parameter.
		temp := sub.prefix + p.Field.Name
		tt := pt
		if pt.Kind == typeChecker.Any && !ast.ContainsExternal(arg) {
			if inferred, err := typeChecker.Infer(arg, in.env); err == nil {
				tt = inferred
			}
		}
		pre = append(pre, ast.NewDeclareAssign(arg.Tok, ast.FieldDefinition{Name: temp, TypeName: tt.String()}, arg))
		sub.params[p.Field.Name] = ast.NewFieldAccess(arg.Tok, temp)
	}

	body, err := sub.stmts(def.Body)
	if err != nil {
		return nil, err
	}

	in.tr.V("inline").Printw("expand macro", "name", def.Name, "prefix", sub.prefix, "temps", len(pre), "stmts", len(body))

	in.stack = append(in.stack, def.Name)
	defer func() { in.stack = in.stack[:len(in.stack)-1] }()

	return in.stmts(append(pre, body...))
}

func (in *inliner) callableNames() []string {
	names := make([]string, 0, len(in.callables))
	for name := range in.callables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// simpleArgument is an argument that can be substituted as written: re-evaluating
// it has no cost and no effect.
func simpleArgument(arg *ast.Node) bool {
	switch arg.Type {
	case ast.FieldAccess, ast.External, ast.Number, ast.String:
		return true
	}
	return false
}

// declaredNames collects every field a macro body declares, at any depth.
func declaredNames(body []*ast.Node) map[string]bool {
	names := make(map[string]bool)
	for _, s := range body {
		ast.Inspect(s, func(n *ast.Node) bool {
			if d, ok := n.Data.(ast.DeclareNode); ok {
				names[d.Field.Name] = true
			}
			return true
		})
	}
	return names
}
