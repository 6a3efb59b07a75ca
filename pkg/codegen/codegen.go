package codegen

import (
	"context"
	"sort"
	"strings"

	"github.com/xplshn/yolc/pkg/ast"
	"github.com/xplshn/yolc/pkg/blocks"
	"github.com/xplshn/yolc/pkg/config"
	"github.com/xplshn/yolc/pkg/diag"
	"github.com/xplshn/yolc/pkg/ir"
	"github.com/xplshn/yolc/pkg/token"
	"github.com/xplshn/yolc/pkg/typeChecker"
	"tlog.app/go/tlog"
)

// LabelPrefix starts the name of the variable a goto jumps through. The layout
// stage assigns it the line number of the label.
const LabelPrefix = "_label_"

type Context struct {
	cfg    *config.Config
	env    *typeChecker.Env
	consts map[string]value
	labels map[string]token.Token
	tr     tlog.Span
}

// Result is the lowered program with the tables built while lowering it.
type Result struct {
	Program *ir.Program
	Types   *typeChecker.Env
	Consts  map[string]ir.Expr
}

func NewContext(cfg *config.Config) *Context {
	return &Context{
		cfg:    cfg,
		env:    typeChecker.NewEnv(),
		consts: make(map[string]value),
		labels: make(map[string]token.Token),
	}
}

// LabelVariable is the jump variable for label.
func LabelVariable(label string) string {
	return LabelPrefix + strings.ReplaceAll(label, ":", "_")
}

// GenerateIR lowers a flattened, macro free block sequence, one line per block.
// prev is the environment handed on by the flattener; nil starts a fresh one.
func (ctx *Context) GenerateIR(parent context.Context, src *blocks.Result, prev *typeChecker.Env) (res *Result, err error) {
	tr, _ := tlog.SpawnFromContextAndWrap(parent, "emit")
	defer tr.Finish("err", &err)
	ctx.tr = tr

	if prev != nil {
		ctx.env = prev.Next()
	}

	for _, c := range src.Constants {
		if err = ctx.declareConst(c.Tok, c.Field, c.Value); err != nil {
			return nil, err
		}
	}

	for _, b := range src.Blocks {
		if b.Label == "" {
			continue
		}
		if _, ok := ctx.labels[b.Label]; ok {
			return nil, &diag.Error{Kind: diag.DuplicateLabel, Tok: b.Tok, Field: b.Label}
		}
		ctx.labels[b.Label] = b.Tok
	}

	prog := &ir.Program{
		LineLength: ctx.cfg.LineLength,
		LineCount:  ctx.cfg.LineCount,
		Configs:    ctx.cfg.Configs,
	}

	for _, b := range src.Blocks {
		stmts, err := ctx.codegenStmts(b.Stmts)
		if err != nil {
			return nil, err
		}
		prog.Lines = append(prog.Lines, &ir.Line{Label: b.Label, Atomic: b.Kind == blocks.Line, Stmts: stmts})
	}

	tr.Printw("emitted", "lines", len(prog.Lines), "fields", ctx.env.Len(), "consts", len(ctx.consts))

	res = &Result{
		Program: prog,
		Types:   ctx.env,
		Consts:  make(map[string]ir.Expr, len(ctx.consts)),
	}
	for name, v := range ctx.consts {
		res.Consts[name] = v.expr()
	}

	return res, nil
}

// ConstNames lists the folded constants in name order.
func (r *Result) ConstNames() []string {
	names := make([]string, 0, len(r.Consts))
	for name := range r.Consts {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (ctx *Context) codegenStmts(list []*ast.Node) ([]ir.Stmt, error) {
	var out []ir.Stmt
	for _, n := range list {
		s, err := ctx.codegenStmt(n)
		if err != nil {
			return nil, err
		}
		if s != nil {
			out = append(out, s)
		}
	}
	return out, nil
}

// codegenStmt lowers one statement. Constant declarations produce no statement.
func (ctx *Context) codegenStmt(node *ast.Node) (ir.Stmt, error) {
	switch d := node.Data.(type) {
	case ast.PanicNode:
		return nil, &diag.Error{Kind: diag.ExplicitPanic, Tok: node.Tok, Cause: d.Message}
	case ast.EmitNode:
		return nil, diag.NotImplementedf(node.Tok, "emitting raw target code")
	case ast.CallNode:
		return nil, diag.NotImplementedf(node.Tok, "calling `%s` at run time", d.Name)
	case ast.ReturnNode:
		return nil, diag.NotImplementedf(node.Tok, "return outside of a callable")
	case ast.LineNode, ast.LabelNode:
		return nil, diag.Internalf(node.Tok, "%v left in a block after extraction", node.Type)

	case ast.GotoNode:
		if _, ok := ctx.labels[d.Label]; !ok {
			return nil, &diag.Error{Kind: diag.UnknownLabel, Tok: node.Tok, Field: d.Label, Suggestion: diag.Suggest(d.Label, ctx.labelNames())}
		}
		return &ir.Goto{Target: &ir.Variable{Ident: ir.Identifier{Name: LabelVariable(d.Label)}}}, nil

	case ast.IfNode:
		return ctx.codegenIf(node, d)

	case ast.DeclareNode:
		if node.Type == ast.DeclareConst {
			return nil, ctx.declareConst(node.Tok, d.Field, d.Value)
		}
		return ctx.codegenDeclare(node, d)

	case ast.AssignNode:
		return ctx.codegenAssign(node, d)

	case ast.ExternalAssignNode:
		if !ast.ContainsExternal(d.Value) {
			if _, err := typeChecker.Infer(d.Value, ctx.env); err != nil {
				return nil, err
			}
		}
		v, err := ctx.codegenExpr(d.Value)
		if err != nil {
			return nil, err
		}
		return &ir.Assignment{Target: ir.Identifier{Name: d.Name, External: true}, Value: v}, nil
	}

	return nil, diag.Internalf(node.Tok, "unexpected %v statement", node.Type)
}

func (ctx *Context) codegenIf(node *ast.Node, d ast.IfNode) (ir.Stmt, error) {
	if !ast.ContainsExternal(d.Cond) {
		if _, err := typeChecker.Infer(d.Cond, ctx.env); err != nil {
			return nil, err
		}
	}
	cond, err := ctx.codegenExpr(d.Cond)
	if err != nil {
		return nil, err
	}
	thenBody, err := ctx.codegenStmts(d.Then)
	if err != nil {
		return nil, err
	}
	elseBody, err := ctx.codegenStmts(d.Else)
	if err != nil {
		return nil, err
	}
	return &ir.If{Cond: cond, Then: thenBody, Else: elseBody}, nil
}

func (ctx *Context) codegenDeclare(node *ast.Node, d ast.DeclareNode) (ir.Stmt, error) {
	t := typeChecker.Canonicalize(d.Field.TypeName)
	if err := typeChecker.CheckValue(node.Tok, t, d.Value, ctx.env); err != nil {
		return nil, err
	}
	if err := ctx.env.Declare(node.Tok, []string{d.Field.Name}, t, nil); err != nil {
		return nil, err
	}
	v, err := ctx.codegenExpr(d.Value)
	if err != nil {
		return nil, err
	}
	return &ir.Assignment{Target: ir.Identifier{Name: d.Field.Name}, Value: v}, nil
}

func (ctx *Context) codegenAssign(node *ast.Node, d ast.AssignNode) (ir.Stmt, error) {
	name := ast.CanonicalName(d.Path)
	t, ok := ctx.env.Lookup(name)
	if !ok {
		return nil, &diag.Error{Kind: diag.AssigningUndeclaredField, Tok: node.Tok, Path: d.Path, Suggestion: ctx.env.Suggest(name)}
	}
	if ctx.env.IsConst(name) {
		return nil, &diag.Error{Kind: diag.AssigningConstant, Tok: node.Tok, Field: name}
	}
	if err := typeChecker.CheckValue(node.Tok, t, d.Value, ctx.env); err != nil {
		return nil, err
	}
	v, err := ctx.codegenExpr(d.Value)
	if err != nil {
		return nil, err
	}
	return &ir.Assignment{Target: ir.Identifier{Name: name}, Value: v}, nil
}

// declareConst type checks and folds a constant into the constant table.
func (ctx *Context) declareConst(tok token.Token, field ast.FieldDefinition, expr *ast.Node) error {
	t := typeChecker.Canonicalize(field.TypeName)
	if err := typeChecker.CheckValue(tok, t, expr, ctx.env); err != nil {
		return err
	}
	if err := ctx.env.DeclareConst(tok, field.Name, t); err != nil {
		return err
	}

	v, err := ctx.fold(expr)
	if err != nil {
		return &diag.Error{Kind: diag.ConstantNotFoldable, Tok: tok, Field: field.Name, Cause: err.Error()}
	}
	ctx.consts[field.Name] = v

	ctx.tr.V("emit").Printw("constant", "name", field.Name, "value", v.expr())

	return nil
}

func (ctx *Context) labelNames() []string {
	names := make([]string, 0, len(ctx.labels))
	for name := range ctx.labels {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (ctx *Context) codegenExpr(node *ast.Node) (ir.Expr, error) {
	switch d := node.Data.(type) {
	case ast.NumberNode:
		n, err := ir.ParseNumber(d.Value)
		if err != nil {
			return nil, diag.Internalf(node.Tok, "%v", err)
		}
		return ir.NewNumber(n), nil

	case ast.StringNode:
		return &ir.String{Value: d.Value}, nil

	case ast.ExternalNode:
		return &ir.Variable{Ident: ir.Identifier{Name: d.Name, External: true}}, nil

	case ast.FieldAccessNode:
		name := ast.CanonicalName(d.Path)
		if v, ok := ctx.consts[name]; ok {
			return v.expr(), nil
		}
		if _, ok := ctx.env.Lookup(name); !ok {
			return nil, &diag.Error{Kind: diag.FieldTypeNotKnown, Tok: node.Tok, Path: d.Path, Suggestion: ctx.env.Suggest(name)}
		}
		return &ir.Variable{Ident: ir.Identifier{Name: name}}, nil

	case ast.BracketNode:
		x, err := ctx.codegenExpr(d.Expr)
		if err != nil {
			return nil, err
		}
		return &ir.Bracket{Expr: x}, nil

	case ast.UnaryOpNode:
		x, err := ctx.codegenExpr(d.Expr)
		if err != nil {
			return nil, err
		}
		op, ok := unaryOps[d.Op]
		if !ok {
			return nil, diag.Internalf(node.Tok, "unknown unary operator %v", d.Op)
		}
		return &ir.Unary{Op: op, Expr: x}, nil

	case ast.BinaryOpNode:
		l, err := ctx.codegenExpr(d.Left)
		if err != nil {
			return nil, err
		}
		r, err := ctx.codegenExpr(d.Right)
		if err != nil {
			return nil, err
		}
		op, ok := binaryOps[d.Op]
		if !ok {
			return nil, diag.Internalf(node.Tok, "unknown binary operator %v", d.Op)
		}
		return &ir.Binary{Op: op, Left: l, Right: r}, nil

	case ast.IsNode:
		ok, err := ctx.typeTest(d)
		if err != nil {
			return nil, err
		}
		return ir.NewNumber(truth(ok)), nil

	case ast.IncDecNode:
		return ctx.codegenIncDec(node, d)

	case ast.CallNode:
		return nil, diag.NotImplementedf(node.Tok, "using the result of calling `%s`", d.Name)
	case ast.ConstructorNode:
		return nil, &diag.Error{Kind: diag.ConstructorExpression, Tok: node.Tok, TypeName: d.TypeName}
	case ast.PanicNode:
		return nil, &diag.Error{Kind: diag.ExplicitPanic, Tok: node.Tok, Cause: d.Message}
	}

	return nil, diag.Internalf(node.Tok, "unexpected %v expression", node.Type)
}

// typeTest answers 'e is T' statically.
func (ctx *Context) typeTest(d ast.IsNode) (bool, error) {
	from := typeChecker.TypeAny
	if !ast.ContainsExternal(d.Expr) {
		t, err := typeChecker.Infer(d.Expr, ctx.env)
		if err != nil {
			return false, err
		}
		from = t
	}
	return typeChecker.Compatible(typeChecker.Canonicalize(d.TypeName), from), nil
}

func (ctx *Context) codegenIncDec(node *ast.Node, d ast.IncDecNode) (ir.Expr, error) {
	name := ast.CanonicalName(d.Path)
	if _, ok := ctx.env.Lookup(name); !ok {
		return nil, &diag.Error{Kind: diag.AssigningUndeclaredField, Tok: node.Tok, Path: d.Path, Suggestion: ctx.env.Suggest(name)}
	}
	if ctx.env.IsConst(name) {
		return nil, &diag.Error{Kind: diag.AssigningConstant, Tok: node.Tok, Field: name}
	}
	if _, err := typeChecker.Infer(node, ctx.env); err != nil {
		return nil, err
	}

	var op ir.Op
	switch {
	case d.Op == token.Inc && d.Prefix:
		op = ir.OpPreInc
	case d.Op == token.Inc:
		op = ir.OpPostInc
	case d.Prefix:
		op = ir.OpPreDec
	default:
		op = ir.OpPostDec
	}
	return &ir.IncDec{Op: op, Ident: ir.Identifier{Name: name}}, nil
}
