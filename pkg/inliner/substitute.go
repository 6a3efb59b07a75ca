package inliner

import (
	"github.com/xplshn/yolc/pkg/ast"
	"github.com/xplshn/yolc/pkg/diag"
	"github.com/xplshn/yolc/pkg/token"
)

// substitution rewrites one copy of a macro body for one call site.
type substitution struct {
	macro  string
	prefix string

	// parameter name to the expression it is bound to
	params map[string]*ast.Node
	// fields declared by the body; renamed with prefix
	locals map[string]bool
}

// path resolves a field path inside the body. It returns either the rewritten
// path or, for a parameter bound to a non-field argument, the bound expression.
func (s *substitution) path(tok token.Token, path []string) ([]string, *ast.Node, error) {
	head, rest := path[0], path[1:]

	if b, ok := s.params[head]; ok {
		if fa, ok := b.Data.(ast.FieldAccessNode); ok {
			return append(append([]string(nil), fa.Path...), rest...), nil, nil
		}
		if len(rest) != 0 {
			return nil, nil, diag.NotImplementedf(tok, "member access `%s` on parameter `%s` bound to `%s`", ast.CanonicalName(path), head, ast.Format(b))
		}
		return nil, b, nil
	}

	res := append([]string(nil), path...)
	if s.locals[head] {
		res[0] = s.prefix + head
	}
	return res, nil, nil
}

func (s *substitution) stmts(list []*ast.Node) ([]*ast.Node, error) {
	out := make([]*ast.Node, 0, len(list))
	for _, st := range list {
		r, err := s.stmt(st)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

func (s *substitution) stmt(st *ast.Node) (*ast.Node, error) {
	switch d := st.Data.(type) {
	case ast.AssignNode:
		value, err := s.expr(d.Value)
		if err != nil {
			return nil, err
		}
		p, bound, err := s.path(st.Tok, d.Path)
		if err != nil {
			return nil, err
		}
		if bound == nil {
			return ast.NewAssign(st.Tok, p, value), nil
		}
		if ext, ok := bound.Data.(ast.ExternalNode); ok {
			return ast.NewExternalAssign(st.Tok, ext.Name, value), nil
		}
		return nil, &diag.Error{Kind: diag.AssigningToParameter, Tok: st.Tok, Field: d.Path[0], Callable: s.macro, Expr: ast.Format(bound)}

	case ast.DeclareNode:
		value, err := s.expr(d.Value)
		if err != nil {
			return nil, err
		}
		field := d.Field
		if s.locals[field.Name] {
			field.Name = s.prefix + field.Name
		}
		if st.Type == ast.DeclareConst {
			return ast.NewDeclareConst(st.Tok, field, value), nil
		}
		return ast.NewDeclareAssign(st.Tok, field, value), nil

	case ast.ExternalAssignNode:
		value, err := s.expr(d.Value)
		if err != nil {
			return nil, err
		}
		return ast.NewExternalAssign(st.Tok, d.Name, value), nil

	case ast.IfNode:
		cond, err := s.expr(d.Cond)
		if err != nil {
			return nil, err
		}
		thenBody, err := s.stmts(d.Then)
		if err != nil {
			return nil, err
		}
		elseBody, err := s.stmts(d.Else)
		if err != nil {
			return nil, err
		}
		return ast.NewIf(st.Tok, cond, thenBody, elseBody), nil

	case ast.CallNode:
		args, err := s.exprs(d.Args)
		if err != nil {
			return nil, err
		}
		if st.Type == ast.CallStmt {
			return ast.NewCallStmt(st.Tok, d.Name, args), nil
		}
		return ast.NewCall(st.Tok, d.Name, args), nil

	case ast.ReturnNode:
		if d.Value == nil {
			return ast.Clone(st), nil
		}
		value, err := s.expr(d.Value)
		if err != nil {
			return nil, err
		}
		return ast.NewReturn(st.Tok, value), nil

	case ast.LineNode, ast.LabelNode:
		return nil, diag.Internalf(st.Tok, "%v inside macro `%s`", st.Type, s.macro)
	}

	// goto, emit, panic
	return ast.Clone(st), nil
}

func (s *substitution) exprs(list []*ast.Node) ([]*ast.Node, error) {
	out := make([]*ast.Node, len(list))
	for i, e := range list {
		r, err := s.expr(e)
		if err != nil {
			return nil, err
		}
		out[i] = r
	}
	return out, nil
}

func (s *substitution) expr(e *ast.Node) (*ast.Node, error) {
	if e == nil {
		return nil, nil
	}

	switch d := e.Data.(type) {
	case ast.FieldAccessNode:
		p, bound, err := s.path(e.Tok, d.Path)
		if err != nil {
			return nil, err
		}
		if bound != nil {
			return ast.Clone(bound), nil
		}
		return ast.NewFieldAccess(e.Tok, p...), nil

	case ast.IncDecNode:
		p, bound, err := s.path(e.Tok, d.Path)
		if err != nil {
			return nil, err
		}
		if bound != nil {
			return nil, &diag.Error{Kind: diag.AssigningToParameter, Tok: e.Tok, Field: d.Path[0], Callable: s.macro, Expr: ast.Format(bound)}
		}
		return ast.NewIncDec(e.Tok, d.Op, d.Prefix, p), nil

	case ast.UnaryOpNode:
		x, err := s.expr(d.Expr)
		if err != nil {
			return nil, err
		}
		return ast.NewUnaryOp(e.Tok, d.Op, x), nil

	case ast.BinaryOpNode:
		l, err := s.expr(d.Left)
		if err != nil {
			return nil, err
		}
		r, err := s.expr(d.Right)
		if err != nil {
			return nil, err
		}
		return ast.NewBinaryOp(e.Tok, d.Op, l, r), nil

	case ast.IsNode:
		x, err := s.expr(d.Expr)
		if err != nil {
			return nil, err
		}
		return ast.NewIs(e.Tok, x, d.TypeName), nil

	case ast.BracketNode:
		x, err := s.expr(d.Expr)
		if err != nil {
			return nil, err
		}
		return ast.NewBracket(e.Tok, x), nil

	case ast.CallNode:
		args, err := s.exprs(d.Args)
		if err != nil {
			return nil, err
		}
		return ast.NewCall(e.Tok, d.Name, args), nil

	case ast.ConstructorNode:
		members := make([]ast.MemberInit, len(d.Members))
		for i, m := range d.Members {
			v, err := s.expr(m.Value)
			if err != nil {
				return nil, err
			}
			members[i] = ast.MemberInit{Name: m.Name, Tok: m.Tok, Value: v}
		}
		return ast.NewConstructor(e.Tok, d.TypeName, members), nil
	}

	return ast.Clone(e), nil
}
