// Package flatten replaces struct-typed fields with one scalar field per member.
package flatten

import (
	"context"

	"github.com/xplshn/yolc/pkg/ast"
	"github.com/xplshn/yolc/pkg/blocks"
	"github.com/xplshn/yolc/pkg/diag"
	"github.com/xplshn/yolc/pkg/token"
	"github.com/xplshn/yolc/pkg/typeChecker"
	"tlog.app/go/tlog"
)

type flattener struct {
	structs typeChecker.Structs
	env     *typeChecker.Env

	members int
	tr      tlog.Span
}

// Flatten expands constructor literals and struct copies into member-wise
// scalar declarations and assignments, in struct definition order. It takes
// over prev, the environment the inliner handed on; nil starts a fresh one.
func Flatten(ctx context.Context, src *blocks.Result, prev *typeChecker.Env) (res *blocks.Result, env *typeChecker.Env, err error) {
	tr, _ := tlog.SpawnFromContextAndWrap(ctx, "flatten structs")
	defer tr.Finish("err", &err)

	f := &flattener{
		structs: src.Structs,
		env:     handoff(prev),
		tr:      tr,
	}

	if err = f.env.DeclareConstants(src.Constants); err != nil {
		return nil, nil, err
	}

	res = &blocks.Result{
		Constants: src.Constants,
		Callables: src.Callables,
		Structs:   src.Structs,
	}

	for _, b := range src.Blocks {
		stmts, err := f.stmts(b.Stmts)
		if err != nil {
			return nil, nil, err
		}
		res.Blocks = append(res.Blocks, blocks.Block{Kind: b.Kind, Label: b.Label, Stmts: stmts, Tok: b.Tok})
	}

	tr.Printw("flattened", "members", f.members, "fields", f.env.Len())

	return res, f.env, nil
}

func handoff(prev *typeChecker.Env) *typeChecker.Env {
	if prev == nil {
		return typeChecker.NewEnv()
	}
	return prev.Next()
}

func (f *flattener) stmts(list []*ast.Node) ([]*ast.Node, error) {
	var out []*ast.Node
	for _, s := range list {
		r, err := f.stmt(s)
		if err != nil {
			return nil, err
		}
		out = append(out, r...)
	}
	return out, nil
}

func (f *flattener) stmt(s *ast.Node) ([]*ast.Node, error) {
	switch d := s.Data.(type) {
	case ast.DeclareNode:
		t := typeChecker.Canonicalize(d.Field.TypeName)
		_, isStruct := f.structs.Lookup(t)

		if s.Type == ast.DeclareConst {
			if isStruct || d.Value.Type == ast.Constructor {
				return nil, diag.NotImplementedf(s.Tok, "constant `%s` of struct type", d.Field.Name)
			}
			if err := f.env.DeclareConst(s.Tok, d.Field.Name, t); err != nil {
				return nil, err
			}
			return []*ast.Node{s}, nil
		}

		path := []string{d.Field.Name}
		if d.Value.Type == ast.Constructor && !isStruct {
			return nil, constructorTarget(s.Tok, path, t, d.Value)
		}
		if err := f.env.Declare(s.Tok, path, t, f.structs); err != nil {
			return nil, err
		}
		if !isStruct {
			return []*ast.Node{s}, nil
		}
		return f.assignStruct(s.Tok, path, t, d.Value, true)

	case ast.AssignNode:
		t, declared := f.env.LookupPath(d.Path)
		_, isStruct := f.structs.Lookup(t)
		if d.Value.Type != ast.Constructor && !isStruct {
			return []*ast.Node{s}, nil
		}
		if !declared {
			name := ast.CanonicalName(d.Path)
			return nil, &diag.Error{Kind: diag.AssigningUndeclaredField, Tok: s.Tok, Path: d.Path, Suggestion: f.env.Suggest(name)}
		}
		return f.assignStruct(s.Tok, d.Path, t, d.Value, false)

	case ast.IfNode:
		thenBody, err := f.stmts(d.Then)
		if err != nil {
			return nil, err
		}
		elseBody, err := f.stmts(d.Else)
		if err != nil {
			return nil, err
		}
		return []*ast.Node{ast.NewIf(s.Tok, d.Cond, thenBody, elseBody)}, nil
	}

	return []*ast.Node{s}, nil
}

// assignStruct stores value into the struct field at path, member by member.
// With declare set the members are declared, otherwise assigned.
func (f *flattener) assignStruct(tok token.Token, path []string, t typeChecker.Type, value *ast.Node, declare bool) ([]*ast.Node, error) {
	def, ok := f.structs.Lookup(t)

	switch v := value.Data.(type) {
	case ast.ConstructorNode:
		if !ok {
			return nil, constructorTarget(tok, path, t, value)
		}
		if v.TypeName != def.Name {
			return nil, &diag.Error{Kind: diag.TypeCheckFailed, Tok: value.Tok, To: def.Name, From: v.TypeName}
		}

		inits, err := memberInits(def, v)
		if err != nil {
			return nil, err
		}

		var out []*ast.Node
		for _, field := range def.Fields {
			init, ok := inits[field.Name]
			if !ok {
				return nil, &diag.Error{Kind: diag.MissingConstructorMember, Tok: value.Tok, TypeName: def.Name, Member: field.Name}
			}
			r, err := f.member(tok, memberPath(path, field.Name), typeChecker.Canonicalize(field.TypeName), init, declare)
			if err != nil {
				return nil, err
			}
			out = append(out, r...)
		}
		return out, nil

	case ast.FieldAccessNode:
		if !ok {
			return nil, diag.Internalf(tok, "struct copy into `%s` of type `%s`", ast.CanonicalName(path), t)
		}
		from, known := f.env.LookupPath(v.Path)
		if !known {
			return nil, &diag.Error{Kind: diag.FieldTypeNotKnown, Tok: value.Tok, Path: v.Path, Suggestion: f.env.Suggest(ast.CanonicalName(v.Path))}
		}
		if err := typeChecker.CheckAssignment(tok, t, from); err != nil {
			return nil, err
		}

		f.tr.V("flatten").Printw("copy struct", "to", ast.CanonicalName(path), "from", ast.CanonicalName(v.Path), "type", def.Name)

		var out []*ast.Node
		for _, field := range def.Fields {
			src := ast.NewFieldAccess(value.Tok, memberPath(v.Path, field.Name)...)
			r, err := f.member(tok, memberPath(path, field.Name), typeChecker.Canonicalize(field.TypeName), src, declare)
			if err != nil {
				return nil, err
			}
			out = append(out, r...)
		}
		return out, nil
	}

	return nil, diag.NotImplementedf(tok, "storing `%s` into struct field `%s`", ast.Format(value), ast.CanonicalName(path))
}

// member emits the store of one struct member. Nested struct members recurse.
func (f *flattener) member(tok token.Token, path []string, t typeChecker.Type, value *ast.Node, declare bool) ([]*ast.Node, error) {
	if _, isStruct := f.structs.Lookup(t); isStruct || value.Type == ast.Constructor {
		return f.assignStruct(tok, path, t, value, declare)
	}

	if err := typeChecker.CheckValue(value.Tok, t, value, f.env); err != nil {
		return nil, err
	}
	f.members++

	if declare {
		field := ast.FieldDefinition{Name: ast.CanonicalName(path), TypeName: t.String()}
		return []*ast.Node{ast.NewDeclareAssign(tok, field, value)}, nil
	}
	return []*ast.Node{ast.NewAssign(tok, path, value)}, nil
}

func memberInits(def *ast.StructDefinition, ctor ast.ConstructorNode) (map[string]*ast.Node, error) {
	inits := make(map[string]*ast.Node, len(ctor.Members))
	for _, m := range ctor.Members {
		if _, ok := def.Field(m.Name); !ok {
			return nil, &diag.Error{Kind: diag.UnknownConstructorMember, Tok: m.Tok, TypeName: def.Name, Member: m.Name, Cause: "unknown", Suggestion: diag.Suggest(m.Name, memberNames(def))}
		}
		if _, dup := inits[m.Name]; dup {
			return nil, &diag.Error{Kind: diag.UnknownConstructorMember, Tok: m.Tok, TypeName: def.Name, Member: m.Name, Cause: "duplicate"}
		}
		inits[m.Name] = m.Value
	}
	return inits, nil
}

func memberNames(def *ast.StructDefinition) []string {
	names := make([]string, len(def.Fields))
	for i, f := range def.Fields {
		names[i] = f.Name
	}
	return names
}

func memberPath(path []string, member string) []string {
	return append(append(make([]string, 0, len(path)+1), path...), member)
}

func constructorTarget(tok token.Token, path []string, t typeChecker.Type, ctor *ast.Node) error {
	return &diag.Error{Kind: diag.FieldConstructorAssignment, Tok: tok, Path: path, To: t.String(), From: ctor.Data.(ast.ConstructorNode).TypeName}
}
