package typeChecker

import (
	"fmt"
	"strings"

	"github.com/xplshn/yolc/pkg/ast"
	"github.com/xplshn/yolc/pkg/diag"
	"github.com/xplshn/yolc/pkg/token"
)

// Structs indexes struct definitions by name.
type Structs map[string]*ast.StructDefinition

// Lookup returns the struct definition t names, if t is a struct type.
func (s Structs) Lookup(t Type) (*ast.StructDefinition, bool) {
	if t.Kind != Other {
		return nil, false
	}
	def, ok := s[t.Name]
	return def, ok
}

// Env maps canonical field names to their types. A name is declared at most once.
//
// An Env is owned by one stage at a time. Next hands it to the following stage,
// which sees every name again only once it reaches the declaration.
type Env struct {
	types  map[string]Type
	consts map[string]bool
	order  []string

	// dotted source path of every name, for collision reports
	paths map[string]string
	// enclosing struct field of a member name
	parent map[string]string
	// names an earlier stage declared that the current one has not reached
	pending map[string]bool
}

func NewEnv() *Env {
	return &Env{
		types:   make(map[string]Type),
		consts:  make(map[string]bool),
		paths:   make(map[string]string),
		parent:  make(map[string]string),
		pending: make(map[string]bool),
	}
}

// Next returns the environment for the following stage. Every known name stays
// known with its type, but reads fail until the stage redeclares it. The
// receiver is left unchanged.
func (e *Env) Next() *Env {
	n := NewEnv()
	n.order = append(n.order, e.order...)
	for name, t := range e.types {
		n.types[name] = t
		n.pending[name] = true
	}
	for name := range e.consts {
		n.consts[name] = true
	}
	for name, p := range e.paths {
		n.paths[name] = p
	}
	for name, p := range e.parent {
		n.parent[name] = p
	}
	return n
}

func (e *Env) Lookup(name string) (Type, bool) {
	if e.pending[name] {
		return Type{}, false
	}
	t, ok := e.types[name]
	return t, ok
}

func (e *Env) LookupPath(path []string) (Type, bool) { return e.Lookup(ast.CanonicalName(path)) }

func (e *Env) IsConst(name string) bool { return e.consts[name] && !e.pending[name] }

// Names lists known fields in declaration order.
func (e *Env) Names() []string { return append([]string(nil), e.order...) }

func (e *Env) Len() int { return len(e.order) }

func (e *Env) insert(tok token.Token, path []string, t Type) error {
	name := ast.CanonicalName(path)
	dotted := strings.Join(path, ".")

	if _, ok := e.types[name]; ok && !e.pending[name] {
		err := &diag.Error{Kind: diag.DuplicateFieldDeclaration, Tok: tok, Field: name}
		if prev := e.paths[name]; prev != dotted {
			err.Cause = fmt.Sprintf("`%s` and `%s` map to the same field", dotted, prev)
		}
		return err
	}

	if e.pending[name] {
		delete(e.pending, name)
		// a flattened member brings its struct field back into view
		for p := e.parent[name]; p != "" && e.pending[p]; p = e.parent[p] {
			delete(e.pending, p)
		}
	} else {
		e.order = append(e.order, name)
	}

	e.types[name] = t
	if _, ok := e.paths[name]; !ok {
		e.paths[name] = dotted
	}
	return nil
}

// Declare records the field at path. A struct-typed field also declares every
// member path below it, so 'p.x' resolves once 'p: Point' is declared.
func (e *Env) Declare(tok token.Token, path []string, t Type, structs Structs) error {
	return e.declare(tok, path, t, structs, nil)
}

func (e *Env) declare(tok token.Token, path []string, t Type, structs Structs, visiting []string) error {
	if err := e.insert(tok, path, t); err != nil {
		return err
	}

	def, ok := structs.Lookup(t)
	if !ok {
		return nil
	}
	for _, v := range visiting {
		if v == def.Name {
			return diag.NotImplementedf(tok, "struct `%s` contains itself", def.Name)
		}
	}

	for _, f := range def.Fields {
		member := append(append([]string(nil), path...), f.Name)
		e.parent[ast.CanonicalName(member)] = ast.CanonicalName(path)
		if err := e.declare(tok, member, Canonicalize(f.TypeName), structs, append(visiting, def.Name)); err != nil {
			return err
		}
	}
	return nil
}

func (e *Env) DeclareConst(tok token.Token, name string, t Type) error {
	if err := e.insert(tok, []string{name}, t); err != nil {
		return err
	}
	e.consts[name] = true
	return nil
}

// DeclareConstants seeds the environment with the program-level constants.
func (e *Env) DeclareConstants(consts []ast.Constant) error {
	for _, c := range consts {
		if err := e.DeclareConst(c.Tok, c.Field.Name, Canonicalize(c.Field.TypeName)); err != nil {
			return err
		}
	}
	return nil
}

// Suggest finds a declared name close to name, for diagnostics.
func (e *Env) Suggest(name string) string {
	var seen []string
	for _, n := range e.order {
		if !e.pending[n] {
			seen = append(seen, n)
		}
	}
	return diag.Suggest(name, seen)
}
