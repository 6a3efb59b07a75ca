package ast

import "github.com/xplshn/yolc/pkg/token"

// FieldDefinition names a field and the raw, uncanonicalized name of its type.
type FieldDefinition struct {
	Name     string
	TypeName string
}

type Import struct {
	Path      string
	Namespace string
	Tok       token.Token
}

type Constant struct {
	Field FieldDefinition
	Value *Node
	Tok   token.Token
}

type EnumItem struct {
	Name  string
	Value *Node
}

type EnumDefinition struct {
	Name  string
	Base  string
	Items []EnumItem
	Tok   token.Token
}

type StructDefinition struct {
	Name   string
	Fields []FieldDefinition
	Tok    token.Token
}

// Field returns the member definition with the given name.
func (s *StructDefinition) Field(name string) (FieldDefinition, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return FieldDefinition{}, false
}

type RangeDefinition struct {
	Name string
	Base string
	Expr *Node
	Tok  token.Token
}

type CallType int

const (
	Proc CallType = iota
	Macro
)

func (c CallType) String() string {
	if c == Macro {
		return "macro"
	}
	return "proc"
}

type ParameterDefinition struct {
	Field FieldDefinition
	Copy  bool
}

type Attribute struct {
	Name   string
	Params []*Node
}

type CallableDefinition struct {
	Name       string
	CallType   CallType
	Params     []ParameterDefinition
	ReturnType string
	Body       []*Node
	Attributes []Attribute
	Tok        token.Token
}

type Main struct {
	Stmts []*Node
	Tok   token.Token
}

// Program is everything one source file, or a merged import graph, defines.
type Program struct {
	Imports   []Import
	Constants []Constant
	Enums     []EnumDefinition
	Structs   []StructDefinition
	Ranges    []RangeDefinition
	Callables []CallableDefinition
	Main      *Main
}

// Combine appends the definitions of other to p, qualified with namespace
// when it is not empty. p keeps its own main if it has one.
func (p *Program) Combine(other *Program, namespace string) {
	if other == nil {
		return
	}
	if namespace != "" {
		other.applyNamespace(namespace)
	}

	p.Constants = append(p.Constants, other.Constants...)
	p.Enums = append(p.Enums, other.Enums...)
	p.Structs = append(p.Structs, other.Structs...)
	p.Ranges = append(p.Ranges, other.Ranges...)
	p.Callables = append(p.Callables, other.Callables...)

	if p.Main == nil {
		p.Main = other.Main
	}
}

// applyNamespace renames every definition to "ns:name", and constants to the
// field path "ns.name". References the file makes to its own definitions are
// renamed with them, so a library reads the same from inside and outside.
func (p *Program) applyNamespace(ns string) {
	q := func(name string) string { return ns + ":" + name }

	types := make(map[string]bool)
	callables := make(map[string]bool)
	consts := make(map[string]bool)
	for _, s := range p.Structs {
		types[s.Name] = true
	}
	for _, e := range p.Enums {
		types[e.Name] = true
	}
	for _, r := range p.Ranges {
		types[r.Name] = true
	}
	for _, c := range p.Callables {
		callables[c.Name] = true
	}
	for _, c := range p.Constants {
		consts[c.Field.Name] = true
	}

	typ := func(name string) string {
		if types[name] {
			return q(name)
		}
		return name
	}
	field := func(f FieldDefinition) FieldDefinition {
		f.TypeName = typ(f.TypeName)
		return f
	}

	// rename rewrites a tree in place. Names in locals shadow constants.
	rename := func(nodes []*Node, locals map[string]bool) {
		for _, n := range nodes {
			Inspect(n, func(n *Node) bool {
				switch d := n.Data.(type) {
				case DeclareNode:
					d.Field = field(d.Field)
					n.Data = d
				case ConstructorNode:
					d.TypeName = typ(d.TypeName)
					n.Data = d
				case IsNode:
					d.TypeName = typ(d.TypeName)
					n.Data = d
				case CallNode:
					if callables[d.Name] {
						d.Name = q(d.Name)
						n.Data = d
					}
				case FieldAccessNode:
					if len(d.Path) == 1 && consts[d.Path[0]] && !locals[d.Path[0]] {
						n.Data = FieldAccessNode{Path: []string{ns, d.Path[0]}}
					}
				}
				return true
			})
		}
	}

	for i := range p.Constants {
		c := &p.Constants[i]
		c.Field = field(c.Field)
		rename([]*Node{c.Value}, nil)
		c.Field.Name = CanonicalName([]string{ns, c.Field.Name})
	}
	for i := range p.Enums {
		p.Enums[i].Name = q(p.Enums[i].Name)
	}
	for i := range p.Structs {
		s := &p.Structs[i]
		s.Name = q(s.Name)
		fields := make([]FieldDefinition, len(s.Fields))
		for j, f := range s.Fields {
			fields[j] = field(f)
		}
		s.Fields = fields
	}
	for i := range p.Ranges {
		p.Ranges[i].Name = q(p.Ranges[i].Name)
	}
	for i := range p.Callables {
		c := &p.Callables[i]
		c.Name = q(c.Name)
		c.ReturnType = typ(c.ReturnType)

		locals := make(map[string]bool)
		params := make([]ParameterDefinition, len(c.Params))
		for j, param := range c.Params {
			param.Field = field(param.Field)
			params[j] = param
			locals[param.Field.Name] = true
		}
		c.Params = params
		declared(c.Body, locals)
		rename(c.Body, locals)
	}
	if p.Main != nil {
		locals := make(map[string]bool)
		declared(p.Main.Stmts, locals)
		rename(p.Main.Stmts, locals)
	}
}

// declared adds every field declared in nodes, at any depth, to names.
func declared(nodes []*Node, names map[string]bool) {
	for _, n := range nodes {
		Inspect(n, func(n *Node) bool {
			if d, ok := n.Data.(DeclareNode); ok {
				names[d.Field.Name] = true
			}
			return true
		})
	}
}
