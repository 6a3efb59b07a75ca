// Package ast defines the types used to represent the Abstract Syntax Tree (AST)
// of a source program, before any lowering has happened.
package ast

import (
	"strings"

	"github.com/xplshn/yolc/pkg/token"
)

// NodeType defines the kind of a node in the AST
type NodeType int

// Node types enum
const (
	// Expressions
	Number NodeType = iota
	String
	FieldAccess
	External
	UnaryOp
	BinaryOp
	Is
	Bracket
	Call
	IncDec
	Constructor
	Panic

	// Inner statements
	PanicStmt
	Emit
	CallStmt
	If
	Assign
	DeclareAssign
	DeclareConst
	ExternalAssign
	Return
	Goto

	// Outer statements, only valid directly inside main
	Line
	Label
)

var nodeTypeNames = [...]string{
	Number: "number", String: "string", FieldAccess: "field access", External: "external field",
	UnaryOp: "unary op", BinaryOp: "binary op", Is: "is", Bracket: "bracket", Call: "call",
	IncDec: "increment", Constructor: "constructor", Panic: "panic",
	PanicStmt: "panic", Emit: "emit", CallStmt: "call", If: "if", Assign: "assignment",
	DeclareAssign: "declaration", DeclareConst: "constant declaration", ExternalAssign: "external assignment",
	Return: "return", Goto: "goto", Line: "line", Label: "label",
}

func (t NodeType) String() string {
	if int(t) < len(nodeTypeNames) {
		return nodeTypeNames[t]
	}
	return "node"
}

// Node represents a node in the Abstract Syntax Tree
type Node struct {
	Type NodeType
	Tok  token.Token
	Data interface{}
}

// FieldSeparator joins the segments of a field path into its canonical name.
const FieldSeparator = "_"

// CanonicalName is the only key used for field lookups and emitted identifiers.
func CanonicalName(path []string) string { return strings.Join(path, FieldSeparator) }

// --- Node Data Structs ---
type NumberNode struct{ Value string }
type StringNode struct{ Value string }
type FieldAccessNode struct{ Path []string }
type ExternalNode struct{ Name string }
type UnaryOpNode struct{ Op token.Type; Expr *Node }
type BinaryOpNode struct{ Op token.Type; Left, Right *Node }
type IsNode struct{ Expr *Node; TypeName string }
type BracketNode struct{ Expr *Node }
type CallNode struct{ Name string; Args []*Node }
type IncDecNode struct{ Op token.Type; Prefix bool; Path []string }
type MemberInit struct{ Name string; Tok token.Token; Value *Node }
type ConstructorNode struct{ TypeName string; Members []MemberInit }
type PanicNode struct{ Message string }
type EmitNode struct{ Code string }
type IfNode struct{ Cond *Node; Then, Else []*Node }
type AssignNode struct{ Path []string; Value *Node }
type DeclareNode struct{ Field FieldDefinition; Value *Node }
type ExternalAssignNode struct{ Name string; Value *Node }
type ReturnNode struct{ Value *Node }
type GotoNode struct{ Label string }
type LineNode struct{ Label string; Stmts []*Node }
type LabelNode struct{ Name string }

func newNode(tok token.Token, nodeType NodeType, data interface{}) *Node {
	return &Node{Type: nodeType, Tok: tok, Data: data}
}

func NewNumber(tok token.Token, value string) *Node {
	return newNode(tok, Number, NumberNode{Value: value})
}
func NewString(tok token.Token, value string) *Node {
	return newNode(tok, String, StringNode{Value: value})
}
func NewFieldAccess(tok token.Token, path ...string) *Node {
	return newNode(tok, FieldAccess, FieldAccessNode{Path: path})
}
func NewExternal(tok token.Token, name string) *Node {
	return newNode(tok, External, ExternalNode{Name: name})
}
func NewUnaryOp(tok token.Token, op token.Type, expr *Node) *Node {
	return newNode(tok, UnaryOp, UnaryOpNode{Op: op, Expr: expr})
}
func NewBinaryOp(tok token.Token, op token.Type, left, right *Node) *Node {
	return newNode(tok, BinaryOp, BinaryOpNode{Op: op, Left: left, Right: right})
}
func NewIs(tok token.Token, expr *Node, typeName string) *Node {
	return newNode(tok, Is, IsNode{Expr: expr, TypeName: typeName})
}
func NewBracket(tok token.Token, expr *Node) *Node {
	return newNode(tok, Bracket, BracketNode{Expr: expr})
}
func NewCall(tok token.Token, name string, args []*Node) *Node {
	return newNode(tok, Call, CallNode{Name: name, Args: args})
}
func NewIncDec(tok token.Token, op token.Type, prefix bool, path []string) *Node {
	return newNode(tok, IncDec, IncDecNode{Op: op, Prefix: prefix, Path: path})
}
func NewConstructor(tok token.Token, typeName string, members []MemberInit) *Node {
	return newNode(tok, Constructor, ConstructorNode{TypeName: typeName, Members: members})
}
func NewPanic(tok token.Token, msg string) *Node {
	return newNode(tok, Panic, PanicNode{Message: msg})
}
func NewPanicStmt(tok token.Token, msg string) *Node {
	return newNode(tok, PanicStmt, PanicNode{Message: msg})
}
func NewEmit(tok token.Token, code string) *Node {
	return newNode(tok, Emit, EmitNode{Code: code})
}
func NewCallStmt(tok token.Token, name string, args []*Node) *Node {
	return newNode(tok, CallStmt, CallNode{Name: name, Args: args})
}
func NewIf(tok token.Token, cond *Node, thenBody, elseBody []*Node) *Node {
	return newNode(tok, If, IfNode{Cond: cond, Then: thenBody, Else: elseBody})
}
func NewAssign(tok token.Token, path []string, value *Node) *Node {
	return newNode(tok, Assign, AssignNode{Path: path, Value: value})
}
func NewDeclareAssign(tok token.Token, field FieldDefinition, value *Node) *Node {
	return newNode(tok, DeclareAssign, DeclareNode{Field: field, Value: value})
}
func NewDeclareConst(tok token.Token, field FieldDefinition, value *Node) *Node {
	return newNode(tok, DeclareConst, DeclareNode{Field: field, Value: value})
}
func NewExternalAssign(tok token.Token, name string, value *Node) *Node {
	return newNode(tok, ExternalAssign, ExternalAssignNode{Name: name, Value: value})
}
func NewReturn(tok token.Token, value *Node) *Node {
	return newNode(tok, Return, ReturnNode{Value: value})
}
func NewGoto(tok token.Token, label string) *Node {
	return newNode(tok, Goto, GotoNode{Label: label})
}
func NewLine(tok token.Token, label string, stmts []*Node) *Node {
	return newNode(tok, Line, LineNode{Label: label, Stmts: stmts})
}
func NewLabel(tok token.Token, name string) *Node {
	return newNode(tok, Label, LabelNode{Name: name})
}

// Clone returns a deep copy of the node. Paths and child lists are never shared with the original.
func Clone(node *Node) *Node {
	if node == nil {
		return nil
	}

	c := &Node{Type: node.Type, Tok: node.Tok}

	switch d := node.Data.(type) {
	case FieldAccessNode:
		c.Data = FieldAccessNode{Path: clonePath(d.Path)}
	case UnaryOpNode:
		c.Data = UnaryOpNode{Op: d.Op, Expr: Clone(d.Expr)}
	case BinaryOpNode:
		c.Data = BinaryOpNode{Op: d.Op, Left: Clone(d.Left), Right: Clone(d.Right)}
	case IsNode:
		c.Data = IsNode{Expr: Clone(d.Expr), TypeName: d.TypeName}
	case BracketNode:
		c.Data = BracketNode{Expr: Clone(d.Expr)}
	case CallNode:
		c.Data = CallNode{Name: d.Name, Args: CloneList(d.Args)}
	case IncDecNode:
		c.Data = IncDecNode{Op: d.Op, Prefix: d.Prefix, Path: clonePath(d.Path)}
	case ConstructorNode:
		members := make([]MemberInit, len(d.Members))
		for i, m := range d.Members {
			members[i] = MemberInit{Name: m.Name, Tok: m.Tok, Value: Clone(m.Value)}
		}
		c.Data = ConstructorNode{TypeName: d.TypeName, Members: members}
	case IfNode:
		c.Data = IfNode{Cond: Clone(d.Cond), Then: CloneList(d.Then), Else: CloneList(d.Else)}
	case AssignNode:
		c.Data = AssignNode{Path: clonePath(d.Path), Value: Clone(d.Value)}
	case DeclareNode:
		c.Data = DeclareNode{Field: d.Field, Value: Clone(d.Value)}
	case ExternalAssignNode:
		c.Data = ExternalAssignNode{Name: d.Name, Value: Clone(d.Value)}
	case ReturnNode:
		c.Data = ReturnNode{Value: Clone(d.Value)}
	case LineNode:
		c.Data = LineNode{Label: d.Label, Stmts: CloneList(d.Stmts)}
	default:
		// leaf data is held by value
		c.Data = node.Data
	}

	return c
}

func CloneList(nodes []*Node) []*Node {
	if nodes == nil {
		return nil
	}
	res := make([]*Node, len(nodes))
	for i, n := range nodes {
		res[i] = Clone(n)
	}
	return res
}

func clonePath(p []string) []string { return append([]string(nil), p...) }

// Inspect visits node and its descendants in source order, stopping the descent
// into a subtree when fn returns false.
func Inspect(node *Node, fn func(*Node) bool) {
	if node == nil || !fn(node) {
		return
	}

	switch d := node.Data.(type) {
	case UnaryOpNode:
		Inspect(d.Expr, fn)
	case BinaryOpNode:
		Inspect(d.Left, fn)
		Inspect(d.Right, fn)
	case IsNode:
		Inspect(d.Expr, fn)
	case BracketNode:
		Inspect(d.Expr, fn)
	case CallNode:
		inspectList(d.Args, fn)
	case ConstructorNode:
		for _, m := range d.Members {
			Inspect(m.Value, fn)
		}
	case IfNode:
		Inspect(d.Cond, fn)
		inspectList(d.Then, fn)
		inspectList(d.Else, fn)
	case AssignNode:
		Inspect(d.Value, fn)
	case DeclareNode:
		Inspect(d.Value, fn)
	case ExternalAssignNode:
		Inspect(d.Value, fn)
	case ReturnNode:
		Inspect(d.Value, fn)
	case LineNode:
		inspectList(d.Stmts, fn)
	}
}

func inspectList(nodes []*Node, fn func(*Node) bool) {
	for _, n := range nodes {
		Inspect(n, fn)
	}
}

// ContainsExternal reports whether an external field is read anywhere in the expression.
func ContainsExternal(node *Node) bool {
	found := false
	Inspect(node, func(n *Node) bool {
		if n.Type == External {
			found = true
		}
		return !found
	})
	return found
}
