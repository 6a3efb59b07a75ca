package blocks

import (
	"context"

	"github.com/xplshn/yolc/pkg/ast"
	"github.com/xplshn/yolc/pkg/diag"
	"github.com/xplshn/yolc/pkg/token"
	"github.com/xplshn/yolc/pkg/typeChecker"
	"tlog.app/go/tlog"
)

type Kind int

const (
	// Statements may be laid out across physical lines freely.
	Statements Kind = iota
	// Line must land on one physical line.
	Line
)

func (k Kind) String() string {
	if k == Line {
		return "line"
	}
	return "statements"
}

type Block struct {
	Kind  Kind
	Label string
	Stmts []*ast.Node
	Tok   token.Token
}

// Result is the block sequence of main plus the program tables every later stage needs.
type Result struct {
	Blocks    []Block
	Constants []ast.Constant
	Callables map[string]*ast.CallableDefinition
	Structs   typeChecker.Structs
}

// Extract splits main into blocks. A label attaches to the statements that follow
// it. A line group is always a block of its own.
func Extract(ctx context.Context, prog *ast.Program) (res *Result, err error) {
	tr, _ := tlog.SpawnFromContextAndWrap(ctx, "extract blocks")
	defer tr.Finish("err", &err)

	if prog.Main == nil {
		return nil, &diag.Error{Kind: diag.NoMainBlock}
	}

	res = &Result{
		Constants: prog.Constants,
		Callables: make(map[string]*ast.CallableDefinition, len(prog.Callables)),
		Structs:   make(typeChecker.Structs, len(prog.Structs)),
	}

	for i := range prog.Callables {
		c := &prog.Callables[i]
		if _, ok := res.Callables[c.Name]; ok {
			return nil, &diag.Error{Kind: diag.DuplicateDefinition, Tok: c.Tok, Field: c.Name, Cause: "callable"}
		}
		res.Callables[c.Name] = c
	}
	for i := range prog.Structs {
		s := &prog.Structs[i]
		if _, ok := res.Structs[s.Name]; ok {
			return nil, &diag.Error{Kind: diag.DuplicateDefinition, Tok: s.Tok, Field: s.Name, Cause: "struct"}
		}
		res.Structs[s.Name] = s
	}

	var (
		buf     []*ast.Node
		label   string
		labelAt = prog.Main.Tok
	)

	flush := func() {
		res.Blocks = append(res.Blocks, Block{Kind: Statements, Label: label, Stmts: buf, Tok: labelAt})
		buf = nil
	}

	for _, stmt := range prog.Main.Stmts {
		switch d := stmt.Data.(type) {
		case ast.LabelNode:
			flush()
			label, labelAt = d.Name, stmt.Tok
		case ast.LineNode:
			flush()
			label, labelAt = "", stmt.Tok
			res.Blocks = append(res.Blocks, Block{Kind: Line, Label: d.Label, Stmts: d.Stmts, Tok: stmt.Tok})
		default:
			buf = append(buf, stmt)
		}
	}
	flush()

	tr.Printw("blocks", "blocks", len(res.Blocks), "callables", len(res.Callables), "structs", len(res.Structs))

	return res, nil
}
