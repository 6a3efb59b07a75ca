package codegen

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/xplshn/yolc/pkg/config"
	"github.com/xplshn/yolc/pkg/ir"
)

// Backend renders a lowered program. Turning the program into chip source is
// left to a layout stage; the backends here render it for inspection.
type Backend interface {
	Generate(prog *ir.Program, cfg *config.Config) (*bytes.Buffer, error)
}

type dumpBackend struct {
	fingerprint bool
}

// NewDumpBackend renders ir.Program.Dump, optionally followed by the fingerprint.
func NewDumpBackend(fingerprint bool) Backend { return &dumpBackend{fingerprint: fingerprint} }

func (b *dumpBackend) Generate(prog *ir.Program, cfg *config.Config) (*bytes.Buffer, error) {
	var buf bytes.Buffer
	buf.WriteString(prog.Dump())
	if b.fingerprint {
		fmt.Fprintf(&buf, "# fingerprint %016x\n", prog.Fingerprint())
	}
	return &buf, nil
}

type blocksBackend struct{}

// NewBlocksBackend renders only the labels and shape of each line.
func NewBlocksBackend() Backend { return blocksBackend{} }

func (blocksBackend) Generate(prog *ir.Program, cfg *config.Config) (*bytes.Buffer, error) {
	var buf bytes.Buffer
	for i, l := range prog.Lines {
		kind := "statements"
		if l.Atomic {
			kind = "line"
		}
		label := l.Label
		if label == "" {
			label = "-"
		}
		parts := make([]string, len(l.Stmts))
		for j, s := range l.Stmts {
			parts[j] = s.String()
		}
		fmt.Fprintf(&buf, "%3d  %-10s %-12s %d: %s\n", i, kind, label, len(l.Stmts), strings.Join(parts, "; "))
	}
	return &buf, nil
}
