package util

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/xplshn/yolc/pkg/diag"
	"github.com/xplshn/yolc/pkg/token"
	"golang.org/x/term"
)

const (
	cRed   = "\033[31m"
	cGreen = "\033[32m"
	cDim   = "\033[2m"
	cNone  = "\033[0m"
)

// Sources holds the text of every loaded file, for quoting the failing line.
type Sources map[string][]rune

// Reporter prints compiler errors the way a terminal user expects them.
type Reporter struct {
	w       io.Writer
	sources Sources
	color   bool
}

// NewReporter colors output only when w is a terminal.
func NewReporter(w io.Writer, sources Sources) *Reporter {
	r := &Reporter{w: w, sources: sources}
	if f, ok := w.(*os.File); ok {
		r.color = term.IsTerminal(int(f.Fd()))
	}
	return r
}

func (r *Reporter) paint(c, s string) string {
	if !r.color {
		return s
	}
	return c + s + cNone
}

// Report prints err. Compiler errors get a position, their category and the
// source line with a caret under the offending token.
func (r *Reporter) Report(err error) {
	e, ok := diag.As(err)
	if !ok {
		fmt.Fprintf(r.w, "%s %v\n", r.paint(cRed, "error:"), err)
		return
	}

	if e.Tok.Line != 0 {
		fmt.Fprintf(r.w, "%s: ", e.Tok.Pos())
	}
	fmt.Fprintf(r.w, "%s %v %s\n", r.paint(cRed, "error:"), e, r.paint(cDim, "["+e.Category().String()+"]"))

	r.printErrorLine(e.Tok)
}

// printErrorLine prints the source line and a caret indicating the error position
func (r *Reporter) printErrorLine(tok token.Token) {
	content, ok := r.sources[tok.File]
	if !ok || tok.Line == 0 {
		return
	}

	line, ok := sourceLine(content, tok.Line)
	if !ok {
		return
	}
	fmt.Fprintf(r.w, "  %s\n", line)

	col := tok.Column
	if col < 1 {
		col = 1
	}
	caret := "^"
	if tok.Len > 1 {
		caret += strings.Repeat("~", tok.Len-1)
	}
	fmt.Fprintf(r.w, "  %s%s\n", strings.Repeat(" ", col-1), r.paint(cGreen, caret))
}

// sourceLine returns the 1-based line n of content.
func sourceLine(content []rune, n int) (string, bool) {
	start := 0
	for i, c := range content {
		if n <= 1 {
			break
		}
		if c == '\n' {
			n--
			start = i + 1
		}
	}
	if n > 1 {
		return "", false
	}

	end := len(content)
	for i := start; i < len(content); i++ {
		if content[i] == '\n' {
			end = i
			break
		}
	}
	return strings.TrimRight(string(content[start:end]), "\r"), true
}
