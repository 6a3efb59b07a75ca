package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseNumber(t *testing.T) {
	tests := []struct {
		in   string
		want int64
	}{
		{"0", 0},
		{"12", 12000},
		{"1.5", 1500},
		{"0.001", 1},
		{".25", 250},
		{"3.14159", 3141},
		{"-2.5", -2500},
	}

	for _, tc := range tests {
		got, err := ParseNumber(tc.in)
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.want, got, tc.in)
	}

	_, err := ParseNumber("1.2.3")
	assert.Error(t, err)
	_, err = ParseNumber("x")
	assert.Error(t, err)
}

func TestFormatNumber(t *testing.T) {
	tests := map[int64]string{
		0:     "0",
		12000: "12",
		1500:  "1.5",
		1:     "0.001",
		-2500: "-2.5",
		-10:   "-0.01",
		3141:  "3.141",
	}
	for in, want := range tests {
		assert.Equal(t, want, FormatNumber(in), "%d", in)

		back, err := ParseNumber(want)
		require.NoError(t, err)
		assert.Equal(t, in, back)
	}
}

func sample() *Program {
	n := Identifier{Name: "n"}
	return &Program{
		LineLength: 70,
		LineCount:  20,
		Lines: []*Line{
			{Stmts: []Stmt{&Assignment{Target: n, Value: NewNumber(0)}}},
			{Label: "loop", Stmts: []Stmt{
				&Assignment{Target: Identifier{Name: "out", External: true}, Value: &IncDec{Op: OpPostInc, Ident: n}},
				&If{
					Cond: &Binary{Op: OpLt, Left: &Variable{Ident: n}, Right: NewNumber(10000)},
					Then: []Stmt{&Goto{Target: &Variable{Ident: Identifier{Name: "_label_loop"}}}},
				},
			}},
			{Label: "fast", Atomic: true, Stmts: []Stmt{
				&Assignment{Target: n, Value: &Unary{Op: OpNot, Expr: &Bracket{Expr: &Unary{Op: OpNeg, Expr: &Variable{Ident: n}}}}},
			}},
		},
	}
}

func TestDump(t *testing.T) {
	want := "# line-length 70, line-count 20\n" +
		"  0  { n = 0 }\n" +
		"  1  @loop { :out = n++ if n < 10 then goto _label_loop end }\n" +
		"  2  @fast line { n = not (-n) }\n"
	assert.Equal(t, want, sample().Dump())
}

func TestStatements(t *testing.T) {
	s := &If{
		Cond: &Variable{Ident: Identifier{Name: "a", External: true}},
		Then: []Stmt{&CompoundAssignment{Target: Identifier{Name: "b"}, Op: OpAdd, Value: &String{Value: "x"}}},
		Else: []Stmt{&GotoLabel{Label: "top"}, &ExprStmt{Expr: &IncDec{Op: OpPreDec, Ident: Identifier{Name: "c"}}}},
	}
	assert.Equal(t, `if :a then b += "x" else goto @top --c end`, s.String())
}

func TestFingerprint(t *testing.T) {
	a, b := sample(), sample()
	assert.Equal(t, a.Fingerprint(), b.Fingerprint())

	b.Lines[0].Label = "start"
	assert.NotEqual(t, a.Fingerprint(), b.Fingerprint())

	b = sample()
	b.Configs = []string{"chip=basic"}
	assert.NotEqual(t, a.Fingerprint(), b.Fingerprint())
}

func TestLabels(t *testing.T) {
	p := sample()
	assert.Equal(t, []string{"loop", "fast"}, p.Labels())
	assert.Same(t, p.Lines[2], p.FindLine("fast"))
	assert.Nil(t, p.FindLine("missing"))
}
