package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	var (
		out     string
		count   int
		verbose []string
		dump    bool
	)

	fs := NewFlagSet("t")
	fs.String(&out, "output", "o", "-", "output file", "file")
	fs.Int(&count, "line-count", "", 20, "lines", "n")
	fs.List(&verbose, "verbose", "v", []string{}, "topics", "topic")
	fs.Bool(&dump, "dump-blocks", "", false, "dump")

	err := fs.Parse([]string{"-o", "a.out", "--line-count=12", "-vinline", "--verbose", "emit", "--dump-blocks", "in.y", "--", "-x"})
	require.NoError(t, err)

	assert.Equal(t, "a.out", out)
	assert.Equal(t, 12, count)
	assert.Equal(t, []string{"inline", "emit"}, verbose)
	assert.True(t, dump)
	assert.Equal(t, []string{"in.y", "-x"}, fs.Args())
}

func TestParseErrors(t *testing.T) {
	var n int
	var b bool

	for _, args := range [][]string{
		{"--nope"},
		{"-z"},
		{"--count"},
		{"--count=x"},
		{"--flag=maybe"},
	} {
		fs := NewFlagSet("t")
		fs.Int(&n, "count", "", 0, "", "n")
		fs.Bool(&b, "flag", "", false, "")
		assert.Error(t, fs.Parse(args), "%v", args)
	}
}

func TestFlagGroup(t *testing.T) {
	on, off := true, false
	entries := []FlagGroupEntry{{Name: "imports", Prefix: "F", Usage: "imports", Enabled: &on, Disabled: &off}}

	fs := NewFlagSet("t")
	fs.AddFlagGroup("Features", "Language features", "feature", "Available Features:", entries)

	require.NoError(t, fs.Parse([]string{"-Fno-imports"}))
	assert.True(t, *entries[0].Disabled)
	assert.NotNil(t, fs.Lookup("Fimports"))
}

func TestRun(t *testing.T) {
	var stdout, stderr bytes.Buffer
	var got []string

	app := NewApp("yolc")
	app.Synopsis = "[options] <input.y>"
	app.Description = "Lowers programs."
	app.Stdout, app.Stderr = &stdout, &stderr
	app.Action = func(args []string) error {
		got = args
		return nil
	}

	require.NoError(t, app.Run([]string{"a.y"}))
	assert.Equal(t, []string{"a.y"}, got)

	app = NewApp("yolc")
	app.Synopsis = "[options] <input.y>"
	app.Stdout, app.Stderr = &stdout, &stderr
	require.NoError(t, app.Run([]string{"--help"}))
	assert.Contains(t, stdout.String(), "yolc <options> <input.y>")

	app = NewApp("yolc")
	app.Stdout, app.Stderr = &stdout, &stderr
	assert.Error(t, app.Run([]string{"--bogus"}))
	assert.Contains(t, stderr.String(), "unknown flag: --bogus")
	assert.Contains(t, stderr.String(), "Usage: yolc")
}
