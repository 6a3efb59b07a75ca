package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/xplshn/yolc/pkg/cli"
	"github.com/xplshn/yolc/pkg/codegen"
	"github.com/xplshn/yolc/pkg/compiler"
	"github.com/xplshn/yolc/pkg/config"
	"github.com/xplshn/yolc/pkg/util"
	"tlog.app/go/errors"
	"tlog.app/go/tlog"
)

func main() {
	app := cli.NewApp("yolc")
	app.Synopsis = "[options] <input.y>"
	app.Description = "Lowers a structured source program into YOLOL-shaped lines, ready for layout on a chip."
	app.Authors = []string{"xplshn"}
	app.Repository = "<https://github.com/xplshn/yolc>"
	app.Since = 2025

	var (
		outFile     string
		lineLength  int
		lineCount   int
		configs     []string
		verbose     []string
		fingerprint bool
		dumpBlocks  bool
	)

	fs := app.FlagSet
	fs.String(&outFile, "output", "o", "-", "Write the lowered program to <file>.", "file")
	fs.Int(&lineLength, "line-length", "", config.DefaultLineLength, "Physical line length of the target chip.", "n")
	fs.Int(&lineCount, "line-count", "", config.DefaultLineCount, "Physical line count of the target chip.", "n")
	fs.List(&configs, "config", "c", []string{}, "Pass a setting through to the layout stage.", "key=value")
	fs.List(&verbose, "verbose", "v", []string{}, "Enable trace output for a topic (inline, flatten, emit, load).", "topic")
	fs.Bool(&fingerprint, "fingerprint", "", false, "Append the fingerprint of the lowered program.")
	fs.Bool(&dumpBlocks, "dump-blocks", "", false, "Print the block layout instead of the full program.")

	cfg := config.NewConfig()
	featureFlags := cfg.SetupFlagGroups(fs)

	fail := func(err error) error {
		fmt.Fprintf(os.Stderr, "yolc: %v\n", err)
		return err
	}

	app.Action = func(inputFiles []string) error {
		if len(inputFiles) != 1 {
			return fail(errors.New("expected exactly one input file, got %d", len(inputFiles)))
		}

		cfg.ApplyFlagGroups(featureFlags)
		if err := cfg.SetLimits(lineLength, lineCount); err != nil {
			return fail(err)
		}
		cfg.Configs = append(cfg.Configs, configs...)

		if len(verbose) != 0 {
			tlog.SetVerbosity(strings.Join(verbose, ","))
		}

		ctx := context.Background()
		ctx = tlog.ContextWithSpan(ctx, tlog.Root())

		res, sources, err := compiler.CompileFile(ctx, inputFiles[0], cfg)
		if err != nil {
			util.NewReporter(os.Stderr, sources).Report(err)
			return errors.Wrap(err, "compile %v", inputFiles[0])
		}

		backend := codegen.NewDumpBackend(fingerprint)
		if dumpBlocks {
			backend = codegen.NewBlocksBackend()
		}

		buf, err := backend.Generate(res.Program, cfg)
		if err != nil {
			return fail(errors.Wrap(err, "render"))
		}

		if outFile == "-" {
			_, err = os.Stdout.Write(buf.Bytes())
			return err
		}

		if err := os.WriteFile(outFile, buf.Bytes(), 0o644); err != nil {
			return fail(errors.Wrap(err, "write output"))
		}

		tlog.Printw("written", "file", outFile, "lines", len(res.Program.Lines), "fingerprint", fmt.Sprintf("%016x", res.Program.Fingerprint()))

		return nil
	}

	if err := app.Run(os.Args[1:]); err != nil {
		os.Exit(1)
	}
}
