// SPDX-License-Identifier: Apache-2.0
package main

import (
	"context"
	stderrors "errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"

	"befc/grammar"
	"befc/internal/befunge"
	"befc/internal/codegen"
	"befc/internal/errors"
)

var log = commonlog.GetLogger("befc.run")

func main() {
	var (
		steps   = flag.Int64("steps", befunge.DefaultStepLimit, "stop after `n` executed cells")
		input   = flag.String("input", "", "read program input from `file` instead of stdin")
		entry   = flag.String("entry", codegen.DefaultEntry, "entry `function` when running IR")
		verbose = flag.Int("v", 0, "log verbosity")
	)
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: befc-run [flags] <program.bf | file.ll>\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(1)
	}
	commonlog.Configure(*verbose, nil)

	lines, err := load(flag.Arg(0), *entry)
	if err != nil {
		os.Exit(1)
	}

	var in io.Reader = os.Stdin
	if *input != "" {
		f, err := os.Open(*input)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to open input: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		in = f
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	it := befunge.New(lines,
		befunge.WithInput(in),
		befunge.WithOutput(os.Stdout),
		befunge.WithStepLimit(*steps))
	err = it.Run(ctx)
	log.Infof("executed %d steps", it.Steps())
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", color.RedString("error"), err)
		stop()
		os.Exit(1)
	}
}

// load returns the rows of a Befunge program, compiling it first when path
// is textual IR. Failures are reported before returning.
func load(path, entry string) ([]string, error) {
	source, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to read file: %v\n", err)
		return nil, err
	}

	if filepath.Ext(path) != ".ll" {
		return strings.Split(strings.TrimRight(string(source), "\n"), "\n"), nil
	}

	unit, err := grammar.Load(path, string(source))
	if err == nil {
		var lines []string
		if lines, err = codegen.Compile(unit.Module, codegen.Options{Entry: entry}); err == nil {
			return lines, nil
		}
	}

	var ce *errors.CompilerError
	if stderrors.As(err, &ce) {
		if unit != nil {
			unit.Locate(ce)
		}
		fmt.Fprint(os.Stderr, errors.NewErrorReporter(path, string(source)).FormatError(ce))
	} else {
		fmt.Fprintf(os.Stderr, "%s: %v\n", color.RedString("error"), err)
	}
	return nil, err
}
