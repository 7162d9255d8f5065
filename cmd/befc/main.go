// SPDX-License-Identifier: Apache-2.0
package main

import (
	stderrors "errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"

	"befc/grammar"
	"befc/internal/codegen"
	"befc/internal/errors"
	"befc/internal/ir"
)

// verbosity counts repeated -v flags.
type verbosity int

func (v *verbosity) String() string   { return strconv.Itoa(int(*v)) }
func (v *verbosity) IsBoolFlag() bool { return true }

func (v *verbosity) Set(s string) error {
	on, err := strconv.ParseBool(s)
	if err != nil {
		return err
	}
	if on {
		*v++
	}
	return nil
}

func main() {
	var (
		debug   = flag.Bool("g", false, "interleave block and instruction trace rows with the code")
		output  = flag.String("o", "", "write the program to `file` instead of stdout")
		emitIR  = flag.Bool("emit-ir", false, "print the loaded IR instead of compiling it")
		entry   = flag.String("entry", codegen.DefaultEntry, "entry `function`")
		verbose verbosity
	)
	flag.Var(&verbose, "v", "increase log verbosity (repeatable)")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: befc [flags] <file.ll>\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(1)
	}
	commonlog.Configure(int(verbose), nil)

	startTime := time.Now()
	path := flag.Arg(0)

	source, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to read file: %v\n", err)
		os.Exit(1)
	}

	unit, err := grammar.Load(path, string(source))
	if err != nil {
		fail(path, string(source), nil, err, startTime)
	}

	var text string
	if *emitIR {
		text = ir.Print(unit.Module)
	} else {
		lines, err := codegen.Compile(unit.Module, codegen.Options{Debug: *debug, Entry: *entry})
		if err != nil {
			fail(path, string(source), unit, err, startTime)
		}
		text = strings.Join(lines, "\n") + "\n"
	}

	if *output == "" {
		fmt.Print(text)
	} else if err := os.WriteFile(*output, []byte(text), 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "failed to write output: %v\n", err)
		os.Exit(1)
	}

	status := color.New(color.FgGreen)
	status.Fprintf(os.Stderr, "Successfully compiled %s in %s\n", path, formatDuration(time.Since(startTime)))
}

// fail prints err with source context when it carries a position and exits.
func fail(path, source string, unit *grammar.Unit, err error, startTime time.Time) {
	var ce *errors.CompilerError
	if stderrors.As(err, &ce) {
		if unit != nil {
			unit.Locate(ce)
		}
		reporter := errors.NewErrorReporter(path, source)
		fmt.Fprint(os.Stderr, reporter.FormatError(ce))
	} else {
		fmt.Fprintf(os.Stderr, "%s: %v\n", color.RedString("error"), err)
	}

	status := color.New(color.FgRed)
	status.Fprintf(os.Stderr, "Compilation failed after %s\n", formatDuration(time.Since(startTime)))
	os.Exit(1)
}

func formatDuration(d time.Duration) string {
	switch {
	case d >= time.Minute:
		return fmt.Sprintf("%.2fmin", d.Minutes())
	case d >= time.Second:
		return fmt.Sprintf("%.2fs", d.Seconds())
	case d >= time.Millisecond:
		return fmt.Sprintf("%.1fms", float64(d.Nanoseconds())/1000000.0)
	case d >= time.Microsecond:
		return fmt.Sprintf("%.1fμs", float64(d.Nanoseconds())/1000.0)
	default:
		return fmt.Sprintf("%dns", d.Nanoseconds())
	}
}
