package errors

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/fatih/color"

	"befc/internal/ir"
)

// ErrorLevel represents the severity of an error
type ErrorLevel string

const (
	Error   ErrorLevel = "error"
	Warning ErrorLevel = "warning"
	Note    ErrorLevel = "note"
	Help    ErrorLevel = "help"
)

// Position is a 1-based location in an IR source file. The zero value means
// the error has no source location.
type Position struct {
	Line   int
	Column int
}

// IsValid reports whether the position points into a file.
func (p Position) IsValid() bool { return p.Line > 0 }

// CompilerError represents a structured error with suggestions and context
type CompilerError struct {
	Level       ErrorLevel
	Code        string         // Error code like B0001
	Message     string         // Primary error message
	Position    Position       // Location in source, if known
	Length      int            // Length of the problematic region
	Function    string         // Enclosing IR function, if any
	Instruction string         // Text of the offending instruction, if any
	Inst        ir.Instruction // Offending instruction, for position lookup
	Suggestions []Suggestion   // Suggested fixes
	Notes       []string       // Additional context notes
	HelpText    string         // Help text for the error
	Cause       error          // Underlying error, if any
}

// Error renders the error on one line.
func (e *CompilerError) Error() string {
	var b strings.Builder
	if e.Position.IsValid() {
		fmt.Fprintf(&b, "%d:%d: ", e.Position.Line, e.Position.Column)
	}
	if e.Code != "" {
		fmt.Fprintf(&b, "%s: ", e.Code)
	}
	b.WriteString(e.Message)
	if e.Function != "" {
		fmt.Fprintf(&b, " (in @%s", e.Function)
		if e.Instruction != "" {
			fmt.Fprintf(&b, ": %s", e.Instruction)
		}
		b.WriteString(")")
	}
	return b.String()
}

func (e *CompilerError) Unwrap() error { return e.Cause }

// Suggestion represents a suggested fix
type Suggestion struct {
	Message     string // Description of the suggestion
	Replacement string // Suggested replacement text (optional)
}

// ErrorReporter renders CompilerErrors against the IR text they came from.
type ErrorReporter struct {
	filename string
	lines    []string
}

// NewErrorReporter creates a reporter for source, which is the text of filename.
func NewErrorReporter(filename, source string) *ErrorReporter {
	return &ErrorReporter{filename: filename, lines: strings.Split(source, "\n")}
}

var (
	bold  = color.New(color.Bold).SprintFunc()
	faint = color.New(color.Faint).SprintFunc()
	blue  = color.New(color.FgBlue).SprintFunc()
	cyan  = color.New(color.FgCyan).SprintFunc()
	green = color.New(color.FgGreen).SprintFunc()
)

// gutter writes the left-hand column of a rendered error: line numbers for
// source rows and a bar for everything else.
type gutter struct {
	out   *strings.Builder
	width int
}

func (g gutter) bar(format string, args ...any) {
	g.out.WriteString(strings.Repeat(" ", g.width) + " " + faint("│"))
	if format != "" {
		g.out.WriteString(" " + fmt.Sprintf(format, args...))
	}
	g.out.WriteByte('\n')
}

func (g gutter) row(n int, text string, number func(...any) string) {
	fmt.Fprintf(g.out, "%s %s %s\n", number(fmt.Sprintf("%*d", g.width, n)), faint("│"), text)
}

// FormatError renders err in the rustc layout: a header, the location, the
// source line with its neighbours and a marker, then notes and suggestions.
// Errors raised during lowering have no position; the offending instruction
// is shown instead.
func (er *ErrorReporter) FormatError(err *CompilerError) string {
	var out strings.Builder
	level := er.getLevelColor(err.Level)

	code := ""
	if err.Code != "" {
		code = "[" + err.Code + "]"
	}
	fmt.Fprintf(&out, "%s%s: %s\n", level(string(err.Level)), code, err.Message)

	g := gutter{out: &out, width: max(3, len(strconv.Itoa(err.Position.Line)))}
	location := er.filename
	if err.Position.IsValid() {
		location = fmt.Sprintf("%s:%d:%d", er.filename, err.Position.Line, err.Position.Column)
	}
	fmt.Fprintf(&out, "%s %s %s\n", strings.Repeat(" ", g.width), faint("-->"), location)
	g.bar("")

	switch line := err.Position.Line; {
	case err.Position.IsValid() && line <= len(er.lines):
		if line > 1 {
			g.row(line-1, er.lines[line-2], faint)
		}
		g.row(line, er.lines[line-1], bold)
		g.bar("%s", er.createMarker(err.Position.Column, err.Length, err.Level))
		if line < len(er.lines) {
			g.row(line+1, er.lines[line], faint)
		}
	case err.Instruction != "":
		g.bar("%s", bold(err.Instruction))
	}

	if err.Function != "" {
		g.bar("%s in function @%s", blue("note:"), err.Function)
	}

	if len(err.Suggestions) > 0 {
		g.bar("")
	}
	for n, s := range err.Suggestions {
		lead := cyan("    ")
		if n == 0 {
			lead = cyan("help") + " " + cyan("try") + ":"
		}
		fmt.Fprintf(&out, "%s %s %s\n", strings.Repeat(" ", g.width), lead, s.Message)
		if s.Replacement != "" {
			g.bar("")
			for _, r := range strings.Split(s.Replacement, "\n") {
				fmt.Fprintf(&out, "%s %s %s\n", strings.Repeat(" ", g.width), cyan("│"), cyan(r))
			}
		}
	}

	for _, note := range err.Notes {
		g.bar("%s %s", blue("note:"), note)
	}
	if err.HelpText != "" {
		g.bar("%s %s", green("help:"), err.HelpText)
	}

	out.WriteByte('\n')
	return out.String()
}

// getLevelColor returns the color for a level's header.
func (er *ErrorReporter) getLevelColor(level ErrorLevel) func(...any) string {
	switch level {
	case Warning:
		return color.New(color.FgYellow, color.Bold).SprintFunc()
	case Note:
		return color.New(color.FgBlue, color.Bold).SprintFunc()
	case Help:
		return color.New(color.FgGreen, color.Bold).SprintFunc()
	default:
		return color.New(color.FgRed, color.Bold).SprintFunc()
	}
}

// createMarker underlines length columns starting at column. Warnings keep
// their own color; everything else is marked in red.
func (er *ErrorReporter) createMarker(column, length int, level ErrorLevel) string {
	paint := color.New(color.FgRed, color.Bold).SprintFunc()
	if level == Warning {
		paint = er.getLevelColor(level)
	}
	return strings.Repeat(" ", max(0, column-1)) + paint(strings.Repeat("^", max(1, length)))
}
