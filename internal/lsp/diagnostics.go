package lsp

import (
	stderrors "errors"
	"strings"

	protocol "github.com/tliron/glsp/protocol_3_16"

	"befc/grammar"
	"befc/internal/codegen"
	"befc/internal/errors"
)

const (
	sourceParser  = "befc-parser"
	sourceCodegen = "befc-codegen"
)

// analyze loads text and compiles the result, turning the first failure into
// a diagnostic. The unit is returned whenever loading succeeded.
func analyze(path, text string) (*grammar.Unit, []protocol.Diagnostic) {
	unit, err := grammar.Load(path, text)
	if err != nil {
		return nil, []protocol.Diagnostic{ConvertError(err, sourceParser)}
	}

	if _, err := codegen.Compile(unit.Module, codegen.Options{}); err != nil {
		var ce *errors.CompilerError
		if stderrors.As(err, &ce) {
			unit.Locate(ce)
		}
		return unit, []protocol.Diagnostic{ConvertError(err, sourceCodegen)}
	}
	return unit, []protocol.Diagnostic{}
}

// ConvertError transforms a load or compile error into an LSP diagnostic.
// Errors without a position are pinned to the start of the file.
func ConvertError(err error, source string) protocol.Diagnostic {
	diagnostic := protocol.Diagnostic{
		Severity: ptrSeverity(protocol.DiagnosticSeverityError),
		Source:   ptrString(source),
		Message:  err.Error(),
	}

	var ce *errors.CompilerError
	if !stderrors.As(err, &ce) {
		return diagnostic
	}

	diagnostic.Code = &protocol.IntegerOrString{Value: ce.Code}
	diagnostic.Message = diagnosticMessage(ce)
	if ce.Position.IsValid() {
		line := uint32(ce.Position.Line - 1)     // Convert to 0-based indexing
		start := uint32(ce.Position.Column - 1) // Convert to 0-based indexing
		diagnostic.Range = protocol.Range{
			Start: protocol.Position{Line: line, Character: start},
			End:   protocol.Position{Line: line, Character: start + uint32(max(1, ce.Length))},
		}
	}
	return diagnostic
}

func diagnosticMessage(ce *errors.CompilerError) string {
	var b strings.Builder
	b.WriteString(ce.Message)
	if ce.Function != "" && !ce.Position.IsValid() {
		b.WriteString(" (in @" + ce.Function + ")")
	}
	for _, s := range ce.Suggestions {
		b.WriteString("\n" + s.Message)
	}
	for _, note := range ce.Notes {
		b.WriteString("\nnote: " + note)
	}
	if ce.HelpText != "" {
		b.WriteString("\nhelp: " + ce.HelpText)
	}
	return b.String()
}

func ptrSeverity(s protocol.DiagnosticSeverity) *protocol.DiagnosticSeverity {
	return &s
}

func ptrString(s string) *string {
	return &s
}
