package grammar

import (
	"fmt"
	"os"

	"github.com/alecthomas/participle/v2"

	"befc/internal/errors"
)

var irParser = participle.MustBuild[File](
	participle.Lexer(IRLexer),
	participle.Elide("Whitespace", "Comment", "Metadata"),
	participle.UseLookahead(4),
)

// Parse parses IR text. Syntax errors are returned as *errors.CompilerError
// with the offending position.
func Parse(filename, source string) (*File, error) {
	file, err := irParser.ParseString(filename, source)
	if err != nil {
		return nil, syntaxError(err)
	}
	return file, nil
}

// ParseFile reads and parses path.
func ParseFile(path string) (*File, error) {
	source, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return Parse(path, string(source))
}

func syntaxError(err error) error {
	pe, ok := err.(participle.Error)
	if !ok {
		return errors.NewError(errors.ErrorSyntax, err.Error()).WithCause(err).Build()
	}
	pos := pe.Position()
	return errors.NewError(errors.ErrorSyntax, pe.Message()).
		At(errors.Position{Line: pos.Line, Column: pos.Column}).
		WithCause(err).
		Build()
}
