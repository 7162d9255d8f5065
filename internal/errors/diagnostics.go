package errors

import (
	"fmt"
	"strings"

	"befc/internal/ir"
)

// ErrorBuilder provides a fluent interface for creating errors with suggestions
type ErrorBuilder struct {
	err CompilerError
}

// NewError creates a new error builder
func NewError(code, message string) *ErrorBuilder {
	return &ErrorBuilder{
		err: CompilerError{
			Level:   Error,
			Code:    code,
			Message: message,
			Length:  1,
		},
	}
}

// At attaches a source position
func (b *ErrorBuilder) At(pos Position) *ErrorBuilder {
	b.err.Position = pos
	return b
}

// WithLength sets the length of the error span
func (b *ErrorBuilder) WithLength(length int) *ErrorBuilder {
	b.err.Length = length
	return b
}

// InFunction names the enclosing IR function
func (b *ErrorBuilder) InFunction(name string) *ErrorBuilder {
	b.err.Function = name
	return b
}

// ForInstruction attaches the offending instruction and its function
func (b *ErrorBuilder) ForInstruction(inst ir.Instruction) *ErrorBuilder {
	b.err.Inst = inst
	b.err.Instruction = ir.FormatInstruction(inst)
	if blk := inst.Parent(); blk != nil && blk.Parent != nil {
		b.err.Function = blk.Parent.Name
	}
	return b
}

// WithSuggestion adds a suggestion to the error
func (b *ErrorBuilder) WithSuggestion(message string) *ErrorBuilder {
	b.err.Suggestions = append(b.err.Suggestions, Suggestion{Message: message})
	return b
}

// WithNote adds a note to the error
func (b *ErrorBuilder) WithNote(note string) *ErrorBuilder {
	b.err.Notes = append(b.err.Notes, note)
	return b
}

// WithHelp adds help text to the error
func (b *ErrorBuilder) WithHelp(help string) *ErrorBuilder {
	b.err.HelpText = help
	return b
}

// WithCause records the underlying error
func (b *ErrorBuilder) WithCause(cause error) *ErrorBuilder {
	b.err.Cause = cause
	return b
}

// Build returns the completed compiler error
func (b *ErrorBuilder) Build() *CompilerError {
	err := b.err
	return &err
}

// Code generation errors

func UnsupportedOpcode(inst ir.Instruction) *CompilerError {
	return NewError(ErrorUnsupportedOpcode, fmt.Sprintf("unsupported instruction '%s'", inst.Opcode())).
		ForInstruction(inst).
		Build()
}

func IndirectCall(inst ir.Instruction) *CompilerError {
	return NewError(ErrorIndirectCall, "call target is not a statically known function").
		ForInstruction(inst).
		WithHelp("only direct calls to defined functions or runtime intrinsics can be lowered").
		Build()
}

// UnknownExternal reports a call to a declared function that has no body and
// is not an intrinsic.
func UnknownExternal(name string, inst ir.Instruction, intrinsics []string) *CompilerError {
	builder := NewError(ErrorUnknownExternal, fmt.Sprintf("call to undefined external function '%s'", name)).
		ForInstruction(inst)
	if similar := findSimilarNames(name, intrinsics); len(similar) > 0 {
		builder = builder.WithSuggestion(fmt.Sprintf("did you mean '%s'?", similar[0]))
	}
	return builder.
		WithNote("supported runtime functions: " + strings.Join(intrinsics, ", ")).
		Build()
}

func CallocElementSize(inst ir.Instruction) *CompilerError {
	return NewError(ErrorCallocElementSize, "calloc element size must be the constant 4").
		ForInstruction(inst).
		WithNote("the heap is word addressed; each element occupies one cell").
		Build()
}

func UnsupportedPredicate(pred ir.Predicate, inst ir.Instruction) *CompilerError {
	return NewError(ErrorUnsupportedPredicate, fmt.Sprintf("unsupported comparison predicate '%s'", pred)).
		ForInstruction(inst).
		Build()
}

// UnmatchedPhiEdge reports a phi in succ with no incoming value for pred.
func UnmatchedPhiEdge(phi *ir.Phi, pred *ir.Block) *CompilerError {
	return NewError(ErrorUnmatchedPhiEdge, fmt.Sprintf("phi has no incoming value for predecessor '%s'", pred.Name)).
		ForInstruction(phi).
		WithHelp("every edge into a block must appear in each of its phis").
		Build()
}

func UnsizedType(t ir.Type, cause error) *CompilerError {
	return NewError(ErrorUnsizedType, fmt.Sprintf("cannot compute the size of type %s", t)).
		WithCause(cause).
		Build()
}

func UnsupportedOperand(op ir.Operand, inst ir.Instruction) *CompilerError {
	return NewError(ErrorUnsupportedOperand, fmt.Sprintf("operand of kind %T cannot be materialised", op)).
		ForInstruction(inst).
		Build()
}

func PutsArgument(inst ir.Instruction) *CompilerError {
	return NewError(ErrorPutsArgument, "puts argument must be a constant string global").
		ForInstruction(inst).
		WithSuggestion("pass a private constant c\"...\" global directly").
		Build()
}

func BitWidth(inst ir.Instruction) *CompilerError {
	return NewError(ErrorBitWidth, fmt.Sprintf("'%s' is only supported on i1 operands", inst.Opcode())).
		ForInstruction(inst).
		Build()
}

func MissingEntry(name string) *CompilerError {
	return NewError(ErrorMissingEntry, fmt.Sprintf("entry function '%s' is not defined", name)).
		WithHelp("define the function or choose another entry point").
		Build()
}

func MalformedModule(cause error) *CompilerError {
	return NewError(ErrorMalformedModule, cause.Error()).
		WithCause(cause).
		Build()
}

// Loader errors

func Syntax(message string, pos Position) *CompilerError {
	return NewError(ErrorSyntax, message).At(pos).Build()
}

// UndefinedValue reports an unknown %name inside a function body.
func UndefinedValue(name string, pos Position, known []string) *CompilerError {
	builder := NewError(ErrorUndefinedValue, fmt.Sprintf("undefined value '%%%s'", name)).
		At(pos).
		WithLength(len(name) + 1)
	return withSimilar(builder, name, known).Build()
}

func UndefinedLabel(name string, pos Position, known []string) *CompilerError {
	builder := NewError(ErrorUndefinedLabel, fmt.Sprintf("undefined label '%%%s'", name)).
		At(pos).
		WithLength(len(name) + 1)
	return withSimilar(builder, name, known).Build()
}

func UndefinedGlobal(name string, pos Position, known []string) *CompilerError {
	builder := NewError(ErrorUndefinedGlobal, fmt.Sprintf("undefined global '@%s'", name)).
		At(pos).
		WithLength(len(name) + 1)
	return withSimilar(builder, name, known).Build()
}

func UndefinedType(name string, pos Position) *CompilerError {
	return NewError(ErrorUndefinedType, fmt.Sprintf("undefined type '%%%s'", name)).
		At(pos).
		WithLength(len(name) + 1).
		WithSuggestion(fmt.Sprintf("declare it with '%%%s = type { ... }'", name)).
		Build()
}

func DuplicateDefinition(name string, pos Position) *CompilerError {
	return NewError(ErrorDuplicateDefinition, fmt.Sprintf("'%s' is defined more than once", name)).
		At(pos).
		WithNote("names must be unique within their scope").
		Build()
}

func TypeMismatch(expected, actual string, pos Position) *CompilerError {
	return NewError(ErrorTypeMismatch, fmt.Sprintf("type mismatch: expected %s, found %s", expected, actual)).
		At(pos).
		Build()
}

func UnsupportedConstant(message string, pos Position) *CompilerError {
	return NewError(ErrorUnsupportedConstant, message).
		At(pos).
		WithHelp("only all-zero getelementptr and bitcast constant expressions are folded").
		Build()
}

func withSimilar(builder *ErrorBuilder, name string, known []string) *ErrorBuilder {
	similar := findSimilarNames(name, known)
	switch len(similar) {
	case 0:
	case 1:
		builder = builder.WithSuggestion(fmt.Sprintf("did you mean '%s'?", similar[0]))
	default:
		builder = builder.WithSuggestion(fmt.Sprintf("did you mean one of: '%s'?", strings.Join(similar, "', '")))
	}
	return builder
}

func findSimilarNames(target string, candidates []string) []string {
	var near []string
	for _, c := range candidates {
		if len(c) > 2 && levenshteinDistance(target, c) <= 2 {
			near = append(near, c)
		}
	}
	return near
}

// levenshteinDistance is the edit distance between a and b, computed one
// row at a time.
func levenshteinDistance(a, b string) int {
	prev := make([]int, len(b)+1)
	cur := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(a); i++ {
		cur[0] = i
		for j := 1; j <= len(b); j++ {
			sub := prev[j-1]
			if a[i-1] != b[j-1] {
				sub++
			}
			cur[j] = min(prev[j]+1, cur[j-1]+1, sub)
		}
		prev, cur = cur, prev
	}
	return prev[len(b)]
}
