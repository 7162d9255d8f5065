package errors

// Error codes for the befc toolchain
// These codes are used in error messages and documentation
// to provide consistent error identification across the toolchain.
//
// Error code ranges:
// B0001-B0099: Code generation errors
// B0100-B0199: IR loader errors
// B0900-B0999: Reserved for tooling errors

const (
	// Code generation errors (B0001-B0099)

	// B0001: Instruction with no lowering rule
	ErrorUnsupportedOpcode = "B0001"

	// B0002: Call through a function pointer
	ErrorIndirectCall = "B0002"

	// B0003: Call to an external function that is not a runtime intrinsic
	ErrorUnknownExternal = "B0003"

	// B0004: calloc with an element size other than one word
	ErrorCallocElementSize = "B0004"

	// B0005: Comparison predicate outside the supported set
	ErrorUnsupportedPredicate = "B0005"

	// B0006: Phi without an incoming value for a predecessor edge
	ErrorUnmatchedPhiEdge = "B0006"

	// B0007: Type whose word size cannot be computed
	ErrorUnsizedType = "B0007"

	// B0008: Operand kind that cannot be pushed
	ErrorUnsupportedOperand = "B0008"

	// B0009: puts argument that is not a constant string global
	ErrorPutsArgument = "B0009"

	// B0010: Bitwise operation on values wider than one bit
	ErrorBitWidth = "B0010"

	// B0011: Entry function not defined
	ErrorMissingEntry = "B0011"

	// B0012: Structurally malformed module
	ErrorMalformedModule = "B0012"

	// IR loader errors (B0100-B0199)

	// B0100: Text that does not match the grammar
	ErrorSyntax = "B0100"

	// B0101: Reference to an undefined local value
	ErrorUndefinedValue = "B0101"

	// B0102: Branch to an undefined label
	ErrorUndefinedLabel = "B0102"

	// B0103: Reference to an undefined global or function
	ErrorUndefinedGlobal = "B0103"

	// B0104: Reference to an undefined named type
	ErrorUndefinedType = "B0104"

	// B0105: Name defined twice in the same scope
	ErrorDuplicateDefinition = "B0105"

	// B0106: Operand whose type does not fit the instruction
	ErrorTypeMismatch = "B0106"

	// B0107: Constant expression the loader cannot fold
	ErrorUnsupportedConstant = "B0107"
)

// GetErrorDescription returns a human-readable description of the error code
func GetErrorDescription(code string) string {
	switch code {
	case ErrorUnsupportedOpcode:
		return "Instruction has no lowering rule"
	case ErrorIndirectCall:
		return "Called value is not a statically known function"
	case ErrorUnknownExternal:
		return "External function is not a supported runtime intrinsic"
	case ErrorCallocElementSize:
		return "calloc element size must be 4"
	case ErrorUnsupportedPredicate:
		return "Comparison predicate is not supported"
	case ErrorUnmatchedPhiEdge:
		return "Phi has no incoming value for a predecessor edge"
	case ErrorUnsizedType:
		return "Type has no word size"
	case ErrorUnsupportedOperand:
		return "Operand cannot be materialised"
	case ErrorPutsArgument:
		return "puts requires a constant string global"
	case ErrorBitWidth:
		return "Bitwise operation requires 1-bit operands"
	case ErrorMissingEntry:
		return "Entry function is not defined"
	case ErrorMalformedModule:
		return "Module is structurally malformed"
	case ErrorSyntax:
		return "Syntax error"
	case ErrorUndefinedValue:
		return "Local value is used but not defined"
	case ErrorUndefinedLabel:
		return "Branch target label is not defined"
	case ErrorUndefinedGlobal:
		return "Global or function is used but not defined"
	case ErrorUndefinedType:
		return "Named type is used but not defined"
	case ErrorDuplicateDefinition:
		return "Name is defined more than once"
	case ErrorTypeMismatch:
		return "Operand type does not fit the instruction"
	case ErrorUnsupportedConstant:
		return "Constant expression is not supported"
	default:
		return "Unknown error code"
	}
}

// GetErrorCategory returns the category of the error based on its code
func GetErrorCategory(code string) string {
	switch {
	case code >= "B0001" && code < "B0100":
		return "Code Generation"
	case code >= "B0100" && code < "B0200":
		return "Loader"
	case code >= "B0900" && code < "B1000":
		return "Tooling"
	default:
		return "Unknown"
	}
}
