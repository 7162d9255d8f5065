package grammar_test

import (
	"bytes"
	"context"
	stderrors "errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"befc/grammar"
	"befc/internal/befunge"
	"befc/internal/codegen"
	"befc/internal/errors"
	"befc/internal/ir"
)

func TestParseHello(t *testing.T) {
	file, err := grammar.ParseFile(`testdata/hello.ll`)
	require.NoError(t, err)

	var defines, declares, globals, attrs int
	for _, e := range file.Entries {
		switch {
		case e.Define != nil:
			defines++
		case e.Declare != nil:
			declares++
		case e.Global != nil:
			globals++
		case e.Attrs != nil:
			attrs++
		}
	}
	assert.Equal(t, 1, defines)
	assert.Equal(t, 1, declares)
	assert.Equal(t, 1, globals)
	assert.Equal(t, 2, attrs)

	main := file.Entries[4].Define
	require.NotNil(t, main)
	assert.Equal(t, "@main", main.Name)
	require.Len(t, main.Blocks, 1)
	assert.Empty(t, main.Blocks[0].Label)
	assert.Len(t, main.Blocks[0].Instructions, 4)

	call := main.Blocks[0].Instructions[2].Call
	require.NotNil(t, call)
	require.Len(t, call.Args, 1)
	assert.NotNil(t, call.Args[0].Value.GEP)
}

func TestLoadHello(t *testing.T) {
	unit, err := grammar.LoadFile(`testdata/hello.ll`)
	require.NoError(t, err)

	m := unit.Module
	assert.Equal(t, "hello.c", m.Name)

	str := m.Global(".str")
	require.NotNil(t, str)
	assert.True(t, str.Constant)
	init, ok := str.Init.(*ir.StringInit)
	require.True(t, ok)
	assert.Equal(t, "Hello", init.Text())
	assert.Equal(t, []byte("Hello\x00"), init.Data)

	puts := m.Function("puts")
	require.NotNil(t, puts)
	assert.True(t, puts.IsDeclaration())

	main := m.Function("main")
	require.NotNil(t, main)
	require.Len(t, main.Blocks, 1)
	assert.Equal(t, "0", main.Blocks[0].Name)

	call, ok := main.Blocks[0].Instructions[2].(*ir.Call)
	require.True(t, ok)
	assert.Same(t, puts, call.CalledFunction())
	assert.Same(t, str, call.Args[0], "constant getelementptr folds to its base")

	pos, ok := unit.Position(call)
	require.True(t, ok)
	assert.Equal(t, 12, pos.Line)
}

func TestLoadNumbersImplicitBlocks(t *testing.T) {
	unit, err := grammar.LoadFile(`testdata/classify.ll`)
	require.NoError(t, err)

	classify := unit.Module.Function("classify")
	require.NotNil(t, classify)
	names := make([]string, len(classify.Blocks))
	for i, b := range classify.Blocks {
		names[i] = b.Name
	}
	assert.Equal(t, []string{"1", "2", "3", "4"}, names)

	sw, ok := classify.Blocks[0].Terminator().(*ir.Switch)
	require.True(t, ok)
	assert.Same(t, classify.Blocks[3], sw.Default)
	require.Len(t, sw.Cases, 2)
	assert.Equal(t, int64(2), sw.Cases[1].Value.Value)
	assert.Same(t, classify.Blocks[2], sw.Cases[1].Target)
}

func TestLoadSplitsAfterTerminator(t *testing.T) {
	src := `
define i32 @f(i32 %0) {
  %2 = add i32 %0, 1
  br label %3
  %4 = add i32 %2, 1
  ret i32 %4
}
`
	unit, err := grammar.Load("split.ll", src)
	require.NoError(t, err)

	f := unit.Module.Function("f")
	require.Len(t, f.Blocks, 2)
	assert.Equal(t, "1", f.Blocks[0].Name)
	assert.Equal(t, "3", f.Blocks[1].Name)
	assert.NoError(t, ir.Verify(unit.Module))
}

func TestLoadForwardReferences(t *testing.T) {
	src := `
define i32 @main() {
entry:
  %v = call i32 @later(i32 %arg)
  ret i32 %v

unreachable:
  %arg = add i32 1, 2
  br label %entry
}

define i32 @later(i32 %x) {
  ret i32 %x
}
`
	unit, err := grammar.Load("forward.ll", src)
	require.NoError(t, err)

	main := unit.Module.Function("main")
	call := main.Blocks[0].Instructions[0].(*ir.Call)
	assert.Same(t, unit.Module.Function("later"), call.CalledFunction())
	assert.Same(t, main.Blocks[1].Instructions[0], call.Args[0])
}

func TestLoadOldStyleMemoryForms(t *testing.T) {
	src := `
@g = global [4 x i32] zeroinitializer

define i32 @main() {
  %p = getelementptr [4 x i32]* @g, i32 0, i32 2
  store i32 7, i32* %p
  %v = load i32* %p
  ret i32 %v
}
`
	unit, err := grammar.Load("old.ll", src)
	require.NoError(t, err)

	body := unit.Module.Function("main").Blocks[0].Instructions
	gep := body[0].(*ir.GetElementPtr)
	assert.Equal(t, "i32*", gep.Type().String())
	load := body[2].(*ir.Load)
	assert.Same(t, gep, load.Ptr)
}

func TestPrintedModuleReloads(t *testing.T) {
	for _, name := range []string{"sum.ll", "classify.ll", "echo.ll", "points.ll"} {
		t.Run(name, func(t *testing.T) {
			unit, err := grammar.LoadFile("testdata/" + name)
			require.NoError(t, err)

			text := ir.Print(unit.Module)
			again, err := grammar.Load(unit.Filename, text)
			require.NoError(t, err, text)
			assert.Equal(t, text, ir.Print(again.Module))
		})
	}
}

func TestRunPrograms(t *testing.T) {
	tests := []struct {
		file   string
		input  string
		output string
	}{
		{"hello.ll", "", "Hello\n"},
		{"sum.ll", "", "55"},
		{"classify.ll", "", "abz"},
		{"echo.ll", "hi!", "hi!3"},
		{"points.ll", "", "RL"},
	}

	for _, tt := range tests {
		t.Run(tt.file, func(t *testing.T) {
			unit, err := grammar.LoadFile("testdata/" + tt.file)
			require.NoError(t, err)

			lines, err := codegen.Compile(unit.Module, codegen.Options{})
			require.NoError(t, err)

			var out bytes.Buffer
			it := befunge.New(lines,
				befunge.WithInput(strings.NewReader(tt.input)),
				befunge.WithOutput(&out),
				befunge.WithStepLimit(20_000_000))
			require.NoError(t, it.Run(context.Background()))
			assert.Equal(t, tt.output, out.String())
		})
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name    string
		source  string
		code    string
		line    int
		suggest string
	}{
		{
			name:   "syntax",
			source: "define i32 @main() {\n  ret i32\n}\n",
			code:   errors.ErrorSyntax,
		},
		{
			name:    "undefined value",
			source:  "define i32 @main() {\nentry:\n  %value = add i32 1, 2\n  ret i32 %valeu\n}\n",
			code:    errors.ErrorUndefinedValue,
			line:    4,
			suggest: "did you mean 'value'?",
		},
		{
			name:    "undefined label",
			source:  "define i32 @main() {\nentry:\n  br label %exti\n\nexit:\n  ret i32 0\n}\n",
			code:    errors.ErrorUndefinedLabel,
			line:    3,
			suggest: "did you mean 'exit'?",
		},
		{
			name:    "undefined global",
			source:  "declare i32 @putchar(i32)\n\ndefine i32 @main() {\n  %1 = call i32 @putchr(i32 65)\n  ret i32 0\n}\n",
			code:    errors.ErrorUndefinedGlobal,
			line:    4,
			suggest: "did you mean 'putchar'?",
		},
		{
			name:   "undefined type",
			source: "define i32 @main() {\n  %p = alloca %missing\n  ret i32 0\n}\n",
			code:   errors.ErrorUndefinedType,
			line:   2,
		},
		{
			name:   "duplicate value",
			source: "define i32 @main() {\n  %a = add i32 1, 2\n  %a = add i32 3, 4\n  ret i32 %a\n}\n",
			code:   errors.ErrorDuplicateDefinition,
			line:   3,
		},
		{
			name:   "duplicate function",
			source: "declare i32 @f()\ndeclare i32 @f()\n",
			code:   errors.ErrorDuplicateDefinition,
			line:   2,
		},
		{
			name:   "type mismatch",
			source: "define i32 @main() {\n  %p = alloca i32\n  %v = add i32 %p, 1\n  ret i32 %v\n}\n",
			code:   errors.ErrorTypeMismatch,
			line:   3,
		},
		{
			name:   "unsupported opcode",
			source: "define i32 @main() {\n  %v = shl i32 1, 2\n  ret i32 %v\n}\n",
			code:   errors.ErrorUnsupportedOpcode,
			line:   2,
		},
		{
			name:   "unsupported predicate",
			source: "define i32 @main() {\n  %c = icmp weird i32 1, 2\n  ret i32 0\n}\n",
			code:   errors.ErrorUnsupportedPredicate,
			line:   2,
		},
		{
			name:   "non-zero constant gep",
			source: "@s = constant [3 x i8] c\"ab\\00\"\ndeclare i32 @puts(i8*)\ndefine i32 @main() {\n  %1 = call i32 @puts(i8* getelementptr ([3 x i8], [3 x i8]* @s, i32 0, i32 1))\n  ret i32 0\n}\n",
			code:   errors.ErrorUnsupportedConstant,
			line:   4,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := grammar.Load("bad.ll", tt.source)
			require.Error(t, err)

			var ce *errors.CompilerError
			require.True(t, stderrors.As(err, &ce), "expected a CompilerError, got %T", err)
			assert.Equal(t, tt.code, ce.Code)
			assert.True(t, ce.Position.IsValid())
			if tt.line > 0 {
				assert.Equal(t, tt.line, ce.Position.Line)
			}
			if tt.suggest != "" {
				require.NotEmpty(t, ce.Suggestions)
				assert.Equal(t, tt.suggest, ce.Suggestions[0].Message)
			}
		})
	}
}

func TestLocateCodegenError(t *testing.T) {
	src := `define i32 @main() {
entry:
  %a = add i32 1, 2
  %b = and i32 %a, 3
  ret i32 %b
}
`
	unit, err := grammar.Load("and.ll", src)
	require.NoError(t, err)

	_, err = codegen.Compile(unit.Module, codegen.Options{})
	require.Error(t, err)

	var ce *errors.CompilerError
	require.True(t, stderrors.As(err, &ce))
	assert.Equal(t, errors.ErrorBitWidth, ce.Code)
	assert.False(t, ce.Position.IsValid())

	unit.Locate(ce)
	assert.Equal(t, 4, ce.Position.Line)
	assert.Equal(t, 3, ce.Position.Column)
	assert.Equal(t, "main", ce.Function)
}

func TestDecodeEscapes(t *testing.T) {
	src := `@s = private constant [5 x i8] c"a\0Ab\\\00"`
	unit, err := grammar.Load("esc.ll", src)
	require.NoError(t, err)
	init := unit.Module.Global("s").Init.(*ir.StringInit)
	assert.Equal(t, []byte("a\nb\\\x00"), init.Data)
}
