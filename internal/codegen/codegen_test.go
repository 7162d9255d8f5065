package codegen

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"befc/internal/befunge"
	"befc/internal/errors"
	"befc/internal/ir"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, m *ir.Module, input string) (string, *befunge.Interpreter) {
	t.Helper()
	return executeWith(t, m, Options{}, input)
}

func executeWith(t *testing.T, m *ir.Module, opts Options, input string) (string, *befunge.Interpreter) {
	t.Helper()
	lines, err := Compile(m, opts)
	require.NoError(t, err)

	var out bytes.Buffer
	it := befunge.New(lines,
		befunge.WithInput(strings.NewReader(input)),
		befunge.WithOutput(&out),
		befunge.WithStepLimit(20_000_000))
	require.NoError(t, it.Run(context.Background()), strings.Join(lines, "\n"))
	return out.String(), it
}

// program holds a module whose main is being built.
type program struct {
	m       *ir.Module
	main    *ir.Function
	entry   *ir.Block
	putchar *ir.Function
}

func newProgram() *program {
	m := ir.NewModule("test")
	p := &program{m: m, putchar: m.Declare("putchar", ir.I32, ir.I32)}
	p.main = m.NewFunction("main", ir.I32)
	p.entry = p.main.NewBlock("entry")
	return p
}

// digits appends putchar calls writing v as n decimal digits.
func (p *program) digits(b *ir.Block, v ir.Operand, n int) {
	div := int64(1)
	for i := 1; i < n; i++ {
		div *= 10
	}
	for ; div > 0; div /= 10 {
		d := b.SRem(b.SDiv(v, ir.Int(div)), ir.Int(10))
		b.Call(p.putchar, b.Add(d, ir.Int('0')))
	}
}

func (p *program) char(b *ir.Block, c byte) {
	b.Call(p.putchar, ir.Int(int64(c)))
}

func TestCompileArithmetic(t *testing.T) {
	p := newProgram()
	b := p.entry
	x := b.Mul(ir.Int(6), ir.Int(7))
	y := b.Sub(x, ir.Int(5))
	p.digits(b, x, 2)
	p.digits(b, y, 2)
	p.digits(b, b.SDiv(y, ir.Int(3)), 2)
	p.digits(b, b.SRem(y, ir.Int(5)), 1)
	p.digits(b, b.Sub(ir.Int(0), b.SDiv(ir.Int(-7), ir.Int(2))), 1)
	b.Ret(ir.Int(0))

	out, _ := execute(t, p.m, "")
	assert.Equal(t, "42371223", out)
}

func TestCompileRecursion(t *testing.T) {
	p := newProgram()

	sum := p.m.NewFunction("sum", ir.I32, ir.NewParam("n", ir.I32))
	entry := sum.NewBlock("entry")
	base := sum.NewBlock("base")
	rec := sum.NewBlock("rec")
	entry.CondBr(entry.ICmp(ir.PredEQ, sum.Params[0], ir.Int(0)), base, rec)
	base.Ret(ir.Int(0))
	s := rec.Call(sum, rec.Sub(sum.Params[0], ir.Int(1)))
	rec.Ret(rec.Add(sum.Params[0], s))

	v := p.entry.Call(sum, ir.Int(50))
	p.digits(p.entry, v, 4)
	p.entry.Ret(ir.Int(0))

	out, it := execute(t, p.m, "")
	assert.Equal(t, "1275", out)
	assert.Equal(t, int32(localBase), it.Get(2, 0), "frame pointer restored")
	assert.Equal(t, int32(stackBase), it.Get(0, 0))
}

func TestCompileCallArguments(t *testing.T) {
	p := newProgram()

	pair := p.m.NewFunction("pair", ir.Void, ir.NewParam("a", ir.I32), ir.NewParam("b", ir.I32))
	b := pair.NewBlock("entry")
	b.Call(p.putchar, pair.Params[0])
	b.Call(p.putchar, pair.Params[1])
	b.RetVoid()

	p.entry.Call(pair, ir.Int('x'), ir.Int('y'))
	p.entry.Call(pair, ir.Int('a'), ir.Int('b'))
	p.entry.Ret(ir.Int(0))

	out, _ := execute(t, p.m, "")
	assert.Equal(t, "xyab", out)
}

func TestCompileLoopWithPhis(t *testing.T) {
	p := newProgram()
	loop := p.main.NewBlock("loop")
	exit := p.main.NewBlock("exit")

	p.entry.Br(loop)
	i := loop.Phi(ir.I32)
	acc := loop.Phi(ir.I32)
	acc2 := loop.Add(acc, i)
	next := loop.Add(i, ir.Int(1))
	i.AddIncoming(ir.Int(1), p.entry)
	i.AddIncoming(next, loop)
	acc.AddIncoming(ir.Int(0), p.entry)
	acc.AddIncoming(acc2, loop)
	loop.CondBr(loop.ICmp(ir.PredSLE, next, ir.Int(10)), loop, exit)

	p.digits(exit, acc2, 2)
	exit.Ret(ir.Int(0))

	out, _ := execute(t, p.m, "")
	assert.Equal(t, "55", out)
}

func TestCompilePhiSwap(t *testing.T) {
	p := newProgram()
	loop := p.main.NewBlock("loop")
	exit := p.main.NewBlock("exit")

	p.entry.Br(loop)
	a := loop.Phi(ir.I32)
	b := loop.Phi(ir.I32)
	n := loop.Phi(ir.I32)
	n2 := loop.Add(n, ir.Int(1))
	a.AddIncoming(ir.Int('L'), p.entry)
	a.AddIncoming(b, loop)
	b.AddIncoming(ir.Int('R'), p.entry)
	b.AddIncoming(a, loop)
	n.AddIncoming(ir.Int(0), p.entry)
	n.AddIncoming(n2, loop)
	loop.Call(p.putchar, a)
	loop.CondBr(loop.ICmp(ir.PredSLT, n2, ir.Int(5)), loop, exit)
	exit.Ret(ir.Int(0))

	out, _ := execute(t, p.m, "")
	assert.Equal(t, "LRLRL", out)
}

func TestCompileSwitch(t *testing.T) {
	p := newProgram()

	classify := p.m.NewFunction("classify", ir.I32, ir.NewParam("x", ir.I32))
	entry := classify.NewBlock("entry")
	one := classify.NewBlock("one")
	five := classify.NewBlock("five")
	def := classify.NewBlock("default")
	sw := entry.Switch(classify.Params[0], def)
	sw.AddCase(ir.Int(1), one)
	sw.AddCase(ir.Int(5), five)
	one.Ret(ir.Int('a'))
	five.Ret(ir.Int('b'))
	def.Ret(ir.Int('z'))

	for _, x := range []int64{1, 5, 7, 0, -1} {
		p.entry.Call(p.putchar, p.entry.Call(classify, ir.Int(x)))
	}
	p.entry.Ret(ir.Int(0))

	out, _ := execute(t, p.m, "")
	assert.Equal(t, "abzzz", out)
}

func TestCompileComparisons(t *testing.T) {
	testCases := []struct {
		pred ir.Predicate
		a, b int64
		want byte
	}{
		{ir.PredULT, 0, -1, '1'},
		{ir.PredULT, 2147483647, -2147483648, '1'},
		{ir.PredUGT, -1, -2147483648, '1'},
		{ir.PredULE, -2147483648, 2147483647, '0'},
		{ir.PredUGE, 0, 0, '1'},
		{ir.PredULT, -1, 0, '0'},
		{ir.PredUGT, 2147483648, 2147483647, '1'},
		{ir.PredUGE, 4294967295, 2147483648, '1'},
		{ir.PredSLT, -1, 0, '1'},
		{ir.PredSGT, -2147483648, 2147483647, '0'},
		{ir.PredSGE, 3, 3, '1'},
		{ir.PredSLE, 4, 3, '0'},
		{ir.PredEQ, 4294967295, -1, '1'},
		{ir.PredNE, 3, 3, '0'},
		{ir.PredNE, 3, 4, '1'},
	}

	p := newProgram()
	var want []byte
	for _, tc := range testCases {
		cmp := p.entry.ICmp(tc.pred, ir.Int(tc.a), ir.Int(tc.b))
		p.entry.Call(p.putchar, p.entry.Add(p.entry.Cast(ir.OpZExt, cmp, ir.I32), ir.Int('0')))
		want = append(want, tc.want)
	}
	p.entry.Ret(ir.Int(0))

	out, _ := execute(t, p.m, "")
	assert.Equal(t, string(want), out)
}

func TestCompileBooleanOps(t *testing.T) {
	p := newProgram()
	b := p.entry
	tr := b.ICmp(ir.PredEQ, ir.Int(1), ir.Int(1))
	fa := b.ICmp(ir.PredEQ, ir.Int(1), ir.Int(2))

	for _, v := range []ir.Operand{
		b.And(tr, fa),
		b.Or(tr, fa),
		b.Xor(tr, tr),
		b.Xor(tr, fa),
		b.Or(tr, tr),
		b.And(ir.Bool(true), tr),
	} {
		b.Call(p.putchar, b.Add(b.Cast(ir.OpZExt, v, ir.I32), ir.Int('0')))
	}
	b.Call(p.putchar, b.Select(tr, ir.Int('A'), ir.Int('B')))
	b.Call(p.putchar, b.Select(fa, ir.Int('A'), ir.Int('B')))
	b.Ret(ir.Int(0))

	out, _ := execute(t, p.m, "")
	assert.Equal(t, "010111AB", out)
}

func TestCompileMemory(t *testing.T) {
	p := newProgram()
	b := p.entry
	arr := b.Alloca(ir.ArrayOf(4, ir.I32))
	for i := int64(0); i < 4; i++ {
		b.Store(ir.Int((i+1)*10), b.GEP(arr, ir.Int(0), ir.Int(i)))
	}
	cell := b.Alloca(ir.I32)
	b.Store(ir.Int(7), cell)

	p.digits(b, b.Load(b.GEP(arr, ir.Int(0), ir.Int(2))), 2)
	p.digits(b, b.Load(cell), 1)
	b.Ret(ir.Int(0))

	out, it := execute(t, p.m, "")
	assert.Equal(t, "307", out)
	assert.Equal(t, int32(stackBase), it.Get(0, 0), "allocas released on return")
}

func TestCompileNestedAllocas(t *testing.T) {
	p := newProgram()

	f := p.m.NewFunction("f", ir.I32, ir.NewParam("n", ir.I32))
	b := f.NewBlock("entry")
	slot := b.Alloca(ir.ArrayOf(3, ir.I32))
	b.Store(f.Params[0], b.GEP(slot, ir.Int(0), ir.Int(1)))
	b.Ret(b.Load(b.GEP(slot, ir.Int(0), ir.Int(1))))

	local := p.entry.Alloca(ir.I32)
	p.entry.Store(ir.Int(4), local)
	v := p.entry.Call(f, ir.Int(9))
	p.digits(p.entry, v, 1)
	p.digits(p.entry, p.entry.Load(local), 1)
	p.entry.Ret(ir.Int(0))

	out, it := execute(t, p.m, "")
	assert.Equal(t, "94", out)
	assert.Equal(t, int32(stackBase), it.Get(0, 0))
}

func TestCompileCalloc(t *testing.T) {
	p := newProgram()
	calloc := p.m.Declare("calloc", ir.PointerTo(ir.I8), ir.I32, ir.I32)
	free := p.m.Declare("free", ir.Void, ir.PointerTo(ir.I8))

	b := p.entry
	raw := b.Call(calloc, ir.Int(3), ir.Int(4))
	words := b.Cast(ir.OpBitcast, raw, ir.PointerTo(ir.I32))
	q := b.GEP(words, ir.Int(2))
	b.Store(ir.Int(9), q)
	p.digits(b, b.Load(q), 1)
	p.digits(b, b.Load(b.GEP(words, ir.Int(1))), 1)

	next := b.Call(calloc, ir.Int(1), ir.Int(4))
	gap := b.Sub(b.Cast(ir.OpPtrToInt, next, ir.I32), b.Cast(ir.OpPtrToInt, raw, ir.I32))
	p.digits(b, gap, 1)
	b.Call(free, raw)
	b.Ret(ir.Int(0))

	out, it := execute(t, p.m, "")
	assert.Equal(t, "903", out)
	assert.Equal(t, int32(heapBase+4), it.Get(1, 0))
}

func TestCompileGlobals(t *testing.T) {
	p := newProgram()
	counter := p.m.NewGlobal("counter", ir.I32, &ir.IntInit{Value: 7})
	table := p.m.NewGlobal("table", ir.ArrayOf(3, ir.I32), &ir.ZeroInit{})
	msg := p.m.NewString("msg", "hey")

	b := p.entry
	b.Store(b.Add(b.Load(counter), ir.Int(1)), counter)
	p.digits(b, b.Load(counter), 1)
	b.Store(ir.Int(5), b.GEP(table, ir.Int(0), ir.Int(2)))
	p.digits(b, b.Load(b.GEP(table, ir.Int(0), ir.Int(2))), 1)
	p.digits(b, b.Load(b.GEP(table, ir.Int(0), ir.Int(0))), 1)
	b.Call(p.putchar, b.Cast(ir.OpZExt, b.Load(b.GEP(msg, ir.Int(0), ir.Int(1))), ir.I32))
	b.Ret(ir.Int(0))

	c, err := newCompilation(p.m, Options{})
	require.NoError(t, err)
	assert.Equal(t, int64(globalBase), c.globals.addr[counter])
	assert.Equal(t, int64(globalBase+1), c.globals.addr[table])
	assert.Equal(t, int64(globalBase+4), c.globals.addr[msg])

	out, _ := execute(t, p.m, "")
	assert.Equal(t, "850e", out)
}

func TestCompilePuts(t *testing.T) {
	p := newProgram()
	puts := p.m.Declare("puts", ir.I32, ir.PointerTo(ir.I8))
	str := p.m.NewString(".str", "hello, befunge")
	p.entry.Call(puts, str)
	p.entry.Call(puts, str)
	p.entry.Ret(ir.Int(0))

	c, err := newCompilation(p.m, Options{})
	require.NoError(t, err)
	_, ok := c.globals.addr[str]
	assert.False(t, ok, "puts-only strings get no global address")

	out, _ := execute(t, p.m, "")
	assert.Equal(t, "hello, befunge\nhello, befunge\n", out)
}

func TestCompileGetchar(t *testing.T) {
	p := newProgram()
	getchar := p.m.Declare("getchar", ir.I32)
	b := p.entry
	first := b.Call(getchar)
	second := b.Call(getchar)
	eof := b.Call(getchar)
	b.Call(p.putchar, second)
	b.Call(p.putchar, first)
	eq := b.ICmp(ir.PredEQ, eof, ir.Int(-1))
	b.Call(p.putchar, b.Add(b.Cast(ir.OpZExt, eq, ir.I32), ir.Int('0')))
	b.Ret(ir.Int(0))

	out, _ := execute(t, p.m, "xy")
	assert.Equal(t, "yx1", out)
}

func TestCompileExit(t *testing.T) {
	p := newProgram()
	exit := p.m.Declare("exit", ir.Void, ir.I32)

	f := p.m.NewFunction("bail", ir.Void)
	b := f.NewBlock("entry")
	p.char(b, 'a')
	b.Call(exit, ir.Int(0))
	p.char(b, 'b')
	b.RetVoid()

	p.entry.Call(f)
	p.char(p.entry, 'c')
	p.entry.Ret(ir.Int(0))

	out, _ := execute(t, p.m, "")
	assert.Equal(t, "a", out)
}

func TestCompileEntryOption(t *testing.T) {
	p := newProgram()
	p.entry.Ret(ir.Int(0))

	start := p.m.NewFunction("start", ir.I32)
	b := start.NewBlock("entry")
	p.char(b, 's')
	b.Ret(ir.Int(0))

	out, _ := executeWith(t, p.m, Options{Entry: "start"}, "")
	assert.Equal(t, "s", out)
}

func TestCompileDebugRows(t *testing.T) {
	p := newProgram()
	p.char(p.entry, 'k')
	p.entry.Ret(ir.Int(0))

	plain, err := Compile(p.m, Options{})
	require.NoError(t, err)
	lines, err := Compile(p.m, Options{Debug: true})
	require.NoError(t, err)

	text := strings.Join(lines, "\n")
	assert.Contains(t, strings.Join(plain, "\n"), "*** main *** 0")
	assert.NotContains(t, strings.Join(plain, "\n"), "block 0")
	assert.Contains(t, text, strings.Repeat(" ", headerIndent)+"block 0")
	assert.Contains(t, text, "call i32 @putchar(i32 107)")
	for _, l := range lines {
		assert.LessOrEqual(t, len(l), befunge.Width)
	}

	out, _ := executeWith(t, p.m, Options{Debug: true}, "")
	assert.Equal(t, "k", out)
}

func TestCompileErrors(t *testing.T) {
	testCases := []struct {
		name  string
		build func(p *program)
		code  string
	}{
		{
			name: "unsupported opcode",
			build: func(p *program) {
				p.entry.Append(&ir.Binary{Op: ir.OpLoad, LHS: ir.Int(1), RHS: ir.Int(2)})
				p.entry.Ret(ir.Int(0))
			},
			code: errors.ErrorUnsupportedOpcode,
		},
		{
			name: "indirect call",
			build: func(p *program) {
				fp := p.entry.Alloca(ir.PointerTo(p.putchar.Signature()))
				p.entry.Call(p.entry.Load(fp), ir.Int(1))
				p.entry.Ret(ir.Int(0))
			},
			code: errors.ErrorIndirectCall,
		},
		{
			name: "unknown external",
			build: func(p *program) {
				printf := p.m.Declare("printf", ir.I32, ir.PointerTo(ir.I8))
				p.entry.Call(printf, ir.NullOf(ir.PointerTo(ir.I8)))
				p.entry.Ret(ir.Int(0))
			},
			code: errors.ErrorUnknownExternal,
		},
		{
			name: "calloc element size",
			build: func(p *program) {
				calloc := p.m.Declare("calloc", ir.PointerTo(ir.I8), ir.I32, ir.I32)
				p.entry.Call(calloc, ir.Int(3), ir.Int(8))
				p.entry.Ret(ir.Int(0))
			},
			code: errors.ErrorCallocElementSize,
		},
		{
			name: "unsupported predicate",
			build: func(p *program) {
				p.entry.ICmp(ir.PredInvalid, ir.Int(1), ir.Int(2))
				p.entry.Ret(ir.Int(0))
			},
			code: errors.ErrorUnsupportedPredicate,
		},
		{
			name: "unmatched phi edge",
			build: func(p *program) {
				left := p.main.NewBlock("left")
				right := p.main.NewBlock("right")
				join := p.main.NewBlock("join")
				p.entry.CondBr(ir.Bool(true), left, right)
				left.Br(join)
				right.Br(join)
				phi := join.Phi(ir.I32)
				phi.AddIncoming(ir.Int(1), left)
				join.Ret(phi)
			},
			code: errors.ErrorUnmatchedPhiEdge,
		},
		{
			name: "unsized alloca",
			build: func(p *program) {
				p.entry.Alloca(&ir.StructType{Name: "opaque", Opaque: true})
				p.entry.Ret(ir.Int(0))
			},
			code: errors.ErrorUnsizedType,
		},
		{
			name: "function operand",
			build: func(p *program) {
				slot := p.entry.Alloca(p.putchar.Type())
				p.entry.Store(p.putchar, slot)
				p.entry.Ret(ir.Int(0))
			},
			code: errors.ErrorUnsupportedOperand,
		},
		{
			name: "puts argument",
			build: func(p *program) {
				puts := p.m.Declare("puts", ir.I32, ir.PointerTo(ir.I8))
				str := p.m.NewString(".str", "hi")
				p.entry.Call(puts, p.entry.GEP(str, ir.Int(0), ir.Int(0)))
				p.entry.Ret(ir.Int(0))
			},
			code: errors.ErrorPutsArgument,
		},
		{
			name: "bitwise on i32",
			build: func(p *program) {
				p.entry.And(ir.Int(6), ir.Int(3))
				p.entry.Ret(ir.Int(0))
			},
			code: errors.ErrorBitWidth,
		},
		{
			name: "missing terminator",
			build: func(p *program) {
				p.entry.Add(ir.Int(1), ir.Int(2))
			},
			code: errors.ErrorMalformedModule,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			p := newProgram()
			tc.build(p)

			_, err := Compile(p.m, Options{})
			require.Error(t, err)
			var cerr *errors.CompilerError
			require.ErrorAs(t, err, &cerr)
			assert.Equal(t, tc.code, cerr.Code, cerr.Error())
		})
	}
}

func TestCompileMissingEntry(t *testing.T) {
	m := ir.NewModule("empty")
	m.Declare("main", ir.I32)

	_, err := Compile(m, Options{})
	var cerr *errors.CompilerError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, errors.ErrorMissingEntry, cerr.Code)

	p := newProgram()
	p.entry.Ret(ir.Int(0))
	_, err = Compile(p.m, Options{Entry: "start"})
	require.ErrorAs(t, err, &cerr)
	assert.Contains(t, cerr.Message, "start")
}

func TestUnknownExternalSuggestsIntrinsic(t *testing.T) {
	p := newProgram()
	putch := p.m.Declare("putchr", ir.I32, ir.I32)
	p.entry.Call(putch, ir.Int(1))
	p.entry.Ret(ir.Int(0))

	_, err := Compile(p.m, Options{})
	var cerr *errors.CompilerError
	require.ErrorAs(t, err, &cerr)
	require.NotEmpty(t, cerr.Suggestions)
	assert.Contains(t, cerr.Suggestions[0].Message, "putchar")
	assert.NotNil(t, cerr.Inst)
}
