package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPrintModule(t *testing.T) {
	m := NewModule("test")
	m.NewNamedType("struct.pair", I32, PointerTo(I8))
	m.NewGlobal("counter", I32, &IntInit{Value: 5})
	m.NewString("msg", "hi\n")
	putchar := m.Declare("putchar", I32, I32)

	main := m.NewFunction("main", I32)
	entry := main.NewBlock("entry")
	sum := entry.Add(Int(1), Int(2))
	entry.Call(putchar, sum)
	entry.Ret(Int(0))

	expected := `; ModuleID = 'test'
%struct.pair = type { i32, i8* }

@counter = global i32 5
@msg = constant [4 x i8] c"hi\0A\00"

declare i32 @putchar(i32)

define i32 @main() {
entry:
  %0 = add i32 1, 2
  %1 = call i32 @putchar(i32 %0)
  ret i32 0
}
`
	assert.Equal(t, expected, Print(m))
}

func TestFormatInstruction(t *testing.T) {
	m := NewModule("test")
	x := NewParam("x", I32)
	fn := m.NewFunction("f", I32, x)
	entry := fn.NewBlock("entry")
	loop := fn.NewBlock("loop")
	done := fn.NewBlock("done")

	slot := entry.Alloca(I32)
	entry.Store(x, slot)
	entry.Br(loop)

	phi := loop.Phi(I32)
	phi.SetName("i")
	next := loop.Add(phi, Int(1))
	next.SetName("next")
	phi.AddIncoming(Int(0), entry)
	phi.AddIncoming(next, loop)
	cmp := loop.ICmp(PredULT, next, x)
	loop.CondBr(cmp, loop, done)

	v := done.Load(slot)
	sel := done.Select(cmp, v, Int(-1))
	sw := done.Switch(sel, loop)
	sw.AddCase(Int(3), done)

	testCases := []struct {
		inst     Instruction
		expected string
	}{
		{slot, "%0 = alloca i32"},
		{entry.Instructions[1], "store i32 %x, i32* %0"},
		{entry.Instructions[2], "br label %loop"},
		{phi, "%i = phi i32 [ 0, %entry ], [ %next, %loop ]"},
		{next, "%next = add i32 %i, 1"},
		{cmp, "%1 = icmp ult i32 %next, %x"},
		{loop.Instructions[3], "br i1 %1, label %loop, label %done"},
		{v, "%2 = load i32* %0"},
		{sel, "%3 = select i1 %1, i32 %2, i32 -1"},
		{sw, "switch i32 %3, label %loop [ i32 3, label %done ]"},
	}

	for _, tc := range testCases {
		assert.Equal(t, tc.expected, FormatInstruction(tc.inst))
	}
}

func TestPrintCastsAndGEP(t *testing.T) {
	m := NewModule("")
	buf := m.NewGlobal("buf", ArrayOf(4, I32), &ZeroInit{})
	fn := m.NewFunction("f", Void)
	entry := fn.NewBlock("entry")
	gep := entry.GEP(buf, Int(0), Int(2))
	cast := entry.Cast(OpPtrToInt, gep, I32)
	entry.Cast(OpSExt, Bool(true), I32)
	entry.RetVoid()

	assert.Equal(t, "%0 = getelementptr [4 x i32]* @buf, i32 0, i32 2", FormatInstruction(gep))
	assert.Equal(t, "%1 = ptrtoint i32* %0 to i32", FormatInstruction(cast))
	assert.Equal(t, "%2 = sext i1 true to i32", FormatInstruction(entry.Instructions[2]))
	assert.Equal(t, "ret void", FormatInstruction(entry.Instructions[3]))
	assert.Contains(t, Print(m), "@buf = global [4 x i32] zeroinitializer")
}
