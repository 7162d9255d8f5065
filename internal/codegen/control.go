package codegen

import (
	"fmt"

	"befc/internal/errors"
	"befc/internal/ir"
)

// prepareBranch stages the successor's phi values for the edge from the
// current block, then pushes the successor's id for the dispatch scan.
func (l *functionLowerer) prepareBranch(succ *ir.Block) error {
	for _, phi := range succ.Phis() {
		v, ok := phi.ValueFor(l.block)
		if !ok {
			return errors.UnmatchedPhiEdge(phi, l.block)
		}
		if err := l.push(v); err != nil {
			return err
		}
		l.code().store(bandPhi, l.c.ids.frames[succ.Parent].slots[phi])
	}
	l.code().int(int64(l.c.ids.block[succ]))
	return nil
}

func (l *functionLowerer) VisitBr(i *ir.Br) error {
	return l.prepareBranch(i.Target)
}

func (l *functionLowerer) VisitCondBr(i *ir.CondBr) error {
	if err := l.prepareBranch(i.False); err != nil {
		return err
	}
	if err := l.prepareBranch(i.True); err != nil {
		return err
	}
	if err := l.push(i.Cond); err != nil {
		return err
	}
	l.code().selectValue()
	return nil
}

// VisitSwitch folds the cases into a chain of selects over the default
// target. Cases are folded last to first so the earliest match wins.
func (l *functionLowerer) VisitSwitch(i *ir.Switch) error {
	if err := l.prepareBranch(i.Default); err != nil {
		return err
	}
	for k := len(i.Cases) - 1; k >= 0; k-- {
		c := i.Cases[k]
		if err := l.prepareBranch(c.Target); err != nil {
			return err
		}
		if err := l.push(c.Value, i.Value); err != nil {
			return err
		}
		l.code().raw("-!")
		l.code().selectValue()
	}
	return nil
}

// VisitRet releases the function's stack allocations and hands the return
// value to the caller's continuation, whose id sits just below it. Returning
// from the entry function ends the program.
func (l *functionLowerer) VisitRet(i *ir.Ret) error {
	if l.frame.allocas > 0 {
		l.code().getReg(regStack)
		l.code().int(l.frame.allocas)
		l.code().op('-')
		l.code().setReg(regStack)
	}
	if l.fn == l.c.entry {
		l.code().op('@')
		return nil
	}
	if i.Value != nil {
		if err := l.push(i.Value); err != nil {
			return err
		}
	} else {
		l.code().op('0')
	}
	l.code().op('\\')
	return nil
}

// VisitCall lowers a call to a defined function as a jump to its entry block
// with the continuation id and arguments underneath. The caller's frame is
// pushed past its own slots for the callee and popped again when the
// continuation runs.
func (l *functionLowerer) VisitCall(i *ir.Call) error {
	callee := i.CalledFunction()
	if callee == nil {
		return errors.IndirectCall(i)
	}
	if isIntrinsic(callee) {
		return l.intrinsic(callee.Name, i)
	}
	if callee.IsDeclaration() {
		return errors.UnknownExternal(callee.Name, i, intrinsicNames)
	}
	if len(i.Args) != len(callee.Params) {
		return errors.NewError(errors.ErrorMalformedModule,
			fmt.Sprintf("call passes %d arguments to @%s, which takes %d", len(i.Args), callee.Name, len(callee.Params))).
			ForInstruction(i).
			Build()
	}

	cont := l.c.ids.cont[i]
	l.code().int(int64(cont))
	for k := len(i.Args) - 1; k >= 0; k-- {
		arg := i.Args[k]
		if err := l.push(arg); err != nil {
			return err
		}
	}
	if phis := callee.Entry().Phis(); len(phis) > 0 {
		return errors.UnmatchedPhiEdge(phis[0], l.block)
	}
	l.code().int(int64(l.c.ids.frames[callee].entry))
	l.code().getReg(regFrame)
	l.code().int(int64(l.frame.size))
	l.code().op('+')
	l.code().setReg(regFrame)

	l.split(cont)
	l.code().getReg(regFrame)
	l.code().int(int64(l.frame.size))
	l.code().op('-')
	l.code().setReg(regFrame)
	return nil
}

func (l *functionLowerer) intrinsic(name string, i *ir.Call) error {
	want := map[string]int{"putchar": 1, "getchar": 0, "calloc": 2, "free": 1, "puts": 1, "exit": 1}[name]
	if len(i.Args) != want {
		return errors.NewError(errors.ErrorMalformedModule,
			fmt.Sprintf("@%s takes %d arguments, got %d", name, want, len(i.Args))).
			ForInstruction(i).
			Build()
	}

	switch name {
	case "putchar":
		if err := l.push(i.Args[0]); err != nil {
			return err
		}
		l.code().raw(",0")
	case "getchar":
		l.code().getchar()
	case "calloc":
		if n, ok := i.Args[1].(*ir.ConstInt); !ok || n.Value != 4 {
			return errors.CallocElementSize(i)
		}
		l.code().getReg(regHeap)
		l.code().op(':')
		if err := l.push(i.Args[0]); err != nil {
			return err
		}
		l.code().op('+')
		l.code().setReg(regHeap)
	case "free":
		l.code().op('0')
	case "puts":
		g, ok := i.Args[0].(*ir.Global)
		if !ok {
			return errors.PutsArgument(i)
		}
		s, ok := g.Init.(*ir.StringInit)
		if !ok {
			return errors.PutsArgument(i)
		}
		for _, ch := range s.Data {
			if ch == 0 {
				break
			}
			l.code().int(int64(ch))
			l.code().op(',')
		}
		l.code().raw("52*,0")
	case "exit":
		l.code().op('@')
	}
	return nil
}
