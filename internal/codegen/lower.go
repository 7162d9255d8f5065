package codegen

import (
	"befc/internal/errors"
	"befc/internal/ir"
)

// functionLowerer turns the blocks of one function into segments. It
// implements ir.InstructionVisitor; each Visit method appends the tokens for
// one instruction to the open segment.
type functionLowerer struct {
	c     *compilation
	fn    *ir.Function
	frame *frame

	block    *ir.Block
	cur      Segment
	segments []Segment
	pusher   operandPusher
}

func (c *compilation) lowerer(fn *ir.Function) *functionLowerer {
	return &functionLowerer{c: c, fn: fn, frame: c.ids.frames[fn]}
}

// lowerBlock returns the segments of b in dispatch order: the block's own
// segment followed by one continuation per non-intrinsic call.
func (l *functionLowerer) lowerBlock(b *ir.Block) ([]Segment, error) {
	l.block = b
	l.segments = nil
	l.cur = Segment{ID: l.c.ids.block[b]}
	l.pusher = operandPusher{code: &l.cur.Code, frame: l.frame, globs: l.c.globals}

	if b == l.fn.Entry() {
		// The caller left the arguments on the stack, first on top.
		for _, arg := range l.fn.Params {
			l.cur.Code.store(bandLocal, l.frame.slots[arg])
		}
	}

	for _, inst := range l.c.body[b] {
		l.pusher.inst = inst
		if err := inst.Accept(l); err != nil {
			return nil, err
		}
		if producesValue(inst) {
			l.cur.Code.store(bandLocal, l.frame.slots[inst])
		}
		l.cur.Code.op(' ')
	}

	l.segments = append(l.segments, l.cur)
	return l.segments, nil
}

// producesValue reports whether inst leaves a value to be stored in its slot.
// A call always does, since returning functions push 0 for void.
func producesValue(inst ir.Instruction) bool {
	switch inst.(type) {
	case *ir.Br, *ir.CondBr, *ir.Switch, *ir.Store, *ir.Ret:
		return false
	}
	return true
}

// split closes the open segment and starts the one with the given id.
func (l *functionLowerer) split(id int) {
	l.segments = append(l.segments, l.cur)
	l.cur = Segment{ID: id}
	l.pusher.code = &l.cur.Code
}

func (l *functionLowerer) code() *Code { return &l.cur.Code }

func (l *functionLowerer) push(ops ...ir.Operand) error {
	for _, op := range ops {
		if err := l.pusher.push(op); err != nil {
			return err
		}
	}
	return nil
}

func (l *functionLowerer) VisitBinary(i *ir.Binary) error {
	if err := l.push(i.LHS, i.RHS); err != nil {
		return err
	}
	switch i.Op {
	case ir.OpAdd:
		l.code().op('+')
	case ir.OpSub:
		l.code().op('-')
	case ir.OpMul:
		l.code().op('*')
	case ir.OpSDiv:
		l.code().op('/')
	case ir.OpSRem:
		l.code().op('%')
	case ir.OpAnd, ir.OpOr, ir.OpXor:
		if !ir.IsInt(i.Type(), 1) {
			return errors.BitWidth(i)
		}
		switch i.Op {
		case ir.OpAnd:
			l.code().op('*')
		case ir.OpOr:
			l.code().raw("+!!")
		default:
			l.code().raw("+2%")
		}
	default:
		return errors.UnsupportedOpcode(i)
	}
	return nil
}

// Casts are free: every integer and pointer occupies one cell.
func (l *functionLowerer) VisitCast(i *ir.Cast) error {
	return l.push(i.Value)
}

// VisitGetElementPtr adds the raw indices to the base address.
func (l *functionLowerer) VisitGetElementPtr(i *ir.GetElementPtr) error {
	if err := l.push(i.Base); err != nil {
		return err
	}
	for _, idx := range i.Indices {
		if err := l.push(idx); err != nil {
			return err
		}
		l.code().op('+')
	}
	return nil
}

func (l *functionLowerer) VisitICmp(i *ir.ICmp) error {
	a, b := i.LHS, i.RHS
	var tail string
	switch i.Pred {
	case ir.PredEQ:
		tail = "-!"
	case ir.PredNE:
		tail = "-!!"
	case ir.PredSGT, ir.PredUGT:
		tail = "`"
	case ir.PredSLT, ir.PredULT:
		a, b = b, a
		tail = "`"
	case ir.PredSGE, ir.PredUGE:
		a, b = b, a
		tail = "`!"
	case ir.PredSLE, ir.PredULE:
		tail = "`!"
	default:
		return errors.UnsupportedPredicate(i.Pred, i)
	}

	for _, op := range []ir.Operand{a, b} {
		if err := l.push(op); err != nil {
			return err
		}
		if i.Pred.IsUnsigned() {
			l.code().unsignedBias()
		}
	}
	l.code().raw(tail)
	return nil
}

// unsignedBias maps the value on top of the stack so that signed comparison
// of two mapped values orders them as unsigned 32-bit integers: negative
// values (the upper unsigned half) move up by 2^31, the rest move down.
func (c *Code) unsignedBias() {
	k := EncodeInt(1<<31-1) + "1+"
	c.raw(":" + k + "-\\:" + k + "+\\0\\`")
	c.selectValue()
}

func (l *functionLowerer) VisitSelect(i *ir.Select) error {
	if err := l.push(i.False, i.True, i.Cond); err != nil {
		return err
	}
	l.code().selectValue()
	return nil
}

// VisitPhi reads the value the predecessor staged for this phi.
func (l *functionLowerer) VisitPhi(i *ir.Phi) error {
	l.code().load(bandPhi, l.frame.slots[i])
	return nil
}

func (l *functionLowerer) VisitAlloca(i *ir.Alloca) error {
	size, err := ir.SizeOf(i.Elem)
	if err != nil {
		return errors.UnsizedType(i.Elem, err)
	}
	l.code().getReg(regStack)
	l.code().op(':')
	l.code().int(int64(size))
	l.code().op('+')
	l.code().setReg(regStack)
	return nil
}

func (l *functionLowerer) VisitLoad(i *ir.Load) error {
	if err := l.push(i.Ptr); err != nil {
		return err
	}
	l.code().make2D(bandMem)
	l.code().op('g')
	return nil
}

func (l *functionLowerer) VisitStore(i *ir.Store) error {
	if err := l.push(i.Value, i.Ptr); err != nil {
		return err
	}
	l.code().make2D(bandMem)
	l.code().op('p')
	return nil
}
