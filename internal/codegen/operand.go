package codegen

import (
	"befc/internal/errors"
	"befc/internal/ir"
)

// operandPusher emits the code that leaves an operand's value on the stack.
type operandPusher struct {
	code  *Code
	frame *frame
	globs *globalTable
	inst  ir.Instruction // instruction being lowered, for diagnostics
}

func (p *operandPusher) push(op ir.Operand) error {
	return ir.VisitOperand(op, p)
}

func (p *operandPusher) VisitResult(inst ir.Instruction) error {
	return p.local(inst)
}

func (p *operandPusher) VisitArgument(arg *ir.Argument) error {
	return p.local(arg)
}

func (p *operandPusher) local(op ir.Operand) error {
	slot, ok := p.frame.slots[op]
	if !ok {
		return errors.UnsupportedOperand(op, p.inst)
	}
	p.code.load(bandLocal, slot)
	return nil
}

func (p *operandPusher) VisitGlobal(g *ir.Global) error {
	addr, ok := p.globs.addr[g]
	if !ok {
		return errors.UnsupportedOperand(g, p.inst)
	}
	p.code.int(addr)
	return nil
}

func (p *operandPusher) VisitConstInt(c *ir.ConstInt) error {
	v := int64(int32(c.Value))
	if ir.IsInt(c.Typ, 1) {
		v &= 1
	}
	p.code.int(v)
	return nil
}

func (p *operandPusher) VisitNull(*ir.Null) error {
	p.code.op('0')
	return nil
}

func (p *operandPusher) VisitUndef(*ir.Undef) error {
	p.code.op('0')
	return nil
}

func (p *operandPusher) VisitFunction(fn *ir.Function) error {
	return errors.UnsupportedOperand(fn, p.inst)
}
