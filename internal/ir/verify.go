package ir

import "fmt"

// VerifyError describes a structural defect in a module.
type VerifyError struct {
	Function string
	Block    string
	Message  string
}

func (e *VerifyError) Error() string {
	if e.Block != "" {
		return fmt.Sprintf("%s, block %s: %s", e.Function, e.Block, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Function, e.Message)
}

// Verify checks the structural rules code generation relies on: every block
// ends in exactly one terminator, phis sit at the head of their block, every
// branch target and phi edge belongs to the same function, and instruction
// and argument operands are local to the function that uses them.
func Verify(m *Module) error {
	for _, fn := range m.Functions {
		if err := verifyFunction(fn); err != nil {
			return err
		}
	}
	return nil
}

func verifyFunction(fn *Function) error {
	owned := make(map[*Block]bool, len(fn.Blocks))
	for _, b := range fn.Blocks {
		owned[b] = true
	}
	fail := func(b *Block, format string, args ...any) error {
		return &VerifyError{Function: fn.Name, Block: b.Name, Message: fmt.Sprintf(format, args...)}
	}

	for _, b := range fn.Blocks {
		if b.Terminator() == nil {
			return fail(b, "block does not end in a terminator")
		}
		seenBody := false
		for n, inst := range b.Instructions {
			if IsTerminator(inst) && n != len(b.Instructions)-1 {
				return fail(b, "terminator %s in the middle of the block", inst.Opcode())
			}
			if phi, ok := inst.(*Phi); ok {
				if seenBody {
					return fail(b, "phi after a non-phi instruction")
				}
				for _, in := range phi.Incoming {
					if !owned[in.Block] {
						return fail(b, "phi edge from a block outside %s", fn.Name)
					}
				}
			} else {
				seenBody = true
			}
			for _, succ := range Successors(inst) {
				if !owned[succ] {
					return fail(b, "branch to a block outside %s", fn.Name)
				}
			}
			for _, op := range inst.Operands() {
				switch o := op.(type) {
				case Instruction:
					if o.Parent() == nil || o.Parent().Parent != fn {
						return fail(b, "%s uses a value from another function", inst.Opcode())
					}
				case *Argument:
					if o.Parent != fn {
						return fail(b, "%s uses an argument of another function", inst.Opcode())
					}
				}
			}
		}
	}
	return nil
}
