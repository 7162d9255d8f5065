package codegen

import (
	"slices"

	"befc/internal/errors"
	"befc/internal/ir"
)

// intrinsicNames are the external functions lowered inline by name.
var intrinsicNames = []string{"putchar", "getchar", "calloc", "free", "puts", "exit"}

// Intrinsics returns the names of the external functions the compiler
// implements itself.
func Intrinsics() []string {
	return slices.Clone(intrinsicNames)
}

// isIntrinsic reports whether fn is a declared runtime function handled
// inline. A defined function with the same name is an ordinary call.
func isIntrinsic(fn *ir.Function) bool {
	if !fn.IsDeclaration() {
		return false
	}
	for _, name := range intrinsicNames {
		if fn.Name == name {
			return true
		}
	}
	return false
}

// frame describes one function's activation record.
type frame struct {
	entry   int                // id of the first block
	slots   map[ir.Operand]int // argument and instruction slot ids
	size    int                // number of slots
	allocas int64              // words reserved by all allocas
}

// identities holds the module-wide dispatch ids and per-function slots.
type identities struct {
	block  map[*ir.Block]int
	cont   map[*ir.Call]int
	frames map[*ir.Function]*frame
	count  int // ids consumed
}

// assignIDs numbers blocks in declaration order, reserving one id after each
// non-intrinsic call for its continuation, and gives every argument and
// instruction of a function a dense slot id.
func assignIDs(m *ir.Module, body map[*ir.Block][]ir.Instruction) (*identities, error) {
	ids := &identities{
		block:  make(map[*ir.Block]int),
		cont:   make(map[*ir.Call]int),
		frames: make(map[*ir.Function]*frame),
	}

	next := 0
	for _, fn := range m.Functions {
		if fn.IsDeclaration() {
			continue
		}
		fr := &frame{entry: next, slots: make(map[ir.Operand]int)}
		for _, arg := range fn.Params {
			fr.slots[arg] = len(fr.slots)
		}

		for _, b := range fn.Blocks {
			ids.block[b] = next
			for _, inst := range body[b] {
				fr.slots[inst] = len(fr.slots)
				if err := checkOpcode(inst); err != nil {
					return nil, err
				}

				switch i := inst.(type) {
				case *ir.Call:
					callee := i.CalledFunction()
					if callee == nil {
						return nil, errors.IndirectCall(i)
					}
					if callee.IsDeclaration() && !isIntrinsic(callee) {
						return nil, errors.UnknownExternal(callee.Name, i, intrinsicNames)
					}
					if !isIntrinsic(callee) {
						next++
						ids.cont[i] = next
					}
				case *ir.Alloca:
					size, err := ir.SizeOf(i.Elem)
					if err != nil {
						return nil, errors.NewError(errors.ErrorUnsizedType, "cannot compute the size of the allocated type").
							ForInstruction(i).
							WithCause(err).
							Build()
					}
					fr.allocas += int64(size)
				}
			}
			next++
		}
		fr.size = len(fr.slots)
		ids.frames[fn] = fr
		log.Debugf("function %s: entry %d, frame %d slots, %d alloca words", fn.Name, fr.entry, fr.size, fr.allocas)
	}
	ids.count = next
	return ids, nil
}

func checkOpcode(inst ir.Instruction) error {
	ok := true
	switch i := inst.(type) {
	case *ir.Binary:
		ok = i.Op.IsBinary()
	case *ir.Cast:
		ok = i.Op.IsCast()
	}
	if !ok || inst.Opcode() == ir.OpInvalid {
		return errors.UnsupportedOpcode(inst)
	}
	return nil
}

// inlineStrings finds the character-array globals whose only uses are as
// puts arguments. They are never given a Global-region address.
func inlineStrings(m *ir.Module, body map[*ir.Block][]ir.Instruction) map[*ir.Global]bool {
	other := make(map[*ir.Global]bool)
	for _, fn := range m.Functions {
		for _, b := range fn.Blocks {
			for _, inst := range body[b] {
				ops := inst.Operands()
				if call, ok := inst.(*ir.Call); ok {
					if callee := call.CalledFunction(); callee != nil && isIntrinsic(callee) && callee.Name == "puts" && len(ops) > 1 {
						ops = ops[2:]
					}
				}
				for _, op := range ops {
					if g, ok := op.(*ir.Global); ok {
						other[g] = true
					}
				}
			}
		}
	}

	inline := make(map[*ir.Global]bool)
	for _, g := range m.Globals {
		if _, ok := g.Init.(*ir.StringInit); ok && !other[g] {
			inline[g] = true
		}
	}
	return inline
}
