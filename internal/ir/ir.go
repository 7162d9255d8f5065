package ir

// This file provides the top-level containers of the source IR.
// The IR is a typed, SSA-form control flow graph over 32-bit integers and
// pointers: functions own ordered basic blocks, blocks own ordered
// instructions, and every instruction result is a value other instructions
// can reference as an operand.

// Module is a whole translation unit.
type Module struct {
	Name      string
	Types     []*StructType // named struct types, in declaration order
	Globals   []*Global
	Functions []*Function
}

// NewModule creates an empty module.
func NewModule(name string) *Module {
	return &Module{Name: name}
}

// Function looks up a function (defined or declared) by name.
func (m *Module) Function(name string) *Function {
	for _, fn := range m.Functions {
		if fn.Name == name {
			return fn
		}
	}
	return nil
}

// Global looks up a global variable by name.
func (m *Module) Global(name string) *Global {
	for _, g := range m.Globals {
		if g.Name == name {
			return g
		}
	}
	return nil
}

// NamedType looks up a named struct type.
func (m *Module) NamedType(name string) *StructType {
	for _, t := range m.Types {
		if t.Name == name {
			return t
		}
	}
	return nil
}

// Function is a function definition, or a declaration when it has no blocks.
type Function struct {
	Name   string
	Return Type
	Params []*Argument
	Blocks []*Block
	Module *Module
}

// IsDeclaration reports whether the function has no body.
func (f *Function) IsDeclaration() bool { return len(f.Blocks) == 0 }

// Entry returns the first block, or nil for declarations.
func (f *Function) Entry() *Block {
	if len(f.Blocks) == 0 {
		return nil
	}
	return f.Blocks[0]
}

// Signature returns the function type.
func (f *Function) Signature() *FuncType {
	params := make([]Type, len(f.Params))
	for i, p := range f.Params {
		params[i] = p.Typ
	}
	return &FuncType{Return: f.Return, Params: params}
}

// Type implements Operand; a function reference is a pointer to its signature.
func (f *Function) Type() Type { return PointerTo(f.Signature()) }

func (*Function) operand() {}

// Block is a basic block: straight-line instructions ending in one terminator.
type Block struct {
	Name         string
	Instructions []Instruction
	Parent       *Function
}

// Terminator returns the last instruction if it transfers control.
func (b *Block) Terminator() Instruction {
	if len(b.Instructions) == 0 {
		return nil
	}
	last := b.Instructions[len(b.Instructions)-1]
	if !IsTerminator(last) {
		return nil
	}
	return last
}

// Phis returns the phi instructions at the head of the block.
func (b *Block) Phis() []*Phi {
	var phis []*Phi
	for _, inst := range b.Instructions {
		phi, ok := inst.(*Phi)
		if !ok {
			break
		}
		phis = append(phis, phi)
	}
	return phis
}

// Append adds an instruction to the end of the block.
func (b *Block) Append(inst Instruction) {
	inst.setParent(b)
	b.Instructions = append(b.Instructions, inst)
}
