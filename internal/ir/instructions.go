package ir

import "fmt"

// Opcode identifies the operation an instruction performs.
type Opcode int

const (
	OpInvalid Opcode = iota

	// Integer arithmetic
	OpAdd
	OpSub
	OpMul
	OpSDiv
	OpSRem
	OpAnd // i1 only when lowered
	OpOr  // i1 only when lowered
	OpXor // i1 only when lowered

	// Casts; all are value-preserving on the target
	OpBitcast
	OpPtrToInt
	OpSExt
	OpZExt

	OpGetElementPtr
	OpICmp
	OpSelect
	OpPhi

	// Terminators
	OpRet
	OpBr
	OpCondBr
	OpSwitch

	// Memory
	OpAlloca
	OpLoad
	OpStore

	OpCall

	opCount // sentinel; must be last
)

// opNames maps each Opcode to its textual mnemonic.
var opNames = [opCount]string{
	OpInvalid:       "invalid",
	OpAdd:           "add",
	OpSub:           "sub",
	OpMul:           "mul",
	OpSDiv:          "sdiv",
	OpSRem:          "srem",
	OpAnd:           "and",
	OpOr:            "or",
	OpXor:           "xor",
	OpBitcast:       "bitcast",
	OpPtrToInt:      "ptrtoint",
	OpSExt:          "sext",
	OpZExt:          "zext",
	OpGetElementPtr: "getelementptr",
	OpICmp:          "icmp",
	OpSelect:        "select",
	OpPhi:           "phi",
	OpRet:           "ret",
	OpBr:            "br",
	OpCondBr:        "br",
	OpSwitch:        "switch",
	OpAlloca:        "alloca",
	OpLoad:          "load",
	OpStore:         "store",
	OpCall:          "call",
}

func (op Opcode) String() string {
	if op < 0 || op >= opCount {
		return fmt.Sprintf("Opcode(%d)", int(op))
	}
	return opNames[op]
}

// IsBinary reports whether op is an integer arithmetic opcode.
func (op Opcode) IsBinary() bool { return op >= OpAdd && op <= OpXor }

// IsCast reports whether op is a cast opcode.
func (op Opcode) IsCast() bool { return op >= OpBitcast && op <= OpZExt }

// BinaryOpcode returns the arithmetic opcode spelled by name.
func BinaryOpcode(name string) (Opcode, bool) {
	for op := OpAdd; op <= OpXor; op++ {
		if opNames[op] == name {
			return op, true
		}
	}
	return OpInvalid, false
}

// CastOpcode returns the cast opcode spelled by name.
func CastOpcode(name string) (Opcode, bool) {
	for op := OpBitcast; op <= OpZExt; op++ {
		if opNames[op] == name {
			return op, true
		}
	}
	return OpInvalid, false
}

// Predicate is an integer comparison predicate.
type Predicate int

const (
	PredInvalid Predicate = iota
	PredEQ
	PredNE
	PredUGT
	PredUGE
	PredULT
	PredULE
	PredSGT
	PredSGE
	PredSLT
	PredSLE
)

var predNames = [...]string{
	PredInvalid: "invalid",
	PredEQ:      "eq",
	PredNE:      "ne",
	PredUGT:     "ugt",
	PredUGE:     "uge",
	PredULT:     "ult",
	PredULE:     "ule",
	PredSGT:     "sgt",
	PredSGE:     "sge",
	PredSLT:     "slt",
	PredSLE:     "sle",
}

func (p Predicate) String() string {
	if p < 0 || int(p) >= len(predNames) {
		return fmt.Sprintf("Predicate(%d)", int(p))
	}
	return predNames[p]
}

// IsUnsigned reports whether p compares as unsigned 32-bit integers.
func (p Predicate) IsUnsigned() bool { return p >= PredUGT && p <= PredULE }

// ParsePredicate returns the predicate spelled by name.
func ParsePredicate(name string) (Predicate, bool) {
	for p := PredEQ; int(p) < len(predNames); p++ {
		if predNames[p] == name {
			return p, true
		}
	}
	return PredInvalid, false
}

// Instruction is one SSA instruction. Instructions that produce a value are
// themselves operands of later instructions.
type Instruction interface {
	Operand
	Opcode() Opcode
	Name() string
	SetName(name string)
	Parent() *Block
	Operands() []Operand
	Accept(v InstructionVisitor) error
	setParent(b *Block)
}

// inst holds what every instruction shares.
type inst struct {
	name   string
	parent *Block
}

func (i *inst) Name() string         { return i.name }
func (i *inst) SetName(name string)  { i.name = name }
func (i *inst) Parent() *Block       { return i.parent }
func (i *inst) setParent(b *Block)   { i.parent = b }
func (*inst) operand()               {}

// Binary is an integer arithmetic instruction.
type Binary struct {
	inst
	Op       Opcode
	LHS, RHS Operand
}

// Cast converts a value between integer and pointer types.
type Cast struct {
	inst
	Op    Opcode
	Value Operand
	To    Type
}

// GetElementPtr computes an address from a base pointer and indices.
type GetElementPtr struct {
	inst
	Base    Operand
	Indices []Operand
	Typ     Type // result pointer type
}

// ICmp compares two integers or pointers and yields an i1.
type ICmp struct {
	inst
	Pred     Predicate
	LHS, RHS Operand
}

// Select chooses between two values on an i1 condition.
type Select struct {
	inst
	Cond        Operand
	True, False Operand
}

// Incoming is one (value, predecessor) pair of a phi.
type Incoming struct {
	Value Operand
	Block *Block
}

// Phi merges values from predecessor blocks.
type Phi struct {
	inst
	Typ      Type
	Incoming []Incoming
}

// AddIncoming appends an incoming edge.
func (p *Phi) AddIncoming(v Operand, from *Block) {
	p.Incoming = append(p.Incoming, Incoming{Value: v, Block: from})
}

// ValueFor returns the incoming value for the edge from pred.
func (p *Phi) ValueFor(pred *Block) (Operand, bool) {
	for _, in := range p.Incoming {
		if in.Block == pred {
			return in.Value, true
		}
	}
	return nil, false
}

// Ret returns from the function; Value is nil for a void return.
type Ret struct {
	inst
	Value Operand
}

// Br jumps unconditionally.
type Br struct {
	inst
	Target *Block
}

// CondBr jumps to True when Cond is non-zero and False otherwise.
type CondBr struct {
	inst
	Cond        Operand
	True, False *Block
}

// SwitchCase is one arm of a switch.
type SwitchCase struct {
	Value  *ConstInt
	Target *Block
}

// Switch compares Value against each case and jumps to the matching target.
type Switch struct {
	inst
	Value   Operand
	Default *Block
	Cases   []SwitchCase
}

// Alloca reserves stack space for one value of Elem.
type Alloca struct {
	inst
	Elem Type
}

// Load reads the value Ptr points at.
type Load struct {
	inst
	Ptr Operand
}

// Store writes Value through Ptr.
type Store struct {
	inst
	Value Operand
	Ptr   Operand
}

// Call invokes Callee with Args.
type Call struct {
	inst
	Callee Operand
	Args   []Operand
	Typ    Type // return type
}

// CalledFunction returns the statically known callee, or nil for an
// indirect call.
func (c *Call) CalledFunction() *Function {
	fn, _ := c.Callee.(*Function)
	return fn
}

func (i *Binary) Opcode() Opcode        { return i.Op }
func (i *Cast) Opcode() Opcode          { return i.Op }
func (*GetElementPtr) Opcode() Opcode   { return OpGetElementPtr }
func (*ICmp) Opcode() Opcode            { return OpICmp }
func (*Select) Opcode() Opcode          { return OpSelect }
func (*Phi) Opcode() Opcode             { return OpPhi }
func (*Ret) Opcode() Opcode             { return OpRet }
func (*Br) Opcode() Opcode              { return OpBr }
func (*CondBr) Opcode() Opcode          { return OpCondBr }
func (*Switch) Opcode() Opcode          { return OpSwitch }
func (*Alloca) Opcode() Opcode          { return OpAlloca }
func (*Load) Opcode() Opcode            { return OpLoad }
func (*Store) Opcode() Opcode           { return OpStore }
func (*Call) Opcode() Opcode            { return OpCall }

func (i *Binary) Type() Type        { return i.LHS.Type() }
func (i *Cast) Type() Type          { return i.To }
func (i *GetElementPtr) Type() Type { return i.Typ }
func (*ICmp) Type() Type            { return I1 }
func (i *Select) Type() Type        { return i.True.Type() }
func (i *Phi) Type() Type           { return i.Typ }
func (*Ret) Type() Type             { return Void }
func (*Br) Type() Type              { return Void }
func (*CondBr) Type() Type          { return Void }
func (*Switch) Type() Type          { return Void }
func (i *Alloca) Type() Type        { return PointerTo(i.Elem) }
func (*Store) Type() Type           { return Void }
func (i *Call) Type() Type          { return i.Typ }

func (i *Load) Type() Type {
	if t := Elem(i.Ptr.Type()); t != nil {
		return t
	}
	return Void
}

func (i *Binary) Operands() []Operand { return []Operand{i.LHS, i.RHS} }
func (i *Cast) Operands() []Operand   { return []Operand{i.Value} }
func (i *ICmp) Operands() []Operand   { return []Operand{i.LHS, i.RHS} }
func (i *Select) Operands() []Operand { return []Operand{i.Cond, i.True, i.False} }
func (*Br) Operands() []Operand       { return nil }
func (*Alloca) Operands() []Operand   { return nil }
func (i *Load) Operands() []Operand   { return []Operand{i.Ptr} }
func (i *Store) Operands() []Operand  { return []Operand{i.Value, i.Ptr} }

func (i *GetElementPtr) Operands() []Operand {
	return append([]Operand{i.Base}, i.Indices...)
}

func (i *Phi) Operands() []Operand {
	ops := make([]Operand, len(i.Incoming))
	for n, in := range i.Incoming {
		ops[n] = in.Value
	}
	return ops
}

func (i *Ret) Operands() []Operand {
	if i.Value == nil {
		return nil
	}
	return []Operand{i.Value}
}

func (i *CondBr) Operands() []Operand { return []Operand{i.Cond} }

func (i *Switch) Operands() []Operand {
	ops := []Operand{i.Value}
	for _, c := range i.Cases {
		ops = append(ops, c.Value)
	}
	return ops
}

func (i *Call) Operands() []Operand {
	return append([]Operand{i.Callee}, i.Args...)
}

// IsTerminator reports whether inst ends a basic block.
func IsTerminator(inst Instruction) bool {
	switch inst.Opcode() {
	case OpRet, OpBr, OpCondBr, OpSwitch:
		return true
	}
	return false
}

// Successors returns the blocks a terminator may transfer control to.
func Successors(inst Instruction) []*Block {
	switch t := inst.(type) {
	case *Br:
		return []*Block{t.Target}
	case *CondBr:
		return []*Block{t.True, t.False}
	case *Switch:
		succs := []*Block{t.Default}
		for _, c := range t.Cases {
			succs = append(succs, c.Target)
		}
		return succs
	}
	return nil
}

// HasResult reports whether inst produces a value.
func HasResult(inst Instruction) bool { return !IsVoid(inst.Type()) }
