package ir

import "fmt"

// Builder helpers. They construct well-typed IR directly and are used by the
// textual loader and by tests; misuse that would produce ill-typed IR panics.

// NewParam creates an unattached function parameter.
func NewParam(name string, typ Type) *Argument {
	return &Argument{Name: name, Typ: typ}
}

// NewFunction appends a function definition to the module. Blocks are added
// with Function.NewBlock.
func (m *Module) NewFunction(name string, ret Type, params ...*Argument) *Function {
	fn := &Function{Name: name, Return: ret, Module: m}
	for i, p := range params {
		p.Index = i
		p.Parent = fn
		fn.Params = append(fn.Params, p)
	}
	m.Functions = append(m.Functions, fn)
	return fn
}

// Declare appends an external function declaration.
func (m *Module) Declare(name string, ret Type, params ...Type) *Function {
	args := make([]*Argument, len(params))
	for i, t := range params {
		args[i] = NewParam("", t)
	}
	return m.NewFunction(name, ret, args...)
}

// NewGlobal appends a global variable.
func (m *Module) NewGlobal(name string, typ Type, init Initializer) *Global {
	g := &Global{Name: name, ValueType: typ, Init: init}
	m.Globals = append(m.Globals, g)
	return g
}

// NewString appends a constant NUL-terminated character array global.
func (m *Module) NewString(name, text string) *Global {
	data := append([]byte(text), 0)
	g := m.NewGlobal(name, ArrayOf(len(data), I8), &StringInit{Data: data})
	g.Constant = true
	return g
}

// NewNamedType registers a named struct type. Fields may be filled in later
// for recursive types.
func (m *Module) NewNamedType(name string, fields ...Type) *StructType {
	t := &StructType{Name: name, Fields: fields}
	m.Types = append(m.Types, t)
	return t
}

// NewBlock appends an empty basic block.
func (f *Function) NewBlock(name string) *Block {
	b := &Block{Name: name, Parent: f}
	f.Blocks = append(f.Blocks, b)
	return b
}

// Block returns the block with the given label.
func (f *Function) Block(name string) *Block {
	for _, b := range f.Blocks {
		if b.Name == name {
			return b
		}
	}
	return nil
}

func (b *Block) add(i Instruction) {
	b.Append(i)
}

// Binary appends an arithmetic instruction.
func (b *Block) Binary(op Opcode, lhs, rhs Operand) *Binary {
	if !op.IsBinary() {
		panic(fmt.Sprintf("ir: %s is not a binary opcode", op))
	}
	i := &Binary{Op: op, LHS: lhs, RHS: rhs}
	b.add(i)
	return i
}

func (b *Block) Add(lhs, rhs Operand) *Binary  { return b.Binary(OpAdd, lhs, rhs) }
func (b *Block) Sub(lhs, rhs Operand) *Binary  { return b.Binary(OpSub, lhs, rhs) }
func (b *Block) Mul(lhs, rhs Operand) *Binary  { return b.Binary(OpMul, lhs, rhs) }
func (b *Block) SDiv(lhs, rhs Operand) *Binary { return b.Binary(OpSDiv, lhs, rhs) }
func (b *Block) SRem(lhs, rhs Operand) *Binary { return b.Binary(OpSRem, lhs, rhs) }
func (b *Block) And(lhs, rhs Operand) *Binary  { return b.Binary(OpAnd, lhs, rhs) }
func (b *Block) Or(lhs, rhs Operand) *Binary   { return b.Binary(OpOr, lhs, rhs) }
func (b *Block) Xor(lhs, rhs Operand) *Binary  { return b.Binary(OpXor, lhs, rhs) }

// Cast appends a cast of v to type to.
func (b *Block) Cast(op Opcode, v Operand, to Type) *Cast {
	if !op.IsCast() {
		panic(fmt.Sprintf("ir: %s is not a cast opcode", op))
	}
	i := &Cast{Op: op, Value: v, To: to}
	b.add(i)
	return i
}

// GEP appends an element-pointer computation. It panics if the indices do not
// fit the base type.
func (b *Block) GEP(base Operand, indices ...Operand) *GetElementPtr {
	elem, err := IndexedType(base.Type(), indices)
	if err != nil {
		panic("ir: " + err.Error())
	}
	i := &GetElementPtr{Base: base, Indices: indices, Typ: PointerTo(elem)}
	b.add(i)
	return i
}

func (b *Block) ICmp(pred Predicate, lhs, rhs Operand) *ICmp {
	i := &ICmp{Pred: pred, LHS: lhs, RHS: rhs}
	b.add(i)
	return i
}

func (b *Block) Select(cond, t, f Operand) *Select {
	i := &Select{Cond: cond, True: t, False: f}
	b.add(i)
	return i
}

// Phi appends a phi; incoming edges are added with Phi.AddIncoming.
func (b *Block) Phi(typ Type) *Phi {
	i := &Phi{Typ: typ}
	b.add(i)
	return i
}

func (b *Block) Ret(v Operand) *Ret {
	i := &Ret{Value: v}
	b.add(i)
	return i
}

func (b *Block) RetVoid() *Ret { return b.Ret(nil) }

func (b *Block) Br(target *Block) *Br {
	i := &Br{Target: target}
	b.add(i)
	return i
}

func (b *Block) CondBr(cond Operand, t, f *Block) *CondBr {
	i := &CondBr{Cond: cond, True: t, False: f}
	b.add(i)
	return i
}

// Switch appends a switch; arms are added with Switch.AddCase.
func (b *Block) Switch(v Operand, def *Block) *Switch {
	i := &Switch{Value: v, Default: def}
	b.add(i)
	return i
}

// AddCase appends an arm.
func (s *Switch) AddCase(v *ConstInt, target *Block) {
	s.Cases = append(s.Cases, SwitchCase{Value: v, Target: target})
}

func (b *Block) Alloca(elem Type) *Alloca {
	i := &Alloca{Elem: elem}
	b.add(i)
	return i
}

func (b *Block) Load(ptr Operand) *Load {
	i := &Load{Ptr: ptr}
	b.add(i)
	return i
}

func (b *Block) Store(v, ptr Operand) *Store {
	i := &Store{Value: v, Ptr: ptr}
	b.add(i)
	return i
}

// Call appends a call. The result type comes from the callee's signature.
func (b *Block) Call(callee Operand, args ...Operand) *Call {
	ret := Type(Void)
	switch c := callee.(type) {
	case *Function:
		ret = c.Return
	default:
		if ft, ok := Elem(callee.Type()).(*FuncType); ok {
			ret = ft.Return
		}
	}
	i := &Call{Callee: callee, Args: args, Typ: ret}
	b.add(i)
	return i
}
