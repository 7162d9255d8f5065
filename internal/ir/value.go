package ir

import "fmt"

// Operand is anything an instruction can consume: another instruction's
// result, a function argument, a global, a constant, or a function reference.
// The set of implementations is closed to this package.
type Operand interface {
	Type() Type
	operand()
}

// Argument is a formal parameter of a function.
type Argument struct {
	Name   string
	Typ    Type
	Index  int
	Parent *Function
}

func (a *Argument) Type() Type { return a.Typ }
func (*Argument) operand()      {}

// ConstInt is an integer constant.
type ConstInt struct {
	Typ   Type
	Value int64
}

func (c *ConstInt) Type() Type { return c.Typ }
func (*ConstInt) operand()      {}

// Null is the null pointer constant.
type Null struct {
	Typ Type
}

func (n *Null) Type() Type { return n.Typ }
func (*Null) operand()      {}

// Undef is an undefined value. It only appears as a phi input in practice.
type Undef struct {
	Typ Type
}

func (u *Undef) Type() Type { return u.Typ }
func (*Undef) operand()      {}

// Int returns an i32 constant.
func Int(v int64) *ConstInt { return &ConstInt{Typ: I32, Value: v} }

// Bool returns an i1 constant.
func Bool(b bool) *ConstInt {
	if b {
		return &ConstInt{Typ: I1, Value: 1}
	}
	return &ConstInt{Typ: I1, Value: 0}
}

// ConstOf returns a constant of the given integer type.
func ConstOf(t Type, v int64) *ConstInt { return &ConstInt{Typ: t, Value: v} }

// NullOf returns the null constant of a pointer type.
func NullOf(t Type) *Null { return &Null{Typ: t} }

// UndefOf returns an undefined value of type t.
func UndefOf(t Type) *Undef { return &Undef{Typ: t} }

// Global is a module-level variable. Its operand type is a pointer to
// ValueType.
type Global struct {
	Name      string
	ValueType Type
	Constant  bool
	Init      Initializer // nil for external globals
}

func (g *Global) Type() Type { return PointerTo(g.ValueType) }
func (*Global) operand()      {}

// Initializer is the constant initial value of a global.
type Initializer interface {
	String() string
	initializer()
}

// IntInit initialises a scalar global.
type IntInit struct{ Value int64 }

// NullInit initialises a pointer global to null.
type NullInit struct{}

// ZeroInit zero-fills a global of any type.
type ZeroInit struct{}

// StringInit is a character-array initializer, including any trailing NUL.
type StringInit struct{ Data []byte }

func (*IntInit) initializer()    {}
func (*NullInit) initializer()   {}
func (*ZeroInit) initializer()   {}
func (*StringInit) initializer() {}

func (i *IntInit) String() string  { return fmt.Sprintf("%d", i.Value) }
func (*NullInit) String() string   { return "null" }
func (*ZeroInit) String() string   { return "zeroinitializer" }
func (s *StringInit) String() string {
	out := []byte{'c', '"'}
	for _, c := range s.Data {
		if c >= 0x20 && c < 0x7f && c != '"' && c != '\\' {
			out = append(out, c)
			continue
		}
		out = append(out, fmt.Sprintf("\\%02X", c)...)
	}
	return string(append(out, '"'))
}

// Text returns the string up to the first NUL.
func (s *StringInit) Text() string {
	for i, c := range s.Data {
		if c == 0 {
			return string(s.Data[:i])
		}
	}
	return string(s.Data)
}

// OperandVisitor receives the concrete kind of an operand.
type OperandVisitor interface {
	VisitResult(inst Instruction) error
	VisitArgument(arg *Argument) error
	VisitGlobal(g *Global) error
	VisitConstInt(c *ConstInt) error
	VisitNull(n *Null) error
	VisitUndef(u *Undef) error
	VisitFunction(fn *Function) error
}

// VisitOperand dispatches op to the matching visitor method. Operand is
// sealed, so every implementation is listed here.
func VisitOperand(op Operand, v OperandVisitor) error {
	switch o := op.(type) {
	case Instruction:
		return v.VisitResult(o)
	case *Argument:
		return v.VisitArgument(o)
	case *Global:
		return v.VisitGlobal(o)
	case *ConstInt:
		return v.VisitConstInt(o)
	case *Null:
		return v.VisitNull(o)
	case *Undef:
		return v.VisitUndef(o)
	case *Function:
		return v.VisitFunction(o)
	}
	panic(fmt.Sprintf("ir: operand %T outside the sealed set", op))
}
