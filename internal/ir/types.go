package ir

import (
	"fmt"
	"strings"
)

// Type is a source IR type. The set of implementations is closed.
type Type interface {
	String() string
	isType()
}

// IntType is an integer of the given bit width.
type IntType struct {
	Bits int
}

// PointerType points at a value of Elem.
type PointerType struct {
	Elem Type
}

// ArrayType is a fixed-length array.
type ArrayType struct {
	Len  int
	Elem Type
}

// StructType is an aggregate. Named structs print as %Name; an opaque struct
// has no known body.
type StructType struct {
	Name   string
	Fields []Type
	Opaque bool
}

// FuncType is the type of a function reference.
type FuncType struct {
	Return Type
	Params []Type
}

// VoidType is the result type of instructions that produce nothing.
type VoidType struct{}

var (
	I1   = &IntType{Bits: 1}
	I8   = &IntType{Bits: 8}
	I16  = &IntType{Bits: 16}
	I32  = &IntType{Bits: 32}
	I64  = &IntType{Bits: 64}
	Void = &VoidType{}
)

// PointerTo returns a pointer type to t.
func PointerTo(t Type) *PointerType { return &PointerType{Elem: t} }

// ArrayOf returns an array type of n elements of t.
func ArrayOf(n int, t Type) *ArrayType { return &ArrayType{Len: n, Elem: t} }

// StructOf returns an anonymous struct type.
func StructOf(fields ...Type) *StructType { return &StructType{Fields: fields} }

func (*IntType) isType()     {}
func (*PointerType) isType() {}
func (*ArrayType) isType()   {}
func (*StructType) isType()  {}
func (*FuncType) isType()    {}
func (*VoidType) isType()    {}

func (t *IntType) String() string     { return fmt.Sprintf("i%d", t.Bits) }
func (t *PointerType) String() string { return t.Elem.String() + "*" }
func (t *ArrayType) String() string   { return fmt.Sprintf("[%d x %s]", t.Len, t.Elem) }
func (*VoidType) String() string      { return "void" }

func (t *StructType) String() string {
	if t.Name != "" {
		return "%" + t.Name
	}
	return t.Body()
}

// Body renders the field list regardless of the struct's name.
func (t *StructType) Body() string {
	if t.Opaque {
		return "opaque"
	}
	if len(t.Fields) == 0 {
		return "{}"
	}
	fields := make([]string, len(t.Fields))
	for i, f := range t.Fields {
		fields[i] = f.String()
	}
	return "{ " + strings.Join(fields, ", ") + " }"
}

func (t *FuncType) String() string {
	params := make([]string, len(t.Params))
	for i, p := range t.Params {
		params[i] = p.String()
	}
	return fmt.Sprintf("%s (%s)", t.Return, strings.Join(params, ", "))
}

// IsInt reports whether t is an integer type of the given width.
func IsInt(t Type, bits int) bool {
	it, ok := t.(*IntType)
	return ok && it.Bits == bits
}

// IsVoid reports whether t is the void type.
func IsVoid(t Type) bool {
	_, ok := t.(*VoidType)
	return ok
}

// Elem returns the pointee of a pointer type, or nil.
func Elem(t Type) Type {
	if pt, ok := t.(*PointerType); ok {
		return pt.Elem
	}
	return nil
}

// IndexedType walks an element-pointer index list starting from the pointer
// type ptr and returns the type the resulting pointer points at. The first
// index steps over the pointer itself; later indices step into arrays and
// structs (struct indices must be constants).
func IndexedType(ptr Type, indices []Operand) (Type, error) {
	cur := Elem(ptr)
	if cur == nil {
		return nil, fmt.Errorf("getelementptr base must be a pointer, got %s", ptr)
	}
	for _, idx := range indices[min(1, len(indices)):] {
		switch t := cur.(type) {
		case *ArrayType:
			cur = t.Elem
		case *StructType:
			c, ok := idx.(*ConstInt)
			if !ok {
				return nil, fmt.Errorf("struct index into %s must be a constant", t)
			}
			if c.Value < 0 || int(c.Value) >= len(t.Fields) {
				return nil, fmt.Errorf("struct index %d out of range for %s", c.Value, t)
			}
			cur = t.Fields[c.Value]
		default:
			return nil, fmt.Errorf("cannot index into %s", cur)
		}
	}
	return cur, nil
}

// SizeOf returns the number of memory words a value of type t occupies.
// Pointers and integers up to 32 bits take one word each; arrays and
// structs are the sum of their elements.
func SizeOf(t Type) (int, error) {
	switch t := t.(type) {
	case *PointerType:
		return 1, nil
	case *IntType:
		if t.Bits <= 0 || t.Bits > 32 {
			return 0, fmt.Errorf("integer type %s is wider than one word", t)
		}
		return 1, nil
	case *ArrayType:
		elem, err := SizeOf(t.Elem)
		if err != nil {
			return 0, err
		}
		return t.Len * elem, nil
	case *StructType:
		if t.Opaque {
			return 0, fmt.Errorf("opaque struct %s has no size", t)
		}
		size := 0
		for _, f := range t.Fields {
			n, err := SizeOf(f)
			if err != nil {
				return 0, err
			}
			size += n
		}
		return size, nil
	}
	return 0, fmt.Errorf("type %s has no size", t)
}
