package ir

import (
	"fmt"
	"strings"
)

// Printer renders IR as LLVM-style assembly text, the same dialect the
// grammar package parses.
type Printer struct {
	indent int
	output strings.Builder
	slots  map[any]int // numbering of unnamed values in the current function
}

// NewPrinter creates a new IR printer
func NewPrinter() *Printer {
	return &Printer{indent: 0}
}

// Print returns the textual form of a module
func Print(m *Module) string {
	p := NewPrinter()
	p.printModule(m)
	return p.output.String()
}

// FormatInstruction renders a single instruction without indentation.
// Unnamed values are numbered relative to the enclosing function.
func FormatInstruction(inst Instruction) string {
	p := NewPrinter()
	if b := inst.Parent(); b != nil && b.Parent != nil {
		p.numberFunction(b.Parent)
	}
	return p.instruction(inst)
}

// Helper methods

func (p *Printer) writeIndent() {
	for i := 0; i < p.indent; i++ {
		p.output.WriteString("  ")
	}
}

func (p *Printer) writeLine(format string, args ...interface{}) {
	p.writeIndent()
	p.output.WriteString(fmt.Sprintf(format, args...))
	p.output.WriteString("\n")
}

func (p *Printer) printModule(m *Module) {
	if m.Name != "" {
		p.writeLine("; ModuleID = '%s'", m.Name)
	}
	for _, t := range m.Types {
		p.writeLine("%%%s = type %s", t.Name, t.Body())
	}
	if len(m.Types) > 0 {
		p.writeLine("")
	}

	for _, g := range m.Globals {
		p.printGlobal(g)
	}
	if len(m.Globals) > 0 {
		p.writeLine("")
	}

	for i, fn := range m.Functions {
		if i > 0 {
			p.writeLine("")
		}
		p.printFunction(fn)
	}
}

func (p *Printer) printGlobal(g *Global) {
	kind := "global"
	if g.Constant {
		kind = "constant"
	}
	if g.Init == nil {
		p.writeLine("@%s = external %s %s", g.Name, kind, g.ValueType)
		return
	}
	p.writeLine("@%s = %s %s %s", g.Name, kind, g.ValueType, g.Init)
}

func (p *Printer) printFunction(fn *Function) {
	p.numberFunction(fn)

	params := make([]string, len(fn.Params))
	for i, a := range fn.Params {
		if fn.IsDeclaration() {
			params[i] = a.Typ.String()
		} else {
			params[i] = a.Typ.String() + " " + p.ref(a)
		}
	}
	if fn.IsDeclaration() {
		p.writeLine("declare %s @%s(%s)", fn.Return, fn.Name, strings.Join(params, ", "))
		return
	}

	p.writeLine("define %s @%s(%s) {", fn.Return, fn.Name, strings.Join(params, ", "))
	for i, b := range fn.Blocks {
		if i > 0 {
			p.writeLine("")
		}
		p.writeLine("%s:", p.label(b))
		p.indent++
		for _, inst := range b.Instructions {
			p.writeLine("%s", p.instruction(inst))
		}
		p.indent--
	}
	p.writeLine("}")
}

// numberFunction assigns sequential numbers to unnamed arguments, blocks and
// value-producing instructions, the way LLVM does.
func (p *Printer) numberFunction(fn *Function) {
	p.slots = make(map[any]int)
	n := 0
	for _, a := range fn.Params {
		if a.Name == "" {
			p.slots[a] = n
			n++
		}
	}
	for _, b := range fn.Blocks {
		if b.Name == "" {
			p.slots[b] = n
			n++
		}
		for _, inst := range b.Instructions {
			if inst.Name() == "" && HasResult(inst) {
				p.slots[inst] = n
				n++
			}
		}
	}
}

func (p *Printer) label(b *Block) string {
	if b.Name != "" {
		return b.Name
	}
	if n, ok := p.slots[b]; ok {
		return fmt.Sprintf("%d", n)
	}
	return "?"
}

func (p *Printer) local(key any, name string) string {
	if name != "" {
		return "%" + name
	}
	if n, ok := p.slots[key]; ok {
		return fmt.Sprintf("%%%d", n)
	}
	return "%?"
}

// ref renders an operand without its type.
func (p *Printer) ref(op Operand) string {
	switch o := op.(type) {
	case Instruction:
		return p.local(o, o.Name())
	case *Argument:
		return p.local(o, o.Name)
	case *Global:
		return "@" + o.Name
	case *Function:
		return "@" + o.Name
	case *ConstInt:
		if IsInt(o.Typ, 1) {
			if o.Value != 0 {
				return "true"
			}
			return "false"
		}
		return fmt.Sprintf("%d", o.Value)
	case *Null:
		return "null"
	case *Undef:
		return "undef"
	}
	return "?"
}

// typed renders an operand preceded by its type.
func (p *Printer) typed(op Operand) string {
	return op.Type().String() + " " + p.ref(op)
}

func (p *Printer) blockRef(b *Block) string {
	return "label %" + p.label(b)
}

func (p *Printer) instruction(inst Instruction) string {
	body := p.body(inst)
	if HasResult(inst) {
		return p.ref(inst) + " = " + body
	}
	return body
}

func (p *Printer) body(inst Instruction) string {
	switch i := inst.(type) {
	case *Binary:
		return fmt.Sprintf("%s %s, %s", i.Op, p.typed(i.LHS), p.ref(i.RHS))
	case *Cast:
		return fmt.Sprintf("%s %s to %s", i.Op, p.typed(i.Value), i.To)
	case *GetElementPtr:
		parts := []string{p.typed(i.Base)}
		for _, idx := range i.Indices {
			parts = append(parts, p.typed(idx))
		}
		return "getelementptr " + strings.Join(parts, ", ")
	case *ICmp:
		return fmt.Sprintf("icmp %s %s, %s", i.Pred, p.typed(i.LHS), p.ref(i.RHS))
	case *Select:
		return fmt.Sprintf("select %s, %s, %s", p.typed(i.Cond), p.typed(i.True), p.typed(i.False))
	case *Phi:
		edges := make([]string, len(i.Incoming))
		for n, in := range i.Incoming {
			edges[n] = fmt.Sprintf("[ %s, %%%s ]", p.ref(in.Value), p.label(in.Block))
		}
		return fmt.Sprintf("phi %s %s", i.Typ, strings.Join(edges, ", "))
	case *Ret:
		if i.Value == nil {
			return "ret void"
		}
		return "ret " + p.typed(i.Value)
	case *Br:
		return "br " + p.blockRef(i.Target)
	case *CondBr:
		return fmt.Sprintf("br %s, %s, %s", p.typed(i.Cond), p.blockRef(i.True), p.blockRef(i.False))
	case *Switch:
		arms := make([]string, len(i.Cases))
		for n, c := range i.Cases {
			arms[n] = fmt.Sprintf("%s, %s", p.typed(c.Value), p.blockRef(c.Target))
		}
		return fmt.Sprintf("switch %s, %s [ %s ]", p.typed(i.Value), p.blockRef(i.Default), strings.Join(arms, " "))
	case *Alloca:
		return "alloca " + i.Elem.String()
	case *Load:
		return "load " + p.typed(i.Ptr)
	case *Store:
		return fmt.Sprintf("store %s, %s", p.typed(i.Value), p.typed(i.Ptr))
	case *Call:
		args := make([]string, len(i.Args))
		for n, a := range i.Args {
			args[n] = p.typed(a)
		}
		return fmt.Sprintf("call %s %s(%s)", i.Typ, p.ref(i.Callee), strings.Join(args, ", "))
	}
	return fmt.Sprintf("<%s>", inst.Opcode())
}
