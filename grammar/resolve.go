package grammar

import (
	"fmt"
	"strconv"
	"strings"

	"befc/internal/errors"
	"befc/internal/ir"
)

func (l *loader) resolveType(te *TypeExpr) (ir.Type, error) {
	if te == nil {
		return ir.Void, nil
	}

	var t ir.Type
	switch {
	case te.Void:
		t = ir.Void
	case te.Int != "":
		bits, err := strconv.Atoi(strings.TrimPrefix(te.Int, "i"))
		if err != nil || bits <= 0 {
			return nil, errors.Syntax(fmt.Sprintf("bad integer type %s", te.Int), position(te.Pos))
		}
		t = &ir.IntType{Bits: bits}
	case te.Named != "":
		name := strings.TrimPrefix(te.Named, "%")
		named, ok := l.types[name]
		if !ok {
			return nil, errors.UndefinedType(name, position(te.Pos))
		}
		t = named
	case te.Array != nil:
		elem, err := l.resolveType(te.Array.Elem)
		if err != nil {
			return nil, err
		}
		t = ir.ArrayOf(te.Array.Len, elem)
	case te.Struct != nil:
		fields := make([]ir.Type, 0, len(te.Struct.Fields))
		for _, f := range te.Struct.Fields {
			ft, err := l.resolveType(f)
			if err != nil {
				return nil, err
			}
			fields = append(fields, ft)
		}
		t = ir.StructOf(fields...)
	}

	for _, s := range te.Suffixes {
		if s.Pointer {
			t = ir.PointerTo(t)
			continue
		}
		ft := &ir.FuncType{Return: t}
		for _, p := range s.Func.Params {
			if p.Variadic {
				continue
			}
			pt, err := l.resolveType(p.Type)
			if err != nil {
				return nil, err
			}
			ft.Params = append(ft.Params, pt)
		}
		t = ft
	}
	return t, nil
}

// value resolves v as an operand of type typ.
func (l *loader) value(v *Value, typ ir.Type) (ir.Operand, error) {
	pos := position(v.Pos)
	switch {
	case v.Local != nil:
		name := strings.TrimPrefix(*v.Local, "%")
		op, ok := l.locals[name]
		if !ok {
			return nil, errors.UndefinedValue(name, pos, l.knownLocals())
		}
		return op, l.checkType(op, typ, pos)
	case v.Global != nil:
		name := strings.TrimPrefix(*v.Global, "@")
		op, ok := l.globals[name]
		if !ok {
			return nil, errors.UndefinedGlobal(name, pos, l.knownGlobals())
		}
		return op, l.checkType(op, typ, pos)
	case v.Int != nil:
		if _, ok := typ.(*ir.IntType); !ok {
			return nil, errors.TypeMismatch(typ.String(), "an integer constant", pos)
		}
		return ir.ConstOf(typ, *v.Int), nil
	case v.Bool != nil:
		if !ir.IsInt(typ, 1) {
			return nil, errors.TypeMismatch(typ.String(), "i1", pos)
		}
		return ir.Bool(*v.Bool == "true"), nil
	case v.Null:
		if ir.Elem(typ) == nil {
			return nil, errors.TypeMismatch(typ.String(), "null", pos)
		}
		return ir.NullOf(typ), nil
	case v.Undef:
		return ir.UndefOf(typ), nil
	case v.Zero:
		if _, ok := typ.(*ir.IntType); ok {
			return ir.ConstOf(typ, 0), nil
		}
		if ir.Elem(typ) != nil {
			return ir.NullOf(typ), nil
		}
		return nil, errors.UnsupportedConstant(fmt.Sprintf("zeroinitializer of %s cannot be used as an operand", typ), pos)
	case v.GEP != nil:
		return l.constGEP(v.GEP, pos)
	default:
		inner, err := l.resolveType(v.Cast.Value.Type)
		if err != nil {
			return nil, err
		}
		return l.value(v.Cast.Value.Value, inner)
	}
}

// constGEP folds a constant getelementptr whose indices are all zero to its
// base; clang emits these to decay string arrays to i8*.
func (l *loader) constGEP(gep *ConstGEP, pos errors.Position) (ir.Operand, error) {
	ptrType, err := l.gepPointerType(gep.Body)
	if err != nil {
		return nil, err
	}
	base, err := l.value(gep.Body.Base, ptrType)
	if err != nil {
		return nil, err
	}
	for _, idx := range gep.Body.Indices {
		if idx.Value.Int == nil || *idx.Value.Int != 0 {
			return nil, errors.UnsupportedConstant("constant getelementptr with non-zero indices", pos)
		}
	}
	return base, nil
}

func (l *loader) gepPointerType(body *GEPBody) (ir.Type, error) {
	if body.Second != nil {
		return l.resolveType(body.Second)
	}
	return l.resolveType(body.First)
}

func (l *loader) checkType(op ir.Operand, want ir.Type, pos errors.Position) error {
	if want == nil {
		return nil
	}
	got := l.typeOf(op)
	if got == nil {
		return nil
	}
	if got.String() != want.String() {
		return errors.TypeMismatch(want.String(), got.String(), pos)
	}
	return nil
}

// typeOf is op.Type, except that instructions whose operands are not filled
// in yet report the type their source spelled out.
func (l *loader) typeOf(op ir.Operand) ir.Type {
	inst, ok := op.(ir.Instruction)
	if !ok {
		return op.Type()
	}
	if t, ok := l.declared[inst]; ok {
		return t
	}
	if gep, ok := inst.(*ir.GetElementPtr); ok && gep.Typ != nil {
		return gep.Typ
	}
	return nil
}

func (l *loader) typedValue(tv *TypedValue) (ir.Operand, error) {
	t, err := l.resolveType(tv.Type)
	if err != nil {
		return nil, err
	}
	return l.value(tv.Value, t)
}

// fill resolves the operands of an instruction created in the first pass.
func (l *loader) fill(inst ir.Instruction, ast *Instruction) error {
	pos := position(ast.Pos)
	switch i := inst.(type) {
	case *ir.Binary:
		op, ok := ir.BinaryOpcode(ast.Binary.Op)
		if !ok {
			return unsupported(ast.Binary.Op, pos)
		}
		t, err := l.resolveType(ast.Binary.Type)
		if err != nil {
			return err
		}
		i.Op = op
		if i.LHS, err = l.value(ast.Binary.LHS, t); err != nil {
			return err
		}
		i.RHS, err = l.value(ast.Binary.RHS, t)
		return err

	case *ir.Cast:
		op, ok := ir.CastOpcode(ast.Cast.Op)
		if !ok {
			return unsupported(ast.Cast.Op, pos)
		}
		from, err := l.resolveType(ast.Cast.From)
		if err != nil {
			return err
		}
		i.Op = op
		if i.To, err = l.resolveType(ast.Cast.To); err != nil {
			return err
		}
		i.Value, err = l.value(ast.Cast.Value, from)
		return err

	case *ir.GetElementPtr:
		body := ast.GEP.Body
		ptrType, err := l.gepPointerType(body)
		if err != nil {
			return err
		}
		if i.Base, err = l.value(body.Base, ptrType); err != nil {
			return err
		}
		for _, idx := range body.Indices {
			op, err := l.typedValue(idx)
			if err != nil {
				return err
			}
			i.Indices = append(i.Indices, op)
		}
		elem, err := ir.IndexedType(ptrType, i.Indices)
		if err != nil {
			return errors.TypeMismatch("an indexable pointer", err.Error(), pos)
		}
		i.Typ = ir.PointerTo(elem)
		return nil

	case *ir.ICmp:
		pred, ok := ir.ParsePredicate(ast.ICmp.Pred)
		if !ok {
			return errors.NewError(errors.ErrorUnsupportedPredicate,
				fmt.Sprintf("unsupported comparison predicate '%s'", ast.ICmp.Pred)).
				At(pos).
				WithNote("supported predicates: eq, ne, ugt, uge, ult, ule, sgt, sge, slt, sle").
				Build()
		}
		t, err := l.resolveType(ast.ICmp.Type)
		if err != nil {
			return err
		}
		i.Pred = pred
		if i.LHS, err = l.value(ast.ICmp.LHS, t); err != nil {
			return err
		}
		i.RHS, err = l.value(ast.ICmp.RHS, t)
		return err

	case *ir.Select:
		var err error
		if i.Cond, err = l.typedValue(ast.Select.Cond); err != nil {
			return err
		}
		if i.True, err = l.typedValue(ast.Select.True); err != nil {
			return err
		}
		i.False, err = l.typedValue(ast.Select.False)
		return err

	case *ir.Phi:
		t, err := l.resolveType(ast.Phi.Type)
		if err != nil {
			return err
		}
		i.Typ = t
		for _, e := range ast.Phi.Edges {
			from, err := l.block(e.Block, e.Pos)
			if err != nil {
				return err
			}
			v, err := l.value(e.Value, t)
			if err != nil {
				return err
			}
			i.AddIncoming(v, from)
		}
		return nil

	case *ir.Ret:
		if ast.Ret.Void {
			return nil
		}
		t, err := l.resolveType(ast.Ret.Type)
		if err != nil {
			return err
		}
		i.Value, err = l.value(ast.Ret.Value, t)
		return err

	case *ir.Br:
		var err error
		i.Target, err = l.block(ast.Br.Target, ast.Pos)
		return err

	case *ir.CondBr:
		var err error
		if i.Cond, err = l.typedValue(ast.Br.Cond); err != nil {
			return err
		}
		if i.True, err = l.block(ast.Br.True, ast.Pos); err != nil {
			return err
		}
		i.False, err = l.block(ast.Br.False, ast.Pos)
		return err

	case *ir.Switch:
		var err error
		if i.Value, err = l.typedValue(ast.Switch.Value); err != nil {
			return err
		}
		if i.Default, err = l.block(ast.Switch.Default, ast.Pos); err != nil {
			return err
		}
		for _, c := range ast.Switch.Cases {
			v, err := l.typedValue(c.Value)
			if err != nil {
				return err
			}
			ci, ok := v.(*ir.ConstInt)
			if !ok {
				return errors.UnsupportedConstant("switch case values must be integer constants", position(c.Pos))
			}
			target, err := l.block(c.Target, c.Pos)
			if err != nil {
				return err
			}
			i.AddCase(ci, target)
		}
		return nil

	case *ir.Alloca:
		var err error
		i.Elem, err = l.resolveType(ast.Alloca.Type)
		return err

	case *ir.Load:
		ptrType, err := l.resolveType(ast.Load.First)
		if err != nil {
			return err
		}
		if ast.Load.Second != nil {
			if ptrType, err = l.resolveType(ast.Load.Second); err != nil {
				return err
			}
		}
		i.Ptr, err = l.value(ast.Load.Ptr, ptrType)
		return err

	case *ir.Store:
		var err error
		if i.Value, err = l.typedValue(ast.Store.Value); err != nil {
			return err
		}
		i.Ptr, err = l.typedValue(ast.Store.Ptr)
		return err

	case *ir.Call:
		return l.fillCall(i, ast.Call)
	}
	return fmt.Errorf("grammar: unexpected instruction %T", inst)
}

func (l *loader) fillCall(i *ir.Call, call *CallInst) error {
	ret, err := l.resolveType(call.Type)
	if err != nil {
		return err
	}
	// "call i32 (i8*, ...) @printf" spells the whole signature.
	if ft, ok := ret.(*ir.FuncType); ok {
		ret = ft.Return
	}
	if call.Callee.Local == nil && call.Callee.Global == nil {
		return errors.UnsupportedConstant("call target must be a named function or value", position(call.Callee.Pos))
	}
	if i.Callee, err = l.value(call.Callee, nil); err != nil {
		return err
	}
	i.Typ = ret
	if fn := i.CalledFunction(); fn != nil {
		i.Typ = fn.Return
	}
	for _, a := range call.Args {
		t, err := l.resolveType(a.Type)
		if err != nil {
			return err
		}
		op, err := l.value(a.Value, t)
		if err != nil {
			return err
		}
		i.Args = append(i.Args, op)
	}
	return nil
}

func unsupported(op string, pos errors.Position) error {
	return errors.NewError(errors.ErrorUnsupportedOpcode, fmt.Sprintf("unsupported instruction '%s'", op)).
		At(pos).
		WithLength(len(op)).
		Build()
}
