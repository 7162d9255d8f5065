package grammar

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/alecthomas/participle/v2/lexer"

	"befc/internal/errors"
	"befc/internal/ir"
)

// Unit is a loaded module together with where each instruction came from.
type Unit struct {
	Module    *ir.Module
	Filename  string
	Source    string
	positions map[ir.Instruction]errors.Position
}

// Position returns the source position of inst.
func (u *Unit) Position(inst ir.Instruction) (errors.Position, bool) {
	pos, ok := u.positions[inst]
	return pos, ok
}

// Locate fills in the position of an error raised against an instruction of
// this unit.
func (u *Unit) Locate(err *errors.CompilerError) {
	if err == nil || err.Position.IsValid() || err.Inst == nil {
		return
	}
	if pos, ok := u.positions[err.Inst]; ok {
		err.Position = pos
	}
}

// LoadFile reads and loads path.
func LoadFile(path string) (*Unit, error) {
	source, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return Load(path, string(source))
}

// Load parses source and builds the module it describes. Names are resolved
// in two passes so that types, globals and functions may be used before they
// are defined, and values and labels may be used anywhere in their function.
func Load(filename, source string) (*Unit, error) {
	file, err := Parse(filename, source)
	if err != nil {
		return nil, err
	}

	l := &loader{
		unit: &Unit{
			Module:    ir.NewModule(moduleName(file, filename)),
			Filename:  filename,
			Source:    source,
			positions: make(map[ir.Instruction]errors.Position),
		},
		types:   make(map[string]*ir.StructType),
		globals: make(map[string]ir.Operand),
	}
	if err := l.load(file); err != nil {
		return nil, err
	}
	return l.unit, nil
}

func moduleName(file *File, filename string) string {
	for _, e := range file.Entries {
		if e.Source != nil {
			return strings.Trim(e.Source.Name, `"`)
		}
	}
	return filename
}

func position(pos lexer.Position) errors.Position {
	return errors.Position{Line: pos.Line, Column: pos.Column}
}

type loader struct {
	unit    *Unit
	types   map[string]*ir.StructType
	globals map[string]ir.Operand // globals and functions

	// Per function.
	fn       *ir.Function
	locals   map[string]ir.Operand
	blocks   map[string]*ir.Block
	declared map[ir.Instruction]ir.Type // result types known before operands are filled
	nextNum  int
}

func (l *loader) module() *ir.Module { return l.unit.Module }

func (l *loader) load(file *File) error {
	// Named types first, with bodies filled in once every name is known.
	for _, e := range file.Entries {
		if td := e.TypeDef; td != nil {
			name := strings.TrimPrefix(td.Name, "%")
			if _, dup := l.types[name]; dup {
				return errors.DuplicateDefinition("%"+name, position(td.Pos))
			}
			t := l.module().NewNamedType(name)
			t.Opaque = td.Opaque
			l.types[name] = t
		}
	}
	for _, e := range file.Entries {
		if td := e.TypeDef; td != nil && !td.Opaque {
			if err := l.defineType(td); err != nil {
				return err
			}
		}
	}

	for _, e := range file.Entries {
		var err error
		switch {
		case e.Global != nil:
			err = l.declareGlobal(e.Global)
		case e.Declare != nil:
			_, err = l.declareFunction(e.Declare.Name, e.Declare.Return, e.Declare.Params, e.Declare.Pos)
		case e.Define != nil:
			_, err = l.declareFunction(e.Define.Name, e.Define.Return, e.Define.Params, e.Define.Pos)
		}
		if err != nil {
			return err
		}
	}

	for _, e := range file.Entries {
		if e.Define != nil {
			if err := l.defineBody(e.Define); err != nil {
				return err
			}
		}
	}
	return nil
}

func (l *loader) defineType(td *TypeDef) error {
	body, err := l.resolveType(td.Body)
	if err != nil {
		return err
	}
	st, ok := body.(*ir.StructType)
	if !ok || st.Name != "" {
		return errors.TypeMismatch("a struct body", body.String(), position(td.Body.Pos))
	}
	l.types[strings.TrimPrefix(td.Name, "%")].Fields = st.Fields
	return nil
}

func (l *loader) declareGlobal(g *GlobalDef) error {
	name := strings.TrimPrefix(g.Name, "@")
	if _, dup := l.globals[name]; dup {
		return errors.DuplicateDefinition("@"+name, position(g.Pos))
	}
	typ, err := l.resolveType(g.Type)
	if err != nil {
		return err
	}
	init, err := l.initializer(g.Init, typ)
	if err != nil {
		return err
	}
	global := l.module().NewGlobal(name, typ, init)
	global.Constant = g.Kind == "constant"
	l.globals[name] = global
	return nil
}

func (l *loader) initializer(init *Initializer, typ ir.Type) (ir.Initializer, error) {
	switch {
	case init == nil:
		return nil, nil
	case init.CString != nil:
		data, err := decodeCString(*init.CString)
		if err != nil {
			return nil, errors.UnsupportedConstant(err.Error(), position(init.Pos))
		}
		if at, ok := typ.(*ir.ArrayType); !ok || at.Len != len(data) {
			return nil, errors.TypeMismatch(typ.String(), fmt.Sprintf("[%d x i8]", len(data)), position(init.Pos))
		}
		return &ir.StringInit{Data: data}, nil
	case init.Int != nil:
		return &ir.IntInit{Value: *init.Int}, nil
	case init.Bool != nil:
		if *init.Bool == "true" {
			return &ir.IntInit{Value: 1}, nil
		}
		return &ir.IntInit{Value: 0}, nil
	case init.Null:
		return &ir.NullInit{}, nil
	default:
		return &ir.ZeroInit{}, nil
	}
}

// decodeCString turns c"..." into bytes, expanding \XX escapes.
func decodeCString(lit string) ([]byte, error) {
	body := strings.TrimSuffix(strings.TrimPrefix(lit, `c"`), `"`)
	var out []byte
	for i := 0; i < len(body); i++ {
		if body[i] != '\\' {
			out = append(out, body[i])
			continue
		}
		if i+1 < len(body) && body[i+1] == '\\' {
			out = append(out, '\\')
			i++
			continue
		}
		if i+2 >= len(body) {
			return nil, fmt.Errorf("truncated escape in %s", lit)
		}
		v, err := strconv.ParseUint(body[i+1:i+3], 16, 8)
		if err != nil {
			return nil, fmt.Errorf("bad escape \\%s in %s", body[i+1:i+3], lit)
		}
		out = append(out, byte(v))
		i += 2
	}
	return out, nil
}

func (l *loader) declareFunction(name string, ret *TypeExpr, params []*Param, pos lexer.Position) (*ir.Function, error) {
	name = strings.TrimPrefix(name, "@")
	if _, dup := l.globals[name]; dup {
		return nil, errors.DuplicateDefinition("@"+name, position(pos))
	}
	retType, err := l.resolveType(ret)
	if err != nil {
		return nil, err
	}

	var args []*ir.Argument
	for _, p := range params {
		if p.Variadic {
			continue
		}
		t, err := l.resolveType(p.Type)
		if err != nil {
			return nil, err
		}
		args = append(args, ir.NewParam(strings.TrimPrefix(p.Name, "%"), t))
	}
	fn := l.module().NewFunction(name, retType, args...)
	l.globals[name] = fn
	return fn, nil
}

// logicalBlock is a basic block after splitting at terminators. Text that
// continues past a terminator without a label starts an implicitly numbered
// block.
type logicalBlock struct {
	label string
	pos   lexer.Position
	insts []*Instruction
}

func (l *loader) splitBlocks(def *Define) []*logicalBlock {
	var out []*logicalBlock
	var cur *logicalBlock
	start := func(label string, pos lexer.Position) {
		if label == "" {
			label = strconv.Itoa(l.nextNum)
		}
		l.noteNumber(label)
		cur = &logicalBlock{label: label, pos: pos}
		out = append(out, cur)
	}

	for _, b := range def.Blocks {
		start(strings.TrimSuffix(b.Label, ":"), b.Pos)
		for n, inst := range b.Instructions {
			if cur == nil {
				start("", inst.Pos)
			}
			cur.insts = append(cur.insts, inst)
			l.noteNumber(strings.TrimPrefix(inst.Result, "%"))
			if inst.IsTerminator() && n < len(b.Instructions)-1 {
				cur = nil
			}
		}
	}
	return out
}

// noteNumber keeps implicit block numbering in step with numbered values.
func (l *loader) noteNumber(name string) {
	if n, err := strconv.Atoi(name); err == nil && n >= l.nextNum {
		l.nextNum = n + 1
	}
}

func (l *loader) defineBody(def *Define) error {
	l.fn = l.globals[strings.TrimPrefix(def.Name, "@")].(*ir.Function)
	l.locals = make(map[string]ir.Operand)
	l.blocks = make(map[string]*ir.Block)
	l.declared = make(map[ir.Instruction]ir.Type)
	l.nextNum = 0

	for _, arg := range l.fn.Params {
		if arg.Name == "" {
			continue
		}
		if _, dup := l.locals[arg.Name]; dup {
			return errors.DuplicateDefinition("%"+arg.Name, position(def.Pos))
		}
		l.locals[arg.Name] = arg
		l.noteNumber(arg.Name)
	}

	logical := l.splitBlocks(def)
	for _, lb := range logical {
		if _, dup := l.blocks[lb.label]; dup {
			return errors.DuplicateDefinition("%"+lb.label, position(lb.pos))
		}
		l.blocks[lb.label] = l.fn.NewBlock(lb.label)
	}

	// First pass: create every instruction so any of them can be referenced.
	type pending struct {
		inst ir.Instruction
		ast  *Instruction
	}
	var work []pending
	for _, lb := range logical {
		b := l.blocks[lb.label]
		for _, ast := range lb.insts {
			inst := allocate(ast)
			b.Append(inst)
			l.unit.positions[inst] = position(ast.Pos)
			if ast.Result != "" {
				name := strings.TrimPrefix(ast.Result, "%")
				if _, dup := l.locals[name]; dup {
					return errors.DuplicateDefinition(ast.Result, position(ast.Pos))
				}
				inst.SetName(name)
				l.locals[name] = inst
				if t := l.resultType(ast); t != nil {
					l.declared[inst] = t
				}
			}
			work = append(work, pending{inst, ast})
		}
	}

	// Second pass: resolve operands.
	for _, w := range work {
		if err := l.fill(w.inst, w.ast); err != nil {
			return err
		}
	}
	return nil
}

// allocate returns an empty instruction of the kind ast describes.
func allocate(ast *Instruction) ir.Instruction {
	switch {
	case ast.Binary != nil:
		return &ir.Binary{}
	case ast.Cast != nil:
		return &ir.Cast{}
	case ast.GEP != nil:
		return &ir.GetElementPtr{}
	case ast.ICmp != nil:
		return &ir.ICmp{}
	case ast.Select != nil:
		return &ir.Select{}
	case ast.Phi != nil:
		return &ir.Phi{}
	case ast.Ret != nil:
		return &ir.Ret{}
	case ast.Br != nil && ast.Br.Cond != nil:
		return &ir.CondBr{}
	case ast.Br != nil:
		return &ir.Br{}
	case ast.Switch != nil:
		return &ir.Switch{}
	case ast.Alloca != nil:
		return &ir.Alloca{}
	case ast.Load != nil:
		return &ir.Load{}
	case ast.Store != nil:
		return &ir.Store{}
	default:
		return &ir.Call{}
	}
}

// resultType returns the type an instruction will produce as spelled in the
// source, or nil when it depends on operands. Resolution errors are left for
// the second pass to report.
func (l *loader) resultType(ast *Instruction) ir.Type {
	var te *TypeExpr
	switch {
	case ast.Binary != nil:
		te = ast.Binary.Type
	case ast.Cast != nil:
		te = ast.Cast.To
	case ast.ICmp != nil:
		return ir.I1
	case ast.Select != nil:
		te = ast.Select.True.Type
	case ast.Phi != nil:
		te = ast.Phi.Type
	case ast.Alloca != nil:
		t, err := l.resolveType(ast.Alloca.Type)
		if err != nil {
			return nil
		}
		return ir.PointerTo(t)
	case ast.Load != nil:
		t, err := l.resolveType(ast.Load.First)
		if err != nil {
			return nil
		}
		if ast.Load.Second == nil {
			return ir.Elem(t)
		}
		return t
	case ast.Call != nil:
		if fn, ok := l.callee(ast.Call); ok {
			return fn.Return
		}
		te = ast.Call.Type
	default:
		return nil
	}
	t, err := l.resolveType(te)
	if err != nil {
		return nil
	}
	if ft, ok := t.(*ir.FuncType); ok {
		return ft.Return
	}
	return t
}

func (l *loader) callee(call *CallInst) (*ir.Function, bool) {
	if call.Callee.Global == nil {
		return nil, false
	}
	fn, ok := l.globals[strings.TrimPrefix(*call.Callee.Global, "@")].(*ir.Function)
	return fn, ok
}

func (l *loader) knownLocals() []string {
	names := make([]string, 0, len(l.locals))
	for name := range l.locals {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (l *loader) knownLabels() []string {
	names := make([]string, 0, len(l.blocks))
	for name := range l.blocks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (l *loader) knownGlobals() []string {
	names := make([]string, 0, len(l.globals))
	for name := range l.globals {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (l *loader) block(label string, pos lexer.Position) (*ir.Block, error) {
	name := strings.TrimPrefix(label, "%")
	b, ok := l.blocks[name]
	if !ok {
		return nil, errors.UndefinedLabel(name, position(pos), l.knownLabels())
	}
	return b, nil
}
