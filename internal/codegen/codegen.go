// Package codegen lowers an IR module to a Befunge-93 program.
//
// Every basic block becomes one or more segments stacked down the playfield.
// Control transfers by leaving the target's id on the stack and falling into
// the dispatch scan that runs along columns 0 and 9. SSA values live in a
// frame of cells addressed through the frame pointer, phi inputs are staged
// in a separate band, and memory is a flat word-addressed space folded into
// rows of nine cells.
package codegen

import (
	"fmt"
	"strings"

	"befc/internal/befunge"
	"befc/internal/errors"
	"befc/internal/ir"

	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("befc.codegen")

// DefaultEntry is the function the program starts in.
const DefaultEntry = "main"

const headerIndent = 20

// Options control code generation.
type Options struct {
	// Debug adds block headers and the source of every instruction as
	// comment rows next to the generated code.
	Debug bool
	// Entry names the entry function; empty means DefaultEntry.
	Entry string
}

// compilation holds everything computed before lowering starts.
type compilation struct {
	opts    Options
	body    map[*ir.Block][]ir.Instruction
	ids     *identities
	globals *globalTable
	entry   *ir.Function
}

func newCompilation(m *ir.Module, opts Options) (*compilation, error) {
	if opts.Entry == "" {
		opts.Entry = DefaultEntry
	}
	if err := ir.Verify(m); err != nil {
		return nil, errors.MalformedModule(err)
	}

	c := &compilation{opts: opts}
	c.entry = m.Function(opts.Entry)
	if c.entry == nil || c.entry.IsDeclaration() {
		return nil, errors.MissingEntry(opts.Entry)
	}

	c.body = filterModule(m, defaultFilters)

	var err error
	if c.ids, err = assignIDs(m, c.body); err != nil {
		return nil, err
	}
	if c.globals, err = planGlobals(m, inlineStrings(m, c.body)); err != nil {
		return nil, err
	}
	return c, nil
}

// Compile lowers m and returns the playfield rows.
func Compile(m *ir.Module, opts Options) ([]string, error) {
	c, err := newCompilation(m, opts)
	if err != nil {
		return nil, err
	}

	out := newLayout()
	out.emitSetup(c.setup())

	for _, fn := range m.Functions {
		if fn.IsDeclaration() {
			continue
		}
		if err := c.emitFunction(out, fn); err != nil {
			return nil, err
		}
	}

	log.Infof("generated %d rows for %d block ids", out.grid.Height(), c.ids.count)
	return out.grid.Lines(), nil
}

// setup initialises the pointer registers, pushes the entry block id and
// writes the initial values of globals.
func (c *compilation) setup() Code {
	var code Code
	code.int(stackBase)
	code.setReg(regStack)
	code.int(heapBase)
	code.setReg(regHeap)
	code.int(localBase)
	code.setReg(regFrame)
	code.int(int64(c.ids.frames[c.entry].entry))
	c.globals.emitInits(&code)
	return code
}

func (c *compilation) emitFunction(out *layout, fn *ir.Function) error {
	indent := strings.Repeat(" ", headerIndent)
	out.grid.AppendLine(fmt.Sprintf("%s*** %s *** %d", indent, fn.Name, c.ids.frames[fn].entry))

	l := c.lowerer(fn)
	for _, b := range fn.Blocks {
		if c.opts.Debug {
			out.grid.AppendLine(fmt.Sprintf("%sblock %d", indent, c.ids.block[b]))
			for _, inst := range b.Instructions {
				out.grid.AppendLine(truncate(indent + ir.FormatInstruction(inst)))
			}
		}

		segments, err := l.lowerBlock(b)
		if err != nil {
			return err
		}
		for _, seg := range segments {
			out.emitSegment(seg)
		}
	}
	return nil
}

func truncate(s string) string {
	if len(s) > befunge.Width {
		return s[:befunge.Width]
	}
	return s
}
