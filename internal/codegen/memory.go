package codegen

import (
	"befc/internal/errors"
	"befc/internal/ir"
)

// Region base addresses. Addresses are linear; make2D folds an address into
// a column band and a row, so regions that share a base stay apart as long
// as they use different bands.
const (
	localBase  = 9 * 9 * 9 * 9 * 8     // frame slots, LOCAL band
	stackBase  = 9 * 9 * 9 * 9 * 8     // alloca stack, MEM band
	globalBase = 9 * 9 * 9 * 9 * 9 * 6 // globals, MEM band
	heapBase   = 9 * 9 * 9 * 9 * 9 * 8 // calloc heap, MEM band
	phiBase    = localBase             // phi staging, PHI band
)

// band selects the column range an address is folded into.
type band int

const (
	bandLocal band = iota // columns 0-8
	bandMem               // columns 9-17; globals, stack and heap
	bandPhi               // columns 18-26
)

// Pointer registers live in the top-left cells of the playfield.
const (
	regStack = "00" // alloca stack pointer
	regHeap  = "10" // heap bump pointer
	regFrame = "20" // local frame pointer
)

// make2D converts the address on top of the stack into the (x, y) pair
// g and p expect: x = addr%9 shifted into the band, y = addr/9.
func (c *Code) make2D(b band) {
	c.raw(":9%")
	switch b {
	case bandMem:
		c.raw("9+")
	case bandPhi:
		c.raw("9+9+")
	}
	c.raw("\\9/")
}

func (c *Code) getReg(reg string) { c.raw(reg + "g") }
func (c *Code) setReg(reg string) { c.raw(reg + "p") }

// slotAddr pushes the address of slot id: frame-relative for locals,
// absolute for phi staging.
func (c *Code) slotAddr(b band, id int) {
	if b == bandLocal {
		c.getReg(regFrame)
		c.int(int64(id))
		c.op('+')
		return
	}
	c.int(int64(phiBase + id))
}

// load pushes the value held in slot id.
func (c *Code) load(b band, id int) {
	c.slotAddr(b, id)
	c.make2D(b)
	c.op('g')
}

// store pops a value into slot id.
func (c *Code) store(b band, id int) {
	c.slotAddr(b, id)
	c.make2D(b)
	c.op('p')
}

// globalInit is one word of setup-time global initialisation.
type globalInit struct {
	addr  int64
	value int64
}

// globalTable maps globals to Global-region addresses.
type globalTable struct {
	addr  map[*ir.Global]int64
	inits []globalInit
	size  int64
}

// planGlobals lays globals out consecutively from globalBase in declaration
// order. Character-array constants referenced only as puts arguments get no
// address; their text is emitted inline at the call.
func planGlobals(m *ir.Module, putsOnly map[*ir.Global]bool) (*globalTable, error) {
	t := &globalTable{addr: make(map[*ir.Global]int64)}
	next := int64(globalBase)
	for _, g := range m.Globals {
		if putsOnly[g] {
			continue
		}
		size, err := ir.SizeOf(g.ValueType)
		if err != nil {
			return nil, errors.UnsizedType(g.ValueType, err)
		}
		t.addr[g] = next
		switch init := g.Init.(type) {
		case *ir.IntInit:
			if v := int64(int32(init.Value)); v != 0 {
				t.inits = append(t.inits, globalInit{addr: next, value: v})
			}
		case *ir.StringInit:
			for i, b := range init.Data {
				if b != 0 && i < size {
					t.inits = append(t.inits, globalInit{addr: next + int64(i), value: int64(b)})
				}
			}
		}
		next += int64(size)
	}
	t.size = next - globalBase
	log.Debugf("planned %d globals in %d words", len(t.addr), t.size)
	return t, nil
}

// emitInits writes every non-zero initial value.
func (t *globalTable) emitInits(c *Code) {
	for _, in := range t.inits {
		c.int(in.value)
		c.int(in.addr)
		c.make2D(bandMem)
		c.op('p')
	}
}
