package codegen

import (
	"strings"

	"befc/internal/ir"
)

// instructionFilter decides which instructions reach lowering. Filters never
// mutate the module; they produce a per-block view of it.
type instructionFilter interface {
	Name() string
	Keep(inst ir.Instruction) bool
}

// lifetimeFilter drops calls to the lifetime markers, which have no effect on
// the target.
type lifetimeFilter struct{}

func (lifetimeFilter) Name() string { return "lifetime-markers" }

func (lifetimeFilter) Keep(inst ir.Instruction) bool {
	call, ok := inst.(*ir.Call)
	if !ok {
		return true
	}
	fn := call.CalledFunction()
	return fn == nil || !isLifetimeMarker(fn.Name)
}

func isLifetimeMarker(name string) bool {
	return name == "llvm.lifetime.start" || name == "llvm.lifetime.end" ||
		strings.HasPrefix(name, "llvm.lifetime.start.") || strings.HasPrefix(name, "llvm.lifetime.end.")
}

// defaultFilters is the pre-lowering pipeline.
var defaultFilters = []instructionFilter{lifetimeFilter{}}

// filterModule returns the instructions of every defined block that survive
// all filters, in order.
func filterModule(m *ir.Module, filters []instructionFilter) map[*ir.Block][]ir.Instruction {
	body := make(map[*ir.Block][]ir.Instruction)
	removed := make(map[string]int)
	for _, fn := range m.Functions {
		for _, b := range fn.Blocks {
			kept := make([]ir.Instruction, 0, len(b.Instructions))
		next:
			for _, inst := range b.Instructions {
				for _, f := range filters {
					if !f.Keep(inst) {
						removed[f.Name()]++
						continue next
					}
				}
				kept = append(kept, inst)
			}
			body[b] = kept
		}
	}
	for name, n := range removed {
		log.Debugf("filter %s removed %d instructions", name, n)
	}
	return body
}
