package graph

import (
	"golang.org/x/tools/go/ssa"
)

// FromStaticCalls creates a Graph with *ssa.Functions as nodes, where the
// edges are the statically resolved callees of every call instruction.
// Dynamic calls and functions without bodies contribute no edges.
func FromStaticCalls() Graph[*ssa.Function] {
	return OfHashable(func(fun *ssa.Function) (ret []*ssa.Function) {
		dedup := map[*ssa.Function]bool{}
		for _, b := range fun.Blocks {
			for _, insn := range b.Instrs {
				call, ok := insn.(ssa.CallInstruction)
				if !ok {
					continue
				}
				if callee := call.Common().StaticCallee(); callee != nil && !dedup[callee] {
					dedup[callee] = true
					ret = append(ret, callee)
				}
			}
		}
		return
	})
}
