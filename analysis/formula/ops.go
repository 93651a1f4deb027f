package formula

import (
	"fmt"
	"strings"
)

// Op is a single operation labelling a CFA edge. Operations are expressed
// over uninstantiated variables.
type Op interface {
	fmt.Stringer
	isOp()
}

type (
	// Assume blocks executions where Cond does not hold.
	Assume struct {
		Cond *Term
	}
	// Assign updates all Vars in parallel with the corresponding Vals.
	Assign struct {
		Vars []*Term
		Vals []*Term
	}
	// Havoc sets Vars to arbitrary values.
	Havoc struct {
		Vars []*Term
	}
)

func (Assume) isOp() {}
func (Assign) isOp() {}
func (Havoc) isOp()  {}

func (a Assume) String() string {
	return "[" + a.Cond.String() + "]"
}

func (a Assign) String() string {
	lhs := make([]string, len(a.Vars))
	rhs := make([]string, len(a.Vals))
	for i, v := range a.Vars {
		lhs[i] = v.String()
		rhs[i] = a.Vals[i].String()
	}
	return strings.Join(lhs, ", ") + " := " + strings.Join(rhs, ", ")
}

func (h Havoc) String() string {
	vs := make([]string, len(h.Vars))
	for i, v := range h.Vars {
		vs[i] = v.String()
	}
	return "havoc " + strings.Join(vs, ", ")
}

// Written lists the variables updated by the operation.
func Written(op Op) []*Term {
	switch op := op.(type) {
	case Assign:
		return op.Vars
	case Havoc:
		return op.Vars
	}
	return nil
}

// MakeEdgeFormula constructs the path formula of a sequence of operations
// executed from the SSA indices in ssa. It returns the formula together with
// the indices after the last operation.
func (m *Manager) MakeEdgeFormula(ops []Op, ssa SSAMap) (*Term, SSAMap) {
	conj := make([]*Term, 0, len(ops))
	for _, op := range ops {
		switch op := op.(type) {
		case Assume:
			conj = append(conj, m.Instantiate(op.Cond, ssa))
		case Assign:
			if len(op.Vars) != len(op.Vals) {
				panic(fmt.Errorf("malformed assignment %v", op))
			}
			vals := make([]*Term, len(op.Vals))
			for i, v := range op.Vals {
				vals[i] = m.Instantiate(v, ssa)
			}
			for i, v := range op.Vars {
				ssa = ssa.Inc(v.name)
				conj = append(conj, m.Eq(m.VarAt(v.name, v.sort, ssa.Get(v.name)), vals[i]))
			}
		case Havoc:
			for _, v := range op.Vars {
				ssa = ssa.Inc(v.name)
			}
		default:
			panic(fmt.Errorf("unknown operation %T", op))
		}
	}
	return m.And(conj...), ssa
}
