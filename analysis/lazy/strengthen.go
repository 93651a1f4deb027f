package lazy

import "github.com/cs-au-dk/golazy/analysis/formula"

// Strengthen conjoins the refinement formulas of a spurious result with the
// abstractions of the states on its path. It returns the states detached
// because an ancestor became infeasible.
func (t *TransferRelation) Strengthen(info CounterexampleTraceInfo) []*AbstractState {
	if !info.IsSpurious() {
		panic(internal("strengthening with a feasible path"))
	}
	return t.strengthen(info.path, info.formulas)
}

func (t *TransferRelation) strengthen(path []*AbstractState, formulas []*formula.Term) []*AbstractState {
	if len(path) != len(formulas) {
		panic(internal("%d refinement formulas for a path of length %d", len(formulas), len(path)))
	}

	var infeasible []*AbstractState
	for i, s := range path {
		if t.strengthenState(s, formulas[i]) {
			t.pending.Add(t.reached.Release(s)...)
		}
		if s.infeasible {
			infeasible = append(infeasible, s)
		}
	}

	var detached []*AbstractState
	for _, s := range infeasible {
		for _, d := range t.art.Subtree(s, true, false) {
			t.reached.Uncover(d)
			for _, r := range t.reached.Release(d) {
				if t.art.Contains(r) {
					t.pending.Add(r)
				}
			}
			t.pending.Remove(d.id)
			detached = append(detached, d)
		}
	}
	t.pending.Filter(t.art.Contains)
	t.stats.transfer(func(ts *TransferStats) { ts.Detached += len(detached) })
	return detached
}

// strengthenState combines the abstraction of s with nw and reports whether
// it changed.
func (t *TransferRelation) strengthenState(s *AbstractState, nw *formula.Term) bool {
	old := s.abstraction
	switch {
	case nw.IsFalse():
		s.infeasible = true
		if old.IsFalse() {
			return false
		}
		s.setAbstraction(nw)
	case nw.IsTrue(), old.IsFalse():
		return false
	case old.IsTrue():
		s.setAbstraction(nw)
	case t.entailer.Entails(old, nw):
		return false
	default:
		s.setAbstraction(t.fm.And(old, nw))
	}
	return true
}
