package formula

import "golang.org/x/exp/slices"

// Substitute rewrites every variable of t with the result of sub.
// Shared subterms are rewritten once.
func (m *Manager) Substitute(t *Term, sub func(v *Term) *Term) *Term {
	memo := make(map[*Term]*Term)
	var visit func(t *Term) *Term
	visit = func(t *Term) *Term {
		if res, ok := memo[t]; ok {
			return res
		}
		var res *Term
		switch t.kind {
		case KConst:
			res = t
		case KVar:
			res = sub(t)
		default:
			changed := false
			args := make([]*Term, len(t.args))
			for i, a := range t.args {
				args[i] = visit(a)
				changed = changed || args[i] != a
			}
			if changed {
				res = m.rebuild(t, args)
			} else {
				res = t
			}
		}
		memo[t] = res
		return res
	}
	return visit(t)
}

// Instantiate binds every uninstantiated variable of t to its index in ssa.
func (m *Manager) Instantiate(t *Term, ssa SSAMap) *Term {
	return m.Substitute(t, func(v *Term) *Term {
		if v.index != 0 {
			return v
		}
		return m.VarAt(v.name, v.sort, ssa.Get(v.name))
	})
}

// Uninstantiate strips the SSA indices of all variables in t.
func (m *Manager) Uninstantiate(t *Term) *Term {
	return m.Substitute(t, func(v *Term) *Term {
		if v.index == 0 {
			return v
		}
		return m.Var(v.name, v.sort)
	})
}

// Vars collects the variables occurring in t, ordered by id.
func Vars(t *Term) []*Term {
	seen := make(map[*Term]bool)
	res := []*Term{}
	var visit func(t *Term)
	visit = func(t *Term) {
		if seen[t] {
			return
		}
		seen[t] = true
		if t.kind == KVar {
			res = append(res, t)
			return
		}
		for _, a := range t.args {
			visit(a)
		}
	}
	visit(t)
	slices.SortFunc(res, func(a, b *Term) bool { return a.id < b.id })
	return res
}

// HasUninterpreted reports whether t contains an operator that
// may be left uninterpreted by the decision procedure.
func HasUninterpreted(t *Term) bool {
	seen := make(map[*Term]bool)
	var visit func(t *Term) bool
	visit = func(t *Term) bool {
		if seen[t] {
			return false
		}
		seen[t] = true
		if t.kind.IsUninterpreted() {
			return true
		}
		for _, a := range t.args {
			if visit(a) {
				return true
			}
		}
		return false
	}
	return visit(t)
}
