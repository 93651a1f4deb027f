package lazy

import (
	"github.com/cs-au-dk/golazy/analysis/cfa"
	"github.com/cs-au-dk/golazy/analysis/formula"
)

// ART is the abstract reachability tree. States are stored in an arena
// indexed by their identifiers. Detached states stay in the arena but are
// no longer part of the tree.
type ART struct {
	states   []*AbstractState
	children [][]StateID
	detached []bool
	root     StateID
	reached  *ReachedSet
}

func NewART(reached *ReachedSet) *ART {
	return &ART{root: NoState, reached: reached}
}

// newState allocates a state with the next identifier. The state is not
// part of the tree until it is added as the root or as a child.
func (a *ART) newState(loc *cfa.Node, abs *formula.Term, ctx cfa.Context) *AbstractState {
	s := &AbstractState{
		id:        StateID(len(a.states)),
		location:  loc,
		context:   ctx,
		parent:    NoState,
		coveredBy: NoState,
	}
	s.setAbstraction(abs)
	a.states = append(a.states, s)
	a.children = append(a.children, nil)
	a.detached = append(a.detached, true)
	return s
}

func (a *ART) attach(s *AbstractState) {
	a.detached[s.id] = false
	a.reached.Add(s)
}

// AddRoot makes s the root of the tree.
func (a *ART) AddRoot(s *AbstractState) {
	if a.root != NoState {
		panic(internal("tree already has root s%d", a.root))
	}
	a.root = s.id
	a.attach(s)
}

// AddChild appends child under parent. If the tree is empty, parent becomes
// its root.
func (a *ART) AddChild(parent, child *AbstractState) {
	if a.root == NoState {
		a.AddRoot(parent)
	}
	if !a.Contains(parent) {
		panic(internal("parent %v is not in the tree", parent))
	}
	if a.Contains(child) {
		panic(internal("%v is already in the tree", child))
	}
	child.parent = parent.id
	a.children[parent.id] = append(a.children[parent.id], child.id)
	a.attach(child)
}

func (a *ART) Root() *AbstractState {
	if a.root == NoState {
		return nil
	}
	return a.states[a.root]
}

// State retrieves a state by identifier, including detached states.
func (a *ART) State(id StateID) *AbstractState {
	if id < 0 || int(id) >= len(a.states) {
		return nil
	}
	return a.states[id]
}

func (a *ART) Contains(s *AbstractState) bool {
	return s != nil && s.id >= 0 && int(s.id) < len(a.states) &&
		a.states[s.id] == s && !a.detached[s.id]
}

func (a *ART) Parent(s *AbstractState) *AbstractState {
	return a.State(s.parent)
}

func (a *ART) Children(s *AbstractState) []*AbstractState {
	res := make([]*AbstractState, len(a.children[s.id]))
	for i, c := range a.children[s.id] {
		res[i] = a.states[c]
	}
	return res
}

// Size is the number of states in the tree.
func (a *ART) Size() int {
	return a.reached.Size()
}

// States lists the states of the tree in creation order.
func (a *ART) States() (res []*AbstractState) {
	for i, s := range a.states {
		if !a.detached[i] {
			res = append(res, s)
		}
	}
	return
}

// Subtree collects root and its descendants in pre-order. With remove, the
// collected states are detached from the tree and removed from the reached
// set. Without includeRoot, root itself is neither returned nor detached.
func (a *ART) Subtree(root *AbstractState, remove, includeRoot bool) []*AbstractState {
	if !a.Contains(root) {
		return nil
	}

	var res []*AbstractState
	if includeRoot {
		res = append(res, root)
	}
	stack := make([]StateID, 0, len(a.children[root.id]))
	for i := len(a.children[root.id]) - 1; i >= 0; i-- {
		stack = append(stack, a.children[root.id][i])
	}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		res = append(res, a.states[id])
		for i := len(a.children[id]) - 1; i >= 0; i-- {
			stack = append(stack, a.children[id][i])
		}
	}

	if !remove {
		return res
	}

	if includeRoot {
		if root.id == a.root {
			a.root = NoState
		} else {
			siblings := a.children[root.parent]
			for i, c := range siblings {
				if c == root.id {
					a.children[root.parent] = append(siblings[:i:i], siblings[i+1:]...)
					break
				}
			}
		}
	} else {
		// root has lost its successors and must be expanded again.
		a.children[root.id] = nil
		root.expanded = false
	}
	for _, s := range res {
		a.detached[s.id] = true
		a.reached.Remove(s)
	}
	return res
}

// PathTo lists the states from the root to s.
func (a *ART) PathTo(s *AbstractState) []*AbstractState {
	return a.PathBetween(a.Root(), s)
}

// PathBetween lists the states from ancestor to s, both included. The
// result is nil if ancestor is not an ancestor of s.
func (a *ART) PathBetween(ancestor, s *AbstractState) []*AbstractState {
	var rev []*AbstractState
	for cur := s; cur != nil; cur = a.State(cur.parent) {
		rev = append(rev, cur)
		if cur == ancestor {
			for i, j := 0, len(rev)-1; i < j; i, j = i+1, j-1 {
				rev[i], rev[j] = rev[j], rev[i]
			}
			return rev
		}
	}
	return nil
}

// NearestCommonAncestor finds the deepest state that is an ancestor of both
// x and y. States are their own ancestors.
func (a *ART) NearestCommonAncestor(x, y *AbstractState) *AbstractState {
	ancestors := map[StateID]bool{}
	for cur := x; cur != nil; cur = a.State(cur.parent) {
		ancestors[cur.id] = true
	}
	for cur := y; cur != nil; cur = a.State(cur.parent) {
		if ancestors[cur.id] {
			return cur
		}
	}
	return nil
}
