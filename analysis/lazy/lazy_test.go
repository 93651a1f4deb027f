package lazy

import (
	"testing"

	"github.com/cs-au-dk/golazy/analysis/cfa"
	"github.com/cs-au-dk/golazy/analysis/formula"
	"github.com/cs-au-dk/golazy/analysis/smt"
	tu "github.com/cs-au-dk/golazy/testutil"

	"github.com/stretchr/testify/require"
)

// The error location of guardSrc is unreachable through contradicting guards.
const guardSrc = `package main

func reachError() {}

func nondetInt() int { return 0 }

func main() {
	x := nondetInt()
	if x > 0 {
		if x < 0 {
			reachError()
		}
	}
}
`

const reachableSrc = `package main

func reachError() {}

func nondetInt() int { return 0 }

func main() {
	x := nondetInt()
	if x > 5 {
		reachError()
	}
}
`

// countingSolver counts the queries reaching the decision procedure.
type countingSolver struct {
	smt.Solver
	entailments int
	provers     int
}

func (s *countingSolver) Entails(f, g *formula.Term) (bool, error) {
	s.entailments++
	return s.Solver.Entails(f, g)
}

func (s *countingSolver) NewProver() smt.Prover {
	s.provers++
	return s.Solver.NewProver()
}

func newTestEngine(t *testing.T, src string, cfg Config) (*Engine, *countingSolver) {
	t.Helper()
	fm := formula.NewManager(cfg.IntWidth)
	c := tu.BuildCFA(t, fm, src, "main", tu.DefaultBuildOptions)
	locs, err := cfa.NewLocationManager(cfg.Locations, c)
	require.NoError(t, err)
	gs, err := smt.NewSolver(fm, smt.Options{BitwiseAxioms: cfg.BitwiseAxioms})
	require.NoError(t, err)
	solver := &countingSolver{Solver: gs}
	e, err := NewEngine(c, locs, fm, solver, cfg)
	require.NoError(t, err)
	return e, solver
}

// errorPath follows the unique predecessors of the first error location
// back to the entry of the automaton.
func errorPath(t *testing.T, c *cfa.CFA) []*cfa.Node {
	t.Helper()
	errs := c.ErrorNodes()
	require.NotEmpty(t, errs)
	path := []*cfa.Node{errs[0]}
	for n := errs[0]; n != c.Entry.Entry; {
		require.Len(t, n.In(), 1, "%v has several predecessors", n)
		n = n.In()[0].From()
		path = append([]*cfa.Node{n}, path...)
	}
	return path
}

// statesAlong creates a branch of the tree following the given locations.
func statesAlong(e *Engine, nodes []*cfa.Node) []*AbstractState {
	res := make([]*AbstractState, len(nodes))
	for i, n := range nodes {
		res[i] = e.art.newState(n, e.fm.True(), cfa.EmptyContext())
		if i == 0 {
			e.art.AddRoot(res[i])
		} else {
			e.art.AddChild(res[i-1], res[i])
		}
	}
	return res
}

// child adds a fresh state under parent.
func child(e *Engine, parent *AbstractState, n *cfa.Node) *AbstractState {
	s := e.art.newState(n, e.fm.True(), parent.context)
	e.art.AddChild(parent, s)
	return s
}

func root(e *Engine, n *cfa.Node) *AbstractState {
	s := e.art.newState(n, e.fm.True(), cfa.EmptyContext())
	e.art.AddRoot(s)
	return s
}

// positive is the predicate 0 < name.
func positive(fm *formula.Manager, name string) *formula.Term {
	return fm.Slt(fm.IntConst(0), fm.Var(name, formula.Int))
}
