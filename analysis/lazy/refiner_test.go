package lazy

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cs-au-dk/golazy/analysis/cfa"
	"github.com/cs-au-dk/golazy/analysis/formula"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pathFormulas instantiates the edges between consecutive states of the path
// and returns them together with the SSA map reached before each state.
func pathFormulas(fm *formula.Manager, path []*AbstractState) ([]*formula.Term, []formula.SSAMap) {
	edges := edgesOf(path)
	steps := make([]*formula.Term, len(edges))
	ssaAt := []formula.SSAMap{formula.EmptySSAMap()}
	for i, edge := range edges {
		f, ssa := fm.MakeEdgeFormula(edge.Ops(), ssaAt[i])
		steps[i] = f
		ssaAt = append(ssaAt, ssa)
	}
	return steps, ssaAt
}

// checkInterpolants asserts that the refinement formulas of a spurious path
// form a sequence: every formula and the edge leaving its state entail the
// next formula, and every formula is inconsistent with the rest of the path.
func checkInterpolants(t *testing.T, e *Engine, solver *countingSolver, path []*AbstractState, info CounterexampleTraceInfo) {
	t.Helper()
	fm := e.fm
	steps, ssaAt := pathFormulas(fm, path)
	labels := make([]*formula.Term, len(path))
	for i, f := range info.formulas {
		labels[i] = fm.Instantiate(f, ssaAt[i])
	}

	for i := 1; i < len(path); i++ {
		inductive, err := solver.Solver.Entails(fm.And(labels[i-1], steps[i-1]), labels[i])
		require.NoError(t, err)
		assert.True(t, inductive, "%v does not lead to %v at %v", info.formulas[i-1], info.formulas[i], path[i])

		rest := append([]*formula.Term{labels[i]}, steps[i:]...)
		sat, err := solver.Solver.Satisfiable(fm.And(rest...))
		require.NoError(t, err)
		assert.False(t, sat, "%v is consistent with the rest of the path at %v", info.formulas[i], path[i])
	}
}

func TestSpuriousThreeStatePath(t *testing.T) {
	e, solver := newTestEngine(t, guardSrc, DefaultConfig())
	path := statesAlong(e, errorPath(t, e.c))
	require.Len(t, path, 3)
	require.True(t, path[2].IsError())

	info, err := e.refiner.BuildCounterexampleTrace(path)
	require.NoError(t, err)
	require.True(t, info.IsSpurious())
	require.Len(t, info.Formulas(), 3)

	first, ok := info.Refinement(path[0])
	require.True(t, ok)
	assert.True(t, first.IsTrue())
	last, _ := info.Refinement(path[2])
	assert.True(t, last.IsFalse())

	for _, f := range info.Formulas() {
		for _, v := range formula.Vars(f) {
			assert.False(t, v.IsInstantiated(), "%v is instantiated in %v", v, f)
		}
	}
	checkInterpolants(t, e, solver, path, info)

	assert.Equal(t, 1, solver.provers)
	assert.Equal(t, 1, e.stats.Refiner.Calls)
	assert.Equal(t, 1, e.stats.Refiner.Spurious)
}

func TestRefinementSentinels(t *testing.T) {
	for _, test := range []struct {
		name                      string
		shortestTrace, wellScoped bool
	}{
		{"default", false, false},
		{"shortest-trace", true, false},
		{"well-scoped", false, true},
		{"both", true, true},
	} {
		t.Run(test.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.ShortestTrace = test.shortestTrace
			cfg.WellScopedPredicates = test.wellScoped
			e, solver := newTestEngine(t, guardSrc, cfg)
			path := statesAlong(e, errorPath(t, e.c))

			info, err := e.refiner.BuildCounterexampleTrace(path)
			require.NoError(t, err)
			require.True(t, info.IsSpurious())
			fs := info.Formulas()
			require.Len(t, fs, len(path))
			assert.True(t, fs[0].IsTrue())
			assert.True(t, fs[len(fs)-1].IsFalse())
			checkInterpolants(t, e, solver, path, info)
		})
	}
}

// The error location of calleeGuardSrc is refuted inside check on its own,
// and the one of callerGuardSrc only together with the guard of main.
const calleeGuardSrc = `package main

func reachError() {}

func nondetInt() int { return 0 }

func check(y int) {
	if y > 0 {
		if y < 0 {
			reachError()
		}
	}
}

func main() {
	x := nondetInt()
	if x < 10 {
		check(x)
	}
}
`

const callerGuardSrc = `package main

func reachError() {}

func nondetInt() int { return 0 }

func check(y int) {
	if y > -5 {
		if y > 0 {
			reachError()
		}
	}
}

func main() {
	x := nondetInt()
	if x < 0 {
		check(x)
	}
}
`

func TestRefinementThroughCallee(t *testing.T) {
	for _, src := range []struct {
		name, src string
	}{
		{"callee-guard", calleeGuardSrc},
		{"caller-guard", callerGuardSrc},
	} {
		for _, test := range []struct {
			name                      string
			shortestTrace, wellScoped bool
		}{
			{"default", false, false},
			{"well-scoped", false, true},
			{"both", true, true},
		} {
			t.Run(src.name+"/"+test.name, func(t *testing.T) {
				cfg := DefaultConfig()
				cfg.ShortestTrace = test.shortestTrace
				cfg.WellScopedPredicates = test.wellScoped
				e, solver := newTestEngine(t, src.src, cfg)
				path := statesAlong(e, errorPath(t, e.c))
				require.Len(t, path, 5)
				require.Equal(t, cfa.FunctionEntry, path[2].Location().Kind())

				info, err := e.refiner.BuildCounterexampleTrace(path)
				require.NoError(t, err)
				require.True(t, info.IsSpurious())
				checkInterpolants(t, e, solver, path, info)
			})
		}
	}
}

func TestWellScopedLabelsStayInCallee(t *testing.T) {
	cfg := DefaultConfig()
	cfg.WellScopedPredicates = true
	e, solver := newTestEngine(t, calleeGuardSrc, cfg)
	path := statesAlong(e, errorPath(t, e.c))

	info, err := e.refiner.BuildCounterexampleTrace(path)
	require.NoError(t, err)
	require.True(t, info.IsSpurious())

	inner, _ := info.Refinement(path[3])
	for _, v := range formula.Vars(inner) {
		assert.True(t, strings.HasPrefix(v.Name(), "check."), "%v mentions %v", inner, v)
	}
	// The scoped label was checked against the label of the callee entry.
	assert.Positive(t, solver.entailments)
}

func TestFeasiblePath(t *testing.T) {
	cfg := DefaultConfig()
	cfg.FeasiblePathDump = filepath.Join(t.TempDir(), "feasible.smt")
	e, _ := newTestEngine(t, reachableSrc, cfg)
	path := statesAlong(e, errorPath(t, e.c))

	info, err := e.refiner.BuildCounterexampleTrace(path)
	require.NoError(t, err)
	require.False(t, info.IsSpurious())
	require.NotNil(t, info.Trace)
	assert.Len(t, info.Trace.Steps, len(path)-1)
	assert.Equal(t, path[len(path)-1].Location(), info.Trace.Error())
	assert.Nil(t, info.Formulas())
	assert.Equal(t, 1, e.stats.Refiner.Feasible)

	// The input read by the guard exceeds 5.
	found := false
	for _, step := range info.Trace.Steps {
		for _, b := range step.Written {
			if b.Value.Int() > 5 {
				found = true
			}
		}
	}
	assert.True(t, found, "no written value satisfies the guard:\n%v", info.Trace)

	data, err := os.ReadFile(cfg.FeasiblePathDump)
	require.NoError(t, err)
	assert.NotEmpty(t, data)
}

func TestQueryDump(t *testing.T) {
	cfg := DefaultConfig()
	cfg.QueryDumpDir = t.TempDir()
	e, _ := newTestEngine(t, guardSrc, cfg)
	path := statesAlong(e, errorPath(t, e.c))

	for i := 0; i < 2; i++ {
		_, err := e.refiner.BuildCounterexampleTrace(path)
		require.NoError(t, err)
	}
	for _, name := range []string{"itp-query-0000.smt", "itp-query-0001.smt"} {
		data, err := os.ReadFile(filepath.Join(cfg.QueryDumpDir, name))
		require.NoError(t, err)
		assert.Contains(t, string(data), "(check-sat)")
	}

	cfg.QueryDumpDir = filepath.Join(cfg.QueryDumpDir, "missing")
	e, _ = newTestEngine(t, guardSrc, cfg)
	_, err := e.refiner.BuildCounterexampleTrace(statesAlong(e, errorPath(t, e.c)))
	assert.Error(t, err)
}

func TestShortPathPanics(t *testing.T) {
	e, _ := newTestEngine(t, guardSrc, DefaultConfig())
	r := root(e, e.c.Entry.Entry)
	assert.Panics(t, func() { e.refiner.BuildCounterexampleTrace([]*AbstractState{r}) })
}

func TestForceCover(t *testing.T) {
	e, solver := newTestEngine(t, guardSrc, DefaultConfig())
	path := statesAlong(e, errorPath(t, e.c))[:2]
	x := path[0]

	edge := edgesOf(path)[0]
	var guard *formula.Term
	for _, op := range edge.Ops() {
		if assume, ok := op.(formula.Assume); ok {
			guard = assume.Cond
		}
	}
	require.NotNil(t, guard, "%v has no guard", edge)

	w := e.art.newState(path[1].Location(), guard, x.Context())
	info, err := e.refiner.ForceCover(x, path, w)
	require.NoError(t, err)
	require.True(t, info.IsSpurious())
	fs := info.Formulas()
	require.Len(t, fs, 2)
	entailed, err := solver.Solver.Entails(fs[1], guard)
	require.NoError(t, err)
	assert.True(t, entailed, "%v does not entail %v", fs[1], guard)

	steps, ssaAt := pathFormulas(e.fm, path)
	first := e.fm.Instantiate(fs[0], ssaAt[0])
	entailed, err = solver.Solver.Entails(e.fm.Instantiate(x.Abstraction(), ssaAt[0]), first)
	require.NoError(t, err)
	assert.True(t, entailed, "%v does not follow from %v", fs[0], x.Abstraction())
	entailed, err = solver.Solver.Entails(e.fm.And(first, steps[0]), e.fm.Instantiate(fs[1], ssaAt[1]))
	require.NoError(t, err)
	assert.True(t, entailed, "%v does not lead to %v", fs[0], fs[1])

	w.setAbstraction(e.fm.Not(guard))
	info, err = e.refiner.ForceCover(x, path, w)
	require.NoError(t, err)
	assert.False(t, info.IsSpurious())
	assert.Nil(t, info.Trace)
	assert.Equal(t, 2, e.stats.Refiner.ForceCoverings)

	assert.Panics(t, func() { e.refiner.ForceCover(w, path, w) })
}
