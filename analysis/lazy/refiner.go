package lazy

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/cs-au-dk/golazy/analysis/cfa"
	"github.com/cs-au-dk/golazy/analysis/formula"
	"github.com/cs-au-dk/golazy/analysis/smt"
	"github.com/pkg/errors"
)

// CounterexampleTraceInfo is the verdict of the refiner on a path of states.
// Spurious paths carry one refinement formula per state of the path.
// Feasible paths may carry a concrete trace.
type CounterexampleTraceInfo struct {
	spurious bool
	path     []*AbstractState
	formulas []*formula.Term
	Trace    *ConcreteTrace
}

func (info CounterexampleTraceInfo) IsSpurious() bool { return info.spurious }

// Refinement retrieves the refinement formula of a state on the path.
func (info CounterexampleTraceInfo) Refinement(s *AbstractState) (*formula.Term, bool) {
	for i, p := range info.path {
		if p == s {
			return info.formulas[i], true
		}
	}
	return nil, false
}

// Formulas lists the refinement formulas in path order.
func (info CounterexampleTraceInfo) Formulas() []*formula.Term {
	return info.formulas
}

// Refiner analyses abstract paths with an interpolating prover.
type Refiner struct {
	fm     *formula.Manager
	solver smt.Solver
	locs   cfa.LocationManager
	cfg    Config
	stats  *Stats

	queries int
}

func NewRefiner(fm *formula.Manager, solver smt.Solver, locs cfa.LocationManager, cfg Config, stats *Stats) *Refiner {
	return &Refiner{fm: fm, solver: solver, locs: locs, cfg: cfg, stats: stats}
}

// edgesOf finds the CFA edges connecting consecutive states of the path.
func edgesOf(path []*AbstractState) []*cfa.Edge {
	edges := make([]*cfa.Edge, len(path)-1)
	for i := 1; i < len(path); i++ {
		e, err := path[i-1].location.EdgeTo(path[i].location)
		if err != nil {
			panic(errors.Wrapf(ErrInternal, "path %v -> %v: %v", path[i-1], path[i], err))
		}
		edges[i-1] = e
	}
	return edges
}

// session is one interpolation query.
type session struct {
	smt.Prover
	groups []smt.Group
	terms  []*formula.Term
}

func (r *Refiner) open() *session {
	p := r.solver.NewProver()
	if err := p.DeclareTheories(smt.TheoryBool, smt.TheoryBV, smt.TheoryUF); err != nil {
		p.Close()
		panic(errors.Wrapf(ErrInternal, "declaring theories: %v", err))
	}
	p.BeginInterpolation()
	return &session{Prover: p}
}

func (s *session) assert(f *formula.Term) {
	g := s.NewGroup()
	if err := s.Assert(g, s.Import(f)); err != nil {
		panic(errors.Wrapf(ErrInternal, "asserting %v: %v", f, err))
	}
	s.groups = append(s.groups, g)
	s.terms = append(s.terms, f)
}

func (s *session) solve() smt.Status {
	status, err := s.Solve()
	if err != nil {
		panic(errors.Wrapf(ErrInternal, "solving: %v", err))
	}
	if status == smt.Unknown {
		panic(internal("solver returned unknown"))
	}
	return status
}

// chain asserts the label of a state in a group of its own and returns it
// together with the group following that state. A true label is left out.
func (s *session) chain(label *formula.Term, next int) []smt.Group {
	if label.IsTrue() {
		return []smt.Group{s.groups[next]}
	}
	g := s.NewGroup()
	if err := s.Assert(g, s.Import(label)); err != nil {
		panic(errors.Wrapf(ErrInternal, "asserting %v: %v", label, err))
	}
	return []smt.Group{g, s.groups[next]}
}

func (s *session) interpolant(a, b []smt.Group) *formula.Term {
	itp, err := s.InterpolantBetween(a, b)
	if err != nil {
		panic(errors.Wrapf(ErrInternal, "interpolating: %v", err))
	}
	return itp
}

// dump writes the query to the dump directory, if one is configured.
func (r *Refiner) dump(s *session) error {
	if r.cfg.QueryDumpDir == "" {
		return nil
	}
	name := filepath.Join(r.cfg.QueryDumpDir, fmt.Sprintf("itp-query-%04d.smt", r.queries))
	r.queries++
	f, err := os.Create(name)
	if err != nil {
		return errors.Wrap(err, "dumping interpolation query")
	}
	defer f.Close()
	return errors.Wrapf(s.Dump(f), "writing %s", name)
}

func (r *Refiner) dumpFeasible(s *session) error {
	if r.cfg.FeasiblePathDump == "" {
		return nil
	}
	f, err := os.Create(r.cfg.FeasiblePathDump)
	if err != nil {
		return errors.Wrap(err, "dumping feasible path")
	}
	defer f.Close()
	return errors.Wrapf(smt.WriteSMTLIB(f, r.fm.And(s.terms...), r.fm.Width()),
		"writing %s", r.cfg.FeasiblePathDump)
}

// wellIndexed holds if every variable of itp carries its index in ssa.
func wellIndexed(itp *formula.Term, ssa formula.SSAMap) bool {
	for _, v := range formula.Vars(itp) {
		if v.Index() != ssa.Get(v.Name()) {
			return false
		}
	}
	return true
}

// BuildCounterexampleTrace decides whether the path is feasible. For a
// spurious path, every state is given an interpolant of the path formula
// split at that state. The first state gets true and the last gets false.
func (r *Refiner) BuildCounterexampleTrace(path []*AbstractState) (info CounterexampleTraceInfo, err error) {
	if len(path) < 2 {
		panic(internal("counterexample of length %d", len(path)))
	}

	start := time.Now()
	kind := "feasible"
	defer func() { r.stats.solverCall(kind, time.Since(start)) }()

	edges := edgesOf(path)
	s := r.open()
	defer s.Close()

	ssa := formula.EmptySSAMap()
	ssaAt := make([]formula.SSAMap, len(path))
	ssaAt[0] = ssa

	// Number of groups whose conjunction is unsatisfiable.
	cut := len(edges)
	status := smt.Unknown
	for i, e := range edges {
		var f *formula.Term
		f, ssa = r.fm.MakeEdgeFormula(e.Ops(), ssa)
		ssaAt[i+1] = ssa
		s.assert(f)
		if r.cfg.ShortestTrace && !f.IsTrue() {
			if status = s.solve(); status == smt.Unsat {
				cut = i + 1
				break
			}
		}
	}
	if err = r.dump(s); err != nil {
		return
	}
	if status != smt.Unsat {
		status = s.solve()
	}

	info.path = path
	if status == smt.Sat {
		model, merr := s.Model()
		if merr != nil {
			panic(errors.Wrapf(ErrInternal, "model of feasible path: %v", merr))
		}
		info.Trace = concreteTrace(r.fm, edges, ssaAt, model)
		err = r.dumpFeasible(s)
		return
	}

	kind = "spurious"
	info.spurious = true
	info.formulas = make([]*formula.Term, len(path))
	info.formulas[0] = r.fm.True()

	// The label of a state is interpolated from the label of its
	// predecessor and the edge between them, against the rest of the path.
	// Every label together with the following edge thus entails the next.
	prev := r.fm.True()
	var entries []int
	for i := 1; i < len(path); i++ {
		if i >= cut {
			info.formulas[i] = r.fm.False()
			continue
		}
		if len(entries) > 0 && r.locs.IsFunctionEnd(path[i-1].location, path[i].location) {
			entries = entries[:len(entries)-1]
		}

		var itp *formula.Term
		if r.cfg.WellScopedPredicates && len(entries) > 0 {
			itp = r.scoped(s, prev, entries[len(entries)-1], i, cut)
		}
		if itp == nil {
			itp = s.interpolant(s.chain(prev, i-1), s.groups[i:cut])
		}
		if !wellIndexed(itp, ssaAt[i]) {
			panic(internal("interpolant %v at %v mentions stale variables", itp, path[i]))
		}
		info.formulas[i] = r.fm.Uninstantiate(itp)
		prev = itp

		if r.locs.IsFunctionStart(path[i].location) {
			entries = append(entries, i)
		}
	}
	info.formulas[len(path)-1] = r.fm.False()
	return
}

// ForceCover decides whether every state reachable from x along path
// satisfies the abstraction of w. If so, the result is spurious and gives
// every state of the path a formula such that the last one entails the
// abstraction of w. A feasible result carries no trace.
func (r *Refiner) ForceCover(x *AbstractState, path []*AbstractState, w *AbstractState) (info CounterexampleTraceInfo, err error) {
	if len(path) == 0 || path[0] != x {
		panic(internal("forced covering path does not start in %v", x))
	}

	start := time.Now()
	defer func() { r.stats.solverCall("force", time.Since(start)) }()

	edges := edgesOf(path)
	s := r.open()
	defer s.Close()

	ssa := formula.EmptySSAMap()
	ssaAt := make([]formula.SSAMap, len(path))
	ssaAt[0] = ssa
	s.assert(r.fm.Instantiate(x.abstraction, ssa))
	for i, e := range edges {
		var f *formula.Term
		f, ssa = r.fm.MakeEdgeFormula(e.Ops(), ssa)
		ssaAt[i+1] = ssa
		s.assert(f)
	}
	s.assert(r.fm.Not(r.fm.Instantiate(w.abstraction, ssa)))

	if err = r.dump(s); err != nil {
		return
	}
	info.path = path
	if s.solve() == smt.Sat {
		return
	}

	info.spurious = true
	info.formulas = make([]*formula.Term, len(path))
	prev := r.fm.True()
	for j := range path {
		itp := s.interpolant(s.chain(prev, j), s.groups[j+1:])
		if !wellIndexed(itp, ssaAt[j]) {
			panic(internal("interpolant %v at %v mentions stale variables", itp, path[j]))
		}
		info.formulas[j] = r.fm.Uninstantiate(itp)
		prev = itp
	}
	return
}

// scoped interpolates the path since the innermost open call, starting at
// from, against the path from i to the cut. The result is discarded unless
// it follows from prev and the edge entering i.
func (r *Refiner) scoped(s *session, prev *formula.Term, from, i, cut int) *formula.Term {
	itp, err := s.InterpolantBetween(s.groups[from:i], s.groups[i:cut])
	switch {
	case errors.Is(err, smt.ErrSatisfiable):
		// The rest of the path is only refuted together with the caller.
		return nil
	case err != nil:
		panic(errors.Wrapf(ErrInternal, "interpolating: %v", err))
	}
	inductive, err := r.solver.Entails(r.fm.And(prev, s.terms[i-1]), itp)
	if err != nil {
		panic(errors.Wrapf(ErrInternal, "checking %v: %v", itp, err))
	}
	if !inductive {
		return nil
	}
	return itp
}
