package smt

import (
	"github.com/cs-au-dk/golazy/analysis/formula"
	"github.com/go-air/gini"
	"github.com/go-air/gini/z"
	"github.com/pkg/errors"
	"golang.org/x/exp/slices"
)

// maxInterpolationRounds bounds the number of cubes enumerated for one interpolant.
const maxInterpolationRounds = 1 << 14

type group struct {
	terms []*formula.Term
	root  z.Lit
	vars  map[*formula.Term]bool
}

type prover struct {
	s  *GiniSolver
	fm *formula.Manager
	b  *blaster

	groups        []*group
	interpolating bool
	closed        bool

	status Status
	model  *Model
}

func newProver(s *GiniSolver) *prover {
	b := newBlaster(s.opts.IntWidth, s.opts.BitwiseAxioms)
	return &prover{
		s:  s,
		fm: s.fm,
		b:  b,
	}
}

func (p *prover) DeclareTheories(ts ...Theory) error {
	for _, t := range ts {
		switch t {
		case TheoryBool, TheoryBV, TheoryUF:
		default:
			return errors.Wrapf(ErrUnsupportedTheory, "%v", t)
		}
	}
	return nil
}

func (p *prover) BeginInterpolation() {
	p.interpolating = true
}

func (p *prover) NewGroup() Group {
	p.groups = append(p.groups, &group{
		root: p.b.c.T,
		vars: make(map[*formula.Term]bool),
	})
	return Group(len(p.groups) - 1)
}

func (p *prover) group(g Group) (*group, error) {
	if p.closed {
		return nil, ErrClosed
	}
	if int(g) < 0 || int(g) >= len(p.groups) {
		return nil, errors.Wrapf(ErrUnknownGroup, "%d", g)
	}
	return p.groups[g], nil
}

func (p *prover) Assert(g Group, f *formula.Term) (err error) {
	gr, err := p.group(g)
	if err != nil {
		return err
	}
	defer catch(&err)

	m := p.b.lit(f, int(g))
	gr.root = p.b.c.And(gr.root, m)
	gr.terms = append(gr.terms, f)
	for _, v := range formula.Vars(f) {
		p.b.variable(v)
		gr.vars[v] = true
	}
	p.status, p.model = Unknown, nil
	return nil
}

// load creates a fresh SAT solver over the circuit, asserting the given groups.
func (p *prover) load(groups []int) *gini.Gini {
	g := gini.New()
	p.b.toSolver(g)
	for _, i := range groups {
		g.Add(p.groups[i].root)
		g.Add(0)
	}
	return g
}

func (p *prover) all() []int {
	res := make([]int, len(p.groups))
	for i := range res {
		res[i] = i
	}
	return res
}

func (p *prover) Solve() (Status, error) {
	if p.closed {
		return Unknown, ErrClosed
	}
	g := p.load(p.all())
	switch g.Solve() {
	case 1:
		p.status = Sat
		p.model = p.extractModel(g)
	case -1:
		p.status, p.model = Unsat, nil
	default:
		p.status, p.model = Unknown, nil
	}
	return p.status, nil
}

func (p *prover) extractModel(g *gini.Gini) *Model {
	m := newModel()
	for _, gr := range p.groups {
		for v := range gr.vars {
			if _, ok := m.values[v]; ok {
				continue
			}
			bits := p.b.variable(v)
			if v.Sort() == formula.Bool {
				m.set(v, BoolValue(g.Value(bits[0])))
				continue
			}
			var val int64
			for i, bit := range bits {
				if g.Value(bit) {
					val |= 1 << uint(i)
				}
			}
			shift := 64 - uint(len(bits))
			m.set(v, IntValue((val<<shift)>>shift))
		}
	}
	return m
}

func (p *prover) Model() (*Model, error) {
	if p.closed {
		return nil, ErrClosed
	}
	if p.status != Sat || p.model == nil {
		return nil, ErrNoModel
	}
	return p.model, nil
}

// Interpolant partitions the groups into a and the remaining groups.
func (p *prover) Interpolant(a []Group) (*formula.Term, error) {
	inA := make(map[Group]bool, len(a))
	for _, g := range a {
		inA[g] = true
	}
	var b []Group
	for i := range p.groups {
		if !inA[Group(i)] {
			b = append(b, Group(i))
		}
	}
	return p.InterpolantBetween(a, b)
}

// InterpolantBetween enumerates the projections onto shared variable bits
// of the models of the A side. Every projection is inconsistent with the B
// side, and the failed assumptions of that check generalize it to a cube
// which is then blocked on the A side. The disjunction of the cubes is
// entailed by A and inconsistent with B. Groups on neither side are ignored.
func (p *prover) InterpolantBetween(a, b []Group) (*formula.Term, error) {
	if p.closed {
		return nil, ErrClosed
	}
	if !p.interpolating {
		return nil, ErrNotInterpolating
	}

	var aGroups, bGroups []int
	aVars := map[*formula.Term]bool{}
	bVars := map[*formula.Term]bool{}
	for _, side := range []struct {
		groups []Group
		dst    *[]int
		vars   map[*formula.Term]bool
	}{{a, &aGroups, aVars}, {b, &bGroups, bVars}} {
		for _, g := range side.groups {
			gr, err := p.group(g)
			if err != nil {
				return nil, err
			}
			*side.dst = append(*side.dst, int(g))
			for v := range gr.vars {
				side.vars[v] = true
			}
		}
	}

	shared := []*formula.Term{}
	for v := range aVars {
		if bVars[v] {
			shared = append(shared, v)
		}
	}
	slices.SortFunc(shared, func(x, y *formula.Term) bool { return x.ID() < y.ID() })

	refs := map[z.Var]bitRef{}
	lits := []z.Lit{}
	for _, v := range shared {
		for i, m := range p.b.variable(v) {
			refs[m.Var()] = bitRef{v, i}
			lits = append(lits, m)
		}
	}

	A, B := p.load(aGroups), p.load(bGroups)

	cubes := []*formula.Term{}
	for round := 0; ; round++ {
		if round >= maxInterpolationRounds {
			return nil, errors.Errorf("interpolation did not converge after %d cubes", round)
		}

		switch A.Solve() {
		case -1:
			return p.fm.Or(cubes...), nil
		case 0:
			return nil, errors.New("solver returned unknown on the A side of an interpolation query")
		}

		cube := make([]z.Lit, len(lits))
		for i, m := range lits {
			if A.Value(m) {
				cube[i] = m
			} else {
				cube[i] = m.Not()
			}
		}

		B.Assume(cube...)
		switch B.Solve() {
		case 1:
			return nil, ErrSatisfiable
		case 0:
			return nil, errors.New("solver returned unknown on the B side of an interpolation query")
		}

		core := B.Why(nil)
		conj := make([]*formula.Term, 0, len(core))
		for _, m := range core {
			t := refs[m.Var()].term(p.fm)
			if !m.IsPos() {
				t = p.fm.Not(t)
			}
			conj = append(conj, t)
			A.Add(m.Not())
		}
		A.Add(0)
		cubes = append(cubes, p.fm.And(conj...))
	}
}

func (p *prover) Import(f *formula.Term) *formula.Term {
	// Terms are owned by the formula manager and valid in every session.
	return f
}

func (p *prover) Close() error {
	if p.closed {
		return ErrClosed
	}
	p.closed = true
	p.groups, p.b, p.model = nil, nil, nil
	return nil
}
