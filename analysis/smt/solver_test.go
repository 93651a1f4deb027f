package smt

import (
	"bytes"
	"testing"

	"github.com/cs-au-dk/golazy/analysis/formula"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSolver(t *testing.T, width uint, axioms bool) (*formula.Manager, *GiniSolver) {
	fm := formula.NewManager(width)
	s, err := NewSolver(fm, Options{BitwiseAxioms: axioms})
	require.NoError(t, err)
	return fm, s
}

func TestWidthMismatch(t *testing.T) {
	fm := formula.NewManager(8)
	_, err := NewSolver(fm, Options{IntWidth: 16})
	assert.Error(t, err)
}

func TestSatisfiable(t *testing.T) {
	fm, s := newTestSolver(t, 8, false)
	x := fm.Var("x", formula.Int)
	y := fm.Var("y", formula.Int)
	c := fm.IntConst

	tests := []struct {
		name string
		f    *formula.Term
		sat  bool
	}{
		{"true", fm.True(), true},
		{"false", fm.False(), false},
		{"bounds", fm.And(fm.Slt(c(3), x), fm.Slt(x, c(5))), true},
		{"empty-range", fm.And(fm.Slt(c(5), x), fm.Slt(x, c(5))), false},
		{"wrap-around", fm.And(fm.Eq(y, fm.Add(x, c(1))), fm.Slt(y, x)), true},
		{"unsigned-max", fm.Ult(c(-1), x), false},
		{"mul", fm.Eq(fm.Mul(x, c(3)), c(7)), true},
		{"even-mul", fm.Eq(fm.Mul(x, c(2)), c(7)), false},
		{"neg", fm.And(fm.Eq(fm.Neg(x), x), fm.Neq(x, c(0)), fm.Neq(x, c(-128))), false},
	}

	for _, test := range tests {
		sat, err := s.Satisfiable(test.f)
		if err != nil {
			t.Errorf("%s: unexpected error %v", test.name, err)
		} else if sat != test.sat {
			t.Errorf("%s: expected satisfiable = %v for %v", test.name, test.sat, test.f)
		}
	}
}

func TestEntails(t *testing.T) {
	fm, s := newTestSolver(t, 8, false)
	x := fm.Var("x", formula.Int)
	c := fm.IntConst

	ok, err := s.Entails(fm.Slt(x, c(3)), fm.Slt(x, c(10)))
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.Entails(fm.Slt(x, c(10)), fm.Slt(x, c(3)))
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = s.Entails(fm.False(), fm.Slt(x, c(3)))
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestUninterpretedOperators(t *testing.T) {
	fm, s := newTestSolver(t, 8, false)
	x := fm.Var("x", formula.Int)
	c := fm.IntConst
	masked := fm.Binary(formula.KBitAnd, x, c(1))

	// Without axioms the result of x & 1 is unconstrained.
	sat, err := s.Satisfiable(fm.Eq(masked, c(2)))
	require.NoError(t, err)
	assert.True(t, sat)

	exact, err := NewSolver(fm, Options{BitwiseAxioms: true})
	require.NoError(t, err)
	sat, err = exact.Satisfiable(fm.Eq(masked, c(2)))
	require.NoError(t, err)
	assert.False(t, sat)

	sat, err = exact.Satisfiable(fm.Eq(fm.Binary(formula.KShl, x, c(1)), c(1)))
	require.NoError(t, err)
	assert.False(t, sat)

	// Identical occurrences share their result.
	quo := fm.Binary(formula.KQuo, x, c(3))
	sat, err = s.Satisfiable(fm.And(fm.Eq(quo, c(1)), fm.Eq(quo, c(2))))
	require.NoError(t, err)
	assert.False(t, sat)
}

func TestProverTheories(t *testing.T) {
	_, s := newTestSolver(t, 8, false)
	p := s.NewProver()
	defer p.Close()

	assert.NoError(t, p.DeclareTheories(TheoryBool, TheoryBV, TheoryUF))
	assert.ErrorIs(t, p.DeclareTheories(TheoryLIA), ErrUnsupportedTheory)
}

func TestProverLifecycle(t *testing.T) {
	fm, s := newTestSolver(t, 8, false)
	p := s.NewProver()
	g := p.NewGroup()
	require.NoError(t, p.Assert(g, fm.Var("p", formula.Bool)))

	_, err := p.Interpolant([]Group{g})
	assert.ErrorIs(t, err, ErrNotInterpolating)

	_, err = p.Model()
	assert.ErrorIs(t, err, ErrNoModel)

	require.NoError(t, p.Close())
	assert.ErrorIs(t, p.Close(), ErrClosed)
	assert.ErrorIs(t, p.Assert(g, fm.True()), ErrClosed)
	_, err = p.Solve()
	assert.ErrorIs(t, err, ErrClosed)
}

func TestModel(t *testing.T) {
	fm, s := newTestSolver(t, 8, false)
	x1 := fm.VarAt("x", formula.Int, 1)
	x2 := fm.VarAt("x", formula.Int, 2)
	b := fm.VarAt("b", formula.Bool, 1)

	p := s.NewProver()
	defer p.Close()
	g0, g1 := p.NewGroup(), p.NewGroup()
	require.NoError(t, p.Assert(g0, fm.Eq(x1, fm.IntConst(-5))))
	require.NoError(t, p.Assert(g1, fm.And(b, fm.Eq(x2, fm.Add(x1, fm.IntConst(2))))))

	st, err := p.Solve()
	require.NoError(t, err)
	require.Equal(t, Sat, st)

	m, err := p.Model()
	require.NoError(t, err)
	assert.Equal(t, 3, m.Len())

	v, ok := m.Get(x1)
	require.True(t, ok)
	assert.Equal(t, int64(-5), v.Int())
	v, _ = m.Get(x2)
	assert.Equal(t, "-3", v.String())
	v, _ = m.Get(b)
	assert.True(t, v.Bool())

	assert.Equal(t, []*formula.Term{b, x1, x2}, m.Vars())
}

// checkInterpolant verifies A ⇒ I, I ∧ B unsat, and that I only mentions shared variables.
func checkInterpolant(t *testing.T, fm *formula.Manager, s *GiniSolver, a, b, itp *formula.Term) {
	t.Helper()

	ok, err := s.Entails(a, itp)
	require.NoError(t, err)
	assert.True(t, ok, "A does not entail the interpolant %v", itp)

	sat, err := s.Satisfiable(fm.And(itp, b))
	require.NoError(t, err)
	assert.False(t, sat, "interpolant %v is consistent with B", itp)

	shared := map[string]bool{}
	for _, v := range formula.Vars(a) {
		shared[v.VarName()] = true
	}
	bvars := map[string]bool{}
	for _, v := range formula.Vars(b) {
		bvars[v.VarName()] = true
	}
	for _, v := range formula.Vars(itp) {
		assert.True(t, shared[v.VarName()] && bvars[v.VarName()],
			"interpolant mentions non-shared variable %v", v)
	}
}

func TestInterpolantValidity(t *testing.T) {
	fm, s := newTestSolver(t, 8, false)
	c := fm.IntConst
	x1 := fm.VarAt("x", formula.Int, 1)
	x2 := fm.VarAt("x", formula.Int, 2)
	y1 := fm.VarAt("y", formula.Int, 1)
	p1 := fm.VarAt("p", formula.Bool, 1)

	tests := []struct {
		name string
		a, b *formula.Term
	}{{
		"assignment",
		fm.And(fm.Eq(x1, c(0)), fm.Eq(x2, fm.Add(x1, c(1)))),
		fm.Slt(x2, c(0)),
	}, {
		"local-variables",
		fm.And(fm.Eq(y1, c(7)), fm.Eq(x1, fm.Add(y1, y1))),
		fm.Eq(x1, c(3)),
	}, {
		"boolean",
		fm.And(p1, fm.Implies(p1, fm.Slt(x1, c(4)))),
		fm.Slt(c(10), x1),
	}, {
		"trivial-a",
		fm.True(),
		fm.And(fm.Slt(x1, c(0)), fm.Slt(c(0), x1)),
	}, {
		"trivial-b",
		fm.And(fm.Slt(x1, c(0)), fm.Slt(c(0), x1)),
		fm.True(),
	}}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			p := s.NewProver()
			defer p.Close()
			require.NoError(t, p.DeclareTheories(TheoryBool, TheoryBV))
			p.BeginInterpolation()

			ga, gb := p.NewGroup(), p.NewGroup()
			require.NoError(t, p.Assert(ga, test.a))
			require.NoError(t, p.Assert(gb, test.b))

			st, err := p.Solve()
			require.NoError(t, err)
			require.Equal(t, Unsat, st)

			itp, err := p.Interpolant([]Group{ga})
			require.NoError(t, err)
			checkInterpolant(t, fm, s, test.a, test.b, itp)
		})
	}
}

func TestInterpolantSequence(t *testing.T) {
	fm, s := newTestSolver(t, 8, false)
	c := fm.IntConst
	x := func(i int) *formula.Term { return fm.VarAt("x", formula.Int, i) }

	// x := 0; x := x + 2; assume x == 3
	parts := []*formula.Term{
		fm.Eq(x(2), c(0)),
		fm.Eq(x(3), fm.Add(x(2), c(2))),
		fm.Eq(x(3), c(3)),
	}

	p := s.NewProver()
	defer p.Close()
	p.BeginInterpolation()
	groups := []Group{}
	for _, f := range parts {
		g := p.NewGroup()
		require.NoError(t, p.Assert(g, f))
		groups = append(groups, g)
	}

	st, err := p.Solve()
	require.NoError(t, err)
	require.Equal(t, Unsat, st)

	for i := 1; i < len(parts); i++ {
		itp, err := p.Interpolant(groups[:i])
		require.NoError(t, err)
		checkInterpolant(t, fm, s, fm.And(parts[:i]...), fm.And(parts[i:]...), itp)
	}
}

func TestInterpolantOfSatisfiableQuery(t *testing.T) {
	fm, s := newTestSolver(t, 8, false)
	x := fm.VarAt("x", formula.Int, 1)

	p := s.NewProver()
	defer p.Close()
	p.BeginInterpolation()
	ga, gb := p.NewGroup(), p.NewGroup()
	require.NoError(t, p.Assert(ga, fm.Slt(x, fm.IntConst(3))))
	require.NoError(t, p.Assert(gb, fm.Slt(x, fm.IntConst(5))))

	_, err := p.Interpolant([]Group{ga})
	assert.ErrorIs(t, err, ErrSatisfiable)
}

func TestDump(t *testing.T) {
	fm, s := newTestSolver(t, 8, false)
	x := fm.VarAt("main.x", formula.Int, 1)

	p := s.NewProver()
	defer p.Close()
	g := p.NewGroup()
	require.NoError(t, p.Assert(g, fm.Slt(x, fm.IntConst(-1))))

	var buf bytes.Buffer
	require.NoError(t, p.Dump(&buf))
	out := buf.String()
	assert.Contains(t, out, "(declare-fun |main.x@1| () (_ BitVec 8))")
	assert.Contains(t, out, "(assert (! (bvslt |main.x@1| (_ bv255 8)) :named g0))")
	assert.Contains(t, out, "(check-sat)")
}
