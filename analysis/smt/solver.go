package smt

import (
	"github.com/cs-au-dk/golazy/analysis/formula"
	"github.com/go-air/gini"
	"github.com/pkg/errors"
)

// GiniSolver decides formulas of a formula manager by bit-blasting.
type GiniSolver struct {
	fm   *formula.Manager
	opts Options
}

var _ Solver = (*GiniSolver)(nil)

func NewSolver(fm *formula.Manager, opts Options) (*GiniSolver, error) {
	if opts.IntWidth == 0 {
		opts.IntWidth = fm.Width()
	}
	if opts.IntWidth != fm.Width() {
		return nil, errors.Errorf("integer width %d does not match the formula manager (%d)",
			opts.IntWidth, fm.Width())
	}
	return &GiniSolver{fm: fm, opts: opts}, nil
}

func (s *GiniSolver) Manager() *formula.Manager { return s.fm }
func (s *GiniSolver) Options() Options          { return s.opts }

func (s *GiniSolver) Satisfiable(f *formula.Term) (sat bool, err error) {
	switch {
	case f.IsTrue():
		return true, nil
	case f.IsFalse():
		return false, nil
	}

	defer catch(&err)
	b := newBlaster(s.opts.IntWidth, s.opts.BitwiseAxioms)
	root := b.lit(f, 0)

	g := gini.New()
	b.toSolver(g)
	g.Add(root)
	g.Add(0)

	switch g.Solve() {
	case 1:
		return true, nil
	case -1:
		return false, nil
	}
	return false, errors.Errorf("solver returned unknown for %v", f)
}

func (s *GiniSolver) Entails(f, g *formula.Term) (bool, error) {
	if f == g || f.IsFalse() || g.IsTrue() {
		return true, nil
	}
	sat, err := s.Satisfiable(s.fm.And(f, s.fm.Not(g)))
	return !sat, err
}

func (s *GiniSolver) NewProver() Prover {
	return newProver(s)
}
