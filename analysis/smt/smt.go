// Package smt implements a decision procedure for formulas of the formula
// package by bit-blasting them into propositional logic and solving them
// with the gini SAT solver. It supports entailment checks and incremental,
// group based interpolation sessions.
package smt

import (
	"errors"
	"fmt"
	"io"

	"github.com/cs-au-dk/golazy/analysis/formula"
)

// Options configures the decision procedure.
type Options struct {
	// Bit width of integers. Must agree with the formula manager.
	// Zero selects the width of the manager.
	IntWidth uint
	// Encode bitwise operators and shifts by constants exactly instead of
	// leaving them uninterpreted.
	BitwiseAxioms bool
}

// Theory names a background theory that a prover session may be asked to support.
type Theory uint8

const (
	TheoryBool Theory = iota
	TheoryBV
	TheoryUF
	TheoryLIA
)

func (t Theory) String() string {
	switch t {
	case TheoryBool:
		return "Bool"
	case TheoryBV:
		return "BV"
	case TheoryUF:
		return "UF"
	case TheoryLIA:
		return "LIA"
	}
	return fmt.Sprintf("Theory(%d)", uint8(t))
}

// Status is the result of a satisfiability check.
type Status int8

const (
	Unknown Status = 0
	Sat     Status = 1
	Unsat   Status = -1
)

func (s Status) String() string {
	switch s {
	case Sat:
		return "sat"
	case Unsat:
		return "unsat"
	}
	return "unknown"
}

// Group is a handle to an interpolation group of a prover session.
type Group int

var (
	ErrUnsupportedTheory = errors.New("unsupported theory")
	ErrClosed            = errors.New("prover session is closed")
	ErrNotInterpolating  = errors.New("interpolation was not enabled")
	ErrSatisfiable       = errors.New("interpolation query is satisfiable")
	ErrNoModel           = errors.New("no model available")
	ErrUnknownGroup      = errors.New("unknown interpolation group")
)

// Solver answers one-shot satisfiability and entailment queries,
// and opens interpolation sessions.
type Solver interface {
	// Entails holds iff f ∧ ¬g is unsatisfiable.
	Entails(f, g *formula.Term) (bool, error)
	Satisfiable(f *formula.Term) (bool, error)
	NewProver() Prover
}

// Prover is a single incremental solving session. Formulas are asserted
// into groups, and Craig interpolants can be requested for any partition
// of the groups once the conjunction of all groups is unsatisfiable.
// A session must be released with Close.
type Prover interface {
	DeclareTheories(ts ...Theory) error
	BeginInterpolation()
	NewGroup() Group
	Assert(g Group, f *formula.Term) error
	Solve() (Status, error)
	// Interpolant computes a formula I such that the conjunction of the
	// groups in a entails I, and I is inconsistent with the remaining groups.
	// I only mentions variables shared by both sides.
	Interpolant(a []Group) (*formula.Term, error)
	// InterpolantBetween is Interpolant for an explicit partition. Groups
	// in neither a nor b take no part in the query.
	InterpolantBetween(a, b []Group) (*formula.Term, error)
	Model() (*Model, error)
	// Import makes a term created outside the session usable inside it.
	Import(f *formula.Term) *formula.Term
	// Dump writes the asserted groups in SMT-LIB format.
	Dump(w io.Writer) error
	Close() error
}
