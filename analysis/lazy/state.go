package lazy

import (
	"fmt"

	"github.com/cs-au-dk/golazy/analysis/cfa"
	"github.com/cs-au-dk/golazy/analysis/formula"
)

// StateID identifies an abstract state within one run of the engine.
// Identifiers increase in creation order.
type StateID int

// NoState is the absent state.
const NoState StateID = -1

// AbstractState is a node of the abstract reachability tree: a location,
// the formula over-approximating the values at that location, and the call
// context in which the location is reached.
type AbstractState struct {
	id          StateID
	location    *cfa.Node
	abstraction *formula.Term
	context     cfa.Context
	parent      StateID
	coveredBy   StateID

	// Set once successors have been materialized.
	expanded bool
	// Set when refinement proves the state unreachable.
	infeasible bool
}

func (s *AbstractState) ID() StateID                { return s.id }
func (s *AbstractState) Location() *cfa.Node        { return s.location }
func (s *AbstractState) Abstraction() *formula.Term { return s.abstraction }
func (s *AbstractState) Context() cfa.Context       { return s.context }
func (s *AbstractState) Parent() StateID            { return s.parent }
func (s *AbstractState) CoveredBy() StateID         { return s.coveredBy }
func (s *AbstractState) IsCovered() bool            { return s.coveredBy != NoState }
func (s *AbstractState) IsExpanded() bool           { return s.expanded }
func (s *AbstractState) IsInfeasible() bool         { return s.infeasible }
func (s *AbstractState) IsError() bool              { return s.location != nil && s.location.IsError() }
func (s *AbstractState) IsFalse() bool              { return s.abstraction != nil && s.abstraction.IsFalse() }

func (s *AbstractState) setAbstraction(f *formula.Term) {
	if f == nil {
		panic(internal("nil abstraction for state %d", s.id))
	}
	s.abstraction = f
}

func (s *AbstractState) String() string {
	if s.location == nil {
		return fmt.Sprintf("s%d", s.id)
	}
	return fmt.Sprintf("s%d@%v", s.id, s.location)
}

// Describe prints the state with its abstraction and context.
func (s *AbstractState) Describe() string {
	str := fmt.Sprintf("%v %v %v", s, s.context, s.abstraction)
	if s.IsCovered() {
		str += fmt.Sprintf(" ⊑ s%d", s.coveredBy)
	}
	return str
}
