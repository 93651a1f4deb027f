package lazy

import (
	"fmt"
	"strings"
)

// Outcome is the result of computing the successor of a state along an edge.
type Outcome interface {
	fmt.Stringer
	isOutcome()
}

type (
	// Bottom ends the branch without a successor.
	Bottom struct{}

	// Successor carries a freshly materialized state.
	Successor struct {
		State *AbstractState
	}

	// ErrorFound carries a feasible counterexample.
	ErrorFound struct {
		Trace *ConcreteTrace
	}

	// RefinementNeeded reports that a spurious counterexample strengthened the
	// tree. Discarded states were detached and must be dropped by the driver,
	// Requeue states must be processed again, newest first.
	RefinementNeeded struct {
		Discard []*AbstractState
		Requeue []*AbstractState
	}

	// Requeue hands previously released states to the driver ahead of Then.
	Requeue struct {
		States []*AbstractState
		Then   Outcome
	}
)

func (Bottom) isOutcome()           {}
func (Successor) isOutcome()        {}
func (ErrorFound) isOutcome()       {}
func (RefinementNeeded) isOutcome() {}
func (Requeue) isOutcome()          {}

func (Bottom) String() string { return "⊥" }

func (o Successor) String() string { return "succ " + o.State.String() }

func (o ErrorFound) String() string {
	return fmt.Sprintf("error reached (%d steps)", len(o.Trace.Steps))
}

func (o RefinementNeeded) String() string {
	return fmt.Sprintf("refine: discard %s requeue %s", stateList(o.Discard), stateList(o.Requeue))
}

func (o Requeue) String() string {
	return fmt.Sprintf("requeue %s then %v", stateList(o.States), o.Then)
}

func stateList(ss []*AbstractState) string {
	strs := make([]string, len(ss))
	for i, s := range ss {
		strs[i] = s.String()
	}
	return "{" + strings.Join(strs, ", ") + "}"
}
